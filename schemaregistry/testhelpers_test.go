/**
 * Copyright 2024 Confluent Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 * http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package schemaregistry

import (
	"fmt"
	"reflect"
	"runtime"
	"testing"
)

type failFunc func(string, ...error)

func initFailFunc(t *testing.T) failFunc {
	tester := t
	return func(msg string, errors ...error) {
		for _, err := range errors {
			if err != nil {
				pc := make([]uintptr, 1)
				runtime.Callers(2, pc)
				caller := runtime.FuncForPC(pc[0])
				_, line := caller.FileLine(caller.Entry())

				tester.Fatalf("%s:%d failed: %s %s", caller.Name(), line, msg, err)
			}
		}
	}
}

func expect(actual, expected interface{}) error {
	if !reflect.DeepEqual(actual, expected) {
		return fmt.Errorf("expected: %v, Actual: %v", expected, actual)
	}

	return nil
}

func watchV1() *Schema {
	return MustNewSchema("com.moviestream.events.MovieWatchEvent", []Field{
		Required("time", StringType),
		Required("userId", StringType),
		Required("movieId", StringType),
		Required("minute", IntType),
	})
}

func watchV2() *Schema {
	return MustNewSchema("com.moviestream.events.MovieWatchEvent", []Field{
		Required("time", StringType),
		Required("userId", StringType),
		Required("movieId", StringType),
		Required("minute", IntType),
		Nullable("watchedInFull", BooleanType),
	})
}

func recommendationV1() *Schema {
	return MustNewSchema("RecommendationRequest", []Field{
		Required("time", StringType),
		Required("userId", StringType),
		RequiredArray("recommendations", StringType),
	})
}

func recommendationV2() *Schema {
	return MustNewSchema("RecommendationRequest", []Field{
		Required("time", StringType),
		Required("userId", StringType),
		RequiredArray("recommendations", StringType),
		Nullable("deviceType", StringType),
	})
}

func newTestClient(t *testing.T) Client {
	c, err := NewClient(NewConfig())
	if err != nil {
		t.Fatalf("failed to create client: %s", err)
	}
	return c
}
