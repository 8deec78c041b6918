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
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestChecker(t *testing.T) *Checker {
	c, err := NewChecker(100)
	require.NoError(t, err)
	return c
}

func TestCheckIdentical(t *testing.T) {
	c := newTestChecker(t)
	for _, s := range []*Schema{watchV1(), watchV2(), recommendationV1()} {
		r := c.Check(s, s)
		assert.True(t, r.Backward)
		assert.True(t, r.Forward)
		assert.Equal(t, Full, r.Level())
		assert.Empty(t, r.Violations())
	}
}

func TestCheckOptionalAddition(t *testing.T) {
	c := newTestChecker(t)

	// a v2 reader fills deviceType with null for v1 data, but the pair
	// differs by more than dropped fields
	r := c.Check(recommendationV1(), recommendationV2())
	assert.True(t, r.Backward)
	assert.False(t, r.Forward)
	assert.Equal(t, Backward, r.Level())
	require.Len(t, r.ForwardViolations, 1)
	assert.Equal(t, "deviceType", r.ForwardViolations[0].Field)

	ok, violations := c.CanRead(recommendationV1(), recommendationV2())
	assert.True(t, ok)
	assert.Empty(t, violations)

	// a v1 reader drops deviceType from v2 data
	r = c.Check(recommendationV2(), recommendationV1())
	assert.Equal(t, Full, r.Level())

	// as a lineage step both directions resolve
	assert.Equal(t, Full, c.Transition(recommendationV1(), recommendationV2()).Level())
	assert.Equal(t, Full, c.Transition(recommendationV2(), recommendationV1()).Level())
}

func TestCheckRequiredAddition(t *testing.T) {
	c := newTestChecker(t)
	v3 := MustNewSchema("RecommendationRequest", []Field{
		Required("time", StringType),
		Required("userId", StringType),
		RequiredArray("recommendations", StringType),
		Required("requestId", StringType),
	})

	r := c.Check(recommendationV1(), v3)
	assert.False(t, r.Backward)
	assert.False(t, r.Forward)
	assert.Equal(t, None, r.Level())
	require.Len(t, r.BackwardViolations, 1)
	assert.Equal(t, "requestId", r.BackwardViolations[0].Field)
	assert.Len(t, r.Violations(), 2)

	ok, violations := c.CanRead(recommendationV1(), v3)
	assert.False(t, ok)
	assert.Len(t, violations, 1)

	// the other direction only drops the field
	r = c.Check(v3, recommendationV1())
	assert.True(t, r.Backward)
	assert.True(t, r.Forward)
	assert.Equal(t, Full, r.Level())

	// old readers can still read the new version
	tr := c.Transition(recommendationV1(), v3)
	assert.False(t, tr.Backward)
	assert.True(t, tr.Forward)
	assert.Equal(t, Forward, tr.Level())
	assert.Equal(t, Backward, c.Transition(v3, recommendationV1()).Level())
}

func TestCheckTransitionCached(t *testing.T) {
	c := newTestChecker(t)

	// the pair and the lineage step share canonical forms but not results
	assert.Equal(t, Backward, c.Check(watchV1(), watchV2()).Level())
	assert.Equal(t, Full, c.Transition(watchV1(), watchV2()).Level())
	assert.Equal(t, Backward, c.Check(watchV1(), watchV2()).Level())
}

func TestCheckNullableWithoutDefault(t *testing.T) {
	c := newTestChecker(t)
	noDefault := MustNewSchema("com.moviestream.events.MovieWatchEvent", []Field{
		Required("time", StringType),
		Required("userId", StringType),
		Required("movieId", StringType),
		Required("minute", IntType),
		{Name: "watchedInFull", Type: FieldType{Type: BooleanType, Nullable: true}},
	})

	ok, violations := c.CanRead(watchV1(), noDefault)
	assert.False(t, ok)
	require.Len(t, violations, 1)
	assert.Equal(t, "watchedInFull", violations[0].Field)
}

func TestCheckTypeChange(t *testing.T) {
	c := newTestChecker(t)
	tests := map[string]FieldType{
		"widened":      {Type: LongType},
		"nullable":     {Type: IntType, Nullable: true},
		"to string":    {Type: StringType},
		"to array":     {Type: ArrayType, Items: IntType},
		"item changed": {Type: ArrayType, Items: StringType},
	}
	for name, ft := range tests {
		t.Run(name, func(t *testing.T) {
			changed := MustNewSchema("com.moviestream.events.MovieWatchEvent", []Field{
				Required("time", StringType),
				Required("userId", StringType),
				Required("movieId", StringType),
				{Name: "minute", Type: ft},
			})
			r := c.Check(watchV1(), changed)
			assert.Equal(t, None, r.Level())
			require.NotEmpty(t, r.BackwardViolations)
			assert.Equal(t, "minute", r.BackwardViolations[0].Field)
			assert.Len(t, r.Violations(), 1, "a mismatch is reported once")
			assert.Equal(t, None, c.Transition(watchV1(), changed).Level())
		})
	}
}

func TestCheckFieldOrderIgnored(t *testing.T) {
	c := newTestChecker(t)
	reordered := MustNewSchema("com.moviestream.events.MovieWatchEvent", []Field{
		Required("minute", IntType),
		Required("movieId", StringType),
		Required("userId", StringType),
		Required("time", StringType),
	})
	assert.Equal(t, Full, c.Check(watchV1(), reordered).Level())
}

func TestCheckDeterministic(t *testing.T) {
	c := newTestChecker(t)
	first := c.Check(watchV1(), watchV2())
	for i := 0; i < 3; i++ {
		assert.Equal(t, first, c.Check(watchV1(), watchV2()))
	}
	fresh := newTestChecker(t)
	assert.Equal(t, first, fresh.Check(watchV1(), watchV2()))
}

func TestSatisfied(t *testing.T) {
	backwardOnly := Result{Backward: true}
	assert.True(t, None.Satisfied(Result{}))
	assert.True(t, Backward.Satisfied(backwardOnly))
	assert.False(t, Forward.Satisfied(backwardOnly))
	assert.False(t, Full.Satisfied(backwardOnly))
	assert.True(t, Full.Satisfied(Result{Backward: true, Forward: true}))
}

func TestCompatibilityJSON(t *testing.T) {
	maybeFail := initFailFunc(t)

	level := Backward
	b, err := json.Marshal(&level)
	maybeFail("marshal", err, expect(string(b), `"BACKWARD"`))

	var parsed Compatibility
	err = json.Unmarshal([]byte(`"FULL"`), &parsed)
	maybeFail("unmarshal", err, expect(parsed, Full))

	err = json.Unmarshal([]byte(`"SIDEWAYS"`), &parsed)
	if err == nil {
		t.Fatal("expected error for unknown level")
	}
}
