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

package ingest

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/moviestream/eventlog/schemaregistry"
	"github.com/moviestream/eventlog/schemaregistry/serde"
)

const timestamp = `(\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(?:\.\d+)?)`

var (
	watchPattern          = regexp.MustCompile(`^` + timestamp + `,(\d+),GET /data/m/(.+?)/(\d+)\.mpg$`)
	ratingPattern         = regexp.MustCompile(`^` + timestamp + `,(\d+),GET /rate/(.+?)=(\d+)$`)
	recommendationPattern = regexp.MustCompile(`^` + timestamp + `,(\d+),recommendation request (.*?), status (.*?), result: (.*?), (\d+) ms$`)
)

// ParseEntry parses one master log line into the fields of kind, named
// after the kind's schema fields. Numbers are converted here so the
// writer never has to coerce strings.
func ParseEntry(kind schemaregistry.Kind, line string) (map[string]interface{}, error) {
	line = strings.TrimSpace(line)
	switch kind {
	case schemaregistry.MovieWatchEvent:
		m := watchPattern.FindStringSubmatch(line)
		if m == nil {
			return nil, unparseable(kind, line)
		}
		minute, err := parseInt(kind, "minute", m[4])
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{
			"time":    m[1],
			"userId":  m[2],
			"movieId": movieID(m[3]),
			"minute":  minute,
		}, nil

	case schemaregistry.MovieRatingEvent:
		m := ratingPattern.FindStringSubmatch(line)
		if m == nil {
			return nil, unparseable(kind, line)
		}
		rating, err := parseInt(kind, "rating", m[4])
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{
			"time":    m[1],
			"userId":  m[2],
			"movieId": movieID(m[3]),
			"rating":  rating,
		}, nil

	case schemaregistry.RecommendationRequest:
		m := recommendationPattern.FindStringSubmatch(line)
		if m == nil {
			return nil, unparseable(kind, line)
		}
		status, err := parseInt(kind, "status", strings.TrimSpace(m[4]))
		if err != nil {
			return nil, err
		}
		responseTime, err := parseInt(kind, "responseTimeMs", m[6])
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{
			"time":            m[1],
			"userId":          m[2],
			"server":          m[3],
			"status":          status,
			"recommendations": splitResults(m[5]),
			"responseTimeMs":  responseTime,
		}, nil
	}
	return nil, &schemaregistry.UnknownKindError{Kind: kind}
}

func unparseable(kind schemaregistry.Kind, line string) error {
	return &serde.MalformedEntryError{Kind: kind, Reason: fmt.Sprintf("unparseable log entry %q", line)}
}

func parseInt(kind schemaregistry.Kind, field, s string) (int32, error) {
	v, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, &serde.MalformedEntryError{Kind: kind, Field: field, Reason: fmt.Sprintf("%q is not an int", s)}
	}
	return int32(v), nil
}

// movie ids are URL path segments with spaces encoded as '+'
func movieID(s string) string {
	return strings.ReplaceAll(s, "+", " ")
}

func splitResults(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return []string{}
	}
	ids := strings.Split(s, ",")
	for i := range ids {
		ids[i] = strings.TrimSpace(ids[i])
	}
	return ids
}
