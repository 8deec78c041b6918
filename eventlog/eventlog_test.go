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

package eventlog

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/moviestream/eventlog/schemaregistry"
	"github.com/moviestream/eventlog/schemaregistry/serde"
)

var (
	watchV1 = schemaregistry.MustNewSchema("com.moviestream.events.MovieWatchEvent", []schemaregistry.Field{
		schemaregistry.Required("time", schemaregistry.StringType),
		schemaregistry.Required("userId", schemaregistry.StringType),
		schemaregistry.Required("movieId", schemaregistry.StringType),
		schemaregistry.Required("minute", schemaregistry.IntType),
	})
	watchV2 = schemaregistry.MustNewSchema("com.moviestream.events.MovieWatchEvent", []schemaregistry.Field{
		schemaregistry.Required("time", schemaregistry.StringType),
		schemaregistry.Required("userId", schemaregistry.StringType),
		schemaregistry.Required("movieId", schemaregistry.StringType),
		schemaregistry.Required("minute", schemaregistry.IntType),
		schemaregistry.Nullable("watchedInFull", schemaregistry.BooleanType),
	})
)

type fixture struct {
	client schemaregistry.Client
	sinks  *MemorySinks
	writer *Writer
	reader *Reader
	hook   *test.Hook
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	client, err := schemaregistry.NewClient(nil)
	require.NoError(t, err)
	_, err = client.Register(schemaregistry.MovieWatchEvent, watchV1)
	require.NoError(t, err)

	logger, hook := test.NewNullLogger()
	opts = append([]Option{WithLogger(logger)}, opts...)
	sinks := NewMemorySinks()
	writer, err := NewWriter(client, sinks, opts...)
	require.NoError(t, err)
	reader, err := NewReader(client, sinks, opts...)
	require.NoError(t, err)
	return &fixture{
		client: client,
		sinks:  sinks,
		writer: writer,
		reader: reader,
		hook:   hook,
	}
}

func watch(user string, minute int32) map[string]interface{} {
	return map[string]interface{}{
		"time":    "2024-01-01T00:00:00Z",
		"userId":  user,
		"movieId": "m42",
		"minute":  minute,
	}
}

// readAll drains an iterator opened with the given reader version
func (f *fixture) readAll(t *testing.T, version int) ([]*serde.Record, []int, error) {
	it, err := f.reader.OpenVersion(schemaregistry.MovieWatchEvent, version)
	require.NoError(t, err)
	defer it.Close()
	var records []*serde.Record
	var versions []int
	for it.Next() {
		records = append(records, it.Record())
		versions = append(versions, it.WriterVersion())
	}
	return records, versions, it.Err()
}

type sourceItem struct {
	entry RawEntry
	err   error
}

type sliceSource struct {
	items []sourceItem
}

func (s *sliceSource) Next() (RawEntry, error) {
	if len(s.items) == 0 {
		return RawEntry{}, io.EOF
	}
	item := s.items[0]
	s.items = s.items[1:]
	return item.entry, item.err
}
