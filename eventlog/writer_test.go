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
	"context"
	"encoding/binary"
	"errors"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moviestream/eventlog/schemaregistry"
	"github.com/moviestream/eventlog/schemaregistry/serde"
)

func TestWriteFraming(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.writer.Write(schemaregistry.MovieWatchEvent, watch("u1", 37)))
	data := f.sinks.Bytes(schemaregistry.MovieWatchEvent)
	require.Greater(t, len(data), serde.HeaderSize)
	assert.Equal(t, uint32(1), binary.BigEndian.Uint32(data[0:4]))
	assert.Equal(t, uint32(len(data)-serde.HeaderSize), binary.BigEndian.Uint32(data[4:8]))

	require.NoError(t, f.writer.Write(schemaregistry.MovieWatchEvent, watch("u2", 38)))
	grown := f.sinks.Bytes(schemaregistry.MovieWatchEvent)
	assert.Equal(t, data, grown[:len(data)], "earlier blobs are never rewritten")
	assert.Empty(t, f.sinks.Bytes(schemaregistry.MovieRatingEvent))
}

func TestWriteMalformed(t *testing.T) {
	f := newFixture(t)

	missing := watch("u1", 1)
	delete(missing, "movieId")
	numeric := watch("u1", 1)
	numeric["minute"] = "37"

	for name, fields := range map[string]map[string]interface{}{
		"missing field":  missing,
		"numeric string": numeric,
	} {
		t.Run(name, func(t *testing.T) {
			err := f.writer.Write(schemaregistry.MovieWatchEvent, fields)
			var malformed *serde.MalformedEntryError
			require.True(t, errors.As(err, &malformed), "expected MalformedEntryError, got %v", err)
			assert.Equal(t, schemaregistry.MovieWatchEvent, malformed.Kind)
			assert.ErrorIs(t, err, serde.ErrData)
		})
	}
	assert.Empty(t, f.sinks.Bytes(schemaregistry.MovieWatchEvent))
}

func TestWriteUnknownKind(t *testing.T) {
	f := newFixture(t)

	err := f.writer.Write(schemaregistry.MovieRatingEvent, map[string]interface{}{})
	var unknown *schemaregistry.UnknownKindError
	require.True(t, errors.As(err, &unknown))
	assert.ErrorIs(t, err, schemaregistry.ErrSchema)
}

func TestWriteFilter(t *testing.T) {
	f := newFixture(t, WithFilter(schemaregistry.MovieWatchEvent, `entry.minute >= 10 && kind == "MovieWatchEvent"`))

	require.NoError(t, f.writer.Write(schemaregistry.MovieWatchEvent, watch("u1", 12)))
	err := f.writer.Write(schemaregistry.MovieWatchEvent, watch("u1", 3))
	assert.ErrorIs(t, err, ErrFiltered)

	// a filter on a field the entry lacks is a data error
	err = f.writer.Write(schemaregistry.MovieWatchEvent, map[string]interface{}{"userId": "u1"})
	assert.ErrorIs(t, err, serde.ErrData)

	records, _, err := f.readAll(t, 1)
	require.NoError(t, err)
	require.Len(t, records, 1)
	minute, _ := records[0].Get("minute")
	assert.Equal(t, int32(12), minute)
}

func TestWriteFilterInvalid(t *testing.T) {
	client, err := schemaregistry.NewClient(nil)
	require.NoError(t, err)

	for _, expr := range []string{`entry.minute >`, `"minute"`, `unknown == 1`} {
		_, err = NewWriter(client, NewMemorySinks(), WithFilter(schemaregistry.MovieWatchEvent, expr))
		assert.Error(t, err, expr)
	}
}

func TestWriteAll(t *testing.T) {
	f := newFixture(t, WithFilter(schemaregistry.MovieWatchEvent, `entry.userId != "bot"`))

	missing := watch("u3", 5)
	delete(missing, "time")
	source := &sliceSource{items: []sourceItem{
		{entry: RawEntry{Kind: schemaregistry.MovieWatchEvent, Fields: watch("u1", 1)}},
		{err: &serde.MalformedEntryError{Kind: schemaregistry.MovieRatingEvent, Reason: "unparseable line"}},
		{entry: RawEntry{Kind: schemaregistry.MovieWatchEvent, Fields: missing}},
		{entry: RawEntry{Kind: schemaregistry.MovieWatchEvent, Fields: watch("bot", 2)}},
		{entry: RawEntry{Kind: schemaregistry.MovieWatchEvent, Fields: watch("u2", 3)}},
	}}

	stats, err := f.writer.WriteAll(context.Background(), source)
	require.NoError(t, err)
	assert.Equal(t, KindStats{Written: 2, Filtered: 1, Failed: 1}, *stats[schemaregistry.MovieWatchEvent])
	assert.Equal(t, KindStats{Failed: 1}, *stats[schemaregistry.MovieRatingEvent])
	assert.Equal(t, KindStats{Written: 2, Filtered: 1, Failed: 2}, stats.Total())

	warnings := 0
	for _, e := range f.hook.AllEntries() {
		if e.Level == log.WarnLevel {
			warnings++
		}
	}
	assert.Equal(t, 2, warnings)

	records, _, err := f.readAll(t, 1)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestWriteAllHaltsOnSchemaError(t *testing.T) {
	f := newFixture(t)

	source := &sliceSource{items: []sourceItem{
		{entry: RawEntry{Kind: schemaregistry.MovieWatchEvent, Fields: watch("u1", 1)}},
		{entry: RawEntry{Kind: schemaregistry.RecommendationRequest, Fields: map[string]interface{}{}}},
		{entry: RawEntry{Kind: schemaregistry.MovieWatchEvent, Fields: watch("u2", 2)}},
	}}
	stats, err := f.writer.WriteAll(context.Background(), source)
	assert.ErrorIs(t, err, schemaregistry.ErrSchema)
	assert.Equal(t, 1, stats.Total().Written)
	assert.Len(t, source.items, 1, "the batch stops at the schema error")
}

func TestWriteAllCanceled(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	source := &sliceSource{items: []sourceItem{
		{entry: RawEntry{Kind: schemaregistry.MovieWatchEvent, Fields: watch("u1", 1)}},
	}}
	_, err := f.writer.WriteAll(ctx, source)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, f.sinks.Bytes(schemaregistry.MovieWatchEvent))
}

// tornSinks cuts the next append short once armed
type tornSinks struct {
	*MemorySinks
	armed bool
}

type tornSink struct {
	Sink
	sinks *tornSinks
}

func (s *tornSinks) Sink(kind schemaregistry.Kind) (Sink, error) {
	sink, err := s.MemorySinks.Sink(kind)
	if err != nil {
		return nil, err
	}
	return &tornSink{Sink: sink, sinks: s}, nil
}

func (s *tornSink) Write(p []byte) (int, error) {
	if !s.sinks.armed {
		return s.Sink.Write(p)
	}
	n, _ := s.Sink.Write(p[:len(p)/2])
	return n, errors.New("device full")
}

func TestWriteAfterSinkFailure(t *testing.T) {
	f := newFixture(t)
	sinks := &tornSinks{MemorySinks: f.sinks}
	logger, _ := test.NewNullLogger()
	writer, err := NewWriter(f.client, sinks, WithLogger(logger))
	require.NoError(t, err)

	require.NoError(t, writer.Write(schemaregistry.MovieWatchEvent, watch("u1", 1)))
	sinks.armed = true
	err = writer.Write(schemaregistry.MovieWatchEvent, watch("u2", 2))
	assert.ErrorIs(t, err, ErrWriterFailed)
	assert.Contains(t, err.Error(), "device full")
	torn := len(f.sinks.Bytes(schemaregistry.MovieWatchEvent))

	// nothing lands behind the partial blob
	sinks.armed = false
	err = writer.Write(schemaregistry.MovieWatchEvent, watch("u3", 3))
	assert.ErrorIs(t, err, ErrWriterFailed)
	_, err = writer.WriteAll(context.Background(), &sliceSource{items: []sourceItem{
		{entry: RawEntry{Kind: schemaregistry.MovieWatchEvent, Fields: watch("u4", 4)}},
	}})
	assert.ErrorIs(t, err, ErrWriterFailed)
	assert.Len(t, f.sinks.Bytes(schemaregistry.MovieWatchEvent), torn)

	// the partial blob reads back as a torn tail
	records, versions, err := f.readAll(t, 1)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, versions)
	require.Len(t, records, 1)
	user, _ := records[0].Get("userId")
	assert.Equal(t, "u1", user)
}
