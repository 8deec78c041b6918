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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moviestream/eventlog/schemaregistry"
)

func TestFileSinks(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	sinks, err := NewFileSinks(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "MovieWatchEvent.avro"), sinks.Path(schemaregistry.MovieWatchEvent))

	sink, err := sinks.Sink(schemaregistry.MovieWatchEvent)
	require.NoError(t, err)
	again, err := sinks.Sink(schemaregistry.MovieWatchEvent)
	require.NoError(t, err)
	assert.Same(t, sink, again)

	_, err = sink.Write([]byte("first"))
	require.NoError(t, err)
	require.NoError(t, sink.Sync())
	require.NoError(t, sinks.Close())

	// reopening appends
	sinks, err = NewFileSinks(dir)
	require.NoError(t, err)
	sink, err = sinks.Sink(schemaregistry.MovieWatchEvent)
	require.NoError(t, err)
	_, err = sink.Write([]byte("second"))
	require.NoError(t, err)

	stream, err := sinks.Open(schemaregistry.MovieWatchEvent)
	require.NoError(t, err)
	data, err := io.ReadAll(stream)
	require.NoError(t, err)
	require.NoError(t, stream.Close())
	assert.Equal(t, "firstsecond", string(data))

	stream, err = sinks.Open(schemaregistry.MovieRatingEvent)
	require.NoError(t, err)
	data, err = io.ReadAll(stream)
	require.NoError(t, err)
	assert.Empty(t, data)
	require.NoError(t, sinks.Close())

	_, err = os.Stat(sinks.Path(schemaregistry.MovieRatingEvent))
	assert.True(t, os.IsNotExist(err), "reading must not create a sink")
}

func TestFileSinksEndToEnd(t *testing.T) {
	f := newFixture(t)
	sinks, err := NewFileSinks(t.TempDir())
	require.NoError(t, err)
	writer, err := NewWriter(f.client, sinks, WithSync(true))
	require.NoError(t, err)
	reader, err := NewReader(f.client, sinks)
	require.NoError(t, err)

	for i := int32(0); i < 5; i++ {
		require.NoError(t, writer.Write(schemaregistry.MovieWatchEvent, watch("u1", i)))
	}
	require.NoError(t, writer.Close())

	it, err := reader.OpenVersion(schemaregistry.MovieWatchEvent, 1)
	require.NoError(t, err)
	n := int32(0)
	for rec, err := range it.Records() {
		require.NoError(t, err)
		minute, _ := rec.Get("minute")
		assert.Equal(t, n, minute)
		n++
	}
	assert.Equal(t, int32(5), n)
}

func TestNewFileSinksRequiresDir(t *testing.T) {
	_, err := NewFileSinks("")
	assert.Error(t, err)
}
