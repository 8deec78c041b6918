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
	"errors"
	"fmt"
	"io"
	"iter"

	log "github.com/sirupsen/logrus"

	"github.com/moviestream/eventlog/schemaregistry"
	"github.com/moviestream/eventlog/schemaregistry/cache"
	"github.com/moviestream/eventlog/schemaregistry/serde"
)

// Reader reads the sinks of every kind back into records
type Reader struct {
	client schemaregistry.Client
	codec  *serde.Codec
	sinks  Sinks
	logger *log.Logger
}

// NewReader returns a Reader over sinks
func NewReader(client schemaregistry.Client, sinks Sinks, opts ...Option) (*Reader, error) {
	if client == nil {
		return nil, fmt.Errorf("schema registry client missing")
	}
	if sinks == nil {
		return nil, fmt.Errorf("sinks missing")
	}
	o := newOptions(opts)
	codec, err := serde.NewCodec(client.Checker(), o.conf, o.dconf)
	if err != nil {
		return nil, err
	}
	return &Reader{
		client: client,
		codec:  codec,
		sinks:  sinks,
		logger: o.logger,
	}, nil
}

// Open starts a read of kind from the beginning of its sink, shaping every
// record by reader. Each call starts over; iterators are independent.
func (r *Reader) Open(kind schemaregistry.Kind, reader *schemaregistry.Schema) (*Iterator, error) {
	if reader == nil {
		return nil, fmt.Errorf("reader schema missing")
	}
	versions, err := r.client.GetAllVersions(kind)
	if err != nil {
		return nil, err
	}
	readerVersion := 0
	for _, v := range versions {
		meta, err := r.client.Get(kind, v)
		if err != nil {
			return nil, err
		}
		if meta.Schema.Equal(reader) {
			readerVersion = v
			break
		}
	}
	return r.open(kind, reader, readerVersion)
}

// OpenVersion is like Open with a registered version as reader schema
func (r *Reader) OpenVersion(kind schemaregistry.Kind, version int) (*Iterator, error) {
	meta, err := r.client.Get(kind, version)
	if err != nil {
		return nil, err
	}
	return r.open(kind, meta.Schema, version)
}

func (r *Reader) open(kind schemaregistry.Kind, reader *schemaregistry.Schema, readerVersion int) (*Iterator, error) {
	stream, err := r.sinks.Open(kind)
	if err != nil {
		return nil, err
	}
	return &Iterator{
		reader:        r,
		kind:          kind,
		schema:        reader,
		readerVersion: readerVersion,
		stream:        stream,
		blobs:         serde.NewBlobReader(stream, r.codec.DeserializerConfig()),
		writers:       cache.NewMapCache[int, *schemaregistry.Schema](),
	}, nil
}

// Iterator walks the records of one sink lazily.
//
//	it, err := reader.Open(kind, schema)
//	...
//	defer it.Close()
//	for it.Next() {
//		rec := it.Record()
//	}
//	if err := it.Err(); err != nil {
//		...
//	}
//
// A blob cut short at the end of the sink ends the iteration without an
// error. Any other failure stops it and is reported by Err.
type Iterator struct {
	reader        *Reader
	kind          schemaregistry.Kind
	schema        *schemaregistry.Schema
	readerVersion int
	stream        io.ReadCloser
	blobs         *serde.BlobReader
	writers       *cache.MapCache[int, *schemaregistry.Schema]
	record        *serde.Record
	writerVersion int
	err           error
	done          bool
}

// Next advances to the next record
func (it *Iterator) Next() bool {
	if it.done {
		return false
	}
	it.record, it.writerVersion = nil, 0
	offset := it.blobs.Offset()
	version, payload, err := it.blobs.Next()
	if err != nil {
		if !errors.Is(err, io.EOF) {
			it.fail(offset, err)
		}
		it.done = true
		return false
	}

	writer, err := it.writerSchema(version)
	if err != nil {
		it.fail(offset, err)
		it.done = true
		return false
	}
	record, err := it.reader.codec.Decode(payload, writer, it.schema)
	if err != nil {
		var incompatible *schemaregistry.IncompatibleSchemaError
		if errors.As(err, &incompatible) {
			incompatible.Kind = it.kind
			incompatible.WriterVersion = version
			incompatible.ReaderVersion = it.readerVersion
		}
		var truncated *serde.TruncatedDataError
		if errors.As(err, &truncated) && it.blobs.More() {
			// only the final blob may be torn
			err = &serde.DecodeError{Field: truncated.Field, Offset: truncated.Offset, Reason: "payload shorter than its fields"}
		}
		it.fail(offset, err)
		it.done = true
		return false
	}
	it.record, it.writerVersion = record, version
	return true
}

// writerSchema resolves a blob's writer version, once per iterator
func (it *Iterator) writerSchema(version int) (*schemaregistry.Schema, error) {
	if schema, ok := it.writers.Get(version); ok {
		return schema, nil
	}
	meta, err := it.reader.client.Get(it.kind, version)
	if err != nil {
		return nil, err
	}
	it.writers.Put(version, meta.Schema)
	return meta.Schema, nil
}

// fail records err unless it is a truncated final blob
func (it *Iterator) fail(offset int, err error) {
	var truncated *serde.TruncatedDataError
	if errors.As(err, &truncated) {
		it.reader.logger.WithFields(log.Fields{
			"kind":   it.kind,
			"offset": offset,
		}).WithError(err).Warn("ignoring truncated final blob")
		return
	}
	it.err = fmt.Errorf("%s blob at offset %d: %w", it.kind, offset, err)
}

// Record returns the current record
func (it *Iterator) Record() *serde.Record {
	return it.record
}

// WriterVersion returns the schema version the current record was written with
func (it *Iterator) WriterVersion() int {
	return it.writerVersion
}

// Err returns the error that stopped the iteration, if any
func (it *Iterator) Err() error {
	return it.err
}

// Close releases the sink stream
func (it *Iterator) Close() error {
	it.done = true
	it.reader.logger.WithFields(log.Fields{
		"kind":           it.kind,
		"writerVersions": it.writers.Len(),
	}).Debug("iterator closed")
	return it.stream.Close()
}

// Records returns the remaining records as a sequence for range loops. A
// terminal error is yielded last, with a nil record. The iterator is closed
// when the loop ends.
func (it *Iterator) Records() iter.Seq2[*serde.Record, error] {
	return func(yield func(*serde.Record, error) bool) {
		defer it.Close()
		for it.Next() {
			if !yield(it.Record(), nil) {
				return
			}
		}
		if err := it.Err(); err != nil {
			yield(nil, err)
		}
	}
}
