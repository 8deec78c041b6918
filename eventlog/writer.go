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
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/google/cel-go/cel"
	log "github.com/sirupsen/logrus"

	"github.com/moviestream/eventlog/schemaregistry"
	"github.com/moviestream/eventlog/schemaregistry/serde"
)

// ErrFiltered is returned by Write when a filter rejects the entry
var ErrFiltered = errors.New("entry filtered out")

// ErrWriterFailed is returned by Write after an append or sync failed.
// The failed append may have left part of a blob in the sink.
var ErrWriterFailed = errors.New("writer failed")

// RawEntry is one log entry before it is shaped by a schema
type RawEntry struct {
	Kind   schemaregistry.Kind
	Fields map[string]interface{}
}

// EntrySource yields raw entries. Next returns io.EOF after the last
// entry. A data error (see serde.ErrData) rejects one entry only and the
// source may be read further.
type EntrySource interface {
	Next() (RawEntry, error)
}

// KindStats counts the outcome of the entries of one kind
type KindStats struct {
	Written  int
	Filtered int
	Failed   int
}

// Stats counts the outcome of a batch per kind
type Stats map[schemaregistry.Kind]*KindStats

func (s Stats) kind(kind schemaregistry.Kind) *KindStats {
	ks, ok := s[kind]
	if !ok {
		ks = &KindStats{}
		s[kind] = ks
	}
	return ks
}

// Total sums the counts of every kind
func (s Stats) Total() KindStats {
	var total KindStats
	for _, ks := range s {
		total.Written += ks.Written
		total.Filtered += ks.Filtered
		total.Failed += ks.Failed
	}
	return total
}

// Kinds returns the kinds with counts, sorted
func (s Stats) Kinds() []schemaregistry.Kind {
	kinds := make([]schemaregistry.Kind, 0, len(s))
	for k := range s {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// Writer routes raw entries to the sink of their kind, encoded with the
// latest registered schema of that kind. A Writer must not be used from
// more than one goroutine at a time. Once a sink fails the Writer stops
// appending, leaving the partial blob as the torn tail of that sink.
type Writer struct {
	client   schemaregistry.Client
	codec    *serde.Codec
	sinks    Sinks
	logger   *log.Logger
	sync     bool
	executor *filterExecutor
	filters  map[schemaregistry.Kind]cel.Program
	buf      []byte
	failed   error
}

// NewWriter returns a Writer appending to sinks. Filters are compiled here,
// so an invalid expression fails construction.
func NewWriter(client schemaregistry.Client, sinks Sinks, opts ...Option) (*Writer, error) {
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
	w := &Writer{
		client:  client,
		codec:   codec,
		sinks:   sinks,
		logger:  o.logger,
		sync:    o.sync,
		filters: make(map[schemaregistry.Kind]cel.Program, len(o.filters)),
	}
	if len(o.filters) > 0 {
		if w.executor, err = newFilterExecutor(); err != nil {
			return nil, err
		}
		for kind, expr := range o.filters {
			program, err := w.executor.program(expr)
			if err != nil {
				return nil, fmt.Errorf("filter for %s: %w", kind, err)
			}
			w.filters[kind] = program
		}
	}
	return w, nil
}

// Write encodes fields with the latest schema of kind and appends the
// framed blob to the kind's sink in a single write.
//
// Errors matching schemaregistry.ErrSchema mean the registry cannot serve
// the kind. Data errors reject this entry only: *serde.MalformedEntryError when
// fields do not fit the schema, *serde.EncodeError when encoding fails.
// ErrFiltered is returned when a filter rejects the entry. Sink errors are
// wrapped with ErrWriterFailed, by this and every later call.
func (w *Writer) Write(kind schemaregistry.Kind, fields map[string]interface{}) error {
	if w.failed != nil {
		return w.failed
	}
	meta, err := w.client.Latest(kind)
	if err != nil {
		return err
	}
	if program, ok := w.filters[kind]; ok {
		keep, err := w.executor.match(program, kind, fields)
		if err != nil {
			return &serde.MalformedEntryError{Kind: kind, Reason: "filter: " + err.Error()}
		}
		if !keep {
			return ErrFiltered
		}
	}
	rec, err := serde.NewRecord(meta.Schema, fields)
	if err != nil {
		var encodeErr *serde.EncodeError
		if errors.As(err, &encodeErr) {
			return &serde.MalformedEntryError{Kind: kind, Field: encodeErr.Field, Reason: encodeErr.Reason}
		}
		return err
	}
	payload, err := w.codec.Encode(rec, meta.Schema)
	if err != nil {
		return err
	}
	if w.buf, err = serde.AppendBlob(w.buf[:0], meta.Version, payload); err != nil {
		return err
	}

	sink, err := w.sinks.Sink(kind)
	if err != nil {
		return err
	}
	if _, err = sink.Write(w.buf); err != nil {
		w.failed = fmt.Errorf("%w: append to %s sink: %w", ErrWriterFailed, kind, err)
		return w.failed
	}
	if w.sync {
		if err = sink.Sync(); err != nil {
			w.failed = fmt.Errorf("%w: sync %s sink: %w", ErrWriterFailed, kind, err)
			return w.failed
		}
	}
	w.logger.WithFields(log.Fields{
		"kind":    kind,
		"version": meta.Version,
		"bytes":   len(w.buf),
	}).Trace("entry written")
	return nil
}

// WriteEntry writes a raw entry to the sink of its kind
func (w *Writer) WriteEntry(e RawEntry) error {
	return w.Write(e.Kind, e.Fields)
}

// WriteAll drains source. Entries rejected with a data error are logged,
// counted as failed and skipped. A schema or I/O error halts the batch and
// is returned with the counts so far. ctx is checked between entries.
func (w *Writer) WriteAll(ctx context.Context, source EntrySource) (Stats, error) {
	stats := Stats{}
	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		e, err := source.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err == nil {
			err = w.WriteEntry(e)
		}
		switch {
		case err == nil:
			stats.kind(e.Kind).Written++
		case errors.Is(err, ErrFiltered):
			stats.kind(e.Kind).Filtered++
		case errors.Is(err, serde.ErrData):
			kind := e.Kind
			var malformed *serde.MalformedEntryError
			if errors.As(err, &malformed) && malformed.Kind != "" {
				kind = malformed.Kind
			}
			stats.kind(kind).Failed++
			w.logger.WithFields(log.Fields{
				"kind": kind,
			}).WithError(err).Warn("skipping entry")
		default:
			return stats, err
		}
	}

	for _, kind := range stats.Kinds() {
		ks := stats[kind]
		w.logger.WithFields(log.Fields{
			"kind":     kind,
			"written":  ks.Written,
			"filtered": ks.Filtered,
			"failed":   ks.Failed,
		}).Info("batch written")
	}
	return stats, nil
}

// Close closes the sinks
func (w *Writer) Close() error {
	return w.sinks.Close()
}
