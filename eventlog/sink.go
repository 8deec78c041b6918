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
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/moviestream/eventlog/schemaregistry"
)

// Sink is the append-only byte stream of one event kind. Each Write call
// carries one complete framed blob.
type Sink interface {
	io.Writer
	Sync() error
	Close() error
}

// Sinks hands out the append sink and read streams of every kind
type Sinks interface {
	// Sink returns the append sink of kind, opening it on first use
	Sink(kind schemaregistry.Kind) (Sink, error)
	// Open returns a stream over everything appended to kind so far. A kind
	// that was never written reads as empty.
	Open(kind schemaregistry.Kind) (io.ReadCloser, error)
	// Close closes every sink handed out
	Close() error
}

// FileSinks stores each kind in <dir>/<kind>.avro
type FileSinks struct {
	dir   string
	mu    sync.Mutex
	files map[schemaregistry.Kind]*os.File
}

var _ Sinks = (*FileSinks)(nil)

// NewFileSinks returns file sinks rooted at dir, creating it if needed
func NewFileSinks(dir string) (*FileSinks, error) {
	if dir == "" {
		return nil, fmt.Errorf("sink dir required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FileSinks{
		dir:   dir,
		files: make(map[schemaregistry.Kind]*os.File),
	}, nil
}

// Path returns the file backing kind
func (s *FileSinks) Path(kind schemaregistry.Kind) string {
	return filepath.Join(s.dir, string(kind)+".avro")
}

// Sink implements Sinks
func (s *FileSinks) Sink(kind schemaregistry.Kind) (Sink, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f, ok := s.files[kind]; ok {
		return f, nil
	}
	f, err := os.OpenFile(s.Path(kind), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	s.files[kind] = f
	return f, nil
}

// Open implements Sinks
func (s *FileSinks) Open(kind schemaregistry.Kind) (io.ReadCloser, error) {
	f, err := os.Open(s.Path(kind))
	if errors.Is(err, fs.ErrNotExist) {
		return io.NopCloser(bytes.NewReader(nil)), nil
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}

// Close implements Sinks
func (s *FileSinks) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var errs []error
	for kind, f := range s.files {
		errs = append(errs, f.Close())
		delete(s.files, kind)
	}
	return errors.Join(errs...)
}

// MemorySinks keeps every kind in memory
type MemorySinks struct {
	mu   sync.Mutex
	data map[schemaregistry.Kind][]byte
}

var _ Sinks = (*MemorySinks)(nil)

// NewMemorySinks returns empty in-memory sinks
func NewMemorySinks() *MemorySinks {
	return &MemorySinks{data: make(map[schemaregistry.Kind][]byte)}
}

type memorySink struct {
	sinks *MemorySinks
	kind  schemaregistry.Kind
}

func (m *memorySink) Write(p []byte) (int, error) {
	m.sinks.mu.Lock()
	defer m.sinks.mu.Unlock()
	m.sinks.data[m.kind] = append(m.sinks.data[m.kind], p...)
	return len(p), nil
}

func (m *memorySink) Sync() error {
	return nil
}

func (m *memorySink) Close() error {
	return nil
}

// Sink implements Sinks
func (s *MemorySinks) Sink(kind schemaregistry.Kind) (Sink, error) {
	return &memorySink{sinks: s, kind: kind}, nil
}

// Open implements Sinks
func (s *MemorySinks) Open(kind schemaregistry.Kind) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(s.Bytes(kind))), nil
}

// Close implements Sinks
func (s *MemorySinks) Close() error {
	return nil
}

// Bytes returns a copy of the stream of kind
func (s *MemorySinks) Bytes(kind schemaregistry.Kind) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte{}, s.data[kind]...)
}

// Truncate cuts the stream of kind to n bytes
func (s *MemorySinks) Truncate(kind schemaregistry.Kind, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n < len(s.data[kind]) {
		s.data[kind] = s.data[kind][:n]
	}
}
