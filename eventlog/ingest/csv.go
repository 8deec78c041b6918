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

// Package ingest turns the raw master log into entries for the event log
// writer.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/moviestream/eventlog/eventlog"
	"github.com/moviestream/eventlog/schemaregistry"
	"github.com/moviestream/eventlog/schemaregistry/serde"
)

const (
	typeColumn  = "Type"
	entryColumn = "Log Entry"
)

// CSVSource reads the master log, a CSV file with a Type and a Log Entry
// column, and yields one raw entry per row. Rows of an unknown type are
// logged and skipped.
type CSVSource struct {
	r       *csv.Reader
	logger  *log.Logger
	typeIdx int
	logIdx  int
	skipped int
}

var _ eventlog.EntrySource = (*CSVSource)(nil)

// NewCSVSource reads the header row of r and returns a source over the
// remaining rows. A nil logger selects the standard logger.
func NewCSVSource(r io.Reader, logger *log.Logger) (*CSVSource, error) {
	if logger == nil {
		logger = log.StandardLogger()
	}
	cr := csv.NewReader(r)
	cr.ReuseRecord = true
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("master log header: %w", err)
	}
	s := &CSVSource{
		r:       cr,
		logger:  logger,
		typeIdx: -1,
		logIdx:  -1,
	}
	for i, col := range header {
		switch strings.TrimSpace(col) {
		case typeColumn:
			s.typeIdx = i
		case entryColumn:
			s.logIdx = i
		}
	}
	if s.typeIdx < 0 || s.logIdx < 0 {
		return nil, fmt.Errorf("master log header must name %q and %q columns, got %q",
			typeColumn, entryColumn, header)
	}
	cr.FieldsPerRecord = len(header)
	return s, nil
}

// Next implements eventlog.EntrySource. A row that cannot be parsed yields
// a *serde.MalformedEntryError and the source stays usable. io.EOF marks
// the end of the log.
func (s *CSVSource) Next() (eventlog.RawEntry, error) {
	for {
		row, err := s.r.Read()
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			return eventlog.RawEntry{}, &serde.MalformedEntryError{
				Reason: fmt.Sprintf("line %d: %v", parseErr.Line, parseErr.Err),
			}
		}
		if err != nil {
			return eventlog.RawEntry{}, err
		}
		line, _ := s.r.FieldPos(s.logIdx)

		kind, err := schemaregistry.ParseKind(strings.TrimSpace(row[s.typeIdx]))
		if err != nil {
			s.skipped++
			s.logger.WithFields(log.Fields{
				"line": line,
				"type": row[s.typeIdx],
			}).Debug("skipping row of unknown type")
			continue
		}
		fields, err := ParseEntry(kind, row[s.logIdx])
		if err != nil {
			var malformed *serde.MalformedEntryError
			if errors.As(err, &malformed) {
				malformed.Reason = fmt.Sprintf("line %d: %s", line, malformed.Reason)
			}
			return eventlog.RawEntry{Kind: kind}, err
		}
		return eventlog.RawEntry{Kind: kind, Fields: fields}, nil
	}
}

// Skipped returns the number of rows skipped for an unknown type
func (s *CSVSource) Skipped() int {
	return s.skipped
}
