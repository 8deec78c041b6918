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

package serde

import (
	"errors"
	"fmt"

	"github.com/moviestream/eventlog/schemaregistry"
)

// ErrData is the category of every per-record data fault. A data error
// aborts one entry on write, and ends a read session unless it is a
// truncated final blob.
var ErrData = errors.New("data error")

// MalformedEntryError is returned when a raw entry cannot be shaped into a
// record of its kind's latest schema
type MalformedEntryError struct {
	Kind   schemaregistry.Kind
	Field  string
	Reason string
}

func (e *MalformedEntryError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("malformed %s entry: %s", e.Kind, e.Reason)
	}
	return fmt.Sprintf("malformed %s entry: field %q: %s", e.Kind, e.Field, e.Reason)
}

// Is implements errors.Is for the ErrData category
func (e *MalformedEntryError) Is(target error) bool {
	return target == ErrData
}

// EncodeError is returned when a record does not fit the writer schema
type EncodeError struct {
	Field  string
	Reason string
}

func (e *EncodeError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("encode: %s", e.Reason)
	}
	return fmt.Sprintf("encode: field %q: %s", e.Field, e.Reason)
}

// Is implements errors.Is for the ErrData category
func (e *EncodeError) Is(target error) bool {
	return target == ErrData
}

// DecodeError is returned for a format violation in an encoded payload.
// Offset is the byte position within the payload or stream.
type DecodeError struct {
	Field  string
	Offset int
	Reason string
}

func (e *DecodeError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("decode at offset %d: %s", e.Offset, e.Reason)
	}
	return fmt.Sprintf("decode field %q at offset %d: %s", e.Field, e.Offset, e.Reason)
}

// Is implements errors.Is for the ErrData category
func (e *DecodeError) Is(target error) bool {
	return target == ErrData
}

// TruncatedDataError is returned when input runs out mid-field or mid-blob.
// Need is the number of bytes the read required at Offset and Have the
// number that were left.
type TruncatedDataError struct {
	Field  string
	Offset int
	Need   int
	Have   int
}

func (e *TruncatedDataError) Error() string {
	what := "data"
	if e.Field != "" {
		what = fmt.Sprintf("field %q", e.Field)
	}
	return fmt.Sprintf("truncated %s at offset %d: need %d bytes, have %d", what, e.Offset, e.Need, e.Have)
}

// Is implements errors.Is for the ErrData category
func (e *TruncatedDataError) Is(target error) bool {
	return target == ErrData
}
