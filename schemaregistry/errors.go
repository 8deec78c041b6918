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
	"errors"
	"fmt"
	"strings"
)

// ErrSchema is the category of every configuration-time schema fault.
// Use errors.Is(err, ErrSchema) to branch on the category and errors.As
// to get at the typed details.
var ErrSchema = errors.New("schema error")

// UnknownKindError is returned when a kind was never registered
type UnknownKindError struct {
	Kind Kind
}

func (e *UnknownKindError) Error() string {
	return fmt.Sprintf("unknown event kind %q", string(e.Kind))
}

// Is implements errors.Is for the ErrSchema category
func (e *UnknownKindError) Is(target error) bool {
	return target == ErrSchema
}

// UnknownVersionError is returned when a version id is absent for a kind
type UnknownVersionError struct {
	Kind    Kind
	Version int
}

func (e *UnknownVersionError) Error() string {
	return fmt.Sprintf("unknown version %d for kind %s", e.Version, e.Kind)
}

// Is implements errors.Is for the ErrSchema category
func (e *UnknownVersionError) Is(target error) bool {
	return target == ErrSchema
}

// VersionConflictError is returned when a structurally different schema is
// registered under an existing version id.
type VersionConflictError struct {
	Kind    Kind
	Version int
}

func (e *VersionConflictError) Error() string {
	return fmt.Sprintf("version conflict for kind %s: version %d already holds a different schema", e.Kind, e.Version)
}

// Is implements errors.Is for the ErrSchema category
func (e *VersionConflictError) Is(target error) bool {
	return target == ErrSchema
}

// IncompatibleSchemaError is returned when a reader schema cannot resolve
// data written with a writer schema, or when a registration would break the
// kind's compatibility level. Versions are zero when the schemas involved
// are not registered.
type IncompatibleSchemaError struct {
	Kind          Kind
	WriterVersion int
	ReaderVersion int
	Level         Compatibility
	Violations    []Violation
}

func (e *IncompatibleSchemaError) Error() string {
	var b strings.Builder
	b.WriteString("incompatible schemas")
	if e.Kind != "" {
		fmt.Fprintf(&b, " for kind %s", e.Kind)
	}
	if e.WriterVersion > 0 || e.ReaderVersion > 0 {
		fmt.Fprintf(&b, " (writer version %d, reader version %d)", e.WriterVersion, e.ReaderVersion)
	}
	if e.Level != 0 {
		fmt.Fprintf(&b, " under %s", e.Level.String())
	}
	for i, v := range e.Violations {
		if i == 0 {
			b.WriteString(": ")
		} else {
			b.WriteString("; ")
		}
		b.WriteString(v.String())
	}
	return b.String()
}

// Is implements errors.Is for the ErrSchema category
func (e *IncompatibleSchemaError) Is(target error) bool {
	return target == ErrSchema
}

// ParseError is returned when a schema document cannot be parsed
type ParseError struct {
	Source string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("invalid schema: %s", e.Err)
	}
	return fmt.Sprintf("invalid schema %s: %s", e.Source, e.Err)
}

// Unwrap returns the underlying parse failure
func (e *ParseError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is for the ErrSchema category
func (e *ParseError) Is(target error) bool {
	return target == ErrSchema
}
