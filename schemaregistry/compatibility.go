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
	"encoding/json"
	"fmt"

	"github.com/moviestream/eventlog/schemaregistry/cache"
)

// Compatibility options
type Compatibility int

const (
	_ Compatibility = iota
	// None is no compatibility
	None
	// Backward compatibility: a newer reader can read older data
	Backward
	// Forward compatibility: an older reader can read newer data
	Forward
	// Full compatibility: both Backward and Forward
	Full
)

var compatibilityEnum = []string{
	"",
	"NONE",
	"BACKWARD",
	"FORWARD",
	"FULL",
}

// MarshalJSON implements json.Marshaler
func (c *Compatibility) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// UnmarshalJSON implements json.Unmarshaler
func (c *Compatibility) UnmarshalJSON(b []byte) error {
	var val string
	if err := json.Unmarshal(b, &val); err != nil {
		return err
	}
	return c.ParseString(val)
}

func (c *Compatibility) String() string {
	if *c < 0 || int(*c) >= len(compatibilityEnum) {
		return fmt.Sprintf("Compatibility(%d)", int(*c))
	}
	return compatibilityEnum[*c]
}

// ParseString returns a Compatibility for the given string
func (c *Compatibility) ParseString(val string) error {
	for idx, elm := range compatibilityEnum {
		if idx > 0 && elm == val {
			*c = Compatibility(idx)
			return nil
		}
	}

	return fmt.Errorf("failed to unmarshal Compatibility %q", val)
}

func (c Compatibility) valid() bool {
	return c >= None && c <= Full
}

// Satisfied reports whether the classification r meets this level
func (c Compatibility) Satisfied(r Result) bool {
	switch c {
	case Backward:
		return r.Backward
	case Forward:
		return r.Forward
	case Full:
		return r.Backward && r.Forward
	default:
		return true
	}
}

// Violation names a field that prevents resolution and why
type Violation struct {
	Field  string
	Reason string
}

func (v Violation) String() string {
	return fmt.Sprintf("field %q: %s", v.Field, v.Reason)
}

// Result classifies a (writer, reader) schema pair.
//
// Backward is true when the reader can decode data produced with the writer.
// Forward is true when the pair differs only by fields the reader drops: no
// field is added by the reader and no shared field changes type.
type Result struct {
	Backward           bool
	Forward            bool
	BackwardViolations []Violation
	ForwardViolations  []Violation
}

// Level returns the strongest compatibility level the pair satisfies
func (r Result) Level() Compatibility {
	switch {
	case r.Backward && r.Forward:
		return Full
	case r.Backward:
		return Backward
	case r.Forward:
		return Forward
	default:
		return None
	}
}

// Violations returns every distinct violation found in either direction
func (r Result) Violations() []Violation {
	v := make([]Violation, 0, len(r.BackwardViolations)+len(r.ForwardViolations))
	v = append(v, r.BackwardViolations...)
	for _, fv := range r.ForwardViolations {
		if !containsViolation(v, fv) {
			v = append(v, fv)
		}
	}
	return v
}

func containsViolation(vs []Violation, v Violation) bool {
	for _, e := range vs {
		if e == v {
			return true
		}
	}
	return false
}

type pairKey struct {
	writer     string
	reader     string
	transition bool
}

// Checker classifies writer/reader schema pairs. Results are deterministic
// and cached by the canonical forms of both schemas. A Checker is safe for
// concurrent use.
type Checker struct {
	results cache.Cache[pairKey, Result]
}

// NewChecker returns a Checker that caches up to capacity results
func NewChecker(capacity int) (*Checker, error) {
	results, err := cache.NewLRUCache[pairKey, Result](capacity)
	if err != nil {
		return nil, err
	}
	return &Checker{results: results}, nil
}

// Check classifies the pair (writer, reader). A field only the reader has
// rules out Forward even when it is nullable with a default.
func (c *Checker) Check(writer, reader *Schema) Result {
	key := pairKey{writer: writer.Canonical(), reader: reader.Canonical()}
	if r, ok := c.results.Get(key); ok {
		return r
	}
	backward := resolve(writer, reader)
	forward := differences(writer, reader)
	r := Result{
		Backward:           len(backward) == 0,
		Forward:            len(forward) == 0,
		BackwardViolations: backward,
		ForwardViolations:  forward,
	}
	c.results.Put(key, r)
	return r
}

// Transition classifies moving a lineage from prev to next. Backward holds
// when next reads prev data and Forward when prev reads next data, so adding
// or removing a nullable field with a default is Full.
func (c *Checker) Transition(prev, next *Schema) Result {
	key := pairKey{writer: prev.Canonical(), reader: next.Canonical(), transition: true}
	if r, ok := c.results.Get(key); ok {
		return r
	}
	backward := resolve(prev, next)
	forward := resolve(next, prev)
	r := Result{
		Backward:           len(backward) == 0,
		Forward:            len(forward) == 0,
		BackwardViolations: backward,
		ForwardViolations:  forward,
	}
	c.results.Put(key, r)
	return r
}

// CanRead reports whether reader can decode data written with writer,
// returning the violations that prevent it
func (c *Checker) CanRead(writer, reader *Schema) (bool, []Violation) {
	r := c.Check(writer, reader)
	return r.Backward, r.BackwardViolations
}

// resolve lists why data written with w cannot be decoded with r. Fields
// only w knows are dropped on decode and never violate.
func resolve(w, r *Schema) []Violation {
	var violations []Violation
	for _, rf := range r.fields {
		wf, ok := w.Field(rf.Name)
		if !ok {
			if !rf.Optional() {
				violations = append(violations, Violation{
					Field:  rf.Name,
					Reason: fmt.Sprintf("missing from writer schema and reader type %s has no default", rf.Type),
				})
			}
			continue
		}
		if wf.Type != rf.Type {
			violations = append(violations, Violation{
				Field:  rf.Name,
				Reason: fmt.Sprintf("type mismatch: writer %s, reader %s", wf.Type, rf.Type),
			})
		}
	}
	return violations
}

// differences lists what keeps the pair from differing only by dropped
// writer fields: fields the reader adds and shared fields whose type changed
func differences(w, r *Schema) []Violation {
	var violations []Violation
	for _, rf := range r.fields {
		wf, ok := w.Field(rf.Name)
		if !ok {
			violations = append(violations, Violation{
				Field:  rf.Name,
				Reason: "added by the reader schema",
			})
			continue
		}
		if wf.Type != rf.Type {
			violations = append(violations, Violation{
				Field:  rf.Name,
				Reason: fmt.Sprintf("type mismatch: writer %s, reader %s", wf.Type, rf.Type),
			})
		}
	}
	return violations
}

// Resolvable reports whether reader can decode data written with writer
func (c *Checker) Resolvable(writer, reader *Schema) bool {
	return c.Check(writer, reader).Backward
}
