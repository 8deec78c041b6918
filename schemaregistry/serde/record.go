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
	"fmt"
	"math"
	"strings"

	"github.com/moviestream/eventlog/schemaregistry"
)

// Record is an immutable tuple of values, one per field of its schema, in
// schema field order. Null is represented by nil.
type Record struct {
	schema *schemaregistry.Schema
	values []interface{}
}

// NewRecord shapes values into a record of schema. Every non-nullable
// field must be present; absent nullable fields are null. Keys unknown to
// the schema and values of the wrong Go type are rejected with an
// *EncodeError. Go ints are accepted for int and long fields when they
// fit; strings are never converted.
func NewRecord(schema *schemaregistry.Schema, values map[string]interface{}) (*Record, error) {
	if schema == nil {
		return nil, fmt.Errorf("schema missing")
	}
	for name := range values {
		if schema.Index(name) < 0 {
			return nil, &EncodeError{Field: name, Reason: "not a field of " + schema.Name()}
		}
	}
	r := &Record{
		schema: schema,
		values: make([]interface{}, schema.Len()),
	}
	for i := 0; i < schema.Len(); i++ {
		f := schema.FieldAt(i)
		v, err := normalize(f, values[f.Name])
		if err != nil {
			return nil, err
		}
		r.values[i] = v
	}
	return r, nil
}

// MustNewRecord is like NewRecord but panics on error
func MustNewRecord(schema *schemaregistry.Schema, values map[string]interface{}) *Record {
	r, err := NewRecord(schema, values)
	if err != nil {
		panic(err)
	}
	return r
}

// Schema returns the schema the record is shaped by
func (r *Record) Schema() *schemaregistry.Schema {
	return r.schema
}

// Get returns the value of the named field. ok is false when the field is
// not part of the record's schema.
func (r *Record) Get(name string) (value interface{}, ok bool) {
	i := r.schema.Index(name)
	if i < 0 {
		return nil, false
	}
	return copyValue(r.values[i]), true
}

// Len returns the number of fields
func (r *Record) Len() int {
	return len(r.values)
}

// Map returns a copy of the record as a field name to value map
func (r *Record) Map() map[string]interface{} {
	m := make(map[string]interface{}, len(r.values))
	for i, v := range r.values {
		m[r.schema.FieldAt(i).Name] = copyValue(v)
	}
	return m
}

func (r *Record) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, v := range r.values {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(r.schema.FieldAt(i).Name)
		b.WriteByte(':')
		if v == nil {
			b.WriteString("null")
		} else {
			fmt.Fprintf(&b, "%v", v)
		}
	}
	b.WriteByte('}')
	return b.String()
}

// normalize checks v against the field type and returns the stored form
func normalize(f schemaregistry.Field, v interface{}) (interface{}, error) {
	if v == nil {
		if f.Type.Nullable {
			return nil, nil
		}
		return nil, &EncodeError{Field: f.Name, Reason: "required field is missing"}
	}
	if f.Type.Type == schemaregistry.ArrayType {
		return normalizeArray(f, v)
	}
	p, err := normalizePrimitive(f.Type.Type, v)
	if err != nil {
		return nil, &EncodeError{Field: f.Name, Reason: err.Error()}
	}
	return p, nil
}

func normalizePrimitive(t schemaregistry.Type, v interface{}) (interface{}, error) {
	switch t {
	case schemaregistry.StringType:
		if s, ok := v.(string); ok {
			return s, nil
		}
	case schemaregistry.IntType:
		switch n := v.(type) {
		case int32:
			return n, nil
		case int:
			if n < math.MinInt32 || n > math.MaxInt32 {
				return nil, fmt.Errorf("value %d overflows int", n)
			}
			return int32(n), nil
		}
	case schemaregistry.LongType:
		switch n := v.(type) {
		case int64:
			return n, nil
		case int32:
			return int64(n), nil
		case int:
			return int64(n), nil
		}
	case schemaregistry.BooleanType:
		if b, ok := v.(bool); ok {
			return b, nil
		}
	}
	return nil, fmt.Errorf("expected %s, got %T", t, v)
}

func normalizeArray(f schemaregistry.Field, v interface{}) (interface{}, error) {
	fail := func(err error) (interface{}, error) {
		return nil, &EncodeError{Field: f.Name, Reason: err.Error()}
	}
	switch items := v.(type) {
	case []string:
		if f.Type.Items == schemaregistry.StringType {
			return append([]string{}, items...), nil
		}
	case []int32:
		if f.Type.Items == schemaregistry.IntType {
			return append([]int32{}, items...), nil
		}
	case []int64:
		if f.Type.Items == schemaregistry.LongType {
			return append([]int64{}, items...), nil
		}
	case []bool:
		if f.Type.Items == schemaregistry.BooleanType {
			return append([]bool{}, items...), nil
		}
	case []interface{}:
		out := newArray(f.Type.Items, len(items))
		for i, item := range items {
			p, err := normalizePrimitive(f.Type.Items, item)
			if err != nil {
				return fail(fmt.Errorf("item %d: %w", i, err))
			}
			out = appendItem(out, p)
		}
		return out, nil
	}
	return fail(fmt.Errorf("expected %s, got %T", f.Type, v))
}

// newArray returns an empty typed slice for the item type
func newArray(items schemaregistry.Type, capacity int) interface{} {
	switch items {
	case schemaregistry.StringType:
		return make([]string, 0, capacity)
	case schemaregistry.IntType:
		return make([]int32, 0, capacity)
	case schemaregistry.LongType:
		return make([]int64, 0, capacity)
	default:
		return make([]bool, 0, capacity)
	}
}

func appendItem(array interface{}, item interface{}) interface{} {
	switch a := array.(type) {
	case []string:
		return append(a, item.(string))
	case []int32:
		return append(a, item.(int32))
	case []int64:
		return append(a, item.(int64))
	case []bool:
		return append(a, item.(bool))
	}
	return array
}

func copyValue(v interface{}) interface{} {
	switch a := v.(type) {
	case []string:
		return append([]string{}, a...)
	case []int32:
		return append([]int32{}, a...)
	case []int64:
		return append([]int64{}, a...)
	case []bool:
		return append([]bool{}, a...)
	}
	return v
}
