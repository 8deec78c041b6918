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
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hamba/avro/v2"
	heetch "github.com/heetch/avro"
)

// Kind identifies an event kind. Each kind owns one schema lineage and one
// output sink.
type Kind string

const (
	// RecommendationRequest is logged when a user asks for recommendations
	RecommendationRequest Kind = "RecommendationRequest"
	// MovieWatchEvent is logged for every streamed minute of a movie
	MovieWatchEvent Kind = "MovieWatchEvent"
	// MovieRatingEvent is logged when a user rates a movie
	MovieRatingEvent Kind = "MovieRatingEvent"
)

// short tags used by the raw master log
var kindAliases = map[string]Kind{
	"Recommendation": RecommendationRequest,
	"Movie":          MovieWatchEvent,
	"Rating":         MovieRatingEvent,
}

// Kinds returns the known event kinds
func Kinds() []Kind {
	return []Kind{RecommendationRequest, MovieWatchEvent, MovieRatingEvent}
}

// ParseKind returns the Kind named by s. Both the full kind names and the
// short tags of the raw log ("Recommendation", "Movie", "Rating") are
// accepted.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds() {
		if string(k) == s {
			return k, nil
		}
	}
	if k, ok := kindAliases[s]; ok {
		return k, nil
	}
	return "", &UnknownKindError{Kind: Kind(s)}
}

// Type is a primitive or container field type
type Type int

const (
	_ Type = iota
	// StringType is a UTF-8 string
	StringType
	// IntType is a 32-bit signed integer
	IntType
	// LongType is a 64-bit signed integer
	LongType
	// BooleanType is a boolean
	BooleanType
	// ArrayType is an array of a primitive item type
	ArrayType
)

var typeEnum = []string{
	"",
	"string",
	"int",
	"long",
	"boolean",
	"array",
}

func (t Type) String() string {
	if t <= 0 || int(t) >= len(typeEnum) {
		return fmt.Sprintf("Type(%d)", int(t))
	}
	return typeEnum[t]
}

func parseType(s string) (Type, bool) {
	for idx, elm := range typeEnum {
		if idx > 0 && elm == s {
			return Type(idx), true
		}
	}
	return 0, false
}

func (t Type) primitive() bool {
	return t == StringType || t == IntType || t == LongType || t == BooleanType
}

// FieldType describes the type of a field: a primitive, an array of a
// primitive, or either of those made nullable (the union [null, T]).
type FieldType struct {
	Type     Type
	Items    Type
	Nullable bool
}

// String renders the type the way it appears in diagnostics,
// e.g. "string", "array<string>" or "[null, boolean]".
func (t FieldType) String() string {
	s := t.Type.String()
	if t.Type == ArrayType {
		s = fmt.Sprintf("array<%s>", t.Items)
	}
	if t.Nullable {
		return "[null, " + s + "]"
	}
	return s
}

func (t FieldType) validate() error {
	switch {
	case t.Type == ArrayType:
		if !t.Items.primitive() {
			return fmt.Errorf("array items must be a primitive type, not %s", t.Items)
		}
	case t.Type.primitive():
		if t.Items != 0 {
			return fmt.Errorf("items only apply to arrays")
		}
	default:
		return fmt.Errorf("unsupported type %s", t.Type)
	}
	return nil
}

func (t FieldType) avsc() interface{} {
	var base interface{} = t.Type.String()
	if t.Type == ArrayType {
		base = map[string]interface{}{
			"type":  "array",
			"items": t.Items.String(),
		}
	}
	if t.Nullable {
		return []interface{}{"null", base}
	}
	return base
}

// Field is a named, typed slot of a record schema. A nullable field may
// carry a default, which is always null.
type Field struct {
	Name       string
	Type       FieldType
	HasDefault bool
}

// Required returns a non-nullable field of the given primitive type
func Required(name string, t Type) Field {
	return Field{Name: name, Type: FieldType{Type: t}}
}

// RequiredArray returns a non-nullable array field
func RequiredArray(name string, items Type) Field {
	return Field{Name: name, Type: FieldType{Type: ArrayType, Items: items}}
}

// Nullable returns a nullable field of the given primitive type with a
// null default
func Nullable(name string, t Type) Field {
	return Field{Name: name, Type: FieldType{Type: t, Nullable: true}, HasDefault: true}
}

// Optional reports whether readers may fill the field with its default
// when the writer never produced it.
func (f Field) Optional() bool {
	return f.Type.Nullable && f.HasDefault
}

// Schema is an immutable, ordered record definition. Its structural
// identity is the Avro parsing canonical form with defaults retained.
type Schema struct {
	name        string
	namespace   string
	doc         string
	fields      []Field
	index       map[string]int
	avsc        string
	canonical   string
	fingerprint [32]byte
}

// SchemaOption configures optional schema attributes
type SchemaOption func(*Schema)

// WithDoc sets the schema documentation string
func WithDoc(doc string) SchemaOption {
	return func(s *Schema) {
		s.doc = doc
	}
}

// NewSchema validates and builds a schema. name may be a full name
// (namespace.Name). The fields are copied.
func NewSchema(name string, fields []Field, opts ...SchemaOption) (*Schema, error) {
	s := &Schema{
		index: make(map[string]int, len(fields)),
	}
	if i := strings.LastIndex(name, "."); i >= 0 {
		s.namespace, s.name = name[:i], name[i+1:]
	} else {
		s.name = name
	}
	if s.name == "" {
		return nil, fmt.Errorf("schema name missing")
	}
	for _, opt := range opts {
		opt(s)
	}
	s.fields = make([]Field, len(fields))
	copy(s.fields, fields)
	for i, f := range s.fields {
		if f.Name == "" {
			return nil, fmt.Errorf("schema %s: field %d has no name", name, i)
		}
		if _, dup := s.index[f.Name]; dup {
			return nil, fmt.Errorf("schema %s: duplicate field %q", name, f.Name)
		}
		if err := f.Type.validate(); err != nil {
			return nil, fmt.Errorf("schema %s: field %q: %w", name, f.Name, err)
		}
		if f.HasDefault && !f.Type.Nullable {
			return nil, fmt.Errorf("schema %s: field %q: only nullable fields may declare a default", name, f.Name)
		}
		s.index[f.Name] = i
	}

	avsc, err := json.Marshal(s.document())
	if err != nil {
		return nil, err
	}
	s.avsc = string(avsc)

	ht, err := heetch.ParseType(s.avsc)
	if err != nil {
		return nil, fmt.Errorf("schema %s: %w", name, err)
	}
	s.canonical = ht.CanonicalString(heetch.RetainDefaults)

	as, err := avro.ParseWithCache(s.avsc, "", &avro.SchemaCache{})
	if err != nil {
		return nil, fmt.Errorf("schema %s: %w", name, err)
	}
	s.fingerprint = as.Fingerprint()
	return s, nil
}

// MustNewSchema is like NewSchema but panics on error
func MustNewSchema(name string, fields []Field, opts ...SchemaOption) *Schema {
	s, err := NewSchema(name, fields, opts...)
	if err != nil {
		panic(err)
	}
	return s
}

type avscField struct {
	Name    string          `json:"name"`
	Type    interface{}     `json:"type"`
	Default json.RawMessage `json:"default,omitempty"`
}

type avscRecord struct {
	Type      string      `json:"type"`
	Name      string      `json:"name"`
	Namespace string      `json:"namespace,omitempty"`
	Doc       string      `json:"doc,omitempty"`
	Fields    []avscField `json:"fields"`
}

func (s *Schema) document() avscRecord {
	doc := avscRecord{
		Type:      "record",
		Name:      s.name,
		Namespace: s.namespace,
		Doc:       s.doc,
		Fields:    make([]avscField, 0, len(s.fields)),
	}
	for _, f := range s.fields {
		af := avscField{Name: f.Name, Type: f.Type.avsc()}
		if f.HasDefault {
			af.Default = json.RawMessage("null")
		}
		doc.Fields = append(doc.Fields, af)
	}
	return doc
}

// Name returns the full name of the record
func (s *Schema) Name() string {
	if s.namespace == "" {
		return s.name
	}
	return s.namespace + "." + s.name
}

// Doc returns the documentation string, if any
func (s *Schema) Doc() string {
	return s.doc
}

// Fields returns a copy of the fields in declaration order
func (s *Schema) Fields() []Field {
	fields := make([]Field, len(s.fields))
	copy(fields, s.fields)
	return fields
}

// Len returns the number of fields
func (s *Schema) Len() int {
	return len(s.fields)
}

// Field looks a field up by name
func (s *Schema) Field(name string) (Field, bool) {
	i, ok := s.index[name]
	if !ok {
		return Field{}, false
	}
	return s.fields[i], true
}

// FieldAt returns the i-th field in declaration order
func (s *Schema) FieldAt(i int) Field {
	return s.fields[i]
}

// Index returns the position of the named field, or -1
func (s *Schema) Index(name string) int {
	i, ok := s.index[name]
	if !ok {
		return -1
	}
	return i
}

// String returns the .avsc JSON document of the schema
func (s *Schema) String() string {
	return s.avsc
}

// MarshalJSON implements json.Marshaler
func (s *Schema) MarshalJSON() ([]byte, error) {
	return []byte(s.avsc), nil
}

// Canonical returns the parsing canonical form, defaults retained
func (s *Schema) Canonical() string {
	return s.canonical
}

// Fingerprint returns the SHA-256 fingerprint of the schema
func (s *Schema) Fingerprint() [32]byte {
	return s.fingerprint
}

// FingerprintHex returns the fingerprint as a hex string
func (s *Schema) FingerprintHex() string {
	return hex.EncodeToString(s.fingerprint[:])
}

// Equal reports whether both schemas are structurally identical
func (s *Schema) Equal(o *Schema) bool {
	if s == nil || o == nil {
		return s == o
	}
	return s.canonical == o.canonical
}

// AvroSchema parses the schema with hamba/avro, for consumers that need a
// standard Avro representation such as container file writers.
func (s *Schema) AvroSchema() (avro.Schema, error) {
	return avro.ParseWithCache(s.avsc, "", &avro.SchemaCache{})
}
