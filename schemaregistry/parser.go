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

	"github.com/actgardner/gogen-avro/v10/parser"
	gschema "github.com/actgardner/gogen-avro/v10/schema"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// recordDocument restricts .avsc documents to the record subset this
// pipeline understands, before the Avro parser sees them.
const recordDocument = `{
  "type": "object",
  "required": ["type", "name", "fields"],
  "properties": {
    "type": {"const": "record"},
    "name": {"type": "string", "minLength": 1},
    "namespace": {"type": "string"},
    "doc": {"type": "string"},
    "fields": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name", "type"],
        "properties": {
          "name": {"type": "string", "minLength": 1},
          "type": {"type": ["string", "array", "object"]},
          "doc": {"type": "string"}
        }
      }
    }
  }
}`

var recordDocumentSchema = jsonschema.MustCompileString("avsc-record.json", recordDocument)

// Parse parses an .avsc record document into a Schema
func Parse(doc []byte) (*Schema, error) {
	return parse("", doc)
}

func parse(source string, doc []byte) (*Schema, error) {
	var v interface{}
	if err := json.Unmarshal(doc, &v); err != nil {
		return nil, &ParseError{Source: source, Err: err}
	}
	if err := recordDocumentSchema.Validate(v); err != nil {
		return nil, &ParseError{Source: source, Err: err}
	}

	ns := parser.NewNamespace(false)
	typ, err := ns.TypeForSchema(doc)
	if err != nil {
		return nil, &ParseError{Source: source, Err: err}
	}
	ref, ok := typ.(*gschema.Reference)
	if !ok {
		return nil, &ParseError{Source: source, Err: fmt.Errorf("top-level type must be a record")}
	}
	rec, ok := ns.Definitions[ref.TypeName].(*gschema.RecordDefinition)
	if !ok {
		return nil, &ParseError{Source: source, Err: fmt.Errorf("top-level type %s is not a record", ref.TypeName)}
	}

	fields := make([]Field, 0, len(rec.Fields()))
	for _, f := range rec.Fields() {
		ft, err := fieldTypeOf(f.Type())
		if err != nil {
			return nil, &ParseError{Source: source, Err: fmt.Errorf("field %q: %w", f.Name(), err)}
		}
		field := Field{Name: f.Name(), Type: ft}
		if f.HasDefault() {
			if !ft.Nullable || f.Default() != nil {
				return nil, &ParseError{Source: source, Err: fmt.Errorf("field %q: only a null default on a nullable field is supported", f.Name())}
			}
			field.HasDefault = true
		}
		fields = append(fields, field)
	}

	var opts []SchemaOption
	if doc := rec.Doc(); doc != "" {
		opts = append(opts, WithDoc(doc))
	}
	s, err := NewSchema(rec.AvroName().String(), fields, opts...)
	if err != nil {
		return nil, &ParseError{Source: source, Err: err}
	}
	return s, nil
}

func fieldTypeOf(t gschema.AvroType) (FieldType, error) {
	switch v := t.(type) {
	case *gschema.UnionField:
		items := v.ItemTypes()
		if len(items) != 2 {
			return FieldType{}, fmt.Errorf("only two-branch [null, T] unions are supported")
		}
		if _, ok := items[0].(*gschema.NullField); !ok {
			return FieldType{}, fmt.Errorf("nullable unions must list null first")
		}
		ft, err := fieldTypeOf(items[1])
		if err != nil {
			return FieldType{}, err
		}
		if ft.Nullable {
			return FieldType{}, fmt.Errorf("nested unions are not supported")
		}
		ft.Nullable = true
		return ft, nil
	case *gschema.ArrayField:
		items, err := primitiveOf(v.ItemType())
		if err != nil {
			return FieldType{}, fmt.Errorf("array items: %w", err)
		}
		return FieldType{Type: ArrayType, Items: items}, nil
	default:
		p, err := primitiveOf(t)
		if err != nil {
			return FieldType{}, err
		}
		return FieldType{Type: p}, nil
	}
}

func primitiveOf(t gschema.AvroType) (Type, error) {
	switch t.(type) {
	case *gschema.StringField:
		return StringType, nil
	case *gschema.IntField:
		return IntType, nil
	case *gschema.LongField:
		return LongType, nil
	case *gschema.BoolField:
		return BooleanType, nil
	}
	return 0, fmt.Errorf("unsupported type %s", typeName(t))
}

func typeName(t gschema.AvroType) string {
	switch v := t.(type) {
	case *gschema.Reference:
		return v.TypeName.String()
	case *gschema.ArrayField:
		return "array"
	case *gschema.MapField:
		return "map"
	case *gschema.UnionField:
		return "union"
	}
	return t.Name()
}
