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

	"github.com/hamba/avro/v2"

	"github.com/moviestream/eventlog/schemaregistry"
)

/* Codec

Payload layout, fields strictly in writer schema order:

	string          zig-zag varint length, UTF-8 bytes
	int, long       zig-zag varint
	boolean         one byte, 0 or 1
	array<T>        zig-zag varint item count, items, 0 terminator
	nullable T      one presence byte, 0 or 1, then T when 1

Payloads carry no tags or field names; the writer schema is required to
decode them.
*/

// Codec encodes records against a writer schema and decodes payloads from
// a writer schema into a reader schema. Encode and Decode keep no state
// between calls; a Codec is safe for concurrent use.
type Codec struct {
	checker *schemaregistry.Checker
	conf    *SerializerConfig
	dconf   *DeserializerConfig
}

// NewCodec returns a Codec that resolves schema pairs with checker. Nil
// configs select the defaults.
func NewCodec(checker *schemaregistry.Checker, conf *SerializerConfig, dconf *DeserializerConfig) (*Codec, error) {
	if checker == nil {
		return nil, fmt.Errorf("compatibility checker missing")
	}
	if conf == nil {
		conf = NewSerializerConfig()
	}
	if dconf == nil {
		dconf = NewDeserializerConfig()
	}
	return &Codec{
		checker: checker,
		conf:    conf,
		dconf:   dconf,
	}, nil
}

// DeserializerConfig returns the decoder limits, shared with blob framing
func (c *Codec) DeserializerConfig() *DeserializerConfig {
	return c.dconf
}

// Encode serializes record with the writer schema. The record may have been
// built for another schema; its fields are matched to writer fields by name.
func (c *Codec) Encode(record *Record, writer *schemaregistry.Schema) ([]byte, error) {
	if record == nil || writer == nil {
		return nil, fmt.Errorf("record and writer schema are required")
	}
	for i := 0; i < record.schema.Len(); i++ {
		if name := record.schema.FieldAt(i).Name; writer.Index(name) < 0 {
			return nil, &EncodeError{Field: name, Reason: "not a field of writer schema " + writer.Name()}
		}
	}

	w := avro.NewWriter(nil, 64)
	for i := 0; i < writer.Len(); i++ {
		f := writer.FieldAt(i)
		var v interface{}
		if j := record.schema.Index(f.Name); j >= 0 {
			v = record.values[j]
		}
		v, err := normalize(f, v)
		if err != nil {
			return nil, err
		}
		writeValue(w, f.Type, v)
	}
	if w.Error != nil {
		return nil, &EncodeError{Reason: w.Error.Error()}
	}
	payload := w.Buffer()
	if len(payload) > c.conf.MaxPayloadSize {
		return nil, &EncodeError{Reason: fmt.Sprintf("payload of %d bytes exceeds the %d byte limit", len(payload), c.conf.MaxPayloadSize)}
	}
	return payload, nil
}

// Decode deserializes a payload produced with writer into a record shaped
// by reader. Writer fields unknown to reader are skipped and reader fields
// unknown to writer are null. The pair must be resolvable, otherwise an
// *schemaregistry.IncompatibleSchemaError is returned.
func (c *Codec) Decode(payload []byte, writer, reader *schemaregistry.Schema) (*Record, error) {
	if writer == nil || reader == nil {
		return nil, fmt.Errorf("writer and reader schemas are required")
	}
	if ok, violations := c.checker.CanRead(writer, reader); !ok {
		return nil, &schemaregistry.IncompatibleSchemaError{Violations: violations}
	}

	rec := &Record{
		schema: reader,
		values: make([]interface{}, reader.Len()),
	}
	r := newBinaryReader(payload)
	for i := 0; i < writer.Len(); i++ {
		f := writer.FieldAt(i)
		r.field = f.Name
		v, err := r.readValue(f.Type)
		if err != nil {
			return nil, err
		}
		if j := reader.Index(f.Name); j >= 0 {
			rec.values[j] = v
		}
	}
	if r.trailing() {
		r.field = ""
		return nil, r.malformed("%d trailing bytes after the last field", r.remaining())
	}
	return rec, nil
}
