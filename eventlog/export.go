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
	"fmt"
	"io"

	"github.com/hamba/avro/v2/ocf"

	"github.com/moviestream/eventlog/schemaregistry"
	"github.com/moviestream/eventlog/schemaregistry/serde"
)

// Export re-reads the sink of kind with the reader schema and writes the
// records as an Avro object container file, returning the number of
// records written. codec is one of ocf.Null, ocf.Deflate or ocf.Snappy.
func Export(ctx context.Context, r *Reader, kind schemaregistry.Kind, schema *schemaregistry.Schema, w io.Writer, codec ocf.CodecName) (int, error) {
	it, err := r.Open(kind, schema)
	if err != nil {
		return 0, err
	}
	defer it.Close()

	enc, err := ocf.NewEncoder(schema.String(), w, ocf.WithCodec(codec))
	if err != nil {
		return 0, fmt.Errorf("container encoder: %w", err)
	}
	n := 0
	for it.Next() {
		if err = ctx.Err(); err != nil {
			return n, err
		}
		if err = enc.Encode(containerValue(it.Record())); err != nil {
			return n, fmt.Errorf("%s record %d: %w", kind, n, err)
		}
		n++
	}
	if err = it.Err(); err != nil {
		return n, err
	}
	return n, enc.Close()
}

// containerValue renders a record in the generic form the container
// encoder expects. Nullable fields become union maps: a nil map for null,
// otherwise a single key naming the branch.
func containerValue(rec *serde.Record) map[string]interface{} {
	m := rec.Map()
	for _, f := range rec.Schema().Fields() {
		if !f.Type.Nullable {
			continue
		}
		var union map[string]interface{}
		if v := m[f.Name]; v != nil {
			union = map[string]interface{}{f.Type.Type.String(): v}
		}
		m[f.Name] = union
	}
	return m
}
