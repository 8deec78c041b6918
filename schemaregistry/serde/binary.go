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
	"io"
	"math"
	"unicode/utf8"

	"github.com/hamba/avro/v2"

	"github.com/moviestream/eventlog/schemaregistry"
)

// writeValue appends v in Avro binary form. v has been normalized against t.
func writeValue(w *avro.Writer, t schemaregistry.FieldType, v interface{}) {
	if t.Nullable {
		if v == nil {
			w.WriteBool(false)
			return
		}
		w.WriteBool(true)
	}
	if t.Type == schemaregistry.ArrayType {
		writeArray(w, v)
		return
	}
	writePrimitive(w, v)
}

func writePrimitive(w *avro.Writer, v interface{}) {
	switch p := v.(type) {
	case string:
		w.WriteString(p)
	case int32:
		w.WriteInt(p)
	case int64:
		w.WriteLong(p)
	case bool:
		w.WriteBool(p)
	}
}

// writeArray writes a single block followed by the zero terminator
func writeArray(w *avro.Writer, v interface{}) {
	switch items := v.(type) {
	case []string:
		if len(items) > 0 {
			w.WriteLong(int64(len(items)))
			for _, item := range items {
				w.WriteString(item)
			}
		}
	case []int32:
		if len(items) > 0 {
			w.WriteLong(int64(len(items)))
			for _, item := range items {
				w.WriteInt(item)
			}
		}
	case []int64:
		if len(items) > 0 {
			w.WriteLong(int64(len(items)))
			for _, item := range items {
				w.WriteLong(item)
			}
		}
	case []bool:
		if len(items) > 0 {
			w.WriteLong(int64(len(items)))
			for _, item := range items {
				w.WriteBool(item)
			}
		}
	}
	w.WriteLong(0)
}

// binaryReader decodes a payload with an avro.Reader, reporting short input
// as *TruncatedDataError and malformed input as *DecodeError. Offsets are
// counted from the minimal varint encoding, which is what Encode writes.
type binaryReader struct {
	r     *avro.Reader
	size  int
	off   int
	field string
}

func newBinaryReader(payload []byte) *binaryReader {
	return &binaryReader{
		r:    avro.NewReader(nil, 0).Reset(payload),
		size: len(payload),
	}
}

func (r *binaryReader) remaining() int {
	return r.size - r.off
}

func (r *binaryReader) truncated(need int) error {
	return &TruncatedDataError{Field: r.field, Offset: r.off, Need: need, Have: r.remaining()}
}

func (r *binaryReader) malformed(format string, args ...interface{}) error {
	return &DecodeError{Field: r.field, Offset: r.off, Reason: fmt.Sprintf(format, args...)}
}

func isEOF(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
}

// maxVarintLen is the most bytes a long may take
const maxVarintLen = 10

// failed maps the reader error raised by the varint read starting at start
func (r *binaryReader) failed(start int) error {
	err := r.r.Error
	r.off = start
	switch {
	case !isEOF(err):
		return r.malformed("%v", err)
	case r.remaining() >= maxVarintLen:
		// the reader asks for more input after ten continuation bytes
		return r.malformed("varint overflows 64 bits")
	}
	return r.truncated(r.remaining() + 1)
}

// varintLen is the size of v as a zig-zag varint
func varintLen(v int64) int {
	u := uint64(v<<1) ^ uint64(v>>63)
	n := 1
	for u >= 0x80 {
		u >>= 7
		n++
	}
	return n
}

func (r *binaryReader) readLong() (int64, error) {
	start := r.off
	v := r.r.ReadLong()
	if r.r.Error != nil {
		return 0, r.failed(start)
	}
	r.off += varintLen(v)
	return v, nil
}

func (r *binaryReader) readInt() (int32, error) {
	start := r.off
	v, err := r.readLong()
	if err != nil {
		return 0, err
	}
	if v < math.MinInt32 || v > math.MaxInt32 {
		r.off = start
		return 0, r.malformed("value %d overflows int", v)
	}
	return int32(v), nil
}

// readFlag reads a one-byte boolean or presence flag
func (r *binaryReader) readFlag(what string) (bool, error) {
	b := r.r.ReadBool()
	switch err := r.r.Error; {
	case err == nil:
		r.off++
		return b, nil
	case isEOF(err):
		return false, r.truncated(1)
	default:
		return false, r.malformed("%s byte is not 0 or 1: %v", what, err)
	}
}

func (r *binaryReader) readString() (string, error) {
	start := r.off
	n, err := r.readLong()
	if err != nil {
		return "", err
	}
	if n < 0 {
		r.off = start
		return "", r.malformed("negative string length %d", n)
	}
	if int64(r.remaining()) < n {
		return "", r.truncated(int(n))
	}
	b := make([]byte, n)
	if r.r.Read(b); r.r.Error != nil {
		return "", r.truncated(int(n))
	}
	if !utf8.Valid(b) {
		return "", r.malformed("string is not valid UTF-8")
	}
	r.off += int(n)
	return string(b), nil
}

// trailing reports whether any byte follows the last field
func (r *binaryReader) trailing() bool {
	var b [1]byte
	r.r.Read(b[:])
	return r.r.Error == nil
}

func (r *binaryReader) readPrimitive(t schemaregistry.Type) (interface{}, error) {
	switch t {
	case schemaregistry.StringType:
		return r.readString()
	case schemaregistry.IntType:
		return r.readInt()
	case schemaregistry.LongType:
		return r.readLong()
	case schemaregistry.BooleanType:
		return r.readFlag("boolean")
	}
	return nil, r.malformed("unsupported type %s", t)
}

// readArray reads blocks until the zero count. The byte size that follows
// a negative count is not needed here.
func (r *binaryReader) readArray(items schemaregistry.Type) (interface{}, error) {
	out := newArray(items, 0)
	for {
		start := r.off
		count, size := r.r.ReadBlockHeader()
		if r.r.Error != nil {
			return nil, r.failed(start)
		}
		if count < 0 {
			return nil, r.malformed("invalid block count %d", count)
		}
		if size != 0 {
			r.off += varintLen(-count) + varintLen(size)
		} else {
			r.off += varintLen(count)
		}
		if count == 0 {
			return out, nil
		}
		// every item takes at least one byte
		if count > int64(r.remaining()) {
			return nil, r.truncated(int(min(count, math.MaxInt32)))
		}
		for i := int64(0); i < count; i++ {
			item, err := r.readPrimitive(items)
			if err != nil {
				return nil, err
			}
			out = appendItem(out, item)
		}
	}
}

func (r *binaryReader) readValue(t schemaregistry.FieldType) (interface{}, error) {
	if t.Nullable {
		present, err := r.readFlag("presence flag")
		if err != nil {
			return nil, err
		}
		if !present {
			return nil, nil
		}
	}
	if t.Type == schemaregistry.ArrayType {
		return r.readArray(t.Items)
	}
	return r.readPrimitive(t.Type)
}
