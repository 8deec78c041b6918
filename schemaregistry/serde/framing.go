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
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// HeaderSize is the size of a blob header: the writer version id followed
// by the payload length, both unsigned 32-bit big-endian.
const HeaderSize = 8

// AppendBlob appends the framed payload to dst
func AppendBlob(dst []byte, version int, payload []byte) ([]byte, error) {
	if version <= 0 || uint64(version) > math.MaxUint32 {
		return nil, fmt.Errorf("writer version %d does not fit the blob header", version)
	}
	if uint64(len(payload)) > math.MaxUint32 {
		return nil, &EncodeError{Reason: fmt.Sprintf("payload of %d bytes does not fit the blob header", len(payload))}
	}
	dst = binary.BigEndian.AppendUint32(dst, uint32(version))
	dst = binary.BigEndian.AppendUint32(dst, uint32(len(payload)))
	return append(dst, payload...), nil
}

// BlobReader reads framed blobs from a stream
type BlobReader struct {
	r   *bufio.Reader
	off int
	max int
}

// NewBlobReader returns a BlobReader over r. Payload lengths above
// conf.MaxPayloadSize are reported as corruption.
func NewBlobReader(r io.Reader, conf *DeserializerConfig) *BlobReader {
	if conf == nil {
		conf = NewDeserializerConfig()
	}
	return &BlobReader{
		r:   bufio.NewReader(r),
		max: conf.MaxPayloadSize,
	}
}

// Offset returns the stream offset of the next blob
func (b *BlobReader) Offset() int {
	return b.off
}

// More reports whether any bytes follow the last blob read
func (b *BlobReader) More() bool {
	_, err := b.r.Peek(1)
	return err == nil
}

// Next reads one blob. It returns io.EOF at a clean end of stream and a
// *TruncatedDataError when the stream ends inside a blob.
func (b *BlobReader) Next() (version int, payload []byte, err error) {
	var header [HeaderSize]byte
	n, err := io.ReadFull(b.r, header[:])
	switch {
	case errors.Is(err, io.EOF):
		return 0, nil, io.EOF
	case errors.Is(err, io.ErrUnexpectedEOF):
		return 0, nil, &TruncatedDataError{Offset: b.off, Need: HeaderSize, Have: n}
	case err != nil:
		return 0, nil, err
	}
	version = int(binary.BigEndian.Uint32(header[0:4]))
	length := int(binary.BigEndian.Uint32(header[4:8]))
	if length > b.max {
		return 0, nil, &DecodeError{
			Offset: b.off + 4,
			Reason: fmt.Sprintf("payload length %d exceeds the %d byte limit", length, b.max),
		}
	}

	payload = make([]byte, length)
	n, err = io.ReadFull(b.r, payload)
	switch {
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return 0, nil, &TruncatedDataError{Offset: b.off + HeaderSize, Need: length, Have: n}
	case err != nil:
		return 0, nil, err
	}
	b.off += HeaderSize + length
	return version, payload, nil
}
