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

	"github.com/moviestream/eventlog/schemaregistry"
)

const (
	// ConfigMaxPayloadSize names the payload size limit key
	ConfigMaxPayloadSize = "payload.max.bytes"

	defaultMaxPayloadSize = 16 << 20
)

// SerializerConfig is used to pass configuration options to the encoder.
type SerializerConfig struct {
	// MaxPayloadSize bounds the size of one encoded record
	MaxPayloadSize int
}

// NewSerializerConfig returns a new configuration instance with sane defaults.
func NewSerializerConfig() *SerializerConfig {
	c := &SerializerConfig{}

	c.MaxPayloadSize = defaultMaxPayloadSize

	return c
}

// DeserializerConfig is used to pass configuration options to the decoder.
type DeserializerConfig struct {
	// MaxPayloadSize bounds the payload length a blob header may announce.
	// Larger lengths are treated as corruption rather than allocated.
	MaxPayloadSize int
}

// NewDeserializerConfig returns a new configuration instance with sane defaults.
func NewDeserializerConfig() *DeserializerConfig {
	c := &DeserializerConfig{}

	c.MaxPayloadSize = defaultMaxPayloadSize

	return c
}

// NewSerializerConfigFromMap reads the serializer config from key-value pairs
func NewSerializerConfigFromMap(m schemaregistry.ConfigMap) (*SerializerConfig, error) {
	c := NewSerializerConfig()
	size, err := maxPayloadSize(m, c.MaxPayloadSize)
	if err != nil {
		return nil, err
	}
	c.MaxPayloadSize = size
	return c, nil
}

// NewDeserializerConfigFromMap reads the deserializer config from key-value pairs
func NewDeserializerConfigFromMap(m schemaregistry.ConfigMap) (*DeserializerConfig, error) {
	c := NewDeserializerConfig()
	size, err := maxPayloadSize(m, c.MaxPayloadSize)
	if err != nil {
		return nil, err
	}
	c.MaxPayloadSize = size
	return c, nil
}

func maxPayloadSize(m schemaregistry.ConfigMap, defval int) (int, error) {
	v, err := m.GetInt(ConfigMaxPayloadSize, defval)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", ConfigMaxPayloadSize, err)
	}
	if v <= 0 || uint64(v) > math.MaxUint32 {
		return 0, fmt.Errorf("%s: must be between 1 and %d, not %d", ConfigMaxPayloadSize, uint32(math.MaxUint32), v)
	}
	return v, nil
}
