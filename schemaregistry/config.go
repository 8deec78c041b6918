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
	"fmt"
	"strconv"
)

const (
	// ConfigCompatibilityLevel names the default compatibility level key
	ConfigCompatibilityLevel = "compatibility.level"
	// ConfigCacheCapacity names the compatibility result cache capacity key
	ConfigCacheCapacity = "cache.capacity"
)

// Config configures a registry client
type Config struct {
	// CompatibilityLevel is enforced between consecutive versions of a kind
	// unless overridden per kind
	CompatibilityLevel Compatibility
	// CacheCapacity bounds the compatibility result cache
	CacheCapacity int
}

// NewConfig returns a new configuration instance with sane defaults.
func NewConfig() *Config {
	c := &Config{}

	c.CompatibilityLevel = Full
	c.CacheCapacity = 1000

	return c
}

// NewConfigFromMap builds a Config from key-value pairs, starting from
// the defaults of NewConfig.
func NewConfigFromMap(m ConfigMap) (*Config, error) {
	c := NewConfig()
	level, err := m.GetString(ConfigCompatibilityLevel, c.CompatibilityLevel.String())
	if err != nil {
		return nil, err
	}
	if err = c.CompatibilityLevel.ParseString(level); err != nil {
		return nil, fmt.Errorf("%s: %w", ConfigCompatibilityLevel, err)
	}
	c.CacheCapacity, err = m.GetInt(ConfigCacheCapacity, c.CacheCapacity)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ConfigCacheCapacity, err)
	}
	return c, nil
}

// ConfigMap is a map of string key-values
type ConfigMap map[string]string

// SetBool sets configuration property key to the bool value.
func (m ConfigMap) SetBool(key string, value bool) {
	m[key] = strconv.FormatBool(value)
}

// SetInt sets configuration property key to the int value.
func (m ConfigMap) SetInt(key string, value int) {
	m[key] = strconv.FormatInt(int64(value), 10)
}

// SetString sets configuration property key to the string value.
func (m ConfigMap) SetString(key string, value string) {
	m[key] = value
}

// GetBool finds the given key in the ConfigMap and returns its bool value.
// If the key is not found `defval` is returned.
func (m ConfigMap) GetBool(key string, defval bool) (bool, error) {
	v, ok := m[key]
	if !ok {
		return defval, nil
	}
	return strconv.ParseBool(v)
}

// GetInt finds the given key in the ConfigMap and returns its int value.
// If the key is not found `defval` is returned.
func (m ConfigMap) GetInt(key string, defval int) (int, error) {
	v, ok := m[key]
	if !ok {
		return defval, nil
	}
	ret, err := strconv.ParseInt(v, 10, 0)
	if err != nil {
		return 0, err
	}
	return int(ret), nil
}

// GetString finds the given key in the ConfigMap and returns its string value.
// If the key is not found `defval` is returned.
func (m ConfigMap) GetString(key string, defval string) (string, error) {
	v, ok := m[key]
	if !ok {
		return defval, nil
	}
	return v, nil
}
