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

package main

import (
	"fmt"
	"strings"

	"github.com/hamba/avro/v2/ocf"
	log "github.com/sirupsen/logrus"

	"github.com/moviestream/eventlog/eventlog"
	"github.com/moviestream/eventlog/schemaregistry"
	"github.com/moviestream/eventlog/schemaregistry/serde"
)

const envPrefix = "EVENTLOG_"

const (
	configSync        = "sink.sync"
	configExportCodec = "export.codec"
)

// environment variables mapped onto configuration keys
var configKeys = map[string]string{
	envPrefix + "COMPATIBILITY_LEVEL": schemaregistry.ConfigCompatibilityLevel,
	envPrefix + "CACHE_CAPACITY":      schemaregistry.ConfigCacheCapacity,
	envPrefix + "PAYLOAD_MAX_BYTES":   serde.ConfigMaxPayloadSize,
	envPrefix + "SYNC":                configSync,
}

type environment struct {
	logLevel log.Level
	registry *schemaregistry.Config
	conf     *serde.SerializerConfig
	dconf    *serde.DeserializerConfig
	sync     bool
	codec    ocf.CodecName
	filters  map[schemaregistry.Kind]string
}

// loadEnvironment reads EVENTLOG_* settings through getenv
func loadEnvironment(getenv func(string) string) (*environment, error) {
	env := &environment{
		logLevel: log.InfoLevel,
		codec:    ocf.Deflate,
		filters:  make(map[schemaregistry.Kind]string),
	}

	if v := getenv(envPrefix + "LOG_LEVEL"); v != "" {
		level, err := log.ParseLevel(v)
		if err != nil {
			return nil, fmt.Errorf("%sLOG_LEVEL: %w", envPrefix, err)
		}
		env.logLevel = level
	}

	m := schemaregistry.ConfigMap{}
	for envKey, key := range configKeys {
		if v := getenv(envKey); v != "" {
			m.SetString(key, v)
		}
	}
	var err error
	if env.registry, err = schemaregistry.NewConfigFromMap(m); err != nil {
		return nil, err
	}
	if env.conf, err = serde.NewSerializerConfigFromMap(m); err != nil {
		return nil, err
	}
	if env.dconf, err = serde.NewDeserializerConfigFromMap(m); err != nil {
		return nil, err
	}

	if env.sync, err = m.GetBool(configSync, false); err != nil {
		return nil, fmt.Errorf("%sSYNC: %w", envPrefix, err)
	}

	if v := getenv(envPrefix + "EXPORT_CODEC"); v != "" {
		switch codec := ocf.CodecName(strings.ToLower(v)); codec {
		case ocf.Null, ocf.Deflate, ocf.Snappy:
			env.codec = codec
		default:
			return nil, fmt.Errorf("%sEXPORT_CODEC: unsupported codec %q", envPrefix, v)
		}
	}

	for _, kind := range schemaregistry.Kinds() {
		if expr := getenv(filterKey(kind)); expr != "" {
			env.filters[kind] = expr
		}
	}
	return env, nil
}

// filterKey names the variable holding the CEL filter of kind,
// e.g. EVENTLOG_FILTER_MOVIEWATCHEVENT
func filterKey(kind schemaregistry.Kind) string {
	return envPrefix + "FILTER_" + strings.ToUpper(string(kind))
}

// settings renders the effective configuration
func (env *environment) settings() schemaregistry.ConfigMap {
	m := schemaregistry.ConfigMap{}
	m.SetString(schemaregistry.ConfigCompatibilityLevel, env.registry.CompatibilityLevel.String())
	m.SetInt(schemaregistry.ConfigCacheCapacity, env.registry.CacheCapacity)
	m.SetInt(serde.ConfigMaxPayloadSize, env.conf.MaxPayloadSize)
	m.SetBool(configSync, env.sync)
	m.SetString(configExportCodec, string(env.codec))
	return m
}

func (env *environment) options() []eventlog.Option {
	return []eventlog.Option{
		eventlog.WithLogger(log.StandardLogger()),
		eventlog.WithSerializerConfig(env.conf),
		eventlog.WithDeserializerConfig(env.dconf),
	}
}
