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
	log "github.com/sirupsen/logrus"

	"github.com/moviestream/eventlog/schemaregistry"
	"github.com/moviestream/eventlog/schemaregistry/serde"
)

type options struct {
	logger  *log.Logger
	filters map[schemaregistry.Kind]string
	sync    bool
	conf    *serde.SerializerConfig
	dconf   *serde.DeserializerConfig
}

// Option configures a Writer or a Reader
type Option func(*options)

// WithLogger sets the logger, log.StandardLogger() by default
func WithLogger(logger *log.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithFilter installs a CEL predicate for kind. Entries for which it is
// false are skipped. The expression sees the variables kind and entry, for
// example `entry.minute > 0`. Writer only.
func WithFilter(kind schemaregistry.Kind, expr string) Option {
	return func(o *options) {
		o.filters[kind] = expr
	}
}

// WithSync syncs the sink after every append. Writer only.
func WithSync(sync bool) Option {
	return func(o *options) {
		o.sync = sync
	}
}

// WithSerializerConfig sets the encoder limits
func WithSerializerConfig(conf *serde.SerializerConfig) Option {
	return func(o *options) {
		o.conf = conf
	}
}

// WithDeserializerConfig sets the decoder limits
func WithDeserializerConfig(conf *serde.DeserializerConfig) Option {
	return func(o *options) {
		o.dconf = conf
	}
}

func newOptions(opts []Option) *options {
	o := &options{
		logger:  log.StandardLogger(),
		filters: make(map[schemaregistry.Kind]string),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
