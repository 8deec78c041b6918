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
	"sort"
	"sync"

	"github.com/google/uuid"
)

/* Schema Registry

Holds the schema lineage of every event kind. Registration is append-only:
a version, once assigned, always resolves to the same schema.

====Register====
Register(kind Kind, schema *Schema) (version int, err error)
RegisterVersion(kind Kind, version int, schema *Schema) error

====Lookup====
Get(kind Kind, version int) (SchemaMetadata, error)
Latest(kind Kind) (SchemaMetadata, error)
GetAllVersions(kind Kind) ([]int, error)
GetAllKinds() []Kind

====Compatibility====
GetCompatibility(kind Kind) (Compatibility, error)
UpdateCompatibility(kind Kind, update Compatibility) (Compatibility, error)
TestCompatibility(kind Kind, version int, schema *Schema) (Result, error)
*/

// SchemaMetadata is a registered schema version
type SchemaMetadata struct {
	Kind    Kind
	Version int
	GUID    string
	Schema  *Schema
}

// Fingerprint returns the hex fingerprint of the registered schema
func (m SchemaMetadata) Fingerprint() string {
	return m.Schema.FingerprintHex()
}

type lineage struct {
	versions  []int
	byVersion map[int]*SchemaMetadata
}

func (l *lineage) latest() *SchemaMetadata {
	if len(l.versions) == 0 {
		return nil
	}
	return l.byVersion[l.versions[len(l.versions)-1]]
}

// neighbours returns the closest registered versions below and above v
func (l *lineage) neighbours(v int) (prev, next *SchemaMetadata) {
	i := sort.SearchInts(l.versions, v)
	if i > 0 {
		prev = l.byVersion[l.versions[i-1]]
	}
	if i < len(l.versions) && l.versions[i] == v {
		i++
	}
	if i < len(l.versions) {
		next = l.byVersion[l.versions[i]]
	}
	return prev, next
}

func (l *lineage) insert(m *SchemaMetadata) {
	l.byVersion[m.Version] = m
	l.versions = append(l.versions, m.Version)
	sort.Ints(l.versions)
}

/* In-memory Schema Registry client */
type client struct {
	sync.RWMutex
	config   *Config
	lineages map[Kind]*lineage
	levels   map[Kind]Compatibility
	checker  *Checker
}

// Client is the schema registry contract shared by writers and readers
type Client interface {
	Config() *Config
	Register(kind Kind, schema *Schema) (version int, err error)
	RegisterVersion(kind Kind, version int, schema *Schema) error
	Get(kind Kind, version int) (SchemaMetadata, error)
	Latest(kind Kind) (SchemaMetadata, error)
	GetAllVersions(kind Kind) ([]int, error)
	GetAllKinds() []Kind
	GetCompatibility(kind Kind) (Compatibility, error)
	UpdateCompatibility(kind Kind, update Compatibility) (Compatibility, error)
	TestCompatibility(kind Kind, version int, schema *Schema) (Result, error)
	Checker() *Checker
	Close() error
}

var _ Client = new(client)

// NewClient returns an in-memory registry client
func NewClient(conf *Config) (Client, error) {
	if conf == nil {
		conf = NewConfig()
	}
	if !conf.CompatibilityLevel.valid() {
		return nil, fmt.Errorf("invalid compatibility level %d", int(conf.CompatibilityLevel))
	}
	checker, err := NewChecker(conf.CacheCapacity)
	if err != nil {
		return nil, err
	}
	return &client{
		config:   conf,
		lineages: make(map[Kind]*lineage),
		levels:   make(map[Kind]Compatibility),
		checker:  checker,
	}, nil
}

// Config returns the client config
func (c *client) Config() *Config {
	return c.config
}

// Checker returns the compatibility checker shared with serdes
func (c *client) Checker() *Checker {
	return c.checker
}

// Register registers schema as the next version of kind. A schema identical
// to the latest version returns that version. One identical to an older
// version is registered again, since removing a nullable field may restore
// an earlier shape.
func (c *client) Register(kind Kind, schema *Schema) (int, error) {
	if kind == "" {
		return -1, &UnknownKindError{Kind: kind}
	}
	if schema == nil {
		return -1, fmt.Errorf("schema missing")
	}
	c.Lock()
	defer c.Unlock()
	l := c.lineageLocked(kind)
	version := 1
	if latest := l.latest(); latest != nil {
		if latest.Schema.Equal(schema) {
			return latest.Version, nil
		}
		version = latest.Version + 1
		if err := c.checkTransitionLocked(kind, latest, schema, version); err != nil {
			return -1, err
		}
	}
	l.insert(newMetadata(kind, version, schema))
	return version, nil
}

// RegisterVersion registers schema under an explicit version id.
// Re-registering the identical schema under the same id is a no-op. The
// same schema may be held by several ids.
func (c *client) RegisterVersion(kind Kind, version int, schema *Schema) error {
	if kind == "" {
		return &UnknownKindError{Kind: kind}
	}
	if schema == nil {
		return fmt.Errorf("schema missing")
	}
	if version <= 0 {
		return fmt.Errorf("version must be a positive integer, not %d", version)
	}
	c.Lock()
	defer c.Unlock()
	l := c.lineageLocked(kind)
	if m, ok := l.byVersion[version]; ok {
		if m.Schema.Equal(schema) {
			return nil
		}
		return &VersionConflictError{Kind: kind, Version: version}
	}
	prev, next := l.neighbours(version)
	if prev != nil {
		if err := c.checkTransitionLocked(kind, prev, schema, version); err != nil {
			return err
		}
	}
	if next != nil {
		level := c.levelLocked(kind)
		if r := c.checker.Transition(schema, next.Schema); !level.Satisfied(r) {
			return &IncompatibleSchemaError{
				Kind:          kind,
				WriterVersion: version,
				ReaderVersion: next.Version,
				Level:         level,
				Violations:    r.Violations(),
			}
		}
	}
	l.insert(newMetadata(kind, version, schema))
	return nil
}

func newMetadata(kind Kind, version int, schema *Schema) *SchemaMetadata {
	return &SchemaMetadata{
		Kind:    kind,
		Version: version,
		GUID:    uuid.New().String(),
		Schema:  schema,
	}
}

func (c *client) lineageLocked(kind Kind) *lineage {
	l, ok := c.lineages[kind]
	if !ok {
		l = &lineage{byVersion: make(map[int]*SchemaMetadata)}
		c.lineages[kind] = l
	}
	return l
}

// checkTransitionLocked verifies that moving from prev to schema honors
// the kind's compatibility level
func (c *client) checkTransitionLocked(kind Kind, prev *SchemaMetadata, schema *Schema, version int) error {
	level := c.levelLocked(kind)
	r := c.checker.Transition(prev.Schema, schema)
	if level.Satisfied(r) {
		return nil
	}
	return &IncompatibleSchemaError{
		Kind:          kind,
		WriterVersion: prev.Version,
		ReaderVersion: version,
		Level:         level,
		Violations:    r.Violations(),
	}
}

func (c *client) levelLocked(kind Kind) Compatibility {
	if level, ok := c.levels[kind]; ok {
		return level
	}
	return c.config.CompatibilityLevel
}

// Get returns the schema registered as version of kind
func (c *client) Get(kind Kind, version int) (SchemaMetadata, error) {
	c.RLock()
	defer c.RUnlock()
	l, ok := c.lineages[kind]
	if !ok || len(l.versions) == 0 {
		return SchemaMetadata{}, &UnknownKindError{Kind: kind}
	}
	m, ok := l.byVersion[version]
	if !ok {
		return SchemaMetadata{}, &UnknownVersionError{Kind: kind, Version: version}
	}
	return *m, nil
}

// Latest returns the highest registered version of kind
func (c *client) Latest(kind Kind) (SchemaMetadata, error) {
	c.RLock()
	defer c.RUnlock()
	l, ok := c.lineages[kind]
	if !ok || len(l.versions) == 0 {
		return SchemaMetadata{}, &UnknownKindError{Kind: kind}
	}
	return *l.latest(), nil
}

// GetAllVersions returns the registered versions of kind in ascending order
func (c *client) GetAllVersions(kind Kind) ([]int, error) {
	c.RLock()
	defer c.RUnlock()
	l, ok := c.lineages[kind]
	if !ok || len(l.versions) == 0 {
		return nil, &UnknownKindError{Kind: kind}
	}
	versions := make([]int, len(l.versions))
	copy(versions, l.versions)
	return versions, nil
}

// GetAllKinds returns every kind with at least one registered version
func (c *client) GetAllKinds() []Kind {
	c.RLock()
	defer c.RUnlock()
	kinds := make([]Kind, 0, len(c.lineages))
	for k, l := range c.lineages {
		if len(l.versions) > 0 {
			kinds = append(kinds, k)
		}
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// GetCompatibility returns the compatibility level enforced for kind
func (c *client) GetCompatibility(kind Kind) (Compatibility, error) {
	c.RLock()
	defer c.RUnlock()
	return c.levelLocked(kind), nil
}

// UpdateCompatibility sets the compatibility level enforced for kind.
// Already registered versions are not re-checked.
func (c *client) UpdateCompatibility(kind Kind, update Compatibility) (Compatibility, error) {
	if !update.valid() {
		return 0, fmt.Errorf("invalid compatibility level %d", int(update))
	}
	c.Lock()
	defer c.Unlock()
	c.levels[kind] = update
	return update, nil
}

// TestCompatibility classifies moving from the registered version to schema
// the way registration does, without registering anything
func (c *client) TestCompatibility(kind Kind, version int, schema *Schema) (Result, error) {
	m, err := c.Get(kind, version)
	if err != nil {
		return Result{}, err
	}
	return c.checker.Transition(m.Schema, schema), nil
}

// Close releases the client
func (c *client) Close() error {
	return nil
}
