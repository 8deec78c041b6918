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

package cache

import "sync"

// MapCache is an unbounded cache backed by a map
type MapCache[K comparable, V any] struct {
	lock    sync.RWMutex
	entries map[K]V
}

var _ Cache[string, int] = new(MapCache[string, int])

// NewMapCache creates a new cache backed by a map
func NewMapCache[K comparable, V any]() *MapCache[K, V] {
	return &MapCache[K, V]{entries: make(map[K]V)}
}

// Get returns the cache value associated with key
func (c *MapCache[K, V]) Get(key K) (value V, ok bool) {
	c.lock.RLock()
	defer c.lock.RUnlock()
	value, ok = c.entries[key]
	return
}

// Put puts a value in cache associated with key
func (c *MapCache[K, V]) Put(key K, value V) {
	c.lock.Lock()
	c.entries[key] = value
	c.lock.Unlock()
}

// Len returns the number of cached entries
func (c *MapCache[K, V]) Len() int {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return len(c.entries)
}
