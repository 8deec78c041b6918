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

import (
	"container/list"
	"fmt"
	"sync"
)

const maxPreallocateCapacity = 10000

type lruEntry[K comparable, V any] struct {
	key   K
	value V
}

// LRUCache is a Least Recently Used (LRU) Cache with given capacity
type LRUCache[K comparable, V any] struct {
	cacheLock   sync.Mutex
	capacity    int
	lruElements map[K]*list.Element
	lruKeys     *list.List
}

var _ Cache[string, int] = new(LRUCache[string, int])

// NewLRUCache creates a new Least Recently Used (LRU) Cache
//
// Parameters:
//   - `capacity` - a positive integer indicating the max capacity of this cache
//
// Returns the new allocated LRU Cache and an error
func NewLRUCache[K comparable, V any](capacity int) (*LRUCache[K, V], error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("capacity must be a positive integer")
	}
	c := &LRUCache[K, V]{
		capacity: capacity,
		lruKeys:  list.New(),
	}
	if capacity <= maxPreallocateCapacity {
		c.lruElements = make(map[K]*list.Element, capacity)
	} else {
		c.lruElements = make(map[K]*list.Element)
	}
	return c, nil
}

// Get returns the cache value associated with key and marks it as the most
// recently used entry.
func (c *LRUCache[K, V]) Get(key K) (value V, ok bool) {
	c.cacheLock.Lock()
	defer c.cacheLock.Unlock()
	element, ok := c.lruElements[key]
	if !ok {
		return value, false
	}
	c.lruKeys.MoveToFront(element)
	return element.Value.(*lruEntry[K, V]).value, true
}

// Put puts a value in cache associated with key, evicting the least
// recently used entry when the cache is full.
func (c *LRUCache[K, V]) Put(key K, value V) {
	c.cacheLock.Lock()
	defer c.cacheLock.Unlock()
	if element, ok := c.lruElements[key]; ok {
		element.Value.(*lruEntry[K, V]).value = value
		c.lruKeys.MoveToFront(element)
		return
	}
	// evict in advance to avoid increasing map capacity
	if c.lruKeys.Len() == c.capacity {
		if back := c.lruKeys.Back(); back != nil {
			evicted := c.lruKeys.Remove(back).(*lruEntry[K, V])
			delete(c.lruElements, evicted.key)
		}
	}
	c.lruElements[key] = c.lruKeys.PushFront(&lruEntry[K, V]{key: key, value: value})
}

// Len returns the number of cached entries
func (c *LRUCache[K, V]) Len() int {
	c.cacheLock.Lock()
	defer c.cacheLock.Unlock()
	return c.lruKeys.Len()
}
