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
	"sync"
	"testing"
)

func TestWrongCapacity(t *testing.T) {
	for _, capacity := range []int{-1, 0} {
		_, err := NewLRUCache[int, string](capacity)
		if err == nil {
			t.Fatalf("expected \"capacity must be a positive integer\" error, not nil\n")
		}
	}
}

func TestCRUD(t *testing.T) {
	cache, err := NewLRUCache[int, string](2)
	if err != nil {
		t.Fatalf("expected nil error, not \"%s\"\n", err.Error())
	}

	for key, values := range map[int][]string{
		1: {"test", "test2"},
		2: {"tests", "tests2"},
	} {
		firstValue, secondValue := values[0], values[1]
		cache.Put(key, firstValue)
		readValue, ok := cache.Get(key)
		if !ok {
			t.Fatalf("expected to find key \"%v\"\n", key)
		}
		if readValue != firstValue {
			t.Fatalf("expected to find value \"%v\", not \"%v\"\n", firstValue, readValue)
		}
		cache.Put(key, secondValue)
		readValue, ok = cache.Get(key)
		if !ok {
			t.Fatalf("expected to find key \"%v\"\n", key)
		}
		if readValue != secondValue {
			t.Fatalf("expected to find value \"%v\", not \"%v\"\n", secondValue, readValue)
		}
	}
	if cache.Len() != 2 {
		t.Fatalf("expected 2 entries, found %d\n", cache.Len())
	}
}

func TestMaxCapacity(t *testing.T) {
	cache, err := NewLRUCache[int, string](2)
	if err != nil {
		t.Fatalf("expected nil error, not \"%s\"\n", err.Error())
	}

	cache.Put(1, "test1")
	cache.Put(2, "test2")
	cache.Put(3, "test3")

	_, ok := cache.Get(1)
	if ok {
		t.Fatalf("not expected to find key 1\n")
	}
	_, ok = cache.Get(2)
	if !ok {
		t.Fatalf("expected to find key 2\n")
	}
	_, ok = cache.Get(3)
	if !ok {
		t.Fatalf("expected to find key 3\n")
	}
	if cache.Len() != 2 {
		t.Fatalf("expected 2 entries, found %d\n", cache.Len())
	}
}

func TestMaxCapacityWithGet(t *testing.T) {
	cache, err := NewLRUCache[int, string](2)
	if err != nil {
		t.Fatalf("expected nil error, not \"%s\"\n", err.Error())
	}

	cache.Put(1, "test1")
	cache.Put(2, "test2")
	_, ok := cache.Get(1)
	if !ok {
		t.Fatalf("expected value \"test1\" not found for key 1\n")
	}
	cache.Put(3, "test3")

	_, ok = cache.Get(1)
	if !ok {
		t.Fatalf("expected to find key 1\n")
	}
	_, ok = cache.Get(2)
	if ok {
		t.Fatalf("not expected to find key 2\n")
	}
	_, ok = cache.Get(3)
	if !ok {
		t.Fatalf("expected to find key 3\n")
	}
}

func TestEvictionKeepsIndexConsistent(t *testing.T) {
	cache, err := NewLRUCache[int, int](1)
	if err != nil {
		t.Fatalf("expected nil error, not \"%s\"\n", err.Error())
	}
	for i := 0; i < 10; i++ {
		cache.Put(i, i*i)
	}
	if cache.Len() != 1 {
		t.Fatalf("expected 1 entry, found %d\n", cache.Len())
	}
	if v, ok := cache.Get(9); !ok || v != 81 {
		t.Fatalf("expected key 9 to survive, found %v (%v)\n", v, ok)
	}
	if _, ok := cache.Get(8); ok {
		t.Fatalf("not expected to find key 8\n")
	}
}

func TestConcurrentAccess(t *testing.T) {
	cache, err := NewLRUCache[int, int](16)
	if err != nil {
		t.Fatalf("expected nil error, not \"%s\"\n", err.Error())
	}
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				cache.Put(g*100+i, i)
				cache.Get(i)
			}
		}(g)
	}
	wg.Wait()
	if cache.Len() != 16 {
		t.Fatalf("expected 16 entries, found %d\n", cache.Len())
	}
}

func TestMapCache(t *testing.T) {
	cache := NewMapCache[string, int]()
	cache.Put("a", 1)
	cache.Put("b", 2)
	if v, ok := cache.Get("a"); !ok || v != 1 {
		t.Fatalf("expected a=1, found %v (%v)\n", v, ok)
	}
	cache.Put("a", 3)
	if v, ok := cache.Get("a"); !ok || v != 3 {
		t.Fatalf("expected a=3, found %v (%v)\n", v, ok)
	}
	if _, ok := cache.Get("c"); ok {
		t.Fatalf("not expected to find key c\n")
	}
	if cache.Len() != 2 {
		t.Fatalf("expected 2 entries, found %d\n", cache.Len())
	}
}
