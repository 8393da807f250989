package ingestion

import (
	"container/list"
)

// RedeliveryFilter drops exact redeliveries of already applied logs. Keys
// are event idempotency keys (blockHash:logIndex). Only keys of events the
// core applied successfully are remembered, so a failed event is retried.
//
// Not safe for concurrent use; the pipeline owns it.
type RedeliveryFilter struct {
	lru *KeyLRU
}

func NewRedeliveryFilter(capacity int) *RedeliveryFilter {
	return &RedeliveryFilter{lru: NewKeyLRU(capacity)}
}

// Seen reports whether key was applied recently.
func (f *RedeliveryFilter) Seen(key string) bool {
	return f.lru.Contains(key)
}

// MarkApplied remembers key after successful processing.
func (f *RedeliveryFilter) MarkApplied(key string) {
	f.lru.Add(key)
}

func (f *RedeliveryFilter) Size() int {
	return f.lru.Size()
}

func (f *RedeliveryFilter) Evictions() int64 {
	return f.lru.Evictions()
}

// --- LRU Implementation ---

// KeyLRU is a fixed-capacity LRU set of string keys. A capacity of zero or
// less keeps nothing.
type KeyLRU struct {
	capacity int
	cache    map[string]*list.Element
	lruList  *list.List

	evictions int64
}

func NewKeyLRU(capacity int) *KeyLRU {
	if capacity < 0 {
		capacity = 0
	}
	return &KeyLRU{
		capacity: capacity,
		cache:    make(map[string]*list.Element, capacity),
		lruList:  list.New(),
	}
}

// Contains checks if key exists (promotes to front)
func (lru *KeyLRU) Contains(key string) bool {
	elem, exists := lru.cache[key]
	if exists {
		lru.lruList.MoveToFront(elem)
		return true
	}
	return false
}

// Add inserts a key (or promotes if exists)
func (lru *KeyLRU) Add(key string) {
	if lru.capacity == 0 {
		return
	}
	if elem, exists := lru.cache[key]; exists {
		lru.lruList.MoveToFront(elem)
		return
	}

	elem := lru.lruList.PushFront(key)
	lru.cache[key] = elem

	if lru.lruList.Len() > lru.capacity {
		lru.evictOldest()
	}
}

func (lru *KeyLRU) evictOldest() {
	elem := lru.lruList.Back()
	if elem != nil {
		lru.lruList.Remove(elem)
		delete(lru.cache, elem.Value.(string))
		lru.evictions++
	}
}

// Size returns current number of entries
func (lru *KeyLRU) Size() int {
	return lru.lruList.Len()
}

// Evictions returns total evictions (for metrics)
func (lru *KeyLRU) Evictions() int64 {
	return lru.evictions
}
