package core

import (
	"strings"
	"sync"
)

// KeyedMutex serializes the dedup-check-and-append phase per
// (event id, idempotency key) so concurrent duplicate deliveries cannot both
// conclude "novel". Cross-key runs proceed independently.
type KeyedMutex struct {
	mu      sync.Mutex
	entries map[string]*keyLockEntry
}

type keyLockEntry struct {
	mu   sync.Mutex
	refs int
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{
		entries: map[string]*keyLockEntry{},
	}
}

// Lock blocks until the key is held and returns the matching unlock func.
// Entries are dropped once the last holder releases, so the map stays
// bounded by in-flight keys.
func (k *KeyedMutex) Lock(key string) func() {
	if k == nil {
		return func() {}
	}
	key = strings.TrimSpace(key)

	k.mu.Lock()
	entry, ok := k.entries[key]
	if !ok {
		entry = &keyLockEntry{}
		k.entries[key] = entry
	}
	entry.refs++
	k.mu.Unlock()

	entry.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			entry.mu.Unlock()
			k.mu.Lock()
			entry.refs--
			if entry.refs <= 0 {
				delete(k.entries, key)
			}
			k.mu.Unlock()
		})
	}
}

// LockKey builds the serialization key for one event resolution.
func LockKey(eventID string, idempotencyKey string) string {
	return strings.TrimSpace(eventID) + "::" + strings.TrimSpace(idempotencyKey)
}
