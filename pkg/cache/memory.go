package cache

import (
	"context"
	"sync"
	"time"
)

const backendMemory = "memory"

// sweepInterval bounds how often Put scans for expired entries.
const sweepInterval = time.Minute

// MemoryStore is an in-process Store. It is used for single-instance
// deployments and tests; RedisStore is the shared backend.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*Entry
	tags    map[string]map[string]struct{} // tag -> keys
	now     func() time.Time

	lastSweep time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return NewMemoryStoreWithClock(time.Now)
}

// NewMemoryStoreWithClock creates an in-memory store that reads time from now.
func NewMemoryStoreWithClock(now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{
		entries:   make(map[string]*Entry),
		tags:      make(map[string]map[string]struct{}),
		now:       now,
		lastSweep: now(),
	}
}

// Get retrieves an entry. Expired entries are evicted lazily.
func (s *MemoryStore) Get(_ context.Context, key string) (*Entry, error) {
	s.mu.RLock()
	entry, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok {
		CacheMisses.WithLabelValues(backendMemory).Inc()
		return nil, ErrCacheMiss
	}

	if entry.ExpiredAt(s.now()) {
		s.mu.Lock()
		// Re-check: the entry may have been replaced meanwhile
		if current, ok := s.entries[key]; ok && current == entry {
			s.removeLocked(key)
		}
		s.mu.Unlock()
		CacheMisses.WithLabelValues(backendMemory).Inc()
		return nil, ErrCacheMiss
	}

	CacheHits.WithLabelValues(backendMemory).Inc()
	return cloneEntry(entry), nil
}

// Put stores an entry. An entry already past its expiry is not stored and
// removes whatever the key held before.
func (s *MemoryStore) Put(_ context.Context, key string, entry *Entry) error {
	if entry == nil {
		CacheErrors.WithLabelValues(backendMemory, "put").Inc()
		return ErrInvalidEntry
	}

	now := s.now()
	if entry.ExpiredAt(now) {
		s.mu.Lock()
		s.removeLocked(key)
		s.mu.Unlock()
		return nil
	}

	stored := cloneEntry(entry)

	s.mu.Lock()
	s.sweepLocked(now)
	s.removeLocked(key)
	s.entries[key] = stored
	for _, tag := range stored.Tags {
		keys, ok := s.tags[tag]
		if !ok {
			keys = make(map[string]struct{})
			s.tags[tag] = keys
		}
		keys[key] = struct{}{}
	}
	s.mu.Unlock()

	CacheStored.WithLabelValues(backendMemory).Inc()
	return nil
}

// InvalidateTags removes every entry carrying any of the tags under a
// single write lock.
func (s *MemoryStore) InvalidateTags(_ context.Context, tags []string) error {
	if err := validateTags(tags); err != nil {
		CacheErrors.WithLabelValues(backendMemory, "invalidate").Inc()
		return err
	}

	removed := 0
	s.mu.Lock()
	for _, tag := range tags {
		for key := range s.tags[tag] {
			if s.removeLocked(key) {
				removed++
			}
		}
		delete(s.tags, tag)
	}
	s.mu.Unlock()

	CacheInvalidated.WithLabelValues(backendMemory).Add(float64(removed))
	return nil
}

// Delete removes a single entry. Idempotent - no error on miss.
func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	s.removeLocked(key)
	s.mu.Unlock()
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// removeLocked drops an entry and its tag index references.
// Must be called with the write lock held.
func (s *MemoryStore) removeLocked(key string) bool {
	entry, ok := s.entries[key]
	if !ok {
		return false
	}
	delete(s.entries, key)
	for _, tag := range entry.Tags {
		if keys, ok := s.tags[tag]; ok {
			delete(keys, key)
			if len(keys) == 0 {
				delete(s.tags, tag)
			}
		}
	}
	return true
}

// sweepLocked drops every expired entry, at most once per sweepInterval.
// Keys that are never read again would otherwise stay until invalidated.
// Must be called with the write lock held.
func (s *MemoryStore) sweepLocked(now time.Time) {
	if now.Sub(s.lastSweep) < sweepInterval {
		return
	}
	s.lastSweep = now
	for key, entry := range s.entries {
		if entry.ExpiredAt(now) {
			s.removeLocked(key)
		}
	}
}

// cloneEntry copies an entry so callers cannot mutate stored state.
func cloneEntry(e *Entry) *Entry {
	c := *e
	c.Data = append([]byte(nil), e.Data...)
	c.Headers = e.Headers.Clone()
	c.Tags = append([]string(nil), e.Tags...)
	return &c
}

var _ Store = (*MemoryStore)(nil)
