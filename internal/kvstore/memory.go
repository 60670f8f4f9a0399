package kvstore

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"
)

type memoryEntry struct {
	value     string
	counter   int64
	isCounter bool
	expiresAt time.Time // zero means no expiry
}

type memorySet struct {
	members   map[string]struct{}
	expiresAt time.Time
}

// MemoryStore is an in-process Store. Expiry is lazy: every read checks the
// entry's deadline, and Sweep reclaims whatever reads never touch.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]*memoryEntry
	sets map[string]*memorySet

	// Now is injectable for tests that simulate clock advance.
	Now func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string]*memoryEntry),
		sets: make(map[string]*memorySet),
		Now:  time.Now,
	}
}

func (s *MemoryStore) expired(deadline time.Time) bool {
	return !deadline.IsZero() && deadline.Before(s.Now())
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	e, ok := s.data[key]
	s.mu.RUnlock()
	if !ok || s.expired(e.expiresAt) {
		return "", false, nil
	}
	if e.isCounter {
		return strconv.FormatInt(e.counter, 10), true, nil
	}
	return e.value, true, nil
}

func (s *MemoryStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := &memoryEntry{value: value}
	if ttl > 0 {
		e.expiresAt = s.Now().Add(ttl)
	}
	s.data[key] = e
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	delete(s.sets, key)
	return nil
}

func (s *MemoryStore) Incr(_ context.Context, key string, ttl time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.data[key]
	if !ok || s.expired(e.expiresAt) {
		e = &memoryEntry{isCounter: true}
		if ttl > 0 {
			e.expiresAt = s.Now().Add(ttl)
		}
		s.data[key] = e
	}
	e.counter++
	return e.counter, nil
}

func (s *MemoryStore) Decr(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.data[key]
	if !ok || s.expired(e.expiresAt) || !e.isCounter {
		return 0, nil
	}
	if e.counter > 0 {
		e.counter--
	}
	return e.counter, nil
}

func (s *MemoryStore) TTL(_ context.Context, key string) (time.Duration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.data[key]
	if !ok || e.expiresAt.IsZero() || s.expired(e.expiresAt) {
		return 0, nil
	}
	return e.expiresAt.Sub(s.Now()), nil
}

func (s *MemoryStore) SAdd(_ context.Context, key, member string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.sets[key]
	if !ok || s.expired(set.expiresAt) {
		set = &memorySet{members: make(map[string]struct{})}
		if ttl > 0 {
			set.expiresAt = s.Now().Add(ttl)
		}
		s.sets[key] = set
	}
	set.members[member] = struct{}{}
	return nil
}

func (s *MemoryStore) SCard(_ context.Context, key string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	set, ok := s.sets[key]
	if !ok || s.expired(set.expiresAt) {
		return 0, nil
	}
	return int64(len(set.members)), nil
}

func (s *MemoryStore) SMembers(_ context.Context, key string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	set, ok := s.sets[key]
	if !ok || s.expired(set.expiresAt) {
		return nil, nil
	}
	members := make([]string, 0, len(set.members))
	for m := range set.members {
		members = append(members, m)
	}
	return members, nil
}

func (s *MemoryStore) Keys(_ context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var keys []string
	for k, e := range s.data {
		if strings.HasPrefix(k, prefix) && !s.expired(e.expiresAt) {
			keys = append(keys, k)
		}
	}
	for k, set := range s.sets {
		if strings.HasPrefix(k, prefix) && !s.expired(set.expiresAt) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

// Sweep drops expired entries. The scan works on a snapshot of keys so the
// write lock is taken per key, not for the whole table.
func (s *MemoryStore) Sweep() int {
	s.mu.RLock()
	var stale []string
	for k, e := range s.data {
		if s.expired(e.expiresAt) {
			stale = append(stale, k)
		}
	}
	var staleSets []string
	for k, set := range s.sets {
		if s.expired(set.expiresAt) {
			staleSets = append(staleSets, k)
		}
	}
	s.mu.RUnlock()

	removed := 0
	for _, k := range stale {
		s.mu.Lock()
		if e, ok := s.data[k]; ok && s.expired(e.expiresAt) {
			delete(s.data, k)
			removed++
		}
		s.mu.Unlock()
	}
	for _, k := range staleSets {
		s.mu.Lock()
		if set, ok := s.sets[k]; ok && s.expired(set.expiresAt) {
			delete(s.sets, k)
			removed++
		}
		s.mu.Unlock()
	}
	return removed
}
