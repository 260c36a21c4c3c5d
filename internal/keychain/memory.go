package keychain

import (
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
)

type memoryEntry struct {
	account string
	secret  []byte
	trusted []string
}

// MemoryStore is an in-memory implementation of Store for testing.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

// NewMemoryStore creates a new in-memory credential store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry)}
}

func (s *MemoryStore) Save(id, host, user string, secret []byte, trustedPaths []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[entryKey(id, host)] = memoryEntry{
		account: user,
		secret:  slices.Clone(secret),
		trusted: slices.Clone(trustedPaths),
	}
	return nil
}

func (s *MemoryStore) Get(id, host string) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[entryKey(id, host)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, entryKey(id, host))
	}
	return &Entry{Account: e.account, Secret: slices.Clone(e.secret)}, nil
}

func (s *MemoryStore) Delete(id, host string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := entryKey(id, host)
	if _, ok := s.entries[key]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	delete(s.entries, key)
	return nil
}

func (s *MemoryStore) List(id string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	prefix := id + "/"
	var hosts []string
	for k := range s.entries {
		if host, ok := strings.CutPrefix(k, prefix); ok {
			hosts = append(hosts, host)
		}
	}
	sort.Strings(hosts)
	return hosts, nil
}

// TrustedPaths returns the trusted application paths recorded with an entry.
// A nil result means the entry was saved with the store default policy.
func (s *MemoryStore) TrustedPaths(id, host string) ([]string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[entryKey(id, host)]
	if !ok {
		return nil, false
	}
	return slices.Clone(e.trusted), true
}
