// Package mock provides a scripted phrase store for tests.
package mock

import (
	"context"
	"sync"

	"github.com/openlaudos/dictate/internal/registry"
	"github.com/openlaudos/dictate/internal/registry/phrasestore"
)

// Store returns a scripted entry list. Safe for concurrent use; tests may
// swap Entries or Err between calls via the setters.
type Store struct {
	mu sync.Mutex

	// Entries are returned by ListEntries.
	Entries []registry.CommandEntry

	// Err, when non-nil, is returned by ListEntries instead.
	Err error

	listCalls int
}

var _ phrasestore.Store = (*Store)(nil)

// ListEntries returns a copy of Entries, or Err.
func (s *Store) ListEntries(context.Context) ([]registry.CommandEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listCalls++
	if s.Err != nil {
		return nil, s.Err
	}
	out := make([]registry.CommandEntry, len(s.Entries))
	copy(out, s.Entries)
	return out, nil
}

// SetEntries replaces the scripted entry list.
func (s *Store) SetEntries(entries []registry.CommandEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Entries = entries
	s.Err = nil
}

// SetErr makes subsequent ListEntries calls fail with err.
func (s *Store) SetErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Err = err
}

// ListCalls returns how many times ListEntries was called.
func (s *Store) ListCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listCalls
}

// Close implements phrasestore.Store.
func (s *Store) Close() error { return nil }
