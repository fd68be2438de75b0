package registry

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
)

// ErrInvalidEntry is returned by [Registry.Load] when the supplied entries
// violate a structural invariant (duplicate ID, empty pattern list, unknown
// kind). The previous snapshot stays published.
var ErrInvalidEntry = errors.New("registry: invalid entry")

func errInvalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidEntry, fmt.Sprintf(format, args...))
}

// Snapshot is an immutable, versioned view of the command registry. All
// methods are safe for concurrent use; a Snapshot never changes after
// publication.
type Snapshot struct {
	version uint64
	byID    map[string]CommandEntry
	order   []string
}

// Version returns the snapshot's version number. Versions increase
// monotonically across loads on the same registry.
func (s *Snapshot) Version() uint64 { return s.version }

// Len returns the number of entries in the snapshot.
func (s *Snapshot) Len() int { return len(s.order) }

// Entry returns the entry with the given ID. ok is false when the entry does
// not exist in this snapshot — after a reload that removed it, callers must
// treat that as a stale match, not an error.
func (s *Snapshot) Entry(id string) (CommandEntry, bool) {
	e, ok := s.byID[id]
	return e, ok
}

// Entries returns all entries in insertion order. The returned slice is
// freshly allocated; the snapshot itself stays immutable.
func (s *Snapshot) Entries() []CommandEntry {
	out := make([]CommandEntry, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id])
	}
	return out
}

// Registry publishes command entry snapshots. Reads ([Registry.Current]) are
// a single atomic pointer load and never block; loads are serialized by a
// mutex so version numbers stay strictly increasing.
type Registry struct {
	mu      sync.Mutex
	current atomic.Pointer[Snapshot]
}

// New returns a Registry whose current snapshot is empty, at version 0.
func New() *Registry {
	r := &Registry{}
	r.current.Store(&Snapshot{version: 0, byID: map[string]CommandEntry{}})
	return r
}

// Load validates entries, normalizes their patterns, and publishes a new
// snapshot with the next version number. On validation failure it returns an
// error wrapping [ErrInvalidEntry] and leaves the current snapshot untouched.
//
// In-flight matching passes keep the snapshot they started with; only
// subsequent [Registry.Current] calls observe the new one.
func (r *Registry) Load(entries []CommandEntry) (*Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev := r.current.Load()
	next := &Snapshot{
		version: prev.version + 1,
		byID:    make(map[string]CommandEntry, len(entries)),
		order:   make([]string, 0, len(entries)),
	}

	for _, e := range entries {
		if err := e.Validate(); err != nil {
			return nil, err
		}
		if _, dup := next.byID[e.ID]; dup {
			return nil, errInvalid("duplicate entry id %q", e.ID)
		}

		normalized := make([]string, len(e.Patterns))
		for i, p := range e.Patterns {
			np := Normalize(p)
			if np == "" {
				return nil, errInvalid("entry %q pattern %q normalizes to empty", e.ID, p)
			}
			normalized[i] = np
		}
		e.Patterns = normalized

		next.byID[e.ID] = e
		next.order = append(next.order, e.ID)
	}

	r.current.Store(next)
	slog.Info("registry: snapshot published",
		"version", next.version,
		"entries", len(next.order),
	)
	return next, nil
}

// Current returns the latest published snapshot. It never blocks, including
// while a Load is in progress.
func (r *Registry) Current() *Snapshot {
	return r.current.Load()
}
