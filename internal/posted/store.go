// Package posted is the durable record of identities that have already been notified.
package posted

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"econ-calendar-bot/internal/logger"
	"econ-calendar-bot/internal/types"
)

// ErrStorageCorrupt marks persisted state that cannot be decoded.
var ErrStorageCorrupt = errors.New("posted state corrupt")

// Backend persists one whole set per bucket.
type Backend interface {
	// Load returns the stored set, or nil when nothing was stored yet.
	Load(ctx context.Context, bucket string) ([]types.Identity, error)
	// Save overwrites the stored set.
	Save(ctx context.Context, bucket string, ids []types.Identity) error
	Name() string
}

// Store keeps the in-memory sets and serializes every commit, write included.
type Store struct {
	mu      sync.Mutex
	backend Backend
	sets    map[string]map[string]types.Identity
}

// New creates an empty store over backend.
func New(backend Backend) *Store {
	return &Store{
		backend: backend,
		sets:    make(map[string]map[string]types.Identity),
	}
}

// Load reads the persisted set of bucket, replacing whatever is in memory.
// On ErrStorageCorrupt (or any read failure) the bucket starts empty and the
// error is returned for the caller to report; the store stays usable.
func (s *Store) Load(ctx context.Context, bucket string) (int, error) {
	ids, err := s.backend.Load(ctx, bucket)

	s.mu.Lock()
	defer s.mu.Unlock()

	set := make(map[string]types.Identity, len(ids))
	if err == nil {
		for _, id := range ids {
			set[id.Key()] = id
		}
	}
	s.sets[bucket] = set

	if err != nil {
		return 0, fmt.Errorf("load %s from %s: %w", bucket, s.backend.Name(), err)
	}
	return len(set), nil
}

// LoadAll loads every bucket, logging and resetting those that fail.
func (s *Store) LoadAll(ctx context.Context, buckets []string) {
	for _, b := range buckets {
		n, err := s.Load(ctx, b)
		if err != nil {
			logger.Warn(ctx, "Posted state unreadable, starting bucket empty",
				"bucket", b, "backend", s.backend.Name(), "error", err)
			continue
		}
		logger.Info(ctx, "Posted state loaded", "bucket", b, "identities", n)
	}
}

// Contains reports whether id was already committed to bucket.
func (s *Store) Contains(bucket string, id types.Identity) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sets[bucket][id.Key()]
	return ok
}

// Commit adds id to bucket and synchronously persists the whole bucket.
// Repeat commits of the same identity are no-ops. A failed write keeps the
// identity in memory so this process will not notify it again.
func (s *Store) Commit(ctx context.Context, bucket string, id types.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.sets[bucket]
	if !ok {
		set = make(map[string]types.Identity)
		s.sets[bucket] = set
	}
	if _, dup := set[id.Key()]; dup {
		return nil
	}
	set[id.Key()] = append(types.Identity(nil), id...)

	if err := s.backend.Save(ctx, bucket, snapshot(set)); err != nil {
		return fmt.Errorf("persist %s to %s: %w", bucket, s.backend.Name(), err)
	}
	return nil
}

// Size returns the number of identities held for bucket.
func (s *Store) Size(bucket string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sets[bucket])
}

// snapshot orders set by key so saved files diff cleanly.
func snapshot(set map[string]types.Identity) []types.Identity {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]types.Identity, 0, len(keys))
	for _, k := range keys {
		out = append(out, set[k])
	}
	return out
}
