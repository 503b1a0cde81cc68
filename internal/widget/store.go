package widget

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Store maps option-set ids to their options. Predefined sets and cached
// remote results share one map, so a predefined id always shadows the
// remote set of the same name. Entries are never evicted.
type Store struct {
	mu      sync.RWMutex
	sets    map[string][]Option
	fetcher Fetcher
	report  ReportFunc
}

// NewStore seeds the store with predefined sets. fetcher may be nil.
func NewStore(predefined map[string][]Option, fetcher Fetcher, report ReportFunc) *Store {
	if report == nil {
		report = logReport
	}
	s := &Store{
		sets:    make(map[string][]Option, len(predefined)),
		fetcher: fetcher,
		report:  report,
	}
	for id, opts := range predefined {
		s.sets[id] = cloneOptions(opts)
	}
	return s
}

func (s *Store) Lookup(setID string) ([]Option, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	opts, ok := s.sets[setID]
	if !ok {
		return nil, false
	}
	return cloneOptions(opts), true
}

// Resolve returns the options for setID, consulting the remote fetcher on a
// local miss and caching its result. Any failure yields an empty list.
func (s *Store) Resolve(ctx context.Context, setID string) []Option {
	if opts, ok := s.Lookup(setID); ok {
		return opts
	}

	s.mu.RLock()
	fetcher := s.fetcher
	s.mu.RUnlock()

	if fetcher == nil {
		slog.Warn("options: no options for id", "set_id", setID)
		return []Option{}
	}

	opts, err := fetcher.Fetch(ctx, setID)
	if err != nil {
		s.report(fmt.Errorf("%w: %w", ErrResolution, err))
		return []Option{}
	}

	s.Put(setID, opts)
	return cloneOptions(opts)
}

// Put overwrites any existing entry for setID.
func (s *Store) Put(setID string, opts []Option) {
	s.mu.Lock()
	s.sets[setID] = cloneOptions(opts)
	s.mu.Unlock()
}

func (s *Store) Remove(setID string) {
	s.mu.Lock()
	delete(s.sets, setID)
	s.mu.Unlock()
}

func (s *Store) SetFetcher(f Fetcher) {
	s.mu.Lock()
	s.fetcher = f
	s.mu.Unlock()
}
