// Package memory provides an in-memory store for development and tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jobwatch/jobwatch/internal/listing"
	"github.com/jobwatch/jobwatch/internal/store"
)

// Store keeps listings in a map keyed by job_id.
type Store struct {
	mu   sync.RWMutex
	rows map[string]listing.Listing

	// nowFn is swapped out in tests to pin timestamps.
	nowFn func() time.Time
}

// New constructs an empty Store.
func New() *Store {
	return &Store{
		rows:  make(map[string]listing.Listing),
		nowFn: func() time.Time { return time.Now().UTC() },
	}
}

// SetNowFunc overrides the clock. Test hook.
func (s *Store) SetNowFunc(fn func() time.Time) {
	s.nowFn = fn
}

// Upsert implements store.Store.
func (s *Store) Upsert(_ context.Context, listings []listing.Listing) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	written := 0
	now := s.nowFn()
	for _, l := range listings {
		if l.JobID == "" {
			continue
		}
		if existing, ok := s.rows[l.JobID]; ok {
			l.CreatedAt = existing.CreatedAt
		} else {
			l.CreatedAt = now
		}
		l.UpdatedAt = now
		s.rows[l.JobID] = l
		written++
	}
	return written, nil
}

// Search implements store.Store.
func (s *Store) Search(_ context.Context, f store.Filter) ([]listing.Listing, error) {
	s.mu.RLock()
	matched := make([]listing.Listing, 0, len(s.rows))
	for _, l := range s.rows {
		if f.Keyword != "" && !containsFold(l.JobName, f.Keyword) {
			continue
		}
		if f.Company != "" && !containsFold(l.CustName, f.Company) {
			continue
		}
		matched = append(matched, l)
	}
	s.mu.RUnlock()

	sortNewestFirst(matched)
	return window(matched, f.Limit, f.Offset), nil
}

// Recent implements store.Store.
func (s *Store) Recent(_ context.Context, days int) ([]listing.Listing, error) {
	cutoff := s.nowFn().AddDate(0, 0, -days)

	s.mu.RLock()
	matched := make([]listing.Listing, 0, len(s.rows))
	for _, l := range s.rows {
		if !l.CreatedAt.Before(cutoff) {
			matched = append(matched, l)
		}
	}
	s.mu.RUnlock()

	sortNewestFirst(matched)
	return matched, nil
}

// Count implements store.Store.
func (s *Store) Count(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.rows)), nil
}

// PurgeOlderThan implements store.Store.
func (s *Store) PurgeOlderThan(_ context.Context, days int) (int64, error) {
	cutoff := s.nowFn().AddDate(0, 0, -days)

	s.mu.Lock()
	defer s.mu.Unlock()
	var deleted int64
	for id, l := range s.rows {
		if l.CreatedAt.Before(cutoff) {
			delete(s.rows, id)
			deleted++
		}
	}
	return deleted, nil
}

// Close implements store.Store.
func (s *Store) Close() error { return nil }

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func sortNewestFirst(rows []listing.Listing) {
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].CreatedAt.After(rows[j].CreatedAt)
	})
}

func window(rows []listing.Listing, limit, offset int) []listing.Listing {
	if offset >= len(rows) {
		return nil
	}
	rows = rows[offset:]
	if limit > 0 && limit < len(rows) {
		rows = rows[:limit]
	}
	return rows
}
