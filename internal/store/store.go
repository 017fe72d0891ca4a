package store

import (
	"sort"
	"sync"

	"github.com/raffaelramalhorosa/folio-api/internal/models"
)

const defaultHistory = 20

// Store keeps the latest probe record per integration plus a bounded
// history. All public methods are safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	limit   int
	latest  map[string]models.ProbeRecord
	history map[string][]models.ProbeRecord // oldest first
}

// New creates an empty Store keeping up to limit records per probe.
func New(limit int) *Store {
	if limit <= 0 {
		limit = defaultHistory
	}
	return &Store{
		limit:   limit,
		latest:  make(map[string]models.ProbeRecord),
		history: make(map[string][]models.ProbeRecord),
	}
}

// Save records a probe outcome, evicting the oldest history entry when the
// per-probe limit is reached.
func (s *Store) Save(rec models.ProbeRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.latest[rec.Name] = rec

	h := append(s.history[rec.Name], rec)
	if len(h) > s.limit {
		h = append([]models.ProbeRecord(nil), h[len(h)-s.limit:]...)
	}
	s.history[rec.Name] = h
}

// Latest returns the most recent record per probe, sorted by name.
func (s *Store) Latest() []models.ProbeRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.ProbeRecord, 0, len(s.latest))
	for _, r := range s.latest {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Name < out[j].Name
	})
	return out
}

// History returns up to limit records for a probe, newest first.
// limit <= 0 means everything kept.
func (s *Store) History(name string, limit int) []models.ProbeRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h := s.history[name]
	out := make([]models.ProbeRecord, 0, len(h))
	for i := len(h) - 1; i >= 0; i-- {
		out = append(out, h[i])
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
