package store

import (
	"errors"
	"sync"
	"time"

	"github.com/i474232898/pirateweather/internal/weather"
)

var (
	// ErrNotFound is returned when no snapshot is available for a location key.
	ErrNotFound = errors.New("no weather data for location")
)

// MemoryStore is a concurrency-safe in-memory history of coordinator
// snapshots, keyed by location key.
type MemoryStore struct {
	mu sync.RWMutex

	// key: location key, value: time-ordered snapshots
	data map[string][]weather.Snapshot

	maxHistory int           // max number of snapshots per location
	maxAge     time.Duration // optional max age for snapshots
	now        func() time.Time
}

// NewMemoryStore creates a new MemoryStore with optional limits.
// If maxHistory is <= 0, it is treated as unlimited.
func NewMemoryStore(maxHistory int, maxAge time.Duration) *MemoryStore {
	return &MemoryStore{
		data:       make(map[string][]weather.Snapshot),
		maxHistory: maxHistory,
		maxAge:     maxAge,
		now:        time.Now,
	}
}

// Save appends a snapshot for loc and enforces retention.
func (s *MemoryStore) Save(loc weather.Location, snapshot weather.Snapshot) {
	key := loc.Key()

	s.mu.Lock()
	defer s.mu.Unlock()

	history := append(s.data[key], snapshot)

	if s.maxHistory > 0 && len(history) > s.maxHistory {
		history = history[len(history)-s.maxHistory:]
	}

	if s.maxAge > 0 {
		cutoff := s.now().Add(-s.maxAge)
		i := 0
		for i < len(history) && history[i].Timestamp.Before(cutoff) {
			i++
		}
		// Always keep the newest snapshot, even when it is stale.
		if i == len(history) {
			i = len(history) - 1
		}
		history = history[i:]
	}

	s.data[key] = history
}

// Latest returns the most recent snapshot for a location key.
func (s *MemoryStore) Latest(key string) (weather.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := s.data[key]
	if len(history) == 0 {
		return weather.Snapshot{}, ErrNotFound
	}
	return history[len(history)-1], nil
}

// Range returns all snapshots for a location key between from and to (inclusive).
func (s *MemoryStore) Range(key string, from, to time.Time) ([]weather.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []weather.Snapshot
	for _, snap := range s.data[key] {
		if !snap.Timestamp.Before(from) && !snap.Timestamp.After(to) {
			result = append(result, snap)
		}
	}

	if len(result) == 0 {
		return nil, ErrNotFound
	}
	return result, nil
}
