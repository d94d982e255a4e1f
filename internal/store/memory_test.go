package store

import (
	"errors"
	"testing"
	"time"

	"github.com/i474232898/pirateweather/internal/weather"
)

func TestMemoryStoreRetentionByCount(t *testing.T) {
	s := NewMemoryStore(2, 0)
	loc := weather.Location{Latitude: 10, Longitude: 20}
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		s.Save(loc, weather.Snapshot{Timestamp: base.Add(time.Duration(i) * time.Hour), Temperature: float64(i)})
	}

	latest, err := s.Latest(loc.Key())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if latest.Temperature != 2 {
		t.Errorf("latest temperature = %v, want 2", latest.Temperature)
	}

	all, err := s.Range(loc.Key(), base, base.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(all) != 2 || all[0].Temperature != 1 {
		t.Errorf("range = %+v, want the two newest snapshots", all)
	}
}

func TestMemoryStoreRetentionByAge(t *testing.T) {
	now := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	s := NewMemoryStore(0, time.Hour)
	s.now = func() time.Time { return now }
	loc := weather.Location{Latitude: 1, Longitude: 2}

	s.Save(loc, weather.Snapshot{Timestamp: now.Add(-3 * time.Hour)})
	s.Save(loc, weather.Snapshot{Timestamp: now.Add(-2 * time.Hour)})
	if got, _ := s.Range(loc.Key(), time.Time{}, now); len(got) != 1 {
		t.Errorf("stale history should keep only the newest snapshot, got %d", len(got))
	}

	s.Save(loc, weather.Snapshot{Timestamp: now.Add(-time.Minute)})
	got, _ := s.Range(loc.Key(), time.Time{}, now)
	if len(got) != 1 || !got[0].Timestamp.Equal(now.Add(-time.Minute)) {
		t.Errorf("range = %+v, want only the fresh snapshot", got)
	}
}

func TestMemoryStoreNotFound(t *testing.T) {
	s := NewMemoryStore(10, time.Hour)
	if _, err := s.Latest("pw-0.0-0.0"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Latest error = %v, want ErrNotFound", err)
	}
	if _, err := s.Range("pw-0.0-0.0", time.Time{}, time.Now()); !errors.Is(err, ErrNotFound) {
		t.Errorf("Range error = %v, want ErrNotFound", err)
	}
}
