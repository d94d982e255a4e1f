package weather

import (
	"context"
	"time"
)

// Provider abstracts the forecast API a coordinator polls.
type Provider interface {
	Name() string
	Fetch(ctx context.Context, apiKey string, loc Location) (Forecast, error)
}

// SnapshotStore is the contract the history store must satisfy.
type SnapshotStore interface {
	Save(loc Location, snapshot Snapshot)
	Latest(key string) (Snapshot, error)
	Range(key string, from, to time.Time) ([]Snapshot, error)
}
