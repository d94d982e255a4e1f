package weather

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ErrNoData is returned by Data before the first successful refresh.
var ErrNoData = errors.New("no forecast data yet")

// Coordinator polls one location and caches the latest forecast for every
// entity reading from it.
type Coordinator struct {
	provider Provider
	store    SnapshotStore
	logger   *slog.Logger

	apiKey   string
	loc      Location
	interval time.Duration

	// refreshMu serialises fetches so concurrent callers never overlap.
	refreshMu sync.Mutex

	mu         sync.RWMutex
	data       *Forecast
	lastUpdate time.Time
	lastErr    error
	listeners  map[int]func()
	nextID     int
}

// NewCoordinator creates a coordinator. store may be nil.
func NewCoordinator(provider Provider, store SnapshotStore, logger *slog.Logger, apiKey string, loc Location, interval time.Duration) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		provider:  provider,
		store:     store,
		logger:    logger.With("location", loc.Key()),
		apiKey:    apiKey,
		loc:       loc,
		interval:  interval,
		listeners: make(map[int]func()),
	}
}

// Location returns the polled location.
func (c *Coordinator) Location() Location { return c.loc }

// Interval returns the polling interval.
func (c *Coordinator) Interval() time.Duration { return c.interval }

// Refresh fetches a new forecast. On failure the last good forecast is kept
// and the error is returned.
func (c *Coordinator) Refresh(ctx context.Context) error {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	fc, err := c.provider.Fetch(ctx, c.apiKey, c.loc)

	c.mu.Lock()
	if err != nil {
		c.lastErr = err
		c.mu.Unlock()
		c.logger.Warn("forecast refresh failed", "provider", c.provider.Name(), "err", err)
		c.notify()
		return fmt.Errorf("refresh %s: %w", c.loc.Key(), err)
	}
	if fc.FetchedAt.IsZero() {
		fc.FetchedAt = time.Now().UTC()
	}
	c.data = &fc
	c.lastUpdate = fc.FetchedAt
	c.lastErr = nil
	c.mu.Unlock()

	if c.store != nil {
		c.store.Save(c.loc, SnapshotOf(fc))
	}
	c.logger.Debug("forecast refreshed", "provider", c.provider.Name())
	c.notify()
	return nil
}

// Data returns the latest successfully fetched forecast.
func (c *Coordinator) Data() (Forecast, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.data == nil {
		return Forecast{}, ErrNoData
	}
	return *c.data, nil
}

// LastUpdateSuccess reports whether the most recent refresh succeeded.
func (c *Coordinator) LastUpdateSuccess() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.data != nil && c.lastErr == nil
}

// LastUpdate returns when the cached forecast was fetched.
func (c *Coordinator) LastUpdate() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastUpdate
}

// AddListener registers fn to run after every refresh attempt.
func (c *Coordinator) AddListener(fn func()) (remove func()) {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.listeners, id)
			c.mu.Unlock()
		})
	}
}

func (c *Coordinator) notify() {
	c.mu.RLock()
	fns := make([]func(), 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.mu.RUnlock()

	for _, fn := range fns {
		fn()
	}
}
