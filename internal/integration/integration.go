// Package integration implements the entry points the host calls for each
// Pirate Weather config entry: setup, unload and options updates.
package integration

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/i474232898/pirateweather/internal/entry"
	"github.com/i474232898/pirateweather/internal/registry"
	"github.com/i474232898/pirateweather/internal/weather"
)

const (
	Domain      = "pirateweather"
	Attribution = "Powered by Pirate Weather"
)

// Host is the part of the home-automation host the integration calls into.
type Host interface {
	// HomeLocation is used when an entry has no coordinates of its own.
	HomeLocation() (lat, lon float64)
	ForwardEntrySetups(ctx context.Context, e *entry.Entry, platforms []entry.Platform) error
	UnloadPlatforms(ctx context.Context, e *entry.Entry, platforms []entry.Platform) (bool, error)
	Reload(ctx context.Context, entryID string) error
	AddUpdateListener(e *entry.Entry, l entry.UpdateListener) (remove func())
}

// Poller keeps a coordinator refreshing at its scan interval.
type Poller interface {
	Schedule(key string, every time.Duration, job func(ctx context.Context) error) error
}

// CoordinatorFactory builds the coordinator for a location not seen before.
type CoordinatorFactory func(apiKey string, loc weather.Location, interval time.Duration) *weather.Coordinator

// Integration wires config entries to shared coordinators and sub-platforms.
type Integration struct {
	host           Host
	registry       *registry.Registry
	newCoordinator CoordinatorFactory
	poller         Poller
	logger         *slog.Logger
}

// New creates an Integration. poller may be nil, in which case coordinators
// only refresh during setup.
func New(host Host, reg *registry.Registry, newCoordinator CoordinatorFactory, poller Poller, logger *slog.Logger) *Integration {
	if logger == nil {
		logger = slog.Default()
	}
	return &Integration{
		host:           host,
		registry:       reg,
		newCoordinator: newCoordinator,
		poller:         poller,
		logger:         logger.With("domain", Domain),
	}
}

// SetupEntry resolves e, attaches it to the coordinator for its location,
// forwards it to the selected sub-platforms and starts listening for option
// changes. Refresh and parse errors are returned unchanged.
func (i *Integration) SetupEntry(ctx context.Context, e *entry.Entry) (bool, error) {
	homeLat, homeLon := i.host.HomeLocation()
	settings, err := entry.Resolve(e, homeLat, homeLon)
	if err != nil {
		return false, err
	}

	loc := weather.Location{Latitude: settings.Latitude, Longitude: settings.Longitude}
	key := loc.Key()

	coord, loaded := i.registry.LoadOrStore(key, func() *weather.Coordinator {
		return i.newCoordinator(settings.APIKey, loc, settings.ScanInterval)
	})
	if loaded {
		i.logger.Warn("an existing weather coordinator already exists for this location, using that one instead",
			"entry", e.ID, "key", key)
	}

	if i.poller != nil {
		if err := i.poller.Schedule(key, coord.Interval(), coord.Refresh); err != nil {
			return false, err
		}
	}

	if err := coord.Refresh(ctx); err != nil {
		return false, err
	}

	rt := registry.Runtime{
		EntryID:     e.ID,
		Settings:    settings,
		LocationKey: key,
		Coordinator: coord,
	}
	i.registry.SetRuntime(&rt)

	if platforms := settings.Platforms.Platforms(); len(platforms) > 0 {
		if err := i.host.ForwardEntrySetups(ctx, e, platforms); err != nil {
			return false, fmt.Errorf("forward entry %s: %w", e.ID, err)
		}
	}

	// Replace rather than mutate the record the sub-platforms already hold.
	listening := rt
	listening.RemoveListener = i.host.AddUpdateListener(e, i.OptionsUpdated)
	i.registry.SetRuntime(&listening)

	i.logger.Info("entry set up", "entry", e.ID, "name", settings.Name, "key", key)
	return true, nil
}

// UnloadEntry unloads the sub-platforms e was set up with. The runtime record
// and update listener are only dropped when the host reports success, so a
// failed unload can be retried.
func (i *Integration) UnloadEntry(ctx context.Context, e *entry.Entry) (bool, error) {
	rt, err := i.registry.Runtime(e.ID)
	if err != nil {
		return false, err
	}

	ok := true
	if platforms := rt.Settings.Platforms.Platforms(); len(platforms) > 0 {
		ok, err = i.host.UnloadPlatforms(ctx, e, platforms)
		if err != nil {
			return false, fmt.Errorf("unload entry %s: %w", e.ID, err)
		}
	}

	i.logger.Info("unloading Pirate Weather", "entry", e.ID, "ok", ok)

	if ok {
		if rt.RemoveListener != nil {
			rt.RemoveListener()
		}
		i.registry.DeleteRuntime(e.ID)
	}
	return ok, nil
}

// RemoveEntry forgets whatever a failed setup left behind for e. The host
// calls it before deleting an entry; for an unloaded entry there is nothing
// left to drop.
func (i *Integration) RemoveEntry(_ context.Context, e *entry.Entry) {
	rt, err := i.registry.Runtime(e.ID)
	if err != nil {
		return
	}
	if rt.RemoveListener != nil {
		rt.RemoveListener()
	}
	i.registry.DeleteRuntime(e.ID)
	i.logger.Debug("dropped runtime of removed entry", "entry", e.ID)
}

// OptionsUpdated reloads e after the user changed its options.
func (i *Integration) OptionsUpdated(ctx context.Context, e *entry.Entry) error {
	return i.host.Reload(ctx, e.ID)
}
