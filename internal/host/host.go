// Package host is a minimal in-process home-automation host: it stores
// config entries, forwards them to sub-platforms and tracks the resulting
// entities. It provides exactly what the integration needs to run.
package host

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/i474232898/pirateweather/internal/entry"
)

var (
	ErrEntryNotFound  = errors.New("entry not found")
	ErrEntryExists    = errors.New("entry already exists")
	ErrEntityNotFound = errors.New("entity not found")
	ErrNoHandler      = errors.New("no entry handler registered")
	ErrUnloadFailed   = errors.New("entry could not be unloaded")
	ErrSetupFailed    = errors.New("entry setup failed")
	ErrEntryLoaded    = errors.New("entry is already loaded")
)

// State is the lifecycle state of an entry.
type State string

const (
	StateNotLoaded    State = "not_loaded"
	StateLoaded       State = "loaded"
	StateSetupError   State = "setup_error"
	StateFailedUnload State = "failed_unload"
)

// EntryHandler is the integration the host drives.
type EntryHandler interface {
	SetupEntry(ctx context.Context, e *entry.Entry) (bool, error)
	UnloadEntry(ctx context.Context, e *entry.Entry) (bool, error)
}

// EntryRemover is implemented by handlers that keep state for an entry
// outside of setup and unload. RemoveEntry runs before the entry is deleted.
type EntryRemover interface {
	RemoveEntry(ctx context.Context, e *entry.Entry)
}

// Platform builds the entities of one sub-platform for an entry.
type Platform interface {
	SetupEntry(ctx context.Context, e *entry.Entry) ([]Entity, error)
}

// Entity is anything the host exposes a state for.
type Entity interface {
	UniqueID() string
	Name() string
	Available() bool
	State() any
	Attributes() map[string]any
}

// Subscriber is implemented by entities that can announce new data.
type Subscriber interface {
	Subscribe(fn func()) (unsubscribe func())
}

// EntryStatus is a read-only view of an entry.
type EntryStatus struct {
	Entry     *entry.Entry     `json:"entry"`
	State     State            `json:"state"`
	Reason    string           `json:"reason,omitempty"`
	Platforms []entry.Platform `json:"platforms"`
}

// EntityState is a read-only view of an entity.
type EntityState struct {
	EntityID    string         `json:"entity_id"`
	UniqueID    string         `json:"unique_id"`
	EntryID     string         `json:"entry_id"`
	Platform    entry.Platform `json:"platform"`
	Name        string         `json:"name"`
	Available   bool           `json:"available"`
	State       any            `json:"state"`
	Attributes  map[string]any `json:"attributes"`
	LastUpdated time.Time      `json:"last_updated"`
}

type entryRecord struct {
	entry     *entry.Entry
	state     State
	reason    string
	listeners map[int]entry.UpdateListener
	nextID    int
	// entity IDs per set-up platform
	platforms map[entry.Platform][]string
}

type entityRecord struct {
	id          string
	entryID     string
	platform    entry.Platform
	entity      Entity
	unsubscribe func()
	lastUpdated time.Time
}

// Host is safe for concurrent use.
type Host struct {
	logger  *slog.Logger
	homeLat float64
	homeLon float64

	// opMu serialises entry lifecycle operations.
	opMu sync.Mutex

	mu        sync.RWMutex
	handler   EntryHandler
	platforms map[entry.Platform]Platform
	entries   map[string]*entryRecord
	entities  map[string]*entityRecord
}

// New creates a Host whose home location is (lat, lon).
func New(lat, lon float64, logger *slog.Logger) *Host {
	if logger == nil {
		logger = slog.Default()
	}
	return &Host{
		logger:    logger.With("component", "host"),
		homeLat:   lat,
		homeLon:   lon,
		platforms: make(map[entry.Platform]Platform),
		entries:   make(map[string]*entryRecord),
		entities:  make(map[string]*entityRecord),
	}
}

// SetHandler sets the integration entries are set up with.
func (h *Host) SetHandler(handler EntryHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handler = handler
}

// RegisterPlatform makes a sub-platform available for forwarding.
func (h *Host) RegisterPlatform(id entry.Platform, p Platform) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.platforms[id] = p
}

func (h *Host) HomeLocation() (float64, float64) {
	return h.homeLat, h.homeLon
}

// Add stores e and sets it up. The entry is kept even when setup fails.
func (h *Host) Add(ctx context.Context, e *entry.Entry) error {
	h.opMu.Lock()
	defer h.opMu.Unlock()

	h.mu.Lock()
	if _, ok := h.entries[e.ID]; ok {
		h.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrEntryExists, e.ID)
	}
	h.entries[e.ID] = &entryRecord{
		entry:     e,
		state:     StateNotLoaded,
		listeners: make(map[int]entry.UpdateListener),
		platforms: make(map[entry.Platform][]string),
	}
	h.mu.Unlock()

	return h.setup(ctx, e.ID)
}

// Setup sets up a stored entry that is not loaded. A loaded entry, or one
// whose unload failed, returns ErrEntryLoaded.
func (h *Host) Setup(ctx context.Context, entryID string) error {
	h.opMu.Lock()
	defer h.opMu.Unlock()
	return h.setup(ctx, entryID)
}

// Unload unloads a loaded entry.
func (h *Host) Unload(ctx context.Context, entryID string) (bool, error) {
	h.opMu.Lock()
	defer h.opMu.Unlock()
	return h.unload(ctx, entryID)
}

// Reload unloads the entry if it is loaded and sets it up again.
func (h *Host) Reload(ctx context.Context, entryID string) error {
	h.opMu.Lock()
	defer h.opMu.Unlock()

	rec, err := h.record(entryID)
	if err != nil {
		return err
	}
	if state := h.stateOf(rec); state == StateLoaded || state == StateFailedUnload {
		ok, err := h.unload(ctx, entryID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnloadFailed, entryID)
		}
	}
	return h.setup(ctx, entryID)
}

// Remove unloads the entry if needed and forgets it.
func (h *Host) Remove(ctx context.Context, entryID string) error {
	h.opMu.Lock()
	defer h.opMu.Unlock()

	rec, err := h.record(entryID)
	if err != nil {
		return err
	}
	if state := h.stateOf(rec); state == StateLoaded || state == StateFailedUnload {
		ok, err := h.unload(ctx, entryID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnloadFailed, entryID)
		}
	}

	h.mu.RLock()
	remover, _ := h.handler.(EntryRemover)
	e := rec.entry
	h.mu.RUnlock()
	if remover != nil {
		remover.RemoveEntry(ctx, e)
	}

	h.mu.Lock()
	delete(h.entries, entryID)
	h.mu.Unlock()
	return nil
}

// UpdateOptions replaces the entry's options and notifies its update
// listeners, which normally reload it.
func (h *Host) UpdateOptions(ctx context.Context, entryID string, options map[string]any) error {
	h.mu.Lock()
	rec, ok := h.entries[entryID]
	if !ok {
		h.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrEntryNotFound, entryID)
	}
	updated := *rec.entry
	updated.Options = options
	rec.entry = &updated

	ids := make([]int, 0, len(rec.listeners))
	for id := range rec.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	listeners := make([]entry.UpdateListener, 0, len(ids))
	for _, id := range ids {
		listeners = append(listeners, rec.listeners[id])
	}
	h.mu.Unlock()

	for _, l := range listeners {
		if err := l(ctx, &updated); err != nil {
			return err
		}
	}
	return nil
}

// AddUpdateListener registers l to run when the entry's options change.
func (h *Host) AddUpdateListener(e *entry.Entry, l entry.UpdateListener) func() {
	h.mu.Lock()
	defer h.mu.Unlock()

	rec, ok := h.entries[e.ID]
	if !ok {
		return func() {}
	}
	id := rec.nextID
	rec.nextID++
	rec.listeners[id] = l

	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(rec.listeners, id)
	}
}

// ForwardEntrySetups sets up e on each of platforms, in order.
func (h *Host) ForwardEntrySetups(ctx context.Context, e *entry.Entry, platforms []entry.Platform) error {
	for _, id := range platforms {
		h.mu.RLock()
		p, ok := h.platforms[id]
		h.mu.RUnlock()
		if !ok {
			return fmt.Errorf("platform %s is not registered", id)
		}

		entities, err := p.SetupEntry(ctx, e)
		if err != nil {
			return fmt.Errorf("set up %s for %s: %w", id, e.ID, err)
		}
		h.addEntities(e.ID, id, entities)
	}
	return nil
}

// UnloadPlatforms removes the entities e created on each of platforms. It
// reports false when one of them was never set up for e.
func (h *Host) UnloadPlatforms(_ context.Context, e *entry.Entry, platforms []entry.Platform) (bool, error) {
	h.mu.Lock()
	rec, ok := h.entries[e.ID]
	if !ok {
		h.mu.Unlock()
		return false, fmt.Errorf("%w: %s", ErrEntryNotFound, e.ID)
	}

	ok = true
	var unsubscribes []func()
	for _, id := range platforms {
		ids, loaded := rec.platforms[id]
		if !loaded {
			ok = false
			continue
		}
		for _, entityID := range ids {
			if ent, found := h.entities[entityID]; found {
				if ent.unsubscribe != nil {
					unsubscribes = append(unsubscribes, ent.unsubscribe)
				}
				delete(h.entities, entityID)
			}
		}
		delete(rec.platforms, id)
	}
	h.mu.Unlock()

	for _, fn := range unsubscribes {
		fn()
	}
	return ok, nil
}

func (h *Host) addEntities(entryID string, platform entry.Platform, entities []Entity) {
	now := time.Now().UTC()

	h.mu.Lock()
	rec, ok := h.entries[entryID]
	if !ok {
		h.mu.Unlock()
		return
	}
	added := make([]*entityRecord, 0, len(entities))
	for _, ent := range entities {
		er := &entityRecord{
			id:          h.newEntityID(platform, ent.Name()),
			entryID:     entryID,
			platform:    platform,
			entity:      ent,
			lastUpdated: now,
		}
		h.entities[er.id] = er
		rec.platforms[platform] = append(rec.platforms[platform], er.id)
		added = append(added, er)
	}
	// A platform with no entities still counts as set up.
	if _, ok := rec.platforms[platform]; !ok {
		rec.platforms[platform] = nil
	}
	h.mu.Unlock()

	for _, er := range added {
		sub, ok := er.entity.(Subscriber)
		if !ok {
			continue
		}
		unsubscribe := sub.Subscribe(func() {
			h.mu.Lock()
			er.lastUpdated = time.Now().UTC()
			h.mu.Unlock()
		})
		h.mu.Lock()
		er.unsubscribe = unsubscribe
		h.mu.Unlock()
	}
	h.logger.Debug("entities added", "entry", entryID, "platform", platform, "count", len(added))
}

func (h *Host) dropEntities(entryID string) {
	h.mu.Lock()
	rec, ok := h.entries[entryID]
	if !ok {
		h.mu.Unlock()
		return
	}
	var unsubscribes []func()
	for platform, ids := range rec.platforms {
		for _, id := range ids {
			if ent, found := h.entities[id]; found && ent.unsubscribe != nil {
				unsubscribes = append(unsubscribes, ent.unsubscribe)
			}
			delete(h.entities, id)
		}
		delete(rec.platforms, platform)
	}
	h.mu.Unlock()

	for _, fn := range unsubscribes {
		fn()
	}
}

// newEntityID must be called with h.mu held.
func (h *Host) newEntityID(platform entry.Platform, name string) string {
	base := string(platform) + "." + slugify(name)
	id := base
	for n := 2; ; n++ {
		if _, taken := h.entities[id]; !taken {
			return id
		}
		id = fmt.Sprintf("%s_%d", base, n)
	}
}

func (h *Host) setup(ctx context.Context, entryID string) error {
	h.mu.RLock()
	handler := h.handler
	rec, ok := h.entries[entryID]
	var (
		e     *entry.Entry
		state State
	)
	if ok {
		e = rec.entry
		state = rec.state
	}
	h.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrEntryNotFound, entryID)
	}
	if state == StateLoaded || state == StateFailedUnload {
		return fmt.Errorf("%w: %s", ErrEntryLoaded, entryID)
	}
	if handler == nil {
		return ErrNoHandler
	}

	loaded, err := handler.SetupEntry(ctx, e)
	if err == nil && !loaded {
		err = errors.New("setup returned false")
	}
	if err != nil {
		// Entities a partial setup created must not outlive it.
		h.dropEntities(entryID)
	}
	if err != nil {
		h.setState(rec, StateSetupError, err.Error())
		h.logger.Warn("entry setup failed", "entry", entryID, "err", err)
		return fmt.Errorf("%w: %s: %w", ErrSetupFailed, entryID, err)
	}

	h.setState(rec, StateLoaded, "")
	h.logger.Info("entry loaded", "entry", entryID, "title", e.Title)
	return nil
}

func (h *Host) unload(ctx context.Context, entryID string) (bool, error) {
	h.mu.RLock()
	handler := h.handler
	rec, ok := h.entries[entryID]
	var e *entry.Entry
	if ok {
		e = rec.entry
	}
	h.mu.RUnlock()

	if !ok {
		return false, fmt.Errorf("%w: %s", ErrEntryNotFound, entryID)
	}
	if handler == nil {
		return false, ErrNoHandler
	}

	unloaded, err := handler.UnloadEntry(ctx, e)
	if err != nil {
		h.setState(rec, StateFailedUnload, err.Error())
		return false, err
	}
	if !unloaded {
		h.setState(rec, StateFailedUnload, "unload returned false")
		h.logger.Warn("entry unload failed", "entry", entryID)
		return false, nil
	}
	h.setState(rec, StateNotLoaded, "")
	return true, nil
}

func (h *Host) record(entryID string) (*entryRecord, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	rec, ok := h.entries[entryID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, entryID)
	}
	return rec, nil
}

func (h *Host) stateOf(rec *entryRecord) State {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return rec.state
}

func (h *Host) setState(rec *entryRecord, state State, reason string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	rec.state = state
	rec.reason = reason
}

// Entries returns every stored entry ordered by ID.
func (h *Host) Entries() []EntryStatus {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]EntryStatus, 0, len(h.entries))
	for _, rec := range h.entries {
		out = append(out, statusOf(rec))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Entry.ID < out[j].Entry.ID })
	return out
}

// Entry returns one stored entry.
func (h *Host) Entry(entryID string) (EntryStatus, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	rec, ok := h.entries[entryID]
	if !ok {
		return EntryStatus{}, fmt.Errorf("%w: %s", ErrEntryNotFound, entryID)
	}
	return statusOf(rec), nil
}

func statusOf(rec *entryRecord) EntryStatus {
	platforms := make([]entry.Platform, 0, len(rec.platforms))
	for p := range rec.platforms {
		platforms = append(platforms, p)
	}
	sort.Slice(platforms, func(i, j int) bool { return platforms[i] < platforms[j] })
	return EntryStatus{Entry: rec.entry, State: rec.state, Reason: rec.reason, Platforms: platforms}
}

// Entities returns the state of every entity ordered by entity ID.
func (h *Host) Entities() []EntityState {
	h.mu.RLock()
	records := make([]entityRecord, 0, len(h.entities))
	for _, er := range h.entities {
		records = append(records, *er)
	}
	h.mu.RUnlock()

	out := make([]EntityState, 0, len(records))
	for _, er := range records {
		out = append(out, stateOf(er))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EntityID < out[j].EntityID })
	return out
}

// Entity returns the state of one entity.
func (h *Host) Entity(entityID string) (EntityState, error) {
	h.mu.RLock()
	er, ok := h.entities[entityID]
	var snapshot entityRecord
	if ok {
		snapshot = *er
	}
	h.mu.RUnlock()

	if !ok {
		return EntityState{}, fmt.Errorf("%w: %s", ErrEntityNotFound, entityID)
	}
	return stateOf(snapshot), nil
}

func stateOf(er entityRecord) EntityState {
	return EntityState{
		EntityID:    er.id,
		UniqueID:    er.entity.UniqueID(),
		EntryID:     er.entryID,
		Platform:    er.platform,
		Name:        er.entity.Name(),
		Available:   er.entity.Available(),
		State:       er.entity.State(),
		Attributes:  er.entity.Attributes(),
		LastUpdated: er.lastUpdated,
	}
}

func slugify(name string) string {
	var b strings.Builder
	underscore := false
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			underscore = false
		case !underscore && b.Len() > 0:
			b.WriteByte('_')
			underscore = true
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}
