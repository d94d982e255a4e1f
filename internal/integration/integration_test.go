package integration

import (
	"context"
	"errors"
	"reflect"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/i474232898/pirateweather/internal/entry"
	"github.com/i474232898/pirateweather/internal/registry"
	"github.com/i474232898/pirateweather/internal/weather"
)

type fakeHost struct {
	mu        sync.Mutex
	forwarded map[string][]entry.Platform
	unloaded  map[string][]entry.Platform
	reloaded  []string
	listeners map[string]entry.UpdateListener
	unloadOK  bool
	// calls records host calls in order, e.g. "forward:a", "listen:a".
	calls      []string
	forwardErr error
}

func newFakeHost() *fakeHost {
	return &fakeHost{
		forwarded: make(map[string][]entry.Platform),
		unloaded:  make(map[string][]entry.Platform),
		listeners: make(map[string]entry.UpdateListener),
		unloadOK:  true,
	}
}

func (h *fakeHost) HomeLocation() (float64, float64) { return 1.5, 2.5 }

func (h *fakeHost) ForwardEntrySetups(_ context.Context, e *entry.Entry, platforms []entry.Platform) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, "forward:"+e.ID)
	if h.forwardErr != nil {
		return h.forwardErr
	}
	h.forwarded[e.ID] = platforms
	return nil
}

func (h *fakeHost) UnloadPlatforms(_ context.Context, e *entry.Entry, platforms []entry.Platform) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.unloaded[e.ID] = platforms
	return h.unloadOK, nil
}

func (h *fakeHost) Reload(_ context.Context, entryID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.reloaded = append(h.reloaded, entryID)
	return nil
}

func (h *fakeHost) AddUpdateListener(e *entry.Entry, l entry.UpdateListener) func() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, "listen:"+e.ID)
	h.listeners[e.ID] = l
	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.listeners, e.ID)
	}
}

type fakeProvider struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) Fetch(_ context.Context, _ string, loc weather.Location) (weather.Forecast, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.err != nil {
		return weather.Forecast{}, p.err
	}
	return weather.Forecast{Location: loc, Currently: weather.DataPoint{Time: 1700000000, Temperature: 20}}, nil
}

type fakePoller struct {
	keys map[string]time.Duration
}

func (p *fakePoller) Schedule(key string, every time.Duration, _ func(context.Context) error) error {
	if _, ok := p.keys[key]; !ok {
		p.keys[key] = every
	}
	return nil
}

type fixture struct {
	host     *fakeHost
	provider *fakeProvider
	poller   *fakePoller
	registry *registry.Registry
	created  int
	in       *Integration
}

func newFixture() *fixture {
	f := &fixture{
		host:     newFakeHost(),
		provider: &fakeProvider{},
		poller:   &fakePoller{keys: make(map[string]time.Duration)},
		registry: registry.New(),
	}
	factory := func(apiKey string, loc weather.Location, interval time.Duration) *weather.Coordinator {
		f.created++
		return weather.NewCoordinator(f.provider, nil, nil, apiKey, loc, interval)
	}
	f.in = New(f.host, f.registry, factory, f.poller, nil)
	return f
}

func newEntry(id string, lat, lon float64, platform any) *entry.Entry {
	return &entry.Entry{
		ID: id,
		Data: map[string]any{
			entry.KeyName:                "PW " + id,
			entry.KeyAPIKey:              "secret",
			entry.KeyLatitude:            lat,
			entry.KeyLongitude:           lon,
			entry.KeyMode:                "daily",
			entry.KeyLanguage:            "en",
			entry.KeyMonitoredConditions: []string{"temperature"},
			entry.KeyUnits:               "si",
			entry.KeyForecastDays:        "",
			entry.KeyForecastHours:       "",
			entry.KeyPlatform:            platform,
			entry.KeyRound:               false,
			entry.KeyScanInterval:        900,
		},
	}
}

func TestSetupReusesCoordinatorForSameLocation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	a := newEntry("a", 10, 20, []string{entry.MarkerSensor})
	b := newEntry("b", 10, 20, []string{entry.MarkerWeather})

	for _, e := range []*entry.Entry{a, b} {
		ok, err := f.in.SetupEntry(ctx, e)
		if err != nil || !ok {
			t.Fatalf("SetupEntry(%s) = %v, %v", e.ID, ok, err)
		}
	}

	if f.created != 1 {
		t.Fatalf("created %d coordinators, want 1", f.created)
	}
	if keys := f.registry.Keys(); !reflect.DeepEqual(keys, []string{"pw-10.0-20.0"}) {
		t.Errorf("registry keys = %v", keys)
	}

	rtA, err := f.registry.Runtime("a")
	if err != nil {
		t.Fatal(err)
	}
	rtB, err := f.registry.Runtime("b")
	if err != nil {
		t.Fatal(err)
	}
	if rtA.Coordinator != rtB.Coordinator {
		t.Errorf("entries do not share the coordinator")
	}
	if f.provider.calls != 2 {
		t.Errorf("expected one refresh per setup, got %d", f.provider.calls)
	}
	if f.poller.keys["pw-10.0-20.0"] != 15*time.Minute {
		t.Errorf("poller = %v", f.poller.keys)
	}

	if !reflect.DeepEqual(f.host.forwarded["a"], []entry.Platform{entry.PlatformSensor}) {
		t.Errorf("a forwarded to %v", f.host.forwarded["a"])
	}
	if !reflect.DeepEqual(f.host.forwarded["b"], []entry.Platform{entry.PlatformWeather}) {
		t.Errorf("b forwarded to %v", f.host.forwarded["b"])
	}

	ok, err := f.in.UnloadEntry(ctx, a)
	if err != nil || !ok {
		t.Fatalf("UnloadEntry(a) = %v, %v", ok, err)
	}
	if _, err := f.registry.Runtime("a"); !errors.Is(err, registry.ErrNotLoaded) {
		t.Errorf("runtime for a still present after unload")
	}
	if c, ok := f.registry.Coordinator("pw-10.0-20.0"); !ok || c != rtB.Coordinator {
		t.Errorf("coordinator removed by unloading a")
	}
	if _, err := f.registry.Runtime("b"); err != nil {
		t.Errorf("runtime for b: %v", err)
	}
}

func TestSetupDistinctLocations(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	if _, err := f.in.SetupEntry(ctx, newEntry("a", 10, 20, []string{entry.MarkerSensor})); err != nil {
		t.Fatal(err)
	}
	if _, err := f.in.SetupEntry(ctx, newEntry("b", 10.0001, 20, []string{entry.MarkerSensor})); err != nil {
		t.Fatal(err)
	}
	if f.created != 2 {
		t.Errorf("created %d coordinators, want 2", f.created)
	}
}

func TestSetupUsesHomeLocation(t *testing.T) {
	f := newFixture()
	e := newEntry("a", 0, 0, []string{entry.MarkerSensor})
	delete(e.Data, entry.KeyLatitude)
	delete(e.Data, entry.KeyLongitude)

	if _, err := f.in.SetupEntry(context.Background(), e); err != nil {
		t.Fatal(err)
	}
	if _, ok := f.registry.Coordinator("pw-1.5-2.5"); !ok {
		t.Errorf("registry keys = %v, want home location key", f.registry.Keys())
	}
}

func TestPlatformForwarding(t *testing.T) {
	tests := []struct {
		name     string
		selector any
		expected []entry.Platform
	}{
		{"sensor only", []string{entry.MarkerSensor}, []entry.Platform{entry.PlatformSensor}},
		{"weather only", []string{entry.MarkerWeather}, []entry.Platform{entry.PlatformWeather}},
		{"both", []string{entry.MarkerWeather, entry.MarkerSensor}, []entry.Platform{entry.PlatformSensor, entry.PlatformWeather}},
		{"string form", "Sensor, Weather Entity", []entry.Platform{entry.PlatformSensor, entry.PlatformWeather}},
		{"neither", []string{}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			e := newEntry("a", 10, 20, tt.selector)

			if _, err := f.in.SetupEntry(context.Background(), e); err != nil {
				t.Fatalf("SetupEntry: %v", err)
			}
			if got := f.host.forwarded["a"]; !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("forwarded %v, want %v", got, tt.expected)
			}

			if _, err := f.in.UnloadEntry(context.Background(), e); err != nil {
				t.Fatalf("UnloadEntry: %v", err)
			}
			if got := f.host.unloaded["a"]; !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("unloaded %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestUnloadFailureKeepsState(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	e := newEntry("a", 10, 20, []string{entry.MarkerSensor, entry.MarkerWeather})

	if _, err := f.in.SetupEntry(ctx, e); err != nil {
		t.Fatal(err)
	}
	if _, ok := f.host.listeners["a"]; !ok {
		t.Fatalf("update listener not registered")
	}

	f.host.unloadOK = false
	ok, err := f.in.UnloadEntry(ctx, e)
	if err != nil || ok {
		t.Fatalf("UnloadEntry = %v, %v; want false, nil", ok, err)
	}
	if !reflect.DeepEqual(f.host.unloaded["a"], []entry.Platform{entry.PlatformSensor, entry.PlatformWeather}) {
		t.Errorf("unloaded %v", f.host.unloaded["a"])
	}
	if _, err := f.registry.Runtime("a"); err != nil {
		t.Errorf("runtime should survive a failed unload: %v", err)
	}
	if _, ok := f.host.listeners["a"]; !ok {
		t.Errorf("listener should survive a failed unload")
	}

	f.host.unloadOK = true
	ok, err = f.in.UnloadEntry(ctx, e)
	if err != nil || !ok {
		t.Fatalf("retried UnloadEntry = %v, %v", ok, err)
	}
	if _, err := f.registry.Runtime("a"); !errors.Is(err, registry.ErrNotLoaded) {
		t.Errorf("runtime still present after successful unload")
	}
	if _, ok := f.host.listeners["a"]; ok {
		t.Errorf("listener still registered after successful unload")
	}

	if _, err := f.in.UnloadEntry(ctx, e); !errors.Is(err, registry.ErrNotLoaded) {
		t.Errorf("unloading twice: err = %v, want ErrNotLoaded", err)
	}
}

func TestSetupPropagatesRefreshFailure(t *testing.T) {
	f := newFixture()
	boom := errors.New("api down")
	f.provider.err = boom

	ok, err := f.in.SetupEntry(context.Background(), newEntry("a", 10, 20, []string{entry.MarkerSensor}))
	if ok || !errors.Is(err, boom) {
		t.Fatalf("SetupEntry = %v, %v; want false, %v", ok, err, boom)
	}
	if len(f.host.forwarded) != 0 {
		t.Errorf("platforms forwarded despite failed refresh")
	}
	if _, err := f.registry.Runtime("a"); err == nil {
		t.Errorf("runtime stored despite failed refresh")
	}
	// Polling is already scheduled so the coordinator recovers on its own.
	if _, ok := f.poller.keys["pw-10.0-20.0"]; !ok {
		t.Errorf("coordinator not scheduled")
	}
}

func TestSetupPropagatesSelectorError(t *testing.T) {
	f := newFixture()
	e := newEntry("a", 10, 20, []string{entry.MarkerSensor})
	e.Data[entry.KeyForecastDays] = "1,two"

	_, err := f.in.SetupEntry(context.Background(), e)
	var numErr *strconv.NumError
	if !errors.As(err, &numErr) {
		t.Fatalf("error = %v, want *strconv.NumError", err)
	}
	if f.created != 0 {
		t.Errorf("coordinator created despite parse error")
	}
}

func TestOptionsUpdatedReloadsEntry(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	e := newEntry("a", 10, 20, []string{entry.MarkerSensor})

	if _, err := f.in.SetupEntry(ctx, e); err != nil {
		t.Fatal(err)
	}
	if err := f.host.listeners["a"](ctx, e); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(f.host.reloaded, []string{"a"}) {
		t.Errorf("reloaded = %v, want [a]", f.host.reloaded)
	}
}

func TestSetupForwardsBeforeListening(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	if _, err := f.in.SetupEntry(ctx, newEntry("a", 10, 20, []string{entry.MarkerSensor, entry.MarkerWeather})); err != nil {
		t.Fatalf("SetupEntry: %v", err)
	}
	if want := []string{"forward:a", "listen:a"}; !reflect.DeepEqual(f.host.calls, want) {
		t.Errorf("host calls = %v, want %v", f.host.calls, want)
	}
	if f.provider.calls != 1 {
		t.Errorf("refreshes before forwarding = %d, want 1", f.provider.calls)
	}
}

func TestRemoveEntryDropsRuntimeAfterForwardFailure(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	boom := errors.New("platform exploded")
	f.host.forwardErr = boom

	e := newEntry("a", 10, 20, []string{entry.MarkerSensor})
	if _, err := f.in.SetupEntry(ctx, e); !errors.Is(err, boom) {
		t.Fatalf("SetupEntry error = %v, want %v", err, boom)
	}
	if _, err := f.registry.Runtime("a"); err != nil {
		t.Fatalf("runtime should outlive a forwarding failure: %v", err)
	}
	if len(f.host.listeners) != 0 {
		t.Errorf("listener registered after forwarding failure")
	}

	f.in.RemoveEntry(ctx, e)
	if _, err := f.registry.Runtime("a"); !errors.Is(err, registry.ErrNotLoaded) {
		t.Errorf("runtime after RemoveEntry: err = %v, want ErrNotLoaded", err)
	}

	// Removing an entry that was never set up is a no-op.
	f.in.RemoveEntry(ctx, newEntry("b", 1, 1, []string{entry.MarkerSensor}))
}
