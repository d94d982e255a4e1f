package registry

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/i474232898/pirateweather/internal/weather"
)

func TestLoadOrStoreCreatesOncePerKey(t *testing.T) {
	r := New()
	loc := weather.Location{Latitude: 10, Longitude: 20}

	var created int32
	create := func() *weather.Coordinator {
		atomic.AddInt32(&created, 1)
		return weather.NewCoordinator(nil, nil, nil, "key", loc, time.Minute)
	}

	var wg sync.WaitGroup
	results := make([]*weather.Coordinator, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = r.LoadOrStore(loc.Key(), create)
		}(i)
	}
	wg.Wait()

	if created != 1 {
		t.Fatalf("create called %d times, want 1", created)
	}
	for _, c := range results {
		if c != results[0] {
			t.Fatalf("callers received different coordinators")
		}
	}

	c, loaded := r.LoadOrStore(loc.Key(), create)
	if !loaded || c != results[0] {
		t.Errorf("LoadOrStore on existing key: loaded=%v same=%v", loaded, c == results[0])
	}
	if keys := r.Keys(); len(keys) != 1 || keys[0] != "pw-10.0-20.0" {
		t.Errorf("Keys = %v", keys)
	}
}

func TestRuntimeLifecycle(t *testing.T) {
	r := New()
	if _, err := r.Runtime("a"); !errors.Is(err, ErrNotLoaded) {
		t.Fatalf("Runtime on empty registry: err = %v", err)
	}

	r.SetRuntime(&Runtime{EntryID: "a", LocationKey: "pw-1.0-2.0"})
	rt, err := r.Runtime("a")
	if err != nil || rt.LocationKey != "pw-1.0-2.0" {
		t.Fatalf("Runtime = %+v, %v", rt, err)
	}

	r.DeleteRuntime("a")
	if _, err := r.Runtime("a"); !errors.Is(err, ErrNotLoaded) {
		t.Errorf("Runtime after delete: err = %v", err)
	}
}
