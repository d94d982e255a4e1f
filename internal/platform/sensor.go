package platform

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/i474232898/pirateweather/internal/entry"
	"github.com/i474232898/pirateweather/internal/host"
	"github.com/i474232898/pirateweather/internal/integration"
	"github.com/i474232898/pirateweather/internal/registry"
	"github.com/i474232898/pirateweather/internal/weather"
)

// SensorPlatform creates one sensor per monitored condition, plus one per
// selected forecast day and hour for conditions those blocks carry.
type SensorPlatform struct {
	registry *registry.Registry
	logger   *slog.Logger
}

func NewSensorPlatform(reg *registry.Registry, logger *slog.Logger) *SensorPlatform {
	if logger == nil {
		logger = slog.Default()
	}
	return &SensorPlatform{registry: reg, logger: logger.With("platform", entry.PlatformSensor)}
}

func (p *SensorPlatform) SetupEntry(_ context.Context, e *entry.Entry) ([]host.Entity, error) {
	rt, err := p.registry.Runtime(e.ID)
	if err != nil {
		return nil, err
	}
	s := rt.Settings

	var entities []host.Entity
	add := func(key string, c condition, b block, offset int) {
		entities = append(entities, &Sensor{
			entryID:   e.ID,
			entryName: s.Name,
			key:       key,
			cond:      c,
			block:     b,
			offset:    offset,
			units:     systemFor(s.Units),
			round:     s.Round,
			coord:     rt.Coordinator,
		})
	}

	for _, key := range s.MonitoredConditions {
		c, ok := conditions[key]
		if !ok {
			p.logger.Warn("unknown monitored condition", "entry", e.ID, "condition", key)
			continue
		}
		if c.blocks&blockCurrently != 0 {
			add(key, c, blockCurrently, 0)
		}
		if c.blocks&blockDaily != 0 {
			for _, day := range s.ForecastDays {
				add(key, c, blockDaily, day)
			}
		}
		if c.blocks&blockHourly != 0 {
			for _, hour := range s.ForecastHours {
				add(key, c, blockHourly, hour)
			}
		}
	}
	return entities, nil
}

// Sensor exposes a single reading from the shared coordinator.
type Sensor struct {
	entryID   string
	entryName string
	key       string
	cond      condition
	block     block
	offset    int
	units     unitSystem
	round     bool
	coord     *weather.Coordinator
}

func (s *Sensor) suffix() string {
	switch s.block {
	case blockDaily:
		return fmt.Sprintf("_d%d", s.offset)
	case blockHourly:
		return fmt.Sprintf("_h%d", s.offset)
	}
	return ""
}

func (s *Sensor) UniqueID() string {
	return s.entryID + "-" + s.key + s.suffix()
}

func (s *Sensor) Name() string {
	name := s.entryName + " " + s.cond.name
	switch s.block {
	case blockDaily:
		name += fmt.Sprintf(" %dd", s.offset)
	case blockHourly:
		name += fmt.Sprintf(" %dh", s.offset)
	}
	return name
}

func (s *Sensor) point() (weather.DataPoint, bool) {
	data, err := s.coord.Data()
	if err != nil {
		return weather.DataPoint{}, false
	}
	switch s.block {
	case blockDaily:
		if s.offset < 0 || s.offset >= len(data.Daily.Data) {
			return weather.DataPoint{}, false
		}
		return data.Daily.Data[s.offset], true
	case blockHourly:
		if s.offset < 0 || s.offset >= len(data.Hourly.Data) {
			return weather.DataPoint{}, false
		}
		return data.Hourly.Data[s.offset], true
	}
	return data.Currently, true
}

func (s *Sensor) Available() bool {
	if !s.coord.LastUpdateSuccess() {
		return false
	}
	_, ok := s.point()
	return ok
}

func (s *Sensor) State() any {
	d, ok := s.point()
	if !ok {
		return nil
	}
	v := s.cond.value(d)
	if f, ok := v.(float64); ok {
		return roundValue(s.units.convert(s.cond.quantity, f), s.round)
	}
	if str, ok := v.(string); ok && str == "" {
		return nil
	}
	return v
}

func (s *Sensor) Attributes() map[string]any {
	attrs := map[string]any{
		"attribution":   integration.Attribution,
		"friendly_name": s.Name(),
		"icon":          s.cond.icon,
	}
	if unit := s.units.unit(s.cond.quantity); unit != "" {
		attrs["unit_of_measurement"] = unit
	}
	if s.cond.quantity == quantityTimestamp {
		attrs["device_class"] = "timestamp"
	}
	return attrs
}

func (s *Sensor) Subscribe(fn func()) func() {
	return s.coord.AddListener(fn)
}

// ConditionKeys returns the monitorable condition keys in sorted order.
func ConditionKeys() []string {
	keys := make([]string, 0, len(conditions))
	for k := range conditions {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
