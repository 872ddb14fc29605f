// Package history keeps a fixed-capacity in-memory record of recent control
// cycles for the status dashboard. Nothing here is persisted.
package history

import (
	"sync"
	"time"
)

// Sample is one control cycle's observable state.
type Sample struct {
	Cycle            int64     `json:"cycle"`
	Timestamp        time.Time `json:"timestamp"`
	GridConsumptionW float64   `json:"grid_consumption_w"`
	HomeConsumptionW float64   `json:"home_consumption_w"`
	SolarProductionW float64   `json:"solar_production_w"`
	ScaleFactor      int       `json:"scale_factor"`
}

// Ring holds the most recent samples in a fixed-capacity buffer.
type Ring struct {
	mu      sync.RWMutex
	samples []Sample
	maxSize int
	nextID  int64
}

// NewRing creates a ring with the given capacity.
func NewRing(maxSize int) *Ring {
	if maxSize <= 0 {
		maxSize = 50
	}
	return &Ring{
		samples: make([]Sample, 0, maxSize),
		maxSize: maxSize,
	}
}

// Add appends a sample, evicting the oldest when at capacity.
// The sample's cycle number is assigned here.
func (r *Ring) Add(s Sample) Sample {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	s.Cycle = r.nextID

	if len(r.samples) >= r.maxSize {
		r.samples = r.samples[1:]
	}
	r.samples = append(r.samples, s)
	return s
}

// Latest returns the most recent sample.
func (r *Ring) Latest() (Sample, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.samples) == 0 {
		return Sample{}, false
	}
	return r.samples[len(r.samples)-1], true
}

// All returns a copy of the buffered samples, oldest first.
func (r *Ring) All() []Sample {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Sample, len(r.samples))
	copy(out, r.samples)
	return out
}

// Series returns the buffered samples as per-metric columns, oldest first,
// in the shape the dashboard chart consumes.
func (r *Ring) Series() map[string][]float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	series := map[string][]float64{
		"grid_consumption": make([]float64, 0, len(r.samples)),
		"home_consumption": make([]float64, 0, len(r.samples)),
		"solar_production": make([]float64, 0, len(r.samples)),
		"scale_factor":     make([]float64, 0, len(r.samples)),
	}
	for _, s := range r.samples {
		series["grid_consumption"] = append(series["grid_consumption"], s.GridConsumptionW)
		series["home_consumption"] = append(series["home_consumption"], s.HomeConsumptionW)
		series["solar_production"] = append(series["solar_production"], s.SolarProductionW)
		series["scale_factor"] = append(series["scale_factor"], float64(s.ScaleFactor))
	}
	return series
}

// Count returns the number of buffered samples.
func (r *Ring) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.samples)
}
