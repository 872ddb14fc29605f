// Package telemetry maintains a live mirror of remote energy-meter values
// delivered by an MQTT sensor gateway.
package telemetry

import "time"

// Kind classifies a discovered gateway entity.
type Kind string

const (
	KindSensor       Kind = "sensor"
	KindBinarySensor Kind = "binary_sensor"
	KindTextSensor   Kind = "text_sensor"
)

// EntityInfo describes one entity announced by the gateway during discovery.
// Keys are only guaranteed stable within a single discovery pass.
type EntityInfo struct {
	Key  string `json:"key"`
	Name string `json:"name"`
	Unit string `json:"unit,omitempty"`
	Kind Kind   `json:"kind"`
}

// Signal holds the latest reported value for one entity.
// Value is a float64, bool or string depending on the entity kind.
type Signal struct {
	Value       interface{} `json:"value"`
	LastUpdated time.Time   `json:"last_updated"`
}

// Number returns the signal value as a float64.
// The second return is false for non-numeric signals.
func (s Signal) Number() (float64, bool) {
	v, ok := s.Value.(float64)
	return v, ok
}
