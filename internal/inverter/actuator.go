// Package inverter provides the actuator layer for SunSpec-compatible solar
// inverters reached over a Modbus RTU field bus.
package inverter

import "context"

// Actuator is the narrow interface the control loop drives. Implementations
// block on device I/O; callers must invoke them from a context that does not
// stall telemetry delivery or the watchdog.
type Actuator interface {
	// ReadCurrentProduction returns the inverter's current AC output in watts.
	ReadCurrentProduction(ctx context.Context) (float64, error)

	// SetOutputLimit caps the inverter's output at percent of rated peak (0-100).
	SetOutputLimit(ctx context.Context, percent int) error

	// CheckConnection reports whether the device answers on the bus.
	CheckConnection(ctx context.Context) bool
}
