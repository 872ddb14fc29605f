// Package regulator implements the export control law: a stateful,
// ramp-limited proportional step that converts noisy instantaneous power
// readings into a safe inverter output-limit percentage.
package regulator

import (
	"log"
	"math"
	"time"
)

// Settings holds the fixed control-law constants.
type Settings struct {
	PeakProductionW float64 // Inverter rated peak output
	MinProductionW  float64 // Never limit output below this (inverter stability)
	MaxExportW      float64 // Export ceiling targeted in auto mode
	MaxDeltaPercent float64 // Hard ramp limit, percent of peak per 15 s window
	CyclePeriod     time.Duration
	Gain            float64 // Proportional gain for small corrections
	LowPVThresholdW float64 // Below this, regulation disengages entirely
}

// DefaultSettings returns the constants used in production.
func DefaultSettings() Settings {
	return Settings{
		PeakProductionW: 10500.0,
		MinProductionW:  300.0,
		MaxExportW:      200.0,
		MaxDeltaPercent: 5.0,
		CyclePeriod:     10 * time.Second,
		Gain:            0.3,
		LowPVThresholdW: 50.0,
	}
}

// Input carries one control cycle's measurements and mode flags.
type Input struct {
	GridConsumptionW float64 // Current household draw; negatives treated as zero
	SolarProductionW float64 // Current inverter AC output; negatives treated as zero

	LimitExport bool // Master switch; when false the inverter runs unconstrained
	AutoMode    bool // Auto: target grid consumption + export ceiling; manual: PowerLimitW

	// AutoModeThresholdW is accepted for interface stability but not used in
	// the desired-power computation.
	AutoModeThresholdW float64

	PowerLimitW float64 // Manual-mode output ceiling in watts
}

// Regulator computes successive inverter scale factors (0-100 %).
//
// It operates in watts rather than percent to avoid overshoot, applies a
// gentle proportional step for small errors and a hard ramp-rate limit
// independent of the gain, and disengages entirely at very low solar
// availability where regulating would just chase the noise floor.
//
// A Regulator is owned by exactly one control loop; it is not safe to share
// across concurrent loops without external synchronization.
type Regulator struct {
	settings Settings
	maxStepW float64 // Precomputed maximum power change per cycle
	logger   *log.Logger

	lastLimitedPower float64
	initialized      bool
}

// New creates a regulator with the given settings.
func New(settings Settings, logger *log.Logger) *Regulator {
	return &Regulator{
		settings: settings,
		logger:   logger,
		maxStepW: settings.MaxDeltaPercent / 100.0 *
			settings.PeakProductionW *
			(settings.CyclePeriod.Seconds() / 15.0),
	}
}

// NextScaleFactor computes the next inverter scale factor. It must be called
// once per control cycle: it advances internal state and returns an integer
// percentage suitable for direct inverter control.
//
// Out-of-range numeric input is sanitized by clamping, never rejected. The
// method performs no I/O and cannot block.
func (r *Regulator) NextScaleFactor(in Input) int {
	home := math.Max(0.0, in.GridConsumptionW)
	solar := math.Max(0.0, in.SolarProductionW)

	if !r.initialized {
		r.lastLimitedPower = solar
		r.initialized = true
	}

	// Night or very low PV: no meaningful regulation possible.
	if solar < r.settings.LowPVThresholdW {
		r.lastLimitedPower = solar
		r.debugf("solar production %.0f W below low-PV threshold %.0f W, scale factor 100%%",
			solar, r.settings.LowPVThresholdW)
		return 100
	}

	if !in.LimitExport {
		r.debugf("export limit disabled, scale factor 100%%")
		return 100
	}

	var desiredPower float64
	if in.AutoMode {
		// Drive output so that, combined with household draw, export
		// settles at the ceiling.
		desiredPower = home + r.settings.MaxExportW
		r.debugf("auto mode: home %.0f W, desired power %.0f W", home, desiredPower)
	} else {
		desiredPower = in.PowerLimitW
		r.debugf("manual mode: power limit %.0f W", desiredPower)
	}

	// Proportional step, gentle for small errors.
	step := (desiredPower - r.lastLimitedPower) * r.settings.Gain

	// Hard ramp limit, independent of the gain.
	step = math.Max(-r.maxStepW, math.Min(r.maxStepW, step))

	limitedPower := r.lastLimitedPower + step

	// Physical constraints.
	limitedPower = math.Max(limitedPower, r.settings.MinProductionW)
	limitedPower = math.Min(limitedPower, solar)

	r.lastLimitedPower = limitedPower

	scaleFactor := int(math.Round(100.0 * limitedPower / solar))
	if scaleFactor < 0 {
		scaleFactor = 0
	}
	if scaleFactor > 100 {
		scaleFactor = 100
	}
	return scaleFactor
}

// LastLimitedPower returns the internal state in watts.
// The second return is false before the first NextScaleFactor call.
func (r *Regulator) LastLimitedPower() (float64, bool) {
	return r.lastLimitedPower, r.initialized
}

// MaxStepW returns the precomputed per-cycle ramp limit in watts.
func (r *Regulator) MaxStepW() float64 {
	return r.maxStepW
}

// Settings returns the control-law constants.
func (r *Regulator) Settings() Settings {
	return r.settings
}

func (r *Regulator) debugf(format string, args ...interface{}) {
	if r.logger != nil {
		r.logger.Printf("[REGULATOR] "+format, args...)
	}
}
