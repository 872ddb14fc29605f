// Package control drives the read-compute-apply cycle that keeps grid
// export below the configured ceiling.
package control

import (
	"context"
	"fmt"
	"log"
	"math"
	"sync/atomic"
	"time"

	"solarview/internal/events"
	"solarview/internal/history"
	"solarview/internal/inverter"
	"solarview/internal/regulator"
	"solarview/internal/storage"
	"solarview/internal/telemetry"
)

// TelemetrySource provides point-in-time copies of the gateway signal values.
type TelemetrySource interface {
	Snapshot() (map[string]telemetry.Signal, error)
}

// SettingsSource provides the operator control settings for the next cycle.
type SettingsSource interface {
	ControlSettings() (storage.ControlSettings, error)
}

// Config holds the loop parameters.
type Config struct {
	CyclePeriod   time.Duration
	GridImportKey string // Gateway entity key for momentary grid import
	GridExportKey string // Gateway entity key for momentary grid export
}

// gatewayUnitScale converts the meter gateway's kW readings to watts.
const gatewayUnitScale = 1000.0

// Loop orchestrates one control cycle: pull a telemetry snapshot, read
// current production from the actuator, feed both into the regulator and
// forward the resulting limit to the actuator. It repeats on a fixed period
// until the context is cancelled.
//
// The actuator write is awaited before the next cycle begins; the device
// protocol is not designed for concurrent commands.
type Loop struct {
	cfg       Config
	telemetry TelemetrySource
	actuator  inverter.Actuator
	regulator *regulator.Regulator
	settings  SettingsSource
	logger    *log.Logger

	// onCycle, when set, receives every completed cycle's sample.
	onCycle func(history.Sample)

	// events, when set, receives skipped-cycle and actuator-error records.
	events *events.Store

	cycles atomic.Int64
}

// NewLoop creates a control loop.
func NewLoop(cfg Config, ts TelemetrySource, act inverter.Actuator, reg *regulator.Regulator, settings SettingsSource, logger *log.Logger) *Loop {
	if cfg.CyclePeriod <= 0 {
		cfg.CyclePeriod = 10 * time.Second
	}
	if cfg.GridImportKey == "" {
		cfg.GridImportKey = "momentary_active_import"
	}
	if cfg.GridExportKey == "" {
		cfg.GridExportKey = "momentary_active_export"
	}
	return &Loop{
		cfg:       cfg,
		telemetry: ts,
		actuator:  act,
		regulator: reg,
		settings:  settings,
		logger:    logger,
	}
}

// OnCycle registers a callback invoked after every completed cycle.
// Must be set before Run.
func (l *Loop) OnCycle(fn func(history.Sample)) {
	l.onCycle = fn
}

// RecordEvents registers an audit store for controller events.
// Must be set before Run.
func (l *Loop) RecordEvents(store *events.Store) {
	l.events = store
}

// skip logs and records an abandoned cycle.
func (l *Loop) skip(reason string) {
	if l.logger != nil {
		l.logger.Printf("[CONTROL] Skipping cycle: %s", reason)
	}
	if l.events != nil {
		l.events.Add(events.EventCycleSkipped, "", "", false, reason)
	}
}

// Run executes control cycles until ctx is cancelled. Individual cycle
// failures are logged and skipped; only cancellation stops the loop.
func (l *Loop) Run(ctx context.Context) {
	ticker := time.NewTicker(l.cfg.CyclePeriod)
	defer ticker.Stop()

	for {
		l.runCycle(ctx)

		select {
		case <-ctx.Done():
			if l.logger != nil {
				l.logger.Printf("[CONTROL] Loop stopped")
			}
			return
		case <-ticker.C:
		}
	}
}

// runCycle performs a single read-compute-apply pass. A cycle that cannot
// obtain valid inputs is skipped entirely: a control command is never
// derived from invalid telemetry.
func (l *Loop) runCycle(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	production, err := l.actuator.ReadCurrentProduction(ctx)
	if err != nil {
		l.skip(fmt.Sprintf("inverter read failed: %v", err))
		return
	}

	snapshot, err := l.telemetry.Snapshot()
	if err != nil {
		l.skip(fmt.Sprintf("no telemetry available: %v", err))
		return
	}

	gridImport, okImport := numericSignal(snapshot, l.cfg.GridImportKey)
	gridExport, okExport := numericSignal(snapshot, l.cfg.GridExportKey)
	if !okImport || !okExport {
		l.skip(fmt.Sprintf("invalid sensor readings (import ok=%v, export ok=%v)", okImport, okExport))
		return
	}

	// The gateway reports kW; the regulator works in watts.
	gridConsumption := (gridImport - gridExport) * gatewayUnitScale
	homeConsumption := math.Abs(production - gridConsumption)

	settings, err := l.settings.ControlSettings()
	if err != nil {
		l.skip(fmt.Sprintf("failed to load control settings: %v", err))
		return
	}

	scaleFactor := l.regulator.NextScaleFactor(regulator.Input{
		GridConsumptionW:   gridConsumption,
		SolarProductionW:   production,
		LimitExport:        settings.LimitExport,
		AutoMode:           settings.AutoMode,
		AutoModeThresholdW: settings.AutoModeThresholdW,
		PowerLimitW:        settings.PowerLimitW,
	})

	if err := l.actuator.SetOutputLimit(ctx, scaleFactor); err != nil {
		if l.logger != nil {
			l.logger.Printf("[CONTROL] Inverter write failed: %v", err)
		}
		if l.events != nil {
			l.events.Add(events.EventActuatorError, "", "", false, err.Error())
		}
		// The regulator state already advanced; record the cycle anyway so
		// the dashboard shows what the controller intended.
	}

	cycle := l.cycles.Add(1)
	if l.logger != nil {
		l.logger.Printf("[CONTROL] Cycle %d: Grid=%.0f W, Home=%.0f W, Solar=%.0f W, Scale Factor=%d %%",
			cycle, gridConsumption, homeConsumption, production, scaleFactor)
	}

	if l.onCycle != nil {
		l.onCycle(history.Sample{
			Timestamp:        time.Now(),
			GridConsumptionW: gridConsumption,
			HomeConsumptionW: homeConsumption,
			SolarProductionW: production,
			ScaleFactor:      scaleFactor,
		})
	}
}

// Cycles returns the number of completed cycles.
func (l *Loop) Cycles() int64 {
	return l.cycles.Load()
}

// numericSignal extracts a numeric signal value from a snapshot.
func numericSignal(snapshot map[string]telemetry.Signal, key string) (float64, bool) {
	sig, ok := snapshot[key]
	if !ok {
		return 0, false
	}
	return sig.Number()
}
