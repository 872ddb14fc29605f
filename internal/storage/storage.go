// Package storage persists operator control settings so a restart does not
// silently re-enable unlimited export.
package storage

import "errors"

// ErrNotFound is returned when a key is not found
var ErrNotFound = errors.New("key not found")

// ControlSettings are the operator-set regulator inputs. They are consumed
// by the control loop at the start of every cycle and survive restarts.
type ControlSettings struct {
	LimitExport        bool    `json:"limit_export"`
	AutoMode           bool    `json:"auto_mode"`
	AutoModeThresholdW float64 `json:"auto_mode_threshold_w"`
	PowerLimitW        float64 `json:"power_limit_w"`
}

// Store is the interface for control-settings persistence.
type Store interface {
	// ControlSettings returns the persisted settings, or zero-value
	// settings (export limiting off) if none were saved yet.
	ControlSettings() (ControlSettings, error)

	// SetControlSettings persists the settings.
	SetControlSettings(ControlSettings) error

	// Close closes the storage
	Close() error
}
