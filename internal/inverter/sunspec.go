package inverter

import (
	"context"
	"encoding/binary"
	"fmt"
	"log"
	"math"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/goburrow/modbus"
)

var serialPattern = regexp.MustCompile(`^[A-Za-z0-9-]+$`)

// Config holds the field-bus parameters for the inverter.
type Config struct {
	Device  string        // Serial device path (e.g., "/dev/ttyUSB0")
	Baud    int           // Port baud rate
	SlaveID byte          // Modbus slave address
	Timeout time.Duration // Per-transaction timeout
}

// SunSpec reads and controls a SunSpec-compatible inverter over Modbus RTU.
//
// Each operation opens the port, performs its transaction and closes the
// port again; the device protocol is not designed for concurrent commands,
// so a mutex keeps a single transaction outstanding at a time.
type SunSpec struct {
	mu      sync.Mutex
	handler *modbus.RTUClientHandler
	client  modbus.Client
	logger  *log.Logger

	// openPort and closePort are replaceable in tests.
	openPort  func() error
	closePort func() error

	// Serial number is read once and then treated as read-only so
	// downstream identifiers stay stable across transient read failures.
	lockedSerial string
}

// NewSunSpec creates the inverter adapter. It does not touch the bus.
func NewSunSpec(cfg Config, logger *log.Logger) *SunSpec {
	if cfg.Baud <= 0 {
		cfg.Baud = 9600
	}
	if cfg.SlaveID == 0 {
		cfg.SlaveID = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Second
	}

	handler := modbus.NewRTUClientHandler(cfg.Device)
	handler.BaudRate = cfg.Baud
	handler.DataBits = 8
	handler.Parity = "N"
	handler.StopBits = 1
	handler.SlaveId = cfg.SlaveID
	handler.Timeout = cfg.Timeout

	return &SunSpec{
		handler:   handler,
		client:    modbus.NewClient(handler),
		logger:    logger,
		openPort:  handler.Connect,
		closePort: handler.Close,
	}
}

// ReadCurrentProduction returns the inverter's AC output in watts, with the
// SunSpec scale factor applied.
func (inv *SunSpec) ReadCurrentProduction(ctx context.Context) (float64, error) {
	var power float64
	err := inv.transact(ctx, func() error {
		raw, err := inv.client.ReadHoldingRegisters(regACPower, 2)
		if err != nil {
			return fmt.Errorf("reading AC power: %w", err)
		}
		if len(raw) < 4 {
			return fmt.Errorf("short AC power response: %d bytes", len(raw))
		}
		value := int16(binary.BigEndian.Uint16(raw[0:2]))
		scale := int16(binary.BigEndian.Uint16(raw[2:4]))
		power = float64(value) * math.Pow(10, float64(scale))
		return nil
	})
	return power, err
}

// SetOutputLimit writes the active power limit and commits the change.
func (inv *SunSpec) SetOutputLimit(ctx context.Context, percent int) error {
	if percent < 0 || percent > 100 {
		return fmt.Errorf("output limit %d out of range 0-100", percent)
	}
	return inv.transact(ctx, func() error {
		if _, err := inv.client.WriteSingleRegister(regActivePowerLimit, uint16(percent)); err != nil {
			return fmt.Errorf("writing active power limit: %w", err)
		}
		if _, err := inv.client.WriteSingleRegister(regCommitPowerControl, 1); err != nil {
			return fmt.Errorf("committing power control settings: %w", err)
		}
		return nil
	})
}

// RestoreDefaults restores the inverter's power-control defaults and lifts
// the output limit back to 100 %. Called on clean shutdown so a stopped
// controller never leaves the inverter capped.
func (inv *SunSpec) RestoreDefaults(ctx context.Context) error {
	return inv.transact(ctx, func() error {
		if _, err := inv.client.WriteSingleRegister(regRestorePowerDefaults, 1); err != nil {
			return fmt.Errorf("restoring power control defaults: %w", err)
		}
		if _, err := inv.client.WriteSingleRegister(regActivePowerLimit, 100); err != nil {
			return fmt.Errorf("resetting active power limit: %w", err)
		}
		return nil
	})
}

// CheckConnection reports whether a SunSpec device answers on the bus.
func (inv *SunSpec) CheckConnection(ctx context.Context) bool {
	err := inv.transact(ctx, func() error {
		raw, err := inv.client.ReadHoldingRegisters(regSunSpecID, 2)
		if err != nil {
			return err
		}
		if len(raw) < 4 || binary.BigEndian.Uint32(raw) != sunSpecMarker {
			return fmt.Errorf("device is not SunSpec-compliant")
		}
		return nil
	})
	if err != nil && inv.logger != nil {
		inv.logger.Printf("[INVERTER] Connection check failed: %v", err)
	}
	return err == nil
}

// SerialNumber reads the device serial once and locks it. Subsequent calls
// return the locked value; a changed serial is refused rather than adopted.
func (inv *SunSpec) SerialNumber(ctx context.Context) (string, error) {
	inv.mu.Lock()
	locked := inv.lockedSerial
	inv.mu.Unlock()
	if locked != "" {
		return locked, nil
	}

	var serial string
	err := inv.transact(ctx, func() error {
		raw, err := inv.client.ReadHoldingRegisters(regSerialNumber, serialNumberLength)
		if err != nil {
			return fmt.Errorf("reading serial number: %w", err)
		}
		serial = strings.TrimRight(string(raw), "\x00 ")
		return nil
	})
	if err != nil {
		return "", err
	}

	if serial == "" {
		return "", fmt.Errorf("inverter serial number is empty")
	}
	if !serialPattern.MatchString(serial) {
		return "", fmt.Errorf("inverter serial number has unexpected format: %q", serial)
	}

	inv.mu.Lock()
	defer inv.mu.Unlock()
	if inv.lockedSerial == "" {
		inv.lockedSerial = serial
		if inv.logger != nil {
			inv.logger.Printf("[INVERTER] Locked inverter serial number: %s", serial)
		}
	} else if inv.lockedSerial != serial {
		return "", fmt.Errorf("inverter serial number changed from %q to %q; refusing", inv.lockedSerial, serial)
	}
	return inv.lockedSerial, nil
}

// Status reads the SunSpec operating state register.
func (inv *SunSpec) Status(ctx context.Context) (int, error) {
	var status int
	err := inv.transact(ctx, func() error {
		raw, err := inv.client.ReadHoldingRegisters(regStatus, 1)
		if err != nil {
			return fmt.Errorf("reading status: %w", err)
		}
		if len(raw) < 2 {
			return fmt.Errorf("short status response: %d bytes", len(raw))
		}
		status = int(binary.BigEndian.Uint16(raw))
		return nil
	})
	return status, err
}

// transact opens the port, runs fn and closes the port. The serial
// transaction itself is bounded by the handler timeout, not the context;
// the context is only consulted before touching the bus.
func (inv *SunSpec) transact(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	inv.mu.Lock()
	defer inv.mu.Unlock()

	if err := inv.openPort(); err != nil {
		return fmt.Errorf("opening %s: %w", inv.handler.Address, err)
	}
	defer inv.closePort()

	return fn()
}
