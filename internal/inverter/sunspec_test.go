package inverter

import (
	"context"
	"encoding/binary"
	"fmt"
	"testing"
)

// fakeBus simulates a SunSpec register map. Only the operations the adapter
// uses are implemented; everything else fails loudly.
type fakeBus struct {
	registers map[uint16][]byte
	writes    []write
	readErr   error
	writeErr  error
}

type write struct {
	address uint16
	value   uint16
}

func (b *fakeBus) ReadHoldingRegisters(address, quantity uint16) ([]byte, error) {
	if b.readErr != nil {
		return nil, b.readErr
	}
	data, ok := b.registers[address]
	if !ok {
		return nil, fmt.Errorf("illegal data address %d", address)
	}
	if int(quantity)*2 > len(data) {
		return nil, fmt.Errorf("read of %d registers exceeds block at %d", quantity, address)
	}
	return data[:quantity*2], nil
}

func (b *fakeBus) WriteSingleRegister(address, value uint16) ([]byte, error) {
	if b.writeErr != nil {
		return nil, b.writeErr
	}
	b.writes = append(b.writes, write{address: address, value: value})
	return nil, nil
}

func (b *fakeBus) ReadCoils(address, quantity uint16) ([]byte, error) {
	return nil, fmt.Errorf("unexpected ReadCoils")
}
func (b *fakeBus) ReadDiscreteInputs(address, quantity uint16) ([]byte, error) {
	return nil, fmt.Errorf("unexpected ReadDiscreteInputs")
}
func (b *fakeBus) WriteSingleCoil(address, value uint16) ([]byte, error) {
	return nil, fmt.Errorf("unexpected WriteSingleCoil")
}
func (b *fakeBus) WriteMultipleCoils(address, quantity uint16, value []byte) ([]byte, error) {
	return nil, fmt.Errorf("unexpected WriteMultipleCoils")
}
func (b *fakeBus) ReadInputRegisters(address, quantity uint16) ([]byte, error) {
	return nil, fmt.Errorf("unexpected ReadInputRegisters")
}
func (b *fakeBus) WriteMultipleRegisters(address, quantity uint16, value []byte) ([]byte, error) {
	return nil, fmt.Errorf("unexpected WriteMultipleRegisters")
}
func (b *fakeBus) ReadWriteMultipleRegisters(readAddress, readQuantity, writeAddress, writeQuantity uint16, value []byte) ([]byte, error) {
	return nil, fmt.Errorf("unexpected ReadWriteMultipleRegisters")
}
func (b *fakeBus) MaskWriteRegister(address, andMask, orMask uint16) ([]byte, error) {
	return nil, fmt.Errorf("unexpected MaskWriteRegister")
}
func (b *fakeBus) ReadFIFOQueue(address uint16) ([]byte, error) {
	return nil, fmt.Errorf("unexpected ReadFIFOQueue")
}

func regBytes(values ...uint16) []byte {
	out := make([]byte, 2*len(values))
	for i, v := range values {
		binary.BigEndian.PutUint16(out[i*2:], v)
	}
	return out
}

func newTestInverter(bus *fakeBus) *SunSpec {
	inv := NewSunSpec(Config{Device: "/dev/null"}, nil)
	inv.client = bus
	inv.openPort = func() error { return nil }
	inv.closePort = func() error { return nil }
	return inv
}

func TestReadCurrentProduction(t *testing.T) {
	tests := []struct {
		name  string
		value int16
		scale int16
		want  float64
	}{
		{"no scaling", 4820, 0, 4820},
		{"scale up", 482, 1, 4820},
		{"scale down", 12345, -1, 1234.5},
		{"negative power", -50, 0, -50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bus := &fakeBus{registers: map[uint16][]byte{
				regACPower: regBytes(uint16(tt.value), uint16(tt.scale)),
			}}
			inv := newTestInverter(bus)

			got, err := inv.ReadCurrentProduction(context.Background())
			if err != nil {
				t.Fatalf("ReadCurrentProduction() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ReadCurrentProduction() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSetOutputLimit(t *testing.T) {
	bus := &fakeBus{}
	inv := newTestInverter(bus)

	if err := inv.SetOutputLimit(context.Background(), 85); err != nil {
		t.Fatalf("SetOutputLimit() error: %v", err)
	}

	want := []write{
		{address: regActivePowerLimit, value: 85},
		{address: regCommitPowerControl, value: 1},
	}
	if len(bus.writes) != len(want) {
		t.Fatalf("got %d writes, want %d", len(bus.writes), len(want))
	}
	for i := range want {
		if bus.writes[i] != want[i] {
			t.Errorf("write %d = %+v, want %+v", i, bus.writes[i], want[i])
		}
	}
}

func TestSetOutputLimitRange(t *testing.T) {
	bus := &fakeBus{}
	inv := newTestInverter(bus)

	for _, percent := range []int{-1, 101, 200} {
		if err := inv.SetOutputLimit(context.Background(), percent); err == nil {
			t.Errorf("SetOutputLimit(%d) succeeded, want range error", percent)
		}
	}
	if len(bus.writes) != 0 {
		t.Error("out-of-range limit reached the bus")
	}
}

func TestRestoreDefaults(t *testing.T) {
	bus := &fakeBus{}
	inv := newTestInverter(bus)

	if err := inv.RestoreDefaults(context.Background()); err != nil {
		t.Fatalf("RestoreDefaults() error: %v", err)
	}

	want := []write{
		{address: regRestorePowerDefaults, value: 1},
		{address: regActivePowerLimit, value: 100},
	}
	if len(bus.writes) != len(want) {
		t.Fatalf("got %d writes, want %d", len(bus.writes), len(want))
	}
	for i := range want {
		if bus.writes[i] != want[i] {
			t.Errorf("write %d = %+v, want %+v", i, bus.writes[i], want[i])
		}
	}
}

func TestCheckConnection(t *testing.T) {
	bus := &fakeBus{registers: map[uint16][]byte{
		regSunSpecID: {0x53, 0x75, 0x6e, 0x53}, // "SunS"
	}}
	inv := newTestInverter(bus)

	if !inv.CheckConnection(context.Background()) {
		t.Error("CheckConnection() = false for SunSpec device")
	}

	bus.registers[regSunSpecID] = []byte{0x00, 0x00, 0x00, 0x00}
	if inv.CheckConnection(context.Background()) {
		t.Error("CheckConnection() = true for non-SunSpec device")
	}
}

func TestSerialNumberLocksFirstValue(t *testing.T) {
	serial := make([]byte, serialNumberLength*2)
	copy(serial, "SN-12345")

	bus := &fakeBus{registers: map[uint16][]byte{
		regSerialNumber: serial,
	}}
	inv := newTestInverter(bus)

	got, err := inv.SerialNumber(context.Background())
	if err != nil {
		t.Fatalf("SerialNumber() error: %v", err)
	}
	if got != "SN-12345" {
		t.Errorf("SerialNumber() = %q, want SN-12345", got)
	}

	// A later read returns the locked value without touching the bus.
	bus.readErr = fmt.Errorf("bus down")
	got, err = inv.SerialNumber(context.Background())
	if err != nil {
		t.Fatalf("second SerialNumber() error: %v", err)
	}
	if got != "SN-12345" {
		t.Errorf("second SerialNumber() = %q, want locked SN-12345", got)
	}
}

func TestSerialNumberRejectsMalformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"whitespace", "   "},
		{"control characters", "SN\x01\x0242"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			serial := make([]byte, serialNumberLength*2)
			copy(serial, tt.raw)

			bus := &fakeBus{registers: map[uint16][]byte{regSerialNumber: serial}}
			inv := newTestInverter(bus)

			if _, err := inv.SerialNumber(context.Background()); err == nil {
				t.Error("SerialNumber() accepted malformed serial")
			}
		})
	}
}

func TestStatus(t *testing.T) {
	bus := &fakeBus{registers: map[uint16][]byte{
		regStatus: regBytes(StatusMPPT),
	}}
	inv := newTestInverter(bus)

	got, err := inv.Status(context.Background())
	if err != nil {
		t.Fatalf("Status() error: %v", err)
	}
	if got != StatusMPPT {
		t.Errorf("Status() = %d, want %d", got, StatusMPPT)
	}
}

func TestTransactHonorsCancelledContext(t *testing.T) {
	bus := &fakeBus{registers: map[uint16][]byte{
		regACPower: regBytes(100, 0),
	}}
	inv := newTestInverter(bus)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := inv.ReadCurrentProduction(ctx); err == nil {
		t.Error("ReadCurrentProduction() succeeded with cancelled context")
	}
}
