package inverter

// SunSpec holding-register addresses used by the controller. The SunSpec
// common block starts at 40000 with the "SunS" marker; AC power carries a
// companion base-10 scale-factor register. The 0xF0xx/0xF1xx range is the
// vendor power-control block.
const (
	regSunSpecID = 40000 // 2 registers, ASCII "SunS"

	regSerialNumber    = 40052 // 16 registers, NUL-padded ASCII
	serialNumberLength = 16

	regACPower      = 40083 // int16, watts before scaling
	regACPowerScale = 40084 // int16, power = raw * 10^scale

	regStatus = 40107 // uint16, operating state

	regActivePowerLimit     = 0xF001 // uint16, percent of rated peak
	regCommitPowerControl   = 0xF100 // write 1 to commit power-control changes
	regRestorePowerDefaults = 0xF101 // write 1 to restore power-control defaults
)

// sunSpecMarker is the value of the two registers at regSunSpecID on any
// SunSpec-compliant device ("SunS" big-endian).
const sunSpecMarker = 0x53756e53

// Inverter operating states (SunSpec inverter model St field).
const (
	StatusOff      = 1
	StatusSleeping = 2
	StatusStarting = 3
	StatusMPPT     = 4
	StatusThrottle = 5
	StatusShutdown = 6
	StatusFault    = 7
	StatusStandby  = 8
)
