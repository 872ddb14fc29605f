// Package config loads and persists the controller configuration from a
// .env style file, with environment-variable names and thread-safe access.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Environment variable names
const (
	EnvAddr          = "SOLARVIEW_ADDR"
	EnvJWTSecret     = "SOLARVIEW_JWT_SECRET"
	EnvJWTExpiration = "SOLARVIEW_JWT_EXPIRATION"
	EnvNoAuth        = "SOLARVIEW_NO_AUTH"
	EnvDBPath        = "SOLARVIEW_DB_PATH"
	EnvHistoryLength = "SOLARVIEW_HISTORY_LENGTH"

	// TLS settings
	EnvTLSEnabled  = "SOLARVIEW_TLS_ENABLED"
	EnvTLSCertFile = "SOLARVIEW_TLS_CERTFILE"
	EnvTLSKeyFile  = "SOLARVIEW_TLS_KEYFILE"
	EnvTLSAutoGen  = "SOLARVIEW_TLS_AUTO_GENERATE"

	// Sensor gateway settings
	EnvMQTTBroker     = "SOLARVIEW_MQTT_BROKER"
	EnvMQTTClientID   = "SOLARVIEW_MQTT_CLIENT_ID"
	EnvMQTTUsername   = "SOLARVIEW_MQTT_USERNAME"
	EnvMQTTPassword   = "SOLARVIEW_MQTT_PASSWORD"
	EnvMQTTPrefix     = "SOLARVIEW_MQTT_PREFIX"
	EnvMQTTUseTLS     = "SOLARVIEW_MQTT_USE_TLS"
	EnvStaleTimeout   = "SOLARVIEW_STALE_TIMEOUT"
	EnvReconnectDelay = "SOLARVIEW_RECONNECT_DELAY"
	EnvGridImportKey  = "SOLARVIEW_GRID_IMPORT_KEY"
	EnvGridExportKey  = "SOLARVIEW_GRID_EXPORT_KEY"

	// Inverter settings
	EnvInverterDevice  = "SOLARVIEW_INVERTER_DEVICE"
	EnvInverterBaud    = "SOLARVIEW_INVERTER_BAUD"
	EnvInverterSlaveID = "SOLARVIEW_INVERTER_SLAVE_ID"
	EnvInverterTimeout = "SOLARVIEW_INVERTER_TIMEOUT"

	// Regulator settings
	EnvCyclePeriod     = "SOLARVIEW_CYCLE_PERIOD"
	EnvPeakProduction  = "SOLARVIEW_PEAK_PRODUCTION_W"
	EnvMinProduction   = "SOLARVIEW_MIN_PRODUCTION_W"
	EnvMaxExport       = "SOLARVIEW_MAX_EXPORT_W"
	EnvMaxDeltaPercent = "SOLARVIEW_MAX_DELTA_PERCENT_PER_15S"
	EnvGain            = "SOLARVIEW_GAIN"
	EnvLowPVThreshold  = "SOLARVIEW_LOW_PV_THRESHOLD_W"
)

// Default values
const (
	DefaultAddr          = ":8080"
	DefaultJWTExpiration = 24 * time.Hour
	DefaultNoAuth        = false
	DefaultDBPath        = "solarview.db"
	DefaultHistoryLength = 50

	DefaultTLSEnabled  = false
	DefaultTLSCertFile = "certs/server.crt"
	DefaultTLSKeyFile  = "certs/server.key"
	DefaultTLSAutoGen  = true

	DefaultMQTTBroker     = "tcp://127.0.0.1:1883"
	DefaultMQTTPrefix     = "energymeter"
	DefaultMQTTUseTLS     = false
	DefaultStaleTimeout   = 30 * time.Second
	DefaultReconnectDelay = 5 * time.Second
	DefaultGridImportKey  = "momentary_active_import"
	DefaultGridExportKey  = "momentary_active_export"

	DefaultInverterDevice  = "/dev/ttyUSB0"
	DefaultInverterBaud    = 9600
	DefaultInverterSlaveID = 1
	DefaultInverterTimeout = 2 * time.Second

	DefaultCyclePeriod     = 10 * time.Second
	DefaultPeakProduction  = 10500.0
	DefaultMinProduction   = 300.0
	DefaultMaxExport       = 200.0
	DefaultMaxDeltaPercent = 5.0
	DefaultGain            = 0.3
	DefaultLowPVThreshold  = 50.0
)

// Config holds all application configuration.
// All access should be through getter methods for thread safety.
type Config struct {
	mu       sync.RWMutex
	filePath string
	dirty    bool // tracks if config was modified

	// Server settings
	addr          string
	tlsEnabled    bool
	tlsCertFile   string
	tlsKeyFile    string
	tlsAutoGen    bool
	dbPath        string
	historyLength int

	// Security settings
	jwtSecret     string
	jwtExpiration time.Duration
	noAuth        bool

	// Sensor gateway settings
	mqttBroker     string
	mqttClientID   string
	mqttUsername   string
	mqttPassword   string
	mqttPrefix     string
	mqttUseTLS     bool
	staleTimeout   time.Duration
	reconnectDelay time.Duration
	gridImportKey  string
	gridExportKey  string

	// Inverter settings
	inverterDevice  string
	inverterBaud    int
	inverterSlaveID int
	inverterTimeout time.Duration

	// Regulator settings
	cyclePeriod     time.Duration
	peakProduction  float64
	minProduction   float64
	maxExport       float64
	maxDeltaPercent float64
	gain            float64
	lowPVThreshold  float64
}

// Load loads configuration from a .env file or creates it with defaults.
// This is the main entry point for configuration initialization.
func Load(filePath string) (*Config, error) {
	cfg := &Config{
		filePath: filePath,
	}

	cfg.setDefaults()

	if err := cfg.loadFromFile(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		// File doesn't exist - will be created with defaults
		cfg.dirty = true
	}

	// Generate JWT secret if empty
	if cfg.jwtSecret == "" {
		secret, err := generateSecureSecret(32)
		if err != nil {
			return nil, fmt.Errorf("failed to generate JWT secret: %w", err)
		}
		cfg.jwtSecret = secret
		cfg.dirty = true
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if cfg.dirty {
		if err := cfg.Save(); err != nil {
			return nil, fmt.Errorf("failed to save config: %w", err)
		}
	}

	return cfg, nil
}

// setDefaults initializes all fields with default values.
func (c *Config) setDefaults() {
	c.addr = DefaultAddr
	c.tlsEnabled = DefaultTLSEnabled
	c.tlsCertFile = DefaultTLSCertFile
	c.tlsKeyFile = DefaultTLSKeyFile
	c.tlsAutoGen = DefaultTLSAutoGen
	c.dbPath = DefaultDBPath
	c.historyLength = DefaultHistoryLength

	c.jwtSecret = ""
	c.jwtExpiration = DefaultJWTExpiration
	c.noAuth = DefaultNoAuth

	c.mqttBroker = DefaultMQTTBroker
	c.mqttClientID = ""
	c.mqttUsername = ""
	c.mqttPassword = ""
	c.mqttPrefix = DefaultMQTTPrefix
	c.mqttUseTLS = DefaultMQTTUseTLS
	c.staleTimeout = DefaultStaleTimeout
	c.reconnectDelay = DefaultReconnectDelay
	c.gridImportKey = DefaultGridImportKey
	c.gridExportKey = DefaultGridExportKey

	c.inverterDevice = DefaultInverterDevice
	c.inverterBaud = DefaultInverterBaud
	c.inverterSlaveID = DefaultInverterSlaveID
	c.inverterTimeout = DefaultInverterTimeout

	c.cyclePeriod = DefaultCyclePeriod
	c.peakProduction = DefaultPeakProduction
	c.minProduction = DefaultMinProduction
	c.maxExport = DefaultMaxExport
	c.maxDeltaPercent = DefaultMaxDeltaPercent
	c.gain = DefaultGain
	c.lowPVThreshold = DefaultLowPVThreshold
}

// loadFromFile reads configuration from the .env file.
func (c *Config) loadFromFile() error {
	file, err := os.Open(c.filePath)
	if err != nil {
		return err
	}
	defer file.Close()

	values, err := ParseEnvFile(file)
	if err != nil {
		return err
	}

	c.applyValues(values)
	return nil
}

// applyValues applies parsed key-value pairs to config.
func (c *Config) applyValues(values map[string]string) {
	if v, ok := values[EnvAddr]; ok && v != "" {
		c.addr = v
	}
	if v, ok := values[EnvJWTSecret]; ok && v != "" {
		c.jwtSecret = v
	}
	if v, ok := values[EnvJWTExpiration]; ok && v != "" {
		if seconds, err := strconv.Atoi(v); err == nil && seconds > 0 {
			c.jwtExpiration = time.Duration(seconds) * time.Second
		}
	}
	if v, ok := values[EnvNoAuth]; ok {
		c.noAuth = parseBool(v)
	}
	if v, ok := values[EnvDBPath]; ok && v != "" {
		c.dbPath = v
	}
	if v, ok := values[EnvHistoryLength]; ok {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.historyLength = n
		}
	}

	// TLS settings
	if v, ok := values[EnvTLSEnabled]; ok {
		c.tlsEnabled = parseBool(v)
	}
	if v, ok := values[EnvTLSCertFile]; ok && v != "" {
		c.tlsCertFile = v
	}
	if v, ok := values[EnvTLSKeyFile]; ok && v != "" {
		c.tlsKeyFile = v
	}
	if v, ok := values[EnvTLSAutoGen]; ok {
		c.tlsAutoGen = parseBool(v)
	}

	// Sensor gateway settings
	if v, ok := values[EnvMQTTBroker]; ok && v != "" {
		c.mqttBroker = v
	}
	if v, ok := values[EnvMQTTClientID]; ok {
		c.mqttClientID = v
	}
	if v, ok := values[EnvMQTTUsername]; ok {
		c.mqttUsername = v
	}
	if v, ok := values[EnvMQTTPassword]; ok {
		c.mqttPassword = v
	}
	if v, ok := values[EnvMQTTPrefix]; ok && v != "" {
		c.mqttPrefix = v
	}
	if v, ok := values[EnvMQTTUseTLS]; ok {
		c.mqttUseTLS = parseBool(v)
	}
	if v, ok := values[EnvStaleTimeout]; ok {
		if seconds, err := strconv.Atoi(v); err == nil && seconds > 0 {
			c.staleTimeout = time.Duration(seconds) * time.Second
		}
	}
	if v, ok := values[EnvReconnectDelay]; ok {
		if seconds, err := strconv.Atoi(v); err == nil && seconds > 0 {
			c.reconnectDelay = time.Duration(seconds) * time.Second
		}
	}
	if v, ok := values[EnvGridImportKey]; ok && v != "" {
		c.gridImportKey = v
	}
	if v, ok := values[EnvGridExportKey]; ok && v != "" {
		c.gridExportKey = v
	}

	// Inverter settings
	if v, ok := values[EnvInverterDevice]; ok && v != "" {
		c.inverterDevice = v
	}
	if v, ok := values[EnvInverterBaud]; ok {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.inverterBaud = n
		}
	}
	if v, ok := values[EnvInverterSlaveID]; ok {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n < 248 {
			c.inverterSlaveID = n
		}
	}
	if v, ok := values[EnvInverterTimeout]; ok {
		if seconds, err := strconv.Atoi(v); err == nil && seconds > 0 {
			c.inverterTimeout = time.Duration(seconds) * time.Second
		}
	}

	// Regulator settings
	if v, ok := values[EnvCyclePeriod]; ok {
		if seconds, err := strconv.Atoi(v); err == nil && seconds > 0 {
			c.cyclePeriod = time.Duration(seconds) * time.Second
		}
	}
	if v, ok := values[EnvPeakProduction]; ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			c.peakProduction = f
		}
	}
	if v, ok := values[EnvMinProduction]; ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 {
			c.minProduction = f
		}
	}
	if v, ok := values[EnvMaxExport]; ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 {
			c.maxExport = f
		}
	}
	if v, ok := values[EnvMaxDeltaPercent]; ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			c.maxDeltaPercent = f
		}
	}
	if v, ok := values[EnvGain]; ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 && f <= 1 {
			c.gain = f
		}
	}
	if v, ok := values[EnvLowPVThreshold]; ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 {
			c.lowPVThreshold = f
		}
	}
}

// validate checks if configuration is valid.
func (c *Config) validate() error {
	if c.addr == "" {
		return errors.New("server address cannot be empty")
	}

	host, port, err := net.SplitHostPort(c.addr)
	if err != nil {
		if _, err := strconv.Atoi(strings.TrimPrefix(c.addr, ":")); err != nil {
			return fmt.Errorf("invalid server address format: %s", c.addr)
		}
	} else {
		if port == "" {
			return errors.New("port cannot be empty")
		}
		portNum, err := strconv.Atoi(port)
		if err != nil || portNum < 1 || portNum > 65535 {
			return fmt.Errorf("invalid port number: %s", port)
		}
		_ = host // host can be empty (bind to all interfaces)
	}

	if c.jwtExpiration < time.Minute {
		return errors.New("JWT expiration must be at least 1 minute")
	}
	if c.jwtExpiration > 365*24*time.Hour {
		return errors.New("JWT expiration cannot exceed 1 year")
	}

	if c.mqttBroker == "" {
		return errors.New("gateway broker address cannot be empty")
	}
	if c.staleTimeout < time.Second {
		return errors.New("stale timeout must be at least 1 second")
	}
	if c.cyclePeriod < time.Second {
		return errors.New("cycle period must be at least 1 second")
	}
	if c.minProduction > c.peakProduction {
		return errors.New("minimum production cannot exceed peak production")
	}

	return nil
}

// Save writes current configuration to the .env file.
func (c *Config) Save() error {
	c.mu.RLock()
	values := c.toMap()
	filePath := c.filePath
	c.mu.RUnlock()

	if err := WriteEnvFile(filePath, values); err != nil {
		return err
	}

	c.mu.Lock()
	c.dirty = false
	c.mu.Unlock()

	return nil
}

// toMap converts config to key-value map for saving.
func (c *Config) toMap() map[string]string {
	return map[string]string{
		EnvAddr:          c.addr,
		EnvJWTSecret:     c.jwtSecret,
		EnvJWTExpiration: strconv.Itoa(int(c.jwtExpiration.Seconds())),
		EnvNoAuth:        strconv.FormatBool(c.noAuth),
		EnvDBPath:        c.dbPath,
		EnvHistoryLength: strconv.Itoa(c.historyLength),

		EnvTLSEnabled:  strconv.FormatBool(c.tlsEnabled),
		EnvTLSCertFile: c.tlsCertFile,
		EnvTLSKeyFile:  c.tlsKeyFile,
		EnvTLSAutoGen:  strconv.FormatBool(c.tlsAutoGen),

		EnvMQTTBroker:     c.mqttBroker,
		EnvMQTTClientID:   c.mqttClientID,
		EnvMQTTUsername:   c.mqttUsername,
		EnvMQTTPassword:   c.mqttPassword,
		EnvMQTTPrefix:     c.mqttPrefix,
		EnvMQTTUseTLS:     strconv.FormatBool(c.mqttUseTLS),
		EnvStaleTimeout:   strconv.Itoa(int(c.staleTimeout.Seconds())),
		EnvReconnectDelay: strconv.Itoa(int(c.reconnectDelay.Seconds())),
		EnvGridImportKey:  c.gridImportKey,
		EnvGridExportKey:  c.gridExportKey,

		EnvInverterDevice:  c.inverterDevice,
		EnvInverterBaud:    strconv.Itoa(c.inverterBaud),
		EnvInverterSlaveID: strconv.Itoa(c.inverterSlaveID),
		EnvInverterTimeout: strconv.Itoa(int(c.inverterTimeout.Seconds())),

		EnvCyclePeriod:     strconv.Itoa(int(c.cyclePeriod.Seconds())),
		EnvPeakProduction:  strconv.FormatFloat(c.peakProduction, 'f', -1, 64),
		EnvMinProduction:   strconv.FormatFloat(c.minProduction, 'f', -1, 64),
		EnvMaxExport:       strconv.FormatFloat(c.maxExport, 'f', -1, 64),
		EnvMaxDeltaPercent: strconv.FormatFloat(c.maxDeltaPercent, 'f', -1, 64),
		EnvGain:            strconv.FormatFloat(c.gain, 'f', -1, 64),
		EnvLowPVThreshold:  strconv.FormatFloat(c.lowPVThreshold, 'f', -1, 64),
	}
}

// Getters (thread-safe)

// Addr returns the server address.
func (c *Config) Addr() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.addr
}

// TLSEnabled returns whether HTTPS is enabled.
func (c *Config) TLSEnabled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tlsEnabled
}

// TLSCertFile returns the TLS certificate path.
func (c *Config) TLSCertFile() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tlsCertFile
}

// TLSKeyFile returns the TLS key path.
func (c *Config) TLSKeyFile() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tlsKeyFile
}

// TLSAutoGenerate returns whether a missing certificate is self-signed on start.
func (c *Config) TLSAutoGenerate() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tlsAutoGen
}

// DBPath returns the settings database path.
func (c *Config) DBPath() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.dbPath
}

// HistoryLength returns the cycle-history ring capacity.
func (c *Config) HistoryLength() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.historyLength
}

// JWTSecret returns the JWT secret key.
func (c *Config) JWTSecret() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.jwtSecret
}

// JWTExpiration returns the JWT token expiration duration.
func (c *Config) JWTExpiration() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.jwtExpiration
}

// NoAuth returns whether authentication is disabled.
func (c *Config) NoAuth() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.noAuth
}

// MQTTBroker returns the gateway broker address.
func (c *Config) MQTTBroker() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.mqttBroker
}

// MQTTClientID returns the gateway client ID.
func (c *Config) MQTTClientID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.mqttClientID
}

// MQTTUsername returns the gateway username.
func (c *Config) MQTTUsername() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.mqttUsername
}

// MQTTPassword returns the gateway password.
func (c *Config) MQTTPassword() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.mqttPassword
}

// MQTTPrefix returns the gateway topic prefix.
func (c *Config) MQTTPrefix() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.mqttPrefix
}

// MQTTUseTLS returns whether TLS is enabled for the gateway connection.
func (c *Config) MQTTUseTLS() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.mqttUseTLS
}

// StaleTimeout returns the telemetry staleness window.
func (c *Config) StaleTimeout() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.staleTimeout
}

// ReconnectDelay returns the fixed delay between reconnect attempts.
func (c *Config) ReconnectDelay() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.reconnectDelay
}

// GridImportKey returns the gateway entity key for grid import power.
func (c *Config) GridImportKey() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gridImportKey
}

// GridExportKey returns the gateway entity key for grid export power.
func (c *Config) GridExportKey() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gridExportKey
}

// InverterDevice returns the inverter serial device path.
func (c *Config) InverterDevice() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.inverterDevice
}

// InverterBaud returns the inverter port baud rate.
func (c *Config) InverterBaud() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.inverterBaud
}

// InverterSlaveID returns the inverter Modbus slave address.
func (c *Config) InverterSlaveID() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.inverterSlaveID
}

// InverterTimeout returns the per-transaction bus timeout.
func (c *Config) InverterTimeout() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.inverterTimeout
}

// CyclePeriod returns the control loop period.
func (c *Config) CyclePeriod() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cyclePeriod
}

// PeakProduction returns the inverter rated peak output in watts.
func (c *Config) PeakProduction() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.peakProduction
}

// MinProduction returns the minimum production floor in watts.
func (c *Config) MinProduction() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.minProduction
}

// MaxExport returns the export ceiling in watts.
func (c *Config) MaxExport() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.maxExport
}

// MaxDeltaPercent returns the ramp limit in percent of peak per 15 s.
func (c *Config) MaxDeltaPercent() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.maxDeltaPercent
}

// Gain returns the regulator proportional gain.
func (c *Config) Gain() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gain
}

// LowPVThreshold returns the low-PV disengagement threshold in watts.
func (c *Config) LowPVThreshold() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lowPVThreshold
}

// FilePath returns the path to the .env file.
func (c *Config) FilePath() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.filePath
}

// Setters (thread-safe, auto-save)

// SetAddr sets the server address and saves to file.
func (c *Config) SetAddr(addr string) error {
	c.mu.Lock()
	c.addr = addr
	c.dirty = true
	c.mu.Unlock()

	if err := c.validate(); err != nil {
		return err
	}
	return c.Save()
}

// SetNoAuth sets the no-auth flag and saves to file.
func (c *Config) SetNoAuth(noAuth bool) error {
	c.mu.Lock()
	c.noAuth = noAuth
	c.dirty = true
	c.mu.Unlock()

	return c.Save()
}

// Helper functions

// generateSecureSecret generates a cryptographically secure random hex string.
func generateSecureSecret(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// parseBool parses a boolean string value.
// Accepts: true, false, 1, 0, yes, no (case-insensitive)
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "true", "1", "yes", "on":
		return true
	default:
		return false
	}
}

// String returns a string representation of the config (without secrets).
func (c *Config) String() string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	secretDisplay := "[not set]"
	if c.jwtSecret != "" {
		secretDisplay = "[set]"
	}

	return fmt.Sprintf(
		"Config{Addr: %q, JWTSecret: %s, NoAuth: %v, Broker: %q, Inverter: %q, CyclePeriod: %v}",
		c.addr, secretDisplay, c.noAuth, c.mqttBroker, c.inverterDevice, c.cyclePeriod,
	)
}
