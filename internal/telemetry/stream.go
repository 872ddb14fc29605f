package telemetry

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

var (
	// ErrNotConnected is returned by Snapshot before the first successful connect.
	ErrNotConnected = errors.New("telemetry stream has never connected")

	// ErrNoEntities is returned when gateway discovery yields zero entities.
	// Nothing downstream can function without entities, so this is surfaced
	// to the caller instead of being retried.
	ErrNoEntities = errors.New("gateway discovery returned no entities")

	// ErrStopped is returned once Stop has been called.
	ErrStopped = errors.New("telemetry stream is stopped")
)

// ConnectionState tracks the stream lifecycle.
type ConnectionState int32

const (
	StateDisconnected ConnectionState = iota
	StateConnecting
	StateConnected
	StateStopped
)

// String returns a human-readable state name.
func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Config holds stream configuration.
type Config struct {
	Broker   string // MQTT broker address (e.g., "tcp://localhost:1883")
	ClientID string // Unique client ID
	Username string // MQTT username (optional)
	Password string // MQTT password (optional)
	Prefix   string // Gateway topic prefix (e.g., "energymeter")
	UseTLS   bool   // Enable TLS connection

	StaleTimeout    time.Duration // No updates for longer than this marks the stream stale
	ReconnectDelay  time.Duration // Fixed delay between reconnect attempts
	DiscoveryWindow time.Duration // How long to collect retained discovery messages
	ConnectTimeout  time.Duration // Timeout for the broker CONNECT handshake
}

// Stream keeps a live, low-latency mirror of gateway entity values.
//
// The gateway announces entities as retained JSON messages under
// <prefix>/discovery/<key> and publishes values under <prefix>/state/<key>.
// The stream performs discovery once per connection, feeds state updates into
// a Cache, and runs a staleness watchdog that reconnects when the gateway
// keeps the socket open but stops delivering updates.
type Stream struct {
	cfg    Config
	cache  *Cache
	logger *log.Logger

	// newClient is replaceable in tests.
	newClient func(*mqtt.ClientOptions) mqtt.Client

	// onReconnect, when set, is called every time the watchdog drops a
	// stale connection.
	onReconnect func()

	connectMu   sync.Mutex // at most one in-flight connect attempt
	reconnectMu sync.Mutex // serializes watchdog-driven reconnection

	mu              sync.RWMutex
	state           ConnectionState
	client          mqtt.Client
	meta            map[string]EntityInfo
	lastReceipt     time.Time
	everConnected   bool
	watchdogRunning bool

	runCtx context.Context
	stop   context.CancelFunc
}

// NewStream creates a stream. It does not connect; call Connect or EnsureReady.
func NewStream(cfg Config, logger *log.Logger) (*Stream, error) {
	if cfg.Broker == "" {
		return nil, fmt.Errorf("gateway broker address is required")
	}
	if cfg.ClientID == "" {
		cfg.ClientID = fmt.Sprintf("solarview-%d", time.Now().Unix())
	}
	if cfg.StaleTimeout <= 0 {
		cfg.StaleTimeout = 30 * time.Second
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = 5 * time.Second
	}
	if cfg.DiscoveryWindow <= 0 {
		cfg.DiscoveryWindow = 2 * time.Second
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Stream{
		cfg:       cfg,
		cache:     NewCache(),
		logger:    logger,
		newClient: mqtt.NewClient,
		meta:      make(map[string]EntityInfo),
		runCtx:    ctx,
		stop:      cancel,
	}, nil
}

// OnReconnect registers a callback invoked when the watchdog drops a stale
// connection. Must be set before the first Connect.
func (s *Stream) OnReconnect(fn func()) {
	s.onReconnect = fn
}

// State returns the current connection state.
func (s *Stream) State() ConnectionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Entities returns the entity set discovered by the current connection.
func (s *Stream) Entities() map[string]EntityInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]EntityInfo, len(s.meta))
	for k, v := range s.meta {
		out[k] = v
	}
	return out
}

// Snapshot returns a copy of the latest signal values.
// It fails if the stream has never connected and never blocks on network I/O.
func (s *Stream) Snapshot() (map[string]Signal, error) {
	s.mu.RLock()
	ever := s.everConnected
	s.mu.RUnlock()

	if !ever {
		return nil, ErrNotConnected
	}
	return s.cache.Snapshot(), nil
}

// Connect establishes the gateway connection, performs entity discovery and
// subscribes to state updates. It is idempotent: if already connected it
// returns immediately. At most one connect attempt is in flight at a time.
func (s *Stream) Connect(ctx context.Context) error {
	s.connectMu.Lock()
	defer s.connectMu.Unlock()

	switch s.State() {
	case StateConnected:
		return nil
	case StateStopped:
		return ErrStopped
	}

	s.setState(StateConnecting)
	if s.logger != nil {
		s.logger.Printf("[TELEMETRY] Connecting to gateway %s", s.cfg.Broker)
	}

	client := s.newClient(s.clientOptions())

	token := client.Connect()
	if !token.WaitTimeout(s.cfg.ConnectTimeout) {
		s.setState(StateDisconnected)
		return fmt.Errorf("gateway connect timed out after %v", s.cfg.ConnectTimeout)
	}
	if err := token.Error(); err != nil {
		s.setState(StateDisconnected)
		return fmt.Errorf("gateway connect failed: %w", err)
	}

	meta, err := s.discoverEntities(ctx, client)
	if err != nil {
		client.Disconnect(250)
		s.setState(StateDisconnected)
		return err
	}

	stateTopic := s.cfg.Prefix + "/state/#"
	token = client.Subscribe(stateTopic, 0, s.handleState)
	if !token.WaitTimeout(s.cfg.ConnectTimeout) || token.Error() != nil {
		client.Disconnect(250)
		s.setState(StateDisconnected)
		return fmt.Errorf("state subscription failed: %w", token.Error())
	}

	s.mu.Lock()
	s.client = client
	s.meta = meta
	s.cache.Clear()
	s.lastReceipt = time.Now()
	s.everConnected = true
	s.state = StateConnected
	s.mu.Unlock()

	s.ensureWatchdog()

	if s.logger != nil {
		s.logger.Printf("[TELEMETRY] Connected. Discovered %d entities.", len(meta))
	}
	return nil
}

// EnsureReady connects (retrying indefinitely on connection failure with a
// fixed delay; this call can block for a long time) and then waits up to
// timeout for every discovered entity to report at least one value.
//
// The asymmetry is intentional: losing the transport is fatal to
// functionality, so connecting retries forever, while a missing sensor is
// not, so the data-completeness wait is best-effort. On timeout the missing
// set is logged and EnsureReady returns nil.
//
// A discovery failure (zero entities) is not retried and is returned to the
// caller: nothing downstream can function without entities.
func (s *Stream) EnsureReady(ctx context.Context, timeout time.Duration) error {
	for s.State() != StateConnected {
		if err := s.Connect(ctx); err != nil {
			if errors.Is(err, ErrNoEntities) || errors.Is(err, ErrStopped) {
				return err
			}
			if s.logger != nil {
				s.logger.Printf("[TELEMETRY] Retrying gateway connection in %v: %v", s.cfg.ReconnectDelay, err)
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-s.runCtx.Done():
				return ErrStopped
			case <-time.After(s.cfg.ReconnectDelay):
			}
		}
	}

	deadline := time.Now().Add(timeout)
	for {
		missing := s.missingEntities()
		if len(missing) == 0 {
			return nil
		}
		if time.Now().After(deadline) {
			if s.logger != nil {
				s.logger.Printf("[TELEMETRY] Some gateway entities did not report in time: %v", missing)
			}
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(50 * time.Millisecond):
		}
	}
}

// Disconnect releases the transport and resets the cache and watchdog timer.
// Always safe to call, including when already disconnected.
func (s *Stream) Disconnect() {
	s.mu.Lock()
	client := s.client
	s.client = nil
	s.lastReceipt = time.Time{}
	if s.state != StateStopped {
		s.state = StateDisconnected
	}
	s.mu.Unlock()

	if client != nil {
		if s.logger != nil {
			s.logger.Printf("[TELEMETRY] Disconnecting from gateway")
		}
		client.Disconnect(250)
	}
	s.cache.Clear()
}

// Stop moves the stream to its absorbing Stopped state: the watchdog is
// cancelled and the connection released. The stream cannot be reused after.
func (s *Stream) Stop() {
	s.mu.Lock()
	s.state = StateStopped
	s.mu.Unlock()

	s.stop()
	s.Disconnect()
}

// clientOptions builds the paho options. Auto-reconnect is disabled because
// the stream owns the reconnection state machine.
func (s *Stream) clientOptions() *mqtt.ClientOptions {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(s.cfg.Broker)
	opts.SetClientID(s.cfg.ClientID)

	if s.cfg.Username != "" {
		opts.SetUsername(s.cfg.Username)
	}
	if s.cfg.Password != "" {
		opts.SetPassword(s.cfg.Password)
	}
	if s.cfg.UseTLS {
		opts.SetTLSConfig(&tls.Config{InsecureSkipVerify: false})
	}

	opts.SetAutoReconnect(false)
	opts.SetCleanSession(true)
	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	opts.SetConnectionLostHandler(func(client mqtt.Client, err error) {
		if s.logger != nil {
			s.logger.Printf("[TELEMETRY] Gateway connection lost: %v", err)
		}
	})

	return opts
}

// discoverEntities collects the retained discovery messages published under
// <prefix>/discovery/<key>. Metadata from any previous session is discarded.
func (s *Stream) discoverEntities(ctx context.Context, client mqtt.Client) (map[string]EntityInfo, error) {
	topic := s.cfg.Prefix + "/discovery/#"
	keyPrefix := s.cfg.Prefix + "/discovery/"

	var mu sync.Mutex
	found := make(map[string]EntityInfo)

	handler := func(_ mqtt.Client, msg mqtt.Message) {
		s.markReceipt()

		key := strings.TrimPrefix(msg.Topic(), keyPrefix)
		if key == "" || key == msg.Topic() {
			return
		}

		var info EntityInfo
		if err := json.Unmarshal(msg.Payload(), &info); err != nil {
			if s.logger != nil {
				s.logger.Printf("[TELEMETRY] Dropping malformed discovery payload on %s: %v", msg.Topic(), err)
			}
			return
		}
		info.Key = key
		if info.Kind == "" {
			info.Kind = KindSensor
		}

		mu.Lock()
		found[key] = info
		mu.Unlock()
	}

	token := client.Subscribe(topic, 1, handler)
	if !token.WaitTimeout(s.cfg.ConnectTimeout) || token.Error() != nil {
		return nil, fmt.Errorf("discovery subscription failed: %w", token.Error())
	}

	// Retained discovery messages arrive immediately after subscribing;
	// give the broker a short window to deliver the full set.
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(s.cfg.DiscoveryWindow):
	}

	if t := client.Unsubscribe(topic); t.WaitTimeout(s.cfg.ConnectTimeout) && t.Error() != nil {
		if s.logger != nil {
			s.logger.Printf("[TELEMETRY] Discovery unsubscribe failed: %v", t.Error())
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if len(found) == 0 {
		return nil, ErrNoEntities
	}
	return found, nil
}

// handleState is the subscription callback for <prefix>/state/<key>.
// Any received message resets the staleness timer: receipt is a liveness
// proxy, not a data-validity proxy.
func (s *Stream) handleState(_ mqtt.Client, msg mqtt.Message) {
	s.markReceipt()

	key := strings.TrimPrefix(msg.Topic(), s.cfg.Prefix+"/state/")
	if key == "" || key == msg.Topic() {
		return
	}

	s.mu.RLock()
	info, known := s.meta[key]
	s.mu.RUnlock()
	if !known {
		return
	}

	payload := string(msg.Payload())

	var value interface{}
	switch info.Kind {
	case KindSensor:
		f, err := strconv.ParseFloat(strings.TrimSpace(payload), 64)
		if err != nil || math.IsNaN(f) {
			// No measurement, not zero.
			return
		}
		value = f
	case KindBinarySensor:
		value = parseTruthy(payload)
	case KindTextSensor:
		// Explicit empty text is a valid value.
		value = payload
	default:
		return
	}

	s.cache.Upsert(key, value, time.Now())
}

// markReceipt records the arrival time of any gateway message.
func (s *Stream) markReceipt() {
	s.mu.Lock()
	s.lastReceipt = time.Now()
	s.mu.Unlock()
}

// LastReceipt returns the time of the last received gateway message.
func (s *Stream) LastReceipt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastReceipt
}

func (s *Stream) setState(state ConnectionState) {
	s.mu.Lock()
	if s.state != StateStopped {
		s.state = state
	}
	s.mu.Unlock()
}

// missingEntities returns the discovered keys that have not reported yet.
func (s *Stream) missingEntities() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var missing []string
	for key := range s.meta {
		if _, ok := s.cache.Get(key); !ok {
			missing = append(missing, key)
		}
	}
	return missing
}

// ensureWatchdog starts the staleness watchdog if it is not already running.
func (s *Stream) ensureWatchdog() {
	s.mu.Lock()
	if s.watchdogRunning {
		s.mu.Unlock()
		return
	}
	s.watchdogRunning = true
	s.mu.Unlock()

	go s.watchdog()
}

// watchdog detects silent connection death: the gateway keeps the socket
// open but stops delivering updates. It runs until Stop.
func (s *Stream) watchdog() {
	poll := s.cfg.StaleTimeout / 10
	if poll < time.Second {
		poll = time.Second
	}
	if poll > 2*time.Second {
		poll = 2 * time.Second
	}

	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		select {
		case <-s.runCtx.Done():
			return
		case <-ticker.C:
		}

		if !s.stale() {
			continue
		}

		// Re-validate under the reconnect lock: a value may have arrived
		// between the check and the lock acquisition.
		s.reconnectMu.Lock()
		if !s.stale() {
			s.reconnectMu.Unlock()
			continue
		}
		if s.logger != nil {
			s.logger.Printf("[TELEMETRY] Stream stale (no updates for > %v). Reconnecting...", s.cfg.StaleTimeout)
		}
		if s.onReconnect != nil {
			s.onReconnect()
		}
		s.reconnectOnce()
		s.reconnectMu.Unlock()
	}
}

// stale reports whether the connected stream has gone silent for longer
// than the stale timeout. A connected stream with no receipt recorded yet
// is given time rather than treated as stale.
func (s *Stream) stale() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.state != StateConnected {
		return false
	}
	if s.lastReceipt.IsZero() {
		return false
	}
	return time.Since(s.lastReceipt) > s.cfg.StaleTimeout
}

// reconnectOnce drops the current connection and retries Connect with a
// fixed delay until it succeeds or the stream is stopped. Transport errors
// are logged and retried; they never crash the process.
func (s *Stream) reconnectOnce() {
	s.Disconnect()

	for s.State() != StateConnected {
		if err := s.Connect(s.runCtx); err != nil {
			if errors.Is(err, ErrStopped) {
				return
			}
			if s.logger != nil {
				s.logger.Printf("[TELEMETRY] Reconnect failed, retrying in %v: %v", s.cfg.ReconnectDelay, err)
			}
			select {
			case <-s.runCtx.Done():
				return
			case <-time.After(s.cfg.ReconnectDelay):
			}
		}
	}
}

// parseTruthy coerces a discrete gateway payload to a boolean.
func parseTruthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "on", "true", "1", "yes":
		return true
	default:
		return false
	}
}
