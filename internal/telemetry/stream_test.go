package telemetry

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// fakeToken is an already-completed paho token.
type fakeToken struct {
	err error
}

func (t *fakeToken) Wait() bool                     { return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Error() error                   { return t.err }
func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

// fakeMessage is a minimal inbound MQTT message.
type fakeMessage struct {
	topic   string
	payload string
}

func (m *fakeMessage) Duplicate() bool   { return false }
func (m *fakeMessage) Qos() byte         { return 0 }
func (m *fakeMessage) Retained() bool    { return true }
func (m *fakeMessage) Topic() string     { return m.topic }
func (m *fakeMessage) MessageID() uint16 { return 0 }
func (m *fakeMessage) Payload() []byte   { return []byte(m.payload) }
func (m *fakeMessage) Ack()              {}

// fakeClient simulates a broker holding retained discovery messages. On a
// discovery subscription it immediately replays them, mirroring how a real
// broker delivers retained messages.
type fakeClient struct {
	mu           sync.Mutex
	connected    bool
	connectErr   error
	discovery    map[string]string // key -> retained JSON payload
	stateHandler mqtt.MessageHandler
}

func (c *fakeClient) Connect() mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.connectErr == nil {
		c.connected = true
	}
	return &fakeToken{err: c.connectErr}
}

func (c *fakeClient) Disconnect(quiesce uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
}

func (c *fakeClient) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *fakeClient) IsConnectionOpen() bool { return c.IsConnected() }

func (c *fakeClient) Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token {
	switch {
	case strings.Contains(topic, "/discovery/"):
		base := strings.TrimSuffix(topic, "#")
		c.mu.Lock()
		discovery := c.discovery
		c.mu.Unlock()
		for key, payload := range discovery {
			callback(c, &fakeMessage{topic: base + key, payload: payload})
		}
	case strings.Contains(topic, "/state/"):
		c.mu.Lock()
		c.stateHandler = callback
		c.mu.Unlock()
	}
	return &fakeToken{}
}

func (c *fakeClient) SubscribeMultiple(filters map[string]byte, callback mqtt.MessageHandler) mqtt.Token {
	return &fakeToken{}
}

func (c *fakeClient) Unsubscribe(topics ...string) mqtt.Token { return &fakeToken{} }

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	return &fakeToken{}
}

func (c *fakeClient) AddRoute(topic string, callback mqtt.MessageHandler) {}

func (c *fakeClient) OptionsReader() mqtt.ClientOptionsReader { return mqtt.ClientOptionsReader{} }

// deliverState feeds a state message into the stream's subscription handler.
func (c *fakeClient) deliverState(t *testing.T, topic, payload string) {
	t.Helper()
	c.mu.Lock()
	handler := c.stateHandler
	c.mu.Unlock()
	if handler == nil {
		t.Fatal("no state subscription registered")
	}
	handler(c, &fakeMessage{topic: topic, payload: payload})
}

func testConfig() Config {
	return Config{
		Broker:          "tcp://fake:1883",
		ClientID:        "test",
		Prefix:          "meter",
		StaleTimeout:    time.Second,
		ReconnectDelay:  10 * time.Millisecond,
		DiscoveryWindow: 10 * time.Millisecond,
		ConnectTimeout:  time.Second,
	}
}

func defaultDiscovery() map[string]string {
	return map[string]string{
		"momentary_active_import": `{"name":"Momentary Active Import","unit":"kW","kind":"sensor"}`,
		"momentary_active_export": `{"name":"Momentary Active Export","unit":"kW","kind":"sensor"}`,
		"relay":                   `{"name":"Relay","kind":"binary_sensor"}`,
		"meter_id":                `{"name":"Meter ID","kind":"text_sensor"}`,
	}
}

func newTestStream(t *testing.T, client *fakeClient) *Stream {
	t.Helper()
	s, err := NewStream(testConfig(), nil)
	if err != nil {
		t.Fatalf("NewStream() error: %v", err)
	}
	s.newClient = func(*mqtt.ClientOptions) mqtt.Client { return client }
	t.Cleanup(s.Stop)
	return s
}

func TestConnectDiscoversEntities(t *testing.T) {
	client := &fakeClient{discovery: defaultDiscovery()}
	s := newTestStream(t, client)

	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error: %v", err)
	}

	if got := s.State(); got != StateConnected {
		t.Errorf("State() = %v, want connected", got)
	}

	entities := s.Entities()
	if len(entities) != 4 {
		t.Fatalf("Entities() returned %d entries, want 4", len(entities))
	}
	if e := entities["momentary_active_import"]; e.Kind != KindSensor || e.Unit != "kW" {
		t.Errorf("unexpected entity metadata: %+v", e)
	}
	if e := entities["relay"]; e.Kind != KindBinarySensor {
		t.Errorf("relay kind = %q, want binary_sensor", e.Kind)
	}
}

func TestConnectIsIdempotent(t *testing.T) {
	client := &fakeClient{discovery: defaultDiscovery()}
	s := newTestStream(t, client)

	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error: %v", err)
	}
	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("second Connect() error: %v", err)
	}
}

func TestConnectFailsWithoutEntities(t *testing.T) {
	client := &fakeClient{discovery: nil}
	s := newTestStream(t, client)

	err := s.Connect(context.Background())
	if !errors.Is(err, ErrNoEntities) {
		t.Fatalf("Connect() error = %v, want ErrNoEntities", err)
	}
	if got := s.State(); got != StateDisconnected {
		t.Errorf("State() = %v after failed connect, want disconnected", got)
	}
}

func TestSnapshotBeforeConnect(t *testing.T) {
	s := newTestStream(t, &fakeClient{})

	if _, err := s.Snapshot(); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("Snapshot() error = %v, want ErrNotConnected", err)
	}
}

func TestStateMessageParsing(t *testing.T) {
	client := &fakeClient{discovery: defaultDiscovery()}
	s := newTestStream(t, client)
	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error: %v", err)
	}

	client.deliverState(t, "meter/state/momentary_active_import", "1.52")
	client.deliverState(t, "meter/state/relay", "ON")
	client.deliverState(t, "meter/state/meter_id", "")

	// Rejected payloads: NaN, garbage, unknown entity.
	client.deliverState(t, "meter/state/momentary_active_export", "nan")
	client.deliverState(t, "meter/state/momentary_active_export", "not-a-number")
	client.deliverState(t, "meter/state/unknown_entity", "5")

	snap, err := s.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot() error: %v", err)
	}

	if v, ok := snap["momentary_active_import"].Number(); !ok || v != 1.52 {
		t.Errorf("import = %v, %v; want 1.52, true", v, ok)
	}
	if v, ok := snap["relay"].Value.(bool); !ok || !v {
		t.Errorf("relay = %v, want true", snap["relay"].Value)
	}
	if v, ok := snap["meter_id"].Value.(string); !ok || v != "" {
		t.Errorf("meter_id = %v, want empty string", snap["meter_id"].Value)
	}
	if _, ok := snap["momentary_active_export"]; ok {
		t.Error("invalid numeric payloads must not populate the cache")
	}
	if _, ok := snap["unknown_entity"]; ok {
		t.Error("undiscovered entities must be ignored")
	}
}

func TestParseTruthy(t *testing.T) {
	tests := []struct {
		payload string
		want    bool
	}{
		{"ON", true},
		{"on", true},
		{"true", true},
		{"1", true},
		{"yes", true},
		{" ON ", true},
		{"OFF", false},
		{"false", false},
		{"0", false},
		{"", false},
		{"garbage", false},
	}

	for _, tt := range tests {
		if got := parseTruthy(tt.payload); got != tt.want {
			t.Errorf("parseTruthy(%q) = %v, want %v", tt.payload, got, tt.want)
		}
	}
}

func TestEnsureReadyWaitsForValues(t *testing.T) {
	client := &fakeClient{discovery: defaultDiscovery()}
	s := newTestStream(t, client)

	done := make(chan error, 1)
	go func() {
		done <- s.EnsureReady(context.Background(), 5*time.Second)
	}()

	// Let the connection come up, then report every entity.
	time.Sleep(50 * time.Millisecond)
	client.deliverState(t, "meter/state/momentary_active_import", "1.0")
	client.deliverState(t, "meter/state/momentary_active_export", "0.2")
	client.deliverState(t, "meter/state/relay", "OFF")
	client.deliverState(t, "meter/state/meter_id", "ABC123")

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("EnsureReady() error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("EnsureReady() did not return after all entities reported")
	}
}

func TestEnsureReadyToleratesSilentEntity(t *testing.T) {
	client := &fakeClient{discovery: defaultDiscovery()}
	s := newTestStream(t, client)

	// Nothing ever reports; the completeness wait is best-effort.
	start := time.Now()
	if err := s.EnsureReady(context.Background(), 150*time.Millisecond); err != nil {
		t.Fatalf("EnsureReady() error: %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("EnsureReady() took %v, expected to give up around the timeout", elapsed)
	}
}

func TestEnsureReadyFailsFastOnEmptyDiscovery(t *testing.T) {
	client := &fakeClient{discovery: nil}
	s := newTestStream(t, client)

	start := time.Now()
	err := s.EnsureReady(context.Background(), time.Second)
	if !errors.Is(err, ErrNoEntities) {
		t.Fatalf("EnsureReady() error = %v, want ErrNoEntities", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("EnsureReady() took %v, want immediate failure without retries", elapsed)
	}
}

func TestStopPreventsReuse(t *testing.T) {
	client := &fakeClient{discovery: defaultDiscovery()}
	s := newTestStream(t, client)

	s.Stop()

	if err := s.Connect(context.Background()); !errors.Is(err, ErrStopped) {
		t.Fatalf("Connect() after Stop = %v, want ErrStopped", err)
	}
	if got := s.State(); got != StateStopped {
		t.Errorf("State() = %v, want stopped", got)
	}
}

func TestDisconnectClearsCache(t *testing.T) {
	client := &fakeClient{discovery: defaultDiscovery()}
	s := newTestStream(t, client)
	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error: %v", err)
	}

	client.deliverState(t, "meter/state/momentary_active_import", "1.0")
	s.Disconnect()

	snap, err := s.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot() error: %v", err)
	}
	if len(snap) != 0 {
		t.Errorf("cache holds %d signals after Disconnect, want 0", len(snap))
	}
	if !s.LastReceipt().IsZero() {
		t.Error("LastReceipt() not reset by Disconnect")
	}
}

func TestWatchdogReconnectsStaleStream(t *testing.T) {
	if testing.Short() {
		t.Skip("watchdog test needs multi-second timing")
	}

	var mu sync.Mutex
	connects := 0

	s, err := NewStream(testConfig(), nil)
	if err != nil {
		t.Fatalf("NewStream() error: %v", err)
	}
	t.Cleanup(s.Stop)

	s.newClient = func(*mqtt.ClientOptions) mqtt.Client {
		mu.Lock()
		connects++
		mu.Unlock()
		return &fakeClient{discovery: defaultDiscovery()}
	}

	notified := make(chan struct{}, 1)
	s.OnReconnect(func() {
		select {
		case notified <- struct{}{}:
		default:
		}
	})

	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error: %v", err)
	}

	// Backdate the last receipt so the stream looks silent.
	s.mu.Lock()
	s.lastReceipt = time.Now().Add(-10 * s.cfg.StaleTimeout)
	s.mu.Unlock()

	deadline := time.After(5 * time.Second)
	for {
		mu.Lock()
		n := connects
		mu.Unlock()
		if n >= 2 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("watchdog did not reconnect; connects = %d", n)
		case <-time.After(50 * time.Millisecond):
		}
	}

	if got := s.State(); got != StateConnected {
		t.Errorf("State() = %v after reconnect, want connected", got)
	}

	select {
	case <-notified:
	default:
		t.Error("OnReconnect callback did not fire")
	}
}
