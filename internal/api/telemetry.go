package api

import (
	"errors"
	"net/http"
	"time"

	"solarview/internal/telemetry"
)

// TelemetryHandler exposes the gateway signal cache
type TelemetryHandler struct {
	stream *telemetry.Stream
}

// NewTelemetryHandler creates new telemetry handler
func NewTelemetryHandler(stream *telemetry.Stream) *TelemetryHandler {
	return &TelemetryHandler{stream: stream}
}

// signalJSON is the wire form of a cached signal.
type signalJSON struct {
	Value       interface{} `json:"value"`
	LastUpdated time.Time   `json:"last_updated"`
}

// Snapshot handles GET /api/telemetry
func (h *TelemetryHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.stream.Snapshot()
	if err != nil {
		if errors.Is(err, telemetry.ErrNotConnected) {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "Gateway not connected yet"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	signals := make(map[string]signalJSON, len(snapshot))
	for key, sig := range snapshot {
		signals[key] = signalJSON{Value: sig.Value, LastUpdated: sig.LastUpdated}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"state":   h.stream.State().String(),
		"signals": signals,
	})
}

// Entities handles GET /api/telemetry/entities
func (h *TelemetryHandler) Entities(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"entities": h.stream.Entities(),
	})
}
