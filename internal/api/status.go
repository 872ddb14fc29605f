package api

import (
	"net/http"
	"time"

	"solarview/internal/history"
)

// StatusHandler reports controller status and cycle history
type StatusHandler struct {
	server *Server
}

// NewStatusHandler creates new status handler
func NewStatusHandler(s *Server) *StatusHandler {
	return &StatusHandler{server: s}
}

// statusResponse is the /api/status payload.
type statusResponse struct {
	Version       string          `json:"version"`
	UptimeSeconds int64           `json:"uptime_seconds"`
	GatewayState  string          `json:"gateway_state"`
	LastReceipt   *time.Time      `json:"last_receipt,omitempty"`
	Cycles        int64           `json:"cycles"`
	LastSample    *history.Sample `json:"last_sample,omitempty"`
}

// Status handles GET /api/status
func (h *StatusHandler) Status(w http.ResponseWriter, r *http.Request) {
	s := h.server

	resp := statusResponse{
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		GatewayState:  s.stream.State().String(),
		Cycles:        s.loop.Cycles(),
	}

	if t := s.stream.LastReceipt(); !t.IsZero() {
		resp.LastReceipt = &t
	}
	if sample, ok := s.ring.Latest(); ok {
		resp.LastSample = &sample
	}

	writeJSON(w, http.StatusOK, resp)
}

// History handles GET /api/history. It returns both the raw samples and
// per-metric series ready for charting.
func (h *StatusHandler) History(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"samples": h.server.ring.All(),
		"series":  h.server.ring.Series(),
	})
}
