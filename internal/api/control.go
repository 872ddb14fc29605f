package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"solarview/internal/auth"
	"solarview/internal/events"
	"solarview/internal/storage"
)

// ControlHandler handles operator control settings endpoints
type ControlHandler struct {
	store      storage.Store
	eventStore *events.Store
}

// NewControlHandler creates new control handler
func NewControlHandler(store storage.Store, eventStore *events.Store) *ControlHandler {
	return &ControlHandler{
		store:      store,
		eventStore: eventStore,
	}
}

// Get handles GET /api/control
func (h *ControlHandler) Get(w http.ResponseWriter, r *http.Request) {
	settings, err := h.store.ControlSettings()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to load control settings"})
		return
	}

	writeJSON(w, http.StatusOK, settings)
}

// Set handles POST /api/control. The new settings take effect on the next
// control cycle; there is no need to notify the loop.
func (h *ControlHandler) Set(w http.ResponseWriter, r *http.Request) {
	var settings storage.ControlSettings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}

	if settings.PowerLimitW < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Power limit cannot be negative"})
		return
	}
	if settings.AutoModeThresholdW < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Auto mode threshold cannot be negative"})
		return
	}

	if err := h.store.SetControlSettings(settings); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to save control settings"})
		return
	}

	username := ""
	if user := auth.GetUserFromContext(r.Context()); user != nil {
		username = user.Username
	}
	details := fmt.Sprintf("limit_export=%v auto_mode=%v power_limit=%.0f",
		settings.LimitExport, settings.AutoMode, settings.PowerLimitW)
	h.eventStore.Add(events.EventControlChange, username, getClientIP(r), true, details)

	writeJSON(w, http.StatusOK, settings)
}
