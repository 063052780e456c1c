package analytics

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/prisme-studio/prisme/backend/pkg/utils"
)

// Funnel events accepted from the frontend. Anything else is rejected so the
// event log stays queryable.
var allowedEvents = map[string]struct{}{
	"landing_view":           {},
	"chat_gate_opened":       {},
	"chat_gate_passed":       {},
	"chat_first_interaction": {},
	"background_frozen":      {},
	"quote_generated":        {},
	"deposit_clicked":        {},
	"booking_clicked":        {},
	"budget_fallback_shown":  {},
}

// Handler accepts fire-and-forget funnel events and logs them server-side.
type Handler struct{}

// New creates the analytics handler.
func New() *Handler {
	return &Handler{}
}

// RegisterRoutes registers analytics routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/analytics/event", h.handleEvent)
}

func (h *Handler) handleEvent(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Event    string                 `json:"event"`
		Metadata map[string]interface{} `json:"metadata"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "Invalid analytics payload.")
		return
	}

	if _, ok := allowedEvents[payload.Event]; !ok {
		utils.RespondError(w, http.StatusBadRequest, "Unknown analytics event.")
		return
	}

	entry, err := json.Marshal(map[string]interface{}{
		"event":    payload.Event,
		"metadata": payload.Metadata,
		"at":       time.Now().UTC().Format(time.RFC3339),
	})
	if err == nil {
		log.Printf("[prisme:event] %s", entry)
	}

	utils.RespondJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
