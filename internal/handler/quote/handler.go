package quote

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/prisme-studio/prisme/backend/internal/config"
	quoteModel "github.com/prisme-studio/prisme/backend/internal/model/quote"
	"github.com/prisme-studio/prisme/backend/internal/service/pricing"
	"github.com/prisme-studio/prisme/backend/pkg/utils"
)

// Handler exposes direct quote calculation, bypassing the consult flow.
type Handler struct {
	engine  *pricing.Engine
	catalog quoteModel.Catalog
	cfg     config.ConsultConfig
}

// New creates the quote handler.
func New(engine *pricing.Engine, catalog quoteModel.Catalog, cfg config.ConsultConfig) *Handler {
	return &Handler{engine: engine, catalog: catalog, cfg: cfg}
}

// RegisterRoutes registers quote routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/quote/calculate", h.handleCalculate)
}

func (h *Handler) handleCalculate(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		PackageID     string   `json:"packageId"`
		AddOnIDs      []string `json:"addOnIds"`
		TimelineMode  string   `json:"timelineMode"`
		CapacityLevel string   `json:"capacityLevel"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "Invalid quote payload.")
		return
	}

	if _, ok := h.catalog.FindPackage(payload.PackageID); !ok {
		utils.RespondError(w, http.StatusBadRequest, "Unknown packageId.")
		return
	}
	if !quoteModel.ValidTimelineMode(payload.TimelineMode) {
		utils.RespondError(w, http.StatusBadRequest, "timelineMode must be STANDARD or RUSH.")
		return
	}

	var addOnIDs []string
	for _, id := range payload.AddOnIDs {
		if _, ok := h.catalog.FindAddOn(id); ok {
			addOnIDs = append(addOnIDs, id)
		}
	}

	breakdown, warnings, err := h.engine.Calculate(quoteModel.Input{
		PackageID:     payload.PackageID,
		AddOnIDs:      addOnIDs,
		TimelineMode:  quoteModel.TimelineMode(payload.TimelineMode),
		CapacityLevel: quoteModel.ParseCapacityLevel(payload.CapacityLevel, h.cfg.DefaultCapacity),
	}, pricing.Options{AllowRushInNormal: h.cfg.AllowRushInNormal})
	if err != nil {
		status := http.StatusBadRequest
		if !errors.Is(err, pricing.ErrUnknownPackage) && !errors.Is(err, pricing.ErrRushUnavailable) {
			status = http.StatusInternalServerError
		}
		utils.RespondError(w, status, err.Error())
		return
	}

	if warnings == nil {
		warnings = []string{}
	}
	utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"ok":       true,
		"quote":    breakdown,
		"warnings": warnings,
	})
}
