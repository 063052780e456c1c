package consult

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/prisme-studio/prisme/backend/internal/config"
	consultModel "github.com/prisme-studio/prisme/backend/internal/model/consult"
	"github.com/prisme-studio/prisme/backend/internal/model/quote"
	"github.com/prisme-studio/prisme/backend/internal/service/budget"
	consultService "github.com/prisme-studio/prisme/backend/internal/service/consult"
	"github.com/prisme-studio/prisme/backend/internal/service/pricing"
	"github.com/prisme-studio/prisme/backend/internal/service/ratelimit"
	"github.com/prisme-studio/prisme/backend/pkg/utils"
)

const (
	startMaxRequests = 20
	startWindow      = 10 * time.Minute
	turnMaxRequests  = 40
	turnWindow       = 15 * time.Minute
)

const (
	openingMessage = "Tell me the core business problem you want solved, who it impacts most, and what outcome would make this an obvious win."

	limitReachedMessage = "You have reached the live consult limit for this session. Use the booking or deposit action to continue."

	budgetFallbackMessage = "Live AI is temporarily offline for today. Leave your project details and email, and you will get a manual response with fixed pricing."
)

// Handler serves the consult session flow: start, per-turn resolution, and
// the public configuration snapshot.
type Handler struct {
	sessions  *consultService.Store
	resolver  *consultService.Resolver
	tracker   *budget.Tracker
	limiter   *ratelimit.Limiter
	catalog   quote.Catalog
	cfg       config.ConsultConfig
	aiEnabled bool
}

// New creates the consult handler. aiEnabled mirrors whether an external model
// is configured; it gates the budget-fallback branch.
func New(sessions *consultService.Store, resolver *consultService.Resolver, tracker *budget.Tracker, limiter *ratelimit.Limiter, catalog quote.Catalog, cfg config.ConsultConfig, aiEnabled bool) *Handler {
	return &Handler{
		sessions:  sessions,
		resolver:  resolver,
		tracker:   tracker,
		limiter:   limiter,
		catalog:   catalog,
		cfg:       cfg,
		aiEnabled: aiEnabled,
	}
}

// RegisterRoutes registers consult routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/consult/config", h.handleConfig)
	r.Post("/consult/start", h.handleStart)
	r.Post("/consult/turn", h.handleTurn)
}

type turnResponse struct {
	OK               bool                `json:"ok"`
	SessionState     consultModel.State  `json:"sessionState"`
	AssistantMessage string              `json:"assistantMessage"`
	RemainingTurns   int                 `json:"remainingTurns"`
	Quote            *quote.Breakdown    `json:"quote,omitempty"`
	CapacityLevel    quote.CapacityLevel `json:"capacityLevel,omitempty"`
}

func (h *Handler) handleStart(w http.ResponseWriter, r *http.Request) {
	ip := utils.ClientIP(r)

	var payload struct {
		SessionToken  string `json:"sessionToken"`
		InitialIntent string `json:"initialIntent"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "Invalid start payload.")
		return
	}

	sessionToken := strings.TrimSpace(payload.SessionToken)
	if sessionToken == "" {
		utils.RespondError(w, http.StatusBadRequest, "Session token is required.")
		return
	}

	limit := h.limiter.Apply("consult-start:"+ip+":"+sessionToken, startMaxRequests, startWindow)
	if !limit.Allowed {
		utils.RespondError(w, http.StatusTooManyRequests, "Rate limited.")
		return
	}

	session, ok := h.sessions.Get(sessionToken)
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "Session not found.")
		return
	}
	if !h.sessions.EnsureOwnership(session, ip) {
		utils.RespondError(w, http.StatusForbidden, "Session ownership mismatch.")
		return
	}

	if intent := strings.TrimSpace(payload.InitialIntent); intent != "" {
		h.sessions.MergeAnswers(session, consultModel.StructuredAnswers{PrimaryGoal: intent})
	}

	h.sessions.AppendMessage(session, consultModel.RoleAssistant, openingMessage)

	utils.RespondJSON(w, http.StatusOK, turnResponse{
		OK:               true,
		SessionState:     session.State,
		AssistantMessage: openingMessage,
		RemainingTurns:   session.RemainingTurns,
	})
}

func (h *Handler) handleTurn(w http.ResponseWriter, r *http.Request) {
	ip := utils.ClientIP(r)

	var payload struct {
		SessionToken string          `json:"sessionToken"`
		UserMessage  string          `json:"userMessage"`
		Answers      json.RawMessage `json:"answers"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "Invalid turn payload.")
		return
	}

	sessionToken := strings.TrimSpace(payload.SessionToken)
	userMessage := strings.TrimSpace(payload.UserMessage)
	if sessionToken == "" || userMessage == "" {
		utils.RespondError(w, http.StatusBadRequest, "sessionToken and userMessage are required.")
		return
	}

	limit := h.limiter.Apply("consult-turn:"+ip+":"+sessionToken, turnMaxRequests, turnWindow)
	if !limit.Allowed {
		utils.RespondError(w, http.StatusTooManyRequests, "Rate limited.")
		return
	}

	session, ok := h.sessions.Get(sessionToken)
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "Session not found.")
		return
	}
	if !h.sessions.EnsureOwnership(session, ip) {
		utils.RespondError(w, http.StatusForbidden, "Session ownership mismatch.")
		return
	}

	if session.RemainingTurns <= 0 {
		h.sessions.UpdateState(session, consultModel.StateLimitReached)
		utils.RespondJSON(w, http.StatusOK, turnResponse{
			OK:               true,
			SessionState:     session.State,
			AssistantMessage: limitReachedMessage,
			RemainingTurns:   session.RemainingTurns,
		})
		return
	}

	h.sessions.MergeAnswers(session, h.normalizeAnswers(payload.Answers))
	h.sessions.AppendMessage(session, consultModel.RoleUser, userMessage)

	remainingTurns := h.sessions.ConsumeTurn(session)

	withinBudget := h.tracker.CanSpend()
	if h.aiEnabled && !withinBudget {
		h.sessions.UpdateState(session, consultModel.StateBudgetFallback)
		h.sessions.AppendMessage(session, consultModel.RoleAssistant, budgetFallbackMessage)
		utils.RespondJSON(w, http.StatusOK, turnResponse{
			OK:               true,
			SessionState:     session.State,
			AssistantMessage: budgetFallbackMessage,
			RemainingTurns:   remainingTurns,
		})
		return
	}

	mayUseAI := h.aiEnabled && withinBudget
	if mayUseAI {
		// Charged on intent to call, whether or not the call succeeds.
		h.tracker.Consume()
	}

	result, err := h.resolver.ResolveTurn(r.Context(), session, userMessage, mayUseAI)
	if err != nil {
		status := http.StatusBadRequest
		if !errors.Is(err, pricing.ErrUnknownPackage) && !errors.Is(err, pricing.ErrRushUnavailable) {
			status = http.StatusInternalServerError
		}
		utils.RespondError(w, status, err.Error())
		return
	}

	h.sessions.MergeAnswers(session, result.ResolvedAnswers)
	h.sessions.AppendMessage(session, consultModel.RoleAssistant, result.AssistantMessage)

	if result.Quote != nil {
		h.sessions.UpdateState(session, consultModel.StateCompleted)
	} else {
		h.sessions.UpdateState(session, consultModel.StateActive)
	}

	utils.RespondJSON(w, http.StatusOK, turnResponse{
		OK:               true,
		SessionState:     session.State,
		AssistantMessage: result.AssistantMessage,
		RemainingTurns:   remainingTurns,
		Quote:            result.Quote,
		CapacityLevel:    h.cfg.DefaultCapacity,
	})
}

type publicConfig struct {
	AppName               string                `json:"appName"`
	MaxTurns              int                   `json:"maxTurns"`
	InviteOnlyLabel       string                `json:"inviteOnlyLabel"`
	RushAvailabilityLabel string                `json:"rushAvailabilityLabel"`
	RushEnabledInNormal   bool                  `json:"rushEnabledInNormal"`
	PackageOptions        []quote.PackageOption `json:"packageOptions"`
	AddOnOptions          []quote.AddOnOption   `json:"addOnOptions"`
	DefaultCapacityLevel  quote.CapacityLevel   `json:"defaultCapacityLevel"`
	DepositURL            string                `json:"depositUrl"`
	BookingURL            string                `json:"bookingUrl"`
}

func (h *Handler) handleConfig(w http.ResponseWriter, r *http.Request) {
	rushLabel := "Rush available in Busy or At-Capacity weeks."
	if h.cfg.AllowRushInNormal {
		rushLabel = "Rush available for all capacity levels."
	}

	utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"ok": true,
		"config": publicConfig{
			AppName:               config.AppName,
			MaxTurns:              config.MaxConsultTurns,
			InviteOnlyLabel:       "Live consult is invite-only.",
			RushAvailabilityLabel: rushLabel,
			RushEnabledInNormal:   h.cfg.AllowRushInNormal,
			PackageOptions:        h.catalog.Packages(),
			AddOnOptions:          h.catalog.AddOns(),
			DefaultCapacityLevel:  h.cfg.DefaultCapacity,
			DepositURL:            h.cfg.DepositURL,
			BookingURL:            h.cfg.BookingURL,
		},
	})
}

// normalizeAnswers validates client-supplied structured answers: ids must exist
// in the catalog, the timeline must be a known mode, free text is length-capped
// by the merge itself. Anything invalid is dropped silently.
func (h *Handler) normalizeAnswers(raw json.RawMessage) consultModel.StructuredAnswers {
	if len(raw) == 0 {
		return consultModel.StructuredAnswers{}
	}

	var payload struct {
		PrimaryGoal  string   `json:"primaryGoal"`
		PackageID    string   `json:"packageId"`
		TimelineMode string   `json:"timelineMode"`
		AddOnIDs     []string `json:"addOnIds"`
		Notes        string   `json:"notes"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return consultModel.StructuredAnswers{}
	}

	answers := consultModel.StructuredAnswers{
		PrimaryGoal: payload.PrimaryGoal,
		Notes:       payload.Notes,
	}

	if _, ok := h.catalog.FindPackage(payload.PackageID); ok {
		answers.PackageID = payload.PackageID
	}
	if quote.ValidTimelineMode(payload.TimelineMode) {
		answers.TimelineMode = quote.TimelineMode(payload.TimelineMode)
	}
	for _, id := range payload.AddOnIDs {
		if _, ok := h.catalog.FindAddOn(id); ok {
			answers.AddOnIDs = append(answers.AddOnIDs, id)
		}
	}

	return answers
}
