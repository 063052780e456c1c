package invite

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	consultModel "github.com/prisme-studio/prisme/backend/internal/model/consult"
	consultService "github.com/prisme-studio/prisme/backend/internal/service/consult"
	inviteService "github.com/prisme-studio/prisme/backend/internal/service/invite"
	"github.com/prisme-studio/prisme/backend/internal/service/ratelimit"
	"github.com/prisme-studio/prisme/backend/pkg/utils"
)

const (
	verifyMaxRequests = 12
	verifyWindow      = 15 * time.Minute
)

// Handler gates session creation behind invite verification.
type Handler struct {
	verifier *inviteService.Verifier
	sessions *consultService.Store
	limiter  *ratelimit.Limiter
}

// New creates the invite handler.
func New(verifier *inviteService.Verifier, sessions *consultService.Store, limiter *ratelimit.Limiter) *Handler {
	return &Handler{verifier: verifier, sessions: sessions, limiter: limiter}
}

// RegisterRoutes registers invite routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/invite/verify", h.handleVerify)
}

type verifyResponse struct {
	OK           bool               `json:"ok"`
	SessionToken string             `json:"sessionToken,omitempty"`
	SessionState consultModel.State `json:"sessionState"`
	Message      string             `json:"message"`
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	ip := utils.ClientIP(r)

	limit := h.limiter.Apply("invite:"+ip, verifyMaxRequests, verifyWindow)
	if !limit.Allowed {
		utils.RespondJSON(w, http.StatusTooManyRequests, verifyResponse{
			SessionState: consultModel.StateGated,
			Message:      "Too many attempts. Try again in a few minutes.",
		})
		return
	}

	var payload struct {
		InviteCode     string `json:"inviteCode"`
		TurnstileToken string `json:"turnstileToken"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondJSON(w, http.StatusBadRequest, verifyResponse{
			SessionState: consultModel.StateGated,
			Message:      "Invalid request payload.",
		})
		return
	}

	inviteCode := strings.TrimSpace(payload.InviteCode)
	if inviteCode == "" {
		utils.RespondJSON(w, http.StatusBadRequest, verifyResponse{
			SessionState: consultModel.StateGated,
			Message:      "Invite code is required.",
		})
		return
	}

	if h.verifier.TurnstileRequired() && payload.TurnstileToken != "" {
		if !h.verifier.VerifyTurnstile(r.Context(), payload.TurnstileToken, ip) {
			utils.RespondJSON(w, http.StatusForbidden, verifyResponse{
				SessionState: consultModel.StateGated,
				Message:      "Verification failed. Refresh and try again.",
			})
			return
		}
	}

	if !h.verifier.CodeAccepted(inviteCode) {
		utils.RespondJSON(w, http.StatusForbidden, verifyResponse{
			SessionState: consultModel.StateGated,
			Message:      "Invite code is invalid.",
		})
		return
	}

	session := h.sessions.Create(inviteCode, ip)

	utils.RespondJSON(w, http.StatusOK, verifyResponse{
		OK:           true,
		SessionToken: session.Token,
		SessionState: session.State,
		Message:      "Invite accepted. Live consult unlocked.",
	})
}
