package consult

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/prisme-studio/prisme/backend/internal/config"
	consultModel "github.com/prisme-studio/prisme/backend/internal/model/consult"
	"github.com/prisme-studio/prisme/backend/internal/model/quote"
	"github.com/prisme-studio/prisme/backend/internal/service/budget"
	consultService "github.com/prisme-studio/prisme/backend/internal/service/consult"
	"github.com/prisme-studio/prisme/backend/internal/service/pricing"
	"github.com/prisme-studio/prisme/backend/internal/service/ratelimit"
)

type testEnv struct {
	router   *chi.Mux
	sessions *consultService.Store
	tracker  *budget.Tracker
}

func setupEnv(aiEnabled bool, tracker *budget.Tracker) *testEnv {
	catalog := quote.NewMemoryCatalog(quote.SeedPackages(), quote.SeedAddOns())
	sessions := consultService.NewStore(config.MaxConsultTurns, config.SessionTTL)
	engine := pricing.NewEngine(catalog)
	resolver := consultService.NewResolver(catalog, engine, nil, consultService.ResolverConfig{
		MaxTurns:        config.MaxConsultTurns,
		DefaultCapacity: quote.CapacityNormal,
	})
	if tracker == nil {
		tracker = budget.NewTracker(2, 0.002)
	}

	handler := New(sessions, resolver, tracker, ratelimit.NewLimiter(), catalog, config.ConsultConfig{
		DefaultCapacity: quote.CapacityNormal,
		DepositURL:      "https://example.com/deposit",
		BookingURL:      "https://example.com/booking",
	}, aiEnabled)

	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	return &testEnv{router: r, sessions: sessions, tracker: tracker}
}

func (e *testEnv) post(t *testing.T, path string, body map[string]interface{}) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	e.router.ServeHTTP(resp, req)
	return resp
}

type turnResponseBody struct {
	OK               bool             `json:"ok"`
	SessionState     string           `json:"sessionState"`
	AssistantMessage string           `json:"assistantMessage"`
	RemainingTurns   int              `json:"remainingTurns"`
	Quote            *quote.Breakdown `json:"quote"`
}

func decodeTurn(t *testing.T, resp *httptest.ResponseRecorder) turnResponseBody {
	t.Helper()
	var body turnResponseBody
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return body
}

func TestStartMissingToken(t *testing.T) {
	env := setupEnv(false, nil)
	resp := env.post(t, "/consult/start", map[string]interface{}{})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestStartUnknownSession(t *testing.T) {
	env := setupEnv(false, nil)
	resp := env.post(t, "/consult/start", map[string]interface{}{"sessionToken": "missing"})
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}

func TestStartMergesInitialIntent(t *testing.T) {
	env := setupEnv(false, nil)
	session := env.sessions.Create("prisme-demo", "192.0.2.1")

	resp := env.post(t, "/consult/start", map[string]interface{}{
		"sessionToken":  session.Token,
		"initialIntent": "automate our intake",
	})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	body := decodeTurn(t, resp)
	if body.AssistantMessage == "" {
		t.Fatal("expected an opening assistant message")
	}
	if body.RemainingTurns != config.MaxConsultTurns {
		t.Fatalf("remaining turns %d, want %d", body.RemainingTurns, config.MaxConsultTurns)
	}
	if session.Answers.PrimaryGoal != "automate our intake" {
		t.Fatalf("initial intent not merged, got %q", session.Answers.PrimaryGoal)
	}
}

func TestTurnExplicitQuoteCompletesSession(t *testing.T) {
	env := setupEnv(false, nil)
	session := env.sessions.Create("prisme-demo", "192.0.2.1")

	resp := env.post(t, "/consult/turn", map[string]interface{}{
		"sessionToken": session.Token,
		"userMessage":  "please quote a landing site",
	})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	body := decodeTurn(t, resp)
	if body.Quote == nil {
		t.Fatal("expected a quote in the response")
	}
	if body.SessionState != string(consultModel.StateCompleted) {
		t.Fatalf("state %s, want COMPLETED", body.SessionState)
	}
	if body.RemainingTurns != config.MaxConsultTurns-1 {
		t.Fatalf("remaining turns %d, want %d", body.RemainingTurns, config.MaxConsultTurns-1)
	}
	if body.Quote.TotalCents != 680000 {
		t.Fatalf("total %d, want 680000", body.Quote.TotalCents)
	}
}

func TestTurnProbesAndStaysActive(t *testing.T) {
	env := setupEnv(false, nil)
	session := env.sessions.Create("prisme-demo", "192.0.2.1")

	resp := env.post(t, "/consult/turn", map[string]interface{}{
		"sessionToken": session.Token,
		"userMessage":  "we are exploring a website refresh",
	})
	body := decodeTurn(t, resp)
	if body.Quote != nil {
		t.Fatal("first vague turn must probe, not quote")
	}
	if body.SessionState != string(consultModel.StateActive) {
		t.Fatalf("state %s, want ACTIVE", body.SessionState)
	}
	if len(session.Messages) != 2 {
		t.Fatalf("transcript length %d, want 2 (user + assistant)", len(session.Messages))
	}
}

func TestTurnLimitReached(t *testing.T) {
	env := setupEnv(false, nil)
	session := env.sessions.Create("prisme-demo", "192.0.2.1")
	session.RemainingTurns = 0

	resp := env.post(t, "/consult/turn", map[string]interface{}{
		"sessionToken": session.Token,
		"userMessage":  "one more question",
	})
	body := decodeTurn(t, resp)
	if body.SessionState != string(consultModel.StateLimitReached) {
		t.Fatalf("state %s, want LIMIT_REACHED", body.SessionState)
	}
	if body.Quote != nil {
		t.Fatal("limit-reached turn must not quote")
	}
}

func TestTurnBudgetFallback(t *testing.T) {
	tracker := budget.NewTracker(0, 0.002)
	env := setupEnv(true, tracker)
	session := env.sessions.Create("prisme-demo", "192.0.2.1")

	resp := env.post(t, "/consult/turn", map[string]interface{}{
		"sessionToken": session.Token,
		"userMessage":  "please quote this",
	})
	body := decodeTurn(t, resp)
	if body.SessionState != string(consultModel.StateBudgetFallback) {
		t.Fatalf("state %s, want BUDGET_FALLBACK", body.SessionState)
	}
	if body.Quote != nil {
		t.Fatal("budget fallback turn must not quote")
	}
	if tracker.Status().Calls != 0 {
		t.Fatal("no budget may be consumed on the fallback path")
	}
}

func TestTurnOwnershipMismatch(t *testing.T) {
	env := setupEnv(false, nil)
	// httptest requests arrive from 192.0.2.1.
	session := env.sessions.Create("prisme-demo", "203.0.113.9")

	resp := env.post(t, "/consult/turn", map[string]interface{}{
		"sessionToken": session.Token,
		"userMessage":  "hello",
	})
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.Code)
	}
}

func TestTurnExpiredSessionReportedAbsent(t *testing.T) {
	env := setupEnv(false, nil)
	session := env.sessions.Create("prisme-demo", "192.0.2.1")
	session.ExpiresAt = time.Now().Add(-time.Second)

	resp := env.post(t, "/consult/turn", map[string]interface{}{
		"sessionToken": session.Token,
		"userMessage":  "hello",
	})
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}

func TestTurnMergesClientAnswers(t *testing.T) {
	env := setupEnv(false, nil)
	session := env.sessions.Create("prisme-demo", "192.0.2.1")

	resp := env.post(t, "/consult/turn", map[string]interface{}{
		"sessionToken": session.Token,
		"userMessage":  "quote it please",
		"answers": map[string]interface{}{
			"packageId":    "AUTOMATION_SPRINT",
			"timelineMode": "STANDARD",
			"addOnIds":     []string{"CRM_INTEGRATION", "NOT_REAL"},
		},
	})
	body := decodeTurn(t, resp)
	if body.Quote == nil {
		t.Fatal("expected a quote")
	}
	if body.Quote.PackageID != "AUTOMATION_SPRINT" {
		t.Fatalf("client answers must drive the package, got %s", body.Quote.PackageID)
	}
	if session.Answers.PackageID != "AUTOMATION_SPRINT" {
		t.Fatalf("answers not merged into session, got %q", session.Answers.PackageID)
	}
	for _, id := range session.Answers.AddOnIDs {
		if id == "NOT_REAL" {
			t.Fatal("unknown add-on id must be dropped during normalization")
		}
	}
}

func TestConfigEndpoint(t *testing.T) {
	env := setupEnv(false, nil)

	req := httptest.NewRequest(http.MethodGet, "/consult/config", nil)
	resp := httptest.NewRecorder()
	env.router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	var body struct {
		OK     bool `json:"ok"`
		Config struct {
			AppName        string                `json:"appName"`
			MaxTurns       int                   `json:"maxTurns"`
			PackageOptions []quote.PackageOption `json:"packageOptions"`
			AddOnOptions   []quote.AddOnOption   `json:"addOnOptions"`
		} `json:"config"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !body.OK || body.Config.AppName != config.AppName {
		t.Fatalf("unexpected config payload: %+v", body)
	}
	if len(body.Config.PackageOptions) != 3 || len(body.Config.AddOnOptions) != 5 {
		t.Fatalf("catalog sizes %d/%d, want 3/5", len(body.Config.PackageOptions), len(body.Config.AddOnOptions))
	}
}
