package quote

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/prisme-studio/prisme/backend/internal/config"
	quoteModel "github.com/prisme-studio/prisme/backend/internal/model/quote"
	"github.com/prisme-studio/prisme/backend/internal/service/pricing"
)

func setupRouter(allowRushInNormal bool) *chi.Mux {
	catalog := quoteModel.NewMemoryCatalog(quoteModel.SeedPackages(), quoteModel.SeedAddOns())
	handler := New(pricing.NewEngine(catalog), catalog, config.ConsultConfig{
		DefaultCapacity:   quoteModel.CapacityNormal,
		AllowRushInNormal: allowRushInNormal,
	})

	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	return r
}

func postCalculate(t *testing.T, r *chi.Mux, body map[string]interface{}) *httptest.ResponseRecorder {
	t.Helper()
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, "/quote/calculate", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestCalculateEndpoint(t *testing.T) {
	r := setupRouter(false)

	resp := postCalculate(t, r, map[string]interface{}{
		"packageId":     "AI_CONCIERGE_SITE",
		"timelineMode":  "STANDARD",
		"capacityLevel": "BUSY",
		"addOnIds":      []string{"KNOWLEDGE_BASE"},
	})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	var body struct {
		OK       bool                 `json:"ok"`
		Quote    quoteModel.Breakdown `json:"quote"`
		Warnings []string             `json:"warnings"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Quote.TotalCents != 748000+70000 {
		t.Fatalf("total %d, want %d", body.Quote.TotalCents, 748000+70000)
	}
	if body.Warnings == nil {
		t.Fatal("warnings must serialize as an empty array, not null")
	}
}

func TestCalculateUnknownPackage(t *testing.T) {
	r := setupRouter(false)
	resp := postCalculate(t, r, map[string]interface{}{
		"packageId":    "NOPE",
		"timelineMode": "STANDARD",
	})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestCalculateInvalidTimeline(t *testing.T) {
	r := setupRouter(false)
	resp := postCalculate(t, r, map[string]interface{}{
		"packageId":    "AI_CONCIERGE_SITE",
		"timelineMode": "WHENEVER",
	})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestCalculateRushAtNormalRejected(t *testing.T) {
	r := setupRouter(false)
	resp := postCalculate(t, r, map[string]interface{}{
		"packageId":     "AI_CONCIERGE_SITE",
		"timelineMode":  "RUSH",
		"capacityLevel": "NORMAL",
	})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestCalculateRushAtNormalAllowedByPolicy(t *testing.T) {
	r := setupRouter(true)
	resp := postCalculate(t, r, map[string]interface{}{
		"packageId":     "AI_CONCIERGE_SITE",
		"timelineMode":  "RUSH",
		"capacityLevel": "NORMAL",
	})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
}
