package consult

import (
	"testing"
	"time"

	"github.com/prisme-studio/prisme/backend/internal/model/consult"
	"github.com/prisme-studio/prisme/backend/internal/model/quote"
)

func TestStoreCreateAndGet(t *testing.T) {
	store := NewStore(10, 2*time.Hour)
	session := store.Create("prisme-demo", "203.0.113.7")

	if session.Token == "" {
		t.Fatal("expected non-empty session token")
	}
	if session.State != consult.StateActive {
		t.Fatalf("new session state %s, want ACTIVE", session.State)
	}
	if session.RemainingTurns != 10 {
		t.Fatalf("remaining turns %d, want 10", session.RemainingTurns)
	}

	got, ok := store.Get(session.Token)
	if !ok {
		t.Fatal("expected session lookup to succeed")
	}
	if got.Token != session.Token {
		t.Fatalf("unexpected token: got %s want %s", got.Token, session.Token)
	}
}

func TestStoreGetUnknownToken(t *testing.T) {
	store := NewStore(10, 2*time.Hour)
	if _, ok := store.Get("missing"); ok {
		t.Fatal("expected lookup miss for unknown token")
	}
}

func TestStoreExpiredSessionEvicted(t *testing.T) {
	store := NewStore(10, 2*time.Hour)
	session := store.Create("prisme-demo", "203.0.113.7")

	store.now = func() time.Time { return time.Now().Add(2*time.Hour + time.Second) }

	if _, ok := store.Get(session.Token); ok {
		t.Fatal("expected expired session to be reported absent")
	}

	// Eviction is permanent even if the clock rolls back.
	store.now = time.Now
	if _, ok := store.Get(session.Token); ok {
		t.Fatal("expected evicted session to stay absent")
	}
}

func TestStoreConsumeTurnFloorsAtZero(t *testing.T) {
	store := NewStore(2, time.Hour)
	session := store.Create("prisme-demo", "203.0.113.7")

	if got := store.ConsumeTurn(session); got != 1 {
		t.Fatalf("first consume: %d, want 1", got)
	}
	if got := store.ConsumeTurn(session); got != 0 {
		t.Fatalf("second consume: %d, want 0", got)
	}
	if got := store.ConsumeTurn(session); got != 0 {
		t.Fatalf("third consume: %d, want 0 (never negative)", got)
	}
}

func TestStoreEnsureOwnership(t *testing.T) {
	store := NewStore(10, time.Hour)
	session := store.Create("prisme-demo", "203.0.113.7")

	if !store.EnsureOwnership(session, "203.0.113.7") {
		t.Fatal("matching address must pass")
	}
	if store.EnsureOwnership(session, "198.51.100.1") {
		t.Fatal("mismatched address must fail")
	}
	if !store.EnsureOwnership(session, UnknownClient) {
		t.Fatal("unknown caller address must pass")
	}

	anon := store.Create("prisme-demo", UnknownClient)
	if !store.EnsureOwnership(anon, "198.51.100.1") {
		t.Fatal("unknown session address must pass")
	}
}

func TestStoreMergeAnswersSticky(t *testing.T) {
	store := NewStore(10, time.Hour)
	session := store.Create("prisme-demo", "203.0.113.7")

	store.MergeAnswers(session, consult.StructuredAnswers{
		PackageID:    "AI_CONCIERGE_SITE",
		TimelineMode: quote.TimelineStandard,
		AddOnIDs:     []string{"CRM_INTEGRATION"},
	})
	merged := store.MergeAnswers(session, consult.StructuredAnswers{
		PackageID:    "MVP_LAUNCHPAD",
		TimelineMode: quote.TimelineRush,
		AddOnIDs:     []string{"CRM_INTEGRATION", "KNOWLEDGE_BASE"},
		PrimaryGoal:  "more qualified leads",
	})

	if merged.PackageID != "AI_CONCIERGE_SITE" {
		t.Fatalf("package must stay sticky, got %s", merged.PackageID)
	}
	if merged.TimelineMode != quote.TimelineStandard {
		t.Fatalf("timeline must stay sticky, got %s", merged.TimelineMode)
	}
	if merged.PrimaryGoal != "more qualified leads" {
		t.Fatalf("gap fill failed, got %q", merged.PrimaryGoal)
	}
	if len(merged.AddOnIDs) != 2 {
		t.Fatalf("add-ons must union-dedupe, got %v", merged.AddOnIDs)
	}
}
