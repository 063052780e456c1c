package invite

import (
	"context"
	"testing"
)

func TestCodeAcceptedNormalizesCase(t *testing.T) {
	verifier := NewVerifier([]string{"prisme-demo", "partner-2026"}, "")

	if !verifier.CodeAccepted("PRISME-DEMO") {
		t.Fatal("code matching must be case-insensitive")
	}
	if !verifier.CodeAccepted("  partner-2026  ") {
		t.Fatal("code matching must trim whitespace")
	}
	if verifier.CodeAccepted("guessed-code") {
		t.Fatal("unknown code must be rejected")
	}
}

func TestVerifyTurnstileWithoutSecret(t *testing.T) {
	verifier := NewVerifier([]string{"prisme-demo"}, "")
	if !verifier.VerifyTurnstile(context.Background(), "", "") {
		t.Fatal("no secret configured means the check passes")
	}
	if verifier.TurnstileRequired() {
		t.Fatal("no secret means turnstile is not required")
	}
}

func TestVerifyTurnstileEmptyToken(t *testing.T) {
	verifier := NewVerifier([]string{"prisme-demo"}, "secret")
	if verifier.VerifyTurnstile(context.Background(), "", "203.0.113.7") {
		t.Fatal("configured secret with no token must reject")
	}
}
