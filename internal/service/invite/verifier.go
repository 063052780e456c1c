// Package invite gates consult admission behind a configured invite-code list
// with optional Cloudflare Turnstile verification.
package invite

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const turnstileVerifyURL = "https://challenges.cloudflare.com/turnstile/v0/siteverify"

// Verifier checks invite codes and, when a secret is configured, Turnstile
// challenge tokens.
type Verifier struct {
	codes           map[string]struct{}
	turnstileSecret string
	httpClient      *http.Client
}

// NewVerifier builds a verifier over the normalized (lowercase) code list.
func NewVerifier(codes []string, turnstileSecret string) *Verifier {
	set := make(map[string]struct{}, len(codes))
	for _, code := range codes {
		set[strings.ToLower(strings.TrimSpace(code))] = struct{}{}
	}
	return &Verifier{
		codes:           set,
		turnstileSecret: turnstileSecret,
		httpClient:      &http.Client{Timeout: 10 * time.Second},
	}
}

// CodeAccepted reports whether the invite code matches the configured list.
// Matching is case-insensitive.
func (v *Verifier) CodeAccepted(code string) bool {
	_, ok := v.codes[strings.ToLower(strings.TrimSpace(code))]
	return ok
}

// TurnstileRequired reports whether a challenge token should be checked.
func (v *Verifier) TurnstileRequired() bool {
	return v.turnstileSecret != ""
}

// VerifyTurnstile checks the challenge token with Cloudflare. Without a
// configured secret it passes; any transport or decode failure rejects.
func (v *Verifier) VerifyTurnstile(ctx context.Context, token, remoteIP string) bool {
	if v.turnstileSecret == "" {
		return true
	}
	if token == "" {
		return false
	}

	payload := url.Values{}
	payload.Set("secret", v.turnstileSecret)
	payload.Set("response", token)
	if remoteIP != "" {
		payload.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, turnstileVerifyURL, strings.NewReader(payload.Encode()))
	if err != nil {
		return false
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.httpClient.Do(req)
	if err != nil {
		log.Printf("[invite] turnstile verify failed: %v", err)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false
	}

	var result struct {
		Success bool `json:"success"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return false
	}
	return result.Success
}
