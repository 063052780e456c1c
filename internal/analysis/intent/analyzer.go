// Package intent extracts a package, timeline, and add-on selection from
// free-form consult text. It is the deterministic fallback used whenever the
// external model is unavailable, over budget, or returns nothing usable.
package intent

import (
	"regexp"
	"strings"

	"github.com/prisme-studio/prisme/backend/internal/model/quote"
)

// DefaultPackageID is inferred when no package keyword matches.
const DefaultPackageID = "AI_CONCIERGE_SITE"

var packageKeywords = []struct {
	packageID string
	words     []string
}{
	{
		packageID: "AI_CONCIERGE_SITE",
		words:     []string{"website", "site", "landing", "lead", "chat", "concierge", "quote"},
	},
	{
		packageID: "AUTOMATION_SPRINT",
		words:     []string{"automation", "workflow", "crm", "zapier", "integration", "ops"},
	},
	{
		packageID: "MVP_LAUNCHPAD",
		words:     []string{"mvp", "product", "platform", "app", "prototype", "saas"},
	},
}

var addOnKeywords = []struct {
	addOnID string
	words   []string
}{
	{
		addOnID: "CRM_INTEGRATION",
		words:   []string{"crm", "hubspot", "salesforce", "pipeline"},
	},
	{
		addOnID: "ANALYTICS_INSTRUMENTATION",
		words:   []string{"analytics", "tracking", "events", "funnel"},
	},
	{
		addOnID: "KNOWLEDGE_BASE",
		words:   []string{"faq", "knowledge", "docs", "grounding"},
	},
	{
		addOnID: "EXTRA_WORKFLOW",
		words:   []string{"workflow", "sequence", "automation", "ops"},
	},
	{
		addOnID: "WHITE_LABEL_ASSETS",
		words:   []string{"brand", "assets", "deck", "white label"},
	},
}

var urgencyKeywords = []string{"asap", "urgent", "fast", "rush"}

var quoteRequestKeywords = []string{
	"quote", "estimate", "price", "pricing", "cost", "budget", "proposal",
}

// Discovery-signal categories: timeline, audience, outcome metric, product
// shape, and constraints. Two or more matched categories count as sufficient
// context even in a short message.
var discoverySignalPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(by|deadline|timeline|week|month|quarter|asap|urgent|rush)\b`),
	regexp.MustCompile(`\b(user|customer|buyer|sales|ops|team|support|marketing|audience)\b`),
	regexp.MustCompile(`\b(lead|conversion|pipeline|revenue|onboarding|churn|throughput|latency)\b`),
	regexp.MustCompile(`\b(site|landing|mvp|app|automation|workflow|integration|crm)\b`),
	regexp.MustCompile(`\b(constraint|budget|risk|compliance|security)\b`),
}

const discoveryMinWords = 16

// InferPackage keyword-matches a package id, defaulting when nothing matches.
func InferPackage(message string) string {
	lowered := strings.ToLower(message)
	for _, mapping := range packageKeywords {
		for _, word := range mapping.words {
			if strings.Contains(lowered, word) {
				return mapping.packageID
			}
		}
	}
	return DefaultPackageID
}

// InferTimeline flags RUSH on urgency keywords, else STANDARD.
func InferTimeline(message string) quote.TimelineMode {
	lowered := strings.ToLower(message)
	for _, word := range urgencyKeywords {
		if strings.Contains(lowered, word) {
			return quote.TimelineRush
		}
	}
	return quote.TimelineStandard
}

// InferAddOns keyword-matches add-on ids, deduplicated in table order.
func InferAddOns(message string) []string {
	lowered := strings.ToLower(message)
	var matched []string
	for _, mapping := range addOnKeywords {
		for _, word := range mapping.words {
			if strings.Contains(lowered, word) {
				matched = append(matched, mapping.addOnID)
				break
			}
		}
	}
	return matched
}

// HasQuoteRequest reports whether the message explicitly asks for pricing.
func HasQuoteRequest(message string) bool {
	lowered := strings.ToLower(message)
	for _, word := range quoteRequestKeywords {
		if strings.Contains(lowered, word) {
			return true
		}
	}
	return false
}

// HasDiscoverySignals scores the message for enough business context to quote:
// either a long-form answer or hits in at least two signal categories.
func HasDiscoverySignals(message string) bool {
	lowered := strings.ToLower(message)

	words := 0
	for _, field := range strings.Fields(lowered) {
		if field != "" {
			words++
		}
	}
	if words >= discoveryMinWords {
		return true
	}

	signals := 0
	for _, pattern := range discoverySignalPatterns {
		if pattern.MatchString(lowered) {
			signals++
		}
	}
	return signals >= 2
}
