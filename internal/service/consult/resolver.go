package consult

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/prisme-studio/prisme/backend/internal/analysis/intent"
	consultModel "github.com/prisme-studio/prisme/backend/internal/model/consult"
	"github.com/prisme-studio/prisme/backend/internal/model/quote"
	"github.com/prisme-studio/prisme/backend/internal/service/advisor"
	"github.com/prisme-studio/prisme/backend/internal/service/pricing"
)

// Advisor is the optional external inference collaborator. Implementations must
// return nil instead of an error on any failure.
type Advisor interface {
	Decide(ctx context.Context, userMessage string, answers consultModel.StructuredAnswers, turnIndex int) *advisor.Decision
}

// TurnResult is what a resolved consult turn hands back to the HTTP layer.
// Quote is nil while the resolver is still probing for context.
type TurnResult struct {
	AssistantMessage string
	ResolvedAnswers  consultModel.StructuredAnswers
	Quote            *quote.Breakdown
}

// ResolverConfig carries the pricing policy the resolver quotes under.
type ResolverConfig struct {
	MaxTurns          int
	DefaultCapacity   quote.CapacityLevel
	AllowRushInNormal bool
}

// Resolver merges sticky session answers, an optional model decision, and
// keyword inference into a resolved selection, then decides whether to quote
// now or keep probing.
type Resolver struct {
	catalog quote.Catalog
	engine  *pricing.Engine
	advisor Advisor
	cfg     ResolverConfig
}

// NewResolver wires the resolver. advisor may be nil when no model is configured.
func NewResolver(catalog quote.Catalog, engine *pricing.Engine, adv Advisor, cfg ResolverConfig) *Resolver {
	return &Resolver{catalog: catalog, engine: engine, advisor: adv, cfg: cfg}
}

// ResolveTurn processes one accepted user turn. The caller has already appended
// the user message to the transcript and consumed the turn; mayUseAI reflects
// the budget pre-check. Pricing validation failures (unknown package, rush
// unavailable) are the only errors returned.
func (r *Resolver) ResolveTurn(ctx context.Context, session *consultModel.Session, userMessage string, mayUseAI bool) (TurnResult, error) {
	existing := session.Answers

	var decision *advisor.Decision
	if mayUseAI && r.advisor != nil {
		turnIndex := r.cfg.MaxTurns - session.RemainingTurns + 1
		decision = r.advisor.Decide(ctx, userMessage, existing, turnIndex)
	}
	if decision == nil {
		decision = &advisor.Decision{}
	}

	packageID := existing.PackageID
	if packageID == "" {
		packageID = decision.PackageID
	}
	if packageID == "" {
		packageID = intent.InferPackage(userMessage)
	}

	timelineMode := existing.TimelineMode
	if timelineMode == "" {
		timelineMode = decision.TimelineMode
	}
	if timelineMode == "" {
		timelineMode = intent.InferTimeline(userMessage)
	}

	addOnIDs := consultModel.DedupeAddOns(concat(existing.AddOnIDs, decision.AddOnIDs, intent.InferAddOns(userMessage)))

	resolved := existing
	resolved.PackageID = packageID
	resolved.TimelineMode = timelineMode
	resolved.AddOnIDs = addOnIDs
	if resolved.PrimaryGoal == "" {
		resolved.PrimaryGoal = userMessage
	}

	packageName := packageID
	if pkg, ok := r.catalog.FindPackage(packageID); ok {
		packageName = pkg.Name
	}
	addOnNames := r.addOnNames(addOnIDs)

	quoteNow := r.shouldQuoteNow(userMessage, session.UserTurnCount(), session.RemainingTurns, decision.ReadyToQuote)
	if !quoteNow {
		probingMessage := decision.AssistantMessage
		if probingMessage == "" {
			probingMessage = buildProbingMessage(packageName, timelineMode, addOnNames)
		}
		return TurnResult{AssistantMessage: probingMessage, ResolvedAnswers: resolved}, nil
	}

	breakdown, warnings, err := r.engine.Calculate(quote.Input{
		PackageID:     packageID,
		AddOnIDs:      addOnIDs,
		TimelineMode:  timelineMode,
		CapacityLevel: r.cfg.DefaultCapacity,
	}, pricing.Options{AllowRushInNormal: r.cfg.AllowRushInNormal})
	if err != nil {
		return TurnResult{}, err
	}
	for _, warning := range warnings {
		log.Printf("[consult] quote warning for session=%s: %s", session.Token, warning)
	}

	return TurnResult{
		AssistantMessage: buildConfirmationMessage(packageName, timelineMode, addOnNames, breakdown),
		ResolvedAnswers:  resolved,
		Quote:            &breakdown,
	}, nil
}

// shouldQuoteNow implements the quote-now precedence ladder: explicit pricing
// request, forced last turn, model readiness with enough turns, then discovery
// signal after three user turns.
func (r *Resolver) shouldQuoteNow(message string, userTurns, remainingTurns int, aiReady bool) bool {
	if intent.HasQuoteRequest(message) {
		return true
	}
	if remainingTurns <= 1 {
		return true
	}
	if aiReady && userTurns >= 2 {
		return true
	}
	return userTurns >= 3 && intent.HasDiscoverySignals(message)
}

func (r *Resolver) addOnNames(addOnIDs []string) []string {
	names := make([]string, 0, len(addOnIDs))
	for _, id := range addOnIDs {
		if addOn, ok := r.catalog.FindAddOn(id); ok {
			names = append(names, addOn.Name)
			continue
		}
		names = append(names, id)
	}
	return names
}

func buildProbingMessage(packageName string, timelineMode quote.TimelineMode, addOnNames []string) string {
	timelineLabel := "standard timeline"
	if timelineMode == quote.TimelineRush {
		timelineLabel = "rush timeline"
	}

	addOnHint := "I can keep this lean unless you want integrations or analytics included."
	if len(addOnNames) > 0 {
		addOnHint = fmt.Sprintf("I also noted %s.", strings.Join(addOnNames, ", "))
	}

	return fmt.Sprintf(
		"I am currently shaping this as %s on a %s. %s Before I prepare pricing, what outcome metric matters most and what constraints (deadline, team availability, or budget guardrail) should I honor?",
		packageName, timelineLabel, addOnHint,
	)
}

func buildConfirmationMessage(packageName string, timelineMode quote.TimelineMode, addOnNames []string, breakdown quote.Breakdown) string {
	timelineLabel := "Standard delivery"
	if timelineMode == quote.TimelineRush {
		timelineLabel = "Rush delivery"
	}

	addOnLabel := "No add-ons selected"
	if len(addOnNames) > 0 {
		addOnLabel = strings.Join(addOnNames, ", ")
	}

	validUntil := breakdown.ValidThrough
	if parsed, err := time.Parse(time.RFC3339, breakdown.ValidThrough); err == nil {
		validUntil = parsed.Format("January 2, 2006")
	}

	return fmt.Sprintf(
		"Based on your inputs, I mapped this to the %s. %s is applied and the estimate includes: %s. Your fixed quote is ready and valid until %s. You can lock the project by paying deposit and booking your kickoff slot.",
		packageName, timelineLabel, addOnLabel, validUntil,
	)
}

func concat(groups ...[]string) []string {
	var out []string
	for _, group := range groups {
		out = append(out, group...)
	}
	return out
}
