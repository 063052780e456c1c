// Package advisor wraps the external model behind a never-fails contract: any
// invoke error, empty reply, or malformed JSON resolves to "no decision" and the
// turn resolver carries on with keyword inference alone.
package advisor

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	consultModel "github.com/prisme-studio/prisme/backend/internal/model/consult"
	"github.com/prisme-studio/prisme/backend/internal/model/quote"
)

// Decision is the model's structured read of the consult turn. Zero-valued
// fields mean the model offered nothing usable for that slot.
type Decision struct {
	PackageID        string
	TimelineMode     quote.TimelineMode
	AddOnIDs         []string
	AssistantMessage string
	ReadyToQuote     bool
}

// Service runs a compiled prompt-to-model chain producing consult decisions.
type Service struct {
	chain   compose.Runnable[map[string]any, *schema.Message]
	catalog quote.Catalog
}

// NewService compiles the advisor chain over the supplied chat model.
func NewService(ctx context.Context, chatModel model.ChatModel, catalog quote.Catalog) (*Service, error) {
	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage(advisorSystemPrompt),
		schema.UserMessage(advisorUserPrompt),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile advisor chain: %w", err)
	}

	return &Service{chain: runnable, catalog: catalog}, nil
}

// Decide asks the model for a structured consult decision. Returns nil on every
// failure path; it never surfaces an error to the caller.
func (s *Service) Decide(ctx context.Context, userMessage string, answers consultModel.StructuredAnswers, turnIndex int) *Decision {
	if s == nil {
		return nil
	}

	answersJSON, err := json.Marshal(answers)
	if err != nil {
		answersJSON = []byte("{}")
	}

	input := map[string]any{
		"package_ids":  strings.Join(s.packageIDs(), ", "),
		"add_on_ids":   strings.Join(s.addOnIDs(), ", "),
		"user_message": strings.TrimSpace(userMessage),
		"answers_json": string(answersJSON),
		"turn_index":   turnIndex,
	}

	msg, err := s.chain.Invoke(ctx, input)
	if err != nil {
		log.Printf("[advisor] chain invoke failed, degrading to text inference: %v", err)
		return nil
	}
	if msg == nil || strings.TrimSpace(msg.Content) == "" {
		return nil
	}

	payload, err := parseDecisionOutput(msg.Content)
	if err != nil {
		log.Printf("[advisor] decision parse failed, degrading to text inference: %v", err)
		return nil
	}

	return s.normalize(payload)
}

type decisionPayload struct {
	PackageID        string   `json:"packageId"`
	TimelineMode     string   `json:"timelineMode"`
	AddOnIDs         []string `json:"addOnIds"`
	AssistantMessage string   `json:"assistantMessage"`
	ReadyToQuote     bool     `json:"readyToQuote"`
}

// parseDecisionOutput extracts the JSON object from the raw completion, which
// may be wrapped in code fences or surrounding prose.
func parseDecisionOutput(content string) (*decisionPayload, error) {
	trimmed := strings.TrimSpace(content)
	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start == -1 || end == -1 || end <= start {
		return nil, fmt.Errorf("missing json object")
	}

	payload := &decisionPayload{}
	if err := json.Unmarshal([]byte(trimmed[start:end+1]), payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// normalize validates ids against the catalog; unknown ids are filtered out
// rather than rejecting the decision wholesale.
func (s *Service) normalize(payload *decisionPayload) *Decision {
	decision := &Decision{
		AssistantMessage: strings.TrimSpace(payload.AssistantMessage),
		ReadyToQuote:     payload.ReadyToQuote,
	}

	if _, ok := s.catalog.FindPackage(payload.PackageID); ok {
		decision.PackageID = payload.PackageID
	}
	if quote.ValidTimelineMode(payload.TimelineMode) {
		decision.TimelineMode = quote.TimelineMode(payload.TimelineMode)
	}

	var validAddOns []string
	for _, id := range payload.AddOnIDs {
		if _, ok := s.catalog.FindAddOn(id); ok {
			validAddOns = append(validAddOns, id)
		}
	}
	decision.AddOnIDs = consultModel.DedupeAddOns(validAddOns)

	return decision
}

func (s *Service) packageIDs() []string {
	packages := s.catalog.Packages()
	ids := make([]string, 0, len(packages))
	for _, pkg := range packages {
		ids = append(ids, pkg.ID)
	}
	return ids
}

func (s *Service) addOnIDs() []string {
	addOns := s.catalog.AddOns()
	ids := make([]string, 0, len(addOns))
	for _, addOn := range addOns {
		ids = append(ids, addOn.ID)
	}
	return ids
}

const advisorSystemPrompt = "You are prisme, an invite-only AI advisor for premium fixed-fee software services.\n" +
	"Your job is discovery-first: probe for business context before quoting.\n" +
	"Choose one package and optional add-ons from the provided IDs only.\n" +
	"Timeline modes: STANDARD or RUSH.\n" +
	"Set readyToQuote=true only if the user has provided enough context for outcome + constraints + timeline, or clearly asks for a quote.\n" +
	"If not ready to quote, assistantMessage must be one concise probing question.\n" +
	"Never use salesy language and never mention internal heuristics.\n" +
	"Keep wording calm, direct, and premium.\n" +
	"Return strict JSON: {{\"packageId\":\"...\",\"timelineMode\":\"STANDARD|RUSH\",\"addOnIds\":[\"...\"],\"readyToQuote\":true|false,\"assistantMessage\":\"...\"}}"

const advisorUserPrompt = "Packages: {package_ids}\n" +
	"Add-ons: {add_on_ids}\n" +
	"User message: {user_message}\n" +
	"Existing answers JSON: {answers_json}\n" +
	"Conversation turn index (1-based): {turn_index}"
