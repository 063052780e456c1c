package consult

import (
	"time"

	"github.com/prisme-studio/prisme/backend/internal/model/quote"
)

// State tracks where a consult session sits in its lifecycle.
type State string

const (
	StateGated          State = "GATED"
	StateActive         State = "ACTIVE"
	StateLimitReached   State = "LIMIT_REACHED"
	StateBudgetFallback State = "BUDGET_FALLBACK"
	StateCompleted      State = "COMPLETED"
)

// Message is one transcript entry, kept for audit and probing context.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Session captures one invite-gated consult conversation. Owned exclusively by the
// session store; a session past ExpiresAt is treated as nonexistent.
type Session struct {
	Token          string            `json:"token"`
	InviteCode     string            `json:"inviteCode"`
	ClientIP       string            `json:"clientIp"`
	CreatedAt      time.Time         `json:"createdAt"`
	ExpiresAt      time.Time         `json:"expiresAt"`
	RemainingTurns int               `json:"remainingTurns"`
	State          State             `json:"state"`
	Answers        StructuredAnswers `json:"answers"`
	Messages       []Message         `json:"messages"`
}

// UserTurnCount returns how many user messages the transcript holds.
func (s *Session) UserTurnCount() int {
	count := 0
	for _, msg := range s.Messages {
		if msg.Role == RoleUser {
			count++
		}
	}
	return count
}

// StructuredAnswers accumulates what the consult has learned so far. Zero values
// mean "not answered yet"; set fields are sticky across merges.
type StructuredAnswers struct {
	PrimaryGoal  string             `json:"primaryGoal,omitempty"`
	PackageID    string             `json:"packageId,omitempty"`
	TimelineMode quote.TimelineMode `json:"timelineMode,omitempty"`
	AddOnIDs     []string           `json:"addOnIds,omitempty"`
	Notes        string             `json:"notes,omitempty"`
}

// Free-text answer fields are capped to keep transcripts and prompts bounded.
const (
	MaxPrimaryGoalLen = 600
	MaxNotesLen       = 1000
)

// MergeAnswers folds updates into existing with sticky semantics: fields already
// present win, gaps are filled, add-on ids accumulate as a deduplicated union.
// Returns a fresh value so session state never aliases in-flight resolution data.
func MergeAnswers(existing, updates StructuredAnswers) StructuredAnswers {
	merged := existing

	if merged.PrimaryGoal == "" {
		merged.PrimaryGoal = truncate(updates.PrimaryGoal, MaxPrimaryGoalLen)
	}
	if merged.PackageID == "" {
		merged.PackageID = updates.PackageID
	}
	if merged.TimelineMode == "" {
		merged.TimelineMode = updates.TimelineMode
	}
	if merged.Notes == "" {
		merged.Notes = truncate(updates.Notes, MaxNotesLen)
	}
	merged.AddOnIDs = DedupeAddOns(append(append([]string(nil), existing.AddOnIDs...), updates.AddOnIDs...))

	return merged
}

// DedupeAddOns removes duplicate ids while preserving first-seen order.
func DedupeAddOns(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func truncate(value string, limit int) string {
	if len(value) <= limit {
		return value
	}
	return value[:limit]
}
