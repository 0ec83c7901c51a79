// Package session holds the domain model shared across the insight pipeline:
// coaches, transcripts, and the cards derived from a closed conversation.
package session

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Coach identifies one of the three fixed coaching personas.
type Coach string

const (
	CoachFocus      Coach = "Focus Coach"
	CoachDecision   Coach = "Decision Coach"
	CoachReflection Coach = "Reflection Coach"
)

// Valid reports whether c is one of the known coaches.
func (c Coach) Valid() bool {
	switch c {
	case CoachFocus, CoachDecision, CoachReflection:
		return true
	}
	return false
}

// Short returns the coach name without the " Coach" suffix.
func (c Coach) Short() string {
	return strings.TrimSuffix(string(c), " Coach")
}

// Descriptor returns the phrase used when referring to what the coach is for.
func (c Coach) Descriptor() string {
	switch c {
	case CoachFocus:
		return "focus and execution"
	case CoachDecision:
		return "decision clarity"
	default:
		return "reflection and meaning"
	}
}

// Role is the author of a transcript message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single transcript entry. Opening and error messages are
// excluded from every derivation.
type Message struct {
	Role      Role   `json:"role"`
	Content   string `json:"content"`
	IsOpening bool   `json:"isOpening,omitempty"`
	IsError   bool   `json:"isError,omitempty"`
}

// Transcript is the ordered message sequence of one conversation.
type Transcript []Message

// Conversational returns the transcript with opening and error messages removed.
func (t Transcript) Conversational() Transcript {
	var out Transcript
	for _, m := range t {
		if m.IsOpening || m.IsError {
			continue
		}
		out = append(out, m)
	}
	return out
}

// Eligible reports whether the transcript qualifies for persistence: at least
// one user and one assistant message after exclusions.
func (t Transcript) Eligible() bool {
	users, assistants := 0, 0
	for _, m := range t.Conversational() {
		switch m.Role {
		case RoleUser:
			users++
		case RoleAssistant:
			assistants++
		}
	}
	return users > 0 && assistants > 0
}

// Latest returns the content of the most recent conversational message with
// the given role, or "" if none exists.
func (t Transcript) Latest(role Role) string {
	conv := t.Conversational()
	for i := len(conv) - 1; i >= 0; i-- {
		if conv[i].Role == role {
			return conv[i].Content
		}
	}
	return ""
}

// NewID generates a prefixed unique id, e.g. "outcome-1b4e28ba-...".
func NewID(prefix string) string {
	return prefix + "-" + uuid.NewString()
}

// HistoryEntry is the raw transcript snapshot kept for audit and history views.
type HistoryEntry struct {
	ID        string    `json:"id"`
	Coach     Coach     `json:"coach"`
	StartedAt time.Time `json:"startedAt"`
	EndedAt   time.Time `json:"endedAt"`
	OutcomeID string    `json:"outcomeId,omitempty"`
	Messages  []Message `json:"messages"`
}
