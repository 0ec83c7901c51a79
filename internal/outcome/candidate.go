package outcome

import (
	"encoding/json"

	"github.com/shipyardhq/shipyard/internal/session"
	"github.com/shipyardhq/shipyard/internal/text"
)

// candidateJSON is the untrusted wire shape delivered by the extraction
// service: a kind discriminant plus persona-specific fields.
type candidateJSON struct {
	Kind             string `json:"kind"`
	Priority         string `json:"priority"`
	FirstStep        string `json:"firstStep"`
	IsCompleted      bool   `json:"isCompleted"`
	Decision         string `json:"decision"`
	TradeoffAccepted string `json:"tradeoffAccepted"`
	Insight          string `json:"insight"`
	QuestionToCarry  string `json:"questionToCarry"`
}

// ParseCandidate decodes an extraction response into an outcome candidate.
// Returns nil for empty input, malformed JSON, or an unknown kind; the caller
// then proceeds as if no candidate was supplied.
func ParseCandidate(raw string) session.Outcome {
	raw = text.StripCodeFences(raw)
	if raw == "" {
		return nil
	}

	var c candidateJSON
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		return nil
	}

	switch session.OutcomeKind(c.Kind) {
	case session.KindFocus:
		return session.FocusOutcome{Priority: c.Priority, FirstStep: c.FirstStep, IsCompleted: c.IsCompleted}
	case session.KindDecision:
		return session.DecisionOutcome{Decision: c.Decision, TradeoffAccepted: c.TradeoffAccepted}
	case session.KindReflection:
		return session.ReflectionOutcome{Insight: c.Insight, QuestionToCarry: c.QuestionToCarry}
	}
	return nil
}
