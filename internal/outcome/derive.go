// Package outcome turns an eligible transcript into a typed session outcome,
// either from an externally supplied candidate or by local heuristic
// fallback. Derivation is total: there is no error path.
package outcome

import (
	"github.com/shipyardhq/shipyard/internal/session"
	"github.com/shipyardhq/shipyard/internal/text"
)

// Persona-specific default sentences used when neither the assistant nor the
// user supplied usable text for a slot.
const (
	defaultFocusPriority   = "Choose one concrete priority for today."
	defaultFocusFirstStep  = "Take a single step in the next 20 minutes."
	defaultDecision        = "Commit to one direction."
	defaultTradeoff        = "Accept one meaningful downside of this choice."
	defaultInsight         = "Name the key thing that keeps recurring."
	defaultQuestionToCarry = "What deserves a slower look this week?"
)

// Compatible reports whether the outcome variant matches the coach that is
// supposed to have produced it.
func Compatible(coach session.Coach, o session.Outcome) bool {
	if o == nil {
		return false
	}
	return session.CoachFor(o.Kind()) == coach
}

// Derive produces the outcome for a session. A candidate whose variant
// matches the coach is used verbatim after sentence normalization; anything
// else falls back to the local heuristic.
func Derive(coach session.Coach, transcript session.Transcript, candidate session.Outcome) session.Outcome {
	if Compatible(coach, candidate) {
		return normalize(candidate)
	}
	return deriveFallback(coach, transcript.Latest(session.RoleUser), transcript.Latest(session.RoleAssistant))
}

// deriveFallback splits the latest assistant message into sentences and fills
// the two slots from it, then from the latest user message, then from the
// persona defaults.
func deriveFallback(coach session.Coach, latestUser, latestAssistant string) session.Outcome {
	sentences := text.SplitSentences(latestAssistant)

	first := ""
	if len(sentences) > 0 {
		first = sentences[0]
	}
	second := ""
	if len(sentences) > 1 {
		second = sentences[1]
	}

	switch coach {
	case session.CoachFocus:
		return session.FocusOutcome{
			Priority:    text.SafeSentence(firstNonEmpty(first, latestUser), defaultFocusPriority),
			FirstStep:   text.SafeSentence(firstNonEmpty(second, latestUser), defaultFocusFirstStep),
			IsCompleted: false,
		}
	case session.CoachDecision:
		return session.DecisionOutcome{
			Decision:         text.SafeSentence(firstNonEmpty(first, latestUser), defaultDecision),
			TradeoffAccepted: text.SafeSentence(second, defaultTradeoff),
		}
	default:
		return session.ReflectionOutcome{
			Insight:         text.SafeSentence(firstNonEmpty(first, latestUser), defaultInsight),
			QuestionToCarry: text.SafeSentence(second, defaultQuestionToCarry),
		}
	}
}

// normalize passes every sentence field of a candidate through the sentence
// normalizer so accepted candidates still honor the length and punctuation
// invariants.
func normalize(o session.Outcome) session.Outcome {
	switch v := o.(type) {
	case session.FocusOutcome:
		return session.FocusOutcome{
			Priority:    text.SafeSentence(v.Priority, defaultFocusPriority),
			FirstStep:   text.SafeSentence(v.FirstStep, defaultFocusFirstStep),
			IsCompleted: v.IsCompleted,
		}
	case session.DecisionOutcome:
		return session.DecisionOutcome{
			Decision:         text.SafeSentence(v.Decision, defaultDecision),
			TradeoffAccepted: text.SafeSentence(v.TradeoffAccepted, defaultTradeoff),
		}
	case session.ReflectionOutcome:
		return session.ReflectionOutcome{
			Insight:         text.SafeSentence(v.Insight, defaultInsight),
			QuestionToCarry: text.SafeSentence(v.QuestionToCarry, defaultQuestionToCarry),
		}
	}
	return o
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
