// Package report builds the per-session narrative report. An externally
// supplied candidate is trusted only if it passes the quality gate; otherwise
// a deterministic fallback synthesized from the outcome is used, so the user
// always sees something coherent.
package report

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/shipyardhq/shipyard/internal/config"
	"github.com/shipyardhq/shipyard/internal/session"
	"github.com/shipyardhq/shipyard/internal/text"
)

// fallbackConfidence is the fixed confidence assigned to synthesized reports.
const fallbackConfidence = 0.4

// Candidate is an untrusted externally supplied report.
type Candidate struct {
	Summary           string  `json:"summary"`
	Pattern           string  `json:"pattern"`
	NextCheckInPrompt string  `json:"nextCheckInPrompt"`
	Confidence        float64 `json:"confidence"`
}

// ParseCandidate decodes an extraction response into a report candidate,
// returning nil for empty or malformed input.
func ParseCandidate(raw string) *Candidate {
	raw = text.StripCodeFences(raw)
	if raw == "" {
		return nil
	}
	var c Candidate
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		return nil
	}
	return &c
}

// Draft is report content before it is wrapped into a ReportCard.
type Draft struct {
	Summary           string
	Pattern           string
	NextCheckInPrompt string
	Confidence        float64
	Source            session.ReportSource
}

// BuildFallback synthesizes the deterministic report for an outcome. The
// wording is templated per persona and references the outcome's fields.
func BuildFallback(card session.OutcomeCard, latestUserMessage string) Draft {
	var summary, pattern, nextPrompt string

	switch data := card.Data.(type) {
	case session.FocusOutcome:
		summary = fmt.Sprintf("You narrowed the session to one clear priority: %s", data.Priority)
		pattern = fmt.Sprintf("Pattern signal: you are using coaching for %s.", card.Coach.Descriptor())
		nextPrompt = fmt.Sprintf("When you check in next, report what happened after this first step: %s", data.FirstStep)
	case session.DecisionOutcome:
		summary = fmt.Sprintf("You committed to a direction: %s", data.Decision)
		pattern = "Pattern signal: you are naming tradeoffs instead of staying stuck in options."
		nextPrompt = fmt.Sprintf("At your next check-in, reflect on how this tradeoff felt in practice: %s", data.TradeoffAccepted)
	case session.ReflectionOutcome:
		summary = fmt.Sprintf("You captured a recurring insight: %s", data.Insight)
		pattern = "Pattern signal: you are slowing down to notice what repeats beneath the surface."
		nextPrompt = fmt.Sprintf("Carry this into your next check-in: %s", data.QuestionToCarry)
	}

	if nextPrompt == "" {
		nextPrompt = latestUserMessage
	}

	return Draft{
		Summary:           text.SafeSentence(summary, fmt.Sprintf("You completed a %s session.", card.Coach)),
		Pattern:           text.SafeSentence(pattern, "Pattern signal captured from this session."),
		NextCheckInPrompt: text.SafeSentence(nextPrompt, "What feels most important to revisit next?"),
		Confidence:        fallbackConfidence,
		Source:            session.ReportSourceFallback,
	}
}

// Gate applies the quality policy to candidates.
type Gate struct {
	Policy config.ReportGatePolicy
}

// Select decides between the candidate and the fallback. A nil candidate
// yields the fallback with status fallback_only; a failing candidate yields
// the fallback with status rejected_ai_fallback.
func (g Gate) Select(candidate *Candidate, fallback Draft) (Draft, session.ReportQualityStatus) {
	if candidate == nil {
		return fallback, session.ReportFallbackOnly
	}
	if !g.accept(candidate) {
		return fallback, session.ReportRejectedAIFallback
	}
	return Draft{
		Summary:           candidate.Summary,
		Pattern:           candidate.Pattern,
		NextCheckInPrompt: candidate.NextCheckInPrompt,
		Confidence:        candidate.Confidence,
		Source:            session.ReportSourceAI,
	}, session.ReportAcceptedAI
}

func (g Gate) accept(c *Candidate) bool {
	return c.Confidence >= g.Policy.MinConfidence &&
		g.hasDistinctMeaning(c.Summary) &&
		g.hasDistinctMeaning(c.Pattern) &&
		g.hasDistinctMeaning(c.NextCheckInPrompt) &&
		!g.hasLowDiversity(c.Summary+" "+c.Pattern+" "+c.NextCheckInPrompt)
}

// hasDistinctMeaning rejects short fields and fields echoing the fallback
// templates' filler phrases. The phrase list is coupled to the fallback
// wording in BuildFallback; change both together.
func (g Gate) hasDistinctMeaning(value string) bool {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if len(normalized) < g.Policy.MinFieldLength {
		return false
	}
	for _, phrase := range g.Policy.FillerPhrases {
		if strings.Contains(normalized, phrase) {
			return false
		}
	}
	return true
}

// hasLowDiversity flags text whose unique-token ratio falls below the
// threshold. Fewer tokens than the minimum count is treated as low diversity.
func (g Gate) hasLowDiversity(value string) bool {
	tokens := text.Tokens(value, 3)
	if len(tokens) < g.Policy.MinTokenCount {
		return true
	}
	return text.Diversity(tokens) < g.Policy.MinTokenDiversity
}

// NewCard wraps a selected draft into the immutable report card, normalizing
// each field against the fallback and clamping confidence to [0,1] rounded to
// two decimals.
func NewCard(id string, outcome session.OutcomeCard, draft, fallback Draft, status session.ReportQualityStatus) session.ReportCard {
	return session.ReportCard{
		ID:                id,
		CreatedAt:         outcome.CreatedAt,
		Coach:             outcome.Coach,
		SourceSessionID:   outcome.SourceSessionID,
		SourceOutcomeID:   outcome.ID,
		Summary:           text.SafeSentence(draft.Summary, fallback.Summary),
		Pattern:           text.SafeSentence(draft.Pattern, fallback.Pattern),
		NextCheckInPrompt: text.SafeSentence(draft.NextCheckInPrompt, fallback.NextCheckInPrompt),
		Confidence:        clampConfidence(draft.Confidence),
		Source:            draft.Source,
		QualityStatus:     status,
	}
}

func clampConfidence(v float64) float64 {
	return math.Max(0, math.Min(1, math.Round(v*100)/100))
}
