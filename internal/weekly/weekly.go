// Package weekly emits at most one immutable pattern digest per ISO week
// (Monday start, local clock), once the outcome volume thresholds are met.
package weekly

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shipyardhq/shipyard/internal/config"
	"github.com/shipyardhq/shipyard/internal/session"
	"github.com/shipyardhq/shipyard/internal/text"
)

// themeTokenMinLen is the minimum rune length for theme candidate tokens.
const themeTokenMinLen = 4

// Summarizer decides whether this week needs a digest and composes it.
type Summarizer struct {
	Policy config.WeeklyPolicy
}

// WeekRange returns the local Monday 00:00:00 and Sunday 23:59:59.999999999
// bounds of the week containing t.
func WeekRange(t time.Time) (time.Time, time.Time) {
	distanceFromMonday := (int(t.Weekday()) + 6) % 7
	year, month, day := t.Date()
	start := time.Date(year, month, day, 0, 0, 0, 0, t.Location()).AddDate(0, 0, -distanceFromMonday)
	end := start.AddDate(0, 0, 7).Add(-time.Nanosecond)
	return start, end
}

// MaybeSummarize returns a new digest for the week containing now, or nil if
// the volume preconditions fail or a digest for that week already exists.
// Outcomes are expected newest first.
func (s Summarizer) MaybeSummarize(now time.Time, outcomes []session.OutcomeCard, existing []session.WeeklySummaryCard) *session.WeeklySummaryCard {
	if len(outcomes) < s.Policy.MinTotalOutcomes {
		return nil
	}

	weekStart, weekEnd := WeekRange(now)
	weekStartISO := weekStart.Format(time.RFC3339)

	var thisWeek []session.OutcomeCard
	for _, card := range outcomes {
		if !card.CreatedAt.Before(weekStart) && !card.CreatedAt.After(weekEnd) {
			thisWeek = append(thisWeek, card)
		}
	}
	if len(thisWeek) < s.Policy.MinWeekOutcomes {
		return nil
	}

	for _, summary := range existing {
		if summary.WeekStartISO == weekStartISO {
			return nil
		}
	}

	return &session.WeeklySummaryCard{
		ID:           session.NewID("weekly"),
		CreatedAt:    now,
		WeekStartISO: weekStartISO,
		WeekEndISO:   weekEnd.Format(time.RFC3339),
		Summary:      s.composeSummary(thisWeek),
	}
}

// composeSummary builds the single digest paragraph: outcome count, dominant
// mode, repeating themes when present, the focus completion ratio, and the
// recent coach sequence.
func (s Summarizer) composeSummary(outcomes []session.OutcomeCard) string {
	focusCount, focusCompleted, decisionCount, reflectionCount := 0, 0, 0, 0
	for _, card := range outcomes {
		switch data := card.Data.(type) {
		case session.FocusOutcome:
			focusCount++
			if data.IsCompleted {
				focusCompleted++
			}
		case session.DecisionOutcome:
			decisionCount++
		case session.ReflectionOutcome:
			reflectionCount++
		}
	}

	dominantMode := dominantMode(focusCount, decisionCount, reflectionCount)
	themes := s.extractThemes(outcomes)

	completionSignal := "No focus outcomes were logged this week."
	if focusCount > 0 {
		completionSignal = fmt.Sprintf("%d/%d focus outcomes were completed.", focusCompleted, focusCount)
	}

	trace := make([]string, 0, 4)
	for _, card := range outcomes {
		if len(trace) == 4 {
			break
		}
		trace = append(trace, card.Coach.Short())
	}
	transitions := strings.Join(trace, " → ")

	if len(themes) > 0 {
		return fmt.Sprintf(
			"This week you recorded %d outcomes; most effort went into %s. Repeating themes: %s. %s Coaching flow: %s.",
			len(outcomes), dominantMode, strings.Join(themes, " and "), completionSignal, transitions,
		)
	}
	return fmt.Sprintf(
		"This week you recorded %d outcomes; most effort went into %s. %s Coaching flow: %s.",
		len(outcomes), dominantMode, completionSignal, transitions,
	)
}

// dominantMode picks the mode with the highest count. Ties resolve in fixed
// priority order: focus, then decision, then reflection.
func dominantMode(focus, decision, reflection int) string {
	modes := []struct {
		label string
		count int
	}{
		{"focus execution", focus},
		{"decision clarity", decision},
		{"reflection depth", reflection},
	}

	best := modes[0]
	for _, mode := range modes[1:] {
		if mode.count > best.count {
			best = mode
		}
	}
	return best.label
}

// extractThemes counts candidate tokens across the week's outcome text fields
// and keeps the most frequent ones that repeat.
func (s Summarizer) extractThemes(outcomes []session.OutcomeCard) []string {
	stop := make(map[string]bool, len(s.Policy.ThemeStopWords))
	for _, w := range s.Policy.ThemeStopWords {
		stop[w] = true
	}

	counts := make(map[string]int)
	for _, card := range outcomes {
		source := card.Data.Primary() + " " + card.Data.Secondary()
		for _, token := range text.Tokens(source, themeTokenMinLen) {
			if !stop[token] {
				counts[token]++
			}
		}
	}

	type tokenCount struct {
		token string
		count int
	}
	ranked := make([]tokenCount, 0, len(counts))
	for token, count := range counts {
		if count >= s.Policy.ThemeMinCount {
			ranked = append(ranked, tokenCount{token, count})
		}
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return ranked[i].token < ranked[j].token
	})

	if len(ranked) > s.Policy.MaxThemes {
		ranked = ranked[:s.Policy.MaxThemes]
	}
	themes := make([]string, len(ranked))
	for i, tc := range ranked {
		themes[i] = tc.token
	}
	return themes
}
