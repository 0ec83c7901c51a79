package weekly

import (
	"strings"
	"testing"
	"time"

	"github.com/shipyardhq/shipyard/internal/config"
	"github.com/shipyardhq/shipyard/internal/session"
)

// A Friday afternoon; its week runs Monday Feb 2 through Sunday Feb 8.
var friday = time.Date(2026, 2, 6, 15, 0, 0, 0, time.UTC)

func testSummarizer() Summarizer {
	return Summarizer{Policy: config.Default().Weekly}
}

func focusAt(t time.Time, priority, step string, completed bool) session.OutcomeCard {
	return session.OutcomeCard{
		ID:        session.NewID("outcome"),
		Coach:     session.CoachFocus,
		CreatedAt: t,
		Data:      session.FocusOutcome{Priority: priority, FirstStep: step, IsCompleted: completed},
	}
}

func TestWeekRange(t *testing.T) {
	start, end := WeekRange(friday)

	if start.Weekday() != time.Monday {
		t.Errorf("expected Monday start, got %v", start.Weekday())
	}
	if !start.Equal(time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected week start %v", start)
	}
	if end.Weekday() != time.Sunday {
		t.Errorf("expected Sunday end, got %v", end.Weekday())
	}
	if !end.Before(time.Date(2026, 2, 9, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("expected end before next Monday, got %v", end)
	}

	// A Monday is its own week start
	monday := time.Date(2026, 2, 2, 8, 0, 0, 0, time.UTC)
	start2, _ := WeekRange(monday)
	if !start2.Equal(start) {
		t.Errorf("expected same week start for Monday, got %v", start2)
	}

	// A Sunday belongs to the preceding Monday's week
	sunday := time.Date(2026, 2, 8, 23, 0, 0, 0, time.UTC)
	start3, _ := WeekRange(sunday)
	if !start3.Equal(start) {
		t.Errorf("expected Sunday to share the week, got %v", start3)
	}
}

func TestMaybeSummarizeBelowTotalThreshold(t *testing.T) {
	outcomes := []session.OutcomeCard{
		focusAt(friday, "Ship it.", "Start.", false),
		focusAt(friday.Add(-time.Hour), "Ship it.", "Start.", false),
	}
	if got := testSummarizer().MaybeSummarize(friday, outcomes, nil); got != nil {
		t.Errorf("expected nil below total threshold, got %+v", got)
	}
}

func TestMaybeSummarizeBelowWeekThreshold(t *testing.T) {
	// Enough outcomes overall, but only two inside the current week.
	outcomes := []session.OutcomeCard{
		focusAt(friday, "Ship it.", "Start.", false),
		focusAt(friday.Add(-time.Hour), "Ship it.", "Start.", false),
		focusAt(friday.AddDate(0, 0, -10), "Old.", "Old.", false),
		focusAt(friday.AddDate(0, 0, -11), "Old.", "Old.", false),
	}
	if got := testSummarizer().MaybeSummarize(friday, outcomes, nil); got != nil {
		t.Errorf("expected nil below week threshold, got %+v", got)
	}
}

func TestMaybeSummarizeOncePerWeek(t *testing.T) {
	outcomes := []session.OutcomeCard{
		focusAt(friday, "Ship the launch review.", "Open the review doc.", true),
		focusAt(friday.Add(-time.Hour), "Ship the launch review.", "Draft the checklist.", false),
		focusAt(friday.Add(-2*time.Hour), "Plan the launch review.", "Book the room.", false),
	}

	s := testSummarizer()
	first := s.MaybeSummarize(friday, outcomes, nil)
	if first == nil {
		t.Fatal("expected a digest")
	}

	weekStart, _ := WeekRange(friday)
	if first.WeekStartISO != weekStart.Format(time.RFC3339) {
		t.Errorf("unexpected week start %q", first.WeekStartISO)
	}

	second := s.MaybeSummarize(friday.Add(time.Hour), outcomes, []session.WeeklySummaryCard{*first})
	if second != nil {
		t.Errorf("expected nil for existing week, got %+v", second)
	}
}

func TestComposeSummaryContent(t *testing.T) {
	outcomes := []session.OutcomeCard{
		focusAt(friday, "Ship the launch review.", "Open the review doc.", true),
		focusAt(friday.Add(-time.Hour), "Finish the launch review.", "Draft the checklist.", false),
		{
			ID:        session.NewID("outcome"),
			Coach:     session.CoachReflection,
			CreatedAt: friday.Add(-2 * time.Hour),
			Data:      session.ReflectionOutcome{Insight: "The launch keeps slipping.", QuestionToCarry: "Why?"},
		},
	}

	card := testSummarizer().MaybeSummarize(friday, outcomes, nil)
	if card == nil {
		t.Fatal("expected a digest")
	}

	if !strings.HasPrefix(card.Summary, "This week you recorded 3 outcomes; most effort went into focus execution.") {
		t.Errorf("unexpected opening: %q", card.Summary)
	}
	if !strings.Contains(card.Summary, "Repeating themes: launch and review.") {
		t.Errorf("expected ranked themes, got %q", card.Summary)
	}
	if !strings.Contains(card.Summary, "1/2 focus outcomes were completed.") {
		t.Errorf("expected completion signal, got %q", card.Summary)
	}
	if !strings.Contains(card.Summary, "Coaching flow: Focus → Focus → Reflection.") {
		t.Errorf("expected coach trace, got %q", card.Summary)
	}
}

func TestComposeSummaryWithoutThemes(t *testing.T) {
	outcomes := []session.OutcomeCard{
		focusAt(friday, "Alpha unrelated.", "Beta separate.", false),
		focusAt(friday.Add(-time.Hour), "Gamma other.", "Delta distinct.", false),
		focusAt(friday.Add(-2*time.Hour), "Epsilon apart.", "Zeta disjoint.", false),
	}

	card := testSummarizer().MaybeSummarize(friday, outcomes, nil)
	if card == nil {
		t.Fatal("expected a digest")
	}
	if strings.Contains(card.Summary, "Repeating themes") {
		t.Errorf("expected no theme clause, got %q", card.Summary)
	}
	if !strings.Contains(card.Summary, "0/3 focus outcomes were completed.") {
		t.Errorf("expected completion signal, got %q", card.Summary)
	}
}

func TestDominantModeTieBreak(t *testing.T) {
	if got := dominantMode(2, 2, 2); got != "focus execution" {
		t.Errorf("expected focus to win ties, got %q", got)
	}
	if got := dominantMode(0, 1, 1); got != "decision clarity" {
		t.Errorf("expected decision over reflection, got %q", got)
	}
	if got := dominantMode(0, 0, 1); got != "reflection depth" {
		t.Errorf("expected reflection, got %q", got)
	}
}
