package outcome

import (
	"testing"

	"github.com/shipyardhq/shipyard/internal/session"
)

func transcript(user, assistant string) session.Transcript {
	return session.Transcript{
		{Role: session.RoleUser, Content: user},
		{Role: session.RoleAssistant, Content: assistant},
	}
}

func TestCompatible(t *testing.T) {
	if !Compatible(session.CoachFocus, session.FocusOutcome{}) {
		t.Error("expected focus outcome to match focus coach")
	}
	if Compatible(session.CoachFocus, session.DecisionOutcome{}) {
		t.Error("expected decision outcome to mismatch focus coach")
	}
	if Compatible(session.CoachFocus, nil) {
		t.Error("expected nil candidate to be incompatible")
	}
}

func TestDeriveUsesCompatibleCandidate(t *testing.T) {
	candidate := session.FocusOutcome{Priority: "Finish   the  review", FirstStep: "Open the doc."}
	got := Derive(session.CoachFocus, transcript("ignored", "Also ignored."), candidate)

	focus, ok := got.(session.FocusOutcome)
	if !ok {
		t.Fatalf("expected focus outcome, got %T", got)
	}
	// Candidate fields pass through sentence normalization
	if focus.Priority != "Finish the review." {
		t.Errorf("expected normalized candidate priority, got %q", focus.Priority)
	}
	if focus.FirstStep != "Open the doc." {
		t.Errorf("expected candidate first step kept, got %q", focus.FirstStep)
	}
}

func TestDeriveRejectsMismatchedCandidate(t *testing.T) {
	candidate := session.DecisionOutcome{Decision: "Wrong variant."}
	got := Derive(session.CoachFocus, transcript("my words", "Pick one thing. Then start."), candidate)

	focus, ok := got.(session.FocusOutcome)
	if !ok {
		t.Fatalf("expected fallback focus outcome, got %T", got)
	}
	if focus.Priority != "Pick one thing." {
		t.Errorf("expected first assistant sentence, got %q", focus.Priority)
	}
	if focus.FirstStep != "Then start." {
		t.Errorf("expected second assistant sentence, got %q", focus.FirstStep)
	}
}

func TestFallbackFillsFromUserMessage(t *testing.T) {
	got := Derive(session.CoachFocus, transcript("ship the landing page", ""), nil)

	focus := got.(session.FocusOutcome)
	if focus.Priority != "ship the landing page." {
		t.Errorf("expected user message priority, got %q", focus.Priority)
	}
	if focus.FirstStep != "ship the landing page." {
		t.Errorf("expected user message first step, got %q", focus.FirstStep)
	}
}

func TestFallbackDefaults(t *testing.T) {
	got := Derive(session.CoachFocus, session.Transcript{}, nil)
	focus := got.(session.FocusOutcome)
	if focus.Priority != defaultFocusPriority {
		t.Errorf("expected default priority, got %q", focus.Priority)
	}
	if focus.FirstStep != defaultFocusFirstStep {
		t.Errorf("expected default first step, got %q", focus.FirstStep)
	}
	if focus.IsCompleted {
		t.Error("expected derived focus to start incomplete")
	}
}

func TestDecisionSecondarySkipsUserMessage(t *testing.T) {
	// The tradeoff slot never falls back to the user message, only to the
	// second assistant sentence or the default.
	got := Derive(session.CoachDecision, transcript("I choose the job offer", "One sentence only."), nil)

	decision := got.(session.DecisionOutcome)
	if decision.Decision != "One sentence only." {
		t.Errorf("expected assistant sentence for decision, got %q", decision.Decision)
	}
	if decision.TradeoffAccepted != defaultTradeoff {
		t.Errorf("expected default tradeoff, got %q", decision.TradeoffAccepted)
	}
}

func TestReflectionSecondarySkipsUserMessage(t *testing.T) {
	got := Derive(session.CoachReflection, transcript("thinking about work", "You keep circling back."), nil)

	reflection := got.(session.ReflectionOutcome)
	if reflection.Insight != "You keep circling back." {
		t.Errorf("expected assistant insight, got %q", reflection.Insight)
	}
	if reflection.QuestionToCarry != defaultQuestionToCarry {
		t.Errorf("expected default question, got %q", reflection.QuestionToCarry)
	}
}

func TestParseCandidate(t *testing.T) {
	raw := "```json\n{\"kind\":\"focus\",\"priority\":\"Ship it\",\"firstStep\":\"Start\",\"isCompleted\":false}\n```"
	got := ParseCandidate(raw)
	focus, ok := got.(session.FocusOutcome)
	if !ok {
		t.Fatalf("expected focus candidate, got %T", got)
	}
	if focus.Priority != "Ship it" || focus.FirstStep != "Start" {
		t.Errorf("unexpected candidate fields: %+v", focus)
	}
}

func TestParseCandidateRejectsGarbage(t *testing.T) {
	for _, raw := range []string{"", "not json", `{"kind":"mystery"}`, "```\n```"} {
		if got := ParseCandidate(raw); got != nil {
			t.Errorf("expected nil for %q, got %+v", raw, got)
		}
	}
}
