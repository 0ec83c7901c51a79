package session

import (
	"encoding/json"
	"fmt"
	"time"
)

// OutcomeKind discriminates the three outcome variants on the wire and in
// storage.
type OutcomeKind string

const (
	KindFocus      OutcomeKind = "focus"
	KindDecision   OutcomeKind = "decision"
	KindReflection OutcomeKind = "reflection"
)

// Outcome is the structured takeaway of one coaching session. It is a closed
// union: exactly one variant exists per coach.
type Outcome interface {
	Kind() OutcomeKind
	// Primary and Secondary expose the two sentence fields shared by every
	// variant, so derivation-agnostic code (themes, memory) can read them
	// without switching on the kind.
	Primary() string
	Secondary() string

	sealed()
}

// FocusOutcome is the Focus Coach takeaway: one priority and a first step.
type FocusOutcome struct {
	Priority    string
	FirstStep   string
	IsCompleted bool
}

func (FocusOutcome) Kind() OutcomeKind { return KindFocus }
func (o FocusOutcome) Primary() string { return o.Priority }
func (o FocusOutcome) Secondary() string { return o.FirstStep }
func (FocusOutcome) sealed() {}

// DecisionOutcome is the Decision Coach takeaway: a decision and its accepted
// tradeoff.
type DecisionOutcome struct {
	Decision         string
	TradeoffAccepted string
}

func (DecisionOutcome) Kind() OutcomeKind { return KindDecision }
func (o DecisionOutcome) Primary() string { return o.Decision }
func (o DecisionOutcome) Secondary() string { return o.TradeoffAccepted }
func (DecisionOutcome) sealed() {}

// ReflectionOutcome is the Reflection Coach takeaway: an insight and a
// question to carry forward.
type ReflectionOutcome struct {
	Insight         string
	QuestionToCarry string
}

func (ReflectionOutcome) Kind() OutcomeKind { return KindReflection }
func (o ReflectionOutcome) Primary() string { return o.Insight }
func (o ReflectionOutcome) Secondary() string { return o.QuestionToCarry }
func (ReflectionOutcome) sealed() {}

// CoachFor returns the coach whose sessions produce the given outcome kind.
func CoachFor(kind OutcomeKind) Coach {
	switch kind {
	case KindFocus:
		return CoachFocus
	case KindDecision:
		return CoachDecision
	default:
		return CoachReflection
	}
}

// outcomeEnvelope is the storage/wire form of an Outcome, with the kind as an
// explicit discriminant.
type outcomeEnvelope struct {
	Kind             OutcomeKind `json:"kind"`
	Priority         string      `json:"priority,omitempty"`
	FirstStep        string      `json:"firstStep,omitempty"`
	IsCompleted      *bool       `json:"isCompleted,omitempty"`
	Decision         string      `json:"decision,omitempty"`
	TradeoffAccepted string      `json:"tradeoffAccepted,omitempty"`
	Insight          string      `json:"insight,omitempty"`
	QuestionToCarry  string      `json:"questionToCarry,omitempty"`
}

func envelopeFor(o Outcome) outcomeEnvelope {
	switch v := o.(type) {
	case FocusOutcome:
		completed := v.IsCompleted
		return outcomeEnvelope{
			Kind:        KindFocus,
			Priority:    v.Priority,
			FirstStep:   v.FirstStep,
			IsCompleted: &completed,
		}
	case DecisionOutcome:
		return outcomeEnvelope{
			Kind:             KindDecision,
			Decision:         v.Decision,
			TradeoffAccepted: v.TradeoffAccepted,
		}
	case ReflectionOutcome:
		return outcomeEnvelope{
			Kind:            KindReflection,
			Insight:         v.Insight,
			QuestionToCarry: v.QuestionToCarry,
		}
	}
	return outcomeEnvelope{}
}

func (e outcomeEnvelope) outcome() (Outcome, error) {
	switch e.Kind {
	case KindFocus:
		completed := false
		if e.IsCompleted != nil {
			completed = *e.IsCompleted
		}
		return FocusOutcome{Priority: e.Priority, FirstStep: e.FirstStep, IsCompleted: completed}, nil
	case KindDecision:
		return DecisionOutcome{Decision: e.Decision, TradeoffAccepted: e.TradeoffAccepted}, nil
	case KindReflection:
		return ReflectionOutcome{Insight: e.Insight, QuestionToCarry: e.QuestionToCarry}, nil
	}
	return nil, fmt.Errorf("unknown outcome kind %q", e.Kind)
}

// MarshalOutcome encodes an outcome with its kind discriminant.
func MarshalOutcome(o Outcome) ([]byte, error) {
	return json.Marshal(envelopeFor(o))
}

// UnmarshalOutcome decodes an outcome envelope. Unknown kinds are an error.
func UnmarshalOutcome(data []byte) (Outcome, error) {
	var e outcomeEnvelope
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return e.outcome()
}

// OutcomeCard wraps an outcome with its identity and lifecycle metadata.
// Created exactly once per persisted session; the user may later edit the
// outcome fields, archive the card, or delete it.
type OutcomeCard struct {
	ID              string
	Coach           Coach
	CreatedAt       time.Time
	ArchivedAt      *time.Time
	SourceSessionID string
	Data            Outcome
}

type outcomeCardJSON struct {
	ID              string          `json:"id"`
	Coach           Coach           `json:"coach"`
	CreatedAt       time.Time       `json:"createdAt"`
	ArchivedAt      *time.Time      `json:"archivedAt,omitempty"`
	SourceSessionID string          `json:"sourceSessionId"`
	Data            outcomeEnvelope `json:"data"`
}

func (c OutcomeCard) MarshalJSON() ([]byte, error) {
	return json.Marshal(outcomeCardJSON{
		ID:              c.ID,
		Coach:           c.Coach,
		CreatedAt:       c.CreatedAt,
		ArchivedAt:      c.ArchivedAt,
		SourceSessionID: c.SourceSessionID,
		Data:            envelopeFor(c.Data),
	})
}

func (c *OutcomeCard) UnmarshalJSON(data []byte) error {
	var raw outcomeCardJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	outcome, err := raw.Data.outcome()
	if err != nil {
		return err
	}
	*c = OutcomeCard{
		ID:              raw.ID,
		Coach:           raw.Coach,
		CreatedAt:       raw.CreatedAt,
		ArchivedAt:      raw.ArchivedAt,
		SourceSessionID: raw.SourceSessionID,
		Data:            outcome,
	}
	return nil
}
