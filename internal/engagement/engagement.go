// Package engagement holds the re-engagement reminder and the daily
// free-message limiter.
package engagement

import (
	"time"

	"github.com/shipyardhq/shipyard/internal/session"
	"github.com/shipyardhq/shipyard/internal/store"
)

const reminderCooldown = 7 * 24 * time.Hour

// Reminder is a gentle nudge back into a coaching conversation.
type Reminder struct {
	Message string
	Coach   session.Coach
}

// Engagement tracks app-open and reminder timestamps.
type Engagement struct {
	store *store.Store

	Now func() time.Time
}

// New creates an engagement tracker backed by the given store.
func New(s *store.Store) *Engagement {
	return &Engagement{store: s, Now: time.Now}
}

// MarkOpened records that the app was opened now.
func (e *Engagement) MarkOpened() error {
	return e.store.Set(store.KeyLastOpenedAt, e.Now().Format(time.RFC3339))
}

// MarkReminderShown records that a reminder was surfaced now.
func (e *Engagement) MarkReminderShown() error {
	return e.store.Set(store.KeyLastReminderAt, e.Now().Format(time.RFC3339))
}

// MaybeReminder returns a nudge keyed to the most recent outcome, or nil.
// Requires at least three outcomes, and at least seven days since both the
// last open and the last reminder.
func (e *Engagement) MaybeReminder(outcomes []session.OutcomeCard) *Reminder {
	if len(outcomes) < 3 {
		return nil
	}

	now := e.Now()
	if lastOpened, ok := e.readTime(store.KeyLastOpenedAt); ok && now.Sub(lastOpened) < reminderCooldown {
		return nil
	}
	if lastReminder, ok := e.readTime(store.KeyLastReminderAt); ok && now.Sub(lastReminder) < reminderCooldown {
		return nil
	}

	switch outcomes[0].Data.Kind() {
	case session.KindDecision:
		return &Reminder{
			Message: "You made a decision recently. Want to revisit it?",
			Coach:   session.CoachDecision,
		}
	case session.KindFocus:
		return &Reminder{
			Message: "You paused after choosing one priority. Want to check in?",
			Coach:   session.CoachFocus,
		}
	default:
		return &Reminder{
			Message: "You captured an insight recently. Want to check in?",
			Coach:   session.CoachReflection,
		}
	}
}

func (e *Engagement) readTime(key string) (time.Time, bool) {
	raw, err := e.store.Get(key)
	if err != nil || raw == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
