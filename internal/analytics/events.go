// Package analytics is the telemetry event store: a capped client-side log
// of product events, and the aggregation that turns events into KPIs.
package analytics

import "time"

// Tracked event names. Servers count these by exact name match.
const (
	EventSessionSaved          = "session_saved"
	EventSessionClosed         = "session_closed"
	EventSessionCloseBlocked   = "session_close_blocked"
	EventOutcomeExtraction     = "outcome_extraction_result"
	EventReportExtraction      = "session_report_extraction_result"
	EventSessionReportSaved    = "session_report_saved"
	EventSessionReportFeedback = "session_report_feedback"
	EventOutcomeUpdated        = "outcome_updated"
	EventOutcomeFocusCompleted = "outcome_focus_completed"
	EventOutcomeArchived       = "outcome_archived"
	EventOutcomeDeleted        = "outcome_deleted"
	EventAnalyticsSynced       = "analytics_synced"
	EventReminderScheduled     = "reminder_scheduled"
	EventReminderTriggered     = "reminder_triggered"
	EventReminderOpened        = "reminder_opened"
)

// trackedEventNames is the closed set of names the summary reports counters
// for.
var trackedEventNames = []string{
	EventSessionSaved,
	EventSessionClosed,
	EventSessionCloseBlocked,
	EventOutcomeExtraction,
	EventReportExtraction,
	EventSessionReportSaved,
	EventSessionReportFeedback,
	EventOutcomeUpdated,
	EventOutcomeFocusCompleted,
	EventOutcomeArchived,
	EventOutcomeDeleted,
	EventAnalyticsSynced,
	EventReminderScheduled,
	EventReminderTriggered,
	EventReminderOpened,
}

// Payload carries the free-form event attributes.
type Payload map[string]any

// Event is one telemetry record.
type Event struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	CreatedAt string  `json:"createdAt"`
	Payload   Payload `json:"payload,omitempty"`
}

// Valid reports whether the event carries the three required fields. Invalid
// events are silently dropped on ingest.
func (e Event) Valid() bool {
	return e.ID != "" && e.Name != "" && e.CreatedAt != ""
}

// createdTime parses the event timestamp, zero time on failure.
func (e Event) createdTime() time.Time {
	t, err := time.Parse(time.RFC3339, e.CreatedAt)
	if err != nil {
		return time.Time{}
	}
	return t
}
