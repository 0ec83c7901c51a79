package analytics

import "time"

// Summary is the aggregate computed over a set of events.
type Summary struct {
	Total         int                `json:"total"`
	LatestEventAt string             `json:"latestEventAt,omitempty"`
	Metrics       map[string]int     `json:"metrics"`
	KPIs          map[string]float64 `json:"kpis"`
	Installs      int                `json:"installs"`
}

// Summarize recomputes the aggregate from scratch: total count, latest
// timestamp, per-name counters for the tracked event names, distinct install
// count, and derived KPI ratios with zero-guarded division.
func Summarize(events []Event) Summary {
	metrics := make(map[string]int, len(trackedEventNames))
	for _, name := range trackedEventNames {
		metrics[name] = 0
	}

	installs := make(map[string]struct{})
	var latest time.Time
	for _, event := range events {
		if _, tracked := metrics[event.Name]; tracked {
			metrics[event.Name]++
		}
		if created := event.createdTime(); created.After(latest) {
			latest = created
		}
		if event.Payload != nil {
			if id, ok := event.Payload["install_id"].(string); ok && id != "" {
				installs[id] = struct{}{}
			}
		}
	}

	summary := Summary{
		Total:    len(events),
		Metrics:  metrics,
		Installs: len(installs),
		KPIs: map[string]float64{
			"outcome_save_rate":     ratio(metrics[EventSessionSaved], metrics[EventSessionClosed]),
			"report_feedback_rate":  ratio(metrics[EventSessionReportFeedback], metrics[EventSessionReportSaved]),
			"focus_completion_rate": ratio(metrics[EventOutcomeFocusCompleted], metrics[EventSessionSaved]),
		},
	}
	if !latest.IsZero() {
		summary.LatestEventAt = latest.Format(time.RFC3339)
	}
	return summary
}

func ratio(a, b int) float64 {
	if b == 0 {
		return 0
	}
	return float64(a) / float64(b)
}

// EventMetric is one labelled counter for the outcome-quality view.
type EventMetric struct {
	Label string
	Value int
}

// OutcomeQualityMetrics counts the quality-relevant events, including
// payload-filtered slices such as gate decisions and report feedback.
func OutcomeQualityMetrics(events []Event) []EventMetric {
	countByName := func(name string) int {
		n := 0
		for _, e := range events {
			if e.Name == name {
				n++
			}
		}
		return n
	}
	countByPayload := func(name, key string, expected any) int {
		n := 0
		for _, e := range events {
			if e.Name == name && e.Payload != nil && e.Payload[key] == expected {
				n++
			}
		}
		return n
	}

	return []EventMetric{
		{"Sessions saved", countByName(EventSessionSaved)},
		{"Outcome fallback used", countByPayload(EventOutcomeExtraction, "used_fallback_outcome", true)},
		{"Reports accepted (AI)", countByPayload(EventSessionReportSaved, "report_quality_status", "accepted_ai")},
		{"Reports rejected to fallback", countByPayload(EventSessionReportSaved, "report_quality_status", "rejected_ai_fallback")},
		{"Report feedback: useful", countByPayload(EventSessionReportFeedback, "feedback", "useful")},
		{"Report feedback: not useful", countByPayload(EventSessionReportFeedback, "feedback", "not_useful")},
		{"Outcome edits", countByName(EventOutcomeUpdated)},
		{"Focus completed", countByName(EventOutcomeFocusCompleted)},
		{"Outcomes archived", countByName(EventOutcomeArchived)},
		{"Outcomes deleted", countByName(EventOutcomeDeleted)},
	}
}
