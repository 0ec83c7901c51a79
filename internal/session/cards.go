package session

import "time"

// ReportSource says where the report text came from.
type ReportSource string

const (
	ReportSourceAI       ReportSource = "ai"
	ReportSourceFallback ReportSource = "fallback"
)

// ReportQualityStatus records the quality-gate decision for a report.
type ReportQualityStatus string

const (
	ReportAcceptedAI         ReportQualityStatus = "accepted_ai"
	ReportRejectedAIFallback ReportQualityStatus = "rejected_ai_fallback"
	ReportFallbackOnly       ReportQualityStatus = "fallback_only"
)

// ReportFeedback is the user's usefulness verdict on a report.
type ReportFeedback string

const (
	FeedbackUseful    ReportFeedback = "useful"
	FeedbackNotUseful ReportFeedback = "not_useful"
)

// ReportCard is the quality-gated narrative report for one session. Exactly
// one exists per persisted session; only UsefulnessFeedback is mutable.
type ReportCard struct {
	ID                 string              `json:"id"`
	CreatedAt          time.Time           `json:"createdAt"`
	Coach              Coach               `json:"coach"`
	SourceSessionID    string              `json:"sourceSessionId"`
	SourceOutcomeID    string              `json:"sourceOutcomeId"`
	Summary            string              `json:"summary"`
	Pattern            string              `json:"pattern"`
	NextCheckInPrompt  string              `json:"nextCheckInPrompt"`
	Confidence         float64             `json:"confidence"`
	Source             ReportSource        `json:"source"`
	QualityStatus      ReportQualityStatus `json:"qualityStatus,omitempty"`
	UsefulnessFeedback ReportFeedback      `json:"usefulnessFeedback,omitempty"`
}

// WeeklySummaryCard is the immutable once-per-ISO-week pattern digest.
type WeeklySummaryCard struct {
	ID           string    `json:"id"`
	CreatedAt    time.Time `json:"createdAt"`
	WeekStartISO string    `json:"weekStartISO"`
	WeekEndISO   string    `json:"weekEndISO"`
	Summary      string    `json:"summary"`
}

// TimelineItemType discriminates entries in the merged insight timeline.
type TimelineItemType string

const (
	TimelineOutcome       TimelineItemType = "outcome"
	TimelineWeeklySummary TimelineItemType = "weekly-summary"
	TimelineSessionReport TimelineItemType = "session-report"
)

// TimelineItem is one entry of the merged timeline view. Exactly one of
// Outcome, Summary, or Report is set, matching Type.
type TimelineItem struct {
	ID        string             `json:"id"`
	Type      TimelineItemType   `json:"type"`
	CreatedAt time.Time          `json:"createdAt"`
	Outcome   *OutcomeCard       `json:"outcome,omitempty"`
	Summary   *WeeklySummaryCard `json:"summary,omitempty"`
	Report    *ReportCard        `json:"report,omitempty"`
}
