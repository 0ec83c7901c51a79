// Package progress is the session persistence orchestrator: given one closed
// conversation it derives the outcome, gates the report, commits every
// artifact, triggers the weekly digest and memory sync, and emits telemetry.
package progress

import (
	"log"
	"sort"
	"time"

	"github.com/shipyardhq/shipyard/internal/analytics"
	"github.com/shipyardhq/shipyard/internal/config"
	"github.com/shipyardhq/shipyard/internal/memory"
	"github.com/shipyardhq/shipyard/internal/outcome"
	"github.com/shipyardhq/shipyard/internal/report"
	"github.com/shipyardhq/shipyard/internal/session"
	"github.com/shipyardhq/shipyard/internal/store"
	"github.com/shipyardhq/shipyard/internal/weekly"
)

// Pipeline wires the pipeline stages over one store.
type Pipeline struct {
	store   *store.Store
	cfg     *config.Config
	tracker *analytics.Tracker
	memory  *memory.Engine

	Now func() time.Time
}

// New creates a pipeline over the given store and config.
func New(s *store.Store, cfg *config.Config) *Pipeline {
	return &Pipeline{
		store:   s,
		cfg:     cfg,
		tracker: analytics.NewTracker(s, cfg.Analytics),
		memory:  memory.NewEngine(s, cfg.Memory),
		Now:     time.Now,
	}
}

// Tracker exposes the telemetry tracker shared by the pipeline.
func (p *Pipeline) Tracker() *analytics.Tracker {
	return p.tracker
}

// Memory exposes the memory engine shared by the pipeline.
func (p *Pipeline) Memory() *memory.Engine {
	return p.memory
}

// SaveSessionInput describes one closed conversation.
type SaveSessionInput struct {
	Coach     session.Coach
	StartedAt time.Time
	Messages  session.Transcript

	// OutcomeCandidate and ReportCandidate are the untrusted extraction
	// results; nil means no candidate was supplied.
	OutcomeCandidate session.Outcome
	ReportCandidate  *report.Candidate
}

// SaveSession runs the full commit for one closed conversation. An
// ineligible transcript returns (nil, nil) with no side effects. The caller
// is responsible for invoking this at most once per conversation.
func (p *Pipeline) SaveSession(input SaveSessionInput) (*session.OutcomeCard, error) {
	if !input.Messages.Eligible() {
		return nil, nil
	}

	now := p.Now()
	conversational := input.Messages.Conversational()
	latestUser := input.Messages.Latest(session.RoleUser)

	sessionID := session.NewID("session")
	outcomeCard := session.OutcomeCard{
		ID:              session.NewID("outcome"),
		Coach:           input.Coach,
		CreatedAt:       now,
		SourceSessionID: sessionID,
		Data:            outcome.Derive(input.Coach, input.Messages, input.OutcomeCandidate),
	}

	historyEntry := session.HistoryEntry{
		ID:        sessionID,
		Coach:     input.Coach,
		StartedAt: input.StartedAt,
		EndedAt:   now,
		OutcomeID: outcomeCard.ID,
		Messages:  snapshot(conversational),
	}

	fallback := report.BuildFallback(outcomeCard, latestUser)
	gate := report.Gate{Policy: p.cfg.ReportGate}
	draft, qualityStatus := gate.Select(input.ReportCandidate, fallback)
	reportCard := report.NewCard(session.NewID("report"), outcomeCard, draft, fallback, qualityStatus)

	nextOutcomes := append([]session.OutcomeCard{outcomeCard}, p.OutcomeCards()...)
	nextHistory := append([]session.HistoryEntry{historyEntry}, p.SessionHistory()...)
	nextReports := append([]session.ReportCard{reportCard}, p.SessionReports()...)

	outcomesJSON, err := store.EncodeList(nextOutcomes)
	if err != nil {
		return nil, err
	}
	historyJSON, err := store.EncodeList(nextHistory)
	if err != nil {
		return nil, err
	}
	reportsJSON, err := store.EncodeList(nextReports)
	if err != nil {
		return nil, err
	}
	if err := p.store.SetMany(map[string]string{
		store.KeyOutcomes:       outcomesJSON,
		store.KeySessionHistory: historyJSON,
		store.KeySessionReports: reportsJSON,
	}); err != nil {
		return nil, err
	}

	p.maybeCreateWeeklySummary(now, nextOutcomes)

	if err := p.memory.SyncFromOutcome(outcomeCard, nextOutcomes); err != nil {
		log.Printf("Memory sync failed: %v", err)
	}

	p.tracker.Track(analytics.EventSessionSaved, analytics.Payload{
		"coach":                 string(input.Coach),
		"outcome_kind":          string(outcomeCard.Data.Kind()),
		"used_outcome_override": input.OutcomeCandidate != nil,
	})
	p.tracker.Track(analytics.EventSessionReportSaved, analytics.Payload{
		"coach":                 string(input.Coach),
		"outcome_kind":          string(outcomeCard.Data.Kind()),
		"report_id":             reportCard.ID,
		"report_source":         string(reportCard.Source),
		"report_confidence":     reportCard.Confidence,
		"report_quality_status": string(reportCard.QualityStatus),
	})

	return &outcomeCard, nil
}

func snapshot(messages session.Transcript) []session.Message {
	out := make([]session.Message, len(messages))
	for i, m := range messages {
		out[i] = session.Message{Role: m.Role, Content: m.Content}
	}
	return out
}

func (p *Pipeline) maybeCreateWeeklySummary(now time.Time, outcomes []session.OutcomeCard) {
	summarizer := weekly.Summarizer{Policy: p.cfg.Weekly}
	existing := p.WeeklySummaries()
	card := summarizer.MaybeSummarize(now, outcomes, existing)
	if card == nil {
		return
	}
	next := append([]session.WeeklySummaryCard{*card}, existing...)
	if err := store.WriteList(p.store, store.KeyWeeklySummaries, next); err != nil {
		log.Printf("Weekly summary write failed: %v", err)
	}
}

// OutcomeCards returns all outcome cards, newest first.
func (p *Pipeline) OutcomeCards() []session.OutcomeCard {
	cards := store.ReadList[session.OutcomeCard](p.store, store.KeyOutcomes)
	sort.SliceStable(cards, func(i, j int) bool {
		return cards[i].CreatedAt.After(cards[j].CreatedAt)
	})
	return cards
}

// SessionHistory returns all history entries, most recently ended first.
func (p *Pipeline) SessionHistory() []session.HistoryEntry {
	entries := store.ReadList[session.HistoryEntry](p.store, store.KeySessionHistory)
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].EndedAt.After(entries[j].EndedAt)
	})
	return entries
}

// SessionReports returns all report cards, newest first. Records persisted
// before the quality gate existed get their status back-filled from the
// source field.
func (p *Pipeline) SessionReports() []session.ReportCard {
	reports := store.ReadList[session.ReportCard](p.store, store.KeySessionReports)
	for i := range reports {
		if reports[i].QualityStatus == "" {
			if reports[i].Source == session.ReportSourceAI {
				reports[i].QualityStatus = session.ReportAcceptedAI
			} else {
				reports[i].QualityStatus = session.ReportFallbackOnly
			}
		}
	}
	sort.SliceStable(reports, func(i, j int) bool {
		return reports[i].CreatedAt.After(reports[j].CreatedAt)
	})
	return reports
}

// WeeklySummaries returns all weekly digests, newest first.
func (p *Pipeline) WeeklySummaries() []session.WeeklySummaryCard {
	summaries := store.ReadList[session.WeeklySummaryCard](p.store, store.KeyWeeklySummaries)
	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].CreatedAt.After(summaries[j].CreatedAt)
	})
	return summaries
}

// TimelineItems merges non-archived outcomes, weekly digests, and reports
// into one newest-first view.
func (p *Pipeline) TimelineItems() []session.TimelineItem {
	var items []session.TimelineItem

	for _, card := range p.OutcomeCards() {
		if card.ArchivedAt != nil {
			continue
		}
		card := card
		items = append(items, session.TimelineItem{
			ID:        "outcome-" + card.ID,
			Type:      session.TimelineOutcome,
			CreatedAt: card.CreatedAt,
			Outcome:   &card,
		})
	}
	for _, summary := range p.WeeklySummaries() {
		summary := summary
		items = append(items, session.TimelineItem{
			ID:        "weekly-" + summary.ID,
			Type:      session.TimelineWeeklySummary,
			CreatedAt: summary.CreatedAt,
			Summary:   &summary,
		})
	}
	for _, rep := range p.SessionReports() {
		rep := rep
		items = append(items, session.TimelineItem{
			ID:        "report-" + rep.ID,
			Type:      session.TimelineSessionReport,
			CreatedAt: rep.CreatedAt,
			Report:    &rep,
		})
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	return items
}
