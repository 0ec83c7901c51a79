package progress

import (
	"fmt"

	"github.com/shipyardhq/shipyard/internal/analytics"
	"github.com/shipyardhq/shipyard/internal/session"
	"github.com/shipyardhq/shipyard/internal/store"
)

// UpdateOutcome replaces the data of one outcome card. Crossing into a
// completed focus emits its own event on top of the update event.
func (p *Pipeline) UpdateOutcome(outcomeID string, data session.Outcome) (*session.OutcomeCard, error) {
	cards := p.OutcomeCards()
	idx := -1
	for i := range cards {
		if cards[i].ID == outcomeID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return nil, fmt.Errorf("outcome %q not found", outcomeID)
	}

	prev := cards[idx].Data
	cards[idx].Data = data
	if err := store.WriteList(p.store, store.KeyOutcomes, cards); err != nil {
		return nil, err
	}

	p.tracker.Track(analytics.EventOutcomeUpdated, analytics.Payload{
		"outcome_id":   outcomeID,
		"outcome_kind": string(data.Kind()),
	})
	if focusJustCompleted(prev, data) {
		p.tracker.Track(analytics.EventOutcomeFocusCompleted, analytics.Payload{
			"outcome_id": outcomeID,
		})
	}

	card := cards[idx]
	return &card, nil
}

func focusJustCompleted(prev, next session.Outcome) bool {
	nextFocus, ok := next.(session.FocusOutcome)
	if !ok || !nextFocus.IsCompleted {
		return false
	}
	prevFocus, ok := prev.(session.FocusOutcome)
	return !ok || !prevFocus.IsCompleted
}

// ArchiveOutcome stamps the card so the timeline hides it. Archiving an
// already archived card is a no-op.
func (p *Pipeline) ArchiveOutcome(outcomeID string) error {
	cards := p.OutcomeCards()
	for i := range cards {
		if cards[i].ID != outcomeID {
			continue
		}
		if cards[i].ArchivedAt != nil {
			return nil
		}
		now := p.Now()
		cards[i].ArchivedAt = &now
		if err := store.WriteList(p.store, store.KeyOutcomes, cards); err != nil {
			return err
		}
		p.tracker.Track(analytics.EventOutcomeArchived, analytics.Payload{
			"outcome_id":   outcomeID,
			"outcome_kind": string(cards[i].Data.Kind()),
		})
		return nil
	}
	return fmt.Errorf("outcome %q not found", outcomeID)
}

// DeleteOutcome removes the card entirely.
func (p *Pipeline) DeleteOutcome(outcomeID string) error {
	cards := p.OutcomeCards()
	kept := make([]session.OutcomeCard, 0, len(cards))
	var deleted *session.OutcomeCard
	for i := range cards {
		if cards[i].ID == outcomeID {
			deleted = &cards[i]
			continue
		}
		kept = append(kept, cards[i])
	}
	if deleted == nil {
		return fmt.Errorf("outcome %q not found", outcomeID)
	}
	if err := store.WriteList(p.store, store.KeyOutcomes, kept); err != nil {
		return err
	}
	p.tracker.Track(analytics.EventOutcomeDeleted, analytics.Payload{
		"outcome_id":   outcomeID,
		"outcome_kind": string(deleted.Data.Kind()),
	})
	return nil
}

// SetReportFeedback records the thumbs verdict on one report. Repeating the
// same verdict is a no-op; switching verdicts overwrites and re-emits.
func (p *Pipeline) SetReportFeedback(reportID string, feedback session.ReportFeedback) error {
	reports := p.SessionReports()
	for i := range reports {
		if reports[i].ID != reportID {
			continue
		}
		if reports[i].UsefulnessFeedback == feedback {
			return nil
		}
		reports[i].UsefulnessFeedback = feedback
		if err := store.WriteList(p.store, store.KeySessionReports, reports); err != nil {
			return err
		}
		p.tracker.Track(analytics.EventSessionReportFeedback, analytics.Payload{
			"report_id":      reportID,
			"feedback":       string(feedback),
			"coach":          string(reports[i].Coach),
			"quality_status": string(reports[i].QualityStatus),
		})
		return nil
	}
	return fmt.Errorf("report %q not found", reportID)
}
