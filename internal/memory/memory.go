// Package memory maintains the staged, deduplicated long-term profile of the
// user. More inferential items are synthesized as the session count grows,
// and inferred patterns can be dismissed without deleting history.
package memory

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shipyardhq/shipyard/internal/config"
	"github.com/shipyardhq/shipyard/internal/session"
	"github.com/shipyardhq/shipyard/internal/store"
)

// ItemType classifies a memory item.
type ItemType string

const (
	TypeValue   ItemType = "value"
	TypeTheme   ItemType = "theme"
	TypePattern ItemType = "pattern"
)

// Source says whether the system inferred the item or the user added it.
type Source string

const (
	SourceSystem Source = "system"
	SourceUser   Source = "user"
)

// Item is one durable fact about the user.
type Item struct {
	ID        string    `json:"id"`
	Label     string    `json:"label"`
	Type      ItemType  `json:"type"`
	Source    Source    `json:"source"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Stage is the disclosure tier gating how much inferred detail the engine may
// synthesize.
type Stage int

const (
	StageLiteral    Stage = 1
	StageBehavioral Stage = 2
	StageTrajectory Stage = 3
)

// Engine owns the memory collection, the enabled flag, and the dismissed
// pattern suppression list.
type Engine struct {
	store  *store.Store
	policy config.MemoryPolicy

	Now func() time.Time
}

// NewEngine creates a memory engine backed by the given store.
func NewEngine(s *store.Store, policy config.MemoryPolicy) *Engine {
	return &Engine{store: s, policy: policy, Now: time.Now}
}

// Enabled reports whether memory synthesis is on. Defaults to true; read
// failures also default to true.
func (e *Engine) Enabled() bool {
	value, err := e.store.Get(store.KeyMemoryEnabled)
	if err != nil {
		return true
	}
	return value != "0"
}

// SetEnabled flips the user toggle.
func (e *Engine) SetEnabled(enabled bool) error {
	value := "1"
	if !enabled {
		value = "0"
	}
	return e.store.Set(store.KeyMemoryEnabled, value)
}

// Items returns all memory items, most recently updated first.
func (e *Engine) Items() []Item {
	items := store.ReadList[Item](e.store, store.KeyMemoryItems)
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].UpdatedAt.After(items[j].UpdatedAt)
	})
	return items
}

// ActiveItems returns Items minus any pattern whose normalized label is on
// the suppression list.
func (e *Engine) ActiveItems() []Item {
	dismissed := e.dismissedSet()
	var active []Item
	for _, item := range e.Items() {
		if item.Type == TypePattern && dismissed[normalizeForDismiss(item.Label)] {
			continue
		}
		active = append(active, item)
	}
	return active
}

// StageFor maps a cumulative outcome count to a disclosure stage.
func (e *Engine) StageFor(outcomeCount int) Stage {
	switch {
	case outcomeCount >= e.policy.StageThreeAt:
		return StageTrajectory
	case outcomeCount >= e.policy.StageTwoAt:
		return StageBehavioral
	default:
		return StageLiteral
	}
}

type candidate struct {
	label    string
	itemType ItemType
}

// SyncFromOutcome upserts the memories derived from a freshly committed
// outcome. allOutcomes is the full up-to-date outcome set, newest first, and
// determines the disclosure stage. A disabled engine is a no-op.
func (e *Engine) SyncFromOutcome(outcome session.OutcomeCard, allOutcomes []session.OutcomeCard) error {
	if !e.Enabled() {
		return nil
	}

	stage := e.StageFor(len(allOutcomes))
	now := e.Now()
	items := e.Items()
	for _, c := range e.candidates(outcome, allOutcomes, stage) {
		items = e.upsertSystem(items, c.label, c.itemType, now)
	}
	return store.WriteList(e.store, store.KeyMemoryItems, e.capped(items))
}

// candidates generates the stage-gated memory candidates for one outcome.
func (e *Engine) candidates(outcome session.OutcomeCard, allOutcomes []session.OutcomeCard, stage Stage) []candidate {
	var out []candidate

	switch data := outcome.Data.(type) {
	case session.FocusOutcome:
		out = append(out, candidate{"Current priority: " + data.Priority, TypeTheme})
		if stage >= StageBehavioral {
			out = append(out, candidate{"Action tendency: " + data.FirstStep, TypePattern})
		}
	case session.DecisionOutcome:
		out = append(out, candidate{"Decision direction: " + data.Decision, TypeTheme})
		if stage >= StageBehavioral {
			out = append(out, candidate{"Accepted tradeoff pattern: " + data.TradeoffAccepted, TypePattern})
		}
	case session.ReflectionOutcome:
		out = append(out, candidate{"Recurring insight: " + data.Insight, TypeTheme})
		if stage >= StageBehavioral {
			out = append(out, candidate{"Question carried forward: " + data.QuestionToCarry, TypePattern})
		}
	}

	if stage >= StageTrajectory {
		if c := e.trajectoryCandidate(outcome.Coach, allOutcomes); c != nil {
			out = append(out, *c)
		}
	}
	return out
}

// trajectoryCandidate derives a cross-session pattern from aggregate counts,
// only once the persona-specific volume threshold is met.
func (e *Engine) trajectoryCandidate(coach session.Coach, allOutcomes []session.OutcomeCard) *candidate {
	unresolvedFocus, decisions, reflections := 0, 0, 0
	for _, card := range allOutcomes {
		switch data := card.Data.(type) {
		case session.FocusOutcome:
			if !data.IsCompleted {
				unresolvedFocus++
			}
		case session.DecisionOutcome:
			decisions++
		case session.ReflectionOutcome:
			reflections++
		}
	}

	switch coach {
	case session.CoachFocus:
		if unresolvedFocus >= 3 {
			return &candidate{
				fmt.Sprintf("Open loops: %d priorities are still waiting on their first step", unresolvedFocus),
				TypePattern,
			}
		}
	case session.CoachDecision:
		if decisions >= 2 {
			return &candidate{
				fmt.Sprintf("Decision cadence: %d committed directions so far", decisions),
				TypePattern,
			}
		}
	case session.CoachReflection:
		if reflections >= 2 {
			return &candidate{
				fmt.Sprintf("Reflection rhythm: %d sessions spent looking beneath the surface", reflections),
				TypePattern,
			}
		}
	}
	return nil
}

// upsertSystem deduplicates system items by (type, normalized label): an
// existing match gets its UpdatedAt bumped, otherwise a new item is
// prepended.
func (e *Engine) upsertSystem(items []Item, label string, itemType ItemType, now time.Time) []Item {
	normalized := e.normalizeLabel(label)
	if normalized == "" {
		return items
	}

	for i, item := range items {
		if item.Source == SourceSystem && item.Type == itemType && item.Label == normalized {
			items[i].UpdatedAt = now
			return items
		}
	}

	return append([]Item{{
		ID:        session.NewID("memory"),
		Label:     normalized,
		Type:      itemType,
		Source:    SourceSystem,
		UpdatedAt: now,
	}}, items...)
}

// AddManual creates a user-sourced item. User items are never deduplicated.
// Returns nil if the label normalizes to empty.
func (e *Engine) AddManual(label string, itemType ItemType) (*Item, error) {
	normalized := e.normalizeLabel(label)
	if normalized == "" {
		return nil, nil
	}

	item := Item{
		ID:        session.NewID("memory"),
		Label:     normalized,
		Type:      itemType,
		Source:    SourceUser,
		UpdatedAt: e.Now(),
	}

	items := e.capped(append([]Item{item}, e.Items()...))
	if err := store.WriteList(e.store, store.KeyMemoryItems, items); err != nil {
		return nil, err
	}
	return &item, nil
}

// Update applies fn to the item with the given id.
func (e *Engine) Update(itemID string, fn func(Item) Item) error {
	items := e.Items()
	for i, item := range items {
		if item.ID == itemID {
			items[i] = fn(item)
		}
	}
	return store.WriteList(e.store, store.KeyMemoryItems, items)
}

// Delete removes the item with the given id.
func (e *Engine) Delete(itemID string) error {
	items := e.Items()
	next := items[:0]
	for _, item := range items {
		if item.ID != itemID {
			next = append(next, item)
		}
	}
	return store.WriteList(e.store, store.KeyMemoryItems, next)
}

// Dismiss soft-suppresses a pattern label. The item itself stays in the
// collection so it can be restored later.
func (e *Engine) Dismiss(label string) error {
	normalized := normalizeForDismiss(label)
	if normalized == "" {
		return nil
	}
	dismissed := store.ReadList[string](e.store, store.KeyDismissedPatterns)
	for _, existing := range dismissed {
		if existing == normalized {
			return nil
		}
	}
	return store.WriteList(e.store, store.KeyDismissedPatterns, append(dismissed, normalized))
}

// Restore removes a label from the suppression list.
func (e *Engine) Restore(label string) error {
	normalized := normalizeForDismiss(label)
	dismissed := store.ReadList[string](e.store, store.KeyDismissedPatterns)
	next := dismissed[:0]
	for _, existing := range dismissed {
		if existing != normalized {
			next = append(next, existing)
		}
	}
	return store.WriteList(e.store, store.KeyDismissedPatterns, next)
}

// Dismissed returns the suppression list.
func (e *Engine) Dismissed() []string {
	return store.ReadList[string](e.store, store.KeyDismissedPatterns)
}

func (e *Engine) dismissedSet() map[string]bool {
	set := make(map[string]bool)
	for _, label := range e.Dismissed() {
		set[label] = true
	}
	return set
}

// capped keeps only the most recently updated items within the cap.
func (e *Engine) capped(items []Item) []Item {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].UpdatedAt.After(items[j].UpdatedAt)
	})
	if len(items) > e.policy.ItemCap {
		items = items[:e.policy.ItemCap]
	}
	return items
}

// normalizeLabel trims, collapses whitespace, and caps the label length.
func (e *Engine) normalizeLabel(label string) string {
	normalized := strings.Join(strings.Fields(label), " ")
	runes := []rune(normalized)
	if len(runes) > e.policy.LabelCap {
		runes = runes[:e.policy.LabelCap]
	}
	return string(runes)
}

func normalizeForDismiss(label string) string {
	return strings.ToLower(strings.Join(strings.Fields(label), " "))
}
