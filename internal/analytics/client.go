package analytics

import (
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/shipyardhq/shipyard/internal/config"
	"github.com/shipyardhq/shipyard/internal/store"
)

// Tracker is the client-side event log: append-with-cap, newest first, with
// a per-install identifier attached to every payload. Tracking never fails
// the caller; errors are logged and swallowed.
type Tracker struct {
	store  *store.Store
	policy config.AnalyticsPolicy

	Now func() time.Time
}

// NewTracker creates a tracker backed by the given store.
func NewTracker(s *store.Store, policy config.AnalyticsPolicy) *Tracker {
	return &Tracker{store: s, policy: policy, Now: time.Now}
}

// InstallID returns the persisted install identifier, generating and storing
// one on first use.
func (t *Tracker) InstallID() string {
	existing, err := t.store.Get(store.KeyInstallID)
	if err == nil && existing != "" {
		return existing
	}

	next := "install-" + uuid.NewString()
	if err := t.store.Set(store.KeyInstallID, next); err != nil {
		log.Printf("Persisting install id failed: %v", err)
	}
	return next
}

// Track appends an event to the log, dropping the oldest entries beyond the
// cap.
func (t *Tracker) Track(name string, payload Payload) {
	if payload == nil {
		payload = Payload{}
	}
	payload["install_id"] = t.InstallID()

	event := Event{
		ID:        "event-" + uuid.NewString(),
		Name:      name,
		CreatedAt: t.Now().Format(time.RFC3339),
		Payload:   payload,
	}

	merged := append([]Event{event}, t.Events()...)
	if len(merged) > t.policy.ClientEventCap {
		merged = merged[:t.policy.ClientEventCap]
	}
	if err := store.WriteList(t.store, store.KeyAnalyticsEvents, merged); err != nil {
		log.Printf("Tracking %s failed: %v", name, err)
	}
}

// Events returns the full capped log, newest first, for batch sync.
func (t *Tracker) Events() []Event {
	return store.ReadList[Event](t.store, store.KeyAnalyticsEvents)
}
