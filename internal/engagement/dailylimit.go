package engagement

import (
	"encoding/json"
	"time"

	"github.com/shipyardhq/shipyard/internal/store"
)

// dailyLimitState is keyed by calendar day; any other day's state (or
// corrupt state) resets to a fresh counter.
type dailyLimitState struct {
	DayKey            string `json:"dayKey"`
	MessagesSentToday int    `json:"messagesSentToday"`
	PausedDayKey      string `json:"pausedDayKey,omitempty"`
}

// DailyLimiter caps the free messages sent per calendar day.
type DailyLimiter struct {
	store *store.Store
	cap   int

	Now func() time.Time
}

// NewDailyLimiter creates a limiter with the given daily cap.
func NewDailyLimiter(s *store.Store, cap int) *DailyLimiter {
	return &DailyLimiter{store: s, cap: cap, Now: time.Now}
}

// Cap returns the configured daily message cap.
func (d *DailyLimiter) Cap() int {
	return d.cap
}

func (d *DailyLimiter) dayKey() string {
	return d.Now().Format("2006-01-02")
}

func (d *DailyLimiter) readState() dailyLimitState {
	today := d.dayKey()
	fresh := dailyLimitState{DayKey: today}

	raw, err := d.store.Get(store.KeyDailyLimit)
	if err != nil || raw == "" {
		return fresh
	}

	var state dailyLimitState
	if err := json.Unmarshal([]byte(raw), &state); err != nil || state.DayKey == "" {
		return fresh
	}
	if state.DayKey != today {
		return fresh
	}
	return state
}

func (d *DailyLimiter) writeState(state dailyLimitState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return d.store.Set(store.KeyDailyLimit, string(data))
}

// Consume counts one sent message and reports whether it was still within
// the daily cap.
func (d *DailyLimiter) Consume() (withinLimit bool, err error) {
	state := d.readState()
	state.MessagesSentToday++
	if err := d.writeState(state); err != nil {
		return false, err
	}
	return state.MessagesSentToday <= d.cap, nil
}

// PauseForToday marks chat as paused until the day rolls over.
func (d *DailyLimiter) PauseForToday() error {
	state := d.readState()
	state.PausedDayKey = state.DayKey
	return d.writeState(state)
}

// Paused reports whether chat is paused for the current day.
func (d *DailyLimiter) Paused() bool {
	state := d.readState()
	return state.PausedDayKey != "" && state.PausedDayKey == state.DayKey
}
