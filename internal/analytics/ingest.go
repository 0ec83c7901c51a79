package analytics

import "sort"

// Merge folds a batch of incoming events into the existing server store.
// Events are deduplicated by id — re-submitting an already ingested batch
// accepts nothing and leaves the store unchanged — and invalid events are
// dropped silently. The result keeps the `limit` most recent events, newest
// first. Returns the merged store and the count of newly accepted events.
func Merge(existing, incoming []Event, limit int) ([]Event, int) {
	seen := make(map[string]struct{}, len(existing))
	for _, event := range existing {
		seen[event.ID] = struct{}{}
	}

	merged := existing
	accepted := 0
	for _, event := range incoming {
		if !event.Valid() {
			continue
		}
		if _, dup := seen[event.ID]; dup {
			continue
		}
		merged = append(merged, event)
		seen[event.ID] = struct{}{}
		accepted++
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].createdTime().After(merged[j].createdTime())
	})
	if len(merged) > limit {
		merged = merged[:limit]
	}
	return merged, accepted
}
