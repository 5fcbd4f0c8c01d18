package reward

import "time"

// Unlock is the result of one observer pass.
type Unlock struct {
	// NewIDs are the ids that just became true and are not yet
	// persisted, in rule-table order. All of them get appended to the
	// persisted set in the same pass.
	NewIDs []string
	// Celebrated is the single id surfaced to the user this pass, the
	// first of NewIDs. Empty when nothing new unlocked.
	Celebrated string
}

// Observe runs the evaluator against the counters and diffs the live
// set against the already-persisted reward ids. Persisted ids are
// never removed, even when their predicate is no longer true (catalog
// grew past a full_archive unlock, a time window closed).
func Observe(persisted []string, c Counters, now time.Time) Unlock {
	have := make(map[string]struct{}, len(persisted))
	for _, id := range persisted {
		have[id] = struct{}{}
	}

	var unlock Unlock
	for _, id := range Evaluate(c, now) {
		if _, ok := have[id]; ok {
			continue
		}
		unlock.NewIDs = append(unlock.NewIDs, id)
	}
	if len(unlock.NewIDs) > 0 {
		unlock.Celebrated = unlock.NewIDs[0]
	}
	return unlock
}
