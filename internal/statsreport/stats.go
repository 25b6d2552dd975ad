// Package statsreport renders a completed peephole run's counters to the
// trace channel described in spec.md §6 ("per-pass totals ... and
// per-rule counts"). It is pure output plumbing, kept outside
// internal/peephole so the core pass never imports a serialization
// library.
package statsreport

import (
	"io"

	"github.com/segmentio/encoding/json"

	"github.com/tangzhangming/dexpeep/internal/peephole"
)

// Report is the JSON-serializable shape of one pass's statistics.
type Report struct {
	Removed    int64            `json:"instructions_removed"`
	Inserted   int64            `json:"instructions_inserted"`
	NetDelta   int64            `json:"net_delta"`
	RulesFired map[string]int64 `json:"rules_fired"`
}

// FromEngine snapshots an engine's stats into a Report. Rules that never
// fired are still present in RulesFired (with count 0) so a consumer can
// tell "ran and found nothing" apart from "never tracked".
func FromEngine(stats *peephole.Stats) Report {
	counts := stats.RuleCounts()
	removed := stats.Removed.Load()
	inserted := stats.Inserted.Load()
	return Report{
		Removed:    removed,
		Inserted:   inserted,
		NetDelta:   inserted - removed,
		RulesFired: counts,
	}
}

// WriteJSON encodes r to w as a single JSON object.
func WriteJSON(w io.Writer, r Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}
