package monitor

import (
	"sort"
	"time"

	"github.com/tracyhatemice/mailsentinel/internal/mailbox"
)

// SentinelAgeDays is the age reported when a scan finds no candidate at all.
// One constant everywhere, including the fallback label when the rating
// table is exhausted.
const SentinelAgeDays = 999

const hoursPerDay = 24

// Observation is the result of one live inbox scan for one account. It is
// rebuilt every cycle and never persisted; only the reconciled watermark is.
type Observation struct {
	Found     bool
	Timestamp time.Time
	AgeDays   float64
	Message   *mailbox.Message
}

// BuildObservation picks the newest candidate and computes its age relative
// to now. Ties on the timestamp resolve to the earliest-appearing candidate.
// An empty candidate list yields the sentinel observation.
func BuildObservation(candidates []mailbox.Message, now time.Time) Observation {
	if len(candidates) == 0 {
		return Observation{
			Found:     false,
			Timestamp: now.AddDate(0, 0, -SentinelAgeDays),
			AgeDays:   SentinelAgeDays,
		}
	}

	sorted := make([]mailbox.Message, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.After(sorted[j].Date)
	})

	newest := sorted[0]
	return Observation{
		Found:     true,
		Timestamp: newest.Date,
		AgeDays:   ageDays(now, newest.Date),
		Message:   &newest,
	}
}

// ageDays returns the continuous age of ts relative to now, in days.
func ageDays(now, ts time.Time) float64 {
	return now.Sub(ts).Hours() / hoursPerDay
}
