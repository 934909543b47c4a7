package monitor

import (
	"time"

	"github.com/tracyhatemice/mailsentinel/internal/mailbox"
	"github.com/tracyhatemice/mailsentinel/internal/state"
)

// Outcome is the reconciled truth for one topic in one cycle.
type Outcome struct {
	// ReportedAgeDays is the age to publish, relative to now.
	ReportedAgeDays float64

	// ReportedFound is true when either the live scan or the winning
	// watermark reflects a real email.
	ReportedFound bool

	// ShouldPostProcess is true only when the live observation won with a
	// concrete message in hand. A watermark has no message to act on.
	ShouldPostProcess bool

	// AdvanceWatermark is true when the live timestamp must be persisted
	// as the new watermark for this topic.
	AdvanceWatermark bool

	// Message is the live message to post-process, when ShouldPostProcess.
	Message *mailbox.Message
}

// Reconcile merges a live observation with the persisted watermark for a
// topic. prior may be nil when the topic has never been confirmed. Reconcile
// is a pure decision function: it performs no I/O, mutates nothing, and is
// idempotent — re-running it against the already-advanced watermark lands in
// the watermark-wins branch with the same reported age.
//
// The live observation is authoritative only when it found a message that is
// strictly newer than the watermark (or there is no watermark yet). A scan
// that found nothing never advances the watermark: its sentinel timestamp is
// synthetic, not a confirmation. Otherwise the watermark wins, so a matching
// email that was seen once and later deleted or moved keeps reporting its
// last confirmed freshness instead of regressing to "no signal".
func Reconcile(obs Observation, prior *state.TopicState, now time.Time) Outcome {
	if obs.Found && (prior == nil || obs.Timestamp.After(prior.Timestamp)) {
		return Outcome{
			ReportedAgeDays:   obs.AgeDays,
			ReportedFound:     true,
			ShouldPostProcess: true,
			AdvanceWatermark:  true,
			Message:           obs.Message,
		}
	}

	if prior != nil {
		return Outcome{
			ReportedAgeDays: ageDays(now, prior.Timestamp),
			ReportedFound:   true,
		}
	}

	// First cycle for this topic and nothing in the inbox: report the
	// sentinel, remember nothing.
	return Outcome{
		ReportedAgeDays: obs.AgeDays,
		ReportedFound:   false,
	}
}
