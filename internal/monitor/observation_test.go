package monitor

import (
	"math"
	"testing"
	"time"

	"github.com/tracyhatemice/mailsentinel/internal/mailbox"
)

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func TestBuildObservation_PicksNewest(t *testing.T) {
	msgs := []mailbox.Message{
		msg("a", "old", testNow.Add(-72*time.Hour)),
		msg("b", "newest", testNow.Add(-48*time.Hour)),
		msg("c", "older", testNow.Add(-96*time.Hour)),
	}

	obs := BuildObservation(msgs, testNow)
	if !obs.Found {
		t.Fatal("expected found observation")
	}
	if obs.Message.Subject != "newest" {
		t.Errorf("picked %q, want newest", obs.Message.Subject)
	}
	if math.Abs(obs.AgeDays-2.0) > 1e-9 {
		t.Errorf("AgeDays = %v, want 2.0", obs.AgeDays)
	}
	if !obs.Timestamp.Equal(testNow.Add(-48 * time.Hour)) {
		t.Errorf("Timestamp = %v", obs.Timestamp)
	}
}

func TestBuildObservation_TieBreaksToInputOrder(t *testing.T) {
	ts := testNow.Add(-24 * time.Hour)
	msgs := []mailbox.Message{
		msg("a", "first", ts),
		msg("b", "second", ts),
	}

	obs := BuildObservation(msgs, testNow)
	if obs.Message.Subject != "first" {
		t.Errorf("tie broke to %q, want the earliest-appearing candidate", obs.Message.Subject)
	}
}

func TestBuildObservation_DoesNotMutateInput(t *testing.T) {
	msgs := []mailbox.Message{
		msg("a", "old", testNow.Add(-72*time.Hour)),
		msg("b", "new", testNow.Add(-24*time.Hour)),
	}

	BuildObservation(msgs, testNow)
	if msgs[0].Subject != "old" || msgs[1].Subject != "new" {
		t.Error("input slice was reordered")
	}
}

func TestBuildObservation_ContinuousAge(t *testing.T) {
	msgs := []mailbox.Message{
		msg("a", "half day", testNow.Add(-12*time.Hour)),
	}

	obs := BuildObservation(msgs, testNow)
	if math.Abs(obs.AgeDays-0.5) > 1e-9 {
		t.Errorf("AgeDays = %v, want 0.5 (age must not be truncated)", obs.AgeDays)
	}
}

func TestBuildObservation_EmptyYieldsSentinel(t *testing.T) {
	obs := BuildObservation(nil, testNow)
	if obs.Found {
		t.Fatal("expected not-found observation")
	}
	if obs.AgeDays != SentinelAgeDays {
		t.Errorf("AgeDays = %v, want %d", obs.AgeDays, SentinelAgeDays)
	}
	if obs.Message != nil {
		t.Error("not-found observation must carry no message")
	}
	if !obs.Timestamp.Equal(testNow.AddDate(0, 0, -SentinelAgeDays)) {
		t.Errorf("Timestamp = %v, want now minus sentinel", obs.Timestamp)
	}
}
