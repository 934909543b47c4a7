package monitor

import (
	"math"
	"testing"
	"time"

	"github.com/tracyhatemice/mailsentinel/internal/state"
)

func foundObs(ts, now time.Time) Observation {
	m := msg("mom@example.com", "checkin", ts)
	return Observation{Found: true, Timestamp: ts, AgeDays: ageDays(now, ts), Message: &m}
}

func TestReconcile_NoPriorFound(t *testing.T) {
	now := testNow
	ts := now.Add(-48 * time.Hour)

	out := Reconcile(foundObs(ts, now), nil, now)

	if !out.ReportedFound {
		t.Error("ReportedFound = false, want true")
	}
	if !out.ShouldPostProcess {
		t.Error("ShouldPostProcess = false, want true")
	}
	if !out.AdvanceWatermark {
		t.Error("AdvanceWatermark = false, want true")
	}
	if math.Abs(out.ReportedAgeDays-2.0) > 1e-9 {
		t.Errorf("ReportedAgeDays = %v, want 2.0", out.ReportedAgeDays)
	}
	if out.Message == nil {
		t.Error("live message missing from outcome")
	}
}

func TestReconcile_NoPriorNotFound(t *testing.T) {
	now := testNow
	out := Reconcile(BuildObservation(nil, now), nil, now)

	if out.ReportedFound {
		t.Error("ReportedFound = true, want false")
	}
	if out.ShouldPostProcess {
		t.Error("ShouldPostProcess = true, want false")
	}
	if out.AdvanceWatermark {
		t.Error("a not-found first observation must not create a watermark")
	}
	if out.ReportedAgeDays != SentinelAgeDays {
		t.Errorf("ReportedAgeDays = %v, want sentinel", out.ReportedAgeDays)
	}
}

func TestReconcile_LiveNewerWins(t *testing.T) {
	now := testNow
	prior := &state.TopicState{Topic: "liveness/mom", Timestamp: now.Add(-72 * time.Hour)}

	out := Reconcile(foundObs(now.Add(-time.Hour), now), prior, now)

	if !out.ShouldPostProcess {
		t.Error("ShouldPostProcess = false, want true")
	}
	if !out.AdvanceWatermark {
		t.Error("AdvanceWatermark = false, want true")
	}
	if math.Abs(out.ReportedAgeDays-1.0/24) > 1e-9 {
		t.Errorf("ReportedAgeDays = %v, want one hour", out.ReportedAgeDays)
	}
}

func TestReconcile_WatermarkWinsAfterDeletion(t *testing.T) {
	// Message confirmed two days ago, then deleted from the inbox: the
	// watermark keeps reporting, nothing is post-processed.
	now := testNow
	confirmed := now.Add(-48 * time.Hour)
	prior := &state.TopicState{Topic: "liveness/mom", Timestamp: confirmed}

	out := Reconcile(BuildObservation(nil, now), prior, now)

	if !out.ReportedFound {
		t.Error("ReportedFound = false, want true (a real email was confirmed once)")
	}
	if out.ShouldPostProcess {
		t.Error("ShouldPostProcess = true, want false (no live handle)")
	}
	if out.AdvanceWatermark {
		t.Error("AdvanceWatermark = true, want false")
	}
	if math.Abs(out.ReportedAgeDays-2.0) > 1e-9 {
		t.Errorf("ReportedAgeDays = %v, want 2.0", out.ReportedAgeDays)
	}
	if !prior.Timestamp.Equal(confirmed) {
		t.Error("watermark mutated in the watermark-wins branch")
	}
}

func TestReconcile_StaleObservationDoesNotRegress(t *testing.T) {
	now := testNow
	prior := &state.TopicState{Topic: "liveness/mom", Timestamp: now.Add(-24 * time.Hour)}

	out := Reconcile(foundObs(now.Add(-72*time.Hour), now), prior, now)

	if out.AdvanceWatermark {
		t.Error("an older live message must not advance the watermark")
	}
	if out.ShouldPostProcess {
		t.Error("ShouldPostProcess = true, want false")
	}
	if math.Abs(out.ReportedAgeDays-1.0) > 1e-9 {
		t.Errorf("ReportedAgeDays = %v, want 1.0 from the watermark", out.ReportedAgeDays)
	}
}

func TestReconcile_NotFoundNeverAdvancesAncientWatermark(t *testing.T) {
	// Watermark older than the sentinel window: the synthetic not-found
	// timestamp is newer, but it is no confirmation and must not win.
	now := testNow
	ancient := now.AddDate(-4, 0, 0)
	prior := &state.TopicState{Topic: "liveness/mom", Timestamp: ancient}

	out := Reconcile(BuildObservation(nil, now), prior, now)

	if out.AdvanceWatermark {
		t.Error("sentinel timestamp advanced the watermark")
	}
	if !prior.Timestamp.Equal(ancient) {
		t.Error("watermark mutated")
	}
	if out.ReportedAgeDays <= SentinelAgeDays {
		t.Errorf("ReportedAgeDays = %v, want the true age of the ancient watermark", out.ReportedAgeDays)
	}
}

func TestReconcile_Idempotent(t *testing.T) {
	now := testNow
	obs := foundObs(now.Add(-48*time.Hour), now)

	first := Reconcile(obs, nil, now)
	if !first.AdvanceWatermark {
		t.Fatal("first run must advance the watermark")
	}

	advanced := &state.TopicState{Topic: "liveness/mom", Timestamp: obs.Timestamp}
	second := Reconcile(obs, advanced, now)

	if second.AdvanceWatermark {
		t.Error("second run advanced the watermark again")
	}
	if second.ShouldPostProcess {
		t.Error("second run asked for post-processing again")
	}
	if math.Abs(second.ReportedAgeDays-first.ReportedAgeDays) > 1e-9 {
		t.Errorf("reported age changed between runs: %v then %v", first.ReportedAgeDays, second.ReportedAgeDays)
	}
}

func TestReconcile_ReportedTimestampNeverRegresses(t *testing.T) {
	// Arbitrary interleaving of found and not-found cycles: the reported
	// timestamp (now minus reported age) must be non-decreasing.
	start := testNow
	wm := &state.File{}
	topic := "liveness/mom"

	steps := []struct {
		offsetHours int // cycle time, hours after start
		msgAgeHours int // candidate age at that cycle; -1 = empty inbox
	}{
		{0, 48},
		{24, -1},
		{48, 12},
		{72, -1},
		{96, 200}, // much older message shows up again
		{120, 1},
	}

	var lastReported time.Time
	for i, s := range steps {
		now := start.Add(time.Duration(s.offsetHours) * time.Hour)

		var obs Observation
		if s.msgAgeHours < 0 {
			obs = BuildObservation(nil, now)
		} else {
			obs = foundObs(now.Add(-time.Duration(s.msgAgeHours)*time.Hour), now)
		}

		out := Reconcile(obs, wm.FindTopic(topic), now)
		if out.AdvanceWatermark {
			wm.Upsert(topic, obs.Timestamp)
		}
		if !out.ReportedFound {
			continue
		}

		reported := now.Add(-time.Duration(out.ReportedAgeDays * float64(24*time.Hour)))
		if !lastReported.IsZero() && reported.Before(lastReported.Add(-time.Second)) {
			t.Fatalf("step %d: reported timestamp regressed from %v to %v", i, lastReported, reported)
		}
		if reported.After(lastReported) {
			lastReported = reported
		}
	}
}
