package logic

import (
	"testing"
	"time"
)

var t0 = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

// setupBaselinedDetector returns a detector baselined in the given state.
func setupBaselinedDetector(t *testing.T, pressed bool) *Detector {
	t.Helper()
	d := NewDetector(50*time.Millisecond, t0)
	d.Process(Input{Pressed: pressed, Time: t0})
	d.Process(Input{Pressed: pressed, Time: t0.Add(50 * time.Millisecond)})
	if !d.IsBaselined() {
		t.Fatal("setup: detector not baselined")
	}
	return d
}

func TestNewDetector(t *testing.T) {
	d := NewDetector(50*time.Millisecond, t0)
	if d == nil {
		t.Fatal("NewDetector returned nil")
	}
	if d.debounceDuration != 50*time.Millisecond {
		t.Errorf("expected debounce duration 50ms, got %v", d.debounceDuration)
	}
	if d.IsBaselined() {
		t.Error("new detector should not be baselined")
	}
	if !d.lastHeartbeat.Equal(t0) {
		t.Errorf("expected lastHeartbeat %v, got %v", t0, d.lastHeartbeat)
	}
}

func TestBaselineEstablishment(t *testing.T) {
	d := NewDetector(50*time.Millisecond, t0)

	if events := d.Process(Input{Pressed: false, Time: t0}); len(events) != 0 {
		t.Errorf("expected no events during baseline, got %d", len(events))
	}
	if d.IsBaselined() {
		t.Error("should not be baselined after first sample")
	}

	d.Process(Input{Pressed: false, Time: t0.Add(40 * time.Millisecond)})
	if d.IsBaselined() {
		t.Error("should not be baselined before debounce period")
	}

	if events := d.Process(Input{Pressed: false, Time: t0.Add(50 * time.Millisecond)}); len(events) != 0 {
		t.Errorf("expected no events at baseline establishment, got %d", len(events))
	}
	if !d.IsBaselined() {
		t.Error("should be baselined after debounce period")
	}
	if d.CurrentState() != StateReleased {
		t.Errorf("expected RELEASED, got %s", d.CurrentState())
	}
}

func TestHeldAtStartupDoesNotPress(t *testing.T) {
	d := NewDetector(50*time.Millisecond, t0)

	for i := 0; i < 10; i++ {
		events := d.Process(Input{Pressed: true, Time: t0.Add(time.Duration(i) * 20 * time.Millisecond)})
		if len(events) != 0 {
			t.Fatalf("sample %d: held button must not press, got %v", i, events)
		}
	}
	if d.CurrentState() != StatePressed {
		t.Errorf("expected PRESSED baseline, got %s", d.CurrentState())
	}
}

func TestBaselineResetOnChange(t *testing.T) {
	d := NewDetector(50*time.Millisecond, t0)

	d.Process(Input{Pressed: true, Time: t0})
	d.Process(Input{Pressed: false, Time: t0.Add(20 * time.Millisecond)})
	d.Process(Input{Pressed: false, Time: t0.Add(50 * time.Millisecond)})
	if d.IsBaselined() {
		t.Error("baseline timer should restart on change")
	}

	d.Process(Input{Pressed: false, Time: t0.Add(70 * time.Millisecond)})
	if !d.IsBaselined() {
		t.Error("should be baselined 50ms after the change")
	}
}

func TestPress(t *testing.T) {
	d := setupBaselinedDetector(t, false)
	now := t0.Add(time.Second)

	if events := d.Process(Input{Pressed: true, Time: now}); len(events) != 0 {
		t.Errorf("expected no events before debounce, got %d", len(events))
	}
	if events := d.Process(Input{Pressed: true, Time: now.Add(30 * time.Millisecond)}); len(events) != 0 {
		t.Errorf("expected no events before debounce, got %d", len(events))
	}

	events := d.Process(Input{Pressed: true, Time: now.Add(50 * time.Millisecond)})
	if len(events) != 1 {
		t.Fatalf("expected 1 event after debounce, got %d", len(events))
	}
	e := events[0]
	if e.Type != EventPress {
		t.Errorf("expected PRESS, got %s", e.Type)
	}
	if e.State != StatePressed {
		t.Errorf("expected PRESSED, got %s", e.State)
	}
	if !e.Timestamp.Equal(now.Add(50 * time.Millisecond)) {
		t.Errorf("unexpected timestamp %v", e.Timestamp)
	}
}

func TestPressAndRelease(t *testing.T) {
	d := setupBaselinedDetector(t, false)
	now := t0.Add(time.Second)

	var all []Event
	samples := []bool{true, true, true, true, false, false, false, false}
	for i, p := range samples {
		all = append(all, d.Process(Input{Pressed: p, Time: now.Add(time.Duration(i) * 20 * time.Millisecond)})...)
	}

	if len(all) != 2 {
		t.Fatalf("expected 2 events, got %d", len(all))
	}
	if all[0].Type != EventPress || all[1].Type != EventRelease {
		t.Errorf("expected PRESS then RELEASE, got %s then %s", all[0].Type, all[1].Type)
	}

	counts := d.EventCountsSnapshot()
	if counts.Presses != 1 || counts.Releases != 1 {
		t.Errorf("unexpected counts %+v", counts)
	}
}

func TestBounceRejection(t *testing.T) {
	d := setupBaselinedDetector(t, false)
	now := t0.Add(time.Second)

	samples := []bool{true, false, true, false, true, false}
	for i, p := range samples {
		events := d.Process(Input{Pressed: p, Time: now.Add(time.Duration(i) * 20 * time.Millisecond)})
		if len(events) != 0 {
			t.Fatalf("sample %d: bounce produced %v", i, events)
		}
	}
	if d.CurrentState() != StateReleased {
		t.Errorf("expected RELEASED, got %s", d.CurrentState())
	}
}

func TestCheckHeartbeat(t *testing.T) {
	d := NewDetector(50*time.Millisecond, t0)

	if hb := d.CheckHeartbeat(t0.Add(time.Minute), 0); hb != nil {
		t.Error("interval 0 should disable heartbeat")
	}
	if hb := d.CheckHeartbeat(t0.Add(14*time.Minute), 15*time.Minute); hb != nil {
		t.Error("heartbeat before interval")
	}

	hb := d.CheckHeartbeat(t0.Add(15*time.Minute), 15*time.Minute)
	if hb == nil {
		t.Fatal("expected heartbeat at interval")
	}
	if hb.Uptime != 15*time.Minute {
		t.Errorf("Uptime: got %v", hb.Uptime)
	}

	if hb := d.CheckHeartbeat(t0.Add(20*time.Minute), 15*time.Minute); hb != nil {
		t.Error("heartbeat interval should restart from last heartbeat")
	}
	if hb := d.CheckHeartbeat(t0.Add(30*time.Minute), 15*time.Minute); hb == nil {
		t.Error("expected second heartbeat")
	}
}

func TestHeartbeatIncludesCounts(t *testing.T) {
	d := setupBaselinedDetector(t, false)
	now := t0.Add(time.Second)
	d.Process(Input{Pressed: true, Time: now})
	d.Process(Input{Pressed: true, Time: now.Add(50 * time.Millisecond)})

	hb := d.CheckHeartbeat(t0.Add(time.Hour), time.Minute)
	if hb == nil {
		t.Fatal("expected heartbeat")
	}
	if hb.Counts.Presses != 1 {
		t.Errorf("Presses: got %d, want 1", hb.Counts.Presses)
	}
}
