package cli

import "testing"

func TestDeviceSelectFlagsApply(t *testing.T) {
	f := deviceSelectFlags{Platform: "ios", Device: "iPhone 15", UDID: "abc-123"}
	m := map[string]interface{}{}
	f.apply(m)

	if m["platform"] != "ios" {
		t.Errorf("platform = %v, want ios", m["platform"])
	}
	if m["device"] != "iPhone 15" {
		t.Errorf("device = %v, want %q", m["device"], "iPhone 15")
	}
	if m["udid"] != "abc-123" {
		t.Errorf("udid = %v, want abc-123", m["udid"])
	}
	if _, ok := m["serial"]; ok {
		t.Errorf("serial should be absent when unset, got %v", m["serial"])
	}
}

func TestSnapshotFlagsApply(t *testing.T) {
	f := snapshotFlags{InteractiveOnly: true, Depth: 3, Scope: "@e1"}
	m := map[string]interface{}{}
	f.apply(m)

	if m["snapshotInteractiveOnly"] != true {
		t.Errorf("snapshotInteractiveOnly = %v, want true", m["snapshotInteractiveOnly"])
	}
	if m["snapshotDepth"] != 3 {
		t.Errorf("snapshotDepth = %v, want 3", m["snapshotDepth"])
	}
	if m["snapshotScope"] != "@e1" {
		t.Errorf("snapshotScope = %v, want @e1", m["snapshotScope"])
	}
	if _, ok := m["snapshotCompact"]; ok {
		t.Errorf("snapshotCompact should be absent when false")
	}
	if _, ok := m["snapshotRaw"]; ok {
		t.Errorf("snapshotRaw should be absent when false")
	}
}

func TestSnapshotFlagsApply_ZeroDepthOmitted(t *testing.T) {
	f := snapshotFlags{}
	m := map[string]interface{}{}
	f.apply(m)

	if _, ok := m["snapshotDepth"]; ok {
		t.Errorf("snapshotDepth=0 (unlimited) should not be sent as an explicit flag")
	}
}

func TestGestureSeriesFlagsApply(t *testing.T) {
	f := gestureSeriesFlags{Count: 5, IntervalMs: 100, DoubleTap: true, PauseMs: 50}
	m := map[string]interface{}{}
	f.apply(m)

	if m["count"] != 5 {
		t.Errorf("count = %v, want 5", m["count"])
	}
	if m["intervalMs"] != 100 {
		t.Errorf("intervalMs = %v, want 100", m["intervalMs"])
	}
	if m["doubleTap"] != true {
		t.Errorf("doubleTap = %v, want true", m["doubleTap"])
	}
	if m["pauseMs"] != 50 {
		t.Errorf("pauseMs = %v, want 50", m["pauseMs"])
	}
	if _, ok := m["holdMs"]; ok {
		t.Errorf("holdMs should be absent when zero")
	}
}

func TestRecordingFlagsApply(t *testing.T) {
	f := recordingFlags{NoRecord: true, SaveScript: "out.ad"}
	m := map[string]interface{}{}
	f.apply(m)

	if m["noRecord"] != true {
		t.Errorf("noRecord = %v, want true", m["noRecord"])
	}
	if m["saveScript"] != "out.ad" {
		t.Errorf("saveScript = %v, want out.ad", m["saveScript"])
	}
}

func TestRecordingFlagsApply_Empty(t *testing.T) {
	f := recordingFlags{}
	m := map[string]interface{}{}
	f.apply(m)

	if len(m) != 0 {
		t.Errorf("expected no flags set, got %v", m)
	}
}
