package tui

import (
	"strings"
	"testing"

	"github.com/agentdevice/agent-device/internal/domain"
)

func boolPtr(b bool) *bool { return &b }

func sampleNodes() []domain.Node {
	return []domain.Node{
		{Index: 0, Depth: 0, Ref: "e0", Type: "Window", Label: "Root"},
		{Index: 1, Depth: 1, Ref: "e1", Type: "Button", Label: "Sign In", Identifier: "signin-btn", Hittable: boolPtr(true)},
		{Index: 2, Depth: 1, Ref: "e2", Type: "TextField", Value: "user@example.com", Enabled: boolPtr(false)},
	}
}

func TestNodeMatches(t *testing.T) {
	n := sampleNodes()[1]
	if !nodeMatches(n, "sign") {
		t.Error("expected label match on \"sign\"")
	}
	if !nodeMatches(n, "signin-btn") {
		t.Error("expected identifier match")
	}
	if nodeMatches(n, "nonexistent") {
		t.Error("did not expect a match for an unrelated query")
	}
}

func TestFormatNodeLine(t *testing.T) {
	line := formatNodeLine(sampleNodes()[1])
	if !strings.Contains(line, "Button") {
		t.Errorf("formatNodeLine output %q missing type", line)
	}
	if !strings.Contains(line, "Sign In") {
		t.Errorf("formatNodeLine output %q missing label", line)
	}
}

func TestFormatNodeDetail(t *testing.T) {
	n := sampleNodes()[2]
	detail := formatNodeDetail(n)
	if !strings.Contains(detail, "enabled=false") {
		t.Errorf("formatNodeDetail output %q should report enabled=false", detail)
	}
	if !strings.Contains(detail, "rect=none") {
		t.Errorf("formatNodeDetail output %q should report rect=none when Rect is nil", detail)
	}
}

func TestApplyFilter(t *testing.T) {
	m := New("session1", "iPhone 15", "xctest", sampleNodes())
	if len(m.filtered) != 3 {
		t.Fatalf("expected all 3 nodes visible with no query, got %d", len(m.filtered))
	}

	m.searchQuery = "button"
	m.applyFilter()
	if len(m.filtered) != 1 {
		t.Fatalf("expected 1 node matching \"button\", got %d", len(m.filtered))
	}
	if m.nodes[m.filtered[0]].Type != "Button" {
		t.Errorf("filtered node = %+v, want the Button node", m.nodes[m.filtered[0]])
	}
}

func TestCopySelectorForSelected(t *testing.T) {
	m := New("session1", "iPhone 15", "xctest", sampleNodes())
	m.cursor = 1
	sel := m.copySelectorForSelected()
	if sel == "" {
		t.Error("expected a non-empty synthesized selector for the Sign In button")
	}
}
