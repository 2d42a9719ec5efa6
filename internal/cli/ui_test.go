package cli

import "testing"

func TestNodeFromMap(t *testing.T) {
	m := map[string]interface{}{
		"ref": "e3", "type": "Button", "label": "Sign In",
		"depth": float64(2), "enabled": true, "hittable": true,
		"rect": map[string]interface{}{"x": 10.0, "y": 20.0, "width": 100.0, "height": 44.0},
	}
	n := nodeFromMap(m)

	if n.Ref != "e3" || n.Type != "Button" || n.Label != "Sign In" {
		t.Fatalf("unexpected node: %+v", n)
	}
	if n.Depth != 2 {
		t.Errorf("Depth = %d, want 2", n.Depth)
	}
	if n.Rect == nil || n.Rect.Width != 100.0 {
		t.Errorf("Rect = %+v, want width 100", n.Rect)
	}
	if n.Enabled == nil || !*n.Enabled {
		t.Errorf("Enabled = %v, want true", n.Enabled)
	}
}

func TestNodesFromResponseData(t *testing.T) {
	data := map[string]interface{}{
		"backend": "xctest",
		"nodes": []interface{}{
			map[string]interface{}{"ref": "e0", "type": "Window"},
			map[string]interface{}{"ref": "e1", "type": "Button"},
		},
	}
	nodes, backend := nodesFromResponseData(data)
	if backend != "xctest" {
		t.Errorf("backend = %q, want xctest", backend)
	}
	if len(nodes) != 2 {
		t.Fatalf("len(nodes) = %d, want 2", len(nodes))
	}
}

func TestDeviceLabelForSession(t *testing.T) {
	data := map[string]interface{}{
		"sessions": []interface{}{
			map[string]interface{}{
				"name":   "default",
				"device": map[string]interface{}{"name": "iPhone 15 Pro"},
			},
		},
	}
	if got := deviceLabelForSession(data, "default"); got != "iPhone 15 Pro" {
		t.Errorf("deviceLabelForSession = %q, want iPhone 15 Pro", got)
	}
	if got := deviceLabelForSession(data, "missing"); got != "missing" {
		t.Errorf("deviceLabelForSession fallback = %q, want missing", got)
	}
}
