package cli

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/agentdevice/agent-device/internal/domain"
	"github.com/agentdevice/agent-device/internal/tui"
)

// UICmd implements `ui`, grounded on the teacher's ui.go
// (tea.NewProgram(model, tea.WithAltScreen())), generalized from a live
// log stream to a single fetched snapshot handed to internal/tui.
type UICmd struct {
	snapshotFlags
}

func (c *UICmd) Run(globals *Globals) error {
	flags := map[string]interface{}{}
	c.snapshotFlags.apply(flags)

	resp, err := globals.send("snapshot", nil, flags)
	if err != nil {
		fmt.Fprintf(globals.Stderr, "Error (CONNECTION): %s\n", err)
		return &CLIError{Code: "CONNECTION", Message: err.Error()}
	}
	if !resp.OK {
		globals.render(resp)
		return &CLIError{Code: resp.Error.Code, Message: resp.Error.Message, Hint: resp.Error.Hint}
	}

	nodes, backend := nodesFromResponseData(resp.Data)

	deviceLabel := globals.Session
	if sessResp, serr := globals.send("session_list", nil, nil); serr == nil && sessResp.OK {
		deviceLabel = deviceLabelForSession(sessResp.Data, globals.Session)
	}

	model := tui.New(globals.Session, deviceLabel, backend, nodes)
	program := tea.NewProgram(model, tea.WithAltScreen())
	finalModel, runErr := program.Run()
	if runErr != nil {
		return &CLIError{Code: "UI_FAILED", Message: runErr.Error()}
	}
	if final, ok := finalModel.(tui.Model); ok {
		if sel := final.SelectedSelector(); sel != "" {
			fmt.Fprintln(globals.Stdout, sel)
		}
	}
	return nil
}

func nodesFromResponseData(data map[string]interface{}) ([]domain.Node, string) {
	backend, _ := data["backend"].(string)
	rawNodes, _ := data["nodes"].([]interface{})
	nodes := make([]domain.Node, 0, len(rawNodes))
	for _, raw := range rawNodes {
		m, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		nodes = append(nodes, nodeFromMap(m))
	}
	return nodes, backend
}

func nodeFromMap(m map[string]interface{}) domain.Node {
	n := domain.Node{
		Ref:        fmt.Sprint(m["ref"]),
		Type:       fmt.Sprint(m["type"]),
		Label:      fmt.Sprint(m["label"]),
		Value:      fmt.Sprint(m["value"]),
		Identifier: fmt.Sprint(m["identifier"]),
	}
	if depth, ok := m["depth"].(float64); ok {
		n.Depth = int(depth)
	}
	if rect, ok := m["rect"].(map[string]interface{}); ok {
		r := &domain.Rect{}
		if v, ok := rect["x"].(float64); ok {
			r.X = v
		}
		if v, ok := rect["y"].(float64); ok {
			r.Y = v
		}
		if v, ok := rect["width"].(float64); ok {
			r.Width = v
		}
		if v, ok := rect["height"].(float64); ok {
			r.Height = v
		}
		n.Rect = r
	}
	if v, ok := m["enabled"].(bool); ok {
		n.Enabled = &v
	}
	if v, ok := m["selected"].(bool); ok {
		n.Selected = &v
	}
	if v, ok := m["hittable"].(bool); ok {
		n.Hittable = &v
	}
	return n
}

func deviceLabelForSession(data map[string]interface{}, session string) string {
	sessions, _ := data["sessions"].([]interface{})
	for _, raw := range sessions {
		m, ok := raw.(map[string]interface{})
		if !ok || fmt.Sprint(m["name"]) != session {
			continue
		}
		if device, ok := m["device"].(map[string]interface{}); ok {
			return fmt.Sprint(device["name"])
		}
	}
	return session
}
