package cli

import (
	"fmt"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/agentdevice/agent-device/internal/output"
)

// SessionsCmd implements `sessions`, listing the daemon's open sessions.
type SessionsCmd struct{}

func (c *SessionsCmd) Run(globals *Globals) error {
	if globals.JSON {
		return globals.run("session_list", nil, nil)
	}

	resp, err := globals.send("session_list", nil, nil)
	if err != nil {
		fmt.Fprintf(globals.Stderr, "Error (CONNECTION): %s\n", err)
		return &CLIError{Code: "CONNECTION", Message: err.Error()}
	}
	if !resp.OK {
		globals.render(resp)
		return &CLIError{Code: resp.Error.Code, Message: resp.Error.Message, Hint: resp.Error.Hint}
	}

	sessions, _ := resp.Data["sessions"].([]interface{})
	if len(sessions) == 0 {
		fmt.Fprintln(globals.Stdout, output.Styles.Warning.Render("No open sessions"))
		return nil
	}

	table := tablewriter.NewTable(globals.Stdout,
		tablewriter.WithHeader([]string{"SESSION", "DEVICE", "APP", "RECORDING", "CREATED"}),
		tablewriter.WithBorders(tw.Border{Left: tw.Off, Right: tw.Off, Top: tw.Off, Bottom: tw.Off}),
		tablewriter.WithHeaderAlignment(tw.AlignLeft),
	)
	for _, raw := range sessions {
		sess, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		device, _ := sess["device"].(map[string]interface{})
		recording := ""
		if rec, _ := sess["recording"].(bool); rec {
			recording = "●"
		}
		table.Append([]string{
			output.Styles.Session.Render(fmt.Sprint(sess["name"])),
			fmt.Sprint(device["name"]),
			fmt.Sprint(sess["appBundleId"]),
			recording,
			fmt.Sprint(sess["createdAt"]),
		})
	}
	return table.Render()
}
