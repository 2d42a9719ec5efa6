package cli

import (
	"fmt"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/agentdevice/agent-device/internal/output"
)

// DevicesCmd implements `devices`, grounded on the teacher's list.go
// table rendering (same tablewriter.WithBorders(tw.Off-everywhere)
// style), generalized from "one platform's simulators" to "every
// platform adapter the daemon has wired."
type DevicesCmd struct {
	Platform string `help:"Only list devices for this platform (ios or android)." enum:",ios,android"`
}

func (c *DevicesCmd) Run(globals *Globals) error {
	flags := map[string]interface{}{}
	if c.Platform != "" {
		flags["platform"] = c.Platform
	}
	if globals.JSON {
		return globals.run("devices", nil, flags)
	}

	resp, err := globals.send("devices", nil, flags)
	if err != nil {
		fmt.Fprintf(globals.Stderr, "Error (CONNECTION): %s\n", err)
		return &CLIError{Code: "CONNECTION", Message: err.Error()}
	}
	if !resp.OK {
		globals.render(resp)
		return &CLIError{Code: resp.Error.Code, Message: resp.Error.Message, Hint: resp.Error.Hint}
	}

	devices, _ := resp.Data["devices"].([]interface{})
	if len(devices) == 0 {
		fmt.Fprintln(globals.Stdout, output.Styles.Warning.Render("No devices found"))
		return nil
	}

	table := tablewriter.NewTable(globals.Stdout,
		tablewriter.WithHeader([]string{"NAME", "PLATFORM", "KIND", "STATE", "ID"}),
		tablewriter.WithBorders(tw.Border{Left: tw.Off, Right: tw.Off, Top: tw.Off, Bottom: tw.Off}),
		tablewriter.WithHeaderAlignment(tw.AlignLeft),
	)
	for _, raw := range devices {
		dev, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		state := "○ offline"
		if booted, _ := dev["booted"].(bool); booted {
			state = "● booted"
		}
		table.Append([]string{
			fmt.Sprint(dev["name"]),
			fmt.Sprint(dev["platform"]),
			fmt.Sprint(dev["kind"]),
			state,
			fmt.Sprint(dev["id"]),
		})
	}
	return table.Render()
}
