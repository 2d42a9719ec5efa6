package cli

import (
	"fmt"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/agentdevice/agent-device/internal/output"
)

// AppsCmd implements `apps`, listing installed apps on the session's
// bound device.
type AppsCmd struct {
	Filter   string `help:"Only include apps whose bundle id contains this substring."`
	Metadata bool   `help:"Include version/build metadata (slower)."`
}

func (c *AppsCmd) Run(globals *Globals) error {
	flags := map[string]interface{}{}
	if c.Filter != "" {
		flags["filter"] = c.Filter
	}
	if c.Metadata {
		flags["metadata"] = true
	}
	if globals.JSON {
		return globals.run("apps", nil, flags)
	}

	resp, err := globals.send("apps", nil, flags)
	if err != nil {
		fmt.Fprintf(globals.Stderr, "Error (CONNECTION): %s\n", err)
		return &CLIError{Code: "CONNECTION", Message: err.Error()}
	}
	if !resp.OK {
		globals.render(resp)
		return &CLIError{Code: resp.Error.Code, Message: resp.Error.Message, Hint: resp.Error.Hint}
	}

	apps, _ := resp.Data["apps"].([]interface{})
	if len(apps) == 0 {
		fmt.Fprintln(globals.Stdout, output.Styles.Warning.Render("No apps found"))
		return nil
	}

	table := tablewriter.NewTable(globals.Stdout,
		tablewriter.WithHeader([]string{"BUNDLE ID", "NAME", "VERSION", "BUILD"}),
		tablewriter.WithBorders(tw.Border{Left: tw.Off, Right: tw.Off, Top: tw.Off, Bottom: tw.Off}),
		tablewriter.WithHeaderAlignment(tw.AlignLeft),
	)
	for _, raw := range apps {
		app, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		table.Append([]string{
			fmt.Sprint(app["bundleId"]),
			fmt.Sprint(app["name"]),
			fmt.Sprint(app["version"]),
			fmt.Sprint(app["build"]),
		})
	}
	return table.Render()
}
