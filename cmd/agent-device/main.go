// Command agent-device is the CLI client spec.md §6 describes: it
// parses one subcommand with kong, sends it to the daemon (auto-
// starting agent-deviced if none is reachable), and exits 0 on success,
// 1 on a daemon-reported error, or 2 on invalid CLI usage. Grounded on
// the teacher's cmd/xcw/main.go kong.Parse/kong.Vars wiring.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"github.com/agentdevice/agent-device/internal/cli"
	"github.com/agentdevice/agent-device/internal/config"
)

func main() {
	cfg, _, err := config.LoadWithMeta()
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to load config: %v\n", err)
		cfg = config.Default()
	}

	var c cli.CLI
	parser, err := kong.New(&c,
		kong.Name("agent-device"),
		kong.Description("Drive iOS and Android devices/simulators through a long-lived local daemon.\n\nSTART HERE: agent-device open <bundle-id-or-url> --platform ios\nAI agents: pass --json for structured output on every command."),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{Compact: true, Summary: true}),
		kong.Vars{"version": cli.Version},
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "internal error building CLI parser: %v\n", err)
		os.Exit(2)
	}

	ctx, err := parser.Parse(os.Args[1:])
	if err != nil {
		var parseErr *kong.ParseError
		if errors.As(err, &parseErr) && parseErr.Context != nil {
			_ = parseErr.Context.PrintUsage(false)
		}
		parser.Errorf("%s", err)
		os.Exit(2)
	}

	globals := cli.NewGlobals(&c, cfg)
	if err := ctx.Run(globals); err != nil {
		if _, ok := err.(*cli.CLIError); ok {
			os.Exit(1)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
}
