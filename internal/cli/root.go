// Package cli is the agent-device CLI client: a thin kong-parsed command
// set that renders every subcommand into a domain.Request, sends it to
// the daemon over internal/client, and prints the Response. Grounded on
// the teacher's internal/cli/root.go (one CLI struct, `cmd:""`-tagged
// fields per subcommand, a shared Globals threaded into every
// `Run(globals *Globals) error` method) and Globals.Format's ndjson/text
// split, generalized here to a single --json toggle over a fixed
// Response shape instead of per-command NDJSON entry types.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/agentdevice/agent-device/internal/config"
)

// Version is set at build time via -ldflags; Commit defaults to "none"
// for local/dev builds.
var (
	Version = "0.1.0"
	Commit  = "none"
)

// CLI is the root command structure agent-device's main parses into.
type CLI struct {
	JSON    bool   `help:"Emit the structured {success,data|error} envelope instead of human text."`
	Session string `default:"default" help:"Session name to target."`
	Verbose bool   `short:"v" help:"Ask the daemon to emit diagnostics for this request."`

	Open           OpenCmd           `cmd:"" help:"Open an app (or URL) on a device, binding it to this session."`
	Close          CloseCmd          `cmd:"" help:"Close the session, stopping any recorder and flushing its script."`
	Snapshot       SnapshotCmd       `cmd:"" help:"Capture the current accessibility tree."`
	Diff           DiffCmd           `cmd:"" help:"Snapshot again and diff against the session's prior snapshot."`
	Click          ClickCmd          `cmd:"" help:"Tap a ref or selector."`
	Press          PressCmd          `cmd:"" help:"Press a ref or a selector; raw x y coordinates are not accepted."`
	LongPress      LongPressCmd      `cmd:"" name:"long-press" help:"Long-press a ref or selector."`
	Fill           FillCmd           `cmd:"" help:"Fill text into a ref or selector-resolved field."`
	Get            GetCmd            `cmd:"" help:"Read an attribute off a resolved node (text, attrs)."`
	Is             IsCmd             `cmd:"" help:"Evaluate a predicate (exists, visible, selected, ...) against a target."`
	Find           FindCmd           `cmd:"" help:"Semantic locator-driven find-and-act."`
	Wait           WaitCmd           `cmd:"" help:"Wait for a duration, selector, ref, or text to appear."`
	Alert          AlertCmd          `cmd:"" help:"Inspect or dismiss/accept a system alert."`
	Scroll         ScrollCmd         `cmd:"" help:"Scroll by (dx, dy)."`
	ScrollIntoView ScrollIntoViewCmd `cmd:"" name:"scrollintoview" help:"Scroll repeatedly until a target resolves."`
	Screenshot     ScreenshotCmd     `cmd:"" help:"Capture a screenshot to a file."`
	Record         RecordCmd         `cmd:"" help:"Start or stop a screen recording (record start|stop)."`
	Trace          TraceCmd          `cmd:"" help:"Start or stop an action trace log (trace start|stop)."`
	Replay         ReplayCmd         `cmd:"" help:"Replay a recorded .ad script, optionally healing stale selectors."`
	Batch          BatchCmd          `cmd:"" help:"Run a JSON array of requests as one atomic-ish batch."`
	Devices        DevicesCmd        `cmd:"" help:"List every device visible to every available platform adapter."`
	Sessions       SessionsCmd       `cmd:"" help:"List the daemon's currently open sessions."`
	Apps           AppsCmd           `cmd:"" help:"List installed apps on the session's device."`
	AppState       AppStateCmd       `cmd:"" name:"appstate" help:"Report an app's foreground/background state."`
	Boot           BootCmd           `cmd:"" help:"Boot a device without binding a session."`
	Settings       SettingsCmd       `cmd:"" help:"Set a device setting key/value."`
	Reinstall      ReinstallCmd      `cmd:"" help:"Reinstall an app from a local build artifact."`
	Push           PushCmd           `cmd:"" help:"Push a local file onto the device."`
	Home           HomeCmd           `cmd:"" help:"Press the home button/gesture."`
	Back           BackCmd           `cmd:"" help:"Press the back button/gesture (Android)."`
	AppSwitcher    AppSwitcherCmd    `cmd:"" name:"app-switcher" help:"Open the app switcher."`
	Type           TypeCmd           `cmd:"" help:"Type literal text into whatever currently has focus."`
	Focus          FocusCmd          `cmd:"" help:"Tap a target to give it input focus without typing."`
	Pinch          PinchCmd          `cmd:"" help:"Pinch-zoom at a target by a scale factor."`
	Doctor         DoctorCmd         `cmd:"" help:"Check for adb/xcrun/simctl/devicectl and report config provenance."`
	UI             UICmd             `cmd:"" help:"Open a read-only TUI browser over the session's snapshot tree."`
	Version        VersionCmd        `cmd:"" help:"Show version information."`
}

// Globals holds everything a command's Run method needs: where to print,
// which rendering mode to use, and the loaded configuration used to
// locate (or start) the daemon.
type Globals struct {
	Stdout  io.Writer
	Stderr  io.Writer
	JSON    bool
	Verbose bool
	Session string
	Config  *config.Config
}

// NewGlobals builds a Globals from parsed CLI flags and loaded config,
// forcing JSON mode when stdout isn't a terminal — the teacher's
// go-isatty guard against emitting decorated text to a pipe or an agent
// harness that expects structured output.
func NewGlobals(cli *CLI, cfg *config.Config) *Globals {
	jsonMode := cli.JSON
	if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		jsonMode = true
	}
	return &Globals{
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
		JSON:    jsonMode,
		Verbose: cli.Verbose,
		Session: cli.Session,
		Config:  cfg,
	}
}

// Debugf prints a debug line to stderr when Verbose is set.
func (g *Globals) Debugf(format string, args ...interface{}) {
	if g.Verbose {
		fmt.Fprintf(g.Stderr, "[debug] "+format+"\n", args...)
	}
}

// VersionCmd prints build version information.
type VersionCmd struct{}

// Run renders version/commit either as the --json envelope or plain text.
func (v *VersionCmd) Run(globals *Globals) error {
	if globals.JSON {
		fmt.Fprintf(globals.Stdout, `{"success":true,"data":{"version":%q,"commit":%q}}`+"\n", Version, Commit)
		return nil
	}
	fmt.Fprintf(globals.Stdout, "agent-device %s (%s)\n", Version, Commit)
	return nil
}
