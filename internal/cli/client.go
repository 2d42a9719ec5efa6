package cli

import (
	"context"
	"fmt"

	"github.com/agentdevice/agent-device/internal/client"
	"github.com/agentdevice/agent-device/internal/domain"
	"github.com/agentdevice/agent-device/internal/output"
)

// send dials the daemon (starting one if needed), issues one request for
// command, and returns its Response.
func (g *Globals) send(command string, positionals []string, flags map[string]interface{}) (domain.Response, error) {
	if flags == nil {
		flags = map[string]interface{}{}
	}
	if g.Verbose {
		flags["verbose"] = true
	}
	ctx := context.Background()
	c, err := client.Dial(ctx, g.Config)
	if err != nil {
		return domain.Response{}, fmt.Errorf("connect to agent-deviced: %w", err)
	}
	defer c.Close()

	return c.Send(domain.Request{
		Session:     g.Session,
		Command:     command,
		Positionals: positionals,
		Flags:       flags,
	})
}

// run sends command and renders the result through the configured writer,
// returning a *CLIError when the daemon reported failure (or the
// connection itself failed) so main can map it to exit code 1.
func (g *Globals) run(command string, positionals []string, flags map[string]interface{}) error {
	resp, err := g.send(command, positionals, flags)
	if err != nil {
		fmt.Fprintf(g.Stderr, "Error (CONNECTION): %s\n", err)
		return &CLIError{Code: "CONNECTION", Message: err.Error()}
	}
	g.render(resp)
	if !resp.OK {
		return &CLIError{Code: resp.Error.Code, Message: resp.Error.Message, Hint: resp.Error.Hint}
	}
	return nil
}

// render writes resp to Stdout in the mode Globals was built with.
func (g *Globals) render(resp domain.Response) {
	if g.JSON {
		_ = output.NewJSONWriter(g.Stdout).WriteResponse(resp)
		return
	}
	_ = output.NewTextWriter(g.Stdout).WriteResponse(resp)
}

// deviceSelectFlags are the device-targeting flags (spec.md §6's
// platform/device/udid/serial) shared by every command that can operate
// sessionless or cross-check against a bound session.
type deviceSelectFlags struct {
	Platform string `help:"Device platform selector (ios or android)." enum:",ios,android"`
	Device   string `help:"Device name selector."`
	UDID     string `help:"iOS device UDID selector."`
	Serial   string `help:"Android serial selector."`
}

func (f deviceSelectFlags) apply(m map[string]interface{}) {
	if f.Platform != "" {
		m["platform"] = f.Platform
	}
	if f.Device != "" {
		m["device"] = f.Device
	}
	if f.UDID != "" {
		m["udid"] = f.UDID
	}
	if f.Serial != "" {
		m["serial"] = f.Serial
	}
}

// snapshotFlags are the snapshot-shaping flags spec.md §6 documents.
type snapshotFlags struct {
	InteractiveOnly bool   `name:"interactive-only" help:"Only include hittable/interactive nodes."`
	Compact         bool   `help:"Omit rarely-useful node fields from the response."`
	Depth           int    `help:"Limit traversal depth (0 = unlimited)."`
	Scope           string `help:"Selector chain or @ref limiting the capture to a subtree."`
	Raw             bool   `help:"Skip ref attachment/group pruning; return the adapter's raw nodes."`
	Backend         string `help:"Force a specific backend (xctest or android)." enum:",xctest,android"`
}

func (f snapshotFlags) apply(m map[string]interface{}) {
	if f.InteractiveOnly {
		m["snapshotInteractiveOnly"] = true
	}
	if f.Compact {
		m["snapshotCompact"] = true
	}
	if f.Depth > 0 {
		m["snapshotDepth"] = f.Depth
	}
	if f.Scope != "" {
		m["snapshotScope"] = f.Scope
	}
	if f.Raw {
		m["snapshotRaw"] = true
	}
	if f.Backend != "" {
		m["snapshotBackend"] = f.Backend
	}
}

// gestureSeriesFlags are the repeated-gesture knobs spec.md §6 documents
// for click/press/fill series (count/interval/hold/jitter/double-tap).
type gestureSeriesFlags struct {
	Count      int    `help:"Repeat the gesture this many times."`
	IntervalMs int    `name:"interval-ms" help:"Delay between repeats, in milliseconds."`
	HoldMs     int    `name:"hold-ms" help:"Hold duration for a press, in milliseconds."`
	JitterPx   int    `name:"jitter-px" help:"Randomize each repeat's coordinates by up to this many pixels."`
	DoubleTap  bool   `name:"double-tap" help:"Perform a double-tap instead of a single tap."`
	PauseMs    int    `name:"pause-ms" help:"Pause between double-tap's two taps, in milliseconds."`
	Pattern    string `help:"Named gesture pattern override."`
}

func (f gestureSeriesFlags) apply(m map[string]interface{}) {
	if f.Count > 0 {
		m["count"] = f.Count
	}
	if f.IntervalMs > 0 {
		m["intervalMs"] = f.IntervalMs
	}
	if f.HoldMs > 0 {
		m["holdMs"] = f.HoldMs
	}
	if f.JitterPx > 0 {
		m["jitterPx"] = f.JitterPx
	}
	if f.DoubleTap {
		m["doubleTap"] = true
	}
	if f.PauseMs > 0 {
		m["pauseMs"] = f.PauseMs
	}
	if f.Pattern != "" {
		m["pattern"] = f.Pattern
	}
}

// recordingFlags control whether a command's effect is appended to the
// session's action history / `.ad` script.
type recordingFlags struct {
	NoRecord   bool   `name:"no-record" help:"Don't record this action into the session's history or script."`
	SaveScript string `name:"save-script" help:"Enable .ad script recording for this session (optionally a path)."`
}

func (f recordingFlags) apply(m map[string]interface{}) {
	if f.NoRecord {
		m["noRecord"] = true
	}
	if f.SaveScript != "" {
		m["saveScript"] = f.SaveScript
	}
}
