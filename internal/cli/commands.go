// commands.go defines the pass-through command structs: each wraps the
// flag groups a handler expects (see internal/cli/client.go) and a Run
// method that assembles positionals/flags and sends one request.
package cli

import "fmt"

// OpenCmd implements `open <target>`.
type OpenCmd struct {
	deviceSelectFlags
	recordingFlags
	Relaunch bool `help:"Relaunch/switch the app on an already-bound session's device."`
	Target   string `arg:"" optional:"" help:"App bundle id/name, or a URL, to open."`
}

func (c *OpenCmd) Run(globals *Globals) error {
	flags := map[string]interface{}{}
	c.deviceSelectFlags.apply(flags)
	c.recordingFlags.apply(flags)
	if c.Relaunch {
		flags["relaunch"] = true
	}
	var positionals []string
	if c.Target != "" {
		positionals = []string{c.Target}
	}
	return globals.run("open", positionals, flags)
}

// CloseCmd implements `close`.
type CloseCmd struct{}

func (c *CloseCmd) Run(globals *Globals) error {
	return globals.run("close", nil, nil)
}

// SnapshotCmd implements `snapshot`.
type SnapshotCmd struct {
	snapshotFlags
}

func (c *SnapshotCmd) Run(globals *Globals) error {
	flags := map[string]interface{}{}
	c.snapshotFlags.apply(flags)
	return globals.run("snapshot", nil, flags)
}

// DiffCmd implements `diff`.
type DiffCmd struct {
	snapshotFlags
}

func (c *DiffCmd) Run(globals *Globals) error {
	flags := map[string]interface{}{}
	c.snapshotFlags.apply(flags)
	return globals.run("diff", nil, flags)
}

// ClickCmd implements `click <target>`.
type ClickCmd struct {
	recordingFlags
	Target []string `arg:"" help:"A selector chain or @ref to tap."`
}

func (c *ClickCmd) Run(globals *Globals) error {
	flags := map[string]interface{}{}
	c.recordingFlags.apply(flags)
	return globals.run("click", c.Target, flags)
}

// PressCmd implements `press <target>`.
type PressCmd struct {
	recordingFlags
	HoldMs int      `name:"hold-ms" help:"Hold duration in milliseconds."`
	Target []string `arg:"" help:"A selector chain or @ref to press."`
}

func (c *PressCmd) Run(globals *Globals) error {
	flags := map[string]interface{}{}
	c.recordingFlags.apply(flags)
	if c.HoldMs > 0 {
		flags["holdMs"] = c.HoldMs
	}
	return globals.run("press", c.Target, flags)
}

// LongPressCmd implements `long-press <target>`.
type LongPressCmd struct {
	recordingFlags
	HoldMs int      `name:"hold-ms" help:"Hold duration in milliseconds."`
	Target []string `arg:"" help:"A selector chain or @ref to long-press."`
}

func (c *LongPressCmd) Run(globals *Globals) error {
	flags := map[string]interface{}{}
	c.recordingFlags.apply(flags)
	if c.HoldMs > 0 {
		flags["holdMs"] = c.HoldMs
	}
	return globals.run("long-press", c.Target, flags)
}

// FillCmd implements `fill <target> <value>`.
type FillCmd struct {
	recordingFlags
	TargetAndValue []string `arg:"" help:"A selector chain or @ref, followed by the text to fill."`
}

func (c *FillCmd) Run(globals *Globals) error {
	flags := map[string]interface{}{}
	c.recordingFlags.apply(flags)
	return globals.run("fill", c.TargetAndValue, flags)
}

// GetCmd implements `get <target> <field>`.
type GetCmd struct {
	TargetAndField []string `arg:"" help:"A selector chain or @ref, followed by the field to read (text|attrs)."`
}

func (c *GetCmd) Run(globals *Globals) error {
	return globals.run("get", c.TargetAndField, nil)
}

// IsCmd implements `is <target> <predicate>`.
type IsCmd struct {
	TargetAndPredicate []string `arg:"" help:"A selector chain or @ref, followed by a predicate (exists|visible|hidden|editable|selected|enabled|hittable)."`
}

func (c *IsCmd) Run(globals *Globals) error {
	return globals.run("is", c.TargetAndPredicate, nil)
}

// FindCmd implements `find <query> [action] [args...]`.
type FindCmd struct {
	recordingFlags
	Args []string `arg:"" help:"A query, optionally followed by an action (click|focus|fill <value>|get text|attrs|wait [timeoutMs]|exists) and its arguments."`
}

func (c *FindCmd) Run(globals *Globals) error {
	flags := map[string]interface{}{}
	c.recordingFlags.apply(flags)
	return globals.run("find", c.Args, flags)
}

// WaitCmd implements `wait <durationMs|selector|@ref|text>`.
type WaitCmd struct {
	Args []string `arg:"" help:"A duration in milliseconds, or a selector/@ref/text target to wait for."`
}

func (c *WaitCmd) Run(globals *Globals) error {
	return globals.run("wait", c.Args, nil)
}

// AlertCmd implements `alert [accept|dismiss]`.
type AlertCmd struct {
	recordingFlags
	Action string `arg:"" optional:"" help:"accept or dismiss; omit to just inspect the alert."`
}

func (c *AlertCmd) Run(globals *Globals) error {
	flags := map[string]interface{}{}
	c.recordingFlags.apply(flags)
	var positionals []string
	if c.Action != "" {
		positionals = []string{c.Action}
	}
	return globals.run("alert", positionals, flags)
}

// ScrollCmd implements `scroll <dx> <dy>`.
type ScrollCmd struct {
	recordingFlags
	DxDy []string `arg:"" help:"Scroll delta: dx dy."`
}

func (c *ScrollCmd) Run(globals *Globals) error {
	flags := map[string]interface{}{}
	c.recordingFlags.apply(flags)
	return globals.run("scroll", c.DxDy, flags)
}

// ScrollIntoViewCmd implements `scrollintoview <target>`.
type ScrollIntoViewCmd struct {
	recordingFlags
	Target []string `arg:"" help:"A selector chain or @ref to scroll until it resolves."`
}

func (c *ScrollIntoViewCmd) Run(globals *Globals) error {
	flags := map[string]interface{}{}
	c.recordingFlags.apply(flags)
	return globals.run("scrollintoview", c.Target, flags)
}

// ScreenshotCmd implements `screenshot [path]`.
type ScreenshotCmd struct {
	recordingFlags
	Out  string `help:"Output path for the PNG."`
	Path string `arg:"" optional:"" help:"Output path (alternative to --out)."`
}

func (c *ScreenshotCmd) Run(globals *Globals) error {
	flags := map[string]interface{}{}
	c.recordingFlags.apply(flags)
	if c.Out != "" {
		flags["out"] = c.Out
	}
	var positionals []string
	if c.Path != "" {
		positionals = []string{c.Path}
	}
	return globals.run("screenshot", positionals, flags)
}

// RecordCmd implements `record start|stop [--out path] [--mirror]`.
type RecordCmd struct {
	Out        string `help:"Output path for the recording (start only)."`
	Mirror     bool   `help:"Mirror the session's trace log to a tmux pane a human can attach to (start only)."`
	Subcommand string `arg:"" help:"start or stop."`
}

func (c *RecordCmd) Run(globals *Globals) error {
	flags := map[string]interface{}{}
	if c.Out != "" {
		flags["out"] = c.Out
	}
	if c.Mirror {
		flags["mirror"] = true
	}
	return globals.run("record", []string{c.Subcommand}, flags)
}

// TraceCmd implements `trace start|stop [--out path]`.
type TraceCmd struct {
	Out        string `help:"Output path for the trace log (start only)."`
	Subcommand string `arg:"" help:"start or stop."`
}

func (c *TraceCmd) Run(globals *Globals) error {
	flags := map[string]interface{}{}
	if c.Out != "" {
		flags["out"] = c.Out
	}
	return globals.run("trace", []string{c.Subcommand}, flags)
}

// ReplayCmd implements `replay <path> [--update]`.
type ReplayCmd struct {
	Update bool   `help:"Heal a stale selector against the current snapshot instead of failing the replay."`
	Path   string `arg:"" help:"Path to a recorded .ad script."`
}

func (c *ReplayCmd) Run(globals *Globals) error {
	flags := map[string]interface{}{}
	if c.Update {
		flags["replayUpdate"] = true
	}
	return globals.run("replay", []string{c.Path}, flags)
}

// BatchCmd implements `batch <file>`, reading a JSON object whose
// "steps" array holds step objects ({command, positionals, flags,
// session}) from path.
type BatchCmd struct {
	Path string `arg:"" help:"Path to a JSON file containing a 'steps' array, or '-' for stdin."`
}

func (c *BatchCmd) Run(globals *Globals) error {
	steps, err := loadBatchSteps(c.Path)
	if err != nil {
		fmt.Fprintf(globals.Stderr, "Error (INVALID_ARGS): %s\n", err)
		return &CLIError{Code: "INVALID_ARGS", Message: err.Error()}
	}
	return globals.run("batch", nil, map[string]interface{}{"steps": steps})
}

// AppStateCmd implements `appstate [bundleId]`.
type AppStateCmd struct {
	deviceSelectFlags
	BundleID string `help:"App bundle id; defaults to the session's bound app."`
	Target   string `arg:"" optional:"" help:"App bundle id (alternative to --bundle-id)."`
}

func (c *AppStateCmd) Run(globals *Globals) error {
	flags := map[string]interface{}{}
	c.deviceSelectFlags.apply(flags)
	if c.BundleID != "" {
		flags["bundleId"] = c.BundleID
	}
	var positionals []string
	if c.Target != "" {
		positionals = []string{c.Target}
	}
	return globals.run("appstate", positionals, flags)
}

// BootCmd implements `boot`.
type BootCmd struct {
	deviceSelectFlags
}

func (c *BootCmd) Run(globals *Globals) error {
	flags := map[string]interface{}{}
	c.deviceSelectFlags.apply(flags)
	return globals.run("boot", nil, flags)
}

// SettingsCmd implements `settings <key> <value>`.
type SettingsCmd struct {
	KeyValue []string `arg:"" help:"A setting key followed by its value."`
}

func (c *SettingsCmd) Run(globals *Globals) error {
	return globals.run("settings", c.KeyValue, nil)
}

// ReinstallCmd implements `reinstall <appPath>`.
type ReinstallCmd struct {
	Path string `arg:"" help:"Path to a local .app/.apk build artifact."`
}

func (c *ReinstallCmd) Run(globals *Globals) error {
	return globals.run("reinstall", []string{c.Path}, nil)
}

// PushCmd implements `push <localPath> <remotePath>`.
type PushCmd struct {
	Paths []string `arg:"" help:"A local path followed by the remote destination path."`
}

func (c *PushCmd) Run(globals *Globals) error {
	return globals.run("push", c.Paths, nil)
}

// HomeCmd implements `home`.
type HomeCmd struct{}

func (c *HomeCmd) Run(globals *Globals) error {
	return globals.run("home", nil, nil)
}

// BackCmd implements `back`.
type BackCmd struct{}

func (c *BackCmd) Run(globals *Globals) error {
	return globals.run("back", nil, nil)
}

// AppSwitcherCmd implements `app-switcher`.
type AppSwitcherCmd struct{}

func (c *AppSwitcherCmd) Run(globals *Globals) error {
	return globals.run("app-switcher", nil, nil)
}

// TypeCmd implements `type <text...>`.
type TypeCmd struct {
	Text []string `arg:"" help:"Literal text to type into whatever currently has focus."`
}

func (c *TypeCmd) Run(globals *Globals) error {
	return globals.run("type", c.Text, nil)
}

// FocusCmd implements `focus <target>`.
type FocusCmd struct {
	Target []string `arg:"" help:"A selector chain or @ref to focus."`
}

func (c *FocusCmd) Run(globals *Globals) error {
	return globals.run("focus", c.Target, nil)
}

// PinchCmd implements `pinch <target> <scale>`.
type PinchCmd struct {
	TargetAndScale []string `arg:"" help:"A selector chain or @ref, followed by a numeric scale factor."`
}

func (c *PinchCmd) Run(globals *Globals) error {
	return globals.run("pinch", c.TargetAndScale, nil)
}

