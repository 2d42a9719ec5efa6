package domain

import "time"

// Session is a named binding of one device to one logical automation
// timeline. The name is a daemon-global key; a session exclusively owns
// its device for the session's lifetime.
type Session struct {
	Name            string
	Device          Device
	CreatedAt       time.Time
	AppBundleID     string
	AppName         string
	Snapshot        *Snapshot
	TracePath       string
	TraceFile       string // open handle identity, empty when no trace is active
	Recording       bool
	RecordingPath   string
	Actions         []Action
	RecordSession   bool
	SaveScriptPath  string
}

// Action is a single recorded command against a session. Actions are
// append-only; entries with Flags["noRecord"] == true are skipped by the
// session store before they ever reach Actions.
type Action struct {
	Timestamp   time.Time              `json:"ts"`
	Command     string                 `json:"command"`
	Positionals []string               `json:"positionals"`
	Flags       map[string]interface{} `json:"flags,omitempty"`
	Result      *ActionResult          `json:"result,omitempty"`
}

// ActionResult captures the subset of a handler's result that later
// replay/heal and script-emission logic needs to reconstruct intent.
type ActionResult struct {
	SelectorChain string   `json:"selectorChain,omitempty"`
	RefLabel      string   `json:"refLabel,omitempty"`
	CenterX       float64  `json:"x,omitempty"`
	CenterY       float64  `json:"y,omitempty"`
	Warnings      []string `json:"warnings,omitempty"`
}

// RecordableFlags is the fixed allow-list of flags the session store
// keeps when it appends an Action, so transient request-only state never
// leaks into a saved `.ad` script.
var RecordableFlags = map[string]bool{
	"platform":                true,
	"device":                  true,
	"udid":                    true,
	"serial":                  true,
	"out":                     true,
	"verbose":                 true,
	"snapshotInteractiveOnly": true,
	"snapshotCompact":         true,
	"snapshotDepth":           true,
	"snapshotScope":           true,
	"snapshotRaw":             true,
	"snapshotBackend":         true,
	"relaunch":                true,
	"saveScript":              true,
	"noRecord":                true,
	"count":                   true,
	"intervalMs":              true,
	"holdMs":                  true,
	"jitterPx":                true,
	"doubleTap":               true,
	"pauseMs":                 true,
	"pattern":                 true,
}
