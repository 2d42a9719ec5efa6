package domain

// Request is one newline-delimited JSON line sent from a CLI client to
// the daemon's loopback TCP socket.
type Request struct {
	Token       string                 `json:"token"`
	Session     string                 `json:"session,omitempty"`
	Command     string                 `json:"command"`
	Positionals []string               `json:"positionals,omitempty"`
	Flags       map[string]interface{} `json:"flags,omitempty"`
	Meta        map[string]interface{} `json:"meta,omitempty"`
}

// DefaultSessionName is used when a request doesn't name a session.
const DefaultSessionName = "default"

// Response is one newline-delimited JSON line sent back to the client.
type Response struct {
	OK    bool                   `json:"ok"`
	Data  map[string]interface{} `json:"data,omitempty"`
	Error *Error                 `json:"error,omitempty"`
}

// OKResponse builds a successful Response.
func OKResponse(data map[string]interface{}) Response {
	return Response{OK: true, Data: data}
}

// ErrResponse builds a failed Response.
func ErrResponse(err *Error) Response {
	return Response{OK: false, Error: err}
}

// SelectorExemptCommands are exempt from the session-selector cross-check
// in spec.md §4.F because they don't operate against a bound device.
var SelectorExemptCommands = map[string]bool{
	"session_list": true,
	"devices":      true,
}

// KnownCommands is the allow-list of commands the dispatcher will route;
// anything else is rejected with INVALID_ARGS at parse time (per
// SPEC_FULL.md's "Dynamic JSON payloads over TCP" design note).
var KnownCommands = map[string]bool{
	"open": true, "close": true, "snapshot": true, "diff": true,
	"click": true, "press": true, "fill": true, "get": true, "is": true,
	"find": true, "wait": true, "alert": true, "scroll": true,
	"scrollintoview": true, "screenshot": true, "record": true, "trace": true,
	"replay": true, "batch": true, "session_list": true, "devices": true,
	"apps": true, "appstate": true, "boot": true, "settings": true,
	"reinstall": true, "push": true, "home": true, "back": true,
	"app-switcher": true, "type": true, "focus": true, "pinch": true,
	"long-press": true,
}
