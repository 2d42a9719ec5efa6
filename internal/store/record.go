package store

import (
	"strings"
	"time"

	"github.com/agentdevice/agent-device/internal/domain"
)

// RecordAction appends action to sess.Actions when the session is
// recording (RecordSession) and the action does not carry
// Flags["noRecord"] == true, stripping every flag not in
// domain.RecordableFlags so transient request-only state never leaks
// into a saved script.
func RecordAction(sess *domain.Session, action domain.Action) {
	if !sess.RecordSession {
		return
	}
	if noRecord, _ := action.Flags["noRecord"].(bool); noRecord {
		return
	}

	stripped := make(map[string]interface{}, len(action.Flags))
	for k, v := range action.Flags {
		if domain.RecordableFlags[k] {
			stripped[k] = v
		}
	}
	action.Flags = stripped
	sess.Actions = append(sess.Actions, action)
}

// sanitizeName keeps only [A-Za-z0-9._-], replacing everything else with
// "_", for use in generated file paths.
func sanitizeName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

// DefaultTracePath builds the daemon's default trace output path for a
// session, combining a sanitized session name with an ISO-8601-ish UTC
// timestamp of one-second resolution, so traces of the same session
// started in different seconds get distinct paths.
func DefaultTracePath(baseDir, sessionName string, now time.Time) string {
	safeName := sanitizeName(sessionName)
	stamp := sanitizeName(now.UTC().Format(time.RFC3339))
	return baseDir + "/" + safeName + "-" + stamp + ".trace.log"
}

// DefaultScriptPath builds the daemon's default `.ad` recorded-script
// path for a session, using the same sanitized-name/timestamp
// convention as DefaultTracePath.
func DefaultScriptPath(baseDir, sessionName string, now time.Time) string {
	safeName := sanitizeName(sessionName)
	stamp := sanitizeName(now.UTC().Format(time.RFC3339))
	return baseDir + "/" + safeName + "-" + stamp + ".ad"
}

// DefaultRecordingPath builds the daemon's default screen-recording
// output path for a session, using the same sanitized-name/timestamp
// convention as DefaultTracePath.
func DefaultRecordingPath(baseDir, sessionName string, now time.Time) string {
	safeName := sanitizeName(sessionName)
	stamp := sanitizeName(now.UTC().Format(time.RFC3339))
	return baseDir + "/" + safeName + "-" + stamp + ".mp4"
}
