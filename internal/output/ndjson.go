// Package output renders a daemon Response for a human operator or for
// an agent's `--json` consumption, grounded on the teacher's
// internal/output package: the same NDJSONWriter/TextWriter split, the
// same json.Encoder with HTML-escaping disabled, generalized from
// streaming log lines to rendering one request's result envelope.
package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/agentdevice/agent-device/internal/domain"
)

// Envelope is the CLI's `--json` output shape (spec.md §6): a success
// flag plus either the daemon's data or its structured error.
type Envelope struct {
	Success bool                   `json:"success"`
	Data    map[string]interface{} `json:"data,omitempty"`
	Error   *domain.Error          `json:"error,omitempty"`
}

// JSONWriter writes one Envelope as a single NDJSON line, matching the
// teacher's NewNDJSONWriter(w).SetEscapeHTML(false) convention so `&`,
// `<` and `>` in labels and selector text are written as-is rather than
// as Unicode escape sequences.
type JSONWriter struct {
	encoder *json.Encoder
}

// NewJSONWriter builds a JSONWriter over w.
func NewJSONWriter(w io.Writer) *JSONWriter {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &JSONWriter{encoder: enc}
}

// WriteResponse renders resp as one Envelope line.
func (j *JSONWriter) WriteResponse(resp domain.Response) error {
	return j.encoder.Encode(Envelope{Success: resp.OK, Data: resp.Data, Error: resp.Error})
}

// TextWriter renders a Response for a human terminal, using Styles for
// color where the writer is attached to one (the CLI decides that by
// which Styles variant it installs; see internal/cli/root.go).
type TextWriter struct {
	w io.Writer
}

// NewTextWriter builds a TextWriter over w.
func NewTextWriter(w io.Writer) *TextWriter {
	return &TextWriter{w: w}
}

// WriteResponse prints resp's data (as indented JSON, since response
// shapes vary per command) on success, or the spec.md §7 one-line error
// format `Error (<CODE>): <message>` with hint/diagnostic id/log path.
func (t *TextWriter) WriteResponse(resp domain.Response) error {
	if resp.OK {
		if len(resp.Data) == 0 {
			fmt.Fprintln(t.w, Styles.OK.Render("OK"))
			return nil
		}
		encoded, err := json.MarshalIndent(resp.Data, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(t.w, string(encoded))
		return err
	}

	e := resp.Error
	if e == nil {
		_, err := fmt.Fprintln(t.w, Styles.Danger.Render("Error: unknown failure"))
		return err
	}
	fmt.Fprintf(t.w, "%s (%s): %s\n", Styles.Danger.Render("Error"), ErrorCodeStyle(e.Code).Render(e.Code), e.Message)
	if e.Hint != "" {
		fmt.Fprintf(t.w, "  %s %s\n", Styles.Label.Render("hint:"), e.Hint)
	}
	if e.DiagnosticID != "" {
		fmt.Fprintf(t.w, "  %s %s\n", Styles.Label.Render("diagnostic:"), e.DiagnosticID)
	}
	if e.LogPath != "" {
		fmt.Fprintf(t.w, "  %s %s\n", Styles.Label.Render("log:"), e.LogPath)
	}
	return nil
}

// ExitCode maps a Response to the CLI exit code spec.md §6 documents: 0
// on success, 1 on any daemon error.
func ExitCode(resp domain.Response) int {
	if resp.OK {
		return 0
	}
	return 1
}
