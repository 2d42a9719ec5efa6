package cli

import (
	"bytes"
	"testing"

	"github.com/agentdevice/agent-device/internal/config"
)

func testGlobals() (*Globals, *bytes.Buffer, *bytes.Buffer) {
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	return &Globals{Stdout: stdout, Stderr: stderr}, stdout, stderr
}

func TestVersionCmd_Text(t *testing.T) {
	globals, stdout, _ := testGlobals()
	cmd := &VersionCmd{}

	if err := cmd.Run(globals); err != nil {
		t.Fatalf("Run: %v", err)
	}
	out := stdout.String()
	if !bytes.Contains([]byte(out), []byte("agent-device")) {
		t.Errorf("output %q does not mention agent-device", out)
	}
	if !bytes.Contains([]byte(out), []byte(Version)) {
		t.Errorf("output %q does not contain version %q", out, Version)
	}
}

func TestVersionCmd_JSON(t *testing.T) {
	globals, stdout, _ := testGlobals()
	globals.JSON = true
	cmd := &VersionCmd{}

	if err := cmd.Run(globals); err != nil {
		t.Fatalf("Run: %v", err)
	}
	out := stdout.String()
	if !bytes.Contains([]byte(out), []byte(`"success":true`)) {
		t.Errorf("JSON output %q missing success envelope", out)
	}
	if !bytes.Contains([]byte(out), []byte(Version)) {
		t.Errorf("JSON output %q missing version", out)
	}
}

func TestRecordCmd_NoDaemonReturnsConnectionError(t *testing.T) {
	// With no daemon reachable and no agent-deviced on PATH, Run should
	// fail fast with a CONNECTION CLIError rather than hang or panic.
	globals, _, stderr := testGlobals()
	cfg := config.Default()
	cfg.Daemon.HomeDir = t.TempDir()
	globals.Config = cfg
	c := &RecordCmd{Out: "trace.mp4", Mirror: true, Subcommand: "start"}

	err := c.Run(globals)
	if err == nil {
		t.Fatal("expected an error with no daemon reachable and no agent-deviced on PATH")
	}
	if stderr.Len() == 0 {
		t.Error("expected an error message written to stderr")
	}
}
