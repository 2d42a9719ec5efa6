// Package record mirrors a session's action trace into a dedicated tmux
// pane so a human co-supervisor can `tmux attach` and watch it live
// alongside an agent's automated run, per spec.md §4.G's `record start
// --mirror` flag. Grounded on internal/tmux (the teacher's gotmux
// wrapper, generalized here from streaming simulator logs to tailing
// one session's trace file).
package record

import (
	"fmt"

	"github.com/agentdevice/agent-device/internal/tmux"
)

// PaneMirror is one running `tail -f` inside a dedicated tmux session,
// one per agent-device session that requested mirroring.
type PaneMirror struct {
	manager *tmux.Manager
}

// StartMirror creates (or reuses) a tmux session named after
// sessionName and runs `tail -f tracePath` inside its pane.
func StartMirror(sessionName, tracePath string) (*PaneMirror, error) {
	if !tmux.IsTmuxAvailable() {
		return nil, fmt.Errorf("tmux is not installed; --mirror requires it")
	}

	cfg := &tmux.Config{
		SessionName:   tmux.GenerateMirrorSessionName(sessionName),
		SimulatorName: sessionName,
		Detached:      true,
	}
	mgr, err := tmux.NewManager(cfg)
	if err != nil {
		return nil, fmt.Errorf("start tmux pane mirror: %w", err)
	}
	if err := mgr.GetOrCreateSession(); err != nil {
		return nil, fmt.Errorf("create tmux session: %w", err)
	}
	if err := mgr.ClearPaneWithBanner("mirroring " + sessionName); err != nil {
		return nil, fmt.Errorf("initialize mirror pane: %w", err)
	}
	if err := mgr.RunCommand(fmt.Sprintf("tail -f %q", tracePath)); err != nil {
		return nil, fmt.Errorf("start tail in mirror pane: %w", err)
	}

	return &PaneMirror{manager: mgr}, nil
}

// AttachCommand returns the shell command a human runs to attach to
// this mirror's tmux session.
func (p *PaneMirror) AttachCommand() string {
	if p == nil || p.manager == nil {
		return ""
	}
	return p.manager.AttachCommand()
}

// Stop kills the mirror's tmux session; the trace file itself is left
// untouched, since record/trace control it independently.
func (p *PaneMirror) Stop() error {
	if p == nil || p.manager == nil {
		return nil
	}
	return p.manager.KillSession()
}
