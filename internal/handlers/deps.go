// Package handlers implements the daemon's per-command request
// dispatch, grounded on the teacher's command-handler split (each CLI
// command got its own file under internal/cli), generalized from
// CLI-side command execution to daemon-side Request/Response handling
// shared by every client.
package handlers

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/agentdevice/agent-device/internal/config"
	"github.com/agentdevice/agent-device/internal/devicelock"
	"github.com/agentdevice/agent-device/internal/diagnostics"
	"github.com/agentdevice/agent-device/internal/domain"
	"github.com/agentdevice/agent-device/internal/platform"
	"github.com/agentdevice/agent-device/internal/record"
	"github.com/agentdevice/agent-device/internal/retry"
	"github.com/agentdevice/agent-device/internal/store"
)

// Deps bundles every dependency a command handler needs, built once at
// daemon startup and passed by reference into Dispatch.
type Deps struct {
	Store    *store.SessionStore
	Locker   *devicelock.Locker
	Adapters map[domain.Platform]platform.Adapter
	Config   *config.Config
	Clock    clock.Clock
	HomeDir  string

	recMu      sync.Mutex
	recordings map[string]platform.RecordHandle

	mirrorMu sync.Mutex
	mirrors  map[string]*record.PaneMirror
}

// NewDeps wires a ready-to-use Deps from a loaded config and the
// platform adapters available in this process.
func NewDeps(cfg *config.Config, adapters map[domain.Platform]platform.Adapter, clk clock.Clock) *Deps {
	return &Deps{
		Store:      store.NewSessionStore(),
		Locker:     devicelock.NewLocker(),
		Adapters:   adapters,
		Config:     cfg,
		Clock:      clk,
		HomeDir:    cfg.HomeDir(),
		recordings: make(map[string]platform.RecordHandle),
		mirrors:    make(map[string]*record.PaneMirror),
	}
}

// setMirror registers a running pane mirror for a session.
func (d *Deps) setMirror(session string, m *record.PaneMirror) {
	d.mirrorMu.Lock()
	defer d.mirrorMu.Unlock()
	d.mirrors[session] = m
}

// takeMirror removes and returns session's running pane mirror, if any.
func (d *Deps) takeMirror(session string) (*record.PaneMirror, bool) {
	d.mirrorMu.Lock()
	defer d.mirrorMu.Unlock()
	m, ok := d.mirrors[session]
	delete(d.mirrors, session)
	return m, ok
}

// startMirror opens a tmux pane tailing sess's trace file, starting a
// trace for it first if one isn't already active, and registers the
// resulting mirror under sess.Name. Returns the attach command a human
// runs to watch it.
func (d *Deps) startMirror(sess *domain.Session) (string, error) {
	tracePath := sess.TraceFile
	if tracePath == "" {
		dir := filepath.Join(d.HomeDir, "sessions")
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return "", err
		}
		tracePath = store.DefaultTracePath(dir, sess.Name, d.Clock.Now())
		f, err := os.OpenFile(tracePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
		if err != nil {
			return "", err
		}
		f.Close()
		sess.TracePath = tracePath
		sess.TraceFile = tracePath
	}

	mirror, err := record.StartMirror(sess.Name, tracePath)
	if err != nil {
		return "", err
	}
	d.setMirror(sess.Name, mirror)
	return mirror.AttachCommand(), nil
}

// setRecording registers an in-progress recording for a session.
func (d *Deps) setRecording(session string, h platform.RecordHandle) {
	d.recMu.Lock()
	defer d.recMu.Unlock()
	d.recordings[session] = h
}

// takeRecording removes and returns session's in-progress recording, if
// any.
func (d *Deps) takeRecording(session string) (platform.RecordHandle, bool) {
	d.recMu.Lock()
	defer d.recMu.Unlock()
	h, ok := d.recordings[session]
	delete(d.recordings, session)
	return h, ok
}

// TakeRecording exposes takeRecording to internal/daemon's shutdown
// drain, which must stop every session's in-progress recorder before
// removing daemon.json.
func (d *Deps) TakeRecording(session string) (platform.RecordHandle, bool) {
	return d.takeRecording(session)
}

// hasRecording reports whether session currently has a recording handle
// registered, without consuming it.
func (d *Deps) hasRecording(session string) bool {
	d.recMu.Lock()
	defer d.recMu.Unlock()
	_, ok := d.recordings[session]
	return ok
}

// retryPolicy builds a retry.Policy from the daemon's loaded retry
// config, per SPEC_FULL.md's decision to construct Policy centrally
// rather than scattering tuning across call sites.
func (d *Deps) retryPolicy() retry.Policy {
	return retry.Policy{
		MaxAttempts: d.Config.Retry.MaxAttempts,
		BaseDelay:   time.Duration(d.Config.Retry.BaseDelayMs) * time.Millisecond,
		MaxDelay:    time.Duration(d.Config.Retry.MaxDelayMs) * time.Millisecond,
		Jitter:      d.Config.Retry.Jitter,
		Clock:       d.Clock,
	}
}

// emit writes one diagnostic event to the request's scoped log file, if
// any is attached to ctx. Opening/closing the file per call keeps no
// handle alive across requests, trading a little throughput for never
// leaking file descriptors across a long-lived daemon's lifetime.
func (d *Deps) emit(ctx context.Context, kind, message string, fields map[string]interface{}) {
	scope := diagnostics.ScopeFrom(ctx)
	if scope.LogPath == "" {
		return
	}
	if err := os.MkdirAll(filepath.Dir(scope.LogPath), 0o700); err != nil {
		return
	}
	f, err := os.OpenFile(scope.LogPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return
	}
	defer f.Close()
	_ = diagnostics.NewEmitter(f).Emit(ctx, d.Clock.Now(), kind, message, fields)
}

// retryEvent adapts a retry.Event into a diagnostic emission, per
// spec.md §7's attempt_failed/retry_scheduled/succeeded/gave_up stream.
func (d *Deps) retryEvent(ctx context.Context) func(retry.Event) {
	return func(e retry.Event) {
		d.emit(ctx, string(e.Kind), e.Phase, map[string]interface{}{
			"attempt":   e.Attempt,
			"delayMs":   e.DelayMs,
			"elapsedMs": e.ElapsedMs,
			"remaining": e.Remaining,
			"reason":    e.Reason,
		})
	}
}
