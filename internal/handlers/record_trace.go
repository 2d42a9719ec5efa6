package handlers

import (
	"context"
	"os"
	"path/filepath"

	"github.com/agentdevice/agent-device/internal/domain"
	"github.com/agentdevice/agent-device/internal/store"
)

// handleRecord implements `record start`/`record stop` (spec.md §4.G): a
// screen recording is a per-session resource, one at a time, started
// through the bound adapter's RecordStart and finalized by calling Stop
// on the handle Deps stashed when it started.
func handleRecord(ctx context.Context, d *Deps, sessName string, req domain.Request) (map[string]interface{}, *domain.Error) {
	sess, adapter, derr := sessionAndAdapter(d, sessName)
	if derr != nil {
		return nil, derr
	}
	if len(req.Positionals) < 1 {
		return nil, domain.NewError(domain.ErrInvalidArgs, "record requires a subcommand (start|stop)")
	}

	switch req.Positionals[0] {
	case "start":
		if d.hasRecording(sess.Name) {
			return nil, domain.NewError(domain.ErrInvalidArgs, "a recording is already in progress for this session")
		}
		out := flagString(req.Flags, "out")
		if out == "" {
			dir := filepath.Join(d.HomeDir, "recordings")
			if err := os.MkdirAll(dir, 0o700); err != nil {
				return nil, domain.NewError(domain.ErrCommandFailed, "failed to create recordings directory: "+err.Error())
			}
			out = store.DefaultRecordingPath(dir, sess.Name, d.Clock.Now())
		}

		var handle interface {
			Stop(ctx context.Context) (string, error)
		}
		lockErr := withDeviceLock(ctx, d, sess.Device, func() *domain.Error {
			h, err := adapter.RecordStart(ctx, sess.Device, out)
			if err != nil {
				return domain.NewError(domain.ErrCommandFailed, err.Error())
			}
			handle = h
			return nil
		})
		if lockErr != nil {
			return nil, lockErr
		}

		d.setRecording(sess.Name, handle)
		sess.Recording = true
		sess.RecordingPath = out
		recordAction(d, sess, req, nil)

		result := map[string]interface{}{"recording": true, "out": out}
		if flagBool(req.Flags, "mirror") {
			attachCmd, merr := d.startMirror(sess)
			if merr != nil {
				result["mirrorError"] = merr.Error()
			} else {
				result["mirrorAttachCommand"] = attachCmd
			}
		}
		return result, nil

	case "stop":
		handle, ok := d.takeRecording(sess.Name)
		if !ok {
			return nil, domain.NewError(domain.ErrInvalidArgs, "no recording is in progress for this session")
		}

		var finalPath string
		lockErr := withDeviceLock(ctx, d, sess.Device, func() *domain.Error {
			p, err := handle.Stop(ctx)
			if err != nil {
				return domain.NewError(domain.ErrCommandFailed, err.Error())
			}
			finalPath = p
			return nil
		})
		sess.Recording = false
		if lockErr != nil {
			return nil, lockErr
		}
		if mirror, ok := d.takeMirror(sess.Name); ok {
			_ = mirror.Stop()
		}
		recordAction(d, sess, req, nil)
		return map[string]interface{}{"recording": false, "out": finalPath}, nil

	default:
		return nil, domain.NewError(domain.ErrInvalidArgs, "unknown record subcommand "+req.Positionals[0])
	}
}

// handleTrace implements `trace start`/`trace stop` (spec.md §4.G): a
// plain append-only log file a caller can tail alongside recorded
// actions, independent of and compatible with an in-progress screen
// recording.
func handleTrace(ctx context.Context, d *Deps, sessName string, req domain.Request) (map[string]interface{}, *domain.Error) {
	sess, _, derr := sessionAndAdapter(d, sessName)
	if derr != nil {
		return nil, derr
	}
	if len(req.Positionals) < 1 {
		return nil, domain.NewError(domain.ErrInvalidArgs, "trace requires a subcommand (start|stop)")
	}

	switch req.Positionals[0] {
	case "start":
		if sess.TraceFile != "" {
			return nil, domain.NewError(domain.ErrInvalidArgs, "a trace is already active for this session")
		}
		out := flagString(req.Flags, "out")
		if out == "" {
			dir := filepath.Join(d.HomeDir, "sessions")
			if err := os.MkdirAll(dir, 0o700); err != nil {
				return nil, domain.NewError(domain.ErrCommandFailed, "failed to create sessions directory: "+err.Error())
			}
			out = store.DefaultTracePath(dir, sess.Name, d.Clock.Now())
		} else if dir := filepath.Dir(out); dir != "." {
			if err := os.MkdirAll(dir, 0o700); err != nil {
				return nil, domain.NewError(domain.ErrCommandFailed, "failed to create trace directory: "+err.Error())
			}
		}

		f, err := os.OpenFile(out, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
		if err != nil {
			return nil, domain.NewError(domain.ErrCommandFailed, "failed to open trace file: "+err.Error())
		}
		f.Close()

		sess.TracePath = out
		sess.TraceFile = out
		recordAction(d, sess, req, nil)
		return map[string]interface{}{"tracing": true, "out": out}, nil

	case "stop":
		if sess.TraceFile == "" {
			return nil, domain.NewError(domain.ErrInvalidArgs, "no trace is active for this session")
		}
		out := sess.TracePath
		sess.TraceFile = ""
		recordAction(d, sess, req, nil)
		return map[string]interface{}{"tracing": false, "out": out}, nil

	default:
		return nil, domain.NewError(domain.ErrInvalidArgs, "unknown trace subcommand "+req.Positionals[0])
	}
}
