package handlers

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/agentdevice/agent-device/internal/domain"
	"github.com/agentdevice/agent-device/internal/store"
)

func deviceMap(dev domain.Device) map[string]interface{} {
	return map[string]interface{}{
		"platform": string(dev.Platform),
		"id":       dev.ID,
		"name":     dev.Name,
		"kind":     string(dev.Kind),
		"booted":   dev.Booted,
	}
}

func looksLikeURL(target string) bool {
	return strings.Contains(target, "://")
}

// handleOpen opens a new session against a resolved device, or, when a
// session by that name is already open, treats the request as an
// in-place app switch/relaunch on the already-bound device (spec.md
// §4.F's "open on an existing session never rebinds the device" rule).
func handleOpen(ctx context.Context, d *Deps, req domain.Request) (map[string]interface{}, *domain.Error) {
	sessName := req.Session
	if sessName == "" {
		sessName = domain.DefaultSessionName
	}

	target := ""
	if len(req.Positionals) > 0 {
		target = req.Positionals[0]
	}
	relaunch := flagBool(req.Flags, "relaunch")

	if existing, derr := d.Store.Get(sessName); derr == nil {
		if cerr := crossCheckSelector(existing, req.Flags); cerr != nil {
			return nil, cerr
		}
		adapter, ok := d.Adapters[existing.Device.Platform]
		if !ok {
			return nil, domain.NewError(domain.ErrUnsupportedOp, "no adapter for platform "+string(existing.Device.Platform))
		}
		if relaunch {
			if target == "" {
				return nil, domain.NewError(domain.ErrInvalidArgs, "--relaunch requires an app target")
			}
			if looksLikeURL(target) {
				return nil, domain.NewError(domain.ErrInvalidArgs, "--relaunch does not support URL targets")
			}
		}
		if target == "" {
			return nil, domain.NewError(domain.ErrInvalidArgs, "open on an existing session requires an app target")
		}

		var derr2 *domain.Error
		bundleID := ""
		lockErr := withDeviceLock(ctx, d, existing.Device, func() *domain.Error {
			id, err := adapter.OpenApp(ctx, existing.Device, target, relaunch)
			if err != nil {
				derr2 = domain.NewError(domain.ErrCommandFailed, err.Error())
				return derr2
			}
			bundleID = id
			return nil
		})
		if lockErr != nil {
			return nil, lockErr
		}
		existing.AppBundleID = bundleID
		recordAction(d, existing, req, nil)
		return map[string]interface{}{"session": sessName, "device": deviceMap(existing.Device), "appBundleId": bundleID}, nil
	}

	dev, adapter, derr := resolveTargetDevice(ctx, d, req.Flags)
	if derr != nil {
		return nil, derr
	}
	if err := adapter.Boot(ctx, dev); err != nil {
		return nil, domain.NewError(domain.ErrCommandFailed, err.Error())
	}
	if derr := ensureDeviceReady(ctx, d, adapter, dev); derr != nil {
		return nil, derr
	}

	sess, derr := d.Store.Open(sessName, dev, d.Clock.Now())
	if derr != nil {
		return nil, derr
	}
	sess.RecordSession = !flagBool(req.Flags, "noRecord")
	if sp := flagString(req.Flags, "saveScript"); sp != "" {
		sess.SaveScriptPath = sp
	}

	if target != "" {
		bundleID, err := adapter.OpenApp(ctx, dev, target, false)
		if err != nil {
			_ = d.Store.Close(sessName)
			return nil, domain.NewError(domain.ErrCommandFailed, err.Error())
		}
		sess.AppBundleID = bundleID
	}

	recordAction(d, sess, req, nil)
	return map[string]interface{}{"session": sessName, "device": deviceMap(dev), "appBundleId": sess.AppBundleID}, nil
}

// handleClose flushes a session's recorded `.ad` script (if recording),
// stops any in-progress recorder, and removes it from the registry.
func handleClose(ctx context.Context, d *Deps, sessName string, req domain.Request) (map[string]interface{}, *domain.Error) {
	sess, derr := d.Store.Get(sessName)
	if derr != nil {
		return nil, derr
	}

	if h, ok := d.takeRecording(sessName); ok {
		_, _ = h.Stop(ctx)
	}

	var scriptPath string
	if sess.RecordSession {
		scriptPath = sess.SaveScriptPath
		if scriptPath == "" {
			scriptPath = store.DefaultScriptPath(filepath.Join(d.HomeDir, "sessions"), sess.Name, d.Clock.Now())
		}
		if err := os.MkdirAll(filepath.Dir(scriptPath), 0o755); err == nil {
			_ = os.WriteFile(scriptPath, []byte(store.RenderScript(sess)), 0o644)
		}
	}

	if derr := d.Store.Close(sessName); derr != nil {
		return nil, derr
	}
	out := map[string]interface{}{"session": sessName}
	if scriptPath != "" {
		out["scriptPath"] = scriptPath
	}
	return out, nil
}

// handleDevices lists every device visible to every registered adapter.
// A platform whose tooling isn't available on this machine is skipped
// rather than failing the whole listing.
func handleDevices(ctx context.Context, d *Deps, req domain.Request) (map[string]interface{}, *domain.Error) {
	var all []map[string]interface{}
	for _, adapter := range d.Adapters {
		devs, err := adapter.ListDevices(ctx)
		if err != nil {
			continue
		}
		for _, dv := range devs {
			all = append(all, deviceMap(dv))
		}
	}
	return map[string]interface{}{"devices": all}, nil
}

// handleSessionList reports every open session and its bound device.
func handleSessionList(ctx context.Context, d *Deps, req domain.Request) (map[string]interface{}, *domain.Error) {
	sessions := d.Store.All()
	out := make([]map[string]interface{}, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, map[string]interface{}{
			"name":        s.Name,
			"device":      deviceMap(s.Device),
			"appBundleId": s.AppBundleID,
			"createdAt":   s.CreatedAt,
			"recording":   d.hasRecording(s.Name),
		})
	}
	return map[string]interface{}{"sessions": out}, nil
}

// handleBoot resolves and boots a device without binding it to a
// session, used by CLI tooling that wants a device ready ahead of
// `open`.
func handleBoot(ctx context.Context, d *Deps, req domain.Request) (map[string]interface{}, *domain.Error) {
	dev, adapter, derr := resolveTargetDevice(ctx, d, req.Flags)
	if derr != nil {
		return nil, derr
	}
	if err := adapter.Boot(ctx, dev); err != nil {
		return nil, domain.NewError(domain.ErrCommandFailed, err.Error())
	}
	if derr := ensureDeviceReady(ctx, d, adapter, dev); derr != nil {
		return nil, derr
	}
	return map[string]interface{}{"device": deviceMap(dev)}, nil
}
