package handlers

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/agentdevice/agent-device/internal/domain"
	"github.com/agentdevice/agent-device/internal/selector"
)

func handleHome(ctx context.Context, d *Deps, sessName string, req domain.Request) (map[string]interface{}, *domain.Error) {
	sess, adapter, derr := sessionAndAdapter(d, sessName)
	if derr != nil {
		return nil, derr
	}
	lockErr := withDeviceLock(ctx, d, sess.Device, func() *domain.Error {
		if err := adapter.Home(ctx, sess.Device); err != nil {
			return domain.NewError(domain.ErrCommandFailed, err.Error())
		}
		return nil
	})
	if lockErr != nil {
		return nil, lockErr
	}
	recordAction(d, sess, req, nil)
	return map[string]interface{}{}, nil
}

func handleBack(ctx context.Context, d *Deps, sessName string, req domain.Request) (map[string]interface{}, *domain.Error) {
	sess, adapter, derr := sessionAndAdapter(d, sessName)
	if derr != nil {
		return nil, derr
	}
	lockErr := withDeviceLock(ctx, d, sess.Device, func() *domain.Error {
		if err := adapter.Back(ctx, sess.Device); err != nil {
			return domain.NewError(domain.ErrUnsupportedOp, err.Error())
		}
		return nil
	})
	if lockErr != nil {
		return nil, lockErr
	}
	recordAction(d, sess, req, nil)
	return map[string]interface{}{}, nil
}

func handleAppSwitcher(ctx context.Context, d *Deps, sessName string, req domain.Request) (map[string]interface{}, *domain.Error) {
	sess, adapter, derr := sessionAndAdapter(d, sessName)
	if derr != nil {
		return nil, derr
	}
	lockErr := withDeviceLock(ctx, d, sess.Device, func() *domain.Error {
		if err := adapter.AppSwitcher(ctx, sess.Device); err != nil {
			return domain.NewError(domain.ErrCommandFailed, err.Error())
		}
		return nil
	})
	if lockErr != nil {
		return nil, lockErr
	}
	recordAction(d, sess, req, nil)
	return map[string]interface{}{}, nil
}

// handleType types literal text into whatever currently has input focus,
// without resolving any target.
func handleType(ctx context.Context, d *Deps, sessName string, req domain.Request) (map[string]interface{}, *domain.Error) {
	sess, adapter, derr := sessionAndAdapter(d, sessName)
	if derr != nil {
		return nil, derr
	}
	text := strings.Join(req.Positionals, " ")
	lockErr := withDeviceLock(ctx, d, sess.Device, func() *domain.Error {
		if err := adapter.TypeText(ctx, sess.Device, text); err != nil {
			return domain.NewError(domain.ErrCommandFailed, err.Error())
		}
		return nil
	})
	if lockErr != nil {
		return nil, lockErr
	}
	recordAction(d, sess, req, nil)
	return map[string]interface{}{"text": text}, nil
}

// handleFocus taps a target to give it input focus, without typing.
func handleFocus(ctx context.Context, d *Deps, sessName string, req domain.Request) (map[string]interface{}, *domain.Error) {
	sess, adapter, derr := sessionAndAdapter(d, sessName)
	if derr != nil {
		return nil, derr
	}
	raw, _ := selector.SplitSelectorFromArgs(req.Positionals, false)
	node, nodes, derr := resolveInteractionTarget(ctx, d, sess, adapter, raw, true)
	if derr != nil {
		return nil, derr
	}
	x, y := node.Rect.Center()
	lockErr := withDeviceLock(ctx, d, sess.Device, func() *domain.Error {
		if err := adapter.Tap(ctx, sess.Device, x, y); err != nil {
			return domain.NewError(domain.ErrCommandFailed, err.Error())
		}
		return nil
	})
	if lockErr != nil {
		return nil, lockErr
	}
	recordAction(d, sess, req, actionResultFor(raw, node, nodes, x, y))
	return map[string]interface{}{"ref": node.ExternalRef()}, nil
}

func handlePinch(ctx context.Context, d *Deps, sessName string, req domain.Request) (map[string]interface{}, *domain.Error) {
	sess, adapter, derr := sessionAndAdapter(d, sessName)
	if derr != nil {
		return nil, derr
	}
	raw, scaleStr := selector.SplitSelectorFromArgs(req.Positionals, true)
	scale, err := strconv.ParseFloat(scaleStr, 64)
	if err != nil {
		return nil, domain.NewError(domain.ErrInvalidArgs, "pinch requires a numeric scale, got "+scaleStr)
	}
	node, nodes, derr := resolveInteractionTarget(ctx, d, sess, adapter, raw, true)
	if derr != nil {
		return nil, derr
	}
	x, y := node.Rect.Center()
	lockErr := withDeviceLock(ctx, d, sess.Device, func() *domain.Error {
		if err := adapter.Pinch(ctx, sess.Device, x, y, scale); err != nil {
			return domain.NewError(domain.ErrCommandFailed, err.Error())
		}
		return nil
	})
	if lockErr != nil {
		return nil, lockErr
	}
	recordAction(d, sess, req, actionResultFor(raw, node, nodes, x, y))
	return map[string]interface{}{"ref": node.ExternalRef(), "scale": scale}, nil
}

func handleScroll(ctx context.Context, d *Deps, sessName string, req domain.Request) (map[string]interface{}, *domain.Error) {
	sess, adapter, derr := sessionAndAdapter(d, sessName)
	if derr != nil {
		return nil, derr
	}
	if len(req.Positionals) < 2 {
		return nil, domain.NewError(domain.ErrInvalidArgs, "scroll requires dx and dy")
	}
	dx, err1 := strconv.ParseFloat(req.Positionals[0], 64)
	dy, err2 := strconv.ParseFloat(req.Positionals[1], 64)
	if err1 != nil || err2 != nil {
		return nil, domain.NewError(domain.ErrInvalidArgs, "scroll requires numeric dx and dy")
	}
	lockErr := withDeviceLock(ctx, d, sess.Device, func() *domain.Error {
		if err := adapter.Scroll(ctx, sess.Device, dx, dy); err != nil {
			return domain.NewError(domain.ErrCommandFailed, err.Error())
		}
		return nil
	})
	if lockErr != nil {
		return nil, lockErr
	}
	recordAction(d, sess, req, nil)
	return map[string]interface{}{"dx": dx, "dy": dy}, nil
}

const scrollIntoViewMaxAttempts = 8

// handleScrollIntoView repeatedly scrolls and re-resolves a target until
// it's found with a rectangle (an off-screen list item becoming
// on-screen) or attempts are exhausted.
func handleScrollIntoView(ctx context.Context, d *Deps, sessName string, req domain.Request) (map[string]interface{}, *domain.Error) {
	sess, adapter, derr := sessionAndAdapter(d, sessName)
	if derr != nil {
		return nil, derr
	}
	raw, _ := selector.SplitSelectorFromArgs(req.Positionals, false)

	for attempt := 0; attempt < scrollIntoViewMaxAttempts; attempt++ {
		node, nodes, rerr := resolveInteractionTarget(ctx, d, sess, adapter, raw, true)
		if rerr == nil {
			x, y := node.Rect.Center()
			recordAction(d, sess, req, actionResultFor(raw, node, nodes, x, y))
			return map[string]interface{}{"ref": node.ExternalRef(), "attempts": attempt + 1}, nil
		}

		lockErr := withDeviceLock(ctx, d, sess.Device, func() *domain.Error {
			if err := adapter.Scroll(ctx, sess.Device, 0, -400); err != nil {
				return domain.NewError(domain.ErrCommandFailed, err.Error())
			}
			return nil
		})
		if lockErr != nil {
			return nil, lockErr
		}

		t := d.Clock.Timer(250 * time.Millisecond)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, domain.NewError(domain.ErrCanceled, "request canceled")
		case <-t.C:
		}
	}

	return nil, domain.NewError(domain.ErrCommandFailed, "target not found after scrolling").
		WithDetails(map[string]interface{}{"selector": raw, "attempts": scrollIntoViewMaxAttempts})
}

func handleScreenshot(ctx context.Context, d *Deps, sessName string, req domain.Request) (map[string]interface{}, *domain.Error) {
	sess, adapter, derr := sessionAndAdapter(d, sessName)
	if derr != nil {
		return nil, derr
	}
	outPath := flagString(req.Flags, "out")
	if outPath == "" && len(req.Positionals) > 0 {
		outPath = req.Positionals[0]
	}
	if outPath == "" {
		outPath = d.HomeDir + "/screenshots/" + sessName + "-" + strconv.FormatInt(d.Clock.Now().UnixNano(), 10) + ".png"
	}
	lockErr := withDeviceLock(ctx, d, sess.Device, func() *domain.Error {
		if err := adapter.Screenshot(ctx, sess.Device, outPath); err != nil {
			return domain.NewError(domain.ErrCommandFailed, err.Error())
		}
		return nil
	})
	if lockErr != nil {
		return nil, lockErr
	}
	recordAction(d, sess, req, nil)
	return map[string]interface{}{"path": outPath}, nil
}

func handleAlert(ctx context.Context, d *Deps, sessName string, req domain.Request) (map[string]interface{}, *domain.Error) {
	sess, adapter, derr := sessionAndAdapter(d, sessName)
	if derr != nil {
		return nil, derr
	}
	action := ""
	if len(req.Positionals) > 0 {
		action = req.Positionals[0]
	}
	var info struct {
		Present bool
		Title   string
		Message string
		Buttons []string
	}
	lockErr := withDeviceLock(ctx, d, sess.Device, func() *domain.Error {
		res, err := adapter.Alert(ctx, sess.Device, action)
		if err != nil {
			return domain.NewError(domain.ErrCommandFailed, err.Error())
		}
		info.Present, info.Title, info.Message, info.Buttons = res.Present, res.Title, res.Message, res.Buttons
		return nil
	})
	if lockErr != nil {
		return nil, lockErr
	}
	recordAction(d, sess, req, nil)
	return map[string]interface{}{
		"present": info.Present, "title": info.Title, "message": info.Message, "buttons": info.Buttons,
	}, nil
}

func handleApps(ctx context.Context, d *Deps, sessName string, req domain.Request) (map[string]interface{}, *domain.Error) {
	sess, adapter, derr := sessionAndAdapter(d, sessName)
	if derr != nil {
		return nil, derr
	}
	metadata := flagBool(req.Flags, "metadata")
	var apps []map[string]interface{}
	lockErr := withDeviceLock(ctx, d, sess.Device, func() *domain.Error {
		list, err := adapter.Apps(ctx, sess.Device, metadata)
		if err != nil {
			return domain.NewError(domain.ErrCommandFailed, err.Error())
		}
		filter := strings.ToLower(flagString(req.Flags, "filter"))
		for _, a := range list {
			if filter != "" && !strings.Contains(strings.ToLower(a.BundleID), filter) {
				continue
			}
			apps = append(apps, map[string]interface{}{
				"bundleId": a.BundleID, "name": a.Name, "version": a.Version, "build": a.Build,
			})
		}
		return nil
	})
	if lockErr != nil {
		return nil, lockErr
	}
	return map[string]interface{}{"apps": apps}, nil
}

func handleAppState(ctx context.Context, d *Deps, sessName string, req domain.Request) (map[string]interface{}, *domain.Error) {
	sess, adapter, derr := sessionAndAdapter(d, sessName)
	if derr != nil {
		return nil, derr
	}
	bundleID := firstNonEmptyFlag(req.Flags, "bundleId")
	if bundleID == "" && len(req.Positionals) > 0 {
		bundleID = req.Positionals[0]
	}
	if bundleID == "" {
		bundleID = sess.AppBundleID
	}
	if bundleID == "" {
		return nil, domain.NewError(domain.ErrInvalidArgs, "appstate requires a bundle id")
	}
	var state string
	lockErr := withDeviceLock(ctx, d, sess.Device, func() *domain.Error {
		s, err := adapter.AppState(ctx, sess.Device, bundleID)
		if err != nil {
			return domain.NewError(domain.ErrCommandFailed, err.Error())
		}
		state = s
		return nil
	})
	if lockErr != nil {
		return nil, lockErr
	}
	return map[string]interface{}{"bundleId": bundleID, "state": state}, nil
}

func handleSettings(ctx context.Context, d *Deps, sessName string, req domain.Request) (map[string]interface{}, *domain.Error) {
	sess, adapter, derr := sessionAndAdapter(d, sessName)
	if derr != nil {
		return nil, derr
	}
	if len(req.Positionals) < 2 {
		return nil, domain.NewError(domain.ErrInvalidArgs, "settings requires a key and a value")
	}
	key, value := req.Positionals[0], req.Positionals[1]
	lockErr := withDeviceLock(ctx, d, sess.Device, func() *domain.Error {
		if err := adapter.Settings(ctx, sess.Device, key, value); err != nil {
			return domain.NewError(domain.ErrCommandFailed, err.Error())
		}
		return nil
	})
	if lockErr != nil {
		return nil, lockErr
	}
	recordAction(d, sess, req, nil)
	return map[string]interface{}{"key": key, "value": value}, nil
}

func handleReinstall(ctx context.Context, d *Deps, sessName string, req domain.Request) (map[string]interface{}, *domain.Error) {
	sess, adapter, derr := sessionAndAdapter(d, sessName)
	if derr != nil {
		return nil, derr
	}
	if len(req.Positionals) < 1 {
		return nil, domain.NewError(domain.ErrInvalidArgs, "reinstall requires an app path")
	}
	appPath := req.Positionals[0]
	lockErr := withDeviceLock(ctx, d, sess.Device, func() *domain.Error {
		if err := adapter.Reinstall(ctx, sess.Device, appPath); err != nil {
			return domain.NewError(domain.ErrCommandFailed, err.Error())
		}
		return nil
	})
	if lockErr != nil {
		return nil, lockErr
	}
	recordAction(d, sess, req, nil)
	return map[string]interface{}{"appPath": appPath}, nil
}

func handlePush(ctx context.Context, d *Deps, sessName string, req domain.Request) (map[string]interface{}, *domain.Error) {
	sess, adapter, derr := sessionAndAdapter(d, sessName)
	if derr != nil {
		return nil, derr
	}
	if len(req.Positionals) < 2 {
		return nil, domain.NewError(domain.ErrInvalidArgs, "push requires a local path and a remote path")
	}
	localPath, remotePath := req.Positionals[0], req.Positionals[1]
	lockErr := withDeviceLock(ctx, d, sess.Device, func() *domain.Error {
		if err := adapter.Push(ctx, sess.Device, localPath, remotePath); err != nil {
			return domain.NewError(domain.ErrCommandFailed, err.Error())
		}
		return nil
	})
	if lockErr != nil {
		return nil, lockErr
	}
	recordAction(d, sess, req, nil)
	return map[string]interface{}{"localPath": localPath, "remotePath": remotePath}, nil
}
