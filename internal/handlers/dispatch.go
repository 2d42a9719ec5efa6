package handlers

import (
	"context"
	"strings"

	"github.com/agentdevice/agent-device/internal/diagnostics"
	"github.com/agentdevice/agent-device/internal/domain"
)

// sessionExemptCommands don't operate against an already-bound session
// and so skip default-session resolution entirely.
var sessionExemptCommands = map[string]bool{
	"devices":      true,
	"session_list": true,
	"boot":         true,
	"batch":        true,
	"open":         true,
}

// Dispatch routes req to its handler, enforcing the session-selector
// cross-check (spec.md §4.F) before any session-scoped command runs.
func Dispatch(ctx context.Context, d *Deps, req domain.Request) domain.Response {
	if !domain.KnownCommands[req.Command] {
		return domain.ErrResponse(domain.NewError(domain.ErrInvalidArgs, "unknown command "+req.Command))
	}

	if diagnostics.IsRequestCanceled(scopeRequestID(ctx)) {
		return domain.ErrResponse(domain.NewError(domain.ErrCanceled, "request canceled"))
	}

	switch req.Command {
	case "devices":
		return wrap(handleDevices(ctx, d, req))
	case "session_list":
		return wrap(handleSessionList(ctx, d, req))
	case "boot":
		return wrap(handleBoot(ctx, d, req))
	case "batch":
		return wrap(handleBatch(ctx, d, req))
	case "open":
		return wrap(handleOpen(ctx, d, req))
	}

	sessName := d.Store.ResolveSessionName(req.Session)

	if !domain.SelectorExemptCommands[req.Command] {
		if sess, derr := d.Store.Get(sessName); derr == nil {
			if cerr := crossCheckSelector(sess, req.Flags); cerr != nil {
				return domain.ErrResponse(cerr)
			}
		}
	}

	switch req.Command {
	case "close":
		return wrap(handleClose(ctx, d, sessName, req))
	case "snapshot":
		return wrap(handleSnapshot(ctx, d, sessName, req))
	case "diff":
		return wrap(handleDiff(ctx, d, sessName, req))
	case "click":
		return wrap(handleClick(ctx, d, sessName, req))
	case "press", "long-press":
		return wrap(handlePress(ctx, d, sessName, req, req.Command == "long-press"))
	case "fill":
		return wrap(handleFill(ctx, d, sessName, req))
	case "get":
		return wrap(handleGet(ctx, d, sessName, req))
	case "is":
		return wrap(handleIs(ctx, d, sessName, req))
	case "find":
		return wrap(handleFind(ctx, d, sessName, req))
	case "wait":
		return wrap(handleWait(ctx, d, sessName, req))
	case "alert":
		return wrap(handleAlert(ctx, d, sessName, req))
	case "scroll":
		return wrap(handleScroll(ctx, d, sessName, req))
	case "scrollintoview":
		return wrap(handleScrollIntoView(ctx, d, sessName, req))
	case "screenshot":
		return wrap(handleScreenshot(ctx, d, sessName, req))
	case "record":
		return wrap(handleRecord(ctx, d, sessName, req))
	case "trace":
		return wrap(handleTrace(ctx, d, sessName, req))
	case "replay":
		return wrap(handleReplay(ctx, d, sessName, req))
	case "apps":
		return wrap(handleApps(ctx, d, sessName, req))
	case "appstate":
		return wrap(handleAppState(ctx, d, sessName, req))
	case "settings":
		return wrap(handleSettings(ctx, d, sessName, req))
	case "reinstall":
		return wrap(handleReinstall(ctx, d, sessName, req))
	case "push":
		return wrap(handlePush(ctx, d, sessName, req))
	case "home":
		return wrap(handleHome(ctx, d, sessName, req))
	case "back":
		return wrap(handleBack(ctx, d, sessName, req))
	case "app-switcher":
		return wrap(handleAppSwitcher(ctx, d, sessName, req))
	case "type":
		return wrap(handleType(ctx, d, sessName, req))
	case "focus":
		return wrap(handleFocus(ctx, d, sessName, req))
	case "pinch":
		return wrap(handlePinch(ctx, d, sessName, req))
	default:
		return domain.ErrResponse(domain.NewError(domain.ErrInvalidArgs, "unknown command "+req.Command))
	}
}

func wrap(data map[string]interface{}, derr *domain.Error) domain.Response {
	if derr != nil {
		return domain.ErrResponse(derr)
	}
	return domain.OKResponse(data)
}

func scopeRequestID(ctx context.Context) string {
	return diagnostics.ScopeFrom(ctx).RequestID
}

// crossCheckSelector rejects a request whose platform/udid/serial/device
// flags disagree with the session's already-bound device, per spec.md
// §4.F. All four comparisons are case-insensitive equality; udid, serial
// and device each accept the bound device's name or its id
// (domain.Device.MatchesName).
func crossCheckSelector(sess *domain.Session, flags map[string]interface{}) *domain.Error {
	if flags == nil {
		return nil
	}
	if p := flagString(flags, "platform"); p != "" && !strings.EqualFold(p, string(sess.Device.Platform)) {
		return domain.NewError(domain.ErrInvalidArgs,
			"requested platform "+p+" conflicts with session's bound device platform "+string(sess.Device.Platform))
	}
	if u := flagString(flags, "udid"); u != "" && !sess.Device.MatchesName(u) {
		return domain.NewError(domain.ErrInvalidArgs, "requested udid "+u+" conflicts with session's bound device")
	}
	if s := flagString(flags, "serial"); s != "" && !sess.Device.MatchesName(s) {
		return domain.NewError(domain.ErrInvalidArgs, "requested serial "+s+" conflicts with session's bound device")
	}
	if name := flagString(flags, "device"); name != "" && !sess.Device.MatchesName(name) {
		return domain.NewError(domain.ErrInvalidArgs, "requested device "+name+" conflicts with session's bound device")
	}
	return nil
}
