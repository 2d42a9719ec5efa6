package handlers

import (
	"context"
	"strings"

	"github.com/agentdevice/agent-device/internal/domain"
	"github.com/agentdevice/agent-device/internal/platform"
	"github.com/agentdevice/agent-device/internal/selector"
	"github.com/agentdevice/agent-device/internal/snapshot"
)

// freshInteractiveNodes captures a compact, interactive-only snapshot
// and installs it as the session's new baseline, for selector
// resolution against current on-screen state.
func freshInteractiveNodes(ctx context.Context, d *Deps, sess *domain.Session, adapter platform.Adapter) ([]domain.Node, *domain.Error) {
	nodes, backend, derr := captureSnapshot(ctx, d, adapter, sess.Device, platform.SnapshotOptions{InteractiveOnly: true, Compact: true})
	if derr != nil {
		return nil, derr
	}
	sess.Snapshot = &domain.Snapshot{Nodes: nodes, CreatedAt: d.Clock.Now(), Backend: backend}
	return nodes, nil
}

// resolveInteractionTarget resolves raw (an `@ref` or a selector-chain
// string) against the session: a ref is looked up in the existing
// baseline (capturing a fresh one first if none exists yet), a selector
// always triggers a fresh interactive snapshot so it resolves against
// current on-screen state (spec.md §4.B/§4.F).
func resolveInteractionTarget(ctx context.Context, d *Deps, sess *domain.Session, adapter platform.Adapter, raw string, requireRect bool) (domain.Node, []domain.Node, *domain.Error) {
	if raw == "" {
		return domain.Node{}, nil, domain.NewError(domain.ErrInvalidArgs, "a target selector or @ref is required")
	}

	if strings.HasPrefix(raw, "@") {
		ref := strings.TrimPrefix(raw, "@")
		nodes := []domain.Node{}
		if sess.Snapshot != nil {
			nodes = sess.Snapshot.Nodes
		} else {
			fresh, derr := freshInteractiveNodes(ctx, d, sess, adapter)
			if derr != nil {
				return domain.Node{}, nil, derr
			}
			nodes = fresh
		}
		node, ok := snapshot.FindNodeByRef(nodes, ref)
		if !ok {
			return domain.Node{}, nil, domain.NewError(domain.ErrInvalidArgs, "no node with ref "+raw+" in the current snapshot")
		}
		if requireRect && node.Rect == nil {
			return domain.Node{}, nil, domain.NewError(domain.ErrCommandFailed, "target "+raw+" has no on-screen rectangle")
		}
		return node, nodes, nil
	}

	nodes, derr := freshInteractiveNodes(ctx, d, sess, adapter)
	if derr != nil {
		return domain.Node{}, nil, derr
	}
	chain, perr := selector.ParseChain(raw)
	if perr != nil {
		return domain.Node{}, nil, perr
	}
	res, rerr := selector.ResolveSelectorChain(nodes, chain, selector.ResolveOptions{RequireRect: requireRect, Platform: sess.Device.Platform})
	if rerr != nil {
		return domain.Node{}, nil, rerr
	}
	if !res.Found {
		return domain.Node{}, nil, domain.NewError(domain.ErrInvalidArgs, "no element matched selector "+chain.Raw).
			WithDetails(map[string]interface{}{"diagnostics": res.Diagnostics})
	}
	return res.Node, nodes, nil
}

// actionResultFor builds the ActionResult a recorded interaction carries
// forward into `.ad` emission and replay heal: the selector chain when
// the caller addressed by selector, or a human ref label when addressed
// by `@ref`.
func actionResultFor(raw string, node domain.Node, nodes []domain.Node, x, y float64) *domain.ActionResult {
	res := &domain.ActionResult{CenterX: x, CenterY: y}
	if strings.HasPrefix(raw, "@") {
		res.RefLabel = snapshot.ResolveRefLabel(node, nodes)
	} else {
		res.SelectorChain = raw
	}
	return res
}

func handleClick(ctx context.Context, d *Deps, sessName string, req domain.Request) (map[string]interface{}, *domain.Error) {
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
	return map[string]interface{}{"ref": node.ExternalRef(), "x": x, "y": y}, nil
}

func handlePress(ctx context.Context, d *Deps, sessName string, req domain.Request, long bool) (map[string]interface{}, *domain.Error) {
	sess, adapter, derr := sessionAndAdapter(d, sessName)
	if derr != nil {
		return nil, derr
	}
	raw, _ := selector.SplitSelectorFromArgs(req.Positionals, false)
	node, nodes, derr := resolveInteractionTarget(ctx, d, sess, adapter, raw, true)
	if derr != nil {
		return nil, derr
	}
	defaultHold := 150
	if long {
		defaultHold = 800
	}
	holdMs := flagInt(req.Flags, "holdMs", defaultHold)
	x, y := node.Rect.Center()
	lockErr := withDeviceLock(ctx, d, sess.Device, func() *domain.Error {
		if err := adapter.LongPress(ctx, sess.Device, x, y, holdMs); err != nil {
			return domain.NewError(domain.ErrCommandFailed, err.Error())
		}
		return nil
	})
	if lockErr != nil {
		return nil, lockErr
	}
	result := actionResultFor(raw, node, nodes, x, y)
	recordAction(d, sess, req, result)
	return map[string]interface{}{"ref": node.ExternalRef(), "x": x, "y": y, "holdMs": holdMs}, nil
}

func handleFill(ctx context.Context, d *Deps, sessName string, req domain.Request) (map[string]interface{}, *domain.Error) {
	sess, adapter, derr := sessionAndAdapter(d, sessName)
	if derr != nil {
		return nil, derr
	}
	raw, value := selector.SplitSelectorFromArgs(req.Positionals, true)
	node, nodes, derr := resolveInteractionTarget(ctx, d, sess, adapter, raw, true)
	if derr != nil {
		return nil, derr
	}

	var warnings []string
	if !snapshot.IsFillableType(node.Type, sess.Device.Platform) {
		warnings = append(warnings, "target type "+node.Type+" is not normally fillable on this platform")
	}

	x, y := node.Rect.Center()
	lockErr := withDeviceLock(ctx, d, sess.Device, func() *domain.Error {
		if err := adapter.Tap(ctx, sess.Device, x, y); err != nil {
			return domain.NewError(domain.ErrCommandFailed, err.Error())
		}
		if err := adapter.TypeText(ctx, sess.Device, value); err != nil {
			return domain.NewError(domain.ErrCommandFailed, err.Error())
		}
		return nil
	})
	if lockErr != nil {
		return nil, lockErr
	}

	result := actionResultFor(raw, node, nodes, x, y)
	result.Warnings = warnings
	recordAction(d, sess, req, result)
	return map[string]interface{}{"ref": node.ExternalRef(), "value": value, "warnings": warnings}, nil
}

func handleGet(ctx context.Context, d *Deps, sessName string, req domain.Request) (map[string]interface{}, *domain.Error) {
	sess, adapter, derr := sessionAndAdapter(d, sessName)
	if derr != nil {
		return nil, derr
	}
	if len(req.Positionals) < 2 {
		return nil, domain.NewError(domain.ErrInvalidArgs, "get requires a target and a field (text|attrs)")
	}
	field := req.Positionals[len(req.Positionals)-1]
	raw := strings.Join(req.Positionals[:len(req.Positionals)-1], " ")

	node, _, derr := resolveInteractionTarget(ctx, d, sess, adapter, raw, false)
	if derr != nil {
		return nil, derr
	}

	switch field {
	case "text":
		return map[string]interface{}{"text": snapshot.ExtractNodeText(node)}, nil
	case "attrs":
		return map[string]interface{}{
			"ref":        node.ExternalRef(),
			"type":       node.Type,
			"label":      node.Label,
			"value":      node.Value,
			"identifier": node.Identifier,
			"enabled":    node.IsEnabled(),
			"selected":   node.IsSelected(),
			"hittable":   node.IsHittable(),
			"rect":       node.Rect,
		}, nil
	default:
		return nil, domain.NewError(domain.ErrInvalidArgs, "unknown get field "+field+" (expected text or attrs)")
	}
}

func handleIs(ctx context.Context, d *Deps, sessName string, req domain.Request) (map[string]interface{}, *domain.Error) {
	sess, adapter, derr := sessionAndAdapter(d, sessName)
	if derr != nil {
		return nil, derr
	}
	if len(req.Positionals) < 2 {
		return nil, domain.NewError(domain.ErrInvalidArgs, "is requires a target and a predicate")
	}
	predicate := req.Positionals[len(req.Positionals)-1]
	raw := strings.Join(req.Positionals[:len(req.Positionals)-1], " ")

	node, _, derr := resolveInteractionTarget(ctx, d, sess, adapter, raw, false)
	if derr != nil {
		if predicate == "exists" {
			return map[string]interface{}{"result": false}, nil
		}
		return nil, derr
	}

	var result bool
	switch predicate {
	case "exists":
		result = true
	case "visible":
		result = selector.MatchesTerm(node, domain.Term{Key: domain.TermVisible, Value: true}, sess.Device.Platform)
	case "hidden":
		result = selector.MatchesTerm(node, domain.Term{Key: domain.TermHidden, Value: true}, sess.Device.Platform)
	case "editable":
		result = selector.MatchesTerm(node, domain.Term{Key: domain.TermEditable, Value: true}, sess.Device.Platform)
	case "selected":
		result = selector.MatchesTerm(node, domain.Term{Key: domain.TermSelected, Value: true}, sess.Device.Platform)
	case "enabled":
		result = selector.MatchesTerm(node, domain.Term{Key: domain.TermEnabled, Value: true}, sess.Device.Platform)
	case "hittable":
		result = selector.MatchesTerm(node, domain.Term{Key: domain.TermHittable, Value: true}, sess.Device.Platform)
	default:
		return nil, domain.NewError(domain.ErrInvalidArgs, "unknown predicate "+predicate)
	}
	return map[string]interface{}{"result": result}, nil
}
