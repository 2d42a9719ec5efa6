package handlers

import (
	"context"

	"github.com/agentdevice/agent-device/internal/diffengine"
	"github.com/agentdevice/agent-device/internal/domain"
	"github.com/agentdevice/agent-device/internal/platform"
	"github.com/agentdevice/agent-device/internal/snapshot"
)

// snapshotOptionsFromFlags builds platform.SnapshotOptions from a
// request's snapshot* flag set (spec.md §6).
func snapshotOptionsFromFlags(flags map[string]interface{}) platform.SnapshotOptions {
	return platform.SnapshotOptions{
		InteractiveOnly: flagBool(flags, "snapshotInteractiveOnly"),
		Compact:         flagBool(flags, "snapshotCompact"),
		Depth:           flagInt(flags, "snapshotDepth", 0),
		Scope:           flagString(flags, "snapshotScope"),
		Raw:             flagBool(flags, "snapshotRaw"),
	}
}

// captureSnapshot locks device, captures raw nodes through adapter, and
// normalizes them (pruning empty group wrappers and attaching refs,
// unless raw was requested).
func captureSnapshot(ctx context.Context, d *Deps, adapter platform.Adapter, device domain.Device, opts platform.SnapshotOptions) ([]domain.Node, domain.Backend, *domain.Error) {
	var raw []domain.RawNode
	var backend domain.Backend

	lockErr := withDeviceLock(ctx, d, device, func() *domain.Error {
		nodes, be, err := adapter.Snapshot(ctx, device, opts)
		if err != nil {
			return domain.NewError(domain.ErrCommandFailed, err.Error()).
				WithDetails(map[string]interface{}{"reason": "EMPTY_SNAPSHOT"})
		}
		raw = nodes
		backend = be
		return nil
	})
	if lockErr != nil {
		return nil, "", lockErr
	}
	if len(raw) == 0 {
		return nil, "", domain.NewError(domain.ErrCommandFailed, "snapshot returned no nodes").
			WithDetails(map[string]interface{}{"reason": "EMPTY_SNAPSHOT"})
	}

	if opts.Raw {
		return snapshot.AttachRefs(raw), backend, nil
	}
	return snapshot.AttachRefs(snapshot.PruneGroupNodes(raw)), backend, nil
}

func handleSnapshot(ctx context.Context, d *Deps, sessName string, req domain.Request) (map[string]interface{}, *domain.Error) {
	sess, adapter, derr := sessionAndAdapter(d, sessName)
	if derr != nil {
		return nil, derr
	}

	opts := snapshotOptionsFromFlags(req.Flags)
	nodes, backend, derr := captureSnapshot(ctx, d, adapter, sess.Device, opts)
	if derr != nil {
		return nil, derr
	}

	sess.Snapshot = &domain.Snapshot{Nodes: nodes, CreatedAt: d.Clock.Now(), Backend: backend}
	recordAction(d, sess, req, nil)
	return map[string]interface{}{"nodes": nodes, "backend": string(backend), "count": len(nodes)}, nil
}

// handleDiff captures a fresh snapshot and diffs it against the
// session's prior baseline, then replaces the baseline (spec.md §4.C).
func handleDiff(ctx context.Context, d *Deps, sessName string, req domain.Request) (map[string]interface{}, *domain.Error) {
	sess, adapter, derr := sessionAndAdapter(d, sessName)
	if derr != nil {
		return nil, derr
	}
	if sess.Snapshot == nil {
		return nil, domain.NewError(domain.ErrInvalidArgs, "no baseline snapshot for this session; call `snapshot` first")
	}
	prev := sess.Snapshot

	opts := snapshotOptionsFromFlags(req.Flags)
	nodes, backend, derr := captureSnapshot(ctx, d, adapter, sess.Device, opts)
	if derr != nil {
		return nil, derr
	}

	diff := diffengine.Diff(prev.Nodes, nodes)
	sess.Snapshot = &domain.Snapshot{Nodes: nodes, CreatedAt: d.Clock.Now(), Backend: backend}
	recordAction(d, sess, req, nil)
	return map[string]interface{}{"diff": diff, "summary": diffengine.Stringify(diff)}, nil
}
