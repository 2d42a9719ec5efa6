package handlers

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/agentdevice/agent-device/internal/domain"
	"github.com/agentdevice/agent-device/internal/selector"
	"github.com/agentdevice/agent-device/internal/snapshot"
)

// looksLikeSelector reports whether raw parses as a key=value selector
// chain rather than free text to fuzzy-match against on-screen labels.
func looksLikeSelector(raw string) bool {
	_, err := selector.ParseChain(raw)
	return err == nil
}

// bestTextMatch finds the node whose visible text best matches query:
// an exact case-insensitive match beats a substring match, and ties are
// broken toward the smallest on-screen rectangle (the most specific
// element, mirroring selector.disambiguateBySmallestArea).
func bestTextMatch(nodes []domain.Node, query string) (domain.Node, bool) {
	q := strings.ToLower(strings.TrimSpace(query))
	var best domain.Node
	found := false
	bestScore := 0
	for _, n := range nodes {
		text := strings.ToLower(snapshot.ExtractNodeText(n))
		if text == "" {
			continue
		}
		score := 0
		switch {
		case text == q:
			score = 2
		case strings.Contains(text, q):
			score = 1
		default:
			continue
		}
		if !found || score > bestScore {
			best, found, bestScore = n, true, score
			continue
		}
		if score == bestScore && n.Rect != nil && best.Rect != nil && n.Rect.Area() < best.Rect.Area() {
			best = n
		}
	}
	return best, found
}

// handleFind implements `find <query> [action] [args...]`: query is
// tried as a selector chain first and falls back to fuzzy text
// matching against the current interactive snapshot. Supported actions
// are click (default), focus, fill/type <value>, get text|attrs,
// wait [timeoutMs], and exists.
func handleFind(ctx context.Context, d *Deps, sessName string, req domain.Request) (map[string]interface{}, *domain.Error) {
	sess, adapter, derr := sessionAndAdapter(d, sessName)
	if derr != nil {
		return nil, derr
	}
	if len(req.Positionals) < 1 {
		return nil, domain.NewError(domain.ErrInvalidArgs, "find requires a query")
	}
	query := req.Positionals[0]
	rest := req.Positionals[1:]

	action := "click"
	var actionArgs []string
	if len(rest) > 0 {
		action = rest[0]
		actionArgs = rest[1:]
	}
	requireRect := action != "exists" && action != "wait"

	findOnce := func() (domain.Node, []domain.Node, *domain.Error) {
		if looksLikeSelector(query) {
			return resolveInteractionTarget(ctx, d, sess, adapter, query, requireRect)
		}
		nodes, derr := freshInteractiveNodes(ctx, d, sess, adapter)
		if derr != nil {
			return domain.Node{}, nil, derr
		}
		node, ok := bestTextMatch(nodes, query)
		if !ok {
			return domain.Node{}, nil, domain.NewError(domain.ErrInvalidArgs, "no element matched text "+query)
		}
		if requireRect && node.Rect == nil {
			return domain.Node{}, nil, domain.NewError(domain.ErrCommandFailed, "target has no on-screen rectangle")
		}
		return node, nodes, nil
	}

	switch action {
	case "exists":
		_, _, derr := findOnce()
		return map[string]interface{}{"result": derr == nil}, nil

	case "wait":
		timeoutMs := 10000
		if len(actionArgs) > 0 {
			if n, err := strconv.Atoi(actionArgs[0]); err == nil {
				timeoutMs = n
			}
		}
		deadline := d.Clock.Now().Add(time.Duration(timeoutMs) * time.Millisecond)
		for {
			node, _, derr := findOnce()
			if derr == nil {
				return map[string]interface{}{"ref": node.ExternalRef(), "found": true}, nil
			}
			if !d.Clock.Now().Before(deadline) {
				return nil, domain.NewError(domain.ErrCommandFailed, "timed out waiting for "+query)
			}
			t := d.Clock.Timer(300 * time.Millisecond)
			select {
			case <-ctx.Done():
				t.Stop()
				return nil, domain.NewError(domain.ErrCanceled, "request canceled")
			case <-t.C:
			}
		}
	}

	node, nodes, derr := findOnce()
	if derr != nil {
		return nil, derr
	}

	switch action {
	case "click", "focus":
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
		recordAction(d, sess, req, actionResultFor(query, node, nodes, x, y))
		return map[string]interface{}{"ref": node.ExternalRef(), "x": x, "y": y}, nil

	case "fill", "type":
		if len(actionArgs) < 1 {
			return nil, domain.NewError(domain.ErrInvalidArgs, action+" requires a value")
		}
		value := strings.Join(actionArgs, " ")
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
		recordAction(d, sess, req, actionResultFor(query, node, nodes, x, y))
		return map[string]interface{}{"ref": node.ExternalRef(), "value": value}, nil

	case "get":
		if len(actionArgs) < 1 {
			return nil, domain.NewError(domain.ErrInvalidArgs, "get requires a field (text|attrs)")
		}
		switch actionArgs[0] {
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
			return nil, domain.NewError(domain.ErrInvalidArgs, "unknown get field "+actionArgs[0])
		}

	default:
		return nil, domain.NewError(domain.ErrInvalidArgs, "unknown find action "+action)
	}
}
