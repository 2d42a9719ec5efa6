package handlers

import (
	"context"
	"strconv"
	"time"

	"github.com/agentdevice/agent-device/internal/domain"
)

// handleWait implements the top-level `wait` command of spec.md §4.G: a
// pure numeric target with no second positional sleeps for that many
// milliseconds; anything else is treated exactly like `find <target>
// wait`, polling a selector chain or fuzzy text match against the
// current interactive snapshot until it appears or timeoutMs elapses.
func handleWait(ctx context.Context, d *Deps, sessName string, req domain.Request) (map[string]interface{}, *domain.Error) {
	if len(req.Positionals) < 1 {
		return nil, domain.NewError(domain.ErrInvalidArgs, "wait requires a duration, selector, or text target")
	}

	if n, err := strconv.Atoi(req.Positionals[0]); err == nil && len(req.Positionals) == 1 {
		sess, _, derr := sessionAndAdapter(d, sessName)
		if derr != nil {
			return nil, derr
		}
		timer := d.Clock.Timer(time.Duration(n) * time.Millisecond)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, domain.NewError(domain.ErrCanceled, "request canceled")
		case <-timer.C:
		}
		recordAction(d, sess, req, nil)
		return map[string]interface{}{"waitedMs": n}, nil
	}

	findReq := req
	findReq.Positionals = append([]string{req.Positionals[0], "wait"}, req.Positionals[1:]...)
	return handleFind(ctx, d, sessName, findReq)
}
