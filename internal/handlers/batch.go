package handlers

import (
	"context"

	"github.com/agentdevice/agent-device/internal/domain"
)

// handleBatch implements the top-level `batch` command of spec.md §4.G:
// each entry in the `steps` flag is dispatched in order through the same
// Dispatch path a standalone request would take, so every session check,
// device lock, and recording rule applies identically. Execution stops
// at the first failing step; the response carries how far it got so a
// caller can resume or report precisely.
func handleBatch(ctx context.Context, d *Deps, req domain.Request) (map[string]interface{}, *domain.Error) {
	rawSteps, ok := req.Flags["steps"].([]interface{})
	if !ok || len(rawSteps) == 0 {
		return nil, domain.NewError(domain.ErrInvalidArgs, "batch requires a non-empty steps array")
	}

	results := make([]map[string]interface{}, 0, len(rawSteps))
	for i, raw := range rawSteps {
		stepMap, ok := raw.(map[string]interface{})
		if !ok {
			return nil, domain.NewError(domain.ErrInvalidArgs, "batch step is not an object").
				WithDetails(map[string]interface{}{"step": i})
		}

		stepReq, perr := batchStepRequest(req, stepMap)
		if perr != nil {
			return nil, perr.WithDetails(map[string]interface{}{"step": i})
		}

		resp := Dispatch(ctx, d, stepReq)
		if !resp.OK {
			err := resp.Error
			if err == nil {
				err = domain.NewError(domain.ErrCommandFailed, "batch step failed")
			}
			return nil, err.WithDetails(map[string]interface{}{
				"step":           i,
				"command":        stepReq.Command,
				"executed":       i,
				"total":          len(rawSteps),
				"partialResults": results,
			})
		}
		results = append(results, resp.Data)
	}

	return map[string]interface{}{"results": results, "total": len(rawSteps)}, nil
}

// batchStepRequest builds the child Request for one batch step, carrying
// the parent's token and falling back to the parent's session name when
// the step doesn't name its own.
func batchStepRequest(parent domain.Request, step map[string]interface{}) (domain.Request, *domain.Error) {
	command, _ := step["command"].(string)
	if command == "" {
		return domain.Request{}, domain.NewError(domain.ErrInvalidArgs, "batch step is missing a command")
	}
	if !domain.KnownCommands[command] {
		return domain.Request{}, domain.NewError(domain.ErrInvalidArgs, "unknown command "+command)
	}

	session, _ := step["session"].(string)
	if session == "" {
		session = parent.Session
	}

	var positionals []string
	if rawPos, ok := step["positionals"].([]interface{}); ok {
		for _, p := range rawPos {
			if s, ok := p.(string); ok {
				positionals = append(positionals, s)
			}
		}
	}

	flags, _ := step["flags"].(map[string]interface{})

	return domain.Request{
		Token:       parent.Token,
		Session:     session,
		Command:     command,
		Positionals: positionals,
		Flags:       flags,
		Meta:        parent.Meta,
	}, nil
}
