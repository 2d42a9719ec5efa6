package handlers

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/agentdevice/agent-device/internal/domain"
	"github.com/agentdevice/agent-device/internal/platform"
	"github.com/agentdevice/agent-device/internal/selector"
	"github.com/agentdevice/agent-device/internal/store"
)

// replayableSteps excludes the handful of commands a `.ad` script can
// never usefully re-execute at replay time: `context` records only the
// device binding a recording started against, and recording/tracing/
// replay controls don't make sense nested inside another replay.
var replayableSteps = map[string]bool{
	"context": false,
	"record":  false,
	"trace":   false,
	"replay":  false,
}

// handleReplay implements `replay <path> [--update]` (spec.md §4.G/§7):
// every recorded line is re-dispatched in order through Dispatch, so it
// gets the same session/device-lock/retry treatment any live command
// would. A line that fails because its target selector went stale is, if
// --update was passed, given one chance to heal against the current
// snapshot before the whole replay is declared failed; a successful heal
// rewrites the `.ad` file in place.
func handleReplay(ctx context.Context, d *Deps, sessName string, req domain.Request) (map[string]interface{}, *domain.Error) {
	sess, adapter, derr := sessionAndAdapter(d, sessName)
	if derr != nil {
		return nil, derr
	}
	if len(req.Positionals) < 1 {
		return nil, domain.NewError(domain.ErrInvalidArgs, "replay requires a script path")
	}
	path := req.Positionals[0]
	update := flagBool(req.Flags, "replayUpdate")

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, domain.NewError(domain.ErrInvalidArgs, "failed to read script "+path+": "+err.Error())
	}
	lines, err := store.ParseScript(string(raw))
	if err != nil {
		return nil, domain.NewError(domain.ErrInvalidArgs, "failed to parse script "+path+": "+err.Error())
	}

	replayed := 0
	healed := 0
	rewritten := make([]store.ScriptLine, 0, len(lines))
	dirty := false

	for i, line := range lines {
		if replayable, known := replayableSteps[line.Command]; known && !replayable {
			rewritten = append(rewritten, line)
			continue
		}
		if !domain.KnownCommands[line.Command] {
			return nil, domain.NewError(domain.ErrInvalidArgs, "unknown command "+line.Command+" in script").
				WithDetails(map[string]interface{}{"replayPath": path, "step": i, "action": line.Command})
		}

		stepReq := domain.Request{
			Token:       req.Token,
			Session:     req.Session,
			Command:     line.Command,
			Positionals: append([]string(nil), line.Args...),
			Flags:       map[string]interface{}{"noRecord": true},
			Meta:        req.Meta,
		}

		resp := Dispatch(ctx, d, stepReq)
		if resp.OK {
			replayed++
			rewritten = append(rewritten, line)
			continue
		}

		if !update {
			return nil, resp.Error.WithDetails(map[string]interface{}{
				"replayPath": path, "step": i, "action": line.Command, "positionals": line.Args,
			})
		}

		healedLine, herr := attemptHeal(ctx, d, sess, adapter, line)
		if herr != nil {
			return nil, herr.WithDetails(map[string]interface{}{
				"replayPath": path, "step": i, "action": line.Command, "positionals": line.Args,
			})
		}

		healStepReq := stepReq
		healStepReq.Positionals = append([]string(nil), healedLine.Args...)
		healResp := Dispatch(ctx, d, healStepReq)
		if !healResp.OK {
			return nil, healResp.Error.WithDetails(map[string]interface{}{
				"replayPath": path, "step": i, "action": line.Command, "positionals": healedLine.Args,
			})
		}

		healed++
		replayed++
		rewritten = append(rewritten, healedLine)
		dirty = true
	}

	if update && dirty {
		if err := rewriteScriptAtomic(path, rewritten); err != nil {
			return nil, domain.NewError(domain.ErrCommandFailed, "replay succeeded but failed to rewrite script: "+err.Error())
		}
	}

	return map[string]interface{}{"replayed": replayed, "healed": healed, "total": len(lines)}, nil
}

// attemptHeal re-resolves a stale script line's target against a fresh
// snapshot, trying each candidate text the old selector chain carried
// (identifier, label, text, value, in that preference order) as a probe
// selector until one resolves to a node (a single match, or the unique
// smallest-area node among several; outside is/get/exists only nodes
// with a rect count); it then synthesizes a fresh canonical chain for
// that node via
// selector.BuildSelectorChainForNode, the same routine record-time
// emission uses.
func attemptHeal(ctx context.Context, d *Deps, sess *domain.Session, adapter platform.Adapter, line store.ScriptLine) (store.ScriptLine, *domain.Error) {
	if len(line.Args) == 0 {
		return store.ScriptLine{}, domain.NewError(domain.ErrCommandFailed, "cannot heal a line with no target argument")
	}
	staleRaw := line.Args[0]
	chain, perr := selector.ParseChain(staleRaw)
	if perr != nil {
		return store.ScriptLine{}, domain.NewError(domain.ErrCommandFailed, "target is not a selector chain and cannot be healed: "+staleRaw)
	}

	nodes, derr := freshInteractiveNodes(ctx, d, sess, adapter)
	if derr != nil {
		return store.ScriptLine{}, derr
	}

	requireRect := line.Command != "is" && line.Command != "get" && line.Command != "exists"
	forFill := line.Command == "fill"

	for _, candidate := range healCandidateTexts(chain) {
		for _, key := range []string{"id", "label", "text", "value"} {
			probeRaw := key + "=" + selector.QuoteIfNeeded(candidate)
			probeChain, err := selector.ParseChain(probeRaw)
			if err != nil {
				continue
			}
			res, rerr := selector.ResolveSelectorChain(nodes, probeChain, selector.ResolveOptions{RequireRect: requireRect, Platform: sess.Device.Platform})
			if rerr != nil || !res.Found {
				continue
			}
			healedChain := selector.BuildSelectorChainForNode(res.Node, nodes, forFill)
			newArgs := append([]string{healedChain.Raw}, line.Args[1:]...)
			return store.ScriptLine{Command: line.Command, Args: newArgs}, nil
		}
	}

	return store.ScriptLine{}, domain.NewError(domain.ErrCommandFailed, "no candidate on the current screen matched the stale target "+staleRaw).
		WithDetails(map[string]interface{}{"reason": "HEAL_NO_CANDIDATE"})
}

// healCandidateTexts extracts every literal string value carried by
// chain's id/label/text/value terms, in the order the terms appear in
// the chain, deduplicated and with surrounding whitespace trimmed.
func healCandidateTexts(chain domain.SelectorChain) []string {
	seen := map[string]bool{}
	var out []string
	add := func(v interface{}) {
		s, ok := v.(string)
		if !ok {
			return
		}
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			return
		}
		seen[s] = true
		out = append(out, s)
	}
	for _, sel := range chain.Selectors {
		for _, term := range sel.Terms {
			switch term.Key {
			case domain.TermID, domain.TermLabel, domain.TermText, domain.TermValue:
				add(term.Value)
			}
		}
	}
	return out
}

// rewriteScriptAtomic re-renders lines to text and replaces path's
// contents via a temp-file-plus-rename, so a crash mid-write never
// leaves a half-written `.ad` script behind.
func rewriteScriptAtomic(path string, lines []store.ScriptLine) error {
	var b strings.Builder
	for _, line := range lines {
		b.WriteString(line.Command)
		for _, a := range line.Args {
			b.WriteByte(' ')
			b.WriteString(store.QuoteArg(a))
		}
		b.WriteByte('\n')
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".replay-heal-*.ad.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.WriteString(b.String()); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return os.Rename(tmpPath, path)
}
