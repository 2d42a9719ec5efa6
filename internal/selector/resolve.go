package selector

import (
	"fmt"

	"github.com/agentdevice/agent-device/internal/domain"
)

// ResolveOptions configures resolveSelectorChain's disambiguation policy.
type ResolveOptions struct {
	// RequireRect drops candidates with no on-screen rectangle before
	// uniqueness/disambiguation is evaluated (interaction handlers set
	// this; `is`/`get` predicate checks do not).
	RequireRect bool
	// Platform is the session's device platform, threaded into term
	// matching for role normalization and editable/fillability checks.
	Platform domain.Platform
}

// ResolveResult carries the winning node (if any), the selector string
// that matched it, and per-selector diagnostics for AMBIGUOUS_MATCH /
// not-found error reporting.
type ResolveResult struct {
	Node        domain.Node
	Found       bool
	MatchedBy   string
	Diagnostics []domain.SelectorDiagnostic
}

// ResolveSelectorChain evaluates each selector in chain in order,
// stopping at the first that yields candidates. Multiple candidates are
// disambiguated by smallest rectangle area; a tie (equal smallest area),
// or any candidate without a rect, is AMBIGUOUS_MATCH.
func ResolveSelectorChain(nodes []domain.Node, chain domain.SelectorChain, opts ResolveOptions) (ResolveResult, *domain.Error) {
	var diags []domain.SelectorDiagnostic

	for _, sel := range chain.Selectors {
		candidates := CandidatesForSelector(nodes, sel, opts.Platform)
		if opts.RequireRect {
			candidates = filterHasRect(candidates)
		}
		diags = append(diags, domain.SelectorDiagnostic{Selector: sel.Raw, Matches: len(candidates)})

		if len(candidates) == 0 {
			continue
		}
		if len(candidates) == 1 {
			return ResolveResult{Node: candidates[0], Found: true, MatchedBy: sel.Raw, Diagnostics: diags}, nil
		}

		winner, ok := disambiguateBySmallestArea(candidates)
		if !ok {
			return ResolveResult{Diagnostics: diags}, domain.NewError(domain.ErrAmbiguousMatch,
				fmt.Sprintf("selector %q matched %d nodes with no unique smallest-area winner", sel.Raw, len(candidates))).
				WithDetails(map[string]interface{}{"selector": sel.Raw, "matches": len(candidates)})
		}
		return ResolveResult{Node: winner, Found: true, MatchedBy: sel.Raw, Diagnostics: diags}, nil
	}

	return ResolveResult{Diagnostics: diags}, nil
}

func filterHasRect(nodes []domain.Node) []domain.Node {
	out := make([]domain.Node, 0, len(nodes))
	for _, n := range nodes {
		if n.Rect != nil {
			out = append(out, n)
		}
	}
	return out
}

// disambiguateBySmallestArea returns the single candidate with strictly
// smallest rect area. Ties, or candidates missing rects, fail
// disambiguation (ok=false).
func disambiguateBySmallestArea(candidates []domain.Node) (domain.Node, bool) {
	for _, c := range candidates {
		if c.Rect == nil {
			return domain.Node{}, false
		}
	}

	best := candidates[0]
	bestArea := best.Rect.Area()
	tied := false
	for _, c := range candidates[1:] {
		area := c.Rect.Area()
		switch {
		case area < bestArea:
			best = c
			bestArea = area
			tied = false
		case area == bestArea:
			tied = true
		}
	}
	if tied {
		return domain.Node{}, false
	}
	return best, true
}

// FindSelectorChainMatch is ResolveSelectorChain without the rect
// requirement, used by `is`/`get` predicate evaluation where a node
// without geometry still answers truthfully.
func FindSelectorChainMatch(nodes []domain.Node, chain domain.SelectorChain, platform domain.Platform) (ResolveResult, *domain.Error) {
	return ResolveSelectorChain(nodes, chain, ResolveOptions{RequireRect: false, Platform: platform})
}
