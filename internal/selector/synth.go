package selector

import (
	"fmt"
	"strings"

	"github.com/agentdevice/agent-device/internal/domain"
	"github.com/agentdevice/agent-device/internal/snapshot"
)

// BuildSelectorChainForNode synthesizes the canonical selector used to
// heal a stale `@ref` or record it into a `.ad` script, per spec.md
// §4.D's ordered preference list: id, then label, then text, then role+
// value, finally role alone as the last-resort fallback in the chain.
// forFill appends an `editable=true` term so healed fill targets don't
// drift onto a same-labeled non-editable node.
func BuildSelectorChainForNode(node domain.Node, allNodes []domain.Node, forFill bool) domain.SelectorChain {
	var primary string

	switch {
	case node.Identifier != "":
		primary = fmt.Sprintf("id=%s", quoteIfNeeded(node.Identifier))
	case node.Label != "":
		primary = fmt.Sprintf("label=%s", quoteIfNeeded(node.Label))
	case snapshot.ExtractNodeText(node) != "":
		primary = fmt.Sprintf("text=%s", quoteIfNeeded(snapshot.ExtractNodeText(node)))
	case node.Value != "":
		primary = fmt.Sprintf("role=%s value=%s", node.Type, quoteIfNeeded(node.Value))
	default:
		primary = fmt.Sprintf("role=%s", node.Type)
	}

	if forFill {
		primary = primary + " editable=true"
	}

	selectors := []string{primary}
	if primary != fmt.Sprintf("role=%s", node.Type) {
		selectors = append(selectors, fmt.Sprintf("role=%s", node.Type))
	}

	raw := strings.Join(selectors, " || ")
	chain, err := ParseChain(raw)
	if err != nil {
		// The inputs above are always well-formed; a parse failure here
		// means a value needs quoting we didn't apply. Fall back to a
		// role-only selector, which always parses.
		chain, _ = ParseChain(fmt.Sprintf("role=%s", node.Type))
	}
	return chain
}

// QuoteIfNeeded exposes quoteIfNeeded to callers outside this package
// that synthesize selector expressions of their own (replay healing
// builds `key=value` probes term-by-term before a full chain exists).
func QuoteIfNeeded(s string) string {
	return quoteIfNeeded(s)
}

// quoteIfNeeded wraps a value in double quotes (escaping embedded quotes)
// when it contains a space, tab, quote, '=' or the `||` operator; otherwise
// returns it unquoted.
func quoteIfNeeded(s string) string {
	if s == "" {
		return `""`
	}
	needsQuote := strings.ContainsAny(s, " \t\"'=") || strings.Contains(s, "||")
	if !needsQuote {
		return s
	}
	escaped := strings.ReplaceAll(s, `"`, `\"`)
	return `"` + escaped + `"`
}
