package selector

import (
	"strings"

	"github.com/agentdevice/agent-device/internal/domain"
	"github.com/agentdevice/agent-device/internal/snapshot"
)

// collapse lowercases and collapses internal whitespace runs to a single
// space, trimming the ends — the normalization spec.md §4.B specifies for
// id/label/value/text equality.
func collapse(s string) string {
	fields := strings.Fields(s)
	return strings.ToLower(strings.Join(fields, " "))
}

// MatchesTerm reports whether node n satisfies a single term, evaluated
// against platform (role/editable normalization and fillability are
// platform-dependent; spec.md §4.B).
func MatchesTerm(n domain.Node, term domain.Term, platform domain.Platform) bool {
	switch term.Key {
	case domain.TermID:
		return collapse(n.Identifier) == collapse(asString(term.Value))
	case domain.TermLabel:
		return collapse(n.Label) == collapse(asString(term.Value))
	case domain.TermValue:
		return collapse(n.Value) == collapse(asString(term.Value))
	case domain.TermText:
		return collapse(snapshot.ExtractNodeText(n)) == collapse(asString(term.Value))
	case domain.TermRole:
		return snapshot.NormalizeType(n.Type) == snapshot.NormalizeType(asString(term.Value))
	case domain.TermVisible:
		return isVisible(n) == asBool(term.Value)
	case domain.TermHidden:
		return !isVisible(n) == asBool(term.Value)
	case domain.TermEditable:
		return isEditable(n, platform) == asBool(term.Value)
	case domain.TermSelected:
		return n.IsSelected() == asBool(term.Value)
	case domain.TermEnabled:
		return n.IsEnabled() == asBool(term.Value)
	case domain.TermHittable:
		return n.IsHittable() == asBool(term.Value)
	default:
		return false
	}
}

// isVisible implements spec.md §4.B's visibility predicate: hittable, or a
// rectangle that actually occupies screen area (a present-but-zero-area
// Rect, legal per domain.Rect's own doc comment, does not count).
func isVisible(n domain.Node) bool {
	return n.IsHittable() || (n.Rect != nil && n.Rect.Area() > 0)
}

// isEditable implements spec.md §4.B's editable predicate: a fillable type
// for platform that is also currently enabled.
func isEditable(n domain.Node, platform domain.Platform) bool {
	return snapshot.IsFillableType(n.Type, platform) && n.IsEnabled()
}

// MatchesSelector reports whether n satisfies every term in sel (AND).
func MatchesSelector(n domain.Node, sel domain.Selector, platform domain.Platform) bool {
	for _, term := range sel.Terms {
		if !MatchesTerm(n, term, platform) {
			return false
		}
	}
	return true
}

// CandidatesForSelector returns every node in nodes matching sel, in
// snapshot order.
func CandidatesForSelector(nodes []domain.Node, sel domain.Selector, platform domain.Platform) []domain.Node {
	var out []domain.Node
	for _, n := range nodes {
		if MatchesSelector(n, sel, platform) {
			out = append(out, n)
		}
	}
	return out
}

func asString(v interface{}) string {
	s, _ := v.(string)
	return s
}

func asBool(v interface{}) bool {
	b, _ := v.(bool)
	return b
}
