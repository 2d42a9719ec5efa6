// Package snapshot normalizes raw accessibility trees from a platform
// adapter into the flat, ref-indexed domain.Snapshot the rest of the
// daemon operates on (spec.md §4.A).
package snapshot

import (
	"strconv"
	"strings"

	"github.com/agentdevice/agent-device/internal/domain"
)

// typePrefixes are stripped from a raw node type before lowercasing,
// mirroring the teacher's runtime-identifier trimming in
// simulator.parseRuntimeName, generalized to element type names.
var typePrefixes = []string{"XCUIElementType"}

// NormalizeType strips platform-specific prefixes, lowercases, and keeps
// the segment after the last '.' or '/' — e.g. "android.widget.Button" ->
// "button", "XCUIElementTypeTextField" -> "textfield".
func NormalizeType(t string) string {
	for _, p := range typePrefixes {
		t = strings.TrimPrefix(t, p)
	}
	if i := strings.LastIndexAny(t, "./"); i >= 0 {
		t = t[i+1:]
	}
	return strings.ToLower(t)
}

// IsFillableType reports whether a normalized type accepts text input on
// the given platform.
func IsFillableType(normalizedType string, platform domain.Platform) bool {
	switch platform {
	case domain.PlatformAndroid:
		switch normalizedType {
		case "edittext", "autocompletetextview":
			return true
		}
		return false
	case domain.PlatformIOS:
		switch normalizedType {
		case "textfield", "securetextfield", "searchfield", "textview", "textarea", "search":
			return true
		}
		return false
	default:
		return false
	}
}

// isMeaningful rejects empty, purely-numeric, and boolean-literal text —
// the shared "has real content" predicate used by pruning and labeling.
func isMeaningful(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	if strings.EqualFold(s, "true") || strings.EqualFold(s, "false") {
		return false
	}
	if _, err := strconv.ParseFloat(s, 64); err == nil {
		return false
	}
	return true
}

// BestDisplayText returns the first meaningful of label, value,
// identifier, or "" if none qualify.
func BestDisplayText(label, value, identifier string) string {
	for _, s := range []string{label, value, identifier} {
		if isMeaningful(s) {
			return s
		}
	}
	return ""
}

// PruneGroupNodes removes semantically empty "group"/"ioscontentgroup"
// wrapper nodes (no meaningful displayable text), rebalancing descendant
// depths by the count of pruned ancestors above them. Order of kept
// nodes is preserved (prune monotonicity, spec.md §8).
func PruneGroupNodes(raw []domain.RawNode) []domain.RawNode {
	kept := make([]domain.RawNode, 0, len(raw))
	// oldIndex -> number of pruned ancestors strictly above it (inclusive
	// counting handled via running prefix as we walk preorder).
	prunedAbove := make(map[int]int)
	// oldIndex -> new index, once kept (absent if dropped).
	newIndexOf := make(map[int]int)
	// oldIndex of a dropped node -> new index of its nearest kept
	// ancestor (absent if it has none).
	survivorOf := make(map[int]int)

	for _, n := range raw {
		ancestorPruneCount := 0
		if n.ParentIndex != nil {
			ancestorPruneCount = prunedAbove[*n.ParentIndex]
		}

		normType := NormalizeType(n.Type)
		isGroup := normType == "group" || normType == "ioscontentgroup"
		text := BestDisplayText(n.Label, n.Value, n.Identifier)
		drop := isGroup && text == ""

		if drop {
			// This node is pruned: its children inherit one more pruned
			// ancestor than it itself carried.
			prunedAbove[n.Index] = ancestorPruneCount + 1
			if n.ParentIndex != nil {
				if np, ok := newIndexOf[*n.ParentIndex]; ok {
					survivorOf[n.Index] = np
				} else if np, ok := survivorOf[*n.ParentIndex]; ok {
					survivorOf[n.Index] = np
				}
			}
			continue
		}

		prunedAbove[n.Index] = ancestorPruneCount

		adjusted := n
		adjusted.Depth = n.Depth - ancestorPruneCount
		if adjusted.Depth < 0 {
			adjusted.Depth = 0
		}
		if n.ParentIndex != nil {
			if newParent, ok := newIndexOf[*n.ParentIndex]; ok {
				np := newParent
				adjusted.ParentIndex = &np
			} else if newParent, ok := survivorOf[*n.ParentIndex]; ok {
				np := newParent
				adjusted.ParentIndex = &np
			} else {
				adjusted.ParentIndex = nil
			}
		}
		newIndexOf[n.Index] = len(kept)
		adjusted.Index = len(kept)
		kept = append(kept, adjusted)
	}

	return kept
}

// AttachRefs assigns stable-within-this-snapshot refs ("e1", "e2", ...)
// in final-list order and normalizes missing depth to 0. Refs carry no
// cross-snapshot identity (spec.md's Open Question decision: snapshot-
// local only).
func AttachRefs(raw []domain.RawNode) []domain.Node {
	nodes := make([]domain.Node, 0, len(raw))
	for i, n := range raw {
		depth := n.Depth
		if depth < 0 {
			depth = 0
		}
		node := domain.Node{
			Index:       i,
			ParentIndex: n.ParentIndex,
			Depth:       depth,
			Ref:         "e" + strconv.Itoa(i+1),
			Type:        NormalizeType(n.Type),
			Label:       n.Label,
			Value:       n.Value,
			Identifier:  n.Identifier,
			Rect:        n.Rect,
			Enabled:     n.Enabled,
			Selected:    n.Selected,
			Hittable:    n.Hittable,
		}
		nodes = append(nodes, node)
	}
	return nodes
}

// FindNodeByRef returns the node whose Ref equals ref (without the `@`
// prefix) and whether it was found.
func FindNodeByRef(nodes []domain.Node, ref string) (domain.Node, bool) {
	for _, n := range nodes {
		if n.Ref == ref {
			return n, true
		}
	}
	return domain.Node{}, false
}
