package snapshot

import "github.com/agentdevice/agent-device/internal/domain"

// ExtractNodeText returns a node's "first meaningful text field"
// (label -> value -> identifier), used by both the diff comparer and the
// selector engine's `text` matcher.
func ExtractNodeText(n domain.Node) string {
	return BestDisplayText(n.Label, n.Value, n.Identifier)
}

// FindNearestHittableAncestor walks the parentIndex chain from n until it
// finds a hittable node, guarding against cycles with a visited set keyed
// by ref. Returns (node, true) or (zero, false) if none found.
func FindNearestHittableAncestor(n domain.Node, nodes []domain.Node) (domain.Node, bool) {
	byIndex := make(map[int]domain.Node, len(nodes))
	for _, node := range nodes {
		byIndex[node.Index] = node
	}

	visited := make(map[string]bool)
	cur := n
	for {
		if visited[cur.Ref] {
			return domain.Node{}, false
		}
		visited[cur.Ref] = true

		if cur.ParentIndex == nil {
			return domain.Node{}, false
		}
		parent, ok := byIndex[*cur.ParentIndex]
		if !ok {
			return domain.Node{}, false
		}
		if parent.IsHittable() {
			return parent, true
		}
		cur = parent
	}
}

// ResolveRefLabel returns the first meaningful of node's label/value/
// identifier; failing that, the meaningful label of the spatially
// nearest node (by minimum absolute center-Y distance) that carries a
// rectangle. Used to give `.ad` scripts and heal candidates a stable
// human-readable anchor even for unlabeled nodes.
func ResolveRefLabel(n domain.Node, nodes []domain.Node) string {
	if direct := ExtractNodeText(n); direct != "" {
		return direct
	}
	if n.Rect == nil {
		return ""
	}

	var best domain.Node
	bestDist := -1.0
	found := false
	targetY := n.Rect.CenterY()

	for _, other := range nodes {
		if other.Ref == n.Ref || other.Rect == nil {
			continue
		}
		text := ExtractNodeText(other)
		if text == "" {
			continue
		}
		dist := other.Rect.CenterY() - targetY
		if dist < 0 {
			dist = -dist
		}
		if !found || dist < bestDist {
			found = true
			bestDist = dist
			best = other
		}
	}

	if !found {
		return ""
	}
	return ExtractNodeText(best)
}
