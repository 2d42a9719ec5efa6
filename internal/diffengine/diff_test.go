package diffengine

import (
	"fmt"
	"strings"
	"testing"

	"github.com/agentdevice/agent-device/internal/domain"
	"github.com/stretchr/testify/require"
)

func nodesFromTypes(types ...string) []domain.Node {
	nodes := make([]domain.Node, len(types))
	for i, ty := range types {
		nodes[i] = domain.Node{Ref: fmt.Sprintf("e%d", i+1), Type: ty}
	}
	return nodes
}

func TestDiffNoChanges(t *testing.T) {
	nodes := nodesFromTypes("button", "label", "textfield")
	d := Diff(nodes, nodes)
	require.Equal(t, 3, d.Summary.Unchanged)
	require.Equal(t, 0, d.Summary.Additions)
	require.Equal(t, 0, d.Summary.Removals)
}

func TestDiffDetectsAdditionAndRemoval(t *testing.T) {
	prev := nodesFromTypes("button", "label")
	curr := nodesFromTypes("button", "textfield")
	d := Diff(prev, curr)
	require.Equal(t, 1, d.Summary.Unchanged)
	require.Equal(t, 1, d.Summary.Additions)
	require.Equal(t, 1, d.Summary.Removals)
}

// TestDiffClosureInvariant checks spec.md §8's invariant: additions +
// unchanged == |current|, removals + unchanged == |previous|.
func TestDiffClosureInvariant(t *testing.T) {
	prev := nodesFromTypes("a", "b", "c", "d")
	curr := nodesFromTypes("a", "x", "c", "y", "d")
	d := Diff(prev, curr)
	require.Equal(t, len(curr), d.Summary.Additions+d.Summary.Unchanged)
	require.Equal(t, len(prev), d.Summary.Removals+d.Summary.Unchanged)
}

func TestDiffEmptyInputs(t *testing.T) {
	d := Diff(nil, nil)
	require.Equal(t, 0, d.Summary.Additions+d.Summary.Removals+d.Summary.Unchanged)

	d = Diff(nil, nodesFromTypes("button"))
	require.Equal(t, 1, d.Summary.Additions)

	d = Diff(nodesFromTypes("button"), nil)
	require.Equal(t, 1, d.Summary.Removals)
}

func TestDiffCurrentOrderPreserved(t *testing.T) {
	prev := nodesFromTypes("a", "b")
	curr := nodesFromTypes("b", "a")
	d := Diff(prev, curr)
	// both permutations of {a,b}: Myers will find a 2-line edit (remove+add
	// or equivalent); whichever edit script it picks, the closure invariant
	// holds and the added/unchanged lines read in the current tree's order.
	require.Equal(t, len(curr), d.Summary.Additions+d.Summary.Unchanged)
	require.Equal(t, len(prev), d.Summary.Removals+d.Summary.Unchanged)

	var currOrder []string
	for _, l := range d.Lines {
		if l.Kind != domain.DiffRemoved {
			currOrder = append(currOrder, l.Text)
		}
	}
	require.Equal(t, []string{CanonicalLine(curr[0]), CanonicalLine(curr[1])}, currOrder)
}

// TestLinearFallbackBoundary exercises the >4000 combined-node cutover
// to the linear fallback path and checks it still satisfies the closure
// invariant.
func TestLinearFallbackBoundary(t *testing.T) {
	prevTypes := make([]string, 2100)
	currTypes := make([]string, 2100)
	for i := range prevTypes {
		prevTypes[i] = fmt.Sprintf("node-%d", i)
		currTypes[i] = fmt.Sprintf("node-%d", i)
	}
	currTypes[0] = "changed-node"

	prev := nodesFromTypes(prevTypes...)
	curr := nodesFromTypes(currTypes...)

	d := Diff(prev, curr)
	require.Equal(t, len(curr), d.Summary.Additions+d.Summary.Unchanged)
	require.Equal(t, len(prev), d.Summary.Removals+d.Summary.Unchanged)
}

func TestCanonicalLineIncludesStateFlags(t *testing.T) {
	enabled := false
	n := domain.Node{Type: "button", Label: "Submit", Enabled: &enabled}
	line := CanonicalLine(n)
	require.Contains(t, line, "button")
	require.Contains(t, line, `label="Submit"`)
	require.Contains(t, line, "disabled")
}

func TestCanonicalLineIndentsByDepth(t *testing.T) {
	n := domain.Node{Type: "button", Depth: 2}
	require.True(t, strings.HasPrefix(CanonicalLine(n), "    button"))
}

func TestCanonicalLineNotHittableFlag(t *testing.T) {
	hittable := false
	n := domain.Node{Type: "button", Hittable: &hittable}
	require.Contains(t, CanonicalLine(n), "not-hittable")

	hittable = true
	require.NotContains(t, CanonicalLine(n), "not-hittable")
}

// TestDiffSameLabelDifferentValueIsChange pins spec.md's worked example:
// a textfield whose label is unchanged but whose value changed from "67"
// to "134" must diff as a removal+addition, not collapse to unchanged —
// CanonicalLine has to carry value as its own token, distinct from label.
func TestDiffSameLabelDifferentValueIsChange(t *testing.T) {
	prev := []domain.Node{
		{Type: "window"},
		{Type: "textfield", Label: "Amount", Value: "67", Depth: 1},
	}
	curr := []domain.Node{
		{Type: "window"},
		{Type: "textfield", Label: "Amount", Value: "134", Depth: 1},
	}
	d := Diff(prev, curr)
	require.Equal(t, 1, d.Summary.Unchanged)
	require.Equal(t, 1, d.Summary.Additions)
	require.Equal(t, 1, d.Summary.Removals)
}

// TestLinearDiffReversedListIsAllChurn pins the shared-prefix/shared-suffix
// algorithm against multiset matching: a full reversal shares no prefix or
// suffix position, so every line is a removal paired with an addition, not
// 3 unchanged lines as a bag-based matcher would report.
func TestLinearDiffReversedListIsAllChurn(t *testing.T) {
	ops := linearDiff([]string{"A", "B", "C"}, []string{"C", "B", "A"})
	var unchanged, added, removed int
	for _, op := range ops {
		switch op.kind {
		case opEqual:
			unchanged++
		case opInsert:
			added++
		case opDelete:
			removed++
		}
	}
	require.Equal(t, 0, unchanged)
	require.Equal(t, 3, added)
	require.Equal(t, 3, removed)
}

func TestLinearDiffSharedPrefixAndSuffix(t *testing.T) {
	ops := linearDiff([]string{"a", "b", "old", "d"}, []string{"a", "b", "new", "d"})
	var unchanged, added, removed int
	for _, op := range ops {
		switch op.kind {
		case opEqual:
			unchanged++
		case opInsert:
			added++
		case opDelete:
			removed++
		}
	}
	require.Equal(t, 2, unchanged)
	require.Equal(t, 1, added)
	require.Equal(t, 1, removed)
}

func TestStringifyFormat(t *testing.T) {
	d := domain.SnapshotDiff{Summary: domain.DiffSummary{Additions: 2, Removals: 1, Unchanged: 5}}
	require.Equal(t, "+2 -1 =5", Stringify(d))
}
