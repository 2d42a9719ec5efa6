// Package diffengine computes a line-oriented diff between two
// snapshots' canonical node representations, using Myers' O((N+M)D)
// algorithm with a linear fallback for large trees, per spec.md §4.C.
package diffengine

import (
	"fmt"
	"strings"

	"github.com/agentdevice/agent-device/internal/domain"
	"github.com/agentdevice/agent-device/internal/snapshot"
)

// linearFallbackThreshold is the combined node-count above which the
// quadratic-worst-case Myers algorithm is skipped in favor of a cheaper
// positional comparison (spec.md §4.C, §8's >2000-node boundary case:
// combined size 4000 is the documented cutover point).
const linearFallbackThreshold = 4000

// CanonicalLine renders a node into the comparable string the diff
// operates over: indentation by depth, normalized type, label/value/id
// tokens, and interactive-state flags. Rects and refs are deliberately
// excluded — a node that moved or was relabeled with a new ref is
// "unchanged" if its semantic content is identical, which is what makes
// diffs useful across snapshots taken seconds apart. A node whose label
// stays put but whose value changes (e.g. a text field's contents) must
// therefore still render a different line, or it would wrongly collapse
// to "unchanged".
func CanonicalLine(n domain.Node) string {
	var b strings.Builder
	b.WriteString(strings.Repeat("  ", n.Depth))
	b.WriteString(snapshot.NormalizeType(n.Type))
	if n.Label != "" {
		fmt.Fprintf(&b, " label=%q", n.Label)
	}
	if n.Value != "" {
		fmt.Fprintf(&b, " value=%q", n.Value)
	}
	if n.Identifier != "" {
		fmt.Fprintf(&b, " id=%q", n.Identifier)
	}
	if !n.IsEnabled() {
		b.WriteString(" disabled")
	}
	if n.IsSelected() {
		b.WriteString(" selected")
	}
	if !n.IsHittable() {
		b.WriteString(" not-hittable")
	}
	return b.String()
}

// Diff computes the line diff between prev and curr's node lists.
func Diff(prev, curr []domain.Node) domain.SnapshotDiff {
	prevLines := make([]string, len(prev))
	for i, n := range prev {
		prevLines[i] = CanonicalLine(n)
	}
	currLines := make([]string, len(curr))
	for i, n := range curr {
		currLines[i] = CanonicalLine(n)
	}

	var ops []diffOp
	if len(prevLines)+len(currLines) > linearFallbackThreshold {
		ops = linearDiff(prevLines, currLines)
	} else {
		ops = myersDiff(prevLines, currLines)
	}

	lines := make([]domain.DiffLine, 0, len(ops))
	summary := domain.DiffSummary{}
	for _, op := range ops {
		switch op.kind {
		case opEqual:
			lines = append(lines, domain.DiffLine{Kind: domain.DiffUnchanged, Text: op.text})
			summary.Unchanged++
		case opInsert:
			lines = append(lines, domain.DiffLine{Kind: domain.DiffAdded, Text: op.text})
			summary.Additions++
		case opDelete:
			lines = append(lines, domain.DiffLine{Kind: domain.DiffRemoved, Text: op.text})
			summary.Removals++
		}
	}

	return domain.SnapshotDiff{Lines: lines, Summary: summary}
}

type opKind int

const (
	opEqual opKind = iota
	opInsert
	opDelete
)

type diffOp struct {
	kind opKind
	text string
}

// myersDiff implements the classic Myers greedy O((N+M)D) shortest-edit-
// script algorithm: forward search over diagonals, tracking furthest-
// reaching x per diagonal per D, then backtracking the saved trace to
// reconstruct the edit script in original order.
func myersDiff(a, b []string) []diffOp {
	n, m := len(a), len(b)
	max := n + m
	if max == 0 {
		return nil
	}

	// trace[d] is a snapshot of the v array (offset by max) after step d,
	// used to backtrack the actual path.
	trace := make([][]int, 0, max+1)
	v := make([]int, 2*max+1)
	offset := max

	var d int
found:
	for d = 0; d <= max; d++ {
		snap := make([]int, len(v))
		copy(snap, v)
		trace = append(trace, snap)

		for k := -d; k <= d; k += 2 {
			var x int
			if k == -d || (k != d && v[offset+k-1] < v[offset+k+1]) {
				x = v[offset+k+1]
			} else {
				x = v[offset+k-1] + 1
			}
			y := x - k

			for x < n && y < m && a[x] == b[y] {
				x++
				y++
			}
			v[offset+k] = x

			if x >= n && y >= m {
				break found
			}
		}
	}

	return backtrack(a, b, trace, d, offset)
}

// backtrack walks the saved diagonal snapshots from d back to 0,
// emitting diffOps in forward (original) order.
func backtrack(a, b []string, trace [][]int, d, offset int) []diffOp {
	var ops []diffOp
	x, y := len(a), len(b)

	for step := d; step > 0; step-- {
		v := trace[step]
		k := x - y

		var prevK int
		if k == -step || (k != step && v[offset+k-1] < v[offset+k+1]) {
			prevK = k + 1
		} else {
			prevK = k - 1
		}
		prevX := v[offset+prevK]
		prevY := prevX - prevK

		for x > prevX && y > prevY {
			ops = append(ops, diffOp{kind: opEqual, text: a[x-1]})
			x--
			y--
		}

		if x == prevX {
			ops = append(ops, diffOp{kind: opInsert, text: b[y-1]})
		} else {
			ops = append(ops, diffOp{kind: opDelete, text: a[x-1]})
		}
		x, y = prevX, prevY
	}

	for x > 0 && y > 0 {
		ops = append(ops, diffOp{kind: opEqual, text: a[x-1]})
		x--
		y--
	}
	for x > 0 {
		ops = append(ops, diffOp{kind: opDelete, text: a[x-1]})
		x--
	}
	for y > 0 {
		ops = append(ops, diffOp{kind: opInsert, text: b[y-1]})
		y--
	}

	reverse(ops)
	return ops
}

func reverse(ops []diffOp) {
	for i, j := 0, len(ops)-1; i < j; i, j = i+1, j-1 {
		ops[i], ops[j] = ops[j], ops[i]
	}
}

// linearDiff is the large-tree fallback: shared prefix, then the
// previous tree's remaining lines as removals, then the current tree's
// remaining lines as additions, then shared suffix (spec.md §4.C). It
// finds no moves and no interior matches — only positional agreement at
// the two ends — trading precision for guaranteed linear time.
func linearDiff(a, b []string) []diffOp {
	n, m := len(a), len(b)

	prefix := 0
	for prefix < n && prefix < m && a[prefix] == b[prefix] {
		prefix++
	}

	suffix := 0
	maxSuffix := n - prefix
	if m-prefix < maxSuffix {
		maxSuffix = m - prefix
	}
	for suffix < maxSuffix && a[n-1-suffix] == b[m-1-suffix] {
		suffix++
	}

	var ops []diffOp
	for i := 0; i < prefix; i++ {
		ops = append(ops, diffOp{kind: opEqual, text: a[i]})
	}
	for i := prefix; i < n-suffix; i++ {
		ops = append(ops, diffOp{kind: opDelete, text: a[i]})
	}
	for i := prefix; i < m-suffix; i++ {
		ops = append(ops, diffOp{kind: opInsert, text: b[i]})
	}
	for i := n - suffix; i < n; i++ {
		ops = append(ops, diffOp{kind: opEqual, text: a[i]})
	}

	return ops
}

// Stringify renders a diff summary for CLI/human display, e.g.
// "+3 -1 =42".
func Stringify(d domain.SnapshotDiff) string {
	return fmt.Sprintf("+%d -%d =%d", d.Summary.Additions, d.Summary.Removals, d.Summary.Unchanged)
}
