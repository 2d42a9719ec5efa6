package snapshot

import (
	"testing"

	"github.com/agentdevice/agent-device/internal/domain"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestNormalizeType(t *testing.T) {
	cases := map[string]string{
		"android.widget.Button":  "button",
		"XCUIElementTypeTextField": "textfield",
		"XCUIElementTypeButton":  "button",
		"Button":                 "button",
	}
	for in, want := range cases {
		require.Equal(t, want, NormalizeType(in), "input %q", in)
	}
}

func TestIsFillableType(t *testing.T) {
	require.True(t, IsFillableType("edittext", domain.PlatformAndroid))
	require.True(t, IsFillableType("autocompletetextview", domain.PlatformAndroid))
	require.False(t, IsFillableType("button", domain.PlatformAndroid))

	require.True(t, IsFillableType("textfield", domain.PlatformIOS))
	require.True(t, IsFillableType("securetextfield", domain.PlatformIOS))
	require.True(t, IsFillableType("search", domain.PlatformIOS))
	require.False(t, IsFillableType("button", domain.PlatformIOS))
}

func TestAttachRefsUniqueness(t *testing.T) {
	raw := []domain.RawNode{
		{Index: 0, Type: "window"},
		{Index: 1, Type: "button", Label: "Continue", ParentIndex: ptr(0)},
		{Index: 2, Type: "button", Label: "Cancel", ParentIndex: ptr(0)},
	}
	nodes := AttachRefs(raw)
	require.Len(t, nodes, 3)
	seen := map[string]bool{}
	for i, n := range nodes {
		require.False(t, seen[n.Ref], "duplicate ref %s", n.Ref)
		seen[n.Ref] = true
		found, ok := FindNodeByRef(nodes, n.Ref)
		require.True(t, ok)
		require.Equal(t, nodes[i], found)
	}
	require.Equal(t, "e1", nodes[0].Ref)
	require.Equal(t, "e2", nodes[1].Ref)
	require.Equal(t, "e3", nodes[2].Ref)
}

func TestPruneGroupNodesDropsEmptyWrappers(t *testing.T) {
	raw := []domain.RawNode{
		{Index: 0, Type: "group", Depth: 0},                                     // empty wrapper, dropped
		{Index: 1, Type: "group", Depth: 1, ParentIndex: ptr(0)},                 // empty wrapper, dropped
		{Index: 2, Type: "button", Label: "OK", Depth: 2, ParentIndex: ptr(1)},
		{Index: 3, Type: "group", Label: "Named", Depth: 0}, // has text, kept
	}
	pruned := PruneGroupNodes(raw)
	require.Len(t, pruned, 2)
	require.Equal(t, "button", pruned[0].Type)
	require.Equal(t, 0, pruned[0].Depth, "depth rebalanced by 2 pruned ancestors")
	require.Nil(t, pruned[0].ParentIndex, "parent chain fully pruned away")
	require.Equal(t, "group", pruned[1].Type)
}

func TestPruneGroupNodesKeepsOrderAndDescendants(t *testing.T) {
	raw := []domain.RawNode{
		{Index: 0, Type: "window"},
		{Index: 1, Type: "group", ParentIndex: ptr(0)}, // empty, dropped
		{Index: 2, Type: "label", Label: "Hi", Depth: 2, ParentIndex: ptr(1)},
	}
	pruned := PruneGroupNodes(raw)
	require.Len(t, pruned, 2)
	require.Equal(t, "window", pruned[0].Type)
	require.Equal(t, "label", pruned[1].Type)
	require.NotNil(t, pruned[1].ParentIndex)
	require.Equal(t, 0, *pruned[1].ParentIndex, "reparented to surviving ancestor")
	require.Equal(t, 1, pruned[1].Depth)
}

func TestResolveRefLabelFallsBackToNearestNode(t *testing.T) {
	nodes := []domain.Node{
		{Ref: "e1", Type: "label", Label: "Amount", Rect: &domain.Rect{X: 0, Y: 100, Width: 50, Height: 20}},
		{Ref: "e2", Type: "textfield", Rect: &domain.Rect{X: 0, Y: 102, Width: 100, Height: 20}},
	}
	label := ResolveRefLabel(nodes[1], nodes)
	require.Equal(t, "Amount", label)
}

func TestFindNearestHittableAncestorGuardsCycles(t *testing.T) {
	nodes := []domain.Node{
		{Ref: "e1", Index: 0, ParentIndex: ptr(1)},
		{Ref: "e2", Index: 1, ParentIndex: ptr(0)},
	}
	_, ok := FindNearestHittableAncestor(nodes[0], nodes)
	require.False(t, ok)
}
