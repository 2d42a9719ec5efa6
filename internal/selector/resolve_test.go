package selector

import (
	"testing"

	"github.com/agentdevice/agent-device/internal/domain"
	"github.com/stretchr/testify/require"
)

// TestResolveSelectorChainDisambiguatesBySmallestArea grounds spec.md
// §8's seed scenario: two "Continue" buttons, the smaller (nested,
// visually primary) one wins.
func TestResolveSelectorChainDisambiguatesBySmallestArea(t *testing.T) {
	nodes := []domain.Node{
		{Ref: "e1", Type: "button", Label: "Continue", Rect: &domain.Rect{Width: 200, Height: 80}},
		{Ref: "e2", Type: "button", Label: "Continue", Rect: &domain.Rect{Width: 120, Height: 40}},
	}
	chain, perr := ParseChain(`label="Continue"`)
	require.Nil(t, perr)

	result, err := ResolveSelectorChain(nodes, chain, ResolveOptions{RequireRect: true})
	require.Nil(t, err)
	require.True(t, result.Found)
	require.Equal(t, "e2", result.Node.Ref)
}

func TestResolveSelectorChainTiedAreaIsAmbiguous(t *testing.T) {
	nodes := []domain.Node{
		{Ref: "e1", Type: "button", Label: "Continue", Rect: &domain.Rect{Width: 100, Height: 40}},
		{Ref: "e2", Type: "button", Label: "Continue", Rect: &domain.Rect{Width: 100, Height: 40}},
	}
	chain, _ := ParseChain(`label="Continue"`)

	_, err := ResolveSelectorChain(nodes, chain, ResolveOptions{RequireRect: true})
	require.NotNil(t, err)
	require.Equal(t, domain.ErrAmbiguousMatch, err.Code)
}

func TestResolveSelectorChainFallsThroughToNextSelector(t *testing.T) {
	nodes := []domain.Node{
		{Ref: "e1", Type: "button", Rect: &domain.Rect{Width: 80, Height: 40}},
	}
	chain, _ := ParseChain(`label="Nonexistent" || role=button`)

	result, err := ResolveSelectorChain(nodes, chain, ResolveOptions{RequireRect: true})
	require.Nil(t, err)
	require.True(t, result.Found)
	require.Equal(t, "e1", result.Node.Ref)
	require.Equal(t, "role=button", result.MatchedBy)
	require.Len(t, result.Diagnostics, 2)
	require.Equal(t, 0, result.Diagnostics[0].Matches)
	require.Equal(t, 1, result.Diagnostics[1].Matches)
}

func TestResolveSelectorChainNoMatchReturnsDiagnosticsOnly(t *testing.T) {
	nodes := []domain.Node{{Ref: "e1", Type: "label"}}
	chain, _ := ParseChain(`role=button`)

	result, err := ResolveSelectorChain(nodes, chain, ResolveOptions{})
	require.Nil(t, err)
	require.False(t, result.Found)
	require.Len(t, result.Diagnostics, 1)
}

func TestResolveSelectorChainRequireRectExcludesGeometrylessNodes(t *testing.T) {
	nodes := []domain.Node{{Ref: "e1", Type: "button", Label: "Ghost"}}
	chain, _ := ParseChain(`label="Ghost"`)

	result, err := ResolveSelectorChain(nodes, chain, ResolveOptions{RequireRect: true})
	require.Nil(t, err)
	require.False(t, result.Found)
}
