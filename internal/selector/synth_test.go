package selector

import (
	"testing"

	"github.com/agentdevice/agent-device/internal/domain"
	"github.com/stretchr/testify/require"
)

func TestBuildSelectorChainForNodePrefersID(t *testing.T) {
	n := domain.Node{Type: "button", Identifier: "submit-btn", Label: "Submit"}
	chain := BuildSelectorChainForNode(n, []domain.Node{n}, false)
	require.Equal(t, domain.TermID, chain.Selectors[0].Terms[0].Key)
	require.Equal(t, "submit-btn", chain.Selectors[0].Terms[0].Value)
	require.Equal(t, "role=button", chain.Selectors[1].Raw)
}

func TestBuildSelectorChainForNodeFallsBackToLabel(t *testing.T) {
	n := domain.Node{Type: "button", Label: "Continue"}
	chain := BuildSelectorChainForNode(n, []domain.Node{n}, false)
	require.Equal(t, domain.TermLabel, chain.Selectors[0].Terms[0].Key)
}

func TestBuildSelectorChainForNodeFillAppendsEditable(t *testing.T) {
	n := domain.Node{Type: "textfield", Label: "Amount"}
	chain := BuildSelectorChainForNode(n, []domain.Node{n}, true)
	found := false
	for _, term := range chain.Selectors[0].Terms {
		if term.Key == domain.TermEditable {
			found = true
			require.Equal(t, true, term.Value)
		}
	}
	require.True(t, found)
}

func TestBuildSelectorChainForNodeRoleOnlyWhenNoOtherField(t *testing.T) {
	n := domain.Node{Type: "button"}
	chain := BuildSelectorChainForNode(n, []domain.Node{n}, false)
	require.Len(t, chain.Selectors, 1)
	require.Equal(t, "role=button", chain.Selectors[0].Raw)
}

func TestSplitSelectorFromArgsTrailingValue(t *testing.T) {
	sel, val := SplitSelectorFromArgs([]string{"label=Amount", "100"}, true)
	require.Equal(t, "label=Amount", sel)
	require.Equal(t, "100", val)
}

func TestSplitSelectorFromArgsNoTrailingValue(t *testing.T) {
	sel, val := SplitSelectorFromArgs([]string{"label=Amount", "role=textfield"}, false)
	require.Equal(t, "label=Amount role=textfield", sel)
	require.Equal(t, "", val)
}

func TestSplitSelectorFromArgsEmpty(t *testing.T) {
	sel, val := SplitSelectorFromArgs(nil, true)
	require.Equal(t, "", sel)
	require.Equal(t, "", val)
}
