package selector

import (
	"testing"

	"github.com/agentdevice/agent-device/internal/domain"
	"github.com/stretchr/testify/require"
)

func TestParseChainSimpleTerm(t *testing.T) {
	chain, err := ParseChain(`label="Continue"`)
	require.Nil(t, err)
	require.Len(t, chain.Selectors, 1)
	require.Len(t, chain.Selectors[0].Terms, 1)
	require.Equal(t, domain.TermLabel, chain.Selectors[0].Terms[0].Key)
	require.Equal(t, "Continue", chain.Selectors[0].Terms[0].Value)
}

func TestParseChainMultipleTermsAreConjunction(t *testing.T) {
	chain, err := ParseChain(`role=button enabled=true`)
	require.Nil(t, err)
	require.Len(t, chain.Selectors, 1)
	require.Len(t, chain.Selectors[0].Terms, 2)
}

func TestParseChainBareBooleanKey(t *testing.T) {
	chain, err := ParseChain(`visible`)
	require.Nil(t, err)
	require.Equal(t, true, chain.Selectors[0].Terms[0].Value)
}

func TestParseChainFallback(t *testing.T) {
	chain, err := ParseChain(`label="Continue" || role=button`)
	require.Nil(t, err)
	require.Len(t, chain.Selectors, 2)
	require.Equal(t, domain.TermLabel, chain.Selectors[0].Terms[0].Key)
	require.Equal(t, domain.TermRole, chain.Selectors[1].Terms[0].Key)
}

func TestParseChainQuotedEscapes(t *testing.T) {
	chain, err := ParseChain(`label="say \"hi\""`)
	require.Nil(t, err)
	require.Equal(t, `say "hi"`, chain.Selectors[0].Terms[0].Value)
}

func TestParseChainErrors(t *testing.T) {
	cases := []string{
		"",
		"   ",
		"label=",
		"nope=1",
		`label="unterminated`,
		"visible=notabool",
		"label= || role=button",
	}
	for _, raw := range cases {
		_, err := ParseChain(raw)
		require.NotNil(t, err, "expected error for %q", raw)
		require.Equal(t, domain.ErrInvalidArgs, err.Code, "input %q", raw)
	}
}

func TestParseChainSingleQuotes(t *testing.T) {
	chain, err := ParseChain(`id='submit-btn'`)
	require.Nil(t, err)
	require.Equal(t, "submit-btn", chain.Selectors[0].Terms[0].Value)
}
