package store

import (
	"strings"
	"testing"

	"github.com/agentdevice/agent-device/internal/domain"
	"github.com/stretchr/testify/require"
)

func TestRenderScriptPrefersSelectorChainOverRaw(t *testing.T) {
	sess := &domain.Session{
		Name:   "default",
		Device: domain.Device{Platform: domain.PlatformIOS, ID: "udid-1"},
		Actions: []domain.Action{
			{
				Command:     "click",
				Positionals: []string{"@e3"},
				Result:      &domain.ActionResult{SelectorChain: `label="Continue"`},
			},
		},
	}

	text := RenderScript(sess)
	require.NotContains(t, text, "@e3")

	lines, err := ParseScript(text)
	require.NoError(t, err)
	require.Equal(t, "context", lines[0].Command)
	require.Equal(t, "click", lines[1].Command)
	require.Equal(t, []string{`label="Continue"`}, lines[1].Args)
}

func TestRenderScriptFallsBackToPositionalsWithoutResult(t *testing.T) {
	sess := &domain.Session{
		Name:   "default",
		Device: domain.Device{Platform: domain.PlatformAndroid, ID: "emu-1"},
		Actions: []domain.Action{
			{Command: "back", Positionals: nil},
		},
	}
	text := RenderScript(sess)
	require.Contains(t, text, "back")
}

func TestParseScriptSkipsCommentsAndBlankLines(t *testing.T) {
	text := "# a comment\n\nclick label=\"Continue\"\n"
	lines, err := ParseScript(text)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	require.Equal(t, "click", lines[0].Command)
	require.Equal(t, []string{`label="Continue"`}, lines[0].Args)
}

// TestContextLineIsARealParseableStep pins that the first line RenderScript
// emits is a genuine `context` command, not a `#`-comment that ParseScript
// would discard — replay's replayableSteps table is what skips it, not the
// comment-stripping path.
func TestContextLineIsARealParseableStep(t *testing.T) {
	sess := &domain.Session{
		Name:   "default",
		Device: domain.Device{Platform: domain.PlatformIOS, ID: "udid-1", Name: "iPhone 15", Kind: domain.DeviceKindSimulator},
	}
	text := RenderScript(sess)
	require.True(t, strings.HasPrefix(text, "context platform=ios device=\"iPhone 15\" kind=simulator theme=unknown\n"))

	lines, err := ParseScript(text)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	require.Equal(t, "context", lines[0].Command)
}

// TestRenderScriptPrependsScopedSnapshotForRefLabelOnlyAction pins the
// heal-prepend rule: an action whose result only carried a refLabel (no
// selector chain was synthesized) gets a scoped snapshot line ahead of it,
// so replay re-establishes ref stability before depending on the ref.
func TestRenderScriptPrependsScopedSnapshotForRefLabelOnlyAction(t *testing.T) {
	sess := &domain.Session{
		Name:   "default",
		Device: domain.Device{Platform: domain.PlatformAndroid, ID: "emu-1"},
		Actions: []domain.Action{
			{Command: "click", Positionals: []string{"@e3"}, Result: &domain.ActionResult{RefLabel: "Continue"}},
		},
	}
	lines, err := ParseScript(RenderScript(sess))
	require.NoError(t, err)
	require.Len(t, lines, 3)
	require.Equal(t, "context", lines[0].Command)
	require.Equal(t, "snapshot", lines[1].Command)
	require.Equal(t, "click", lines[2].Command)
}

func TestParseScriptHandlesEscapedQuotes(t *testing.T) {
	// The selector value itself contains a double quote, so the tokenizer
	// must see it as one escaped JSON-string token, not two tokens.
	text := `fill "label=\"Continue\"" "hello"`
	lines, err := ParseScript(text)
	require.NoError(t, err)
	require.Equal(t, "fill", lines[0].Command)
	require.Len(t, lines[0].Args, 2)
	require.Equal(t, `label="Continue"`, lines[0].Args[0])
	require.Equal(t, "hello", lines[0].Args[1])
}

func TestParseScriptUnterminatedQuoteErrors(t *testing.T) {
	_, err := ParseScript(`click "unterminated`)
	require.Error(t, err)
}

func TestScriptRoundTripIdempotent(t *testing.T) {
	sess := &domain.Session{
		Name:   "default",
		Device: domain.Device{Platform: domain.PlatformIOS, ID: "udid-1"},
		Actions: []domain.Action{
			{Command: "click", Result: &domain.ActionResult{SelectorChain: `role=button label="OK"`}},
			{Command: "back"},
		},
	}
	text := RenderScript(sess)
	lines, err := ParseScript(text)
	require.NoError(t, err)
	require.Len(t, lines, 3)
	require.Equal(t, "context", lines[0].Command)
	require.Equal(t, "click", lines[1].Command)
	require.Equal(t, "back", lines[2].Command)

	text2 := RenderScript(sess)
	require.Equal(t, text, text2, "rendering the same actions twice is idempotent")
}
