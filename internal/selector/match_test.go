package selector

import (
	"testing"

	"github.com/agentdevice/agent-device/internal/domain"
	"github.com/stretchr/testify/require"
)

func boolPtr(b bool) *bool { return &b }

func TestMatchesTermLabelCollapsesWhitespaceAndCase(t *testing.T) {
	n := domain.Node{Label: "  Continue   Now  "}
	term := domain.Term{Key: domain.TermLabel, Value: "continue now"}
	require.True(t, MatchesTerm(n, term, domain.PlatformIOS))
}

func TestMatchesTermRoleExactNormalizedType(t *testing.T) {
	n := domain.Node{Type: "button"}
	require.True(t, MatchesTerm(n, domain.Term{Key: domain.TermRole, Value: "button"}, domain.PlatformIOS))
	require.False(t, MatchesTerm(n, domain.Term{Key: domain.TermRole, Value: "link"}, domain.PlatformIOS))
}

func TestMatchesTermRoleNormalizesBothSides(t *testing.T) {
	n := domain.Node{Type: "XCUIElementTypeButton"}
	require.True(t, MatchesTerm(n, domain.Term{Key: domain.TermRole, Value: "button"}, domain.PlatformIOS))
}

func TestMatchesTermEnabledDefaultsTrue(t *testing.T) {
	n := domain.Node{}
	require.True(t, MatchesTerm(n, domain.Term{Key: domain.TermEnabled, Value: true}, domain.PlatformIOS))

	n.Enabled = boolPtr(false)
	require.True(t, MatchesTerm(n, domain.Term{Key: domain.TermEnabled, Value: false}, domain.PlatformIOS))
}

func TestMatchesTermSelectedAndHittableRequireExplicitTrue(t *testing.T) {
	n := domain.Node{}
	require.True(t, MatchesTerm(n, domain.Term{Key: domain.TermSelected, Value: false}, domain.PlatformIOS))
	require.True(t, MatchesTerm(n, domain.Term{Key: domain.TermHittable, Value: false}, domain.PlatformIOS))

	n.Selected = boolPtr(true)
	n.Hittable = boolPtr(true)
	require.True(t, MatchesTerm(n, domain.Term{Key: domain.TermSelected, Value: true}, domain.PlatformIOS))
	require.True(t, MatchesTerm(n, domain.Term{Key: domain.TermHittable, Value: true}, domain.PlatformIOS))
}

func TestMatchesTermEditableByNormalizedType(t *testing.T) {
	n := domain.Node{Type: "edittext"}
	require.True(t, MatchesTerm(n, domain.Term{Key: domain.TermEditable, Value: true}, domain.PlatformAndroid))

	n = domain.Node{Type: "button"}
	require.True(t, MatchesTerm(n, domain.Term{Key: domain.TermEditable, Value: false}, domain.PlatformAndroid))
}

func TestMatchesTermEditableRequiresEnabled(t *testing.T) {
	n := domain.Node{Type: "edittext", Enabled: boolPtr(false)}
	require.False(t, MatchesTerm(n, domain.Term{Key: domain.TermEditable, Value: true}, domain.PlatformAndroid))
}

func TestMatchesTermEditableIsPlatformScoped(t *testing.T) {
	n := domain.Node{Type: "edittext"}
	require.True(t, MatchesTerm(n, domain.Term{Key: domain.TermEditable, Value: false}, domain.PlatformIOS))
}

func TestMatchesTermVisibleHittableOverridesZeroAreaRect(t *testing.T) {
	n := domain.Node{Rect: &domain.Rect{Width: 0, Height: 0}, Hittable: boolPtr(true)}
	require.True(t, MatchesTerm(n, domain.Term{Key: domain.TermVisible, Value: true}, domain.PlatformIOS))
}

func TestMatchesTermVisibleZeroAreaRectNotHittableIsHidden(t *testing.T) {
	n := domain.Node{Rect: &domain.Rect{Width: 0, Height: 0}}
	require.True(t, MatchesTerm(n, domain.Term{Key: domain.TermVisible, Value: false}, domain.PlatformIOS))
	require.True(t, MatchesTerm(n, domain.Term{Key: domain.TermHidden, Value: true}, domain.PlatformIOS))
}

func TestMatchesTermVisiblePositiveAreaRect(t *testing.T) {
	n := domain.Node{Rect: &domain.Rect{Width: 10, Height: 10}}
	require.True(t, MatchesTerm(n, domain.Term{Key: domain.TermVisible, Value: true}, domain.PlatformIOS))
}

func TestMatchesSelectorIsConjunction(t *testing.T) {
	n := domain.Node{Type: "button", Label: "Continue", Enabled: boolPtr(true)}
	sel := domain.Selector{Terms: []domain.Term{
		{Key: domain.TermRole, Value: "button"},
		{Key: domain.TermLabel, Value: "Continue"},
		{Key: domain.TermEnabled, Value: true},
	}}
	require.True(t, MatchesSelector(n, sel, domain.PlatformIOS))

	sel.Terms = append(sel.Terms, domain.Term{Key: domain.TermSelected, Value: true})
	require.False(t, MatchesSelector(n, sel, domain.PlatformIOS))
}

func TestCandidatesForSelectorPreservesOrder(t *testing.T) {
	nodes := []domain.Node{
		{Ref: "e1", Type: "button", Label: "A"},
		{Ref: "e2", Type: "button", Label: "B"},
		{Ref: "e3", Type: "label", Label: "A"},
	}
	cands := CandidatesForSelector(nodes, domain.Selector{Terms: []domain.Term{{Key: domain.TermRole, Value: "button"}}}, domain.PlatformIOS)
	require.Len(t, cands, 2)
	require.Equal(t, "e1", cands[0].Ref)
	require.Equal(t, "e2", cands[1].Ref)
}
