package selector

import "testing"

// FuzzParseChain ensures the parser never panics on arbitrary input and
// that every selector in a chain it accepts has at least one term,
// mirroring the teacher's where-expression fuzz harness.
func FuzzParseChain(f *testing.F) {
	seeds := []string{
		`label="Continue"`,
		`role=button enabled=true`,
		`visible`,
		`label="Continue" || role=button`,
		`id='submit-btn'`,
		``,
		`label=`,
		`nope=1`,
		`label="unterminated`,
	}
	for _, s := range seeds {
		f.Add(s)
	}

	f.Fuzz(func(t *testing.T, raw string) {
		chain, err := ParseChain(raw)
		if err != nil {
			return
		}
		for _, sel := range chain.Selectors {
			if len(sel.Terms) == 0 {
				t.Fatalf("accepted selector with zero terms: %q", raw)
			}
		}
	})
}
