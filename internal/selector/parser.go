package selector

import (
	"fmt"
	"strconv"

	"github.com/agentdevice/agent-device/internal/domain"
)

// validKeys maps the lexed key ident to its domain.TermKey, or reports
// unknown.
var validKeys = map[string]domain.TermKey{
	"id":       domain.TermID,
	"role":     domain.TermRole,
	"text":     domain.TermText,
	"label":    domain.TermLabel,
	"value":    domain.TermValue,
	"visible":  domain.TermVisible,
	"hidden":   domain.TermHidden,
	"editable": domain.TermEditable,
	"selected": domain.TermSelected,
	"enabled":  domain.TermEnabled,
	"hittable": domain.TermHittable,
}

// ParseChain parses a full `segment ("||" segment)*` selector-chain
// string per spec.md §4.B. Returns *domain.Error with code INVALID_ARGS
// on any grammar violation.
func ParseChain(raw string) (domain.SelectorChain, *domain.Error) {
	if len(trimSpace(raw)) == 0 {
		return domain.SelectorChain{}, invalidArgs("selector chain is empty")
	}

	toks, err := lex(raw)
	if err != nil {
		return domain.SelectorChain{}, invalidArgs(err.Error())
	}

	var selectors []Selector
	var cur []token
	flush := func() *domain.Error {
		sel, serr := parseSelector(cur)
		if serr != nil {
			return serr
		}
		selectors = append(selectors, sel)
		cur = nil
		return nil
	}

	for _, tk := range toks {
		if tk.typ == tokOr {
			if ferr := flush(); ferr != nil {
				return domain.SelectorChain{}, ferr
			}
			continue
		}
		if tk.typ == tokEOF {
			if ferr := flush(); ferr != nil {
				return domain.SelectorChain{}, ferr
			}
			continue
		}
		cur = append(cur, tk)
	}

	domainSelectors := make([]domain.Selector, 0, len(selectors))
	for _, s := range selectors {
		domainSelectors = append(domainSelectors, s.toDomain())
	}

	return domain.SelectorChain{Raw: raw, Selectors: domainSelectors}, nil
}

// Selector is the parser's working representation before conversion to
// domain.Selector.
type Selector struct {
	raw   string
	terms []domain.Term
}

func (s Selector) toDomain() domain.Selector {
	return domain.Selector{Raw: s.raw, Terms: s.terms}
}

// parseSelector consumes the tokens of one `||`-delimited segment into
// space-separated terms.
func parseSelector(toks []token) (Selector, *domain.Error) {
	if len(toks) == 0 {
		return Selector{}, invalidArgs("empty selector segment")
	}

	var terms []domain.Term
	var raw []byte
	i := 0
	for i < len(toks) {
		if toks[i].typ != tokIdent {
			return Selector{}, invalidArgs(fmt.Sprintf("expected key at position %d", toks[i].pos))
		}
		keyStr := toks[i].val
		key, ok := validKeys[keyStr]
		if !ok {
			return Selector{}, invalidArgs(fmt.Sprintf("unknown selector key %q", keyStr))
		}

		if i+1 < len(toks) && toks[i+1].typ == tokEquals {
			if i+2 >= len(toks) || (toks[i+2].typ != tokIdent && toks[i+2].typ != tokString) {
				return Selector{}, invalidArgs(fmt.Sprintf("missing value for key %q", keyStr))
			}
			valTok := toks[i+2]
			var value interface{}
			if domain.BooleanKeys[key] {
				b, err := strconv.ParseBool(valTok.val)
				if err != nil {
					return Selector{}, invalidArgs(fmt.Sprintf("invalid boolean value %q for key %q", valTok.val, keyStr))
				}
				value = b
			} else {
				value = valTok.val
			}
			terms = append(terms, domain.Term{Raw: keyStr + "=" + valTok.val, Key: key, Value: value})
			raw = appendTerm(raw, keyStr+"="+valTok.val)
			i += 3
			continue
		}

		if !domain.BooleanKeys[key] {
			return Selector{}, invalidArgs(fmt.Sprintf("missing value for key %q", keyStr))
		}
		terms = append(terms, domain.Term{Raw: keyStr, Key: key, Value: true})
		raw = appendTerm(raw, keyStr)
		i++
	}

	return Selector{raw: string(raw), terms: terms}, nil
}

func appendTerm(raw []byte, s string) []byte {
	if len(raw) > 0 {
		raw = append(raw, ' ')
	}
	return append(raw, s...)
}

func trimSpace(s string) string {
	i, j := 0, len(s)
	for i < j && isSpace(s[i]) {
		i++
	}
	for j > i && isSpace(s[j-1]) {
		j--
	}
	return s[i:j]
}

func invalidArgs(msg string) *domain.Error {
	return domain.NewError(domain.ErrInvalidArgs, msg)
}
