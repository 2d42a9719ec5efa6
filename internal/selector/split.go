package selector

import "strings"

// SplitSelectorFromArgs separates a selector-chain string from a
// command's trailing positional value (e.g. `fill <selector> <text>`).
// When preferTrailingValue is true, the last positional is treated as
// the value and everything before it is joined back into the selector
// string; otherwise all positionals are treated as the selector and
// value is empty. Used by the daemon's interaction and misc handlers,
// where a command's positionals mix a selector with a literal argument.
func SplitSelectorFromArgs(positionals []string, preferTrailingValue bool) (selectorRaw string, value string) {
	if len(positionals) == 0 {
		return "", ""
	}
	if !preferTrailingValue || len(positionals) == 1 {
		return strings.Join(positionals, " "), ""
	}
	return strings.Join(positionals[:len(positionals)-1], " "), positionals[len(positionals)-1]
}
