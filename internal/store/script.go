package store

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/agentdevice/agent-device/internal/domain"
)

// ScriptLine is one parsed line of a `.ad` file: a command name plus its
// already-tokenized arguments (selector chains and literal values alike
// — the tokenizer doesn't distinguish them, replay does).
type ScriptLine struct {
	Command string
	Args    []string
}

// QuoteArg exposes quoteArg to callers rewriting individual `.ad` lines
// outside this package (replay healing rewrites one line at a time).
func QuoteArg(s string) string {
	return quoteArg(s)
}

// quoteArg JSON-quotes s (giving `\"`-escaped, double-quoted output) when
// it contains a space, tab or double quote, the characters tokenizeLine
// treats specially; otherwise returns it unquoted. The rule is narrower
// than quoteIfNeeded in internal/selector/synth.go, which also quotes
// `'`, `=` and `||`.
func quoteArg(s string) string {
	if s == "" {
		return `""`
	}
	if !strings.ContainsAny(s, " \t\"") {
		return s
	}
	encoded, _ := json.Marshal(s)
	return string(encoded)
}

// contextLine renders the `.ad` file's reserved first line, binding the
// script to the device it was recorded against. It is a real, parseable
// step (command "context"), not a comment — ParseScript tokenizes it
// like any other line, and replay's replayableSteps table is what skips
// it at replay time.
func contextLine(sess *domain.Session) string {
	return fmt.Sprintf("context platform=%s device=%q kind=%s theme=unknown",
		sess.Device.Platform, sess.Device.Name, sess.Device.Kind)
}

// RenderScript serializes a session's recorded actions into `.ad` text:
// a `context` line binding the script to its device, then one line per
// action. When an action's result carried a selector chain (the action
// was addressed by selector), the chain takes the place of the target
// positionals in its line. An action addressed by `@ref` carries only a
// refLabel, so its line keeps the raw `@ref` and is not rewritten to a
// selector chain; it gets a scoped snapshot line prepended ahead of it,
// so replay re-establishes ref stability before depending on the ref.
func RenderScript(sess *domain.Session) string {
	var b strings.Builder
	b.WriteString(contextLine(sess))
	b.WriteByte('\n')

	for _, action := range sess.Actions {
		if pre := healPrependLine(action); pre != "" {
			b.WriteString(pre)
			b.WriteByte('\n')
		}
		line := renderActionLine(action)
		if line == "" {
			continue
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}

// healPrependLine returns a scoped snapshot line to re-establish ref
// stability ahead of an action whose result only carried a human
// refLabel (no selector chain was synthesized for it).
func healPrependLine(action domain.Action) string {
	if action.Result == nil || action.Result.SelectorChain != "" || action.Result.RefLabel == "" {
		return ""
	}
	return "snapshot --snapshotScope=" + quoteArg(action.Result.RefLabel)
}

func renderActionLine(action domain.Action) string {
	args := make([]string, 0, len(action.Positionals)+len(action.Flags)+1)

	if action.Result != nil && action.Result.SelectorChain != "" {
		args = append(args, quoteArg(action.Result.SelectorChain))
		// A trailing literal after the selector positionals (fill's text)
		// is kept.
		if n := len(action.Positionals); n > 1 && strings.Join(action.Positionals[:n-1], " ") == action.Result.SelectorChain {
			args = append(args, quoteArg(action.Positionals[n-1]))
		}
	} else {
		for _, p := range action.Positionals {
			args = append(args, quoteArg(p))
		}
	}

	for k, v := range action.Flags {
		args = append(args, fmt.Sprintf("--%s=%s", k, flagValueString(v)))
	}

	return strings.TrimSpace(action.Command + " " + strings.Join(args, " "))
}

func flagValueString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return quoteArg(t)
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	default:
		return fmt.Sprintf("%v", t)
	}
}

// ParseScript tokenizes `.ad` text into ScriptLines, skipping blank
// lines and full-line `#` comments. Each line's first token is the
// command; remaining tokens are JSON-string-or-bareword arguments.
func ParseScript(text string) ([]ScriptLine, error) {
	var lines []ScriptLine
	for lineNo, raw := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		toks, err := tokenizeLine(trimmed)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo+1, err)
		}
		if len(toks) == 0 {
			continue
		}
		lines = append(lines, ScriptLine{Command: toks[0], Args: toks[1:]})
	}
	return lines, nil
}

// tokenizeLine splits one line into whitespace-separated tokens, honoring
// JSON-quoted strings (with `\"` escapes) as single tokens.
func tokenizeLine(line string) ([]string, error) {
	var toks []string
	i := 0
	n := len(line)
	for i < n {
		for i < n && isLineSpace(line[i]) {
			i++
		}
		if i >= n {
			break
		}
		if line[i] == '"' {
			val, next, err := readJSONString(line, i)
			if err != nil {
				return nil, err
			}
			toks = append(toks, val)
			i = next
			continue
		}
		start := i
		for i < n && !isLineSpace(line[i]) {
			i++
		}
		toks = append(toks, line[start:i])
	}
	return toks, nil
}

func isLineSpace(b byte) bool {
	return b == ' ' || b == '\t'
}

// readJSONString decodes a JSON string literal starting at the opening
// quote and returns its value plus the index just past the closing
// quote, using encoding/json for correct escape handling.
func readJSONString(line string, start int) (string, int, error) {
	i := start + 1
	for i < len(line) {
		switch line[i] {
		case '\\':
			i += 2
			continue
		case '"':
			var val string
			if err := json.Unmarshal([]byte(line[start:i+1]), &val); err != nil {
				return "", 0, fmt.Errorf("invalid quoted token: %w", err)
			}
			return val, i + 1, nil
		}
		i++
	}
	return "", 0, fmt.Errorf("unterminated quoted token starting at %d", start)
}
