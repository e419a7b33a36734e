package gateway

import "strings"

var powerReplacer = strings.NewReplacer(
	"^2", "²",
	"^3", "³",
)

// TransformMath strips dollar signs and rewrites caret powers to
// superscripts. Dollars go first so that "^$2" cannot turn into a fresh
// "^2" on a second pass; the function is idempotent.
func TransformMath(s string) string {
	return powerReplacer.Replace(strings.ReplaceAll(s, "$", ""))
}
