package gateway

import (
	"regexp"
	"strings"
)

const suggestionsOpen = "[[SUGGESTIONS:"

var suggestionsTag = regexp.MustCompile(`(?s)\[\[\s*SUGGESTIONS\s*:(.*?)\]\]\s*$`)

// ParseSuggestions splits a finished reply into its body and the follow-up
// questions listed in a trailing [[SUGGESTIONS: a | b | c]] tag. Text
// without the tag is returned unchanged with no suggestions.
func ParseSuggestions(text string) (string, []string) {
	loc := suggestionsTag.FindStringSubmatchIndex(text)
	if loc == nil {
		return text, nil
	}
	var out []string
	for _, s := range strings.Split(text[loc[2]:loc[3]], "|") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return strings.TrimRight(text[:loc[0]], " \t\n"), out
}

// VisibleText hides a suggestions tag, complete or still streaming in, so
// the reply can be displayed while it grows.
func VisibleText(text string) string {
	if body, sugg := ParseSuggestions(text); sugg != nil || body != text {
		return body
	}
	i := strings.LastIndex(text, "[[")
	if i < 0 {
		return text
	}
	tail := strings.ToUpper(strings.ReplaceAll(text[i:], " ", ""))
	if strings.HasPrefix(suggestionsOpen, tail) || strings.HasPrefix(tail, suggestionsOpen) {
		return strings.TrimRight(text[:i], " \t\n")
	}
	return text
}
