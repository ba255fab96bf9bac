package utils

import (
	"regexp"
	"strings"
)

var (
	fencePattern   = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*(.+?)\\s*```$")
	controlPattern = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F]`)
)

// CleanLLMText tidies model output for display: it strips a BOM, a wrapping
// markdown code fence and control characters, and trims whitespace.
func CleanLLMText(input string) string {
	s := strings.TrimSpace(strings.TrimPrefix(input, "\ufeff"))
	if m := fencePattern.FindStringSubmatch(s); len(m) > 1 {
		s = m[1]
	}
	s = controlPattern.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// Truncate shortens s to at most maxRunes characters, appending "..." when
// anything was cut.
func Truncate(s string, maxRunes int) string {
	r := []rune(s)
	if len(r) <= maxRunes {
		return s
	}
	return string(r[:maxRunes]) + "..."
}
