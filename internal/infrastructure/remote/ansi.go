package remote

import "regexp"

// ansiEscape matches terminal escape sequences: CSI sequences like
// "\x1b[32m" as well as single-character escapes. The CLI tool colors its
// output, so everything must pass through StripANSI before pattern matching.
var ansiEscape = regexp.MustCompile(`\x1b(?:[@-Z\\-_]|\[[0-?]*[ -/]*[@-~])`)

// StripANSI removes terminal control sequences from text. Idempotent.
func StripANSI(text string) string {
	return ansiEscape.ReplaceAllString(text, "")
}
