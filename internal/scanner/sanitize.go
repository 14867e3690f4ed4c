package scanner

import (
	"regexp"
	"strings"
)

// Remote titles and filenames are arbitrary; these make them legal path
// segments on every platform.
var (
	illegalChars   = strings.NewReplacer(`<`, "_", `>`, "_", `:`, "_", `"`, "_", `/`, "_", `\`, "_", `|`, "_", `?`, "_", `*`, "_")
	whitespaceRuns = regexp.MustCompile(`\s+`)
)

// Sanitize replaces the characters <>:"/\|?* with underscores, collapses
// whitespace runs to single spaces, and trims the result.
func Sanitize(name string) string {
	clean := illegalChars.Replace(name)
	clean = whitespaceRuns.ReplaceAllString(clean, " ")
	return strings.TrimSpace(clean)
}
