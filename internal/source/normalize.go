package source

import (
	"regexp"
	"strings"
)

// literalConstantRe matches single- and double-quoted literal constants.
var literalConstantRe = regexp.MustCompile(`'[^']*'|"[^"]*"`)

// CommentMarker starts a trailing comment in free-form Fortran.
const CommentMarker = "!"

// NormalizeStatement strips literal constants and the trailing comment from
// one line of source text. The author's casing is kept; matching downstream
// is case-insensitive.
func NormalizeStatement(line string) string {
	line = strings.Trim(line, " \t\r\n")
	line = literalConstantRe.ReplaceAllString(line, "")
	if i := strings.Index(line, CommentMarker); i >= 0 {
		line = line[:i]
	}
	return strings.TrimRight(line, " \t")
}
