package parser

import (
	"regexp"
	"strings"
)

// Define is one object-like macro from a preprocessor dump. Expr is the raw
// replacement text and may be empty.
type Define struct {
	Name string
	Expr string
}

var defineRe = regexp.MustCompile(`(?m)^#define\s+(\S+)[ ]?([^\r\n]*?)[ \t\r]*$`)
var identRe = regexp.MustCompile(`^[A-Za-z_]\w*$`)

// ParseDefines extracts the #define lines of a `-E -dM` dump in order.
// Function-like macros are skipped.
func ParseDefines(text string) []Define {
	var defs []Define
	for _, m := range defineRe.FindAllStringSubmatch(text, -1) {
		name := m[1]
		if !identRe.MatchString(name) {
			continue
		}
		defs = append(defs, Define{Name: name, Expr: strings.TrimSpace(m[2])})
	}
	return defs
}
