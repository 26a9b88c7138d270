package generator

import (
	"fmt"
	"go/token"
	"strings"
	"unicode"
)

var acronyms = map[string]bool{
	"id": true, "url": true, "api": true, "http": true, "json": true,
	"xml": true, "sql": true, "io": true, "ip": true, "tcp": true, "udp": true,
}

// toGoName turns a C identifier into an exported Go name: sample_open
// becomes SampleOpen, user_id becomes UserID.
func toGoName(name string) string {
	parts := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_'
	})

	var result strings.Builder
	for _, part := range parts {
		lower := strings.ToLower(part)
		switch {
		case acronyms[lower]:
			result.WriteString(strings.ToUpper(part))
		case part == strings.ToUpper(part):
			result.WriteString(strings.ToUpper(part[:1]) + lower[1:])
		default:
			result.WriteString(strings.ToUpper(part[:1]) + part[1:])
		}
	}

	s := result.String()
	if s != "" && !unicode.IsLetter(rune(s[0])) {
		s = "X" + s
	}
	return s
}

// toLowerCamel is toGoName with the leading word lowered.
func toLowerCamel(name string) string {
	goName := toGoName(name)
	if goName == "" {
		return ""
	}

	runes := []rune(goName)
	for i := range runes {
		if !unicode.IsUpper(runes[i]) {
			break
		}
		// Keep the capital that starts the next word: URLPath -> urlPath.
		if i > 0 && i+1 < len(runes) && unicode.IsLower(runes[i+1]) {
			break
		}
		runes[i] = unicode.ToLower(runes[i])
	}
	return string(runes)
}

// predeclared identifiers a parameter must not shadow inside a wrapper.
var predeclared = map[string]bool{
	"bool": true, "byte": true, "rune": true, "string": true, "error": true, "any": true,
	"int": true, "int8": true, "int16": true, "int32": true, "int64": true,
	"uint": true, "uint8": true, "uint16": true, "uint32": true, "uint64": true, "uintptr": true,
	"float32": true, "float64": true, "nil": true, "true": true, "false": true,
	"len": true, "cap": true, "new": true, "make": true, "append": true,
}

// namer hands out file-unique Go identifiers.
type namer struct {
	used map[string]bool
}

func newNamer(reserved ...string) *namer {
	n := &namer{used: make(map[string]bool)}
	for _, r := range reserved {
		n.used[r] = true
	}
	return n
}

// unique returns base, or base with the smallest numeric suffix that is
// still free.
func (n *namer) unique(base string) string {
	if base == "" {
		base = "X"
	}
	name := base
	for i := 2; n.used[name]; i++ {
		name = fmt.Sprintf("%s%d", base, i)
	}
	n.used[name] = true
	return name
}

// paramNames picks wrapper parameter names. Positional or unusable C names
// fall back to argN.
func paramNames(cNames []string, taken ...string) []string {
	used := map[string]bool{"ret": true, "unsafe": true, "ffi": true, "fmt": true}
	for _, t := range taken {
		used[t] = true
	}

	names := make([]string, len(cNames))
	for i, c := range cNames {
		name := toLowerCamel(c)
		if token.IsKeyword(name) || predeclared[name] {
			name += "_"
		}
		if !token.IsIdentifier(name) || strings.HasPrefix(c, "_") {
			name = fmt.Sprintf("arg%d", i)
		}
		for used[name] {
			name += "_"
		}
		used[name] = true
		names[i] = name
	}
	return names
}
