// Package casing converts schema names into identifiers.
package casing

import (
	"strings"
	"unicode"

	"github.com/go-openapi/inflect"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Acronyms are kept upper-case inside identifiers.
var Acronyms = map[string]bool{
	"ID": true, "URL": true, "UUID": true, "API": true, "HTTP": true,
	"JSON": true, "XML": true, "SQL": true, "URI": true, "UI": true, "IO": true,
}

var title = cases.Title(language.Und)

// Words splits s at separators, lower-to-upper transitions and the end of
// upper-case runs: "HTTPServer_v2" yields [HTTP Server v2].
func Words(s string) []string {
	var (
		words []string
		cur   []rune
	)
	flush := func() {
		if len(cur) > 0 {
			words = append(words, string(cur))
			cur = cur[:0]
		}
	}
	rs := []rune(s)
	for i, r := range rs {
		switch {
		case !unicode.IsLetter(r) && !unicode.IsDigit(r):
			flush()
			continue
		case unicode.IsUpper(r) && len(cur) > 0:
			prev := cur[len(cur)-1]
			nextLower := i+1 < len(rs) && unicode.IsLower(rs[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				flush()
			}
		}
		cur = append(cur, r)
	}
	flush()
	return words
}

func word(w string) string {
	if up := strings.ToUpper(w); Acronyms[up] {
		return up
	}
	return title.String(strings.ToLower(w))
}

// Pascal returns s as PascalCase with acronyms preserved.
func Pascal(s string) string {
	var b strings.Builder
	for _, w := range Words(s) {
		b.WriteString(word(w))
	}
	return b.String()
}

// Camel returns s as camelCase.
func Camel(s string) string {
	words := Words(s)
	var b strings.Builder
	for i, w := range words {
		if i == 0 {
			b.WriteString(strings.ToLower(w))
			continue
		}
		b.WriteString(word(w))
	}
	return b.String()
}

// Snake returns s as snake_case.
func Snake(s string) string {
	words := Words(s)
	for i, w := range words {
		words[i] = strings.ToLower(w)
	}
	return strings.Join(words, "_")
}

// ScreamingSnake returns s as SCREAMING_SNAKE_CASE.
func ScreamingSnake(s string) string {
	return strings.ToUpper(Snake(s))
}

// Casing conventions accepted by x-familiar-casing.
const (
	CamelCase  = "camelCase"
	PascalCase = "PascalCase"
	SnakeCase  = "snake_case"
	KebabCase  = "kebab-case"
)

// Convert applies a wire casing convention to an identifier. Unknown
// conventions return s unchanged.
func Convert(s, convention string) string {
	switch convention {
	case CamelCase:
		return inflect.CamelizeDownFirst(inflect.Underscore(s))
	case PascalCase:
		return inflect.Camelize(inflect.Underscore(s))
	case SnakeCase:
		return inflect.Underscore(s)
	case KebabCase:
		return inflect.Dasherize(inflect.Underscore(s))
	}
	return s
}
