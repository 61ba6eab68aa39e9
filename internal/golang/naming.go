package golang

import (
	"strings"
	"unicode"
)

var commonInitialisms = map[string]bool{
	"API":   true,
	"ASCII": true,
	"CPU":   true,
	"CSS":   true,
	"DNS":   true,
	"EOF":   true,
	"GUID":  true,
	"HTML":  true,
	"HTTP":  true,
	"HTTPS": true,
	"ID":    true,
	"IP":    true,
	"JSON":  true,
	"JWT":   true,
	"QPS":   true,
	"RAM":   true,
	"RPC":   true,
	"SLA":   true,
	"SMTP":  true,
	"SQL":   true,
	"SSH":   true,
	"TCP":   true,
	"TLS":   true,
	"TTL":   true,
	"UDP":   true,
	"UI":    true,
	"UID":   true,
	"URI":   true,
	"URL":   true,
	"UTF8":  true,
	"UUID":  true,
	"VM":    true,
	"XML":   true,
	"XSRF":  true,
	"XSS":   true,
}

// SetAdditionalInitialisms adds custom initialisms to the naming rules.
// It must be called before any names are generated.
func SetAdditionalInitialisms(initialisms []string) {
	for _, init := range initialisms {
		commonInitialisms[strings.ToUpper(init)] = true
	}
}

func PascalCase(s string) string {
	var result strings.Builder
	for _, word := range splitWords(s) {
		result.WriteString(titleWord(word))
	}
	return result.String()
}

func CamelCase(s string) string {
	words := splitWords(s)
	var result strings.Builder
	for i, word := range words {
		if i == 0 {
			result.WriteString(strings.ToLower(word))
			continue
		}
		result.WriteString(titleWord(word))
	}
	return result.String()
}

func SnakeCase(s string) string {
	words := splitWords(s)
	for i, word := range words {
		words[i] = strings.ToLower(word)
	}
	return strings.Join(words, "_")
}

// ExportedName joins parts into a single exported identifier. Any rune that
// cannot appear in an identifier acts as a word separator.
//
//	ExportedName("test", "/users/{id}", "get", "200") == "TestUsersIDGet200"
func ExportedName(parts ...string) string {
	var b strings.Builder
	for _, part := range parts {
		for _, r := range part {
			if isIdentRune(r) {
				b.WriteRune(r)
			} else {
				b.WriteByte('_')
			}
		}
		b.WriteByte('_')
	}
	return ToGoIdentifier(b.String())
}

func ToGoIdentifier(s string) string {
	result := PascalCase(s)
	if result == "" {
		return "X"
	}
	if unicode.IsDigit([]rune(result)[0]) {
		return "X" + result
	}
	return result
}

// PackageName turns a directory name into a valid package name.
func PackageName(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if isIdentRune(r) && r != '_' {
			b.WriteRune(r)
		}
	}
	name := b.String()
	if name == "" {
		return "tests"
	}
	if unicode.IsDigit([]rune(name)[0]) {
		name = "x" + name
	}
	return EscapeKeyword(name)
}

var goKeywords = map[string]bool{
	"break": true, "case": true, "chan": true, "const": true, "continue": true,
	"default": true, "defer": true, "else": true, "fallthrough": true, "for": true,
	"func": true, "go": true, "goto": true, "if": true, "import": true,
	"interface": true, "map": true, "package": true, "range": true, "return": true,
	"select": true, "struct": true, "switch": true, "type": true, "var": true,
}

func EscapeKeyword(s string) string {
	if goKeywords[strings.ToLower(s)] {
		return s + "_"
	}
	return s
}

func isIdentRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func titleWord(word string) string {
	upper := strings.ToUpper(word)
	if commonInitialisms[upper] {
		return upper
	}
	runes := []rune(strings.ToLower(word))
	if len(runes) > 0 {
		runes[0] = unicode.ToUpper(runes[0])
	}
	return string(runes)
}

func splitWords(s string) []string {
	var words []string
	var current []rune

	flush := func() {
		if len(current) > 0 {
			words = append(words, string(current))
			current = current[:0]
		}
	}

	var prev rune
	for _, r := range s {
		switch {
		case r == '_' || r == '-' || r == ' ' || r == '.':
			flush()
		case unicode.IsUpper(r) && (unicode.IsLower(prev) || unicode.IsDigit(prev)):
			flush()
			current = append(current, r)
		default:
			current = append(current, r)
		}
		prev = r
	}
	flush()

	return words
}
