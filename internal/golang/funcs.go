package golang

import (
	"strconv"
	"strings"
	"text/template"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

func TemplateFuncs() template.FuncMap {
	title := cases.Title(language.English)

	return template.FuncMap{
		"pascalCase":    PascalCase,
		"camelCase":     CamelCase,
		"snakeCase":     SnakeCase,
		"goName":        ToGoIdentifier,
		"goComment":     GoComment,
		"quote":         strconv.Quote,
		"lower":         strings.ToLower,
		"upper":         strings.ToUpper,
		"title":         title.String,
		"join":          strings.Join,
		"hasPrefix":     strings.HasPrefix,
		"trimSuffix":    strings.TrimSuffix,
		"statusCodeInt": StatusCodeInt,
		"dict":          Dict,
	}
}

// Dict creates a map from key-value pairs for use in templates.
func Dict(values ...any) map[string]any {
	if len(values)%2 != 0 {
		return nil
	}
	dict := make(map[string]any, len(values)/2)
	for i := 0; i < len(values); i += 2 {
		key, ok := values[i].(string)
		if !ok {
			continue
		}
		dict[key] = values[i+1]
	}
	return dict
}

// GoComment prefixes every line of s with "// ".
func GoComment(s string) string {
	if s == "" {
		return ""
	}
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight("// "+strings.TrimSpace(line), " ")
	}
	return strings.Join(lines, "\n")
}

// StatusCodeInt parses an exact status code. Ranges such as "4XX" and
// "default" return 0.
func StatusCodeInt(code string) int {
	n, err := strconv.Atoi(code)
	if err != nil || n < 100 || n > 599 {
		return 0
	}
	return n
}

// StatusClass returns the leading digit of a range code such as "4XX".
func StatusClass(code string) int {
	if len(code) != 3 || !strings.EqualFold(code[1:], "xx") {
		return 0
	}
	n := int(code[0] - '0')
	if n < 1 || n > 5 {
		return 0
	}
	return n
}
