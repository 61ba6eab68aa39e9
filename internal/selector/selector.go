// Package selector picks operations out of an OpenAPI document from
// command-line path specifiers or tags.
package selector

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/kolah/spectest/internal/model"
	v3 "github.com/pb33f/libopenapi/datamodel/high/v3"
	"golang.org/x/text/cases"
)

var ErrNoOperations = errors.New("no API definition matches the specified arguments")

// pathSpecPattern matches METHODS:PATH or a bare PATH.
var pathSpecPattern = regexp.MustCompile(`^(?:([A-Za-z,]+):)?(/.*)$`)

// FromPaths selects operations addressed by path specifiers such as
// "/api/v1/user", "GET:/api/v1/user" or "get,post:/api/v1/user".
// Invalid specifiers, unknown paths and unknown methods are reported as
// warnings and skipped.
func FromPaths(doc *v3.Document, specs []string) (*model.Selection, []string, error) {
	sel := model.NewSelection()
	var warnings []string

	for _, spec := range specs {
		regs := pathSpecPattern.FindStringSubmatch(spec)
		if regs == nil {
			warnings = append(warnings, fmt.Sprintf(
				"Specified path %s is invalid format. Acceptable format is API_PATH or COMMA_SEPARATED_METHODS:API_PATH (ex: GET,POST:/api/v1/user)", spec))
			continue
		}

		path := regs[2]
		item := lookupPath(doc, path)
		if item == nil {
			warnings = append(warnings, fmt.Sprintf("Specified path %s not found. Skip.", spec))
			continue
		}

		ops, w := pathOperations(path, item, splitMethods(regs[1]))
		warnings = append(warnings, w...)
		sel.Merge(ops)
	}

	if sel.Len() == 0 {
		return nil, warnings, ErrNoOperations
	}
	return sel, warnings, nil
}

// FromTags selects every operation carrying one of tags. Matching ignores case.
func FromTags(doc *v3.Document, tags []string) (*model.Selection, []string, error) {
	sel := model.NewSelection()
	var warnings []string

	for _, tag := range tags {
		found := searchByTag(doc, tag)
		if found.Len() == 0 {
			warnings = append(warnings, fmt.Sprintf("No operation is tagged %s. Skip.", tag))
			continue
		}
		sel.Merge(found)
	}

	if sel.Len() == 0 {
		return nil, warnings, ErrNoOperations
	}
	return sel, warnings, nil
}

func searchByTag(doc *v3.Document, tag string) *model.Selection {
	fold := cases.Fold()
	want := fold.String(tag)

	result := model.NewSelection()
	if doc.Paths == nil || doc.Paths.PathItems == nil {
		return result
	}

	for path, item := range doc.Paths.PathItems.FromOldest() {
		for _, m := range model.PathItemOperations(item) {
			for _, t := range m.Operation.Tags {
				if fold.String(t) != want {
					continue
				}
				result.Add(model.Operation{
					Path:      path,
					Method:    m.Method,
					PathItem:  item,
					Operation: m.Operation,
				})
				break
			}
		}
	}
	return result
}

// pathOperations filters the operations of one path item. An empty method list
// selects every declared operation.
func pathOperations(path string, item *v3.PathItem, methods []string) (*model.Selection, []string) {
	result := model.NewSelection()
	var warnings []string

	if len(methods) == 0 {
		for _, m := range model.PathItemOperations(item) {
			result.Add(model.Operation{Path: path, Method: m.Method, PathItem: item, Operation: m.Operation})
		}
		return result, nil
	}

	for _, raw := range methods {
		method, ok := model.ParseMethod(raw)
		var op *v3.Operation
		if ok {
			op = model.PathItemOperation(item, method)
		}
		if op == nil {
			warnings = append(warnings, fmt.Sprintf("Method %s not found on %s. Skip.", strings.ToLower(raw), path))
			continue
		}
		result.Add(model.Operation{Path: path, Method: method, PathItem: item, Operation: op})
	}
	return result, warnings
}

func lookupPath(doc *v3.Document, path string) *v3.PathItem {
	if doc.Paths == nil || doc.Paths.PathItems == nil {
		return nil
	}
	item, ok := doc.Paths.PathItems.Get(path)
	if !ok {
		return nil
	}
	return item
}

func splitMethods(s string) []string {
	if s == "" {
		return nil
	}
	var methods []string
	for _, m := range strings.Split(s, ",") {
		if m = strings.TrimSpace(m); m != "" {
			methods = append(methods, m)
		}
	}
	return methods
}
