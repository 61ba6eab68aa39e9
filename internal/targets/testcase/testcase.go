// Package testcase renders suite methods for selected operations and
// assembles them into a test file.
package testcase

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"slices"
	"strings"

	"github.com/kolah/spectest/internal/golang"
	"github.com/kolah/spectest/internal/model"
	"github.com/kolah/spectest/internal/templates"
	"github.com/pb33f/libopenapi/datamodel/high/base"
	v3 "github.com/pb33f/libopenapi/datamodel/high/v3"
	"github.com/pb33f/libopenapi/orderedmap"
	"go.yaml.in/yaml/v4"
)

var (
	ErrMissingExample  = errors.New("missing example value")
	ErrUnexpectedShape = errors.New("unexpected example shape")
)

const (
	classTemplate    = "go/testcase.tmpl"
	functionTemplate = "go/test_method.tmpl"
)

var (
	placeholderPattern     = regexp.MustCompile(`\{([^}]+)\}`)
	pathPlaceholderPattern = regexp.MustCompile(`/\{[^}]+\}`)
)

type NamingStrategy int

const (
	// NameFromOperationID names tests Test<OperationId><Status>.
	NameFromOperationID NamingStrategy = iota
	// NameFromPath names tests Test<Path><Method><Status>, with path
	// parameters removed.
	NameFromPath
)

type Target struct {
	naming NamingStrategy
}

func New(naming NamingStrategy) *Target {
	return &Target{naming: naming}
}

// Function is one rendered suite method.
type Function struct {
	Name string
	Code string
}

// Class describes the file a set of functions is assembled into.
type Class struct {
	Package       string
	Suite         string
	SpecFile      string
	RuntimeImport string
}

type functionData struct {
	Suite            string
	Document         string
	Name             string
	Method           string
	Endpoint         string
	RequestBody      string
	RequestParameter string
	Assertion        string
}

type classData struct {
	Class
	Tests string
}

// StatusCodes lists the response codes of op, "default" included, in
// declaration order.
func StatusCodes(op *v3.Operation) []string {
	if op == nil || op.Responses == nil {
		return nil
	}
	var codes []string
	if op.Responses.Codes != nil {
		for code := range op.Responses.Codes.FromOldest() {
			codes = append(codes, code)
		}
	}
	if op.Responses.Default != nil {
		codes = slices.Insert(codes, defaultPosition(op.Responses, codes), "default")
	}
	return codes
}

// defaultPosition returns the index among codes at which the default response
// was declared. The high-level model keeps default apart from the codes, so
// the position comes from the key nodes of the low-level model.
func defaultPosition(responses *v3.Responses, codes []string) int {
	lr := responses.GoLow()
	if lr == nil || lr.Default.KeyNode == nil || lr.Codes == nil {
		return len(codes)
	}

	def := lr.Default.KeyNode
	positions := make(map[string]*yaml.Node, orderedmap.Len(lr.Codes))
	for key := range lr.Codes.KeysFromOldest() {
		if key.KeyNode != nil {
			positions[key.Value] = key.KeyNode
		}
	}

	for i, code := range codes {
		node, ok := positions[code]
		if !ok {
			continue
		}
		if node.Line > def.Line || (node.Line == def.Line && node.Column > def.Column) {
			return i
		}
	}
	return len(codes)
}

// RenderOperation renders one function per declared status code of op.
func (t *Target) RenderOperation(engine templates.Engine, suite string, op model.Operation) ([]Function, error) {
	endpoint, err := Endpoint(op)
	if err != nil {
		return nil, err
	}

	body, param, err := requestBody(op)
	if err != nil {
		return nil, err
	}

	var functions []Function
	for _, code := range StatusCodes(op.Operation) {
		data := functionData{
			Suite:            suite,
			Document:         document(op, code),
			Name:             t.FunctionName(op, code),
			Method:           methodExpr(op.Method),
			Endpoint:         endpoint,
			RequestBody:      body,
			RequestParameter: param,
			Assertion:        assertion(code),
		}

		rendered, err := engine.Execute(functionTemplate, data)
		if err != nil {
			return nil, fmt.Errorf("rendering %s %s: %w", op.Method, op.Path, err)
		}
		functions = append(functions, Function{Name: data.Name, Code: strings.TrimRight(rendered, "\n")})
	}

	return functions, nil
}

// RenderClass joins functions with a blank line and wraps them in the class
// template.
func (t *Target) RenderClass(engine templates.Engine, class Class, functions []Function) (string, error) {
	return engine.Execute(classTemplate, classData{
		Class: class,
		Tests: JoinFunctions(functions),
	})
}

func JoinFunctions(functions []Function) string {
	codes := make([]string, 0, len(functions))
	for _, fn := range functions {
		codes = append(codes, fn.Code)
	}
	return strings.Join(codes, "\n\n")
}

func (t *Target) FunctionName(op model.Operation, code string) string {
	status := strings.ToLower(code)
	if t.naming == NameFromPath || op.Operation == nil || op.Operation.OperationId == "" {
		path := pathPlaceholderPattern.ReplaceAllString(op.Path, "")
		return golang.ExportedName("test", path, op.Method.Lower(), status)
	}
	return golang.ExportedName("test", op.Operation.OperationId, status)
}

// Endpoint substitutes every {name} placeholder in the operation path with the
// example of the parameter called name.
func Endpoint(op model.Operation) (string, error) {
	params := parameters(op)

	var b strings.Builder
	last := 0
	for _, m := range placeholderPattern.FindAllStringSubmatchIndex(op.Path, -1) {
		name := op.Path[m[2]:m[3]]
		b.WriteString(op.Path[last:m[0]])
		last = m[1]

		p := params.lookup(name)
		if p == nil {
			return "", fmt.Errorf("%w: %s %s: no parameter declared for {%s}", ErrMissingExample, op.Method, op.Path, name)
		}
		node := parameterExample(p)
		if node == nil {
			return "", fmt.Errorf("%w: %s %s: parameter %q has no example", ErrMissingExample, op.Method, op.Path, name)
		}
		value, ok := golang.Scalar(node)
		if !ok {
			return "", fmt.Errorf("%w: %s %s: example of parameter %q is not a scalar", ErrUnexpectedShape, op.Method, op.Path, name)
		}
		b.WriteString(url.PathEscape(value))
	}
	b.WriteString(op.Path[last:])

	return b.String(), nil
}

type parameterSet []*v3.Parameter

// lookup prefers path parameters over parameters in other locations.
func (ps parameterSet) lookup(name string) *v3.Parameter {
	var fallback *v3.Parameter
	for _, p := range ps {
		if p == nil || p.Name != name {
			continue
		}
		if strings.EqualFold(p.In, "path") {
			return p
		}
		if fallback == nil {
			fallback = p
		}
	}
	return fallback
}

// parameters merges path item and operation parameters. Operation parameters
// override path item parameters with the same name and location.
func parameters(op model.Operation) parameterSet {
	var result parameterSet
	index := make(map[string]int)

	add := func(params []*v3.Parameter) {
		for _, p := range params {
			if p == nil {
				continue
			}
			key := strings.ToLower(p.In) + ":" + p.Name
			if i, ok := index[key]; ok {
				result[i] = p
				continue
			}
			index[key] = len(result)
			result = append(result, p)
		}
	}

	if op.PathItem != nil {
		add(op.PathItem.Parameters)
	}
	if op.Operation != nil {
		add(op.Operation.Parameters)
	}
	return result
}

func parameterExample(p *v3.Parameter) *yaml.Node {
	if p.Example != nil {
		return p.Example
	}
	if node := firstExample(p.Examples); node != nil {
		return node
	}
	return schemaExample(p.Schema)
}

func requestBody(op model.Operation) (body, param string, err error) {
	if op.Operation == nil || op.Operation.RequestBody == nil {
		return "", "", nil
	}

	media := jsonMediaType(op.Operation.RequestBody.Content)
	if media == nil {
		return "", "", nil
	}

	node := media.Example
	if node == nil {
		node = firstExample(media.Examples)
	}
	if node == nil {
		node = schemaExample(media.Schema)
	}
	if node == nil {
		return "var requestBody any\n\t", ", requestBody", nil
	}

	lit, err := golang.Literal(node, 1)
	if err != nil {
		return "", "", fmt.Errorf("%w: %s %s request body: %w", ErrUnexpectedShape, op.Method, op.Path, err)
	}
	return "requestBody := " + lit + "\n\t", ", requestBody", nil
}

func jsonMediaType(content *orderedmap.Map[string, *v3.MediaType]) *v3.MediaType {
	if content == nil {
		return nil
	}
	if media, ok := content.Get("application/json"); ok && media != nil {
		return media
	}
	for mediaType, media := range content.FromOldest() {
		mt := strings.ToLower(strings.TrimSpace(strings.Split(mediaType, ";")[0]))
		if mt == "application/json" || strings.HasSuffix(mt, "+json") {
			return media
		}
	}
	return nil
}

func firstExample(examples *orderedmap.Map[string, *base.Example]) *yaml.Node {
	if examples == nil {
		return nil
	}
	for _, ex := range examples.FromOldest() {
		if ex != nil && ex.Value != nil {
			return ex.Value
		}
	}
	return nil
}

func schemaExample(proxy *base.SchemaProxy) *yaml.Node {
	if proxy == nil {
		return nil
	}
	schema := proxy.Schema()
	if schema == nil {
		return nil
	}
	if schema.Example != nil {
		return schema.Example
	}
	if len(schema.Examples) > 0 {
		return schema.Examples[0]
	}
	return nil
}

func document(op model.Operation, code string) string {
	parts := []string{string(op.Method), op.Path}
	if op.Operation != nil && op.Operation.Summary != "" {
		parts = append(parts, strings.Join(strings.Fields(op.Operation.Summary), " "))
	}
	parts = append(parts, "status code", code)
	return strings.Join(parts, " ")
}

func assertion(code string) string {
	if n := golang.StatusCodeInt(code); n != 0 {
		return fmt.Sprintf("resp.AssertStatus(%d)", n)
	}
	if n := golang.StatusClass(code); n != 0 {
		return fmt.Sprintf("resp.AssertStatusClass(%d)", n)
	}
	return ""
}

var methodConstants = map[model.Method]string{
	model.MethodGet:     "http.MethodGet",
	model.MethodPost:    "http.MethodPost",
	model.MethodPut:     "http.MethodPut",
	model.MethodDelete:  "http.MethodDelete",
	model.MethodPatch:   "http.MethodPatch",
	model.MethodHead:    "http.MethodHead",
	model.MethodOptions: "http.MethodOptions",
	model.MethodTrace:   "http.MethodTrace",
}

func methodExpr(m model.Method) string {
	if c, ok := methodConstants[m]; ok {
		return c
	}
	return fmt.Sprintf("%q", string(m))
}
