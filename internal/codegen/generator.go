package codegen

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"strconv"
	"strings"

	"github.com/kolah/spectest/internal/config"
	"github.com/kolah/spectest/internal/golang"
	"github.com/kolah/spectest/internal/model"
	"github.com/kolah/spectest/internal/output"
	"github.com/kolah/spectest/internal/targets/testcase"
	"github.com/kolah/spectest/internal/templates"
	embeddedtmpl "github.com/kolah/spectest/templates"
)

type Generator struct {
	config *config.Config
	engine templates.Engine
	target *testcase.Target
}

type Output struct {
	Filename string
	Content  string
	// Functions lists the names of the suite methods written by this run.
	Functions []string
	Warnings  []string
}

func New(cfg *config.Config) (*Generator, error) {
	if len(cfg.AdditionalInitialisms) > 0 {
		golang.SetAdditionalInitialisms(cfg.AdditionalInitialisms)
	}

	engine, err := templates.NewEngine(embeddedtmpl.FS, cfg.Templates.Dir, golang.TemplateFuncs())
	if err != nil {
		return nil, fmt.Errorf("creating template engine: %w", err)
	}

	naming := testcase.NameFromOperationID
	if cfg.TestNameWithPath {
		naming = testcase.NameFromPath
	}

	return &Generator{
		config: cfg,
		engine: engine,
		target: testcase.New(naming),
	}, nil
}

// Generate renders a new test file for the selected operations.
func (g *Generator) Generate(sel *model.Selection, dest output.Destination, specFile string) (*Output, error) {
	functions, warnings, err := g.render(sel, dest.Suite, nil)
	if err != nil {
		return nil, err
	}

	content, err := g.target.RenderClass(g.engine, testcase.Class{
		Package:       dest.Package,
		Suite:         dest.Suite,
		SpecFile:      specFile,
		RuntimeImport: g.config.RuntimeImport,
	}, functions)
	if err != nil {
		return nil, fmt.Errorf("rendering test class: %w", err)
	}

	return g.finish(dest.Path, content, functions, warnings)
}

// Append renders the selected operations and appends them to existing, the
// current content of the destination file. Methods already declared on the
// suite are skipped.
func (g *Generator) Append(sel *model.Selection, dest output.Destination, existing []byte) (*Output, error) {
	declared, err := suiteMethods(dest.Path, existing, dest.Suite)
	if err != nil {
		return nil, err
	}

	functions, warnings, err := g.render(sel, dest.Suite, declared)
	if err != nil {
		return nil, err
	}

	content := strings.TrimRight(string(existing), "\n")
	if len(functions) > 0 {
		content += "\n\n" + testcase.JoinFunctions(functions)
	}

	return g.finish(dest.Path, content+"\n", functions, warnings)
}

// render produces the suite methods for every selected operation, in selection
// order. Names in existing are skipped; names repeated within this run get the
// first numeric suffix free in both existing and this run.
func (g *Generator) render(sel *model.Selection, suite string, existing map[string]bool) ([]testcase.Function, []string, error) {
	var functions []testcase.Function
	var warnings []string
	used := make(map[string]int)

	for _, op := range sel.Operations() {
		rendered, err := g.target.RenderOperation(g.engine, suite, op)
		if err != nil {
			return nil, nil, err
		}
		if len(rendered) == 0 {
			warnings = append(warnings, fmt.Sprintf("%s %s declares no responses. Skip.", op.Method, op.Path))
			continue
		}

		for _, fn := range rendered {
			if existing[fn.Name] {
				warnings = append(warnings, fmt.Sprintf("%s already exists on %s. Skip.", fn.Name, suite))
				continue
			}
			if used[fn.Name] > 0 {
				renamed := fn.Name
				for n := used[fn.Name] + 1; ; n++ {
					renamed = fn.Name + "_" + strconv.Itoa(n)
					if !existing[renamed] && used[renamed] == 0 {
						break
					}
				}
				warnings = append(warnings, fmt.Sprintf("%s is generated more than once, renamed to %s", fn.Name, renamed))
				used[fn.Name]++
				fn.Code = strings.Replace(fn.Code, ") "+fn.Name+"() {", ") "+renamed+"() {", 1)
				fn.Name = renamed
			}
			used[fn.Name]++
			functions = append(functions, fn)
		}
	}

	return functions, warnings, nil
}

func (g *Generator) finish(path, content string, functions []testcase.Function, warnings []string) (*Output, error) {
	formatted, err := golang.Format(path, []byte(content))
	if err != nil {
		return nil, fmt.Errorf("formatting %s: %w", path, err)
	}

	names := make([]string, 0, len(functions))
	for _, fn := range functions {
		names = append(names, fn.Name)
	}

	return &Output{
		Filename:  path,
		Content:   string(formatted),
		Functions: names,
		Warnings:  warnings,
	}, nil
}

// suiteMethods lists the methods declared on suite in a Go source file.
func suiteMethods(filename string, src []byte, suite string) (map[string]bool, error) {
	file, err := parser.ParseFile(token.NewFileSet(), filename, src, parser.SkipObjectResolution)
	if err != nil {
		return nil, fmt.Errorf("parsing existing file %s: %w", filename, err)
	}

	methods := make(map[string]bool)
	for _, decl := range file.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if !ok || fn.Recv == nil || len(fn.Recv.List) == 0 {
			continue
		}
		if receiverName(fn.Recv.List[0].Type) == suite {
			methods[fn.Name.Name] = true
		}
	}
	return methods, nil
}

func receiverName(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.StarExpr:
		return receiverName(t.X)
	case *ast.Ident:
		return t.Name
	}
	return ""
}
