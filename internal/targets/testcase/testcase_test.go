package testcase

import (
	"go/ast"
	"go/parser"
	"go/token"
	"testing"

	"github.com/kolah/spectest/internal/golang"
	"github.com/kolah/spectest/internal/loader"
	"github.com/kolah/spectest/internal/model"
	"github.com/kolah/spectest/internal/templates"
	embeddedtmpl "github.com/kolah/spectest/templates"
	v3 "github.com/pb33f/libopenapi/datamodel/high/v3"
	"github.com/stretchr/testify/require"
)

const usersSpec = `openapi: "3.1.0"
info:
  title: Users
  version: "1.0"
paths:
  /users:
    post:
      operationId: createUser
      summary: Create a user
      requestBody:
        content:
          application/json:
            example:
              name: Jane
              roles: [admin]
      responses:
        "201":
          description: Created
        "422":
          description: Invalid
  /users/{id}:
    parameters:
      - name: id
        in: path
        required: true
        example: 42
        schema:
          type: integer
    get:
      operationId: getUserById
      summary: Get a user
      responses:
        "200":
          description: OK
        "404":
          description: Not found
    put:
      operationId: replaceUser
      parameters:
        - name: id
          in: path
          required: true
          schema:
            type: string
            example: abc/def
      requestBody:
        content:
          application/merge-patch+json:
            schema:
              type: object
              example: {name: Joe}
      responses:
        "4XX":
          description: Client error
        default:
          description: Anything else
  /orgs/{org}/members/{member}:
    get:
      parameters:
        - name: org
          in: path
          required: true
          examples:
            first:
              value: acme
        - name: member
          in: path
          required: true
          schema:
            type: string
      responses:
        "200":
          description: OK
  /files/{name}:
    get:
      operationId: getFile
      parameters:
        - name: name
          in: path
          required: true
          example: [a, b]
      responses:
        "200":
          description: OK
  /uploads:
    post:
      operationId: upload
      requestBody:
        content:
          application/json:
            schema:
              type: object
          text/plain:
            example: raw
      responses:
        "202":
          description: Accepted
  /text:
    post:
      operationId: postText
      requestBody:
        content:
          text/plain:
            example: raw
      responses:
        "200":
          description: OK
`

func loadDoc(t *testing.T) *v3.Document {
	t.Helper()
	result, err := loader.LoadBytes([]byte(usersSpec), "users.yaml")
	require.NoError(t, err)
	return result.Model()
}

func operation(t *testing.T, doc *v3.Document, path string, method model.Method) model.Operation {
	t.Helper()
	item, ok := doc.Paths.PathItems.Get(path)
	require.True(t, ok, path)
	op := model.PathItemOperation(item, method)
	require.NotNil(t, op)
	return model.Operation{Path: path, Method: method, PathItem: item, Operation: op}
}

func newEngine(t *testing.T) templates.Engine {
	t.Helper()
	engine, err := templates.NewEngine(embeddedtmpl.FS, "", golang.TemplateFuncs())
	require.NoError(t, err)
	return engine
}

func TestRenderOperationPerStatusCode(t *testing.T) {
	doc := loadDoc(t)
	op := operation(t, doc, "/users/{id}", model.MethodGet)

	functions, err := New(NameFromOperationID).RenderOperation(newEngine(t), "UsersSuite", op)
	require.NoError(t, err)
	require.Len(t, functions, 2)

	require.Equal(t, "TestGetUserByID200", functions[0].Name)
	require.Equal(t, "TestGetUserByID404", functions[1].Name)

	expected := `// GET /users/{id} Get a user status code 200
func (s *UsersSuite) TestGetUserByID200() {
	resp := s.api.JSON(http.MethodGet, "/users/42")
	resp.AssertValidRequest()
	resp.AssertValidResponse()
	resp.AssertStatus(200)
}`
	require.Equal(t, expected, functions[0].Code)
	require.Contains(t, functions[1].Code, `"/users/42"`)
	require.Contains(t, functions[1].Code, "resp.AssertStatus(404)")
}

func TestRenderOperationRequestBody(t *testing.T) {
	doc := loadDoc(t)
	op := operation(t, doc, "/users", model.MethodPost)

	functions, err := New(NameFromOperationID).RenderOperation(newEngine(t), "UsersSuite", op)
	require.NoError(t, err)
	require.Len(t, functions, 2)

	expected := `// POST /users Create a user status code 201
func (s *UsersSuite) TestCreateUser201() {
	requestBody := map[string]any{
		"name": "Jane",
		"roles": []any{
			"admin",
		},
	}
	resp := s.api.JSON(http.MethodPost, "/users", requestBody)
	resp.AssertValidRequest()
	resp.AssertValidResponse()
	resp.AssertStatus(201)
}`
	require.Equal(t, expected, functions[0].Code)
	require.Contains(t, functions[1].Code, "resp.AssertStatus(422)")
}

func TestRenderOperationRangesAndDefault(t *testing.T) {
	doc := loadDoc(t)
	op := operation(t, doc, "/users/{id}", model.MethodPut)

	functions, err := New(NameFromOperationID).RenderOperation(newEngine(t), "UsersSuite", op)
	require.NoError(t, err)
	require.Len(t, functions, 2)

	require.Equal(t, "TestReplaceUser4xx", functions[0].Name)
	require.Contains(t, functions[0].Code, "resp.AssertStatusClass(4)")
	// operation parameters override the path item parameter
	require.Contains(t, functions[0].Code, `"/users/abc%2Fdef"`)
	require.Contains(t, functions[0].Code, `"name": "Joe"`)

	require.Equal(t, "TestReplaceUserDefault", functions[1].Name)
	require.NotContains(t, functions[1].Code, "AssertStatus")
	require.Contains(t, functions[1].Code, "resp.AssertValidResponse()\n}")
}

func TestRenderOperationBodyWithoutExample(t *testing.T) {
	doc := loadDoc(t)
	op := operation(t, doc, "/uploads", model.MethodPost)

	functions, err := New(NameFromOperationID).RenderOperation(newEngine(t), "S", op)
	require.NoError(t, err)
	require.Len(t, functions, 1)
	require.Contains(t, functions[0].Code, "var requestBody any\n\tresp := s.api.JSON(http.MethodPost, \"/uploads\", requestBody)")
}

func TestRenderOperationNonJSONBody(t *testing.T) {
	doc := loadDoc(t)
	op := operation(t, doc, "/text", model.MethodPost)

	functions, err := New(NameFromOperationID).RenderOperation(newEngine(t), "S", op)
	require.NoError(t, err)
	require.NotContains(t, functions[0].Code, "requestBody")
	require.Contains(t, functions[0].Code, `s.api.JSON(http.MethodPost, "/text")`)
}

func TestRenderOperationErrors(t *testing.T) {
	doc := loadDoc(t)

	tests := []struct {
		name     string
		path     string
		sentinel error
	}{
		{name: "missing example", path: "/orgs/{org}/members/{member}", sentinel: ErrMissingExample},
		{name: "non scalar example", path: "/files/{name}", sentinel: ErrUnexpectedShape},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op := operation(t, doc, tt.path, model.MethodGet)
			_, err := New(NameFromOperationID).RenderOperation(newEngine(t), "S", op)
			require.ErrorIs(t, err, tt.sentinel)
		})
	}
}

func TestEndpoint(t *testing.T) {
	doc := loadDoc(t)

	endpoint, err := Endpoint(operation(t, doc, "/users/{id}", model.MethodGet))
	require.NoError(t, err)
	require.Equal(t, "/users/42", endpoint)

	_, err = Endpoint(model.Operation{Path: "/things/{thing}", Method: model.MethodGet, Operation: &v3.Operation{}})
	require.ErrorIs(t, err, ErrMissingExample)
	require.ErrorContains(t, err, "no parameter declared for {thing}")
}

func TestFunctionName(t *testing.T) {
	doc := loadDoc(t)
	getUser := operation(t, doc, "/users/{id}", model.MethodGet)
	members := operation(t, doc, "/orgs/{org}/members/{member}", model.MethodGet)

	tests := []struct {
		name     string
		naming   NamingStrategy
		op       model.Operation
		code     string
		expected string
	}{
		{"operation id", NameFromOperationID, getUser, "200", "TestGetUserByID200"},
		{"path", NameFromPath, getUser, "404", "TestUsersGet404"},
		{"missing operation id falls back to path", NameFromOperationID, members, "200", "TestOrgsMembersGet200"},
		{"default status", NameFromPath, getUser, "default", "TestUsersGetDefault"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, New(tt.naming).FunctionName(tt.op, tt.code))
		})
	}
}

func TestStatusCodes(t *testing.T) {
	doc := loadDoc(t)

	require.Equal(t, []string{"200", "404"}, StatusCodes(operation(t, doc, "/users/{id}", model.MethodGet).Operation))
	require.Equal(t, []string{"4XX", "default"}, StatusCodes(operation(t, doc, "/users/{id}", model.MethodPut).Operation))
	require.Nil(t, StatusCodes(&v3.Operation{}))
}

func TestStatusCodesKeepDeclaredOrder(t *testing.T) {
	spec := `openapi: "3.1.0"
info:
  title: Order
  version: "1.0"
paths:
  /jobs:
    get:
      operationId: listJobs
      responses:
        "500":
          description: Failure
        default:
          description: Anything else
        "200":
          description: OK
        "404":
          description: Not found
    post:
      operationId: createJob
      responses: {"409": {description: Conflict}, "201": {description: Created}, default: {description: Other}}
    delete:
      operationId: deleteJob
      responses:
        default:
          description: Anything
        "204":
          description: Deleted
`
	result, err := loader.LoadBytes([]byte(spec), "order.yaml")
	require.NoError(t, err)
	doc := result.Model()

	tests := []struct {
		method   model.Method
		expected []string
	}{
		{model.MethodGet, []string{"500", "default", "200", "404"}},
		{model.MethodPost, []string{"409", "201", "default"}},
		{model.MethodDelete, []string{"default", "204"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.method), func(t *testing.T) {
			require.Equal(t, tt.expected, StatusCodes(operation(t, doc, "/jobs", tt.method).Operation))
		})
	}

	functions, err := New(NameFromOperationID).RenderOperation(newEngine(t), "JobsSuite", operation(t, doc, "/jobs", model.MethodGet))
	require.NoError(t, err)

	var names []string
	for _, fn := range functions {
		names = append(names, fn.Name)
	}
	require.Equal(t, []string{"TestListJobs500", "TestListJobsDefault", "TestListJobs200", "TestListJobs404"}, names)
}

func TestRenderClass(t *testing.T) {
	doc := loadDoc(t)
	engine := newEngine(t)
	target := New(NameFromOperationID)

	var functions []Function
	for _, op := range []model.Operation{
		operation(t, doc, "/users", model.MethodPost),
		operation(t, doc, "/users/{id}", model.MethodGet),
	} {
		fns, err := target.RenderOperation(engine, "UsersSuite", op)
		require.NoError(t, err)
		functions = append(functions, fns...)
	}

	content, err := target.RenderClass(engine, Class{
		Package:       "feature",
		Suite:         "UsersSuite",
		SpecFile:      "users.yaml",
		RuntimeImport: "github.com/kolah/spectest/spectator",
	}, functions)
	require.NoError(t, err)

	require.Contains(t, content, "// Scaffolded by spectest from users.yaml.")
	require.Contains(t, content, "package feature")
	require.Contains(t, content, `spectator.Using(s.T(), "users.yaml", http.NotFoundHandler())`)
	require.Contains(t, content, "// users.yaml is read from SPECTATOR_SPEC_DIR, which defaults to the\n\t// package directory;")
	require.Contains(t, content, "}\n\n// GET /users/{id} Get a user status code 200")

	file, err := parser.ParseFile(token.NewFileSet(), "users_test.go", content, parser.ParseComments)
	require.NoError(t, err)

	var methods []string
	for _, decl := range file.Decls {
		if fn, ok := decl.(*ast.FuncDecl); ok && fn.Recv != nil {
			methods = append(methods, fn.Name.Name)
		}
	}
	require.Equal(t, []string{"SetupTest", "TestCreateUser201", "TestCreateUser422", "TestGetUserByID200", "TestGetUserByID404"}, methods)
}
