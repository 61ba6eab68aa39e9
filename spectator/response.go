package spectator

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	validator "github.com/pb33f/libopenapi-validator"
	validatorErrors "github.com/pb33f/libopenapi-validator/errors"
	"github.com/stretchr/testify/assert"
)

// Response is the outcome of one request. Assertions report failures on the
// test and return the Response so they can be chained.
type Response struct {
	t         testing.TB
	validator validator.Validator
	method    string
	target    string
	header    http.Header
	body      []byte
	recorder  *httptest.ResponseRecorder
}

func (r *Response) StatusCode() int {
	return r.recorder.Code
}

func (r *Response) Header() http.Header {
	return r.recorder.Header()
}

func (r *Response) Body() []byte {
	return r.recorder.Body.Bytes()
}

// Decode unmarshals the JSON response body into v.
func (r *Response) Decode(v any) error {
	return json.Unmarshal(r.recorder.Body.Bytes(), v)
}

// AssertValidRequest checks the request against the operation's parameters
// and request body schema.
func (r *Response) AssertValidRequest() *Response {
	r.t.Helper()

	valid, errs := r.validator.ValidateHttpRequestSync(r.newRequest())
	if !valid {
		assert.Fail(r.t, fmt.Sprintf("%s %s does not match the OpenAPI document", r.method, r.target), formatErrors(errs))
	}
	return r
}

// AssertValidResponse checks the status, headers and body against the
// operation's declared responses.
func (r *Response) AssertValidResponse() *Response {
	r.t.Helper()

	valid, errs := r.validator.ValidateHttpResponse(r.newRequest(), r.result())
	if !valid {
		assert.Fail(r.t, fmt.Sprintf("response to %s %s does not match the OpenAPI document", r.method, r.target), formatErrors(errs))
	}
	return r
}

func (r *Response) AssertStatus(code int) *Response {
	r.t.Helper()

	assert.Equalf(r.t, code, r.recorder.Code, "%s %s returned an unexpected status, body: %s", r.method, r.target, r.recorder.Body.String())
	return r
}

// AssertStatusClass checks the leading digit of the status code, as declared
// by ranges such as "4XX".
func (r *Response) AssertStatusClass(class int) *Response {
	r.t.Helper()

	assert.Equalf(r.t, class, r.recorder.Code/100, "%s %s returned status %d, expected %dXX, body: %s", r.method, r.target, r.recorder.Code, class, r.recorder.Body.String())
	return r
}

func (r *Response) result() *http.Response {
	resp := r.recorder.Result()
	resp.Body = io.NopCloser(bytes.NewReader(r.recorder.Body.Bytes()))
	return resp
}

func formatErrors(errs []*validatorErrors.ValidationError) string {
	var b strings.Builder
	for _, e := range errs {
		b.WriteString(e.Message)
		if e.Reason != "" {
			b.WriteString(": ")
			b.WriteString(e.Reason)
		}
		if e.HowToFix != "" {
			b.WriteString(" (")
			b.WriteString(e.HowToFix)
			b.WriteString(")")
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
