// Package spectator runs HTTP handlers in tests and checks their traffic
// against an OpenAPI document.
//
// Suites scaffolded by spectest use it like this:
//
//	api := spectator.Using(t, "openapi.yaml", handler)
//	resp := api.JSON(http.MethodGet, "/users/42")
//	resp.AssertValidRequest()
//	resp.AssertValidResponse()
//	resp.AssertStatus(200)
package spectator

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/caarlos0/env/v11"
	"github.com/pb33f/libopenapi"
	validator "github.com/pb33f/libopenapi-validator"
	"github.com/stretchr/testify/require"
)

// Spectator sends requests to a handler and validates them against an OpenAPI
// document.
type Spectator struct {
	t         testing.TB
	handler   http.Handler
	validator validator.Validator
	headers   http.Header
}

type Option func(*Spectator)

// WithHeader adds a header to every request sent by the Spectator.
func WithHeader(key, value string) Option {
	return func(s *Spectator) {
		s.headers.Add(key, value)
	}
}

type settings struct {
	SpecDir string `env:"SPECTATOR_SPEC_DIR" envDefault:"."`
}

// Using loads the OpenAPI document specName and returns a Spectator serving
// requests through handler. Relative names are resolved against
// SPECTATOR_SPEC_DIR, which defaults to the working directory.
func Using(t testing.TB, specName string, handler http.Handler, opts ...Option) *Spectator {
	t.Helper()

	var s settings
	require.NoError(t, env.Parse(&s), "parsing spectator environment")

	path := specName
	if !filepath.IsAbs(path) {
		path = filepath.Join(s.SpecDir, specName)
	}

	data, err := os.ReadFile(path)
	require.NoErrorf(t, err, "reading OpenAPI document %s", path)

	return UsingDocument(t, data, handler, opts...)
}

// UsingDocument is Using for an in-memory document.
func UsingDocument(t testing.TB, spec []byte, handler http.Handler, opts ...Option) *Spectator {
	t.Helper()

	doc, err := libopenapi.NewDocument(spec)
	require.NoError(t, err, "parsing OpenAPI document")

	v, errs := validator.NewValidator(doc)
	require.Empty(t, errs, "building OpenAPI validator")

	s := &Spectator{
		t:         t,
		handler:   handler,
		validator: v,
		headers:   make(http.Header),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// JSON sends a request with an optional JSON body. Only the first body value
// is used; a nil body sends no payload.
func (s *Spectator) JSON(method, endpoint string, body ...any) *Response {
	s.t.Helper()

	var payload []byte
	if len(body) > 0 && body[0] != nil {
		var err error
		payload, err = json.Marshal(body[0])
		require.NoError(s.t, err, "encoding request body")
	}

	header := s.headers.Clone()
	header.Set("Accept", "application/json")
	if payload != nil {
		header.Set("Content-Type", "application/json")
	}

	return s.serve(method, endpoint, header, payload)
}

// Do sends a request with a raw body and the given content type.
func (s *Spectator) Do(method, endpoint, contentType string, body []byte) *Response {
	s.t.Helper()

	header := s.headers.Clone()
	if contentType != "" {
		header.Set("Content-Type", contentType)
	}
	return s.serve(method, endpoint, header, body)
}

func (s *Spectator) serve(method, endpoint string, header http.Header, body []byte) *Response {
	r := &Response{
		t:         s.t,
		validator: s.validator,
		method:    method,
		target:    endpoint,
		header:    header,
		body:      body,
		recorder:  httptest.NewRecorder(),
	}
	s.handler.ServeHTTP(r.recorder, r.newRequest())
	return r
}

func (r *Response) newRequest() *http.Request {
	req := httptest.NewRequest(r.method, r.target, bytes.NewReader(r.body))
	req.Header = r.header.Clone()
	return req
}
