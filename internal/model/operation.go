package model

import (
	"strings"

	v3 "github.com/pb33f/libopenapi/datamodel/high/v3"
	"github.com/pb33f/libopenapi/orderedmap"
)

type Method string

const (
	MethodGet     Method = "GET"
	MethodPost    Method = "POST"
	MethodPut     Method = "PUT"
	MethodDelete  Method = "DELETE"
	MethodPatch   Method = "PATCH"
	MethodHead    Method = "HEAD"
	MethodOptions Method = "OPTIONS"
	MethodTrace   Method = "TRACE"
	MethodQuery   Method = "QUERY" // OpenAPI 3.2
)

// ParseMethod returns the Method for s, ignoring case and surrounding space.
func ParseMethod(s string) (Method, bool) {
	m := Method(strings.ToUpper(strings.TrimSpace(s)))
	switch m {
	case MethodGet, MethodPost, MethodPut, MethodDelete, MethodPatch,
		MethodHead, MethodOptions, MethodTrace, MethodQuery:
		return m, true
	}
	return "", false
}

func (m Method) Lower() string {
	return strings.ToLower(string(m))
}

// Operation is one HTTP method on one declared path. PathItem and Operation
// point into the parsed document and must not be modified.
type Operation struct {
	Path      string
	Method    Method
	PathItem  *v3.PathItem
	Operation *v3.Operation
}

// Key identifies the operation inside a Selection.
func (o Operation) Key() string {
	return o.Path + o.Method.Lower()
}

type MethodOperation struct {
	Method    Method
	Operation *v3.Operation
}

// PathItemOperations lists the operations declared on item in a fixed method
// order.
func PathItemOperations(item *v3.PathItem) []MethodOperation {
	if item == nil {
		return nil
	}

	methods := []MethodOperation{
		{MethodGet, item.Get},
		{MethodPost, item.Post},
		{MethodPut, item.Put},
		{MethodDelete, item.Delete},
		{MethodPatch, item.Patch},
		{MethodHead, item.Head},
		{MethodOptions, item.Options},
		{MethodTrace, item.Trace},
		{MethodQuery, item.Query},
	}

	var result []MethodOperation
	for _, m := range methods {
		if m.Operation == nil {
			continue
		}
		result = append(result, m)
	}
	return result
}

// PathItemOperation returns the operation declared for method on item, or nil.
func PathItemOperation(item *v3.PathItem, method Method) *v3.Operation {
	for _, m := range PathItemOperations(item) {
		if m.Method == method {
			return m.Operation
		}
	}
	return nil
}

// Selection is an insertion-ordered set of operations keyed by Operation.Key.
// Adding an operation whose key is already present replaces the record and
// keeps its original position.
type Selection struct {
	ops *orderedmap.Map[string, Operation]
}

func NewSelection() *Selection {
	return &Selection{ops: orderedmap.New[string, Operation]()}
}

func (s *Selection) Add(op Operation) {
	s.ops.Set(op.Key(), op)
}

// Merge adds every operation of other, in order.
func (s *Selection) Merge(other *Selection) {
	if other == nil {
		return
	}
	for _, op := range other.ops.FromOldest() {
		s.Add(op)
	}
}

func (s *Selection) Get(path string, method Method) (Operation, bool) {
	return s.ops.Get(Operation{Path: path, Method: method}.Key())
}

func (s *Selection) Len() int {
	return s.ops.Len()
}

// Operations returns the selected operations in selection order.
func (s *Selection) Operations() []Operation {
	result := make([]Operation, 0, s.ops.Len())
	for _, op := range s.ops.FromOldest() {
		result = append(result, op)
	}
	return result
}
