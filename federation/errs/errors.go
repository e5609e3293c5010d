// Package errs defines the gateway's closed set of extensions.code values
// and the GraphQLError wire shape every layer (bind, plan, exec, respond)
// produces, so a client always sees the same error envelope regardless of
// which component rejected its request.
package errs

import "fmt"

// Code is one of the extensions.code values the gateway will ever emit.
// The set is closed: new failure modes must be mapped onto one of these,
// not invent a new string.
type Code string

const (
	CodeBadRequest              Code = "BAD_REQUEST"
	CodeUnauthorized            Code = "UNAUTHORIZED"
	CodeUnsatisfiable           Code = "UNSATISFIABLE"
	CodeSubgraphError           Code = "SUBGRAPH_ERROR"
	CodeSubgraphInvalidResponse Code = "SUBGRAPH_INVALID_RESPONSE_ERROR"
	CodeRateLimited             Code = "RATE_LIMITED"
	CodeTimeout                 Code = "TIMEOUT"
	CodeInternal                Code = "INTERNAL_ERROR"
)

// GraphQLError is the wire shape of a single error entry in a GraphQL
// response's "errors" array.
type GraphQLError struct {
	Message    string         `json:"message"`
	Path       []any          `json:"path,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

func (e *GraphQLError) Error() string {
	return e.Message
}

// New builds a GraphQLError carrying the given code in its extensions.
func New(code Code, format string, args ...any) *GraphQLError {
	return &GraphQLError{
		Message:    fmt.Sprintf(format, args...),
		Extensions: map[string]any{"code": string(code)},
	}
}

// WithPath returns a copy of e with its response path set.
func (e *GraphQLError) WithPath(path []any) *GraphQLError {
	cp := *e
	cp.Path = path
	return &cp
}

// Wrap builds a GraphQLError from a lower-level error, tagging it with code.
func Wrap(code Code, err error) *GraphQLError {
	return &GraphQLError{
		Message:    err.Error(),
		Extensions: map[string]any{"code": string(code)},
	}
}
