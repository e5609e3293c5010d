// Package mocksubgraph is an in-process mock GraphQL subgraph for
// gateway/registry/executor tests. The product has no subgraph
// implementation of its own to offer (subgraph implementation is out of
// scope); this is test-only infrastructure the suite needs regardless.
package mocksubgraph

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"

	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
)

// Server is a canned-response subgraph: it validates each incoming
// request's query against sdl with gqlparser — an independent validator
// from the graphql-parser-based AST the gateway itself plans against —
// then replies with a fixed, test-supplied body keyed by operation name.
type Server struct {
	*httptest.Server

	schema    *ast.Schema
	responses map[string]json.RawMessage
}

// New builds a Server backed by sdl. responses maps an operation name (or
// "" for an anonymous operation, used as the fallback when no entry
// matches) to the literal JSON body returned for it — e.g.
// `{"data": {"product": {"id": "1"}}}` or an error envelope.
func New(sdl string, responses map[string]json.RawMessage) (*Server, error) {
	schema, err := gqlparser.LoadSchema(&ast.Source{Name: "mocksubgraph.graphql", Input: sdl})
	if err != nil {
		return nil, fmt.Errorf("mocksubgraph: invalid schema: %w", err)
	}

	s := &Server{schema: schema, responses: responses}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s, nil
}

type incomingRequest struct {
	Query         string                 `json:"query"`
	OperationName string                 `json:"operationName"`
	Variables     map[string]interface{} `json:"variables"`
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	var req incomingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("mocksubgraph: failed to decode request: %v", err), http.StatusBadRequest)
		return
	}

	doc, err := gqlparser.LoadQuery(s.schema, req.Query)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"errors": []map[string]interface{}{{"message": err.Error()}},
		})
		return
	}

	name := req.OperationName
	if name == "" && len(doc.Operations) > 0 {
		name = doc.Operations[0].Name
	}

	body, ok := s.responses[name]
	if !ok {
		body, ok = s.responses[""]
	}
	if !ok {
		http.Error(w, fmt.Sprintf("mocksubgraph: no canned response for operation %q", name), http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(body)
}
