package gateway

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/n9te9/federation-core/internal/mocksubgraph"
)

// TestGateway_EndToEndAgainstMockSubgraph exercises the full ServeHTTP
// path — binder, planner, executor (through a real HTTP round trip to a
// mocksubgraph.Server), and respond.ResponseWriter's shape completion —
// against a single-subgraph deployment.
func TestGateway_EndToEndAgainstMockSubgraph(t *testing.T) {
	sdl := `
		type Product {
			id: ID!
			name: String!
		}
		type Query {
			product(id: ID!): Product
		}
	`

	subgraph, err := mocksubgraph.New(sdl, map[string]json.RawMessage{
		"": json.RawMessage(`{"data":{"product":{"id":"1","name":"Widget"}}}`),
	})
	if err != nil {
		t.Fatalf("mocksubgraph.New failed: %v", err)
	}
	defer subgraph.Close()

	settings := GatewayOption{
		Services: []GatewayService{
			{Name: "product", Host: subgraph.URL, SchemaFiles: []string{writeTestSchema(t, sdl)}},
		},
	}
	gw, err := NewGateway(settings)
	if err != nil {
		t.Fatalf("NewGateway failed: %v", err)
	}

	req := graphQLRequest{Query: `{ product(id: "1") { id name } }`}
	body, _ := json.Marshal(req)
	httpReq := httptest.NewRequest(http.MethodPost, "/graphql", bytes.NewReader(body))
	w := httptest.NewRecorder()
	gw.ServeHTTP(w, httpReq)

	var resp map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode gateway response: %v", err)
	}
	if _, hasErrors := resp["errors"]; hasErrors {
		t.Fatalf("unexpected errors in response: %#v", resp["errors"])
	}

	data, ok := resp["data"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected a data field, got %#v", resp)
	}
	product, ok := data["product"].(map[string]interface{})
	if !ok || product["name"] != "Widget" {
		t.Errorf("unexpected product in response: %#v", data["product"])
	}
}
