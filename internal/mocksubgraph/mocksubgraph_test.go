package mocksubgraph_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/n9te9/federation-core/internal/mocksubgraph"
)

const testSDL = `
	type Product {
		id: ID!
		name: String!
	}
	type Query {
		product(id: ID!): Product
	}
`

func TestServer_RespondsWithCannedBody(t *testing.T) {
	srv, err := mocksubgraph.New(testSDL, map[string]json.RawMessage{
		"": json.RawMessage(`{"data":{"product":{"id":"1","name":"Widget"}}}`),
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer srv.Close()

	reqBody, _ := json.Marshal(map[string]string{"query": `{ product(id: "1") { id name } }`})
	resp, err := http.Post(srv.URL, "application/json", bytes.NewReader(reqBody))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	var out map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	data, ok := out["data"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected a data field, got %#v", out)
	}
	product, ok := data["product"].(map[string]interface{})
	if !ok || product["name"] != "Widget" {
		t.Errorf("unexpected product: %#v", data["product"])
	}
}

func TestServer_RejectsQueryNotMatchingSchema(t *testing.T) {
	srv, err := mocksubgraph.New(testSDL, map[string]json.RawMessage{
		"": json.RawMessage(`{"data":{}}`),
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer srv.Close()

	reqBody, _ := json.Marshal(map[string]string{"query": `{ product(id: "1") { notAField } }`})
	resp, err := http.Post(srv.URL, "application/json", bytes.NewReader(reqBody))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	var out map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if _, hasErrors := out["errors"]; !hasErrors {
		t.Error("expected validation errors for a field not in the schema")
	}
}

func TestNew_InvalidSchemaRejected(t *testing.T) {
	if _, err := mocksubgraph.New("not a schema @@@", nil); err == nil {
		t.Error("expected an error building a Server from malformed SDL")
	}
}
