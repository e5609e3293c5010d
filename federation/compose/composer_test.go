package compose_test

import (
	"testing"

	"github.com/n9te9/federation-core/federation/compose"
	"github.com/n9te9/federation-core/federation/graph"
)

func TestComposer_Compose_Basic(t *testing.T) {
	productSchema := `
		type Product @key(fields: "id") {
			id: ID!
			name: String!
		}
		type Query {
			product(id: ID!): Product
		}
	`
	reviewSchema := `
		extend type Product @key(fields: "id") {
			id: ID! @external
			reviews: [String!]!
		}
	`

	productSG, err := graph.NewSubGraphV2("product", []byte(productSchema), "http://product.example.com")
	if err != nil {
		t.Fatalf("NewSubGraphV2 failed: %v", err)
	}
	reviewSG, err := graph.NewSubGraphV2("review", []byte(reviewSchema), "http://review.example.com")
	if err != nil {
		t.Fatalf("NewSubGraphV2 failed: %v", err)
	}

	c := compose.New()
	sg, diags, err := c.Compose([]*graph.SubGraphV2{productSG, reviewSG})
	if err != nil {
		t.Fatalf("Compose failed: %v", err)
	}
	for _, d := range diags {
		if d.Severity == compose.SeverityError {
			t.Errorf("unexpected composition error: %s", d.Message)
		}
	}
	if sg == nil {
		t.Fatal("expected a composed schema")
	}
}

func TestComposer_Compose_ShareableMismatch(t *testing.T) {
	schemaA := `
		type Product @key(fields: "id") {
			id: ID!
			name: String!
		}
	`
	schemaB := `
		extend type Product @key(fields: "id") {
			id: ID! @external
			name: String!
		}
	`

	sgA, err := graph.NewSubGraphV2("a", []byte(schemaA), "http://a.example.com")
	if err != nil {
		t.Fatalf("NewSubGraphV2 failed: %v", err)
	}
	sgB, err := graph.NewSubGraphV2("b", []byte(schemaB), "http://b.example.com")
	if err != nil {
		t.Fatalf("NewSubGraphV2 failed: %v", err)
	}

	c := compose.New()
	_, diags, err := c.Compose([]*graph.SubGraphV2{sgA, sgB})
	if err != nil {
		t.Fatalf("Compose failed: %v", err)
	}

	found := false
	for _, d := range diags {
		if d.Severity == compose.SeverityError && d.Field == "name" {
			found = true
		}
	}
	if !found {
		t.Error("expected a shareable-mismatch diagnostic for Product.name")
	}
}

func TestComposer_Compose_Empty(t *testing.T) {
	c := compose.New()
	if _, _, err := c.Compose(nil); err == nil {
		t.Error("expected error composing zero subgraphs")
	}
}
