package bind_test

import (
	"testing"

	"github.com/n9te9/federation-core/federation/bind"
	"github.com/n9te9/federation-core/federation/graph"
	"github.com/n9te9/graphql-parser/lexer"
	"github.com/n9te9/graphql-parser/parser"
)

func mustSuperGraph(t *testing.T, sdl string) *graph.SuperGraphV2 {
	t.Helper()
	sg, err := graph.NewSubGraphV2("product", []byte(sdl), "http://product.example.com")
	if err != nil {
		t.Fatalf("NewSubGraphV2 failed: %v", err)
	}
	superGraph, err := graph.NewSuperGraphV2([]*graph.SubGraphV2{sg})
	if err != nil {
		t.Fatalf("NewSuperGraphV2 failed: %v", err)
	}
	return superGraph
}

func TestBinder_ValidQuery(t *testing.T) {
	sg := mustSuperGraph(t, `
		type Product @key(fields: "id") {
			id: ID!
			name: String!
		}
		type Query {
			product(id: ID!): Product
		}
	`)

	l := lexer.New(`query { product(id: "1") { id name } }`)
	p := parser.New(l)
	doc := p.ParseDocument()
	if len(p.Errors()) > 0 {
		t.Fatalf("parse error: %v", p.Errors())
	}

	b := bind.New(sg)
	bound, problems := b.Bind(doc)
	if len(problems) > 0 {
		t.Fatalf("unexpected bind problems: %v", problems)
	}
	if bound.RootTypeName != "Query" {
		t.Errorf("expected root type Query, got %s", bound.RootTypeName)
	}
}

func TestBinder_UnknownField(t *testing.T) {
	sg := mustSuperGraph(t, `
		type Product @key(fields: "id") {
			id: ID!
			name: String!
		}
		type Query {
			product(id: ID!): Product
		}
	`)

	l := lexer.New(`query { product(id: "1") { id naem } }`)
	p := parser.New(l)
	doc := p.ParseDocument()
	if len(p.Errors()) > 0 {
		t.Fatalf("parse error: %v", p.Errors())
	}

	b := bind.New(sg)
	_, problems := b.Bind(doc)
	if len(problems) == 0 {
		t.Fatal("expected a bind problem for unknown field 'naem'")
	}
	found := false
	for _, p := range problems {
		if p.Extensions["code"] == "BAD_REQUEST" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a BAD_REQUEST problem, got %v", problems)
	}
}
