package graph_test

import (
	"testing"

	"github.com/n9te9/federation-core/federation/graph"
)

func TestFieldSet_Parse(t *testing.T) {
	fs := graph.NewFieldSet(`id name { first last }`)
	fields := fs.Fields()
	if len(fields) != 2 {
		t.Fatalf("expected 2 top-level fields, got %d (%v)", len(fields), fields)
	}
	nested := fs.Nested("name")
	if nested == nil || len(nested.Fields()) != 2 {
		t.Fatalf("expected nested field set with 2 fields, got %v", nested)
	}
}

func TestFieldSet_UnionCommutative(t *testing.T) {
	a := graph.NewFieldSet("id name")
	b := graph.NewFieldSet("name email")

	ab := a.Union(b)
	ba := b.Union(a)

	if !ab.Equal(ba) {
		t.Errorf("union is not commutative: %s vs %s", ab, ba)
	}
}

func TestFieldSet_UnionAssociative(t *testing.T) {
	a := graph.NewFieldSet("id")
	b := graph.NewFieldSet("name")
	c := graph.NewFieldSet("email")

	left := a.Union(b).Union(c)
	right := a.Union(b.Union(c))

	if !left.Equal(right) {
		t.Errorf("union is not associative: %s vs %s", left, right)
	}
}

func TestFieldSet_Intersect(t *testing.T) {
	a := graph.NewFieldSet("id name email")
	b := graph.NewFieldSet("name email phone")

	got := a.Intersect(b)
	if got.Contains("id") || got.Contains("phone") {
		t.Errorf("intersect included a field not in both sets: %s", got)
	}
	if !got.Contains("name") || !got.Contains("email") {
		t.Errorf("intersect missing a shared field: %s", got)
	}
}

func TestFieldSet_Contains(t *testing.T) {
	fs := graph.NewFieldSet("id")
	if !fs.Contains("id") {
		t.Error("expected fs to contain id")
	}
	if fs.Contains("name") {
		t.Error("expected fs not to contain name")
	}
}
