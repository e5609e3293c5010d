package executor_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/n9te9/federation-core/federation/cache"
	"github.com/n9te9/federation-core/federation/executor"
	"github.com/n9te9/federation-core/federation/planner"
	"github.com/n9te9/graphql-parser/ast"
)

func entityResolutionPlan(productsHost, reviewsHost string) *planner.PlanV2 {
	return &planner.PlanV2{
		Steps: []*planner.StepV2{
			{
				ID:       0,
				StepType: planner.StepTypeQuery,
				SubGraph: createMockSubgraph("products", productsHost),
				SelectionSet: []ast.Selection{
					&ast.Field{
						Name: &ast.Name{Value: "product"},
						Arguments: []*ast.Argument{
							{Name: &ast.Name{Value: "id"}, Value: &ast.StringValue{Value: "p1"}},
						},
						SelectionSet: []ast.Selection{
							&ast.Field{Name: &ast.Name{Value: "__typename"}},
							&ast.Field{Name: &ast.Name{Value: "id"}},
							&ast.Field{Name: &ast.Name{Value: "name"}},
						},
					},
				},
				DependsOn: []int{},
				Path:      []string{"Query"},
			},
			{
				ID:         1,
				StepType:   planner.StepTypeEntity,
				SubGraph:   createMockSubgraph("reviews", reviewsHost),
				ParentType: "Product",
				SelectionSet: []ast.Selection{
					&ast.Field{Name: &ast.Name{Value: "__typename"}},
					&ast.Field{Name: &ast.Name{Value: "id"}},
					&ast.Field{
						Name: &ast.Name{Value: "reviews"},
						SelectionSet: []ast.Selection{
							&ast.Field{Name: &ast.Name{Value: "body"}},
						},
					},
				},
				DependsOn:     []int{0},
				Path:          []string{"Query", "product"},
				InsertionPath: []string{"Query", "product"},
			},
		},
		RootStepIndexes: []int{0},
	}
}

func TestExecutorV2_EntityCache_DedupesRepeatedFetch(t *testing.T) {
	productsServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": map[string]interface{}{
				"product": map[string]interface{}{
					"__typename": "Product",
					"id":         "p1",
					"name":       "Product p1",
				},
			},
		})
	}))
	defer productsServer.Close()

	var reviewCalls atomic.Int64
	reviewsServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reviewCalls.Add(1)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": map[string]interface{}{
				"_entities": []interface{}{
					map[string]interface{}{
						"__typename": "Product",
						"id":         "p1",
						"reviews": []interface{}{
							map[string]interface{}{"body": "Great product!"},
						},
					},
				},
			},
		})
	}))
	defer reviewsServer.Close()

	exec := executor.NewExecutorV2(http.DefaultClient, createMockSuperGraphV2()).
		WithEntityCache(cache.NewMemoryCache(), time.Minute)

	for i := 0; i < 2; i++ {
		plan := entityResolutionPlan(productsServer.URL, reviewsServer.URL)
		if _, err := exec.Execute(context.Background(), plan, nil); err != nil {
			t.Fatalf("Execute #%d failed: %v", i, err)
		}
	}

	if got := reviewCalls.Load(); got != 1 {
		t.Errorf("expected the reviews subgraph to be hit exactly once (cached on the second call), got %d", got)
	}
}

func TestExecutorV2_EntityCache_DisabledByDefault(t *testing.T) {
	productsServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": map[string]interface{}{
				"product": map[string]interface{}{
					"__typename": "Product",
					"id":         "p1",
					"name":       "Product p1",
				},
			},
		})
	}))
	defer productsServer.Close()

	var reviewCalls atomic.Int64
	reviewsServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reviewCalls.Add(1)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": map[string]interface{}{
				"_entities": []interface{}{
					map[string]interface{}{
						"__typename": "Product",
						"id":         "p1",
						"reviews": []interface{}{
							map[string]interface{}{"body": "Great product!"},
						},
					},
				},
			},
		})
	}))
	defer reviewsServer.Close()

	exec := executor.NewExecutorV2(http.DefaultClient, createMockSuperGraphV2())

	for i := 0; i < 2; i++ {
		plan := entityResolutionPlan(productsServer.URL, reviewsServer.URL)
		if _, err := exec.Execute(context.Background(), plan, nil); err != nil {
			t.Fatalf("Execute #%d failed: %v", i, err)
		}
	}

	if got := reviewCalls.Load(); got != 2 {
		t.Errorf("expected no caching without WithEntityCache, got %d call(s) to reviews", got)
	}
}
