package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/n9te9/federation-core/federation/bind"
	"github.com/n9te9/federation-core/federation/cache"
	"github.com/n9te9/federation-core/federation/errs"
	"github.com/n9te9/federation-core/federation/executor"
	"github.com/n9te9/federation-core/federation/graph"
	"github.com/n9te9/federation-core/federation/planner"
	"github.com/n9te9/federation-core/federation/respond"
	"github.com/n9te9/federation-core/internal/config"
	"github.com/n9te9/federation-core/internal/fingerprint"
	"github.com/n9te9/graphql-parser/lexer"
	"github.com/n9te9/graphql-parser/parser"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type GatewayService struct {
	Name        string   `yaml:"name"`
	Host        string   `yaml:"host"`
	SchemaFiles []string `yaml:"schema_files"`
}

type GatewayOption struct {
	Endpoint                    string               `yaml:"endpoint"`
	ServiceName                 string               `yaml:"service_name"`
	Port                        int                  `yaml:"port"`
	TimeoutDuration             string               `yaml:"timeout_duration" default:"5s"`
	EnableHangOverRequestHeader bool                 `yaml:"enable_hang_over_request_header" default:"true"`
	Services                    []GatewayService           `yaml:"services"`
	Opentelemetry               OpentelemetrySetting       `yaml:"opentelemetry"`
	EntityCaching               config.EntityCachingConfig `yaml:"entity_caching"`
}

type OpentelemetrySetting struct {
	TracingSetting OpentelemetryTracingSetting `yaml:"tracing"`
}

type OpentelemetryTracingSetting struct {
	Enable bool `yaml:"enable" default:"false"`
}

// planCacheEntry is a byte-equal plan keyed by the canonicalized bound
// operation's fingerprint, per spec §4.3's "byte-equal plans" contract.
type planCacheEntry struct {
	plan  *planner.PlanV2
	shape *respond.ConcreteShapeSeed
}

type gateway struct {
	graphQLEndpoint string
	serviceName     string
	binder          *bind.OperationBinder
	planner         *planner.PlannerV2
	executor        *executor.ExecutorV2
	writer          *respond.ResponseWriter
	superGraph      *graph.SuperGraphV2

	planCacheMu sync.RWMutex
	planCache   map[uint64]planCacheEntry

	enableComplementRequestId   bool
	enableHangOverRequestHeader bool
	enableOpentelemetryTracing  bool
}

var _ http.Handler = (*gateway)(nil)

func NewGateway(settings GatewayOption) (*gateway, error) {
	var subGraphs []*graph.SubGraphV2
	for _, s := range settings.Services {
		var schema []byte
		for _, f := range s.SchemaFiles {
			src, err := os.ReadFile(f)
			if err != nil {
				return nil, err
			}
			schema = append(schema, src...)
		}

		subGraph, err := graph.NewSubGraphV2(s.Name, schema, s.Host)
		if err != nil {
			return nil, err
		}

		subGraphs = append(subGraphs, subGraph)
	}

	superGraph, err := graph.NewSuperGraphV2(subGraphs)
	if err != nil {
		return nil, err
	}

	// Create HTTP client with timeout for subgraph requests
	httpClient := &http.Client{
		Timeout: 3 * time.Second, // 3 second timeout for subgraph requests
	}

	if settings.Opentelemetry.TracingSetting.Enable {
		httpClient.Transport = otelhttp.NewTransport(http.DefaultTransport)
	}

	exec := executor.NewExecutorV2(httpClient, superGraph)
	if settings.EntityCaching.Enabled {
		ttl, err := settings.EntityCaching.TTLDuration()
		if err != nil {
			return nil, fmt.Errorf("invalid entity_caching.ttl: %w", err)
		}
		exec = exec.WithEntityCache(cache.NewMemoryCache(), ttl)
	}

	return &gateway{
		graphQLEndpoint:             settings.Endpoint,
		serviceName:                 settings.ServiceName,
		binder:                      bind.New(superGraph),
		planner:                     planner.NewPlannerV2(superGraph),
		executor:                    exec,
		writer:                      respond.New(),
		superGraph:                  superGraph,
		planCache:                   make(map[uint64]planCacheEntry),
		enableComplementRequestId:   true,
		enableHangOverRequestHeader: settings.EnableHangOverRequestHeader,
		enableOpentelemetryTracing:  settings.Opentelemetry.TracingSetting.Enable,
	}, nil
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

func (g *gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	if g.enableComplementRequestId && r.Header.Get("X-Request-Id") == "" {
		r.Header.Set("X-Request-Id", uuid.NewString())
	}

	format, negotiateErr := NegotiateResponseFormat(r.Header.Get("Accept"))
	if negotiateErr != nil {
		g.writeErrors(w, negotiateErr)
		return
	}

	var req graphQLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		g.writeErrors(w, errs.New(errs.CodeBadRequest, "invalid request body: %s", err))
		return
	}

	ctx := r.Context()
	if g.enableHangOverRequestHeader {
		ctx = executor.SetRequestHeaderToContext(ctx, r.Header)
	}

	l := lexer.New(req.Query)
	p := parser.New(l)
	doc := p.ParseDocument()
	if len(p.Errors()) > 0 {
		parseErrs := make([]*errs.GraphQLError, 0, len(p.Errors()))
		for _, e := range p.Errors() {
			parseErrs = append(parseErrs, errs.New(errs.CodeBadRequest, "%s", e))
		}
		g.writeErrors(w, parseErrs...)
		return
	}

	bound, problems := g.binder.Bind(doc)
	if len(problems) > 0 {
		g.writeErrors(w, problems...)
		return
	}

	entry, cached := g.lookupPlan(bound)
	if !cached {
		plan, err := g.planner.PlanOptimized(doc, req.Variables)
		if err != nil {
			var unsatisfiable *planner.UnsatisfiableError
			if errors.As(err, &unsatisfiable) {
				g.writeErrors(w, errs.Wrap(errs.CodeUnsatisfiable, err))
				return
			}
			g.writeErrors(w, errs.Wrap(errs.CodeInternal, err))
			return
		}
		shape := respond.BuildShape(g.superGraph, bound.RootTypeName, bound.Operation.SelectionSet, bound.FragmentDefs)
		entry = planCacheEntry{plan: plan, shape: shape}
		g.storePlan(bound, entry)
	}

	resp, err := g.executor.Execute(ctx, entry.plan, req.Variables)
	if err != nil {
		g.writeErrors(w, errs.Wrap(errs.CodeSubgraphError, err))
		return
	}

	data, _ := resp["data"].(map[string]interface{})
	completed, writeErrs := g.writer.Write(entry.shape, data)

	out := map[string]any{"data": completed}
	if len(writeErrs) > 0 {
		out["errors"] = writeErrs
	} else if respErrs, ok := resp["errors"]; ok {
		out["errors"] = respErrs
	}

	w.Header().Set("Content-Type", format.ContentType())
	json.NewEncoder(w).Encode(out)
}

// lookupPlan returns the cached plan for bound's fingerprint, if any.
// Caching by fingerprint rather than raw query text means two requests
// differing only in whitespace or argument order share a plan.
func (g *gateway) lookupPlan(bound *bind.BoundOperation) (planCacheEntry, bool) {
	key := fingerprint.Operation(bound.RootTypeName, bound.Operation.SelectionSet, bound.FragmentDefs)
	g.planCacheMu.RLock()
	defer g.planCacheMu.RUnlock()
	entry, ok := g.planCache[key]
	return entry, ok
}

func (g *gateway) storePlan(bound *bind.BoundOperation, entry planCacheEntry) {
	key := fingerprint.Operation(bound.RootTypeName, bound.Operation.SelectionSet, bound.FragmentDefs)
	g.planCacheMu.Lock()
	defer g.planCacheMu.Unlock()
	g.planCache[key] = entry
}

func (g *gateway) writeErrors(w http.ResponseWriter, errors ...*errs.GraphQLError) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"errors": errors})
}

func (g *gateway) Start(port int) error {
	fmt.Printf("Gateway started on port %d\n", port)
	return http.ListenAndServe(fmt.Sprintf(":%d", port), g)
}
