// Package registry implements the SubgraphRegistry component: it accepts
// subgraph SDL registrations over HTTP, composes them into a
// *graph.SuperGraphV2 via federation/compose, and hot-swaps the result so a running gateway can
// reload its schema without downtime.
package registry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"

	"github.com/n9te9/federation-core/federation/compose"
	"github.com/n9te9/federation-core/federation/graph"
	"github.com/n9te9/goliteql/schema"
)

// Registry holds the set of registered subgraphs and the most recently
// composed schema, along with the set of peer gateway hosts that should be
// notified when the composed schema changes.
type Registry struct {
	gatewayHosts atomic.Value // map[string]struct{}
	subgraphs    atomic.Value // []*graph.SubGraphV2
	schema       atomic.Value // *graph.SuperGraphV2, may hold a typed nil

	addHostChan chan string
	client      *http.Client
	composer    *compose.Composer
}

// NewRegistry creates an empty Registry ready to accept registrations.
func NewRegistry() *Registry {
	r := &Registry{
		addHostChan: make(chan string),
		client:      &http.Client{},
		composer:    compose.New(),
	}
	r.gatewayHosts.Store(make(map[string]struct{}))
	r.subgraphs.Store(make([]*graph.SubGraphV2, 0))
	return r
}

// Start launches the background goroutine that folds newly-seen peer
// gateway hosts into the fan-out set used by RegisterGateway.
func (r *Registry) Start() {
	go func() {
		for host := range r.addHostChan {
			r.addGatewayHost(host)
		}
	}()
}

func (r *Registry) addGatewayHost(host string) {
	old := r.gatewayHosts.Load().(map[string]struct{})
	next := make(map[string]struct{}, len(old)+1)
	for h := range old {
		next[h] = struct{}{}
	}
	next[host] = struct{}{}
	r.gatewayHosts.Store(next)
}

// CurrentSchema returns the most recently composed schema, or nil if no
// subgraph has been registered yet.
func (r *Registry) CurrentSchema() *graph.SuperGraphV2 {
	sg, _ := r.schema.Load().(*graph.SuperGraphV2)
	return sg
}

// RegistrationGraph describes one subgraph being registered.
type RegistrationGraph struct {
	Name string `json:"name"`
	Host string `json:"host"`
	SDL  string `json:"sdl"`
}

// RegistrationRequest is the wire body POSTed to /schema/registration.
type RegistrationRequest struct {
	RegistrationGraphs []RegistrationGraph `json:"registration_graphs"`
}

func (r *Registry) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	switch req.URL.Path {
	case "/schema/registration":
		r.RegisterGateway(w, req)
	default:
		http.NotFound(w, req)
	}
}

// RegisterGateway decodes one or more subgraph registrations, recomposes
// the federated schema, atomically swaps it in, and fans the registration
// out to any peer gateways previously seen on addHostChan.
func (r *Registry) RegisterGateway(w http.ResponseWriter, req *http.Request) {
	var body RegistrationRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		http.Error(w, "failed to decode request body", http.StatusBadRequest)
		return
	}

	existing := r.subgraphs.Load().([]*graph.SubGraphV2)
	next := make([]*graph.SubGraphV2, len(existing), len(existing)+len(body.RegistrationGraphs))
	copy(next, existing)

	for _, rg := range body.RegistrationGraphs {
		if err := validateSDLSyntax(rg.SDL); err != nil {
			http.Error(w, fmt.Sprintf("invalid SDL for subgraph %q: %v", rg.Name, err), http.StatusBadRequest)
			return
		}

		subGraph, err := graph.NewSubGraphV2(rg.Name, []byte(rg.SDL), rg.Host)
		if err != nil {
			http.Error(w, fmt.Sprintf("failed to create subgraph %q: %v", rg.Name, err), http.StatusBadRequest)
			return
		}
		next = append(next, subGraph)
		r.addHostChan <- rg.Host
	}

	composed, diags, err := r.composer.Compose(next)
	if err != nil {
		http.Error(w, fmt.Sprintf("composition failed: %v", err), http.StatusUnprocessableEntity)
		return
	}
	for _, d := range diags {
		if d.Severity == compose.SeverityError {
			http.Error(w, fmt.Sprintf("composition error: %s", d.Message), http.StatusUnprocessableEntity)
			return
		}
	}

	r.subgraphs.Store(next)
	r.schema.Store(composed)

	gatewayHosts := r.gatewayHosts.Load().(map[string]struct{})
	for sgHost := range gatewayHosts {
		reqBody, err := json.Marshal(body)
		if err != nil {
			http.Error(w, "failed to marshal request body", http.StatusInternalServerError)
			return
		}

		registerGatewayRequest, err := http.NewRequestWithContext(req.Context(), http.MethodPost, sgHost+"/schema/registration", bytes.NewBuffer(reqBody))
		if err != nil {
			http.Error(w, "failed to create gateway request", http.StatusInternalServerError)
			return
		}

		go func() {
			if _, err := r.client.Do(registerGatewayRequest); err != nil {
				// best-effort fan-out: peer propagation failures don't fail this registration
				return
			}
		}()
	}

	w.WriteHeader(http.StatusAccepted)
}

// validateSDLSyntax runs an incoming subgraph's SDL through goliteql's
// own schema parser as an ingest-time sanity check, independent of the
// graphql-parser-based AST federation/graph.NewSubGraphV2 builds its
// SubGraphV2 from. Rejecting a syntactically broken registration here,
// before it ever reaches composition, keeps a bad registration from
// corrupting the composed schema two independent parsers would both
// have to agree is malformed to miss.
func validateSDLSyntax(sdl string) error {
	_, err := schema.NewParser(schema.NewLexer()).Parse([]byte(sdl))
	return err
}
