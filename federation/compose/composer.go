// Package compose implements the Composer: it merges a set of subgraph
// schemas into one FederatedSchema and reports composition diagnostics
// instead of silently swallowing conflicts the way a bare schema merge
// would.
package compose

import (
	"fmt"

	"github.com/n9te9/federation-core/federation/graph"
)

// Severity classifies a Diagnostic.
type Severity int

const (
	SeverityWarning Severity = iota
	SeverityError
)

func (s Severity) String() string {
	if s == SeverityError {
		return "error"
	}
	return "warning"
}

// Diagnostic reports a single composition-time finding: a shareable-field
// mismatch, an @inaccessible field that is also a @key field, or a @tag
// collision. Composition never stops at the
// first Diagnostic — it keeps going and returns the full set, matching
// spec §4.1's "diagnostics, not a single fatal error" contract.
type Diagnostic struct {
	Severity Severity
	Message  string
	Type     string
	Field    string
}

// Composer merges subgraph schemas into a single FederatedSchema view,
// built on graph.SuperGraphV2's ownership resolution.
type Composer struct{}

// New returns a ready-to-use Composer. It carries no state: composition is
// a pure function of its input subgraphs.
func New() *Composer {
	return &Composer{}
}

// Compose merges subGraphs into a graph.SuperGraphV2, classifying
// shareable/override/inaccessible/tag directives along the way and
// returning diagnostics for anything a reader should know about even
// when composition still succeeds.
func (c *Composer) Compose(subGraphs []*graph.SubGraphV2) (*graph.SuperGraphV2, []Diagnostic, error) {
	if len(subGraphs) == 0 {
		return nil, nil, fmt.Errorf("compose: no subgraphs to compose")
	}

	sg, err := graph.NewSuperGraphV2(subGraphs)
	if err != nil {
		return nil, nil, fmt.Errorf("compose: %w", err)
	}

	var diags []Diagnostic
	diags = append(diags, c.checkShareableConsistency(sg)...)
	diags = append(diags, c.checkInaccessibleReachability(sg)...)
	diags = append(diags, c.checkTagCollisions(sg)...)

	return sg, diags, nil
}

// checkShareableConsistency flags fields owned by more than one subgraph
// where not every owning subgraph marks the field @shareable — Federation
// requires unanimous @shareable agreement for a field to be safely
// resolvable from more than one place.
func (c *Composer) checkShareableConsistency(sg *graph.SuperGraphV2) []Diagnostic {
	var diags []Diagnostic
	for key, owners := range sg.Ownership {
		if len(owners) < 2 {
			continue
		}
		typeName, fieldName := splitKey(key)
		for _, owner := range owners {
			entity, ok := owner.GetEntity(typeName)
			if !ok {
				continue
			}
			field, ok := entity.Fields[fieldName]
			if !ok || field.IsShareable() {
				continue
			}
			diags = append(diags, Diagnostic{
				Severity: SeverityError,
				Message: fmt.Sprintf(
					"field %q is resolvable from %d subgraphs but subgraph %q does not mark it @shareable",
					key, len(owners), owner.Name,
				),
				Type:  typeName,
				Field: fieldName,
			})
		}
	}
	return diags
}

// checkInaccessibleReachability flags an @inaccessible field that is one of
// the @key fields of the same subgraph's entity. Only that subgraph's own
// @key field sets are consulted: @requires field sets, and keys declared
// by other subgraphs, are not checked.
func (c *Composer) checkInaccessibleReachability(sg *graph.SuperGraphV2) []Diagnostic {
	var diags []Diagnostic
	for _, owner := range sg.SubGraphs {
		for typeName, entity := range owner.GetEntities() {
			for fieldName, field := range entity.Fields {
				if !field.IsInaccessible() {
					continue
				}
				if isKeyField(entity, fieldName) {
					diags = append(diags, Diagnostic{
						Severity: SeverityError,
						Message: fmt.Sprintf(
							"field %s.%s is @inaccessible but is also a @key field of subgraph %q",
							typeName, fieldName, owner.Name,
						),
						Type:  typeName,
						Field: fieldName,
					})
				}
			}
		}
	}
	return diags
}

// checkTagCollisions flags a field whose @tag set differs across the
// subgraphs that contribute to it — tags are meant to agree so that
// downstream tooling (e.g. contract variants) sees one consistent view.
func (c *Composer) checkTagCollisions(sg *graph.SuperGraphV2) []Diagnostic {
	var diags []Diagnostic
	seen := make(map[string][]string)
	for key, owners := range sg.Ownership {
		typeName, fieldName := splitKey(key)
		for _, owner := range owners {
			entity, ok := owner.GetEntity(typeName)
			if !ok {
				continue
			}
			field, ok := entity.Fields[fieldName]
			if !ok || len(field.Tags) == 0 {
				continue
			}
			if prior, ok := seen[key]; ok && !equalTagSets(prior, field.Tags) {
				diags = append(diags, Diagnostic{
					Severity: SeverityWarning,
					Message: fmt.Sprintf(
						"field %q has inconsistent @tag sets across owning subgraphs", key,
					),
					Type:  typeName,
					Field: fieldName,
				})
			}
			seen[key] = field.Tags
		}
	}
	return diags
}

// isKeyField reports whether fieldName is one of e's top-level @key
// fields in any of its keys, parsing each key's field-set syntax with
// graph.FieldSet rather than ad hoc whitespace splitting so a composite
// or nested key (e.g. "id shippingInfo { zip }") is read correctly.
func isKeyField(e *graph.Entity, fieldName string) bool {
	for _, key := range e.Keys {
		if graph.NewFieldSet(key.FieldSet).Contains(fieldName) {
			return true
		}
	}
	return false
}

func equalTagSets(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	am := make(map[string]bool, len(a))
	for _, t := range a {
		am[t] = true
	}
	for _, t := range b {
		if !am[t] {
			return false
		}
	}
	return true
}

func splitKey(key string) (typeName, fieldName string) {
	for i := 0; i < len(key); i++ {
		if key[i] == '.' {
			return key[:i], key[i+1:]
		}
	}
	return key, ""
}
