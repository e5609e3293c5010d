package graph

import (
	"errors"
	"fmt"
	"sort"

	"github.com/n9te9/federation-core/internal/intern"
	"github.com/n9te9/graphql-parser/ast"
)

// SuperGraphV2 represents an aggregated super graph composed of multiple subgraphs.
type SuperGraphV2 struct {
	SubGraphs []*SubGraphV2            // List of subgraphs
	Schema    *ast.Document            // Composed schema
	Ownership map[string][]*SubGraphV2 // Field ownership map (e.g., "Product.id" -> [SubGraph])

	// names interns type/field names so the planner's per-field ownership
	// lookups (GetSubGraphsForField/GetFieldOwnerSubGraph), run once per
	// selected field of every plan, compare stable IDs instead of
	// allocating and comparing a fresh "Type.field" string each time.
	names         *intern.Table
	ownershipByID map[uint64][]*SubGraphV2

	// kinds/kindSource record the Definition kind a type name was first
	// declared with and which subgraph declared it, so a later subgraph
	// redeclaring the same name under a different kind is caught instead
	// of silently shadowed.
	kinds      map[string]string
	kindSource map[string]string

	// enumValuesBySubgraph and inputFieldsBySubgraph hold each subgraph's
	// raw contribution to a shared Enum/InputObject definition until
	// every subgraph has been visited: enum usage classification and
	// input-field intersection both need the full set of contributors,
	// not just whichever two have been merged so far.
	enumValuesBySubgraph  map[string]map[string][]*ast.EnumValueDefinition
	inputFieldsBySubgraph map[string]map[string][]*ast.InputValueDefinition

	// Graph is the weighted routing graph over every subgraph's
	// type/field nodes, used by the optimized planner to pick the
	// cheapest subgraph assignment when a field is reachable from more
	// than one place (cross-subgraph @key hop vs. a same-subgraph
	// resolution, or a free @provides shortcut).
	Graph *WeightedDirectedGraph
}

// NewSuperGraphV2 creates a super graph from a list of SubGraphV2 instances.
func NewSuperGraphV2(subGraphs []*SubGraphV2) (*SuperGraphV2, error) {
	sg := &SuperGraphV2{
		SubGraphs:             subGraphs,
		Ownership:             make(map[string][]*SubGraphV2),
		names:                 intern.New(),
		ownershipByID:         make(map[uint64][]*SubGraphV2),
		kinds:                 make(map[string]string),
		kindSource:            make(map[string]string),
		enumValuesBySubgraph:  make(map[string]map[string][]*ast.EnumValueDefinition),
		inputFieldsBySubgraph: make(map[string]map[string][]*ast.InputValueDefinition),
	}

	// Schema Composition - compose schemas from all subgraphs
	if err := sg.composeSchema(); err != nil {
		return nil, err
	}

	// Build ownership map
	if err := sg.buildOwnershipMap(); err != nil {
		return nil, err
	}

	// Pre-compute the routing graph once per composition so every Plan
	// call reuses it instead of rebuilding it per request.
	sg.Graph = BuildGraph(subGraphs)

	return sg, nil
}

// composeSchema composes schemas from all subgraphs, then resolves the
// two kinds (Enum, InputObject) whose composed shape depends on every
// subgraph's contribution rather than a simple pairwise merge.
func (sg *SuperGraphV2) composeSchema() error {
	if len(sg.SubGraphs) == 0 {
		return fmt.Errorf("no subgraphs to compose")
	}

	// Initialize schema
	sg.Schema = &ast.Document{
		Definitions: make([]ast.Definition, 0),
	}

	var errs []error
	for _, subGraph := range sg.SubGraphs {
		if err := sg.mergeSchemaDeep(subGraph); err != nil {
			errs = append(errs, err)
		}
	}
	if err := sg.finalizeEnumTypes(); err != nil {
		errs = append(errs, err)
	}
	if err := sg.finalizeInputObjectTypes(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// checkKind records name's first-seen Definition kind and flags a fatal
// diagnostic if a later subgraph redeclares the same name under a
// different kind (spec.md line 61: "the kinds must agree; differing
// kinds yield a fatal diagnostic naming both subgraphs").
func (sg *SuperGraphV2) checkKind(name, kind, subGraphName string) error {
	if existingKind, ok := sg.kinds[name]; ok {
		if existingKind != kind {
			return fmt.Errorf(
				"compose: type %q is declared as %s in subgraph %q but as %s in subgraph %q",
				name, existingKind, sg.kindSource[name], kind, subGraphName,
			)
		}
		return nil
	}
	sg.kinds[name] = kind
	sg.kindSource[name] = subGraphName
	return nil
}

// mergeSchemaDeep merges one subgraph's schema into the composed schema
// using deep copy.
func (sg *SuperGraphV2) mergeSchemaDeep(subGraph *SubGraphV2) error {
	var errs []error
	for _, newDef := range subGraph.Schema.Definitions {
		switch newTypeDef := newDef.(type) {
		case *ast.ObjectTypeDefinition:
			if err := sg.mergeObjectTypeDefinitionDeep(subGraph.Name, newTypeDef); err != nil {
				errs = append(errs, err)
			}
		case *ast.ObjectTypeExtension:
			if err := sg.mergeObjectTypeExtensionDeep(subGraph.Name, newTypeDef); err != nil {
				errs = append(errs, err)
			}
		case *ast.InterfaceTypeDefinition:
			if err := sg.mergeInterfaceTypeDefinition(subGraph.Name, newTypeDef); err != nil {
				errs = append(errs, err)
			}
		case *ast.InputObjectTypeDefinition:
			if err := sg.mergeInputObjectTypeDefinition(subGraph.Name, newTypeDef); err != nil {
				errs = append(errs, err)
			}
		case *ast.EnumTypeDefinition:
			if err := sg.mergeEnumTypeDefinition(subGraph.Name, newTypeDef); err != nil {
				errs = append(errs, err)
			}
		case *ast.ScalarTypeDefinition:
			if err := sg.mergeScalarTypeDefinition(subGraph.Name, newTypeDef); err != nil {
				errs = append(errs, err)
			}
		case *ast.UnionTypeDefinition:
			if err := sg.mergeUnionTypeDefinition(subGraph.Name, newTypeDef); err != nil {
				errs = append(errs, err)
			}
		case *ast.DirectiveDefinition:
			sg.mergeDirectiveDefinition(newTypeDef)
		}
	}
	return errors.Join(errs...)
}

// mergeObjectTypeDefinitionDeep merges an ObjectTypeDefinition using deep
// copy, composing any field present on both sides under compose_output
// (spec.md line 70): the narrower of the two wrappings wins.
func (sg *SuperGraphV2) mergeObjectTypeDefinitionDeep(subGraphName string, newDef *ast.ObjectTypeDefinition) error {
	name := newDef.Name.String()
	if err := sg.checkKind(name, "Object", subGraphName); err != nil {
		return err
	}

	var existingDef *ast.ObjectTypeDefinition
	for _, def := range sg.Schema.Definitions {
		if objDef, ok := def.(*ast.ObjectTypeDefinition); ok {
			if objDef.Name.String() == name {
				existingDef = objDef
				break
			}
		}
	}

	if existingDef != nil {
		merged, err := mergeOutputFields(existingDef.Fields, copyFields(newDef.Fields))
		if err != nil {
			return fmt.Errorf("compose: type %q: %w", name, err)
		}
		existingDef.Fields = merged
		existingDef.Directives = append(existingDef.Directives, copyDirectives(newDef.Directives)...)
	} else {
		copiedDef := &ast.ObjectTypeDefinition{
			Name:       newDef.Name,
			Interfaces: newDef.Interfaces,
			Fields:     copyFields(newDef.Fields),
			Directives: copyDirectives(newDef.Directives),
		}
		sg.Schema.Definitions = append(sg.Schema.Definitions, copiedDef)
	}
	return nil
}

// mergeObjectTypeExtensionDeep merges an ObjectTypeExtension into an
// ObjectTypeDefinition using deep copy, composing shared fields the same
// way mergeObjectTypeDefinitionDeep does.
func (sg *SuperGraphV2) mergeObjectTypeExtensionDeep(subGraphName string, newExt *ast.ObjectTypeExtension) error {
	name := newExt.Name.String()
	var existingDef *ast.ObjectTypeDefinition
	for _, def := range sg.Schema.Definitions {
		if objDef, ok := def.(*ast.ObjectTypeDefinition); ok {
			if objDef.Name.String() == name {
				existingDef = objDef
				break
			}
		}
	}

	if existingDef == nil {
		return nil
	}

	if err := sg.checkKind(name, "Object", subGraphName); err != nil {
		return err
	}

	merged, err := mergeOutputFields(existingDef.Fields, copyFields(newExt.Fields))
	if err != nil {
		return fmt.Errorf("compose: type %q: %w", name, err)
	}
	existingDef.Fields = merged
	existingDef.Directives = append(existingDef.Directives, copyDirectives(newExt.Directives)...)
	return nil
}

// mergeOutputFields merges two output-position field lists (Object or
// Interface): a field unique to either side is kept as-is, and a field
// present on both sides has its type composed under compose_output
// (graph.ComposeOutput) instead of one side silently shadowing the
// other.
func mergeOutputFields(existing, incoming []*ast.FieldDefinition) ([]*ast.FieldDefinition, error) {
	byName := make(map[string]*ast.FieldDefinition, len(existing)+len(incoming))
	order := make([]string, 0, len(existing)+len(incoming))
	for _, f := range existing {
		name := f.Name.String()
		byName[name] = f
		order = append(order, name)
	}

	for _, f := range incoming {
		name := f.Name.String()
		prior, ok := byName[name]
		if !ok {
			byName[name] = f
			order = append(order, name)
			continue
		}

		composed, ok := ComposeOutput(NewTypeRef(prior.Type), NewTypeRef(f.Type))
		if !ok {
			return nil, fmt.Errorf("field %q has incompatible types across subgraphs (%s vs %s)",
				name, prior.Type.String(), f.Type.String())
		}
		byName[name] = &ast.FieldDefinition{
			Name:       prior.Name,
			Arguments:  prior.Arguments,
			Type:       typeForRef(composed, prior.Type, f.Type),
			Directives: prior.Directives,
		}
	}

	result := make([]*ast.FieldDefinition, 0, len(order))
	for _, name := range order {
		result = append(result, byName[name])
	}
	return result, nil
}

// typeForRef returns whichever of candidates already renders to ref, so
// composing two identically-shaped wrappings reuses a real ast.Type node
// instead of synthesizing a new one. The only case where no candidate
// matches is non-null markers scattered across different nesting depths
// in each subgraph's declaration; that's rare enough in practice that
// falling back to the first candidate is an acceptable simplification
// over hand-building a fresh AST node.
func typeForRef(ref TypeRef, candidates ...ast.Type) ast.Type {
	for _, c := range candidates {
		if NewTypeRef(c) == ref {
			return c
		}
	}
	return candidates[0]
}

// copyFields creates a deep copy of a field definition list.
func copyFields(fields []*ast.FieldDefinition) []*ast.FieldDefinition {
	if fields == nil {
		return nil
	}
	copied := make([]*ast.FieldDefinition, len(fields))
	for i, field := range fields {
		copied[i] = &ast.FieldDefinition{
			Name:       field.Name,
			Arguments:  field.Arguments, // TODO: Implement deep copy if needed
			Type:       field.Type,
			Directives: copyDirectives(field.Directives),
		}
	}
	return copied
}

// copyDirectives creates a deep copy of a directive list.
func copyDirectives(directives []*ast.Directive) []*ast.Directive {
	if directives == nil {
		return nil
	}
	copied := make([]*ast.Directive, len(directives))
	for i, dir := range directives {
		copied[i] = &ast.Directive{
			Name:      dir.Name,
			Arguments: dir.Arguments, // TODO: Implement deep copy if needed
		}
	}
	return copied
}

// mergeInterfaceTypeDefinition merges an InterfaceTypeDefinition, composing
// shared fields under compose_output the same way object types do.
func (sg *SuperGraphV2) mergeInterfaceTypeDefinition(subGraphName string, newDef *ast.InterfaceTypeDefinition) error {
	name := newDef.Name.String()
	if err := sg.checkKind(name, "Interface", subGraphName); err != nil {
		return err
	}

	var existingDef *ast.InterfaceTypeDefinition
	for _, def := range sg.Schema.Definitions {
		if intDef, ok := def.(*ast.InterfaceTypeDefinition); ok {
			if intDef.Name.String() == name {
				existingDef = intDef
				break
			}
		}
	}

	if existingDef != nil {
		merged, err := mergeOutputFields(existingDef.Fields, newDef.Fields)
		if err != nil {
			return fmt.Errorf("compose: type %q: %w", name, err)
		}
		existingDef.Fields = merged
		existingDef.Directives = append(existingDef.Directives, newDef.Directives...)
	} else {
		sg.Schema.Definitions = append(sg.Schema.Definitions, newDef)
	}
	return nil
}

// mergeInputObjectTypeDefinition records newDef's fields under its owning
// subgraph. The InputObject's final field set (the intersection of every
// contributing subgraph's fields, spec.md line 67) is resolved later by
// finalizeInputObjectTypes once every subgraph has been seen.
func (sg *SuperGraphV2) mergeInputObjectTypeDefinition(subGraphName string, newDef *ast.InputObjectTypeDefinition) error {
	name := newDef.Name.String()
	if err := sg.checkKind(name, "InputObject", subGraphName); err != nil {
		return err
	}

	if sg.inputFieldsBySubgraph[name] == nil {
		sg.inputFieldsBySubgraph[name] = make(map[string][]*ast.InputValueDefinition)
	}
	sg.inputFieldsBySubgraph[name][subGraphName] = newDef.Fields

	var existingDef *ast.InputObjectTypeDefinition
	for _, def := range sg.Schema.Definitions {
		if inputDef, ok := def.(*ast.InputObjectTypeDefinition); ok {
			if inputDef.Name.String() == name {
				existingDef = inputDef
				break
			}
		}
	}

	if existingDef != nil {
		existingDef.Directives = append(existingDef.Directives, newDef.Directives...)
	} else {
		sg.Schema.Definitions = append(sg.Schema.Definitions, &ast.InputObjectTypeDefinition{
			Name:       newDef.Name,
			Directives: newDef.Directives,
		})
	}
	return nil
}

// finalizeInputObjectTypes computes each InputObject's composed field set:
// the intersection of every contributing subgraph's field names (spec.md
// line 67), with each surviving field's type composed under compose_input
// across the subgraphs that declare it.
func (sg *SuperGraphV2) finalizeInputObjectTypes() error {
	var errs []error
	for name, bySubgraph := range sg.inputFieldsBySubgraph {
		var existingDef *ast.InputObjectTypeDefinition
		for _, def := range sg.Schema.Definitions {
			if inputDef, ok := def.(*ast.InputObjectTypeDefinition); ok && inputDef.Name.String() == name {
				existingDef = inputDef
				break
			}
		}
		if existingDef == nil {
			continue
		}

		subGraphNames := make([]string, 0, len(bySubgraph))
		for sub := range bySubgraph {
			subGraphNames = append(subGraphNames, sub)
		}
		sort.Strings(subGraphNames)

		shared := inputFieldNameSet(bySubgraph[subGraphNames[0]])
		for _, sub := range subGraphNames[1:] {
			shared = intersectNameSets(shared, inputFieldNameSet(bySubgraph[sub]))
		}

		fieldNames := make([]string, 0, len(shared))
		for fieldName := range shared {
			fieldNames = append(fieldNames, fieldName)
		}
		sort.Strings(fieldNames)

		fields := make([]*ast.InputValueDefinition, 0, len(fieldNames))
		for _, fieldName := range fieldNames {
			composed, candidates, template, ok := composeInputFieldAcrossSubgraphs(bySubgraph, subGraphNames, fieldName)
			if !ok {
				errs = append(errs, fmt.Errorf(
					"compose: input field %s.%s has incompatible types across subgraphs", name, fieldName))
				continue
			}
			fields = append(fields, &ast.InputValueDefinition{
				Name:         template.Name,
				Type:         typeForRef(composed, candidates...),
				DefaultValue: template.DefaultValue,
				Directives:   template.Directives,
			})
		}
		existingDef.Fields = fields
	}
	return errors.Join(errs...)
}

// composeInputFieldAcrossSubgraphs folds fieldName's declared type across
// every subgraph in bySubgraph under compose_input, returning the
// candidate ast.Type nodes seen (for typeForRef) and one of the
// contributing definitions to use as a template for the rest of the
// field's shape (default value, directives).
func composeInputFieldAcrossSubgraphs(
	bySubgraph map[string][]*ast.InputValueDefinition,
	subGraphNames []string,
	fieldName string,
) (composed TypeRef, candidates []ast.Type, template *ast.InputValueDefinition, ok bool) {
	first := true
	ok = true
	for _, sub := range subGraphNames {
		for _, f := range bySubgraph[sub] {
			if f.Name.String() != fieldName {
				continue
			}
			ref := NewTypeRef(f.Type)
			candidates = append(candidates, f.Type)
			if template == nil {
				template = f
			}
			if first {
				composed = ref
				first = false
				break
			}
			if merged, mergedOK := ComposeInput(composed, ref); mergedOK {
				composed = merged
			} else {
				ok = false
			}
			break
		}
	}
	return composed, candidates, template, ok
}

func inputFieldNameSet(fields []*ast.InputValueDefinition) map[string]bool {
	set := make(map[string]bool, len(fields))
	for _, f := range fields {
		set[f.Name.String()] = true
	}
	return set
}

func intersectNameSets(a, b map[string]bool) map[string]bool {
	out := make(map[string]bool, len(a))
	for name := range a {
		if b[name] {
			out[name] = true
		}
	}
	return out
}

// mergeEnumTypeDefinition records newDef's values under its owning
// subgraph. The Enum's final value set (spec.md line 66: classified by
// usage as input-only/output-only/both/unused) is resolved later by
// finalizeEnumTypes once every subgraph has been seen and field usage
// across the whole composed schema is known.
func (sg *SuperGraphV2) mergeEnumTypeDefinition(subGraphName string, newDef *ast.EnumTypeDefinition) error {
	name := newDef.Name.String()
	if err := sg.checkKind(name, "Enum", subGraphName); err != nil {
		return err
	}

	if sg.enumValuesBySubgraph[name] == nil {
		sg.enumValuesBySubgraph[name] = make(map[string][]*ast.EnumValueDefinition)
	}
	sg.enumValuesBySubgraph[name][subGraphName] = newDef.Values

	var existingDef *ast.EnumTypeDefinition
	for _, def := range sg.Schema.Definitions {
		if enumDef, ok := def.(*ast.EnumTypeDefinition); ok {
			if enumDef.Name.String() == name {
				existingDef = enumDef
				break
			}
		}
	}

	if existingDef != nil {
		existingDef.Directives = append(existingDef.Directives, newDef.Directives...)
	} else {
		sg.Schema.Definitions = append(sg.Schema.Definitions, &ast.EnumTypeDefinition{
			Name:       newDef.Name,
			Directives: newDef.Directives,
		})
	}
	return nil
}

// enumUsage classifies how a composed schema references an enum type.
type enumUsage int

const (
	enumUnused enumUsage = iota
	enumOutputOnly
	enumInputOnly
	enumBoth
)

// classifyEnumUsage walks every Object/Interface field and InputObject
// field in the composed schema, tallying whether each named type is
// referenced in output position (a field's own return type) or input
// position (a field argument, or an InputObject field).
func (sg *SuperGraphV2) classifyEnumUsage() map[string]enumUsage {
	usage := make(map[string]enumUsage)
	mark := func(name string, output bool) {
		cur := usage[name]
		switch {
		case output && (cur == enumInputOnly || cur == enumBoth):
			usage[name] = enumBoth
		case output:
			usage[name] = enumOutputOnly
		case cur == enumOutputOnly || cur == enumBoth:
			usage[name] = enumBoth
		default:
			usage[name] = enumInputOnly
		}
	}

	markArgs := func(args []*ast.InputValueDefinition) {
		for _, arg := range args {
			mark(NewTypeRef(arg.Type).Name, false)
		}
	}

	for _, def := range sg.Schema.Definitions {
		switch d := def.(type) {
		case *ast.ObjectTypeDefinition:
			for _, f := range d.Fields {
				mark(NewTypeRef(f.Type).Name, true)
				markArgs(f.Arguments)
			}
		case *ast.InterfaceTypeDefinition:
			for _, f := range d.Fields {
				mark(NewTypeRef(f.Type).Name, true)
				markArgs(f.Arguments)
			}
		case *ast.InputObjectTypeDefinition:
			for _, f := range d.Fields {
				mark(NewTypeRef(f.Type).Name, false)
			}
		}
	}
	return usage
}

// finalizeEnumTypes resolves each Enum's composed value set per spec.md
// line 66: output-only (or unused, which follows the output rule) takes
// the union of every subgraph's values; input-only takes the
// intersection, fatal if empty; used in both positions requires every
// subgraph's value set to match exactly.
func (sg *SuperGraphV2) finalizeEnumTypes() error {
	usage := sg.classifyEnumUsage()

	var errs []error
	for name, bySubgraph := range sg.enumValuesBySubgraph {
		var existingDef *ast.EnumTypeDefinition
		for _, def := range sg.Schema.Definitions {
			if enumDef, ok := def.(*ast.EnumTypeDefinition); ok && enumDef.Name.String() == name {
				existingDef = enumDef
				break
			}
		}
		if existingDef == nil {
			continue
		}

		subGraphNames := make([]string, 0, len(bySubgraph))
		for sub := range bySubgraph {
			subGraphNames = append(subGraphNames, sub)
		}
		sort.Strings(subGraphNames)

		sets := make([]map[string]*ast.EnumValueDefinition, 0, len(subGraphNames))
		for _, sub := range subGraphNames {
			sets = append(sets, enumValueSet(bySubgraph[sub]))
		}

		var finalNames map[string]bool
		switch usage[name] {
		case enumInputOnly:
			finalNames = nameKeys(sets[0])
			for _, s := range sets[1:] {
				finalNames = intersectNameSets(finalNames, nameKeys(s))
			}
			if len(finalNames) == 0 {
				errs = append(errs, fmt.Errorf(
					"compose: enum %q is used only in input position and its subgraph value sets share no value",
					name))
				continue
			}
		case enumBoth:
			finalNames = nameKeys(sets[0])
			for _, s := range sets[1:] {
				other := nameKeys(s)
				if !equalNameSets(finalNames, other) {
					errs = append(errs, fmt.Errorf(
						"compose: enum %q is used in both input and output position but subgraphs disagree on its values",
						name))
					break
				}
			}
		default: // output-only or unused: union, per the output rule
			finalNames = make(map[string]bool)
			for _, s := range sets {
				for n := range s {
					finalNames[n] = true
				}
			}
		}

		ordered := make([]string, 0, len(finalNames))
		for n := range finalNames {
			ordered = append(ordered, n)
		}
		sort.Strings(ordered)

		values := make([]*ast.EnumValueDefinition, 0, len(ordered))
		for _, n := range ordered {
			for _, s := range sets {
				if v, ok := s[n]; ok {
					values = append(values, v)
					break
				}
			}
		}
		existingDef.Values = values
	}
	return errors.Join(errs...)
}

func enumValueSet(defs []*ast.EnumValueDefinition) map[string]*ast.EnumValueDefinition {
	set := make(map[string]*ast.EnumValueDefinition, len(defs))
	for _, d := range defs {
		set[d.Name.String()] = d
	}
	return set
}

func nameKeys[V any](m map[string]V) map[string]bool {
	out := make(map[string]bool, len(m))
	for k := range m {
		out[k] = true
	}
	return out
}

func equalNameSets(a, b map[string]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}

// mergeScalarTypeDefinition merges a ScalarTypeDefinition.
func (sg *SuperGraphV2) mergeScalarTypeDefinition(subGraphName string, newDef *ast.ScalarTypeDefinition) error {
	name := newDef.Name.String()
	if err := sg.checkKind(name, "Scalar", subGraphName); err != nil {
		return err
	}

	var existingDef *ast.ScalarTypeDefinition
	for _, def := range sg.Schema.Definitions {
		if scalarDef, ok := def.(*ast.ScalarTypeDefinition); ok {
			if scalarDef.Name.String() == name {
				existingDef = scalarDef
				break
			}
		}
	}

	if existingDef == nil {
		sg.Schema.Definitions = append(sg.Schema.Definitions, newDef)
	}
	return nil
}

// mergeUnionTypeDefinition merges a UnionTypeDefinition.
func (sg *SuperGraphV2) mergeUnionTypeDefinition(subGraphName string, newDef *ast.UnionTypeDefinition) error {
	name := newDef.Name.String()
	if err := sg.checkKind(name, "Union", subGraphName); err != nil {
		return err
	}

	var existingDef *ast.UnionTypeDefinition
	for _, def := range sg.Schema.Definitions {
		if unionDef, ok := def.(*ast.UnionTypeDefinition); ok {
			if unionDef.Name.String() == name {
				existingDef = unionDef
				break
			}
		}
	}

	if existingDef != nil {
		existingDef.Types = append(existingDef.Types, newDef.Types...)
		existingDef.Directives = append(existingDef.Directives, newDef.Directives...)
	} else {
		sg.Schema.Definitions = append(sg.Schema.Definitions, newDef)
	}
	return nil
}

// mergeDirectiveDefinition merges a DirectiveDefinition.
func (sg *SuperGraphV2) mergeDirectiveDefinition(newDef *ast.DirectiveDefinition) {
	var existingDef *ast.DirectiveDefinition
	for _, def := range sg.Schema.Definitions {
		if dirDef, ok := def.(*ast.DirectiveDefinition); ok {
			if dirDef.Name.String() == newDef.Name.String() {
				existingDef = dirDef
				break
			}
		}
	}

	if existingDef == nil {
		sg.Schema.Definitions = append(sg.Schema.Definitions, newDef)
	}
}

// buildOwnershipMap constructs the ownership map.
// It determines which subgraphs can resolve each field in the composed schema.
func (sg *SuperGraphV2) buildOwnershipMap() error {
	// Traverse all type definitions in the composed schema
	for _, def := range sg.Schema.Definitions {
		objDef, ok := def.(*ast.ObjectTypeDefinition)
		if !ok {
			continue
		}

		typeName := objDef.Name.String()
		typeID := sg.names.Intern(typeName)

		// Traverse all fields of the type
		for _, field := range objDef.Fields {
			fieldName := field.Name.String()
			key := fmt.Sprintf("%s.%s", typeName, fieldName)
			idKey := ownershipIDKey(typeID, sg.names.Intern(fieldName))

			// Check for @override directive
			var overrideFrom string
			var overrideSubGraph *SubGraphV2

			for _, subGraph := range sg.SubGraphs {
				if entity, exists := subGraph.GetEntity(typeName); exists {
					if entityField, ok := entity.Fields[fieldName]; ok {
						if override := entityField.GetOverride(); override != nil {
							overrideFrom = override.From
							overrideSubGraph = subGraph
							break
						}
					}
				}
			}

			// Traverse all subgraphs to find those that can resolve this field
			for _, subGraph := range sg.SubGraphs {
				// Skip the original owner if @override is present
				if overrideFrom != "" && subGraph.Name == overrideFrom {
					continue
				}

				if sg.canResolveField(subGraph, typeName, fieldName) {
					sg.Ownership[key] = append(sg.Ownership[key], subGraph)
				}
			}

			// Ensure the override subgraph is in the ownership list
			if overrideSubGraph != nil {
				found := false
				for _, owner := range sg.Ownership[key] {
					if owner.Name == overrideSubGraph.Name {
						found = true
						break
					}
				}
				if !found {
					sg.Ownership[key] = append(sg.Ownership[key], overrideSubGraph)
				}
			}

			sg.ownershipByID[idKey] = sg.Ownership[key]
		}
	}

	return nil
}

// ownershipIDKey packs a type ID and field ID into a single map key for
// ownershipByID.
func ownershipIDKey(typeID, fieldID intern.ID) uint64 {
	return uint64(typeID)<<32 | uint64(fieldID)
}

// canResolveField checks if the specified subgraph can resolve the specified field.
// It returns false if the field has an @external directive.
func (sg *SuperGraphV2) canResolveField(subGraph *SubGraphV2, typeName, fieldName string) bool {
	foundType := false
	// Search for the corresponding type in the subgraph's schema
	for _, def := range subGraph.Schema.Definitions {
		// Check ObjectTypeDefinition
		if objDef, ok := def.(*ast.ObjectTypeDefinition); ok {
			if objDef.Name.String() == typeName {
				foundType = true
				for _, field := range objDef.Fields {
					if field.Name.String() == fieldName {
						// Cannot resolve if @external directive exists
						if hasDirective(field.Directives, "external") {
							return false
						}
						return true
					}
				}
				// Cannot resolve if field not found
				return false
			}
		}
	}

	// If ObjectTypeDefinition not found, check ObjectTypeExtension
	if !foundType {
		for _, def := range subGraph.Schema.Definitions {
			if objExt, ok := def.(*ast.ObjectTypeExtension); ok {
				if objExt.Name.String() == typeName {
					for _, field := range objExt.Fields {
						if field.Name.String() == fieldName {
							// Cannot resolve if @external directive exists
							if hasDirective(field.Directives, "external") {
								return false
							}
							return true
						}
					}
					// Cannot resolve if field not found
					return false
				}
			}
		}
	}

	return false
}

// hasDirective checks if a directive with the specified name exists.
func hasDirective(directives []*ast.Directive, name string) bool {
	for _, d := range directives {
		if d.Name == name {
			return true
		}
	}
	return false
}

// GetSubGraphsForField returns the list of subgraphs that can resolve the specified field.
func (sg *SuperGraphV2) GetSubGraphsForField(typeName, fieldName string) []*SubGraphV2 {
	if sg.names == nil {
		key := fmt.Sprintf("%s.%s", typeName, fieldName)
		return sg.Ownership[key]
	}
	idKey := ownershipIDKey(sg.names.Intern(typeName), sg.names.Intern(fieldName))
	return sg.ownershipByID[idKey]
}

// GetEntityOwnerSubGraph returns the subgraph that owns the entity (defines it with @key directive, not extends it).
// Filters out subgraphs with @key(resolvable: false) - these are stubs that cannot resolve entities.
// For entities defined in multiple resolvable subgraphs, it returns the first non-extension.
// Returns nil if the type is not an entity or has no resolvable owners.
func (sg *SuperGraphV2) GetEntityOwnerSubGraph(typeName string) *SubGraphV2 {
	// First pass: look for non-extension definitions with resolvable keys
	for _, subGraph := range sg.SubGraphs {
		if entity, exists := subGraph.GetEntity(typeName); exists && !entity.IsExtension() && entity.IsResolvable() {
			return subGraph
		}
	}

	// Second pass: if only extensions exist, return the first resolvable one
	for _, subGraph := range sg.SubGraphs {
		if entity, exists := subGraph.GetEntity(typeName); exists && entity.IsResolvable() {
			return subGraph
		}
	}

	return nil
}

// IsEntityType checks if a type is an entity with at least one resolvable
// @key in some subgraph (the same condition GetEntityOwnerSubGraph uses).
func (sg *SuperGraphV2) IsEntityType(typeName string) bool {
	return sg.GetEntityOwnerSubGraph(typeName) != nil
}

// GetFieldOwnerSubGraph returns the subgraph that owns a specific field.
// It considers @override directives to determine the correct owner.
// Returns the first subgraph in the ownership list, or nil if none found.
func (sg *SuperGraphV2) GetFieldOwnerSubGraph(typeName, fieldName string) *SubGraphV2 {
	owners := sg.GetSubGraphsForField(typeName, fieldName)
	if len(owners) > 0 {
		return owners[0]
	}
	return nil
}
