// Package respond implements the ResponseWriter: it takes the schema
// shape a bound operation demands and the merged, pruned response tree
// executor_v2.go produces, and walks them together once to apply
// GraphQL's null-propagation rule (a null in a non-nullable position
// bubbles up to the nearest nullable ancestor, turning that ancestor
// null and recording an error) before the tree goes out over the wire.
//
// The shape types are named after the seed-based deserialization design
// this is grounded on (ConcreteShapeSeed/PolymorphicShapeSeed/FieldSeed),
// reimplemented here against plain map[string]interface{} trees to match
// the representation federation/executor already produces, rather than
// against a typed decode-time object graph.
package respond

import (
	"fmt"

	"github.com/n9te9/federation-core/federation/graph"
	"github.com/n9te9/graphql-parser/ast"
)

// FieldSeed is the shape demanded of one selected field: its response
// key, its wrapped type (for nullability/list checks), and, for
// object-typed fields, the shape of its own sub-selection.
type FieldSeed struct {
	ResponseKey string
	Type        graph.TypeRef
	SubShape    *ConcreteShapeSeed // nil for scalar/enum leaf fields
}

// NullableAt reports whether a null value for this field is acceptable
// as-is, without bubbling.
func (f *FieldSeed) NullableAt() bool {
	return !f.Type.IsNonNull()
}

// ConcreteShapeSeed is the shape of a selection set evaluated against one
// named type. When the type is abstract (interface/union) PossibleTypes
// holds a per-__typename dispatch table instead of a single Fields map;
// exactly one of Fields or PossibleTypes is populated.
type ConcreteShapeSeed struct {
	TypeName      string
	Fields        map[string]*FieldSeed
	PossibleTypes map[string]*PolymorphicShapeSeed
}

// PolymorphicShapeSeed is one concrete type's contribution to an abstract
// ConcreteShapeSeed: the type-condition-scoped fields merged with
// whatever fields were selected outside of any type condition.
type PolymorphicShapeSeed struct {
	TypeName string
	Fields   map[string]*FieldSeed
}

// fieldLookup resolves a field by name against a schema type, the same
// way federation/bind.OperationBinder does, so the two stay consistent
// about what "the field type of X.y" means.
func fieldLookup(schema *graph.SuperGraphV2, typeName, fieldName string) *ast.FieldDefinition {
	if fieldName == "__typename" {
		return nil
	}
	for _, def := range schema.Schema.Definitions {
		switch d := def.(type) {
		case *ast.ObjectTypeDefinition:
			if d.Name.String() != typeName {
				continue
			}
			for _, f := range d.Fields {
				if f.Name.String() == fieldName {
					return f
				}
			}
		case *ast.InterfaceTypeDefinition:
			if d.Name.String() != typeName {
				continue
			}
			for _, f := range d.Fields {
				if f.Name.String() == fieldName {
					return f
				}
			}
		}
	}
	return nil
}

// isAbstractType reports whether typeName names an interface or union in
// the composed schema.
func isAbstractType(schema *graph.SuperGraphV2, typeName string) bool {
	for _, def := range schema.Schema.Definitions {
		switch d := def.(type) {
		case *ast.InterfaceTypeDefinition:
			if d.Name.String() == typeName {
				return true
			}
		case *ast.UnionTypeDefinition:
			if d.Name.String() == typeName {
				return true
			}
		}
	}
	return false
}

// BuildShape walks a bound selection set and produces the ConcreteShapeSeed
// the response writer completes the matching response tree against.
func BuildShape(schema *graph.SuperGraphV2, typeName string, selSet []ast.Selection, fragmentDefs map[string]*ast.FragmentDefinition) *ConcreteShapeSeed {
	shape := &ConcreteShapeSeed{TypeName: typeName}

	baseFields := map[string]*FieldSeed{}
	typeFields := map[string]map[string]*FieldSeed{}

	var walk func(sels []ast.Selection, underType string)
	walk = func(sels []ast.Selection, underType string) {
		for _, sel := range sels {
			switch s := sel.(type) {
			case *ast.Field:
				name := s.Name.String()
				key := name
				if s.Alias != nil {
					key = s.Alias.String()
				}
				seed := &FieldSeed{ResponseKey: key}
				if name == "__typename" {
					target := baseFields
					if underType != typeName {
						target = typeFields[underType]
					}
					target[key] = seed
					continue
				}
				def := fieldLookup(schema, underType, name)
				if def == nil {
					continue
				}
				seed.Type = graph.NewTypeRef(def.Type)
				if len(s.SelectionSet) > 0 {
					nested := unwrapTypeName(def.Type)
					seed.SubShape = BuildShape(schema, nested, s.SelectionSet, fragmentDefs)
				}
				if underType == typeName {
					baseFields[key] = seed
				} else {
					if typeFields[underType] == nil {
						typeFields[underType] = map[string]*FieldSeed{}
					}
					typeFields[underType][key] = seed
				}

			case *ast.InlineFragment:
				cond := underType
				if s.TypeCondition != nil {
					cond = s.TypeCondition.String()
				}
				if typeFields[cond] == nil {
					typeFields[cond] = map[string]*FieldSeed{}
				}
				walk(s.SelectionSet, cond)

			case *ast.FragmentSpread:
				frag, ok := fragmentDefs[s.Name.String()]
				if !ok {
					continue
				}
				cond := underType
				if frag.TypeCondition != nil {
					cond = frag.TypeCondition.String()
				}
				if typeFields[cond] == nil {
					typeFields[cond] = map[string]*FieldSeed{}
				}
				walk(frag.SelectionSet, cond)
			}
		}
	}
	walk(selSet, typeName)

	if !isAbstractType(schema, typeName) && len(typeFields) == 0 {
		shape.Fields = baseFields
		return shape
	}

	shape.PossibleTypes = map[string]*PolymorphicShapeSeed{}
	for concreteType, extra := range typeFields {
		merged := map[string]*FieldSeed{}
		for k, v := range baseFields {
			merged[k] = v
		}
		for k, v := range extra {
			merged[k] = v
		}
		shape.PossibleTypes[concreteType] = &PolymorphicShapeSeed{TypeName: concreteType, Fields: merged}
	}
	if len(shape.PossibleTypes) == 0 {
		shape.Fields = baseFields
	}
	return shape
}

func unwrapTypeName(t ast.Type) string {
	switch v := t.(type) {
	case *ast.NamedType:
		return v.Name.String()
	case *ast.ListType:
		return unwrapTypeName(v.Type)
	case *ast.NonNullType:
		return unwrapTypeName(v.Type)
	}
	return ""
}

// resolve picks the field map to complete obj against: for an abstract
// shape it dispatches on the object's __typename, falling back to an
// error if the subgraph didn't supply one (it always should, the planner
// asks for it on every abstract selection).
func resolve(shape *ConcreteShapeSeed, obj map[string]interface{}) (map[string]*FieldSeed, error) {
	if shape.Fields != nil {
		return shape.Fields, nil
	}
	typename, _ := obj["__typename"].(string)
	if poly, ok := shape.PossibleTypes[typename]; ok {
		return poly.Fields, nil
	}
	return nil, fmt.Errorf("no shape registered for concrete type %q under %q", typename, shape.TypeName)
}
