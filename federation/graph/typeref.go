package graph

import (
	"strings"

	"github.com/n9te9/graphql-parser/ast"
)

// wrapping packs up to 8 levels of list/non-null nesting into a single
// byte: bit i set means "non-null" at nesting depth i, and the companion
// listMask (stored alongside) has bit i set when nesting depth i is a
// list. This mirrors the compact wrapped-type representation spec §3
// calls for instead of carrying the parser's recursive ast.Type around.
type wrapping uint8

const maxWrappingDepth = 8

// TypeRef is a compact reference to a named type plus its list/non-null
// wrapping, comparable with ==, unlike ast.Type.
type TypeRef struct {
	Name     string // the innermost named type, e.g. "String", "Product"
	wrap     wrapping
	listMask wrapping // bit i set means nesting level i is a list rather than non-null
	depth    uint8
}

// NewTypeRef builds a TypeRef by walking an ast.Type's list/non-null
// wrapping from the outside in.
func NewTypeRef(t ast.Type) TypeRef {
	var ref TypeRef
	depth := uint8(0)
	for {
		switch v := t.(type) {
		case *ast.NonNullType:
			ref.wrap |= 1 << depth
			depth++
			t = v.Type
		case *ast.ListType:
			ref.listMask |= 1 << depth
			depth++
			t = v.Type
		case *ast.NamedType:
			ref.Name = v.Name.String()
			ref.depth = depth
			return ref
		default:
			return ref
		}
		if depth >= maxWrappingDepth {
			return ref
		}
	}
}

// NonNullAt reports whether the wrapping layer at depth i (0 = outermost)
// is non-null.
func (r TypeRef) NonNullAt(i uint8) bool {
	return r.wrap&(1<<i) != 0
}

// ListAt reports whether the wrapping layer at depth i (0 = outermost) is
// a list.
func (r TypeRef) ListAt(i uint8) bool {
	return r.listMask&(1<<i) != 0
}

// Depth returns the number of list/non-null wrapping layers around the
// named type.
func (r TypeRef) Depth() uint8 {
	return r.depth
}

// IsNonNull reports whether the field itself may never be null. Per the
// GraphQL grammar a NonNullType can only wrap a NamedType or a ListType
// directly (never another NonNullType), so this is always the depth-0
// wrapping bit.
func (r TypeRef) IsNonNull() bool {
	return r.depth > 0 && r.NonNullAt(0)
}

// IsList reports whether the type is a list, looking past a single
// leading non-null wrapper if present (so both "[String]" and "[String]!"
// report true).
func (r TypeRef) IsList() bool {
	i := uint8(0)
	if r.depth > 0 && r.NonNullAt(0) {
		i = 1
	}
	return i < r.depth && r.ListAt(i)
}

// Element returns the TypeRef for one element of a list type: the
// wrapping with a single leading non-null marker (if present) and the
// outermost list marker both peeled off. Callers should check IsList
// first; Element on a non-list TypeRef returns a meaningless result.
//
// Only the outermost list layer is peeled, matching the one level of
// list nesting the response writer actually completes; a field typed as
// a list-of-lists degrades to treating the inner dimension as opaque.
func (r TypeRef) Element() TypeRef {
	i := uint8(0)
	if r.depth > 0 && r.NonNullAt(0) {
		i = 1
	}
	shift := i + 1
	return TypeRef{
		Name:     r.Name,
		wrap:     r.wrap >> shift,
		listMask: r.listMask >> shift,
		depth:    r.depth - shift,
	}
}

// ComposeOutput combines two output-position TypeRefs (a field's return
// type as declared in two different subgraphs) into the narrower of the
// two, per the rule that required beats optional: a wrapping layer is
// non-null in the result if either side declares it non-null. a and b
// must share the same named type and list shape; ok reports false when
// they don't, which composition treats as a fatal incompatible-types
// diagnostic rather than guessing.
func ComposeOutput(a, b TypeRef) (TypeRef, bool) {
	if a.Name != b.Name || a.depth != b.depth || a.listMask != b.listMask {
		return TypeRef{}, false
	}
	return TypeRef{Name: a.Name, wrap: a.wrap | b.wrap, listMask: a.listMask, depth: a.depth}, true
}

// ComposeInput combines two input-position TypeRefs (an argument or input
// field's type as declared in two different subgraphs) into the wider of
// the two, per the rule that optional beats required: a wrapping layer
// is non-null in the result only if both sides declare it non-null, so a
// literal accepted by the stricter subgraph is still accepted by the
// composed type. Same shape precondition and failure mode as
// ComposeOutput.
func ComposeInput(a, b TypeRef) (TypeRef, bool) {
	if a.Name != b.Name || a.depth != b.depth || a.listMask != b.listMask {
		return TypeRef{}, false
	}
	return TypeRef{Name: a.Name, wrap: a.wrap & b.wrap, listMask: a.listMask, depth: a.depth}, true
}

// String renders the TypeRef back to GraphQL SDL type syntax, e.g.
// "[Product!]!".
func (r TypeRef) String() string {
	var sb strings.Builder
	var render func(depth uint8)
	render = func(depth uint8) {
		if depth == r.depth {
			sb.WriteString(r.Name)
			return
		}
		if r.ListAt(depth) {
			sb.WriteString("[")
			render(depth + 1)
			sb.WriteString("]")
		} else {
			render(depth + 1)
		}
		if r.NonNullAt(depth) {
			sb.WriteString("!")
		}
	}
	render(0)
	return sb.String()
}
