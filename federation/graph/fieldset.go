package graph

import "sort"

// FieldSet is the parsed form of a federation field-set string such as
// `"id"` or `"id name { first last }"`: a set of field selections, each
// optionally carrying its own nested FieldSet (for `@requires`/`@key`
// selections that reach into a sub-object). It supports the set algebra
// (Union, Intersect, Contains) spec §8 requires be associative and
// commutative.
type FieldSet struct {
	selections map[string]*FieldSet // field name -> nested selection (nil leaf)
}

// NewFieldSet parses a federation field-set string into a FieldSet.
// Grammar (informal): space-separated field names, each optionally
// followed by a brace-delimited nested field set, e.g. `"id name { first
// last }"`.
func NewFieldSet(raw string) *FieldSet {
	toks := tokenizeFieldSet(raw)
	fs, _ := parseFieldSetTokens(toks, 0)
	return fs
}

func tokenizeFieldSet(raw string) []string {
	var toks []string
	cur := ""
	flush := func() {
		if cur != "" {
			toks = append(toks, cur)
			cur = ""
		}
	}
	for _, r := range raw {
		switch r {
		case ' ', '\t', '\n', ',':
			flush()
		case '{', '}':
			flush()
			toks = append(toks, string(r))
		default:
			cur += string(r)
		}
	}
	flush()
	return toks
}

func parseFieldSetTokens(toks []string, i int) (*FieldSet, int) {
	fs := &FieldSet{selections: make(map[string]*FieldSet)}
	for i < len(toks) {
		tok := toks[i]
		if tok == "}" {
			return fs, i + 1
		}
		name := tok
		i++
		if i < len(toks) && toks[i] == "{" {
			nested, next := parseFieldSetTokens(toks, i+1)
			fs.selections[name] = nested
			i = next
		} else {
			if _, exists := fs.selections[name]; !exists {
				fs.selections[name] = nil
			}
		}
	}
	return fs, i
}

// Fields returns the top-level field names in sorted order.
func (fs *FieldSet) Fields() []string {
	if fs == nil {
		return nil
	}
	out := make([]string, 0, len(fs.selections))
	for name := range fs.selections {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Nested returns the nested FieldSet for a top-level field, or nil if the
// field has no nested selection (a scalar leaf) or doesn't exist.
func (fs *FieldSet) Nested(field string) *FieldSet {
	if fs == nil {
		return nil
	}
	return fs.selections[field]
}

// Contains reports whether field is selected at the top level.
func (fs *FieldSet) Contains(field string) bool {
	if fs == nil {
		return false
	}
	_, ok := fs.selections[field]
	return ok
}

// Empty reports whether the field set selects nothing.
func (fs *FieldSet) Empty() bool {
	return fs == nil || len(fs.selections) == 0
}

// Union returns a new FieldSet containing every selection in fs or other,
// merging nested selections recursively. Union is commutative and
// associative: Union(a, b) == Union(b, a) and Union(Union(a,b),c) ==
// Union(a,Union(b,c)).
func (fs *FieldSet) Union(other *FieldSet) *FieldSet {
	result := &FieldSet{selections: make(map[string]*FieldSet)}
	for name, nested := range fs.selectionsOrEmpty() {
		result.selections[name] = nested
	}
	for name, nested := range other.selectionsOrEmpty() {
		if existing, ok := result.selections[name]; ok {
			result.selections[name] = existing.Union(nested)
		} else {
			result.selections[name] = nested
		}
	}
	if len(result.selections) == 0 && fs.Empty() && other.Empty() {
		return nil
	}
	return result
}

// Intersect returns a new FieldSet containing only selections present in
// both fs and other, with nested selections intersected recursively.
// Intersect is commutative and associative for the same reason Union is.
func (fs *FieldSet) Intersect(other *FieldSet) *FieldSet {
	result := &FieldSet{selections: make(map[string]*FieldSet)}
	for name, nested := range fs.selectionsOrEmpty() {
		otherNested, ok := other.selectionsOrEmpty()[name]
		if !ok {
			continue
		}
		if nested == nil || otherNested == nil {
			result.selections[name] = nil
		} else {
			result.selections[name] = nested.Intersect(otherNested)
		}
	}
	return result
}

// Equal reports whether fs and other select exactly the same fields,
// recursively.
func (fs *FieldSet) Equal(other *FieldSet) bool {
	a, b := fs.selectionsOrEmpty(), other.selectionsOrEmpty()
	if len(a) != len(b) {
		return false
	}
	for name, nested := range a {
		otherNested, ok := b[name]
		if !ok {
			return false
		}
		if (nested == nil) != (otherNested == nil) {
			return false
		}
		if nested != nil && !nested.Equal(otherNested) {
			return false
		}
	}
	return true
}

func (fs *FieldSet) selectionsOrEmpty() map[string]*FieldSet {
	if fs == nil {
		return map[string]*FieldSet{}
	}
	return fs.selections
}

// String renders the FieldSet back to federation field-set syntax.
func (fs *FieldSet) String() string {
	if fs.Empty() {
		return ""
	}
	out := ""
	for i, name := range fs.Fields() {
		if i > 0 {
			out += " "
		}
		out += name
		if nested := fs.Nested(name); nested != nil && !nested.Empty() {
			out += " { " + nested.String() + " }"
		}
	}
	return out
}
