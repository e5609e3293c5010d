// Package fingerprint canonicalizes a bound GraphQL operation's selection
// graph and hashes it with xxhash64, giving the gateway's plan cache and
// the executor's entity cache a stable, byte-comparable key for "the same query shape" — spec
// §4.3 requires plan-cache keys to be "a hash of the canonicalized bound
// operation" and spec §4.4 requires the same for entity representations.
package fingerprint

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/n9te9/graphql-parser/ast"
)

// Operation returns a stable uint64 fingerprint of op's selection graph,
// independent of source spans, argument literal formatting, or selection
// order (selections are canonicalized in response-key order before
// hashing, so `{ a b }` and `{ b a }` fingerprint identically).
func Operation(rootTypeName string, selSet []ast.Selection, fragmentDefs map[string]*ast.FragmentDefinition) uint64 {
	var sb strings.Builder
	sb.WriteString(rootTypeName)
	writeSelectionSet(&sb, selSet, fragmentDefs)
	return xxhash.Sum64String(sb.String())
}

// Representation returns a stable fingerprint of an entity representation
// (as decoded from a _entities representations entry) plus the subgraph
// name and the requested field selection, for use as an EntityCache key.
func Representation(subgraphName string, representation map[string]any, selection string) uint64 {
	var sb strings.Builder
	sb.WriteString(subgraphName)
	sb.WriteString("|")
	sb.WriteString(selection)
	sb.WriteString("|")
	writeValueCanonical(&sb, representation)
	return xxhash.Sum64String(sb.String())
}

func writeSelectionSet(sb *strings.Builder, selSet []ast.Selection, fragmentDefs map[string]*ast.FragmentDefinition) {
	type keyed struct {
		key string
		sel ast.Selection
	}
	var entries []keyed
	for _, sel := range selSet {
		entries = append(entries, keyed{key: responseKey(sel, fragmentDefs), sel: sel})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].key < entries[j].key })

	sb.WriteString("{")
	for _, e := range entries {
		writeSelection(sb, e.sel, fragmentDefs)
	}
	sb.WriteString("}")
}

func responseKey(sel ast.Selection, fragmentDefs map[string]*ast.FragmentDefinition) string {
	switch s := sel.(type) {
	case *ast.Field:
		if s.Alias != nil && s.Alias.String() != "" {
			return s.Alias.String()
		}
		return s.Name.String()
	case *ast.InlineFragment:
		if s.TypeCondition != nil {
			return "..." + s.TypeCondition.String()
		}
		return "..."
	case *ast.FragmentSpread:
		return "..." + s.Name.String()
	}
	return ""
}

func writeSelection(sb *strings.Builder, sel ast.Selection, fragmentDefs map[string]*ast.FragmentDefinition) {
	switch s := sel.(type) {
	case *ast.Field:
		if s.Alias != nil && s.Alias.String() != "" {
			sb.WriteString(s.Alias.String())
			sb.WriteString(":")
		}
		sb.WriteString(s.Name.String())
		writeArgsCanonical(sb, s.Arguments)
		if len(s.SelectionSet) > 0 {
			writeSelectionSet(sb, s.SelectionSet, fragmentDefs)
		}
	case *ast.InlineFragment:
		sb.WriteString("...on ")
		if s.TypeCondition != nil {
			sb.WriteString(s.TypeCondition.String())
		}
		writeSelectionSet(sb, s.SelectionSet, fragmentDefs)
	case *ast.FragmentSpread:
		name := s.Name.String()
		sb.WriteString("...")
		sb.WriteString(name)
		if frag, ok := fragmentDefs[name]; ok {
			writeSelectionSet(sb, frag.SelectionSet, fragmentDefs)
		}
	}
}

func writeArgsCanonical(sb *strings.Builder, args []*ast.Argument) {
	if len(args) == 0 {
		return
	}
	names := make([]string, len(args))
	byName := make(map[string]*ast.Argument, len(args))
	for i, a := range args {
		names[i] = a.Name.String()
		byName[names[i]] = a
	}
	sort.Strings(names)
	sb.WriteString("(")
	for i, n := range names {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString(n)
		sb.WriteString(":")
		sb.WriteString(byName[n].Value.String())
	}
	sb.WriteString(")")
}

func writeValueCanonical(sb *strings.Builder, v any) {
	switch val := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		sb.WriteString("{")
		for i, k := range keys {
			if i > 0 {
				sb.WriteString(",")
			}
			sb.WriteString(k)
			sb.WriteString(":")
			writeValueCanonical(sb, val[k])
		}
		sb.WriteString("}")
	case []any:
		sb.WriteString("[")
		for i, e := range val {
			if i > 0 {
				sb.WriteString(",")
			}
			writeValueCanonical(sb, e)
		}
		sb.WriteString("]")
	case string:
		sb.WriteString(strconv.Quote(val))
	case nil:
		sb.WriteString("null")
	default:
		sb.WriteString(fmt.Sprintf("%v", val))
	}
}
