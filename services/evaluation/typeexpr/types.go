// Copyright (C) 2025 The typybench authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package typeexpr models type annotations as trees.
//
// An annotation string such as "Dict[str, List[int]]" parses into a
// Node tree with one level per constructor. The parser is tolerant:
// malformed input degrades into a raw leaf instead of failing, and
// Optional/Union spellings are normalized so that the rest of the
// pipeline sees a single canonical form.
package typeexpr

import (
	"sort"
	"strings"
)

// =============================================================================
// NODE KIND
// =============================================================================

// Kind identifies the constructor category of a type expression node.
type Kind int

const (
	// KindName is a named constructor, with or without arguments.
	// Examples: int, str, List[int], Dict[str, int], MyClass.
	KindName Kind = iota

	// KindUnion is a union of alternatives: Union[int, None].
	// Optional[X] is normalized to Union[X, None] during parsing.
	KindUnion

	// KindRaw is the fallback for annotation text that could not be
	// parsed. The original text is preserved verbatim in Raw so that a
	// malformed annotation degrades the data instead of failing the run.
	KindRaw
)

// String returns the kind name for logging and test output.
func (k Kind) String() string {
	switch k {
	case KindName:
		return "name"
	case KindUnion:
		return "union"
	case KindRaw:
		return "raw"
	default:
		return "unknown"
	}
}

// =============================================================================
// TYPE EXPRESSION NODE
// =============================================================================

// Node is one level of a parsed type annotation.
//
// Description:
//
//	A Node is a tagged tree: KindName carries the constructor surface
//	name and its ordered arguments, KindUnion carries the union members
//	in Args, and KindRaw carries unparseable text in Raw.
//
// Thread Safety: Treat as immutable after parsing.
type Node struct {
	// Kind is the constructor category.
	Kind Kind

	// Name is the constructor surface name (e.g., "List", "int").
	// Empty for KindUnion and KindRaw.
	Name string

	// Args are the ordered constructor arguments, or the union members
	// for KindUnion. Nil for leaves.
	Args []*Node

	// Raw holds the original annotation text for KindRaw nodes.
	Raw string
}

// Depth returns the nesting depth of the expression.
//
// A leaf has depth 1; every constructor level adds one. Union counts as
// a level of its own, so Union[int, None] has depth 2 and
// Optional[List[int]] has depth 3.
func (n *Node) Depth() int {
	depth := 1
	for _, arg := range n.Args {
		if d := arg.Depth() + 1; d > depth {
			depth = d
		}
	}
	return depth
}

// Count returns the total number of nodes in the expression tree.
func (n *Node) Count() int {
	count := 1
	for _, arg := range n.Args {
		count += arg.Count()
	}
	return count
}

// IsNone reports whether the node is the bare None constructor.
func (n *Node) IsNone() bool {
	return n.Kind == KindName && n.Name == "None" && len(n.Args) == 0
}

// String renders the canonical form of the expression.
//
// The canonical form is stable under re-parsing: parsing the output of
// String yields a structurally identical tree. Union members keep their
// parsed order; use Equal for order-insensitive comparison.
func (n *Node) String() string {
	switch n.Kind {
	case KindRaw:
		return n.Raw
	case KindUnion:
		return "Union[" + joinArgs(n.Args) + "]"
	default:
		if len(n.Args) == 0 {
			return n.Name
		}
		return n.Name + "[" + joinArgs(n.Args) + "]"
	}
}

func joinArgs(args []*Node) string {
	parts := make([]string, len(args))
	for i, arg := range args {
		parts[i] = arg.String()
	}
	return strings.Join(parts, ", ")
}

// Equal reports whether two normalized expressions are structurally
// identical.
//
// Union members compare as an unordered multiset; all other constructor
// arguments are order-sensitive. This is the equality used by the
// exact-match metric.
func (n *Node) Equal(other *Node) bool {
	if n == nil || other == nil {
		return n == other
	}
	if n.Kind != other.Kind {
		return false
	}
	switch n.Kind {
	case KindRaw:
		return n.Raw == other.Raw
	case KindUnion:
		if len(n.Args) != len(other.Args) {
			return false
		}
		return equalUnordered(n.Args, other.Args)
	default:
		if n.Name != other.Name || len(n.Args) != len(other.Args) {
			return false
		}
		for i := range n.Args {
			if !n.Args[i].Equal(other.Args[i]) {
				return false
			}
		}
		return true
	}
}

// equalUnordered compares two member lists as multisets. Each member of
// a must pair with a distinct equal member of b.
func equalUnordered(a, b []*Node) bool {
	used := make([]bool, len(b))
	for _, m := range a {
		found := false
		for i, n := range b {
			if !used[i] && m.Equal(n) {
				used[i] = true
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// SortedMembers returns union members ordered by canonical rendering.
// Useful for deterministic test output and type labels.
func SortedMembers(nodes []*Node) []*Node {
	out := make([]*Node, len(nodes))
	copy(out, nodes)
	sort.Slice(out, func(i, j int) bool {
		return out[i].String() < out[j].String()
	})
	return out
}
