// Copyright (C) 2025 The typybench authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package typeexpr

import (
	"strings"
)

// Parse converts a raw annotation string into a normalized Node.
//
// Description:
//
//	Parses generic syntax (Ctor[arg, arg]), union pipes (X | Y), and
//	applies normalization: Optional[X] becomes Union[X, None], nested
//	unions are flattened, and single-member unions collapse. Parsing
//	never aborts the pipeline: syntax the parser cannot handle yields a
//	single KindRaw leaf carrying the original text.
//
// Inputs:
//
//	raw - The annotation text. May be empty.
//
// Outputs:
//
//	*Node - The parsed tree, or nil with ErrMissingAnnotation when raw
//	        is empty or whitespace (the explicit "missing" marker).
//	error - Only ErrMissingAnnotation; malformed input is not an error.
func Parse(raw string) (*Node, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, ErrMissingAnnotation
	}
	node := parseExpr(trimmed)
	return normalize(node, trimmed), nil
}

// MustParse parses an annotation and panics on a missing marker.
// Intended for tests and fixed tables only.
func MustParse(raw string) *Node {
	node, err := Parse(raw)
	if err != nil {
		panic("typeexpr: " + err.Error())
	}
	return node
}

// parseExpr parses one expression. Returns a KindRaw node when the
// syntax does not fit the grammar.
func parseExpr(s string) *Node {
	s = strings.TrimSpace(s)
	if s == "" {
		return &Node{Kind: KindRaw, Raw: s}
	}

	// PEP 604 pipe unions bind loosest: "int | None".
	if parts, ok := splitTop(s, '|'); ok && len(parts) > 1 {
		members := make([]*Node, 0, len(parts))
		for _, p := range parts {
			members = append(members, parseExpr(p))
		}
		return &Node{Kind: KindUnion, Args: members}
	}

	open := strings.IndexByte(s, '[')
	if open < 0 {
		if !validName(s) {
			return &Node{Kind: KindRaw, Raw: s}
		}
		return &Node{Kind: KindName, Name: s}
	}
	if !strings.HasSuffix(s, "]") {
		return &Node{Kind: KindRaw, Raw: s}
	}

	name := strings.TrimSpace(s[:open])
	inner := s[open+1 : len(s)-1]
	// A bare bracket group (Callable parameter lists) keeps an empty
	// constructor name and renders back as "[...]".
	if name != "" && !validName(name) {
		return &Node{Kind: KindRaw, Raw: s}
	}

	parts, ok := splitTop(inner, ',')
	if !ok {
		return &Node{Kind: KindRaw, Raw: s}
	}
	args := make([]*Node, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		args = append(args, parseExpr(p))
	}

	switch name {
	case "Union", "typing.Union":
		return &Node{Kind: KindUnion, Args: args}
	case "Optional", "typing.Optional":
		// Optional[X] == Union[X, None].
		args = append(args, &Node{Kind: KindName, Name: "None"})
		return &Node{Kind: KindUnion, Args: args}
	default:
		return &Node{Kind: KindName, Name: name, Args: args}
	}
}

// splitTop splits s on sep occurrences at bracket depth zero. The
// second return is false when brackets are unbalanced.
func splitTop(s string, sep byte) ([]string, bool) {
	var parts []string
	depth := 0
	last := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '[', '(':
			depth++
		case ']', ')':
			depth--
			if depth < 0 {
				return nil, false
			}
		case sep:
			if depth == 0 {
				parts = append(parts, s[last:i])
				last = i + 1
			}
		}
	}
	if depth != 0 {
		return nil, false
	}
	parts = append(parts, s[last:])
	return parts, true
}

// validName accepts dotted identifiers plus the Ellipsis token.
func validName(s string) bool {
	if s == "..." {
		return true
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c == '_', c == '.':
		case c >= '0' && c <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return len(s) > 0
}

// normalize flattens nested unions, deduplicates union members, and
// collapses single-member unions. raw is the original annotation text,
// used when a degenerate union (zero members) has to fall back.
func normalize(n *Node, raw string) *Node {
	if n == nil {
		return nil
	}
	for i, arg := range n.Args {
		n.Args[i] = normalize(arg, arg.String())
	}
	if n.Kind != KindUnion {
		return n
	}

	flat := make([]*Node, 0, len(n.Args))
	for _, m := range n.Args {
		if m.Kind == KindUnion {
			flat = append(flat, m.Args...)
		} else {
			flat = append(flat, m)
		}
	}

	// Deduplicate structurally identical members: Union[int, int, None]
	// and Union[int, None] are the same type.
	dedup := make([]*Node, 0, len(flat))
	for _, m := range flat {
		seen := false
		for _, kept := range dedup {
			if kept.Equal(m) {
				seen = true
				break
			}
		}
		if !seen {
			dedup = append(dedup, m)
		}
	}

	switch len(dedup) {
	case 0:
		return &Node{Kind: KindRaw, Raw: raw}
	case 1:
		return dedup[0]
	default:
		return &Node{Kind: KindUnion, Args: dedup}
	}
}
