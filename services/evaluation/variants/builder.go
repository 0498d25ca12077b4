// Copyright (C) 2025 The typybench authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package variants

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// Builder produces annotated variants of a repository.
//
// Description:
//
//	Build copies the untyped source tree into a private destination
//	and substitutes annotation strings at the locations the manifest
//	records. Non-target code is untouched. A variable that cannot be
//	rewritten (line drift, renamed identifier) degrades the variant
//	and is logged; it never aborts the build.
//
// Thread Safety: Safe for concurrent use; Build touches only its own
// destination directory.
type Builder struct{}

// NewBuilder creates a variant builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Build writes an annotated variant of srcDir into dstDir.
//
// Inputs:
//
//	ctx - Context for cancellation between files.
//	srcDir - Root of the untyped repository tree.
//	dstDir - Destination for the variant. Created if absent; each
//	         worker must own its destination exclusively.
//	manifest - The variable locations to annotate.
//	annotations - Variable ID to annotation string. Variables with no
//	              entry keep their untyped form.
//
// Outputs:
//
//	int - Number of variables actually rewritten.
//	error - Non-nil on filesystem failure; per-variable rewrite
//	        misses are not errors.
func (b *Builder) Build(ctx context.Context, srcDir, dstDir string, manifest *Manifest, annotations map[string]string) (int, error) {
	if err := copyTree(ctx, srcDir, dstDir); err != nil {
		return 0, fmt.Errorf("copy tree %s -> %s: %w", srcDir, dstDir, err)
	}

	byFile := make(map[string][]Variable)
	for _, v := range manifest.Variables {
		if _, ok := annotations[v.ID]; !ok {
			continue
		}
		byFile[v.File] = append(byFile[v.File], v)
	}

	applied := 0
	for file, vars := range byFile {
		if err := ctx.Err(); err != nil {
			return applied, err
		}
		n, err := annotateFile(filepath.Join(dstDir, file), vars, annotations)
		if err != nil {
			// A single unwritable file degrades the variant, the
			// checker still runs on the rest.
			slog.Warn("Skipping file in variant",
				slog.String("file", file),
				slog.String("error", err.Error()),
			)
			continue
		}
		applied += n
	}
	return applied, nil
}

// annotateFile rewrites all target lines of one file.
func annotateFile(path string, vars []Variable, annotations map[string]string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	lines := strings.Split(string(data), "\n")

	// Stable order keeps rewrites deterministic when several variables
	// share a line (multiple parameters of one signature).
	sort.SliceStable(vars, func(i, j int) bool {
		if vars[i].Line != vars[j].Line {
			return vars[i].Line < vars[j].Line
		}
		return vars[i].ID < vars[j].ID
	})

	applied := 0
	for _, v := range vars {
		ann := strings.TrimSpace(annotations[v.ID])
		if ann == "" {
			continue
		}
		idx := v.Line - 1
		if idx < 0 || idx >= len(lines) {
			slog.Warn("Annotation target line out of range",
				slog.String("variable", v.ID),
				slog.Int("line", v.Line),
			)
			continue
		}
		rewritten, ok := annotateLine(lines[idx], v, ann)
		if !ok {
			slog.Warn("Annotation target not found on line",
				slog.String("variable", v.ID),
				slog.Int("line", v.Line),
			)
			continue
		}
		lines[idx] = rewritten
		applied++
	}

	if applied == 0 {
		return 0, nil
	}
	return applied, os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0640)
}

// returnRe matches the close paren of a signature, an optional
// existing return annotation, and the trailing colon.
var returnRe = regexp.MustCompile(`\)\s*(->[^:]*)?:`)

// annotateLine substitutes one annotation into one source line.
func annotateLine(line string, v Variable, ann string) (string, bool) {
	switch v.Kind {
	case KindReturn:
		loc := returnRe.FindStringIndex(line)
		if loc == nil {
			return line, false
		}
		return line[:loc[0]] + ") -> " + ann + ":" + line[loc[1]:], true

	case KindArgument:
		// Parameter name with an optional existing annotation; stops
		// before a default value, the next parameter, or the close
		// paren so those survive the rewrite.
		re := regexp.MustCompile(`\b` + regexp.QuoteMeta(v.Name) + `\b(\s*:\s*[^,)=]*)?`)
		loc := re.FindStringIndex(line)
		if loc == nil {
			return line, false
		}
		return line[:loc[0]] + v.Name + ": " + ann + line[loc[1]:], true

	case KindVariable:
		// Assignment or bare declaration at statement start.
		re := regexp.MustCompile(`^([ \t]*)` + regexp.QuoteMeta(v.Name) + `(\s*:\s*[^=]*?)?\s*(=|$)`)
		m := re.FindStringSubmatchIndex(line)
		if m == nil {
			return line, false
		}
		indent := line[m[2]:m[3]]
		rest := line[m[6]:]
		if strings.HasPrefix(rest, "=") {
			return indent + v.Name + ": " + ann + " " + rest, true
		}
		return indent + v.Name + ": " + ann + rest, true

	default:
		return line, false
	}
}

// copyTree copies a source tree, skipping VCS metadata, caches, and
// symlinks.
func copyTree(ctx context.Context, src, dst string) error {
	return filepath.WalkDir(src, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		if d.IsDir() {
			name := d.Name()
			if rel != "." && (strings.HasPrefix(name, ".") || name == "__pycache__" || name == "node_modules") {
				return filepath.SkipDir
			}
			return os.MkdirAll(target, 0750)
		}
		if !d.Type().IsRegular() {
			return nil
		}
		return copyFile(path, target)
	})
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0640)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
