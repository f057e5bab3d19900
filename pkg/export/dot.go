// Package export renders merged spec graphs to Graphviz DOT and SVG for
// inspection of what a manifest ingestion produced.
package export

import (
	"bytes"
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/pkgdepot/depot/pkg/spec"
)

// Closure returns the given specs plus every spec reachable through
// dependency edges, sorted by hash for deterministic output.
func Closure(roots []*spec.Spec) []*spec.Spec {
	seen := make(map[string]*spec.Spec)
	var visit func(s *spec.Spec)
	visit = func(s *spec.Spec) {
		if _, ok := seen[s.Hash]; ok {
			return
		}
		seen[s.Hash] = s
		for _, e := range s.Dependencies {
			visit(e.To)
		}
	}
	for _, s := range roots {
		visit(s)
	}

	out := make([]*spec.Spec, 0, len(seen))
	for _, s := range seen {
		out = append(out, s)
	}
	slices.SortFunc(out, func(a, b *spec.Spec) int {
		return strings.Compare(a.Hash, b.Hash)
	})
	return out
}

// ToDOT converts the dependency closure of the given specs to Graphviz DOT.
// Nodes are identified by hash and labeled name@version; edges carry their
// edge-type tags as labels.
func ToDOT(roots []*spec.Spec) string {
	specs := Closure(roots)

	var buf bytes.Buffer
	buf.WriteString("digraph specs {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white];\n")
	buf.WriteString("\n")

	for _, s := range specs {
		label := fmt.Sprintf("%s@%s\\n%s", s.Name, s.Version, shortHash(s.Hash))
		fmt.Fprintf(&buf, "  %q [label=\"%s\"];\n", s.Hash, label)
	}

	buf.WriteString("\n")
	for _, s := range specs {
		for _, e := range s.Dependencies {
			if len(e.Types) > 0 {
				fmt.Fprintf(&buf, "  %q -> %q [label=%q];\n",
					s.Hash, e.To.Hash, strings.Join(e.Types, ","))
			} else {
				fmt.Fprintf(&buf, "  %q -> %q;\n", s.Hash, e.To.Hash)
			}
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}

// shortHash truncates a content hash for display.
func shortHash(hash string) string {
	if len(hash) <= 8 {
		return hash
	}
	return hash[:8]
}
