// Package render draws the workspace dependency graph, either as Graphviz
// DOT text or rasterized to SVG/PNG via the graphviz library.
//
// The drawn graph contains exactly the edges the release-order resolver
// would follow: dependencies pointing outside the workspace and
// self-references produce no edge. Non-publishable members are drawn
// dashed and grey so a glance shows what the release plan will contain.
package render

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/crateship/crateship/pkg/workspace"
)

// Options configures DOT generation.
type Options struct {
	// Detailed adds the package version to each node label.
	Detailed bool
}

// ToDOT converts the package set to Graphviz DOT format. Edges run from a
// package to each of its in-scope dependencies, so arrows point at what
// must be published first.
func ToDOT(pkgs []*workspace.Package, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph workspace {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, margin=\"0.2,0.1\"];\n")
	buf.WriteString("\n")

	for _, p := range pkgs {
		attrs := []string{fmt.Sprintf("label=%q", label(p, opts.Detailed))}
		if !p.Publishable {
			attrs = append(attrs, "style=\"rounded,filled,dashed\"", "fillcolor=lightgrey")
		}
		fmt.Fprintf(&buf, "  %q [%s];\n", p.Name, strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, p := range pkgs {
		for _, d := range p.Dependencies {
			if d == p.Name || !inScope(pkgs, d) {
				continue
			}
			fmt.Fprintf(&buf, "  %q -> %q;\n", p.Name, d)
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

func label(p *workspace.Package, detailed bool) string {
	if !detailed || p.Version == "" {
		return p.Name
	}
	return p.Name + "\n" + p.Version
}

func inScope(pkgs []*workspace.Package, name string) bool {
	for _, p := range pkgs {
		if p.Name == name {
			return true
		}
	}
	return false
}

// SVG renders a DOT graph to SVG using Graphviz.
func SVG(ctx context.Context, dot string) ([]byte, error) {
	return renderFormat(ctx, dot, graphviz.SVG)
}

// PNG renders a DOT graph to PNG using Graphviz.
func PNG(ctx context.Context, dot string) ([]byte, error) {
	return renderFormat(ctx, dot, graphviz.PNG)
}

func renderFormat(ctx context.Context, dot string, format graphviz.Format) ([]byte, error) {
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
	if err := gv.Render(ctx, g, format, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}
