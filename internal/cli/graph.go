package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/crateship/crateship/pkg/render"
	"github.com/crateship/crateship/pkg/workspace"
)

// graphCommand creates the graph command.
func (c *CLI) graphCommand() *cobra.Command {
	var (
		format   string
		output   string
		all      bool
		detailed bool
		noCargo  bool
	)

	cmd := &cobra.Command{
		Use:   "graph [path]",
		Short: "Render the workspace dependency graph",
		Long: `Render the workspace dependency graph.

The graph contains one node per workspace member and one edge per
in-workspace dependency. By default only publishable members are shown;
--all includes excluded members, drawn dashed.

Formats: dot (default, written to stdout unless -o is set), svg, png.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runGraph(cmd.Context(), graphParams{
				root:     projectRoot(args),
				format:   strings.ToLower(format),
				output:   output,
				all:      all,
				detailed: detailed,
				noCargo:  noCargo,
			})
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "dot", "output format: dot, svg, png")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: stdout for dot, <root>/graph.<format> otherwise)")
	cmd.Flags().BoolVar(&all, "all", false, "include members excluded from publishing")
	cmd.Flags().BoolVar(&detailed, "detailed", false, "include versions in node labels")
	cmd.Flags().BoolVar(&noCargo, "no-cargo", false, "enumerate members from Cargo.toml files instead of cargo metadata")

	return cmd
}

type graphParams struct {
	root     string
	format   string
	output   string
	all      bool
	detailed bool
	noCargo  bool
}

func (c *CLI) runGraph(ctx context.Context, p graphParams) error {
	ws, err := c.loadWorkspace(ctx, p.root, p.noCargo)
	if err != nil {
		return fmt.Errorf("load workspace %s: %w", p.root, err)
	}

	var pkgs []*workspace.Package
	if p.all {
		pkgs = ws.Packages
	} else {
		pkgs = ws.Publishable()
	}
	if len(pkgs) == 0 {
		printInfo("No packages in %s", ws.Root)
		return nil
	}

	dot := render.ToDOT(pkgs, render.Options{Detailed: p.detailed})

	switch p.format {
	case "dot":
		if p.output == "" {
			fmt.Print(dot)
			return nil
		}
		if err := os.WriteFile(p.output, []byte(dot), 0o644); err != nil {
			return err
		}
	case "svg", "png":
		var data []byte
		if p.format == "svg" {
			data, err = render.SVG(ctx, dot)
		} else {
			data, err = render.PNG(ctx, dot)
		}
		if err != nil {
			return fmt.Errorf("render %s: %w", p.format, err)
		}
		if p.output == "" {
			p.output = "graph." + p.format
		}
		if err := os.WriteFile(p.output, data, 0o644); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown format %q (want dot, svg, or png)", p.format)
	}

	printSuccess("Graph written")
	printFile(p.output)
	return nil
}
