package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/crateship/crateship/pkg/order"
)

// planCommand creates the plan command.
func (c *CLI) planCommand() *cobra.Command {
	var noCargo bool

	cmd := &cobra.Command{
		Use:   "plan [path]",
		Short: "Show the release order without publishing",
		Long: `Show the release order without publishing.

The plan command computes the same order 'publish' would use and prints
it as a table. Nothing is executed.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runPlan(cmd.Context(), projectRoot(args), noCargo)
		},
	}

	cmd.Flags().BoolVar(&noCargo, "no-cargo", false, "enumerate members from Cargo.toml files instead of cargo metadata")

	return cmd
}

func (c *CLI) runPlan(ctx context.Context, root string, noCargo bool) error {
	pkgs, root, err := c.loadPublishable(ctx, root, noCargo)
	if err != nil {
		return err
	}
	if len(pkgs) == 0 {
		printInfo("No publishable packages in %s", root)
		return nil
	}

	ordered, err := order.Resolve(pkgs)
	if err != nil {
		return err
	}

	rows := make([][]string, len(ordered))
	for i, pkg := range ordered {
		rows[i] = []string{strconv.Itoa(i + 1), pkg.Name, pkg.Version}
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("#", "Package", "Version").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			if col == 1 {
				return listNormalStyle
			}
			return listDimStyle
		})

	fmt.Println(t.Render())
	printNextStep("Release in this order", "crateship publish "+root)
	return nil
}
