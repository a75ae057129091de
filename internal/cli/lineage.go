package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/pipescope/pkg/explorer"
	"github.com/matzehuels/pipescope/pkg/lineage"
)

// lineageCommand creates the lineage command that prints a node's
// upstream and downstream.
func (c *CLI) lineageCommand() *cobra.Command {
	var (
		mode    string
		asJSON  bool
		dirFlag string
	)

	cmd := &cobra.Command{
		Use:   "lineage [payload] [node-id]",
		Short: "Show the upstream and downstream of a node",
		Long: `Show the upstream and downstream of a node.

Upstream is everything the node transitively depends on; downstream is
everything that transitively depends on it. Containment does not count as
lineage. Use --json for machine-readable output.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runLineage(cmd.Context(), args[0], args[1], mode, dirFlag, asJSON)
		},
	}

	cmd.Flags().StringVarP(&mode, "mode", "m", "", "view mode: dag (default), table, metric")
	cmd.Flags().StringVar(&dirFlag, "direction", "both", "which side to show: up, down, both")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the node detail as JSON")

	return cmd
}

// runLineage prints the lineage of one node.
func (c *CLI) runLineage(ctx context.Context, input, id, mode, dirFlag string, asJSON bool) error {
	dir, err := lineage.ParseDirection(dirFlag)
	if err != nil {
		return err
	}
	store, err := c.loadPayload(ctx, input)
	if err != nil {
		return fmt.Errorf("load payload %s: %w", input, err)
	}
	runner, err := explorer.NewRunner(store, nil, nil, nil, c.Logger)
	if err != nil {
		return err
	}

	d, err := runner.Detail(mode, id)
	if err != nil {
		return err
	}
	if dir == lineage.Upstream {
		d.Downstream = []string{}
	}
	if dir == lineage.Downstream {
		d.Upstream = []string{}
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(d)
	}

	g, _ := store.Graph(d.Mode)
	fmt.Println(StyleTitle.Render(d.Node.DisplayLabel()) + " " + StyleDim.Render("("+d.Type+", "+d.Mode+" view)"))
	printKeyValue("id", d.Node.ID)
	if d.Node.DAG != "" {
		printKeyValue("pipeline", d.Node.DAG)
	}
	if d.Node.Operator != "" {
		printKeyValue("operator", d.Node.Operator)
	}
	printKeyValue("degree", fmt.Sprintf("%d in · %d out", d.In, d.Out))
	printNewline()

	if dir != lineage.Downstream {
		printLineageTable("Upstream", g, d.Upstream)
	}
	if dir != lineage.Upstream {
		printLineageTable("Downstream", g, d.Downstream)
	}
	return nil
}

// printLineageTable renders ids as a table of label, type and pipeline.
func printLineageTable(title string, g *lineage.Graph, ids []string) {
	fmt.Println(StyleHighlight.Render(title) + " " + StyleNumber.Render(strconv.Itoa(len(ids))))
	if len(ids) == 0 {
		printDetail("none")
		printNewline()
		return
	}

	rows := make([][]string, 0, len(ids))
	for _, id := range ids {
		n, _ := g.Node(id)
		rows = append(rows, []string{n.DisplayLabel(), n.TypeOrDefault(), pipelineCell(n)})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(styleTableBorder).
		Headers("Node", "Type", "Pipeline").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return styleTableHeader
			}
			if col == 0 {
				return lipgloss.NewStyle().Foreground(colorWhite)
			}
			return lipgloss.NewStyle().Foreground(colorGray)
		})

	fmt.Println(t.Render())
	printNewline()
}
