package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/pipescope/pkg/explorer"
)

// searchCommand creates the search command.
func (c *CLI) searchCommand() *cobra.Command {
	var mode string

	cmd := &cobra.Command{
		Use:   "search [payload] [query]",
		Short: "Find nodes by label or type",
		Long: `Find nodes by label or type.

Matching is case-insensitive substring matching against each node's label
(or ID when it has none) and its type. Queries shorter than the configured
minimum length match nothing.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runSearch(cmd.Context(), args[0], args[1], mode)
		},
	}

	cmd.Flags().StringVarP(&mode, "mode", "m", "", "view mode: dag (default), table, metric")

	return cmd
}

// runSearch prints the nodes matching query.
func (c *CLI) runSearch(ctx context.Context, input, query, mode string) error {
	store, err := c.loadPayload(ctx, input)
	if err != nil {
		return fmt.Errorf("load payload %s: %w", input, err)
	}
	runner, err := explorer.NewRunner(store, nil, nil, nil, c.Logger)
	if err != nil {
		return err
	}
	runner.SearchOpts = c.config().Search.Options

	nodes, err := runner.Search(runner.Start(mode), query)
	if err != nil {
		return err
	}
	if len(nodes) == 0 {
		printInfo("No nodes match %q", query)
		return nil
	}

	for _, n := range nodes {
		fmt.Printf("%s %s %s\n",
			StyleDim.Render(iconInfo),
			StyleValue.Render(n.DisplayLabel()),
			StyleDim.Render(n.TypeOrDefault()+" · "+n.ID))
	}
	printNewline()
	printNextStep("Show lineage", fmt.Sprintf("%s lineage %s %s", appName, input, nodes[0].ID))
	return nil
}
