package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/pipescope/pkg/explorer"
	"github.com/matzehuels/pipescope/pkg/view"
)

// viewFlags selects the view a one-shot command operates on.
type viewFlags struct {
	mode      string
	focus     string
	direction string
	filter    string
}

// register adds the view selection flags to cmd.
func (v *viewFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&v.mode, "mode", "m", "", "view mode: dag (default), table, metric")
	cmd.Flags().StringVar(&v.focus, "focus", "", "show only the lineage of this node")
	cmd.Flags().StringVar(&v.direction, "direction", "both", "lineage direction for --focus: up, down, both")
	cmd.Flags().StringVar(&v.filter, "filter", "", "show only nodes of this type")
}

// actions converts the flags to the explorer actions that produce the view.
// A focus is applied after a filter, so it wins.
func (v *viewFlags) actions() []explorer.Action {
	acts := []explorer.Action{{Kind: explorer.ActionMode, Mode: v.mode}}
	if v.filter != "" {
		acts = append(acts, explorer.Action{Kind: explorer.ActionFilter, Type: v.filter})
	}
	if v.focus != "" {
		acts = append(acts, explorer.Action{Kind: explorer.ActionFocus, Node: v.focus, Direction: v.direction})
	}
	return acts
}

// state applies the flags' actions to a fresh view.
func (v *viewFlags) state(r *explorer.Runner) (view.State, error) {
	var s view.State
	for _, a := range v.actions() {
		next, err := r.Apply(s, a)
		if err != nil {
			return s, err
		}
		s = next
	}
	return s, nil
}

// layoutCommand creates the layout command for composing clustered layouts.
func (c *CLI) layoutCommand() *cobra.Command {
	var (
		output  string
		noCache bool
		vf      viewFlags
	)

	cmd := &cobra.Command{
		Use:   "layout [payload]",
		Short: "Compose the clustered layout of a lineage view",
		Long: `Compose the clustered layout of a lineage view.

The layout command takes a payload (produced by 'build', or a directory of
pipeline definitions) and lays out the selected view: each pipeline is laid
out as its own cluster and the clusters are stacked in uniform containers.
The result is written as JSON with node positions, container frames and
routed edges.

Results are cached, so recomposing an unchanged view is instant.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runLayout(cmd.Context(), args[0], vf, output, noCache)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: <payload>.layout.json)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	vf.register(cmd)

	// Settings, bound through the config layer.
	cmd.Flags().String("rankdir", "", "rank direction: TB (default), LR")
	cmd.Flags().Float64("node-width", 0, "node width")
	cmd.Flags().Float64("node-height", 0, "node height")
	cmd.Flags().String("cache", "", "cache backend: file (default), redis, none")
	cmd.Flags().String("cache-dir", "", "file cache directory")
	cmd.Flags().String("redis-addr", "", "redis address for the redis cache")

	return cmd
}

// runLayout loads the payload, composes the view and writes the result.
func (c *CLI) runLayout(ctx context.Context, input string, vf viewFlags, output string, noCache bool) error {
	store, err := c.loadPayload(ctx, input)
	if err != nil {
		return fmt.Errorf("load payload %s: %w", input, err)
	}

	runner, err := c.newRunner(ctx, store, noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Cache.Close()

	state, err := vf.state(runner)
	if err != nil {
		return err
	}

	prog := newProgress(loggerFromContext(ctx))
	spinner := newSpinner(ctx, os.Stderr, fmt.Sprintf("Composing %s layout...", state.Mode))
	spinner.Start()

	res, cacheHit, err := runner.LayoutWithCacheInfo(ctx, state)
	if err != nil {
		spinner.StopWithError("Layout failed")
		return err
	}
	spinner.Stop()
	if spinner.Cancelled() {
		return ctx.Err()
	}
	prog.done(fmt.Sprintf("Composed %s view", state.Mode))

	outputPath := output
	if outputPath == "" {
		outputPath = defaultOutput(input, ".layout.json")
	}
	if err := res.WriteFile(outputPath); err != nil {
		return fmt.Errorf("write output %s: %w", outputPath, err)
	}

	printSuccess("Layout complete")
	printFile(outputPath)
	printStats(viewStats{
		Mode:       state.Mode,
		Nodes:      len(state.Visible.Nodes),
		Edges:      len(res.Edges),
		Containers: len(res.Containers),
		Omitted:    len(res.Omitted),
		Composed:   true,
		Cached:     cacheHit,
	})
	if len(res.Omitted) > 0 {
		printWarning("Not placed: %s", strings.Join(res.Omitted, ", "))
	}
	if res.IsEmpty() {
		printDetail("Nothing to show in the %s view", state.Mode)
	}
	printNewline()
	printNextStep("Explore interactively", appName+" explore "+input)

	return nil
}
