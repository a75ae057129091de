package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/matzehuels/pipescope/pkg/lineage"
	"github.com/matzehuels/pipescope/pkg/source"
)

// buildCommand creates the build command that turns pipeline definitions
// into a lineage payload.
func (c *CLI) buildCommand() *cobra.Command {
	var (
		output  string
		publish string
	)

	cmd := &cobra.Command{
		Use:   "build [dir]",
		Short: "Build a lineage payload from pipeline definitions",
		Long: `Build a lineage payload from a directory of pipeline definitions.

Every *.yaml, *.yml and *.toml file below dir is read. The payload holds a
pipeline-centric dag view, a table-centric table view and an empty metric
view. Definition problems (duplicate tasks, dependencies on unknown tasks)
are reported and skipped.

With --publish the payload is also stored in MongoDB under the given name,
from where 'serve --from-mongo' can load it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runBuild(cmd.Context(), args[0], output, publish)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: <dir>/payload.json)")
	cmd.Flags().StringVar(&publish, "publish", "", "also store the payload in MongoDB under this name")
	cmd.Flags().String("mongo-uri", "", "MongoDB connection URI")
	cmd.Flags().String("mongo-database", "", "MongoDB database")
	cmd.Flags().String("mongo-collection", "", "MongoDB collection")

	return cmd
}

// runBuild loads definitions, builds the payload and writes it out.
func (c *CLI) runBuild(ctx context.Context, dir, output, publish string) error {
	prog := newProgress(loggerFromContext(ctx))

	defs, err := source.LoadDir(ctx, dir)
	if err != nil {
		return fmt.Errorf("load definitions: %w", err)
	}
	if len(defs) == 0 {
		printWarning("No pipeline definitions found in %s", dir)
	}

	store, issues, err := source.BuildPayload(defs)
	if err != nil {
		return fmt.Errorf("build payload: %w", err)
	}
	for _, is := range issues {
		printWarning("%s", is.String())
	}

	if output == "" {
		output = filepath.Join(dir, "payload.json")
	}
	if err := source.WritePayloadFile(output, store); err != nil {
		return fmt.Errorf("write payload %s: %w", output, err)
	}
	prog.done(fmt.Sprintf("Built %d pipelines", len(defs)))

	printSuccess("Payload built")
	printFile(output)
	g, _ := store.Graph(lineage.ModeDAG)
	printStats(viewStats{Mode: lineage.ModeDAG, Nodes: g.NodeCount(), Edges: g.EdgeCount(), Containers: len(g.Containers())})

	if publish != "" {
		if err := c.publish(ctx, publish, store); err != nil {
			return err
		}
	}

	printNewline()
	printNextStep("Explore", appName+" explore "+output)
	return nil
}

// publish stores the payload in the configured MongoDB collection.
func (c *CLI) publish(ctx context.Context, name string, store *lineage.Store) error {
	m := c.config().Mongo
	if m.URI == "" {
		return fmt.Errorf("--publish needs a MongoDB URI (--mongo-uri or mongo.uri)")
	}

	spinner := newSpinner(ctx, os.Stderr, "Publishing to MongoDB...")
	spinner.Start()
	ms, err := source.NewMongoStore(ctx, m.URI, m.Database, m.Collection)
	if err != nil {
		spinner.StopWithError("Publish failed")
		return err
	}
	defer ms.Close(context.WithoutCancel(ctx))

	if err := ms.Save(ctx, name, store); err != nil {
		spinner.StopWithError("Publish failed")
		return err
	}
	spinner.StopWithSuccess(fmt.Sprintf("Published as %q", name))
	return nil
}
