// Package pkg provides the core libraries for Pipescope lineage exploration.
//
// # Overview
//
// Pipescope turns data pipeline definitions into lineage graphs and lets a
// user explore them: select a task to highlight everything it touches,
// focus on its upstream or downstream, filter by node type, and lay the
// visible part out as per-pipeline clusters stacked in uniform containers.
//
// # Architecture
//
// The typical data flow through Pipescope:
//
//	Pipeline definitions (YAML/TOML)
//	         ↓
//	    [source] package (parse definitions, build a payload)
//	         ↓
//	    [lineage] package (view-mode graphs + reachability)
//	         ↓
//	    [view] package (interactive state transitions)
//	         ↓
//	    [layout] package (cluster layout composition)
//	         ↓
//	    JSON layout, terminal explorer, HTTP API
//
// # Quick Start
//
// Build a payload and compose the layout of a task's upstream:
//
//	import (
//	    "context"
//	    "github.com/matzehuels/pipescope/pkg/explorer"
//	    "github.com/matzehuels/pipescope/pkg/source"
//	)
//
//	// 1. Build the payload
//	defs, _ := source.LoadDir(ctx, "dags/")
//	store, issues, _ := source.BuildPayload(defs)
//
//	// 2. Create a runner
//	runner, _ := explorer.NewRunner(store, nil, nil, nil, nil)
//
//	// 3. Focus on a task
//	state, _ := runner.Apply(runner.Start("dag"), explorer.Action{
//	    Kind:      explorer.ActionFocus,
//	    Node:      "sales:fct_orders",
//	    Direction: "upstream",
//	})
//
//	// 4. Compose the layout
//	res, _ := runner.Layout(ctx, state)
//
// # Main Packages
//
// ## Core Domain Logic
//
// [lineage] - View-mode graphs (dag, table, metric) with flat pipeline
// containment, iterative cycle-safe reachability and the payload wire format.
//
// [view] - Immutable view state and its transitions: switch mode, show all,
// focus lineage, filter by type, select.
//
// [layout] - Cluster layout composer. Each pipeline is laid out on its own
// by a hierarchical engine (Graphviz by default) and the clusters are
// stacked in containers of uniform width.
//
// [search] - Case-insensitive node search and a debouncer for interactive
// queries.
//
// ## Orchestration
//
// [explorer] - Runner used by the CLI and the HTTP server. Applies actions,
// composes layouts through the cache and reports to observability hooks.
//
// [source] - Pipeline definition parsing, payload building, payload files
// and MongoDB publishing.
//
// ## Infrastructure
//
// [cache] - Layout cache with file, Redis and null backends.
//
// [session] - View sessions for the HTTP server (memory, Redis, file) and
// resumable explore state for the CLI.
//
// [server] - HTTP API on chi with Prometheus metrics.
//
// [observability] - Hook interfaces and a Prometheus implementation.
//
// [config] - Layered configuration (defaults, YAML file, environment, flags).
//
// [errors] - Coded errors with user messages and HTTP status mapping.
//
// # Testing
//
// Run tests:
//
//	go test ./pkg/...                    # All tests
//	go test ./pkg/lineage/...            # Specific package
//	go test -run Example                 # Examples only
//
// [lineage]: https://pkg.go.dev/github.com/matzehuels/pipescope/pkg/lineage
// [view]: https://pkg.go.dev/github.com/matzehuels/pipescope/pkg/view
// [layout]: https://pkg.go.dev/github.com/matzehuels/pipescope/pkg/layout
// [search]: https://pkg.go.dev/github.com/matzehuels/pipescope/pkg/search
// [explorer]: https://pkg.go.dev/github.com/matzehuels/pipescope/pkg/explorer
// [source]: https://pkg.go.dev/github.com/matzehuels/pipescope/pkg/source
// [cache]: https://pkg.go.dev/github.com/matzehuels/pipescope/pkg/cache
// [session]: https://pkg.go.dev/github.com/matzehuels/pipescope/pkg/session
// [server]: https://pkg.go.dev/github.com/matzehuels/pipescope/pkg/server
// [observability]: https://pkg.go.dev/github.com/matzehuels/pipescope/pkg/observability
// [config]: https://pkg.go.dev/github.com/matzehuels/pipescope/pkg/config
// [errors]: https://pkg.go.dev/github.com/matzehuels/pipescope/pkg/errors
package pkg
