// Package lineage holds the view-mode graphs of a pipeline lineage view and
// answers reachability queries over them.
//
// # Overview
//
// A lineage payload maps view-mode names ("dag", "table", "metric") to a
// [Graph]. In the pipeline mode, container nodes (type "dag") group the
// tasks of one pipeline, tasks depend on each other, and tables feed into
// and out of tasks. The table mode shows tables only and has no containers.
//
// Edges carry an explicit [EdgeKind]. [Dependency] edges are the lineage
// relation; [Containment] edges tie a container to its members and are
// ignored by reachability and layout.
//
// # Basic Usage
//
//	g := lineage.New()
//	g.AddNode(lineage.Node{ID: "a"})
//	g.AddNode(lineage.Node{ID: "b"})
//	g.AddEdge(lineage.Edge{Source: "a", Target: "b"})
//	g.Upstream("b") // ["a"]
//
// Payloads are decoded with [ParsePayload] into an immutable [Store]. Mode
// lookups fall back to [DefaultMode], and a malformed payload is rejected
// as a whole.
//
// # Reachability
//
// [Graph.Upstream] and [Graph.Downstream] walk the graph iteratively with an
// explicit frontier and visited set. They run in O(N+E), never include the
// start node, and terminate on cyclic input. Results are in graph order.
package lineage
