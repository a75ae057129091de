package layout

import "context"

// Engine computes a hierarchical layout for one set of nodes and edges.
//
// Implementations return node centers and, for each request edge, a routed
// polyline. Nodes or edges missing from a response are dropped by the
// [Composer]. Coordinates may use any origin; the composer normalizes them.
type Engine interface {
	Layout(ctx context.Context, req Request) (*Response, error)
}

// NodeSpec is a node to place.
type NodeSpec struct {
	ID     string
	Label  string
	Width  float64
	Height float64
}

// EdgeSpec is a directed edge to route.
type EdgeSpec struct {
	Source string
	Target string
}

// Request is one layout job.
type Request struct {
	Nodes   []NodeSpec
	Edges   []EdgeSpec
	RankDir string
	RankSep float64
	NodeSep float64
	EdgeSep float64
}

// Response holds the engine's result. Edges is aligned with Request.Edges;
// an entry without points means the edge could not be routed.
type Response struct {
	Nodes map[string]Point
	Edges [][]Point
}

// EngineFunc adapts a function to the [Engine] interface.
type EngineFunc func(ctx context.Context, req Request) (*Response, error)

// Layout calls f.
func (f EngineFunc) Layout(ctx context.Context, req Request) (*Response, error) {
	return f(ctx, req)
}
