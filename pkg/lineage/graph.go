package lineage

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidNodeID is returned by [Graph.AddNode] when the node ID is
	// empty. All nodes must have non-empty identifiers.
	ErrInvalidNodeID = errors.New("node ID must not be empty")

	// ErrDuplicateNodeID is returned by [Graph.AddNode] when a node with the
	// same ID already exists in the graph.
	ErrDuplicateNodeID = errors.New("duplicate node ID")

	// ErrUnknownSourceNode is returned by [Graph.AddEdge] when the source
	// node does not exist.
	ErrUnknownSourceNode = errors.New("unknown source node")

	// ErrUnknownTargetNode is returned by [Graph.AddEdge] when the target
	// node does not exist.
	ErrUnknownTargetNode = errors.New("unknown target node")

	// ErrNestedContainer is returned by [Graph.AddNode] when a container
	// node claims membership in another container. Containment is flat.
	ErrNestedContainer = errors.New("containers cannot be nested")
)

const (
	// TypeContainer is the node type that marks a pipeline container.
	TypeContainer = "dag"

	// TypeDefault is the logical type of a node whose type is absent.
	TypeDefault = "default"

	// ContainerPrefix is the id prefix of container nodes produced by the
	// definition builder. Payloads that predate tagged edge kinds mark
	// containment edges only through this prefix on the source id.
	ContainerPrefix = "dag:"
)

// Node is a vertex of a view-mode graph.
//
// ID is unique within a graph and stable across modes. Type drives coloring
// and filtering; DAG names the owning container (by the container's label)
// for members of a pipeline. Operator, SourceFile and Params are descriptive
// metadata that the lineage core never interprets.
type Node struct {
	ID         string         `json:"id" bson:"id"`
	Label      string         `json:"label,omitempty" bson:"label,omitempty"`
	Type       string         `json:"type,omitempty" bson:"type,omitempty"`
	DAG        string         `json:"dag,omitempty" bson:"dag,omitempty"`
	Operator   string         `json:"operator,omitempty" bson:"operator,omitempty"`
	SourceFile string         `json:"source_file,omitempty" bson:"source_file,omitempty"`
	Params     map[string]any `json:"params,omitempty" bson:"params,omitempty"`
}

// DisplayLabel returns the label if set, otherwise the ID.
func (n Node) DisplayLabel() string {
	if n.Label != "" {
		return n.Label
	}
	return n.ID
}

// TypeOrDefault returns the node's type, or [TypeDefault] when it has none.
func (n Node) TypeOrDefault() string {
	if n.Type == "" {
		return TypeDefault
	}
	return n.Type
}

// IsContainer reports whether the node is a pipeline container.
func (n Node) IsContainer() bool { return n.Type == TypeContainer }

// EdgeKind tags the semantic role of an edge.
type EdgeKind int

const (
	// Dependency is a real data or execution dependency. Only dependency
	// edges take part in reachability and layout.
	Dependency EdgeKind = iota
	// Containment links a container to one of its members. It is conveyed
	// by visual nesting and never routed or traversed.
	Containment
)

// String returns the wire name of the kind.
func (k EdgeKind) String() string {
	switch k {
	case Dependency:
		return "dependency"
	case Containment:
		return "containment"
	default:
		return fmt.Sprintf("EdgeKind(%d)", int(k))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k EdgeKind) MarshalText() ([]byte, error) {
	if k != Dependency && k != Containment {
		return nil, fmt.Errorf("invalid edge kind %d", int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *EdgeKind) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "", "dependency":
		*k = Dependency
	case "containment":
		*k = Containment
	default:
		return fmt.Errorf("unknown edge kind %q", text)
	}
	return nil
}

// Edge is a directed edge between two nodes. Edges are addressed by their
// index in [Graph.Edges]; a graph may hold several edges between the same
// pair of nodes with different kinds.
type Edge struct {
	Source string   `json:"source" bson:"source"`
	Target string   `json:"target" bson:"target"`
	Kind   EdgeKind `json:"kind,omitempty" bson:"kind,omitempty"`
	Label  string   `json:"label,omitempty" bson:"label,omitempty"`
}

// IsContainment reports whether the edge expresses container membership.
func (e Edge) IsContainment() bool { return e.Kind == Containment }

// Graph is the node and edge set of one view mode.
//
// Node and edge order is significant: it is the deterministic default order
// used for stacking, search results and reachability output. A Graph is
// built once with [Graph.AddNode] and [Graph.AddEdge] and treated as
// immutable afterwards. It is safe for concurrent reads.
type Graph struct {
	nodes    []Node
	index    map[string]int
	edges    []Edge
	outgoing map[string][]int // node id -> dependency edge indices
	incoming map[string][]int // node id -> dependency edge indices
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		index:    make(map[string]int),
		outgoing: make(map[string][]int),
		incoming: make(map[string][]int),
	}
}

// AddNode appends a node. Returns ErrInvalidNodeID for an empty ID,
// ErrDuplicateNodeID when the ID is taken, and ErrNestedContainer when a
// container declares an owning container.
func (g *Graph) AddNode(n Node) error {
	if n.ID == "" {
		return ErrInvalidNodeID
	}
	if _, exists := g.index[n.ID]; exists {
		return ErrDuplicateNodeID
	}
	if n.IsContainer() && n.DAG != "" {
		return ErrNestedContainer
	}
	g.index[n.ID] = len(g.nodes)
	g.nodes = append(g.nodes, n)
	return nil
}

// AddEdge appends an edge between two existing nodes. Returns
// ErrUnknownSourceNode or ErrUnknownTargetNode if an endpoint is missing.
func (g *Graph) AddEdge(e Edge) error {
	if _, ok := g.index[e.Source]; !ok {
		return ErrUnknownSourceNode
	}
	if _, ok := g.index[e.Target]; !ok {
		return ErrUnknownTargetNode
	}
	i := len(g.edges)
	g.edges = append(g.edges, e)
	if e.Kind == Dependency {
		g.outgoing[e.Source] = append(g.outgoing[e.Source], i)
		g.incoming[e.Target] = append(g.incoming[e.Target], i)
	}
	return nil
}

// Node returns the node with the given ID.
func (g *Graph) Node(id string) (Node, bool) {
	i, ok := g.index[id]
	if !ok {
		return Node{}, false
	}
	return g.nodes[i], true
}

// Has reports whether a node with the given ID exists.
func (g *Graph) Has(id string) bool {
	_, ok := g.index[id]
	return ok
}

// Index returns the position of a node in graph order, or -1.
func (g *Graph) Index(id string) int {
	if i, ok := g.index[id]; ok {
		return i
	}
	return -1
}

// Nodes returns the nodes in graph order. The slice is a copy; Params maps
// are shared and must not be modified.
func (g *Graph) Nodes() []Node {
	out := make([]Node, len(g.nodes))
	copy(out, g.nodes)
	return out
}

// Edges returns the edges in graph order. The slice is a copy.
func (g *Graph) Edges() []Edge {
	out := make([]Edge, len(g.edges))
	copy(out, g.edges)
	return out
}

// Edge returns the edge at index i.
func (g *Graph) Edge(i int) (Edge, bool) {
	if i < 0 || i >= len(g.edges) {
		return Edge{}, false
	}
	return g.edges[i], true
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of edges of every kind.
func (g *Graph) EdgeCount() int { return len(g.edges) }

// IsEmpty reports whether the graph has no nodes. An empty graph is a valid
// placeholder for a view mode that has no data yet.
func (g *Graph) IsEmpty() bool { return len(g.nodes) == 0 }

// Containers returns the container nodes in graph order.
func (g *Graph) Containers() []Node {
	var out []Node
	for _, n := range g.nodes {
		if n.IsContainer() {
			out = append(out, n)
		}
	}
	return out
}

// Types returns the distinct defaulted node types in first-seen order.
// It feeds legends and type filters.
func (g *Graph) Types() []string {
	seen := make(map[string]bool)
	var out []string
	for _, n := range g.nodes {
		t := n.TypeOrDefault()
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}

// Degree returns the number of incoming and outgoing dependency edges of a
// node. Unknown IDs report zero.
func (g *Graph) Degree(id string) (in, out int) {
	return len(g.incoming[id]), len(g.outgoing[id])
}

// Validate checks that every edge endpoint references an existing node and
// that every member names an existing container. Graphs built through
// AddEdge satisfy the endpoint invariant by construction.
func (g *Graph) Validate() error {
	for i, e := range g.edges {
		if !g.Has(e.Source) {
			return fmt.Errorf("edge %d: %w: %s", i, ErrUnknownSourceNode, e.Source)
		}
		if !g.Has(e.Target) {
			return fmt.Errorf("edge %d: %w: %s", i, ErrUnknownTargetNode, e.Target)
		}
	}
	labels := make(map[string]bool)
	for _, c := range g.Containers() {
		labels[c.DisplayLabel()] = true
	}
	for _, n := range g.nodes {
		if n.DAG != "" && !labels[n.DAG] {
			return fmt.Errorf("node %s: unknown container %q", n.ID, n.DAG)
		}
	}
	return nil
}
