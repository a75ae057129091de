package lineage

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"

	perrors "github.com/matzehuels/pipescope/pkg/errors"
)

// View modes known to the lineage view.
const (
	// ModeDAG is the default pipeline-centric mode with containers.
	ModeDAG = "dag"
	// ModeTable is the table-centric data-layer mode without containers.
	ModeTable = "table"
	// ModeMetric is reserved; it is shipped empty until metrics exist.
	ModeMetric = "metric"

	// DefaultMode is the mode every unknown or absent mode falls back to.
	DefaultMode = ModeDAG
)

// knownModes fixes the listing order of the built-in modes.
var knownModes = []string{ModeDAG, ModeTable, ModeMetric}

// =============================================================================
// Wire Format
// =============================================================================

// wireGraph is the JSON shape of one view-mode graph.
type wireGraph struct {
	Nodes []Node     `json:"nodes"`
	Edges []wireEdge `json:"edges"`
}

// wireEdge is an edge as exchanged in payloads. Kind is a pointer so that a
// missing kind can be told apart from an explicit one.
type wireEdge struct {
	Source string    `json:"source"`
	Target string    `json:"target"`
	Kind   *EdgeKind `json:"kind,omitempty"`
	Label  string    `json:"label,omitempty"`
}

// MarshalJSON encodes the graph as {"nodes": [...], "edges": [...]}. Every
// edge carries its kind explicitly.
func (g *Graph) MarshalJSON() ([]byte, error) {
	w := wireGraph{Nodes: g.nodes, Edges: make([]wireEdge, len(g.edges))}
	if w.Nodes == nil {
		w.Nodes = []Node{}
	}
	for i, e := range g.edges {
		kind := e.Kind
		w.Edges[i] = wireEdge{Source: e.Source, Target: e.Target, Kind: &kind, Label: e.Label}
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes a graph and rebuilds its indices. Endpoint and
// uniqueness violations are decode errors. Edges without a kind whose
// source carries [ContainerPrefix] are tagged [Containment].
func (g *Graph) UnmarshalJSON(data []byte) error {
	var w wireGraph
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	built, err := build(w)
	if err != nil {
		return err
	}
	*g = *built
	return nil
}

func build(w wireGraph) (*Graph, error) {
	g := New()
	for i, n := range w.Nodes {
		if err := g.AddNode(n); err != nil {
			return nil, fmt.Errorf("node %d (%q): %w", i, n.ID, err)
		}
	}
	for i, we := range w.Edges {
		e := Edge{Source: we.Source, Target: we.Target, Label: we.Label}
		switch {
		case we.Kind != nil:
			e.Kind = *we.Kind
		case strings.HasPrefix(e.Source, ContainerPrefix):
			e.Kind = Containment
		}
		if err := g.AddEdge(e); err != nil {
			return nil, fmt.Errorf("edge %d (%s -> %s): %w", i, e.Source, e.Target, err)
		}
	}
	return g, nil
}

// =============================================================================
// Store
// =============================================================================

// Store holds the graph of every view mode. It is populated once and is
// immutable afterwards, so it is safe for concurrent use.
type Store struct {
	graphs map[string]*Graph
	modes  []string
}

// NewStore creates a store from mode graphs. The default mode must be
// present; nil graphs are replaced by empty ones.
func NewStore(graphs map[string]*Graph) (*Store, error) {
	if _, ok := graphs[DefaultMode]; !ok {
		return nil, perrors.New(perrors.ErrCodeInvalidPayload, "payload has no %q mode", DefaultMode)
	}
	s := &Store{graphs: make(map[string]*Graph, len(graphs))}
	for mode, g := range graphs {
		if err := perrors.ValidateModeName(mode); err != nil {
			return nil, perrors.Wrap(perrors.ErrCodeInvalidPayload, err, "payload mode %q", mode)
		}
		if g == nil {
			g = New()
		}
		s.graphs[mode] = g
	}
	s.modes = sortModes(s.graphs)
	return s, nil
}

// ParsePayload decodes a JSON payload mapping mode names to graphs. Any
// malformed mode rejects the whole payload.
func ParsePayload(data []byte) (*Store, error) {
	var raw map[string]*Graph
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, perrors.Wrap(perrors.ErrCodeInvalidPayload, err, "decode payload")
	}
	return NewStore(raw)
}

// ReadPayload decodes a JSON payload from r.
func ReadPayload(r io.Reader) (*Store, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, perrors.Wrap(perrors.ErrCodeInvalidPayload, err, "read payload")
	}
	return ParsePayload(data)
}

// MarshalJSON encodes the store back into the payload format.
func (s *Store) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.graphs)
}

// Resolve maps a requested mode to the mode actually served. Unknown or
// empty modes fall back to [DefaultMode].
func (s *Store) Resolve(mode string) string {
	if _, ok := s.graphs[mode]; ok {
		return mode
	}
	return DefaultMode
}

// Graph returns the graph for mode, falling back to the default mode. The
// resolved mode name is returned alongside.
func (s *Store) Graph(mode string) (*Graph, string) {
	resolved := s.Resolve(mode)
	return s.graphs[resolved], resolved
}

// Modes returns the mode names: built-in modes first in their fixed order,
// then any other modes sorted by name.
func (s *Store) Modes() []string {
	return slices.Clone(s.modes)
}

// Upstream returns the ancestors of id in the given mode's graph.
func (s *Store) Upstream(mode, id string) []string {
	g, _ := s.Graph(mode)
	return g.Upstream(id)
}

// Downstream returns the descendants of id in the given mode's graph.
func (s *Store) Downstream(mode, id string) []string {
	g, _ := s.Graph(mode)
	return g.Downstream(id)
}

func sortModes(graphs map[string]*Graph) []string {
	var out []string
	for _, m := range knownModes {
		if _, ok := graphs[m]; ok {
			out = append(out, m)
		}
	}
	var extra []string
	for m := range graphs {
		if !slices.Contains(knownModes, m) {
			extra = append(extra, m)
		}
	}
	slices.Sort(extra)
	return append(out, extra...)
}
