// Package view holds the interactive state of a lineage view and the pure
// transitions between states.
//
// A [State] records the active view mode, the visible node and edge subset,
// and the selected node. Every transition takes the active graph and a
// state and returns a new state; inputs are never modified, so transitions
// are idempotent and trivially testable. Visibility is always rebuilt from
// scratch, never patched.
package view

import (
	"slices"

	"github.com/matzehuels/pipescope/pkg/lineage"
)

// FilterAll is the type token that disables type filtering.
const FilterAll = "all"

// Visibility is the visible subset of one graph: node IDs in graph order
// and edge indices in ascending order.
type Visibility struct {
	Nodes []string `json:"nodes"`
	Edges []int    `json:"edges"`
}

// NodeSet returns the visible node IDs as a set.
func (v Visibility) NodeSet() map[string]struct{} {
	out := make(map[string]struct{}, len(v.Nodes))
	for _, id := range v.Nodes {
		out[id] = struct{}{}
	}
	return out
}

// EdgeSet returns the visible edge indices as a set.
func (v Visibility) EdgeSet() map[int]struct{} {
	out := make(map[int]struct{}, len(v.Edges))
	for _, i := range v.Edges {
		out[i] = struct{}{}
	}
	return out
}

// HasNode reports whether id is visible.
func (v Visibility) HasNode(id string) bool { return slices.Contains(v.Nodes, id) }

// HasEdge reports whether the edge at index i is visible.
func (v Visibility) HasEdge(i int) bool {
	_, ok := slices.BinarySearch(v.Edges, i)
	return ok
}

// IsEmpty reports whether nothing is visible.
func (v Visibility) IsEmpty() bool { return len(v.Nodes) == 0 }

// Equal reports whether two visibility sets are identical.
func (v Visibility) Equal(o Visibility) bool {
	return slices.Equal(v.Nodes, o.Nodes) && slices.Equal(v.Edges, o.Edges)
}

func (v Visibility) clone() Visibility {
	return Visibility{Nodes: slices.Clone(v.Nodes), Edges: slices.Clone(v.Edges)}
}

// Focus describes a lineage focus that produced the current visibility.
type Focus struct {
	Node      string `json:"node"`
	Direction string `json:"direction"`
}

// State is the complete interactive state of one view.
type State struct {
	// Mode is the resolved view mode the state belongs to.
	Mode string `json:"mode"`
	// Visible is the rendered subset of the mode's graph.
	Visible Visibility `json:"visible"`
	// Selected is the selected node ID, empty when nothing is selected.
	Selected string `json:"selected,omitempty"`
	// Filter is the active type filter, empty when none.
	Filter string `json:"filter,omitempty"`
	// Focus is set while a lineage focus defines the visibility.
	Focus *Focus `json:"focus,omitempty"`
}

// HasSelection reports whether a node is selected.
func (s State) HasSelection() bool { return s.Selected != "" }

// Clone returns a deep copy of s.
func (s State) Clone() State {
	out := s
	out.Visible = s.Visible.clone()
	if s.Focus != nil {
		f := *s.Focus
		out.Focus = &f
	}
	return out
}

// all returns a visibility containing every node and every edge of g.
func all(g *lineage.Graph) Visibility {
	v := Visibility{
		Nodes: make([]string, 0, g.NodeCount()),
		Edges: make([]int, g.EdgeCount()),
	}
	for _, n := range g.Nodes() {
		v.Nodes = append(v.Nodes, n.ID)
	}
	for i := range v.Edges {
		v.Edges[i] = i
	}
	return v
}

// induced returns the visibility of the nodes in keep plus every edge whose
// endpoints are both kept.
func induced(g *lineage.Graph, keep map[string]struct{}) Visibility {
	v := Visibility{Nodes: []string{}, Edges: []int{}}
	for _, n := range g.Nodes() {
		if _, ok := keep[n.ID]; ok {
			v.Nodes = append(v.Nodes, n.ID)
		}
	}
	for i, e := range g.Edges() {
		_, src := keep[e.Source]
		_, dst := keep[e.Target]
		if src && dst {
			v.Edges = append(v.Edges, i)
		}
	}
	return v
}
