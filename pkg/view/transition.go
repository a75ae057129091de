package view

import (
	perrors "github.com/matzehuels/pipescope/pkg/errors"
	"github.com/matzehuels/pipescope/pkg/lineage"
)

// SwitchMode returns a fresh state for mode: everything visible, nothing
// selected. Unknown modes resolve to the store's default mode.
func SwitchMode(store *lineage.Store, mode string) State {
	g, resolved := store.Graph(mode)
	return State{Mode: resolved, Visible: all(g)}
}

// ShowAll makes every node and edge of g visible and clears the selection.
func ShowAll(g *lineage.Graph, s State) State {
	return State{Mode: s.Mode, Visible: all(g)}
}

// FocusLineage restricts visibility to id and its lineage in direction dir,
// plus the edges among them, and selects id. Reachability is computed on
// the full graph, not on the current visibility. An unknown id returns s
// unchanged together with a NODE_NOT_FOUND error.
func FocusLineage(g *lineage.Graph, s State, id string, dir lineage.Direction) (State, error) {
	if !g.Has(id) {
		return s, perrors.New(perrors.ErrCodeNodeNotFound, "node %q not found in %s view", id, s.Mode)
	}
	keep := g.Reachable(id, dir)
	keep[id] = struct{}{}

	out := s.Clone()
	out.Visible = induced(g, keep)
	out.Selected = id
	out.Filter = ""
	out.Focus = &Focus{Node: id, Direction: dir.String()}
	return out, nil
}

// FilterByType shows the nodes whose defaulted type equals typ and the
// edges among them. [FilterAll] shows everything. The selection is kept in
// both cases.
func FilterByType(g *lineage.Graph, s State, typ string) State {
	out := s.Clone()
	out.Focus = nil
	if typ == FilterAll || typ == "" {
		out.Visible = all(g)
		out.Filter = ""
		return out
	}

	keep := make(map[string]struct{})
	for _, n := range g.Nodes() {
		if n.TypeOrDefault() == typ {
			keep[n.ID] = struct{}{}
		}
	}
	out.Visible = induced(g, keep)
	out.Filter = typ
	return out
}

// Select selects id without changing visibility. An unknown id returns s
// unchanged together with a NODE_NOT_FOUND error.
func Select(g *lineage.Graph, s State, id string) (State, error) {
	if !g.Has(id) {
		return s, perrors.New(perrors.ErrCodeNodeNotFound, "node %q not found in %s view", id, s.Mode)
	}
	out := s.Clone()
	out.Selected = id
	return out, nil
}

// ClearSelection drops the selection and keeps visibility.
func ClearSelection(s State) State {
	out := s.Clone()
	out.Selected = ""
	return out
}

// Highlight returns the lineage of the selected node in both directions,
// including the node itself, for emphasis by a renderer. It is empty when
// nothing is selected.
func Highlight(g *lineage.Graph, s State) []string {
	if !s.HasSelection() {
		return nil
	}
	return g.Lineage(s.Selected, lineage.Both)
}
