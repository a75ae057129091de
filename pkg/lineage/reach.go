package lineage

import (
	"fmt"
	"strings"

	perrors "github.com/matzehuels/pipescope/pkg/errors"
)

// Direction selects which side of a node's lineage to follow.
type Direction int

const (
	// Upstream follows dependency edges backward (ancestors).
	Upstream Direction = iota
	// Downstream follows dependency edges forward (descendants).
	Downstream
	// Both is the union of upstream and downstream.
	Both
)

// String returns the wire name of the direction.
func (d Direction) String() string {
	switch d {
	case Upstream:
		return "upstream"
	case Downstream:
		return "downstream"
	case Both:
		return "both"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

// ParseDirection parses "upstream", "downstream" or "both". The short forms
// "up", "down", "u", "d" and "b" are accepted too.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "upstream", "up", "u":
		return Upstream, nil
	case "downstream", "down", "d":
		return Downstream, nil
	case "both", "b", "":
		return Both, nil
	default:
		return Both, perrors.New(perrors.ErrCodeInvalidDirection,
			"invalid direction %q (want upstream, downstream or both)", s)
	}
}

// Upstream returns every ancestor of id under dependency edges, in graph
// order. The start node is never part of the result, even when the input
// contains a cycle through it. Unknown IDs yield an empty result.
func (g *Graph) Upstream(id string) []string {
	return g.ordered(g.reach(id, Upstream))
}

// Downstream returns every descendant of id under dependency edges, in
// graph order. See [Graph.Upstream] for the guarantees.
func (g *Graph) Downstream(id string) []string {
	return g.ordered(g.reach(id, Downstream))
}

// Reachable returns the set of node IDs reachable from id in the given
// direction, excluding id itself. For [Both] it is the union of the two
// one-directional sets, not a traversal that changes direction midway.
func (g *Graph) Reachable(id string, dir Direction) map[string]struct{} {
	switch dir {
	case Upstream, Downstream:
		return g.reach(id, dir)
	default:
		up := g.reach(id, Upstream)
		for n := range g.reach(id, Downstream) {
			up[n] = struct{}{}
		}
		return up
	}
}

// Lineage returns {id} ∪ Reachable(id, dir) in graph order. Unknown IDs
// yield an empty result.
func (g *Graph) Lineage(id string, dir Direction) []string {
	if !g.Has(id) {
		return nil
	}
	set := g.Reachable(id, dir)
	set[id] = struct{}{}
	return g.ordered(set)
}

// reach walks dependency edges from start with an explicit frontier and a
// visited set, so each node and edge is processed at most once: O(N+E).
func (g *Graph) reach(start string, dir Direction) map[string]struct{} {
	out := make(map[string]struct{})
	if !g.Has(start) {
		return out
	}

	visited := map[string]bool{start: true}
	frontier := []string{start}
	for len(frontier) > 0 {
		id := frontier[len(frontier)-1]
		frontier = frontier[:len(frontier)-1]

		for _, next := range g.neighbors(id, dir) {
			if visited[next] {
				continue
			}
			visited[next] = true
			out[next] = struct{}{}
			frontier = append(frontier, next)
		}
	}
	return out
}

func (g *Graph) neighbors(id string, dir Direction) []string {
	var idx []int
	if dir == Upstream {
		idx = g.incoming[id]
	} else {
		idx = g.outgoing[id]
	}
	out := make([]string, len(idx))
	for i, ei := range idx {
		if dir == Upstream {
			out[i] = g.edges[ei].Source
		} else {
			out[i] = g.edges[ei].Target
		}
	}
	return out
}

// ordered returns the members of set in graph order.
func (g *Graph) ordered(set map[string]struct{}) []string {
	if len(set) == 0 {
		return []string{}
	}
	out := make([]string, 0, len(set))
	for _, n := range g.nodes {
		if _, ok := set[n.ID]; ok {
			out = append(out, n.ID)
		}
	}
	return out
}
