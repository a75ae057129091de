package explorer

import (
	perrors "github.com/matzehuels/pipescope/pkg/errors"
	"github.com/matzehuels/pipescope/pkg/lineage"
)

// Detail describes one node for an info panel.
type Detail struct {
	Mode       string       `json:"mode"`
	Node       lineage.Node `json:"node"`
	Type       string       `json:"type"`
	In         int          `json:"in"`
	Out        int          `json:"out"`
	Upstream   []string     `json:"upstream"`
	Downstream []string     `json:"downstream"`
}

// ModeInfo summarizes one view mode.
type ModeInfo struct {
	Name  string   `json:"name"`
	Nodes int      `json:"nodes"`
	Edges int      `json:"edges"`
	Types []string `json:"types"`
}

// Detail returns the node id of mode with its degree and full lineage.
func (r *Runner) Detail(mode, id string) (*Detail, error) {
	if err := perrors.ValidateNodeID(id); err != nil {
		return nil, err
	}
	g, resolved := r.Store.Graph(mode)
	n, ok := g.Node(id)
	if !ok {
		return nil, perrors.New(perrors.ErrCodeNodeNotFound, "node %q not found in %s view", id, resolved)
	}
	in, out := g.Degree(id)
	return &Detail{
		Mode:       resolved,
		Node:       n,
		Type:       n.TypeOrDefault(),
		In:         in,
		Out:        out,
		Upstream:   nonNil(g.Upstream(id)),
		Downstream: nonNil(g.Downstream(id)),
	}, nil
}

// Modes lists every view mode of the payload.
func (r *Runner) Modes() []ModeInfo {
	var out []ModeInfo
	for _, m := range r.Store.Modes() {
		g, _ := r.Store.Graph(m)
		out = append(out, ModeInfo{
			Name:  m,
			Nodes: g.NodeCount(),
			Edges: g.EdgeCount(),
			Types: nonNil(g.Types()),
		})
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
