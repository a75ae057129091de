package layout

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/pipescope/pkg/lineage"
	"github.com/matzehuels/pipescope/pkg/view"
)

// Composer turns the visible part of a mode graph into one global layout.
//
// With no visible containers it runs a single flat layout. Otherwise each
// container's visible members are laid out independently by the Engine and
// the Stacker arranges the resulting clusters. Visible nodes that belong to
// no visible container are laid out together below the last container.
//
// Compose is a pure function of its inputs: identical graphs, visibility and
// options yield identical results. A Composer holds no state between calls
// and is safe for concurrent use if its Engine is.
type Composer struct {
	Engine  Engine
	Stacker Stacker
	Options Options
	Logger  *log.Logger
}

// NewComposer creates a composer with a [UniformStack] built from opts.
// Zero-valued options are defaulted and a nil logger uses log.Default().
func NewComposer(engine Engine, opts Options, logger *log.Logger) *Composer {
	opts.SetDefaults()
	if logger == nil {
		logger = log.Default()
	}
	return &Composer{
		Engine:  engine,
		Stacker: NewUniformStack(opts),
		Options: opts,
		Logger:  logger,
	}
}

// errNoResponse reports an engine that returned neither a layout nor an
// error.
var errNoResponse = errors.New("layout engine returned no result")

// indexedEdge is a visible dependency edge with its graph index.
type indexedEdge struct {
	index int
	edge  lineage.Edge
}

// subLayout is one engine result in local coordinates.
type subLayout struct {
	nodes   map[string]Point
	edges   map[int][]Point
	content Bounds
}

// Compose lays out the visible nodes and dependency edges of g. Containment
// edges are never routed. An empty visible set yields an empty result
// without calling the engine. Engine failures drop the affected nodes and
// are logged; only context cancellation is returned as an error.
func (c *Composer) Compose(ctx context.Context, g *lineage.Graph, vis view.Visibility) (*Result, error) {
	if err := c.Options.Validate(); err != nil {
		return nil, fmt.Errorf("layout options: %w", err)
	}
	res := &Result{Nodes: []NodePosition{}, Edges: []EdgePath{}}
	if vis.IsEmpty() || g.IsEmpty() {
		return res, nil
	}

	visible := vis.NodeSet()
	edges := visibleDependencies(g, vis)

	var containers []lineage.Node
	labels := make(map[string]bool)
	for _, n := range g.Nodes() {
		if _, ok := visible[n.ID]; ok && n.IsContainer() {
			containers = append(containers, n)
			labels[n.DisplayLabel()] = true
		}
	}

	groups := make(map[string][]lineage.Node)
	var loose []lineage.Node
	for _, n := range g.Nodes() {
		if _, ok := visible[n.ID]; !ok || n.IsContainer() {
			continue
		}
		if n.DAG != "" && labels[n.DAG] {
			groups[n.DAG] = append(groups[n.DAG], n)
		} else {
			loose = append(loose, n)
		}
	}

	placed := make(map[string]NodePosition)
	paths := make(map[int][]Point)

	if len(containers) == 0 {
		if sub := c.layoutGroup(ctx, "flat", loose, edges); sub != nil {
			c.place(sub, Point{X: -sub.content.MinX, Y: -sub.content.MinY}, placed, paths)
		}
	} else {
		var clusters []Cluster
		var subs []*subLayout
		for _, ct := range containers {
			members := groups[ct.DisplayLabel()]
			if len(members) == 0 {
				continue
			}
			sub := c.layoutGroup(ctx, ct.ID, members, edges)
			if sub == nil {
				continue
			}
			clusters = append(clusters, Cluster{ID: ct.ID, Label: ct.DisplayLabel(), Content: sub.content})
			subs = append(subs, sub)
		}

		bottom := math.Inf(-1)
		for i, p := range c.Stacker.Stack(clusters) {
			res.Containers = append(res.Containers, p.Frame)
			center := p.Frame.Center()
			placed[p.Frame.ID] = NodePosition{
				ID:        p.Frame.ID,
				X:         center.X,
				Y:         center.Y,
				Width:     p.Frame.Width,
				Height:    p.Frame.Height,
				Container: true,
			}
			c.place(subs[i], p.Offset, placed, paths)
			bottom = max(bottom, p.Frame.Y+p.Frame.Height)
		}

		if len(loose) > 0 {
			if sub := c.layoutGroup(ctx, "unclustered", loose, edges); sub != nil {
				top := 0.0
				if !math.IsInf(bottom, -1) {
					top = bottom + c.Options.Gap
				}
				c.place(sub, Point{X: -sub.content.MinX, Y: top - sub.content.MinY}, placed, paths)
			}
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for _, n := range g.Nodes() {
		if p, ok := placed[n.ID]; ok {
			res.Nodes = append(res.Nodes, p)
			continue
		}
		if _, ok := visible[n.ID]; ok && !n.IsContainer() {
			res.Omitted = append(res.Omitted, n.ID)
		}
	}
	for _, e := range edges {
		if pts, ok := paths[e.index]; ok {
			res.Edges = append(res.Edges, EdgePath{
				Index:  e.index,
				Source: e.edge.Source,
				Target: e.edge.Target,
				Points: pts,
			})
		}
	}
	res.Width, res.Height = extent(res)

	if len(res.Omitted) > 0 {
		c.Logger.Warn("nodes omitted from layout", "count", len(res.Omitted), "first", res.Omitted[0])
	}
	c.Logger.Debug("composed layout",
		"nodes", len(res.Nodes), "edges", len(res.Edges), "containers", len(res.Containers))
	return res, nil
}

// layoutGroup runs the engine on members and the visible dependency edges
// among them. It returns nil when the engine fails or places nothing.
func (c *Composer) layoutGroup(ctx context.Context, name string, members []lineage.Node, edges []indexedEdge) *subLayout {
	if len(members) == 0 {
		return nil
	}
	in := make(map[string]bool, len(members))
	req := Request{
		RankDir: c.Options.RankDir,
		RankSep: c.Options.RankSep,
		NodeSep: c.Options.NodeSep,
		EdgeSep: c.Options.EdgeSep,
	}
	for _, m := range members {
		in[m.ID] = true
		req.Nodes = append(req.Nodes, NodeSpec{
			ID:     m.ID,
			Label:  m.DisplayLabel(),
			Width:  c.Options.NodeWidth,
			Height: c.Options.NodeHeight,
		})
	}
	var routed []int
	for _, e := range edges {
		if in[e.edge.Source] && in[e.edge.Target] {
			req.Edges = append(req.Edges, EdgeSpec{Source: e.edge.Source, Target: e.edge.Target})
			routed = append(routed, e.index)
		}
	}

	resp, err := c.Engine.Layout(ctx, req)
	if err == nil && resp == nil {
		err = errNoResponse
	}
	if err != nil {
		c.Logger.Error("layout failed, omitting group", "group", name, "nodes", len(members), "err", err)
		return nil
	}

	sub := &subLayout{nodes: make(map[string]Point), edges: make(map[int][]Point)}
	hw, hh := c.Options.NodeWidth/2, c.Options.NodeHeight/2
	for _, m := range members {
		p, ok := resp.Nodes[m.ID]
		if !ok {
			c.Logger.Warn("layout engine returned no position", "group", name, "node", m.ID)
			continue
		}
		if len(sub.nodes) == 0 {
			sub.content = Bounds{MinX: p.X - hw, MinY: p.Y - hh, MaxX: p.X + hw, MaxY: p.Y + hh}
		} else {
			sub.content.MinX = min(sub.content.MinX, p.X-hw)
			sub.content.MinY = min(sub.content.MinY, p.Y-hh)
			sub.content.MaxX = max(sub.content.MaxX, p.X+hw)
			sub.content.MaxY = max(sub.content.MaxY, p.Y+hh)
		}
		sub.nodes[m.ID] = p
	}
	if len(sub.nodes) == 0 {
		c.Logger.Warn("layout engine placed no nodes, omitting group", "group", name)
		return nil
	}

	for i, gi := range routed {
		if i >= len(resp.Edges) || len(resp.Edges[i]) == 0 {
			continue
		}
		e := req.Edges[i]
		if _, ok := sub.nodes[e.Source]; !ok {
			continue
		}
		if _, ok := sub.nodes[e.Target]; !ok {
			continue
		}
		sub.edges[gi] = resp.Edges[i]
	}
	return sub
}

// place translates a sub-layout by off into the global maps.
func (c *Composer) place(sub *subLayout, off Point, placed map[string]NodePosition, paths map[int][]Point) {
	for id, p := range sub.nodes {
		q := p.Add(off)
		placed[id] = NodePosition{ID: id, X: q.X, Y: q.Y, Width: c.Options.NodeWidth, Height: c.Options.NodeHeight}
	}
	for gi, pts := range sub.edges {
		moved := make([]Point, len(pts))
		for i, p := range pts {
			moved[i] = p.Add(off)
		}
		paths[gi] = moved
	}
}

// visibleDependencies returns the visible dependency edges whose endpoints
// are both visible, in graph order.
func visibleDependencies(g *lineage.Graph, vis view.Visibility) []indexedEdge {
	nodes := vis.NodeSet()
	var out []indexedEdge
	for _, i := range vis.Edges {
		e, ok := g.Edge(i)
		if !ok || e.IsContainment() {
			continue
		}
		_, src := nodes[e.Source]
		_, dst := nodes[e.Target]
		if src && dst {
			out = append(out, indexedEdge{index: i, edge: e})
		}
	}
	return out
}

// extent returns the far corner of everything placed in r.
func extent(r *Result) (w, h float64) {
	for _, n := range r.Nodes {
		w = max(w, n.X+n.Width/2)
		h = max(h, n.Y+n.Height/2)
	}
	for _, f := range r.Containers {
		w = max(w, f.X+f.Width)
		h = max(h, f.Y+f.Height)
	}
	return w, h
}
