package layout

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/goccy/go-graphviz"
	"github.com/goccy/go-graphviz/cgraph"
)

// pointsPerInch converts layout units to the inch-based separations and
// sizes Graphviz expects. Output coordinates are in points, so no
// conversion is needed on the way back.
const pointsPerInch = 72.0

// GraphvizEngine is an [Engine] backed by the Graphviz dot algorithm, run
// in-process through WebAssembly.
type GraphvizEngine struct{}

// NewGraphvizEngine creates a Graphviz-backed engine.
func NewGraphvizEngine() *GraphvizEngine { return &GraphvizEngine{} }

// Layout implements [Engine].
func (e *GraphvizEngine) Layout(ctx context.Context, req Request) (*Response, error) {
	if len(req.Nodes) == 0 {
		return &Response{Nodes: map[string]Point{}}, nil
	}

	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()
	gv.SetLayout(graphviz.DOT)

	g, err := graphviz.ParseBytes([]byte(ToDOT(req)))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.XDOT, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}

	out, err := graphviz.ParseBytes(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}
	defer out.Close()

	pos, err := collect(out)
	if err != nil {
		return nil, err
	}
	return pos.response(req)
}

// ToDOT converts a layout request to Graphviz DOT. Nodes are fixed-size
// boxes named n<index> after their position in req.Nodes, so node ids never
// reach the DOT parser. Every
// edge carries an id of the form e<index> so routed splines can be matched
// back to the request. Edges with an unknown endpoint are left out.
func ToDOT(req Request) string {
	names := nodeNames(req)

	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	fmt.Fprintf(&buf, "  rankdir=%s;\n", strings.ToUpper(req.RankDir))
	fmt.Fprintf(&buf, "  ranksep=%s;\n", inches(req.RankSep))
	fmt.Fprintf(&buf, "  nodesep=%s;\n", inches(req.NodeSep))
	fmt.Fprintf(&buf, "  esep=%s;\n", inches(req.EdgeSep))
	buf.WriteString("  node [shape=box, fixedsize=true];\n")
	buf.WriteString("\n")

	for i, n := range req.Nodes {
		fmt.Fprintf(&buf, "  %s [label=%s, width=%s, height=%s];\n",
			nodeName(i), dotString(n.Label), inches(n.Width), inches(n.Height))
	}

	buf.WriteString("\n")
	for i, e := range req.Edges {
		src, okS := names[e.Source]
		dst, okT := names[e.Target]
		if !okS || !okT {
			continue
		}
		fmt.Fprintf(&buf, "  %s -> %s [id=\"e%d\"];\n", src, dst, i)
	}

	buf.WriteString("}\n")
	return buf.String()
}

// nodeName is the DOT name of the i-th request node.
func nodeName(i int) string { return "n" + strconv.Itoa(i) }

// nodeNames maps request node ids to their DOT names. A repeated id keeps
// its first name.
func nodeNames(req Request) map[string]string {
	out := make(map[string]string, len(req.Nodes))
	for i, n := range req.Nodes {
		if _, ok := out[n.ID]; !ok {
			out[n.ID] = nodeName(i)
		}
	}
	return out
}

// dotString quotes s as a DOT string. Backslashes are doubled so escape
// sequences such as \N or \l are not interpreted, and control characters
// become spaces.
func dotString(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch {
		case r == '"' || r == '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		case unicode.IsControl(r):
			b.WriteByte(' ')
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}

func inches(px float64) string {
	return strconv.FormatFloat(px/pointsPerInch, 'f', 4, 64)
}

// =============================================================================
// Output Decoding
// =============================================================================

// rawEdge is an edge as read back from Graphviz output. Source and Target
// are DOT names.
type rawEdge struct {
	ID     string
	Source string
	Target string
	Pos    string
}

// positions is the attribute data of a laid-out graph, keyed by DOT name.
type positions struct {
	BB    string
	Nodes map[string]string
	Edges []rawEdge
}

// collect reads pos attributes from a graph rendered in dot format.
func collect(g *cgraph.Graph) (*positions, error) {
	p := &positions{BB: g.GetStr("bb"), Nodes: make(map[string]string)}
	n, err := g.FirstNode()
	if err != nil {
		return nil, fmt.Errorf("read layout: %w", err)
	}
	for n != nil {
		name, err := n.Name()
		if err != nil {
			return nil, fmt.Errorf("read layout: %w", err)
		}
		p.Nodes[name] = n.GetStr("pos")

		e, err := g.FirstOut(n)
		if err != nil {
			return nil, fmt.Errorf("read layout: %w", err)
		}
		for e != nil {
			head, err := e.Head()
			if err != nil {
				return nil, fmt.Errorf("read layout: %w", err)
			}
			target, err := head.Name()
			if err != nil {
				return nil, fmt.Errorf("read layout: %w", err)
			}
			p.Edges = append(p.Edges, rawEdge{
				ID:     e.GetStr("id"),
				Source: name,
				Target: target,
				Pos:    e.GetStr("pos"),
			})
			if e, err = g.NextOut(e); err != nil {
				return nil, fmt.Errorf("read layout: %w", err)
			}
		}

		if n, err = g.NextNode(n); err != nil {
			return nil, fmt.Errorf("read layout: %w", err)
		}
	}
	return p, nil
}

// response converts Graphviz coordinates, whose y axis points up, into a
// Response with y growing downward and DOT names mapped back to request
// ids. Edges are matched by id, falling back to the first unmatched request
// edge with the same endpoints.
func (p *positions) response(req Request) (*Response, error) {
	top := 0.0
	if p.BB != "" {
		bb, err := parseFloats(p.BB, 4)
		if err != nil {
			return nil, fmt.Errorf("parse bounding box %q: %w", p.BB, err)
		}
		top = bb[3]
	}
	flip := func(x, y float64) Point { return Point{X: x, Y: top - y} }

	resp := &Response{
		Nodes: make(map[string]Point, len(req.Nodes)),
		Edges: make([][]Point, len(req.Edges)),
	}
	names := nodeNames(req)
	for _, n := range req.Nodes {
		raw, ok := p.Nodes[names[n.ID]]
		if !ok || raw == "" {
			continue
		}
		xy, err := parseFloats(raw, 2)
		if err != nil {
			return nil, fmt.Errorf("parse position of %q: %w", n.ID, err)
		}
		resp.Nodes[n.ID] = flip(xy[0], xy[1])
	}

	for _, e := range p.Edges {
		i := edgeIndex(e, req, names, resp.Edges)
		if i < 0 || e.Pos == "" {
			continue
		}
		pts, err := parseSpline(e.Pos)
		if err != nil {
			return nil, fmt.Errorf("parse edge %s -> %s: %w", e.Source, e.Target, err)
		}
		for j := range pts {
			pts[j] = flip(pts[j].X, pts[j].Y)
		}
		resp.Edges[i] = pts
	}
	return resp, nil
}

func edgeIndex(e rawEdge, req Request, names map[string]string, done [][]Point) int {
	if rest, ok := strings.CutPrefix(e.ID, "e"); ok {
		if i, err := strconv.Atoi(rest); err == nil && i >= 0 && i < len(req.Edges) {
			return i
		}
	}
	for i, r := range req.Edges {
		if names[r.Source] == e.Source && names[r.Target] == e.Target && done[i] == nil {
			return i
		}
	}
	return -1
}

// parseSpline parses a Graphviz edge pos attribute of the form
// "[e,x,y] [s,x,y] x,y x,y ...". The start point, when present, is
// prepended and the end point appended.
func parseSpline(s string) ([]Point, error) {
	var start, end *Point
	var pts []Point
	for _, tok := range strings.Fields(s) {
		switch {
		case strings.HasPrefix(tok, "s,"):
			xy, err := parseFloats(tok[2:], 2)
			if err != nil {
				return nil, err
			}
			start = &Point{X: xy[0], Y: xy[1]}
		case strings.HasPrefix(tok, "e,"):
			xy, err := parseFloats(tok[2:], 2)
			if err != nil {
				return nil, err
			}
			end = &Point{X: xy[0], Y: xy[1]}
		default:
			xy, err := parseFloats(tok, 2)
			if err != nil {
				return nil, err
			}
			pts = append(pts, Point{X: xy[0], Y: xy[1]})
		}
	}
	if start != nil {
		pts = append([]Point{*start}, pts...)
	}
	if end != nil {
		pts = append(pts, *end)
	}
	return pts, nil
}

func parseFloats(s string, n int) ([]float64, error) {
	parts := strings.Split(strings.TrimSpace(s), ",")
	if len(parts) < n {
		return nil, fmt.Errorf("want %d values, got %d", n, len(parts))
	}
	out := make([]float64, n)
	for i := range n {
		f, err := strconv.ParseFloat(strings.TrimSpace(parts[i]), 64)
		if err != nil {
			return nil, err
		}
		out[i] = f
	}
	return out, nil
}

var _ Engine = (*GraphvizEngine)(nil)
