package layout

import (
	"context"
	"errors"
	"io"
	"reflect"
	"slices"
	"sync"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/pipescope/pkg/lineage"
	"github.com/matzehuels/pipescope/pkg/view"
)

// rankEngine places nodes left to right by longest-path depth and stacks
// nodes of equal depth in request order. Edges run center to center.
type rankEngine struct {
	mu       sync.Mutex
	requests []Request
	fail     func(Request) bool
}

func (e *rankEngine) Layout(_ context.Context, req Request) (*Response, error) {
	e.mu.Lock()
	e.requests = append(e.requests, req)
	e.mu.Unlock()
	if e.fail != nil && e.fail(req) {
		return nil, errors.New("engine down")
	}

	depth := make(map[string]int, len(req.Nodes))
	for range req.Nodes {
		for _, ed := range req.Edges {
			depth[ed.Target] = max(depth[ed.Target], depth[ed.Source]+1)
		}
	}
	slot := make(map[int]int)
	resp := &Response{Nodes: make(map[string]Point), Edges: make([][]Point, len(req.Edges))}
	for _, n := range req.Nodes {
		d := depth[n.ID]
		resp.Nodes[n.ID] = Point{
			X: float64(d)*(n.Width+req.RankSep) + n.Width/2,
			Y: float64(slot[d])*(n.Height+req.NodeSep) + n.Height/2,
		}
		slot[d]++
	}
	for i, ed := range req.Edges {
		resp.Edges[i] = []Point{resp.Nodes[ed.Source], resp.Nodes[ed.Target]}
	}
	return resp, nil
}

// clusteredGraph has containers P1 (A -> B -> C) and P2 (D) plus a loose
// node T. Edges 0-3 are containment, 4-5 are dependencies.
func clusteredGraph(t *testing.T) *lineage.Graph {
	t.Helper()
	g := lineage.New()
	for _, n := range []lineage.Node{
		{ID: "dag:P1", Label: "P1", Type: lineage.TypeContainer},
		{ID: "A", DAG: "P1"},
		{ID: "B", DAG: "P1"},
		{ID: "C", DAG: "P1"},
		{ID: "dag:P2", Label: "P2", Type: lineage.TypeContainer},
		{ID: "D", DAG: "P2"},
		{ID: "T"},
	} {
		if err := g.AddNode(n); err != nil {
			t.Fatal(err)
		}
	}
	for _, e := range []lineage.Edge{
		{Source: "dag:P1", Target: "A", Kind: lineage.Containment},
		{Source: "dag:P1", Target: "B", Kind: lineage.Containment},
		{Source: "dag:P1", Target: "C", Kind: lineage.Containment},
		{Source: "dag:P2", Target: "D", Kind: lineage.Containment},
		{Source: "A", Target: "B"},
		{Source: "B", Target: "C"},
	} {
		if err := g.AddEdge(e); err != nil {
			t.Fatal(err)
		}
	}
	return g
}

func newTestComposer(e Engine) *Composer {
	return NewComposer(e, DefaultOptions(), log.New(io.Discard))
}

func everything(g *lineage.Graph) view.Visibility {
	return view.ShowAll(g, view.State{}).Visible
}

func TestComposeStacksContainersUniformly(t *testing.T) {
	g := clusteredGraph(t)
	res, err := newTestComposer(&rankEngine{}).Compose(context.Background(), g, everything(g))
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}

	want := []Frame{
		{ID: "dag:P1", Label: "P1", X: 0, Y: 0, Width: 760, Height: 110},
		{ID: "dag:P2", Label: "P2", X: 0, Y: 150, Width: 760, Height: 110},
	}
	if !reflect.DeepEqual(res.Containers, want) {
		t.Errorf("Containers = %+v, want %+v", res.Containers, want)
	}

	positions := map[string]Point{
		"dag:P1": {380, 55},
		"A":      {120, 65},
		"B":      {380, 65},
		"C":      {640, 65},
		"dag:P2": {380, 205},
		"D":      {120, 215},
		"T":      {90, 320},
	}
	for id, p := range positions {
		n, ok := res.Node(id)
		if !ok {
			t.Errorf("node %s missing", id)
			continue
		}
		if n.X != p.X || n.Y != p.Y {
			t.Errorf("node %s at (%g, %g), want (%g, %g)", id, n.X, n.Y, p.X, p.Y)
		}
	}

	if res.Width != 760 || res.Height != 340 {
		t.Errorf("size = %gx%g, want 760x340", res.Width, res.Height)
	}
	if len(res.Omitted) != 0 {
		t.Errorf("Omitted = %v, want none", res.Omitted)
	}
}

func TestComposeOrdering(t *testing.T) {
	g := clusteredGraph(t)
	res, err := newTestComposer(&rankEngine{}).Compose(context.Background(), g, everything(g))
	if err != nil {
		t.Fatal(err)
	}

	var ids []string
	for _, n := range res.Nodes {
		ids = append(ids, n.ID)
	}
	want := []string{"dag:P1", "A", "B", "C", "dag:P2", "D", "T"}
	if !slices.Equal(ids, want) {
		t.Errorf("node order = %v, want %v", ids, want)
	}

	if len(res.Edges) != 2 || res.Edges[0].Index != 4 || res.Edges[1].Index != 5 {
		t.Fatalf("Edges = %+v, want indices 4 and 5", res.Edges)
	}
	wantPts := []Point{{120, 65}, {380, 65}}
	if !reflect.DeepEqual(res.Edges[0].Points, wantPts) {
		t.Errorf("A->B points = %v, want %v", res.Edges[0].Points, wantPts)
	}
}

func TestComposeExcludesContainmentEdges(t *testing.T) {
	g := clusteredGraph(t)
	eng := &rankEngine{}
	if _, err := newTestComposer(eng).Compose(context.Background(), g, everything(g)); err != nil {
		t.Fatal(err)
	}

	if len(eng.requests) != 3 {
		t.Fatalf("engine calls = %d, want 3", len(eng.requests))
	}
	for _, req := range eng.requests {
		for _, n := range req.Nodes {
			if n.ID == "dag:P1" || n.ID == "dag:P2" {
				t.Errorf("container %s sent to engine", n.ID)
			}
		}
		for _, e := range req.Edges {
			if e.Source == "dag:P1" || e.Source == "dag:P2" {
				t.Errorf("containment edge %s -> %s sent to engine", e.Source, e.Target)
			}
		}
	}
}

func TestComposeEmpty(t *testing.T) {
	g := clusteredGraph(t)
	eng := &rankEngine{}
	c := newTestComposer(eng)

	res, err := c.Compose(context.Background(), g, view.Visibility{})
	if err != nil {
		t.Fatal(err)
	}
	if !res.IsEmpty() || len(res.Containers) != 0 || len(res.Edges) != 0 {
		t.Errorf("Compose(empty) = %+v, want empty result", res)
	}

	res, err = c.Compose(context.Background(), lineage.New(), view.Visibility{})
	if err != nil || !res.IsEmpty() {
		t.Errorf("Compose(empty graph) = %+v, %v", res, err)
	}
	if len(eng.requests) != 0 {
		t.Errorf("engine called %d times for empty input", len(eng.requests))
	}
}

func TestComposeFlat(t *testing.T) {
	g := lineage.New()
	for _, id := range []string{"A", "B", "C"} {
		if err := g.AddNode(lineage.Node{ID: id}); err != nil {
			t.Fatal(err)
		}
	}
	if err := g.AddEdge(lineage.Edge{Source: "A", Target: "B"}); err != nil {
		t.Fatal(err)
	}

	eng := &rankEngine{}
	res, err := newTestComposer(eng).Compose(context.Background(), g, everything(g))
	if err != nil {
		t.Fatal(err)
	}
	if len(eng.requests) != 1 {
		t.Errorf("engine calls = %d, want 1", len(eng.requests))
	}
	if len(res.Containers) != 0 {
		t.Errorf("Containers = %v, want none", res.Containers)
	}

	tests := map[string]Point{"A": {90, 20}, "B": {350, 20}, "C": {90, 100}}
	for id, want := range tests {
		n, _ := res.Node(id)
		if n.X != want.X || n.Y != want.Y {
			t.Errorf("%s at (%g, %g), want (%g, %g)", id, n.X, n.Y, want.X, want.Y)
		}
	}
}

func TestComposeSkipsContainersWithoutVisibleMembers(t *testing.T) {
	g := clusteredGraph(t)
	vis := view.Visibility{Nodes: []string{"dag:P1", "A", "B", "dag:P2"}, Edges: []int{0, 1, 4}}

	res, err := newTestComposer(&rankEngine{}).Compose(context.Background(), g, vis)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Containers) != 1 || res.Containers[0].ID != "dag:P1" {
		t.Errorf("Containers = %+v, want only dag:P1", res.Containers)
	}
	if _, ok := res.Node("dag:P2"); ok {
		t.Error("empty container dag:P2 was positioned")
	}
	if res.Containers[0].Width != 30+440+30 {
		t.Errorf("frame width = %g, want %d", res.Containers[0].Width, 30+440+30)
	}
}

func TestComposeEngineFailure(t *testing.T) {
	g := clusteredGraph(t)
	eng := &rankEngine{fail: func(req Request) bool {
		return slices.ContainsFunc(req.Nodes, func(n NodeSpec) bool { return n.ID == "D" })
	}}

	res, err := newTestComposer(eng).Compose(context.Background(), g, everything(g))
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if !slices.Equal(res.Omitted, []string{"D"}) {
		t.Errorf("Omitted = %v, want [D]", res.Omitted)
	}
	if len(res.Containers) != 1 || res.Containers[0].ID != "dag:P1" {
		t.Errorf("Containers = %+v, want only dag:P1", res.Containers)
	}
	if _, ok := res.Node("A"); !ok {
		t.Error("A missing after unrelated failure")
	}
	if n, _ := res.Node("T"); n.Y != 110+40+20 {
		t.Errorf("T.Y = %g, want %d", n.Y, 110+40+20)
	}
}

func TestComposeEngineNoResponse(t *testing.T) {
	g := clusteredGraph(t)
	inner := &rankEngine{}
	eng := EngineFunc(func(ctx context.Context, req Request) (*Response, error) {
		if slices.ContainsFunc(req.Nodes, func(n NodeSpec) bool { return n.ID == "D" }) {
			return nil, nil
		}
		return inner.Layout(ctx, req)
	})

	res, err := newTestComposer(eng).Compose(context.Background(), g, everything(g))
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if !slices.Equal(res.Omitted, []string{"D"}) {
		t.Errorf("Omitted = %v, want [D]", res.Omitted)
	}
	if _, ok := res.Container("dag:P2"); ok {
		t.Error("container dag:P2 placed without a layout")
	}
	if _, ok := res.Node("C"); !ok {
		t.Error("C missing after unrelated failure")
	}
}

func TestComposeDeterministic(t *testing.T) {
	g := clusteredGraph(t)
	c := newTestComposer(&rankEngine{})
	first, err := c.Compose(context.Background(), g, everything(g))
	if err != nil {
		t.Fatal(err)
	}
	for range 5 {
		again, err := c.Compose(context.Background(), g, everything(g))
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(first, again) {
			t.Fatal("Compose is not deterministic")
		}
	}
}

func TestComposeCanceled(t *testing.T) {
	g := clusteredGraph(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := newTestComposer(&rankEngine{}).Compose(ctx, g, everything(g)); !errors.Is(err, context.Canceled) {
		t.Errorf("Compose(canceled) error = %v, want context.Canceled", err)
	}
}

func TestComposeInvalidOptions(t *testing.T) {
	c := newTestComposer(&rankEngine{})
	c.Options.RankDir = "diagonal"
	g := clusteredGraph(t)
	if _, err := c.Compose(context.Background(), g, everything(g)); err == nil {
		t.Error("expected error for invalid rank direction")
	}
}

func TestUniformStack(t *testing.T) {
	s := UniformStack{Padding: Padding{Top: 10, Bottom: 5, Left: 3, Right: 7}, Gap: 20}
	got := s.Stack([]Cluster{
		{ID: "a", Content: Bounds{MinX: 0, MinY: 0, MaxX: 100, MaxY: 30}},
		{ID: "b", Content: Bounds{MinX: -50, MinY: 10, MaxX: 0, MaxY: 90}},
	})

	want := []Placement{
		{Frame: Frame{ID: "a", X: 0, Y: 0, Width: 110, Height: 95}, Offset: Point{3, 10}},
		{Frame: Frame{ID: "b", X: 0, Y: 115, Width: 110, Height: 95}, Offset: Point{53, 115}},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Stack = %+v, want %+v", got, want)
	}

	if got := s.Stack(nil); len(got) != 0 {
		t.Errorf("Stack(nil) = %v, want empty", got)
	}
}

func TestOptionsValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Options)
		wantErr bool
	}{
		{"defaults", func(*Options) {}, false},
		{"lowercase rankdir", func(o *Options) { o.RankDir = "tb" }, false},
		{"zero width", func(o *Options) { o.NodeWidth = 0 }, true},
		{"negative gap", func(o *Options) { o.Gap = -1 }, true},
		{"negative padding", func(o *Options) { o.Padding.Left = -1 }, true},
		{"bad rankdir", func(o *Options) { o.RankDir = "XY" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := DefaultOptions()
			tt.mutate(&o)
			if err := o.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSetDefaults(t *testing.T) {
	var o Options
	o.SetDefaults()
	if !reflect.DeepEqual(o, DefaultOptions()) {
		t.Errorf("SetDefaults() = %+v, want %+v", o, DefaultOptions())
	}
}
