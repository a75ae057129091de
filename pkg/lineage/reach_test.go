package lineage

import (
	"slices"
	"strconv"
	"testing"

	perrors "github.com/matzehuels/pipescope/pkg/errors"
)

func chain(t *testing.T, ids ...string) *Graph {
	t.Helper()
	g := New()
	for _, id := range ids {
		if err := g.AddNode(Node{ID: id}); err != nil {
			t.Fatal(err)
		}
	}
	for i := 1; i < len(ids); i++ {
		if err := g.AddEdge(Edge{Source: ids[i-1], Target: ids[i]}); err != nil {
			t.Fatal(err)
		}
	}
	return g
}

func TestUpstreamDownstream(t *testing.T) {
	// diamond: a -> b, a -> c, b -> d, c -> d, plus isolated e
	g := New()
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		_ = g.AddNode(Node{ID: id})
	}
	for _, e := range [][2]string{{"a", "b"}, {"a", "c"}, {"b", "d"}, {"c", "d"}} {
		_ = g.AddEdge(Edge{Source: e[0], Target: e[1]})
	}

	tests := []struct {
		name string
		got  []string
		want []string
	}{
		{"upstream of d", g.Upstream("d"), []string{"a", "b", "c"}},
		{"downstream of a", g.Downstream("a"), []string{"b", "c", "d"}},
		{"upstream of root", g.Upstream("a"), []string{}},
		{"downstream of leaf", g.Downstream("d"), []string{}},
		{"isolated upstream", g.Upstream("e"), []string{}},
		{"isolated downstream", g.Downstream("e"), []string{}},
		{"unknown", g.Upstream("zzz"), []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !slices.Equal(tt.got, tt.want) {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}
}

func TestReachabilityWithCycle(t *testing.T) {
	g := chain(t, "a", "b", "c")
	_ = g.AddEdge(Edge{Source: "c", Target: "a"})

	for _, id := range []string{"a", "b", "c"} {
		up := g.Upstream(id)
		down := g.Downstream(id)
		if slices.Contains(up, id) {
			t.Errorf("Upstream(%s) = %v contains start", id, up)
		}
		if slices.Contains(down, id) {
			t.Errorf("Downstream(%s) = %v contains start", id, down)
		}
		if len(up) != 2 || len(down) != 2 {
			t.Errorf("%s: up=%v down=%v, want two each", id, up, down)
		}
	}
}

func TestSelfLoop(t *testing.T) {
	g := chain(t, "a")
	_ = g.AddEdge(Edge{Source: "a", Target: "a"})
	if got := g.Upstream("a"); len(got) != 0 {
		t.Errorf("Upstream(a) = %v, want empty", got)
	}
}

func TestDeepChainDoesNotRecurse(t *testing.T) {
	ids := make([]string, 20000)
	for i := range ids {
		ids[i] = "n" + strconv.Itoa(i)
	}
	g := chain(t, ids...)
	if got := len(g.Upstream(ids[len(ids)-1])); got != len(ids)-1 {
		t.Errorf("len(Upstream(last)) = %d, want %d", got, len(ids)-1)
	}
}

func TestLineageBoth(t *testing.T) {
	// a -> b -> c, x -> b; siblings of b through a shared parent must not
	// leak into "both".
	g := chain(t, "a", "b", "c")
	_ = g.AddNode(Node{ID: "x"})
	_ = g.AddNode(Node{ID: "s"})
	_ = g.AddEdge(Edge{Source: "x", Target: "b"})
	_ = g.AddEdge(Edge{Source: "a", Target: "s"})

	want := []string{"a", "b", "c", "x"}
	if got := g.Lineage("b", Both); !slices.Equal(got, want) {
		t.Errorf("Lineage(b, both) = %v, want %v", got, want)
	}
	if got := g.Lineage("nope", Both); got != nil {
		t.Errorf("Lineage(unknown) = %v, want nil", got)
	}
}

func TestParseDirection(t *testing.T) {
	tests := []struct {
		in      string
		want    Direction
		wantErr bool
	}{
		{"upstream", Upstream, false},
		{"UP", Upstream, false},
		{"d", Downstream, false},
		{"both", Both, false},
		{"", Both, false},
		{"sideways", Both, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDirection(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseDirection(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if err != nil && !perrors.Is(err, perrors.ErrCodeInvalidDirection) {
				t.Errorf("ParseDirection(%q) code = %v", tt.in, perrors.GetCode(err))
			}
			if got != tt.want {
				t.Errorf("ParseDirection(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
