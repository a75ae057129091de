package cli

import (
	"context"
	"io"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/matzehuels/pipescope/pkg/explorer"
	"github.com/matzehuels/pipescope/pkg/layout"
	"github.com/matzehuels/pipescope/pkg/lineage"
	"github.com/matzehuels/pipescope/pkg/view"
)

const testPayload = `{
  "dag": {
    "nodes": [
      {"id": "dag:sales", "label": "sales", "type": "dag"},
      {"id": "sales:extract", "label": "extract", "type": "task", "dag": "sales"},
      {"id": "sales:load", "label": "load", "type": "staging", "dag": "sales"},
      {"id": "table:orders", "label": "orders", "type": "fact"}
    ],
    "edges": [
      {"source": "dag:sales", "target": "sales:extract"},
      {"source": "dag:sales", "target": "sales:load"},
      {"source": "sales:extract", "target": "sales:load"},
      {"source": "sales:load", "target": "table:orders"}
    ]
  },
  "table": {
    "nodes": [
      {"id": "table:raw", "label": "raw", "type": "source"},
      {"id": "table:orders", "label": "orders", "type": "fact"}
    ],
    "edges": [{"source": "table:raw", "target": "table:orders"}]
  },
  "metric": {"nodes": [], "edges": []}
}`

// gridEngine stacks nodes vertically in request order.
var gridEngine = layout.EngineFunc(func(ctx context.Context, req layout.Request) (*layout.Response, error) {
	resp := &layout.Response{Nodes: make(map[string]layout.Point), Edges: make([][]layout.Point, len(req.Edges))}
	for i, n := range req.Nodes {
		resp.Nodes[n.ID] = layout.Point{X: n.Width / 2, Y: float64(i)*(n.Height+req.RankSep) + n.Height/2}
	}
	for i, e := range req.Edges {
		resp.Edges[i] = []layout.Point{resp.Nodes[e.Source], resp.Nodes[e.Target]}
	}
	return resp, nil
})

func newTestRunner(t *testing.T) *explorer.Runner {
	t.Helper()
	store, err := lineage.ParsePayload([]byte(testPayload))
	if err != nil {
		t.Fatalf("ParsePayload: %v", err)
	}
	logger := log.New(io.Discard)
	r, err := explorer.NewRunner(store, layout.NewComposer(gridEngine, layout.DefaultOptions(), logger), nil, nil, logger)
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}
	return r
}

func newTestModel(t *testing.T) ExploreModel {
	t.Helper()
	r := newTestRunner(t)
	return NewExploreModel(context.Background(), r, r.Start(""), time.Millisecond)
}

func keyMsg(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "backspace":
		return tea.KeyMsg{Type: tea.KeyBackspace}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
	}
}

func press(m ExploreModel, keys ...string) ExploreModel {
	for _, k := range keys {
		next, _ := m.Update(keyMsg(k))
		m = next.(ExploreModel)
	}
	return m
}

func TestExploreSelect(t *testing.T) {
	m := press(newTestModel(t), "j", "enter")
	if m.Cursor != 1 || m.State.Selected != "sales:extract" {
		t.Fatalf("Cursor = %d, Selected = %q", m.Cursor, m.State.Selected)
	}
	if v := m.View(); !strings.Contains(v, "0 upstream · 2 downstream") {
		t.Errorf("detail missing from view:\n%s", v)
	}

	m = press(m, "esc")
	if m.State.HasSelection() {
		t.Errorf("Selected = %q after esc, want none", m.State.Selected)
	}
}

func TestExploreFocus(t *testing.T) {
	tests := []struct {
		key     string
		want    []string
		wantDir string
	}{
		{"u", []string{"sales:extract", "sales:load"}, "upstream"},
		{"d", []string{"sales:load", "table:orders"}, "downstream"},
		{"b", []string{"sales:extract", "sales:load", "table:orders"}, "both"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			m := press(newTestModel(t), "j", "j", tt.key)
			if !slices.Equal(m.State.Visible.Nodes, tt.want) {
				t.Errorf("visible = %v, want %v", m.State.Visible.Nodes, tt.want)
			}
			if m.State.Focus == nil || m.State.Focus.Direction != tt.wantDir {
				t.Errorf("Focus = %+v, want direction %s", m.State.Focus, tt.wantDir)
			}
			if id, _ := m.current(); id != "sales:load" {
				t.Errorf("cursor on %q, want the focused node", id)
			}

			m = press(m, "a")
			if len(m.State.Visible.Nodes) != 4 || m.State.Focus != nil || m.State.HasSelection() {
				t.Errorf("show all = %+v", m.State)
			}
		})
	}
}

func TestExploreFocusUsesSelection(t *testing.T) {
	m := press(newTestModel(t), "j", "enter", "j", "d")
	want := []string{"sales:extract", "sales:load", "table:orders"}
	if !slices.Equal(m.State.Visible.Nodes, want) {
		t.Errorf("visible = %v, want %v", m.State.Visible.Nodes, want)
	}
	if m.State.Focus == nil || m.State.Focus.Node != "sales:extract" {
		t.Errorf("Focus = %+v, want sales:extract", m.State.Focus)
	}
	if id, _ := m.current(); id != "sales:extract" {
		t.Errorf("cursor on %q, want the selected node", id)
	}
}

func TestExploreModeCycle(t *testing.T) {
	m := newTestModel(t)
	var got []string
	for range 3 {
		m = press(m, "m")
		got = append(got, m.State.Mode)
	}
	if want := []string{"table", "metric", "dag"}; !slices.Equal(got, want) {
		t.Errorf("modes = %v, want %v", got, want)
	}

	m = press(m, "m", "m")
	if v := m.View(); !strings.Contains(v, "Nothing to show") {
		t.Errorf("empty mode view:\n%s", v)
	}
	if m = press(m, "enter", "u"); m.State.HasSelection() || m.State.Focus != nil {
		t.Errorf("actions on an empty mode changed state: %+v", m.State)
	}
}

func TestExploreFilterCycle(t *testing.T) {
	m := newTestModel(t)
	var got []string
	for range 5 {
		m = press(m, "f")
		got = append(got, m.State.Filter)
	}
	if want := []string{"dag", "task", "staging", "fact", ""}; !slices.Equal(got, want) {
		t.Errorf("filters = %v, want %v", got, want)
	}
	if len(m.State.Visible.Nodes) != 4 {
		t.Errorf("visible after cycling back = %v", m.State.Visible.Nodes)
	}
}

func TestExploreSearch(t *testing.T) {
	m := press(newTestModel(t), "/", "l", "o", "x", "backspace", "a")
	if !m.Searching || m.Query != "loa" {
		t.Fatalf("Searching = %v, Query = %q", m.Searching, m.Query)
	}

	// Debounced results arrive as messages; earlier queries may still
	// deliver first and must be ignored.
	for {
		msg := m.waitForSearch()().(searchMsg)
		next, cmd := m.Update(msg)
		m = next.(ExploreModel)
		if cmd == nil {
			t.Fatal("search result did not re-arm the listener")
		}
		if msg.query == m.Query {
			break
		}
	}
	if len(m.Results) != 1 || m.Results[0].ID != "sales:load" {
		t.Fatalf("Results = %+v", m.Results)
	}

	m = press(m, "enter")
	if m.Searching || m.State.Selected != "sales:load" || m.Cursor != 2 {
		t.Errorf("after enter: Searching = %v, Selected = %q, Cursor = %d", m.Searching, m.State.Selected, m.Cursor)
	}
	if len(m.State.Visible.Nodes) != 4 {
		t.Errorf("search selection changed visibility: %v", m.State.Visible.Nodes)
	}
}

func TestExploreStaleSearchIgnored(t *testing.T) {
	m := press(newTestModel(t), "/", "o", "r")
	next, _ := m.Update(searchMsg{query: "xyz", nodes: []lineage.Node{{ID: "bogus"}}})
	if m = next.(ExploreModel); len(m.Results) != 0 {
		t.Errorf("stale result applied: %+v", m.Results)
	}
	m = press(m, "esc")
	if m.Searching {
		t.Error("esc did not leave search")
	}
}

func TestExploreWriteLayout(t *testing.T) {
	m := newTestModel(t)
	m.LayoutPath = filepath.Join(t.TempDir(), "view.layout.json")

	_, cmd := m.Update(keyMsg("w"))
	if cmd == nil {
		t.Fatal("w returned no command")
	}
	msg, ok := cmd().(layoutMsg)
	if !ok || msg.err != nil {
		t.Fatalf("layout message = %+v", msg)
	}
	if msg.nodes != 4 {
		t.Errorf("nodes = %d, want 4", msg.nodes)
	}
	res, err := layout.ReadFile(m.LayoutPath)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if res.Mode != "dag" || len(res.Containers) != 1 {
		t.Errorf("layout = %+v", res)
	}

	next, _ := m.Update(msg)
	if s := next.(ExploreModel).Status; !strings.Contains(s, "wrote") {
		t.Errorf("Status = %q", s)
	}
}

func TestValidResume(t *testing.T) {
	r := newTestRunner(t)
	focused, err := r.Apply(r.Start(""), explorer.Action{Kind: explorer.ActionFocus, Node: "sales:load", Direction: "up"})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		state view.State
		want  bool
	}{
		{"fresh", r.Start("table"), true},
		{"focused", focused, true},
		{"unknown mode", view.State{Mode: "lineage"}, false},
		{"missing node", view.State{Mode: "dag", Visible: view.Visibility{Nodes: []string{"gone"}}}, false},
		{"missing edge", view.State{Mode: "table", Visible: view.Visibility{Edges: []int{7}}}, false},
		{"missing selection", view.State{Mode: "dag", Selected: "gone"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := validResume(r, tt.state); got != tt.want {
				t.Errorf("validResume = %v, want %v", got, tt.want)
			}
		})
	}
}
