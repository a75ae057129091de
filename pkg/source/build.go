package source

import (
	"fmt"

	"github.com/matzehuels/pipescope/pkg/lineage"
)

// Task parameters that name the tables a task reads and writes.
const (
	ParamSourceTable = "SOURCE_TABLE"
	ParamTargetTable = "TARGET_TABLE"
)

// TablePrefix prefixes the node ID of every table.
const TablePrefix = "table:"

// Issue is a problem found while building a graph. Issues do not stop the
// build; the offending node or edge is skipped.
type Issue struct {
	Path     string `json:"path,omitempty"`
	Pipeline string `json:"pipeline,omitempty"`
	Task     string `json:"task,omitempty"`
	Message  string `json:"message"`
}

func (i Issue) String() string {
	switch {
	case i.Task != "":
		return fmt.Sprintf("%s: %s.%s: %s", i.Path, i.Pipeline, i.Task, i.Message)
	case i.Pipeline != "":
		return fmt.Sprintf("%s: %s: %s", i.Path, i.Pipeline, i.Message)
	default:
		return fmt.Sprintf("%s: %s", i.Path, i.Message)
	}
}

// TaskID returns the node ID of a task within a pipeline.
func TaskID(pipeline, task string) string { return pipeline + ":" + task }

// TableID returns the node ID of a table.
func TableID(name string) string { return TablePrefix + name }

// builder accumulates nodes first and edges second so that edges may refer
// to tasks defined later in a pipeline.
type builder struct {
	g      *lineage.Graph
	edges  []pendingEdge
	issues []Issue
}

type pendingEdge struct {
	edge lineage.Edge
	at   Issue
}

func newBuilder() *builder { return &builder{g: lineage.New()} }

func (b *builder) node(n lineage.Node, at Issue) {
	if b.g.Has(n.ID) {
		return
	}
	if err := b.g.AddNode(n); err != nil {
		at.Message = err.Error()
		b.issues = append(b.issues, at)
	}
}

func (b *builder) edge(e lineage.Edge, at Issue) {
	b.edges = append(b.edges, pendingEdge{edge: e, at: at})
}

func (b *builder) finish() (*lineage.Graph, []Issue) {
	for _, p := range b.edges {
		if err := b.g.AddEdge(p.edge); err != nil {
			at := p.at
			at.Message = fmt.Sprintf("skipping edge %s -> %s: %v", p.edge.Source, p.edge.Target, err)
			b.issues = append(b.issues, at)
		}
	}
	return b.g, b.issues
}

// BuildDAGGraph builds the dag view: one container per pipeline, its tasks,
// and the tables tasks read or write. Tasks without an ID and self
// dependencies are skipped. The first node with a given ID wins.
func BuildDAGGraph(defs []Definition) (*lineage.Graph, []Issue) {
	b := newBuilder()
	for _, def := range defs {
		at := Issue{Path: def.Path, Pipeline: def.Name}
		container := lineage.ContainerPrefix + def.Name
		b.node(lineage.Node{
			ID:         container,
			Label:      def.Name,
			Type:       lineage.TypeContainer,
			SourceFile: def.Path,
		}, at)

		for _, t := range def.Tasks {
			if t.ID == "" {
				continue
			}
			at := at
			at.Task = t.ID
			id := TaskID(def.Name, t.ID)
			b.node(lineage.Node{
				ID:         id,
				Label:      t.ID,
				Type:       InferTaskType(t),
				DAG:        def.Name,
				Operator:   t.Operator,
				SourceFile: t.SourceFile,
				Params:     t.Params,
			}, at)
			b.edge(lineage.Edge{Source: container, Target: id, Kind: lineage.Containment}, at)

			for _, dep := range t.DependsOn {
				if dep == t.ID {
					continue
				}
				b.edge(lineage.Edge{Source: TaskID(def.Name, dep), Target: id}, at)
			}

			if src := t.Param(ParamSourceTable); src != "" {
				b.node(tableNode(src), at)
				b.edge(lineage.Edge{Source: TableID(src), Target: id}, at)
			}
			if dst := t.Param(ParamTargetTable); dst != "" {
				b.node(tableNode(dst), at)
				b.edge(lineage.Edge{Source: id, Target: TableID(dst)}, at)
			}
		}
	}
	return b.finish()
}

// BuildTableGraph builds the table view: tables only, with one edge per
// distinct source and target pair labeled by the first task that moves
// data between them.
func BuildTableGraph(defs []Definition) (*lineage.Graph, []Issue) {
	b := newBuilder()
	seen := make(map[[2]string]bool)
	for _, def := range defs {
		for _, t := range def.Tasks {
			at := Issue{Path: def.Path, Pipeline: def.Name, Task: t.ID}
			src, dst := t.Param(ParamSourceTable), t.Param(ParamTargetTable)
			if src != "" {
				b.node(tableNode(src), at)
			}
			if dst != "" {
				b.node(tableNode(dst), at)
			}
			if src == "" || dst == "" {
				continue
			}
			key := [2]string{TableID(src), TableID(dst)}
			if seen[key] {
				continue
			}
			seen[key] = true
			b.edge(lineage.Edge{Source: key[0], Target: key[1], Label: t.ID}, at)
		}
	}
	return b.finish()
}

func tableNode(name string) lineage.Node {
	return lineage.Node{ID: TableID(name), Label: name, Type: InferTableType(name)}
}

// BuildPayload builds every view mode from the definitions. The metric mode
// is present but empty.
func BuildPayload(defs []Definition) (*lineage.Store, []Issue, error) {
	dag, issues := BuildDAGGraph(defs)
	table, tableIssues := BuildTableGraph(defs)
	store, err := lineage.NewStore(map[string]*lineage.Graph{
		lineage.ModeDAG:    dag,
		lineage.ModeTable:  table,
		lineage.ModeMetric: lineage.New(),
	})
	if err != nil {
		return nil, nil, err
	}
	return store, append(issues, tableIssues...), nil
}
