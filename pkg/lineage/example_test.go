package lineage_test

import (
	"fmt"

	"github.com/matzehuels/pipescope/pkg/lineage"
)

func ExampleGraph_Upstream() {
	// raw -> staged -> report, with a second feed into staged
	g := lineage.New()
	_ = g.AddNode(lineage.Node{ID: "raw"})
	_ = g.AddNode(lineage.Node{ID: "lookup"})
	_ = g.AddNode(lineage.Node{ID: "staged"})
	_ = g.AddNode(lineage.Node{ID: "report"})
	_ = g.AddEdge(lineage.Edge{Source: "raw", Target: "staged"})
	_ = g.AddEdge(lineage.Edge{Source: "lookup", Target: "staged"})
	_ = g.AddEdge(lineage.Edge{Source: "staged", Target: "report"})

	fmt.Println("Upstream of report:", g.Upstream("report"))
	fmt.Println("Downstream of raw:", g.Downstream("raw"))
	fmt.Println("Lineage of staged:", g.Lineage("staged", lineage.Both))
	// Output:
	// Upstream of report: [raw lookup staged]
	// Downstream of raw: [staged report]
	// Lineage of staged: [raw lookup staged report]
}

func ExampleParsePayload() {
	payload := `{
	  "dag": {
	    "nodes": [
	      {"id": "dag:etl", "label": "etl", "type": "dag"},
	      {"id": "etl:a", "label": "a", "dag": "etl"},
	      {"id": "etl:b", "label": "b", "dag": "etl"}
	    ],
	    "edges": [
	      {"source": "dag:etl", "target": "etl:a"},
	      {"source": "etl:a", "target": "etl:b"}
	    ]
	  }
	}`

	store, err := lineage.ParsePayload([]byte(payload))
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	g, mode := store.Graph("table")
	fmt.Println("Served mode:", mode)
	for _, e := range g.Edges() {
		fmt.Printf("%s -> %s (%s)\n", e.Source, e.Target, e.Kind)
	}
	// Output:
	// Served mode: dag
	// dag:etl -> etl:a (containment)
	// etl:a -> etl:b (dependency)
}
