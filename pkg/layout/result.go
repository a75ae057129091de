package layout

import (
	"encoding/json"
	"fmt"
	"os"
)

// =============================================================================
// Geometry
// =============================================================================

// Point is a 2D coordinate. Y grows downward.
type Point struct {
	X float64 `json:"x" bson:"x"`
	Y float64 `json:"y" bson:"y"`
}

// Add returns p translated by o.
func (p Point) Add(o Point) Point { return Point{X: p.X + o.X, Y: p.Y + o.Y} }

// Bounds is an axis-aligned bounding box.
type Bounds struct {
	MinX float64 `json:"min_x"`
	MinY float64 `json:"min_y"`
	MaxX float64 `json:"max_x"`
	MaxY float64 `json:"max_y"`
}

// Width returns the horizontal extent.
func (b Bounds) Width() float64 { return b.MaxX - b.MinX }

// Height returns the vertical extent.
func (b Bounds) Height() float64 { return b.MaxY - b.MinY }

// Min returns the top-left corner.
func (b Bounds) Min() Point { return Point{X: b.MinX, Y: b.MinY} }

// =============================================================================
// Result - Composed Layout
// =============================================================================

// Result is a composed layout in one global coordinate frame.
//
// An empty Result (no nodes) is the placeholder state for an empty visible
// set or an empty view mode.
type Result struct {
	Mode       string         `json:"mode,omitempty" bson:"mode,omitempty"`
	Width      float64        `json:"width" bson:"width"`
	Height     float64        `json:"height" bson:"height"`
	Containers []Frame        `json:"containers,omitempty" bson:"containers,omitempty"`
	Nodes      []NodePosition `json:"nodes" bson:"nodes"`
	Edges      []EdgePath     `json:"edges" bson:"edges"`
	Omitted    []string       `json:"omitted,omitempty" bson:"omitted,omitempty"`
}

// IsEmpty reports whether the result positions nothing.
func (r *Result) IsEmpty() bool { return len(r.Nodes) == 0 }

// Node returns the position of a node or container by ID.
func (r *Result) Node(id string) (NodePosition, bool) {
	for _, n := range r.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return NodePosition{}, false
}

// Container returns the frame of a container by node ID.
func (r *Result) Container(id string) (Frame, bool) {
	for _, f := range r.Containers {
		if f.ID == id {
			return f, true
		}
	}
	return Frame{}, false
}

// Frame is a container rectangle. X and Y are its top-left corner.
type Frame struct {
	ID     string  `json:"id" bson:"id"`
	Label  string  `json:"label" bson:"label"`
	X      float64 `json:"x" bson:"x"`
	Y      float64 `json:"y" bson:"y"`
	Width  float64 `json:"width" bson:"width"`
	Height float64 `json:"height" bson:"height"`
}

// Center returns the frame's center point.
func (f Frame) Center() Point {
	return Point{X: f.X + f.Width/2, Y: f.Y + f.Height/2}
}

// NodePosition is the placed center of a node. Containers are listed too,
// positioned at their frame's center.
type NodePosition struct {
	ID        string  `json:"id" bson:"id"`
	X         float64 `json:"x" bson:"x"`
	Y         float64 `json:"y" bson:"y"`
	Width     float64 `json:"width" bson:"width"`
	Height    float64 `json:"height" bson:"height"`
	Container bool    `json:"container,omitempty" bson:"container,omitempty"`
}

// EdgePath is a routed dependency edge. Index refers to the edge's position
// in the mode graph.
type EdgePath struct {
	Index  int     `json:"index" bson:"index"`
	Source string  `json:"source" bson:"source"`
	Target string  `json:"target" bson:"target"`
	Points []Point `json:"points" bson:"points"`
}

// =============================================================================
// File I/O
// =============================================================================

// WriteFile writes the result as indented JSON.
func (r *Result) WriteFile(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal layout: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// ReadFile reads a result written by [Result.WriteFile].
func ReadFile(path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var r Result
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse layout %s: %w", path, err)
	}
	return &r, nil
}
