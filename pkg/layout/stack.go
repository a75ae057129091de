package layout

// Cluster is one container whose members were laid out independently.
// Content is the bounding box of the members in the sub-layout's own
// coordinates.
type Cluster struct {
	ID      string
	Label   string
	Content Bounds
}

// Placement positions a cluster in the global frame. Offset translates the
// cluster's local coordinates to global ones.
type Placement struct {
	Frame  Frame
	Offset Point
}

// Stacker arranges independently laid-out clusters into one coordinate
// frame. It receives clusters in graph order and returns one placement per
// cluster in the same order.
type Stacker interface {
	Stack(clusters []Cluster) []Placement
}

// UniformStack gives every cluster the same size, the largest content
// width and height plus padding, and stacks them top to bottom at x = 0
// separated by Gap.
type UniformStack struct {
	Padding Padding
	Gap     float64
}

// NewUniformStack creates a stacker from layout options.
func NewUniformStack(opts Options) UniformStack {
	return UniformStack{Padding: opts.Padding, Gap: opts.Gap}
}

// Stack implements [Stacker].
func (s UniformStack) Stack(clusters []Cluster) []Placement {
	var maxW, maxH float64
	for _, c := range clusters {
		maxW = max(maxW, c.Content.Width())
		maxH = max(maxH, c.Content.Height())
	}
	w := s.Padding.Left + maxW + s.Padding.Right
	h := s.Padding.Top + maxH + s.Padding.Bottom

	out := make([]Placement, len(clusters))
	y := 0.0
	for i, c := range clusters {
		f := Frame{ID: c.ID, Label: c.Label, X: 0, Y: y, Width: w, Height: h}
		out[i] = Placement{
			Frame: f,
			Offset: Point{
				X: f.X + s.Padding.Left - c.Content.MinX,
				Y: f.Y + s.Padding.Top - c.Content.MinY,
			},
		}
		y += h + s.Gap
	}
	return out
}

var _ Stacker = UniformStack{}
