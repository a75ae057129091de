package layout

import (
	"fmt"
	"strings"
)

// Default sizing, in layout units (pixels).
const (
	DefaultNodeWidth  = 180.0
	DefaultNodeHeight = 40.0
	DefaultRankSep    = 80.0
	DefaultNodeSep    = 40.0
	DefaultEdgeSep    = 20.0
	DefaultGap        = 40.0
	DefaultRankDir    = "LR"
)

// DefaultPadding is the margin inside every container frame. The top
// margin leaves room for the container title.
var DefaultPadding = Padding{Top: 45, Bottom: 25, Left: 30, Right: 30}

// Padding is a set of distinct margins.
type Padding struct {
	Top    float64 `json:"top" koanf:"top"`
	Bottom float64 `json:"bottom" koanf:"bottom"`
	Left   float64 `json:"left" koanf:"left"`
	Right  float64 `json:"right" koanf:"right"`
}

// Options configures node sizing, the hierarchical layout request, and
// container stacking.
type Options struct {
	NodeWidth  float64 `json:"node_width" koanf:"node_width"`
	NodeHeight float64 `json:"node_height" koanf:"node_height"`
	RankSep    float64 `json:"rank_sep" koanf:"rank_sep"`
	NodeSep    float64 `json:"node_sep" koanf:"node_sep"`
	EdgeSep    float64 `json:"edge_sep" koanf:"edge_sep"`
	RankDir    string  `json:"rank_dir" koanf:"rank_dir"`
	Padding    Padding `json:"padding" koanf:"padding"`
	Gap        float64 `json:"gap" koanf:"gap"`
}

// DefaultOptions returns the standard layout settings.
func DefaultOptions() Options {
	return Options{
		NodeWidth:  DefaultNodeWidth,
		NodeHeight: DefaultNodeHeight,
		RankSep:    DefaultRankSep,
		NodeSep:    DefaultNodeSep,
		EdgeSep:    DefaultEdgeSep,
		RankDir:    DefaultRankDir,
		Padding:    DefaultPadding,
		Gap:        DefaultGap,
	}
}

// SetDefaults fills zero-valued fields with defaults.
func (o *Options) SetDefaults() {
	if o.NodeWidth == 0 {
		o.NodeWidth = DefaultNodeWidth
	}
	if o.NodeHeight == 0 {
		o.NodeHeight = DefaultNodeHeight
	}
	if o.RankSep == 0 {
		o.RankSep = DefaultRankSep
	}
	if o.NodeSep == 0 {
		o.NodeSep = DefaultNodeSep
	}
	if o.EdgeSep == 0 {
		o.EdgeSep = DefaultEdgeSep
	}
	if o.RankDir == "" {
		o.RankDir = DefaultRankDir
	}
	if o.Padding == (Padding{}) {
		o.Padding = DefaultPadding
	}
	if o.Gap == 0 {
		o.Gap = DefaultGap
	}
}

// Validate checks that sizes are positive and the rank direction is known.
func (o Options) Validate() error {
	if o.NodeWidth <= 0 || o.NodeHeight <= 0 {
		return fmt.Errorf("node size must be positive, got %gx%g", o.NodeWidth, o.NodeHeight)
	}
	if o.RankSep < 0 || o.NodeSep < 0 || o.EdgeSep < 0 || o.Gap < 0 {
		return fmt.Errorf("separations must not be negative")
	}
	if o.Padding.Top < 0 || o.Padding.Bottom < 0 || o.Padding.Left < 0 || o.Padding.Right < 0 {
		return fmt.Errorf("padding must not be negative")
	}
	switch strings.ToUpper(o.RankDir) {
	case "LR", "RL", "TB", "BT":
	default:
		return fmt.Errorf("invalid rank direction %q", o.RankDir)
	}
	return nil
}
