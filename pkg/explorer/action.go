package explorer

import (
	perrors "github.com/matzehuels/pipescope/pkg/errors"
	"github.com/matzehuels/pipescope/pkg/lineage"
	"github.com/matzehuels/pipescope/pkg/view"
)

// ActionKind names a view transition.
type ActionKind string

// Supported actions.
const (
	ActionMode    ActionKind = "mode"
	ActionSelect  ActionKind = "select"
	ActionClear   ActionKind = "clear"
	ActionFocus   ActionKind = "focus"
	ActionFilter  ActionKind = "filter"
	ActionShowAll ActionKind = "show-all"
)

// Action is a user request to change a view. Only the fields relevant to
// Kind are read.
type Action struct {
	Kind      ActionKind `json:"kind"`
	Mode      string     `json:"mode,omitempty"`
	Node      string     `json:"node,omitempty"`
	Direction string     `json:"direction,omitempty"`
	Type      string     `json:"type,omitempty"`
}

// Apply validates a and applies it to s. On error s is returned unchanged.
func (r *Runner) Apply(s view.State, a Action) (view.State, error) {
	g := r.Graph(s)
	switch a.Kind {
	case ActionMode:
		if a.Mode != "" {
			if err := perrors.ValidateModeName(a.Mode); err != nil {
				return s, err
			}
		}
		return view.SwitchMode(r.Store, a.Mode), nil

	case ActionSelect:
		if err := perrors.ValidateNodeID(a.Node); err != nil {
			return s, err
		}
		return view.Select(g, s, a.Node)

	case ActionClear:
		return view.ClearSelection(s), nil

	case ActionFocus:
		id := a.Node
		if id == "" {
			id = s.Selected
		}
		if err := perrors.ValidateNodeID(id); err != nil {
			return s, err
		}
		dir, err := lineage.ParseDirection(a.Direction)
		if err != nil {
			return s, err
		}
		return view.FocusLineage(g, s, id, dir)

	case ActionFilter:
		return view.FilterByType(g, s, a.Type), nil

	case ActionShowAll:
		return view.ShowAll(g, s), nil

	default:
		return s, perrors.New(perrors.ErrCodeInvalidInput, "unknown action %q", a.Kind)
	}
}
