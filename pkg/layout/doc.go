// Package layout composes positioned layouts for lineage views.
//
// A [Composer] takes a mode graph and the currently visible subset and
// produces a [Result] in one global coordinate frame. Each visible
// container's members are laid out on their own by an [Engine] (normally
// [GraphvizEngine]); a [Stacker] then places the resulting clusters. The
// default [UniformStack] gives all containers the same size and stacks them
// vertically, which keeps the view stable as lineage filters change.
//
// Containment edges only describe membership and are never laid out or
// routed. Edges between containers are not drawn.
package layout
