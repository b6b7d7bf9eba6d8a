// Package stategrid is the core of an interactive state-table diagram
// editor: typed rows grouped into draggable tables, formulas over row
// names, transitions between tables, and decorative canvas shapes.
//
// The package covers formula evaluation, dependency-ordered
// recalculation, the finite-state container mediating all mutations,
// and best-effort persistence. Rendering, drag/drop, and dialogs are
// external collaborators that call in through the container's event
// surface and the evaluator.
package stategrid
