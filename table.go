package stategrid

// Point is a coordinate on the canvas
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Size is a shape's extent on the canvas
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Table is a positioned, ordered collection of typed rows rendered as a
// grid on the canvas. Row ids are unique within the table, not globally,
// and row names need not be unique; the evaluator's longest-name
// precedence decides collisions.
type Table struct {
	ID       string `json:"id"`
	Position Point  `json:"position"`
	Data     []Row  `json:"data"`
}

// Transition is a directed, optionally labeled edge between two tables.
// it must be removed when either endpoint table is deleted; the state
// container owns that invariant.
type Transition struct {
	ID     string `json:"id"`
	FromID string `json:"fromId"`
	ToID   string `json:"toId"`
	Text   string `json:"text,omitempty"`
}

// ShapeType represents the kind of a decorative canvas annotation
type ShapeType string

const (
	ShapeRectangle ShapeType = "rectangle"
	ShapeLine      ShapeType = "line"
	ShapeText      ShapeType = "text"
)

// Shape is a decorative canvas annotation, independent of tables and
// transitions
type Shape struct {
	ID       string    `json:"id"`
	Type     ShapeType `json:"type"`
	Position Point     `json:"position"`
	Size     Size      `json:"size"`
	Text     string    `json:"text,omitempty"`
}

// cloneTable copies a table deeply enough that mutating the copy's rows
// cannot alias the original
func cloneTable(t Table) Table {
	return Table{ID: t.ID, Position: t.Position, Data: cloneRows(t.Data)}
}

func cloneTables(tables []Table) []Table {
	out := make([]Table, len(tables))
	for i, t := range tables {
		out[i] = cloneTable(t)
	}
	return out
}

// findTable returns the index of the table with the given id, or -1
func findTable(tables []Table, id string) int {
	for i := range tables {
		if tables[i].ID == id {
			return i
		}
	}
	return -1
}

// allRows flattens every row of every table into one candidate pool,
// preserving table order then row order
func allRows(tables []Table) []Row {
	var out []Row
	for _, t := range tables {
		out = append(out, t.Data...)
	}
	return out
}
