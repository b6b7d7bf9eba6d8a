package stategrid

import (
	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
)

// Mode represents the container's interaction state
type Mode uint8

const (
	// ModeIdle - canvas fully interactive
	ModeIdle Mode = 0
	// ModeDialogOpen - the row-set editing dialog is open
	ModeDialogOpen Mode = 1
)

const (
	// horizontal offset of a table spawned from an existing one
	dialogTableOffsetX = 500

	// where a brand-new table lands on the canvas
	defaultTableX = 100
	defaultTableY = 100
)

// Container is the finite-state coordinator owning the canonical
// tables, transitions, and shapes. All mutations go through its event
// methods; the UI never touches the collections directly. Mutations
// recalculate affected tables, commit the new collections atomically,
// then persist.
//
// The container is single-actor by construction (UI event handlers run
// to completion), so it carries no locking.
type Container struct {
	mode            Mode
	selectedTableID string

	tables      []Table
	transitions []Transition
	shapes      []Shape

	eval   *Evaluator
	store  Store
	logger hclog.Logger
	sink   DiagnosticSink
	newID  func() string
}

// Option configures a Container
type Option func(*Container)

// WithLogger sets the container's logger
func WithLogger(logger hclog.Logger) Option {
	return func(c *Container) { c.logger = logger }
}

// WithSink sets the diagnostic sink shared by the container and its
// evaluator
func WithSink(sink DiagnosticSink) Option {
	return func(c *Container) { c.sink = sink }
}

// WithIDGenerator replaces the id source, for deterministic tests
func WithIDGenerator(gen func() string) Option {
	return func(c *Container) { c.newID = gen }
}

// NewContainer creates an idle container backed by the given store
func NewContainer(store Store, opts ...Option) *Container {
	c := &Container{
		mode:   ModeIdle,
		store:  store,
		logger: hclog.NewNullLogger(),
		sink:   discardSink{},
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.eval = NewEvaluator(c.logger, c.sink)
	return c
}

// Mode returns the current interaction state
func (c *Container) Mode() Mode {
	return c.mode
}

// SelectedTableID returns the table a dialog edit targets, or "" when
// the dialog is creating a fresh table
func (c *Container) SelectedTableID() string {
	return c.selectedTableID
}

// Tables returns a snapshot of the canonical tables
func (c *Container) Tables() []Table {
	return cloneTables(c.tables)
}

// Transitions returns a snapshot of the canonical transitions
func (c *Container) Transitions() []Transition {
	return append([]Transition(nil), c.transitions...)
}

// Shapes returns a snapshot of the canonical shapes
func (c *Container) Shapes() []Shape {
	return append([]Shape(nil), c.shapes...)
}

// Load replaces the container's state from the store. A read failure
// degrades to empty collections. Every table is recalculated once after
// date rehydration, so loaded results are never stale.
func (c *Container) Load() {
	doc, err := c.store.Load()
	if err != nil {
		c.logger.Error("loading persisted state failed, starting empty", "error", err)
		c.sink.Record(Diagnostic{Kind: KindPersistenceFailure, Detail: err.Error()})
		doc = Document{}
	}

	for i := range doc.Tables {
		doc.Tables[i].Data = c.eval.Recalculate(doc.Tables[i].Data, doc.Tables)
	}

	c.tables = doc.Tables
	c.transitions = doc.Transitions
	c.shapes = doc.Shapes
}

// OpenDialog opens the row-set dialog. A non-empty tableID marks an
// edit of an existing table; empty means a fresh table is being
// created.
func (c *Container) OpenDialog(tableID string) {
	if c.mode != ModeIdle {
		c.logger.Warn("ignoring OpenDialog outside idle state")
		return
	}
	c.mode = ModeDialogOpen
	c.selectedTableID = tableID
}

// CloseDialog returns to idle without committing
func (c *Container) CloseDialog() {
	c.mode = ModeIdle
	c.selectedTableID = ""
}

// SaveState commits the dialog's row set. The rows are recalculated
// before commit, so persisted results are never stale relative to their
// formulas. When the dialog targeted an existing table, a new table is
// spawned offset from the source and linked with a transition; the
// transition's ToID is the new table's id by construction, so the edge
// can never dangle.
func (c *Container) SaveState(rows []Row) {
	if c.mode != ModeDialogOpen {
		c.logger.Warn("ignoring SaveState outside dialog state")
		return
	}

	data := c.eval.RecalculateDraft(rows, c.tables)

	sourceIdx := -1
	if c.selectedTableID != "" {
		sourceIdx = findTable(c.tables, c.selectedTableID)
		if sourceIdx < 0 {
			c.logger.Warn("dialog source table no longer exists, creating unlinked table",
				"tableId", c.selectedTableID)
		}
	}

	if sourceIdx >= 0 {
		source := c.tables[sourceIdx]
		tableID := c.newID()
		c.tables = append(c.tables, Table{
			ID:       tableID,
			Position: Point{X: source.Position.X + dialogTableOffsetX, Y: source.Position.Y},
			Data:     data,
		})
		c.transitions = append(c.transitions, Transition{
			ID:     c.newID(),
			FromID: source.ID,
			ToID:   tableID,
		})
	} else {
		c.tables = append(c.tables, Table{
			ID:       c.newID(),
			Position: Point{X: defaultTableX, Y: defaultTableY},
			Data:     data,
		})
	}

	c.mode = ModeIdle
	c.selectedTableID = ""
	c.persist()
}

// MoveTable updates a table's canvas position
func (c *Container) MoveTable(id string, pos Point) {
	if c.mode != ModeIdle {
		c.logger.Warn("ignoring MoveTable outside idle state")
		return
	}
	idx := findTable(c.tables, id)
	if idx < 0 {
		return
	}
	c.tables[idx].Position = pos
	c.persist()
}

// DeleteTable removes a table and every transition touching it
func (c *Container) DeleteTable(id string) {
	if c.mode != ModeIdle {
		c.logger.Warn("ignoring DeleteTable outside idle state")
		return
	}
	idx := findTable(c.tables, id)
	if idx < 0 {
		return
	}

	c.tables = append(c.tables[:idx], c.tables[idx+1:]...)

	kept := c.transitions[:0]
	for _, tr := range c.transitions {
		if tr.FromID != id && tr.ToID != id {
			kept = append(kept, tr)
		}
	}
	c.transitions = kept
	c.persist()
}

// UpdateTransition sets a transition's label. The change rides along
// with the next persisting mutation.
func (c *Container) UpdateTransition(id string, text string) {
	if c.mode != ModeIdle {
		c.logger.Warn("ignoring UpdateTransition outside idle state")
		return
	}
	for i := range c.transitions {
		if c.transitions[i].ID == id {
			c.transitions[i].Text = text
			return
		}
	}
}

// AddShape adds a canvas annotation, assigning an id if the shape has
// none
func (c *Container) AddShape(shape Shape) {
	if c.mode != ModeIdle {
		c.logger.Warn("ignoring AddShape outside idle state")
		return
	}
	if shape.ID == "" {
		shape.ID = c.newID()
	}
	c.shapes = append(c.shapes, shape)
	c.persist()
}

// MoveShape updates a shape's canvas position
func (c *Container) MoveShape(id string, pos Point) {
	if c.mode != ModeIdle {
		c.logger.Warn("ignoring MoveShape outside idle state")
		return
	}
	for i := range c.shapes {
		if c.shapes[i].ID == id {
			c.shapes[i].Position = pos
			c.persist()
			return
		}
	}
}

// RemoveShape deletes a canvas annotation
func (c *Container) RemoveShape(id string) {
	if c.mode != ModeIdle {
		c.logger.Warn("ignoring RemoveShape outside idle state")
		return
	}
	for i := range c.shapes {
		if c.shapes[i].ID == id {
			c.shapes = append(c.shapes[:i], c.shapes[i+1:]...)
			c.persist()
			return
		}
	}
}

// persist writes the canonical state through the store. Formula rows
// are recomputed against the freshest sibling data first, and write
// failures are swallowed: persistence is a best-effort cache and must
// never block the canvas.
func (c *Container) persist() {
	tables := cloneTables(c.tables)
	for i := range tables {
		tables[i].Data = c.eval.Recalculate(tables[i].Data, c.tables)
	}

	doc := Document{
		Tables:      tables,
		Transitions: c.transitions,
		Shapes:      c.shapes,
	}
	if err := c.store.Save(doc); err != nil {
		c.logger.Error("persisting state failed", "error", err)
		c.sink.Record(Diagnostic{Kind: KindPersistenceFailure, Detail: err.Error()})
	}
}
