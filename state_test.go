package stategrid

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// memStore is an in-memory Store with injectable failures
type memStore struct {
	doc     Document
	saves   int
	saveErr error
	loadErr error
}

func (m *memStore) Save(doc Document) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.doc = doc
	m.saves++
	return nil
}

func (m *memStore) Load() (Document, error) {
	if m.loadErr != nil {
		return Document{}, m.loadErr
	}
	return m.doc, nil
}

// seqIDs returns a deterministic id generator: id-1, id-2, ...
func seqIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

// ContainerTestCase drives a container through events and checks state,
// stopping at the first failure
type ContainerTestCase struct {
	t         *testing.T
	name      string
	container *Container
	store     *memStore
	sink      *CollectingSink
}

func NewContainerTestCase(t *testing.T, name string) *ContainerTestCase {
	store := &memStore{}
	sink := &CollectingSink{}
	return &ContainerTestCase{
		t:         t,
		name:      name,
		container: NewContainer(store, WithSink(sink), WithIDGenerator(seqIDs())),
		store:     store,
		sink:      sink,
	}
}

func (tc *ContainerTestCase) CreateTable(rows ...Row) *ContainerTestCase {
	tc.container.OpenDialog("")
	tc.container.SaveState(rows)
	return tc
}

func (tc *ContainerTestCase) EditTable(id string, rows ...Row) *ContainerTestCase {
	tc.container.OpenDialog(id)
	tc.container.SaveState(rows)
	return tc
}

func (tc *ContainerTestCase) ExpectTables(n int) *ContainerTestCase {
	if got := len(tc.container.Tables()); got != n {
		tc.t.Fatalf("%s: have %d tables, want %d", tc.name, got, n)
	}
	return tc
}

func (tc *ContainerTestCase) ExpectTransitions(n int) *ContainerTestCase {
	if got := len(tc.container.Transitions()); got != n {
		tc.t.Fatalf("%s: have %d transitions, want %d", tc.name, got, n)
	}
	return tc
}

func TestContainerCreateTable(t *testing.T) {
	tc := NewContainerTestCase(t, "create")
	tc.CreateTable(numberRow(1, "x", 10)).ExpectTables(1).ExpectTransitions(0)

	table := tc.container.Tables()[0]
	if table.ID != "id-1" {
		t.Errorf("table id = %q, want id-1", table.ID)
	}
	want := Point{X: defaultTableX, Y: defaultTableY}
	if table.Position != want {
		t.Errorf("table position = %v, want %v", table.Position, want)
	}
	if tc.container.Mode() != ModeIdle {
		t.Errorf("container not idle after save")
	}
	if tc.store.saves != 1 {
		t.Errorf("save count = %d, want 1", tc.store.saves)
	}
}

func TestContainerSaveLinksNewTable(t *testing.T) {
	// editing an existing table spawns a linked table: the transition's
	// ToID must be the actual new table's id, generated once
	tc := NewContainerTestCase(t, "link")
	tc.CreateTable(numberRow(1, "x", 10))
	source := tc.container.Tables()[0]

	tc.EditTable(source.ID,
		numberRow(1, "x", 10),
		Row{ID: 2, Name: "y", Type: RowTypeFormula, Formula: "x*2"},
	).ExpectTables(2).ExpectTransitions(1)

	created := tc.container.Tables()[1]
	wantPos := Point{X: source.Position.X + dialogTableOffsetX, Y: source.Position.Y}
	if created.Position != wantPos {
		t.Errorf("new table position = %v, want %v", created.Position, wantPos)
	}

	if created.Data[1].Result == nil || *created.Data[1].Result != 20 {
		t.Errorf("formula row result = %v, want 20", created.Data[1].Result)
	}

	tr := tc.container.Transitions()[0]
	if tr.FromID != source.ID {
		t.Errorf("transition FromID = %q, want %q", tr.FromID, source.ID)
	}
	if tr.ToID != created.ID {
		t.Errorf("transition ToID = %q, want the created table id %q", tr.ToID, created.ID)
	}
	if tr.ID == created.ID {
		t.Errorf("transition id must differ from the table id")
	}
}

func TestContainerDeleteTableRemovesTransitions(t *testing.T) {
	tc := NewContainerTestCase(t, "delete")
	tc.CreateTable(numberRow(1, "x", 1))
	a := tc.container.Tables()[0]
	tc.EditTable(a.ID, numberRow(1, "x", 2))
	b := tc.container.Tables()[1]
	tc.EditTable(b.ID, numberRow(1, "x", 3))
	tc.ExpectTables(3).ExpectTransitions(2)

	tc.container.DeleteTable(b.ID)
	tc.ExpectTables(2).ExpectTransitions(0)

	for _, tr := range tc.container.Transitions() {
		if tr.FromID == b.ID || tr.ToID == b.ID {
			t.Errorf("transition %q still references deleted table", tr.ID)
		}
	}
}

func TestContainerMoveTable(t *testing.T) {
	tc := NewContainerTestCase(t, "move")
	tc.CreateTable(numberRow(1, "x", 1))
	id := tc.container.Tables()[0].ID

	tc.container.MoveTable(id, Point{X: 300, Y: 250})
	if got := tc.container.Tables()[0].Position; got != (Point{X: 300, Y: 250}) {
		t.Errorf("position = %v after move", got)
	}
	if tc.store.saves != 2 {
		t.Errorf("move must persist, save count = %d", tc.store.saves)
	}
}

func TestContainerUpdateTransition(t *testing.T) {
	tc := NewContainerTestCase(t, "label")
	tc.CreateTable(numberRow(1, "x", 1))
	a := tc.container.Tables()[0]
	tc.EditTable(a.ID, numberRow(1, "x", 2))
	tr := tc.container.Transitions()[0]

	saves := tc.store.saves
	tc.container.UpdateTransition(tr.ID, "on success")

	if got := tc.container.Transitions()[0].Text; got != "on success" {
		t.Errorf("transition text = %q", got)
	}
	// label edits ride along with the next persisting mutation
	if tc.store.saves != saves {
		t.Errorf("UpdateTransition persisted on its own")
	}
}

func TestContainerModeGating(t *testing.T) {
	tc := NewContainerTestCase(t, "gating")
	tc.CreateTable(numberRow(1, "x", 1))
	id := tc.container.Tables()[0].ID

	// SaveState outside the dialog is ignored
	tc.container.SaveState([]Row{numberRow(1, "y", 2)})
	tc.ExpectTables(1)

	// canvas mutations are ignored while the dialog is open
	tc.container.OpenDialog("")
	tc.container.MoveTable(id, Point{X: 9, Y: 9})
	tc.container.DeleteTable(id)
	tc.ExpectTables(1)
	if got := tc.container.Tables()[0].Position; got == (Point{X: 9, Y: 9}) {
		t.Errorf("MoveTable applied while dialog open")
	}

	// a second OpenDialog cannot clobber the selection
	tc.container.CloseDialog()
	tc.container.OpenDialog(id)
	tc.container.OpenDialog("")
	if got := tc.container.SelectedTableID(); got != id {
		t.Errorf("selected table = %q, want %q", got, id)
	}

	tc.container.CloseDialog()
	if tc.container.SelectedTableID() != "" || tc.container.Mode() != ModeIdle {
		t.Errorf("CloseDialog must clear selection and return to idle")
	}
}

func TestContainerShapes(t *testing.T) {
	tc := NewContainerTestCase(t, "shapes")

	tc.container.AddShape(Shape{Type: ShapeRectangle, Position: Point{X: 5, Y: 5}, Size: Size{Width: 40, Height: 20}})
	tc.container.AddShape(Shape{Type: ShapeText, Text: "legend"})

	shapes := tc.container.Shapes()
	if len(shapes) != 2 {
		t.Fatalf("have %d shapes, want 2", len(shapes))
	}
	if shapes[0].ID == "" || shapes[1].ID == "" {
		t.Errorf("shapes must get ids assigned")
	}

	tc.container.MoveShape(shapes[0].ID, Point{X: 50, Y: 60})
	if got := tc.container.Shapes()[0].Position; got != (Point{X: 50, Y: 60}) {
		t.Errorf("shape position = %v after move", got)
	}

	tc.container.RemoveShape(shapes[0].ID)
	if got := tc.container.Shapes(); len(got) != 1 || got[0].Text != "legend" {
		t.Errorf("shapes after removal = %v", got)
	}

	// shapes persist with the rest of the document
	if len(tc.store.doc.Shapes) != 1 {
		t.Errorf("persisted shapes = %v", tc.store.doc.Shapes)
	}
}

func TestContainerPersistFailureIsSwallowed(t *testing.T) {
	tc := NewContainerTestCase(t, "persist-failure")
	tc.store.saveErr = errors.New("disk full")

	tc.CreateTable(numberRow(1, "x", 1))

	// the mutation still applies; the failure is a diagnostic only
	tc.ExpectTables(1)
	if len(tc.sink.ByKind(KindPersistenceFailure)) == 0 {
		t.Errorf("want a persistence-failure diagnostic, got %v", tc.sink.Diagnostics)
	}
}

func TestContainerLoadRecalculates(t *testing.T) {
	store := &memStore{doc: Document{
		Tables: []Table{{
			ID:       "t1",
			Position: Point{X: 10, Y: 10},
			Data: []Row{
				numberRow(1, "x", 6),
				{ID: 2, Name: "y", Type: RowTypeFormula, Formula: "x * 7"},
			},
		}},
	}}

	c := NewContainer(store)
	c.Load()

	rows := c.Tables()[0].Data
	if rows[1].Result == nil || *rows[1].Result != 42 {
		t.Errorf("loaded formula row result = %v, want 42", rows[1].Result)
	}
}

func TestContainerLoadFailureDegradesToEmpty(t *testing.T) {
	store := &memStore{loadErr: errors.New("corrupt")}
	sink := &CollectingSink{}

	c := NewContainer(store, WithSink(sink))
	c.Load()

	if len(c.Tables()) != 0 || len(c.Transitions()) != 0 {
		t.Errorf("load failure must degrade to empty state")
	}
	if len(sink.ByKind(KindPersistenceFailure)) != 1 {
		t.Errorf("want a persistence-failure diagnostic, got %v", sink.Diagnostics)
	}
}

func TestContainerPersistedResultsAreFresh(t *testing.T) {
	tc := NewContainerTestCase(t, "fresh-results")
	tc.CreateTable(
		numberRow(1, "base", 3),
		Row{ID: 2, Name: "tripled", Type: RowTypeFormula, Formula: "base * 3"},
	)

	persisted := tc.store.doc.Tables[0].Data
	if persisted[1].Result == nil || *persisted[1].Result != 9 {
		t.Errorf("persisted result = %v, want 9", persisted[1].Result)
	}
}

func TestContainerSnapshotsAreCopies(t *testing.T) {
	tc := NewContainerTestCase(t, "snapshots")
	tc.CreateTable(numberRow(1, "x", 1))

	snapshot := tc.container.Tables()
	snapshot[0].Position = Point{X: -1, Y: -1}
	snapshot[0].Data[0].Name = "mutated"

	fresh := tc.container.Tables()
	if fresh[0].Position == (Point{X: -1, Y: -1}) || fresh[0].Data[0].Name == "mutated" {
		t.Errorf("snapshot mutation leaked into container state")
	}
}

func TestContainerScenarioDialogFlow(t *testing.T) {
	// the end-to-end flow: create A with x=10, edit A adding y=x*2,
	// expect B at A+(500,0) with y=20 and a transition A->B
	tc := NewContainerTestCase(t, "scenario")
	tc.CreateTable(numberRow(1, "x", 10))
	a := tc.container.Tables()[0]

	tc.container.OpenDialog(a.ID)
	tc.container.SaveState([]Row{
		numberRow(1, "x", 10),
		{ID: 2, Name: "y", Type: RowTypeFormula, Formula: "x*2"},
	})

	tables := tc.container.Tables()
	if len(tables) != 2 {
		t.Fatalf("have %d tables, want 2", len(tables))
	}
	b := tables[1]

	wantPos := Point{X: a.Position.X + 500, Y: a.Position.Y}
	if b.Position != wantPos {
		t.Errorf("B position = %v, want %v", b.Position, wantPos)
	}
	if b.Data[1].Result == nil || *b.Data[1].Result != 20 {
		t.Errorf("B row y result = %v, want 20", b.Data[1].Result)
	}

	want := []Transition{{ID: "id-3", FromID: a.ID, ToID: b.ID}}
	if diff := cmp.Diff(want, tc.container.Transitions()); diff != "" {
		t.Errorf("transitions mismatch (-want +got):\n%s", diff)
	}
}
