package stategrid

import (
	"testing"
)

func TestExportWorkbook(t *testing.T) {
	result := 20.0
	doc := Document{
		Tables: []Table{{
			ID:       "t1",
			Position: Point{X: 0, Y: 0},
			Data: []Row{
				{ID: 1, Name: "x", Value: 10.0, Type: RowTypeNumber},
				{ID: 2, Name: "y", Type: RowTypeFormula, Formula: "x*2", Result: &result},
			},
		}},
		Transitions: []Transition{{ID: "tr1", FromID: "t1", ToID: "t2", Text: "go"}},
	}

	f, err := ExportWorkbook(doc)
	if err != nil {
		t.Fatalf("ExportWorkbook: %v", err)
	}
	defer f.Close()

	// header row carries the table id
	if got, _ := f.GetCellValue("Table1", "B1"); got != "t1" {
		t.Errorf("Table1!B1 = %q, want t1", got)
	}
	if got, _ := f.GetCellValue("Table1", "A3"); got != "x" {
		t.Errorf("Table1!A3 = %q, want x", got)
	}
	if got, _ := f.GetCellValue("Table1", "D4"); got != "20" {
		t.Errorf("Table1!D4 = %q, want 20", got)
	}

	if got, _ := f.GetCellValue("Transitions", "B2"); got != "t1" {
		t.Errorf("Transitions!B2 = %q, want t1", got)
	}
	if got, _ := f.GetCellValue("Transitions", "D2"); got != "go" {
		t.Errorf("Transitions!D2 = %q, want go", got)
	}

	// the default sheet is dropped once real sheets exist
	for _, name := range f.GetSheetList() {
		if name == "Sheet1" {
			t.Errorf("default sheet still present: %v", f.GetSheetList())
		}
	}
}

func TestExportWorkbookEmptyDocument(t *testing.T) {
	f, err := ExportWorkbook(Document{})
	if err != nil {
		t.Fatalf("ExportWorkbook: %v", err)
	}
	defer f.Close()

	// an empty document keeps the default sheet so the workbook stays valid
	if len(f.GetSheetList()) != 1 {
		t.Errorf("sheets = %v, want just the default", f.GetSheetList())
	}
}
