package stategrid

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// ExportWorkbook renders the document as an xlsx workbook: one sheet
// per table (rows as name/type/value/result/output), plus a sheet
// listing the transitions. Table ids are uuids and exceed the sheet
// name limit, so sheets are numbered and carry the id in their header
// row.
func ExportWorkbook(doc Document) (*excelize.File, error) {
	f := excelize.NewFile()

	for i, table := range doc.Tables {
		sheet := fmt.Sprintf("Table%d", i+1)
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, fmt.Errorf("creating sheet %s: %w", sheet, err)
		}

		cells := [][]any{
			{"Table", table.ID, "", "", ""},
			{"Name", "Type", "Value", "Result", "Output"},
		}
		for _, row := range table.Data {
			var result any
			if row.Result != nil {
				result = *row.Result
			}
			cells = append(cells, []any{row.Name, string(row.Type), FormatValue(row), result, row.Output})
		}

		if err := writeSheet(f, sheet, cells); err != nil {
			return nil, err
		}
	}

	if len(doc.Transitions) > 0 {
		sheet := "Transitions"
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, fmt.Errorf("creating sheet %s: %w", sheet, err)
		}

		cells := [][]any{{"ID", "From", "To", "Text"}}
		for _, tr := range doc.Transitions {
			cells = append(cells, []any{tr.ID, tr.FromID, tr.ToID, tr.Text})
		}
		if err := writeSheet(f, sheet, cells); err != nil {
			return nil, err
		}
	}

	// drop the default sheet when we wrote anything at all
	if len(doc.Tables) > 0 || len(doc.Transitions) > 0 {
		if err := f.DeleteSheet("Sheet1"); err != nil {
			return nil, fmt.Errorf("removing default sheet: %w", err)
		}
	}

	return f, nil
}

// writeSheet fills a sheet from a row-major cell grid
func writeSheet(f *excelize.File, sheet string, cells [][]any) error {
	for r, row := range cells {
		for c, value := range row {
			axis, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return fmt.Errorf("bad coordinates (%d,%d): %w", c+1, r+1, err)
			}
			if err := f.SetCellValue(sheet, axis, value); err != nil {
				return fmt.Errorf("writing %s!%s: %w", sheet, axis, err)
			}
		}
	}
	return nil
}
