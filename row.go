package stategrid

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// RowType represents the declared type of a row's value (external API)
type RowType string

const (
	RowTypeString     RowType = "string"
	RowTypeNumber     RowType = "number"
	RowTypeDate       RowType = "date"
	RowTypeDatetime   RowType = "datetime"
	RowTypePercentage RowType = "percentage"
	RowTypeFormula    RowType = "formula"
)

// DateFormat selects the display rendering for date-valued rows
type DateFormat string

const (
	DateFormatDate     DateFormat = "date"
	DateFormatDatetime DateFormat = "datetime"
)

// display layouts for date-valued rows
const (
	layoutDate     = "2006-01-02"
	layoutDatetime = "2006-01-02 15:04"
)

// Row is one named, typed value (or formula) within a table.
//
// Value holds a string, a float64, or a time.Time depending on Type.
// Percentage rows store the fraction (0.5 for 50%), not the display
// percentage. Result is set only for rows with a non-empty Formula; for
// all other rows it stays nil.
type Row struct {
	ID         int        `json:"id"`
	Name       string     `json:"name"`
	Value      any        `json:"value"`
	Type       RowType    `json:"type"`
	DateFormat DateFormat `json:"dateFormat,omitempty"`
	Output     string     `json:"output,omitempty"`
	Formula    string     `json:"formula,omitempty"`
	Result     *float64   `json:"result,omitempty"`
}

// HasFormula reports whether the row participates in recalculation.
// the creation dialog allows a formula on any row type, so this checks
// the formula text rather than the declared type.
func (r Row) HasFormula() bool {
	return strings.TrimSpace(r.Formula) != ""
}

// NumericValue returns the row's value coerced to a number for use as a
// formula input. Formula rows contribute their raw stored value, never a
// previously computed result, so stale or circular reads are impossible.
func (r Row) NumericValue() float64 {
	switch r.Type {
	case RowTypeNumber, RowTypePercentage, RowTypeFormula:
		return coerceNumber(r.Value)
	case RowTypeDate, RowTypeDatetime:
		// dates coerce to epoch milliseconds
		if t, ok := r.Value.(time.Time); ok {
			return float64(t.UnixMilli())
		}
		return coerceNumber(r.Value)
	default:
		return coerceNumber(r.Value)
	}
}

// coerceNumber converts an arbitrary stored value to float64, defaulting
// to 0 on parse failure
func coerceNumber(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

// FormatPercent renders a stored fraction as a display percentage,
// e.g. 0.25 -> "25.00%"
func FormatPercent(fraction float64) string {
	return fmt.Sprintf("%.2f%%", fraction*100)
}

// FormatValue renders a row's value for display. Formula rows render
// their computed result when present.
func FormatValue(r Row) string {
	if r.HasFormula() && r.Result != nil {
		return strconv.FormatFloat(*r.Result, 'f', -1, 64)
	}

	switch r.Type {
	case RowTypePercentage:
		return FormatPercent(coerceNumber(r.Value))
	case RowTypeDate, RowTypeDatetime:
		t, ok := r.Value.(time.Time)
		if !ok {
			// malformed dates fall back to the raw stored string
			return fmt.Sprintf("%v", r.Value)
		}
		if r.DateFormat == DateFormatDatetime || r.Type == RowTypeDatetime {
			return t.Format(layoutDatetime)
		}
		return t.Format(layoutDate)
	case RowTypeNumber:
		return strconv.FormatFloat(coerceNumber(r.Value), 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", r.Value)
	}
}

// cloneRows returns a shallow-copied row slice. Rows are value types, so
// a slice copy is enough to keep callers from aliasing container state.
func cloneRows(rows []Row) []Row {
	out := make([]Row, len(rows))
	copy(out, rows)
	return out
}
