package stategrid

import "strings"

// Recalculate recomputes Result for every formula-typed row and returns
// a new row slice; all other rows pass through unchanged. It is pure:
// the input slice is never mutated. It is also idempotent, because
// formula inputs are raw stored values and never computed results.
//
// Formula rows are processed in dependency order (precedents first) and
// any reference cycle among them is reported through the diagnostic
// sink as a cycle; the rows in the cycle still evaluate, since their
// inputs are raw values.
func (e *Evaluator) Recalculate(rows []Row, tables []Table) []Row {
	return e.recalculate(rows, tables, func(r Row) bool {
		return r.Type == RowTypeFormula
	})
}

// RecalculateDraft is the editing-dialog variant: any row with a
// non-empty formula is recomputed, whatever its declared type, since one
// row's edited value may be another's input.
func (e *Evaluator) RecalculateDraft(rows []Row, tables []Table) []Row {
	return e.recalculate(rows, tables, func(r Row) bool {
		return r.HasFormula()
	})
}

func (e *Evaluator) recalculate(rows []Row, tables []Table, applies func(Row) bool) []Row {
	out := cloneRows(rows)

	graph := buildRowGraph(rows)
	order, cyclic := graph.TopoOrder()
	if len(cyclic) > 0 {
		detail := "rows form a reference cycle: " + strings.Join(cyclic, ", ")
		e.logger.Warn("dependency cycle detected", "rows", cyclic)
		e.sink.Record(Diagnostic{Kind: KindCycle, Detail: detail})
	}

	// indices of applicable rows, ordered by the topo position of their
	// name; cyclic rows (absent from the order) keep slice order at the
	// end. duplicate names share a position, so slice order breaks ties.
	position := make(map[string]int, len(order))
	for i, name := range order {
		position[name] = i
	}

	var ordered []int
	for i, r := range out {
		if applies(r) {
			ordered = append(ordered, i)
		}
	}
	sortByPosition(ordered, out, position)

	for _, i := range ordered {
		result := e.Evaluate(out[i].Formula, rows, tables)
		out[i].Result = &result
	}

	return out
}

// sortByPosition orders row indices by topo position, keeping slice
// order for equal positions and for rows outside the order
func sortByPosition(indices []int, rows []Row, position map[string]int) {
	pos := func(i int) int {
		if p, ok := position[rows[i].Name]; ok {
			return p
		}
		return len(position) // cyclic or unordered rows go last
	}

	// stable insertion sort; row sets are small
	for i := 1; i < len(indices); i++ {
		for j := i; j > 0 && pos(indices[j]) < pos(indices[j-1]); j-- {
			indices[j], indices[j-1] = indices[j-1], indices[j]
		}
	}
}

// Recalculate recomputes formula rows with a default evaluator. Dialogs
// call this on every cell edit and before commit.
func Recalculate(rows []Row, tables []Table) []Row {
	return NewEvaluator(nil, nil).Recalculate(rows, tables)
}
