package stategrid

import (
	"math"
	"sort"
	"strings"

	"github.com/hashicorp/go-hclog"
)

// Evaluator resolves row-name references in a formula and evaluates the
// resulting arithmetic. It never fails to the caller: every failure
// condition yields 0, with the cause reported to the logger and the
// diagnostic sink. Downstream consumers treat "0" and "cannot resolve"
// identically; the sink exists so tests and tooling do not have to.
type Evaluator struct {
	logger hclog.Logger
	sink   DiagnosticSink
}

// NewEvaluator creates an evaluator. A nil logger or sink falls back to
// a no-op implementation.
func NewEvaluator(logger hclog.Logger, sink DiagnosticSink) *Evaluator {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	if sink == nil {
		sink = discardSink{}
	}
	return &Evaluator{logger: logger, sink: sink}
}

// Evaluate computes a formula against the candidate pool of the local
// rows plus every row of every supplied table. Cross-table references
// are permitted. Returns 0 on any failure.
func (e *Evaluator) Evaluate(formula string, localRows []Row, tables []Table) float64 {
	trimmed := strings.TrimSpace(formula)
	if trimmed == "" {
		return 0
	}

	symbols := e.buildSymbols(localRows, tables)

	tokens, lexErrs := NewLexer(trimmed).Tokenize()
	if len(lexErrs) > 0 {
		e.report(classifyLexError(lexErrs[0]), trimmed, lexErrs[0])
		return 0
	}

	ast, err := NewParser(tokens).Parse()
	if err != nil {
		e.reportErr(trimmed, err)
		return 0
	}

	result, err := ast.Eval(symbols)
	if err != nil {
		e.reportErr(trimmed, err)
		return 0
	}

	if math.IsInf(result, 0) || math.IsNaN(result) {
		// division by zero lands here; the contract is 0, not Inf
		e.logger.Debug("formula produced non-finite result", "formula", trimmed)
		return 0
	}

	return result
}

// buildSymbols builds the name->value table from the candidate pool.
// Candidates are sorted by name length descending before insertion, and
// the table keeps the first value per name, so when one name shadows
// another the longest/most specific one wins. This is the intentional
// precedence rule for colliding row names.
func (e *Evaluator) buildSymbols(localRows []Row, tables []Table) *SymbolTable {
	candidates := make([]Row, 0, len(localRows))
	candidates = append(candidates, localRows...)
	candidates = append(candidates, allRows(tables)...)

	sort.SliceStable(candidates, func(i, j int) bool {
		return len([]rune(candidates[i].Name)) > len([]rune(candidates[j].Name))
	})

	symbols := NewSymbolTable()
	for _, row := range candidates {
		name := strings.TrimSpace(row.Name)
		if name == "" {
			continue
		}
		symbols.Define(name, row.NumericValue())
	}
	return symbols
}

// classifyLexError maps a lex failure to its diagnostic kind. A
// character outside the arithmetic subset is an invalid expression;
// everything else (unbalanced parens, misplaced tokens) is a malformed
// expression caught at evaluation time.
func classifyLexError(msg string) DiagnosticKind {
	if strings.HasPrefix(msg, "unexpected character") {
		return KindInvalidExpression
	}
	return KindEvalFailure
}

func (e *Evaluator) reportErr(formula string, err error) {
	if evalErr, ok := err.(*EvalError); ok {
		e.report(evalErr.Kind, formula, evalErr.Detail)
		return
	}
	e.report(KindEvalFailure, formula, err.Error())
}

func (e *Evaluator) report(kind DiagnosticKind, formula, detail string) {
	switch kind {
	case KindEvalFailure:
		e.logger.Error("formula evaluation failed", "formula", formula, "cause", detail)
	default:
		e.logger.Warn("formula did not resolve", "kind", kind.String(), "formula", formula, "cause", detail)
	}
	e.sink.Record(Diagnostic{Kind: kind, Formula: formula, Detail: detail})
}

// EvaluateFormula computes a formula with a default evaluator. This is
// the surface dialogs call for live preview; recalculation shares the
// same path.
func EvaluateFormula(formula string, localRows []Row, tables []Table) float64 {
	return NewEvaluator(nil, nil).Evaluate(formula, localRows, tables)
}
