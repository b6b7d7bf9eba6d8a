package stategrid

import "fmt"

// DiagnosticKind classifies the recoverable failures the engine can hit.
// none of these surface as errors to callers; the evaluator's contract is
// to return 0 and report here instead.
type DiagnosticKind uint8

const (
	// KindUnresolvedReference - formula names a variable no row provides
	KindUnresolvedReference DiagnosticKind = 1
	// KindInvalidExpression - formula contains characters outside the
	// arithmetic subset
	KindInvalidExpression DiagnosticKind = 2
	// KindEvalFailure - formula tokenized but could not be evaluated
	// (unbalanced parentheses, dangling operator)
	KindEvalFailure DiagnosticKind = 3
	// KindCycle - a formula row's references form a cycle
	KindCycle DiagnosticKind = 4
	// KindPersistenceFailure - the backing store failed to read or write
	KindPersistenceFailure DiagnosticKind = 5
	// KindMalformedDate - a stored date string failed to parse on load
	KindMalformedDate DiagnosticKind = 6
)

// kindNames maps diagnostic kinds to their display names
var kindNames = map[DiagnosticKind]string{
	KindUnresolvedReference: "unresolved-reference",
	KindInvalidExpression:   "invalid-expression",
	KindEvalFailure:         "evaluation-failure",
	KindCycle:               "cycle",
	KindPersistenceFailure:  "persistence-failure",
	KindMalformedDate:       "malformed-date",
}

func (k DiagnosticKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Diagnostic records one recovered failure. Formula identifies the
// offending expression for evaluator kinds; Detail carries the
// human-readable cause.
type Diagnostic struct {
	Kind    DiagnosticKind
	Formula string
	Detail  string
}

func (d Diagnostic) String() string {
	if d.Formula == "" {
		return fmt.Sprintf("%s: %s", d.Kind, d.Detail)
	}
	return fmt.Sprintf("%s in %q: %s", d.Kind, d.Formula, d.Detail)
}

// DiagnosticSink receives recovered failures so tests and tooling can
// distinguish "genuinely zero" from "failed to resolve"
type DiagnosticSink interface {
	Record(d Diagnostic)
}

// CollectingSink accumulates diagnostics in order
type CollectingSink struct {
	Diagnostics []Diagnostic
}

func (s *CollectingSink) Record(d Diagnostic) {
	s.Diagnostics = append(s.Diagnostics, d)
}

// ByKind returns the recorded diagnostics of one kind
func (s *CollectingSink) ByKind(kind DiagnosticKind) []Diagnostic {
	var out []Diagnostic
	for _, d := range s.Diagnostics {
		if d.Kind == kind {
			out = append(out, d)
		}
	}
	return out
}

// discardSink drops everything; used when no sink is configured
type discardSink struct{}

func (discardSink) Record(Diagnostic) {}
