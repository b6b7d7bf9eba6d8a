package stategrid

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
	"github.com/spf13/afero"
)

// isoLayout is the fixed ISO-8601 rendering for persisted date values.
// millisecond precision, UTC on write.
const isoLayout = "2006-01-02T15:04:05.000Z07:00"

// Document is the persisted record: the full canvas state under one
// well-known key.
type Document struct {
	Tables      []Table      `json:"stateTables"`
	Transitions []Transition `json:"stateTransitions"`
	Shapes      []Shape      `json:"stateShapes,omitempty"`
}

// Store is the persistence port. Implementations are best-effort
// caches, not durable stores; the container is the layer that decides
// how failures degrade.
type Store interface {
	Save(doc Document) error
	Load() (Document, error)
}

// FileStore persists the document as JSON through an injected
// filesystem, so tests run against an in-memory medium and production
// against the OS.
type FileStore struct {
	fs     afero.Fs
	path   string
	logger hclog.Logger
	sink   DiagnosticSink
}

// NewFileStore creates a store writing to path on fs
func NewFileStore(fs afero.Fs, path string, logger hclog.Logger, sink DiagnosticSink) *FileStore {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	if sink == nil {
		sink = discardSink{}
	}
	return &FileStore{fs: fs, path: path, logger: logger, sink: sink}
}

// Save writes the document. Date-valued rows are converted to the fixed
// ISO-8601 string form before marshaling.
func (s *FileStore) Save(doc Document) error {
	out := Document{
		Tables:      make([]Table, len(doc.Tables)),
		Transitions: append([]Transition(nil), doc.Transitions...),
		Shapes:      append([]Shape(nil), doc.Shapes...),
	}
	for i, t := range doc.Tables {
		out.Tables[i] = Table{ID: t.ID, Position: t.Position, Data: dehydrateRows(t.Data)}
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling document: %w", err)
	}

	if err := afero.WriteFile(s.fs, s.path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", s.path, err)
	}
	return nil
}

// Load reads the document back, rehydrating date-valued rows to
// instants. A missing file is an empty document, not an error. Malformed
// date strings do not fail the load: the row keeps its raw string value
// and the problem is logged and recorded as a diagnostic.
func (s *FileStore) Load() (Document, error) {
	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return Document{}, nil
		}
		return Document{}, fmt.Errorf("reading %s: %w", s.path, err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("unmarshaling %s: %w", s.path, err)
	}

	var hydrationErrs *multierror.Error
	for i := range doc.Tables {
		doc.Tables[i].Data, err = hydrateRows(doc.Tables[i].Data)
		if err != nil {
			hydrationErrs = multierror.Append(hydrationErrs, err)
		}
	}
	if err := hydrationErrs.ErrorOrNil(); err != nil {
		s.logger.Warn("some rows loaded with malformed dates", "error", err)
		s.sink.Record(Diagnostic{Kind: KindMalformedDate, Detail: err.Error()})
	}

	return doc, nil
}

// dehydrateRows converts date instants to their ISO-8601 string form.
// JSON numbers already round-trip; everything else serializes as its
// natural type.
func dehydrateRows(rows []Row) []Row {
	out := cloneRows(rows)
	for i, r := range out {
		if t, ok := r.Value.(time.Time); ok {
			out[i].Value = t.UTC().Format(isoLayout)
		}
	}
	return out
}

// hydrateRows reconstitutes date-typed rows whose value arrived as a
// string. Rows whose strings fail to parse keep the raw string; the
// aggregated error names them all.
func hydrateRows(rows []Row) ([]Row, error) {
	var errs *multierror.Error
	for i, r := range rows {
		if r.Type != RowTypeDate && r.Type != RowTypeDatetime {
			continue
		}
		str, ok := r.Value.(string)
		if !ok {
			continue
		}
		t, err := time.Parse(time.RFC3339, str)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("row %q: unparseable date %q", r.Name, str))
			continue
		}
		rows[i].Value = t
	}
	return rows, errs.ErrorOrNil()
}
