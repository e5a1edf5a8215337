// Package dataset provides the column-oriented peptide tables consumed by
// component models and presentation models.
package dataset

import (
	"hash/fnv"
	"sort"
	"strconv"

	"github.com/pkg/errors"
	"github.com/xtgo/set"
)

// Column names required on every peptides table.
const (
	ColumnExperimentName = "experiment_name"
	ColumnPeptide        = "peptide"
	ColumnHit            = "hit"
)

// ErrLengthMismatch is returned when columns of differing lengths are combined
// into one table.
var ErrLengthMismatch = errors.New("columns have mismatched lengths")

// MissingColumnError reports a required column absent from an input table.
type MissingColumnError struct {
	Column string
}

func (e MissingColumnError) Error() string {
	return "missing required column: " + e.Column
}

// Peptides is a table of peptide observations. Each row is one
// (experiment_name, peptide) pair, optionally labelled with a hit flag and
// extended with named float64 feature columns.
type Peptides struct {
	experiments []string
	peptides    []string
	hits        []bool

	cols  map[string][]float64
	order []string
}

// NewPeptides creates a table from aligned experiment_name and peptide columns.
func NewPeptides(experiments, peptides []string) (*Peptides, error) {
	if experiments == nil {
		return nil, MissingColumnError{Column: ColumnExperimentName}
	}
	if peptides == nil {
		return nil, MissingColumnError{Column: ColumnPeptide}
	}
	if len(experiments) != len(peptides) {
		return nil, errors.Wrapf(ErrLengthMismatch, "%d experiment names, %d peptides", len(experiments), len(peptides))
	}
	return &Peptides{
		experiments: experiments,
		peptides:    peptides,
		cols:        make(map[string][]float64),
	}, nil
}

// Len returns the number of rows.
func (p *Peptides) Len() int {
	return len(p.peptides)
}

// ExperimentName returns the experiment name of row i.
func (p *Peptides) ExperimentName(i int) string {
	return p.experiments[i]
}

// Peptide returns the peptide sequence of row i.
func (p *Peptides) Peptide(i int) string {
	return p.peptides[i]
}

// Peptides returns the peptide column.
func (p *Peptides) Peptides() []string {
	return p.peptides
}

// SetHits attaches the hit label column.
func (p *Peptides) SetHits(hits []bool) error {
	if len(hits) != p.Len() {
		return errors.Wrapf(ErrLengthMismatch, "%d hits for %d rows", len(hits), p.Len())
	}
	p.hits = hits
	return nil
}

// HasHits reports whether the table carries hit labels.
func (p *Peptides) HasHits() bool {
	return p.hits != nil
}

// Hits returns the hit label column, or a MissingColumnError if the table is
// unlabelled.
func (p *Peptides) Hits() ([]bool, error) {
	if p.hits == nil {
		return nil, MissingColumnError{Column: ColumnHit}
	}
	return p.hits, nil
}

// SetColumn attaches a named float64 column, replacing any previous column
// with the same name.
func (p *Peptides) SetColumn(name string, values []float64) error {
	if len(values) != p.Len() {
		return errors.Wrapf(ErrLengthMismatch, "column %s has %d values for %d rows", name, len(values), p.Len())
	}
	if _, ok := p.cols[name]; !ok {
		p.order = append(p.order, name)
	}
	p.cols[name] = values
	return nil
}

// Column returns the named float64 column.
func (p *Peptides) Column(name string) ([]float64, bool) {
	c, ok := p.cols[name]
	return c, ok
}

// Columns returns the names of the attached float64 columns in insertion order.
func (p *Peptides) Columns() []string {
	return p.order
}

// Select returns a new table containing the rows at the given indices, in
// order. Attached columns and hit labels are carried over.
func (p *Peptides) Select(rows []int) *Peptides {
	out := &Peptides{
		experiments: make([]string, len(rows)),
		peptides:    make([]string, len(rows)),
		cols:        make(map[string][]float64, len(p.cols)),
		order:       append([]string(nil), p.order...),
	}
	for i, r := range rows {
		out.experiments[i] = p.experiments[r]
		out.peptides[i] = p.peptides[r]
	}
	if p.hits != nil {
		out.hits = make([]bool, len(rows))
		for i, r := range rows {
			out.hits[i] = p.hits[r]
		}
	}
	for name, col := range p.cols {
		sub := make([]float64, len(rows))
		for i, r := range rows {
			sub[i] = col[r]
		}
		out.cols[name] = sub
	}
	return out
}

// Concat appends the rows of other to a copy of p. Only the experiment,
// peptide and hit columns are carried; feature columns are dropped since they
// are recomputed after assembly. Both tables must be labelled, or neither.
func (p *Peptides) Concat(other *Peptides) (*Peptides, error) {
	if p.HasHits() != other.HasHits() {
		return nil, errors.New("cannot concatenate a labelled table with an unlabelled one")
	}
	out := &Peptides{
		experiments: make([]string, 0, p.Len()+other.Len()),
		peptides:    make([]string, 0, p.Len()+other.Len()),
		cols:        make(map[string][]float64),
	}
	out.experiments = append(append(out.experiments, p.experiments...), other.experiments...)
	out.peptides = append(append(out.peptides, p.peptides...), other.peptides...)
	if p.hits != nil {
		out.hits = make([]bool, 0, p.Len()+other.Len())
		out.hits = append(append(out.hits, p.hits...), other.hits...)
	}
	return out, nil
}

// Experiments returns the sorted set of distinct experiment names.
func (p *Peptides) Experiments() []string {
	s := append([]string(nil), p.experiments...)
	sort.Strings(s)
	n := set.Uniq(sort.StringSlice(s))
	return s[:n]
}

// Fingerprint hashes the experiment, peptide and hit columns of the table.
// Feature columns are excluded: they are derived data. Component-model
// prediction caches key on this value, so two tables with identical rows share
// cache entries.
func (p *Peptides) Fingerprint() uint64 {
	h := fnv.New64a()
	for i := range p.peptides {
		h.Write([]byte(p.experiments[i]))
		h.Write([]byte{0})
		h.Write([]byte(p.peptides[i]))
		h.Write([]byte{0})
		if p.hits != nil && p.hits[i] {
			h.Write([]byte{1})
		}
		h.Write([]byte{0xff})
	}
	return h.Sum64()
}

// String summarises the table shape.
func (p *Peptides) String() string {
	return "peptides[" + strconv.Itoa(p.Len()) + " rows, " +
		strconv.Itoa(len(p.cols)) + " feature columns]"
}
