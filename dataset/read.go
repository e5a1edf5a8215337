package dataset

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/pkg/errors"
)

// ReadHits reads a curated long-format measurement table from CSV. The header
// must contain experiment_name and peptide columns; a hit column, when
// present, is attached as labels. Any other columns are ignored, since
// curation happens upstream of this package.
func ReadHits(r io.Reader) (*Peptides, error) {
	c := csv.NewReader(r)
	header, err := c.Read()
	if err != nil {
		return nil, errors.Wrap(err, "reading csv header")
	}

	idx := map[string]int{}
	for i, name := range header {
		idx[name] = i
	}
	expCol, ok := idx[ColumnExperimentName]
	if !ok {
		return nil, MissingColumnError{Column: ColumnExperimentName}
	}
	pepCol, ok := idx[ColumnPeptide]
	if !ok {
		return nil, MissingColumnError{Column: ColumnPeptide}
	}
	hitCol, labelled := idx[ColumnHit]

	experiments := make([]string, 0)
	peptides := make([]string, 0)
	hits := make([]bool, 0)
	for {
		record, err := c.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "reading csv record")
		}
		experiments = append(experiments, record[expCol])
		peptides = append(peptides, record[pepCol])
		if labelled {
			hit, err := strconv.ParseBool(record[hitCol])
			if err != nil {
				return nil, errors.Wrapf(err, "parsing hit label %q", record[hitCol])
			}
			hits = append(hits, hit)
		}
	}

	table, err := NewPeptides(experiments, peptides)
	if err != nil {
		return nil, err
	}
	if labelled {
		if err := table.SetHits(hits); err != nil {
			return nil, err
		}
	}
	return table, nil
}
