package component

import (
	"github.com/pkg/errors"

	"github.com/ignatovmg/mhcflurry/dataset"
)

// ColumnExpression is the column name produced by the expression model.
const ColumnExpression = "expression"

// DefaultExpressionFloor is the abundance assigned to peptides whose source
// transcript was not quantified. Keeping it above zero lets feature
// expressions take logs without producing missing values.
const DefaultExpressionFloor = 0.01

type expressionParams struct {
	Abundance map[string]float64
	Floor     float64
}

// Expression produces a transcript-abundance feature column (TPM) keyed by
// peptide. It does not require fitting.
type Expression struct {
	params expressionParams
	key    string
	cache  Cache
}

// NewExpression creates an expression model over transcript abundances keyed
// by peptide.
func NewExpression(abundance map[string]float64, cache Cache) *Expression {
	if cache == nil {
		cache = NewMapCache()
	}
	params := expressionParams{Abundance: abundance, Floor: DefaultExpressionFloor}
	return &Expression{
		params: params,
		key:    expressionKey(params),
		cache:  cache,
	}
}

func expressionKey(params expressionParams) string {
	return instanceKey("expression", []float64{params.Floor}, params.Abundance)
}

func (m *Expression) Name() string { return "expression" }

func (m *Expression) ColumnNames() []string {
	return []string{ColumnExpression}
}

func (m *Expression) RequiresFitting() bool { return false }

func (m *Expression) CloneAndFit(hits *dataset.Peptides) (Model, error) {
	return m, nil
}

func (m *Expression) Predict(peptides *dataset.Peptides) (map[string][]float64, error) {
	key := Key{Model: m.key, Table: peptides.Fingerprint()}
	if columns, err := m.cache.Get(key); err == nil {
		return columns, nil
	}

	values := make([]float64, peptides.Len())
	for i := 0; i < peptides.Len(); i++ {
		tpm, ok := m.params.Abundance[peptides.Peptide(i)]
		if !ok || tpm < m.params.Floor {
			tpm = m.params.Floor
		}
		values[i] = tpm
	}

	columns := map[string][]float64{ColumnExpression: values}
	if err := checkAligned(m, peptides, columns); err != nil {
		return nil, err
	}
	if err := m.cache.Set(key, columns); err != nil {
		return nil, errors.Wrap(err, "caching expression predictions")
	}
	return columns, nil
}

func (m *Expression) GetFit() (Fit, error) {
	return EncodeFit(m.Name(), m.params)
}

func (m *Expression) RestoreFit(fit Fit) (Model, error) {
	var params expressionParams
	if err := DecodeFit(m.Name(), fit, &params); err != nil {
		return nil, err
	}
	return &Expression{params: params, key: expressionKey(params), cache: m.cache}, nil
}

func (m *Expression) ResetCache() {
	m.cache.Reset()
}
