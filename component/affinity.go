package component

import (
	"sort"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"

	"github.com/ignatovmg/mhcflurry/dataset"
)

// Column names produced by the affinity model.
const (
	ColumnAffinity               = "affinity"
	ColumnAffinityPercentileRank = "affinity_percentile_rank"
)

// DefaultAffinityNM is the affinity assigned to peptides without a
// measurement. 50000 nM is the conventional non-binder ceiling.
const DefaultAffinityNM = 50000.0

type affinityParams struct {
	Measurements map[string]float64
	DefaultNM    float64
}

// Affinity produces binding-affinity feature columns from a table of measured
// IC50 values. It does not require fitting: measurements are supplied at
// construction, and percentile ranks are computed against their empirical
// distribution.
type Affinity struct {
	params    affinityParams
	reference []float64
	key       string
	cache     Cache
}

// NewAffinity creates an affinity model over measured IC50 values (nM) keyed
// by peptide. Unmeasured peptides receive DefaultAffinityNM.
func NewAffinity(measurements map[string]float64, cache Cache) *Affinity {
	if cache == nil {
		cache = NewMapCache()
	}
	m := &Affinity{
		params: affinityParams{
			Measurements: measurements,
			DefaultNM:    DefaultAffinityNM,
		},
		cache: cache,
	}
	m.rebuildReference()
	return m
}

func (m *Affinity) rebuildReference() {
	m.reference = make([]float64, 0, len(m.params.Measurements))
	for _, nm := range m.params.Measurements {
		m.reference = append(m.reference, nm)
	}
	sort.Float64s(m.reference)
	m.key = instanceKey(m.Name(), []float64{m.params.DefaultNM}, m.params.Measurements)
}

func (m *Affinity) Name() string { return "affinity" }

func (m *Affinity) ColumnNames() []string {
	return []string{ColumnAffinity, ColumnAffinityPercentileRank}
}

func (m *Affinity) RequiresFitting() bool { return false }

func (m *Affinity) CloneAndFit(hits *dataset.Peptides) (Model, error) {
	return m, nil
}

func (m *Affinity) Predict(peptides *dataset.Peptides) (map[string][]float64, error) {
	key := Key{Model: m.key, Table: peptides.Fingerprint()}
	if columns, err := m.cache.Get(key); err == nil {
		return columns, nil
	}

	affinities := make([]float64, peptides.Len())
	ranks := make([]float64, peptides.Len())
	for i := 0; i < peptides.Len(); i++ {
		nm, ok := m.params.Measurements[peptides.Peptide(i)]
		if !ok {
			nm = m.params.DefaultNM
		}
		affinities[i] = nm
		ranks[i] = m.percentileRank(nm)
	}

	columns := map[string][]float64{
		ColumnAffinity:               affinities,
		ColumnAffinityPercentileRank: ranks,
	}
	if err := checkAligned(m, peptides, columns); err != nil {
		return nil, err
	}
	if err := m.cache.Set(key, columns); err != nil {
		return nil, errors.Wrap(err, "caching affinity predictions")
	}
	return columns, nil
}

// percentileRank places nm within the empirical measurement distribution,
// in [0, 100]. Lower affinity values (stronger binders) rank lower.
func (m *Affinity) percentileRank(nm float64) float64 {
	if len(m.reference) == 0 {
		return 100
	}
	return stat.CDF(nm, stat.Empirical, m.reference, nil) * 100
}

func (m *Affinity) GetFit() (Fit, error) {
	return EncodeFit(m.Name(), m.params)
}

func (m *Affinity) RestoreFit(fit Fit) (Model, error) {
	var params affinityParams
	if err := DecodeFit(m.Name(), fit, &params); err != nil {
		return nil, err
	}
	restored := &Affinity{params: params, cache: m.cache}
	restored.rebuildReference()
	return restored, nil
}

func (m *Affinity) ResetCache() {
	m.cache.Reset()
}
