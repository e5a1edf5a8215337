package component

import (
	"math"

	"github.com/pkg/errors"

	"github.com/ignatovmg/mhcflurry/dataset"
)

// ColumnCleavageScore is the column name produced by the cleavage model.
const ColumnCleavageScore = "cleavage_score"

// aminoAcids is the canonical residue alphabet.
const aminoAcids = "ACDEFGHIKLMNPQRSTVWY"

// ErrNotFit is returned when a model that requires fitting is asked to
// predict before CloneAndFit.
var ErrNotFit = errors.New("component model has not been fit")

type cleavageParams struct {
	// Log-odds of observing each residue at the N and C termini of a hit,
	// relative to a uniform background.
	NTerm map[string]float64
	CTerm map[string]float64
}

// Cleavage scores how amenable a peptide's termini are to proteasomal
// cleavage. It requires fitting: terminal residue propensities are learned
// from the training hits of each fold.
type Cleavage struct {
	params *cleavageParams
	key    string
	cache  Cache
}

func cleavageKey(params *cleavageParams) string {
	return instanceKey("cleavage", nil, params.NTerm, params.CTerm)
}

// NewCleavage creates an unfit cleavage model.
func NewCleavage(cache Cache) *Cleavage {
	if cache == nil {
		cache = NewMapCache()
	}
	return &Cleavage{cache: cache}
}

func (m *Cleavage) Name() string { return "cleavage" }

func (m *Cleavage) ColumnNames() []string {
	return []string{ColumnCleavageScore}
}

func (m *Cleavage) RequiresFitting() bool { return true }

// CloneAndFit learns terminal residue log-odds from the training hits, with
// add-one smoothing against a uniform background.
func (m *Cleavage) CloneAndFit(hits *dataset.Peptides) (Model, error) {
	if hits.Len() == 0 {
		return nil, errors.New("cleavage model requires at least one training hit")
	}

	nCounts := make(map[string]float64, len(aminoAcids))
	cCounts := make(map[string]float64, len(aminoAcids))
	for _, r := range aminoAcids {
		nCounts[string(r)] = 1
		cCounts[string(r)] = 1
	}
	total := float64(hits.Len() + len(aminoAcids))
	for i := 0; i < hits.Len(); i++ {
		p := hits.Peptide(i)
		if len(p) == 0 {
			continue
		}
		nCounts[p[:1]]++
		cCounts[p[len(p)-1:]]++
	}

	background := 1.0 / float64(len(aminoAcids))
	params := &cleavageParams{
		NTerm: make(map[string]float64, len(aminoAcids)),
		CTerm: make(map[string]float64, len(aminoAcids)),
	}
	for _, r := range aminoAcids {
		aa := string(r)
		params.NTerm[aa] = math.Log(nCounts[aa] / total / background)
		params.CTerm[aa] = math.Log(cCounts[aa] / total / background)
	}

	return &Cleavage{params: params, key: cleavageKey(params), cache: m.cache}, nil
}

func (m *Cleavage) Predict(peptides *dataset.Peptides) (map[string][]float64, error) {
	if m.params == nil {
		return nil, errors.Wrap(ErrNotFit, m.Name())
	}
	key := Key{Model: m.key, Table: peptides.Fingerprint()}
	if columns, err := m.cache.Get(key); err == nil {
		return columns, nil
	}

	scores := make([]float64, peptides.Len())
	for i := 0; i < peptides.Len(); i++ {
		p := peptides.Peptide(i)
		if len(p) == 0 {
			continue
		}
		scores[i] = m.params.NTerm[p[:1]] + m.params.CTerm[p[len(p)-1:]]
	}

	columns := map[string][]float64{ColumnCleavageScore: scores}
	if err := checkAligned(m, peptides, columns); err != nil {
		return nil, err
	}
	if err := m.cache.Set(key, columns); err != nil {
		return nil, errors.Wrap(err, "caching cleavage predictions")
	}
	return columns, nil
}

func (m *Cleavage) GetFit() (Fit, error) {
	if m.params == nil {
		return Fit{}, errors.Wrap(ErrNotFit, m.Name())
	}
	return EncodeFit(m.Name(), m.params)
}

func (m *Cleavage) RestoreFit(fit Fit) (Model, error) {
	var params cleavageParams
	if err := DecodeFit(m.Name(), fit, &params); err != nil {
		return nil, err
	}
	return &Cleavage{params: &params, key: cleavageKey(&params), cache: m.cache}, nil
}

func (m *Cleavage) ResetCache() {
	m.cache.Reset()
}
