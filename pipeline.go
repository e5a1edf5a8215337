// Package mhcflurry provides a framework for constructing reproducible
// peptide-presentation experiments: building presentation models from shared
// terms, fitting them against curated mass-spec hits, and scoring them with
// rank-based metrics.
package mhcflurry

import (
	"sort"
	"strings"

	"github.com/cheggaaa/pb/v3"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/ignatovmg/mhcflurry/component"
	"github.com/ignatovmg/mhcflurry/dataset"
	"github.com/ignatovmg/mhcflurry/decoys"
	"github.com/ignatovmg/mhcflurry/presentation"
)

// Term associates component models with the feature expressions computed
// over their output columns. Terms are named (e.g. "A_ms") and combined into
// formulas.
type Term struct {
	Models      []component.Model
	Expressions []string
}

// BuildPresentationModels expands formulas over shared terms into one unfit
// presentation model per formula. A formula is a string of term names joined
// by "+", e.g. "A_ms + A_cleavage + A_expression". Component-model instances
// are shared between the resulting models, which is what makes their
// prediction caches effective across models fit to the same data.
//
// Each model consumes its own decoy strategy during fitting, so a factory is
// taken rather than a single strategy instance.
func BuildPresentationModels(
	terms map[string]Term,
	formulas []string,
	strategy func() decoys.Strategy,
	opts ...presentation.Option,
) (map[string]*presentation.Model, error) {
	models := make(map[string]*presentation.Model, len(formulas))
	for _, formula := range formulas {
		var (
			components  []component.Model
			expressions []string
		)
		seen := make(map[component.Model]bool)
		for _, name := range strings.Split(formula, "+") {
			term, ok := terms[strings.TrimSpace(name)]
			if !ok {
				return nil, errors.Errorf("formula %q references undefined term %q", formula, strings.TrimSpace(name))
			}
			for _, c := range term.Models {
				if !seen[c] {
					seen[c] = true
					components = append(components, c)
				}
			}
			expressions = append(expressions, term.Expressions...)
		}

		model, err := presentation.New(components, expressions, strategy(), opts...)
		if err != nil {
			return nil, errors.Wrapf(err, "building model for formula %q", formula)
		}
		models[formula] = model
	}
	return models, nil
}

// Result is the scored outcome of one formula in a pipeline run.
type Result struct {
	RunID   string
	Formula string
	Score   presentation.ScoreResult
}

// Pipeline fits and scores a set of presentation models. Each model is an
// independent instance, so fitting fans out across them; the fit/predict
// path of any single model stays single-threaded.
type Pipeline struct {
	// Models maps formula to the unfit model built for it.
	Models map[string]*presentation.Model
	// TrainHits is the curated hits table used for fitting.
	TrainHits *dataset.Peptides
	// TestHits is the held-out hits table used for scoring.
	TestHits *dataset.Peptides
	// ScoreStrategy builds the decoy strategy used to assemble each
	// model's scoring table.
	ScoreStrategy func() decoys.Strategy
	// Parallelism bounds how many models fit concurrently. Zero means one
	// at a time.
	Parallelism int
	// Progress enables a terminal progress bar across models.
	Progress bool
}

// Run fits every model on the training hits and scores it on the test hits.
// Results are ordered by formula.
func (p *Pipeline) Run() ([]Result, error) {
	if p.TrainHits == nil {
		return nil, errors.New("pipeline has no training hits")
	}
	if p.TestHits == nil {
		return nil, errors.New("pipeline has no test hits")
	}

	runID := uuid.New().String()

	formulas := make([]string, 0, len(p.Models))
	for formula := range p.Models {
		formulas = append(formulas, formula)
	}
	sort.Strings(formulas)

	var bar *pb.ProgressBar
	if p.Progress {
		bar = pb.StartNew(len(formulas))
	}

	results := make([]Result, len(formulas))
	g := new(errgroup.Group)
	limit := p.Parallelism
	if limit < 1 {
		limit = 1
	}
	g.SetLimit(limit)

	for i, formula := range formulas {
		i, formula := i, formula
		g.Go(func() error {
			model := p.Models[formula]
			// Models restored from a fit artifact arrive already fit and are
			// scored as-is.
			if !model.HasBeenFit() {
				if err := model.Fit(p.TrainHits); err != nil {
					return errors.Wrapf(err, "fitting %q", formula)
				}
			}
			score, err := model.ScoreWithDecoys(p.TestHits, p.ScoreStrategy())
			if err != nil {
				return errors.Wrapf(err, "scoring %q", formula)
			}
			results[i] = Result{RunID: runID, Formula: formula, Score: score}
			if bar != nil {
				bar.Increment()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if bar != nil {
		bar.Finish()
	}
	return results, nil
}
