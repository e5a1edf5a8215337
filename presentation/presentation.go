// Package presentation implements the two-stage model predicting whether a
// peptide is detected by mass spectrometry.
//
// A presentation model combines independently-fit component models, each
// producing named feature columns, with feature expressions over those
// columns and a logistic final predictor over hits vs. decoys. Fitting uses
// two-fold cross-validation when any component model itself requires
// fitting, so no component model ever predicts on rows it was fit on.
package presentation

import (
	"log"
	"os"
	"sort"

	"github.com/pkg/errors"

	"github.com/ignatovmg/mhcflurry/component"
	"github.com/ignatovmg/mhcflurry/decoys"
	"github.com/ignatovmg/mhcflurry/expr"
)

// Warnings is where recoverable data-quality problems (dropped rows,
// mismatched restored expressions) are reported. Tests redirect it with
// SetOutput.
var Warnings = log.New(os.Stderr, "presentation: ", log.LstdFlags)

var (
	// ErrAlreadyFit is returned when Fit or RestoreFit is called on a model
	// that has already been fit.
	ErrAlreadyFit = errors.New("presentation model has already been fit")
	// ErrNotFit is returned when a model is asked to predict or score before
	// being fit.
	ErrNotFit = errors.New("presentation model has not been fit")
	// ErrEnsembleUnimplemented is returned by the ensemble fitting path,
	// which is present in the interface but deliberately unimplemented.
	ErrEnsembleUnimplemented = errors.New("ensemble fitting is not implemented")
)

// ColumnCollisionError reports overlapping column names between two component
// models at construction time.
type ColumnCollisionError struct {
	Column string
}

func (e ColumnCollisionError) Error() string {
	return "component models declare overlapping column name: " + e.Column
}

// Model predicts mass-spec detection of peptides. Construct with New, fit
// exactly once with Fit, then share read-only across any number of Predict
// and Score calls.
type Model struct {
	components  []component.Model
	expressions []string
	evaluator   *expr.Evaluator
	strategy    decoys.Strategy
	predictor   *LogisticRegression

	seed         int64
	ensembleSize int

	requiresFitting bool

	// Populated by Fit or RestoreFit. One entry per fold: two in two-fold
	// mode, one otherwise.
	trained    [][]component.Model
	predictors []*LogisticRegression

	fitExperiments []string
}

// Option configures a Model at construction.
type Option func(*Model)

// WithSeed sets the random state used for fold assignment and makes refits
// reproducible: identical seeds reuse identical folds, which is what lets
// component-model caches hit across presentation models sharing components.
func WithSeed(seed int64) Option {
	return func(m *Model) { m.seed = seed }
}

// WithEnsembleSize requests the ensemble fitting path. The path fails with
// ErrEnsembleUnimplemented; the option exists to keep the contract explicit.
func WithEnsembleSize(size int) Option {
	return func(m *Model) { m.ensembleSize = size }
}

// WithPredictor replaces the default final predictor prototype.
func WithPredictor(lr *LogisticRegression) Option {
	return func(m *Model) { m.predictor = lr }
}

// New creates an unfit presentation model. At least one feature expression is
// required, and the component models must declare pairwise disjoint column
// names; overlap fails here with a ColumnCollisionError, before any fitting
// is attempted.
func New(components []component.Model, expressions []string, strategy decoys.Strategy, opts ...Option) (*Model, error) {
	if len(expressions) == 0 {
		return nil, errors.New("presentation model requires at least one feature expression")
	}
	var columns []string
	requiresFitting := false
	for _, c := range components {
		columns = append(columns, c.ColumnNames()...)
		if c.RequiresFitting() {
			requiresFitting = true
		}
	}

	sorted := append([]string(nil), columns...)
	sort.Strings(sorted)
	for i := 1; i < len(sorted); i++ {
		if sorted[i] == sorted[i-1] {
			return nil, ColumnCollisionError{Column: sorted[i]}
		}
	}

	evaluator, err := expr.New(expressions, columns)
	if err != nil {
		return nil, err
	}

	m := &Model{
		components:      components,
		expressions:     expressions,
		evaluator:       evaluator,
		strategy:        strategy,
		predictor:       NewLogisticRegression(),
		requiresFitting: requiresFitting,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Clone returns a fresh unfit model with this model's configuration.
// Component-model instances are shared, so their prediction caches carry
// over; trained state does not.
func (m *Model) Clone() (*Model, error) {
	return New(m.components, m.expressions, m.strategy,
		WithSeed(m.seed),
		WithEnsembleSize(m.ensembleSize),
		WithPredictor(m.predictor))
}

// HasBeenFit reports whether the model has been fit (or restored).
func (m *Model) HasBeenFit() bool {
	return m.fitExperiments != nil
}

// FitExperiments returns the sorted experiment names seen during fitting.
func (m *Model) FitExperiments() []string {
	return m.fitExperiments
}

// FeatureExpressions returns the configured feature expressions.
func (m *Model) FeatureExpressions() []string {
	return m.expressions
}

// folds returns the number of stored (component set, predictor) pairs the
// model holds once fit.
func (m *Model) folds() int {
	if m.requiresFitting {
		return 2
	}
	return 1
}

// ResetCache invalidates the prediction caches of all component models,
// including trained per-fold clones.
func (m *Model) ResetCache() {
	for _, c := range m.components {
		c.ResetCache()
	}
	for _, fold := range m.trained {
		for _, c := range fold {
			c.ResetCache()
		}
	}
}
