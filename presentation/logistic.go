package presentation

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
)

// LogisticRegression is the final predictor discriminating hits from decoys
// on the evaluated feature columns.
type LogisticRegression struct {
	// L2 is the ridge penalty applied to the weights (not the bias).
	L2 float64

	Weights []float64
	Bias    float64
}

// NewLogisticRegression creates an untrained predictor with a default ridge
// penalty.
func NewLogisticRegression() *LogisticRegression {
	return &LogisticRegression{L2: 1e-4}
}

func (lr *LogisticRegression) clone() *LogisticRegression {
	return &LogisticRegression{L2: lr.L2}
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}

// logOnePlusExp computes log(1+e^z) without overflowing for large z.
func logOnePlusExp(z float64) float64 {
	if z > 0 {
		return z + math.Log1p(math.Exp(-z))
	}
	return math.Log1p(math.Exp(z))
}

// Fit minimises the L2-regularised negative log-likelihood with gonum's
// optimizer. Labels are 0 or 1.
func (lr *LogisticRegression) Fit(x *mat.Dense, y []float64) error {
	rows, cols := x.Dims()
	if rows != len(y) {
		return errors.Errorf("design matrix has %d rows for %d labels", rows, len(y))
	}
	if rows == 0 {
		return errors.New("cannot fit predictor on an empty training set")
	}

	// Parameter vector layout: [bias, w_0 .. w_{cols-1}].
	problem := optimize.Problem{
		Func: func(p []float64) float64 {
			nll := 0.0
			for i := 0; i < rows; i++ {
				z := p[0]
				for j := 0; j < cols; j++ {
					z += p[j+1] * x.At(i, j)
				}
				nll += logOnePlusExp(z) - y[i]*z
			}
			for j := 0; j < cols; j++ {
				nll += 0.5 * lr.L2 * p[j+1] * p[j+1]
			}
			return nll
		},
		Grad: func(grad, p []float64) {
			for j := range grad {
				grad[j] = 0
			}
			for i := 0; i < rows; i++ {
				z := p[0]
				for j := 0; j < cols; j++ {
					z += p[j+1] * x.At(i, j)
				}
				r := sigmoid(z) - y[i]
				grad[0] += r
				for j := 0; j < cols; j++ {
					grad[j+1] += r * x.At(i, j)
				}
			}
			for j := 0; j < cols; j++ {
				grad[j+1] += lr.L2 * p[j+1]
			}
		},
	}

	initial := make([]float64, cols+1)
	result, err := optimize.Minimize(problem, initial, nil, nil)
	if err != nil {
		return errors.Wrap(err, "fitting final predictor")
	}

	lr.Bias = result.X[0]
	lr.Weights = append([]float64(nil), result.X[1:]...)
	return nil
}

// PredictProba returns the probability of the positive class for each row.
func (lr *LogisticRegression) PredictProba(x *mat.Dense) ([]float64, error) {
	if lr.Weights == nil {
		return nil, errors.New("predictor has not been fit")
	}
	rows, cols := x.Dims()
	if cols != len(lr.Weights) {
		return nil, errors.Errorf("design matrix has %d columns, predictor has %d weights", cols, len(lr.Weights))
	}
	out := make([]float64, rows)
	for i := 0; i < rows; i++ {
		z := lr.Bias
		for j := 0; j < cols; j++ {
			z += lr.Weights[j] * x.At(i, j)
		}
		out[i] = sigmoid(z)
	}
	return out, nil
}
