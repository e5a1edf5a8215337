// Package expr compiles and evaluates feature expressions over
// component-model output columns.
//
// Expressions use CEL syntax with every component column declared as a
// double-typed variable and a small set of math functions (log, log1p, exp,
// sqrt) bound in. Compiling at construction time means no code is ever
// executed from an expression string at fit or predict time beyond the
// checked program.
package expr

import (
	"math"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/pkg/errors"

	"github.com/ignatovmg/mhcflurry/dataset"
)

// Evaluator holds one compiled program per feature expression.
type Evaluator struct {
	expressions []string
	columns     []string
	programs    []cel.Program
}

func unary(name string, f func(float64) float64) cel.EnvOption {
	return cel.Function(name,
		cel.Overload(name+"_double", []*cel.Type{cel.DoubleType}, cel.DoubleType,
			cel.UnaryBinding(func(v ref.Val) ref.Val {
				d, ok := v.(types.Double)
				if !ok {
					return types.NewErr("%s expects a double", name)
				}
				return types.Double(f(float64(d)))
			})))
}

// New compiles the given expressions against the declared column names. Every
// column is a double variable; an expression referencing an undeclared
// identifier fails here, not at evaluation time.
func New(expressions, columns []string) (*Evaluator, error) {
	opts := []cel.EnvOption{
		unary("log", math.Log),
		unary("log1p", math.Log1p),
		unary("exp", math.Exp),
		unary("sqrt", math.Sqrt),
	}
	for _, col := range columns {
		opts = append(opts, cel.Variable(col, cel.DoubleType))
	}
	env, err := cel.NewEnv(opts...)
	if err != nil {
		return nil, errors.Wrap(err, "creating expression environment")
	}

	programs := make([]cel.Program, len(expressions))
	for i, expression := range expressions {
		ast, issues := env.Compile(expression)
		if issues != nil && issues.Err() != nil {
			return nil, errors.Wrapf(issues.Err(), "compiling expression %q", expression)
		}
		program, err := env.Program(ast)
		if err != nil {
			return nil, errors.Wrapf(err, "planning expression %q", expression)
		}
		programs[i] = program
	}

	return &Evaluator{
		expressions: expressions,
		columns:     append([]string(nil), columns...),
		programs:    programs,
	}, nil
}

// Expressions returns the expression strings in evaluation order.
func (e *Evaluator) Expressions() []string {
	return e.expressions
}

// Evaluate produces one row-aligned output column per expression. The table
// must carry every declared column. Missing values (NaN) pass through for the
// caller to drop; evaluation failures name the offending expression.
func (e *Evaluator) Evaluate(table *dataset.Peptides) ([][]float64, error) {
	inputs := make(map[string][]float64, len(e.columns))
	for _, col := range e.columns {
		values, ok := table.Column(col)
		if !ok {
			return nil, errors.Errorf("table is missing column %s required by feature expressions", col)
		}
		inputs[col] = values
	}

	out := make([][]float64, len(e.programs))
	for i := range e.programs {
		out[i] = make([]float64, table.Len())
	}

	activation := make(map[string]interface{}, len(e.columns))
	for row := 0; row < table.Len(); row++ {
		for _, col := range e.columns {
			activation[col] = inputs[col][row]
		}
		for i, program := range e.programs {
			val, _, err := program.Eval(activation)
			if err != nil {
				return nil, errors.Wrapf(err, "evaluating expression %q on row %d", e.expressions[i], row)
			}
			switch v := val.Value().(type) {
			case float64:
				out[i][row] = v
			case int64:
				out[i][row] = float64(v)
			default:
				return nil, errors.Errorf("expression %q produced non-numeric value %v", e.expressions[i], val.Value())
			}
		}
	}
	return out, nil
}
