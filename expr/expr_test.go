package expr_test

import (
	"math"
	"reflect"
	"testing"

	"github.com/ignatovmg/mhcflurry/dataset"
	"github.com/ignatovmg/mhcflurry/expr"
)

func table(t *testing.T, columns map[string][]float64) *dataset.Peptides {
	t.Helper()
	n := 0
	for _, col := range columns {
		n = len(col)
		break
	}
	experiments := make([]string, n)
	peptides := make([]string, n)
	for i := 0; i < n; i++ {
		experiments[i] = "exp1"
		peptides[i] = "SIINFEKL"
	}
	p, err := dataset.NewPeptides(experiments, peptides)
	if err != nil {
		t.Fatal(err)
	}
	for name, col := range columns {
		if err := p.SetColumn(name, col); err != nil {
			t.Fatal(err)
		}
	}
	return p
}

func TestEvaluate(t *testing.T) {
	e, err := expr.New(
		[]string{"log(affinity + 0.001)", "expression * 2.0"},
		[]string{"affinity", "expression"})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(e.Expressions(), []string{"log(affinity + 0.001)", "expression * 2.0"}) {
		t.Fatalf("got expressions %v", e.Expressions())
	}

	out, err := e.Evaluate(table(t, map[string][]float64{
		"affinity":   {1, math.E},
		"expression": {0.5, 2},
	}))
	if err != nil {
		t.Fatal(err)
	}

	if len(out) != 2 || len(out[0]) != 2 {
		t.Fatalf("got shape %dx%d", len(out), len(out[0]))
	}
	if math.Abs(out[0][0]-math.Log(1.001)) > 1e-12 {
		t.Fatalf("got %v", out[0][0])
	}
	if out[1][0] != 1 || out[1][1] != 4 {
		t.Fatalf("got %v", out[1])
	}
}

func TestUndeclaredColumnFailsAtCompile(t *testing.T) {
	_, err := expr.New([]string{"log(cleavage_score)"}, []string{"affinity"})
	if err == nil {
		t.Fatal("expected compile error for undeclared identifier")
	}
}

func TestMalformedExpressionFailsAtCompile(t *testing.T) {
	_, err := expr.New([]string{"log(affinity"}, []string{"affinity"})
	if err == nil {
		t.Fatal("expected compile error for malformed expression")
	}
}

func TestMissingValuesPassThrough(t *testing.T) {
	// log of a negative is NaN: callers drop such rows, the evaluator must
	// not fail.
	e, err := expr.New([]string{"log(affinity)"}, []string{"affinity"})
	if err != nil {
		t.Fatal(err)
	}
	out, err := e.Evaluate(table(t, map[string][]float64{"affinity": {-1, 1}}))
	if err != nil {
		t.Fatal(err)
	}
	if !math.IsNaN(out[0][0]) {
		t.Fatalf("got %v, want NaN", out[0][0])
	}
	if out[0][1] != 0 {
		t.Fatalf("got %v, want 0", out[0][1])
	}
}

func TestEvaluateMissingTableColumn(t *testing.T) {
	e, err := expr.New([]string{"affinity"}, []string{"affinity"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := e.Evaluate(table(t, map[string][]float64{"other": {1}})); err == nil {
		t.Fatal("expected error for table missing a declared column")
	}
}

func TestMathFunctions(t *testing.T) {
	e, err := expr.New(
		[]string{"log1p(x)", "exp(x)", "sqrt(x)"},
		[]string{"x"})
	if err != nil {
		t.Fatal(err)
	}
	out, err := e.Evaluate(table(t, map[string][]float64{"x": {4}}))
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(out[0][0]-math.Log1p(4)) > 1e-12 {
		t.Fatalf("log1p: got %v", out[0][0])
	}
	if math.Abs(out[1][0]-math.Exp(4)) > 1e-9 {
		t.Fatalf("exp: got %v", out[1][0])
	}
	if out[2][0] != 2 {
		t.Fatalf("sqrt: got %v", out[2][0])
	}
}
