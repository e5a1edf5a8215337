package presentation

import (
	"fmt"
	"testing"

	"github.com/ignatovmg/mhcflurry/dataset"
)

func foldTable(t *testing.T, experiments []string) *dataset.Peptides {
	t.Helper()
	peptides := make([]string, len(experiments))
	for i := range peptides {
		peptides[i] = fmt.Sprintf("PEPTIDE%03d", i)
	}
	p, err := dataset.NewPeptides(experiments, peptides)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func TestStratifiedFoldsNonEmpty(t *testing.T) {
	cases := [][]string{
		{"exp1", "exp1", "exp2", "exp2"},
		{"exp1", "exp1", "exp1", "exp2"},
		{"exp1", "exp2", "exp3", "exp4"},
		{"exp1", "exp1", "exp1", "exp1", "exp2", "exp2", "exp3"},
	}
	for _, experiments := range cases {
		folds, err := stratifiedFolds(foldTable(t, experiments), 0)
		if err != nil {
			t.Fatalf("%v: %v", experiments, err)
		}
		if len(folds[0]) == 0 || len(folds[1]) == 0 {
			t.Fatalf("%v: empty fold: %v", experiments, folds)
		}
		if len(folds[0])+len(folds[1]) != len(experiments) {
			t.Fatalf("%v: folds do not cover the table: %v", experiments, folds)
		}
		seen := make(map[int]bool)
		for _, fold := range folds {
			for _, row := range fold {
				if seen[row] {
					t.Fatalf("%v: row %d in both folds", experiments, row)
				}
				seen[row] = true
			}
		}
	}
}

func TestStratifiedFoldsDeterministic(t *testing.T) {
	experiments := []string{"exp1", "exp1", "exp1", "exp2", "exp2", "exp3"}
	a, err := stratifiedFolds(foldTable(t, experiments), 42)
	if err != nil {
		t.Fatal(err)
	}
	b, err := stratifiedFolds(foldTable(t, experiments), 42)
	if err != nil {
		t.Fatal(err)
	}
	for f := 0; f < 2; f++ {
		if len(a[f]) != len(b[f]) {
			t.Fatalf("fold %d sizes differ: %v vs %v", f, a, b)
		}
		for i := range a[f] {
			if a[f][i] != b[f][i] {
				t.Fatalf("fold %d differs under the same seed: %v vs %v", f, a, b)
			}
		}
	}
}

func TestStratifiedFoldsTooFewRows(t *testing.T) {
	if _, err := stratifiedFolds(foldTable(t, []string{"exp1"}), 0); err == nil {
		t.Fatal("expected error splitting a single row")
	}
}
