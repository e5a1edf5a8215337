package dataset_test

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/ignatovmg/mhcflurry/dataset"
)

func table(t *testing.T) *dataset.Peptides {
	t.Helper()
	p, err := dataset.NewPeptides(
		[]string{"exp1", "exp1", "exp2"},
		[]string{"SIINFEKL", "AAAWYLWEV", "KILGFVFJV"})
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func TestNewPeptidesLengthMismatch(t *testing.T) {
	_, err := dataset.NewPeptides([]string{"exp1"}, []string{"A", "B"})
	if !errors.Is(err, dataset.ErrLengthMismatch) {
		t.Fatalf("got %v, want ErrLengthMismatch", err)
	}
}

func TestHitsMissing(t *testing.T) {
	p := table(t)
	_, err := p.Hits()
	var missing dataset.MissingColumnError
	if !errors.As(err, &missing) {
		t.Fatalf("got %v, want MissingColumnError", err)
	}
	if missing.Column != dataset.ColumnHit {
		t.Fatalf("got column %q, want %q", missing.Column, dataset.ColumnHit)
	}
}

func TestSelect(t *testing.T) {
	p := table(t)
	if err := p.SetHits([]bool{true, false, true}); err != nil {
		t.Fatal(err)
	}
	if err := p.SetColumn("affinity", []float64{10, 20, 30}); err != nil {
		t.Fatal(err)
	}

	sub := p.Select([]int{2, 0})
	if sub.Len() != 2 {
		t.Fatalf("got %d rows, want 2", sub.Len())
	}
	if sub.Peptide(0) != "KILGFVFJV" || sub.Peptide(1) != "SIINFEKL" {
		t.Fatal("rows selected out of order")
	}
	hits, err := sub.Hits()
	if err != nil {
		t.Fatal(err)
	}
	if !hits[0] || !hits[1] {
		t.Fatal("hit labels not carried through selection")
	}
	col, ok := sub.Column("affinity")
	if !ok {
		t.Fatal("feature column not carried through selection")
	}
	if col[0] != 30 || col[1] != 10 {
		t.Fatalf("got column %v", col)
	}
	if !reflect.DeepEqual(sub.Peptides(), []string{"KILGFVFJV", "SIINFEKL"}) {
		t.Fatalf("got peptides %v", sub.Peptides())
	}
}

func TestConcatLabelMismatch(t *testing.T) {
	labelled := table(t)
	if err := labelled.SetHits([]bool{true, false, true}); err != nil {
		t.Fatal(err)
	}
	if _, err := labelled.Concat(table(t)); err == nil {
		t.Fatal("expected error concatenating labelled with unlabelled")
	}
}

func TestExperiments(t *testing.T) {
	p := table(t)
	experiments := p.Experiments()
	if len(experiments) != 2 || experiments[0] != "exp1" || experiments[1] != "exp2" {
		t.Fatalf("got %v", experiments)
	}
}

func TestFingerprint(t *testing.T) {
	a := table(t)
	b := table(t)
	if a.Fingerprint() != b.Fingerprint() {
		t.Fatal("identical tables must share a fingerprint")
	}

	// Feature columns are derived data and must not change the fingerprint.
	if err := b.SetColumn("affinity", []float64{1, 2, 3}); err != nil {
		t.Fatal(err)
	}
	if a.Fingerprint() != b.Fingerprint() {
		t.Fatal("feature columns must not affect the fingerprint")
	}

	if err := b.SetHits([]bool{true, false, false}); err != nil {
		t.Fatal(err)
	}
	if a.Fingerprint() == b.Fingerprint() {
		t.Fatal("hit labels must affect the fingerprint")
	}
}

func TestReadHits(t *testing.T) {
	csv := strings.NewReader(
		"peptide,experiment_name,hit\nSIINFEKL,exp1,true\nAAAWYLWEV,exp1,false\n")
	p, err := dataset.ReadHits(csv)
	if err != nil {
		t.Fatal(err)
	}
	if p.Len() != 2 {
		t.Fatalf("got %d rows, want 2", p.Len())
	}
	hits, err := p.Hits()
	if err != nil {
		t.Fatal(err)
	}
	if !hits[0] || hits[1] {
		t.Fatalf("got hits %v", hits)
	}
}

func TestReadHitsMissingColumn(t *testing.T) {
	csv := strings.NewReader("peptide\nSIINFEKL\n")
	_, err := dataset.ReadHits(csv)
	var missing dataset.MissingColumnError
	if !errors.As(err, &missing) {
		t.Fatalf("got %v, want MissingColumnError", err)
	}
	if missing.Column != dataset.ColumnExperimentName {
		t.Fatalf("got column %q, want %q", missing.Column, dataset.ColumnExperimentName)
	}
}
