package component_test

import (
	"testing"

	"github.com/peterbourgon/diskv"

	"github.com/ignatovmg/mhcflurry/component"
	"github.com/ignatovmg/mhcflurry/dataset"
)

// recordingCache wraps a backend and records the keys written to it.
type recordingCache struct {
	component.Cache
	sets []component.Key
}

func (c *recordingCache) Set(key component.Key, columns map[string][]float64) error {
	c.sets = append(c.sets, key)
	return c.Cache.Set(key, columns)
}

func peptides(t *testing.T, seqs ...string) *dataset.Peptides {
	t.Helper()
	experiments := make([]string, len(seqs))
	for i := range experiments {
		experiments[i] = "exp1"
	}
	p, err := dataset.NewPeptides(experiments, seqs)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func TestAffinityPredict(t *testing.T) {
	m := component.NewAffinity(map[string]float64{
		"SIINFEKL":  50,
		"AAAWYLWEV": 500,
		"KILGFVFJV": 5000,
	}, nil)

	table := peptides(t, "SIINFEKL", "KILGFVFJV", "UNMEASURED")
	columns, err := m.Predict(table)
	if err != nil {
		t.Fatal(err)
	}

	affinities := columns[component.ColumnAffinity]
	if affinities[0] != 50 || affinities[1] != 5000 {
		t.Fatalf("got affinities %v", affinities)
	}
	if affinities[2] != component.DefaultAffinityNM {
		t.Fatalf("unmeasured peptide got %v, want default", affinities[2])
	}

	ranks := columns[component.ColumnAffinityPercentileRank]
	if !(ranks[0] < ranks[1]) {
		t.Fatalf("stronger binder must rank lower: %v", ranks)
	}
	if ranks[2] != 100 {
		t.Fatalf("unmeasured peptide got rank %v, want 100", ranks[2])
	}
}

func TestAffinityCacheHit(t *testing.T) {
	cache := &recordingCache{Cache: component.NewMapCache()}
	m := component.NewAffinity(map[string]float64{"SIINFEKL": 50}, cache)

	table := peptides(t, "SIINFEKL")
	first, err := m.Predict(table)
	if err != nil {
		t.Fatal(err)
	}
	if len(cache.sets) != 1 {
		t.Fatalf("prediction was written to the cache %d times, want 1", len(cache.sets))
	}

	key := cache.sets[0]
	if key.Table != table.Fingerprint() {
		t.Fatalf("cache key carries table %x, want %x", key.Table, table.Fingerprint())
	}
	cached, err := cache.Get(key)
	if err != nil {
		t.Fatalf("prediction was not cached: %v", err)
	}
	if cached[component.ColumnAffinity][0] != first[component.ColumnAffinity][0] {
		t.Fatal("cached prediction differs")
	}

	m.ResetCache()
	if _, err := cache.Get(key); err != component.ErrCacheMiss {
		t.Fatalf("got %v, want ErrCacheMiss after reset", err)
	}
}

func TestSharedCacheSeparatesInstances(t *testing.T) {
	// Two models of the same type with different parameters share one cache
	// backend, as they do when a single cache is wired into every configured
	// component. Neither may serve the other's cached columns.
	cache := component.NewMapCache()
	a := component.NewAffinity(map[string]float64{"SIINFEKL": 50}, cache)
	b := component.NewAffinity(map[string]float64{"SIINFEKL": 5000}, cache)

	table := peptides(t, "SIINFEKL")
	if _, err := a.Predict(table); err != nil {
		t.Fatal(err)
	}
	columns, err := b.Predict(table)
	if err != nil {
		t.Fatal(err)
	}
	if got := columns[component.ColumnAffinity][0]; got != 5000 {
		t.Fatalf("second model served the first model's cached affinity %v, want 5000", got)
	}

	x := component.NewExpression(map[string]float64{"SIINFEKL": 1}, cache)
	y := component.NewExpression(map[string]float64{"SIINFEKL": 30}, cache)
	if _, err := x.Predict(table); err != nil {
		t.Fatal(err)
	}
	expressions, err := y.Predict(table)
	if err != nil {
		t.Fatal(err)
	}
	if got := expressions[component.ColumnExpression][0]; got != 30 {
		t.Fatalf("second model served the first model's cached abundance %v, want 30", got)
	}
}

func TestDiskvCache(t *testing.T) {
	cache := component.NewDiskvCache(diskv.New(diskv.Options{
		BasePath:     t.TempDir(),
		CacheSizeMax: 1 << 20,
	}))

	key := component.Key{Model: "affinity-1a2b", Table: 42}
	if _, err := cache.Get(key); err != component.ErrCacheMiss {
		t.Fatalf("got %v, want ErrCacheMiss for an empty cache", err)
	}

	columns := map[string][]float64{component.ColumnAffinity: {50, 5000}}
	if err := cache.Set(key, columns); err != nil {
		t.Fatal(err)
	}
	cached, err := cache.Get(key)
	if err != nil {
		t.Fatal(err)
	}
	if cached[component.ColumnAffinity][1] != 5000 {
		t.Fatalf("got %v", cached[component.ColumnAffinity])
	}

	if err := cache.Reset(); err != nil {
		t.Fatal(err)
	}
	if _, err := cache.Get(key); err != component.ErrCacheMiss {
		t.Fatalf("got %v, want ErrCacheMiss after reset", err)
	}
}

func TestExpressionFloor(t *testing.T) {
	m := component.NewExpression(map[string]float64{"SIINFEKL": 12.5}, nil)
	columns, err := m.Predict(peptides(t, "SIINFEKL", "UNQUANTIFIED"))
	if err != nil {
		t.Fatal(err)
	}
	values := columns[component.ColumnExpression]
	if values[0] != 12.5 {
		t.Fatalf("got %v, want 12.5", values[0])
	}
	if values[1] != component.DefaultExpressionFloor {
		t.Fatalf("got %v, want floor", values[1])
	}
}

func TestCleavageRequiresFit(t *testing.T) {
	m := component.NewCleavage(nil)
	if !m.RequiresFitting() {
		t.Fatal("cleavage model must require fitting")
	}
	if _, err := m.Predict(peptides(t, "SIINFEKL")); err == nil {
		t.Fatal("expected error predicting with an unfit cleavage model")
	}
}

func TestCleavageFitAndRestore(t *testing.T) {
	m := component.NewCleavage(nil)
	// Hits biased towards leucine at the C terminus.
	hits := peptides(t, "SIINFEKL", "AAAWYLWL", "KILGFVFL", "YLLPAIVL", "RQWFLHEV")

	fit, err := m.CloneAndFit(hits)
	if err != nil {
		t.Fatal(err)
	}

	columns, err := fit.Predict(peptides(t, "AAAAAAAL", "AAAAAAAD"))
	if err != nil {
		t.Fatal(err)
	}
	scores := columns[component.ColumnCleavageScore]
	if !(scores[0] > scores[1]) {
		t.Fatalf("C-terminal leucine should outscore aspartate: %v", scores)
	}

	snapshot, err := fit.GetFit()
	if err != nil {
		t.Fatal(err)
	}
	restored, err := m.RestoreFit(snapshot)
	if err != nil {
		t.Fatal(err)
	}
	again, err := restored.Predict(peptides(t, "AAAAAAAL", "AAAAAAAD"))
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range again[component.ColumnCleavageScore] {
		if v != scores[i] {
			t.Fatalf("restored model predicts %v, want %v", v, scores[i])
		}
	}
}

func TestFitSnapshotNameChecked(t *testing.T) {
	affinity := component.NewAffinity(nil, nil)
	cleavage := component.NewCleavage(nil)

	snapshot, err := affinity.GetFit()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := cleavage.RestoreFit(snapshot); err == nil {
		t.Fatal("expected error restoring an affinity snapshot onto a cleavage model")
	}
}

func TestRegistry(t *testing.T) {
	m, err := component.Build("affinity", map[string]interface{}{
		"measurements": map[string]interface{}{"SIINFEKL": 50.0},
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if m.Name() != "affinity" {
		t.Fatalf("got %q", m.Name())
	}

	if _, err := component.Build("nonexistent", nil, nil); err == nil {
		t.Fatal("expected error for unregistered type")
	}
}
