package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/alexflint/go-arg"
	"github.com/peterbourgon/diskv"

	"github.com/ignatovmg/mhcflurry"
	"github.com/ignatovmg/mhcflurry/component"
	"github.com/ignatovmg/mhcflurry/config"
	"github.com/ignatovmg/mhcflurry/dataset"
	"github.com/ignatovmg/mhcflurry/output"
	"github.com/ignatovmg/mhcflurry/presentation"
)

var (
	name    = "presfit"
	version = "31.Aug.2026"
)

type args struct {
	Config      string `help:"experiment configuration to load" arg:"required,positional"`
	TrainHits   string `help:"curated training hits csv" arg:"--train,required"`
	TestHits    string `help:"curated held-out hits csv" arg:"--test,required"`
	Parallelism int    `help:"number of models to fit concurrently" arg:"--parallelism" default:"1"`
	CacheSize   int    `help:"in-memory component prediction cache size in tables" arg:"--cache-size" default:"64"`
	CacheDir    string `help:"directory for a persistent component prediction cache (overrides --cache-size)" arg:"--cache-dir"`
	Format      string `help:"output format (json or tsv)" arg:"--format" default:"json"`
	Progress    bool   `help:"show a progress bar" arg:"--progress"`
	SaveFits    string `help:"directory to write one fit artifact per formula after fitting" arg:"--save-fits"`
	LoadFits    string `help:"directory of fit artifacts to restore instead of fitting" arg:"--load-fits"`
}

func (args) Version() string {
	return fmt.Sprintf("%s %s", name, version)
}

func (args) Description() string {
	return "fits presentation models over curated mass-spec hits and reports PPV scores"
}

func readHits(path string) (*dataset.Peptides, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return dataset.ReadHits(f)
}

// artifactPath flattens a formula into a filename, e.g.
// "A_ms + A_expression" -> "A_ms+A_expression.fit".
func artifactPath(dir, formula string) string {
	return filepath.Join(dir, strings.ReplaceAll(formula, " ", "")+".fit")
}

func saveFits(dir string, models map[string]*presentation.Model) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for formula, model := range models {
		artifact, err := model.GetFit()
		if err != nil {
			return err
		}
		encoded, err := artifact.Encode()
		if err != nil {
			return err
		}
		if err := os.WriteFile(artifactPath(dir, formula), encoded, 0o644); err != nil {
			return err
		}
	}
	return nil
}

func loadFits(dir string, models map[string]*presentation.Model) error {
	for formula, model := range models {
		encoded, err := os.ReadFile(artifactPath(dir, formula))
		if err != nil {
			return err
		}
		artifact, err := presentation.DecodeArtifact(encoded)
		if err != nil {
			return err
		}
		if err := model.RestoreFit(artifact); err != nil {
			return err
		}
	}
	return nil
}

func main() {
	var args args
	arg.MustParse(&args)

	var formatter output.EvaluationFormatter
	switch args.Format {
	case "json":
		formatter = output.JSONEvaluationFormatter
	case "tsv":
		formatter = output.TSVEvaluationFormatter
	default:
		fmt.Fprintf(os.Stderr, "unknown format %q\n", args.Format)
		os.Exit(1)
	}

	f, err := os.Open(args.Config)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	cfg, err := config.Load(f)
	f.Close()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	trainHits, err := readHits(args.TrainHits)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	testHits, err := readHits(args.TestHits)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	var cache component.Cache
	if args.CacheDir != "" {
		cache = component.NewDiskvCache(diskv.New(diskv.Options{
			BasePath:     args.CacheDir,
			CacheSizeMax: 1024 * 1024 * 256,
		}))
	} else {
		cache, err = component.NewLRUCache(args.CacheSize)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
	terms, err := cfg.BuildTerms(cache)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	models, err := mhcflurry.BuildPresentationModels(
		terms, cfg.Formulas, cfg.Strategy(),
		presentation.WithSeed(cfg.Seed))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if args.LoadFits != "" {
		if err := loadFits(args.LoadFits, models); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}

	pipeline := mhcflurry.Pipeline{
		Models:        models,
		TrainHits:     trainHits,
		TestHits:      testHits,
		ScoreStrategy: cfg.Strategy(),
		Parallelism:   args.Parallelism,
		Progress:      args.Progress,
	}
	results, err := pipeline.Run()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if args.SaveFits != "" {
		if err := saveFits(args.SaveFits, models); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}

	scores := make(map[string]presentation.ScoreResult, len(results))
	for _, r := range results {
		scores[r.Formula] = r.Score
	}
	s, err := formatter(scores)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println(s)
}
