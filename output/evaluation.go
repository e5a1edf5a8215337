// Package output provides different formats of output for experiments.
package output

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"github.com/ignatovmg/mhcflurry/presentation"
)

// EvaluationFormatter is used in a pipeline to output scoring results, keyed
// by formula.
type EvaluationFormatter func(results map[string]presentation.ScoreResult) (string, error)

// JSONEvaluationFormatter outputs results in a JSON format.
func JSONEvaluationFormatter(results map[string]presentation.ScoreResult) (string, error) {
	v, err := json.MarshalIndent(results, "", "    ")
	if err != nil {
		return "", err
	}
	return string(v), nil
}

// TSVEvaluationFormatter outputs one tab-separated row per formula, sorted by
// formula.
func TSVEvaluationFormatter(results map[string]presentation.ScoreResult) (string, error) {
	formulas := make([]string, 0, len(results))
	for formula := range results {
		formulas = append(formulas, formula)
	}
	sort.Strings(formulas)

	var b strings.Builder
	b.WriteString("formula\tscore\ttotal_peptides\thit_indices\n")
	for _, formula := range formulas {
		r := results[formula]
		indices := make([]string, len(r.HitIndices))
		for i, idx := range r.HitIndices {
			indices[i] = strconv.FormatFloat(idx, 'g', -1, 64)
		}
		b.WriteString(formula)
		b.WriteByte('\t')
		b.WriteString(strconv.FormatFloat(r.Score, 'f', 4, 64))
		b.WriteByte('\t')
		b.WriteString(strconv.Itoa(r.TotalPeptides))
		b.WriteByte('\t')
		b.WriteString(strings.Join(indices, ","))
		b.WriteByte('\n')
	}
	return b.String(), nil
}
