// Package match ranks identity averages by similarity to one respondent.
package match

import (
	"fmt"
	"math"
	"polcomp/internal/model"
	"sort"
)

// Distance exponents. Per-axis rankings use a sharper falloff.
const (
	OverallPower = 1.0
	AxisPower    = 1.5
)

// Similarity returns 1 / (1 + Σ|a[axis] - b[axis]|^power) over axes.
func Similarity(a, b model.AxisScores, axes []model.Axis, power float64) float64 {
	dist := 0.0
	for _, axis := range axes {
		dist += math.Pow(math.Abs(a[axis]-b[axis]), power)
	}
	return 1 / (1 + dist)
}

// Rank returns an "overall" ranking plus one ranking per axis, each holding
// every identity, most similar first. Ties keep identity name order.
func Rank(respondent model.AxisScores, averages map[string]model.AxisScores) (model.Matches, error) {
	if problems := respondent.Check(); len(problems) > 0 {
		return nil, &model.ValidationError{Entity: "respondent scores", Errors: problems}
	}

	identities := make([]string, 0, len(averages))
	for identity, avg := range averages {
		if problems := avg.Check(); len(problems) > 0 {
			return nil, &model.ValidationError{Entity: fmt.Sprintf("average for %q", identity), Errors: problems}
		}
		identities = append(identities, identity)
	}
	sort.Strings(identities)

	out := make(model.Matches, len(model.Axes)+1)
	out[model.OverallRanking] = rank(identities, func(id string) float64 {
		return Similarity(respondent, averages[id], model.Axes, OverallPower)
	})
	for _, axis := range model.Axes {
		only := []model.Axis{axis}
		out[string(axis)] = rank(identities, func(id string) float64 {
			return Similarity(respondent, averages[id], only, AxisPower)
		})
	}
	return out, nil
}

// Empty is the ranking returned when no average table is available.
func Empty() model.Matches {
	return model.Matches{model.OverallRanking: []model.Match{}}
}

func rank(identities []string, score func(string) float64) []model.Match {
	ranked := make([]model.Match, len(identities))
	for i, id := range identities {
		ranked[i] = model.Match{Identity: id, Similarity: score(id)}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Similarity > ranked[j].Similarity
	})
	return ranked
}
