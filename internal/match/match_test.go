package match

import (
	"errors"
	"math"
	"polcomp/internal/model"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uniform(v float64) model.AxisScores {
	s := model.AxisScores{}
	for _, a := range model.Axes {
		s[a] = v
	}
	return s
}

func TestRankSizes(t *testing.T) {
	averages := map[string]model.AxisScores{
		"Feminist":         uniform(-0.5),
		"Nationalist":      uniform(0.6),
		"Libertarian":      uniform(0.1),
		"Average Result":   uniform(0),
		"Environmentalist": uniform(-0.3),
	}

	matches, err := Rank(uniform(0.2), averages)
	require.NoError(t, err)

	assert.Len(t, matches, len(model.Axes)+1)
	assert.Len(t, matches[model.OverallRanking], len(averages))
	for _, a := range model.Axes {
		assert.Len(t, matches[string(a)], len(averages), "axis %s", a)
	}
}

func TestRankOrdering(t *testing.T) {
	respondent := uniform(0.2)
	averages := map[string]model.AxisScores{
		"Far":  uniform(-1),
		"Near": uniform(0.25),
		"Mid":  uniform(0.6),
	}

	matches, err := Rank(respondent, averages)
	require.NoError(t, err)

	overall := matches[model.OverallRanking]
	require.Len(t, overall, 3)
	assert.Equal(t, "Near", overall[0].Identity)
	assert.Equal(t, "Mid", overall[1].Identity)
	assert.Equal(t, "Far", overall[2].Identity)

	// 8 axes * 0.05 = 0.4
	assert.InDelta(t, 1/1.4, overall[0].Similarity, 1e-9)

	econ := matches[string(model.AxisEconomics)]
	assert.Equal(t, "Near", econ[0].Identity)
	assert.InDelta(t, 1/(1+math.Pow(0.05, 1.5)), econ[0].Similarity, 1e-9)

	for i := 1; i < len(overall); i++ {
		assert.GreaterOrEqual(t, overall[i-1].Similarity, overall[i].Similarity)
	}
}

func TestRankTiesKeepNameOrder(t *testing.T) {
	averages := map[string]model.AxisScores{
		"Charlie": uniform(0.5),
		"Alpha":   uniform(0.5),
		"Bravo":   uniform(0.5),
	}

	matches, err := Rank(uniform(0), averages)
	require.NoError(t, err)

	var names []string
	for _, m := range matches[model.OverallRanking] {
		names = append(names, m.Identity)
	}
	assert.Equal(t, []string{"Alpha", "Bravo", "Charlie"}, names)
}

func TestRankRejectsMalformed(t *testing.T) {
	missing := uniform(0)
	delete(missing, model.AxisReligion)

	tests := []struct {
		name       string
		respondent model.AxisScores
		averages   map[string]model.AxisScores
	}{
		{"missing respondent axis", missing, map[string]model.AxisScores{"A": uniform(0)}},
		{"NaN respondent", func() model.AxisScores { s := uniform(0); s[model.AxisState] = math.NaN(); return s }(), nil},
		{"unknown axis", func() model.AxisScores { s := uniform(0); s["mood"] = 1; return s }(), nil},
		{"bad average", uniform(0), map[string]model.AxisScores{"A": missing}},
		{"infinite average", uniform(0), map[string]model.AxisScores{"A": func() model.AxisScores { s := uniform(0); s[model.AxisPolitics] = math.Inf(1); return s }()}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Rank(tt.respondent, tt.averages)
			require.Error(t, err)
			assert.True(t, errors.Is(err, model.ErrValidation))
		})
	}
}

func TestRankEmptyTable(t *testing.T) {
	matches, err := Rank(uniform(0), nil)
	require.NoError(t, err)
	assert.Empty(t, matches[model.OverallRanking])
	assert.Equal(t, []model.Match{}, Empty()[model.OverallRanking])
}
