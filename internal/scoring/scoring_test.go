package scoring

import (
	"errors"
	"math/rand"
	"polcomp/internal/model"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeScoresBalancedAnswers(t *testing.T) {
	weights := model.WeightTable{
		1: {model.AxisSociety: 0.5},
		2: {model.AxisSociety: 0.5},
	}

	assert.Equal(t, 2.0, MaxMagnitude(weights)[model.AxisSociety])

	scores, err := ComputeScores(model.AnswerSet{1: 2, 2: -2}, weights)
	require.NoError(t, err)
	assert.Equal(t, 0.0, scores[model.AxisSociety])
	assert.Len(t, scores, len(model.Axes))
}

func TestComputeScoresExtremes(t *testing.T) {
	weights := model.WeightTable{
		1: {model.AxisEconomics: 1, model.AxisState: -0.5},
		2: {model.AxisEconomics: -0.25, model.AxisState: 0.75},
		3: {model.AxisEconomics: 0.5},
	}

	scores, err := ComputeScores(model.AnswerSet{1: 2, 2: -2, 3: 2}, weights)
	require.NoError(t, err)
	assert.Equal(t, 1.0, scores[model.AxisEconomics])
	assert.Equal(t, -1.0, scores[model.AxisState])

	scores, err = ComputeScores(model.AnswerSet{1: 1, 2: 0, 3: 0}, weights)
	require.NoError(t, err)
	// 1 / (2 + 0.5 + 1) = 0.2857...
	assert.Equal(t, 0.29, scores[model.AxisEconomics])
}

func TestComputeScoresErrors(t *testing.T) {
	weights := model.WeightTable{
		1: {model.AxisSociety: 1},
		2: {model.AxisSociety: 1},
	}

	tests := []struct {
		name    string
		answers model.AnswerSet
		target  error
	}{
		{name: "missing answer", answers: model.AnswerSet{1: 1}, target: model.ErrMissingAnswer},
		{name: "extra answer", answers: model.AnswerSet{1: 1, 2: 1, 3: 1}, target: model.ErrValidation},
		{name: "value out of range", answers: model.AnswerSet{1: 3, 2: 1}, target: model.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scores, err := ComputeScores(tt.answers, weights)
			require.Error(t, err)
			assert.Nil(t, scores)
			assert.True(t, errors.Is(err, tt.target), "got %v", err)
		})
	}

	var missing *model.MissingAnswerError
	_, err := ComputeScores(model.AnswerSet{}, weights)
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, []int{1, 2}, missing.QuestionIDs)
}

func TestComputeScoresStaysInRangeAndIsPure(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	weights := model.WeightTable{}
	for q := 1; q <= 40; q++ {
		w := map[model.Axis]float64{}
		for _, a := range model.Axes {
			w[a] = rng.Float64()*2 - 1
		}
		weights[q] = w
	}

	for i := 0; i < 200; i++ {
		answers := model.AnswerSet{}
		for q := range weights {
			answers[q] = rng.Intn(5) - 2
		}

		first, err := ComputeScores(answers, weights)
		require.NoError(t, err)
		second, err := ComputeScores(answers, weights)
		require.NoError(t, err)
		assert.Equal(t, first, second)

		for _, a := range model.Axes {
			assert.GreaterOrEqual(t, first[a], -1.0)
			assert.LessOrEqual(t, first[a], 1.0)
		}
	}
}

func TestComputeScoresUnweightedAxis(t *testing.T) {
	weights := model.WeightTable{1: {model.AxisReligion: 0.3}}
	scores, err := ComputeScores(model.AnswerSet{1: -1}, weights)
	require.NoError(t, err)
	assert.Equal(t, -0.5, scores[model.AxisReligion])
	assert.Equal(t, 0.0, scores[model.AxisTechnology])
}
