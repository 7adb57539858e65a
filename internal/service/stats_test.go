package service

import (
	"polcomp/internal/model"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMedianScores(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   float64
	}{
		{"odd", []float64{0.9, -0.2, 0.1}, 0.1},
		{"even averages the middle pair", []float64{0.4, -0.2, 0.1, 0.8}, 0.25},
		{"single", []float64{-0.33}, -0.33},
		{"rounds", []float64{0.111, 0.114}, 0.11},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var all []model.AxisScores
			for _, v := range tt.values {
				all = append(all, uniformScores(v))
			}
			got := medianScores(all)
			for _, a := range model.Axes {
				assert.InDelta(t, tt.want, got[a], 1e-9, "axis %s", a)
			}
		})
	}
}

func TestMeanScores(t *testing.T) {
	all := []model.AxisScores{uniformScores(0.1), uniformScores(0.2), uniformScores(0.25)}
	got := meanScores(all)
	assert.Equal(t, 0.18, got[model.AxisReligion])

	assert.Empty(t, meanScores(nil))
	assert.Empty(t, medianScores(nil))
}

func TestScaleTallies(t *testing.T) {
	raw := newTallies([]int{1, 2})
	addAnswers(raw, model.AnswerSet{1: 2, 2: 0})
	addAnswers(raw, model.AnswerSet{1: 2, 2: -1})
	addAnswers(raw, model.AnswerSet{1: 1, 99: 2})

	scaled := scaleTallies(raw)

	assert.Equal(t, 1.0, scaled[1][model.StronglyAgree])
	assert.Equal(t, 0.5, scaled[1][model.Agree])
	assert.Equal(t, 0.0, scaled[1][model.StronglyDisagree])
	assert.Equal(t, 1.0, scaled[2][model.Neutral])
	assert.Equal(t, 1.0, scaled[2][model.Disagree])
	assert.NotContains(t, scaled, 99)

	empty := scaleTallies(newTallies([]int{7}))
	for _, c := range model.LikertCategories {
		assert.Equal(t, 0.0, empty[7][c])
	}
}
