// Package scoring turns one respondent's Likert answers into axis scores.
package scoring

import (
	"fmt"
	"math"
	"polcomp/internal/model"
	"sort"
)

// MaxMagnitude returns, per axis, the largest absolute raw score an answer set
// can reach: the sum of |weight| times the Likert extreme.
func MaxMagnitude(weights model.WeightTable) model.AxisScores {
	out := make(model.AxisScores, len(model.Axes))
	for _, a := range model.Axes {
		out[a] = 0
	}
	for _, w := range weights {
		for _, a := range model.Axes {
			out[a] += math.Abs(w[a]) * model.MaxAnswer
		}
	}
	return out
}

// ValidateAnswers checks that answers cover exactly the scored questions with
// values in [-2, 2]. Missing questions yield a MissingAnswerError; extra
// questions or bad values yield a ValidationError.
func ValidateAnswers(answers model.AnswerSet, weights model.WeightTable) error {
	var missing []int
	for id := range weights {
		if _, ok := answers[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		sort.Ints(missing)
		return &model.MissingAnswerError{QuestionIDs: missing}
	}

	ve := model.NewValidationError("answers")
	ids := make([]int, 0, len(answers))
	for id := range answers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		if _, ok := weights[id]; !ok {
			ve.AddError(fmt.Sprintf("question %d is not scored", id))
			continue
		}
		if v := answers[id]; v < model.MinAnswer || v > model.MaxAnswer {
			ve.AddError(fmt.Sprintf("answer to question %d must be between %d and %d, got %d", id, model.MinAnswer, model.MaxAnswer, v))
		}
	}
	return ve.ErrOrNil()
}

// ComputeScores scores answers against weights. Each axis is the weighted
// answer sum divided by MaxMagnitude for that axis, rounded to two decimals.
// An axis no question weighs scores 0.
func ComputeScores(answers model.AnswerSet, weights model.WeightTable) (model.AxisScores, error) {
	if err := ValidateAnswers(answers, weights); err != nil {
		return nil, err
	}

	mags := MaxMagnitude(weights)
	raw := make(map[model.Axis]float64, len(model.Axes))
	for id, w := range weights {
		v := float64(answers[id])
		for _, a := range model.Axes {
			raw[a] += w[a] * v
		}
	}

	scores := make(model.AxisScores, len(model.Axes))
	for _, a := range model.Axes {
		if mags[a] == 0 {
			scores[a] = 0
			continue
		}
		scores[a] = model.Round2(raw[a] / mags[a])
	}
	return scores, nil
}
