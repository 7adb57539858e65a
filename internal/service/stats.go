package service

import (
	"polcomp/internal/model"
	"sort"
)

// newTallies returns a zeroed tally for every scored question.
func newTallies(questionIDs []int) map[int]model.Tally {
	tallies := make(map[int]model.Tally, len(questionIDs))
	for _, id := range questionIDs {
		t := make(model.Tally, len(model.LikertCategories))
		for _, c := range model.LikertCategories {
			t[c] = 0
		}
		tallies[id] = t
	}
	return tallies
}

// addAnswers counts one answer set into tallies. Answers to questions outside
// the scored set are ignored.
func addAnswers(tallies map[int]model.Tally, answers model.AnswerSet) {
	for id, v := range answers {
		t, ok := tallies[id]
		if !ok {
			continue
		}
		if c, ok := model.CategoryFor(v); ok {
			t[c]++
		}
	}
}

// scaleTallies divides every category by the largest category of its
// question, or by 1 when the question has no responses.
func scaleTallies(raw map[int]model.Tally) map[int]model.ScaledTally {
	scaled := make(map[int]model.ScaledTally, len(raw))
	for id, t := range raw {
		denom := 0
		for _, n := range t {
			if n > denom {
				denom = n
			}
		}
		if denom == 0 {
			denom = 1
		}
		s := make(model.ScaledTally, len(t))
		for c, n := range t {
			s[c] = float64(n) / float64(denom)
		}
		scaled[id] = s
	}
	return scaled
}

// meanScores averages each axis over all vectors. Missing axes count as 0.
func meanScores(all []model.AxisScores) model.AxisScores {
	out := model.AxisScores{}
	if len(all) == 0 {
		return out
	}
	for _, a := range model.Axes {
		sum := 0.0
		for _, s := range all {
			sum += s[a]
		}
		out[a] = model.Round2(sum / float64(len(all)))
	}
	return out
}

// medianScores takes the per-axis median, averaging the middle pair for an
// even count.
func medianScores(all []model.AxisScores) model.AxisScores {
	out := model.AxisScores{}
	if len(all) == 0 {
		return out
	}
	col := make([]float64, len(all))
	for _, a := range model.Axes {
		for i, s := range all {
			col[i] = s[a]
		}
		sort.Float64s(col)
		mid := len(col) / 2
		v := col[mid]
		if len(col)%2 == 0 {
			v = (col[mid-1] + col[mid]) / 2
		}
		out[a] = model.Round2(v)
	}
	return out
}

// buildDataset computes every statistic for one matched subset.
func buildDataset(records []*model.ResultRecord, questionIDs []int) model.Dataset {
	raw := newTallies(questionIDs)
	all := make([]model.AxisScores, 0, len(records))
	for _, rec := range records {
		all = append(all, rec.Scores)
		addAnswers(raw, rec.Answers)
	}

	return model.Dataset{
		Count:           len(all),
		RawAnswerCounts: raw,
		AnswerCounts:    scaleTallies(raw),
		AllScores:       all,
		MeanScores:      meanScores(all),
		MedianScores:    medianScores(all),
	}
}
