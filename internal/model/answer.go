package model

import "sort"

// Likert bounds for a single answer.
const (
	MinAnswer = -2
	MaxAnswer = 2
)

// LikertCategory is the display name of one answer value.
type LikertCategory string

const (
	StronglyAgree    LikertCategory = "Strongly Agree"
	Agree            LikertCategory = "Agree"
	Neutral          LikertCategory = "Neutral"
	Disagree         LikertCategory = "Disagree"
	StronglyDisagree LikertCategory = "Strongly Disagree"
)

// LikertCategories lists the categories from +2 down to -2.
var LikertCategories = []LikertCategory{StronglyAgree, Agree, Neutral, Disagree, StronglyDisagree}

// CategoryFor maps an answer value to its category. ok is false outside [-2, 2].
func CategoryFor(v int) (LikertCategory, bool) {
	switch v {
	case 2:
		return StronglyAgree, true
	case 1:
		return Agree, true
	case 0:
		return Neutral, true
	case -1:
		return Disagree, true
	case -2:
		return StronglyDisagree, true
	}
	return "", false
}

// AnswerSet maps question id to a Likert answer in [-2, 2].
type AnswerSet map[int]int

func sortInts(ids []int) { sort.Ints(ids) }
