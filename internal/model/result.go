package model

// ResultRecord is one persisted quiz submission. Records are append-only.
type ResultRecord struct {
	ID           string       `json:"id" bson:"_id,omitempty"`
	Date         Date         `json:"date" bson:"date"`
	GroupID      string       `json:"group_id,omitempty" bson:"group_id,omitempty"`
	Demographics Demographics `json:"demographics" bson:"demographics"`
	Scores       AxisScores   `json:"scores" bson:"scores"`
	Answers      AnswerSet    `json:"answers" bson:"answers"`
	HowFound     string       `json:"how_found,omitempty" bson:"how_found,omitempty"`

	// RankKey is a random per-record key fixed at insert. Random ordering
	// permutes it with a per-call seed.
	RankKey int64 `json:"-" bson:"rank_key"`
}

// Submission is what a respondent sends once the quiz is complete.
type Submission struct {
	Answers      AnswerSet    `json:"answers"`
	Demographics Demographics `json:"demographics"`
	HowFound     string       `json:"how_found,omitempty"`
	GroupID      string       `json:"group_id,omitempty"`
}

// SubmissionResult is returned after a successful insert.
type SubmissionResult struct {
	ResultID string     `json:"result_id"`
	Scores   AxisScores `json:"scores"`
}
