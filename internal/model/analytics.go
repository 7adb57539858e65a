package model

import "time"

// Tally counts answers per Likert category for one question.
type Tally map[LikertCategory]int

// ScaledTally is a Tally divided by its largest category count.
type ScaledTally map[LikertCategory]float64

// Dataset holds the statistics computed for one filterset's matching subset.
type Dataset struct {
	Name            string              `json:"name"`
	Label           string              `json:"label"`
	Color           string              `json:"color"`
	CustomDataset   bool                `json:"custom_dataset"`
	CustomID        *int                `json:"custom_id"`
	ResultID        string              `json:"result_id,omitempty"`
	Count           int                 `json:"count"`
	RawAnswerCounts map[int]Tally       `json:"raw_answer_counts"`
	AnswerCounts    map[int]ScaledTally `json:"answer_counts"`
	AllScores       []AxisScores        `json:"all_scores"`
	MeanScores      AxisScores          `json:"mean_scores"`
	MedianScores    AxisScores          `json:"median_scores"`
}

// Respondent is a caller-supplied context for one respondent's own answers,
// shown next to the filtered datasets.
type Respondent struct {
	ResultID string     `json:"result_id,omitempty"`
	Answers  AnswerSet  `json:"answers"`
	Scores   AxisScores `json:"scores"`
}

// RespondentDatasetName is the name of the dataset built from a Respondent.
const RespondentDatasetName = "your_results"

// AverageResultIdentity is the sentinel identity meaning the whole population.
const AverageResultIdentity = "Average Result"

// IdentityAverages is the published identity-average table.
type IdentityAverages struct {
	Averages   map[string]AxisScores `json:"averages" bson:"averages"`
	ComputedAt time.Time             `json:"computed_at" bson:"computed_at"`
}
