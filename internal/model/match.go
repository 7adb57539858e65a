package model

// OverallRanking is the key of the ranking that uses every axis at once.
const OverallRanking = "overall"

// Match is one identity's similarity to a respondent. Higher is closer.
type Match struct {
	Identity   string  `json:"identity"`
	Similarity float64 `json:"similarity"`
}

// Matches maps "overall" and each axis name to a ranking, most similar first.
type Matches map[string][]Match
