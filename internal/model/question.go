package model

// Question is one quiz statement with its per-axis weights.
type Question struct {
	ID      int              `json:"id" bson:"_id" yaml:"id"`
	Text    string           `json:"text" bson:"text" yaml:"text"`
	Weights map[Axis]float64 `json:"weights" bson:"weights" yaml:"weights"`
}

// QuestionText is the public view of a question, without weights.
type QuestionText struct {
	ID   int    `json:"id"`
	Text string `json:"text"`
}

// WeightTable maps question id to its per-axis weights.
type WeightTable map[int]map[Axis]float64

// BuildWeightTable indexes questions by id.
func BuildWeightTable(questions []Question) WeightTable {
	table := make(WeightTable, len(questions))
	for _, q := range questions {
		w := make(map[Axis]float64, len(q.Weights))
		for a, v := range q.Weights {
			w[a] = v
		}
		table[q.ID] = w
	}
	return table
}

// QuestionIDs returns the scored question ids in ascending order.
func (t WeightTable) QuestionIDs() []int {
	ids := make([]int, 0, len(t))
	for id := range t {
		ids = append(ids, id)
	}
	sortInts(ids)
	return ids
}
