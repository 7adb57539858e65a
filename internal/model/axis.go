package model

import "math"

// Axis is one of the fixed ideological dimensions the quiz scores.
type Axis string

const (
	AxisSociety    Axis = "society"
	AxisPolitics   Axis = "politics"
	AxisEconomics  Axis = "economics"
	AxisState      Axis = "state"
	AxisDiplomacy  Axis = "diplomacy"
	AxisGovernment Axis = "government"
	AxisTechnology Axis = "technology"
	AxisReligion   Axis = "religion"
)

// Axes is the canonical axis order. Anything that iterates axes uses this slice.
var Axes = []Axis{
	AxisSociety,
	AxisPolitics,
	AxisEconomics,
	AxisState,
	AxisDiplomacy,
	AxisGovernment,
	AxisTechnology,
	AxisReligion,
}

// IsAxis reports whether a is one of the known axes.
func IsAxis(a Axis) bool {
	for _, known := range Axes {
		if a == known {
			return true
		}
	}
	return false
}

// AxisScores maps each axis to a score in [-1, 1].
type AxisScores map[Axis]float64

// Check returns the problems that make s unusable for distance math:
// missing axes, unknown axes, NaN or infinite values.
func (s AxisScores) Check() []string {
	var problems []string
	for _, a := range Axes {
		v, ok := s[a]
		if !ok {
			problems = append(problems, "missing axis "+string(a))
			continue
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			problems = append(problems, "non-numeric value for axis "+string(a))
		}
	}
	for a := range s {
		if !IsAxis(a) {
			problems = append(problems, "unknown axis "+string(a))
		}
	}
	return problems
}

// Round2 rounds v to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
