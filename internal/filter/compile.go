package filter

import "polcomp/internal/model"

// Default age bounds used when only one side of a range is given.
// 101 stands for "over 100".
const (
	AgeFloor = 0
	AgeCeil  = model.AgeOver100
)

// Compile turns one validated filterset into a predicate. Empty lists and
// unset ages add no condition. Once either age bound is present, a
// non-positive side falls back to AgeFloor or AgeCeil.
func Compile(fs model.Filterset) Predicate {
	var conds []Condition

	if lo, hi, ok := ageRange(fs.MinAge, fs.MaxAge); ok {
		conds = append(conds, Condition{Field: FieldAge, Op: OpBetween, Range: Range{Lo: lo, Hi: hi}})
	}

	for _, f := range model.ScalarFields {
		if vals := dedupe(fs.Values(f)); len(vals) > 0 {
			conds = append(conds, Condition{Field: scalarField(f), Op: OpIn, Values: vals})
		}
	}

	if ids := dedupe(fs.Identities); len(ids) > 0 {
		op := OpContainsAny
		if fs.Mode() == model.MatchAll {
			op = OpContainsAll
		}
		conds = append(conds, Condition{Field: FieldIdentities, Op: op, Values: ids})
	}

	if groups := dedupe(fs.GroupIDs); len(groups) > 0 {
		conds = append(conds, Condition{Field: FieldGroupID, Op: OpIn, Values: groups})
	}

	return Predicate{Conditions: conds}
}

// ForIdentity matches records that list identity. The population sentinel
// compiles to the empty predicate.
func ForIdentity(identity string) Predicate {
	if identity == model.AverageResultIdentity {
		return Predicate{}
	}
	return Predicate{Conditions: []Condition{
		{Field: FieldIdentities, Op: OpContainsAny, Values: []string{identity}},
	}}
}

func ageRange(minAge, maxAge *int) (int, int, bool) {
	if minAge == nil && maxAge == nil {
		return 0, 0, false
	}
	lo, hi := 0, 0
	if minAge != nil {
		lo = *minAge
	}
	if maxAge != nil {
		hi = *maxAge
	}
	if lo <= 0 {
		lo = AgeFloor
	}
	if hi <= 0 {
		hi = AgeCeil
	}
	return lo, hi, true
}

func dedupe(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
