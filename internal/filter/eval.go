package filter

import "polcomp/internal/model"

// Match evaluates p against one record in-process.
func (p Predicate) Match(r *model.ResultRecord) bool {
	for _, c := range p.Conditions {
		if !c.Match(r) {
			return false
		}
	}
	return true
}

// Match evaluates a single condition. Unknown operators never match.
func (c Condition) Match(r *model.ResultRecord) bool {
	switch c.Op {
	case OpIn:
		v, ok := scalarValue(r, c.Field)
		return ok && contains(c.Values, v)
	case OpContainsAny:
		have := listValue(r, c.Field)
		for _, want := range c.Values {
			if contains(have, want) {
				return true
			}
		}
		return false
	case OpContainsAll:
		have := listValue(r, c.Field)
		for _, want := range c.Values {
			if !contains(have, want) {
				return false
			}
		}
		return true
	case OpBetween:
		v, ok := intValue(r, c.Field)
		return ok && v >= c.Range.Lo && v <= c.Range.Hi
	}
	return false
}

func scalarValue(r *model.ResultRecord, f Field) (string, bool) {
	switch f {
	case FieldCountry:
		return r.Demographics.Country, true
	case FieldReligion:
		return r.Demographics.Religion, true
	case FieldEthnicity:
		return r.Demographics.Ethnicity, true
	case FieldEducation:
		return r.Demographics.Education, true
	case FieldParty:
		return r.Demographics.Party, true
	case FieldGroupID:
		return r.GroupID, r.GroupID != ""
	}
	return "", false
}

func listValue(r *model.ResultRecord, f Field) []string {
	if f == FieldIdentities {
		return r.Demographics.Identities
	}
	return nil
}

func intValue(r *model.ResultRecord, f Field) (int, bool) {
	if f == FieldAge {
		return r.Demographics.Age, true
	}
	return 0, false
}

func contains(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}
