package model

import "encoding/json"

// Age sentinels.
const (
	AgeSkip    = -1
	AgeOver100 = 101
)

// Demographics is a respondent's self-reported profile. Empty strings mean
// the field was left blank.
type Demographics struct {
	Age        int      `json:"age" bson:"age"`
	Country    string   `json:"country" bson:"country"`
	Religion   string   `json:"religion" bson:"religion"`
	Ethnicity  string   `json:"ethnicity" bson:"ethnicity"`
	Education  string   `json:"education" bson:"education"`
	Party      string   `json:"party" bson:"party"`
	Identities []string `json:"identities" bson:"identities"`
}

// DemographicField names a filterable demographic attribute.
type DemographicField string

const (
	FieldAge        DemographicField = "age"
	FieldCountry    DemographicField = "country"
	FieldReligion   DemographicField = "religion"
	FieldEthnicity  DemographicField = "ethnicity"
	FieldEducation  DemographicField = "education"
	FieldParty      DemographicField = "party"
	FieldIdentities DemographicField = "identities"
)

// ScalarFields are the single-valued categorical fields, in display order.
var ScalarFields = []DemographicField{FieldCountry, FieldReligion, FieldEthnicity, FieldEducation, FieldParty}

// Scalar returns the value of a single-valued categorical field.
func (d Demographics) Scalar(f DemographicField) string {
	switch f {
	case FieldCountry:
		return d.Country
	case FieldReligion:
		return d.Religion
	case FieldEthnicity:
		return d.Ethnicity
	case FieldEducation:
		return d.Education
	case FieldParty:
		return d.Party
	}
	return ""
}

// UnmarshalJSON defaults an absent age to AgeSkip.
func (d *Demographics) UnmarshalJSON(data []byte) error {
	type plain Demographics
	p := plain{Age: AgeSkip}
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*d = Demographics(p)
	return nil
}
