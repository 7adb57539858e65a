// Package refdata loads the externally owned reference data: the question
// bank with its axis weights and the demographics schema.
package refdata

import (
	"encoding/json"
	"fmt"
	"polcomp/internal/model"
	"sort"
	"strconv"
	"strings"

	"github.com/agnivade/levenshtein"
)

// maxSuggestDistance bounds how far a "did you mean" hint may be from the input.
const maxSuggestDistance = 3

// Schema lists the allowed values for every demographic field.
type Schema struct {
	Ages       []int               `json:"age"`
	Country    []string            `json:"country"`
	Religion   []string            `json:"religion"`
	Ethnicity  []string            `json:"ethnicity"`
	Education  []string            `json:"education"`
	Parties    map[string][]string `json:"party"`
	Identities []string            `json:"identities"`
	HowFound   []string            `json:"how_found"`

	allowed map[model.DemographicField]map[string]struct{}
	ages    map[int]struct{}
	howSet  map[string]struct{}
}

type rawSchema struct {
	Ages       []flexInt           `json:"age"`
	Country    []string            `json:"country"`
	Religion   []string            `json:"religion"`
	Ethnicity  []string            `json:"ethnicity"`
	Education  []string            `json:"education"`
	Parties    map[string][]string `json:"party"`
	Identities []string            `json:"identities"`
	HowFound   []string            `json:"how_found"`
}

// flexInt accepts 25 or "25".
type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		*f = flexInt(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("age must be an integer: %s", data)
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("age must be an integer: %q", s)
	}
	*f = flexInt(n)
	return nil
}

// ParseSchema decodes a demographics schema document.
func ParseSchema(data []byte) (*Schema, error) {
	var raw rawSchema
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode demographics schema: %w", err)
	}
	s := &Schema{
		Country:    raw.Country,
		Religion:   raw.Religion,
		Ethnicity:  raw.Ethnicity,
		Education:  raw.Education,
		Parties:    raw.Parties,
		Identities: raw.Identities,
		HowFound:   raw.HowFound,
	}
	for _, a := range raw.Ages {
		s.Ages = append(s.Ages, int(a))
	}
	if len(s.Identities) == 0 {
		return nil, fmt.Errorf("demographics schema has no identities")
	}
	s.index()
	return s, nil
}

func (s *Schema) index() {
	s.allowed = map[model.DemographicField]map[string]struct{}{
		model.FieldCountry:    toSet(s.Country),
		model.FieldReligion:   toSet(s.Religion),
		model.FieldEthnicity:  toSet(s.Ethnicity),
		model.FieldEducation:  toSet(s.Education),
		model.FieldParty:      toSet(s.PartyValues()),
		model.FieldIdentities: toSet(s.Identities),
	}
	s.ages = make(map[int]struct{}, len(s.Ages))
	for _, a := range s.Ages {
		s.ages[a] = struct{}{}
	}
	s.howSet = toSet(s.HowFound)
}

// PartyValues expands the per-country party lists into "Country-Party" values,
// sorted by country then party.
func (s *Schema) PartyValues() []string {
	countries := make([]string, 0, len(s.Parties))
	for c := range s.Parties {
		countries = append(countries, c)
	}
	sort.Strings(countries)
	var out []string
	for _, c := range countries {
		for _, p := range s.Parties[c] {
			out = append(out, c+"-"+p)
		}
	}
	return out
}

// Allowed reports whether value is permitted for field.
func (s *Schema) Allowed(field model.DemographicField, value string) bool {
	_, ok := s.allowed[field][value]
	return ok
}

// ValidateDemographics checks a profile against the schema and returns a
// cleaned copy with empty identities dropped. Blank scalar fields are allowed.
func (s *Schema) ValidateDemographics(d model.Demographics) (model.Demographics, error) {
	ve := model.NewValidationError("demographics")

	if d.Age != model.AgeSkip {
		if _, ok := s.ages[d.Age]; !ok {
			ve.AddError(fmt.Sprintf("%d is not a valid age", d.Age))
		}
	}

	for _, f := range model.ScalarFields {
		v := d.Scalar(f)
		if v == "" || s.Allowed(f, v) {
			continue
		}
		ve.AddError(s.invalid(f, v))
	}

	cleaned := make([]string, 0, len(d.Identities))
	for _, id := range d.Identities {
		if id == "" {
			continue
		}
		if !s.Allowed(model.FieldIdentities, id) {
			ve.AddError(s.invalid(model.FieldIdentities, id))
			continue
		}
		cleaned = append(cleaned, id)
	}

	if err := ve.ErrOrNil(); err != nil {
		return model.Demographics{}, err
	}
	d.Identities = cleaned
	return d, nil
}

// ValidateHowFound checks the optional referral answer.
func (s *Schema) ValidateHowFound(v string) error {
	if v == "" {
		return nil
	}
	if _, ok := s.howSet[v]; ok {
		return nil
	}
	msg := fmt.Sprintf("%s is not a valid how_found", v)
	if hint := suggest(v, s.HowFound); hint != "" {
		msg += fmt.Sprintf(" (did you mean %q?)", hint)
	}
	return &model.ValidationError{Entity: "how_found", Errors: []string{msg}}
}

// ValidateFilterset checks every requested value against the schema so that
// nothing unvetted reaches a storage query.
func (s *Schema) ValidateFilterset(fs model.Filterset, entity string) error {
	ve := model.NewValidationError(entity)
	fields := append(append([]model.DemographicField{}, model.ScalarFields...), model.FieldIdentities)
	for _, f := range fields {
		for _, v := range fs.Values(f) {
			if !s.Allowed(f, v) {
				ve.AddError(s.invalid(f, v))
			}
		}
	}
	return ve.ErrOrNil()
}

func (s *Schema) invalid(f model.DemographicField, v string) string {
	msg := fmt.Sprintf("%s is not a valid %s", v, f)
	var candidates []string
	for c := range s.allowed[f] {
		candidates = append(candidates, c)
	}
	sort.Strings(candidates)
	if hint := suggest(v, candidates); hint != "" {
		msg += fmt.Sprintf(" (did you mean %q?)", hint)
	}
	return msg
}

// suggest returns the closest candidate within maxSuggestDistance, or "".
func suggest(v string, candidates []string) string {
	best, bestDist := "", maxSuggestDistance+1
	for _, c := range candidates {
		d := levenshtein.ComputeDistance(strings.ToLower(v), strings.ToLower(c))
		if d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}

func toSet(values []string) map[string]struct{} {
	out := make(map[string]struct{}, len(values))
	for _, v := range values {
		out[v] = struct{}{}
	}
	return out
}
