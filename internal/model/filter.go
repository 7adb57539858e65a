package model

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// AnyAll selects how requested identities combine.
type AnyAll string

const (
	MatchAny AnyAll = "any"
	MatchAll AnyAll = "all"
)

// Order is the batch-level ordering of the base selection.
type Order string

const (
	OrderRecent Order = "recent"
	OrderRandom Order = "random"
)

// Filterset is one named combination of demographic and cohort constraints.
// Empty lists and nil ages mean "no constraint".
type Filterset struct {
	Label      string   `json:"label" validate:"required,max=100"`
	Color      string   `json:"color" validate:"required,max=64"`
	MinAge     *int     `json:"min-age,omitempty" validate:"omitempty,gte=0,lte=101"`
	MaxAge     *int     `json:"max-age,omitempty" validate:"omitempty,gte=0,lte=101"`
	AnyAll     AnyAll   `json:"any-all,omitempty" validate:"omitempty,oneof=any all"`
	Country    []string `json:"country,omitempty" validate:"max=500"`
	Religion   []string `json:"religion,omitempty" validate:"max=500"`
	Ethnicity  []string `json:"ethnicity,omitempty" validate:"max=500"`
	Education  []string `json:"education,omitempty" validate:"max=500"`
	Party      []string `json:"party,omitempty" validate:"max=500"`
	Identities []string `json:"identities,omitempty" validate:"max=500"`
	GroupIDs   []string `json:"group-ids,omitempty" validate:"max=500,dive,uuid"`
}

// Mode returns the identity combination mode, defaulting to any.
func (f Filterset) Mode() AnyAll {
	if f.AnyAll == "" {
		return MatchAny
	}
	return f.AnyAll
}

// Values returns the requested values for a scalar or set-valued field.
func (f Filterset) Values(field DemographicField) []string {
	switch field {
	case FieldCountry:
		return f.Country
	case FieldReligion:
		return f.Religion
	case FieldEthnicity:
		return f.Ethnicity
	case FieldEducation:
		return f.Education
	case FieldParty:
		return f.Party
	case FieldIdentities:
		return f.Identities
	}
	return nil
}

// Validate checks ranges and shapes. Membership in the demographics schema is
// checked separately by the reference data layer.
func (f Filterset) Validate(entity string) error {
	if err := FromValidator(entity, validate.Struct(f)); err != nil {
		return err
	}
	if f.MinAge != nil && f.MaxAge != nil && *f.MaxAge > 0 && *f.MinAge > *f.MaxAge {
		return &ValidationError{Entity: entity, Errors: []string{"min-age cannot exceed max-age"}}
	}
	return nil
}

// FilterBatch bundles several filtersets with shared ordering, dates and limit.
type FilterBatch struct {
	Order      Order       `json:"order" validate:"required,oneof=recent random"`
	MinDate    Date        `json:"min-date"`
	MaxDate    Date        `json:"max-date"`
	Limit      int         `json:"limit" validate:"gt=0"`
	Filtersets []Filterset `json:"filtersets" validate:"required,min=1"`
}

// Validate checks the batch envelope and every filterset. maxLimit and
// maxFiltersets are the hard caps enforced at the boundary.
func (b FilterBatch) Validate(maxLimit, maxFiltersets int) error {
	if err := FromValidator("filter batch", validate.Struct(b)); err != nil {
		return err
	}
	ve := NewValidationError("filter batch")
	if b.MinDate.IsZero() {
		ve.AddError("min-date is required")
	}
	if b.MaxDate.IsZero() {
		ve.AddError("max-date is required")
	}
	if !b.MinDate.IsZero() && !b.MaxDate.IsZero() && b.MinDate.After(b.MaxDate.Time) {
		ve.AddError("min-date cannot exceed max-date")
	}
	if maxLimit > 0 && b.Limit > maxLimit {
		ve.AddError(fmt.Sprintf("limit must be at most %d", maxLimit))
	}
	if maxFiltersets > 0 && len(b.Filtersets) > maxFiltersets {
		ve.AddError(fmt.Sprintf("at most %d filtersets per batch", maxFiltersets))
	}
	if ve.HasErrors() {
		return ve
	}
	for i, fs := range b.Filtersets {
		if err := fs.Validate(fmt.Sprintf("filterset[%d]", i)); err != nil {
			return err
		}
	}
	return nil
}
