// Package filter compiles filtersets into a declarative predicate AST.
//
// A Predicate is a conjunction of Conditions. Each Condition names a record
// field, an operator and its operands. The same AST is evaluated in-process
// by Match and lowered into storage query languages by the repository
// package, so every backend applies identical filtering.
package filter

import (
	"fmt"
	"polcomp/internal/model"
	"strings"
)

// Field is a dotted path into a stored result record.
type Field string

const (
	FieldAge        Field = "demographics.age"
	FieldCountry    Field = "demographics.country"
	FieldReligion   Field = "demographics.religion"
	FieldEthnicity  Field = "demographics.ethnicity"
	FieldEducation  Field = "demographics.education"
	FieldParty      Field = "demographics.party"
	FieldIdentities Field = "demographics.identities"
	FieldGroupID    Field = "group_id"
)

// Root returns the top-level column and the remaining path, e.g.
// "demographics", "country". Top-level fields return an empty path.
func (f Field) Root() (string, string) {
	root, rest, _ := strings.Cut(string(f), ".")
	return root, rest
}

// Op is a condition operator.
type Op string

const (
	// OpIn matches when a scalar field equals one of Values.
	OpIn Op = "in"
	// OpContainsAny matches when a list field shares at least one of Values.
	OpContainsAny Op = "contains_any"
	// OpContainsAll matches when a list field holds every one of Values.
	OpContainsAll Op = "contains_all"
	// OpBetween matches when an integer field lies in Range, inclusive.
	OpBetween Op = "between"
)

// Range is an inclusive integer interval.
type Range struct {
	Lo int `json:"lo"`
	Hi int `json:"hi"`
}

// Condition is one leaf of the AST.
type Condition struct {
	Field  Field    `json:"field"`
	Op     Op       `json:"op"`
	Values []string `json:"values,omitempty"`
	Range  Range    `json:"range,omitempty"`
}

func (c Condition) String() string {
	if c.Op == OpBetween {
		return fmt.Sprintf("%s between [%d, %d]", c.Field, c.Range.Lo, c.Range.Hi)
	}
	return fmt.Sprintf("%s %s %v", c.Field, c.Op, c.Values)
}

// Validate checks that the operator suits the field and has operands.
func (c Condition) Validate() error {
	switch c.Op {
	case OpIn:
		if c.Field == FieldIdentities || c.Field == FieldAge {
			return fmt.Errorf("operator %s does not apply to %s", c.Op, c.Field)
		}
		if len(c.Values) == 0 {
			return fmt.Errorf("operator %s on %s needs values", c.Op, c.Field)
		}
	case OpContainsAny, OpContainsAll:
		if c.Field != FieldIdentities {
			return fmt.Errorf("operator %s does not apply to %s", c.Op, c.Field)
		}
		if len(c.Values) == 0 {
			return fmt.Errorf("operator %s on %s needs values", c.Op, c.Field)
		}
	case OpBetween:
		if c.Field != FieldAge {
			return fmt.Errorf("operator %s does not apply to %s", c.Op, c.Field)
		}
		if c.Range.Lo > c.Range.Hi {
			return fmt.Errorf("empty range [%d, %d] on %s", c.Range.Lo, c.Range.Hi, c.Field)
		}
	default:
		return fmt.Errorf("unknown operator %q", c.Op)
	}
	return nil
}

// Predicate is the conjunction of its conditions. The zero value matches
// every record.
type Predicate struct {
	Conditions []Condition `json:"conditions"`
}

// IsEmpty reports whether p constrains nothing.
func (p Predicate) IsEmpty() bool { return len(p.Conditions) == 0 }

// And returns a predicate requiring both p and other.
func (p Predicate) And(other Predicate) Predicate {
	out := make([]Condition, 0, len(p.Conditions)+len(other.Conditions))
	out = append(out, p.Conditions...)
	out = append(out, other.Conditions...)
	return Predicate{Conditions: out}
}

// Validate checks every condition.
func (p Predicate) Validate() error {
	for i, c := range p.Conditions {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("condition %d: %w", i, err)
		}
	}
	return nil
}

func (p Predicate) String() string {
	if p.IsEmpty() {
		return "true"
	}
	parts := make([]string, len(p.Conditions))
	for i, c := range p.Conditions {
		parts[i] = c.String()
	}
	return strings.Join(parts, " AND ")
}

func scalarField(f model.DemographicField) Field {
	return Field("demographics." + string(f))
}
