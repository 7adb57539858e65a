package repository

import (
	"fmt"
	"polcomp/internal/filter"
	"strings"
)

// sqlColumns whitelists the columns a predicate may touch. Only field names
// from the filter package are ever interpolated into SQL; values are bound.
var sqlColumns = map[string]bool{
	"demographics": true,
	"group_id":     true,
}

// queryToSQL lowers the date window and predicate of q into a WHERE clause
// over the results table.
func queryToSQL(q ResultQuery) (string, []any, error) {
	var (
		clauses []string
		args    []any
	)

	if !q.MinDate.IsZero() {
		clauses = append(clauses, "date >= ?")
		args = append(args, q.MinDate.String())
	}
	if !q.MaxDate.IsZero() {
		clauses = append(clauses, "date <= ?")
		args = append(args, q.MaxDate.String())
	}

	pred, predArgs, err := predicateToSQL(q.Predicate)
	if err != nil {
		return "", nil, err
	}
	clauses = append(clauses, pred...)
	args = append(args, predArgs...)

	if len(clauses) == 0 {
		return "1 = 1", nil, nil
	}
	return strings.Join(clauses, " AND "), args, nil
}

// predicateToSQL returns one SQL expression per condition using the JSON1
// functions for nested demographic attributes.
func predicateToSQL(p filter.Predicate) ([]string, []any, error) {
	if err := p.Validate(); err != nil {
		return nil, nil, fmt.Errorf("lower predicate: %w", err)
	}

	var (
		exprs []string
		args  []any
	)
	for _, c := range p.Conditions {
		col, path := c.Field.Root()
		if !sqlColumns[col] || !plainPath(path) {
			return nil, nil, fmt.Errorf("lower predicate: field %s is not queryable", c.Field)
		}

		target := col
		if path != "" {
			target = fmt.Sprintf("json_extract(%s, '$.%s')", col, path)
		}

		switch c.Op {
		case filter.OpIn:
			exprs = append(exprs, fmt.Sprintf("%s IN (%s)", target, placeholders(len(c.Values))))
			args = appendStrings(args, c.Values)
		case filter.OpContainsAny:
			exprs = append(exprs, fmt.Sprintf(
				"EXISTS (SELECT 1 FROM json_each(%s, '$.%s') WHERE json_each.value IN (%s))",
				col, path, placeholders(len(c.Values))))
			args = appendStrings(args, c.Values)
		case filter.OpContainsAll:
			want := distinct(c.Values)
			exprs = append(exprs, fmt.Sprintf(
				"(SELECT COUNT(DISTINCT json_each.value) FROM json_each(%s, '$.%s') WHERE json_each.value IN (%s)) = ?",
				col, path, placeholders(len(want))))
			args = appendStrings(args, want)
			args = append(args, len(want))
		case filter.OpBetween:
			exprs = append(exprs, fmt.Sprintf("%s BETWEEN ? AND ?", target))
			args = append(args, c.Range.Lo, c.Range.Hi)
		}
	}
	return exprs, args, nil
}

func plainPath(path string) bool {
	for _, r := range path {
		if !(r == '_' || r >= 'a' && r <= 'z' || r >= '0' && r <= '9') {
			return false
		}
	}
	return true
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func appendStrings(args []any, values []string) []any {
	for _, v := range values {
		args = append(args, v)
	}
	return args
}

func distinct(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	return out
}
