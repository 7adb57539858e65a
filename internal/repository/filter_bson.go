package repository

import (
	"fmt"
	"polcomp/internal/filter"
	"polcomp/internal/model"

	"go.mongodb.org/mongo-driver/bson"
)

// queryToBSON lowers the date window and predicate of q into a Mongo filter.
func queryToBSON(q ResultQuery) (bson.D, error) {
	var clauses []bson.D

	if dates := dateRangeBSON(q.MinDate, q.MaxDate); dates != nil {
		clauses = append(clauses, bson.D{{Key: "date", Value: dates}})
	}

	pred, err := predicateToBSON(q.Predicate)
	if err != nil {
		return nil, err
	}
	clauses = append(clauses, pred...)

	switch len(clauses) {
	case 0:
		return bson.D{}, nil
	case 1:
		return clauses[0], nil
	}
	return bson.D{{Key: "$and", Value: clauses}}, nil
}

func dateRangeBSON(lo, hi model.Date) bson.D {
	var d bson.D
	if !lo.IsZero() {
		d = append(d, bson.E{Key: "$gte", Value: lo.Time})
	}
	if !hi.IsZero() {
		d = append(d, bson.E{Key: "$lte", Value: hi.Time})
	}
	return d
}

// predicateToBSON returns one filter document per condition.
func predicateToBSON(p filter.Predicate) ([]bson.D, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("lower predicate: %w", err)
	}

	out := make([]bson.D, 0, len(p.Conditions))
	for _, c := range p.Conditions {
		var expr bson.D
		switch c.Op {
		case filter.OpIn, filter.OpContainsAny:
			expr = bson.D{{Key: "$in", Value: c.Values}}
		case filter.OpContainsAll:
			expr = bson.D{{Key: "$all", Value: c.Values}}
		case filter.OpBetween:
			expr = bson.D{{Key: "$gte", Value: c.Range.Lo}, {Key: "$lte", Value: c.Range.Hi}}
		}
		out = append(out, bson.D{{Key: string(c.Field), Value: expr}})
	}
	return out, nil
}
