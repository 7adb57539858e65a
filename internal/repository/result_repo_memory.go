package repository

import (
	"context"
	"polcomp/internal/model"
	"sort"
	"strconv"
	"sync"
)

type memoryResultRepo struct {
	mu      sync.RWMutex
	records []*model.ResultRecord
}

// NewMemoryResultRepo creates a process-local result repository. The
// predicate is evaluated in-process with filter.Predicate.Match.
func NewMemoryResultRepo() ResultRepo {
	return &memoryResultRepo{}
}

func (r *memoryResultRepo) Insert(ctx context.Context, rec *model.ResultRecord) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", model.NewStorageError("insert result", err)
	}
	prepareRecord(rec)

	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *rec
	stored.ID = strconv.Itoa(len(r.records) + 1)
	r.records = append(r.records, &stored)
	rec.ID = stored.ID
	return stored.ID, nil
}

func (r *memoryResultRepo) Get(ctx context.Context, id string) (*model.ResultRecord, error) {
	n, err := strconv.Atoi(id)
	if err != nil {
		return nil, nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if n < 1 || n > len(r.records) {
		return nil, nil
	}
	rec := *r.records[n-1]
	return &rec, nil
}

func (r *memoryResultRepo) Find(ctx context.Context, q ResultQuery) ([]*model.ResultRecord, error) {
	matched, err := r.match(ctx, q)
	if err != nil {
		return nil, err
	}

	out := make([]*model.ResultRecord, len(matched))
	for i, rec := range matched {
		out[i] = &model.ResultRecord{ID: rec.ID, Scores: rec.Scores, Answers: rec.Answers}
	}
	return out, nil
}

func (r *memoryResultRepo) Count(ctx context.Context, q ResultQuery) (int, error) {
	matched, err := r.match(ctx, q)
	if err != nil {
		return 0, err
	}
	return len(matched), nil
}

func (r *memoryResultRepo) Total(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records), nil
}

// match applies the date window and predicate, then orders and limits.
func (r *memoryResultRepo) match(ctx context.Context, q ResultQuery) ([]*model.ResultRecord, error) {
	if err := q.Predicate.Validate(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	var matched []*model.ResultRecord
	for _, rec := range r.records {
		if !q.MinDate.IsZero() && rec.Date.Before(q.MinDate.Time) {
			continue
		}
		if !q.MaxDate.IsZero() && rec.Date.After(q.MaxDate.Time) {
			continue
		}
		if q.Predicate.Match(rec) {
			matched = append(matched, rec)
		}
	}
	r.mu.RUnlock()

	if err := ctx.Err(); err != nil {
		return nil, model.NewStorageError("find results", err)
	}

	seq := func(rec *model.ResultRecord) int {
		n, _ := strconv.Atoi(rec.ID)
		return n
	}
	if q.Order == model.OrderRandom {
		sort.SliceStable(matched, func(i, j int) bool {
			pi, pj := permute(matched[i].RankKey, q.Seed), permute(matched[j].RankKey, q.Seed)
			if pi != pj {
				return pi < pj
			}
			return seq(matched[i]) < seq(matched[j])
		})
	} else {
		sort.SliceStable(matched, func(i, j int) bool {
			if !matched[i].Date.Equal(matched[j].Date.Time) {
				return matched[i].Date.After(matched[j].Date.Time)
			}
			return seq(matched[i]) > seq(matched[j])
		})
	}

	if q.Limit > 0 && len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}
	return matched, nil
}
