package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"polcomp/internal/model"
	"strconv"
)

type sqliteResultRepo struct {
	db *sql.DB
}

// NewSQLiteResultRepo creates a result repository over a database opened
// with OpenSQLite.
func NewSQLiteResultRepo(db *sql.DB) ResultRepo {
	return &sqliteResultRepo{db: db}
}

func (r *sqliteResultRepo) Insert(ctx context.Context, rec *model.ResultRecord) (string, error) {
	prepareRecord(rec)

	demographics, err := json.Marshal(rec.Demographics)
	if err != nil {
		return "", fmt.Errorf("encode demographics: %w", err)
	}
	scores, err := json.Marshal(rec.Scores)
	if err != nil {
		return "", fmt.Errorf("encode scores: %w", err)
	}
	answers, err := json.Marshal(rec.Answers)
	if err != nil {
		return "", fmt.Errorf("encode answers: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", model.NewStorageError("insert result", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO results (date, group_id, demographics, scores, answers, how_found, rank_key)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return "", model.NewStorageError("insert result", err)
	}
	defer stmt.Close()

	res, err := stmt.ExecContext(ctx,
		rec.Date.String(), nullString(rec.GroupID), string(demographics),
		string(scores), string(answers), nullString(rec.HowFound), rec.RankKey)
	if err != nil {
		return "", model.NewStorageError("insert result", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return "", model.NewStorageError("insert result", err)
	}
	if err := tx.Commit(); err != nil {
		return "", model.NewStorageError("insert result", err)
	}

	rec.ID = strconv.FormatInt(id, 10)
	return rec.ID, nil
}

func (r *sqliteResultRepo) Get(ctx context.Context, id string) (*model.ResultRecord, error) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return nil, nil
	}

	var (
		rec                           model.ResultRecord
		date                          string
		groupID, howFound             sql.NullString
		demographics, scores, answers string
	)
	err = r.db.QueryRowContext(ctx, `
		SELECT id, date, group_id, demographics, scores, answers, how_found, rank_key
		FROM results WHERE id = ?
	`, n).Scan(&rec.ID, &date, &groupID, &demographics, &scores, &answers, &howFound, &rec.RankKey)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, model.NewStorageError("get result", err)
	}

	if rec.Date, err = model.ParseDate(date); err != nil {
		return nil, model.NewStorageError("decode result", err)
	}
	rec.GroupID = groupID.String
	rec.HowFound = howFound.String
	if err := json.Unmarshal([]byte(demographics), &rec.Demographics); err != nil {
		return nil, model.NewStorageError("decode result", err)
	}
	if err := decodeScored(&rec, scores, answers); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *sqliteResultRepo) Find(ctx context.Context, q ResultQuery) ([]*model.ResultRecord, error) {
	where, args, err := queryToSQL(q)
	if err != nil {
		return nil, err
	}

	query := "SELECT id, scores, answers FROM results WHERE " + where
	if q.Order == model.OrderRandom {
		query += " ORDER BY ((rank_key * ?) % 4294967296), id"
		args = append(args, normalizeSeed(q.Seed))
	} else {
		query += " ORDER BY date DESC, id DESC"
	}
	if q.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, q.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, model.NewStorageError("find results", err)
	}
	defer rows.Close()

	var records []*model.ResultRecord
	for rows.Next() {
		var (
			rec             model.ResultRecord
			scores, answers string
		)
		if err := rows.Scan(&rec.ID, &scores, &answers); err != nil {
			return nil, model.NewStorageError("find results", err)
		}
		if err := decodeScored(&rec, scores, answers); err != nil {
			return nil, err
		}
		records = append(records, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, model.NewStorageError("find results", err)
	}
	return records, nil
}

func (r *sqliteResultRepo) Count(ctx context.Context, q ResultQuery) (int, error) {
	where, args, err := queryToSQL(q)
	if err != nil {
		return 0, err
	}

	query := "SELECT COUNT(*) FROM results WHERE " + where
	if q.Limit > 0 {
		query = "SELECT COUNT(*) FROM (SELECT 1 FROM results WHERE " + where + " LIMIT ?)"
		args = append(args, q.Limit)
	}

	var n int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, model.NewStorageError("count results", err)
	}
	return n, nil
}

func (r *sqliteResultRepo) Total(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM results").Scan(&n); err != nil {
		return 0, model.NewStorageError("count results", err)
	}
	return n, nil
}

func decodeScored(rec *model.ResultRecord, scores, answers string) error {
	if err := json.Unmarshal([]byte(scores), &rec.Scores); err != nil {
		return model.NewStorageError("decode scores", err)
	}
	if err := json.Unmarshal([]byte(answers), &rec.Answers); err != nil {
		return model.NewStorageError("decode answers", err)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
