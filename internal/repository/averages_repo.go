package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"polcomp/internal/model"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// AveragesRepo persists the identity-average table. Load returns nil when
// nothing has been published yet.
type AveragesRepo interface {
	Save(ctx context.Context, averages *model.IdentityAverages) error
	Load(ctx context.Context) (*model.IdentityAverages, error)
}

const currentAveragesID = "current"

type mongoAveragesRepo struct {
	averages *mongo.Collection
}

// NewMongoAveragesRepo keeps the table as a single upserted document.
func NewMongoAveragesRepo(db *mongo.Database) AveragesRepo {
	return &mongoAveragesRepo{
		averages: db.Collection("identity_averages"),
	}
}

type averagesDoc struct {
	ID                     string `bson:"_id"`
	model.IdentityAverages `bson:",inline"`
}

func (r *mongoAveragesRepo) Save(ctx context.Context, averages *model.IdentityAverages) error {
	opts := options.Replace().SetUpsert(true)
	doc := averagesDoc{ID: currentAveragesID, IdentityAverages: *averages}
	_, err := r.averages.ReplaceOne(ctx, bson.M{"_id": currentAveragesID}, doc, opts)
	return model.NewStorageError("save identity averages", err)
}

func (r *mongoAveragesRepo) Load(ctx context.Context) (*model.IdentityAverages, error) {
	var doc averagesDoc
	err := r.averages.FindOne(ctx, bson.M{"_id": currentAveragesID}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, model.NewStorageError("load identity averages", err)
	}
	return &doc.IdentityAverages, nil
}

type sqliteAveragesRepo struct {
	db *sql.DB
}

// NewSQLiteAveragesRepo keeps the table in a single-row SQLite table.
func NewSQLiteAveragesRepo(db *sql.DB) AveragesRepo {
	return &sqliteAveragesRepo{db: db}
}

func (r *sqliteAveragesRepo) Save(ctx context.Context, averages *model.IdentityAverages) error {
	data, err := json.Marshal(averages.Averages)
	if err != nil {
		return fmt.Errorf("encode identity averages: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO identity_averages (id, averages, computed_at) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET averages = excluded.averages, computed_at = excluded.computed_at
	`, string(data), averages.ComputedAt.UTC().Format(time.RFC3339))
	return model.NewStorageError("save identity averages", err)
}

func (r *sqliteAveragesRepo) Load(ctx context.Context) (*model.IdentityAverages, error) {
	var data, computedAt string
	err := r.db.QueryRowContext(ctx,
		"SELECT averages, computed_at FROM identity_averages WHERE id = 1").Scan(&data, &computedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, model.NewStorageError("load identity averages", err)
	}

	out := &model.IdentityAverages{}
	if err := json.Unmarshal([]byte(data), &out.Averages); err != nil {
		return nil, model.NewStorageError("decode identity averages", err)
	}
	if out.ComputedAt, err = time.Parse(time.RFC3339, computedAt); err != nil {
		return nil, model.NewStorageError("decode identity averages", err)
	}
	return out, nil
}

type fileAveragesRepo struct {
	path string
}

// NewFileAveragesRepo keeps the table as a JSON document on disk. Writes go
// through a temporary file and a rename so readers never see a partial file.
func NewFileAveragesRepo(path string) AveragesRepo {
	return &fileAveragesRepo{path: path}
}

func (r *fileAveragesRepo) Save(ctx context.Context, averages *model.IdentityAverages) error {
	data, err := json.MarshalIndent(averages, "", "  ")
	if err != nil {
		return fmt.Errorf("encode identity averages: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(r.path), ".averages-*.json")
	if err != nil {
		return model.NewStorageError("save identity averages", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return model.NewStorageError("save identity averages", err)
	}
	if err := tmp.Close(); err != nil {
		return model.NewStorageError("save identity averages", err)
	}
	return model.NewStorageError("save identity averages", os.Rename(tmp.Name(), r.path))
}

func (r *fileAveragesRepo) Load(ctx context.Context) (*model.IdentityAverages, error) {
	data, err := os.ReadFile(r.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, model.NewStorageError("load identity averages", err)
	}

	var out model.IdentityAverages
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, model.NewStorageError("decode identity averages", err)
	}
	return &out, nil
}

// MultiAveragesRepo saves to every repo and loads from the first one that
// has a table.
type MultiAveragesRepo []AveragesRepo

func (m MultiAveragesRepo) Save(ctx context.Context, averages *model.IdentityAverages) error {
	var errs []error
	for _, r := range m {
		if err := r.Save(ctx, averages); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m MultiAveragesRepo) Load(ctx context.Context) (*model.IdentityAverages, error) {
	var errs []error
	for _, r := range m {
		out, err := r.Load(ctx)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if out != nil {
			return out, nil
		}
	}
	return nil, errors.Join(errs...)
}
