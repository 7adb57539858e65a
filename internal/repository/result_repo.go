package repository

import (
	"context"
	"math/rand/v2"
	"polcomp/internal/filter"
	"polcomp/internal/model"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// rankModulus bounds rank keys and their permutations.
const rankModulus = int64(1) << 32

// ResultQuery selects records for aggregation. Zero dates leave that side
// unbounded and a zero Limit returns every match.
type ResultQuery struct {
	MinDate   model.Date
	MaxDate   model.Date
	Predicate filter.Predicate
	Order     model.Order
	Seed      int64
	Limit     int
}

// ResultRepo stores result records and runs filtered queries over them.
type ResultRepo interface {
	// Insert stores one record and returns its id. The record is either fully
	// visible afterwards or not at all.
	Insert(ctx context.Context, rec *model.ResultRecord) (string, error)

	// Get returns the record with id, or nil when none exists.
	Get(ctx context.Context, id string) (*model.ResultRecord, error)

	// Find returns the matching records in query order. Only ID, Scores and
	// Answers are populated.
	Find(ctx context.Context, q ResultQuery) ([]*model.ResultRecord, error)

	// Count returns how many records Find would return.
	Count(ctx context.Context, q ResultQuery) (int, error)

	// Total returns the number of stored records.
	Total(ctx context.Context) (int, error)
}

// NewRankKey draws a random rank key for a new record.
func NewRankKey() int64 {
	return rand.Int64N(rankModulus)
}

// NewSeed draws an odd seed for random ordering.
func NewSeed() int64 {
	return rand.Int64N(rankModulus/2) | 1
}

// normalizeSeed folds any seed into an odd multiplier below 2^31 so that
// rank_key * seed never overflows a signed 64-bit integer.
func normalizeSeed(seed int64) int64 {
	return int64(uint64(seed)%uint64(rankModulus/2)) | 1
}

// permute maps a rank key through the seeded permutation used for random
// ordering. Multiplying by an odd seed modulo 2^32 is a bijection.
func permute(rankKey, seed int64) int64 {
	return (rankKey * normalizeSeed(seed)) % rankModulus
}

func prepareRecord(rec *model.ResultRecord) {
	if rec.Date.IsZero() {
		rec.Date = model.Today()
	}
	if rec.RankKey == 0 {
		rec.RankKey = NewRankKey()
	}
}

type mongoResultRepo struct {
	results *mongo.Collection
	logger  *zap.Logger
}

// NewMongoResultRepo creates a Mongo-backed result repository with indexes.
func NewMongoResultRepo(db *mongo.Database, logger *zap.Logger) ResultRepo {
	repo := &mongoResultRepo{
		results: db.Collection("results"),
		logger:  logger,
	}

	repo.ensureIndexes(context.Background())

	return repo
}

func (r *mongoResultRepo) ensureIndexes(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	r.createIndex(ctx, bson.D{{Key: "date", Value: -1}, {Key: "_id", Value: -1}})
	r.createIndex(ctx, bson.D{{Key: "demographics.identities", Value: 1}, {Key: "date", Value: -1}})
	r.createIndex(ctx, bson.D{{Key: "demographics.country", Value: 1}, {Key: "date", Value: -1}})
	r.createIndex(ctx, bson.D{{Key: "group_id", Value: 1}})
}

func (r *mongoResultRepo) createIndex(ctx context.Context, keys bson.D) {
	_, err := r.results.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: keys})
	if err != nil {
		r.logger.Warn("failed to create index on results", zap.Any("keys", keys), zap.Error(err))
	}
}

func (r *mongoResultRepo) Insert(ctx context.Context, rec *model.ResultRecord) (string, error) {
	prepareRecord(rec)

	result, err := r.results.InsertOne(ctx, rec)
	if err != nil {
		return "", model.NewStorageError("insert result", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		rec.ID = oid.Hex()
	}

	return rec.ID, nil
}

func (r *mongoResultRepo) Get(ctx context.Context, id string) (*model.ResultRecord, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}

	var rec model.ResultRecord
	err = r.results.FindOne(ctx, bson.M{"_id": oid}).Decode(&rec)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, model.NewStorageError("get result", err)
	}
	return &rec, nil
}

var scoredProjection = bson.D{{Key: "scores", Value: 1}, {Key: "answers", Value: 1}}

func (r *mongoResultRepo) Find(ctx context.Context, q ResultQuery) ([]*model.ResultRecord, error) {
	match, err := queryToBSON(q)
	if err != nil {
		return nil, err
	}

	var cursor *mongo.Cursor
	if q.Order == model.OrderRandom {
		cursor, err = r.results.Aggregate(ctx, randomPipeline(match, q))
	} else {
		opts := options.Find().
			SetSort(bson.D{{Key: "date", Value: -1}, {Key: "_id", Value: -1}}).
			SetProjection(scoredProjection)
		if q.Limit > 0 {
			opts.SetLimit(int64(q.Limit))
		}
		cursor, err = r.results.Find(ctx, match, opts)
	}
	if err != nil {
		return nil, model.NewStorageError("find results", err)
	}
	defer cursor.Close(ctx)

	var records []*model.ResultRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, model.NewStorageError("decode results", err)
	}
	return records, nil
}

func randomPipeline(match bson.D, q ResultQuery) mongo.Pipeline {
	order := bson.D{{Key: "$mod", Value: bson.A{
		bson.D{{Key: "$multiply", Value: bson.A{"$rank_key", normalizeSeed(q.Seed)}}},
		rankModulus,
	}}}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$addFields", Value: bson.D{{Key: "_order", Value: order}}}},
		{{Key: "$sort", Value: bson.D{{Key: "_order", Value: 1}, {Key: "_id", Value: 1}}}},
	}
	if q.Limit > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$limit", Value: int64(q.Limit)}})
	}
	return append(pipeline, bson.D{{Key: "$project", Value: scoredProjection}})
}

func (r *mongoResultRepo) Count(ctx context.Context, q ResultQuery) (int, error) {
	match, err := queryToBSON(q)
	if err != nil {
		return 0, err
	}

	opts := options.Count()
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}
	n, err := r.results.CountDocuments(ctx, match, opts)
	if err != nil {
		return 0, model.NewStorageError("count results", err)
	}
	return int(n), nil
}

func (r *mongoResultRepo) Total(ctx context.Context) (int, error) {
	n, err := r.results.EstimatedDocumentCount(ctx)
	if err != nil {
		return 0, model.NewStorageError("count results", err)
	}
	return int(n), nil
}
