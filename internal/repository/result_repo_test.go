package repository

import (
	"context"
	"path/filepath"
	"polcomp/internal/filter"
	"polcomp/internal/model"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func day(d int) model.Date { return model.NewDate(2024, time.January, d) }

func scoresOf(v float64) model.AxisScores {
	s := model.AxisScores{}
	for _, a := range model.Axes {
		s[a] = v
	}
	return s
}

// seedCorpus inserts a small corpus and returns the ids in insert order.
func seedCorpus(t *testing.T, repo ResultRepo) []string {
	t.Helper()
	group := "0b9f6a1e-3c2d-4e5f-8a7b-1c2d3e4f5a6b"
	recs := []*model.ResultRecord{
		{Date: day(1), Demographics: model.Demographics{Age: 25, Country: "US", Identities: []string{"Feminist"}}},
		{Date: day(2), Demographics: model.Demographics{Age: 40, Country: "US", Identities: []string{"Feminist", "Environmentalist"}}},
		{Date: day(3), Demographics: model.Demographics{Age: model.AgeSkip, Country: "US", Party: "US-Democrat"}, GroupID: group},
		{Date: day(3), Demographics: model.Demographics{Age: model.AgeOver100, Country: "FR", Identities: []string{"Environmentalist"}}},
		{Date: day(9), Demographics: model.Demographics{Age: 30, Country: "US"}, HowFound: "Reddit"},
	}

	var ids []string
	for i, rec := range recs {
		rec.Scores = scoresOf(float64(i) / 10)
		rec.Answers = model.AnswerSet{1: i%5 - 2, 2: 0}
		id, err := repo.Insert(context.Background(), rec)
		require.NoError(t, err)
		require.NotEmpty(t, id)
		ids = append(ids, id)
	}
	return ids
}

func repoImplementations(t *testing.T) map[string]ResultRepo {
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "results.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return map[string]ResultRepo{
		"memory": NewMemoryResultRepo(),
		"sqlite": NewSQLiteResultRepo(db),
	}
}

func TestResultRepoContract(t *testing.T) {
	for name, repo := range repoImplementations(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			ids := seedCorpus(t, repo)

			window := ResultQuery{MinDate: day(1), MaxDate: day(3), Order: model.OrderRecent}

			count := func(fs model.Filterset) int {
				q := window
				q.Predicate = filter.Compile(fs)
				n, err := repo.Count(ctx, q)
				require.NoError(t, err)
				return n
			}

			assert.Equal(t, 4, count(model.Filterset{}), "date window is inclusive")
			assert.Equal(t, 3, count(model.Filterset{Country: []string{"US"}}))
			assert.Equal(t, 0, count(model.Filterset{Country: []string{"DE"}}))
			assert.Equal(t, 2, count(model.Filterset{MinAge: intPtr(18), MaxAge: intPtr(40)}))
			assert.Equal(t, 1, count(model.Filterset{MinAge: intPtr(90)}))
			assert.Equal(t, 3, count(model.Filterset{MinAge: intPtr(0)}), "zero min age still excludes skipped ages")
			assert.Equal(t, 3, count(model.Filterset{Identities: []string{"Feminist", "Environmentalist"}}))
			assert.Equal(t, 1, count(model.Filterset{Identities: []string{"Feminist", "Environmentalist"}, AnyAll: model.MatchAll}))
			assert.Equal(t, 1, count(model.Filterset{Party: []string{"US-Democrat"}}))
			assert.Equal(t, 1, count(model.Filterset{GroupIDs: []string{"0b9f6a1e-3c2d-4e5f-8a7b-1c2d3e4f5a6b"}}))

			limited := window
			limited.Limit = 2
			n, err := repo.Count(ctx, limited)
			require.NoError(t, err)
			assert.Equal(t, 2, n)

			recent, err := repo.Find(ctx, limited)
			require.NoError(t, err)
			require.Len(t, recent, 2)
			assert.Equal(t, ids[3], recent[0].ID, "newest first, later insert wins a date tie")
			assert.Equal(t, ids[2], recent[1].ID)
			assert.Equal(t, 0.3, recent[0].Scores[model.AxisSociety])
			assert.Equal(t, model.AnswerSet{1: 1, 2: 0}, recent[0].Answers)

			total, err := repo.Total(ctx)
			require.NoError(t, err)
			assert.Equal(t, 5, total)

			rec, err := repo.Get(ctx, ids[4])
			require.NoError(t, err)
			require.NotNil(t, rec)
			assert.Equal(t, "Reddit", rec.HowFound)
			assert.Equal(t, day(9), rec.Date)
			assert.Equal(t, 30, rec.Demographics.Age)

			missing, err := repo.Get(ctx, "999")
			require.NoError(t, err)
			assert.Nil(t, missing)
		})
	}
}

func TestResultRepoRandomOrderIsSeeded(t *testing.T) {
	for name, repo := range repoImplementations(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			seedCorpus(t, repo)

			order := func(seed int64) []string {
				recs, err := repo.Find(ctx, ResultQuery{Order: model.OrderRandom, Seed: seed})
				require.NoError(t, err)
				ids := make([]string, len(recs))
				for i, r := range recs {
					ids[i] = r.ID
				}
				return ids
			}

			first := order(12345)
			assert.Len(t, first, 5)
			assert.Equal(t, first, order(12345), "same seed, same permutation")
			assert.ElementsMatch(t, first, order(987654321))
		})
	}
}

func TestRandomOrderMatchesAcrossBackends(t *testing.T) {
	repos := repoImplementations(t)
	mem, lite := repos["memory"], repos["sqlite"]

	for i := 0; i < 20; i++ {
		rec := func() *model.ResultRecord {
			return &model.ResultRecord{Date: day(1 + i%5), RankKey: int64(i*7919 + 13), Scores: scoresOf(0), Answers: model.AnswerSet{}}
		}
		_, err := mem.Insert(context.Background(), rec())
		require.NoError(t, err)
		_, err = lite.Insert(context.Background(), rec())
		require.NoError(t, err)
	}

	q := ResultQuery{Order: model.OrderRandom, Seed: 2654435761, Limit: 10}
	a, err := mem.Find(context.Background(), q)
	require.NoError(t, err)
	b, err := lite.Find(context.Background(), q)
	require.NoError(t, err)

	require.Len(t, a, 10)
	require.Len(t, b, 10)
	for i := range a {
		assert.Equal(t, a[i].ID, b[i].ID)
	}
}

func TestPermuteIsBijective(t *testing.T) {
	seen := map[int64]bool{}
	for k := int64(0); k < 4096; k++ {
		p := permute(k, 0x9E3779B1)
		assert.False(t, seen[p])
		seen[p] = true
		assert.GreaterOrEqual(t, p, int64(0))
		assert.Less(t, p, rankModulus)
	}
}

func TestSQLiteAveragesRepo(t *testing.T) {
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "avg.db"))
	require.NoError(t, err)
	defer db.Close()

	assertAveragesRoundTrip(t, NewSQLiteAveragesRepo(db))
}

func TestFileAveragesRepo(t *testing.T) {
	assertAveragesRoundTrip(t, NewFileAveragesRepo(filepath.Join(t.TempDir(), "axis_averages.json")))
}

func TestMultiAveragesRepoFallsThrough(t *testing.T) {
	dir := t.TempDir()
	empty := NewFileAveragesRepo(filepath.Join(dir, "a.json"))
	full := NewFileAveragesRepo(filepath.Join(dir, "b.json"))

	table := &model.IdentityAverages{
		Averages:   map[string]model.AxisScores{"Feminist": scoresOf(0.4)},
		ComputedAt: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, full.Save(context.Background(), table))

	got, err := MultiAveragesRepo{empty, full}.Load(context.Background())
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, table.Averages, got.Averages)
}

func assertAveragesRoundTrip(t *testing.T, repo AveragesRepo) {
	t.Helper()
	ctx := context.Background()

	none, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, none)

	table := &model.IdentityAverages{
		Averages: map[string]model.AxisScores{
			"Feminist":                  scoresOf(-0.25),
			model.AverageResultIdentity: scoresOf(0.1),
		},
		ComputedAt: time.Date(2024, 5, 1, 3, 0, 0, 0, time.UTC),
	}
	require.NoError(t, repo.Save(ctx, table))

	table.Averages["Feminist"] = scoresOf(0.5)
	require.NoError(t, repo.Save(ctx, table))

	got, err := repo.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, table.Averages, got.Averages)
	assert.True(t, table.ComputedAt.Equal(got.ComputedAt))
}
