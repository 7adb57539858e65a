package service

import (
	"context"
	"errors"
	"path/filepath"
	"polcomp/internal/model"
	"polcomp/internal/repository"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAveragesCache struct {
	mu       sync.Mutex
	averages *model.IdentityAverages
	err      error
}

func (f *fakeAveragesCache) GetAverages(ctx context.Context) (*model.IdentityAverages, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.averages, f.err
}

func (f *fakeAveragesCache) SetAverages(ctx context.Context, averages *model.IdentityAverages) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.averages = averages
	return nil
}

func repeat(n int, r seedRecord) []seedRecord {
	out := make([]seedRecord, n)
	for i := range out {
		out[i] = r
	}
	return out
}

func newIdentityService(t *testing.T, repo repository.ResultRepo, ref ReferenceData, averages repository.AveragesRepo, c *fakeAveragesCache) *IdentityAverageService {
	t.Helper()
	svc := NewIdentityAverageService(repo, ref, averages, c, testMetrics(), testLogger(), IdentityConfig{
		MinResults:  50,
		SampleCap:   10000,
		WindowStart: model.NewDate(2023, time.January, 1),
		Concurrency: 2,
	})
	svc.today = func() model.Date { return date(31) }
	return svc
}

func TestComputeThreshold(t *testing.T) {
	var records []seedRecord
	records = append(records, repeat(50, seedRecord{day: 5, identities: []string{"Feminist"}, scores: uniformScores(-0.4)})...)
	records = append(records, repeat(51, seedRecord{day: 6, identities: []string{"Libertarian"}, scores: uniformScores(0.6)})...)
	repo := seedRepo(t, records...)

	averagesPath := filepath.Join(t.TempDir(), "axis_averages.json")
	svc := newIdentityService(t, repo, newStubRefData(t), repository.NewFileAveragesRepo(averagesPath), nil)

	got, err := svc.Compute(context.Background())
	require.NoError(t, err)

	assert.NotContains(t, got.Averages, "Feminist", "exactly min_results is excluded")
	assert.NotContains(t, got.Averages, "Nationalist")
	require.Contains(t, got.Averages, "Libertarian")
	assert.Equal(t, 0.6, got.Averages["Libertarian"][model.AxisEconomics])

	require.Contains(t, got.Averages, model.AverageResultIdentity)
	// (50 * -0.4 + 51 * 0.6) / 101
	assert.Equal(t, 0.1, got.Averages[model.AverageResultIdentity][model.AxisSociety])
}

func TestComputeWindow(t *testing.T) {
	records := repeat(60, seedRecord{day: 10, identities: []string{"Nationalist"}, scores: uniformScores(0.3)})
	repo := seedRepo(t, records...)
	svc := newIdentityService(t, repo, newStubRefData(t), repository.NewFileAveragesRepo(filepath.Join(t.TempDir(), "a.json")), nil)

	svc.today = func() model.Date { return date(9) }
	got, err := svc.Compute(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got.Averages, "records after today are outside the window")
}

func TestRunPublishes(t *testing.T) {
	repo := seedRepo(t, repeat(51, seedRecord{day: 3, identities: []string{"Feminist"}, scores: uniformScores(-0.2)})...)
	path := filepath.Join(t.TempDir(), "axis_averages.json")
	store := repository.NewFileAveragesRepo(path)
	c := &fakeAveragesCache{}
	svc := newIdentityService(t, repo, newStubRefData(t), store, c)

	published, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, published.Averages, 2)

	loaded, err := store.Load(context.Background())
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, published.Averages, loaded.Averages)
	assert.Equal(t, published, c.averages)
}

func TestRunCacheFailureDoesNotFailPublish(t *testing.T) {
	repo := seedRepo(t)
	c := &fakeAveragesCache{err: errors.New("redis down")}
	svc := newIdentityService(t, repo, newStubRefData(t), repository.NewFileAveragesRepo(filepath.Join(t.TempDir(), "a.json")), c)

	_, err := svc.Run(context.Background())
	assert.NoError(t, err)
}

func TestComputeSchemaUnavailable(t *testing.T) {
	ref := newStubRefData(t)
	ref.schemaErr = errors.New("missing")
	svc := newIdentityService(t, seedRepo(t), ref, repository.NewFileAveragesRepo(filepath.Join(t.TempDir(), "a.json")), nil)

	_, err := svc.Run(context.Background())
	assert.True(t, errors.Is(err, model.ErrReferenceDataUnavailable))
}
