package cache

import (
	"polcomp/internal/model"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatchDigestIgnoresOrder(t *testing.T) {
	batch := model.FilterBatch{
		Order:      model.OrderRecent,
		MinDate:    model.NewDate(2024, time.January, 1),
		MaxDate:    model.NewDate(2024, time.March, 1),
		Limit:      500,
		Filtersets: []model.Filterset{{Label: "a", Color: "red", Country: []string{"US"}}},
	}

	recent, err := BatchDigest(batch)
	require.NoError(t, err)

	batch.Order = model.OrderRandom
	random, err := BatchDigest(batch)
	require.NoError(t, err)
	assert.Equal(t, recent, random)

	batch.Filtersets[0].Country = []string{"CA"}
	other, err := BatchDigest(batch)
	require.NoError(t, err)
	assert.NotEqual(t, recent, other)

	batch.Filtersets[0].Country = []string{"US"}
	batch.Limit = 10
	limited, err := BatchDigest(batch)
	require.NoError(t, err)
	assert.NotEqual(t, recent, limited)
}
