package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.RecordSubmission(StatusOK)
	m.RecordSubmission(StatusOK)
	m.RecordBatch("datasets", StatusInvalid)
	m.RecordFilterset("datasets", 20*time.Millisecond, 42)
	m.RecordAveragesRun(StatusOK, 17)
	m.RecordAveragesRun(StatusError, 0)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.submissions.WithLabelValues(StatusOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.batches.WithLabelValues("datasets", StatusInvalid)))
	assert.Equal(t, 17.0, testutil.ToFloat64(m.averagesPublished))

	n, err := testutil.GatherAndCount(reg, "polcomp_filterset_matched_records")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestNopDoesNotCollide(t *testing.T) {
	assert.NotPanics(t, func() {
		Nop()
		Nop()
	})
}
