package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewPrometheus(reg, "matchops")
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordOperationAttempt(ctx, "SaveGame", "PersistenceService")
	m.RecordOperationAttempt(ctx, "SaveGame", "PersistenceService")
	m.RecordOperationSuccess(ctx, "SaveGame", "PersistenceService")
	m.RecordOperationFailure(ctx, "SaveGame", "PersistenceService")
	m.RecordOperationDuration(ctx, "SaveGame", "PersistenceService", 20*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.attempts.WithLabelValues("SaveGame", "PersistenceService")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.successes.WithLabelValues("SaveGame", "PersistenceService")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("SaveGame", "PersistenceService")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.duration))
}

func TestNewPrometheusRejectsDoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewPrometheus(reg, "matchops")
	require.NoError(t, err)

	_, err = NewPrometheus(reg, "matchops")
	assert.Error(t, err)
}
