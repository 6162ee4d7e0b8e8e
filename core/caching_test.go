package core

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/huangsam/riskmap/internal/iocache"
	"github.com/huangsam/riskmap/internal/observability"
	"github.com/huangsam/riskmap/schema"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
)

// useMetrics installs a fresh metrics sink for the duration of a test.
func useMetrics(t *testing.T) *observability.Metrics {
	m := observability.NewMetrics()
	SetMetrics(m)
	t.Cleanup(func() { SetMetrics(nil) })
	return m
}

func lookups(m *observability.Metrics, result string) float64 {
	return testutil.ToFloat64(m.CacheLookups.WithLabelValues(result))
}

func TestCachedPipeline(t *testing.T) {
	ctx := context.Background()
	cfg := newTestConfig(t)
	src, err := LoadSources(cfg)
	require.NoError(t, err)
	key := generateCacheKey(src, cfg.Policy)

	fresh, err := computePipeline(ctx, cfg, src)
	require.NoError(t, err)
	payload, err := json.Marshal(fresh)
	require.NoError(t, err)

	t.Run("miss computes and stores", func(t *testing.T) {
		fake := useFakeClock(t)
		m := useMetrics(t)

		store := &iocache.MockCacheStore{}
		store.On("Get", key).Return(nil, 0, int64(0), sql.ErrNoRows)
		store.On("Set", key, mock.Anything, currentCacheVersion, fake.Now().Unix()).Return(nil)
		mgr := &iocache.MockCacheManager{}
		mgr.On("GetResultStore").Return(store)

		result, cached, err := cachedPipeline(ctx, cfg, src, mgr)
		require.NoError(t, err)
		assert.False(t, cached)
		assert.Equal(t, fresh, result)
		assert.Equal(t, 1.0, lookups(m, observability.CacheMiss))
		assert.Equal(t, 1.0, testutil.ToFloat64(m.PipelineRuns))
		store.AssertExpectations(t)
	})

	t.Run("hit restores geometry", func(t *testing.T) {
		fake := useFakeClock(t)
		m := useMetrics(t)

		store := &iocache.MockCacheStore{}
		store.On("Get", key).Return(payload, currentCacheVersion, fake.Now().Add(-time.Hour).Unix(), nil)
		mgr := &iocache.MockCacheManager{}
		mgr.On("GetResultStore").Return(store)

		result, cached, err := cachedPipeline(ctx, cfg, src, mgr)
		require.NoError(t, err)
		assert.True(t, cached)
		require.Len(t, result.Rows, len(fresh.Rows))
		for i := range result.Rows {
			assert.Equal(t, fresh.Rows[i].Values, result.Rows[i].Values)
			assert.NotNil(t, result.Rows[i].Geometry)
		}
		assert.Equal(t, fresh.Missing, result.Missing)
		assert.Equal(t, 1.0, lookups(m, observability.CacheHit))
		assert.Equal(t, 0.0, testutil.ToFloat64(m.PipelineRuns))
		store.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	tests := []struct {
		name    string
		data    []byte
		version int
		age     time.Duration
		outcome string
	}{
		{name: "expired entry", data: payload, version: currentCacheVersion, age: cacheTTL + time.Minute, outcome: observability.CacheStale},
		{name: "old version", data: payload, version: currentCacheVersion - 1, age: time.Minute, outcome: observability.CacheStale},
		{name: "corrupt payload", data: []byte("{not json"), version: currentCacheVersion, age: time.Minute, outcome: observability.CacheError},
		{name: "rows out of line", data: []byte(`{"rows":[]}`), version: currentCacheVersion, age: time.Minute, outcome: observability.CacheStale},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := useFakeClock(t)
			m := useMetrics(t)

			store := &iocache.MockCacheStore{}
			store.On("Get", key).Return(tt.data, tt.version, fake.Now().Add(-tt.age).Unix(), nil)
			store.On("Set", key, mock.Anything, currentCacheVersion, fake.Now().Unix()).Return(nil)
			mgr := &iocache.MockCacheManager{}
			mgr.On("GetResultStore").Return(store)

			result, cached, err := cachedPipeline(ctx, cfg, src, mgr)
			require.NoError(t, err)
			assert.False(t, cached)
			assert.Equal(t, fresh, result)
			assert.Equal(t, 1.0, lookups(m, tt.outcome))
			store.AssertExpectations(t)
		})
	}

	t.Run("no store", func(t *testing.T) {
		mgr := &iocache.MockCacheManager{}
		mgr.On("GetResultStore").Return(nil)

		result, cached, err := cachedPipeline(ctx, cfg, src, mgr)
		require.NoError(t, err)
		assert.False(t, cached)
		assert.Equal(t, fresh, result)
	})

	t.Run("store write failure is ignored", func(t *testing.T) {
		store := &iocache.MockCacheStore{}
		store.On("Get", key).Return(nil, 0, int64(0), sql.ErrNoRows)
		store.On("Set", key, mock.Anything, currentCacheVersion, mock.Anything).Return(assert.AnError)
		mgr := &iocache.MockCacheManager{}
		mgr.On("GetResultStore").Return(store)

		result, _, err := cachedPipeline(ctx, cfg, src, mgr)
		require.NoError(t, err)
		assert.Len(t, result.Rows, 3)
	})
}

func TestGenerateCacheKey(t *testing.T) {
	cfg := newTestConfig(t)
	src, err := LoadSources(cfg)
	require.NoError(t, err)

	base := generateCacheKey(src, schema.ZeroFillPolicy)
	assert.Len(t, base, 64)
	assert.Equal(t, base, generateCacheKey(src, schema.ZeroFillPolicy), "key must be stable")
	assert.NotEqual(t, base, generateCacheKey(src, schema.ExcludeAbsentPolicy))

	other := *src.Geometry
	other.LabelField = "nombre"
	assert.NotEqual(t, base, generateCacheKey(Sources{Dataset: src.Dataset, Geometry: &other}, schema.ZeroFillPolicy))

	other = *src.Geometry
	other.Digest = "deadbeef"
	assert.NotEqual(t, base, generateCacheKey(Sources{Dataset: src.Dataset, Geometry: &other}, schema.ZeroFillPolicy))
}

func TestAttachGeometry(t *testing.T) {
	recs := records("ANCON", "LIMA")
	recs[1].Properties = map[string]any{"ubigeo": "150101"}

	cached := &schema.JoinedResult{Rows: []schema.JoinedRow{{Label: "ANCON"}, {Label: "LIMA"}}}
	require.True(t, attachGeometry(cached, recs))
	assert.Same(t, recs[0].Geometry.(*geom.Polygon), cached.Rows[0].Geometry.(*geom.Polygon))
	assert.Nil(t, cached.Rows[0].Properties)
	assert.Equal(t, map[string]any{"ubigeo": "150101"}, cached.Rows[1].Properties)

	assert.False(t, attachGeometry(&schema.JoinedResult{Rows: []schema.JoinedRow{{Label: "ANCON"}}}, recs))
	assert.False(t, attachGeometry(&schema.JoinedResult{Rows: []schema.JoinedRow{{Label: "LIMA"}, {Label: "ANCON"}}}, recs))
}

func TestGetRiskResults_CacheHitIsReported(t *testing.T) {
	fake := useFakeClock(t)
	cfg := newTestConfig(t)
	ctx := WithSuppressHeader(context.Background())

	src, err := LoadSources(cfg)
	require.NoError(t, err)
	fresh, err := computePipeline(ctx, cfg, src)
	require.NoError(t, err)
	payload, err := json.Marshal(fresh)
	require.NoError(t, err)

	store := &iocache.MockCacheStore{}
	store.On("Get", generateCacheKey(src, cfg.Policy)).Return(payload, currentCacheVersion, fake.Now().Unix(), nil)
	mgr := &iocache.MockCacheManager{}
	mgr.On("GetResultStore").Return(store)
	mgr.On("GetRunStore").Return(nil)

	_, summary, _, err := GetDistrictScores(ctx, cfg, mgr)
	require.NoError(t, err)
	assert.True(t, summary.Cached)
}
