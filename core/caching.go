package core

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"maps"
	"time"

	"github.com/huangsam/riskmap/internal/contract"
	"github.com/huangsam/riskmap/internal/observability"
	"github.com/huangsam/riskmap/schema"
)

// currentCacheVersion defines the version of the cache schema
const currentCacheVersion = 1

// cacheTTL is how long a stored result stays fresh.
const cacheTTL = 7 * 24 * time.Hour

// cachedPipeline returns the joined result for src, from the result cache
// when a fresh entry exists. The bool reports a cache hit.
func cachedPipeline(ctx context.Context, cfg *contract.Config, src Sources, mgr contract.CacheManager) (*schema.JoinedResult, bool, error) {
	var store contract.CacheStore
	if mgr != nil {
		store = mgr.GetResultStore()
	}
	if store == nil {
		// Fallback to direct computation
		result, err := computePipeline(ctx, cfg, src)
		return result, false, err
	}

	key := generateCacheKey(src, cfg.Policy)

	// Check for cache hit
	if result := checkCacheHit(store, key, src.Geometry.Records); result != nil {
		return result, true, nil
	}

	// Cache miss: compute and store
	result, err := computeAndStore(ctx, cfg, src, store, key)
	return result, false, err
}

// checkCacheHit attempts to retrieve and validate a cached result
func checkCacheHit(store contract.CacheStore, key string, records []schema.GeometryRecord) *schema.JoinedResult {
	data, version, ts, err := store.Get(key)
	if err != nil {
		metrics.ObserveCache(observability.CacheMiss)
		return nil
	}

	// Validate version and staleness
	if version != currentCacheVersion || clock.Since(time.Unix(ts, 0)) > cacheTTL {
		metrics.ObserveCache(observability.CacheStale)
		return nil
	}

	var result schema.JoinedResult
	if err := json.Unmarshal(data, &result); err != nil {
		metrics.ObserveCache(observability.CacheError)
		return nil
	}
	if !attachGeometry(&result, records) {
		metrics.ObserveCache(observability.CacheStale)
		return nil
	}

	metrics.ObserveCache(observability.CacheHit)
	metrics.ObserveResult(&result)
	return &result
}

// attachGeometry restores the geometries and source properties a cached
// result was stored without.
// Rows must line up with records one to one, in order.
func attachGeometry(result *schema.JoinedResult, records []schema.GeometryRecord) bool {
	if len(result.Rows) != len(records) {
		return false
	}
	for i := range result.Rows {
		if result.Rows[i].Label != records[i].Label {
			return false
		}
		result.Rows[i].Geometry = records[i].Geometry
		result.Rows[i].Properties = maps.Clone(records[i].Properties)
	}
	return true
}

// computePipeline runs the pipeline over src and records its timing.
func computePipeline(ctx context.Context, cfg *contract.Config, src Sources) (*schema.JoinedResult, error) {
	start := clock.Now()
	result, err := RunPipeline(ctx, src.Dataset.Inputs(), src.Geometry.Records, PipelineOptions{
		Policy:  cfg.Policy,
		Workers: cfg.Workers,
	})
	if err != nil {
		return nil, err
	}
	metrics.ObservePipeline(clock.Since(start), result)
	return result, nil
}

// computeAndStore computes the result and stores it in cache
func computeAndStore(ctx context.Context, cfg *contract.Config, src Sources, store contract.CacheStore, key string) (*schema.JoinedResult, error) {
	result, err := computePipeline(ctx, cfg, src)
	if err != nil {
		return nil, err
	}

	// Store in cache
	if data, err := json.Marshal(result); err == nil {
		_ = store.Set(key, data, currentCacheVersion, clock.Now().Unix())
	}

	return result, nil
}

// generateCacheKey identifies a result by everything that can change it.
// Worker count is left out because it never changes the output.
func generateCacheKey(src Sources, policy schema.CompositePolicy) string {
	key := fmt.Sprintf("%d:%s:%s:%s:%s",
		currentCacheVersion,
		src.Dataset.Digest(),
		src.Geometry.Digest,
		src.Geometry.LabelField,
		policy,
	)
	return fmt.Sprintf("%x", sha256.Sum256([]byte(key)))
}
