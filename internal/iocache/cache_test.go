package iocache

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/huangsam/riskmap/internal/contract"
	"github.com/huangsam/riskmap/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

// cachedResultJSON is shaped like a serialized JoinedResult.
const cachedResultJSON = `{
	"columns": ["soil_hazard", "density", "composite_score"],
	"rows": [{"district": "ANCON", "label": "ANCON", "matched": true,
		"values": {"soil_hazard": 2, "density": 310, "composite_score": 3.25}}],
	"unmatched": [],
	"missing": ["ISLA SAN LORENZO"]
}`

func newMemoryResultStore(t *testing.T) contract.CacheStore {
	t.Helper()
	store, err := NewCacheStore(resultTable, schema.SQLiteBackend, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func resetStoreOnce(t *testing.T) {
	t.Helper()
	initOnce = sync.Once{}
	closeOnce = sync.Once{}
	t.Cleanup(func() {
		initOnce = sync.Once{}
		closeOnce = sync.Once{}
	})
}

func TestResultCacheRoundTrip(t *testing.T) {
	store := newMemoryResultStore(t)
	key := "9f2c0d7e4b1a8c3f6e5d2b9a0c7f4e1d8b5a2c9f6e3d0b7a4c1f8e5d2b9a6c3f"

	require.NoError(t, store.Set(key, []byte(cachedResultJSON), 1, 1767225600))

	value, version, ts, err := store.Get(key)
	require.NoError(t, err)
	assert.JSONEq(t, cachedResultJSON, string(value))
	assert.Equal(t, 1, version)
	assert.Equal(t, int64(1767225600), ts)

	// A second run under the same key replaces the entry.
	require.NoError(t, store.Set(key, []byte(`{"columns":[],"rows":[]}`), 2, 1767229200))
	value, version, ts, err = store.Get(key)
	require.NoError(t, err)
	assert.JSONEq(t, `{"columns":[],"rows":[]}`, string(value))
	assert.Equal(t, 2, version)
	assert.Equal(t, int64(1767229200), ts)

	status, err := store.GetStatus()
	require.NoError(t, err)
	assert.Equal(t, 1, status.TotalEntries)
}

func TestResultCacheMiss(t *testing.T) {
	tests := []struct {
		name  string
		store contract.CacheStore
	}{
		{name: "sqlite without the key", store: newMemoryResultStore(t)},
		{name: "none backend", store: &CacheStoreImpl{tableName: resultTable, backend: schema.NoneBackend}},
		{name: "sql backend never opened", store: &CacheStoreImpl{tableName: resultTable, backend: schema.PostgreSQLBackend}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NoError(t, tt.store.Set("other-key", []byte("{}"), 1, 1))
			_, _, _, err := tt.store.Get("absent-key")
			assert.ErrorIs(t, err, sql.ErrNoRows)
			assert.NoError(t, tt.store.Close())
		})
	}
}

func TestNewCacheStoreRejects(t *testing.T) {
	tests := []struct {
		name      string
		tableName string
		backend   schema.DatabaseBackend
		connStr   string
	}{
		{name: "empty table", tableName: "", backend: schema.SQLiteBackend, connStr: ":memory:"},
		{name: "dash in table", tableName: "result-cache", backend: schema.SQLiteBackend, connStr: ":memory:"},
		{name: "statement in table", tableName: "r; DROP TABLE runs", backend: schema.SQLiteBackend, connStr: ":memory:"},
		{name: "redis namespace validated first", tableName: "bad name", backend: schema.RedisBackend},
		{name: "unknown backend", tableName: resultTable, backend: "dynamodb"},
		{name: "unreachable sqlite path", tableName: resultTable, backend: schema.SQLiteBackend,
			connStr: filepath.Join(t.TempDir(), "no", "such", "dir", "cache.db")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := NewCacheStore(tt.tableName, tt.backend, tt.connStr)
			assert.Error(t, err)
			assert.Nil(t, store)
		})
	}
}

func TestResultCacheStatus(t *testing.T) {
	store := newMemoryResultStore(t)

	status, err := store.GetStatus()
	require.NoError(t, err)
	assert.Equal(t, "sqlite", status.Backend)
	assert.True(t, status.Connected)
	assert.Zero(t, status.TotalEntries)
	assert.True(t, status.LastEntryTime.IsZero())

	stamps := []int64{1767232800, 1767225600, 1767229200}
	for i, ts := range stamps {
		require.NoError(t, store.Set(fmt.Sprintf("run-%d", i), []byte(cachedResultJSON), 1, ts))
	}

	status, err = store.GetStatus()
	require.NoError(t, err)
	assert.Equal(t, len(stamps), status.TotalEntries)
	assert.Equal(t, time.Unix(1767225600, 0), status.OldestEntryTime)
	assert.Equal(t, time.Unix(1767232800, 0), status.LastEntryTime)
	assert.Positive(t, status.TableSizeBytes)

	disabled := &CacheStoreImpl{tableName: resultTable, backend: schema.NoneBackend}
	status, err = disabled.GetStatus()
	require.NoError(t, err)
	assert.Equal(t, schema.CacheStatus{Backend: "none"}, status)
}

func TestCacheSQLDialects(t *testing.T) {
	tests := []struct {
		backend     schema.DatabaseBackend
		quoted      string
		valueType   string
		upsert      string
		secondParam string
	}{
		{backend: schema.SQLiteBackend, quoted: `"result_cache"`, valueType: "BLOB", upsert: "INSERT OR REPLACE", secondParam: "?"},
		{backend: schema.MySQLBackend, quoted: "`result_cache`", valueType: "LONGBLOB", upsert: "ON DUPLICATE KEY UPDATE", secondParam: "?"},
		{backend: schema.PostgreSQLBackend, quoted: `"result_cache"`, valueType: "BYTEA", upsert: "ON CONFLICT (cache_key)", secondParam: "$2"},
	}

	for _, tt := range tests {
		t.Run(string(tt.backend), func(t *testing.T) {
			assert.Equal(t, tt.quoted, quoteTableName(resultTable, tt.backend))

			create := getCreateTableQuery(resultTable, tt.backend)
			assert.Contains(t, create, "CREATE TABLE IF NOT EXISTS "+tt.quoted)
			assert.Contains(t, create, "cache_value "+tt.valueType)

			store := &CacheStoreImpl{tableName: resultTable, backend: tt.backend}
			assert.Contains(t, store.getUpsertQuery(), tt.upsert)
			assert.Equal(t, tt.secondParam, placeholder(tt.backend, 2))
		})
	}
}

func TestValidateTableName(t *testing.T) {
	tests := []struct {
		name    string
		wantErr bool
	}{
		{name: "result_cache"},
		{name: "_district_scores"},
		{name: "Runs2026"},
		{name: "", wantErr: true},
		{name: "2026_runs", wantErr: true},
		{name: "result.cache", wantErr: true},
		{name: "distrito_breña", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateTableName(tt.name)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestInitStoresSplitBackends(t *testing.T) {
	t.Run("caching off with run history kept", func(t *testing.T) {
		resetStoreOnce(t)
		require.NoError(t, InitStores(schema.NoneBackend, "", schema.SQLiteBackend, ":memory:"))
		defer CloseCaching()

		results := Manager.GetResultStore()
		require.NotNil(t, results)
		require.NoError(t, results.Set("ignored", []byte(cachedResultJSON), 1, 1))
		_, _, _, err := results.Get("ignored")
		assert.ErrorIs(t, err, sql.ErrNoRows)

		runs := Manager.GetRunStore()
		require.NotNil(t, runs)
		runID, err := runs.BeginRun(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC), nil)
		require.NoError(t, err)
		assert.Positive(t, runID)
	})

	t.Run("empty backends leave stores unset", func(t *testing.T) {
		resetStoreOnce(t)
		require.NoError(t, InitStores("", "", "", ""))
		defer CloseCaching()

		assert.Nil(t, Manager.GetResultStore())
		assert.Nil(t, Manager.GetRunStore())
	})

	t.Run("redis cannot hold run history", func(t *testing.T) {
		resetStoreOnce(t)
		err := InitStores(schema.SQLiteBackend, ":memory:", schema.RedisBackend, "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "run store")
	})

	t.Run("second init is ignored", func(t *testing.T) {
		resetStoreOnce(t)
		require.NoError(t, InitStores(schema.NoneBackend, "", "", ""))
		defer CloseCaching()
		assert.NoError(t, InitStores("dynamodb", "", "", ""))
	})
}

func TestResultStoreSharedAcrossWorkers(t *testing.T) {
	resetStoreOnce(t)
	require.NoError(t, InitStores(schema.SQLiteBackend, ":memory:", "", ""))
	defer CloseCaching()

	const workers = 8
	var g errgroup.Group
	for i := range workers {
		g.Go(func() error {
			store := Manager.GetResultStore()
			if store == nil {
				return fmt.Errorf("worker %d: no result store", i)
			}
			return store.Set(fmt.Sprintf("policy-%d", i), []byte(cachedResultJSON), 1, int64(1767225600+i))
		})
	}
	require.NoError(t, g.Wait())

	status, err := Manager.GetResultStore().GetStatus()
	require.NoError(t, err)
	assert.Equal(t, workers, status.TotalEntries)
}

func TestClearStores(t *testing.T) {
	type clearFunc func(schema.DatabaseBackend, string, string) error

	tests := []struct {
		name    string
		clear   clearFunc
		backend schema.DatabaseBackend
		wantErr bool
	}{
		{name: "cache sqlite", clear: ClearCache, backend: schema.SQLiteBackend},
		{name: "cache none", clear: ClearCache, backend: schema.NoneBackend},
		{name: "cache unknown", clear: ClearCache, backend: "dynamodb", wantErr: true},
		{name: "runs sqlite", clear: ClearRuns, backend: schema.SQLiteBackend},
		{name: "runs none", clear: ClearRuns, backend: schema.NoneBackend},
		{name: "runs redis", clear: ClearRuns, backend: schema.RedisBackend, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dbFile := filepath.Join(t.TempDir(), "riskmap.db")
			require.NoError(t, os.WriteFile(dbFile, []byte("stale"), 0o600))

			err := tt.clear(tt.backend, dbFile, "")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)

			_, statErr := os.Stat(dbFile)
			if tt.backend == schema.SQLiteBackend {
				assert.True(t, os.IsNotExist(statErr), "sqlite file should be removed")
			} else {
				assert.NoError(t, statErr, "file should be left alone")
			}
		})
	}

	t.Run("sqlite file already gone", func(t *testing.T) {
		assert.NoError(t, ClearCache(schema.SQLiteBackend, filepath.Join(t.TempDir(), "absent.db"), ""))
	})

	t.Run("sqlite needs a path", func(t *testing.T) {
		assert.Error(t, ClearRuns(schema.SQLiteBackend, "", ""))
	})
}

func TestRedisOptions(t *testing.T) {
	tests := []struct {
		name     string
		connStr  string
		wantAddr string
		wantDB   int
		wantErr  bool
	}{
		{name: "empty uses default", connStr: "", wantAddr: DefaultRedisAddr},
		{name: "host and port", connStr: "cache.lima.internal:6380", wantAddr: "cache.lima.internal:6380"},
		{name: "url with db", connStr: "redis://localhost:6379/3", wantAddr: "localhost:6379", wantDB: 3},
		{name: "wrong scheme", connStr: "http://localhost:6379", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, err := redisOptions(tt.connStr)
			if tt.wantErr {
				assert.Error(t, err)
				_, storeErr := NewRedisStore(resultTable, tt.connStr)
				assert.Error(t, storeErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantAddr, opts.Addr)
			assert.Equal(t, tt.wantDB, opts.DB)
		})
	}
}
