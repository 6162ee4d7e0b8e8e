package schema

// Custom string types for type safety.
type (
	// OutputMode represents the format of the output.
	OutputMode string

	// DatabaseBackend represents the database backend for caching and run history.
	DatabaseBackend string

	// CompositePolicy decides how absent normalized values enter the composite mean.
	CompositePolicy string
)

// All output modes supported.
const (
	CSVOut     OutputMode = "csv"
	TextOut    OutputMode = "text" // default
	JSONOut    OutputMode = "json"
	ParquetOut OutputMode = "parquet"
	GeoJSONOut OutputMode = "geojson"
)

// All database backends supported.
const (
	SQLiteBackend     DatabaseBackend = "sqlite" // default
	MySQLBackend      DatabaseBackend = "mysql"
	PostgreSQLBackend DatabaseBackend = "postgresql"
	RedisBackend      DatabaseBackend = "redis" // result cache only
	NoneBackend       DatabaseBackend = "none"
)

// All composite policies supported.
const (
	// ZeroFillPolicy counts an absent normalized value as 0 and always divides by
	// the full column count. A district missing data is pulled toward low risk.
	ZeroFillPolicy CompositePolicy = "zero-fill" // default

	// ExcludeAbsentPolicy averages only the present normalized values.
	ExcludeAbsentPolicy CompositePolicy = "exclude-absent"
)

// ValidOutputModes has valid output modes.
var ValidOutputModes = map[OutputMode]struct{}{
	CSVOut:     {},
	TextOut:    {},
	JSONOut:    {},
	ParquetOut: {},
	GeoJSONOut: {},
}

// ValidDatabaseBackends has valid backends for run history.
var ValidDatabaseBackends = map[DatabaseBackend]struct{}{
	SQLiteBackend:     {},
	MySQLBackend:      {},
	PostgreSQLBackend: {},
	NoneBackend:       {},
}

// ValidCacheBackends has valid backends for the result cache.
var ValidCacheBackends = map[DatabaseBackend]struct{}{
	SQLiteBackend:     {},
	MySQLBackend:      {},
	PostgreSQLBackend: {},
	RedisBackend:      {},
	NoneBackend:       {},
}

// ValidCompositePolicies has valid composite policies.
var ValidCompositePolicies = map[CompositePolicy]struct{}{
	ZeroFillPolicy:      {},
	ExcludeAbsentPolicy: {},
}
