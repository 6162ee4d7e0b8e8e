package iocache

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/huangsam/riskmap/internal/contract"
	"github.com/huangsam/riskmap/schema"
)

// Table names for run tracking.
const (
	runsTable           = "riskmap_runs"
	districtScoresTable = "riskmap_district_scores"
)

// RunStoreImpl implements the RunStore interface.
type RunStoreImpl struct {
	db      *sql.DB
	backend schema.DatabaseBackend
}

var _ contract.RunStore = &RunStoreImpl{} // Compile-time check

// NewRunStore creates a new RunStore with the specified backend.
func NewRunStore(backend schema.DatabaseBackend, connStr string) (*RunStoreImpl, error) {
	switch backend {
	case schema.NoneBackend:
		// Return a no-op store for disabled tracking
		return &RunStoreImpl{backend: backend}, nil
	case schema.SQLiteBackend, schema.MySQLBackend, schema.PostgreSQLBackend:
	default:
		return nil, fmt.Errorf("unsupported runs backend: %s", backend)
	}

	db, err := openDatabase(backend, connStr, GetRunsDBFilePath())
	if err != nil {
		return nil, err
	}

	if err := createRunTables(db, backend); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create run tables: %w", err)
	}

	return &RunStoreImpl{db: db, backend: backend}, nil
}

// createRunTables creates the run tracking tables.
func createRunTables(db *sql.DB, backend schema.DatabaseBackend) error {
	tables := []struct {
		name  string
		query string
	}{
		{runsTable, getCreateRunsQuery(backend)},
		{districtScoresTable, getCreateDistrictScoresQuery(backend)},
	}

	for _, table := range tables {
		if _, err := db.Exec(table.query); err != nil {
			return fmt.Errorf("failed to create table %s: %w", table.name, err)
		}
	}
	return nil
}

// getCreateRunsQuery returns the CREATE TABLE query for riskmap_runs.
func getCreateRunsQuery(backend schema.DatabaseBackend) string {
	quotedTableName := quoteTableName(runsTable, backend)

	switch backend {
	case schema.MySQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id BIGINT AUTO_INCREMENT PRIMARY KEY,
				start_time DATETIME(6) NOT NULL,
				end_time DATETIME(6),
				run_duration_ms INT,
				total_districts INT NOT NULL DEFAULT 0,
				config_params TEXT
			);
		`, quotedTableName)

	case schema.PostgreSQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id BIGSERIAL PRIMARY KEY,
				start_time TIMESTAMPTZ NOT NULL,
				end_time TIMESTAMPTZ,
				run_duration_ms INT,
				total_districts INT NOT NULL DEFAULT 0,
				config_params TEXT
			);
		`, quotedTableName)

	default: // SQLite
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id INTEGER PRIMARY KEY AUTOINCREMENT,
				start_time TEXT NOT NULL,
				end_time TEXT,
				run_duration_ms INTEGER,
				total_districts INTEGER NOT NULL DEFAULT 0,
				config_params TEXT
			);
		`, quotedTableName)
	}
}

// getCreateDistrictScoresQuery returns the CREATE TABLE query for riskmap_district_scores.
func getCreateDistrictScoresQuery(backend schema.DatabaseBackend) string {
	quotedTableName := quoteTableName(districtScoresTable, backend)

	switch backend {
	case schema.MySQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id BIGINT NOT NULL,
				district VARCHAR(128) NOT NULL,
				recorded_at DATETIME(6) NOT NULL,
				matched BOOLEAN NOT NULL,
				soil_hazard DOUBLE NOT NULL,
				density DOUBLE NOT NULL,
				substandard_housing DOUBLE NOT NULL,
				casualties DOUBLE NOT NULL,
				destroyed_housing DOUBLE NOT NULL,
				composite_score DOUBLE NOT NULL,
				risk_label VARCHAR(16) NOT NULL,
				PRIMARY KEY (run_id, district)
			);
		`, quotedTableName)

	case schema.PostgreSQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id BIGINT NOT NULL,
				district TEXT NOT NULL,
				recorded_at TIMESTAMPTZ NOT NULL,
				matched BOOLEAN NOT NULL,
				soil_hazard DOUBLE PRECISION NOT NULL,
				density DOUBLE PRECISION NOT NULL,
				substandard_housing DOUBLE PRECISION NOT NULL,
				casualties DOUBLE PRECISION NOT NULL,
				destroyed_housing DOUBLE PRECISION NOT NULL,
				composite_score DOUBLE PRECISION NOT NULL,
				risk_label TEXT NOT NULL,
				PRIMARY KEY (run_id, district)
			);
		`, quotedTableName)

	default: // SQLite
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id INTEGER NOT NULL,
				district TEXT NOT NULL,
				recorded_at TEXT NOT NULL,
				matched INTEGER NOT NULL,
				soil_hazard REAL NOT NULL,
				density REAL NOT NULL,
				substandard_housing REAL NOT NULL,
				casualties REAL NOT NULL,
				destroyed_housing REAL NOT NULL,
				composite_score REAL NOT NULL,
				risk_label TEXT NOT NULL,
				PRIMARY KEY (run_id, district)
			);
		`, quotedTableName)
	}
}

// BeginRun creates a new run and returns its unique ID.
func (rs *RunStoreImpl) BeginRun(startTime time.Time, configParams map[string]any) (int64, error) {
	// Skip for NoneBackend
	if rs.backend == schema.NoneBackend || rs.db == nil {
		return 0, nil
	}

	configJSON, err := json.Marshal(configParams)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal config params: %w", err)
	}

	quotedTableName := quoteTableName(runsTable, rs.backend)

	var runID int64
	switch rs.backend {
	case schema.PostgreSQLBackend:
		query := fmt.Sprintf(`INSERT INTO %s (start_time, config_params) VALUES ($1, $2) RETURNING run_id`, quotedTableName)
		err = rs.db.QueryRow(query, startTime, string(configJSON)).Scan(&runID)
	default: // SQLite and MySQL
		query := fmt.Sprintf(`INSERT INTO %s (start_time, config_params) VALUES (?, ?)`, quotedTableName)
		var result sql.Result
		result, err = rs.db.Exec(query, formatTime(startTime, rs.backend), string(configJSON))
		if err == nil {
			runID, err = result.LastInsertId()
		}
	}
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}

	return runID, nil
}

// EndRun updates the run with completion data.
func (rs *RunStoreImpl) EndRun(runID int64, endTime time.Time, totalDistricts int) error {
	// Skip for NoneBackend
	if rs.backend == schema.NoneBackend || rs.db == nil {
		return nil
	}

	quotedTableName := quoteTableName(runsTable, rs.backend)
	query := fmt.Sprintf(`SELECT start_time FROM %s WHERE run_id = %s`, quotedTableName, placeholder(rs.backend, 1))
	startTime, err := rs.scanTime(rs.db.QueryRow(query, runID))
	if err != nil {
		return fmt.Errorf("failed to get start_time for run %d: %w", runID, err)
	}

	durationMs := endTime.Sub(startTime).Milliseconds()

	updateQuery := fmt.Sprintf(`UPDATE %s SET end_time = %s, run_duration_ms = %s, total_districts = %s WHERE run_id = %s`,
		quotedTableName,
		placeholder(rs.backend, 1), placeholder(rs.backend, 2), placeholder(rs.backend, 3), placeholder(rs.backend, 4))
	if _, err := rs.db.Exec(updateQuery, formatTime(endTime, rs.backend), durationMs, totalDistricts, runID); err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}

	return nil
}

// RecordDistrictScore stores one joined row of a run.
func (rs *RunStoreImpl) RecordDistrictScore(r schema.DistrictScoreRecord) error {
	// Skip for NoneBackend
	if rs.backend == schema.NoneBackend || rs.db == nil {
		return nil
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (run_id, district, recorded_at, matched, soil_hazard, density,
		                substandard_housing, casualties, destroyed_housing, composite_score, risk_label)
		VALUES (%s)
	`, quoteTableName(districtScoresTable, rs.backend), placeholders(rs.backend, 11))

	_, err := rs.db.Exec(query,
		r.RunID, r.District, formatTime(r.RecordedAt, rs.backend), r.Matched,
		r.SoilHazard, r.Density, r.SubstandardHousing, r.Casualties, r.DestroyedHousing,
		r.CompositeScore, r.RiskLabel,
	)
	if err != nil {
		return fmt.Errorf("failed to insert district score for %s: %w", r.District, err)
	}
	return nil
}

// Close closes the underlying connection.
func (rs *RunStoreImpl) Close() error {
	if rs.db != nil {
		return rs.db.Close()
	}
	return nil
}

// GetStatus returns status information about the run store.
func (rs *RunStoreImpl) GetStatus() (schema.RunStatus, error) {
	status := schema.RunStatus{
		Backend:    string(rs.backend),
		Connected:  rs.db != nil,
		TableSizes: make(map[string]int64),
	}

	if rs.backend == schema.NoneBackend || rs.db == nil {
		return status, nil
	}

	quotedRuns := quoteTableName(runsTable, rs.backend)

	if err := rs.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", quotedRuns)).Scan(&status.TotalRuns); err != nil {
		return status, fmt.Errorf("failed to get total runs: %w", err)
	}

	if status.TotalRuns > 0 {
		row := rs.db.QueryRow(fmt.Sprintf("SELECT run_id, start_time FROM %s ORDER BY run_id DESC LIMIT 1", quotedRuns))
		lastRunID, lastRunTime, err := rs.scanIDAndTime(row)
		if err != nil {
			return status, fmt.Errorf("failed to get last run info: %w", err)
		}
		status.LastRunID = lastRunID
		status.LastRunTime = lastRunTime

		row = rs.db.QueryRow(fmt.Sprintf("SELECT run_id, start_time FROM %s ORDER BY run_id ASC LIMIT 1", quotedRuns))
		_, oldestRunTime, err := rs.scanIDAndTime(row)
		if err != nil {
			return status, fmt.Errorf("failed to get oldest run time: %w", err)
		}
		status.OldestRunTime = oldestRunTime

		distinctQuery := fmt.Sprintf("SELECT COUNT(DISTINCT district) FROM %s", quoteTableName(districtScoresTable, rs.backend))
		if err := rs.db.QueryRow(distinctQuery).Scan(&status.TotalDistrictsSeen); err != nil {
			return status, fmt.Errorf("failed to get distinct districts: %w", err)
		}
	}

	for _, table := range []string{runsTable, districtScoresTable} {
		var count int64
		countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s", quoteTableName(table, rs.backend))
		if err := rs.db.QueryRow(countQuery).Scan(&count); err != nil {
			return status, fmt.Errorf("failed to get count for table %s: %w", table, err)
		}
		status.TableSizes[table] = count
	}

	return status, nil
}

// GetAllRuns retrieves all runs from the store.
func (rs *RunStoreImpl) GetAllRuns() ([]schema.RunRecord, error) {
	// Skip for NoneBackend
	if rs.backend == schema.NoneBackend || rs.db == nil {
		return nil, nil
	}

	query := fmt.Sprintf("SELECT run_id, start_time, end_time, run_duration_ms, total_districts, config_params FROM %s ORDER BY run_id",
		quoteTableName(runsTable, rs.backend))
	rows, err := rs.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.RunRecord
	for rows.Next() {
		var record schema.RunRecord

		switch rs.backend {
		case schema.SQLiteBackend:
			var startTimeStr string
			var endTimeStr *string
			if err := rows.Scan(&record.RunID, &startTimeStr, &endTimeStr, &record.RunDurationMs, &record.TotalDistricts, &record.ConfigParams); err != nil {
				return nil, fmt.Errorf("failed to scan run: %w", err)
			}
			if record.StartTime, err = parseTime(startTimeStr); err != nil {
				return nil, fmt.Errorf("failed to parse start_time: %w", err)
			}
			if endTimeStr != nil {
				endTime, err := parseTime(*endTimeStr)
				if err != nil {
					return nil, fmt.Errorf("failed to parse end_time: %w", err)
				}
				record.EndTime = &endTime
			}
		default: // MySQL and PostgreSQL
			if err := rows.Scan(&record.RunID, &record.StartTime, &record.EndTime, &record.RunDurationMs, &record.TotalDistricts, &record.ConfigParams); err != nil {
				return nil, fmt.Errorf("failed to scan run: %w", err)
			}
		}

		results = append(results, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}

	return results, nil
}

// GetAllDistrictScores retrieves every recorded district score.
func (rs *RunStoreImpl) GetAllDistrictScores() ([]schema.DistrictScoreRecord, error) {
	// Skip for NoneBackend
	if rs.backend == schema.NoneBackend || rs.db == nil {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT run_id, district, recorded_at, matched, soil_hazard, density,
		substandard_housing, casualties, destroyed_housing, composite_score, risk_label
		FROM %s ORDER BY run_id, district`, quoteTableName(districtScoresTable, rs.backend))
	rows, err := rs.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query district scores: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.DistrictScoreRecord
	for rows.Next() {
		var r schema.DistrictScoreRecord
		var recordedAt any
		if err := rows.Scan(&r.RunID, &r.District, &recordedAt, &r.Matched, &r.SoilHazard, &r.Density,
			&r.SubstandardHousing, &r.Casualties, &r.DestroyedHousing, &r.CompositeScore, &r.RiskLabel); err != nil {
			return nil, fmt.Errorf("failed to scan district score: %w", err)
		}
		if r.RecordedAt, err = toTime(recordedAt); err != nil {
			return nil, fmt.Errorf("failed to parse recorded_at: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating district scores: %w", err)
	}

	return results, nil
}

// scanTime reads a single time column, stored as text on SQLite.
func (rs *RunStoreImpl) scanTime(row *sql.Row) (time.Time, error) {
	var raw any
	if err := row.Scan(&raw); err != nil {
		return time.Time{}, err
	}
	return toTime(raw)
}

func (rs *RunStoreImpl) scanIDAndTime(row *sql.Row) (int64, time.Time, error) {
	var id int64
	var raw any
	if err := row.Scan(&id, &raw); err != nil {
		return 0, time.Time{}, err
	}
	t, err := toTime(raw)
	return id, t, err
}

// toTime converts a scanned time column. Native datetime columns arrive as
// time.Time; SQLite text and MySQL without parseTime arrive as strings or bytes.
func toTime(raw any) (time.Time, error) {
	switch v := raw.(type) {
	case time.Time:
		return v, nil
	case string:
		return parseFlexibleTime(v)
	case []byte:
		return parseFlexibleTime(string(v))
	default:
		return time.Time{}, fmt.Errorf("unexpected time value %T", raw)
	}
}

func parseFlexibleTime(s string) (time.Time, error) {
	if t, err := parseTime(s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05.999999", s)
}
