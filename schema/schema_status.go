package schema

import "time"

// CacheStatus represents the status of the result cache.
type CacheStatus struct {
	Backend         string    `json:"backend"`
	Connected       bool      `json:"connected"`
	TotalEntries    int       `json:"total_entries"`
	LastEntryTime   time.Time `json:"last_entry_time"`
	OldestEntryTime time.Time `json:"oldest_entry_time"`
	TableSizeBytes  int64     `json:"table_size_bytes"`
}

// RunStatus represents the status of the run history store.
type RunStatus struct {
	Backend            string           `json:"backend"`
	Connected          bool             `json:"connected"`
	TotalRuns          int              `json:"total_runs"`
	LastRunID          int64            `json:"last_run_id"`
	LastRunTime        time.Time        `json:"last_run_time"`
	OldestRunTime      time.Time        `json:"oldest_run_time"`
	TotalDistrictsSeen int              `json:"total_districts_seen"`
	TableSizes         map[string]int64 `json:"table_sizes"`
}

// RunRecord represents a row from the riskmap_runs table.
type RunRecord struct {
	RunID          int64
	StartTime      time.Time
	EndTime        *time.Time
	RunDurationMs  *int32
	TotalDistricts int32
	ConfigParams   *string
}

// DistrictScoreRecord represents a row from the riskmap_district_scores table.
type DistrictScoreRecord struct {
	RunID              int64
	District           string
	RecordedAt         time.Time
	Matched            bool
	SoilHazard         float64
	Density            float64
	SubstandardHousing float64
	Casualties         float64
	DestroyedHousing   float64
	CompositeScore     float64
	RiskLabel          string
}

// NewDistrictScoreRecord flattens a joined row for storage.
func NewDistrictScoreRecord(runID int64, at time.Time, row JoinedRow, label string) DistrictScoreRecord {
	return DistrictScoreRecord{
		RunID:              runID,
		District:           string(row.District),
		RecordedAt:         at,
		Matched:            row.Matched,
		SoilHazard:         row.Get(SoilHazardColumn),
		Density:            row.Get(DensityColumn),
		SubstandardHousing: row.Get(SubstandardHousingColumn),
		Casualties:         row.Get(CasualtiesColumn),
		DestroyedHousing:   row.Get(DestroyedHousingColumn),
		CompositeScore:     row.Get(CompositeScoreColumn),
		RiskLabel:          label,
	}
}
