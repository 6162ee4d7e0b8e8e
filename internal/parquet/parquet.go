// Package parquet exports run history and scored districts as Parquet files.
package parquet

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/huangsam/riskmap/schema"
	"github.com/parquet-go/parquet-go"
)

// Run represents one recorded pipeline run.
type Run struct {
	RunID          int64      `parquet:"run_id"`
	StartTime      time.Time  `parquet:"start_time,snappy"`
	EndTime        *time.Time `parquet:"end_time,snappy,optional"`
	RunDurationMs  *int32     `parquet:"run_duration_ms,optional"`
	TotalDistricts int32      `parquet:"total_districts"`
	ConfigParams   *string    `parquet:"config_params,snappy,optional"` // JSON encoded flags of the run
}

// DistrictScore represents one district's scores within a recorded run.
type DistrictScore struct {
	RunID              int64     `parquet:"run_id"`
	District           string    `parquet:"district,snappy,dict"`
	RecordedAt         time.Time `parquet:"recorded_at,snappy"`
	Matched            bool      `parquet:"matched"`
	SoilHazard         float64   `parquet:"soil_hazard"`
	Density            float64   `parquet:"density"`
	SubstandardHousing float64   `parquet:"substandard_housing"`
	Casualties         float64   `parquet:"casualties"`
	DestroyedHousing   float64   `parquet:"destroyed_housing"`
	CompositeScore     float64   `parquet:"composite_score"`
	RiskLabel          string    `parquet:"risk_label,snappy,dict"`
}

// DistrictRow is one joined row of a pipeline result, geometry excluded.
type DistrictRow struct {
	District                     string  `parquet:"district,snappy"`
	Label                        string  `parquet:"label,snappy"`
	Matched                      bool    `parquet:"matched"`
	Population                   float64 `parquet:"population"`
	Area                         float64 `parquet:"area"`
	SoilHazard                   float64 `parquet:"soil_hazard"`
	Density                      float64 `parquet:"density"`
	SubstandardHousing           float64 `parquet:"substandard_housing"`
	Casualties                   float64 `parquet:"casualties"`
	DestroyedHousing             float64 `parquet:"destroyed_housing"`
	NormalizedSoilHazard         float64 `parquet:"normalized_soil_hazard"`
	NormalizedDensity            float64 `parquet:"normalized_density"`
	NormalizedSubstandardHousing float64 `parquet:"normalized_substandard_housing"`
	NormalizedCasualties         float64 `parquet:"normalized_casualties"`
	NormalizedDestroyedHousing   float64 `parquet:"normalized_destroyed_housing"`
	CompositeScore               float64 `parquet:"composite_score"`
	RiskLabel                    string  `parquet:"risk_label,snappy,dict"`
}

// WriteRows encodes rows as a single Parquet file onto w.
func WriteRows[T any](w io.Writer, rows []T) error {
	writer := parquet.NewGenericWriter[T](w)
	if _, err := writer.Write(rows); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	return nil
}

// writeFile creates outputPath and writes rows into it.
func writeFile[T any](rows []T, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := WriteRows(file, rows); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

// WriteRunsParquet writes a slice of Run structs to a Parquet file.
func WriteRunsParquet(data []Run, outputPath string) error {
	return writeFile(data, outputPath)
}

// WriteDistrictScoresParquet writes a slice of DistrictScore structs to a Parquet file.
func WriteDistrictScoresParquet(data []DistrictScore, outputPath string) error {
	return writeFile(data, outputPath)
}

// ConvertRunRecords converts database records to Parquet rows.
func ConvertRunRecords(records []schema.RunRecord) []Run {
	out := make([]Run, len(records))
	for i, r := range records {
		out[i] = Run{
			RunID:          r.RunID,
			StartTime:      r.StartTime,
			EndTime:        r.EndTime,
			RunDurationMs:  r.RunDurationMs,
			TotalDistricts: r.TotalDistricts,
			ConfigParams:   r.ConfigParams,
		}
	}
	return out
}

// ConvertDistrictScoreRecords converts database records to Parquet rows.
func ConvertDistrictScoreRecords(records []schema.DistrictScoreRecord) []DistrictScore {
	out := make([]DistrictScore, len(records))
	for i, r := range records {
		out[i] = DistrictScore{
			RunID:              r.RunID,
			District:           r.District,
			RecordedAt:         r.RecordedAt,
			Matched:            r.Matched,
			SoilHazard:         r.SoilHazard,
			Density:            r.Density,
			SubstandardHousing: r.SubstandardHousing,
			Casualties:         r.Casualties,
			DestroyedHousing:   r.DestroyedHousing,
			CompositeScore:     r.CompositeScore,
			RiskLabel:          r.RiskLabel,
		}
	}
	return out
}

// ConvertJoinedRows flattens joined rows. labeler maps a row to its risk label
// and may be nil.
func ConvertJoinedRows(rows []schema.JoinedRow, labeler func(schema.JoinedRow) string) []DistrictRow {
	out := make([]DistrictRow, len(rows))
	for i, r := range rows {
		out[i] = DistrictRow{
			District:                     string(r.District),
			Label:                        r.Label,
			Matched:                      r.Matched,
			Population:                   r.Get(schema.PopulationColumn),
			Area:                         r.Get(schema.AreaColumn),
			SoilHazard:                   r.Get(schema.SoilHazardColumn),
			Density:                      r.Get(schema.DensityColumn),
			SubstandardHousing:           r.Get(schema.SubstandardHousingColumn),
			Casualties:                   r.Get(schema.CasualtiesColumn),
			DestroyedHousing:             r.Get(schema.DestroyedHousingColumn),
			NormalizedSoilHazard:         r.Get(schema.SoilHazardColumn.Normalized()),
			NormalizedDensity:            r.Get(schema.DensityColumn.Normalized()),
			NormalizedSubstandardHousing: r.Get(schema.SubstandardHousingColumn.Normalized()),
			NormalizedCasualties:         r.Get(schema.CasualtiesColumn.Normalized()),
			NormalizedDestroyedHousing:   r.Get(schema.DestroyedHousingColumn.Normalized()),
			CompositeScore:               r.Get(schema.CompositeScoreColumn),
		}
		if labeler != nil {
			out[i].RiskLabel = labeler(r)
		}
	}
	return out
}
