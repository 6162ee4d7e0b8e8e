package iocache

import (
	"errors"
	"fmt"
	"io"

	"github.com/huangsam/riskmap/internal/contract"
	"github.com/huangsam/riskmap/internal/parquet"
)

// Export file suffixes appended to the user supplied output prefix.
const (
	RunsExportSuffix   = ".runs.parquet"
	ScoresExportSuffix = ".district_scores.parquet"
)

// ExecuteRunsExport exports the global run store to Parquet files.
func ExecuteRunsExport(w io.Writer, outputFile string) error {
	return ExportRuns(w, Manager.GetRunStore(), outputFile)
}

// ExportRuns writes every run and district score of store to two Parquet
// files prefixed by outputFile.
func ExportRuns(w io.Writer, store contract.RunStore, outputFile string) error {
	if outputFile == "" {
		return errors.New("--output-file is required for export command")
	}
	if store == nil {
		return errors.New("run tracking is not enabled; set --runs-backend")
	}

	status, err := store.GetStatus()
	if err != nil {
		return fmt.Errorf("failed to get run status: %w", err)
	}
	if status.TotalRuns == 0 {
		return errors.New("no run data found to export")
	}

	_, _ = fmt.Fprintf(w, "Exporting data from %s backend...\n", status.Backend)
	_, _ = fmt.Fprintf(w, "Total runs: %d\n", status.TotalRuns)
	_, _ = fmt.Fprintf(w, "Total district records: %d\n", status.TableSizes[districtScoresTable])

	runs, err := store.GetAllRuns()
	if err != nil {
		return fmt.Errorf("failed to retrieve runs: %w", err)
	}
	scores, err := store.GetAllDistrictScores()
	if err != nil {
		return fmt.Errorf("failed to retrieve district scores: %w", err)
	}

	parquetRuns := parquet.ConvertRunRecords(runs)
	runsFile := outputFile + RunsExportSuffix
	if err := parquet.WriteRunsParquet(parquetRuns, runsFile); err != nil {
		return fmt.Errorf("failed to write runs: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Exported %d runs to: %s\n", len(parquetRuns), runsFile)

	parquetScores := parquet.ConvertDistrictScoreRecords(scores)
	scoresFile := outputFile + ScoresExportSuffix
	if err := parquet.WriteDistrictScoresParquet(parquetScores, scoresFile); err != nil {
		return fmt.Errorf("failed to write district scores: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Exported %d district records to: %s\n", len(parquetScores), scoresFile)

	return nil
}
