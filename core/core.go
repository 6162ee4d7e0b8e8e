// Package core has core logic for the risk pipeline, caching and run tracking.
package core

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/huangsam/riskmap/core/algo"
	"github.com/huangsam/riskmap/internal/contract"
	"github.com/huangsam/riskmap/internal/dataset"
	"github.com/huangsam/riskmap/internal/geosource"
	"github.com/huangsam/riskmap/internal/outwriter"
	"github.com/huangsam/riskmap/schema"
	"github.com/twpayne/go-geom/xy"
)

// ErrUnknownDistrict is returned when a district is in neither the metrics nor the geometry.
var ErrUnknownDistrict = errors.New("unknown district")

// ExecutorFunc defines the function signature for executing the pipeline commands.
type ExecutorFunc func(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) error

// Sources are the inputs of one pipeline run.
type Sources struct {
	Dataset  *dataset.Dataset
	Geometry *geosource.Collection
}

// ScoreOutput is a joined result together with the sources it came from.
type ScoreOutput struct {
	Result  *schema.JoinedResult
	Sources Sources
	Cached  bool
}

// LoadSources reads the dataset and geometry source named by cfg.
func LoadSources(cfg *contract.Config) (Sources, error) {
	ds, err := dataset.Resolve(cfg.DatasetPath)
	if err != nil {
		return Sources{}, err
	}
	geo, err := geosource.Load(cfg.GeometryPath, cfg.LabelField)
	if err != nil {
		return Sources{}, err
	}
	return Sources{Dataset: ds, Geometry: geo}, nil
}

// GetRiskResults loads the sources, runs or reuses the pipeline and records
// the run when run tracking is configured and the pipeline succeeded.
func GetRiskResults(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) (*ScoreOutput, time.Duration, error) {
	start := clock.Now()

	src, err := LoadSources(cfg)
	if err != nil {
		return nil, 0, err
	}
	if !shouldSuppressHeader(ctx) {
		outwriter.LogScoreHeader(os.Stderr, cfg, src.Dataset.Name, src.Dataset.Len(), src.Geometry.Path, src.Geometry.Len())
	}

	result, cached, err := cachedPipeline(ctx, cfg, src, mgr)
	if err != nil {
		return nil, 0, err
	}

	// Failed pipelines leave no run behind; a successful one is stamped
	// with the time loading began.
	var runs contract.RunStore
	if mgr != nil {
		runs = mgr.GetRunStore()
	}
	if runID := beginRun(runs, cfg, start); runID > 0 {
		recordRun(runs, runID, cfg, result)
	}

	return &ScoreOutput{Result: result, Sources: src, Cached: cached}, clock.Since(start), nil
}

// GetDistrictScores returns the joined rows ranked by the configured view.
func GetDistrictScores(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) ([]schema.JoinedRow, schema.ScoreSummary, time.Duration, error) {
	out, duration, err := GetRiskResults(ctx, cfg, mgr)
	if err != nil {
		return nil, schema.ScoreSummary{}, 0, err
	}
	ranked := algo.RankDistricts(out.Result.Rows, cfg.View, cfg.ResultLimit, cfg.Ascending)
	summary := schema.ScoreSummary{
		View:      cfg.View,
		Policy:    cfg.Policy,
		Total:     len(out.Result.Rows),
		Unmatched: out.Result.Unmatched,
		Missing:   out.Result.Missing,
		Cached:    out.Cached,
	}
	return ranked, summary, duration, nil
}

// GetDistrictDetail describes cfg.District. A district with metrics but no
// geometry is still described from the scored table.
func GetDistrictDetail(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) (schema.DistrictDetail, error) {
	if cfg.District == "" {
		return schema.DistrictDetail{}, errors.New("a district name is required")
	}
	out, _, err := GetRiskResults(ctx, cfg, mgr)
	if err != nil {
		return schema.DistrictDetail{}, err
	}

	id := cfg.District
	soil := out.Sources.Dataset.Soil(id)
	if row, ok := out.Result.Find(id); ok {
		detail := schema.DistrictDetail{
			District:    row.District,
			Label:       row.Label,
			Matched:     row.Matched,
			Values:      row.Values,
			Soil:        soil,
			Rank:        algo.Position(out.Result.Rows, schema.CompositeScoreColumn, id),
			Total:       len(out.Result.Rows),
			HasGeometry: row.Geometry != nil,
		}
		describeGeometry(&detail, row)
		return detail, nil
	}

	// Metrics without geometry never reach the joined rows.
	scored, err := ScoreTable(ctx, out.Sources.Dataset.Inputs(), PipelineOptions{Policy: cfg.Policy, Workers: cfg.Workers})
	if err != nil {
		return schema.DistrictDetail{}, err
	}
	merged, ok := scored.Lookup(id)
	if !ok {
		return schema.DistrictDetail{}, fmt.Errorf("%w: %s", ErrUnknownDistrict, id)
	}
	values := make(map[schema.Column]float64, len(scored.Columns))
	for _, c := range scored.Columns {
		values[c] = merged.Get(c).OrZero()
	}
	return schema.DistrictDetail{
		District: id,
		Label:    id.String(),
		Values:   values,
		Soil:     soil,
		Total:    len(out.Result.Rows),
	}, nil
}

// describeGeometry fills the bounding box and centroid of row's geometry.
func describeGeometry(detail *schema.DistrictDetail, row schema.JoinedRow) {
	if row.Geometry == nil {
		return
	}
	if b := row.Geometry.Bounds(); b != nil && !b.IsEmpty() {
		detail.Bounds = []float64{b.Min(0), b.Min(1), b.Max(0), b.Max(1)}
	}
	if c, err := xy.Centroid(row.Geometry); err == nil && len(c) >= 2 {
		detail.Centroid = []float64{c[0], c[1]}
	}
}

// ExecuteScore runs the full pipeline and prints the ranked districts.
func ExecuteScore(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) error {
	ranked, summary, duration, err := GetDistrictScores(ctx, cfg, mgr)
	if err != nil {
		return err
	}
	return outwriter.WriteScoreResults(ranked, summary, cfg, duration)
}

// ExecuteDistrict prints everything known about one district.
func ExecuteDistrict(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) error {
	detail, err := GetDistrictDetail(ctx, cfg, mgr)
	if err != nil {
		return err
	}
	return outwriter.WriteDistrictDetail(detail, cfg)
}

// ExecuteViews prints the catalogue of selectable views.
func ExecuteViews(_ context.Context, cfg *contract.Config, _ contract.CacheManager) error {
	return outwriter.WriteViews(schema.Views, cfg)
}

// beginRun opens a run record. It returns 0 when tracking is off or fails.
func beginRun(runs contract.RunStore, cfg *contract.Config, start time.Time) int64 {
	if runs == nil {
		return 0
	}
	configParams := map[string]any{
		"geometry":    cfg.GeometryPath,
		"label_field": cfg.LabelField,
		"dataset":     cfg.DatasetPath,
		"view":        string(cfg.View),
		"policy":      string(cfg.Policy),
		"workers":     cfg.Workers,
	}
	runID, err := runs.BeginRun(start, configParams)
	if err != nil {
		contract.LogWarn("Run tracking initialization failed", err)
		return 0
	}
	return runID
}

// recordRun stores the joined rows of result under runID and closes the run.
// A district split over several features is recorded once.
func recordRun(runs contract.RunStore, runID int64, cfg *contract.Config, result *schema.JoinedResult) {
	now := clock.Now()
	seen := make(map[schema.DistrictID]bool, len(result.Rows))
	for _, row := range result.Rows {
		if seen[row.District] {
			continue
		}
		seen[row.District] = true
		label := cfg.Thresholds.Label(contract.RiskScore(row, schema.CompositeScoreColumn))
		if err := runs.RecordDistrictScore(schema.NewDistrictScoreRecord(runID, now, row, label)); err != nil {
			contract.LogWarn(fmt.Sprintf("Failed to record district %s", row.District), err)
			break
		}
	}
	if err := runs.EndRun(runID, clock.Now(), len(seen)); err != nil {
		contract.LogWarn("Failed to finalize run tracking", err)
		return
	}
	metrics.ObserveRunRecorded()
}
