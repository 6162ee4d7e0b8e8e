package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/huangsam/riskmap/internal/contract"
	"github.com/huangsam/riskmap/internal/parquet"
	"github.com/huangsam/riskmap/schema"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// WriteScoreResults outputs ranked districts, dispatching based on the output format configured.
func WriteScoreResults(rows []schema.JoinedRow, summary schema.ScoreSummary, cfg *contract.Config, duration time.Duration) error {
	fmtFloat := createFormatters(cfg.Precision)

	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSONScores(w, rows, summary, cfg)
		}, "Wrote JSON")
	case schema.CSVOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeCSVScores(w, rows, cfg, fmtFloat)
		}, "Wrote CSV")
	case schema.ParquetOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return parquet.WriteRows(w, parquet.ConvertJoinedRows(rows, func(r schema.JoinedRow) string {
				return labelFor(cfg, r, summary.View)
			}))
		}, "Wrote Parquet")
	case schema.GeoJSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeGeoJSONScores(w, rows, summary, cfg)
		}, "Wrote GeoJSON")
	default:
		// Default to human-readable table
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeScoreTable(w, rows, summary, cfg, fmtFloat, duration)
		}, "Wrote table")
	}
}

// writeScoreTable generates and writes the human-readable table.
func writeScoreTable(w io.Writer, rows []schema.JoinedRow, summary schema.ScoreSummary, cfg *contract.Config, fmtFloat func(float64) string, duration time.Duration) error {
	table := tablewriter.NewWriter(w)

	// 1. Define Headers
	headers := []string{"Rank", "District", viewLabel(summary.View)}
	if summary.View != schema.CompositeScoreColumn {
		headers = append(headers, "Normalized")
	}
	headers = append(headers, "Composite", "Label")
	table.Header(headers)

	// 2. Configure Alignment
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	// 3. Populate Rows
	labelWidth := GetMaxTableLabelWidth(cfg, len(headers)-2)
	data := make([][]string, 0, len(rows))
	for i, r := range rows {
		row := []string{
			strconv.Itoa(i + 1),
			contract.TruncateLabel(r.Label, labelWidth),
			fmtFloat(r.Get(summary.View)),
		}
		if summary.View != schema.CompositeScoreColumn {
			row = append(row, fmtFloat(r.Get(summary.View.Normalized())))
		}
		row = append(row,
			fmtFloat(r.Get(schema.CompositeScoreColumn)),
			displayLabelFor(cfg, r, summary.View),
		)
		data = append(data, row)
	}

	// 4. Render the table
	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "Showing %d of %d districts (unmatched: %d, without metrics: %d)\n",
		len(rows), summary.Total, len(summary.Unmatched), len(summary.Missing)); err != nil {
		return err
	}
	source := "computed"
	if summary.Cached {
		source = "cached"
	}
	if _, err := fmt.Fprintf(w, "Pipeline %s in %v with %d workers. Cache backend: %s\n", source, duration, cfg.Workers, cfg.CacheBackend); err != nil {
		return err
	}
	return nil
}

// writeCSVScores writes ranked districts with every joined column.
func writeCSVScores(w io.Writer, rows []schema.JoinedRow, cfg *contract.Config, fmtFloat func(float64) string) error {
	columns := schema.JoinedColumns()
	header := []string{"rank", "district", "label", "matched"}
	for _, c := range columns {
		header = append(header, string(c))
	}
	header = append(header, "risk_label")

	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for i, r := range rows {
			rec := []string{
				strconv.Itoa(i + 1),
				string(r.District),
				r.Label,
				strconv.FormatBool(r.Matched),
			}
			for _, c := range columns {
				rec = append(rec, fmtFloat(r.Get(c)))
			}
			rec = append(rec, labelFor(cfg, r, schema.CompositeScoreColumn))
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
		return nil
	})
}

// jsonScoreRow is one ranked district in JSON output.
type jsonScoreRow struct {
	Rank      int                       `json:"rank"`
	District  schema.DistrictID         `json:"district"`
	Label     string                    `json:"label"`
	Matched   bool                      `json:"matched"`
	Value     float64                   `json:"value"`
	RiskLabel string                    `json:"risk_label"`
	Values    map[schema.Column]float64 `json:"values"`
}

// jsonScores is the JSON document for a ranked selection.
type jsonScores struct {
	schema.ScoreSummary
	Districts []jsonScoreRow `json:"districts"`
}

// BuildJSONScores shapes ranked rows into the JSON document shared by the
// CLI and the MCP tools.
func BuildJSONScores(rows []schema.JoinedRow, summary schema.ScoreSummary, cfg *contract.Config) any {
	doc := jsonScores{ScoreSummary: summary, Districts: make([]jsonScoreRow, len(rows))}
	for i, r := range rows {
		doc.Districts[i] = jsonScoreRow{
			Rank:      i + 1,
			District:  r.District,
			Label:     r.Label,
			Matched:   r.Matched,
			Value:     r.Get(summary.View),
			RiskLabel: labelFor(cfg, r, summary.View),
			Values:    r.Values,
		}
	}
	return doc
}

// writeJSONScores writes ranked districts in JSON format.
func writeJSONScores(w io.Writer, rows []schema.JoinedRow, summary schema.ScoreSummary, cfg *contract.Config) error {
	return writeJSON(w, BuildJSONScores(rows, summary, cfg))
}
