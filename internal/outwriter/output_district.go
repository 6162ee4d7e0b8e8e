package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"
	"github.com/huangsam/riskmap/internal/contract"
	"github.com/huangsam/riskmap/schema"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// WriteDistrictDetail outputs one district's detail using the configured output format.
func WriteDistrictDetail(detail schema.DistrictDetail, cfg *contract.Config) error {
	fmtFloat := createFormatters(cfg.Precision)

	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, detail)
		}, "Wrote JSON")
	case schema.CSVOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeCSVDistrict(w, detail, cfg, fmtFloat)
		}, "Wrote CSV")
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeDistrictText(w, detail, cfg, fmtFloat)
		}, "Wrote text")
	}
}

// detailRow wraps the detail values so the shared risk labeler can read them.
func detailRow(detail schema.DistrictDetail) schema.JoinedRow {
	return schema.JoinedRow{District: detail.District, Label: detail.Label, Matched: detail.Matched, Values: detail.Values}
}

// writeDistrictText prints a short summary followed by one table row per metric.
func writeDistrictText(w io.Writer, detail schema.DistrictDetail, cfg *contract.Config, fmtFloat func(float64) string) error {
	name := detail.Label
	if cfg.UseColors {
		name = color.New(color.Bold).Sprint(name)
	}
	row := detailRow(detail)

	_, _ = fmt.Fprintf(w, "%s (%s)\n", name, detail.District)
	if detail.Rank > 0 {
		_, _ = fmt.Fprintf(w, "Rank: %d of %d by composite score\n", detail.Rank, detail.Total)
	} else {
		_, _ = fmt.Fprintf(w, "Rank: not ranked (no geometry)\n")
	}
	_, _ = fmt.Fprintf(w, "Composite: %s (%s)\n",
		fmtFloat(detail.Values[schema.CompositeScoreColumn]), displayLabelFor(cfg, row, schema.CompositeScoreColumn))
	if detail.Soil != "" {
		_, _ = fmt.Fprintf(w, "Soil: %s\n", detail.Soil)
	}
	if !detail.Matched {
		_, _ = fmt.Fprintln(w, "Warning: no metric data for this district, values default to 0")
	}
	if detail.HasGeometry && len(detail.Bounds) == 4 {
		_, _ = fmt.Fprintf(w, "Bounds: [%s, %s] - [%s, %s]\n",
			fmtFloat(detail.Bounds[0]), fmtFloat(detail.Bounds[1]), fmtFloat(detail.Bounds[2]), fmtFloat(detail.Bounds[3]))
	}
	if len(detail.Centroid) == 2 {
		_, _ = fmt.Fprintf(w, "Centroid: %s, %s\n", fmtFloat(detail.Centroid[0]), fmtFloat(detail.Centroid[1]))
	}

	table := tablewriter.NewWriter(w)
	table.Header([]string{"Metric", "Value", "Normalized", "Label"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	data := make([][]string, 0, len(schema.RawColumns))
	for _, c := range schema.RawColumns {
		normalized, label := "-", "-"
		if _, ok := detail.Values[c.Normalized()]; ok {
			normalized = fmtFloat(detail.Values[c.Normalized()])
			label = displayLabelFor(cfg, row, c)
		}
		data = append(data, []string{viewLabel(c), fmtFloat(detail.Values[c]), normalized, label})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

// writeCSVDistrict writes one metric per line.
func writeCSVDistrict(w io.Writer, detail schema.DistrictDetail, cfg *contract.Config, fmtFloat func(float64) string) error {
	row := detailRow(detail)
	header := []string{"district", "label", "rank", "metric", "value", "risk_label"}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for _, c := range schema.JoinedColumns() {
			label := ""
			if !c.IsNormalized() && c != schema.PopulationColumn && c != schema.AreaColumn {
				label = labelFor(cfg, row, c)
			}
			rec := []string{
				string(detail.District),
				detail.Label,
				strconv.Itoa(detail.Rank),
				string(c),
				fmtFloat(detail.Values[c]),
				label,
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
		return nil
	})
}
