package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/huangsam/riskmap/internal/contract"
	"github.com/huangsam/riskmap/schema"
)

// WriteViews outputs the view catalogue using the configured output format.
func WriteViews(views []schema.View, cfg *contract.Config) error {
	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, views)
		}, "Wrote JSON")
	case schema.CSVOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeCSVWithHeader(w, []string{"column", "label", "description", "conclusion"}, func(cw *csv.Writer) error {
				for _, v := range views {
					if err := cw.Write([]string{string(v.Column), v.Label, v.Description, v.Conclusion}); err != nil {
						return err
					}
				}
				return nil
			})
		}, "Wrote CSV")
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeViewsText(w, views, cfg)
		}, "Wrote text")
	}
}

// writeViewsText prints each view as a titled paragraph.
func writeViewsText(w io.Writer, views []schema.View, cfg *contract.Config) error {
	for i, v := range views {
		title := fmt.Sprintf("%s [%s]", v.Label, v.Column)
		if v.Column == schema.DefaultView {
			title += " (default)"
		}
		if cfg.UseColors {
			title = color.New(color.Bold, color.FgCyan).Sprint(title)
		}
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w, "%s\n  %s\n  %s\n", title, v.Description, v.Conclusion); err != nil {
			return err
		}
	}
	return nil
}
