package outwriter

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/huangsam/riskmap/internal/contract"
)

// LogScoreHeader prints a concise, 2-line header describing the pipeline inputs.
func LogScoreHeader(w io.Writer, cfg *contract.Config, datasetName string, districts int, geometryPath string, features int) {
	sourceIcon, viewIcon := "", ""
	if cfg.UseEmojis {
		sourceIcon, viewIcon = "🔎 ", "🗺️  "
	}

	// Line 1: where the metrics and boundaries come from
	_, _ = fmt.Fprintf(w, "%sData: %s (%d districts) | Geometry: %s (%d features)\n",
		sourceIcon, datasetName, districts, filepath.Base(geometryPath), features)

	// Line 2: how the result is scored and presented
	_, _ = fmt.Fprintf(w, "%sView: %s (Policy: %s)\n", viewIcon, viewLabel(cfg.View), cfg.Policy)
}
