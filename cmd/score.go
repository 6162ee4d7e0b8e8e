package cmd

import (
	"github.com/huangsam/riskmap/core"
	"github.com/spf13/cobra"
)

// scoreCmd ranks every district with geometry.
var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Rank districts by composite seismic risk or a single metric.",
	Long: `Run the full risk pipeline and rank the districts of the geometry source.

The pipeline:
- Derives population density from population and area
- Merges soil hazard, density, substandard housing, casualties and destroyed housing
- Rescales each metric to 0-1 and blends them into a 0-10 composite score
- Left-joins the scores onto the district boundaries

Every boundary appears in the result. Districts without metrics score 0.

Examples:
  # Top districts by composite risk
  riskmap score

  # Densest districts first
  riskmap score --view density --limit 10

  # Average only the metrics a district actually has
  riskmap score --policy exclude-absent

  # Scored boundaries for a web map
  riskmap score --output geojson --output-file risk.geojson`,
	Args:    cobra.NoArgs,
	PreRunE: sharedSetupWrapper,
	Run:     runExecutor(core.ExecuteScore, "Cannot score districts"),
	PostRun: writeMetrics,
}
