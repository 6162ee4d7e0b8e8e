package cmd

import (
	"github.com/huangsam/riskmap/core"
	"github.com/spf13/cobra"
)

// districtCmd shows one district in depth.
var districtCmd = &cobra.Command{
	Use:   "district <name>",
	Short: "Show every metric, the rank and the boundary extent of one district.",
	Long: `Describe a single district after a full pipeline run.

The name is matched the same way the join matches labels: case, accents
and extra spaces are ignored. A district that has metrics but no boundary
is still described, without a rank.

Examples:
  riskmap district "Villa El Salvador"
  riskmap district brena --output json`,
	Args:    cobra.MinimumNArgs(1),
	PreRunE: sharedSetupWrapper,
	Run:     runExecutor(core.ExecuteDistrict, "Cannot describe district"),
	PostRun: writeMetrics,
}
