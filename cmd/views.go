package cmd

import (
	"github.com/huangsam/riskmap/core"
	"github.com/spf13/cobra"
)

// viewsCmd lists the selectable views.
var viewsCmd = &cobra.Command{
	Use:   "views",
	Short: "List the selectable single-metric views",
	Long: `Show every column that can drive a single-metric view, with what it
measures and what it shows for Lima and Callao.

No pipeline run is performed - this is purely informational.

Examples:
  riskmap views
  riskmap views --output json`,
	Args:    cobra.NoArgs,
	PreRunE: sharedSetupWrapper,
	Run:     runExecutor(core.ExecuteViews, "Cannot list views"),
}
