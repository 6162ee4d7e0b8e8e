package cmd

import (
	"runtime"

	"github.com/huangsam/riskmap/internal/dataset"
	"github.com/spf13/cobra"
)

// versionCmd shows the build and the embedded dataset it scores.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of riskmap.",
	Long: `Display version information including build details.

Shows:
- Release version and build metadata
- Go runtime version
- Name, size and digest of the embedded district dataset

The dataset digest is part of every cache key, so two binaries with the
same digest share cached results.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Printf("riskmap CLI\n")
		cmd.Printf("  Version: %s\n", version)
		cmd.Printf("  Commit:  %s\n", commit)
		cmd.Printf("  Built:   %s\n", date)
		cmd.Printf("  Runtime: %s\n", runtime.Version())

		ds, err := dataset.Default()
		if err != nil {
			cmd.Printf("  Dataset: unavailable (%v)\n", err)
			return
		}
		cmd.Printf("  Dataset: %s (%d districts, digest %.12s)\n", ds.Name, ds.Len(), ds.Digest())
	},
}
