// main is the entry point for the riskmap CLI.
package main

import (
	"os"

	"github.com/huangsam/riskmap/cmd"
	"github.com/huangsam/riskmap/internal/contract"
	"github.com/huangsam/riskmap/internal/iocache"
	"github.com/joho/godotenv"
)

func main() {
	// A local .env may carry database credentials; it is optional.
	_ = godotenv.Load(".env")

	cmd.SetCacheManager(iocache.Manager)
	if code := run(); code != 0 {
		os.Exit(code)
	}
}

// run executes the CLI and releases resources before main decides the exit code.
func run() int {
	defer iocache.CloseCaching()
	defer func() {
		if err := cmd.StopProfiling(); err != nil {
			contract.LogWarn("Failed to stop profiling", err)
		}
	}()

	if err := cmd.Execute(); err != nil {
		contract.LogError("Command failed", err)
		return 1
	}
	return 0
}
