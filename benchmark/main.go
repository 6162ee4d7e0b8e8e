// Package main provides a performance benchmarking tool for the riskmap CLI.
// It measures pipeline times across geometry sources and views,
// running each test multiple times, treating the first successful run as cold and averaging the rest as warm,
// generating CSV output for performance analysis and documentation.
//
// Prerequisites:
// - riskmap binary installed and available in PATH
// - GeoJSON district sources in the specified base directory
//
// Usage: go run benchmark/main.go [geometry-base-dir]
//
//	geometry-base-dir: Directory containing GeoJSON sources
package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// BenchmarkResult holds the result of a benchmark run (no-cache average, cold run and average of warm runs).
type BenchmarkResult struct {
	Source      string
	View        string
	NoCacheTime string
	ColdTime    string
	WarmTime    string
}

// BenchmarkConfig holds configuration for the benchmark run.
type BenchmarkConfig struct {
	GeometryBase string
	Timeout      time.Duration
	Workers      int
	NoCacheRuns  int
	CacheRuns    int
	Sources      []string
	Views        []string
}

func main() {
	// Parse command line arguments
	if len(os.Args) != 2 {
		fmt.Printf("Usage: %s [geometry-base-dir]\n", os.Args[0])
		os.Exit(1)
	}

	config := BenchmarkConfig{
		GeometryBase: os.Args[1],
		Timeout:      time.Minute,
		Workers:      8,
		NoCacheRuns:  3,
		CacheRuns:    4,
		Sources:      []string{"lima_callao_distritos_simple.geojson", "lima_callao_distritos.geojson"},
		Views:        []string{"composite_score", "soil_hazard", "density"},
	}

	if err := checkPrerequisites(config); err != nil {
		fmt.Printf("Prerequisites check failed: %v\n", err)
		os.Exit(1)
	}

	// Clear the cache using riskmap cache clear
	fmt.Printf("Clearing cache...\n")
	clearCmd := exec.Command("riskmap", "cache", "clear")
	if output, err := clearCmd.CombinedOutput(); err != nil {
		fmt.Printf("Warning: failed to clear cache: %v\nOutput: %s\n", err, string(output))
	} else {
		fmt.Printf("Cache cleared successfully\n")
	}

	results := runBenchmarks(config)

	if err := saveResults(results); err != nil {
		fmt.Printf("Failed to save results: %v\n", err)
		os.Exit(1)
	}

	printSummary(results)
}

// checkPrerequisites verifies that the riskmap binary and geometry sources exist
func checkPrerequisites(config BenchmarkConfig) error {
	if _, err := exec.LookPath("riskmap"); err != nil {
		return fmt.Errorf("riskmap binary not found in PATH")
	}

	for _, source := range config.Sources {
		path := filepath.Join(config.GeometryBase, source)
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return fmt.Errorf("geometry source %s not found at %s", source, path)
		}
	}

	return nil
}

// runBenchmarks executes every view against every geometry source
func runBenchmarks(config BenchmarkConfig) []BenchmarkResult {
	var results []BenchmarkResult

	fmt.Printf("Starting benchmark: %d sources, %d views, %v timeout, %d workers, no-cache: %d runs, cache: %d runs\n",
		len(config.Sources), len(config.Views), config.Timeout, config.Workers, config.NoCacheRuns, config.CacheRuns)

	for _, source := range config.Sources {
		fmt.Printf("Benchmarking %s\n", source)
		path := filepath.Join(config.GeometryBase, source)
		for _, view := range config.Views {
			results = append(results, runBenchmarkSuite(config, source, path, view))
		}
	}

	return results
}

// runBenchmarkSuite runs both no-cache and cache benchmarks for a view
func runBenchmarkSuite(config BenchmarkConfig, source, path, view string) BenchmarkResult {
	fmt.Printf("Running view %s on %s\n", view, source)

	// Helper to run a benchmark phase
	runPhase := func(cacheBackend string, numRuns int, phaseName string) (coldTime float64, avgTime string) {
		fmt.Printf("  %s phase (%d runs)\n", phaseName, numRuns)
		cold, times := runBenchmark(config, path, view, cacheBackend, numRuns)
		if len(times) == 0 {
			avgTime = "TIMEOUT"
		} else {
			var sum float64
			for _, t := range times {
				sum += t
			}
			avgTime = fmt.Sprintf("%.3fs", sum/float64(len(times)))
		}
		return cold, avgTime
	}

	// Phase 1: No-cache runs
	_, noCacheAvg := runPhase("none", config.NoCacheRuns, "No-cache")

	// Phase 2: Cache runs
	coldTime, warmAvg := runPhase("sqlite", config.CacheRuns, "Cache")

	coldTimeStr := "TIMEOUT"
	if coldTime > 0 {
		coldTimeStr = fmt.Sprintf("%.3fs", coldTime)
	}

	fmt.Printf("  No-cache average: %s, Cold time: %s, Warm average: %s\n", noCacheAvg, coldTimeStr, warmAvg)

	return BenchmarkResult{
		Source:      source,
		View:        view,
		NoCacheTime: noCacheAvg,
		ColdTime:    coldTimeStr,
		WarmTime:    warmAvg,
	}
}

// runBenchmark executes riskmap score multiple times with specified cache backend and returns cold time and warm times
func runBenchmark(config BenchmarkConfig, path, view, cacheBackend string, numRuns int) (coldTime float64, warmTimes []float64) {
	args := []string{
		"score", "--geometry", path, "--view", view,
		"--cache-backend", cacheBackend, "--workers", fmt.Sprint(config.Workers),
	}

	var times []float64
	for run := 1; run <= numRuns; run++ {
		start := time.Now()

		cmd := exec.Command("riskmap", args...)

		done := make(chan bool)
		var output []byte
		var cmdErr error

		go func() {
			output, cmdErr = cmd.CombinedOutput()
			done <- true
		}()

		select {
		case <-done:
			if cmdErr == nil && isSuccess(output) {
				times = append(times, time.Since(start).Seconds())
			}
		case <-time.After(config.Timeout):
			// Timeout - don't add to times
		}
	}

	if len(times) > 0 {
		coldTime = times[0]
		warmTimes = times[1:]
	}
	return
}

// isSuccess checks if command output indicates successful completion
func isSuccess(output []byte) bool {
	outputStr := string(output)
	return strings.Contains(outputStr, "Pipeline ") &&
		strings.Contains(outputStr, "workers")
}

// saveResults writes benchmark results to a timestamped CSV file
func saveResults(results []BenchmarkResult) error {
	timestamp := time.Now().Format("20060102_150405")
	filename := fmt.Sprintf("/tmp/riskmap_benchmark_%s.csv", timestamp)

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			fmt.Printf("Warning: failed to close file %s: %v\n", filename, closeErr)
		}
	}()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	// Write header
	if err := writer.Write([]string{"source", "view", "no_cache_avg", "cold_time", "warm_avg"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	// Write results
	for _, result := range results {
		if err := writer.Write([]string{result.Source, result.View, result.NoCacheTime, result.ColdTime, result.WarmTime}); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	fmt.Printf("Results saved to %s\n", filename)
	return nil
}

// printSummary displays the final benchmark results summary
func printSummary(results []BenchmarkResult) {
	fmt.Printf("Benchmark complete\n")

	seen := make(map[string]bool)
	for _, result := range results {
		if seen[result.View] {
			continue
		}
		seen[result.View] = true
		printViewSummary(results, result.View)
	}

	fmt.Printf("Benchmark script completed successfully\n")
}

// printViewSummary displays results for a specific view
func printViewSummary(results []BenchmarkResult, view string) {
	fmt.Printf("View %s:\n", view)
	for _, result := range results {
		if result.View == view {
			fmt.Printf("  %-40s: No-cache: %s, Cold: %s, Warm: %s\n", result.Source, result.NoCacheTime, result.ColdTime, result.WarmTime)
		}
	}
}
