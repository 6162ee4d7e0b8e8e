package core

import (
	"math"

	"github.com/huangsam/riskmap/schema"
)

// DeriveDensity computes population density per district as round(P/A).
// A district is included only when it appears in both tables with a positive
// area; everything else is left out rather than zero-filled, and the final
// join repairs the gap. Keys of both tables are canonicalized first, so
// "ancon" and "ANCON " pair up. math.Round rounds half away from zero.
func DeriveDensity(population, area schema.MetricTable) schema.MetricTable {
	population, area = population.Canonical(), area.Canonical()
	density := make(schema.MetricTable, len(population))
	for k, p := range population {
		a, ok := area[k]
		if !ok || a <= 0 {
			continue
		}
		density[k] = math.Round(p / a)
	}
	return density
}
