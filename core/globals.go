package core

import "github.com/huangsam/riskmap/internal/observability"

// metrics receives pipeline and cache observations. Nil records nothing.
var metrics *observability.Metrics

// SetMetrics installs the metrics sink used by every subsequent run.
func SetMetrics(m *observability.Metrics) {
	metrics = m
}
