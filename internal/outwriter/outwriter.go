// Package outwriter has output and writer logic.
package outwriter

import (
	"time"

	"github.com/huangsam/riskmap/internal/contract"
	"github.com/huangsam/riskmap/schema"
)

// OutWriter provides a unified interface for all output operations.
// It encapsulates the various output formats and provides a clean API for the core logic.
type OutWriter struct{}

// NewOutWriter creates a new instance of the output writer.
func NewOutWriter() *OutWriter {
	return &OutWriter{}
}

// WriteScores prints ranked districts using the configured output format.
func (ow *OutWriter) WriteScores(rows []schema.JoinedRow, summary schema.ScoreSummary, cfg *contract.Config, duration time.Duration) error {
	return WriteScoreResults(rows, summary, cfg, duration)
}

// WriteDistrict prints one district's detail using the configured output format.
func (ow *OutWriter) WriteDistrict(detail schema.DistrictDetail, cfg *contract.Config) error {
	return WriteDistrictDetail(detail, cfg)
}

// WriteViews prints the view catalogue using the configured output format.
func (ow *OutWriter) WriteViews(views []schema.View, cfg *contract.Config) error {
	return WriteViews(views, cfg)
}
