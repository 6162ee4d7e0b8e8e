//go:build basic

// Package integration contains integration tests for riskmap.
// These tests are excluded from normal test runs due to build tags.
// To run these tests: go test -tags basic ./integration
package integration

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scoreDocument struct {
	View      string   `json:"view"`
	Total     int      `json:"total"`
	Unmatched []string `json:"unmatched"`
	Missing   []string `json:"missing"`
	Districts []struct {
		Rank     int     `json:"rank"`
		District string  `json:"district"`
		Value    float64 `json:"value"`
	} `json:"districts"`
}

// TestScoreRankingIsOrdered checks the JSON ranking against the fixture geometry.
func TestScoreRankingIsOrdered(t *testing.T) {
	out, err := runRiskmap(t, nil, "score",
		"--geometry", fixturePath(t), "--cache-backend", "none", "--output", "json")
	require.NoError(t, err)

	var doc scoreDocument
	require.NoError(t, json.Unmarshal(out, &doc))
	assert.Equal(t, "composite_score", doc.View)
	assert.Equal(t, 4, doc.Total)
	assert.Contains(t, doc.Missing, "ISLA SAN LORENZO")
	assert.Contains(t, doc.Unmatched, "ANCON")

	require.NotEmpty(t, doc.Districts)
	for i := 1; i < len(doc.Districts); i++ {
		assert.GreaterOrEqual(t, doc.Districts[i-1].Value, doc.Districts[i].Value)
		assert.Equal(t, i+1, doc.Districts[i].Rank)
	}
}

// TestScoreViewLimit ranks by a single input view.
func TestScoreViewLimit(t *testing.T) {
	out, err := runRiskmap(t, nil, "score",
		"--geometry", fixturePath(t), "--cache-backend", "none", "--output", "json",
		"--view", "soil_hazard", "--limit", "1")
	require.NoError(t, err)

	var doc scoreDocument
	require.NoError(t, json.Unmarshal(out, &doc))
	require.Len(t, doc.Districts, 1)
	assert.Equal(t, "VENTANILLA", doc.Districts[0].District)

	// Geometry without metrics scores zero and sorts first when ascending
	out, err = runRiskmap(t, nil, "score",
		"--geometry", fixturePath(t), "--cache-backend", "none", "--output", "json",
		"--view", "soil_hazard", "--ascending", "--limit", "1")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(out, &doc))
	require.Len(t, doc.Districts, 1)
	assert.Equal(t, "ISLA SAN LORENZO", doc.Districts[0].District)
}

// TestDistrictDetail checks that accented labels resolve to canonical names.
func TestDistrictDetail(t *testing.T) {
	out, err := runRiskmap(t, nil, "district", "breña",
		"--geometry", fixturePath(t), "--cache-backend", "none", "--output", "json")
	require.NoError(t, err)

	var detail struct {
		District    string `json:"district"`
		HasGeometry bool   `json:"has_geometry"`
		Rank        int    `json:"rank"`
	}
	require.NoError(t, json.Unmarshal(out, &detail))
	assert.Equal(t, "BRENA", detail.District)
	assert.True(t, detail.HasGeometry)
	assert.Positive(t, detail.Rank)
}

// TestGeoJSONExport writes a FeatureCollection to disk.
func TestGeoJSONExport(t *testing.T) {
	outFile := filepath.Join(t.TempDir(), "scores.geojson")
	_, err := runRiskmap(t, nil, "score",
		"--geometry", fixturePath(t), "--cache-backend", "none",
		"--output", "geojson", "--output-file", outFile)
	require.NoError(t, err)

	data, err := os.ReadFile(outFile)
	require.NoError(t, err)
	var fc struct {
		Type     string            `json:"type"`
		Features []json.RawMessage `json:"features"`
	}
	require.NoError(t, json.Unmarshal(data, &fc))
	assert.Equal(t, "FeatureCollection", fc.Type)
	assert.Len(t, fc.Features, 4)
}

// TestInvalidView fails before any work happens.
func TestInvalidView(t *testing.T) {
	_, err := runRiskmap(t, nil, "score",
		"--geometry", fixturePath(t), "--cache-backend", "none", "--view", "magnitude")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "magnitude")
}

// TestSQLiteRunsLifecycle records a run then exports and clears it.
func TestSQLiteRunsLifecycle(t *testing.T) {
	// Every step shares one HOME so they see the same database file
	env := []string{"RISKMAP_RUNS_BACKEND=sqlite", "HOME=" + t.TempDir()}

	_, err := runRiskmap(t, env, "runs", "migrate")
	require.NoError(t, err)

	_, err = runRiskmap(t, env, "score", "--geometry", fixturePath(t), "--cache-backend", "none")
	require.NoError(t, err)

	out, err := runRiskmap(t, env, "runs", "status")
	require.NoError(t, err)
	assert.Contains(t, string(out), "sqlite")

	_, err = runRiskmap(t, env, "runs", "clear")
	require.NoError(t, err)
}
