package outwriter

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/huangsam/riskmap/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDetail() schema.DistrictDetail {
	return schema.DistrictDetail{
		District: "CHORRILLOS",
		Label:    "Chorrillos",
		Matched:  true,
		Soil:     "sandy",
		Values: map[schema.Column]float64{
			schema.PopulationColumn:              314241,
			schema.AreaColumn:                    38.94,
			schema.SoilHazardColumn:              8,
			schema.SoilHazardColumn.Normalized(): 0.75,
			schema.CompositeScoreColumn:          6.5,
		},
		Rank:        4,
		Total:       50,
		Bounds:      []float64{-77.05, -12.25, -76.98, -12.15},
		Centroid:    []float64{-77.01, -12.2},
		HasGeometry: true,
	}
}

func TestWriteDistrictText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeDistrictText(&buf, testDetail(), testConfig(), createFormatters(2)))

	out := buf.String()
	assert.Contains(t, out, "Chorrillos (CHORRILLOS)")
	assert.Contains(t, out, "Rank: 4 of 50 by composite score")
	assert.Contains(t, out, "Composite: 6.50 (High)")
	assert.Contains(t, out, "Soil: sandy")
	assert.Contains(t, out, "Bounds: [-77.05, -12.25] - [-76.98, -12.15]")
	assert.Contains(t, out, "Centroid: -77.01, -12.20")
	assert.Contains(t, out, "314241.00")
	assert.NotContains(t, out, "Warning")
}

func TestWriteDistrictText_NoGeometry(t *testing.T) {
	detail := testDetail()
	detail.Rank = 0
	detail.HasGeometry = false
	detail.Bounds = nil
	detail.Centroid = nil

	var buf bytes.Buffer
	require.NoError(t, writeDistrictText(&buf, detail, testConfig(), createFormatters(2)))

	out := buf.String()
	assert.Contains(t, out, "not ranked (no geometry)")
	assert.NotContains(t, out, "Bounds")
}

func TestWriteDistrictText_Unmatched(t *testing.T) {
	detail := schema.DistrictDetail{District: "ANCON", Label: "ANCON ", Values: map[schema.Column]float64{}, Rank: 50, Total: 50, HasGeometry: true}

	var buf bytes.Buffer
	require.NoError(t, writeDistrictText(&buf, detail, testConfig(), createFormatters(2)))
	assert.Contains(t, buf.String(), "Warning: no metric data")
}

func TestWriteCSVDistrict(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeCSVDistrict(&buf, testDetail(), testConfig(), createFormatters(2)))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1+len(schema.JoinedColumns()))
	assert.Equal(t, "district,label,rank,metric,value,risk_label", lines[0])
	assert.Contains(t, lines, "CHORRILLOS,Chorrillos,4,population,314241.00,")
	assert.Contains(t, lines, "CHORRILLOS,Chorrillos,4,soil_hazard,8.00,High")
	assert.Contains(t, lines, "CHORRILLOS,Chorrillos,4,composite_score,6.50,High")
}

func TestWriteDistrictDetail_JSON(t *testing.T) {
	cfg := testConfig()
	cfg.Output = schema.JSONOut
	cfg.OutputFile = filepath.Join(t.TempDir(), "detail.json")
	require.NoError(t, WriteDistrictDetail(testDetail(), cfg))

	data, err := os.ReadFile(cfg.OutputFile)
	require.NoError(t, err)

	var got schema.DistrictDetail
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, testDetail(), got)
}
