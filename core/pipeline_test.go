package core

import (
	"context"
	"math"
	"testing"

	"github.com/huangsam/riskmap/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
)

func table(kv map[string]float64) schema.MetricTable {
	return schema.NewMetricTable(kv)
}

func records(labels ...string) []schema.GeometryRecord {
	out := make([]schema.GeometryRecord, len(labels))
	for i, l := range labels {
		out[i] = schema.GeometryRecord{
			Label: l,
			Geometry: geom.NewPolygon(geom.XY).MustSetCoords([][]geom.Coord{
				{{float64(i), 0}, {float64(i) + 1, 0}, {float64(i) + 1, 1}, {float64(i), 0}},
			}),
		}
	}
	return out
}

// sampleInputs covers a matched district, a district with zero area, a
// district missing from some tables and one with no geometry.
func sampleInputs() schema.Inputs {
	return schema.Inputs{
		Population:         table(map[string]float64{"ANCON": 43400, "Breña": 85316, "LIMA": 268352, "SANTA ROSA": 27863}),
		Area:               table(map[string]float64{"ANCON": 299, "Breña": 3, "LIMA": 0, "SANTA ROSA": 21}),
		SoilHazard:         table(map[string]float64{"ANCON": 7, "BRENA": 3, "LIMA": 3, "SANTA ROSA": 8}),
		SubstandardHousing: table(map[string]float64{"ANCON": 429, "BRENA": 1004, "LIMA": 8000}),
		Casualties:         table(map[string]float64{"ANCON": 0, "BRENA": 12, "LIMA": 210}),
		DestroyedHousing:   table(map[string]float64{"ANCON": 0, "BRENA": 4, "SANTA ROSA": 2}),
	}
}

func TestPipelineTwoDistrictExample(t *testing.T) {
	ctx := context.Background()
	pop := table(map[string]float64{"A": 100, "B": 400})
	area := table(map[string]float64{"A": 10, "B": 20})
	soil := table(map[string]float64{"A": 5, "B": 10})

	density := DeriveDensity(pop, area)
	assert.Equal(t, 10.0, density["A"])
	assert.Equal(t, 20.0, density["B"])

	merged, err := MergeTables(
		schema.NamedTable{Name: schema.SoilHazardColumn, Table: soil},
		schema.NamedTable{Name: schema.DensityColumn, Table: density},
	)
	require.NoError(t, err)

	cols := []schema.Column{schema.SoilHazardColumn, schema.DensityColumn}
	normalized, err := Normalize(ctx, merged, cols, 2)
	require.NoError(t, err)

	scored, err := Composite(normalized, schema.NormalizedColumns(cols), schema.ZeroFillPolicy)
	require.NoError(t, err)

	a, ok := scored.Lookup("A")
	require.True(t, ok)
	b, ok := scored.Lookup("B")
	require.True(t, ok)

	assert.Equal(t, schema.Some(0), a.Get(schema.DensityColumn.Normalized()))
	assert.Equal(t, schema.Some(1), b.Get(schema.DensityColumn.Normalized()))
	assert.Equal(t, schema.Some(0), a.Get(schema.SoilHazardColumn.Normalized()))
	assert.Equal(t, schema.Some(1), b.Get(schema.SoilHazardColumn.Normalized()))
	assert.Equal(t, schema.Some(0), a.Get(schema.CompositeScoreColumn))
	assert.Equal(t, schema.Some(10), b.Get(schema.CompositeScoreColumn))
}

func TestDeriveDensity(t *testing.T) {
	tests := []struct {
		name     string
		pop      map[string]float64
		area     map[string]float64
		expected schema.MetricTable
	}{
		{
			name:     "rounds half away from zero",
			pop:      map[string]float64{"A": 25, "B": 7},
			area:     map[string]float64{"A": 10, "B": 2},
			expected: schema.MetricTable{"A": 3, "B": 4},
		},
		{
			name:     "zero area is excluded",
			pop:      map[string]float64{"A": 100, "B": 50},
			area:     map[string]float64{"A": 0, "B": 5},
			expected: schema.MetricTable{"B": 10},
		},
		{
			name:     "missing from either table is excluded",
			pop:      map[string]float64{"A": 100, "C": 10},
			area:     map[string]float64{"A": 4, "B": 5},
			expected: schema.MetricTable{"A": 25},
		},
		{
			name:     "empty inputs",
			expected: schema.MetricTable{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DeriveDensity(table(tt.pop), table(tt.area)))
		})
	}
}

func TestDeriveDensity_RawKeys(t *testing.T) {
	// Tables built without NewMetricTable may carry uncanonical keys.
	pop := schema.MetricTable{"ancon": 100, "Breña": 90, "SURCO": 12}
	area := schema.MetricTable{"ANCON ": 10, "BRENA": 3, "surco": 4}

	assert.Equal(t, schema.MetricTable{"ANCON": 10, "BRENA": 30, "SURCO": 3}, DeriveDensity(pop, area))
}

func TestMergeTables(t *testing.T) {
	merged, err := MergeTables(
		schema.NamedTable{Name: schema.PopulationColumn, Table: schema.MetricTable{"A": 1, "b": 2}},
		schema.NamedTable{Name: schema.AreaColumn, Table: schema.MetricTable{"B": 3, "C": 0}},
	)
	require.NoError(t, err)

	assert.Equal(t, []schema.Column{schema.PopulationColumn, schema.AreaColumn}, merged.Columns)
	require.Len(t, merged.Rows, 3)
	assert.Equal(t, schema.DistrictID("A"), merged.Rows[0].District)
	assert.Equal(t, schema.DistrictID("B"), merged.Rows[1].District)

	c, _ := merged.Lookup("C")
	assert.Equal(t, schema.Some(0), c.Get(schema.AreaColumn), "a measured zero is present")
	assert.False(t, c.Get(schema.PopulationColumn).Present)

	b, _ := merged.Lookup("B")
	assert.Equal(t, schema.Some(2), b.Get(schema.PopulationColumn), "keys are canonicalized on entry")

	_, err = MergeTables(
		schema.NamedTable{Name: schema.AreaColumn},
		schema.NamedTable{Name: schema.AreaColumn},
	)
	assert.ErrorIs(t, err, ErrDuplicateColumn)
}

func TestMergeTables_CollisionIsStable(t *testing.T) {
	raw := map[string]float64{"ancon": 1, "ANCON": 2, "Ancon ": 3, " ancón": 4}
	spellings := schema.MetricTable{}
	for k, v := range raw {
		spellings[schema.DistrictID(k)] = v
	}
	want := schema.NewMetricTable(raw)["ANCON"]

	for range 50 {
		merged, err := MergeTables(schema.NamedTable{Name: schema.PopulationColumn, Table: spellings})
		require.NoError(t, err)
		require.Len(t, merged.Rows, 1)
		assert.Equal(t, schema.Some(want), merged.Rows[0].Get(schema.PopulationColumn))
	}
}

func TestNormalize(t *testing.T) {
	ctx := context.Background()
	merged, err := MergeTables(
		schema.NamedTable{Name: schema.CasualtiesColumn, Table: schema.MetricTable{"A": 10, "B": 20, "C": 30}},
		schema.NamedTable{Name: schema.SoilHazardColumn, Table: schema.MetricTable{"A": 4, "B": 4}},
	)
	require.NoError(t, err)

	out, err := Normalize(ctx, merged, []schema.Column{schema.CasualtiesColumn, schema.SoilHazardColumn}, 4)
	require.NoError(t, err)

	tests := []struct {
		district schema.DistrictID
		column   schema.Column
		expected schema.Cell
	}{
		{"A", schema.CasualtiesColumn.Normalized(), schema.Some(0)},
		{"B", schema.CasualtiesColumn.Normalized(), schema.Some(0.5)},
		{"C", schema.CasualtiesColumn.Normalized(), schema.Some(1)},
		{"A", schema.SoilHazardColumn.Normalized(), schema.Some(0)}, // constant column
		{"B", schema.SoilHazardColumn.Normalized(), schema.Some(0)},
		{"C", schema.SoilHazardColumn.Normalized(), schema.Cell{}}, // absent stays absent
	}
	for _, tt := range tests {
		row, ok := out.Lookup(tt.district)
		require.True(t, ok)
		assert.Equal(t, tt.expected, row.Get(tt.column), "%s %s", tt.district, tt.column)
	}

	// The input table is untouched
	assert.False(t, merged.HasColumn(schema.CasualtiesColumn.Normalized()))

	_, err = Normalize(ctx, merged, []schema.Column{schema.DensityColumn}, 1)
	assert.ErrorIs(t, err, ErrUnknownColumn)
}

func TestNormalize_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	merged, err := MergeTables(schema.NamedTable{Name: schema.CasualtiesColumn, Table: schema.MetricTable{"A": 1}})
	require.NoError(t, err)
	_, err = Normalize(ctx, merged, []schema.Column{schema.CasualtiesColumn}, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestComposite(t *testing.T) {
	merged, err := MergeTables(
		schema.NamedTable{Name: "x", Table: schema.MetricTable{"A": 1, "B": 0.5}},
		schema.NamedTable{Name: "y", Table: schema.MetricTable{"A": 0.5}},
		schema.NamedTable{Name: "z", Table: schema.MetricTable{"C": 0.25}},
	)
	require.NoError(t, err)
	cols := []schema.Column{"x", "y"}

	tests := []struct {
		name     string
		policy   schema.CompositePolicy
		expected map[schema.DistrictID]schema.Cell
	}{
		{
			name:   "zero-fill divides by every column",
			policy: schema.ZeroFillPolicy,
			expected: map[schema.DistrictID]schema.Cell{
				"A": schema.Some(7.5),
				"B": schema.Some(2.5),
				"C": schema.Some(0),
			},
		},
		{
			name:   "exclude-absent averages present values",
			policy: schema.ExcludeAbsentPolicy,
			expected: map[schema.DistrictID]schema.Cell{
				"A": schema.Some(7.5),
				"B": schema.Some(5),
				"C": {},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Composite(merged, cols, tt.policy)
			require.NoError(t, err)
			for d, want := range tt.expected {
				row, _ := out.Lookup(d)
				assert.Equal(t, want, row.Get(schema.CompositeScoreColumn), "district %s", d)
			}
		})
	}

	_, err = Composite(merged, nil, schema.ZeroFillPolicy)
	assert.Error(t, err)
	_, err = Composite(merged, []schema.Column{"missing"}, schema.ZeroFillPolicy)
	assert.ErrorIs(t, err, ErrUnknownColumn)
	_, err = Composite(merged, cols, "weighted")
	assert.Error(t, err)
}

func TestJoinGeometry(t *testing.T) {
	scored, err := ScoreTable(context.Background(), sampleInputs(), PipelineOptions{})
	require.NoError(t, err)

	geo := records("ANCON ", "breña", "CALLAO", "ANCON ")
	geo[0].Properties = map[string]any{"ubigeo": "150102"}
	result := JoinGeometry(scored, geo)

	require.Len(t, result.Rows, len(geo))
	assert.Equal(t, scored.Columns, result.Columns)

	ancon := result.Rows[0]
	assert.Equal(t, schema.DistrictID("ANCON"), ancon.District)
	assert.Equal(t, "ANCON ", ancon.Label)
	assert.True(t, ancon.Matched)
	assert.Equal(t, 43400.0, ancon.Get(schema.PopulationColumn))
	assert.Same(t, geo[0].Geometry.(*geom.Polygon), ancon.Geometry.(*geom.Polygon))
	assert.Equal(t, map[string]any{"ubigeo": "150102"}, ancon.Properties)
	ancon.Properties["ubigeo"] = "changed"
	assert.Equal(t, "150102", geo[0].Properties["ubigeo"], "source properties are copied")
	assert.Nil(t, result.Rows[1].Properties)

	assert.True(t, result.Rows[1].Matched)
	assert.Equal(t, schema.DistrictID("BRENA"), result.Rows[1].District)

	callao := result.Rows[2]
	assert.False(t, callao.Matched)
	for _, c := range scored.Columns {
		v, ok := callao.Values[c]
		assert.True(t, ok, "column %s must be present", c)
		assert.Equal(t, 0.0, v)
	}

	// Duplicate geometry records are kept, not collapsed
	assert.Equal(t, ancon.Values, result.Rows[3].Values)

	assert.Equal(t, []schema.DistrictID{"LIMA", "SANTA ROSA"}, result.Unmatched)
	assert.Equal(t, []schema.DistrictID{"CALLAO"}, result.Missing)
}

func TestRunPipeline_Properties(t *testing.T) {
	ctx := context.Background()
	inputs := sampleInputs()
	geo := records("ANCON", "BRENA", "LIMA", "SANTA ROSA", "CALLAO")

	result, err := RunPipeline(ctx, inputs, geo, PipelineOptions{Workers: 3})
	require.NoError(t, err)

	t.Run("row count equals geometry count", func(t *testing.T) {
		assert.Len(t, result.Rows, len(geo))
		assert.Empty(t, result.Unmatched)
	})

	t.Run("density is rounded and zero area is excluded", func(t *testing.T) {
		ancon, _ := result.Find("ANCON")
		assert.Equal(t, math.Round(43400.0/299), ancon.Get(schema.DensityColumn))
		lima, _ := result.Find("LIMA")
		assert.Equal(t, 0.0, lima.Get(schema.DensityColumn))
		assert.Equal(t, 0.0, lima.Get(schema.DensityColumn.Normalized()))
	})

	t.Run("normalized columns span zero to one", func(t *testing.T) {
		scored, err := ScoreTable(ctx, inputs, PipelineOptions{})
		require.NoError(t, err)
		for _, c := range schema.NormalizedColumns(schema.RiskColumns) {
			lo, hi := math.Inf(1), math.Inf(-1)
			for _, row := range scored.Rows {
				if cell := row.Get(c); cell.Present {
					lo = math.Min(lo, cell.Value)
					hi = math.Max(hi, cell.Value)
				}
			}
			assert.Equal(t, 0.0, lo, c)
			assert.Equal(t, 1.0, hi, c)
		}
	})

	t.Run("composite stays in range", func(t *testing.T) {
		for _, row := range result.Rows {
			v := row.Get(schema.CompositeScoreColumn)
			assert.GreaterOrEqual(t, v, 0.0)
			assert.LessOrEqual(t, v, schema.CompositeScale)
		}
	})

	t.Run("columns follow the joined layout", func(t *testing.T) {
		assert.ElementsMatch(t, schema.JoinedColumns(), result.Columns)
	})

	t.Run("idempotent", func(t *testing.T) {
		again, err := RunPipeline(ctx, inputs, geo, PipelineOptions{Workers: 3})
		require.NoError(t, err)
		assert.Equal(t, result, again)
	})

	t.Run("parallel matches sequential", func(t *testing.T) {
		seq, err := RunPipeline(ctx, inputs, geo, PipelineOptions{Workers: 1})
		require.NoError(t, err)
		assert.Equal(t, result, seq)
	})

	t.Run("inputs are not mutated", func(t *testing.T) {
		assert.Equal(t, sampleInputs(), inputs)
	})
}

func TestRunPipeline_Policies(t *testing.T) {
	ctx := context.Background()
	geo := records("SANTA ROSA")

	zero, err := RunPipeline(ctx, sampleInputs(), geo, PipelineOptions{Policy: schema.ZeroFillPolicy})
	require.NoError(t, err)
	excl, err := RunPipeline(ctx, sampleInputs(), geo, PipelineOptions{Policy: schema.ExcludeAbsentPolicy})
	require.NoError(t, err)

	// SANTA ROSA lacks substandard housing and casualties, so zero-fill scores it lower
	assert.Less(t, zero.Rows[0].Get(schema.CompositeScoreColumn), excl.Rows[0].Get(schema.CompositeScoreColumn))
}

func TestRunPipeline_EmptyGeometry(t *testing.T) {
	result, err := RunPipeline(context.Background(), sampleInputs(), nil, PipelineOptions{})
	require.NoError(t, err)
	assert.Empty(t, result.Rows)
	assert.Len(t, result.Unmatched, 4)
}

func BenchmarkRunPipeline(b *testing.B) {
	ctx := context.Background()
	inputs := sampleInputs()
	geo := records("ANCON", "BRENA", "LIMA", "SANTA ROSA", "CALLAO")

	for b.Loop() {
		if _, err := RunPipeline(ctx, inputs, geo, PipelineOptions{Workers: 4}); err != nil {
			b.Fatal(err)
		}
	}
}
