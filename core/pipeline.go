package core

import (
	"context"

	"github.com/huangsam/riskmap/schema"
)

// PipelineOptions tune a pipeline run without changing its inputs.
type PipelineOptions struct {
	Policy  schema.CompositePolicy // defaults to ZeroFillPolicy
	Workers int                    // concurrency for normalization, defaults to 1
}

// RunPipeline derives density, merges every table, normalizes the five risk
// metrics, blends them into the composite score and joins the result onto the
// geometries. It reads its arguments only and keeps no state, so identical
// inputs always give identical output.
func RunPipeline(ctx context.Context, inputs schema.Inputs, geometries []schema.GeometryRecord, opts PipelineOptions) (*schema.JoinedResult, error) {
	scored, err := ScoreTable(ctx, inputs, opts)
	if err != nil {
		return nil, err
	}
	return JoinGeometry(scored, geometries), nil
}

// ScoreTable runs every stage before the geometry join. Districts keep their
// absent cells, so the table also describes districts no geometry will match.
func ScoreTable(ctx context.Context, inputs schema.Inputs, opts PipelineOptions) (*schema.MergedTable, error) {
	if opts.Policy == "" {
		opts.Policy = schema.ZeroFillPolicy
	}

	density := DeriveDensity(inputs.Population, inputs.Area)
	merged, err := MergeTables(
		schema.NamedTable{Name: schema.PopulationColumn, Table: inputs.Population},
		schema.NamedTable{Name: schema.AreaColumn, Table: inputs.Area},
		schema.NamedTable{Name: schema.SoilHazardColumn, Table: inputs.SoilHazard},
		schema.NamedTable{Name: schema.DensityColumn, Table: density},
		schema.NamedTable{Name: schema.SubstandardHousingColumn, Table: inputs.SubstandardHousing},
		schema.NamedTable{Name: schema.CasualtiesColumn, Table: inputs.Casualties},
		schema.NamedTable{Name: schema.DestroyedHousingColumn, Table: inputs.DestroyedHousing},
	)
	if err != nil {
		return nil, err
	}

	normalized, err := Normalize(ctx, merged, schema.RiskColumns, opts.Workers)
	if err != nil {
		return nil, err
	}

	return Composite(normalized, schema.NormalizedColumns(schema.RiskColumns), opts.Policy)
}
