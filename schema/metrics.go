package schema

import "strings"

// Column names a column of the merged, scored or joined table.
type Column string

// Raw and derived metric columns.
const (
	PopulationColumn         Column = "population"
	AreaColumn               Column = "area"
	SoilHazardColumn         Column = "soil_hazard"
	DensityColumn            Column = "density"
	SubstandardHousingColumn Column = "substandard_housing"
	CasualtiesColumn         Column = "casualties"
	DestroyedHousingColumn   Column = "destroyed_housing"

	// CompositeScoreColumn holds the blended 0-10 risk index.
	CompositeScoreColumn Column = "composite_score"
)

// NormalizedPrefix is prepended to a metric column to name its [0,1] rescaling.
const NormalizedPrefix = "normalized_"

// CompositeScale multiplies the mean of the normalized columns.
const CompositeScale = 10.0

// RiskColumns are the five metrics blended into the composite score, in output order.
var RiskColumns = []Column{
	SoilHazardColumn,
	DensityColumn,
	SubstandardHousingColumn,
	CasualtiesColumn,
	DestroyedHousingColumn,
}

// RawColumns are every raw or derived metric carried to the joined result.
// Population and area are inputs to density and are not normalized.
var RawColumns = append([]Column{PopulationColumn, AreaColumn}, RiskColumns...)

// Normalized returns the name of the normalized counterpart of c.
func (c Column) Normalized() Column {
	return Column(NormalizedPrefix + string(c))
}

// IsNormalized reports whether c names a normalized column.
func (c Column) IsNormalized() bool {
	return strings.HasPrefix(string(c), NormalizedPrefix)
}

// NormalizedColumns returns the normalized names of cols.
func NormalizedColumns(cols []Column) []Column {
	out := make([]Column, len(cols))
	for i, c := range cols {
		out[i] = c.Normalized()
	}
	return out
}

// JoinedColumns is the deterministic column layout of a joined result:
// raw metrics, then the normalized risk metrics, then the composite score.
func JoinedColumns() []Column {
	cols := make([]Column, 0, len(RawColumns)+len(RiskColumns)+1)
	cols = append(cols, RawColumns...)
	cols = append(cols, NormalizedColumns(RiskColumns)...)
	return append(cols, CompositeScoreColumn)
}

// ParseColumn canonicalizes a user-supplied column name. Hyphens and spaces are
// accepted in place of underscores and case is ignored.
func ParseColumn(s string) Column {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer("-", "_", " ", "_").Replace(s)
	return Column(s)
}
