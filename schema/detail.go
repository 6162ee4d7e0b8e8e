package schema

// DistrictDetail is everything known about one district after a pipeline run.
type DistrictDetail struct {
	District DistrictID         `json:"district"`
	Label    string             `json:"label"`
	Matched  bool               `json:"matched"`
	Values   map[Column]float64 `json:"values"`
	Soil     string             `json:"soil,omitempty"`

	// Rank is the 1-based position by composite score among all joined rows.
	Rank  int `json:"rank"`
	Total int `json:"total"`

	// Bounds is minX, minY, maxX, maxY of the district geometry.
	Bounds   []float64 `json:"bounds,omitempty"`
	Centroid []float64 `json:"centroid,omitempty"`

	// HasGeometry is false when the district only exists in the metric tables.
	HasGeometry bool `json:"has_geometry"`
}

// ScoreSummary describes the join around a ranked selection.
type ScoreSummary struct {
	View      Column          `json:"view"`
	Policy    CompositePolicy `json:"policy"`
	Total     int             `json:"total"`
	Unmatched []DistrictID    `json:"unmatched"`
	Missing   []DistrictID    `json:"missing"`
	Cached    bool            `json:"cached"`
}
