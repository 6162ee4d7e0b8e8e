package outwriter

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"

	"github.com/huangsam/riskmap/internal/contract"
	"github.com/huangsam/riskmap/schema"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// buildFeatureCollection turns ranked rows back into GeoJSON features. The
// source properties are kept and every joined column is added on top, so a
// source key that collides with a column is overwritten. Rows without
// geometry are skipped.
func buildFeatureCollection(rows []schema.JoinedRow, summary schema.ScoreSummary, cfg *contract.Config) *geojson.FeatureCollection {
	fc := &geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(rows))}
	for i, r := range rows {
		if r.Geometry == nil {
			continue
		}
		props := make(map[string]any, len(r.Properties)+len(r.Values)+6)
		maps.Copy(props, r.Properties)
		props["rank"] = i + 1
		props["district"] = string(r.District)
		props["label"] = r.Label
		props["matched"] = r.Matched
		props["view"] = string(summary.View)
		props["risk_label"] = labelFor(cfg, r, summary.View)
		for c, v := range r.Values {
			props[string(c)] = v
		}
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:         string(r.District),
			Geometry:   r.Geometry,
			Properties: props,
		})
	}
	return fc
}

// writeGeoJSONScores writes ranked districts as a GeoJSON FeatureCollection.
func writeGeoJSONScores(w io.Writer, rows []schema.JoinedRow, summary schema.ScoreSummary, cfg *contract.Config) error {
	data, err := json.Marshal(buildFeatureCollection(rows, summary, cfg))
	if err != nil {
		return fmt.Errorf("failed to encode GeoJSON: %w", err)
	}
	_, err = w.Write(append(data, '\n'))
	return err
}
