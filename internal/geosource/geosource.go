// Package geosource loads the district boundaries that the scored table is
// joined onto.
package geosource

import (
	"bytes"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/huangsam/riskmap/schema"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// DefaultLabelField is the feature property holding the district name.
const DefaultLabelField = "distrito"

var (
	// ErrSourceUnreadable means the geometry file is missing, unreadable or not a FeatureCollection.
	ErrSourceUnreadable = errors.New("geometry source unreadable")

	// ErrMissingLabel means a feature has no usable label property.
	ErrMissingLabel = errors.New("geometry feature missing label")
)

// Collection is a loaded geometry source.
type Collection struct {
	Path       string
	LabelField string
	Digest     string // hex sha256 of the raw source bytes
	Records    []schema.GeometryRecord
}

// Len returns the number of records.
func (c *Collection) Len() int {
	return len(c.Records)
}

// Load reads a GeoJSON FeatureCollection from path. Any failure is fatal to the
// caller: the returned error wraps ErrSourceUnreadable or ErrMissingLabel and
// names the path.
func Load(path, labelField string) (*Collection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %w", ErrSourceUnreadable, path, err)
	}
	return decode(data, path, labelField)
}

// Decode reads a GeoJSON FeatureCollection from r. name identifies the source
// in error messages.
func Decode(r io.Reader, name, labelField string) (*Collection, error) {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return nil, fmt.Errorf("%w %q: %w", ErrSourceUnreadable, name, err)
	}
	return decode(buf.Bytes(), name, labelField)
}

func decode(data []byte, name, labelField string) (*Collection, error) {
	if labelField == "" {
		labelField = DefaultLabelField
	}

	var fc geojson.FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("%w %q: %w", ErrSourceUnreadable, name, err)
	}
	if len(fc.Features) == 0 {
		return nil, fmt.Errorf("%w %q: no features", ErrSourceUnreadable, name)
	}

	records := make([]schema.GeometryRecord, 0, len(fc.Features))
	for i, f := range fc.Features {
		if f == nil {
			return nil, fmt.Errorf("%w %q: feature %d is null", ErrSourceUnreadable, name, i)
		}
		raw, ok := f.Properties[labelField]
		if !ok {
			return nil, fmt.Errorf("%w %q: feature %d has no %q property", ErrMissingLabel, name, i, labelField)
		}
		label, ok := raw.(string)
		if !ok || schema.NewDistrictID(label) == "" {
			return nil, fmt.Errorf("%w %q: feature %d property %q is not a non-empty string", ErrMissingLabel, name, i, labelField)
		}
		records = append(records, schema.GeometryRecord{
			Label:      label,
			Geometry:   f.Geometry,
			Properties: f.Properties,
		})
	}

	sum := sha256.Sum256(data)
	return &Collection{
		Path:       name,
		LabelField: labelField,
		Digest:     fmt.Sprintf("%x", sum),
		Records:    records,
	}, nil
}
