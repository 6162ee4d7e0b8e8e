// Package dataset holds the raw district metrics the risk pipeline consumes.
package dataset

import (
	"bytes"
	"crypto/sha256"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/huangsam/riskmap/schema"
	"go.yaml.in/yaml/v3"
)

//go:embed lima_callao.yaml
var limaCallao []byte

// District is one district's raw inputs. A nil metric means the district is
// absent from that table, which is not the same as a measured 0.
type District struct {
	Population         *float64 `yaml:"population" json:"population,omitempty"`
	Area               *float64 `yaml:"area" json:"area,omitempty"`
	SoilHazard         *float64 `yaml:"soil_hazard" json:"soil_hazard,omitempty"`
	SubstandardHousing *float64 `yaml:"substandard_housing" json:"substandard_housing,omitempty"`
	Casualties         *float64 `yaml:"casualties" json:"casualties,omitempty"`
	DestroyedHousing   *float64 `yaml:"destroyed_housing" json:"destroyed_housing,omitempty"`
	Soil               string   `yaml:"soil" json:"soil,omitempty"`
}

type fileLayout struct {
	Name      string              `yaml:"name"`
	Districts map[string]District `yaml:"districts"`
}

// Dataset is an immutable set of raw metric tables keyed by canonical district.
type Dataset struct {
	Name      string
	Source    string
	districts map[schema.DistrictID]District
	digest    string
}

// Default returns the embedded Lima Metropolitana and Callao dataset.
func Default() (*Dataset, error) {
	return Parse(limaCallao, "embedded:lima_callao.yaml")
}

// Load reads a dataset file with the same layout as the embedded one.
func Load(path string) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset %q: %w", path, err)
	}
	return Parse(data, path)
}

// Resolve loads path, or the embedded dataset when path is empty.
func Resolve(path string) (*Dataset, error) {
	if path == "" {
		return Default()
	}
	return Load(path)
}

// Parse decodes a YAML dataset. District names are canonicalized; two names
// that canonicalize to the same district are rejected.
func Parse(data []byte, source string) (*Dataset, error) {
	var raw fileLayout
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode dataset %q: %w", source, err)
	}
	if len(raw.Districts) == 0 {
		return nil, fmt.Errorf("dataset %q has no districts", source)
	}

	names := make([]string, 0, len(raw.Districts))
	for name := range raw.Districts {
		names = append(names, name)
	}
	sort.Strings(names)

	ds := &Dataset{
		Name:      raw.Name,
		Source:    source,
		districts: make(map[schema.DistrictID]District, len(raw.Districts)),
	}
	for _, name := range names {
		id := schema.NewDistrictID(name)
		if id == "" {
			return nil, fmt.Errorf("dataset %q has an empty district name", source)
		}
		if _, dup := ds.districts[id]; dup {
			return nil, fmt.Errorf("dataset %q lists district %s more than once", source, id)
		}
		ds.districts[id] = raw.Districts[name]
	}

	// encoding/json sorts map keys, so the encoding is canonical.
	canonical, err := json.Marshal(struct {
		Name      string                         `json:"name"`
		Districts map[schema.DistrictID]District `json:"districts"`
	}{ds.Name, ds.districts})
	if err != nil {
		return nil, fmt.Errorf("failed to encode dataset %q: %w", source, err)
	}
	ds.digest = fmt.Sprintf("%x", sha256.Sum256(canonical))
	return ds, nil
}

// Digest identifies the dataset's content independent of file formatting.
func (d *Dataset) Digest() string {
	return d.digest
}

// Len returns the number of districts.
func (d *Dataset) Len() int {
	return len(d.districts)
}

// Districts returns every district in sorted order.
func (d *Dataset) Districts() []schema.DistrictID {
	ids := make([]schema.DistrictID, 0, len(d.districts))
	for id := range d.districts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// District returns the raw inputs of one district.
func (d *Dataset) District(id schema.DistrictID) (District, bool) {
	v, ok := d.districts[id]
	return v, ok
}

// Soil returns the textual soil description of a district.
func (d *Dataset) Soil(id schema.DistrictID) string {
	return d.districts[id].Soil
}

// Inputs splits the dataset into the six metric tables.
func (d *Dataset) Inputs() schema.Inputs {
	in := schema.Inputs{
		Population:         schema.MetricTable{},
		Area:               schema.MetricTable{},
		SoilHazard:         schema.MetricTable{},
		SubstandardHousing: schema.MetricTable{},
		Casualties:         schema.MetricTable{},
		DestroyedHousing:   schema.MetricTable{},
	}
	for id, v := range d.districts {
		put(in.Population, id, v.Population)
		put(in.Area, id, v.Area)
		put(in.SoilHazard, id, v.SoilHazard)
		put(in.SubstandardHousing, id, v.SubstandardHousing)
		put(in.Casualties, id, v.Casualties)
		put(in.DestroyedHousing, id, v.DestroyedHousing)
	}
	return in
}

func put(t schema.MetricTable, id schema.DistrictID, v *float64) {
	if v != nil {
		t[id] = *v
	}
}
