package source

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

var errEmptyPayload = errors.New("payload contains no usable geometry")

// districtLabelKeys are the property names district labels hide under
// across the mirror's vintages. Checked in order.
var districtLabelKeys = []string{"district", "DISTRICT", "cd", "CD", "id", "ID"}

// DistrictFeature is the canonical form every upstream payload is
// normalized into before it leaves this package: one label, one
// geometry. Upstream responses arrive as a bare geometry, a single
// feature, or a whole collection; none of those shapes may leak out.
type DistrictFeature struct {
	Label    string
	Geometry orb.Geometry
}

// normalizeGeometry decodes any of the three upstream payload shapes
// into a single geometry. A multi-feature collection is merged into
// one multipolygon, since a per-district record occasionally ships its
// islands as separate features.
func normalizeGeometry(data []byte) (orb.Geometry, error) {
	switch payloadType(data) {
	case "FeatureCollection":
		fc, err := geojson.UnmarshalFeatureCollection(data)
		if err != nil {
			return nil, fmt.Errorf("decode feature collection: %w", err)
		}
		return mergeFeatures(fc.Features)
	case "Feature":
		f, err := geojson.UnmarshalFeature(data)
		if err != nil {
			return nil, fmt.Errorf("decode feature: %w", err)
		}
		if f.Geometry == nil {
			return nil, errEmptyPayload
		}
		return f.Geometry, nil
	default:
		g, err := geojson.UnmarshalGeometry(data)
		if err != nil {
			return nil, fmt.Errorf("decode geometry: %w", err)
		}
		geom := g.Geometry()
		if geom == nil {
			return nil, errEmptyPayload
		}
		return geom, nil
	}
}

// normalizeCollection decodes a bulk per-state payload into labeled
// district features. Single-feature and bare-geometry payloads come
// back as a one-element slice with whatever label can be recovered.
func normalizeCollection(data []byte) ([]DistrictFeature, error) {
	switch payloadType(data) {
	case "FeatureCollection":
		fc, err := geojson.UnmarshalFeatureCollection(data)
		if err != nil {
			return nil, fmt.Errorf("decode feature collection: %w", err)
		}
		var out []DistrictFeature
		for _, f := range fc.Features {
			if f.Geometry == nil {
				continue
			}
			out = append(out, DistrictFeature{
				Label:    featureLabel(f),
				Geometry: f.Geometry,
			})
		}
		if len(out) == 0 {
			return nil, errEmptyPayload
		}
		return out, nil
	case "Feature":
		f, err := geojson.UnmarshalFeature(data)
		if err != nil {
			return nil, fmt.Errorf("decode feature: %w", err)
		}
		if f.Geometry == nil {
			return nil, errEmptyPayload
		}
		return []DistrictFeature{{Label: featureLabel(f), Geometry: f.Geometry}}, nil
	default:
		g, err := geojson.UnmarshalGeometry(data)
		if err != nil {
			return nil, fmt.Errorf("decode geometry: %w", err)
		}
		geom := g.Geometry()
		if geom == nil {
			return nil, errEmptyPayload
		}
		return []DistrictFeature{{Geometry: geom}}, nil
	}
}

// payloadType sniffs the top-level GeoJSON "type" member.
func payloadType(data []byte) string {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return ""
	}
	return probe.Type
}

// featureLabel digs the district label out of a feature's properties,
// tolerating the naming drift across vintages. Numeric labels come
// back as their decimal spelling.
func featureLabel(f *geojson.Feature) string {
	for _, key := range districtLabelKeys {
		v, ok := f.Properties[key]
		if !ok {
			continue
		}
		switch val := v.(type) {
		case string:
			if val != "" {
				return val
			}
		case float64:
			return strconv.Itoa(int(val))
		case int:
			return strconv.Itoa(val)
		}
	}
	if s, ok := f.ID.(string); ok {
		return s
	}
	return ""
}

// mergeFeatures collapses a feature list into one geometry.
func mergeFeatures(features []*geojson.Feature) (orb.Geometry, error) {
	var mp orb.MultiPolygon
	for _, f := range features {
		switch g := f.Geometry.(type) {
		case orb.Polygon:
			mp = append(mp, g)
		case orb.MultiPolygon:
			mp = append(mp, g...)
		}
	}
	if len(mp) == 0 {
		return nil, errEmptyPayload
	}
	if len(mp) == 1 {
		return mp[0], nil
	}
	return mp, nil
}
