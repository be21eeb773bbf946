package atlas

import "github.com/paulmach/orb/geojson"

// Aggregate merges resolved features into the single collection the
// rendering layer consumes: one entry per resolved district, in roster
// order, each carrying geometry plus the queried year's officeholder.
func Aggregate(features []AnnotatedFeature) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, af := range features {
		fc.Append(af.GeoJSON())
	}
	return fc
}
