package domain

import (
	geojson "github.com/paulmach/go.geojson"
)

// FeatureCollection converts spooled reports to a GeoJSON FeatureCollection
// for chart plotters and map overlays. Coordinates follow the GeoJSON
// convention of [lng, lat].
func FeatureCollection(reports []Report) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, r := range reports {
		f := geojson.NewPointFeature([]float64{r.Lng, r.Lat})
		f.ID = r.ID
		f.SetProperty("type", r.Type)
		f.SetProperty("severity", r.Severity)
		f.SetProperty("severity_label", SeverityLabel(r.Severity))
		f.SetProperty("status", r.Status)
		f.SetProperty("queued_at", r.QueuedAt)
		f.SetProperty("has_photo", r.HasPhoto())
		if r.Notes != "" {
			f.SetProperty("notes", r.Notes)
		}
		fc.AddFeature(f)
	}
	return fc
}
