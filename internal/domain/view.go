package domain

import (
	"context"
	"log/slog"
)

// ReportView is a report annotated for display. The annotations never touch
// the spool or the hosted backend.
type ReportView struct {
	Report
	SeverityLabel string `json:"severity_label"`
	PlaceName     string `json:"place_name,omitempty"`
	GeoSource     string `json:"geo_source,omitempty"` // "reverse", "failed", "none"
}

// AnnotateReport builds the display view of a report, reverse geocoding its
// coordinates when a geocoder is configured. Geocoding failures degrade to a
// coordinate-only view; they are logged, never propagated.
func AnnotateReport(ctx context.Context, report Report, geocoder Geocoder, logger *slog.Logger) ReportView {
	view := ReportView{
		Report:        report,
		SeverityLabel: SeverityLabel(report.Severity),
	}

	if geocoder == nil {
		view.GeoSource = "none"
		return view
	}

	result, err := geocoder.ReverseGeocode(ctx, report.Lat, report.Lng)
	if err != nil {
		logger.Warn("reverse geocoding failed",
			"report_id", report.ID,
			"lat", report.Lat,
			"lng", report.Lng,
			"error", err,
		)
		view.GeoSource = "failed"
		return view
	}

	if result.PlaceName == "" {
		view.GeoSource = "none"
		return view
	}

	view.PlaceName = result.PlaceName
	view.GeoSource = "reverse"
	return view
}

// AnnotateReports maps AnnotateReport over a batch, preserving order.
func AnnotateReports(ctx context.Context, reports []Report, geocoder Geocoder, logger *slog.Logger) []ReportView {
	views := make([]ReportView, 0, len(reports))
	for _, r := range reports {
		views = append(views, AnnotateReport(ctx, r, geocoder, logger))
	}
	return views
}
