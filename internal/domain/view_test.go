package domain

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

// --- mock geocoder ---

type mockGeocoder struct {
	forwardResult GeocodingResult
	forwardErr    error
	reverseResult GeocodingResult
	reverseErr    error
	forwardCalls  int
	reverseCalls  int
}

func (m *mockGeocoder) ForwardGeocode(_ context.Context, _ string) (GeocodingResult, error) {
	m.forwardCalls++
	return m.forwardResult, m.forwardErr
}

func (m *mockGeocoder) ReverseGeocode(_ context.Context, _, _ float64) (GeocodingResult, error) {
	m.reverseCalls++
	return m.reverseResult, m.reverseErr
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- tests ---

func TestAnnotateReport_NilGeocoder(t *testing.T) {
	report := Report{ID: "rpt-1", Severity: 4, Lat: 48.423, Lng: -123.371}

	view := AnnotateReport(context.Background(), report, nil, discardLogger())

	assert.Equal(t, "severe", view.SeverityLabel)
	assert.Equal(t, "none", view.GeoSource)
	assert.Empty(t, view.PlaceName)
}

func TestAnnotateReport_Reverse(t *testing.T) {
	geo := &mockGeocoder{
		reverseResult: GeocodingResult{
			PlaceName:        "Race Rocks",
			FormattedAddress: "Race Rocks, Strait of Juan de Fuca",
			Confidence:       0.92,
		},
	}
	report := Report{ID: "rpt-2", Severity: 2, Lat: 48.298, Lng: -123.531}

	view := AnnotateReport(context.Background(), report, geo, discardLogger())

	assert.Equal(t, "Race Rocks", view.PlaceName)
	assert.Equal(t, "reverse", view.GeoSource)
	assert.Equal(t, 1, geo.reverseCalls)
	assert.Equal(t, 0, geo.forwardCalls)
}

func TestAnnotateReport_GeocoderError_GracefulDegradation(t *testing.T) {
	geo := &mockGeocoder{reverseErr: errors.New("rate limited")}
	report := Report{ID: "rpt-3", Severity: 5, Lat: 48.298, Lng: -123.531}

	view := AnnotateReport(context.Background(), report, geo, discardLogger())

	assert.Equal(t, "failed", view.GeoSource)
	assert.Empty(t, view.PlaceName)
	assert.Equal(t, 48.298, view.Lat) // original coordinates preserved
}

func TestAnnotateReport_EmptyResult(t *testing.T) {
	geo := &mockGeocoder{}
	report := Report{ID: "rpt-4", Severity: 1, Lat: 0.001, Lng: 0.001}

	view := AnnotateReport(context.Background(), report, geo, discardLogger())

	assert.Equal(t, "none", view.GeoSource)
	assert.Empty(t, view.PlaceName)
}

func TestAnnotateReports_PreservesOrder(t *testing.T) {
	geo := &mockGeocoder{reverseResult: GeocodingResult{PlaceName: "Haro Strait"}}
	reports := []Report{
		{ID: "rpt-a", Severity: 1},
		{ID: "rpt-b", Severity: 2},
		{ID: "rpt-c", Severity: 3},
	}

	views := AnnotateReports(context.Background(), reports, geo, discardLogger())

	assert.Len(t, views, 3)
	assert.Equal(t, "rpt-a", views[0].ID)
	assert.Equal(t, "rpt-b", views[1].ID)
	assert.Equal(t, "rpt-c", views[2].ID)
	assert.Equal(t, 3, geo.reverseCalls)
}
