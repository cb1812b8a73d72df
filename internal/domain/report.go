package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Hazard types accepted by the relay.
const (
	TypeDebris      = "debris"
	TypePollution   = "pollution"
	TypeObstruction = "obstruction"
	TypeWildlife    = "wildlife"
	TypeWeather     = "weather"
	TypeOther       = "other"
)

// StatusPendingUpload is the only status a spooled record ever holds.
// Records are write-once: they enter the spool with this status and leave it
// by deletion after the hosted backend confirms the insert.
const StatusPendingUpload = "pending_upload"

// Statuses a row moves through on the hosted backend.
const (
	StatusPending   = "pending"
	StatusVerified  = "verified"
	StatusResolved  = "resolved"
	StatusDismissed = "dismissed"
)

// Severity bounds. Severity is reporter-chosen, 1 (minor) through 5 (extreme).
const (
	SeverityMin = 1
	SeverityMax = 5
)

// MaxNotesLen caps the free-text note. Longer notes are rejected, not
// truncated, so the reporter knows what was stored.
const MaxNotesLen = 2000

var hazardTypes = map[string]bool{
	TypeDebris:      true,
	TypePollution:   true,
	TypeObstruction: true,
	TypeWildlife:    true,
	TypeWeather:     true,
	TypeOther:       true,
}

var remoteStatuses = map[string]bool{
	StatusPending:   true,
	StatusVerified:  true,
	StatusResolved:  true,
	StatusDismissed: true,
}

// Report is a hazard report held in the local spool awaiting upload.
type Report struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Severity  int       `json:"severity"`
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	Notes     string    `json:"notes,omitempty"`
	PhotoFile string    `json:"photo_file,omitempty"` // sidecar filename in the spool, "" when no photo
	Status    string    `json:"status"`
	QueuedAt  time.Time `json:"queued_at"`
}

// HasPhoto reports whether a photo sidecar accompanies the record.
func (r Report) HasPhoto() bool {
	return r.PhotoFile != ""
}

// PhotoExt returns the photo sidecar's extension without the dot, "" when
// there is no photo.
func (r Report) PhotoExt() string {
	if r.PhotoFile == "" {
		return ""
	}
	i := strings.LastIndexByte(r.PhotoFile, '.')
	if i < 0 || i == len(r.PhotoFile)-1 {
		return ""
	}
	return strings.ToLower(r.PhotoFile[i+1:])
}

// Draft holds the caller-supplied fields of a new report before validation.
type Draft struct {
	Type     string  `json:"type"`
	Severity int     `json:"severity"`
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	Notes    string  `json:"notes"`
}

// NewReport validates a draft and mints the spool record: a fresh UUID,
// status pending_upload, and the queue time from the package clock.
func NewReport(d Draft) (Report, error) {
	d.Type = strings.ToLower(strings.TrimSpace(d.Type))
	d.Notes = strings.TrimSpace(d.Notes)

	if err := validateDraft(d); err != nil {
		return Report{}, err
	}

	return Report{
		ID:       uuid.NewString(),
		Type:     d.Type,
		Severity: d.Severity,
		Lat:      d.Lat,
		Lng:      d.Lng,
		Notes:    d.Notes,
		Status:   StatusPendingUpload,
		QueuedAt: clock.Now().UTC(),
	}, nil
}

func validateDraft(d Draft) error {
	if d.Type == "" {
		return fmt.Errorf("hazard type is required")
	}
	if !hazardTypes[d.Type] {
		return fmt.Errorf("unknown hazard type %q", d.Type)
	}
	if d.Severity < SeverityMin || d.Severity > SeverityMax {
		return fmt.Errorf("severity %d out of range [%d,%d]", d.Severity, SeverityMin, SeverityMax)
	}
	if d.Lat < -90 || d.Lat > 90 {
		return fmt.Errorf("latitude %v out of range [-90,90]", d.Lat)
	}
	if d.Lng < -180 || d.Lng > 180 {
		return fmt.Errorf("longitude %v out of range [-180,180]", d.Lng)
	}
	if len(d.Notes) > MaxNotesLen {
		return fmt.Errorf("notes exceed %d bytes", MaxNotesLen)
	}
	return nil
}

// ValidHazardType reports whether value names a known hazard type.
// Matching is case-insensitive.
func ValidHazardType(value string) bool {
	return hazardTypes[strings.ToLower(strings.TrimSpace(value))]
}

// ValidRemoteStatus reports whether value is a status the hosted backend
// accepts for triage updates.
func ValidRemoteStatus(value string) bool {
	return remoteStatuses[strings.ToLower(strings.TrimSpace(value))]
}

// SeverityLabel maps the 1-5 severity scale to its display label.
// Returns "" for values outside the scale.
func SeverityLabel(severity int) string {
	switch severity {
	case 1:
		return "minor"
	case 2:
		return "moderate"
	case 3:
		return "significant"
	case 4:
		return "severe"
	case 5:
		return "extreme"
	default:
		return ""
	}
}

// PhotoObjectKey builds the hosted object store key for a report's photo:
// "{owner}_{timestamp}.{ext}" with the queue time in Unix milliseconds.
// The owner prefix scopes objects per reporter; the millisecond timestamp
// keeps keys unique per report without coordination.
func PhotoObjectKey(owner string, queuedAt time.Time, ext string) string {
	ext = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(ext)), ".")
	return fmt.Sprintf("%s_%d.%s", owner, queuedAt.UnixMilli(), ext)
}
