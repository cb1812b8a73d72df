// Package notify fans relay lifecycle events out to interested
// listeners: the structured log and any connected WebSocket clients.
package notify

import (
	"fmt"
	"log/slog"
	"time"
)

// Event types emitted by the relay.
const (
	EventReportQueued    = "report_queued"
	EventReportSubmitted = "report_submitted"
	EventSubmitFailed    = "submit_failed"
	EventSyncSynced      = "sync_synced"
	EventSyncFailed      = "sync_failed"
	EventConnectivity    = "connectivity"
)

// Event is a single user-facing notification. Count is only set on
// aggregate sync events, ReportID only on per-report events.
type Event struct {
	Type     string    `json:"type"`
	Count    int       `json:"count,omitempty"`
	ReportID string    `json:"report_id,omitempty"`
	Message  string    `json:"message"`
	At       time.Time `json:"at"`
}

// Queued signals that a report was spooled for a later sync pass.
func Queued(reportID string) Event {
	return Event{
		Type:     EventReportQueued,
		ReportID: reportID,
		Message:  "report saved offline; will sync when connection returns",
		At:       time.Now().UTC(),
	}
}

// Submitted signals that a report reached the remote backend directly.
func Submitted(reportID string) Event {
	return Event{
		Type:     EventReportSubmitted,
		ReportID: reportID,
		Message:  "report submitted",
		At:       time.Now().UTC(),
	}
}

// SubmitFailed signals that a live submission failed while the
// connection was still up, so the report was not spooled.
func SubmitFailed(reportID string, err error) Event {
	return Event{
		Type:     EventSubmitFailed,
		ReportID: reportID,
		Message:  fmt.Sprintf("report submission failed: %v", err),
		At:       time.Now().UTC(),
	}
}

// Synced is the aggregate success notification for one sync pass.
func Synced(count int) Event {
	return Event{
		Type:    EventSyncSynced,
		Count:   count,
		Message: fmt.Sprintf("%d %s synced", count, reportWord(count)),
		At:      time.Now().UTC(),
	}
}

// SyncFailed is the aggregate failure notification for one sync pass.
func SyncFailed(count int) Event {
	return Event{
		Type:    EventSyncFailed,
		Count:   count,
		Message: fmt.Sprintf("%d %s failed to sync and remain queued", count, reportWord(count)),
		At:      time.Now().UTC(),
	}
}

// Connectivity signals an online/offline transition.
func Connectivity(online bool) Event {
	msg := "connection lost; new reports will be queued"
	if online {
		msg = "connection restored"
	}
	return Event{
		Type:    EventConnectivity,
		Message: msg,
		At:      time.Now().UTC(),
	}
}

func reportWord(n int) string {
	if n == 1 {
		return "report"
	}
	return "reports"
}

// Notifier delivers events to a listener. Delivery is best effort and
// must never block or fail the operation that produced the event.
type Notifier interface {
	Notify(ev Event)
}

// LogNotifier writes events to the structured log.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(ev Event) {
	attrs := []any{"type", ev.Type, "message", ev.Message}
	if ev.Count > 0 {
		attrs = append(attrs, "count", ev.Count)
	}
	if ev.ReportID != "" {
		attrs = append(attrs, "report_id", ev.ReportID)
	}
	n.logger.Info("notification", attrs...)
}

// Multi fans one event out to several notifiers in order.
type Multi []Notifier

func (m Multi) Notify(ev Event) {
	for _, n := range m {
		n.Notify(ev)
	}
}
