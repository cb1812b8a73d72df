// Package submit accepts new hazard reports and routes them by
// connectivity: live to the hosted backend when it is reachable,
// otherwise into the offline spool for a later sync pass.
package submit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/seamark/hazard-relay/internal/domain"
	"github.com/seamark/hazard-relay/internal/notify"
	"github.com/seamark/hazard-relay/internal/observability"
	"github.com/seamark/hazard-relay/internal/photo"
	"github.com/seamark/hazard-relay/internal/remote"
)

// ErrInvalid wraps rejections of the caller's input: a malformed draft
// or an undecodable photo. Nothing was stored or sent.
var ErrInvalid = errors.New("invalid report")

// ErrRejected wraps live-path failures that happened while the backend
// stayed reachable. The report was not queued; hiding a rejection
// behind a silent retry would leave the reporter believing it went
// through.
var ErrRejected = errors.New("report rejected")

// PendingStore is the offline spool new reports fall back to.
type PendingStore interface {
	Save(report domain.Report, photo []byte) error
	Count() int
}

// Backend uploads photos and inserts report rows on the hosted backend.
type Backend interface {
	UploadPhoto(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Insert(ctx context.Context, row remote.Row) (remote.Row, error)
}

// Connectivity answers whether the backend is reachable, with an
// on-demand probe for the moment a live attempt fails.
type Connectivity interface {
	Online() bool
	Recheck(ctx context.Context) bool
}

// PhotoProcessor normalizes an uploaded photo before storage.
type PhotoProcessor interface {
	Process(data []byte) ([]byte, string, error)
}

// Result is the outcome of a submission. Report is always the local
// record; Row is set only when the backend accepted the report live.
type Result struct {
	Queued bool          `json:"queued"`
	Report domain.Report `json:"report"`
	Row    *remote.Row   `json:"row,omitempty"`
}

// Submitter routes new reports between the live path and the spool.
type Submitter struct {
	spool    PendingStore
	backend  Backend
	conn     Connectivity
	photos   PhotoProcessor
	notifier notify.Notifier
	logger   *slog.Logger
	metrics  *observability.Metrics
	owner    string
}

func New(spool PendingStore, backend Backend, conn Connectivity, photos PhotoProcessor, notifier notify.Notifier, logger *slog.Logger, metrics *observability.Metrics, owner string) *Submitter {
	return &Submitter{
		spool:    spool,
		backend:  backend,
		conn:     conn,
		photos:   photos,
		notifier: notifier,
		logger:   logger,
		metrics:  metrics,
		owner:    owner,
	}
}

// Submit validates and routes one report. Offline submissions queue.
// Live submissions that fail are rechecked: if the connection dropped
// out mid-attempt the report queues like any offline submission, but if
// the backend is still reachable the failure is surfaced to the caller.
func (s *Submitter) Submit(ctx context.Context, draft domain.Draft, photoData []byte) (Result, error) {
	rpt, err := domain.NewReport(draft)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	// Photos are normalized at acceptance, not at sync time: a broken
	// upload is the reporter's problem now, not the sync pass's later.
	var processed []byte
	if len(photoData) > 0 {
		data, ext, err := s.photos.Process(photoData)
		if err != nil {
			return Result{}, fmt.Errorf("%w: photo: %w", ErrInvalid, err)
		}
		processed = data
		rpt.PhotoFile = rpt.ID + "." + ext
	}

	if !s.conn.Online() {
		return s.queue(rpt, processed)
	}

	result, err := s.submitLive(ctx, rpt, processed)
	if err == nil {
		return result, nil
	}

	if s.conn.Recheck(ctx) {
		s.logger.Error("live submit failed with backend reachable", "report_id", rpt.ID, "error", err)
		s.metrics.SubmitFailures.Inc()
		s.notifier.Notify(notify.SubmitFailed(rpt.ID, err))
		return Result{}, fmt.Errorf("%w: %w", ErrRejected, err)
	}

	s.logger.Warn("connection lost during live submit, queueing report", "report_id", rpt.ID)
	return s.queue(rpt, processed)
}

func (s *Submitter) submitLive(ctx context.Context, rpt domain.Report, photoData []byte) (Result, error) {
	var photoURL *string
	if rpt.HasPhoto() {
		key := domain.PhotoObjectKey(s.owner, rpt.QueuedAt, rpt.PhotoExt())
		url, err := s.backend.UploadPhoto(ctx, key, photoData, photo.ContentType(rpt.PhotoExt()))
		if err != nil {
			return Result{}, fmt.Errorf("upload photo: %w", err)
		}
		photoURL = &url
	}

	row, err := s.backend.Insert(ctx, remote.NewRow(rpt, s.owner, photoURL))
	if err != nil {
		return Result{}, fmt.Errorf("insert report: %w", err)
	}

	s.metrics.ReportsSubmitted.Inc()
	s.notifier.Notify(notify.Submitted(rpt.ID))
	s.logger.Info("report submitted", "report_id", rpt.ID, "type", rpt.Type, "severity", rpt.Severity)
	return Result{Report: rpt, Row: &row}, nil
}

func (s *Submitter) queue(rpt domain.Report, photoData []byte) (Result, error) {
	if err := s.spool.Save(rpt, photoData); err != nil {
		return Result{}, fmt.Errorf("queue report: %w", err)
	}

	s.metrics.ReportsQueued.Inc()
	s.metrics.PendingReports.Set(float64(s.spool.Count()))
	s.notifier.Notify(notify.Queued(rpt.ID))
	s.logger.Info("report queued", "report_id", rpt.ID, "type", rpt.Type, "pending", s.spool.Count())
	return Result{Queued: true, Report: rpt}, nil
}
