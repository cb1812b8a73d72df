// Package syncer drains the offline spool to the hosted backend. Sync
// passes run when connectivity returns, on manual triggers, and once at
// startup; two passes never overlap.
package syncer

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/seamark/hazard-relay/internal/domain"
	"github.com/seamark/hazard-relay/internal/notify"
	"github.com/seamark/hazard-relay/internal/observability"
	"github.com/seamark/hazard-relay/internal/photo"
	"github.com/seamark/hazard-relay/internal/remote"
)

// PendingStore is the spool the syncer drains.
type PendingStore interface {
	List() []domain.Report
	Photo(report domain.Report) ([]byte, error)
	Remove(id string) error
	Count() int
}

// Backend uploads photos and inserts report rows on the hosted backend.
type Backend interface {
	UploadPhoto(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Insert(ctx context.Context, row remote.Row) (remote.Row, error)
}

// Connectivity reports backend reachability and signals transitions.
type Connectivity interface {
	Online() bool
	Subscribe() <-chan bool
}

// PassStats records the outcome of one completed sync pass.
type PassStats struct {
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Attempted  int       `json:"attempted"`
	Synced     int       `json:"synced"`
	Failed     int       `json:"failed"`
}

// Syncer orchestrates sync passes over the spool.
type Syncer struct {
	spool    PendingStore
	backend  Backend
	conn     Connectivity
	notifier notify.Notifier
	logger   *slog.Logger
	metrics  *observability.Metrics
	owner    string

	// One-slot trigger queue: a trigger arriving mid-pass schedules
	// exactly one follow-up pass, further triggers coalesce into it.
	trigger chan struct{}

	ready  atomic.Bool
	passMu sync.Mutex

	statsMu  sync.Mutex
	lastPass *PassStats
}

// New creates a Syncer for the given owner. An empty owner disables
// sync passes entirely.
func New(spool PendingStore, backend Backend, conn Connectivity, notifier notify.Notifier, logger *slog.Logger, metrics *observability.Metrics, owner string) *Syncer {
	return &Syncer{
		spool:    spool,
		backend:  backend,
		conn:     conn,
		notifier: notifier,
		logger:   logger,
		metrics:  metrics,
		owner:    owner,
		trigger:  make(chan struct{}, 1),
	}
}

// CheckReadiness returns nil once the sync loop is running, or an error
// describing why the service is not yet ready.
func (s *Syncer) CheckReadiness(_ context.Context) error {
	if !s.ready.Load() {
		return errors.New("sync loop has not started yet")
	}
	return nil
}

// Trigger requests a sync pass without waiting for it.
func (s *Syncer) Trigger() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

// LastPass returns the most recent completed pass, if any.
func (s *Syncer) LastPass() (PassStats, bool) {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	if s.lastPass == nil {
		return PassStats{}, false
	}
	return *s.lastPass, true
}

// Run executes sync passes until the context is cancelled: once at
// startup if the backend is already reachable, then on every offline
// to online transition and on manual triggers. Transitions are also
// surfaced to the notifier.
func (s *Syncer) Run(ctx context.Context) error {
	transitions := s.conn.Subscribe()

	s.logger.Info("syncer started", "pending", s.spool.Count())
	s.metrics.SyncRunning.Set(1)
	defer s.metrics.SyncRunning.Set(0)
	s.metrics.PendingReports.Set(float64(s.spool.Count()))
	s.setOnlineGauge(s.conn.Online())
	s.ready.Store(true)

	if s.conn.Online() {
		s.RunPass(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("syncer stopping", "reason", ctx.Err())
			return nil

		case online := <-transitions:
			s.setOnlineGauge(online)
			s.notifier.Notify(notify.Connectivity(online))
			if online {
				s.RunPass(ctx)
			}

		case <-s.trigger:
			s.RunPass(ctx)
		}
	}
}

// RunPass executes one sync pass over the spool, in stored order. The
// pass is skipped (false, no mutations, no remote calls) unless an
// owner is configured and the backend is reachable. Each entry is
// pushed independently: a failed insert retains the entry and the pass
// moves on. At most one synced aggregate and one failed aggregate
// notification are emitted per pass.
func (s *Syncer) RunPass(ctx context.Context) (PassStats, bool) {
	s.passMu.Lock()
	defer s.passMu.Unlock()

	if ctx.Err() != nil {
		return PassStats{}, false
	}
	if s.owner == "" {
		s.logger.Debug("sync pass skipped, no owner configured")
		return PassStats{}, false
	}
	if !s.conn.Online() {
		s.logger.Debug("sync pass skipped, backend offline")
		return PassStats{}, false
	}

	stats := PassStats{StartedAt: time.Now().UTC()}
	pending := s.spool.List()

	if len(pending) > 0 {
		s.logger.Info("sync pass started", "pending", len(pending))
	}

	for _, rpt := range pending {
		if ctx.Err() != nil {
			s.logger.Info("sync pass aborted", "reason", ctx.Err(), "synced", stats.Synced)
			break
		}
		stats.Attempted++
		if s.syncOne(ctx, rpt) {
			stats.Synced++
		} else {
			stats.Failed++
		}
	}

	stats.FinishedAt = time.Now().UTC()

	if stats.Synced > 0 {
		s.notifier.Notify(notify.Synced(stats.Synced))
	}
	if stats.Failed > 0 {
		s.notifier.Notify(notify.SyncFailed(stats.Failed))
	}

	s.metrics.ReportsSynced.Add(float64(stats.Synced))
	s.metrics.SyncFailures.Add(float64(stats.Failed))
	s.metrics.PendingReports.Set(float64(s.spool.Count()))
	if stats.Attempted > 0 {
		s.metrics.SyncPassDuration.Observe(stats.FinishedAt.Sub(stats.StartedAt).Seconds())
		s.metrics.SyncBatchSize.Observe(float64(stats.Attempted))
		s.logger.Info("sync pass finished", "synced", stats.Synced, "failed", stats.Failed)
	}

	s.statsMu.Lock()
	s.lastPass = &stats
	s.statsMu.Unlock()

	return stats, true
}

// syncOne pushes one spooled report. Photo problems degrade to a
// report without a photo; only a failed insert retains the report.
func (s *Syncer) syncOne(ctx context.Context, rpt domain.Report) bool {
	var photoURL *string
	if rpt.HasPhoto() {
		photoURL = s.uploadPhoto(ctx, rpt)
	}

	row := remote.NewRow(rpt, s.owner, photoURL)
	if _, err := s.backend.Insert(ctx, row); err != nil {
		s.logger.Error("insert failed, report retained", "report_id", rpt.ID, "error", err)
		return false
	}

	if err := s.spool.Remove(rpt.ID); err != nil {
		// The backend accepted the row; a copy left behind would be
		// pushed again on the next pass.
		s.logger.Error("failed to remove synced report from spool", "report_id", rpt.ID, "error", err)
	}
	return true
}

// uploadPhoto returns the public URL of the report's photo, or nil when
// the sidecar is unreadable or the upload fails.
func (s *Syncer) uploadPhoto(ctx context.Context, rpt domain.Report) *string {
	data, err := s.spool.Photo(rpt)
	if err != nil {
		s.logger.Warn("photo sidecar unreadable, syncing report without photo",
			"report_id", rpt.ID, "error", err)
		s.metrics.PhotoUploadErrors.Inc()
		return nil
	}

	key := domain.PhotoObjectKey(s.owner, rpt.QueuedAt, rpt.PhotoExt())
	url, err := s.backend.UploadPhoto(ctx, key, data, photo.ContentType(rpt.PhotoExt()))
	if err != nil {
		s.logger.Warn("photo upload failed, syncing report without photo",
			"report_id", rpt.ID, "error", err)
		s.metrics.PhotoUploadErrors.Inc()
		return nil
	}
	return &url
}

func (s *Syncer) setOnlineGauge(online bool) {
	if online {
		s.metrics.Online.Set(1)
		return
	}
	s.metrics.Online.Set(0)
}
