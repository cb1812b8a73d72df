package kafka

import (
	"context"
	"log/slog"

	"github.com/seamark/hazard-relay/internal/observability"
	"github.com/seamark/hazard-relay/internal/remote"
)

// Backend is the remote-client subset the mirror wraps.
type Backend interface {
	UploadPhoto(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Insert(ctx context.Context, row remote.Row) (remote.Row, error)
}

// Publisher pushes accepted rows to the mirror topic. Satisfied by Writer.
type Publisher interface {
	Publish(ctx context.Context, row remote.Row) error
}

// Mirror decorates a Backend so that every row the backend accepts is
// also published to the mirror topic. Both the live submit path and
// sync passes flow through it. A publish failure is logged, never
// propagated: losing a mirror message must not retain or reject a
// report.
type Mirror struct {
	next    Backend
	pub     Publisher
	logger  *slog.Logger
	metrics *observability.Metrics
}

func NewMirror(next Backend, pub Publisher, logger *slog.Logger, metrics *observability.Metrics) *Mirror {
	return &Mirror{next: next, pub: pub, logger: logger, metrics: metrics}
}

func (m *Mirror) UploadPhoto(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	return m.next.UploadPhoto(ctx, key, data, contentType)
}

func (m *Mirror) Insert(ctx context.Context, row remote.Row) (remote.Row, error) {
	stored, err := m.next.Insert(ctx, row)
	if err != nil {
		return stored, err
	}

	if err := m.pub.Publish(ctx, stored); err != nil {
		m.logger.Warn("mirror publish failed", "owner_id", stored.OwnerID, "error", err)
		m.metrics.MirrorFailures.Inc()
		return stored, nil
	}
	m.metrics.MirrorPublished.Inc()
	return stored, nil
}
