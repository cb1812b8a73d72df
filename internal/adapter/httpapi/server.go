// Package httpapi is the relay's local HTTP surface: report intake,
// spool inspection, manual sync, remote triage proxies, a WebSocket
// event stream, and the usual health and metrics endpoints. It is what
// the chart-plotter UI on the boat talks to.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/seamark/hazard-relay/internal/config"
	"github.com/seamark/hazard-relay/internal/domain"
	"github.com/seamark/hazard-relay/internal/notify"
	"github.com/seamark/hazard-relay/internal/remote"
	"github.com/seamark/hazard-relay/internal/submit"
	"github.com/seamark/hazard-relay/internal/syncer"
)

// Submitter accepts new hazard reports.
type Submitter interface {
	Submit(ctx context.Context, draft domain.Draft, photo []byte) (submit.Result, error)
}

// SyncControl triggers sync passes and reports on the last one.
type SyncControl interface {
	Trigger()
	LastPass() (syncer.PassStats, bool)
}

// PendingStore is the spool view the API serves.
type PendingStore interface {
	List() []domain.Report
	Count() int
	Clear() error
}

// RemoteReader proxies list and triage calls to the hosted backend.
type RemoteReader interface {
	List(ctx context.Context, q remote.ListQuery) ([]remote.Row, error)
	UpdateStatus(ctx context.Context, id, status string) error
	Flag(ctx context.Context, id string) error
	Confirm(ctx context.Context, id string) error
}

// Connectivity gates the remote proxies and feeds the status endpoint.
type Connectivity interface {
	Online() bool
}

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// Deps bundles everything the local API serves.
type Deps struct {
	Submitter Submitter
	Sync      SyncControl
	Spool     PendingStore
	Remote    RemoteReader
	Conn      Connectivity
	Hub       *notify.Hub
	Geocoder  domain.Geocoder // nil disables place-name enrichment
	Ready     ReadinessChecker
	Logger    *slog.Logger
}

// Server exposes the relay's local HTTP API.
type Server struct {
	httpServer *http.Server
	router     *gin.Engine
	logger     *slog.Logger

	submitter Submitter
	sync      SyncControl
	spool     PendingStore
	remote    RemoteReader
	conn      Connectivity
	hub       *notify.Hub
	geocoder  domain.Geocoder
	ready     ReadinessChecker
	owner     string
	mirroring bool
}

// NewServer builds the router and wires every endpoint.
func NewServer(cfg *config.Config, deps Deps) *Server {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(deps.Logger))
	router.Use(cors.New(corsConfig(cfg.CORSAllowedOrigins)))

	s := &Server{
		httpServer: &http.Server{
			Addr:         cfg.HTTPAddr,
			Handler:      router,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		router:    router,
		logger:    deps.Logger,
		submitter: deps.Submitter,
		sync:      deps.Sync,
		spool:     deps.Spool,
		remote:    deps.Remote,
		conn:      deps.Conn,
		hub:       deps.Hub,
		geocoder:  deps.Geocoder,
		ready:     deps.Ready,
		owner:     cfg.OwnerID,
		mirroring: cfg.KafkaEnabled(),
	}

	router.GET("/healthz", s.handleHealth)
	router.GET("/readyz", s.handleReady)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.POST("/reports", s.handleSubmit)
		v1.GET("/reports", s.handleListRemote)
		v1.PATCH("/reports/:id/status", s.handleUpdateStatus)
		v1.POST("/reports/:id/flag", s.handleFlag)
		v1.POST("/reports/:id/confirm", s.handleConfirm)

		v1.GET("/pending", s.handleListPending)
		v1.GET("/pending/count", s.handlePendingCount)
		v1.DELETE("/pending", s.handleClearPending)

		v1.POST("/sync", s.handleSyncNow)
		v1.GET("/status", s.handleStatus)
		v1.GET("/events", s.handleEvents)
	}

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Content-Type"},
		MaxAge:       12 * time.Hour,
	}
	if len(origins) == 1 && origins[0] == "*" {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}
