package httpapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/seamark/hazard-relay/internal/domain"
	"github.com/seamark/hazard-relay/internal/notify"
	"github.com/seamark/hazard-relay/internal/remote"
	"github.com/seamark/hazard-relay/internal/spool"
	"github.com/seamark/hazard-relay/internal/submit"
	"github.com/seamark/hazard-relay/internal/syncer"
)

// maxPhotoBytes caps the attachment size accepted by the submit endpoint.
// Anything larger is rejected before the photo pipeline sees it.
const maxPhotoBytes = 10 << 20

const defaultListLimit = 100

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func (s *Server) handleReady(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := s.ready.CheckReadiness(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"error":  err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// handleSubmit accepts a hazard report from the chart-plotter UI. The body is
// either a JSON draft or a multipart form with a photo attachment. A queued
// report answers 202, a live submission 201.
func (s *Server) handleSubmit(c *gin.Context) {
	draft, photo, err := parseSubmission(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := s.submitter.Submit(c.Request.Context(), draft, photo)
	switch {
	case err == nil:
		if result.Queued {
			c.JSON(http.StatusAccepted, result)
			return
		}
		c.JSON(http.StatusCreated, result)
	case errors.Is(err, submit.ErrInvalid):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, spool.ErrFull):
		c.JSON(http.StatusInsufficientStorage, gin.H{"error": err.Error()})
	case errors.Is(err, submit.ErrRejected):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		s.logger.Error("submit failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func parseSubmission(c *gin.Context) (domain.Draft, []byte, error) {
	if c.ContentType() == "multipart/form-data" {
		return parseMultipartSubmission(c)
	}

	var draft domain.Draft
	if err := c.ShouldBindJSON(&draft); err != nil {
		return domain.Draft{}, nil, fmt.Errorf("parse body: %w", err)
	}
	return draft, nil, nil
}

func parseMultipartSubmission(c *gin.Context) (domain.Draft, []byte, error) {
	severity, err := strconv.Atoi(c.PostForm("severity"))
	if err != nil {
		return domain.Draft{}, nil, errors.New("severity must be an integer")
	}
	lat, err := strconv.ParseFloat(c.PostForm("lat"), 64)
	if err != nil {
		return domain.Draft{}, nil, errors.New("lat must be a number")
	}
	lng, err := strconv.ParseFloat(c.PostForm("lng"), 64)
	if err != nil {
		return domain.Draft{}, nil, errors.New("lng must be a number")
	}

	draft := domain.Draft{
		Type:     c.PostForm("type"),
		Severity: severity,
		Lat:      lat,
		Lng:      lng,
		Notes:    c.PostForm("notes"),
	}

	header, err := c.FormFile("photo")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return draft, nil, nil
		}
		return domain.Draft{}, nil, fmt.Errorf("read photo: %w", err)
	}
	if header.Size > maxPhotoBytes {
		return domain.Draft{}, nil, fmt.Errorf("photo exceeds %d byte limit", maxPhotoBytes)
	}

	file, err := header.Open()
	if err != nil {
		return domain.Draft{}, nil, fmt.Errorf("open photo: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxPhotoBytes+1))
	if err != nil {
		return domain.Draft{}, nil, fmt.Errorf("read photo: %w", err)
	}
	if len(data) > maxPhotoBytes {
		return domain.Draft{}, nil, fmt.Errorf("photo exceeds %d byte limit", maxPhotoBytes)
	}
	return draft, data, nil
}

// handleListRemote proxies the hosted backend's report feed. It exists so the
// chart-plotter UI has a single origin to talk to; there is nothing to serve
// while the boat is offline.
func (s *Server) handleListRemote(c *gin.Context) {
	if !s.conn.Online() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "backend offline"})
		return
	}

	q, err := parseListQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rows, err := s.remote.List(c.Request.Context(), q)
	if err != nil {
		s.logger.Error("remote list failed", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, rows)
}

func parseListQuery(c *gin.Context) (remote.ListQuery, error) {
	q := remote.ListQuery{Limit: defaultListLimit}

	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return q, errors.New("limit must be a positive integer")
		}
		q.Limit = n
	}
	if v := c.Query("type"); v != "" {
		if !domain.ValidHazardType(v) {
			return q, fmt.Errorf("unknown hazard type %q", v)
		}
		q.Type = strings.ToLower(strings.TrimSpace(v))
	}
	if v := c.Query("status"); v != "" {
		if !domain.ValidRemoteStatus(v) {
			return q, fmt.Errorf("unknown status %q", v)
		}
		q.Status = strings.ToLower(strings.TrimSpace(v))
	}
	if raw := c.Query("min_severity"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < domain.SeverityMin || n > domain.SeverityMax {
			return q, fmt.Errorf("min_severity must be an integer in [%d,%d]", domain.SeverityMin, domain.SeverityMax)
		}
		q.MinSeverity = n
	}
	return q, nil
}

func (s *Server) handleUpdateStatus(c *gin.Context) {
	var body struct {
		Status string `json:"status"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("parse body: %v", err)})
		return
	}

	status := strings.ToLower(strings.TrimSpace(body.Status))
	if !domain.ValidRemoteStatus(status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown status %q", body.Status)})
		return
	}

	s.proxyTriage(c, func(ctx context.Context, id string) error {
		return s.remote.UpdateStatus(ctx, id, status)
	})
}

func (s *Server) handleFlag(c *gin.Context) {
	s.proxyTriage(c, s.remote.Flag)
}

func (s *Server) handleConfirm(c *gin.Context) {
	s.proxyTriage(c, s.remote.Confirm)
}

// proxyTriage forwards a per-report moderation call to the hosted backend.
// Triage is online-only; nothing about it touches the spool.
func (s *Server) proxyTriage(c *gin.Context, call func(ctx context.Context, id string) error) {
	if !s.conn.Online() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "backend offline"})
		return
	}

	if err := call(c.Request.Context(), c.Param("id")); err != nil {
		s.logger.Error("remote update failed", "report_id", c.Param("id"), "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleListPending(c *gin.Context) {
	reports := s.spool.List()

	if c.Query("format") == "geojson" {
		c.JSON(http.StatusOK, domain.FeatureCollection(reports))
		return
	}
	c.JSON(http.StatusOK, domain.AnnotateReports(c.Request.Context(), reports, s.geocoder, s.logger))
}

func (s *Server) handlePendingCount(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"count": s.spool.Count()})
}

func (s *Server) handleClearPending(c *gin.Context) {
	if err := s.spool.Clear(); err != nil {
		s.logger.Error("clearing spool failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	s.logger.Info("pending spool cleared")
	c.Status(http.StatusNoContent)
}

func (s *Server) handleSyncNow(c *gin.Context) {
	s.sync.Trigger()
	c.JSON(http.StatusAccepted, gin.H{"status": "sync requested"})
}

type statusResponse struct {
	Online       bool              `json:"online"`
	Pending      int               `json:"pending"`
	OwnerID      string            `json:"owner_id"`
	EventClients int               `json:"event_clients"`
	Geocoding    bool              `json:"geocoding"`
	Mirror       bool              `json:"mirror"`
	LastPass     *syncer.PassStats `json:"last_pass,omitempty"`
}

func (s *Server) handleStatus(c *gin.Context) {
	resp := statusResponse{
		Online:    s.conn.Online(),
		Pending:   s.spool.Count(),
		OwnerID:   s.owner,
		Geocoding: s.geocoder != nil,
		Mirror:    s.mirroring,
	}
	resp.EventClients, _ = s.hub.Stats()
	if last, ok := s.sync.LastPass(); ok {
		resp.LastPass = &last
	}
	c.JSON(http.StatusOK, resp)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The relay only ever serves the UI on the boat's own network.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleEvents upgrades the connection and subscribes it to the notification
// hub. The UI uses the stream to surface queue/sync toasts without polling.
func (s *Server) handleEvents(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	client := notify.NewClient(s.hub, conn)
	s.hub.Register <- client

	go client.WritePump()
	go client.ReadPump()
}
