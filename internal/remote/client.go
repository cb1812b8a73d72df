// Package remote is the client for the hosted hazard-reports backend: a
// PostgREST-style REST API over the reports table plus an object-store
// endpoint for photos.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/seamark/hazard-relay/internal/domain"
)

// Config carries the connection settings for the hosted backend.
type Config struct {
	BaseURL string        // e.g. https://abc123.supabase.co
	APIKey  string        // service key sent as apikey + bearer token
	Table   string        // reports table name, e.g. "hazard_reports"
	Bucket  string        // photo bucket name, e.g. "hazard-photos"
	Timeout time.Duration // per-request timeout
}

// Client talks to the hosted backend. All methods return an error on any
// transport failure or non-2xx response; callers decide whether that means
// retain-and-retry or report-and-fail.
type Client struct {
	baseURL    string
	apiKey     string
	table      string
	bucket     string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a hosted-backend client.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		table:   cfg.Table,
		bucket:  cfg.Bucket,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger,
	}
}

// Row mirrors one row of the hosted reports table. CreatedAt and ID are
// server-assigned; inserts leave them unset.
type Row struct {
	ID        string     `json:"id,omitempty"`
	OwnerID   string     `json:"owner_id"`
	Type      string     `json:"type"`
	Severity  int        `json:"severity"`
	Lat       float64    `json:"lat"`
	Lng       float64    `json:"lng"`
	Notes     string     `json:"notes"`
	PhotoURL  *string    `json:"photo_url"` // null when the report has no photo
	Status    string     `json:"status"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

// NewRow builds the insert row for a spooled report. photoURL stays nil when
// the photo is absent or its upload failed; the column is explicitly null in
// that case, never omitted.
func NewRow(report domain.Report, owner string, photoURL *string) Row {
	return Row{
		OwnerID:  owner,
		Type:     report.Type,
		Severity: report.Severity,
		Lat:      report.Lat,
		Lng:      report.Lng,
		Notes:    report.Notes,
		PhotoURL: photoURL,
		Status:   domain.StatusPending,
	}
}

// Ping probes the REST root. Any response, including an auth rejection,
// proves the backend is reachable; only transport failures and 5xx count as
// offline.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/rest/v1/", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("ping: backend unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

// Insert writes one row and returns the stored row with its server-assigned
// ID and timestamp.
func (c *Client) Insert(ctx context.Context, row Row) (Row, error) {
	body, err := json.Marshal(row)
	if err != nil {
		return Row{}, fmt.Errorf("encode row: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tableURL(nil), bytes.NewReader(body))
	if err != nil {
		return Row{}, fmt.Errorf("create request: %w", err)
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "return=representation")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Row{}, fmt.Errorf("insert report: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(resp.Body)
		return Row{}, fmt.Errorf("insert report: status %d: %s", resp.StatusCode, payload)
	}

	var rows []Row
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return Row{}, fmt.Errorf("decode insert response: %w", err)
	}
	if len(rows) == 0 {
		return Row{}, fmt.Errorf("insert report: empty representation")
	}
	return rows[0], nil
}

// ListQuery narrows a List call. Zero values mean no filter.
type ListQuery struct {
	Type        string // exact hazard type
	MinSeverity int    // inclusive lower bound, 0 disables
	Status      string // triage status
	Limit       int    // max rows; <= 0 fetches the backend default page
}

// List fetches the most recent rows matching q, newest first.
func (c *Client) List(ctx context.Context, q ListQuery) ([]Row, error) {
	params := url.Values{
		"select": {"*"},
		"order":  {"created_at.desc"},
	}
	if q.Type != "" {
		params.Set("type", "eq."+q.Type)
	}
	if q.MinSeverity > 0 {
		params.Set("severity", "gte."+strconv.Itoa(q.MinSeverity))
	}
	if q.Status != "" {
		params.Set("status", "eq."+q.Status)
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.tableURL(params), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("list reports: status %d: %s", resp.StatusCode, payload)
	}

	var rows []Row
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode list response: %w", err)
	}
	return rows, nil
}

// UpdateStatus moves a row to a new triage status.
func (c *Client) UpdateStatus(ctx context.Context, id, status string) error {
	body, err := json.Marshal(map[string]string{"status": status})
	if err != nil {
		return fmt.Errorf("encode status: %w", err)
	}

	params := url.Values{"id": {"eq." + id}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, c.tableURL(params), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "return=minimal")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("update status: status %d", resp.StatusCode)
	}
	return nil
}

// Flag marks a row as disputed by another mariner.
func (c *Client) Flag(ctx context.Context, id string) error {
	return c.callRPC(ctx, "flag_report", id)
}

// Confirm records another mariner corroborating a row.
func (c *Client) Confirm(ctx context.Context, id string) error {
	return c.callRPC(ctx, "confirm_report", id)
}

// callRPC invokes a stored procedure that adjusts a report's community
// counters server-side.
func (c *Client) callRPC(ctx context.Context, fn, id string) error {
	body, err := json.Marshal(map[string]string{"report_id": id})
	if err != nil {
		return fmt.Errorf("encode rpc args: %w", err)
	}

	u := fmt.Sprintf("%s/rest/v1/rpc/%s", c.baseURL, fn)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", fn, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("%s: status %d", fn, resp.StatusCode)
	}
	return nil
}

// UploadPhoto stores photo bytes under key in the photo bucket and returns
// the public URL of the object.
func (c *Client) UploadPhoto(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	u := fmt.Sprintf("%s/storage/v1/object/%s/%s", c.baseURL, c.bucket, key)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload photo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		payload, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("upload photo: status %d: %s", resp.StatusCode, payload)
	}
	io.Copy(io.Discard, resp.Body)

	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", c.baseURL, c.bucket, key), nil
}

func (c *Client) tableURL(params url.Values) string {
	u := fmt.Sprintf("%s/rest/v1/%s", c.baseURL, c.table)
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	return u
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
}
