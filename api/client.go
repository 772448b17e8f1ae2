package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/warp/coverage-engine/calendar"
	"github.com/warp/coverage-engine/coverage"
	"github.com/warp/coverage-engine/progress"
	"github.com/warp/coverage-engine/store/sqlite"
)

// =============================================================================
// CLIENT - coverage.SyncAdapter and progress.LimitSource over HTTP
// =============================================================================

// Client talks to a running schedule service. A coverage.Grid built on it
// behaves as it would on the store directly.
type Client struct {
	baseURL string
	http    *http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the default client (10s timeout).
func WithHTTPClient(c *http.Client) ClientOption {
	return func(cl *Client) { cl.http = c }
}

func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// StatusError is a non-2xx response.
type StatusError struct {
	StatusCode int
	Message    string
	Details    string
}

func (e *StatusError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("http %d: %s: %s", e.StatusCode, e.Message, e.Details)
	}
	return fmt.Sprintf("http %d: %s", e.StatusCode, e.Message)
}

// Unwrap maps statuses back to the store's sentinel errors.
func (e *StatusError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusNotFound:
		return sqlite.ErrNotFound
	case http.StatusConflict:
		return sqlite.ErrInvalidReference
	case http.StatusBadRequest:
		return errBadRequest
	default:
		return nil
	}
}

// Load fetches a schedule window.
func (c *Client) Load(ctx context.Context, q coverage.DirectoryQuery) (coverage.Snapshot, error) {
	params := url.Values{}
	params.Set("start", q.Range.Start.String())
	params.Set("end", q.Range.End.String())

	var snap coverage.Snapshot
	path := fmt.Sprintf("/api/schedules/%d/directory?%s", q.ScheduleID, params.Encode())
	if err := c.do(ctx, http.MethodGet, path, nil, &snap); err != nil {
		return coverage.Snapshot{}, err
	}
	return snap, nil
}

// SetAssignment writes one cell. A missing RequestID is generated so
// transport retries stay idempotent.
func (c *Client) SetAssignment(ctx context.Context, req coverage.SetAssignmentRequest) error {
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}
	body := AssignmentRequest{
		RequestID: req.RequestID,
		Person:    req.Person,
		WeekStart: req.WeekStart,
		Project:   req.Project,
	}
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/api/schedules/%d/assignments", req.ScheduleID), body, nil)
}

// BulkSetAssignments writes a batch atomically.
func (c *Client) BulkSetAssignments(ctx context.Context, req coverage.BulkSetRequest) error {
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}
	body := BulkAssignmentRequest{RequestID: req.RequestID, Items: req.Items}
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/api/schedules/%d/assignments/bulk", req.ScheduleID), body, nil)
}

// LevelLimits fetches one limit table.
func (c *Client) LevelLimits(ctx context.Context, kind progress.LimitKind) ([]progress.LevelLimit, error) {
	var rows []progress.LevelLimit
	if err := c.do(ctx, http.MethodGet, "/api/limits/"+url.PathEscape(string(kind)), nil, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// Schedule fetches one schedule.
func (c *Client) Schedule(ctx context.Context, id coverage.ScheduleID) (ScheduleDTO, error) {
	var dto ScheduleDTO
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/schedules/%d", id), nil, &dto)
	return dto, err
}

// Bootstrap is everything a planner view needs on first paint.
type Bootstrap struct {
	Snapshot coverage.Snapshot
	Tenure   progress.LimitTable
	Cycle    progress.LimitTable
}

// Bootstrap fetches a window and both limit tables in parallel.
func (c *Client) Bootstrap(ctx context.Context, id coverage.ScheduleID, window calendar.Period) (Bootstrap, error) {
	var b Bootstrap
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		b.Snapshot, err = c.Load(gctx, coverage.DirectoryQuery{ScheduleID: id, Range: window})
		return err
	})
	g.Go(func() error {
		var err error
		b.Tenure, err = progress.LoadTable(gctx, c, progress.KindTenure)
		return err
	})
	g.Go(func() error {
		var err error
		b.Cycle, err = progress.LoadTable(gctx, c, progress.KindCycle)
		return err
	})
	if err := g.Wait(); err != nil {
		return Bootstrap{}, err
	}
	return b, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		se := &StatusError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		var er ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&er); err == nil && er.Error != "" {
			se.Message, se.Details = er.Error, er.Details
		}
		return se
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
