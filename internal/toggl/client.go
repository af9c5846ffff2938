// Package toggl is the gateway to the time-tracking service's REST API.
// It never retries; every failure is returned as a typed error so the
// reconciliation loop can decide whether to try again on its next tick.
package toggl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"branch-tracker/internal/domain"
	"branch-tracker/internal/errors"
	"branch-tracker/internal/logging"
	"branch-tracker/internal/validation"
)

const serviceName = "toggl"

// DefaultURL is the v9 API root.
const DefaultURL = "https://api.track.toggl.com/api/v9"

// CreatedWith identifies this client on every created entry.
const CreatedWith = "bt"

// Options configures a Client.
type Options struct {
	APIToken      string
	WorkspaceID   int64
	BaseURL       string
	Timeout       time.Duration
	RatePerSecond float64
	Now           func() time.Time
}

// Client is a rate-limited Toggl v9 client bound to one workspace.
type Client struct {
	token       string
	workspaceID int64
	baseURL     string
	httpClient  *http.Client
	limiter     *rate.Limiter
	validator   *validation.Validator
	now         func() time.Time
}

// NewClient creates a client from opts, filling defaults for zero values.
func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	limit := rate.Inf
	if opts.RatePerSecond > 0 {
		limit = rate.Limit(opts.RatePerSecond)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Client{
		token:       opts.APIToken,
		workspaceID: opts.WorkspaceID,
		baseURL:     opts.BaseURL,
		httpClient:  &http.Client{Timeout: opts.Timeout},
		limiter:     rate.NewLimiter(limit, 2),
		validator:   validation.NewValidator(),
		now:         opts.Now,
	}
}

// WorkspaceID returns the workspace new entries are created in.
func (c *Client) WorkspaceID() int64 {
	return c.workspaceID
}

// CurrentEntry returns the running entry, or nil when nothing is running.
func (c *Client) CurrentEntry(ctx context.Context) (*domain.TimeEntry, error) {
	var payload *timeEntryPayload
	if err := c.do(ctx, "get current entry", http.MethodGet, "/me/time_entries/current", nil, &payload); err != nil {
		return nil, err
	}
	if payload == nil || payload.ID == 0 {
		return nil, nil
	}
	entry := payload.toDomain()
	return &entry, nil
}

// ListRecent returns entries that started within the last daysBack days.
func (c *Client) ListRecent(ctx context.Context, daysBack int) ([]domain.TimeEntry, error) {
	if daysBack <= 0 {
		daysBack = 1
	}
	end := c.now().UTC()
	start := end.AddDate(0, 0, -daysBack)

	q := url.Values{}
	q.Set("start_date", start.Format(time.RFC3339))
	// end_date is exclusive; push it past now so an entry started this second is included
	q.Set("end_date", end.Add(time.Minute).Format(time.RFC3339))

	var payloads []timeEntryPayload
	if err := c.do(ctx, "list entries", http.MethodGet, "/me/time_entries?"+q.Encode(), nil, &payloads); err != nil {
		return nil, err
	}

	entries := make([]domain.TimeEntry, 0, len(payloads))
	for _, p := range payloads {
		entries = append(entries, p.toDomain())
	}
	return entries, nil
}

// Create starts a new running entry.
func (c *Client) Create(ctx context.Context, entry domain.NewEntry) (*domain.TimeEntry, error) {
	if entry.WorkspaceID == 0 {
		entry.WorkspaceID = c.workspaceID
	}
	if entry.Start.IsZero() {
		entry.Start = c.now()
	}
	if err := c.validator.ValidateNewEntry(entry); err != nil {
		return nil, errors.NewValidationError("refusing to create entry", err)
	}

	body := createPayload{
		Description: entry.Description,
		WorkspaceID: entry.WorkspaceID,
		ProjectID:   entry.ProjectID,
		Tags:        entry.Tags,
		Billable:    entry.Billable,
		Start:       entry.Start.UTC().Format(time.RFC3339),
		Duration:    domain.RunningDuration,
		CreatedWith: CreatedWith,
	}

	var created timeEntryPayload
	path := fmt.Sprintf("/workspaces/%d/time_entries", entry.WorkspaceID)
	if err := c.do(ctx, "create entry", http.MethodPost, path, body, &created); err != nil {
		return nil, err
	}
	result := created.toDomain()
	logging.Debugf("created entry %d %q", result.ID, result.Description)
	return &result, nil
}

// SetRunning reopens a stopped entry, keeping its original start.
func (c *Client) SetRunning(ctx context.Context, entry domain.TimeEntry) (*domain.TimeEntry, error) {
	if err := c.validator.ValidateEntryID(entry.ID); err != nil {
		return nil, errors.NewValidationError("refusing to continue entry", err)
	}
	wid := entry.WorkspaceID
	if wid == 0 {
		wid = c.workspaceID
	}

	body := updatePayload{
		Start:    entry.Start.UTC().Format(time.RFC3339),
		Stop:     nil,
		Duration: domain.RunningDuration,
	}

	var updated timeEntryPayload
	path := fmt.Sprintf("/workspaces/%d/time_entries/%d", wid, entry.ID)
	if err := c.do(ctx, "continue entry", http.MethodPut, path, body, &updated); err != nil {
		return nil, err
	}
	result := updated.toDomain()
	logging.Debugf("continued entry %d %q", result.ID, result.Description)
	return &result, nil
}

// Stop stops a running entry in workspaceID, or in the configured workspace
// when workspaceID is zero.
func (c *Client) Stop(ctx context.Context, workspaceID, entryID int64) error {
	if err := c.validator.ValidateEntryID(entryID); err != nil {
		return errors.NewValidationError("refusing to stop entry", err)
	}
	if workspaceID == 0 {
		workspaceID = c.workspaceID
	}
	path := fmt.Sprintf("/workspaces/%d/time_entries/%d/stop", workspaceID, entryID)
	if err := c.do(ctx, "stop entry", http.MethodPatch, path, nil, nil); err != nil {
		return err
	}
	logging.Debugf("stopped entry %d", entryID)
	return nil
}

func (c *Client) do(ctx context.Context, operation, method, path string, body, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return errors.NewTimeoutError(operation, err)
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return errors.WrapError(err, errors.ErrorTypeValidation, "failed to encode request")
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return errors.NewNetworkError(serviceName, operation, err)
	}
	req.SetBasicAuth(c.token, "api_token")
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return errors.NewTimeoutError(operation, ctx.Err())
		}
		return errors.NewNetworkError(serviceName, operation, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.NewNetworkError(serviceName, operation, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errors.NewRemoteError(serviceName, operation, resp.StatusCode, string(bytes.TrimSpace(respBody)))
	}

	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return errors.NewRemoteError(serviceName, operation, resp.StatusCode, fmt.Sprintf("malformed response: %v", err))
	}
	return nil
}
