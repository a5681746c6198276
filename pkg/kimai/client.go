package kimai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	kerrors "github.com/harrisonrobin/kimai-report/pkg/errors"
	"github.com/harrisonrobin/kimai-report/pkg/retry"
)

const serviceName = "kimai"

// HTTPClient abstracts HTTP calls for testing.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to the Kimai JSON API.
type Client struct {
	baseURL    string
	httpClient HTTPClient
	location   *time.Location
	retry      retry.Config
	logger     zerolog.Logger
}

// NewClient creates a Kimai client. httpClient must already authenticate
// its requests (see auth.GetClient). Times sent to Kimai are rendered in loc.
func NewClient(baseURL string, httpClient HTTPClient, loc *time.Location, logger zerolog.Logger) *Client {
	if loc == nil {
		loc = time.Local
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
		location:   loc,
		retry:      retry.DefaultConfig(),
		logger:     logger.With().Str("component", "kimai").Logger(),
	}
}

// SetRetryConfig overrides the backoff used for reads.
func (c *Client) SetRetryConfig(cfg retry.Config) {
	c.retry = cfg
}

// Fetch returns the timesheet with the given id. A missing record yields an
// error wrapping errors.ErrNotFound.
func (c *Client) Fetch(ctx context.Context, id int) (*Timesheet, error) {
	var resp timesheetResponse
	err := retry.Do(ctx, c.retry, func(ctx context.Context) error {
		return c.do(ctx, http.MethodGet, "/api/timesheets/"+strconv.Itoa(id), nil, &resp)
	})
	if err != nil {
		return nil, fmt.Errorf("fetching timesheet %d: %w", id, err)
	}
	return resp.timesheet()
}

// Log stores ts in Kimai. A zero ID creates a new record, any other ID
// updates the existing one. The stored record is returned. Writes are not
// retried since a timed out create may still have been applied. Kimai takes
// tags as one comma separated field, so a tag containing a comma is rejected.
func (c *Client) Log(ctx context.Context, ts Timesheet) (*Timesheet, error) {
	for _, tag := range ts.Tags {
		if strings.Contains(tag, ",") {
			return nil, fmt.Errorf("tag %q contains a comma: %w", tag, kerrors.ErrInvalidInput)
		}
	}
	body, err := json.Marshal(newTimesheetRequest(ts, c.location))
	if err != nil {
		return nil, fmt.Errorf("encoding timesheet: %w", err)
	}

	method, path := http.MethodPost, "/api/timesheets"
	if ts.ID != 0 {
		method, path = http.MethodPatch, "/api/timesheets/"+strconv.Itoa(ts.ID)
	}

	var resp timesheetResponse
	if err := c.do(ctx, method, path, body, &resp); err != nil {
		return nil, fmt.Errorf("logging timesheet: %w", err)
	}
	c.logger.Debug().Int("id", resp.ID).Str("method", method).Msg("timesheet logged")
	return resp.timesheet()
}

// do executes a JSON API request and decodes the response into v.
func (c *Client) do(ctx context.Context, method, path string, body []byte, v interface{}) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	c.logger.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("took", time.Since(start)).
		Msg("kimai request")

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return kerrors.NewAPIError(serviceName, resp.StatusCode, errorMessage(respBody))
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// errorMessage extracts the message of a Kimai error body, falling back to
// the raw body.
func errorMessage(body []byte) string {
	var apiErr struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Message != "" {
		return apiErr.Message
	}
	return strings.TrimSpace(string(body))
}
