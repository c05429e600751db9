package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/oauth2"

	"github.com/kurihiro0119/worktime-metrics/internal/domain"
	"github.com/kurihiro0119/worktime-metrics/internal/payroll"
)

// Client is the API client for worktime-metrics
type Client struct {
	baseURL     string
	httpClient  *http.Client
	tokenSource oauth2.TokenSource
}

// Option configures a Client
type Option func(*Client)

// WithToken authenticates every request with a bearer token. It composes with
// WithHTTPClient in either order.
func WithToken(token string) Option {
	return func(c *Client) {
		if token == "" {
			return
		}
		c.tokenSource = oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
	}
}

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// NewClient creates a new API client
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.tokenSource != nil {
		authed := *c.httpClient
		authed.Transport = &oauth2.Transport{Source: c.tokenSource, Base: c.httpClient.Transport}
		c.httpClient = &authed
	}
	return c
}

// Query selects the reporting window of a request
type Query struct {
	Period string
	Start  string // YYYY-MM-DD
	End    string // YYYY-MM-DD
	Days   int
	Rate   *float64
}

func (q Query) values() url.Values {
	params := url.Values{}
	if q.Period != "" {
		params.Set("period", q.Period)
	}
	if q.Start != "" {
		params.Set("start", q.Start)
	}
	if q.End != "" {
		params.Set("end", q.End)
	}
	if q.Days > 0 {
		params.Set("days", strconv.Itoa(q.Days))
	}
	if q.Rate != nil {
		params.Set("rate", strconv.FormatFloat(*q.Rate, 'f', -1, 64))
	}
	return params
}

// APIError is a non-2xx response
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("API error %d: %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("API error %d: %s", e.StatusCode, e.Message)
}

// GetMembers lists members
func (c *Client) GetMembers(ctx context.Context) ([]*domain.Member, error) {
	var response struct {
		Data []*domain.Member `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/members", nil, nil, &response); err != nil {
		return nil, err
	}
	return response.Data, nil
}

// CreateMember creates or replaces a member
func (c *Client) CreateMember(ctx context.Context, m *domain.Member) (*domain.Member, error) {
	body := map[string]any{"id": m.ID, "name": m.Name, "email": m.Email, "hourly_rate": m.HourlyRate}
	var response struct {
		Data *domain.Member `json:"data"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/v1/members", nil, body, &response); err != nil {
		return nil, err
	}
	return response.Data, nil
}

// GetSummary retrieves a member's aggregate summary
func (c *Client) GetSummary(ctx context.Context, member string, q Query) (*domain.MemberSummary, error) {
	path := fmt.Sprintf("/api/v1/members/%s/summary", url.PathEscape(member))

	var response struct {
		Data *domain.MemberSummary `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, path, q.values(), nil, &response); err != nil {
		return nil, err
	}
	return response.Data, nil
}

// GetDaily retrieves a member's daily breakdown
func (c *Client) GetDaily(ctx context.Context, member string, q Query) (*domain.DailyReport, error) {
	path := fmt.Sprintf("/api/v1/members/%s/daily", url.PathEscape(member))

	var response struct {
		Data *domain.DailyReport `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, path, q.values(), nil, &response); err != nil {
		return nil, err
	}
	return response.Data, nil
}

// AddRecord stores a time record for a member. hours, when non-nil, overrides durationMs.
func (c *Client) AddRecord(ctx context.Context, member string, start time.Time, durationMs int64, hours *float64, category string) (*domain.TimeRecord, error) {
	path := fmt.Sprintf("/api/v1/members/%s/records", url.PathEscape(member))
	body := map[string]any{"start_time": start, "duration_ms": durationMs, "category": category}
	if hours != nil {
		body["hours"] = *hours
	}

	var response struct {
		Data *domain.TimeRecord `json:"data"`
	}
	if err := c.do(ctx, http.MethodPost, path, nil, body, &response); err != nil {
		return nil, err
	}
	return response.Data, nil
}

// SetRecordHours replaces a record's worked hours
func (c *Client) SetRecordHours(ctx context.Context, recordID string, hours float64) (*domain.TimeRecord, error) {
	path := fmt.Sprintf("/api/v1/records/%s/hours", url.PathEscape(recordID))

	var response struct {
		Data *domain.TimeRecord `json:"data"`
	}
	if err := c.do(ctx, http.MethodPatch, path, nil, map[string]any{"hours": hours}, &response); err != nil {
		return nil, err
	}
	return response.Data, nil
}

// GetPayroll retrieves one member's payroll projection
func (c *Client) GetPayroll(ctx context.Context, member string, q Query) (*payroll.Line, error) {
	path := fmt.Sprintf("/api/v1/members/%s/payroll", url.PathEscape(member))

	var response struct {
		Data *payroll.Line `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, path, q.values(), nil, &response); err != nil {
		return nil, err
	}
	return response.Data, nil
}

// GetAllPayroll retrieves payroll for every member
func (c *Client) GetAllPayroll(ctx context.Context, q Query) ([]*payroll.Line, error) {
	var response struct {
		Data []*payroll.Line `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/payroll", q.values(), nil, &response); err != nil {
		return nil, err
	}
	return response.Data, nil
}

// MarkPaid records a payment for the member's period
func (c *Client) MarkPaid(ctx context.Context, member string, q Query) (*domain.Payment, error) {
	path := fmt.Sprintf("/api/v1/members/%s/payments", url.PathEscape(member))

	var response struct {
		Data *domain.Payment `json:"data"`
	}
	if err := c.do(ctx, http.MethodPost, path, q.values(), nil, &response); err != nil {
		return nil, err
	}
	return response.Data, nil
}

// ExportPayrollCSV copies the payroll CSV export into w
func (c *Client) ExportPayrollCSV(ctx context.Context, q Query, w io.Writer) error {
	resp, err := c.send(ctx, http.MethodGet, "/api/v1/payroll/export.csv", q.values(), nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	_, err = io.Copy(w, resp.Body)
	return err
}

// HealthCheck checks if the API is healthy
func (c *Client) HealthCheck(ctx context.Context) error {
	var response struct {
		Status string `json:"status"`
	}
	if err := c.do(ctx, http.MethodGet, "/health", nil, nil, &response); err != nil {
		return err
	}
	if response.Status != "ok" {
		return fmt.Errorf("unhealthy status: %s", response.Status)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, params url.Values, body, result any) error {
	resp, err := c.send(ctx, method, path, params, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return json.NewDecoder(resp.Body).Decode(result)
}

// send performs the request and converts non-2xx responses into *APIError
func (c *Client) send(ctx context.Context, method, path string, params url.Values, body any) (*http.Response, error) {
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return nil, err
	}
	if len(params) > 0 {
		u.RawQuery = params.Encode()
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		raw, _ := io.ReadAll(resp.Body)
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: string(raw)}
		var envelope struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.Unmarshal(raw, &envelope) == nil && envelope.Error.Code != "" {
			apiErr.Code = envelope.Error.Code
			apiErr.Message = envelope.Error.Message
		}
		return nil, apiErr
	}
	return resp, nil
}
