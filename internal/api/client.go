package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/five82/rollcall/internal/ledger"
	"github.com/five82/rollcall/internal/period"
)

// AttendanceService is the attendance backend as the session sees it.
// *Client implements it; tests substitute fakes.
type AttendanceService interface {
	FetchPeriods(ctx context.Context) ([]period.Period, error)
	FetchToday(ctx context.Context) ([]ledger.MarkRecord, error)
	FetchStats(ctx context.Context, query StatsQuery) (Stats, error)
	MarkAttendance(ctx context.Context, req MarkRequest) (MarkResponse, error)
}

// Ensure Client implements AttendanceService at compile time.
var _ AttendanceService = (*Client)(nil)

// Client talks to the attendance backend and, optionally, the face service.
type Client struct {
	baseURL   *url.URL
	faceURL   *url.URL
	http      *http.Client
	userAgent string

	mu    sync.RWMutex
	token string
}

const (
	defaultAPIURL    = "127.0.0.1:8080"
	defaultUserAgent = "rollcall/0.1"
	requestTimeout   = 10 * time.Second
	maxErrorBody     = 64 * 1024
)

// NewClient builds a Client for apiURL. faceURL may be empty when the face
// service health indicator is not wanted.
func NewClient(apiURL, faceURL string) (*Client, error) {
	base, err := parseBaseURL(apiURL, defaultAPIURL)
	if err != nil {
		return nil, err
	}
	c := &Client{
		baseURL:   base,
		http:      &http.Client{Timeout: requestTimeout},
		userAgent: defaultUserAgent,
	}
	if strings.TrimSpace(faceURL) != "" {
		face, err := parseBaseURL(faceURL, "")
		if err != nil {
			return nil, err
		}
		c.faceURL = face
	}
	return c, nil
}

// SetToken installs the bearer token sent with every request.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = strings.TrimSpace(token)
	c.mu.Unlock()
}

// Token returns the current bearer token.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// TokenExpiry reads the exp claim of the current token without verifying the
// signature; the server remains the authority. ok is false when the token is
// missing, opaque, or carries no exp.
func (c *Client) TokenExpiry() (time.Time, bool) {
	return tokenExpiry(c.Token())
}

// TokenExpired reports whether the current token's exp is at or before now.
func (c *Client) TokenExpired(now time.Time) bool {
	exp, ok := c.TokenExpiry()
	if !ok {
		return c.Token() == ""
	}
	return !now.Before(exp)
}

// Login exchanges credentials for a token and installs it.
func (c *Client) Login(ctx context.Context, username, password string) (LoginResult, error) {
	if c == nil {
		return LoginResult{}, fmt.Errorf("client is nil")
	}
	var payload envelope[LoginResult]
	req := LoginRequest{Username: username, Password: password}
	if err := c.do(ctx, http.MethodPost, "/api/auth/signin", req, &payload); err != nil {
		return LoginResult{}, err
	}
	if !payload.Success || payload.Data.AccessToken == "" {
		return LoginResult{}, &Error{Status: http.StatusUnauthorized, Path: "/api/auth/signin", Message: payload.Message}
	}
	c.SetToken(payload.Data.AccessToken)
	return payload.Data, nil
}

// FetchPeriods retrieves today's timetable in server order.
func (c *Client) FetchPeriods(ctx context.Context) ([]period.Period, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	dtos, err := getData[[]PeriodDTO](ctx, c, &url.URL{Path: "/api/attendance/periods"})
	if err != nil {
		return nil, err
	}
	periods := make([]period.Period, 0, len(dtos))
	for _, dto := range dtos {
		p, err := dto.ToPeriod()
		if err != nil {
			return nil, fmt.Errorf("decode periods: %w", err)
		}
		periods = append(periods, p)
	}
	return periods, nil
}

// FetchToday retrieves the signed-in user's marks for today.
func (c *Client) FetchToday(ctx context.Context) ([]ledger.MarkRecord, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	dtos, err := getData[[]RecordDTO](ctx, c, &url.URL{Path: "/api/attendance/today"})
	if err != nil {
		return nil, err
	}
	records := make([]ledger.MarkRecord, 0, len(dtos))
	for _, dto := range dtos {
		records = append(records, dto.ToRecord())
	}
	return records, nil
}

// FetchStats retrieves attendance statistics for the query window.
func (c *Client) FetchStats(ctx context.Context, query StatsQuery) (Stats, error) {
	if c == nil {
		return Stats{}, fmt.Errorf("client is nil")
	}
	values := url.Values{}
	if !query.Start.IsZero() {
		values.Set("startDate", query.Start.Format(time.DateOnly))
	}
	if !query.End.IsZero() {
		values.Set("endDate", query.End.Format(time.DateOnly))
	}
	return getData[Stats](ctx, c, &url.URL{Path: "/api/attendance/stats", RawQuery: values.Encode()})
}

// MarkAttendance submits one capture. A decoded reply is returned even when
// Success is false; only transport failures and non-2xx replies are errors.
func (c *Client) MarkAttendance(ctx context.Context, req MarkRequest) (MarkResponse, error) {
	if c == nil {
		return MarkResponse{}, fmt.Errorf("client is nil")
	}
	var payload MarkResponse
	if err := c.do(ctx, http.MethodPost, "/api/attendance/mark", req, &payload); err != nil {
		return MarkResponse{}, err
	}
	return payload, nil
}

// FaceHealth probes the face recognition service.
func (c *Client) FaceHealth(ctx context.Context) (FaceHealth, error) {
	if c == nil {
		return FaceHealth{}, fmt.Errorf("client is nil")
	}
	if c.faceURL == nil {
		return FaceHealth{}, fmt.Errorf("face service url not configured")
	}
	var payload FaceHealth
	if err := c.doURL(ctx, c.faceURL, http.MethodGet, &url.URL{Path: "/health"}, nil, &payload); err != nil {
		return FaceHealth{}, err
	}
	return payload, nil
}

// getData unwraps a GET envelope; success=false becomes an *Error.
func getData[T any](ctx context.Context, c *Client, rel *url.URL) (T, error) {
	var payload envelope[T]
	if err := c.doURL(ctx, c.baseURL, http.MethodGet, rel, nil, &payload); err != nil {
		var zero T
		return zero, err
	}
	if !payload.Success {
		var zero T
		return zero, &Error{Status: http.StatusOK, Path: rel.Path, Message: payload.Message}
	}
	return payload.Data, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, dest any) error {
	return c.doURL(ctx, c.baseURL, method, &url.URL{Path: path}, body, dest)
}

func (c *Client) doURL(ctx context.Context, base *url.URL, method string, rel *url.URL, body, dest any) error {
	reqURL := base.ResolveReference(rel)

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &Error{Status: resp.StatusCode, Path: rel.Path, Message: decodeErrorMessage(raw)}
	}
	if dest == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func parseBaseURL(raw, fallback string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		trimmed = fallback
	}
	if trimmed == "" {
		return nil, fmt.Errorf("base url is empty")
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse base url %q: %w", raw, err)
	}
	u.Path = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}

func tokenExpiry(token string) (time.Time, bool) {
	if token == "" {
		return time.Time{}, false
	}
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}
