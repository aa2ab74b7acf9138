// Package client is a typed client for the finboard REST API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"finboard/internal/core"
	"finboard/internal/log"
	"finboard/internal/session"
)

// DefaultTimeout bounds every request.
const DefaultTimeout = 15 * time.Second

const maxResponseBytes = 10 << 20

// Auth supplies the bearer token and is told when the server rejects it.
type Auth interface {
	Token() string
	Logout() error
}

var _ Auth = (*session.Gate)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithAuth attaches a token source.
func WithAuth(a Auth) Option {
	return func(c *Client) { c.auth = a }
}

// WithLogger sets the client's logger.
func WithLogger(logger *log.Logger) Option {
	return func(c *Client) { c.logger = logger.WithComponent(log.ComponentClient) }
}

// Client talks to one finboard server. It never retries.
type Client struct {
	base   *url.URL
	http   *http.Client
	auth   Auth
	logger *log.Logger
}

// New returns a client for the API rooted at baseURL, e.g.
// "http://localhost:8081".
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base url %q must be http or https", baseURL)
	}
	c := &Client{
		base: u,
		http: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = log.New(log.DefaultConfig()).WithComponent(log.ComponentClient)
	}
	return c, nil
}

// envelope mirrors the server's response body.
type envelope struct {
	Status     string            `json:"status"`
	Code       int               `json:"code"`
	Data       json.RawMessage   `json:"data"`
	TotalPages *int              `json:"totalPages"`
	TotalItems *int              `json:"totalItems"`
	Message    string            `json:"message"`
	Errors     []core.FieldError `json:"errors"`
	Token      string            `json:"token"`
	UserID     string            `json:"userId"`
}

// decodeData unmarshals the data member into out; a missing member leaves
// out untouched.
func (e *envelope) decodeData(out any) error {
	if out == nil || len(e.Data) == 0 || string(e.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(e.Data, out); err != nil {
		return fmt.Errorf("decode response data: %w", err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any) (*envelope, error) {
	u := c.base.JoinPath(path)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.auth != nil {
		if token := c.auth.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	res, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %s %s: %v", ErrNetwork, method, path, err)
	}
	defer res.Body.Close()

	c.logger.DebugContext(ctx, "API call",
		log.FieldMethod, method,
		log.FieldPath, path,
		log.FieldStatusCode, res.StatusCode,
		log.FieldDuration, time.Since(start).Milliseconds())

	raw, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrNetwork, err)
	}

	env := &envelope{}
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, env); err != nil && res.StatusCode < 300 {
			return nil, &APIError{StatusCode: res.StatusCode, Message: "malformed response body"}
		}
	}

	if res.StatusCode >= 200 && res.StatusCode < 300 {
		return env, nil
	}
	return nil, c.classify(ctx, res.StatusCode, env)
}

func (c *Client) classify(ctx context.Context, status int, env *envelope) error {
	switch status {
	case http.StatusBadRequest:
		return &ValidationError{Message: env.Message, Fields: env.Errors}
	case http.StatusUnauthorized:
		if c.auth != nil {
			if err := c.auth.Logout(); err != nil {
				c.logger.WarnContext(ctx, "Failed to clear session after 401", log.FieldError, err)
			}
		}
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	default:
		msg := env.Message
		if msg == "" {
			msg = http.StatusText(status)
		}
		return &APIError{StatusCode: status, Message: msg}
	}
}

// decodePage reads a paginated list. When the server reports only the page
// count the item total is estimated.
func decodePage[T any](env *envelope, req core.PageRequest) (core.Page[T], error) {
	var items []T
	if err := env.decodeData(&items); err != nil {
		return core.Page[T]{}, err
	}
	if items == nil {
		items = []T{}
	}
	req = req.Normalize()
	return core.Page[T]{
		Items:   items,
		Request: req,
		Info:    core.ResolveTotals(env.TotalItems, env.TotalPages, req.Limit),
	}, nil
}

func pageQuery(q url.Values, req core.PageRequest) url.Values {
	if q == nil {
		q = url.Values{}
	}
	req = req.Normalize()
	q.Set("page", strconv.Itoa(req.Page))
	q.Set("limit", strconv.Itoa(req.Limit))
	return q
}

func rangeQuery(q url.Values, r core.DateRange) url.Values {
	if !r.Start.IsZero() {
		q.Set("startDate", r.Start.String())
	}
	if !r.End.IsZero() {
		q.Set("endDate", r.End.String())
	}
	return q
}

// LoginResult is a successful sign in.
type LoginResult struct {
	Token  string
	UserID string
	User   core.User
}

// Login exchanges credentials for a token. The caller stores it in the gate.
func (c *Client) Login(ctx context.Context, email, password string) (LoginResult, error) {
	env, err := c.do(ctx, http.MethodPost, "/admin/login", nil, map[string]string{"email": email, "password": password})
	if err != nil {
		return LoginResult{}, err
	}
	var res LoginResult
	if err := env.decodeData(&res.User); err != nil {
		return LoginResult{}, err
	}
	res.Token = env.Token
	res.UserID = env.UserID
	if res.UserID == "" {
		res.UserID = res.User.ID
	}
	if res.Token == "" {
		return LoginResult{}, &APIError{StatusCode: http.StatusOK, Message: "login response carried no token"}
	}
	return res, nil
}

// Register creates an account.
func (c *Client) Register(ctx context.Context, name, email, password string) (core.User, error) {
	env, err := c.do(ctx, http.MethodPost, "/admin/register", nil, map[string]string{
		"name": name, "email": email, "password": password,
	})
	if err != nil {
		return core.User{}, err
	}
	var u core.User
	return u, env.decodeData(&u)
}

// ValidateToken checks a stored token against the server. It makes the
// client usable as a session validator.
func (c *Client) ValidateToken(ctx context.Context, token string) error {
	check := &Client{base: c.base, http: c.http, logger: c.logger, auth: staticToken(token)}
	_, err := check.do(ctx, http.MethodGet, "/admin/notes", nil, nil)
	if errors.Is(err, ErrUnauthorized) {
		return fmt.Errorf("%w: %w", session.ErrInvalidToken, err)
	}
	return err
}

// staticToken authenticates with a fixed token and ignores Logout.
type staticToken string

func (t staticToken) Token() string { return string(t) }
func (t staticToken) Logout() error { return nil }

func ownerQuery(ownerID string) url.Values {
	if ownerID == "" {
		return nil
	}
	return url.Values{"userId": {ownerID}}
}
