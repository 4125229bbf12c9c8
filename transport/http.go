package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/platemarket/sessioncore"
)

// TokenSource supplies the current access credential for bearer
// attachment. Absent means the request goes out unauthenticated.
type TokenSource func(ctx context.Context) (string, bool)

// Client speaks the marketplace auth API. It implements
// [sessioncore.Transport].
type Client struct {
	baseURL  string
	http     *http.Client
	token    TokenSource
	validate *validator.Validate
	logger   zerolog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client. Timeouts and retry
// policy live on that client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// WithTokenSource supplies the access credential for authenticated
// endpoints (logout, profile).
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.token = ts }
}

// WithLogger supplies a structured logger. Defaults to zerolog.Nop().
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// NewClient creates a Client for the given API base URL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     &http.Client{Timeout: 15 * time.Second},
		validate: validator.New(),
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type loginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type authResponse struct {
	AccessToken  string                  `json:"access_token"`
	RefreshToken string                  `json:"refresh_token"`
	User         *sessioncore.UserRecord `json:"user,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Login implements [sessioncore.Transport]. Credentials are validated
// locally before the request goes out; a validation failure is a
// client-class error without a network round trip.
func (c *Client) Login(ctx context.Context, creds sessioncore.Credentials) (*sessioncore.LoginResult, error) {
	if err := c.validate.Struct(creds); err != nil {
		return nil, &sessioncore.TransportError{
			Class: sessioncore.ClassClient,
			Err:   fmt.Errorf("%w: %w", sessioncore.ErrInvalidCredentials, err),
		}
	}

	var res authResponse
	err := c.post(ctx, "/auth/login", loginRequest{
		Identifier: creds.Identifier,
		Password:   creds.Password,
	}, &res, false)
	if err != nil {
		return nil, err
	}

	if res.AccessToken == "" || res.User == nil {
		return nil, &sessioncore.TransportError{
			Class: sessioncore.ClassServer,
			Err:   fmt.Errorf("login response missing token or user"),
		}
	}

	return &sessioncore.LoginResult{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		User:         *res.User,
	}, nil
}

// Refresh implements [sessioncore.Transport]. The refresh token is
// single-use; the server rotates both tokens on success.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*sessioncore.RefreshResult, error) {
	var res authResponse
	err := c.post(ctx, "/auth/refresh", refreshRequest{RefreshToken: refreshToken}, &res, false)
	if err != nil {
		return nil, err
	}

	if res.AccessToken == "" || res.RefreshToken == "" {
		return nil, &sessioncore.TransportError{
			Class: sessioncore.ClassServer,
			Err:   fmt.Errorf("refresh response missing tokens"),
		}
	}

	return &sessioncore.RefreshResult{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
	}, nil
}

// Logout implements [sessioncore.Transport]. Best-effort by contract: the
// engine ignores the error beyond logging it.
func (c *Client) Logout(ctx context.Context) error {
	return c.post(ctx, "/auth/logout", struct{}{}, nil, true)
}

// FetchProfile implements [sessioncore.Transport].
func (c *Client) FetchProfile(ctx context.Context) (*sessioncore.UserRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/auth/profile", nil)
	if err != nil {
		return nil, &sessioncore.TransportError{Class: sessioncore.ClassClient, Err: err}
	}
	c.attachBearer(ctx, req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &sessioncore.TransportError{Class: sessioncore.ClassNetwork, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.statusError(resp)
	}

	var user sessioncore.UserRecord
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&user); err != nil {
		return nil, &sessioncore.TransportError{Class: sessioncore.ClassServer, Err: fmt.Errorf("decode profile: %w", err)}
	}
	return &user, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any, bearer bool) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return &sessioncore.TransportError{Class: sessioncore.ClassClient, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return &sessioncore.TransportError{Class: sessioncore.ClassClient, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if bearer {
		c.attachBearer(ctx, req)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &sessioncore.TransportError{Class: sessioncore.ClassNetwork, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.statusError(resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))
		return nil
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(out); err != nil {
		return &sessioncore.TransportError{Class: sessioncore.ClassServer, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func (c *Client) attachBearer(ctx context.Context, req *http.Request) {
	if c.token == nil {
		return
	}
	if token, ok := c.token(ctx); ok {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

// statusError converts a non-2xx response into a classified error. The body
// is consulted only for a human-readable message.
func (c *Client) statusError(resp *http.Response) error {
	class := sessioncore.ClassServer
	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		class = sessioncore.ClassClient
	}

	var body errorResponse
	_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&body)
	message := body.Error
	if message == "" {
		message = http.StatusText(resp.StatusCode)
	}

	c.logger.Debug().Int("status", resp.StatusCode).Str("message", message).Msg("request rejected")

	err := fmt.Errorf("%s", message)
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		err = fmt.Errorf("%w: %s", sessioncore.ErrInvalidCredentials, message)
	}

	return &sessioncore.TransportError{
		Class:      class,
		StatusCode: resp.StatusCode,
		Err:        err,
	}
}
