// Package authclient calls the /api/auth endpoints over HTTP and keeps the
// session cookie in a cookie jar.
package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/redmonkez12/go-saas-starter/internal/auth"
	"github.com/redmonkez12/go-saas-starter/internal/httputil"
	"github.com/redmonkez12/go-saas-starter/internal/user"
)

const DefaultBasePath = "/api/auth"

// APIError is an error response of the auth API.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("auth api: status %d", e.Status)
	}
	return fmt.Sprintf("auth api: %s (%d %s)", e.Message, e.Status, e.Code)
}

// AsAPIError unwraps an *APIError from err.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

type Client struct {
	baseURL  *url.URL
	basePath string
	http     *http.Client
}

type Option func(*Client)

// WithHTTPClient replaces the underlying client. Its Jar is replaced by a
// fresh cookie jar when nil.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithBasePath(p string) Option {
	return func(c *Client) { c.basePath = strings.TrimRight(p, "/") }
}

// New creates a client for the server at baseURL, e.g. http://localhost:8080.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q", baseURL)
	}

	c := &Client{
		baseURL:  u,
		basePath: DefaultBasePath,
		http:     &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create cookie jar: %w", err)
		}
		c.http.Jar = jar
	}
	return c, nil
}

// Origin is the scheme and host of the server.
func (c *Client) Origin() string {
	return c.baseURL.Scheme + "://" + c.baseURL.Host
}

// SessionToken returns the sealed session cookie value held by the jar.
func (c *Client) SessionToken() string {
	for _, ck := range c.http.Jar.Cookies(c.baseURL) {
		if ck.Name == auth.SessionCookieName {
			return ck.Value
		}
	}
	return ""
}

// SetSessionToken seeds the jar with a previously saved session cookie.
func (c *Client) SetSessionToken(token string) {
	c.http.Jar.SetCookies(c.baseURL, []*http.Cookie{{
		Name:  auth.SessionCookieName,
		Value: token,
		Path:  "/",
	}})
}

func (c *Client) SignUpEmail(ctx context.Context, req auth.SignUpRequest) (*user.User, error) {
	var resp auth.UserResponse
	if err := c.do(ctx, http.MethodPost, "/sign-up/email", nil, req, &resp); err != nil {
		return nil, err
	}
	return resp.User, nil
}

func (c *Client) SignInEmail(ctx context.Context, req auth.SignInRequest) (*user.User, error) {
	var resp auth.UserResponse
	if err := c.do(ctx, http.MethodPost, "/sign-in/email", nil, req, &resp); err != nil {
		return nil, err
	}
	return resp.User, nil
}

func (c *Client) SignOut(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/sign-out", nil, struct{}{}, nil)
}

// GetSession returns nil without an error when there is no session.
func (c *Client) GetSession(ctx context.Context) (*auth.SessionData, error) {
	var data *auth.SessionData
	if err := c.do(ctx, http.MethodGet, "/get-session", nil, nil, &data); err != nil {
		return nil, err
	}
	return data, nil
}

func (c *Client) SendVerificationEmail(ctx context.Context, req auth.SendVerificationRequest) error {
	return c.do(ctx, http.MethodPost, "/send-verification-email", nil, req, nil)
}

func (c *Client) VerifyEmail(ctx context.Context, token string) (*user.User, error) {
	var resp auth.UserResponse
	q := url.Values{"token": {token}}
	if err := c.do(ctx, http.MethodGet, "/verify-email", q, nil, &resp); err != nil {
		return nil, err
	}
	return resp.User, nil
}

func (c *Client) ForgetPassword(ctx context.Context, req auth.ForgetPasswordRequest) error {
	return c.do(ctx, http.MethodPost, "/forget-password", nil, req, nil)
}

func (c *Client) ResetPassword(ctx context.Context, req auth.ResetPasswordRequest) error {
	return c.do(ctx, http.MethodPost, "/reset-password", nil, req, nil)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.baseURL.JoinPath(c.basePath, path)
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeAPIError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	var body httputil.ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil {
		apiErr.Code = body.Code
		apiErr.Message = body.Error
	}
	return apiErr
}
