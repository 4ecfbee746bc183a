package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultTimeout         = 15 * time.Second
	defaultValidateTimeout = 5 * time.Second

	// maxBodyBytes bounds how much of a provider response is read; the
	// envelopes involved are small.
	maxBodyBytes = 1 << 20
)

// ErrBaseURLRequired is returned by NewClient when no provider URL is configured.
var ErrBaseURLRequired = errors.New("gateway base url required")

// Config holds the externally injected provider settings.
type Config struct {
	// BaseURL is the identity provider root, e.g. "https://id.unica.edu.pe".
	BaseURL string
	// Timeout applies to every call except Validate. Default 15s.
	Timeout time.Duration
	// ValidateTimeout applies to Validate only. Validate runs synchronously on
	// the session-restoration path at process startup, so it gets its own,
	// shorter budget. Default 5s.
	ValidateTimeout time.Duration
}

// Client talks to the identity provider. Safe for concurrent use.
type Client struct {
	base     string
	http     *http.Client
	validate *http.Client
}

// NewClient builds a provider client from cfg.
func NewClient(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, ErrBaseURLRequired
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.ValidateTimeout <= 0 {
		cfg.ValidateTimeout = defaultValidateTimeout
	}

	return &Client{
		base:     base,
		http:     &http.Client{Timeout: cfg.Timeout},
		validate: &http.Client{Timeout: cfg.ValidateTimeout},
	}, nil
}

type envelope struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Profile *Profile `json:"profile,omitempty"`
}

// Login exchanges credentials for a session. It never retries: a failed
// attempt may already have consumed a login allowance server-side, so retry
// policy belongs to the caller.
func (c *Client) Login(ctx context.Context, email, password string) (*Session, error) {
	body := struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}{Email: email, Password: password}

	resp, err := c.do(ctx, c.http, http.MethodPost, "/login", "", body)
	if err != nil {
		return nil, err
	}
	defer drain(resp)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, c.authError(resp)
	}

	var session Session
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&session); err != nil {
		return nil, &AuthError{Message: "unreadable login response", HTTPStatus: resp.StatusCode, Retriable: false}
	}
	if session.Credential == "" {
		return nil, &AuthError{Message: "login response missing credential", HTTPStatus: resp.StatusCode, Retriable: false}
	}

	return &session, nil
}

// Validate performs a single liveness round-trip for the credential. It fails
// closed: any non-2xx status, transport failure, or timeout reports false.
func (c *Client) Validate(ctx context.Context, credential string) bool {
	if credential == "" {
		return false
	}

	resp, err := c.do(ctx, c.validate, http.MethodGet, "/validate", credential, nil)
	if err != nil {
		return false
	}
	defer drain(resp)

	return resp.StatusCode >= 200 && resp.StatusCode <= 299
}

// UpdateProfile sends a partial profile update. Only fields present in patch
// reach the wire.
func (c *Client) UpdateProfile(ctx context.Context, credential string, patch ProfilePatch) (*ProfileUpdateResult, error) {
	resp, err := c.do(ctx, c.http, http.MethodPatch, "/profile", credential, patch)
	if err != nil {
		return nil, err
	}
	defer drain(resp)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, c.authError(resp)
	}

	var env envelope
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&env); err != nil {
		return nil, &AuthError{Message: "unreadable profile response", HTTPStatus: resp.StatusCode, Retriable: false}
	}

	result := &ProfileUpdateResult{Message: env.Message}
	if env.Profile != nil {
		result.Accepted = acceptedFields(*env.Profile, patch)
	}
	return result, nil
}

// ChangePassword asks the provider to rotate the password for the session's
// subject. The new/confirm equality invariant is the caller's precondition;
// the provider re-validates it independently.
func (c *Client) ChangePassword(ctx context.Context, credential, oldPassword, newPassword, confirmPassword string) error {
	body := struct {
		OldPassword     string `json:"oldPassword"`
		NewPassword     string `json:"newPassword"`
		ConfirmPassword string `json:"confirmPassword"`
	}{oldPassword, newPassword, confirmPassword}

	resp, err := c.do(ctx, c.http, http.MethodPost, "/change-password", credential, body)
	if err != nil {
		return err
	}
	defer drain(resp)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.authError(resp)
	}
	return nil
}

// ResetPassword completes a recovery flow. Not bearer-authenticated: the
// caller's recovery token, not a session, is the authorization.
func (c *Client) ResetPassword(ctx context.Context, email, newPassword string) error {
	body := struct {
		Email       string `json:"email"`
		NewPassword string `json:"newPassword"`
	}{email, newPassword}

	resp, err := c.do(ctx, c.http, http.MethodPost, "/reset-password", "", body)
	if err != nil {
		return err
	}
	defer drain(resp)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.authError(resp)
	}
	return nil
}

// Revoke invalidates the credential server-side. Only called when
// RevokeOnLogout is enabled; stateless deployments skip it and let the
// credential age out.
func (c *Client) Revoke(ctx context.Context, credential string) error {
	resp, err := c.do(ctx, c.http, http.MethodPost, "/logout", credential, nil)
	if err != nil {
		return err
	}
	defer drain(resp)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.authError(resp)
	}
	return nil
}

func (c *Client) do(ctx context.Context, client *http.Client, method, path, credential string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, &AuthError{Message: "unencodable request", Retriable: false}
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return nil, &AuthError{Message: "invalid request", Retriable: false}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if credential != "" {
		req.Header.Set("Authorization", "Bearer "+credential)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, &AuthError{Message: "identity provider unreachable", HTTPStatus: 0, Retriable: true}
	}
	return resp, nil
}

// authError decodes the provider's message envelope when possible and falls
// back to a generic message otherwise.
func (c *Client) authError(resp *http.Response) *AuthError {
	msg := ""

	var env envelope
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&env); err == nil {
		msg = strings.TrimSpace(env.Message)
	}
	if msg == "" {
		msg = "request rejected"
		if resp.StatusCode >= 500 {
			msg = "service unavailable, try again"
		}
	}

	return &AuthError{
		Message:    msg,
		HTTPStatus: resp.StatusCode,
		Retriable:  resp.StatusCode >= 500,
	}
}

// acceptedFields intersects the provider's echoed profile with the request
// patch: a field counts as accepted only if the caller asked for it and the
// provider reported a value for it.
func acceptedFields(echoed Profile, patch ProfilePatch) ProfilePatch {
	var accepted ProfilePatch
	if patch.Name != nil && echoed.Name != "" {
		accepted.Name = &echoed.Name
	}
	if patch.Email != nil && echoed.Email != "" {
		accepted.Email = &echoed.Email
	}
	if patch.Phone != nil && echoed.Phone != "" {
		accepted.Phone = &echoed.Phone
	}
	if patch.Address != nil && echoed.Address != "" {
		accepted.Address = &echoed.Address
	}
	return accepted
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
	_ = resp.Body.Close()
}
