// Package auth resolves the caller identity for inbound requests by
// delegating to the external identity provider.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"doctools-gateway/internal/config"
)

// ErrUnauthorized is returned when the identity provider cannot produce a
// verified user id for the request.
var ErrUnauthorized = errors.New("no verified caller identity")

// sessionCookie is the browser session cookie carrying the credential.
const sessionCookie = "__session"

// Verifier resolves an opaque credential to a user id.
// Implementations must be read-only with respect to the request.
type Verifier interface {
	Verify(ctx context.Context, credential string) (string, error)
}

// Credential extracts the caller credential from an inbound request:
// the Authorization bearer token, falling back to the session cookie.
// Returns empty string when neither is present.
func Credential(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if tok, ok := strings.CutPrefix(h, "Bearer "); ok {
			return tok
		}
	}
	if c, err := r.Cookie(sessionCookie); err == nil && c.Value != "" {
		return c.Value
	}
	return ""
}

// ProviderClient verifies credentials against the identity provider's
// verify endpoint over HTTP.
type ProviderClient struct {
	httpClient *http.Client
	verifyURL  string
	logger     *slog.Logger
}

// NewProviderClient creates a ProviderClient from configuration.
func NewProviderClient(cfg *config.Config, logger *slog.Logger) *ProviderClient {
	return &ProviderClient{
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Auth.TimeoutSeconds) * time.Second,
		},
		verifyURL: cfg.Auth.VerifyURL,
		logger:    logger.With("component", "auth_client"),
	}
}

// verifyResponse is the identity provider's answer for a valid credential.
type verifyResponse struct {
	UserID string `json:"user_id"`
}

// Verify asks the identity provider to validate the credential.
// Any provider-side rejection (expired session, unknown token) maps to
// ErrUnauthorized; transport failures are reported as-is so callers can
// distinguish "not logged in" from "provider down".
func (p *ProviderClient) Verify(ctx context.Context, credential string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.verifyURL, http.NoBody)
	if err != nil {
		return "", fmt.Errorf("build verify request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+credential)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("identity provider: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		p.logger.Debug("credential rejected", "status", resp.StatusCode)
		return "", ErrUnauthorized
	}

	var vr verifyResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&vr); err != nil {
		return "", fmt.Errorf("decode verify response: %w", err)
	}
	if vr.UserID == "" {
		return "", ErrUnauthorized
	}
	return vr.UserID, nil
}
