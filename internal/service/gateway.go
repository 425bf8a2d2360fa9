// Package service implements the core forwarding logic of the gateway.
package service

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"doctools-gateway/internal/client"
	"doctools-gateway/internal/config"
	"doctools-gateway/internal/model"
)

// Backend auth headers set on every outbound call.
const (
	HeaderInternalAPIKey = "X-Internal-API-Key"
	HeaderUserID         = "X-User-Id"
)

const userAgent = "doctools-gateway/1.0"

// GatewayService forwards authenticated requests to the backend.
type GatewayService struct {
	client  *client.BackendClient
	cfg     *config.Config
	logger  *slog.Logger
	baseURL *url.URL
}

// NewGatewayService creates a GatewayService.
func NewGatewayService(c *client.BackendClient, cfg *config.Config, logger *slog.Logger) (*GatewayService, error) {
	u, err := url.Parse(cfg.Upstream.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse upstream base_url: %w", err)
	}

	return &GatewayService{
		client:  c,
		cfg:     cfg,
		logger:  logger.With("component", "gateway_service"),
		baseURL: u,
	}, nil
}

// Forward sends a GatewayRequest to the backend and returns the response.
// The caller is responsible for closing the response body.
func (s *GatewayService) Forward(gr *model.GatewayRequest) (*model.UpstreamResponse, error) {
	header := s.OutboundHeaders(gr.UserID, gr.Header)
	if gr.ContentType != "" {
		// Re-framed multipart body: content-type carries the fresh boundary.
		header.Set("Content-Type", gr.ContentType)
	}

	upstreamURL := s.buildUpstreamURL(gr.Path, gr.Query)

	s.logger.Debug("forwarding request",
		"method", gr.Method,
		"path", gr.Path,
	)

	resp, err := s.client.DoStream(gr.Ctx, gr.Method, upstreamURL, header, gr.Body)
	if err != nil {
		return nil, fmt.Errorf("forward to upstream: %w", err)
	}

	return resp, nil
}

// OutboundHeaders builds the header set for the backend call. Only the
// gateway's own credentials and the resolved user id are sent; no inbound
// headers are forwarded except content-type, and content-type is copied only
// when the inbound body is not multipart. Forwarding a multipart content-type
// would carry a stale boundary that no longer matches the re-framed body and
// corrupt the backend's parse.
func (s *GatewayService) OutboundHeaders(userID string, inbound http.Header) http.Header {
	dst := make(http.Header)
	dst.Set(HeaderInternalAPIKey, s.cfg.Upstream.InternalAPIKey)
	dst.Set(HeaderUserID, userID)
	dst.Set("User-Agent", userAgent)

	if ct := inbound.Get("Content-Type"); ct != "" && !IsMultipart(ct) {
		dst.Set("Content-Type", ct)
	}

	return dst
}

// IsMultipart reports whether a content-type declares a multipart form body.
func IsMultipart(contentType string) bool {
	return strings.Contains(contentType, "multipart/form-data")
}

// buildUpstreamURL joins the backend base URL with the request path and
// query. The query string is appended only when non-empty, so a bare path
// never gains a trailing "?".
func (s *GatewayService) buildUpstreamURL(path string, query url.Values) string {
	u := *s.baseURL
	u.Path = path
	u.RawQuery = query.Encode()
	return u.String()
}
