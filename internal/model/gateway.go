// Package model defines shared types for the gateway.
package model

import (
	"context"
	"io"
	"net/http"
	"net/url"
)

// GatewayRequest represents an authenticated client request to be forwarded
// to the backend.
type GatewayRequest struct {
	Ctx    context.Context
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	UserID string
	Body   io.ReadCloser

	// ContentType, when non-empty, overrides the inbound content-type on the
	// outbound request. Set by the multipart re-framer, which generates a
	// fresh boundary; the inbound multipart content-type is never forwarded.
	ContentType string
}

// UpstreamResponse represents the backend response to be relayed back.
// The Body transfers to the caller, who must close it on every exit path.
type UpstreamResponse struct {
	StatusCode int
	Header     http.Header
	Body       io.ReadCloser
}

// RelayKind is the closed set of strategies for re-emitting an upstream
// response to the client.
type RelayKind int

const (
	// RelayStream pipes a server-sent event stream through unbuffered.
	RelayStream RelayKind = iota
	// RelayAttachment relays a downloadable document as an opaque byte stream.
	RelayAttachment
	// RelayNoContent produces an empty 204 response.
	RelayNoContent
	// RelayError re-emits a non-2xx upstream body with its original status.
	RelayError
	// RelayJSON buffers and re-emits a structured JSON payload.
	RelayJSON
)

// String returns the relay kind name for logging.
func (k RelayKind) String() string {
	switch k {
	case RelayStream:
		return "stream"
	case RelayAttachment:
		return "attachment"
	case RelayNoContent:
		return "no_content"
	case RelayError:
		return "error"
	case RelayJSON:
		return "json"
	default:
		return "unknown"
	}
}
