// Package relay classifies upstream responses and writes them back to the
// client with the framing their content-type demands.
package relay

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"doctools-gateway/internal/model"
)

// attachmentMarkers identify downloadable document content-types.
var attachmentMarkers = []string{"pdf", "spreadsheetml", "wordprocessingml"}

// Classify selects the relay strategy for an upstream response. It is a pure
// function of the response status and headers, never of the body.
//
// Stream and attachment checks run before the error check: a streaming or
// binary response can carry a non-2xx status in some backends and must still
// be relayed as a stream or attachment, not parsed as JSON error text.
func Classify(status int, header http.Header) model.RelayKind {
	ct := header.Get("Content-Type")
	switch {
	case strings.Contains(ct, "text/event-stream"):
		return model.RelayStream
	case isAttachmentType(ct):
		return model.RelayAttachment
	case status == http.StatusNoContent:
		return model.RelayNoContent
	case status < 200 || status >= 300:
		return model.RelayError
	default:
		return model.RelayJSON
	}
}

func isAttachmentType(contentType string) bool {
	for _, marker := range attachmentMarkers {
		if strings.Contains(contentType, marker) {
			return true
		}
	}
	return false
}

// Write relays the response using the strategy Classify selects, and returns
// the chosen strategy. The attachment fallback disposition is "inline", which
// suits documents the generic relay route serves for in-browser viewing.
func Write(c echo.Context, resp *model.UpstreamResponse) (model.RelayKind, error) {
	kind := Classify(resp.StatusCode, resp.Header)

	var err error
	switch kind {
	case model.RelayStream:
		err = Stream(c, resp)
	case model.RelayAttachment:
		err = Attachment(c, resp, resp.Header.Get("Content-Type"), "inline")
	case model.RelayNoContent:
		err = c.NoContent(http.StatusNoContent)
	case model.RelayError:
		err = Error(c, resp)
	default:
		err = JSON(c, resp)
	}
	return kind, err
}

// Stream pipes a server-sent event body through live: each chunk read from
// the backend is written and flushed before the next read, so the client
// observes bytes while the backend is still producing them.
func Stream(c echo.Context, resp *model.UpstreamResponse) error {
	h := c.Response().Header()
	h.Set(echo.HeaderContentType, "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	c.Response().WriteHeader(resp.StatusCode)

	return flushCopy(c.Response(), resp.Body)
}

// flushCopy copies src to the response, flushing after every read.
func flushCopy(dst *echo.Response, src io.Reader) error {
	buf := make([]byte, 4096)
	for {
		n, rerr := src.Read(buf)
		if n > 0 {
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return fmt.Errorf("write stream chunk: %w", werr)
			}
			dst.Flush()
		}
		if rerr == io.EOF {
			return nil
		}
		if rerr != nil {
			return fmt.Errorf("read stream chunk: %w", rerr)
		}
	}
}

// Attachment relays a binary document body as an opaque stream. The
// upstream's content-disposition wins when present; otherwise fallback
// applies. contentType is used as-is (callers pass either the upstream value
// or a route-fixed type).
func Attachment(c echo.Context, resp *model.UpstreamResponse, contentType, fallbackDisposition string) error {
	h := c.Response().Header()
	h.Set(echo.HeaderContentType, contentType)

	disposition := resp.Header.Get("Content-Disposition")
	if disposition == "" {
		disposition = fallbackDisposition
	}
	h.Set("Content-Disposition", disposition)

	c.Response().WriteHeader(resp.StatusCode)
	if _, err := io.Copy(c.Response(), resp.Body); err != nil {
		return fmt.Errorf("copy attachment body: %w", err)
	}
	return nil
}

// Error relays a non-2xx upstream body with its original status. Structured
// JSON bodies pass through byte-for-byte; anything else is wrapped under a
// single diagnostic field so the client always receives JSON.
func Error(c echo.Context, resp *model.UpstreamResponse) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read upstream error body: %w", err)
	}

	if json.Valid(body) {
		return c.JSONBlob(resp.StatusCode, body)
	}
	return c.JSON(resp.StatusCode, map[string]string{"detail": string(body)})
}

// JSON buffers and re-emits a structured success payload. A body that claims
// JSON but fails to parse is degraded to the diagnostic wrapper rather than
// failing the relay.
func JSON(c echo.Context, resp *model.UpstreamResponse) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read upstream body: %w", err)
	}

	if json.Valid(body) {
		return c.JSONBlob(resp.StatusCode, body)
	}
	return c.JSON(resp.StatusCode, map[string]string{"detail": string(body)})
}
