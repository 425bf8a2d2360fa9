package relay

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"doctools-gateway/internal/model"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		contentType string
		want        model.RelayKind
	}{
		{"event stream", 200, "text/event-stream", model.RelayStream},
		{"event stream with charset", 200, "text/event-stream; charset=utf-8", model.RelayStream},
		{"pdf attachment", 200, "application/pdf", model.RelayAttachment},
		{"spreadsheet attachment", 200, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", model.RelayAttachment},
		{"word attachment", 200, "application/vnd.openxmlformats-officedocument.wordprocessingml.document", model.RelayAttachment},
		{"no content", 204, "", model.RelayNoContent},
		{"client error", 422, "application/json", model.RelayError},
		{"server error", 500, "text/plain", model.RelayError},
		{"json success", 200, "application/json", model.RelayJSON},
		{"missing content-type success", 200, "", model.RelayJSON},

		// Stream/attachment classification outranks the error check: a
		// non-2xx streaming or binary response stays a stream/attachment.
		{"non-2xx event stream stays stream", 500, "text/event-stream", model.RelayStream},
		{"non-2xx pdf stays attachment", 404, "application/pdf", model.RelayAttachment},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header := http.Header{}
			if tt.contentType != "" {
				header.Set("Content-Type", tt.contentType)
			}
			got := Classify(tt.status, header)
			if got != tt.want {
				t.Errorf("Classify(%d, %q) = %v, want %v", tt.status, tt.contentType, got, tt.want)
			}
		})
	}
}

func TestClassify_Idempotent(t *testing.T) {
	header := http.Header{"Content-Type": {"application/pdf"}}
	first := Classify(502, header)
	second := Classify(502, header)
	if first != second {
		t.Errorf("Classify is not idempotent: %v then %v", first, second)
	}
}

func newContext(t *testing.T) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func upstreamResponse(status int, contentType, body string) *model.UpstreamResponse {
	header := http.Header{}
	if contentType != "" {
		header.Set("Content-Type", contentType)
	}
	return &model.UpstreamResponse{
		StatusCode: status,
		Header:     header,
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func TestError_JSONPassthrough(t *testing.T) {
	c, rec := newContext(t)
	resp := upstreamResponse(422, "application/json", `{"detail":"bad field"}`)

	if err := Error(c, resp); err != nil {
		t.Fatalf("Error() = %v", err)
	}
	if rec.Code != 422 {
		t.Errorf("status = %d, want 422", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != `{"detail":"bad field"}` {
		t.Errorf("body = %q, want upstream JSON unmodified", got)
	}
}

func TestError_WrapsPlainText(t *testing.T) {
	c, rec := newContext(t)
	resp := upstreamResponse(500, "text/plain", "internal blowup")

	if err := Error(c, resp); err != nil {
		t.Fatalf("Error() = %v", err)
	}
	if rec.Code != 500 {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	if got := rec.Body.String(); !strings.Contains(got, `"detail":"internal blowup"`) {
		t.Errorf("body = %q, want raw text wrapped under detail", got)
	}
}

func TestJSON_ReemitsPayload(t *testing.T) {
	c, rec := newContext(t)
	resp := upstreamResponse(200, "application/json", `{"items":[1,2,3]}`)

	if err := JSON(c, resp); err != nil {
		t.Fatalf("JSON() = %v", err)
	}
	if rec.Code != 200 {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != `{"items":[1,2,3]}` {
		t.Errorf("body = %q, want %q", got, `{"items":[1,2,3]}`)
	}
}

func TestAttachment_UpstreamDispositionWins(t *testing.T) {
	c, rec := newContext(t)
	resp := upstreamResponse(200, "application/pdf", "%PDF-1.4")
	resp.Header.Set("Content-Disposition", `attachment; filename=report.pdf`)

	if err := Attachment(c, resp, "application/pdf", "inline"); err != nil {
		t.Fatalf("Attachment() = %v", err)
	}
	if got := rec.Header().Get("Content-Disposition"); got != `attachment; filename=report.pdf` {
		t.Errorf("Content-Disposition = %q, want upstream value", got)
	}
	if rec.Body.String() != "%PDF-1.4" {
		t.Errorf("body = %q, want identical bytes", rec.Body.String())
	}
}

func TestAttachment_FallbackDisposition(t *testing.T) {
	c, rec := newContext(t)
	resp := upstreamResponse(200, "application/pdf", "%PDF-1.4")

	if err := Attachment(c, resp, "application/pdf", "attachment; filename=tabelas.xlsx"); err != nil {
		t.Fatalf("Attachment() = %v", err)
	}
	if got := rec.Header().Get("Content-Disposition"); got != "attachment; filename=tabelas.xlsx" {
		t.Errorf("Content-Disposition = %q, want fallback", got)
	}
}

func TestWrite_NoContent(t *testing.T) {
	c, rec := newContext(t)
	resp := upstreamResponse(204, "", "")

	kind, err := Write(c, resp)
	if err != nil {
		t.Fatalf("Write() = %v", err)
	}
	if kind != model.RelayNoContent {
		t.Errorf("kind = %v, want RelayNoContent", kind)
	}
	if rec.Code != 204 {
		t.Errorf("status = %d, want 204", rec.Code)
	}
	if rec.Body.Len() != 0 {
		t.Errorf("body = %q, want empty", rec.Body.String())
	}
}

// notifyRecorder signals on the first body write so tests can observe
// streaming progress before the upstream finishes.
type notifyRecorder struct {
	*httptest.ResponseRecorder
	first chan struct{}
	once  bool
}

func (n *notifyRecorder) Write(p []byte) (int, error) {
	if !n.once {
		n.once = true
		close(n.first)
	}
	return n.ResponseRecorder.Write(p)
}

func TestStream_FirstChunkBeforeUpstreamCloses(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	rec := &notifyRecorder{ResponseRecorder: httptest.NewRecorder(), first: make(chan struct{})}
	c := e.NewContext(req, rec)

	pr, pw := io.Pipe()
	resp := &model.UpstreamResponse{
		StatusCode: 200,
		Header:     http.Header{"Content-Type": {"text/event-stream"}},
		Body:       pr,
	}

	done := make(chan error, 1)
	go func() { done <- Stream(c, resp) }()

	// The upstream stalls after one chunk; the client must already have it.
	if _, err := pw.Write([]byte("data: one\n\n")); err != nil {
		t.Fatalf("write chunk: %v", err)
	}
	select {
	case <-rec.first:
	case <-time.After(2 * time.Second):
		t.Fatal("first chunk not relayed before upstream closed its stream")
	}

	_ = pw.Close()
	if err := <-done; err != nil {
		t.Fatalf("Stream() = %v", err)
	}

	if got := rec.Header().Get("Content-Type"); got != "text/event-stream" {
		t.Errorf("Content-Type = %q, want text/event-stream", got)
	}
	if got := rec.Header().Get("Cache-Control"); got != "no-cache" {
		t.Errorf("Cache-Control = %q, want no-cache", got)
	}
	if got := rec.Header().Get("Connection"); got != "keep-alive" {
		t.Errorf("Connection = %q, want keep-alive", got)
	}
	if rec.Body.String() != "data: one\n\n" {
		t.Errorf("body = %q, want the single relayed chunk", rec.Body.String())
	}
}
