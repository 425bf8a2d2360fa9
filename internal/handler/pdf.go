package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"doctools-gateway/internal/middleware"
	"doctools-gateway/internal/model"
	"doctools-gateway/internal/relay"
	"doctools-gateway/internal/service"
)

const (
	spreadsheetContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	wordDocContentType     = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

// PDFHandler serves the fixed document-tool routes: table extraction,
// extraction download, Word formatting and converted-file download.
type PDFHandler struct {
	service *service.GatewayService
	logger  *slog.Logger
}

// NewPDFHandler creates a PDFHandler.
func NewPDFHandler(svc *service.GatewayService, logger *slog.Logger) *PDFHandler {
	return &PDFHandler{
		service: svc,
		logger:  logger.With("component", "pdf_handler"),
	}
}

// Extract forwards a multipart upload to the extraction endpoint. The
// response shape is upstream-dependent: structured table data as JSON, or a
// spreadsheet attachment, decided solely by the returned content-type.
func (h *PDFHandler) Extract(c echo.Context) error {
	resp, err := h.forward(c, "/api/pdf/extract")
	if err != nil {
		return h.unavailable(c, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if !is2xx(resp.StatusCode) {
		return c.JSON(resp.StatusCode, map[string]string{
			"error": errorDetail(resp.Body, "Erro na extração"),
		})
	}

	if ct := resp.Header.Get("Content-Type"); strings.Contains(ct, "spreadsheetml") {
		return relay.Attachment(c, resp, ct, "attachment; filename=tables.xlsx")
	}
	return relay.JSON(c, resp)
}

// ExtractDownload forwards a multipart upload and always relays the result
// as a spreadsheet attachment.
func (h *PDFHandler) ExtractDownload(c echo.Context) error {
	resp, err := h.forward(c, "/api/pdf/extract/download")
	if err != nil {
		return h.unavailable(c, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if !is2xx(resp.StatusCode) {
		return c.JSON(resp.StatusCode, map[string]string{
			"error": errorDetail(resp.Body, "Erro ao gerar Excel"),
		})
	}

	ct := resp.Header.Get("Content-Type")
	if ct == "" {
		ct = spreadsheetContentType
	}
	return relay.Attachment(c, resp, ct, "attachment; filename=tabelas.xlsx")
}

// Format forwards a multipart upload to the formatting endpoint and relays
// the structured result.
func (h *PDFHandler) Format(c echo.Context) error {
	resp, err := h.forward(c, "/api/pdf/format")
	if err != nil {
		return h.unavailable(c, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if !is2xx(resp.StatusCode) {
		return c.JSON(resp.StatusCode, map[string]string{
			"error": errorDetail(resp.Body, "Erro na formatação"),
		})
	}
	return relay.JSON(c, resp)
}

// Download fetches a converted document by file id and relays it as a Word
// attachment with a fixed filename. Upstream 404 maps to a generic not-found
// message; every other upstream failure degrades to 503 on this route.
func (h *PDFHandler) Download(c echo.Context) error {
	req := c.Request()

	gr := &model.GatewayRequest{
		Ctx:    req.Context(),
		Method: http.MethodGet,
		Path:   "/api/pdf/download/" + c.Param("fileId"),
		Query:  req.URL.Query(),
		Header: req.Header,
		UserID: middleware.UserID(c),
	}

	resp, err := h.service.Forward(gr)
	if err != nil {
		h.logger.Error("upstream unreachable",
			"err", err,
			"method", req.Method,
			"path", req.URL.Path,
		)
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "Erro ao baixar arquivo"})
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Arquivo não encontrado"})
	case !is2xx(resp.StatusCode):
		h.logger.Error("download failed upstream",
			"status", resp.StatusCode,
			"path", req.URL.Path,
		)
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "Erro ao baixar arquivo"})
	}

	header := c.Response().Header()
	header.Set(echo.HeaderContentType, wordDocContentType)
	header.Set("Content-Disposition", "attachment; filename=converted.docx")
	c.Response().WriteHeader(resp.StatusCode)
	if _, err := io.Copy(c.Response(), resp.Body); err != nil {
		h.logger.Error("copying download body",
			"err", err,
			"path", req.URL.Path,
		)
	}
	return nil
}

// forward sends the inbound request to a fixed backend path, re-framing
// multipart bodies under a fresh boundary.
func (h *PDFHandler) forward(c echo.Context, path string) (*model.UpstreamResponse, error) {
	req := c.Request()

	gr := &model.GatewayRequest{
		Ctx:    req.Context(),
		Method: req.Method,
		Path:   path,
		Query:  req.URL.Query(),
		Header: req.Header,
		UserID: middleware.UserID(c),
		Body:   req.Body,
	}

	if service.IsMultipart(req.Header.Get("Content-Type")) {
		mr, err := req.MultipartReader()
		if err != nil {
			return nil, err
		}
		gr.Body, gr.ContentType = service.RestreamMultipart(mr)
	}

	return h.service.Forward(gr)
}

func (h *PDFHandler) unavailable(c echo.Context, err error) error {
	h.logger.Error("upstream unreachable",
		"err", err,
		"method", c.Request().Method,
		"path", c.Request().URL.Path,
	)
	return c.JSON(http.StatusServiceUnavailable, map[string]string{
		"error": "Backend indisponível. Verifique se o servidor está rodando.",
	})
}

func is2xx(status int) bool {
	return status >= 200 && status < 300
}

// errorDetail extracts the backend's "detail" field from an error body,
// falling back to the route's default message.
func errorDetail(body io.Reader, fallback string) string {
	var payload struct {
		Detail string `json:"detail"`
	}
	if err := json.NewDecoder(io.LimitReader(body, 1<<20)).Decode(&payload); err == nil && payload.Detail != "" {
		return payload.Detail
	}
	return fallback
}
