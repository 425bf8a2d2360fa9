package handler

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"doctools-gateway/internal/metrics"
	"doctools-gateway/internal/middleware"
	"doctools-gateway/internal/model"
	"doctools-gateway/internal/relay"
	"doctools-gateway/internal/service"
)

// RelayHandler forwards arbitrary nested paths to the backend with full
// four-way response classification. It is the only route that supports
// event streams and arbitrary path depth.
type RelayHandler struct {
	service *service.GatewayService
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewRelayHandler creates a RelayHandler. The metrics parameter is optional.
func NewRelayHandler(svc *service.GatewayService, logger *slog.Logger, m *metrics.Metrics) *RelayHandler {
	return &RelayHandler{
		service: svc,
		logger:  logger.With("component", "relay_handler"),
		metrics: m,
	}
}

// Handle forwards the request to the same path on the backend and relays
// the response using whichever strategy its content-type and status demand.
func (h *RelayHandler) Handle(c echo.Context) error {
	req := c.Request()

	gr := &model.GatewayRequest{
		Ctx:    req.Context(),
		Method: req.Method,
		Path:   req.URL.Path,
		Query:  req.URL.Query(),
		Header: req.Header,
		UserID: middleware.UserID(c),
		Body:   req.Body,
	}

	// Multipart bodies are re-framed under a fresh boundary; everything else
	// passes through as an unconsumed stream.
	if service.IsMultipart(req.Header.Get("Content-Type")) {
		mr, err := req.MultipartReader()
		if err != nil {
			h.logger.Warn("malformed multipart request",
				"err", err,
				"method", req.Method,
				"path", req.URL.Path,
			)
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "Requisição multipart inválida"})
		}
		gr.Body, gr.ContentType = service.RestreamMultipart(mr)
	}

	resp, err := h.service.Forward(gr)
	if err != nil {
		h.logger.Error("upstream unreachable",
			"err", err,
			"method", req.Method,
			"path", req.URL.Path,
		)
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "Erro de comunicação com o backend."})
	}
	defer func() { _ = resp.Body.Close() }()

	kind, err := relay.Write(c, resp)
	if h.metrics != nil {
		h.metrics.RelayStrategies.WithLabelValues(kind.String()).Inc()
	}
	if err != nil {
		// Headers may already be on the wire; nothing left to do but log.
		h.logger.Error("relaying response",
			"err", err,
			"strategy", kind.String(),
			"method", req.Method,
			"path", req.URL.Path,
		)
	}

	return nil
}
