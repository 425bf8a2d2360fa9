package handler

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"doctools-gateway/internal/auth"
	"doctools-gateway/internal/middleware"
)

// relayMethods are the methods accepted by the generic relay route.
var relayMethods = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete}

// RegisterRoutes wires all route handlers onto the Echo instance.
// Every /api route runs behind identity resolution; rejected requests are
// answered before any body is read and never reach the backend.
func RegisterRoutes(e *echo.Echo, verifier auth.Verifier, logger *slog.Logger, rel *RelayHandler, pdf *PDFHandler, health *HealthHandler) {
	e.GET("/healthz", health.Healthz)
	e.GET("/gateway/status", health.Status)

	api := e.Group("/api", middleware.RequireUser(verifier, logger))

	api.POST("/pdf/extract", pdf.Extract)
	api.POST("/pdf/extract/download", pdf.ExtractDownload)
	api.POST("/pdf/format", pdf.Format)
	api.GET("/pdf/download/:fileId", pdf.Download)

	for _, m := range relayMethods {
		api.Add(m, "/rag/*", rel.Handle)
	}
}
