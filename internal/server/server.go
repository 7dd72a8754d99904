package server

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/pavel-fokin/pdf-toolbox/internal/pdf"
)

const (
	// multipartOverhead is the slack allowed on top of MaxSize for multipart
	// boundaries and part headers.
	multipartOverhead = 1 << 20
	jsonBodyLimit     = 64 << 10

	bodyTooLarge = "Request body too large"
)

// New returns an HTTP server serving the toolbox API
func New(cfg *Config, app *App, logger *zap.Logger) *http.Server {
	return &http.Server{
		Addr:         cfg.Addr,
		Handler:      NewHandler(cfg, app, logger),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
}

// NewHandler builds the routing table and middleware chain
func NewHandler(cfg *Config, app *App, logger *zap.Logger) http.Handler {
	h := &handlers{
		files:     app.Files,
		contact:   app.Contact,
		processor: app.Processor,
		logger:    logger.Named("http"),
	}
	limiter := newRateLimiter(cfg.RateLimit)
	uploadLimit := app.Files.Policy().MaxSize + multipartOverhead

	tooLarge := h.tooLargeMessage()
	uploadRoute := func(next http.Handler) http.Handler {
		return limiter.wrap(limitBody(next, uploadLimit, tooLarge))
	}
	jsonRoute := func(next http.HandlerFunc) http.Handler {
		return limiter.wrap(limitBody(next, jsonBodyLimit, bodyTooLarge))
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", healthz)
	mux.Handle("POST /api/upload", uploadRoute(http.HandlerFunc(h.upload)))
	mux.HandleFunc("GET /api/files/{id}", h.download)
	mux.HandleFunc("POST /api/cleanup", auth(cfg.AdminToken, h.cleanup))
	mux.Handle("POST /api/contact", jsonRoute(h.submitContact))
	mux.HandleFunc("GET /api/contact", auth(cfg.AdminToken, h.listContact))
	mux.Handle("POST /api/process", jsonRoute(h.process))
	mux.Handle("POST /api/document-to-pdf", uploadRoute(h.convertUpload(pdf.ConvertDocument{}, "application/pdf", ".pdf")))
	mux.Handle("POST /api/pdf-to-text", uploadRoute(h.convertUpload(pdf.ExtractText{}, "text/plain", ".txt")))
	mux.Handle("POST /api/extract-text", uploadRoute(h.convertUpload(pdf.ExtractText{}, "text/plain", ".txt")))
	mux.Handle("POST /api/pdf-to-images", uploadRoute(h.convertUpload(pdf.ToImages{Format: "jpg"}, "image/jpeg", ".jpg")))

	return recoverer(h.logger, loggingMiddleware(h.logger, mux))
}

func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
