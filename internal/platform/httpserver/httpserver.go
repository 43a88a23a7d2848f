package httpserver

import (
	"log/slog"
	"net/http"
	"time"
)

const maxHeaderBytes = 64 << 10

// New builds an HTTP server. Only the header read is bounded: photo uploads
// over slow links must not be cut off by a body timeout. Server-internal errors
// (TLS handshakes, hijack failures) go to logger at warn level.
func New(addr string, handler http.Handler, logger *slog.Logger) *http.Server {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       2 * time.Minute,
		MaxHeaderBytes:    maxHeaderBytes,
	}
	if logger != nil {
		srv.ErrorLog = slog.NewLogLogger(logger.Handler(), slog.LevelWarn)
	}
	return srv
}
