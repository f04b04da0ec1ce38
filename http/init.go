// Package http serves the browser client and mounts the websocket endpoint.
package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/esimov/smoke-fluid/config"
)

// HttpParams holds the address and the static files to serve.
type HttpParams struct {
	Address string
	Prefix  string
	Root    string
}

// Params returns the server parameters of cfg.
func Params(cfg config.ServerConfig) HttpParams {
	return HttpParams{
		Address: cfg.Address,
		Prefix:  cfg.Prefix,
		Root:    cfg.Root,
	}
}

// NewServer serves p.Root under p.Prefix and ws on /ws. Every request is
// logged at debug level.
func NewServer(p HttpParams, ws http.Handler, logger *slog.Logger) (*http.Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	root, err := filepath.Abs(p.Root)
	if err != nil {
		return nil, fmt.Errorf("resolving root: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle(p.Prefix, http.StripPrefix(p.Prefix, http.FileServer(http.Dir(root))))
	mux.Handle("/ws", ws)

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.Debug("request", "remote", r.RemoteAddr, "method", r.Method, "url", r.URL.String())
		mux.ServeHTTP(w, r)
	})
	logger.Info("serving", "root", root, "prefix", p.Prefix, "address", p.Address)
	return &http.Server{
		Addr:    p.Address,
		Handler: handler,
	}, nil
}
