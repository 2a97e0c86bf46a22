// Package httpserver builds the process HTTP server.
package httpserver

import (
	"net/http"
	"time"
)

// New builds the chaintrace HTTP server. The write timeout must exceed
// the sync endpoint's 120s handler timeout, which holds the response
// open while a backlog drains.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      150 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
}
