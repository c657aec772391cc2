package httpserver

import (
	"net/http"
	"time"
)

// New builds the API server. ReadHeaderTimeout guards against slow-header
// clients; no overall write timeout is set because roster imports can take
// a while on large files.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
