package httpserver

import (
	"net/http"
	"time"
)

// New builds the API server. Handler timeouts are enforced per route by
// middleware; these bounds only guard against slow or stalled clients.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
