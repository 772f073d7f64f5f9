// Package middleware provides the HTTP middleware chain of the dog list API.
//
// Everything except CORS is attached to the gorilla/mux router with Use and
// therefore only sees requests that matched a route. CORS wraps the router
// itself so browser preflights are answered before route matching.
package middleware

import (
	"bufio"
	"net"
	"net/http"

	"github.com/gorilla/mux"
)

// Middleware is a function that wraps an http.Handler.
type Middleware func(http.Handler) http.Handler

// Chain composes middlewares; the first one is the outermost.
func Chain(middlewares ...Middleware) Middleware {
	return func(next http.Handler) http.Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			next = middlewares[i](next)
		}
		return next
	}
}

// unmatchedRoute labels requests that reached no mux route.
const unmatchedRoute = "unmatched"

// quietRoutes are polled by orchestrators and scrapers and are logged at Debug.
var quietRoutes = map[string]bool{
	"/health":  true,
	"/ready":   true,
	"/metrics": true,
}

// routeTemplate returns the matched route template, e.g. /api/v1/dogs/{id}.
// Dog and flow ids never end up in labels or log fields.
func routeTemplate(r *http.Request) string {
	route := mux.CurrentRoute(r)
	if route == nil {
		return unmatchedRoute
	}
	tmpl, err := route.GetPathTemplate()
	if err != nil {
		return unmatchedRoute
	}
	return tmpl
}

// statusRecorder captures the status code written by the wrapped handler.
type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func newStatusRecorder(w http.ResponseWriter) *statusRecorder {
	return &statusRecorder{ResponseWriter: w, status: http.StatusOK}
}

func (sr *statusRecorder) WriteHeader(code int) {
	if sr.wroteHeader {
		return
	}
	sr.status = code
	sr.wroteHeader = true
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if !sr.wroteHeader {
		sr.WriteHeader(http.StatusOK)
	}
	return sr.ResponseWriter.Write(b)
}

// Hijack lets the /ws feed upgrade through the chain.
func (sr *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := sr.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, http.ErrNotSupported
	}
	// The upgrade answers 101 on the raw connection.
	sr.status = http.StatusSwitchingProtocols
	sr.wroteHeader = true
	return hijacker.Hijack()
}

// Flush lets flow long-polls flush through the chain.
func (sr *statusRecorder) Flush() {
	if flusher, ok := sr.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}
