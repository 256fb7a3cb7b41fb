package handlers

import "net/http"

// APIPrefix is the path prefix of every JSON endpoint.
const APIPrefix = "/api/v1"

// RouteMiddleware wraps a single route, e.g. to attach a database scope.
type RouteMiddleware func(http.Handler) http.Handler

// handle registers fn under pattern wrapped by mw.
func handle(mux *http.ServeMux, pattern string, mw RouteMiddleware, fn http.HandlerFunc) {
	if mw == nil {
		mux.Handle(pattern, fn)
		return
	}
	mux.Handle(pattern, mw(fn))
}
