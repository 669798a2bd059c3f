// Package site handles requests to the root path.
package site

import (
	"context"
	"net/http"
)

// DefaultLanding is where GET / sends browsers.
const DefaultLanding = "/dashboard"

// Register attaches the root handler to mux. Paths no other route claims get 404.
func Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	mux.Handle("/", NewRootHandler(DefaultLanding))
}

// RootHandler redirects the bare root to a landing page.
type RootHandler struct {
	landing string
}

// NewRootHandler creates a root handler redirecting to landing.
func NewRootHandler(landing string) *RootHandler {
	return &RootHandler{landing: landing}
}

func (h *RootHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" || (r.Method != http.MethodGet && r.Method != http.MethodHead) {
		http.NotFound(w, r)
		return
	}
	http.Redirect(w, r, h.landing, http.StatusFound)
}
