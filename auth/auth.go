// Package auth contains authentication and session logic.
// This specific file, `auth.go`, mounts the auth endpoints on a router so the
// server only needs to know the prefix they live under.
package auth

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers the signup, login, logout and me endpoints on r.
// Any other method on these paths is answered by the router's 405 handler.
func (h *Handlers) RegisterRoutes(r chi.Router) {
	r.Post("/signup", h.HandleSignup())
	r.Post("/login", h.HandleLogin())
	r.Post("/logout", h.HandleLogout())
	r.Get("/me", h.HandleMe())
}
