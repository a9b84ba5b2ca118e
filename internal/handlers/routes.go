package handlers

import (
	"net/http"

	"github.com/studyshare/backend/internal/middleware"
)

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	Accounts       AccountService
	Sessions       middleware.SessionResolver
	Friends        FriendService
	Materials      MaterialService
	Database       Pinger
	AuthLimiter    middleware.RateLimiter
	CookieSecure   bool
	MaxUploadBytes int64
}

// RegisterRoutes wires HTTP handlers into the provided ServeMux.
func RegisterRoutes(mux *http.ServeMux, deps Dependencies) {
	health := HealthHandler{Database: deps.Database}
	auth := AuthHandler{Accounts: deps.Accounts, CookieSecure: deps.CookieSecure}
	friends := FriendHandler{Friends: deps.Friends}
	materials := MaterialHandler{Materials: deps.Materials, MaxUploadBytes: deps.MaxUploadBytes}
	dashboard := DashboardHandler{Materials: deps.Materials}

	limit := func(scope string, h http.HandlerFunc) http.Handler {
		return middleware.RateLimit(deps.AuthLimiter, scope)(h)
	}
	protect := func(h http.HandlerFunc) http.Handler {
		return middleware.RequireSession(deps.Sessions, deps.Accounts)(h)
	}

	mux.HandleFunc("/healthz", health.Handle)

	mux.Handle("/api/v1/auth/register", limit("register", auth.Register))
	mux.HandleFunc("/api/v1/auth/verify/{token}", auth.Verify)
	mux.Handle("/api/v1/auth/verify/resend", limit("resend", auth.ResendVerification))
	mux.Handle("GET /api/v1/auth/login", http.HandlerFunc(auth.Login))
	mux.Handle("/api/v1/auth/login", limit("login", auth.Login))
	mux.HandleFunc("/api/v1/auth/logout", auth.Logout)
	mux.HandleFunc("/api/v1/auth/forgot-password", auth.ForgotPassword)

	mux.Handle("/api/v1/materials", protect(materials.Collection))
	mux.Handle("/api/v1/materials/{id}", protect(materials.Item))
	mux.Handle("/api/v1/friends", protect(friends.Collection))
	mux.Handle("/api/v1/friends/{id}", protect(friends.Remove))
	mux.Handle("/api/v1/friends/{id}/remove", protect(friends.Remove))
	mux.Handle("/api/v1/dashboard", protect(dashboard.Handle))
}
