package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/studyshare/backend/internal/auth"
	"github.com/studyshare/backend/internal/logging"
	"github.com/studyshare/backend/internal/models"
)

// LoginPath is where unauthenticated requests are sent.
const LoginPath = "/api/v1/auth/login"

// SessionResolver maps a session id to an active session.
type SessionResolver interface {
	Resolve(ctx context.Context, id string) (auth.Session, error)
}

// UserLoader loads the account a session belongs to.
type UserLoader interface {
	CurrentUser(ctx context.Context, userID string) (models.User, error)
}

// RequireSession only lets requests carrying a live session through. The
// session's user is loaded fresh and placed on the request context; anything
// else is redirected to LoginPath.
func RequireSession(sessions SessionResolver, users UserLoader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			logger := logging.FromContext(ctx)

			id := auth.SessionIDFromRequest(r)
			if id == "" || sessions == nil || users == nil {
				redirectToLogin(w, r)
				return
			}

			session, err := sessions.Resolve(ctx, id)
			if err != nil {
				if !errors.Is(err, auth.ErrSessionNotFound) && !errors.Is(err, auth.ErrSessionExpired) {
					logger.Error("session lookup failed", "error", err)
				}
				redirectToLogin(w, r)
				return
			}

			user, err := users.CurrentUser(ctx, session.UserID)
			if err != nil {
				logger.Warn("session user unavailable", "userId", session.UserID, "error", err)
				redirectToLogin(w, r)
				return
			}

			ctx = logging.WithLogger(auth.WithUser(ctx, user, session), logger.With("user_id", user.ID))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func redirectToLogin(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, LoginPath, http.StatusSeeOther)
}
