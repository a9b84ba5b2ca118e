package handlers

import (
	"net/http"

	"github.com/studyshare/backend/internal/auth"
	"github.com/studyshare/backend/internal/logging"
	"github.com/studyshare/backend/internal/middleware"
	"github.com/studyshare/backend/internal/models"
)

// currentUser returns the user placed on the context by the session gate.
// Without one the request is redirected to the login entry point.
func currentUser(w http.ResponseWriter, r *http.Request) (models.User, bool) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		logging.FromContext(r.Context()).Warn("authenticated route reached without a session")
		http.Redirect(w, r, middleware.LoginPath, http.StatusSeeOther)
		return models.User{}, false
	}
	return user, true
}
