package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/studyshare/backend/internal/accounts"
	"github.com/studyshare/backend/internal/auth"
	"github.com/studyshare/backend/internal/logging"
	"github.com/studyshare/backend/internal/mail"
	"github.com/studyshare/backend/internal/models"
)

// AuthHandler implements registration, verification and session endpoints.
type AuthHandler struct {
	Accounts     AccountService
	CookieSecure bool
}

// Register handles POST /api/v1/auth/register.
func (h AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)
	if !h.available(w, r) {
		return
	}

	var req registerRequest
	if !decodeAndValidate(ctx, w, r, &req) {
		return
	}

	result, err := h.Accounts.Register(ctx, accounts.RegisterInput{Username: req.Username, Email: req.Email, Password: req.Password})
	if err != nil && !(errors.Is(err, mail.ErrDeliveryFailed) && result.User.ID != "") {
		respondError(ctx, w, err)
		return
	}

	resp := registerResponse{
		User:                models.ProfileOf(result.User),
		VerificationPending: result.VerificationPending,
		VerificationSent:    result.VerificationSent,
	}
	switch {
	case result.Session != nil:
		http.SetCookie(w, auth.SessionCookie(*result.Session, h.CookieSecure))
		resp.Session = newSessionResponse(*result.Session)
		resp.Message = "Admin account created and logged in."
	case result.VerificationSent:
		resp.Message = "Registration successful. Check your email to verify your account."
	default:
		logger.Warn("registration completed without verification email", "userId", result.User.ID, "error", err)
		resp.Message = "Account created, but the verification email could not be sent. Request a new link."
	}

	respondJSON(ctx, w, http.StatusCreated, resp)
}

// Verify handles GET /api/v1/auth/verify/{token}.
func (h AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	ctx := r.Context()
	if !h.available(w, r) {
		return
	}

	user, err := h.Accounts.Verify(ctx, r.PathValue("token"))
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, messageResponse{
		Message: "Email verified. You can now log in.",
		User:    profilePtr(user),
	})
}

// ResendVerification handles POST /api/v1/auth/verify/resend.
func (h AuthHandler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	ctx := r.Context()
	if !h.available(w, r) {
		return
	}

	var req emailRequest
	if !decodeAndValidate(ctx, w, r, &req) {
		return
	}

	if err := h.Accounts.ResendVerification(ctx, req.Email); err != nil {
		respondError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusAccepted, messageResponse{Message: "A new verification link has been sent."})
}

// Login handles GET and POST /api/v1/auth/login. GET describes how to log in;
// it is where the session gate sends unauthenticated requests.
func (h AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	switch r.Method {
	case http.MethodGet:
		respondJSON(ctx, w, http.StatusUnauthorized, errorResponse{
			Error: "login required: POST email and password to this endpoint",
			Code:  "login_required",
		})
		return
	case http.MethodPost:
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
		return
	}

	if !h.available(w, r) {
		return
	}

	var req loginRequest
	if !decodeAndValidate(ctx, w, r, &req) {
		return
	}

	result, err := h.Accounts.Login(ctx, req.Email, req.Password)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	http.SetCookie(w, auth.SessionCookie(result.Session, h.CookieSecure))
	respondJSON(ctx, w, http.StatusOK, loginResponse{
		User:    models.ProfileOf(result.User),
		Session: *newSessionResponse(result.Session),
	})
}

// Logout handles GET and POST /api/v1/auth/logout. It succeeds whether or not
// the caller had a session.
func (h AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost && r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
		return
	}

	ctx := r.Context()
	if !h.available(w, r) {
		return
	}

	h.Accounts.Logout(ctx, auth.SessionIDFromRequest(r))
	http.SetCookie(w, auth.ClearedSessionCookie(h.CookieSecure))
	respondJSON(ctx, w, http.StatusOK, messageResponse{Message: "Logged out."})
}

// ForgotPassword handles /api/v1/auth/forgot-password, which is not offered yet.
func (h AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost && r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
		return
	}
	respondMessage(r.Context(), w, http.StatusNotImplemented, "not_implemented", "password reset is not yet available")
}

func (h AuthHandler) available(w http.ResponseWriter, r *http.Request) bool {
	if h.Accounts != nil {
		return true
	}
	logging.FromContext(r.Context()).Error("account service unavailable")
	respondMessage(r.Context(), w, http.StatusInternalServerError, "internal", "authentication services unavailable")
	return false
}

type registerRequest struct {
	Username string `json:"username" validate:"required,max=50"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,max=72"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type emailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type sessionResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type registerResponse struct {
	User                models.Profile   `json:"user"`
	VerificationPending bool             `json:"verificationPending"`
	VerificationSent    bool             `json:"verificationSent"`
	Message             string           `json:"message"`
	Session             *sessionResponse `json:"session,omitempty"`
}

type loginResponse struct {
	User    models.Profile  `json:"user"`
	Session sessionResponse `json:"session"`
}

type messageResponse struct {
	Message string          `json:"message"`
	User    *models.Profile `json:"user,omitempty"`
}

func newSessionResponse(session auth.Session) *sessionResponse {
	return &sessionResponse{Token: session.ID, ExpiresAt: session.ExpiresAt}
}

func profilePtr(user models.User) *models.Profile {
	profile := models.ProfileOf(user)
	return &profile
}
