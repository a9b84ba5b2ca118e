package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/studyshare/backend/internal/accounts"
	"github.com/studyshare/backend/internal/friends"
	"github.com/studyshare/backend/internal/logging"
	"github.com/studyshare/backend/internal/mail"
	"github.com/studyshare/backend/internal/materials"
	"github.com/studyshare/backend/internal/storage"
)

type errorResponse struct {
	Error  string            `json:"error"`
	Code   string            `json:"code"`
	Fields map[string]string `json:"fields,omitempty"`
}

type errorMapping struct {
	target error
	status int
	code   string
}

// errorMappings is matched in order with errors.Is.
var errorMappings = []errorMapping{
	{accounts.ErrDuplicateEmail, http.StatusConflict, "duplicate_email"},
	{accounts.ErrNoSuchAccount, http.StatusNotFound, "no_such_account"},
	{accounts.ErrNotVerified, http.StatusForbidden, "not_verified"},
	{accounts.ErrBadCredential, http.StatusUnauthorized, "bad_credential"},
	{accounts.ErrInvalidToken, http.StatusBadRequest, "invalid_token"},
	{accounts.ErrAlreadyVerified, http.StatusConflict, "already_verified"},
	{friends.ErrAlreadyFriends, http.StatusConflict, "already_friends"},
	{friends.ErrSelfFriend, http.StatusBadRequest, "self_friend"},
	{materials.ErrNotFound, http.StatusNotFound, "not_found"},
	{materials.ErrUnauthorized, http.StatusForbidden, "unauthorized"},
	{materials.ErrTitleRequired, http.StatusBadRequest, "title_required"},
	{storage.ErrTooLarge, http.StatusRequestEntityTooLarge, "too_large"},
	{storage.ErrUnsupportedFormat, http.StatusUnsupportedMediaType, "unsupported_format"},
	{storage.ErrUploadFailed, http.StatusBadGateway, "upload_failed"},
	{mail.ErrDeliveryFailed, http.StatusBadGateway, "delivery_failed"},
}

func respondJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.FromContext(ctx).Error("encode response body", "status", status, "error", err)
		return
	}

	logger := logging.FromContext(ctx)
	switch {
	case status >= http.StatusInternalServerError:
		logger.Error("request failed", "status", status, "response", payload)
	case status >= http.StatusBadRequest:
		logger.Warn("request returned client error", "status", status, "response", payload)
	}
}

func respondMessage(ctx context.Context, w http.ResponseWriter, status int, code, message string) {
	respondJSON(ctx, w, status, errorResponse{Error: message, Code: code})
}

// respondError maps a domain error to its status and code. Unknown errors are
// logged and reported as a generic 500.
func respondError(ctx context.Context, w http.ResponseWriter, err error) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			respondMessage(ctx, w, m.status, m.code, m.target.Error())
			return
		}
	}

	logging.FromContext(ctx).Error("unhandled error", "error", err)
	respondMessage(ctx, w, http.StatusInternalServerError, "internal", "internal server error")
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	w.WriteHeader(http.StatusMethodNotAllowed)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeAndValidate reads a JSON body into dst and runs its validate tags. It
// writes the 400 response itself and reports false on failure.
func decodeAndValidate(ctx context.Context, w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		logging.FromContext(ctx).Warn("invalid request payload", "error", err)
		respondMessage(ctx, w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return false
	}
	return validatePayload(ctx, w, dst)
}

func validatePayload(ctx context.Context, w http.ResponseWriter, payload any) bool {
	err := validate.Struct(payload)
	if err == nil {
		return true
	}

	var invalid validator.ValidationErrors
	if !errors.As(err, &invalid) {
		respondError(ctx, w, err)
		return false
	}

	fields := make(map[string]string, len(invalid))
	for _, fe := range invalid {
		fields[fe.Field()] = fieldMessage(fe)
	}
	respondJSON(ctx, w, http.StatusBadRequest, errorResponse{Error: "validation failed", Code: "invalid_request", Fields: fields})
	return false
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	default:
		return "is invalid"
	}
}
