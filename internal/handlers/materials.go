package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/studyshare/backend/internal/logging"
	"github.com/studyshare/backend/internal/materials"
	"github.com/studyshare/backend/internal/models"
	"github.com/studyshare/backend/internal/storage"
)

const (
	// formOverhead is slack for multipart boundaries and text fields on top of
	// the file size limit.
	formOverhead     = 1 << 20
	multipartMemory  = 8 << 20
	methodOverride   = "_method"
	overrideHeader   = "X-HTTP-Method-Override"
	materialFileForm = "file"
)

var errBadForm = errors.New("invalid form")

// MaterialHandler exposes material CRUD and the visible feed.
type MaterialHandler struct {
	Materials      MaterialService
	MaxUploadBytes int64
}

// Collection handles GET (visible feed) and POST (create) on /api/v1/materials.
func (h MaterialHandler) Collection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.list(w, r)
	case http.MethodPost:
		h.create(w, r)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

// Item handles GET, PUT and DELETE on /api/v1/materials/{id}. Browser forms
// may POST with a _method override of PUT or DELETE.
func (h MaterialHandler) Item(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, ok := currentUser(w, r)
	if !ok || !h.available(w, r) {
		return
	}
	id := r.PathValue("id")

	method := r.Method
	var form materialForm
	if method == http.MethodPost || method == http.MethodPut {
		parsed, cleanup, err := h.parseForm(w, r)
		defer cleanup()
		if err != nil {
			h.formError(w, r, err)
			return
		}
		form = parsed
		if method == http.MethodPost {
			method = overriddenMethod(r, form)
		}
	}

	switch method {
	case http.MethodGet:
		material, err := h.Materials.Get(ctx, id, user)
		if err != nil {
			respondError(ctx, w, err)
			return
		}
		respondJSON(ctx, w, http.StatusOK, materialResponse{Material: material})
	case http.MethodPut:
		// Ownership is settled before the payload is validated.
		if _, err := h.Materials.Get(ctx, id, user); err != nil {
			respondError(ctx, w, err)
			return
		}
		if !validatePayload(ctx, w, &form) {
			return
		}
		material, err := h.Materials.Update(ctx, id, user, materials.UpdateInput{
			Title:       form.Title,
			Description: form.Description,
			File:        form.file,
		})
		if err != nil {
			respondError(ctx, w, err)
			return
		}
		respondJSON(ctx, w, http.StatusOK, materialResponse{Material: material})
	case http.MethodDelete:
		if err := h.Materials.Delete(ctx, id, user); err != nil {
			respondError(ctx, w, err)
			return
		}
		respondJSON(ctx, w, http.StatusOK, messageResponse{Message: "Material deleted."})
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}

func (h MaterialHandler) list(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, ok := currentUser(w, r)
	if !ok || !h.available(w, r) {
		return
	}

	views, err := h.Materials.ListVisible(ctx, user)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	if views == nil {
		views = []models.MaterialView{}
	}

	respondJSON(ctx, w, http.StatusOK, materialListResponse{Materials: views})
}

func (h MaterialHandler) create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, ok := currentUser(w, r)
	if !ok || !h.available(w, r) {
		return
	}

	form, cleanup, err := h.parseForm(w, r)
	defer cleanup()
	if err != nil {
		h.formError(w, r, err)
		return
	}
	if !validatePayload(ctx, w, &form) {
		return
	}

	material, err := h.Materials.Create(ctx, user, materials.CreateInput{
		Title:       form.Title,
		Description: form.Description,
		File:        form.file,
	})
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusCreated, materialResponse{Material: material})
}

// parseForm reads a material from a multipart, urlencoded or JSON body. The
// returned cleanup must always be called.
func (h MaterialHandler) parseForm(w http.ResponseWriter, r *http.Request) (materialForm, func(), error) {
	noop := func() {}
	var form materialForm

	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		mediaType = ""
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes()+formOverhead)

	switch mediaType {
	case "application/json":
		if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
			return form, noop, tooLargeOr(err)
		}
		return form, noop, nil
	case "multipart/form-data":
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			return form, noop, tooLargeOr(err)
		}
	case "application/x-www-form-urlencoded", "":
		if err := r.ParseForm(); err != nil {
			return form, noop, tooLargeOr(err)
		}
	default:
		return form, noop, fmt.Errorf("%w: content type %q", errBadForm, mediaType)
	}

	form.Title = r.FormValue("title")
	form.Description = r.FormValue("description")
	form.Method = r.FormValue(methodOverride)

	if r.MultipartForm == nil {
		return form, noop, nil
	}
	cleanup := func() { _ = r.MultipartForm.RemoveAll() }

	file, header, err := r.FormFile(materialFileForm)
	switch {
	case errors.Is(err, http.ErrMissingFile):
		return form, cleanup, nil
	case err != nil:
		return form, cleanup, fmt.Errorf("%w: %v", errBadForm, err)
	}

	if header.Size == 0 {
		// An empty file input means no file was chosen.
		_ = file.Close()
		return form, cleanup, nil
	}

	form.file = &materials.Upload{Name: header.Filename, Size: header.Size, Body: file}
	return form, func() {
		_ = file.Close()
		cleanup()
	}, nil
}

func (h MaterialHandler) formError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	if errors.Is(err, storage.ErrTooLarge) {
		respondError(ctx, w, err)
		return
	}
	logging.FromContext(ctx).Warn("invalid material form", "error", err)
	respondMessage(ctx, w, http.StatusBadRequest, "invalid_request", "invalid request body")
}

func (h MaterialHandler) maxUploadBytes() int64 {
	if h.MaxUploadBytes > 0 {
		return h.MaxUploadBytes
	}
	return storage.DefaultMaxUploadBytes
}

func (h MaterialHandler) available(w http.ResponseWriter, r *http.Request) bool {
	if h.Materials != nil {
		return true
	}
	logging.FromContext(r.Context()).Error("material service unavailable")
	respondMessage(r.Context(), w, http.StatusInternalServerError, "internal", "material service unavailable")
	return false
}

func overriddenMethod(r *http.Request, form materialForm) string {
	override := form.Method
	if override == "" {
		override = r.Header.Get(overrideHeader)
	}
	if override == "" {
		override = r.URL.Query().Get(methodOverride)
	}
	switch m := strings.ToUpper(strings.TrimSpace(override)); m {
	case http.MethodPut, http.MethodDelete:
		return m
	default:
		return http.MethodPost
	}
}

func tooLargeOr(err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return fmt.Errorf("%w: request body exceeds %d bytes", storage.ErrTooLarge, maxErr.Limit)
	}
	if errors.Is(err, multipart.ErrMessageTooLarge) {
		return fmt.Errorf("%w: %v", storage.ErrTooLarge, err)
	}
	if errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: empty body", errBadForm)
	}
	return fmt.Errorf("%w: %v", errBadForm, err)
}

type materialForm struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"max=5000"`
	Method      string `json:"_method"`
	file        *materials.Upload
}

type materialResponse struct {
	Material models.Material `json:"material"`
}

type materialListResponse struct {
	Materials []models.MaterialView `json:"materials"`
}
