package handlers

import (
	"net/http"

	"github.com/studyshare/backend/internal/logging"
	"github.com/studyshare/backend/internal/models"
)

// FriendHandler exposes friend list management.
type FriendHandler struct {
	Friends FriendService
}

// Collection handles GET (list) and POST (add) on /api/v1/friends.
func (h FriendHandler) Collection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.list(w, r)
	case http.MethodPost:
		h.add(w, r)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

// Remove handles DELETE /api/v1/friends/{id} and POST /api/v1/friends/{id}/remove.
func (h FriendHandler) Remove(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete && r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodDelete, http.MethodPost)
		return
	}

	ctx := r.Context()
	user, ok := currentUser(w, r)
	if !ok || !h.available(w, r) {
		return
	}

	if err := h.Friends.Remove(ctx, user, r.PathValue("id")); err != nil {
		respondError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, messageResponse{Message: "Friend removed."})
}

func (h FriendHandler) list(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, ok := currentUser(w, r)
	if !ok || !h.available(w, r) {
		return
	}

	profiles, err := h.Friends.List(ctx, user)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	if profiles == nil {
		profiles = []models.Profile{}
	}

	respondJSON(ctx, w, http.StatusOK, friendListResponse{Friends: profiles})
}

func (h FriendHandler) add(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, ok := currentUser(w, r)
	if !ok || !h.available(w, r) {
		return
	}

	var req emailRequest
	if !decodeAndValidate(ctx, w, r, &req) {
		return
	}

	profile, err := h.Friends.Add(ctx, user, req.Email)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusCreated, friendResponse{Friend: profile})
}

func (h FriendHandler) available(w http.ResponseWriter, r *http.Request) bool {
	if h.Friends != nil {
		return true
	}
	logging.FromContext(r.Context()).Error("friend service unavailable")
	respondMessage(r.Context(), w, http.StatusInternalServerError, "internal", "friend service unavailable")
	return false
}

type friendListResponse struct {
	Friends []models.Profile `json:"friends"`
}

type friendResponse struct {
	Friend models.Profile `json:"friend"`
}
