package handlers

import "net/http"

// DashboardHandler renders the caller's merged view.
type DashboardHandler struct {
	Materials MaterialService
}

// Handle implements GET /api/v1/dashboard.
func (h DashboardHandler) Handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	ctx := r.Context()
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	if h.Materials == nil {
		respondMessage(ctx, w, http.StatusInternalServerError, "internal", "material service unavailable")
		return
	}

	dashboard, err := h.Materials.Dashboard(ctx, user)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, dashboard)
}
