package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"code-to-content/internal/auth"
	apperrors "code-to-content/internal/errors"
)

const defaultRecentCommitLimit = 20

// listRecentCommits returns the newest commits across all of the caller's
// repositories, for the dashboard activity feed.
// GET /api/commits/recent
func (h *Handler) listRecentCommits(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFrom(r.Context())

	limit := defaultRecentCommitLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			respondWithError(w, http.StatusBadRequest, "Invalid 'limit' parameter")
			return
		}
		limit = parsed
	}

	commits, err := h.store.ListRecentCommits(r.Context(), user.ID, limit)
	if err != nil {
		h.logger.Error("Failed to list recent commits", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]any{"commits": commits})
}

type markProcessedRequest struct {
	CommitIDs *[]int64 `json:"commitIds"`
}

// markCommitsProcessed flags commits as consumed by content generation. The
// whole batch must belong to the caller or nothing is updated.
// POST /api/commits/processed
func (h *Handler) markCommitsProcessed(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFrom(r.Context())

	var req markProcessedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.CommitIDs == nil || len(*req.CommitIDs) == 0 {
		respondWithError(w, http.StatusBadRequest, "Invalid request: commitIds must be a non-empty array")
		return
	}

	updated, err := h.store.MarkCommitsProcessed(r.Context(), user.ID, *req.CommitIDs)
	if err != nil {
		var denied *apperrors.ErrAccessDenied
		if errors.As(err, &denied) {
			respondWithError(w, http.StatusNotFound, "One or more commits not found")
			return
		}
		h.logger.Error("Failed to mark commits processed", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"updated": updated,
	})
}
