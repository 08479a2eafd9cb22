package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"code-to-content/internal/auth"
	apperrors "code-to-content/internal/errors"
	"code-to-content/internal/syncer"
)

// Repositories not synced within this window are flagged as needing a sync.
const needsSyncThreshold = time.Hour

func (h *Handler) githubForUser(ctx context.Context, userID int64) (syncer.GitHubClient, error) {
	token, err := h.store.GetTokenByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return h.newGitHub(token.AccessToken), nil
}

func repositoryIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "repositoryID"), 10, 64)
}

type importableRepository struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	FullName    string    `json:"fullName"`
	Owner       string    `json:"owner"`
	URL         string    `json:"url"`
	Language    *string   `json:"language"`
	IsPrivate   bool      `json:"isPrivate"`
	Description *string   `json:"description"`
	Stars       int       `json:"stars"`
	Forks       int       `json:"forks"`
	UpdatedAt   time.Time `json:"updatedAt"`
	PushedAt    time.Time `json:"pushedAt"`
	IsConnected bool      `json:"isConnected"`
}

// listImportableRepositories returns the caller's remote repositories with a
// connection flag, most recently pushed first.
// GET /api/repositories/import
func (h *Handler) listImportableRepositories(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFrom(r.Context())

	gh, err := h.githubForUser(r.Context(), user.ID)
	if err != nil {
		if errors.Is(err, apperrors.ErrTokenMissing) {
			respondWithError(w, http.StatusUnauthorized, "GitHub token not found. Please reconnect GitHub.")
			return
		}
		h.logger.Error("Failed to load GitHub token", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	remotes, err := gh.ListAllRepositories(r.Context())
	if err != nil {
		h.logger.Error("Failed to fetch repositories", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to fetch repositories")
		return
	}

	connected, err := h.store.ListRepositories(r.Context(), user.ID)
	if err != nil {
		h.logger.Error("Failed to list repositories", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	connectedIDs := make(map[int64]bool, len(connected))
	for _, repo := range connected {
		connectedIDs[repo.GithubRepoID] = true
	}

	repos := make([]importableRepository, 0, len(remotes))
	for _, remote := range remotes {
		repos = append(repos, importableRepository{
			ID:          remote.GithubRepoID,
			Name:        remote.Name,
			FullName:    remote.FullName,
			Owner:       remote.Owner,
			URL:         remote.URL,
			Language:    remote.Language,
			IsPrivate:   remote.IsPrivate,
			Description: remote.Description,
			Stars:       remote.Stars,
			Forks:       remote.Forks,
			UpdatedAt:   remote.UpdatedAt,
			PushedAt:    remote.PushedAt,
			IsConnected: connectedIDs[remote.GithubRepoID],
		})
	}
	sort.Slice(repos, func(i, j int) bool {
		return repos[i].PushedAt.After(repos[j].PushedAt)
	})

	respondWithJSON(w, http.StatusOK, map[string]any{
		"repositories": repos,
		"total":        len(repos),
		"connected":    len(connectedIDs),
	})
}

type importRequest struct {
	RepositoryIDs *[]int64 `json:"repositoryIds"`
}

// importRepositories connects the selected remote repositories and pulls
// their recent history. Partial success is expected and surfaced per item.
// POST /api/repositories/import
func (h *Handler) importRepositories(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFrom(r.Context())

	var req importRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RepositoryIDs == nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request: repositoryIds must be an array")
		return
	}

	gh, err := h.githubForUser(r.Context(), user.ID)
	if err != nil {
		if errors.Is(err, apperrors.ErrTokenMissing) {
			respondWithError(w, http.StatusUnauthorized, "GitHub token not found. Please reconnect GitHub.")
			return
		}
		h.logger.Error("Failed to load GitHub token", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	imported, err := h.syncer.ImportRepositories(r.Context(), gh, user.ID, *req.RepositoryIDs)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			respondWithError(w, http.StatusNotFound, "No valid repositories found to import")
			return
		}
		h.logger.Error("Failed to import repositories", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to import repositories")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"imported": imported,
		"message":  fmt.Sprintf("Successfully imported %d repositories", len(imported)),
	})
}

type syncStatusEntry struct {
	ID           int64      `json:"id"`
	Name         string     `json:"name"`
	LastSyncedAt *time.Time `json:"lastSyncedAt"`
	TotalCommits int64      `json:"totalCommits"`
	NewCommits   int64      `json:"newCommits"`
	NeedsSync    bool       `json:"needsSync"`
}

// getSyncStatus reports per-repository sync freshness and commit counts.
// GET /api/repositories/sync
func (h *Handler) getSyncStatus(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFrom(r.Context())

	repos, err := h.store.ListRepositoriesWithStats(r.Context(), user.ID)
	if err != nil {
		h.logger.Error("Failed to list repositories", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to get sync status")
		return
	}

	cutoff := time.Now().Add(-needsSyncThreshold)
	entries := make([]syncStatusEntry, 0, len(repos))
	needsSync := make([]int64, 0)
	for _, repo := range repos {
		entry := syncStatusEntry{
			ID:           repo.ID,
			Name:         repo.Name,
			TotalCommits: repo.TotalCommits,
			NewCommits:   repo.NewCommits,
			NeedsSync:    true,
		}
		if repo.LastSyncedAt.Valid {
			ts := repo.LastSyncedAt.Time
			entry.LastSyncedAt = &ts
			entry.NeedsSync = ts.Before(cutoff)
		}
		if entry.NeedsSync {
			needsSync = append(needsSync, repo.ID)
		}
		entries = append(entries, entry)
	}

	respondWithJSON(w, http.StatusOK, map[string]any{
		"repositories": entries,
		"needsSync":    needsSync,
	})
}

type syncRequest struct {
	RepositoryID *int64 `json:"repositoryId"`
}

// syncRepositories incrementally syncs one or all active repositories.
// POST /api/repositories/sync
func (h *Handler) syncRepositories(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFrom(r.Context())

	// An empty or invalid body means "sync everything".
	var req syncRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	gh, err := h.githubForUser(r.Context(), user.ID)
	if err != nil {
		if errors.Is(err, apperrors.ErrTokenMissing) {
			respondWithError(w, http.StatusUnauthorized, "GitHub token not found. Please reconnect GitHub.")
			return
		}
		h.logger.Error("Failed to load GitHub token", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	var synced []syncer.SyncItem
	if req.RepositoryID != nil {
		synced, err = h.syncer.SyncOne(r.Context(), gh, user.ID, *req.RepositoryID)
	} else {
		synced, err = h.syncer.SyncAll(r.Context(), gh, user.ID)
	}
	if err != nil {
		var denied *apperrors.ErrAccessDenied
		if errors.As(err, &denied) || errors.Is(err, apperrors.ErrNotFound) {
			respondWithError(w, http.StatusNotFound, "Repository not found")
			return
		}
		h.logger.Error("Failed to sync repositories", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to sync repositories")
		return
	}

	if len(synced) == 0 {
		respondWithJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"message": "No repositories to sync",
			"synced":  []syncer.SyncItem{},
		})
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]any{
		"success":         true,
		"message":         fmt.Sprintf("Synced %d repositories", len(synced)),
		"totalNewCommits": syncer.TotalNewCommits(synced),
		"synced":          synced,
	})
}

// listRepositories returns the caller's repositories with per-request
// computed commit counts.
// GET /api/repositories
func (h *Handler) listRepositories(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFrom(r.Context())

	repos, err := h.store.ListRepositoriesWithStats(r.Context(), user.ID)
	if err != nil {
		h.logger.Error("Failed to list repositories", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]any{"repositories": repos})
}

// toggleRepository flips a repository's active flag.
// POST /api/repositories/{repositoryID}/toggle
func (h *Handler) toggleRepository(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFrom(r.Context())

	repoID, err := repositoryIDParam(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid repository id")
		return
	}

	repo, err := h.store.GetRepository(r.Context(), user.ID, repoID)
	if err != nil {
		h.respondRepositoryError(w, err)
		return
	}

	if err := h.store.SetRepositoryActive(r.Context(), repo.ID, !repo.IsActive); err != nil {
		h.logger.Error("Failed to toggle repository", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"isActive": !repo.IsActive,
	})
}

// disconnectRepository deletes a repository and, via cascade, its commits.
// DELETE /api/repositories/{repositoryID}
func (h *Handler) disconnectRepository(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFrom(r.Context())

	repoID, err := repositoryIDParam(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid repository id")
		return
	}

	repo, err := h.store.GetRepository(r.Context(), user.ID, repoID)
	if err != nil {
		h.respondRepositoryError(w, err)
		return
	}

	if err := h.store.DeleteRepository(r.Context(), repo.ID); err != nil {
		h.logger.Error("Failed to disconnect repository", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// listRepositoryCommits returns a repository's commits, newest first, with
// optional processed filter and limit.
// GET /api/repositories/{repositoryID}/commits
func (h *Handler) listRepositoryCommits(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFrom(r.Context())

	repoID, err := repositoryIDParam(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid repository id")
		return
	}

	repo, err := h.store.GetRepository(r.Context(), user.ID, repoID)
	if err != nil {
		h.respondRepositoryError(w, err)
		return
	}

	var processed *bool
	if raw := r.URL.Query().Get("processed"); raw != "" {
		value, err := strconv.ParseBool(raw)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid 'processed' parameter")
			return
		}
		processed = &value
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 0 {
			respondWithError(w, http.StatusBadRequest, "Invalid 'limit' parameter")
			return
		}
	}

	commits, err := h.store.ListCommitsByRepository(r.Context(), repo.ID, processed, limit)
	if err != nil {
		h.logger.Error("Failed to list commits", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]any{"commits": commits})
}

// deleteOldCommits is the retention sweep: it removes commits committed
// before the caller-supplied day threshold.
// DELETE /api/repositories/{repositoryID}/commits?olderThanDays=N
func (h *Handler) deleteOldCommits(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFrom(r.Context())

	repoID, err := repositoryIDParam(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid repository id")
		return
	}

	days, err := strconv.Atoi(r.URL.Query().Get("olderThanDays"))
	if err != nil || days <= 0 {
		respondWithError(w, http.StatusBadRequest, "Invalid 'olderThanDays' parameter. Must be a positive integer.")
		return
	}

	repo, err := h.store.GetRepository(r.Context(), user.ID, repoID)
	if err != nil {
		h.respondRepositoryError(w, err)
		return
	}

	cutoff := time.Now().Add(-time.Duration(days) * 24 * time.Hour)
	deleted, err := h.store.DeleteCommitsOlderThan(r.Context(), repo.ID, cutoff)
	if err != nil {
		h.logger.Error("Failed to delete old commits", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"deleted": deleted,
	})
}

// getRepositoryStats aggregates commit counters for one repository.
// GET /api/repositories/{repositoryID}/stats
func (h *Handler) getRepositoryStats(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFrom(r.Context())

	repoID, err := repositoryIDParam(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid repository id")
		return
	}

	repo, err := h.store.GetRepository(r.Context(), user.ID, repoID)
	if err != nil {
		h.respondRepositoryError(w, err)
		return
	}

	stats, err := h.store.GetCommitStats(r.Context(), repo.ID)
	if err != nil {
		h.logger.Error("Failed to get commit stats", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	respondWithJSON(w, http.StatusOK, stats)
}

func (h *Handler) respondRepositoryError(w http.ResponseWriter, err error) {
	var denied *apperrors.ErrAccessDenied
	if errors.As(err, &denied) || errors.Is(err, apperrors.ErrNotFound) {
		respondWithError(w, http.StatusNotFound, "Repository not found")
		return
	}
	h.logger.Error("Failed to get repository", "error", err)
	respondWithError(w, http.StatusInternalServerError, "Internal server error")
}
