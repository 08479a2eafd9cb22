package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"golang.org/x/oauth2"

	"code-to-content/internal/auth"
	"code-to-content/internal/store"
)

type createSessionRequest struct {
	ExternalID string `json:"externalId"`
	Name       string `json:"name"`
}

// createSession provisions the user on first sight and issues a session
// token. This stands in for the hosted identity provider's sign-in.
// POST /api/auth/sessions
func (h *Handler) createSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ExternalID == "" {
		respondWithError(w, http.StatusBadRequest, "externalId is required")
		return
	}
	if req.Name == "" {
		req.Name = req.ExternalID
	}

	user, err := h.store.EnsureUser(r.Context(), req.ExternalID, req.Name)
	if err != nil {
		h.logger.Error("Failed to provision user", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	token, err := h.sessions.Create(r.Context(), user.ExternalID)
	if err != nil {
		h.logger.Error("Failed to create session", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	respondWithJSON(w, http.StatusCreated, map[string]any{
		"token": token,
		"user":  user,
	})
}

// deleteSession revokes the caller's session token.
// DELETE /api/auth/sessions
func (h *Handler) deleteSession(w http.ResponseWriter, r *http.Request) {
	token := auth.TokenFrom(r)
	if err := h.sessions.Revoke(r.Context(), token); err != nil {
		h.logger.Error("Failed to revoke session", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// githubAuthorize redirects the caller to the GitHub authorization page,
// carrying the user's external id as the CSRF state token.
// GET /api/auth/github
func (h *Handler) githubAuthorize(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFrom(r.Context())

	if !h.oauth.Configured() {
		h.logger.Error("GITHUB_CLIENT_ID not configured")
		respondWithError(w, http.StatusInternalServerError, "GitHub OAuth not configured")
		return
	}

	http.Redirect(w, r, h.oauth.AuthorizeURL(user.ExternalID), http.StatusFound)
}

// githubCallback finishes the OAuth dance. Every outcome is a redirect back
// to the dashboard; failures carry a descriptive error code and are never
// retried here.
// GET /api/auth/github/callback
func (h *Handler) githubCallback(w http.ResponseWriter, r *http.Request) {
	redirectError := func(code string) {
		http.Redirect(w, r, h.appURL+"/dashboard?error="+code, http.StatusFound)
	}

	externalID, ok := auth.ExternalIDFrom(r.Context())
	if !ok {
		redirectError("unauthorized")
		return
	}

	query := r.URL.Query()

	// User denied access on the GitHub consent screen.
	if query.Get("error") != "" {
		h.logger.Warn("GitHub OAuth denied", "error", query.Get("error"))
		redirectError("github_denied")
		return
	}

	code := query.Get("code")
	state := query.Get("state")
	if code == "" || state == "" {
		redirectError("invalid_callback")
		return
	}

	// CSRF protection: state must match the authenticated user.
	if state != externalID {
		h.logger.Warn("State mismatch in OAuth callback")
		redirectError("invalid_state")
		return
	}

	token, err := h.oauth.Exchange(r.Context(), code)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			h.logger.Error("Token exchange rejected", "status", retrieveErr.Response.StatusCode)
			redirectError("token_exchange_failed")
		} else {
			h.logger.Error("Token exchange failed", "error", err)
			redirectError("token_error")
		}
		return
	}
	if token.AccessToken == "" {
		redirectError("token_error")
		return
	}

	user, ok := auth.UserFrom(r.Context())
	if !ok {
		h.logger.Error("User not found for session", "external_id", externalID)
		redirectError("user_not_found")
		return
	}

	err = h.store.UpsertToken(r.Context(), store.UpsertTokenParams{
		UserID:      user.ID,
		AccessToken: token.AccessToken,
		TokenType:   token.TokenType,
		Scope:       token.Scope,
	})
	if err != nil {
		h.logger.Error("Failed to store GitHub token", "error", err)
		redirectError("callback_failed")
		return
	}

	http.Redirect(w, r, h.appURL+"/dashboard/repositories/select?connected=true", http.StatusFound)
}
