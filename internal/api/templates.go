package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"code-to-content/internal/auth"
	apperrors "code-to-content/internal/errors"
	"code-to-content/internal/model"
	"code-to-content/internal/store"
)

func templateIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "templateID"), 10, 64)
}

// listTemplates returns the caller's templates, optionally narrowed by
// category or to active ones only.
// GET /api/templates?category=...&active=true
func (h *Handler) listTemplates(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFrom(r.Context())
	query := r.URL.Query()

	var (
		templates []model.Template
		err       error
	)
	switch {
	case query.Get("category") != "":
		templates, err = h.store.ListTemplatesByCategory(r.Context(), user.ID, query.Get("category"))
	case query.Get("active") == "true":
		templates, err = h.store.ListActiveTemplates(r.Context(), user.ID)
	default:
		templates, err = h.store.ListTemplates(r.Context(), user.ID)
	}
	if err != nil {
		h.logger.Error("Failed to list templates", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]any{"templates": templates})
}

type createTemplateRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
	Category    string  `json:"category"`
	Structure   string  `json:"structure"`
}

// createTemplate stores a new custom template.
// POST /api/templates
func (h *Handler) createTemplate(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFrom(r.Context())

	var req createTemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" || req.Category == "" || req.Structure == "" {
		respondWithError(w, http.StatusBadRequest, "name, category and structure are required")
		return
	}

	created, err := h.store.CreateTemplate(r.Context(), model.Template{
		UserID:      user.ID,
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		Structure:   req.Structure,
	})
	if err != nil {
		h.logger.Error("Failed to create template", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	respondWithJSON(w, http.StatusCreated, created)
}

type updateTemplateRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Category    *string `json:"category"`
	Structure   *string `json:"structure"`
	IsActive    *bool   `json:"isActive"`
}

// updateTemplate applies a partial update to a caller-owned template.
// Default templates are read-only apart from the active flag.
// PATCH /api/templates/{templateID}
func (h *Handler) updateTemplate(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFrom(r.Context())

	templateID, err := templateIDParam(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid template id")
		return
	}

	var req updateTemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	template, err := h.store.GetTemplate(r.Context(), user.ID, templateID)
	if err != nil {
		h.respondTemplateError(w, err)
		return
	}
	if template.IsDefault && (req.Name != nil || req.Description != nil || req.Category != nil || req.Structure != nil) {
		respondWithError(w, http.StatusForbidden, "Default templates cannot be edited")
		return
	}

	updated, err := h.store.UpdateTemplate(r.Context(), store.UpdateTemplateParams{
		TemplateID:  template.ID,
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		Structure:   req.Structure,
		IsActive:    req.IsActive,
	})
	if err != nil {
		h.respondTemplateError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, updated)
}

// deleteTemplate removes a caller-owned template. Default templates are
// deactivated instead of deleted.
// DELETE /api/templates/{templateID}
func (h *Handler) deleteTemplate(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFrom(r.Context())

	templateID, err := templateIDParam(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid template id")
		return
	}

	template, err := h.store.GetTemplate(r.Context(), user.ID, templateID)
	if err != nil {
		h.respondTemplateError(w, err)
		return
	}

	if template.IsDefault {
		if err := h.store.SetTemplateActive(r.Context(), template.ID, false); err != nil {
			h.respondTemplateError(w, err)
			return
		}
		respondWithJSON(w, http.StatusOK, map[string]any{"success": true, "deactivated": true})
		return
	}

	if err := h.store.DeleteTemplate(r.Context(), template.ID); err != nil {
		h.respondTemplateError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// duplicateTemplate copies a template into a new caller-owned custom one.
// POST /api/templates/{templateID}/duplicate
func (h *Handler) duplicateTemplate(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFrom(r.Context())

	templateID, err := templateIDParam(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid template id")
		return
	}

	template, err := h.store.GetTemplate(r.Context(), user.ID, templateID)
	if err != nil {
		h.respondTemplateError(w, err)
		return
	}

	copied, err := h.store.CreateTemplate(r.Context(), model.Template{
		UserID:      user.ID,
		Name:        template.Name + " (Copy)",
		Description: template.Description,
		Category:    template.Category,
		Structure:   template.Structure,
	})
	if err != nil {
		h.logger.Error("Failed to duplicate template", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	respondWithJSON(w, http.StatusCreated, copied)
}

// incrementTemplateUsage bumps the usage counter after content generation
// picks a template.
// POST /api/templates/{templateID}/usage
func (h *Handler) incrementTemplateUsage(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFrom(r.Context())

	templateID, err := templateIDParam(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid template id")
		return
	}

	template, err := h.store.GetTemplate(r.Context(), user.ID, templateID)
	if err != nil {
		h.respondTemplateError(w, err)
		return
	}

	if err := h.store.IncrementTemplateUsage(r.Context(), template.ID); err != nil {
		h.respondTemplateError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) respondTemplateError(w http.ResponseWriter, err error) {
	var denied *apperrors.ErrAccessDenied
	if errors.As(err, &denied) || errors.Is(err, apperrors.ErrNotFound) {
		respondWithError(w, http.StatusNotFound, "Template not found")
		return
	}
	h.logger.Error("Template operation failed", "error", err)
	respondWithError(w, http.StatusInternalServerError, "Internal server error")
}
