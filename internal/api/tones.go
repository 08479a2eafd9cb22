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

func presetIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "presetID"), 10, 64)
}

// listTonePresets returns the caller's tone presets, optionally only the
// active ones.
// GET /api/tones?active=true
func (h *Handler) listTonePresets(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFrom(r.Context())

	var (
		presets []model.TonePreset
		err     error
	)
	if r.URL.Query().Get("active") == "true" {
		presets, err = h.store.ListActiveTonePresets(r.Context(), user.ID)
	} else {
		presets, err = h.store.ListTonePresets(r.Context(), user.ID)
	}
	if err != nil {
		h.logger.Error("Failed to list tone presets", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]any{"tones": presets})
}

type createTonePresetRequest struct {
	Name        string              `json:"name"`
	Description *string             `json:"description"`
	Settings    *model.ToneSettings `json:"settings"`
}

// createTonePreset stores a new custom tone preset.
// POST /api/tones
func (h *Handler) createTonePreset(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFrom(r.Context())

	var req createTonePresetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" || req.Settings == nil {
		respondWithError(w, http.StatusBadRequest, "name and settings are required")
		return
	}
	if req.Settings.Formality == "" || req.Settings.TechnicalDepth == "" {
		respondWithError(w, http.StatusBadRequest, "settings.formality and settings.technicalDepth are required")
		return
	}

	created, err := h.store.CreateTonePreset(r.Context(), model.TonePreset{
		UserID:      user.ID,
		Name:        req.Name,
		Description: req.Description,
		Settings:    *req.Settings,
	})
	if err != nil {
		h.logger.Error("Failed to create tone preset", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	respondWithJSON(w, http.StatusCreated, created)
}

type updateTonePresetRequest struct {
	Name        *string             `json:"name"`
	Description *string             `json:"description"`
	Settings    *model.ToneSettings `json:"settings"`
	IsActive    *bool               `json:"isActive"`
}

// updateTonePreset applies a partial update to a caller-owned preset.
// Default presets are read-only apart from the active flag.
// PATCH /api/tones/{presetID}
func (h *Handler) updateTonePreset(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFrom(r.Context())

	presetID, err := presetIDParam(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid preset id")
		return
	}

	var req updateTonePresetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	preset, err := h.store.GetTonePreset(r.Context(), user.ID, presetID)
	if err != nil {
		h.respondTonePresetError(w, err)
		return
	}
	if preset.IsDefault && (req.Name != nil || req.Description != nil || req.Settings != nil) {
		respondWithError(w, http.StatusForbidden, "Default tone presets cannot be edited")
		return
	}

	updated, err := h.store.UpdateTonePreset(r.Context(), store.UpdateTonePresetParams{
		PresetID:    preset.ID,
		Name:        req.Name,
		Description: req.Description,
		Settings:    req.Settings,
		IsActive:    req.IsActive,
	})
	if err != nil {
		h.respondTonePresetError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, updated)
}

// deleteTonePreset removes a caller-owned preset. Default presets are
// deactivated instead of deleted.
// DELETE /api/tones/{presetID}
func (h *Handler) deleteTonePreset(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFrom(r.Context())

	presetID, err := presetIDParam(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid preset id")
		return
	}

	preset, err := h.store.GetTonePreset(r.Context(), user.ID, presetID)
	if err != nil {
		h.respondTonePresetError(w, err)
		return
	}

	if preset.IsDefault {
		if err := h.store.SetTonePresetActive(r.Context(), preset.ID, false); err != nil {
			h.respondTonePresetError(w, err)
			return
		}
		respondWithJSON(w, http.StatusOK, map[string]any{"success": true, "deactivated": true})
		return
	}

	if err := h.store.DeleteTonePreset(r.Context(), preset.ID); err != nil {
		h.respondTonePresetError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// incrementTonePresetUsage bumps the usage counter after content generation
// picks a preset.
// POST /api/tones/{presetID}/usage
func (h *Handler) incrementTonePresetUsage(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFrom(r.Context())

	presetID, err := presetIDParam(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid preset id")
		return
	}

	preset, err := h.store.GetTonePreset(r.Context(), user.ID, presetID)
	if err != nil {
		h.respondTonePresetError(w, err)
		return
	}

	if err := h.store.IncrementTonePresetUsage(r.Context(), preset.ID); err != nil {
		h.respondTonePresetError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) respondTonePresetError(w http.ResponseWriter, err error) {
	var denied *apperrors.ErrAccessDenied
	if errors.As(err, &denied) || errors.Is(err, apperrors.ErrNotFound) {
		respondWithError(w, http.StatusNotFound, "Tone preset not found")
		return
	}
	h.logger.Error("Tone preset operation failed", "error", err)
	respondWithError(w, http.StatusInternalServerError, "Internal server error")
}
