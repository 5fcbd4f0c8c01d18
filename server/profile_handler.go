package server

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"unframe/logger"
	"unframe/storage"
)

// GetProfileHandler returns the caller's engagement status: counters,
// tier, persisted rewards, and anything that just became due.
func (h *APIHandler) GetProfileHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	status, err := h.engagement.Status(r.Context(), userID)
	if err != nil {
		logger.Error("[Profile] Failed to load status", logger.Int64("userId", userID), logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to load profile")
		return
	}

	// Time-based rules can unlock on a pure read; celebrate those too.
	if status.Unlock.Celebrated != "" {
		h.hub.SendToUser(userID, EventRewardUnlocked, map[string]interface{}{
			"rewardId": status.Unlock.Celebrated,
			"all":      status.Unlock.NewIDs,
		})
	}

	writeJSON(w, http.StatusOK, status)
}

// OnboardingHandler marks the caller as having seen onboarding.
func (h *APIHandler) OnboardingHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	if err := h.engagement.SetHasSeenOnboarding(r.Context(), userID); err != nil {
		logger.Error("[Profile] Failed to set onboarding flag", logger.Int64("userId", userID), logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to update profile")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"hasSeenOnboarding": true})
}

// UploadImageHandler stores an image (profile picture, or cover art
// for manual publishing flows) and returns its public URL. A failed
// upload is a notice to the caller, who may fall back to pasting a
// URL manually.
func (h *APIHandler) UploadImageHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	if err := r.ParseMultipartForm(16 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Image file is required")
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	contentType, ok := imageContentTypes[ext]
	if !ok {
		writeError(w, http.StatusBadRequest, "Unsupported image format")
		return
	}

	objectPath := fmt.Sprintf("images/%d_%s", userID, sanitizeObjectName(header.Filename))
	if _, err := storage.Upload(r.Context(), objectPath, contentType, file, header.Size); err != nil {
		logger.Error("[Upload] Image upload failed", logger.Int64("userId", userID), logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Image upload failed")
		return
	}

	url := mediaURL(objectPath)
	if r.FormValue("profile") == "true" {
		if err := h.engagement.SetProfileImage(r.Context(), userID, url); err != nil {
			logger.Warn("[Upload] Failed to persist profile image", logger.Int64("userId", userID), logger.ErrorField(err))
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}
