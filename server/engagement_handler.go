package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"unframe/core/engagement"
	"unframe/logger"

	"github.com/gorilla/mux"
)

// RecordListenHandler counts one playback start for the caller.
// Duplicate reports inside the dedup window return the current status
// without incrementing.
func (h *APIHandler) RecordListenHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req struct {
		TrackID int64 `json:"trackId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	track, err := h.trackRepo.GetTrackByID(req.TrackID)
	if err != nil {
		logger.Error("[Listen] Failed to load track", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to load track")
		return
	}
	if track == nil {
		writeError(w, http.StatusNotFound, "Track not found")
		return
	}

	status, err := h.engagement.RecordListen(r.Context(), userID, req.TrackID)
	if err != nil {
		logger.Error("[Listen] Failed to record listen", logger.Int64("userId", userID), logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to record listen")
		return
	}

	h.afterEngagement(userID, status)
	writeJSON(w, http.StatusOK, status)
}

// RecordShareHandler counts one completed share. Clients only call
// this after the share sheet or clipboard copy actually succeeded;
// a cancelled share never produces a request.
func (h *APIHandler) RecordShareHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	status, err := h.engagement.RecordShare(r.Context(), userID)
	if err != nil {
		logger.Error("[Share] Failed to record share", logger.Int64("userId", userID), logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to record share")
		return
	}

	h.afterEngagement(userID, status)
	writeJSON(w, http.StatusOK, status)
}

// ToggleLikeHandler flips liked state for (caller, track).
func (h *APIHandler) ToggleLikeHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	vars := mux.Vars(r)
	trackID, err := strconv.ParseInt(vars["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid track ID")
		return
	}

	track, err := h.trackRepo.GetTrackByID(trackID)
	if err != nil {
		logger.Error("[Like] Failed to load track", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to load track")
		return
	}
	if track == nil {
		writeError(w, http.StatusNotFound, "Track not found")
		return
	}

	liked, status, err := h.engagement.ToggleLike(r.Context(), userID, trackID)
	if err != nil {
		logger.Error("[Like] Failed to toggle like", logger.Int64("userId", userID), logger.Int64("trackId", trackID), logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to toggle like")
		return
	}

	h.afterEngagement(userID, status)
	h.hub.SendToUser(userID, EventLikeChanged, map[string]interface{}{
		"trackId": trackID,
		"liked":   liked,
	})

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"trackId": trackID,
		"liked":   liked,
		"status":  status,
	})
}

// GetLikesHandler returns the caller's like records, newest first.
func (h *APIHandler) GetLikesHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	likes, err := h.likeRepo.GetLikesByUser(r.Context(), userID)
	if err != nil {
		logger.Error("[Like] Failed to load likes", logger.Int64("userId", userID), logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to load likes")
		return
	}
	writeJSON(w, http.StatusOK, likes)
}

// afterEngagement pushes the updated counters to the user's live
// sessions, and separately announces a celebrated unlock.
func (h *APIHandler) afterEngagement(userID int64, status *engagement.Status) {
	if status == nil {
		return
	}
	h.hub.SendToUser(userID, EventProfileUpdated, status)
	if status.Unlock.Celebrated != "" {
		h.hub.SendToUser(userID, EventRewardUnlocked, map[string]interface{}{
			"rewardId": status.Unlock.Celebrated,
			"all":      status.Unlock.NewIDs,
		})
	}
}
