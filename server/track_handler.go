package server

import (
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"unframe/logger"
	"unframe/model"
	"unframe/storage"

	"github.com/gorilla/mux"
)

// trackResponse flattens the nullable columns and turns object paths
// into fetchable media URLs.
type trackResponse struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	Artist      string  `json:"artist"`
	AudioURL    string  `json:"audioUrl"`
	ImageURL    string  `json:"imageUrl,omitempty"`
	Description string  `json:"description,omitempty"`
	Tag         string  `json:"tag,omitempty"`
	Duration    float32 `json:"duration"`
	CreatedAt   int64   `json:"createdAt"` // epoch millis
}

func mediaURL(objectPath string) string {
	if objectPath == "" {
		return ""
	}
	return "/media/" + objectPath
}

func toTrackResponse(t *model.Track) trackResponse {
	resp := trackResponse{
		ID:        t.ID,
		Title:     t.Title,
		Artist:    t.Artist,
		AudioURL:  mediaURL(t.AudioPath),
		Duration:  t.Duration,
		CreatedAt: t.CreatedAt.UnixMilli(),
	}
	if t.CoverPath.Valid {
		resp.ImageURL = mediaURL(t.CoverPath.String)
	}
	if t.Description.Valid {
		resp.Description = t.Description.String
	}
	if t.Tag.Valid {
		resp.Tag = t.Tag.String
	}
	return resp
}

// GetTracksHandler returns the public catalog, newest first.
func (h *APIHandler) GetTracksHandler(w http.ResponseWriter, r *http.Request) {
	tracks, err := h.trackRepo.GetAllTracks()
	if err != nil {
		logger.Error("[Tracks] Failed to load catalog", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to load catalog")
		return
	}

	out := make([]trackResponse, 0, len(tracks))
	for _, t := range tracks {
		out = append(out, toTrackResponse(t))
	}
	writeJSON(w, http.StatusOK, out)
}

var audioContentTypes = map[string]string{
	".mp3":  "audio/mpeg",
	".flac": "audio/flac",
	".wav":  "audio/wav",
	".m4a":  "audio/mp4",
	".ogg":  "audio/ogg",
}

var imageContentTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".webp": "image/webp",
	".gif":  "image/gif",
}

// PublishTrackHandler creates a catalog entry from a multipart form:
// metadata fields plus an audio file and an optional cover image.
// Admin only.
func (h *APIHandler) PublishTrackHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(128 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	title := strings.TrimSpace(r.FormValue("title"))
	if title == "" {
		writeError(w, http.StatusBadRequest, "Title is required")
		return
	}
	artist := strings.TrimSpace(r.FormValue("artist"))
	description := strings.TrimSpace(r.FormValue("description"))
	tag := strings.TrimSpace(r.FormValue("tag"))

	audioFile, audioHeader, err := r.FormFile("audio")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Audio file is required")
		return
	}
	defer audioFile.Close()

	audioExt := strings.ToLower(filepath.Ext(audioHeader.Filename))
	audioType, ok := audioContentTypes[audioExt]
	if !ok {
		writeError(w, http.StatusBadRequest, "Unsupported audio format")
		return
	}

	audioPath := fmt.Sprintf("audio/%d_%s", audioHeader.Size, sanitizeObjectName(audioHeader.Filename))
	if _, err := storage.Upload(r.Context(), audioPath, audioType, audioFile, audioHeader.Size); err != nil {
		logger.Error("[Publish] Audio upload failed", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Audio upload failed")
		return
	}

	track := &model.Track{
		Title:     title,
		Artist:    artist,
		AudioPath: audioPath,
	}
	if description != "" {
		track.Description = sql.NullString{String: description, Valid: true}
	}
	if tag != "" {
		track.Tag = sql.NullString{String: tag, Valid: true}
	}

	// Cover is optional; a failed cover upload leaves the field blank
	// rather than failing the publish.
	if coverFile, coverHeader, err := r.FormFile("cover"); err == nil {
		defer coverFile.Close()
		coverExt := strings.ToLower(filepath.Ext(coverHeader.Filename))
		if coverType, ok := imageContentTypes[coverExt]; ok {
			coverPath := fmt.Sprintf("covers/%d_%s", coverHeader.Size, sanitizeObjectName(coverHeader.Filename))
			if _, err := storage.Upload(r.Context(), coverPath, coverType, coverFile, coverHeader.Size); err != nil {
				logger.Warn("[Publish] Cover upload failed, leaving blank", logger.ErrorField(err))
			} else {
				track.CoverPath = sql.NullString{String: coverPath, Valid: true}
			}
		}
	}

	id, err := h.trackRepo.CreateTrack(track)
	if err != nil {
		logger.Error("[Publish] Failed to create track", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to create track")
		return
	}
	track.ID = id

	logger.Info("[Publish] Track published", logger.Int64("trackId", id), logger.String("title", title))
	h.hub.BroadcastCatalogChanged()

	created, err := h.trackRepo.GetTrackByID(id)
	if err != nil || created == nil {
		writeJSON(w, http.StatusCreated, toTrackResponse(track))
		return
	}
	writeJSON(w, http.StatusCreated, toTrackResponse(created))
}

// DeleteTrackHandler removes a track, its like records, and its
// stored objects. Admin only.
func (h *APIHandler) DeleteTrackHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := strconv.ParseInt(vars["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid track ID")
		return
	}

	track, err := h.trackRepo.GetTrackByID(id)
	if err != nil {
		logger.Error("[Delete] Failed to load track", logger.Int64("trackId", id), logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to load track")
		return
	}
	if track == nil {
		writeError(w, http.StatusNotFound, "Track not found")
		return
	}

	if err := h.trackRepo.DeleteTrack(id); err != nil {
		logger.Error("[Delete] Failed to delete track", logger.Int64("trackId", id), logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to delete track")
		return
	}
	if err := h.likeRepo.DeleteLikesForTrack(r.Context(), id); err != nil {
		logger.Warn("[Delete] Failed to clear likes for track", logger.Int64("trackId", id), logger.ErrorField(err))
	}

	// Best-effort object cleanup; orphaned objects are harmless.
	if err := storage.Remove(r.Context(), track.AudioPath); err != nil {
		logger.Warn("[Delete] Failed to remove audio object", logger.ErrorField(err))
	}
	if track.CoverPath.Valid {
		if err := storage.Remove(r.Context(), track.CoverPath.String); err != nil {
			logger.Warn("[Delete] Failed to remove cover object", logger.ErrorField(err))
		}
	}

	logger.Info("[Delete] Track deleted", logger.Int64("trackId", id), logger.String("title", track.Title))
	h.hub.BroadcastCatalogChanged()
	writeJSON(w, http.StatusOK, map[string]interface{}{"deleted": id})
}

// MediaHandler streams a stored object (audio or cover art).
func (h *APIHandler) MediaHandler(w http.ResponseWriter, r *http.Request) {
	objectPath := strings.TrimPrefix(r.URL.Path, "/media/")
	if objectPath == "" || strings.Contains(objectPath, "..") {
		writeError(w, http.StatusBadRequest, "Invalid object path")
		return
	}

	object, err := storage.Get(r.Context(), objectPath)
	if err != nil {
		writeError(w, http.StatusNotFound, "Object not found")
		return
	}
	defer object.Close()

	stat, err := object.Stat()
	if err != nil {
		writeError(w, http.StatusNotFound, "Object not found")
		return
	}

	ext := strings.ToLower(filepath.Ext(objectPath))
	contentType := stat.ContentType
	if contentType == "" {
		if t, ok := audioContentTypes[ext]; ok {
			contentType = t
		} else if t, ok := imageContentTypes[ext]; ok {
			contentType = t
		} else {
			contentType = "application/octet-stream"
		}
	}

	serveMedia(w, r, filepath.Base(objectPath), contentType, stat.LastModified, object)
}

// serveMedia writes an object honoring Range requests, so audio
// elements can seek without downloading the whole track.
func serveMedia(w http.ResponseWriter, r *http.Request, name, contentType string, modTime time.Time, content io.ReadSeeker) {
	w.Header().Set("Content-Type", contentType)
	http.ServeContent(w, r, name, modTime, content)
}

var objectNameSanitizer = strings.NewReplacer(" ", "_", "/", "_", "\\", "_", "#", "_", "?", "_", "&", "_")

func sanitizeObjectName(name string) string {
	return objectNameSanitizer.Replace(name)
}
