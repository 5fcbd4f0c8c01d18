package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"unframe/cache"
	"unframe/config"
	"unframe/core/auth"
	"unframe/core/engagement"
	"unframe/logger"
	"unframe/repository"
)

type contextKey string

const (
	ctxUserID    contextKey = "userID"
	ctxUsername  contextKey = "username"
	ctxEmail     contextKey = "email"
	ctxAnonymous contextKey = "anonymous"
)

// APIHandler handles all API requests.
type APIHandler struct {
	trackRepo  repository.TrackRepository
	userRepo   repository.UserRepository
	likeRepo   repository.LikeRepository
	engagement *engagement.Service
	sessions   *cache.SessionCache
	hub        *EventsHub
	cfg        *config.Config
}

// NewAPIHandler creates a new API handler.
func NewAPIHandler(
	trackRepo repository.TrackRepository,
	userRepo repository.UserRepository,
	likeRepo repository.LikeRepository,
	engagementSvc *engagement.Service,
	sessions *cache.SessionCache,
	hub *EventsHub,
	cfg *config.Config,
) *APIHandler {
	return &APIHandler{
		trackRepo:  trackRepo,
		userRepo:   userRepo,
		likeRepo:   likeRepo,
		engagement: engagementSvc,
		sessions:   sessions,
		hub:        hub,
		cfg:        cfg,
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			logger.Error("[HTTP] Failed to encode response", logger.ErrorField(err))
		}
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// AuthMiddleware checks for a valid Bearer token and loads the
// identity into the request context.
func (h *APIHandler) AuthMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeError(w, http.StatusUnauthorized, "Authorization header is required")
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			writeError(w, http.StatusUnauthorized, "Invalid authorization header format")
			return
		}

		claims, err := auth.ParseToken(parts[1])
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), ctxUserID, claims.UserID)
		ctx = context.WithValue(ctx, ctxUsername, claims.Username)
		ctx = context.WithValue(ctx, ctxEmail, claims.Email)
		ctx = context.WithValue(ctx, ctxAnonymous, claims.Anonymous)

		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

// AdminMiddleware allows only identities whose email is on the admin
// allow-list. Must be stacked inside AuthMiddleware.
func (h *APIHandler) AdminMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		email, _ := r.Context().Value(ctxEmail).(string)
		if !h.cfg.IsAdmin(email) {
			username, _ := r.Context().Value(ctxUsername).(string)
			logger.Warn("[Auth] Admin action denied", logger.String("username", username))
			writeError(w, http.StatusForbidden, "Admin privileges required")
			return
		}
		next.ServeHTTP(w, r)
	}
}

// GetUserIDFromContext extracts the user ID from the request context.
func GetUserIDFromContext(ctx context.Context) (int64, error) {
	userID, ok := ctx.Value(ctxUserID).(int64)
	if !ok {
		return 0, fmt.Errorf("user ID not found in context")
	}
	return userID, nil
}

// GetUsernameFromContext extracts the username from the request context.
func GetUsernameFromContext(ctx context.Context) (string, error) {
	username, ok := ctx.Value(ctxUsername).(string)
	if !ok {
		return "", fmt.Errorf("username not found in context")
	}
	return username, nil
}
