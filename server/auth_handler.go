package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"unframe/core/auth"
	"unframe/logger"
	"unframe/model"

	"github.com/google/uuid"
)

// RegisterRequest represents the registration request body.
type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
}

type authResponse struct {
	Token   string      `json:"token"`
	User    *model.User `json:"user"`
	IsAdmin bool        `json:"isAdmin"`
}

func (h *APIHandler) issueToken(w http.ResponseWriter, r *http.Request, user *model.User) {
	token, err := auth.GenerateToken(user.ID, user.Username, user.Email, user.IsAnonymous)
	if err != nil {
		logger.Error("[Auth] Failed to generate token", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	// First sight of an identity creates its engagement profile with
	// firstJoin=now; existing profiles are untouched.
	if _, err := h.engagement.EnsureProfile(r.Context(), user.ID); err != nil {
		logger.Error("[Auth] Failed to ensure profile", logger.Int64("userId", user.ID), logger.ErrorField(err))
	}

	writeJSON(w, http.StatusOK, authResponse{
		Token:   token,
		User:    user,
		IsAdmin: h.cfg.IsAdmin(user.Email),
	})
}

// RegisterHandler handles account creation.
func (h *APIHandler) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Username and password are required")
		return
	}

	if existing, err := h.userRepo.GetUserByUsername(req.Username); err != nil {
		logger.Error("[Register] Failed to check username", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	} else if existing != nil {
		writeError(w, http.StatusConflict, "Username already taken")
		return
	}
	if req.Email != "" {
		if existing, err := h.userRepo.GetUserByEmail(req.Email); err != nil {
			logger.Error("[Register] Failed to check email", logger.ErrorField(err))
			writeError(w, http.StatusInternalServerError, "Internal server error")
			return
		} else if existing != nil {
			writeError(w, http.StatusConflict, "Email already registered")
			return
		}
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		logger.Error("[Register] Failed to hash password", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	user := &model.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
	}
	id, err := h.userRepo.CreateUser(user)
	if err != nil {
		logger.Error("[Register] Failed to create user", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to create user")
		return
	}
	user.ID = id

	logger.Info("[Register] User created", logger.String("username", user.Username), logger.Int64("userId", id))
	h.issueToken(w, r, user)
}

// LoginHandler handles login with username or email.
func (h *APIHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"` // username or email
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Username/Email and password are required")
		return
	}

	var user *model.User
	var err error
	if strings.Contains(req.Username, "@") {
		user, err = h.userRepo.GetUserByEmail(req.Username)
	} else {
		user, err = h.userRepo.GetUserByUsername(req.Username)
	}
	if err != nil {
		logger.Error("[Login] Failed to query user", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if user == nil || !auth.VerifyPassword(req.Password, user.PasswordHash) {
		logger.Warn("[Login] Invalid credentials", logger.String("username", req.Username))
		writeError(w, http.StatusUnauthorized, "Invalid username/email or password")
		return
	}

	logger.Info("[Login] Login successful", logger.String("username", user.Username))
	h.issueToken(w, r, user)
}

// AnonymousHandler signs in an anonymous identity: a real user row
// with a generated name and an unusable password.
func (h *APIHandler) AnonymousHandler(w http.ResponseWriter, r *http.Request) {
	username := "guest-" + uuid.New().String()[:8]

	// Random password hash nobody can log in with; anonymous sessions
	// live and die with their token.
	hash, err := auth.HashPassword(uuid.New().String())
	if err != nil {
		logger.Error("[Anonymous] Failed to hash placeholder password", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	user := &model.User{
		Username:     username,
		PasswordHash: hash,
		IsAnonymous:  true,
	}
	id, err := h.userRepo.CreateUser(user)
	if err != nil {
		logger.Error("[Anonymous] Failed to create anonymous user", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to create anonymous user")
		return
	}
	user.ID = id

	logger.Info("[Anonymous] Anonymous identity created", logger.String("username", username))
	h.issueToken(w, r, user)
}
