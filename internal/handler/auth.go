package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"lumagram/internal/auth"
	"lumagram/internal/config"
	"lumagram/internal/httputil"
	"lumagram/internal/logger"
	"lumagram/internal/model"
	"lumagram/internal/service"
	"lumagram/internal/transport/http/middleware"
)

// AuthHandler groups auth-related HTTP endpoints and their dependencies.
type AuthHandler struct {
	userService *service.UserService
	tokens      *auth.TokenService
	config      *config.Config
}

// NewAuthHandler wires dependencies for authentication endpoints.
func NewAuthHandler(userService *service.UserService, tokens *auth.TokenService, cfg *config.Config) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		tokens:      tokens,
		config:      cfg,
	}
}

// writeValidationError maps service-level validation failures onto 400s with
// the offending field named. Returns false when the error was not one of them.
func writeValidationError(w http.ResponseWriter, err error) bool {
	switch {
	case errors.Is(err, service.ErrInvalidEmail):
		httputil.WriteFieldError(w, "email", "Invalid email address")
	case errors.Is(err, service.ErrInvalidUsername):
		httputil.WriteFieldError(w, "username", "Username must be 3-50 characters of letters, digits and underscores")
	case errors.Is(err, service.ErrInvalidPassword):
		httputil.WriteFieldError(w, "password", "Password must be at least 8 characters")
	case errors.Is(err, service.ErrInvalidPhone):
		httputil.WriteFieldError(w, "phone", "Invalid phone number")
	case errors.Is(err, service.ErrBioTooLong):
		httputil.WriteFieldError(w, "bio", "Bio must be at most 500 characters")
	default:
		return false
	}
	return true
}

// writeUniquenessConflict maps typed uniqueness conflicts onto 409s with the
// colliding field named. Returns false when the error was not one of them.
func writeUniquenessConflict(w http.ResponseWriter, err error) bool {
	switch {
	case errors.Is(err, model.ErrEmailExists):
		httputil.WriteConflictWithField(w, "email", "Email already registered")
	case errors.Is(err, model.ErrUsernameExists):
		httputil.WriteConflictWithField(w, "username", "Username already taken")
	case errors.Is(err, model.ErrPhoneExists):
		httputil.WriteConflictWithField(w, "phone", "Phone number already registered")
	default:
		return false
	}
	return true
}

// Register handles account creation
// POST /auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req model.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	// New accounts start with the configured default avatar when one is set.
	if h.config.DefaultAvatarURL != "" {
		req.AvatarURL = &h.config.DefaultAvatarURL
	}
	if h.config.DefaultAvatarKey != "" {
		req.AvatarKey = &h.config.DefaultAvatarKey
	}

	user, err := h.userService.Register(r.Context(), &req)
	if err != nil {
		if writeValidationError(w, err) || writeUniquenessConflict(w, err) {
			return
		}
		logger.Log.Errorw("failed to register user", "error", err)
		httputil.WriteInternalError(w, "Failed to register")
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, user)
}

// Login handles user login
// POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	if req.Email == "" {
		httputil.WriteFieldError(w, "email", "Email is required")
		return
	}
	if req.Password == "" {
		httputil.WriteFieldError(w, "password", "Password is required")
		return
	}

	user, err := h.userService.Login(r.Context(), &req)
	if err != nil {
		if errors.Is(err, model.ErrInvalidCredentials) {
			httputil.WriteUnauthorized(w, "Invalid email or password")
			return
		}
		logger.Log.Errorw("failed to login", "error", err)
		httputil.WriteInternalError(w, "Failed to login")
		return
	}

	token, err := h.tokens.Issue(user.ID)
	if err != nil {
		logger.Log.Errorw("failed to issue token", "user_id", user.ID, "error", err)
		httputil.WriteInternalError(w, "Failed to generate token")
		return
	}

	response := model.LoginResponse{
		User:        user,
		AccessToken: token,
		ExpiresIn:   h.config.AccessTokenMaxAge,
	}
	httputil.WriteJSON(w, http.StatusOK, response)
}

// Me returns the currently authenticated user
// GET /me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Not authenticated")
		return
	}

	user, err := h.userService.GetByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			httputil.WriteNotFound(w, "User not found")
			return
		}
		logger.Log.Errorw("failed to get user", "user_id", userID, "error", err)
		httputil.WriteInternalError(w, "Failed to get user")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, user)
}

// ChangePassword verifies the current password before setting a new one
// PUT /me/password
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Not authenticated")
		return
	}

	var req model.ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	if req.CurrentPassword == "" {
		httputil.WriteFieldError(w, "current_password", "Current password is required")
		return
	}

	err := h.userService.ChangePassword(r.Context(), userID, &req)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrInvalidCredentials):
			httputil.WriteForbidden(w, "Current password is incorrect")
		case errors.Is(err, service.ErrInvalidPassword):
			httputil.WriteFieldError(w, "new_password", "Password must be at least 8 characters")
		case errors.Is(err, model.ErrUserNotFound):
			httputil.WriteNotFound(w, "User not found")
		default:
			logger.Log.Errorw("failed to change password", "user_id", userID, "error", err)
			httputil.WriteInternalError(w, "Failed to change password")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Password updated",
	})
}
