package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"lumagram/internal/httputil"
	"lumagram/internal/logger"
	"lumagram/internal/model"
	"lumagram/internal/service"
	"lumagram/internal/transport/http/middleware"
)

// UserHandler groups profile and search endpoints.
type UserHandler struct {
	userService  *service.UserService
	mediaService *service.MediaService

	// defaultAvatarKey is the shared default-avatar object; it must survive
	// avatar replacement, since every new account points at it.
	defaultAvatarKey string
}

func NewUserHandler(userService *service.UserService, mediaService *service.MediaService, defaultAvatarKey string) *UserHandler {
	return &UserHandler{
		userService:      userService,
		mediaService:     mediaService,
		defaultAvatarKey: defaultAvatarKey,
	}
}

// parseIDParam reads a positive int64 route parameter.
func parseIDParam(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid id")
	}
	return id, nil
}

// viewerFromContext returns the authenticated user's ID if present.
func viewerFromContext(r *http.Request) *int64 {
	if userID, ok := middleware.GetUserIDFromContext(r.Context()); ok {
		return &userID
	}
	return nil
}

// parseLimit reads the limit query parameter, zero when absent.
func parseLimit(r *http.Request) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0
	}
	limit, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return limit
}

// parseStringCursor reads the cursor query parameter, nil when absent.
func parseStringCursor(r *http.Request) *string {
	raw := r.URL.Query().Get("cursor")
	if raw == "" {
		return nil
	}
	return &raw
}

// shouldDeleteOldAvatar guards avatar cleanup: the shared default-avatar
// object is referenced by every account that never uploaded one, so it is
// never deleted.
func (h *UserHandler) shouldDeleteOldAvatar(oldKey *string) bool {
	if oldKey == nil || *oldKey == "" {
		return false
	}
	return *oldKey != h.defaultAvatarKey
}

// GetProfile returns a user's profile with the viewer's follow status
// GET /users/{id}
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, err := parseIDParam(r, "id")
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid user ID")
		return
	}

	profile, err := h.userService.GetProfile(r.Context(), userID, viewerFromContext(r))
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			httputil.WriteNotFound(w, "User not found")
			return
		}
		logger.Log.Errorw("failed to get profile", "user_id", userID, "error", err)
		httputil.WriteInternalError(w, "Failed to get profile")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, profile)
}

// UpdateProfile applies partial changes to the caller's profile
// PUT /me
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Not authenticated")
		return
	}

	var req model.UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	user, err := h.userService.UpdateProfile(r.Context(), userID, &req)
	if err != nil {
		if writeValidationError(w, err) || writeUniquenessConflict(w, err) {
			return
		}
		if errors.Is(err, model.ErrUserNotFound) {
			httputil.WriteNotFound(w, "User not found")
			return
		}
		logger.Log.Errorw("failed to update profile", "user_id", userID, "error", err)
		httputil.WriteInternalError(w, "Failed to update profile")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, user)
}

// Search finds users by username prefix
// GET /users/search?q=...
func (h *UserHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		httputil.WriteFieldError(w, "q", "Search query is required")
		return
	}

	users, err := h.userService.Search(r.Context(), query, parseLimit(r), viewerFromContext(r))
	if err != nil {
		logger.Log.Errorw("failed to search users", "query", query, "error", err)
		httputil.WriteInternalError(w, "Failed to search users")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"users": users,
	})
}

// UploadAvatar replaces the caller's avatar
// POST /me/avatar
func (h *UserHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Not authenticated")
		return
	}

	maxFormSize := int64(model.MaxAvatarSizeBytes) + 1024*1024 // allow form overhead
	r.Body = http.MaxBytesReader(w, r.Body, maxFormSize)
	if err := r.ParseMultipartForm(maxFormSize); err != nil {
		httputil.WriteBadRequestWithCode(w, model.CodeFileTooLarge, "Avatar exceeds 5MB limit")
		return
	}

	file, header, err := r.FormFile("avatar")
	if err != nil {
		httputil.WriteBadRequest(w, "Avatar file is required")
		return
	}
	defer file.Close()

	upload, err := h.mediaService.UploadAvatar(r.Context(), file, header)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrFileTooLarge):
			httputil.WriteBadRequestWithCode(w, model.CodeFileTooLarge, "Avatar exceeds 5MB limit")
		case errors.Is(err, model.ErrInvalidImageType):
			httputil.WriteBadRequestWithCode(w, model.CodeInvalidImageType, "Unsupported image type. Allowed: jpeg, png, gif, webp")
		default:
			logger.Log.Errorw("failed to upload avatar", "user_id", userID, "error", err)
			httputil.WriteInternalError(w, "Failed to upload avatar")
		}
		return
	}

	oldKey, err := h.userService.UpdateAvatar(r.Context(), userID, upload.URL, upload.Key)
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			httputil.WriteNotFound(w, "User not found")
			return
		}
		logger.Log.Errorw("failed to update avatar", "user_id", userID, "error", err)
		httputil.WriteInternalError(w, "Failed to update avatar")
		return
	}

	if h.shouldDeleteOldAvatar(oldKey) {
		if err := h.mediaService.DeleteObject(r.Context(), *oldKey); err != nil {
			logger.Log.Errorw("failed to delete old avatar", "key", *oldKey, "error", err)
		}
	}

	httputil.WriteJSON(w, http.StatusOK, upload)
}
