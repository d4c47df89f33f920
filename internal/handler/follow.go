package handler

import (
	"errors"
	"net/http"
	"time"

	"lumagram/internal/httputil"
	"lumagram/internal/logger"
	"lumagram/internal/model"
	"lumagram/internal/service"
	"lumagram/internal/transport/http/middleware"
)

// FollowHandler groups follow relationship endpoints.
type FollowHandler struct {
	followService *service.FollowService
}

func NewFollowHandler(followService *service.FollowService) *FollowHandler {
	return &FollowHandler{followService: followService}
}

// parseTimeCursor reads an RFC3339 cursor query parameter, nil when absent.
func parseTimeCursor(r *http.Request) (*time.Time, error) {
	raw := r.URL.Query().Get("cursor")
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Follow creates a follow relationship
// POST /users/{id}/follow
func (h *FollowHandler) Follow(w http.ResponseWriter, r *http.Request) {
	followerID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Not authenticated")
		return
	}

	followeeID, err := parseIDParam(r, "id")
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid user ID")
		return
	}

	err = h.followService.Follow(r.Context(), followerID, followeeID)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrCannotFollowSelf):
			httputil.WriteBadRequest(w, "You cannot follow yourself")
		case errors.Is(err, model.ErrUserNotFound):
			httputil.WriteNotFound(w, "User not found")
		case errors.Is(err, model.ErrAlreadyFollowing):
			httputil.WriteConflict(w, "Already following this user")
		default:
			logger.Log.Errorw("failed to follow user", "followee_id", followeeID, "error", err)
			httputil.WriteInternalError(w, "Failed to follow user")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Unfollow removes a follow relationship
// DELETE /users/{id}/follow
func (h *FollowHandler) Unfollow(w http.ResponseWriter, r *http.Request) {
	followerID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Not authenticated")
		return
	}

	followeeID, err := parseIDParam(r, "id")
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid user ID")
		return
	}

	err = h.followService.Unfollow(r.Context(), followerID, followeeID)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrCannotFollowSelf):
			httputil.WriteBadRequest(w, "You cannot unfollow yourself")
		case errors.Is(err, model.ErrUserNotFound):
			httputil.WriteNotFound(w, "User not found")
		case errors.Is(err, model.ErrNotFollowing):
			httputil.WriteConflict(w, "Not following this user")
		default:
			logger.Log.Errorw("failed to unfollow user", "followee_id", followeeID, "error", err)
			httputil.WriteInternalError(w, "Failed to unfollow user")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetFollowers lists users following the given user
// GET /users/{id}/followers
func (h *FollowHandler) GetFollowers(w http.ResponseWriter, r *http.Request) {
	userID, err := parseIDParam(r, "id")
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid user ID")
		return
	}

	cursor, err := parseTimeCursor(r)
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid cursor")
		return
	}

	users, nextCursor, err := h.followService.GetFollowers(r.Context(), userID, cursor, parseLimit(r), viewerFromContext(r))
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			httputil.WriteNotFound(w, "User not found")
			return
		}
		logger.Log.Errorw("failed to get followers", "user_id", userID, "error", err)
		httputil.WriteInternalError(w, "Failed to get followers")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, model.NewFollowListResponse(users, nextCursor))
}

// GetFollowing lists users the given user follows
// GET /users/{id}/following
func (h *FollowHandler) GetFollowing(w http.ResponseWriter, r *http.Request) {
	userID, err := parseIDParam(r, "id")
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid user ID")
		return
	}

	cursor, err := parseTimeCursor(r)
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid cursor")
		return
	}

	users, nextCursor, err := h.followService.GetFollowing(r.Context(), userID, cursor, parseLimit(r), viewerFromContext(r))
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			httputil.WriteNotFound(w, "User not found")
			return
		}
		logger.Log.Errorw("failed to get following", "user_id", userID, "error", err)
		httputil.WriteInternalError(w, "Failed to get following")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, model.NewFollowListResponse(users, nextCursor))
}
