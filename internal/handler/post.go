package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"lumagram/internal/httputil"
	"lumagram/internal/logger"
	"lumagram/internal/model"
	"lumagram/internal/service"
	"lumagram/internal/transport/http/middleware"
)

// PostHandler groups post, like and feed endpoints.
type PostHandler struct {
	postService  *service.PostService
	mediaService *service.MediaService
}

func NewPostHandler(postService *service.PostService, mediaService *service.MediaService) *PostHandler {
	return &PostHandler{
		postService:  postService,
		mediaService: mediaService,
	}
}

// writePostValidationError maps post validation failures onto 400s.
func writePostValidationError(w http.ResponseWriter, err error) bool {
	switch {
	case errors.Is(err, model.ErrEmptyPost):
		httputil.WriteBadRequest(w, "Post requires a caption or at least one media item")
	case errors.Is(err, model.ErrCaptionTooLong):
		httputil.WriteFieldError(w, "caption", "Caption must be at most 2000 characters")
	case errors.Is(err, model.ErrTooManyMedia):
		httputil.WriteFieldError(w, "media", "A post can have at most 10 media items")
	case errors.Is(err, model.ErrInvalidMediaURL):
		httputil.WriteFieldError(w, "media", "Each media item needs a url and a key")
	default:
		return false
	}
	return true
}

// Create makes a new post
// POST /posts
func (h *PostHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Not authenticated")
		return
	}

	var req model.CreatePostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	post, err := h.postService.Create(r.Context(), userID, &req)
	if err != nil {
		if writePostValidationError(w, err) {
			return
		}
		logger.Log.Errorw("failed to create post", "user_id", userID, "error", err)
		httputil.WriteInternalError(w, "Failed to create post")
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, post)
}

// GetByID returns a single post
// GET /posts/{id}
func (h *PostHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	postID, err := parseIDParam(r, "id")
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid post ID")
		return
	}

	post, err := h.postService.GetByID(r.Context(), postID, viewerFromContext(r))
	if err != nil {
		if errors.Is(err, model.ErrPostNotFound) {
			httputil.WriteNotFound(w, "Post not found")
			return
		}
		logger.Log.Errorw("failed to get post", "post_id", postID, "error", err)
		httputil.WriteInternalError(w, "Failed to get post")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, post)
}

// Update edits a post's caption, owner only
// PATCH /posts/{id}
func (h *PostHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Not authenticated")
		return
	}

	postID, err := parseIDParam(r, "id")
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid post ID")
		return
	}

	var req model.UpdatePostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	post, err := h.postService.Update(r.Context(), postID, userID, &req)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrPostNotFound):
			httputil.WriteNotFound(w, "Post not found")
		case errors.Is(err, model.ErrNotPostOwner):
			httputil.WriteForbidden(w, "You do not own this post")
		default:
			if writePostValidationError(w, err) {
				return
			}
			logger.Log.Errorw("failed to update post", "post_id", postID, "error", err)
			httputil.WriteInternalError(w, "Failed to update post")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusOK, post)
}

// Delete removes a post, owner only
// DELETE /posts/{id}
func (h *PostHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Not authenticated")
		return
	}

	postID, err := parseIDParam(r, "id")
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid post ID")
		return
	}

	err = h.postService.Delete(r.Context(), postID, userID)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrPostNotFound):
			httputil.WriteNotFound(w, "Post not found")
		case errors.Is(err, model.ErrNotPostOwner):
			httputil.WriteForbidden(w, "You do not own this post")
		default:
			logger.Log.Errorw("failed to delete post", "post_id", postID, "error", err)
			httputil.WriteInternalError(w, "Failed to delete post")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetUserPosts lists a user's posts
// GET /users/{id}/posts
func (h *PostHandler) GetUserPosts(w http.ResponseWriter, r *http.Request) {
	userID, err := parseIDParam(r, "id")
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid user ID")
		return
	}

	posts, nextCursor, err := h.postService.GetUserPosts(r.Context(), userID, parseStringCursor(r), parseLimit(r), viewerFromContext(r))
	if err != nil {
		logger.Log.Errorw("failed to get user posts", "user_id", userID, "error", err)
		httputil.WriteInternalError(w, "Failed to get posts")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, model.PostListResponse{
		Posts:      posts,
		NextCursor: nextCursor,
		HasMore:    nextCursor != nil,
	})
}

// Feed lists posts from followed users
// GET /feed
func (h *PostHandler) Feed(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Not authenticated")
		return
	}

	posts, nextCursor, err := h.postService.GetFeed(r.Context(), userID, parseStringCursor(r), parseLimit(r))
	if err != nil {
		logger.Log.Errorw("failed to get feed", "user_id", userID, "error", err)
		httputil.WriteInternalError(w, "Failed to get feed")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, model.PostListResponse{
		Posts:      posts,
		NextCursor: nextCursor,
		HasMore:    nextCursor != nil,
	})
}

// Like records a like on a post
// POST /posts/{id}/like
func (h *PostHandler) Like(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Not authenticated")
		return
	}

	postID, err := parseIDParam(r, "id")
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid post ID")
		return
	}

	err = h.postService.Like(r.Context(), postID, userID)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrPostNotFound):
			httputil.WriteNotFound(w, "Post not found")
		case errors.Is(err, model.ErrAlreadyLiked):
			httputil.WriteConflict(w, "Post already liked")
		default:
			logger.Log.Errorw("failed to like post", "post_id", postID, "error", err)
			httputil.WriteInternalError(w, "Failed to like post")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Unlike removes a like from a post
// DELETE /posts/{id}/like
func (h *PostHandler) Unlike(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Not authenticated")
		return
	}

	postID, err := parseIDParam(r, "id")
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid post ID")
		return
	}

	err = h.postService.Unlike(r.Context(), postID, userID)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrPostNotFound):
			httputil.WriteNotFound(w, "Post not found")
		case errors.Is(err, model.ErrNotLiked):
			httputil.WriteConflict(w, "Post not liked")
		default:
			logger.Log.Errorw("failed to unlike post", "post_id", postID, "error", err)
			httputil.WriteInternalError(w, "Failed to unlike post")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetLikers lists users who liked a post
// GET /posts/{id}/likes
func (h *PostHandler) GetLikers(w http.ResponseWriter, r *http.Request) {
	postID, err := parseIDParam(r, "id")
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid post ID")
		return
	}

	users, nextCursor, err := h.postService.GetPostLikers(r.Context(), postID, parseStringCursor(r), parseLimit(r), viewerFromContext(r))
	if err != nil {
		if errors.Is(err, model.ErrPostNotFound) {
			httputil.WriteNotFound(w, "Post not found")
			return
		}
		logger.Log.Errorw("failed to get likers", "post_id", postID, "error", err)
		httputil.WriteInternalError(w, "Failed to get likers")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, model.LikersListResponse{
		Users:      users,
		NextCursor: nextCursor,
		HasMore:    nextCursor != nil,
	})
}

// UploadMedia uploads a post image before the post itself is created
// POST /media/posts
func (h *PostHandler) UploadMedia(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.GetUserIDFromContext(r.Context()); !ok {
		httputil.WriteUnauthorized(w, "Not authenticated")
		return
	}

	maxFormSize := int64(model.MaxPostMediaSize) + 1024*1024 // allow form overhead
	r.Body = http.MaxBytesReader(w, r.Body, maxFormSize)
	if err := r.ParseMultipartForm(maxFormSize); err != nil {
		httputil.WriteBadRequestWithCode(w, model.CodeFileTooLarge, "Media exceeds 10MB limit")
		return
	}

	file, header, err := r.FormFile("media")
	if err != nil {
		httputil.WriteBadRequest(w, "Media file is required")
		return
	}
	defer file.Close()

	upload, err := h.mediaService.UploadPostMedia(r.Context(), file, header)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrFileTooLarge):
			httputil.WriteBadRequestWithCode(w, model.CodeFileTooLarge, "Media exceeds 10MB limit")
		case errors.Is(err, model.ErrInvalidImageType):
			httputil.WriteBadRequestWithCode(w, model.CodeInvalidImageType, "Unsupported image type. Allowed: jpeg, png, gif, webp")
		default:
			logger.Log.Errorw("failed to upload post media", "error", err)
			httputil.WriteInternalError(w, "Failed to upload media")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, upload)
}
