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

// CommentHandler groups comment endpoints.
type CommentHandler struct {
	commentService *service.CommentService
}

func NewCommentHandler(commentService *service.CommentService) *CommentHandler {
	return &CommentHandler{commentService: commentService}
}

func writeCommentValidationError(w http.ResponseWriter, err error) bool {
	switch {
	case errors.Is(err, model.ErrContentRequired):
		httputil.WriteFieldError(w, "content", "Comment content is required")
	case errors.Is(err, model.ErrContentTooLong):
		httputil.WriteFieldError(w, "content", "Comment must be at most 500 characters")
	default:
		return false
	}
	return true
}

// Create adds a comment to a post
// POST /posts/{id}/comments
func (h *CommentHandler) Create(w http.ResponseWriter, r *http.Request) {
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

	var req model.CreateCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	comment, err := h.commentService.Create(r.Context(), postID, userID, &req)
	if err != nil {
		if writeCommentValidationError(w, err) {
			return
		}
		if errors.Is(err, model.ErrPostNotFound) {
			httputil.WriteNotFound(w, "Post not found")
			return
		}
		logger.Log.Errorw("failed to create comment", "post_id", postID, "error", err)
		httputil.WriteInternalError(w, "Failed to create comment")
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, comment)
}

// List returns a post's comments
// GET /posts/{id}/comments
func (h *CommentHandler) List(w http.ResponseWriter, r *http.Request) {
	postID, err := parseIDParam(r, "id")
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid post ID")
		return
	}

	comments, nextCursor, err := h.commentService.GetByPostID(r.Context(), postID, parseStringCursor(r), parseLimit(r))
	if err != nil {
		if errors.Is(err, model.ErrPostNotFound) {
			httputil.WriteNotFound(w, "Post not found")
			return
		}
		logger.Log.Errorw("failed to list comments", "post_id", postID, "error", err)
		httputil.WriteInternalError(w, "Failed to list comments")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, model.CommentListResponse{
		Comments:   comments,
		NextCursor: nextCursor,
		HasMore:    nextCursor != nil,
	})
}

// Update edits a comment, owner only
// PATCH /comments/{id}
func (h *CommentHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Not authenticated")
		return
	}

	commentID, err := parseIDParam(r, "id")
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid comment ID")
		return
	}

	var req model.UpdateCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	comment, err := h.commentService.Update(r.Context(), commentID, userID, &req)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrCommentNotFound):
			httputil.WriteNotFound(w, "Comment not found")
		case errors.Is(err, model.ErrNotCommentOwner):
			httputil.WriteForbidden(w, "You do not own this comment")
		default:
			if writeCommentValidationError(w, err) {
				return
			}
			logger.Log.Errorw("failed to update comment", "comment_id", commentID, "error", err)
			httputil.WriteInternalError(w, "Failed to update comment")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusOK, comment)
}

// Delete removes a comment, owner only
// DELETE /comments/{id}
func (h *CommentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Not authenticated")
		return
	}

	commentID, err := parseIDParam(r, "id")
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid comment ID")
		return
	}

	err = h.commentService.Delete(r.Context(), commentID, userID)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrCommentNotFound):
			httputil.WriteNotFound(w, "Comment not found")
		case errors.Is(err, model.ErrNotCommentOwner):
			httputil.WriteForbidden(w, "You do not own this comment")
		default:
			logger.Log.Errorw("failed to delete comment", "comment_id", commentID, "error", err)
			httputil.WriteInternalError(w, "Failed to delete comment")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
