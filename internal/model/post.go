package model

import (
	"errors"
	"time"
)

// Post represents a user's post with its metadata.
// Like and comment counts are computed at read time, not stored.
type Post struct {
	ID           int64      `db:"id" json:"id"`
	UserID       int64      `db:"user_id" json:"user_id"`
	Caption      *string    `db:"caption" json:"caption"`
	LikeCount    int        `db:"like_count" json:"like_count"`
	CommentCount int        `db:"comment_count" json:"comment_count"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
	DeletedAt    *time.Time `db:"deleted_at" json:"-"`

	// Joined fields (not in posts table)
	Media   []PostMedia  `json:"media,omitempty"`
	Author  *UserSummary `json:"author,omitempty"`
	IsLiked bool         `json:"is_liked"`
}

// PostMedia represents a single media item in a post (carousel support).
type PostMedia struct {
	ID        int64  `db:"id" json:"id"`
	PostID    int64  `db:"post_id" json:"-"`
	MediaURL  string `db:"media_url" json:"media_url"`
	MediaKey  string `db:"media_key" json:"-"` // Object key for deletion
	MediaType string `db:"media_type" json:"media_type"`
	Position  int    `db:"position" json:"position"`
}

// MediaRef pairs a public URL with its storage key, as returned by the
// media upload endpoint.
type MediaRef struct {
	URL string `json:"url"`
	Key string `json:"key"`
}

// CreatePostRequest is the request body for creating a post.
// At least one of caption/media must be present.
type CreatePostRequest struct {
	Caption *string    `json:"caption"`
	Media   []MediaRef `json:"media"`
}

// UpdatePostRequest is the request body for editing a post's caption.
type UpdatePostRequest struct {
	Caption *string `json:"caption"`
}

// PostListResponse is the paginated post list response.
type PostListResponse struct {
	Posts      []Post  `json:"posts"`
	NextCursor *string `json:"next_cursor,omitempty"`
	HasMore    bool    `json:"has_more"`
}

// LikersListResponse is the paginated likers list response.
type LikersListResponse struct {
	Users      []UserSummary `json:"users"`
	NextCursor *string       `json:"next_cursor,omitempty"`
	HasMore    bool          `json:"has_more"`
}

// Post constraints
const (
	MaxPostMediaCount    = 10
	MaxPostCaptionLength = 2000
	MaxPostMediaSize     = 10 * 1024 * 1024 // 10MB per media
)

// Post errors
var (
	ErrPostNotFound    = errors.New("post not found")
	ErrNotPostOwner    = errors.New("not the owner of this post")
	ErrEmptyPost       = errors.New("post requires a caption or media")
	ErrTooManyMedia    = errors.New("too many media items")
	ErrCaptionTooLong  = errors.New("caption too long")
	ErrAlreadyLiked    = errors.New("post already liked")
	ErrNotLiked        = errors.New("post not liked")
	ErrInvalidMediaURL = errors.New("invalid media URL")
)
