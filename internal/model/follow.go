package model

import (
	"errors"
	"time"
)

// Follow is a directed edge: the follower follows the followee. At most one
// edge exists per ordered pair (table primary key), and CreatedAt doubles as
// the pagination key for follower/following lists.
type Follow struct {
	FollowerID int64     `db:"follower_id" json:"follower_id"`
	FolloweeID int64     `db:"followee_id" json:"followee_id"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// UserSummary is the compact user shape embedded in lists and joined rows
// (followers, likers, search results, post authors). IsFollowing is filled
// in per viewer by the service layer, never read from storage.
type UserSummary struct {
	ID          int64   `db:"id" json:"id"`
	Username    string  `db:"username" json:"username"`
	DisplayName *string `db:"display_name" json:"display_name"`
	AvatarURL   *string `db:"avatar_url" json:"avatar_url"`
	IsFollowing bool    `json:"is_following"`
}

// FollowListResponse pages follower and following lists. NextCursor is the
// RFC3339 edge timestamp of the last returned row, absent on the final page.
type FollowListResponse struct {
	Users      []UserSummary `json:"users"`
	NextCursor *string       `json:"next_cursor,omitempty"`
	HasMore    bool          `json:"has_more"`
}

// NewFollowListResponse builds the page envelope from a follow query result.
// The repository paginates on edge timestamps; this is the single place that
// *time.Time cursor becomes the string clients echo back.
func NewFollowListResponse(users []UserSummary, next *time.Time) FollowListResponse {
	resp := FollowListResponse{
		Users:   users,
		HasMore: next != nil,
	}
	if next != nil {
		cursor := next.Format(time.RFC3339Nano)
		resp.NextCursor = &cursor
	}
	return resp
}

var (
	ErrAlreadyFollowing = errors.New("already following this user")
	ErrNotFollowing     = errors.New("not following this user")
	ErrCannotFollowSelf = errors.New("cannot follow yourself")
)
