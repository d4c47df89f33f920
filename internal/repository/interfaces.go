package repository

import (
	"context"
	"time"

	"lumagram/internal/model"
)

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByPhone(ctx context.Context, phone string) (bool, error)
	// Except variants ignore the given user's own row, so updating a field
	// to its current value never self-collides.
	ExistsByUsernameExcept(ctx context.Context, username string, userID int64) (bool, error)
	ExistsByPhoneExcept(ctx context.Context, phone string, userID int64) (bool, error)
	UpdateProfile(ctx context.Context, user *model.User) error
	UpdatePassword(ctx context.Context, userID int64, passwordHashed string) error
	UpdateAvatar(ctx context.Context, userID int64, avatarURL, avatarKey *string) error
	Search(ctx context.Context, query string, limit int) ([]model.UserSummary, error)
}

type FollowRepository interface {
	// Create inserts a follow edge. Returns false when the edge already
	// existed (ON CONFLICT DO NOTHING).
	Create(ctx context.Context, followerID, followeeID int64) (bool, error)
	// Delete removes a follow edge. Returns model.ErrNotFollowing when no
	// edge existed.
	Delete(ctx context.Context, followerID, followeeID int64) error
	Exists(ctx context.Context, followerID, followeeID int64) (bool, error)
	GetFollowers(ctx context.Context, userID int64, cursor *time.Time, limit int) ([]model.UserSummary, *time.Time, error)
	GetFollowing(ctx context.Context, userID int64, cursor *time.Time, limit int) ([]model.UserSummary, *time.Time, error)
	CheckFollows(ctx context.Context, followerID int64, followeeIDs []int64) (map[int64]bool, error)
}

type PostRepository interface {
	Create(ctx context.Context, userID int64, caption *string, media []model.MediaRef) (*model.Post, error)
	GetByID(ctx context.Context, postID int64) (*model.Post, error)
	UpdateCaption(ctx context.Context, postID int64, caption *string) (*model.Post, error)
	Delete(ctx context.Context, postID int64) error
	Exists(ctx context.Context, postID int64) (bool, error)
	GetUserPosts(ctx context.Context, userID int64, cursor *string, limit int) ([]model.Post, *string, error)
	// GetFeed returns posts authored by users the viewer follows,
	// newest first. Pull model: a plain query over follows, no cache.
	GetFeed(ctx context.Context, viewerID int64, cursor *string, limit int) ([]model.Post, *string, error)
	// Like inserts a like row; the unique constraint on (post_id, user_id)
	// is the authority, a duplicate maps to model.ErrAlreadyLiked.
	Like(ctx context.Context, postID, userID int64) error
	Unlike(ctx context.Context, postID, userID int64) error
	CheckLikes(ctx context.Context, userID int64, postIDs []int64) (map[int64]bool, error)
	GetPostLikers(ctx context.Context, postID int64, cursor *string, limit int) ([]model.UserSummary, *string, error)
}

type CommentRepository interface {
	Create(ctx context.Context, postID, userID int64, content string) (*model.Comment, error)
	GetByID(ctx context.Context, commentID int64) (*model.Comment, error)
	Update(ctx context.Context, commentID int64, content string) (*model.Comment, error)
	Delete(ctx context.Context, commentID int64) error
	GetByPostID(ctx context.Context, postID int64, cursor *string, limit int) ([]model.Comment, *string, error)
}
