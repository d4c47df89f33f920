package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"lumagram/internal/model"
)

type followRepository struct {
	db *sqlx.DB
}

func NewFollowRepository(db *sqlx.DB) FollowRepository {
	return &followRepository{db: db}
}

// Create inserts a follow edge idempotently. Returns false when the edge
// already existed.
func (r *followRepository) Create(ctx context.Context, followerID, followeeID int64) (bool, error) {
	query := `
		INSERT INTO follows (follower_id, followee_id)
		VALUES ($1, $2)
		ON CONFLICT (follower_id, followee_id) DO NOTHING
	`

	result, err := r.db.ExecContext(ctx, query, followerID, followeeID)
	if err != nil {
		return false, fmt.Errorf("insert follow: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("get rows affected: %w", err)
	}

	return rows > 0, nil
}

// Delete removes a follow edge. Returns ErrNotFollowing when no edge existed.
func (r *followRepository) Delete(ctx context.Context, followerID, followeeID int64) error {
	query := `DELETE FROM follows WHERE follower_id = $1 AND followee_id = $2`

	result, err := r.db.ExecContext(ctx, query, followerID, followeeID)
	if err != nil {
		return fmt.Errorf("delete follow: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return model.ErrNotFollowing
	}

	return nil
}

func (r *followRepository) Exists(ctx context.Context, followerID, followeeID int64) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM follows WHERE follower_id = $1 AND followee_id = $2)`

	var exists bool
	err := r.db.GetContext(ctx, &exists, query, followerID, followeeID)
	if err != nil {
		return false, fmt.Errorf("check follow exists: %w", err)
	}

	return exists, nil
}

// userWithTime carries the follow edge timestamp used for cursoring.
type userWithTime struct {
	model.UserSummary
	FollowedAt time.Time `db:"followed_at"`
}

// GetFollowers returns users following the given user, most recent first.
func (r *followRepository) GetFollowers(ctx context.Context, userID int64, cursor *time.Time, limit int) ([]model.UserSummary, *time.Time, error) {
	var query string
	var args []interface{}

	if cursor == nil {
		query = `
			SELECT u.id, u.username, u.display_name, u.avatar_url, f.created_at AS followed_at
			FROM follows f
			JOIN users u ON u.id = f.follower_id
			WHERE f.followee_id = $1
			ORDER BY f.created_at DESC
			LIMIT $2
		`
		args = []interface{}{userID, limit + 1}
	} else {
		query = `
			SELECT u.id, u.username, u.display_name, u.avatar_url, f.created_at AS followed_at
			FROM follows f
			JOIN users u ON u.id = f.follower_id
			WHERE f.followee_id = $1 AND f.created_at < $2
			ORDER BY f.created_at DESC
			LIMIT $3
		`
		args = []interface{}{userID, *cursor, limit + 1}
	}

	return r.selectFollowPage(ctx, query, args, limit)
}

// GetFollowing returns users the given user follows, most recent first.
func (r *followRepository) GetFollowing(ctx context.Context, userID int64, cursor *time.Time, limit int) ([]model.UserSummary, *time.Time, error) {
	var query string
	var args []interface{}

	if cursor == nil {
		query = `
			SELECT u.id, u.username, u.display_name, u.avatar_url, f.created_at AS followed_at
			FROM follows f
			JOIN users u ON u.id = f.followee_id
			WHERE f.follower_id = $1
			ORDER BY f.created_at DESC
			LIMIT $2
		`
		args = []interface{}{userID, limit + 1}
	} else {
		query = `
			SELECT u.id, u.username, u.display_name, u.avatar_url, f.created_at AS followed_at
			FROM follows f
			JOIN users u ON u.id = f.followee_id
			WHERE f.follower_id = $1 AND f.created_at < $2
			ORDER BY f.created_at DESC
			LIMIT $3
		`
		args = []interface{}{userID, *cursor, limit + 1}
	}

	return r.selectFollowPage(ctx, query, args, limit)
}

func (r *followRepository) selectFollowPage(ctx context.Context, query string, args []interface{}, limit int) ([]model.UserSummary, *time.Time, error) {
	var rows []userWithTime
	err := r.db.SelectContext(ctx, &rows, query, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("select follow edges: %w", err)
	}

	var nextCursor *time.Time
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1].FollowedAt
		nextCursor = &last
	}

	users := make([]model.UserSummary, len(rows))
	for i, row := range rows {
		users[i] = row.UserSummary
	}

	return users, nextCursor, nil
}

// CheckFollows checks which of the given users the follower follows.
// Returns a map of followee_id -> following (true/false).
func (r *followRepository) CheckFollows(ctx context.Context, followerID int64, followeeIDs []int64) (map[int64]bool, error) {
	if len(followeeIDs) == 0 {
		return make(map[int64]bool), nil
	}

	query := `SELECT followee_id FROM follows WHERE follower_id = $1 AND followee_id = ANY($2)`

	var followedIDs []int64
	err := r.db.SelectContext(ctx, &followedIDs, query, followerID, pq.Array(followeeIDs))
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("check follows: %w", err)
	}

	result := make(map[int64]bool)
	for _, id := range followeeIDs {
		result[id] = false
	}
	for _, id := range followedIDs {
		result[id] = true
	}

	return result, nil
}
