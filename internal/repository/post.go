package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"lumagram/internal/model"
)

// postColumns is the shared select list for post reads. Like and comment
// counts are computed, not stored.
const postColumns = `
	p.id, p.user_id, p.caption,
	(SELECT COUNT(*) FROM post_likes pl WHERE pl.post_id = p.id) AS like_count,
	(SELECT COUNT(*) FROM post_comments pc WHERE pc.post_id = p.id) AS comment_count,
	p.created_at, p.updated_at
`

type postRepository struct {
	db *sqlx.DB
}

func NewPostRepository(db *sqlx.DB) PostRepository {
	return &postRepository{db: db}
}

// Create inserts a new post and its media in a transaction.
func (r *postRepository) Create(ctx context.Context, userID int64, caption *string, media []model.MediaRef) (*model.Post, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var post model.Post
	query := `
		INSERT INTO posts (user_id, caption)
		VALUES ($1, $2)
		RETURNING id, user_id, caption, created_at, updated_at
	`
	err = tx.GetContext(ctx, &post, query, userID, caption)
	if err != nil {
		return nil, fmt.Errorf("insert post: %w", err)
	}

	if len(media) > 0 {
		mediaQuery := `
			INSERT INTO post_media (post_id, media_url, media_key, media_type, position)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id, post_id, media_url, media_key, media_type, position
		`
		post.Media = make([]model.PostMedia, len(media))
		for i, ref := range media {
			var item model.PostMedia
			mediaType := "image"
			err = tx.GetContext(ctx, &item, mediaQuery, post.ID, ref.URL, ref.Key, mediaType, i)
			if err != nil {
				return nil, fmt.Errorf("insert media %d: %w", i, err)
			}
			post.Media[i] = item
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	return &post, nil
}

// GetByID retrieves a single post with its media.
func (r *postRepository) GetByID(ctx context.Context, postID int64) (*model.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts p WHERE p.id = $1 AND p.deleted_at IS NULL`

	var post model.Post
	err := r.db.GetContext(ctx, &post, query, postID)
	if err == sql.ErrNoRows {
		return nil, model.ErrPostNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get post: %w", err)
	}

	media, err := r.getPostMedia(ctx, []int64{postID})
	if err != nil {
		return nil, err
	}
	post.Media = media[postID]

	return &post, nil
}

// UpdateCaption sets a post's caption. Ownership has already been checked
// by the service layer.
func (r *postRepository) UpdateCaption(ctx context.Context, postID int64, caption *string) (*model.Post, error) {
	query := `
		UPDATE posts SET caption = $1, updated_at = NOW()
		WHERE id = $2 AND deleted_at IS NULL
		RETURNING id, user_id, caption, created_at, updated_at
	`
	var post model.Post
	err := r.db.GetContext(ctx, &post, query, caption, postID)
	if err == sql.ErrNoRows {
		return nil, model.ErrPostNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update post: %w", err)
	}

	media, err := r.getPostMedia(ctx, []int64{postID})
	if err != nil {
		return nil, err
	}
	post.Media = media[postID]

	return &post, nil
}

// Delete performs a soft delete on a post.
func (r *postRepository) Delete(ctx context.Context, postID int64) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE posts SET deleted_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`, postID)
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return model.ErrPostNotFound
	}

	return nil
}

// Exists checks if a post exists and is not deleted.
func (r *postRepository) Exists(ctx context.Context, postID int64) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM posts WHERE id = $1 AND deleted_at IS NULL)`, postID)
	if err != nil {
		return false, fmt.Errorf("check post exists: %w", err)
	}
	return exists, nil
}

// postRow scans a post joined with its author summary.
type postRow struct {
	ID           int64     `db:"id"`
	UserID       int64     `db:"user_id"`
	Caption      *string   `db:"caption"`
	LikeCount    int       `db:"like_count"`
	CommentCount int       `db:"comment_count"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
	AuthorID     int64     `db:"author_id"`
	AuthorName   string    `db:"author_username"`
	AuthorDispl  *string   `db:"author_display_name"`
	AuthorAvatar *string   `db:"author_avatar_url"`
}

func (row postRow) toPost() model.Post {
	return model.Post{
		ID:           row.ID,
		UserID:       row.UserID,
		Caption:      row.Caption,
		LikeCount:    row.LikeCount,
		CommentCount: row.CommentCount,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
		Author: &model.UserSummary{
			ID:          row.AuthorID,
			Username:    row.AuthorName,
			DisplayName: row.AuthorDispl,
			AvatarURL:   row.AuthorAvatar,
		},
	}
}

const postListColumns = postColumns + `,
	u.id AS author_id, u.username AS author_username,
	u.display_name AS author_display_name, u.avatar_url AS author_avatar_url
`

// GetUserPosts retrieves a user's posts, newest first, with a compound
// "id:timestamp" cursor.
func (r *postRepository) GetUserPosts(ctx context.Context, userID int64, cursor *string, limit int) ([]model.Post, *string, error) {
	var query string
	var args []interface{}

	if cursor == nil {
		query = `
			SELECT ` + postListColumns + `
			FROM posts p
			JOIN users u ON u.id = p.user_id
			WHERE p.user_id = $1 AND p.deleted_at IS NULL
			ORDER BY p.created_at DESC, p.id DESC
			LIMIT $2
		`
		args = []interface{}{userID, limit + 1}
	} else {
		ts, id, err := parseCursor(*cursor)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid cursor: %w", err)
		}
		query = `
			SELECT ` + postListColumns + `
			FROM posts p
			JOIN users u ON u.id = p.user_id
			WHERE p.user_id = $1 AND p.deleted_at IS NULL
			  AND (p.created_at, p.id) < ($2, $3)
			ORDER BY p.created_at DESC, p.id DESC
			LIMIT $4
		`
		args = []interface{}{userID, ts, id, limit + 1}
	}

	return r.selectPostPage(ctx, query, args, limit)
}

// GetFeed returns posts authored by users the viewer follows. Every call
// queries storage directly; there is no feed cache.
func (r *postRepository) GetFeed(ctx context.Context, viewerID int64, cursor *string, limit int) ([]model.Post, *string, error) {
	var query string
	var args []interface{}

	if cursor == nil {
		query = `
			SELECT ` + postListColumns + `
			FROM posts p
			JOIN follows f ON f.followee_id = p.user_id AND f.follower_id = $1
			JOIN users u ON u.id = p.user_id
			WHERE p.deleted_at IS NULL
			ORDER BY p.created_at DESC, p.id DESC
			LIMIT $2
		`
		args = []interface{}{viewerID, limit + 1}
	} else {
		ts, id, err := parseCursor(*cursor)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid cursor: %w", err)
		}
		query = `
			SELECT ` + postListColumns + `
			FROM posts p
			JOIN follows f ON f.followee_id = p.user_id AND f.follower_id = $1
			JOIN users u ON u.id = p.user_id
			WHERE p.deleted_at IS NULL
			  AND (p.created_at, p.id) < ($2, $3)
			ORDER BY p.created_at DESC, p.id DESC
			LIMIT $4
		`
		args = []interface{}{viewerID, ts, id, limit + 1}
	}

	return r.selectPostPage(ctx, query, args, limit)
}

// selectPostPage runs a limit+1 post query, trims to the page size, builds
// the next cursor and attaches media in one batch.
func (r *postRepository) selectPostPage(ctx context.Context, query string, args []interface{}, limit int) ([]model.Post, *string, error) {
	var rows []postRow
	err := r.db.SelectContext(ctx, &rows, query, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("select posts: %w", err)
	}

	var nextCursor *string
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		c := formatCursor(last.CreatedAt, last.ID)
		nextCursor = &c
	}

	posts := make([]model.Post, len(rows))
	postIDs := make([]int64, len(rows))
	for i, row := range rows {
		posts[i] = row.toPost()
		postIDs[i] = row.ID
	}

	mediaMap, err := r.getPostMedia(ctx, postIDs)
	if err != nil {
		return nil, nil, err
	}
	for i := range posts {
		posts[i].Media = mediaMap[posts[i].ID]
	}

	return posts, nextCursor, nil
}

// Like inserts a like record. Returns ErrAlreadyLiked on duplicates; the
// unique constraint on (post_id, user_id) is the authority.
func (r *postRepository) Like(ctx context.Context, postID, userID int64) error {
	query := `INSERT INTO post_likes (post_id, user_id) VALUES ($1, $2)`
	_, err := r.db.ExecContext(ctx, query, postID, userID)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return model.ErrAlreadyLiked
		}
		return fmt.Errorf("insert like: %w", err)
	}
	return nil
}

// Unlike deletes a like record. Returns ErrNotLiked if not found.
func (r *postRepository) Unlike(ctx context.Context, postID, userID int64) error {
	query := `DELETE FROM post_likes WHERE post_id = $1 AND user_id = $2`
	result, err := r.db.ExecContext(ctx, query, postID, userID)
	if err != nil {
		return fmt.Errorf("delete like: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return model.ErrNotLiked
	}
	return nil
}

// CheckLikes checks which posts the user has liked.
// Returns a map of post_id -> liked (true/false).
func (r *postRepository) CheckLikes(ctx context.Context, userID int64, postIDs []int64) (map[int64]bool, error) {
	if len(postIDs) == 0 {
		return make(map[int64]bool), nil
	}

	query := `SELECT post_id FROM post_likes WHERE user_id = $1 AND post_id = ANY($2)`
	var likedIDs []int64
	err := r.db.SelectContext(ctx, &likedIDs, query, userID, pq.Array(postIDs))
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("check likes: %w", err)
	}

	result := make(map[int64]bool)
	for _, id := range postIDs {
		result[id] = false
	}
	for _, id := range likedIDs {
		result[id] = true
	}

	return result, nil
}

// likerRow carries the liker's user summary together with the like row's
// own id and timestamp, so the page cursor comes straight from the last
// returned row.
type likerRow struct {
	model.UserSummary
	LikeID  int64     `db:"like_id"`
	LikedAt time.Time `db:"liked_at"`
}

// GetPostLikers returns paginated users who liked a post, newest like first.
func (r *postRepository) GetPostLikers(ctx context.Context, postID int64, cursor *string, limit int) ([]model.UserSummary, *string, error) {
	var query string
	var args []interface{}

	if cursor == nil {
		query = `
			SELECT u.id, u.username, u.display_name, u.avatar_url,
			       pl.id AS like_id, pl.created_at AS liked_at
			FROM post_likes pl
			JOIN users u ON u.id = pl.user_id
			WHERE pl.post_id = $1
			ORDER BY pl.created_at DESC, pl.id DESC
			LIMIT $2
		`
		args = []interface{}{postID, limit + 1}
	} else {
		ts, id, err := parseCursor(*cursor)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid cursor: %w", err)
		}
		query = `
			SELECT u.id, u.username, u.display_name, u.avatar_url,
			       pl.id AS like_id, pl.created_at AS liked_at
			FROM post_likes pl
			JOIN users u ON u.id = pl.user_id
			WHERE pl.post_id = $1 AND (pl.created_at, pl.id) < ($2, $3)
			ORDER BY pl.created_at DESC, pl.id DESC
			LIMIT $4
		`
		args = []interface{}{postID, ts, id, limit + 1}
	}

	var rows []likerRow
	err := r.db.SelectContext(ctx, &rows, query, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("get post likers: %w", err)
	}

	var nextCursor *string
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		c := formatCursor(last.LikedAt, last.LikeID)
		nextCursor = &c
	}

	users := make([]model.UserSummary, len(rows))
	for i, row := range rows {
		users[i] = row.UserSummary
	}

	return users, nextCursor, nil
}

// Helper: fetch media for multiple posts in one query
func (r *postRepository) getPostMedia(ctx context.Context, postIDs []int64) (map[int64][]model.PostMedia, error) {
	if len(postIDs) == 0 {
		return map[int64][]model.PostMedia{}, nil
	}

	query := `
		SELECT id, post_id, media_url, media_key, media_type, position
		FROM post_media
		WHERE post_id = ANY($1)
		ORDER BY post_id, position
	`
	var media []model.PostMedia
	err := r.db.SelectContext(ctx, &media, query, pq.Array(postIDs))
	if err != nil {
		return nil, fmt.Errorf("get post media: %w", err)
	}

	result := make(map[int64][]model.PostMedia)
	for _, m := range media {
		result[m.PostID] = append(result[m.PostID], m)
	}
	return result, nil
}

// Helper: parse compound cursor "id:timestamp". The timestamp carries
// microseconds, matching Postgres timestamp resolution, so rows created in
// the same second as a page boundary are not skipped.
func parseCursor(cursor string) (time.Time, int64, error) {
	parts := strings.Split(cursor, ":")
	if len(parts) != 2 {
		return time.Time{}, 0, fmt.Errorf("invalid cursor format")
	}
	var id int64
	var ts int64
	_, err := fmt.Sscanf(parts[0], "%d", &id)
	if err != nil {
		return time.Time{}, 0, err
	}
	_, err = fmt.Sscanf(parts[1], "%d", &ts)
	if err != nil {
		return time.Time{}, 0, err
	}
	return time.UnixMicro(ts), id, nil
}

// Helper: format compound cursor "id:timestamp"
func formatCursor(t time.Time, id int64) string {
	return fmt.Sprintf("%d:%d", id, t.UnixMicro())
}
