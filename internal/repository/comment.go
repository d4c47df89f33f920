package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"lumagram/internal/model"
)

type commentRepository struct {
	db *sqlx.DB
}

func NewCommentRepository(db *sqlx.DB) CommentRepository {
	return &commentRepository{db: db}
}

// Create inserts a comment and returns it with the author summary attached.
func (r *commentRepository) Create(ctx context.Context, postID, userID int64, content string) (*model.Comment, error) {
	query := `
		INSERT INTO post_comments (post_id, user_id, content)
		VALUES ($1, $2, $3)
		RETURNING id, post_id, user_id, content, created_at, updated_at
	`

	var comment model.Comment
	err := r.db.GetContext(ctx, &comment, query, postID, userID, content)
	if err != nil {
		return nil, fmt.Errorf("insert comment: %w", err)
	}

	var author model.UserSummary
	err = r.db.GetContext(ctx, &author, `
		SELECT id, username, display_name, avatar_url FROM users WHERE id = $1
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("get comment author: %w", err)
	}
	comment.Author = &author

	return &comment, nil
}

func (r *commentRepository) GetByID(ctx context.Context, commentID int64) (*model.Comment, error) {
	query := `
		SELECT c.id, c.post_id, c.user_id, c.content, c.created_at, c.updated_at,
		       u.id AS "author.id", u.username AS "author.username",
		       u.display_name AS "author.display_name", u.avatar_url AS "author.avatar_url"
		FROM post_comments c
		JOIN users u ON u.id = c.user_id
		WHERE c.id = $1
	`

	var comment model.Comment
	err := r.db.GetContext(ctx, &comment, query, commentID)
	if err == sql.ErrNoRows {
		return nil, model.ErrCommentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get comment: %w", err)
	}

	return &comment, nil
}

// Update replaces a comment's content. Ownership has already been checked
// by the service layer.
func (r *commentRepository) Update(ctx context.Context, commentID int64, content string) (*model.Comment, error) {
	query := `
		UPDATE post_comments SET content = $1, updated_at = NOW()
		WHERE id = $2
		RETURNING id, post_id, user_id, content, created_at, updated_at
	`

	var comment model.Comment
	err := r.db.GetContext(ctx, &comment, query, content, commentID)
	if err == sql.ErrNoRows {
		return nil, model.ErrCommentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update comment: %w", err)
	}

	return &comment, nil
}

func (r *commentRepository) Delete(ctx context.Context, commentID int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM post_comments WHERE id = $1`, commentID)
	if err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return model.ErrCommentNotFound
	}
	return nil
}

// GetByPostID retrieves a post's comments, newest first, with a compound
// "id:timestamp" cursor.
func (r *commentRepository) GetByPostID(ctx context.Context, postID int64, cursor *string, limit int) ([]model.Comment, *string, error) {
	const columns = `
		c.id, c.post_id, c.user_id, c.content, c.created_at, c.updated_at,
		u.id AS "author.id", u.username AS "author.username",
		u.display_name AS "author.display_name", u.avatar_url AS "author.avatar_url"
	`

	var query string
	var args []interface{}

	if cursor == nil {
		query = `
			SELECT ` + columns + `
			FROM post_comments c
			JOIN users u ON u.id = c.user_id
			WHERE c.post_id = $1
			ORDER BY c.created_at DESC, c.id DESC
			LIMIT $2
		`
		args = []interface{}{postID, limit + 1}
	} else {
		ts, id, err := parseCursor(*cursor)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid cursor: %w", err)
		}
		query = `
			SELECT ` + columns + `
			FROM post_comments c
			JOIN users u ON u.id = c.user_id
			WHERE c.post_id = $1 AND (c.created_at, c.id) < ($2, $3)
			ORDER BY c.created_at DESC, c.id DESC
			LIMIT $4
		`
		args = []interface{}{postID, ts, id, limit + 1}
	}

	var comments []model.Comment
	err := r.db.SelectContext(ctx, &comments, query, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("select comments: %w", err)
	}

	var nextCursor *string
	if len(comments) > limit {
		comments = comments[:limit]
		last := comments[len(comments)-1]
		c := formatCursor(last.CreatedAt, last.ID)
		nextCursor = &c
	}

	return comments, nextCursor, nil
}
