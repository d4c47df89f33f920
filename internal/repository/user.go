package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"lumagram/internal/model"
)

// userColumns is the select list shared by single-user lookups. Follower,
// following and post counts are computed at read time.
const userColumns = `
	u.id, u.email, u.username, u.password_hashed, u.phone, u.display_name, u.bio,
	u.avatar_url, u.avatar_key, u.is_private, u.is_verified, u.status,
	(SELECT COUNT(*) FROM follows f WHERE f.followee_id = u.id) AS follower_count,
	(SELECT COUNT(*) FROM follows f WHERE f.follower_id = u.id) AS following_count,
	(SELECT COUNT(*) FROM posts p WHERE p.user_id = u.id AND p.deleted_at IS NULL) AS post_count,
	u.created_at, u.updated_at
`

// userRepository implements UserRepository using sqlx
type userRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *sqlx.DB) UserRepository {
	return &userRepository{db: db}
}

// translateUniqueViolation maps a unique-constraint violation to the typed
// conflict for the colliding column. The application-level existence checks
// are pre-checks only; under concurrent registration the constraint is the
// source of truth and must surface the same conflict.
func translateUniqueViolation(err error) error {
	pqErr, ok := err.(*pq.Error)
	if !ok || pqErr.Code != "23505" {
		return nil
	}
	switch {
	case strings.Contains(pqErr.Constraint, "email"):
		return model.ErrEmailExists
	case strings.Contains(pqErr.Constraint, "username"):
		return model.ErrUsernameExists
	case strings.Contains(pqErr.Constraint, "phone"):
		return model.ErrPhoneExists
	}
	return nil
}

// Create inserts a new user into the database
func (r *userRepository) Create(ctx context.Context, u *model.User) error {
	query := `
		INSERT INTO users (email, username, password_hashed, phone, display_name, bio, avatar_url, avatar_key, is_private, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
		RETURNING id, is_verified, status, created_at, updated_at
	`

	row := r.db.QueryRowxContext(ctx, query,
		u.Email,
		u.Username,
		u.PasswordHashed,
		u.Phone,
		u.DisplayName,
		u.Bio,
		u.AvatarURL,
		u.AvatarKey,
		u.IsPrivate,
	)

	err := row.Scan(
		&u.ID,
		&u.IsVerified,
		&u.Status,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if conflict := translateUniqueViolation(err); conflict != nil {
			return conflict
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}

	return nil
}

// GetByID retrieves a user by their ID
func (r *userRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users u WHERE u.id = $1`

	var u model.User
	err := r.db.GetContext(ctx, &u, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, model.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}

	return &u, nil
}

// GetByEmail retrieves a user by email, case-insensitively.
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users u WHERE LOWER(u.email) = LOWER($1)`

	var u model.User
	err := r.db.GetContext(ctx, &u, query, email)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, model.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	return &u, nil
}

func (r *userRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE LOWER(email) = LOWER($1))`

	var exists bool
	err := r.db.GetContext(ctx, &exists, query, email)
	if err != nil {
		return false, fmt.Errorf("failed to check email existence: %w", err)
	}

	return exists, nil
}

func (r *userRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE LOWER(username) = LOWER($1))`

	var exists bool
	err := r.db.GetContext(ctx, &exists, query, username)
	if err != nil {
		return false, fmt.Errorf("failed to check username existence: %w", err)
	}

	return exists, nil
}

func (r *userRepository) ExistsByPhone(ctx context.Context, phone string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE phone = $1)`

	var exists bool
	err := r.db.GetContext(ctx, &exists, query, phone)
	if err != nil {
		return false, fmt.Errorf("failed to check phone existence: %w", err)
	}

	return exists, nil
}

func (r *userRepository) ExistsByUsernameExcept(ctx context.Context, username string, userID int64) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE LOWER(username) = LOWER($1) AND id <> $2)`

	var exists bool
	err := r.db.GetContext(ctx, &exists, query, username, userID)
	if err != nil {
		return false, fmt.Errorf("failed to check username existence: %w", err)
	}

	return exists, nil
}

func (r *userRepository) ExistsByPhoneExcept(ctx context.Context, phone string, userID int64) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE phone = $1 AND id <> $2)`

	var exists bool
	err := r.db.GetContext(ctx, &exists, query, phone, userID)
	if err != nil {
		return false, fmt.Errorf("failed to check phone existence: %w", err)
	}

	return exists, nil
}

// UpdateProfile persists username, display name, phone, bio and privacy flag.
func (r *userRepository) UpdateProfile(ctx context.Context, u *model.User) error {
	query := `
		UPDATE users
		SET username = $1, display_name = $2, phone = $3, bio = $4, is_private = $5, updated_at = NOW()
		WHERE id = $6
		RETURNING updated_at
	`

	err := r.db.QueryRowxContext(ctx, query,
		u.Username,
		u.DisplayName,
		u.Phone,
		u.Bio,
		u.IsPrivate,
		u.ID,
	).Scan(&u.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return model.ErrUserNotFound
		}
		if conflict := translateUniqueViolation(err); conflict != nil {
			return conflict
		}
		return fmt.Errorf("failed to update profile: %w", err)
	}

	return nil
}

func (r *userRepository) UpdatePassword(ctx context.Context, userID int64, passwordHashed string) error {
	query := `UPDATE users SET password_hashed = $1, updated_at = NOW() WHERE id = $2`

	result, err := r.db.ExecContext(ctx, query, passwordHashed, userID)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return model.ErrUserNotFound
	}

	return nil
}

func (r *userRepository) UpdateAvatar(ctx context.Context, userID int64, avatarURL, avatarKey *string) error {
	query := `UPDATE users SET avatar_url = $1, avatar_key = $2, updated_at = NOW() WHERE id = $3`

	result, err := r.db.ExecContext(ctx, query, avatarURL, avatarKey, userID)
	if err != nil {
		return fmt.Errorf("failed to update avatar: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return model.ErrUserNotFound
	}

	return nil
}

func (r *userRepository) Search(ctx context.Context, query string, limit int) ([]model.UserSummary, error) {
	searchQuery := `
		SELECT id, username, display_name, avatar_url
		FROM users
		WHERE username ILIKE $1
		ORDER BY (SELECT COUNT(*) FROM follows f WHERE f.followee_id = users.id) DESC, id
		LIMIT $2
	`

	var users []model.UserSummary
	err := r.db.SelectContext(ctx, &users, searchQuery, query+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search users: %w", err)
	}

	return users, nil
}
