package model

import (
	"errors"
	"time"
)

// User statuses
const (
	UserStatusActive   = "active"
	UserStatusDisabled = "disabled"
)

// User field constraints
const (
	MinUsernameLength = 3
	MaxUsernameLength = 50
	MinPasswordLength = 8
	MaxBioLength      = 500
)

// User represents a user account with credentials and profile fields.
type User struct {
	ID             int64     `db:"id" json:"id"`
	Email          string    `db:"email" json:"email"`
	Username       string    `db:"username" json:"username"`
	PasswordHashed string    `db:"password_hashed" json:"-"` // "-" hides from JSON output
	Phone          *string   `db:"phone" json:"phone,omitempty"`
	DisplayName    *string   `db:"display_name" json:"display_name"`
	Bio            *string   `db:"bio" json:"bio"`
	AvatarURL      *string   `db:"avatar_url" json:"avatar_url"`
	AvatarKey      *string   `db:"avatar_key" json:"-"`
	IsPrivate      bool      `db:"is_private" json:"is_private"`
	IsVerified     bool      `db:"is_verified" json:"is_verified"`
	Status         string    `db:"status" json:"status"`
	FollowerCount  int       `db:"follower_count" json:"follower_count"`
	FollowingCount int       `db:"following_count" json:"following_count"`
	PostCount      int       `db:"post_count" json:"post_count"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// RegisterRequest represents the data needed to register a new user.
// AvatarURL/AvatarKey are filled in server-side from the configured default
// avatar; clients cannot set them.
type RegisterRequest struct {
	Email       string  `json:"email"`
	Username    string  `json:"username"`
	Password    string  `json:"password"`
	DisplayName string  `json:"display_name"`
	Phone       *string `json:"phone,omitempty"`
	Bio         *string `json:"bio,omitempty"`
	AvatarURL   *string `json:"-"`
	AvatarKey   *string `json:"-"`
}

// LoginRequest represents the data needed to log in
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is returned after successful login
type LoginResponse struct {
	User        *User  `json:"user"`
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"` // Seconds until the access token expires
}

// UpdateProfileRequest carries optional profile changes. Nil fields are left
// untouched.
type UpdateProfileRequest struct {
	Username    *string `json:"username,omitempty"`
	DisplayName *string `json:"display_name,omitempty"`
	Phone       *string `json:"phone,omitempty"`
	Bio         *string `json:"bio,omitempty"`
	IsPrivate   *bool   `json:"is_private,omitempty"`
}

// ChangePasswordRequest verifies the current password before setting a new one.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// ProfileResponse is a user profile enriched with the viewer's follow status.
type ProfileResponse struct {
	User        *User `json:"user"`
	IsFollowing bool  `json:"is_following"`
}

var (
	// ErrUserNotFound is returned when a user cannot be found
	ErrUserNotFound = errors.New("user not found")

	// ErrEmailExists is returned when the email is already registered
	ErrEmailExists = errors.New("email already registered")

	// ErrUsernameExists is returned when attempting to create a user with a taken username
	ErrUsernameExists = errors.New("username already exists")

	// ErrPhoneExists is returned when the phone number is already registered
	ErrPhoneExists = errors.New("phone number already registered")

	// ErrInvalidCredentials is returned when login credentials are incorrect.
	// The same error covers unknown emails and wrong passwords so the
	// response never reveals whether an account exists.
	ErrInvalidCredentials = errors.New("invalid email or password")
)
