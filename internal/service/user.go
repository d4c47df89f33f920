package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"lumagram/internal/model"
	"lumagram/internal/repository"
	"lumagram/internal/sanitize"
)

var (
	emailPattern    = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
	phonePattern    = regexp.MustCompile(`^\+?[0-9]{7,15}$`)
)

// Validation errors surfaced as 400s with a field name attached.
var (
	ErrInvalidEmail    = errors.New("invalid email address")
	ErrInvalidUsername = errors.New("username must be 3-50 characters of letters, digits and underscores")
	ErrInvalidPassword = errors.New("password must be at least 8 characters")
	ErrInvalidPhone    = errors.New("invalid phone number")
	ErrBioTooLong      = errors.New("bio too long")
)

// UserService handles business logic for user accounts.
type UserService struct {
	repo       repository.UserRepository
	followRepo repository.FollowRepository

	// placeholderHash is compared against when login hits an unknown email,
	// so both branches pay the bcrypt cost.
	placeholderHash []byte
}

func NewUserService(repo repository.UserRepository, followRepo repository.FollowRepository) *UserService {
	placeholder, err := bcrypt.GenerateFromPassword([]byte("placeholder-credential"), bcrypt.DefaultCost)
	if err != nil {
		// bcrypt only fails on an out-of-range cost, which DefaultCost is not.
		panic(fmt.Sprintf("generate placeholder hash: %v", err))
	}
	return &UserService{
		repo:            repo,
		followRepo:      followRepo,
		placeholderHash: placeholder,
	}
}

func validateUsername(username string) error {
	if len(username) < model.MinUsernameLength || len(username) > model.MaxUsernameLength {
		return ErrInvalidUsername
	}
	if !usernamePattern.MatchString(username) {
		return ErrInvalidUsername
	}
	return nil
}

func validateBio(bio *string) (*string, error) {
	if bio == nil {
		return nil, nil
	}
	clean := sanitize.Clean(*bio)
	if len(clean) > model.MaxBioLength {
		return nil, ErrBioTooLong
	}
	if clean == "" {
		return nil, nil
	}
	return &clean, nil
}

// Register creates a new account. Uniqueness is checked in a fixed order so
// a request colliding on several fields always reports the same conflict:
// email first, then username, then phone.
func (s *UserService) Register(ctx context.Context, req *model.RegisterRequest) (*model.User, error) {
	email := strings.TrimSpace(req.Email)
	if !emailPattern.MatchString(email) {
		return nil, ErrInvalidEmail
	}

	username := strings.TrimSpace(req.Username)
	if err := validateUsername(username); err != nil {
		return nil, err
	}

	if len(req.Password) < model.MinPasswordLength {
		return nil, ErrInvalidPassword
	}

	if req.Phone != nil && !phonePattern.MatchString(*req.Phone) {
		return nil, ErrInvalidPhone
	}

	bio, err := validateBio(req.Bio)
	if err != nil {
		return nil, err
	}

	exists, err := s.repo.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if exists {
		return nil, model.ErrEmailExists
	}

	exists, err = s.repo.ExistsByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}
	if exists {
		return nil, model.ErrUsernameExists
	}

	if req.Phone != nil {
		exists, err = s.repo.ExistsByPhone(ctx, *req.Phone)
		if err != nil {
			return nil, fmt.Errorf("failed to check phone: %w", err)
		}
		if exists {
			return nil, model.ErrPhoneExists
		}
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		Email:          email,
		Username:       username,
		PasswordHashed: string(hashedPassword),
		Phone:          req.Phone,
		Bio:            bio,
		AvatarURL:      req.AvatarURL,
		AvatarKey:      req.AvatarKey,
	}

	if displayName := strings.TrimSpace(req.DisplayName); displayName != "" {
		user.DisplayName = &displayName
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

// Login authenticates by email and password. Unknown emails and wrong
// passwords return the same error; the unknown-email path still runs a
// bcrypt comparison so the two cases take comparable time.
func (s *UserService) Login(ctx context.Context, req *model.LoginRequest) (*model.User, error) {
	user, err := s.repo.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			bcrypt.CompareHashAndPassword(s.placeholderHash, []byte(req.Password))
			return nil, model.ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHashed), []byte(req.Password)); err != nil {
		return nil, model.ErrInvalidCredentials
	}

	return user, nil
}

// GetByID retrieves a user by ID.
func (s *UserService) GetByID(ctx context.Context, id int64) (*model.User, error) {
	return s.repo.GetByID(ctx, id)
}

// GetProfile retrieves a user's profile with the viewer's follow status.
// The follow check is best effort; its failure does not block the profile.
func (s *UserService) GetProfile(ctx context.Context, userID int64, viewerID *int64) (*model.ProfileResponse, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	profile := &model.ProfileResponse{
		User:        user,
		IsFollowing: false,
	}

	if viewerID != nil && *viewerID != userID {
		isFollowing, err := s.followRepo.Exists(ctx, *viewerID, userID)
		if err == nil {
			profile.IsFollowing = isFollowing
		}
	}

	return profile, nil
}

// UpdateProfile applies partial profile changes. Nil fields are left
// untouched. Uniqueness checks exclude the caller's own row, so setting a
// field to its current value never self-collides.
func (s *UserService) UpdateProfile(ctx context.Context, userID int64, req *model.UpdateProfileRequest) (*model.User, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.Username != nil {
		username := strings.TrimSpace(*req.Username)
		if err := validateUsername(username); err != nil {
			return nil, err
		}
		exists, err := s.repo.ExistsByUsernameExcept(ctx, username, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to check username: %w", err)
		}
		if exists {
			return nil, model.ErrUsernameExists
		}
		user.Username = username
	}

	if req.Phone != nil {
		if !phonePattern.MatchString(*req.Phone) {
			return nil, ErrInvalidPhone
		}
		exists, err := s.repo.ExistsByPhoneExcept(ctx, *req.Phone, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to check phone: %w", err)
		}
		if exists {
			return nil, model.ErrPhoneExists
		}
		user.Phone = req.Phone
	}

	if req.DisplayName != nil {
		displayName := strings.TrimSpace(*req.DisplayName)
		if displayName == "" {
			user.DisplayName = nil
		} else {
			user.DisplayName = &displayName
		}
	}

	if req.Bio != nil {
		bio, err := validateBio(req.Bio)
		if err != nil {
			return nil, err
		}
		user.Bio = bio
	}

	if req.IsPrivate != nil {
		user.IsPrivate = *req.IsPrivate
	}

	if err := s.repo.UpdateProfile(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

// ChangePassword verifies the current password before storing the new hash.
func (s *UserService) ChangePassword(ctx context.Context, userID int64, req *model.ChangePasswordRequest) error {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHashed), []byte(req.CurrentPassword)); err != nil {
		return model.ErrInvalidCredentials
	}

	if len(req.NewPassword) < model.MinPasswordLength {
		return ErrInvalidPassword
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	return s.repo.UpdatePassword(ctx, userID, string(hashedPassword))
}

// UpdateAvatar stores the uploaded avatar location and returns the old key
// so the caller can delete the replaced object.
func (s *UserService) UpdateAvatar(ctx context.Context, userID int64, avatarURL, avatarKey string) (oldKey *string, err error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateAvatar(ctx, userID, &avatarURL, &avatarKey); err != nil {
		return nil, err
	}

	return user.AvatarKey, nil
}

// Search finds users by username prefix with follow status enrichment.
// CheckFollows batches the lookups with ANY($1) to avoid an N+1.
func (s *UserService) Search(ctx context.Context, query string, limit int, viewerID *int64) ([]model.UserSummary, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []model.UserSummary{}, nil
	}
	if limit <= 0 || limit > 50 {
		limit = 20
	}

	users, err := s.repo.Search(ctx, query, limit)
	if err != nil {
		return nil, err
	}

	if viewerID != nil && len(users) > 0 {
		userIDs := make([]int64, len(users))
		for i, user := range users {
			userIDs[i] = user.ID
		}

		followMap, err := s.followRepo.CheckFollows(ctx, *viewerID, userIDs)
		if err == nil {
			for i := range users {
				users[i].IsFollowing = followMap[users[i].ID]
			}
		}
	}

	return users, nil
}
