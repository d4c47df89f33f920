package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"lumagram/internal/model"
)

// mockUserRepository implements repository.UserRepository with per-test
// function fields, so each test defines exactly the behavior it needs.
type mockUserRepository struct {
	createFn                 func(ctx context.Context, user *model.User) error
	getByIDFn                func(ctx context.Context, id int64) (*model.User, error)
	getByEmailFn             func(ctx context.Context, email string) (*model.User, error)
	existsByEmailFn          func(ctx context.Context, email string) (bool, error)
	existsByUsernameFn       func(ctx context.Context, username string) (bool, error)
	existsByPhoneFn          func(ctx context.Context, phone string) (bool, error)
	existsByUsernameExceptFn func(ctx context.Context, username string, userID int64) (bool, error)
	existsByPhoneExceptFn    func(ctx context.Context, phone string, userID int64) (bool, error)
	updateProfileFn          func(ctx context.Context, user *model.User) error
	updatePasswordFn         func(ctx context.Context, userID int64, passwordHashed string) error
	updateAvatarFn           func(ctx context.Context, userID int64, avatarURL, avatarKey *string) error
	searchFn                 func(ctx context.Context, query string, limit int) ([]model.UserSummary, error)

	createCalls []*model.User
}

func (m *mockUserRepository) Create(ctx context.Context, user *model.User) error {
	m.createCalls = append(m.createCalls, user)
	if m.createFn != nil {
		return m.createFn(ctx, user)
	}
	return nil
}

func (m *mockUserRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, model.ErrUserNotFound
}

func (m *mockUserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	if m.getByEmailFn != nil {
		return m.getByEmailFn(ctx, email)
	}
	return nil, model.ErrUserNotFound
}

func (m *mockUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	if m.existsByEmailFn != nil {
		return m.existsByEmailFn(ctx, email)
	}
	return false, nil
}

func (m *mockUserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	if m.existsByUsernameFn != nil {
		return m.existsByUsernameFn(ctx, username)
	}
	return false, nil
}

func (m *mockUserRepository) ExistsByPhone(ctx context.Context, phone string) (bool, error) {
	if m.existsByPhoneFn != nil {
		return m.existsByPhoneFn(ctx, phone)
	}
	return false, nil
}

func (m *mockUserRepository) ExistsByUsernameExcept(ctx context.Context, username string, userID int64) (bool, error) {
	if m.existsByUsernameExceptFn != nil {
		return m.existsByUsernameExceptFn(ctx, username, userID)
	}
	return false, nil
}

func (m *mockUserRepository) ExistsByPhoneExcept(ctx context.Context, phone string, userID int64) (bool, error) {
	if m.existsByPhoneExceptFn != nil {
		return m.existsByPhoneExceptFn(ctx, phone, userID)
	}
	return false, nil
}

func (m *mockUserRepository) UpdateProfile(ctx context.Context, user *model.User) error {
	if m.updateProfileFn != nil {
		return m.updateProfileFn(ctx, user)
	}
	return nil
}

func (m *mockUserRepository) UpdatePassword(ctx context.Context, userID int64, passwordHashed string) error {
	if m.updatePasswordFn != nil {
		return m.updatePasswordFn(ctx, userID, passwordHashed)
	}
	return nil
}

func (m *mockUserRepository) UpdateAvatar(ctx context.Context, userID int64, avatarURL, avatarKey *string) error {
	if m.updateAvatarFn != nil {
		return m.updateAvatarFn(ctx, userID, avatarURL, avatarKey)
	}
	return nil
}

func (m *mockUserRepository) Search(ctx context.Context, query string, limit int) ([]model.UserSummary, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, query, limit)
	}
	return nil, nil
}

// mockFollowRepository implements repository.FollowRepository.
type mockFollowRepository struct {
	createFn       func(ctx context.Context, followerID, followeeID int64) (bool, error)
	deleteFn       func(ctx context.Context, followerID, followeeID int64) error
	existsFn       func(ctx context.Context, followerID, followeeID int64) (bool, error)
	getFollowersFn func(ctx context.Context, userID int64, cursor *time.Time, limit int) ([]model.UserSummary, *time.Time, error)
	getFollowingFn func(ctx context.Context, userID int64, cursor *time.Time, limit int) ([]model.UserSummary, *time.Time, error)
	checkFollowsFn func(ctx context.Context, followerID int64, followeeIDs []int64) (map[int64]bool, error)
}

func (m *mockFollowRepository) Create(ctx context.Context, followerID, followeeID int64) (bool, error) {
	if m.createFn != nil {
		return m.createFn(ctx, followerID, followeeID)
	}
	return true, nil
}

func (m *mockFollowRepository) Delete(ctx context.Context, followerID, followeeID int64) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, followerID, followeeID)
	}
	return nil
}

func (m *mockFollowRepository) Exists(ctx context.Context, followerID, followeeID int64) (bool, error) {
	if m.existsFn != nil {
		return m.existsFn(ctx, followerID, followeeID)
	}
	return false, nil
}

func (m *mockFollowRepository) GetFollowers(ctx context.Context, userID int64, cursor *time.Time, limit int) ([]model.UserSummary, *time.Time, error) {
	if m.getFollowersFn != nil {
		return m.getFollowersFn(ctx, userID, cursor, limit)
	}
	return nil, nil, nil
}

func (m *mockFollowRepository) GetFollowing(ctx context.Context, userID int64, cursor *time.Time, limit int) ([]model.UserSummary, *time.Time, error) {
	if m.getFollowingFn != nil {
		return m.getFollowingFn(ctx, userID, cursor, limit)
	}
	return nil, nil, nil
}

func (m *mockFollowRepository) CheckFollows(ctx context.Context, followerID int64, followeeIDs []int64) (map[int64]bool, error) {
	if m.checkFollowsFn != nil {
		return m.checkFollowsFn(ctx, followerID, followeeIDs)
	}
	return map[int64]bool{}, nil
}

func validRegisterRequest() *model.RegisterRequest {
	return &model.RegisterRequest{
		Email:       "new@example.com",
		Username:    "newuser",
		Password:    "securepassword123",
		DisplayName: "New User",
	}
}

func TestUserService_Register_Success(t *testing.T) {
	mockRepo := &mockUserRepository{
		createFn: func(ctx context.Context, user *model.User) error {
			user.ID = 1
			user.CreatedAt = time.Now()
			user.UpdatedAt = time.Now()
			return nil
		},
	}
	svc := NewUserService(mockRepo, &mockFollowRepository{})

	req := validRegisterRequest()
	user, err := svc.Register(context.Background(), req)

	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if user == nil {
		t.Fatal("expected user, got nil")
	}
	if user.Username != req.Username {
		t.Errorf("username = %q, want %q", user.Username, req.Username)
	}
	if user.Email != req.Email {
		t.Errorf("email = %q, want %q", user.Email, req.Email)
	}

	if user.PasswordHashed == req.Password {
		t.Error("password should be hashed, not stored in plain text")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHashed), []byte(req.Password)); err != nil {
		t.Error("password hash should be valid bcrypt hash")
	}

	if len(mockRepo.createCalls) != 1 {
		t.Errorf("Create called %d times, want 1", len(mockRepo.createCalls))
	}
}

// A default avatar set on the request (by the handler, from configuration)
// must land on the created user row.
func TestUserService_Register_DefaultAvatar(t *testing.T) {
	mockRepo := &mockUserRepository{}
	svc := NewUserService(mockRepo, &mockFollowRepository{})

	avatarURL := "https://cdn.example.com/avatars/default.jpg"
	avatarKey := "avatars/default.jpg"
	req := validRegisterRequest()
	req.AvatarURL = &avatarURL
	req.AvatarKey = &avatarKey

	user, err := svc.Register(context.Background(), req)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if user.AvatarURL == nil || *user.AvatarURL != avatarURL {
		t.Errorf("avatar url not carried onto the user: %v", user.AvatarURL)
	}
	if user.AvatarKey == nil || *user.AvatarKey != avatarKey {
		t.Errorf("avatar key not carried onto the user: %v", user.AvatarKey)
	}
}

func TestUserService_Register_Validation(t *testing.T) {
	longBio := make([]byte, model.MaxBioLength+1)
	for i := range longBio {
		longBio[i] = 'a'
	}
	bio := string(longBio)
	badPhone := "not-a-phone"

	tests := []struct {
		name    string
		mutate  func(req *model.RegisterRequest)
		wantErr error
	}{
		{
			name:    "invalid email",
			mutate:  func(req *model.RegisterRequest) { req.Email = "not-an-email" },
			wantErr: ErrInvalidEmail,
		},
		{
			name:    "username too short",
			mutate:  func(req *model.RegisterRequest) { req.Username = "ab" },
			wantErr: ErrInvalidUsername,
		},
		{
			name:    "username with invalid characters",
			mutate:  func(req *model.RegisterRequest) { req.Username = "bad name!" },
			wantErr: ErrInvalidUsername,
		},
		{
			name:    "password too short",
			mutate:  func(req *model.RegisterRequest) { req.Password = "short" },
			wantErr: ErrInvalidPassword,
		},
		{
			name:    "invalid phone",
			mutate:  func(req *model.RegisterRequest) { req.Phone = &badPhone },
			wantErr: ErrInvalidPhone,
		},
		{
			name:    "bio too long",
			mutate:  func(req *model.RegisterRequest) { req.Bio = &bio },
			wantErr: ErrBioTooLong,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := &mockUserRepository{}
			svc := NewUserService(mockRepo, &mockFollowRepository{})

			req := validRegisterRequest()
			tt.mutate(req)

			_, err := svc.Register(context.Background(), req)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
			if len(mockRepo.createCalls) != 0 {
				t.Error("Create should not be called on validation failure")
			}
		})
	}
}

// A request colliding on several fields must always report the email
// conflict first, then username, then phone.
func TestUserService_Register_ConflictOrder(t *testing.T) {
	tests := []struct {
		name           string
		emailTaken     bool
		usernameTaken  bool
		phoneTaken     bool
		wantErr        error
	}{
		{
			name:       "all taken reports email first",
			emailTaken: true, usernameTaken: true, phoneTaken: true,
			wantErr: model.ErrEmailExists,
		},
		{
			name:          "username and phone taken reports username",
			usernameTaken: true, phoneTaken: true,
			wantErr: model.ErrUsernameExists,
		},
		{
			name:       "phone taken reports phone",
			phoneTaken: true,
			wantErr:    model.ErrPhoneExists,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := &mockUserRepository{
				existsByEmailFn: func(ctx context.Context, email string) (bool, error) {
					return tt.emailTaken, nil
				},
				existsByUsernameFn: func(ctx context.Context, username string) (bool, error) {
					return tt.usernameTaken, nil
				},
				existsByPhoneFn: func(ctx context.Context, phone string) (bool, error) {
					return tt.phoneTaken, nil
				},
			}
			svc := NewUserService(mockRepo, &mockFollowRepository{})

			phone := "+84901234567"
			req := validRegisterRequest()
			req.Phone = &phone

			_, err := svc.Register(context.Background(), req)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
			if len(mockRepo.createCalls) != 0 {
				t.Error("Create should not be called when a field collides")
			}
		})
	}
}

func TestUserService_Login(t *testing.T) {
	validPassword := "correctpassword"
	validHash, _ := bcrypt.GenerateFromPassword([]byte(validPassword), bcrypt.MinCost)

	testUser := &model.User{
		ID:             1,
		Email:          "test@example.com",
		Username:       "testuser",
		PasswordHashed: string(validHash),
	}

	tests := []struct {
		name        string
		email       string
		password    string
		mockGetByFn func(ctx context.Context, email string) (*model.User, error)
		wantErr     error
		wantUser    bool
	}{
		{
			name:     "successful login",
			email:    "test@example.com",
			password: validPassword,
			mockGetByFn: func(ctx context.Context, email string) (*model.User, error) {
				return testUser, nil
			},
			wantErr:  nil,
			wantUser: true,
		},
		{
			name:     "unknown email",
			email:    "nobody@example.com",
			password: "anypassword",
			mockGetByFn: func(ctx context.Context, email string) (*model.User, error) {
				return nil, model.ErrUserNotFound
			},
			wantErr:  model.ErrInvalidCredentials,
			wantUser: false,
		},
		{
			name:     "wrong password",
			email:    "test@example.com",
			password: "wrongpassword",
			mockGetByFn: func(ctx context.Context, email string) (*model.User, error) {
				return testUser, nil
			},
			wantErr:  model.ErrInvalidCredentials,
			wantUser: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := &mockUserRepository{
				getByEmailFn: tt.mockGetByFn,
			}
			svc := NewUserService(mockRepo, &mockFollowRepository{})

			req := &model.LoginRequest{
				Email:    tt.email,
				Password: tt.password,
			}

			user, err := svc.Login(context.Background(), req)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("error = %v, want %v", err, tt.wantErr)
				}
			} else if err != nil {
				t.Errorf("unexpected error: %v", err)
			}

			if tt.wantUser && user == nil {
				t.Error("expected user, got nil")
			}
			if !tt.wantUser && user != nil {
				t.Error("expected nil user")
			}
		})
	}
}

// Unknown emails and wrong passwords must be indistinguishable to the caller.
func TestUserService_Login_IdenticalErrors(t *testing.T) {
	validHash, _ := bcrypt.GenerateFromPassword([]byte("rightpassword"), bcrypt.MinCost)

	unknownRepo := &mockUserRepository{
		getByEmailFn: func(ctx context.Context, email string) (*model.User, error) {
			return nil, model.ErrUserNotFound
		},
	}
	wrongPassRepo := &mockUserRepository{
		getByEmailFn: func(ctx context.Context, email string) (*model.User, error) {
			return &model.User{ID: 1, PasswordHashed: string(validHash)}, nil
		},
	}

	_, errUnknown := NewUserService(unknownRepo, &mockFollowRepository{}).Login(context.Background(), &model.LoginRequest{Email: "a@b.co", Password: "x"})
	_, errWrongPass := NewUserService(wrongPassRepo, &mockFollowRepository{}).Login(context.Background(), &model.LoginRequest{Email: "a@b.co", Password: "x"})

	if errUnknown == nil || errWrongPass == nil {
		t.Fatal("both cases should fail")
	}
	if errUnknown.Error() != errWrongPass.Error() {
		t.Errorf("error messages differ: %q vs %q", errUnknown, errWrongPass)
	}
}

func TestUserService_GetProfile(t *testing.T) {
	testUser := &model.User{ID: 2, Username: "target"}

	mockRepo := &mockUserRepository{
		getByIDFn: func(ctx context.Context, id int64) (*model.User, error) {
			if id == 2 {
				return testUser, nil
			}
			return nil, model.ErrUserNotFound
		},
	}
	followRepo := &mockFollowRepository{
		existsFn: func(ctx context.Context, followerID, followeeID int64) (bool, error) {
			return followerID == 1 && followeeID == 2, nil
		},
	}
	svc := NewUserService(mockRepo, followRepo)

	viewer := int64(1)
	profile, err := svc.GetProfile(context.Background(), 2, &viewer)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !profile.IsFollowing {
		t.Error("expected is_following to be true")
	}

	// Viewing your own profile skips the follow check.
	self := int64(2)
	profile, err = svc.GetProfile(context.Background(), 2, &self)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if profile.IsFollowing {
		t.Error("is_following should be false for own profile")
	}

	if _, err := svc.GetProfile(context.Background(), 99, nil); !errors.Is(err, model.ErrUserNotFound) {
		t.Errorf("error = %v, want %v", err, model.ErrUserNotFound)
	}
}

func TestUserService_UpdateProfile(t *testing.T) {
	existing := func() *model.User {
		return &model.User{ID: 1, Username: "olduser", Email: "u@example.com"}
	}

	t.Run("username conflict excludes own row", func(t *testing.T) {
		var checkedUserID int64
		mockRepo := &mockUserRepository{
			getByIDFn: func(ctx context.Context, id int64) (*model.User, error) {
				return existing(), nil
			},
			existsByUsernameExceptFn: func(ctx context.Context, username string, userID int64) (bool, error) {
				checkedUserID = userID
				return false, nil
			},
		}
		svc := NewUserService(mockRepo, &mockFollowRepository{})

		username := "olduser"
		_, err := svc.UpdateProfile(context.Background(), 1, &model.UpdateProfileRequest{Username: &username})
		if err != nil {
			t.Fatalf("setting username to its current value should succeed, got: %v", err)
		}
		if checkedUserID != 1 {
			t.Errorf("uniqueness check should exclude user 1, excluded %d", checkedUserID)
		}
	})

	t.Run("taken username is a conflict", func(t *testing.T) {
		mockRepo := &mockUserRepository{
			getByIDFn: func(ctx context.Context, id int64) (*model.User, error) {
				return existing(), nil
			},
			existsByUsernameExceptFn: func(ctx context.Context, username string, userID int64) (bool, error) {
				return true, nil
			},
		}
		svc := NewUserService(mockRepo, &mockFollowRepository{})

		username := "takenuser"
		_, err := svc.UpdateProfile(context.Background(), 1, &model.UpdateProfileRequest{Username: &username})
		if !errors.Is(err, model.ErrUsernameExists) {
			t.Errorf("error = %v, want %v", err, model.ErrUsernameExists)
		}
	})

	t.Run("bio is sanitized", func(t *testing.T) {
		var saved *model.User
		mockRepo := &mockUserRepository{
			getByIDFn: func(ctx context.Context, id int64) (*model.User, error) {
				return existing(), nil
			},
			updateProfileFn: func(ctx context.Context, user *model.User) error {
				saved = user
				return nil
			},
		}
		svc := NewUserService(mockRepo, &mockFollowRepository{})

		bio := "  hello <script>alert(1)</script>world  "
		_, err := svc.UpdateProfile(context.Background(), 1, &model.UpdateProfileRequest{Bio: &bio})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if saved == nil || saved.Bio == nil {
			t.Fatal("expected bio to be saved")
		}
		if *saved.Bio != "hello world" {
			t.Errorf("bio = %q, want %q", *saved.Bio, "hello world")
		}
	})
}

func TestUserService_ChangePassword(t *testing.T) {
	currentHash, _ := bcrypt.GenerateFromPassword([]byte("currentpass123"), bcrypt.MinCost)
	testUser := func() *model.User {
		return &model.User{ID: 1, PasswordHashed: string(currentHash)}
	}

	t.Run("wrong current password", func(t *testing.T) {
		mockRepo := &mockUserRepository{
			getByIDFn: func(ctx context.Context, id int64) (*model.User, error) {
				return testUser(), nil
			},
		}
		svc := NewUserService(mockRepo, &mockFollowRepository{})

		err := svc.ChangePassword(context.Background(), 1, &model.ChangePasswordRequest{
			CurrentPassword: "wrongpass",
			NewPassword:     "newpassword123",
		})
		if !errors.Is(err, model.ErrInvalidCredentials) {
			t.Errorf("error = %v, want %v", err, model.ErrInvalidCredentials)
		}
	})

	t.Run("new password too short", func(t *testing.T) {
		mockRepo := &mockUserRepository{
			getByIDFn: func(ctx context.Context, id int64) (*model.User, error) {
				return testUser(), nil
			},
		}
		svc := NewUserService(mockRepo, &mockFollowRepository{})

		err := svc.ChangePassword(context.Background(), 1, &model.ChangePasswordRequest{
			CurrentPassword: "currentpass123",
			NewPassword:     "short",
		})
		if !errors.Is(err, ErrInvalidPassword) {
			t.Errorf("error = %v, want %v", err, ErrInvalidPassword)
		}
	})

	t.Run("success stores new hash", func(t *testing.T) {
		var storedHash string
		mockRepo := &mockUserRepository{
			getByIDFn: func(ctx context.Context, id int64) (*model.User, error) {
				return testUser(), nil
			},
			updatePasswordFn: func(ctx context.Context, userID int64, passwordHashed string) error {
				storedHash = passwordHashed
				return nil
			},
		}
		svc := NewUserService(mockRepo, &mockFollowRepository{})

		err := svc.ChangePassword(context.Background(), 1, &model.ChangePasswordRequest{
			CurrentPassword: "currentpass123",
			NewPassword:     "newpassword123",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := bcrypt.CompareHashAndPassword([]byte(storedHash), []byte("newpassword123")); err != nil {
			t.Error("stored hash should match the new password")
		}
	})
}

func TestUserService_Search(t *testing.T) {
	mockRepo := &mockUserRepository{
		searchFn: func(ctx context.Context, query string, limit int) ([]model.UserSummary, error) {
			return []model.UserSummary{
				{ID: 2, Username: "alice"},
				{ID: 3, Username: "alicia"},
			}, nil
		},
	}
	followRepo := &mockFollowRepository{
		checkFollowsFn: func(ctx context.Context, followerID int64, followeeIDs []int64) (map[int64]bool, error) {
			return map[int64]bool{2: true, 3: false}, nil
		},
	}
	svc := NewUserService(mockRepo, followRepo)

	viewer := int64(1)
	users, err := svc.Search(context.Background(), "ali", 20, &viewer)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("got %d users, want 2", len(users))
	}
	if !users[0].IsFollowing || users[1].IsFollowing {
		t.Error("follow enrichment mismatch")
	}

	// Blank queries return an empty result without hitting the repository.
	empty, err := svc.Search(context.Background(), "   ", 20, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("expected empty result for blank query, got %d", len(empty))
	}
}
