package service

import (
	"context"
	"fmt"
	"strings"

	"lumagram/internal/logger"
	"lumagram/internal/model"
	"lumagram/internal/repository"
	"lumagram/internal/sanitize"
)

// ObjectDeleter removes stored media objects by key. Satisfied by MediaService.
type ObjectDeleter interface {
	DeleteObject(ctx context.Context, key string) error
}

// PostService handles business logic for posts and likes.
type PostService struct {
	repo       repository.PostRepository
	userRepo   repository.UserRepository
	followRepo repository.FollowRepository
	storage    ObjectDeleter
}

func NewPostService(repo repository.PostRepository, userRepo repository.UserRepository, followRepo repository.FollowRepository, storage ObjectDeleter) *PostService {
	return &PostService{
		repo:       repo,
		userRepo:   userRepo,
		followRepo: followRepo,
		storage:    storage,
	}
}

func validateCaption(caption *string) (*string, error) {
	if caption == nil {
		return nil, nil
	}
	clean := sanitize.Clean(*caption)
	if len(clean) > model.MaxPostCaptionLength {
		return nil, model.ErrCaptionTooLong
	}
	if clean == "" {
		return nil, nil
	}
	return &clean, nil
}

// Create makes a new post. A post needs a caption or at least one media item.
func (s *PostService) Create(ctx context.Context, userID int64, req *model.CreatePostRequest) (*model.Post, error) {
	caption, err := validateCaption(req.Caption)
	if err != nil {
		return nil, err
	}

	if caption == nil && len(req.Media) == 0 {
		return nil, model.ErrEmptyPost
	}

	if len(req.Media) > model.MaxPostMediaCount {
		return nil, model.ErrTooManyMedia
	}

	for _, ref := range req.Media {
		if strings.TrimSpace(ref.URL) == "" || strings.TrimSpace(ref.Key) == "" {
			return nil, model.ErrInvalidMediaURL
		}
	}

	post, err := s.repo.Create(ctx, userID, caption, req.Media)
	if err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}

	return post, nil
}

// GetByID retrieves a post with author and, for an authenticated viewer,
// the liked flag.
func (s *PostService) GetByID(ctx context.Context, postID int64, viewerID *int64) (*model.Post, error) {
	post, err := s.repo.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}

	author, err := s.userRepo.GetByID(ctx, post.UserID)
	if err == nil {
		post.Author = &model.UserSummary{
			ID:          author.ID,
			Username:    author.Username,
			DisplayName: author.DisplayName,
			AvatarURL:   author.AvatarURL,
		}
	}

	if viewerID != nil {
		likeMap, err := s.repo.CheckLikes(ctx, *viewerID, []int64{postID})
		if err == nil {
			post.IsLiked = likeMap[postID]
		}
	}

	return post, nil
}

// Update edits a post's caption. Missing posts report not-found before the
// ownership check so callers cannot probe for deleted posts.
func (s *PostService) Update(ctx context.Context, postID, userID int64, req *model.UpdatePostRequest) (*model.Post, error) {
	post, err := s.repo.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.UserID != userID {
		return nil, model.ErrNotPostOwner
	}

	caption, err := validateCaption(req.Caption)
	if err != nil {
		return nil, err
	}

	if caption == nil && len(post.Media) == 0 {
		return nil, model.ErrEmptyPost
	}

	return s.repo.UpdateCaption(ctx, postID, caption)
}

// Delete soft-deletes a post and removes its media objects from storage.
// Storage deletes are best effort; the post row is the source of truth.
func (s *PostService) Delete(ctx context.Context, postID, userID int64) error {
	post, err := s.repo.GetByID(ctx, postID)
	if err != nil {
		return err
	}
	if post.UserID != userID {
		return model.ErrNotPostOwner
	}

	if err := s.repo.Delete(ctx, postID); err != nil {
		return err
	}

	if s.storage != nil {
		for _, m := range post.Media {
			if err := s.storage.DeleteObject(ctx, m.MediaKey); err != nil {
				logger.Log.Errorw("failed to delete post media object", "key", m.MediaKey, "error", err)
			}
		}
	}

	return nil
}

// GetUserPosts returns a user's posts with like enrichment for the viewer.
func (s *PostService) GetUserPosts(ctx context.Context, userID int64, cursor *string, limit int, viewerID *int64) ([]model.Post, *string, error) {
	if limit <= 0 || limit > 50 {
		limit = 20
	}

	posts, nextCursor, err := s.repo.GetUserPosts(ctx, userID, cursor, limit)
	if err != nil {
		return nil, nil, err
	}

	s.enrichWithLikes(ctx, posts, viewerID)
	return posts, nextCursor, nil
}

// GetFeed returns posts from followed users, newest first.
func (s *PostService) GetFeed(ctx context.Context, viewerID int64, cursor *string, limit int) ([]model.Post, *string, error) {
	if limit <= 0 || limit > 50 {
		limit = 20
	}

	posts, nextCursor, err := s.repo.GetFeed(ctx, viewerID, cursor, limit)
	if err != nil {
		return nil, nil, err
	}

	s.enrichWithLikes(ctx, posts, &viewerID)
	return posts, nextCursor, nil
}

// Like records a like. Liking twice is a conflict, not a no-op.
func (s *PostService) Like(ctx context.Context, postID, userID int64) error {
	exists, err := s.repo.Exists(ctx, postID)
	if err != nil {
		return fmt.Errorf("failed to check post: %w", err)
	}
	if !exists {
		return model.ErrPostNotFound
	}

	return s.repo.Like(ctx, postID, userID)
}

// Unlike removes a like. Unliking a post that was never liked is a conflict.
func (s *PostService) Unlike(ctx context.Context, postID, userID int64) error {
	exists, err := s.repo.Exists(ctx, postID)
	if err != nil {
		return fmt.Errorf("failed to check post: %w", err)
	}
	if !exists {
		return model.ErrPostNotFound
	}

	return s.repo.Unlike(ctx, postID, userID)
}

// GetPostLikers returns users who liked a post, with follow enrichment.
func (s *PostService) GetPostLikers(ctx context.Context, postID int64, cursor *string, limit int, viewerID *int64) ([]model.UserSummary, *string, error) {
	if limit <= 0 || limit > 50 {
		limit = 20
	}

	exists, err := s.repo.Exists(ctx, postID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to check post: %w", err)
	}
	if !exists {
		return nil, nil, model.ErrPostNotFound
	}

	users, nextCursor, err := s.repo.GetPostLikers(ctx, postID, cursor, limit)
	if err != nil {
		return nil, nil, err
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

	return users, nextCursor, nil
}

func (s *PostService) enrichWithLikes(ctx context.Context, posts []model.Post, viewerID *int64) {
	if viewerID == nil || len(posts) == 0 {
		return
	}

	postIDs := make([]int64, len(posts))
	for i, post := range posts {
		postIDs[i] = post.ID
	}

	likeMap, err := s.repo.CheckLikes(ctx, *viewerID, postIDs)
	if err != nil {
		return
	}
	for i := range posts {
		posts[i].IsLiked = likeMap[posts[i].ID]
	}
}
