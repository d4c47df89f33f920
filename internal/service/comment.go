package service

import (
	"context"
	"fmt"

	"lumagram/internal/model"
	"lumagram/internal/repository"
	"lumagram/internal/sanitize"
)

// CommentService handles business logic for comments.
type CommentService struct {
	repo     repository.CommentRepository
	postRepo repository.PostRepository
}

func NewCommentService(repo repository.CommentRepository, postRepo repository.PostRepository) *CommentService {
	return &CommentService{
		repo:     repo,
		postRepo: postRepo,
	}
}

func validateContent(content string) (string, error) {
	clean := sanitize.Clean(content)
	if clean == "" {
		return "", model.ErrContentRequired
	}
	if len(clean) > model.MaxCommentLength {
		return "", model.ErrContentTooLong
	}
	return clean, nil
}

// Create adds a comment to an existing post.
func (s *CommentService) Create(ctx context.Context, postID, userID int64, req *model.CreateCommentRequest) (*model.Comment, error) {
	content, err := validateContent(req.Content)
	if err != nil {
		return nil, err
	}

	exists, err := s.postRepo.Exists(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to check post: %w", err)
	}
	if !exists {
		return nil, model.ErrPostNotFound
	}

	return s.repo.Create(ctx, postID, userID, content)
}

// Update edits a comment. Missing comments report not-found before the
// ownership check.
func (s *CommentService) Update(ctx context.Context, commentID, userID int64, req *model.UpdateCommentRequest) (*model.Comment, error) {
	comment, err := s.repo.GetByID(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if comment.UserID != userID {
		return nil, model.ErrNotCommentOwner
	}

	content, err := validateContent(req.Content)
	if err != nil {
		return nil, err
	}

	return s.repo.Update(ctx, commentID, content)
}

// Delete removes a comment, owner only.
func (s *CommentService) Delete(ctx context.Context, commentID, userID int64) error {
	comment, err := s.repo.GetByID(ctx, commentID)
	if err != nil {
		return err
	}
	if comment.UserID != userID {
		return model.ErrNotCommentOwner
	}

	return s.repo.Delete(ctx, commentID)
}

// GetByPostID returns a post's comments, newest first.
func (s *CommentService) GetByPostID(ctx context.Context, postID int64, cursor *string, limit int) ([]model.Comment, *string, error) {
	if limit <= 0 || limit > 50 {
		limit = 20
	}

	exists, err := s.postRepo.Exists(ctx, postID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to check post: %w", err)
	}
	if !exists {
		return nil, nil, model.ErrPostNotFound
	}

	return s.repo.GetByPostID(ctx, postID, cursor, limit)
}
