package service

import (
	"context"
	"time"

	"lumagram/internal/model"
	"lumagram/internal/repository"
)

// FollowService handles business logic for follow relationships.
type FollowService struct {
	repo     repository.FollowRepository
	userRepo repository.UserRepository
}

func NewFollowService(repo repository.FollowRepository, userRepo repository.UserRepository) *FollowService {
	return &FollowService{
		repo:     repo,
		userRepo: userRepo,
	}
}

// Follow creates a follow edge. Following yourself is rejected, following a
// missing user is not-found, and following someone twice is a conflict.
func (s *FollowService) Follow(ctx context.Context, followerID, followeeID int64) error {
	if followerID == followeeID {
		return model.ErrCannotFollowSelf
	}

	if _, err := s.userRepo.GetByID(ctx, followeeID); err != nil {
		return err
	}

	created, err := s.repo.Create(ctx, followerID, followeeID)
	if err != nil {
		return err
	}
	if !created {
		return model.ErrAlreadyFollowing
	}

	return nil
}

// Unfollow removes a follow edge. Unfollowing a user you do not follow is a
// conflict.
func (s *FollowService) Unfollow(ctx context.Context, followerID, followeeID int64) error {
	if followerID == followeeID {
		return model.ErrCannotFollowSelf
	}

	if _, err := s.userRepo.GetByID(ctx, followeeID); err != nil {
		return err
	}

	return s.repo.Delete(ctx, followerID, followeeID)
}

// GetFollowers returns a user's followers with follow enrichment for the viewer.
func (s *FollowService) GetFollowers(ctx context.Context, userID int64, cursor *time.Time, limit int, viewerID *int64) ([]model.UserSummary, *time.Time, error) {
	if limit <= 0 || limit > 50 {
		limit = 20
	}

	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		return nil, nil, err
	}

	users, nextCursor, err := s.repo.GetFollowers(ctx, userID, cursor, limit)
	if err != nil {
		return nil, nil, err
	}

	s.enrichWithFollowStatus(ctx, users, viewerID)
	return users, nextCursor, nil
}

// GetFollowing returns the users someone follows, with follow enrichment.
func (s *FollowService) GetFollowing(ctx context.Context, userID int64, cursor *time.Time, limit int, viewerID *int64) ([]model.UserSummary, *time.Time, error) {
	if limit <= 0 || limit > 50 {
		limit = 20
	}

	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		return nil, nil, err
	}

	users, nextCursor, err := s.repo.GetFollowing(ctx, userID, cursor, limit)
	if err != nil {
		return nil, nil, err
	}

	s.enrichWithFollowStatus(ctx, users, viewerID)
	return users, nextCursor, nil
}

// enrichWithFollowStatus marks which listed users the viewer follows,
// batched through CheckFollows. Best effort.
func (s *FollowService) enrichWithFollowStatus(ctx context.Context, users []model.UserSummary, viewerID *int64) {
	if viewerID == nil || len(users) == 0 {
		return
	}

	userIDs := make([]int64, len(users))
	for i, user := range users {
		userIDs[i] = user.ID
	}

	followMap, err := s.repo.CheckFollows(ctx, *viewerID, userIDs)
	if err != nil {
		return
	}
	for i := range users {
		users[i].IsFollowing = followMap[users[i].ID]
	}
}
