package services

import (
	"context"
	"fmt"

	"predictions/domain/entities"
	"predictions/domain/interfaces"
)

const defaultHistoryLimit = 50

type pointsService struct {
	userRepo    interfaces.UserRepository
	historyRepo interfaces.PointsHistoryRepository
}

// NewPointsService creates a new points history service
func NewPointsService(userRepo interfaces.UserRepository, historyRepo interfaces.PointsHistoryRepository) interfaces.PointsService {
	return &pointsService{
		userRepo:    userRepo,
		historyRepo: historyRepo,
	}
}

// GetHistory returns the most recent balance changes for a user
func (s *pointsService) GetHistory(ctx context.Context, userID int64, limit int) ([]*entities.PointsHistory, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, entities.ErrUserNotFound
	}

	if limit <= 0 || limit > defaultHistoryLimit*4 {
		limit = defaultHistoryLimit
	}

	history, err := s.historyRepo.GetByUser(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get points history: %w", err)
	}
	if history == nil {
		history = []*entities.PointsHistory{}
	}
	return history, nil
}
