package services

import (
	"context"
	"fmt"

	"predictions/domain/entities"
	"predictions/domain/interfaces"
	"predictions/domain/utils"
)

type leaderboardService struct {
	leaderboardRepo interfaces.LeaderboardRepository
	cache           interfaces.LeaderboardCache
}

// NewLeaderboardService creates a new leaderboard service. cache may be nil.
func NewLeaderboardService(leaderboardRepo interfaces.LeaderboardRepository, cache interfaces.LeaderboardCache) interfaces.LeaderboardService {
	return &leaderboardService{
		leaderboardRepo: leaderboardRepo,
		cache:           cache,
	}
}

// GetPage returns one page of users ranked by points
func (s *leaderboardService) GetPage(ctx context.Context, page, limit int) (*entities.LeaderboardPage, error) {
	page, limit = utils.NormalizePage(page, limit)

	if s.cache != nil {
		if cached, ok := s.cache.Get(ctx, page, limit); ok {
			return cached, nil
		}
	}

	total, err := s.leaderboardRepo.CountUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}

	result := &entities.LeaderboardPage{
		Users: []entities.LeaderboardEntry{},
		Total: total,
		Page:  page,
		Limit: limit,
		Pages: utils.PageCount(total, limit),
	}

	offset := (page - 1) * limit
	if int64(offset) < total {
		users, err := s.leaderboardRepo.GetPage(ctx, limit, offset)
		if err != nil {
			return nil, fmt.Errorf("failed to get leaderboard page: %w", err)
		}
		if users != nil {
			result.Users = users
		}
	}

	if s.cache != nil {
		s.cache.Set(ctx, result)
	}

	return result, nil
}
