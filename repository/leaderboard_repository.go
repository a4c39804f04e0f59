package repository

import (
	"context"
	"fmt"

	"predictions/database"
	"predictions/domain/entities"
)

// LeaderboardRepository ranks users by their points balance.
// Suspended users are not ranked.
type LeaderboardRepository struct {
	q Queryable
}

// NewLeaderboardRepository creates a new leaderboard repository
func NewLeaderboardRepository(db *database.DB) *LeaderboardRepository {
	return &LeaderboardRepository{q: db.Pool}
}

// NewLeaderboardRepositoryScoped creates a new leaderboard repository bound to a transaction
func NewLeaderboardRepositoryScoped(tx Queryable) *LeaderboardRepository {
	return &LeaderboardRepository{q: tx}
}

// CountUsers returns the number of ranked users
func (r *LeaderboardRepository) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE NOT is_suspended`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return count, nil
}

// GetPage returns users ordered by points descending then ID ascending
func (r *LeaderboardRepository) GetPage(ctx context.Context, limit, offset int) ([]entities.LeaderboardEntry, error) {
	query := `
		SELECT username, points
		FROM users
		WHERE NOT is_suspended
		ORDER BY points DESC, id ASC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.q.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query leaderboard: %w", err)
	}
	defer rows.Close()

	entries := make([]entities.LeaderboardEntry, 0, limit)
	for rows.Next() {
		var entry entities.LeaderboardEntry
		if err := rows.Scan(&entry.Username, &entry.Points); err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating leaderboard: %w", err)
	}
	return entries, nil
}
