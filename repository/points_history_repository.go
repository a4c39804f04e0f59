package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"predictions/database"
	"predictions/domain/entities"

	"github.com/jackc/pgx/v5"
)

// PointsHistoryRepository implements the PointsHistoryRepository interface
type PointsHistoryRepository struct {
	q Queryable
}

// NewPointsHistoryRepository creates a new points history repository
func NewPointsHistoryRepository(db *database.DB) *PointsHistoryRepository {
	return &PointsHistoryRepository{q: db.Pool}
}

// NewPointsHistoryRepositoryScoped creates a new points history repository bound to a transaction
func NewPointsHistoryRepositoryScoped(tx Queryable) *PointsHistoryRepository {
	return &PointsHistoryRepository{q: tx}
}

// Record creates a new history entry
func (r *PointsHistoryRepository) Record(ctx context.Context, history *entities.PointsHistory) error {
	metadata := history.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	query := `
		INSERT INTO points_history (
			user_id, points_before, points_after, change_amount,
			reason, metadata, event_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`

	err = r.q.QueryRow(ctx, query,
		history.UserID,
		history.PointsBefore,
		history.PointsAfter,
		history.ChangeAmount,
		string(history.Reason),
		metadataJSON,
		history.EventID,
	).Scan(&history.ID, &history.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record points history for user %d: %w", history.UserID, err)
	}
	return nil
}

// GetByUser returns the most recent history entries for a user
func (r *PointsHistoryRepository) GetByUser(ctx context.Context, userID int64, limit int) ([]*entities.PointsHistory, error) {
	query := `
		SELECT id, user_id, points_before, points_after, change_amount,
			reason, metadata, event_id, created_at
		FROM points_history
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`

	rows, err := r.q.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query points history: %w", err)
	}
	return scanHistories(rows)
}

// GetByEvent returns all history entries written for an event
func (r *PointsHistoryRepository) GetByEvent(ctx context.Context, eventID int64) ([]*entities.PointsHistory, error) {
	query := `
		SELECT id, user_id, points_before, points_after, change_amount,
			reason, metadata, event_id, created_at
		FROM points_history
		WHERE event_id = $1
		ORDER BY id ASC
	`

	rows, err := r.q.Query(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to query points history for event %d: %w", eventID, err)
	}
	return scanHistories(rows)
}

func scanHistories(rows pgx.Rows) ([]*entities.PointsHistory, error) {
	defer rows.Close()

	var histories []*entities.PointsHistory
	for rows.Next() {
		var h entities.PointsHistory
		var reason string
		var metadataJSON []byte
		err := rows.Scan(
			&h.ID,
			&h.UserID,
			&h.PointsBefore,
			&h.PointsAfter,
			&h.ChangeAmount,
			&reason,
			&metadataJSON,
			&h.EventID,
			&h.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan points history: %w", err)
		}
		h.Reason = entities.PointsReason(reason)
		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &h.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
			}
		}
		histories = append(histories, &h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating points history: %w", err)
	}
	return histories, nil
}
