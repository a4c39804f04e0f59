package repository

import (
	"context"
	"fmt"

	"predictions/database"
	"predictions/domain/entities"
)

// OutcomeRepository stores settlement outcomes and platform fee rows
type OutcomeRepository struct {
	q Queryable
}

// NewOutcomeRepository creates a new outcome repository
func NewOutcomeRepository(db *database.DB) *OutcomeRepository {
	return &OutcomeRepository{q: db.Pool}
}

// NewOutcomeRepositoryScoped creates a new outcome repository bound to a transaction
func NewOutcomeRepositoryScoped(tx Queryable) *OutcomeRepository {
	return &OutcomeRepository{q: tx}
}

// CreateOutcome records one participant's outcome
func (r *OutcomeRepository) CreateOutcome(ctx context.Context, outcome *entities.EventOutcome) error {
	query := `
		INSERT INTO event_outcomes (participant_id, result, points_awarded)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query,
		outcome.ParticipantID,
		string(outcome.Result),
		outcome.PointsAwarded,
	).Scan(&outcome.ID, &outcome.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create outcome for participant %d: %w", outcome.ParticipantID, err)
	}
	return nil
}

// CreateFee records a platform fee row
func (r *OutcomeRepository) CreateFee(ctx context.Context, fee *entities.PlatformFee) error {
	query := `
		INSERT INTO platform_fees (event_id, participant_id, fee_amount)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query, fee.EventID, fee.ParticipantID, fee.FeeAmount).
		Scan(&fee.ID, &fee.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create platform fee for event %d: %w", fee.EventID, err)
	}
	return nil
}

// GetOutcomesByEvent returns the outcomes of an event ordered by participant ID
func (r *OutcomeRepository) GetOutcomesByEvent(ctx context.Context, eventID int64) ([]*entities.EventOutcome, error) {
	query := `
		SELECT o.id, o.participant_id, o.result, o.points_awarded, o.created_at
		FROM event_outcomes o
		JOIN participants p ON p.id = o.participant_id
		WHERE p.event_id = $1
		ORDER BY o.participant_id ASC
	`

	rows, err := r.q.Query(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to query outcomes: %w", err)
	}
	defer rows.Close()

	var outcomes []*entities.EventOutcome
	for rows.Next() {
		var o entities.EventOutcome
		var result string
		if err := rows.Scan(&o.ID, &o.ParticipantID, &result, &o.PointsAwarded, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan outcome: %w", err)
		}
		o.Result = entities.OutcomeResult(result)
		outcomes = append(outcomes, &o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating outcomes: %w", err)
	}
	return outcomes, nil
}

// GetFeeTotalByEvent sums the platform fee rows for an event
func (r *OutcomeRepository) GetFeeTotalByEvent(ctx context.Context, eventID int64) (int64, error) {
	var total int64
	err := r.q.QueryRow(ctx,
		`SELECT COALESCE(SUM(fee_amount), 0) FROM platform_fees WHERE event_id = $1`,
		eventID,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to sum fees for event %d: %w", eventID, err)
	}
	return total, nil
}
