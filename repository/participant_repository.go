package repository

import (
	"context"
	"errors"
	"fmt"

	"predictions/database"
	"predictions/domain/entities"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ParticipantRepository implements the ParticipantRepository interface
type ParticipantRepository struct {
	q Queryable
}

// NewParticipantRepository creates a new participant repository
func NewParticipantRepository(db *database.DB) *ParticipantRepository {
	return &ParticipantRepository{q: db.Pool}
}

// NewParticipantRepositoryScoped creates a new participant repository bound to a transaction
func NewParticipantRepositoryScoped(tx Queryable) *ParticipantRepository {
	return &ParticipantRepository{q: tx}
}

const participantColumns = `id, event_id, user_id, prediction, amount, settled, created_at`

func scanParticipant(row pgx.Row) (*entities.Participant, error) {
	var p entities.Participant
	err := row.Scan(
		&p.ID,
		&p.EventID,
		&p.UserID,
		&p.Prediction,
		&p.Amount,
		&p.Settled,
		&p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Create inserts a stake
func (r *ParticipantRepository) Create(ctx context.Context, participant *entities.Participant) error {
	query := `
		INSERT INTO participants (event_id, user_id, prediction, amount)
		VALUES ($1, $2, $3, $4)
		RETURNING id, settled, created_at
	`

	err := r.q.QueryRow(ctx, query,
		participant.EventID,
		participant.UserID,
		participant.Prediction,
		participant.Amount,
	).Scan(&participant.ID, &participant.Settled, &participant.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return entities.ErrDuplicateStake
		}
		return fmt.Errorf("failed to create participant: %w", err)
	}
	return nil
}

// GetByEventAndUser returns a user's stake on an event
func (r *ParticipantRepository) GetByEventAndUser(ctx context.Context, eventID, userID int64) (*entities.Participant, error) {
	query := `SELECT ` + participantColumns + ` FROM participants WHERE event_id = $1 AND user_id = $2`

	p, err := scanParticipant(r.q.QueryRow(ctx, query, eventID, userID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get participant for event %d user %d: %w", eventID, userID, err)
	}
	return p, nil
}

// GetByEvent returns all stakes on an event ordered by participant ID
func (r *ParticipantRepository) GetByEvent(ctx context.Context, eventID int64) ([]*entities.Participant, error) {
	query := `SELECT ` + participantColumns + ` FROM participants WHERE event_id = $1 ORDER BY id ASC`

	rows, err := r.q.Query(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to query participants: %w", err)
	}
	defer rows.Close()

	var participants []*entities.Participant
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		participants = append(participants, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating participants: %w", err)
	}
	return participants, nil
}

// GetPoolsByOption returns the staked total per prediction value
func (r *ParticipantRepository) GetPoolsByOption(ctx context.Context, eventID int64) (map[string]int64, error) {
	query := `
		SELECT prediction, SUM(amount)
		FROM participants
		WHERE event_id = $1
		GROUP BY prediction
	`

	rows, err := r.q.Query(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to query option pools: %w", err)
	}
	defer rows.Close()

	pools := make(map[string]int64)
	for rows.Next() {
		var prediction string
		var total int64
		if err := rows.Scan(&prediction, &total); err != nil {
			return nil, fmt.Errorf("failed to scan option pool: %w", err)
		}
		pools[prediction] = total
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating option pools: %w", err)
	}
	return pools, nil
}

// MarkSettled flags the given participants as settled. Every participant must
// still be unsettled, otherwise the batch is rejected.
func (r *ParticipantRepository) MarkSettled(ctx context.Context, participantIDs []int64) error {
	if len(participantIDs) == 0 {
		return nil
	}

	result, err := r.q.Exec(ctx,
		`UPDATE participants SET settled = TRUE WHERE id = ANY($1) AND NOT settled`,
		participantIDs,
	)
	if err != nil {
		return fmt.Errorf("failed to mark participants settled: %w", err)
	}
	if result.RowsAffected() != int64(len(participantIDs)) {
		return fmt.Errorf("settled %d of %d participants: %w",
			result.RowsAffected(), len(participantIDs), entities.ErrDataIntegrity)
	}
	return nil
}
