package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"predictions/database"
	"predictions/domain/entities"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// EventRepository implements the EventRepository interface
type EventRepository struct {
	q Queryable
}

// NewEventRepository creates a new event repository
func NewEventRepository(db *database.DB) *EventRepository {
	return &EventRepository{q: db.Pool}
}

// NewEventRepositoryScoped creates a new event repository bound to a transaction
func NewEventRepositoryScoped(tx Queryable) *EventRepository {
	return &EventRepository{q: tx}
}

// NUMERIC columns are read as text so they round-trip through decimal exactly
const eventColumns = `
	id, title, category, start_time, end_time, status, resolution_status,
	options, correct_answer, reference_price::text, final_price::text,
	pot_enabled, min_bet, max_bet, fee_rate::text, platform_fee, prize_pool,
	total_bets, flagged_at, resolved_at, created_at, updated_at
`

func scanEvent(row pgx.Row) (*entities.Event, error) {
	var event entities.Event
	var status string
	var optionsJSON []byte
	var referencePrice, finalPrice *string
	var feeRate string

	err := row.Scan(
		&event.ID,
		&event.Title,
		&event.Category,
		&event.StartTime,
		&event.EndTime,
		&status,
		&event.ResolutionStatus,
		&optionsJSON,
		&event.CorrectAnswer,
		&referencePrice,
		&finalPrice,
		&event.PotEnabled,
		&event.MinBet,
		&event.MaxBet,
		&feeRate,
		&event.PlatformFee,
		&event.PrizePool,
		&event.TotalBets,
		&event.FlaggedAt,
		&event.ResolvedAt,
		&event.CreatedAt,
		&event.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	event.Status = entities.EventStatus(status)
	if err := json.Unmarshal(optionsJSON, &event.Options); err != nil {
		return nil, fmt.Errorf("failed to decode options of event %d: %w", event.ID, err)
	}
	if event.FeeRate, err = decimal.NewFromString(feeRate); err != nil {
		return nil, fmt.Errorf("failed to parse fee rate of event %d: %w", event.ID, err)
	}
	if event.ReferencePrice, err = parseNullableDecimal(referencePrice); err != nil {
		return nil, fmt.Errorf("failed to parse reference price of event %d: %w", event.ID, err)
	}
	if event.FinalPrice, err = parseNullableDecimal(finalPrice); err != nil {
		return nil, fmt.Errorf("failed to parse final price of event %d: %w", event.ID, err)
	}
	return &event, nil
}

func scanEvents(rows pgx.Rows) ([]*entities.Event, error) {
	defer rows.Close()

	var result []*entities.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		result = append(result, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}
	return result, nil
}

func parseNullableDecimal(s *string) (*decimal.Decimal, error) {
	if s == nil {
		return nil, nil
	}
	d, err := decimal.NewFromString(*s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func nullableDecimalText(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := d.String()
	return &s
}

// Create inserts a new event and fills in generated fields
func (r *EventRepository) Create(ctx context.Context, event *entities.Event) error {
	optionsJSON, err := json.Marshal(event.Options)
	if err != nil {
		return fmt.Errorf("failed to encode event options: %w", err)
	}

	query := `
		INSERT INTO events (
			title, category, start_time, end_time, status, options,
			reference_price, pot_enabled, min_bet, max_bet, fee_rate
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7::numeric, $8, $9, $10, $11::numeric)
		RETURNING id, resolution_status, created_at, updated_at
	`

	if event.Status == "" {
		event.Status = entities.EventStatusOpen
	}

	err = r.q.QueryRow(ctx, query,
		event.Title,
		event.Category,
		event.StartTime,
		event.EndTime,
		string(event.Status),
		optionsJSON,
		nullableDecimalText(event.ReferencePrice),
		event.PotEnabled,
		event.MinBet,
		event.MaxBet,
		event.FeeRate.String(),
	).Scan(&event.ID, &event.ResolutionStatus, &event.CreatedAt, &event.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create event %q: %w", event.Title, err)
	}
	return nil
}

// GetByID retrieves an event by ID
func (r *EventRepository) GetByID(ctx context.Context, id int64) (*entities.Event, error) {
	event, err := scanEvent(r.q.QueryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get event %d: %w", id, err)
	}
	return event, nil
}

// GetByIDForUpdate retrieves an event and row-locks it for the current transaction
func (r *EventRepository) GetByIDForUpdate(ctx context.Context, id int64) (*entities.Event, error) {
	event, err := scanEvent(r.q.QueryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1 FOR UPDATE`, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock event %d: %w", id, err)
	}
	return event, nil
}

// ExistsByTitle checks whether an event with the given title exists
func (r *EventRepository) ExistsByTitle(ctx context.Context, title string) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM events WHERE title = $1)`, title).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check event title: %w", err)
	}
	return exists, nil
}

// GetStatus returns the current status of an event
func (r *EventRepository) GetStatus(ctx context.Context, id int64) (entities.EventStatus, error) {
	var status string
	err := r.q.QueryRow(ctx, `SELECT status FROM events WHERE id = $1`, id).Scan(&status)
	if err == pgx.ErrNoRows {
		return "", fmt.Errorf("event %d: %w", id, entities.ErrEventNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("failed to get status of event %d: %w", id, err)
	}
	return entities.EventStatus(status), nil
}

// TransitionStatus moves the event to `to` only when its current status is in `from`
func (r *EventRepository) TransitionStatus(ctx context.Context, id int64, from []entities.EventStatus, to entities.EventStatus) (bool, error) {
	fromValues := make([]string, len(from))
	for i, s := range from {
		fromValues[i] = string(s)
	}

	query := `
		UPDATE events
		SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status = ANY($3)
	`

	result, err := r.q.Exec(ctx, query, id, string(to), fromValues)
	if err != nil {
		return false, fmt.Errorf("failed to transition event %d to %s: %w", id, to, err)
	}
	return result.RowsAffected() == 1, nil
}

// LockExpired moves every OPEN event that ended before now to LOCKED
func (r *EventRepository) LockExpired(ctx context.Context, now time.Time) ([]*entities.Event, error) {
	query := `
		UPDATE events
		SET status = 'LOCKED', updated_at = NOW()
		WHERE status = 'OPEN' AND end_time < $1
		RETURNING ` + eventColumns

	rows, err := r.q.Query(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to lock expired events: %w", err)
	}
	events, err := scanEvents(rows)
	if err != nil {
		return nil, err
	}
	sortByEndTime(events)
	return events, nil
}

// ListByStatus returns events in a status ordered by end time ascending
func (r *EventRepository) ListByStatus(ctx context.Context, status entities.EventStatus) ([]*entities.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE status = $1 ORDER BY end_time ASC, id ASC`

	rows, err := r.q.Query(ctx, query, string(status))
	if err != nil {
		return nil, fmt.Errorf("failed to list %s events: %w", status, err)
	}
	return scanEvents(rows)
}

// FlagStale marks LOCKED events that ended before cutoff and were never flagged
func (r *EventRepository) FlagStale(ctx context.Context, cutoff time.Time) ([]*entities.Event, error) {
	query := `
		UPDATE events
		SET flagged_at = NOW(), updated_at = NOW()
		WHERE status = 'LOCKED' AND end_time < $1 AND flagged_at IS NULL
		RETURNING ` + eventColumns

	rows, err := r.q.Query(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to flag stale events: %w", err)
	}
	events, err := scanEvents(rows)
	if err != nil {
		return nil, err
	}
	sortByEndTime(events)
	return events, nil
}

// RecordStake adds amount to the prize pool and increments the bet count
func (r *EventRepository) RecordStake(ctx context.Context, id int64, amount int64) error {
	query := `
		UPDATE events
		SET prize_pool = prize_pool + $2, total_bets = total_bets + 1, updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.q.Exec(ctx, query, id, amount)
	if err != nil {
		return fmt.Errorf("failed to record stake on event %d: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("event %d: %w", id, entities.ErrEventNotFound)
	}
	return nil
}

// MarkResolved finalises a RESOLVING event as RESOLVED
func (r *EventRepository) MarkResolved(ctx context.Context, id int64, correctAnswer string, finalPrice *decimal.Decimal, platformFee, prizePool int64) error {
	query := `
		UPDATE events
		SET status = 'RESOLVED',
			correct_answer = $2,
			final_price = $3::numeric,
			platform_fee = $4,
			prize_pool = $5,
			resolved_at = NOW(),
			updated_at = NOW()
		WHERE id = $1 AND status = 'RESOLVING'
	`

	result, err := r.q.Exec(ctx, query, id, correctAnswer, nullableDecimalText(finalPrice), platformFee, prizePool)
	if err != nil {
		return fmt.Errorf("failed to mark event %d resolved: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("event %d is not resolving: %w", id, entities.ErrInvalidState)
	}
	return nil
}

func sortByEndTime(events []*entities.Event) {
	sort.Slice(events, func(i, j int) bool {
		if events[i].EndTime.Equal(events[j].EndTime) {
			return events[i].ID < events[j].ID
		}
		return events[i].EndTime.Before(events[j].EndTime)
	})
}
