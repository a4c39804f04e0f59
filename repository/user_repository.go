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

// UserRepository implements the UserRepository interface
type UserRepository struct {
	q Queryable
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{q: db.Pool}
}

// NewUserRepositoryScoped creates a new user repository bound to a transaction
func NewUserRepositoryScoped(tx Queryable) *UserRepository {
	return &UserRepository{q: tx}
}

// userSelect computes available points as the stored balance minus stakes
// still held by events that have not been settled
const userSelect = `
	SELECT
		u.id,
		u.username,
		u.email,
		u.points,
		u.is_admin,
		u.is_suspended,
		u.created_at,
		u.updated_at,
		u.points - COALESCE(
			(SELECT SUM(p.amount)
			 FROM participants p
			 JOIN events e ON e.id = p.event_id
			 WHERE p.user_id = u.id
			   AND NOT p.settled
			   AND e.status IN ('OPEN', 'LOCKED', 'RESOLVING')),
			0
		) AS available_points
	FROM users u
`

func scanUser(row pgx.Row) (*entities.User, error) {
	var user entities.User
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.Points,
		&user.IsAdmin,
		&user.IsSuspended,
		&user.CreatedAt,
		&user.UpdatedAt,
		&user.AvailablePoints,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*entities.User, error) {
	user, err := scanUser(r.q.QueryRow(ctx, userSelect+` WHERE u.id = $1`, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user %d: %w", id, err)
	}
	return user, nil
}

// GetByIDForUpdate locks the user row before reading it. The lock is taken
// separately because FOR UPDATE cannot be combined with the aggregate subquery.
func (r *UserRepository) GetByIDForUpdate(ctx context.Context, id int64) (*entities.User, error) {
	var lockedID int64
	err := r.q.QueryRow(ctx, `SELECT id FROM users WHERE id = $1 FOR UPDATE`, id).Scan(&lockedID)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock user %d: %w", id, err)
	}
	return r.GetByID(ctx, id)
}

// GetByUsername retrieves a user by username
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*entities.User, error) {
	user, err := scanUser(r.q.QueryRow(ctx, userSelect+` WHERE u.username = $1`, username))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user %q: %w", username, err)
	}
	return user, nil
}

// Create creates a new user with the initial points balance
func (r *UserRepository) Create(ctx context.Context, username, email string, initialPoints int64) (*entities.User, error) {
	query := `
		INSERT INTO users (username, email, points)
		VALUES ($1, $2, $3)
		RETURNING id, is_admin, is_suspended, created_at, updated_at
	`

	user := &entities.User{
		Username:        username,
		Email:           email,
		Points:          initialPoints,
		AvailablePoints: initialPoints,
	}
	err := r.q.QueryRow(ctx, query, username, email, initialPoints).Scan(
		&user.ID,
		&user.IsAdmin,
		&user.IsSuspended,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, fmt.Errorf("user %q already exists: %w", username, err)
		}
		return nil, fmt.Errorf("failed to create user %q: %w", username, err)
	}
	return user, nil
}

// AddPoints adds delta to the user's balance in a single statement
func (r *UserRepository) AddPoints(ctx context.Context, id int64, delta int64) (int64, int64, error) {
	query := `
		UPDATE users
		SET points = points + $2, updated_at = NOW()
		WHERE id = $1
		RETURNING points
	`

	var after int64
	err := r.q.QueryRow(ctx, query, id, delta).Scan(&after)
	if err == pgx.ErrNoRows {
		return 0, 0, fmt.Errorf("user %d: %w", id, entities.ErrUserNotFound)
	}
	if err != nil {
		return 0, 0, fmt.Errorf("failed to add %d points to user %d: %w", delta, id, err)
	}
	return after - delta, after, nil
}

// SetSuspended toggles the suspension flag
func (r *UserRepository) SetSuspended(ctx context.Context, id int64, suspended bool) error {
	result, err := r.q.Exec(ctx, `UPDATE users SET is_suspended = $2, updated_at = NOW() WHERE id = $1`, id, suspended)
	if err != nil {
		return fmt.Errorf("failed to update suspension for user %d: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("user %d: %w", id, entities.ErrUserNotFound)
	}
	return nil
}
