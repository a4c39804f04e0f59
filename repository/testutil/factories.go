package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"predictions/database"
	"predictions/domain/entities"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// CreateTestEvent builds an OPEN yes/no event ending in an hour
func CreateTestEvent(title string) *entities.Event {
	now := time.Now().UTC()
	return &entities.Event{
		Title:     title,
		Category:  "general",
		StartTime: now.Add(-time.Hour),
		EndTime:   now.Add(time.Hour),
		Status:    entities.EventStatusOpen,
		Options: []entities.EventOption{
			{Label: "Yes", Value: "yes"},
			{Label: "No", Value: "no"},
		},
		PotEnabled: true,
		MinBet:     1,
		MaxBet:     1000,
		FeeRate:    decimal.RequireFromString("0.05"),
	}
}

// CreateTestEventEnded builds an event whose end time is in the past
func CreateTestEventEnded(title string, endedAgo time.Duration) *entities.Event {
	event := CreateTestEvent(title)
	event.EndTime = time.Now().UTC().Add(-endedAgo)
	event.StartTime = event.EndTime.Add(-time.Hour)
	return event
}

// InsertUser inserts a user directly and returns its ID
func InsertUser(t *testing.T, db *database.DB, username string, points int64) int64 {
	var id int64
	err := db.QueryRow(context.Background(),
		`INSERT INTO users (username, email, points) VALUES ($1, $2, $3) RETURNING id`,
		username, fmt.Sprintf("%s@example.com", username), points,
	).Scan(&id)
	require.NoError(t, err)
	return id
}

// InsertStake inserts a participant row and bumps the event pool the way stake placement does
func InsertStake(t *testing.T, db *database.DB, eventID, userID int64, prediction string, amount int64) int64 {
	ctx := context.Background()
	var id int64
	err := db.WithTransaction(ctx, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx,
			`INSERT INTO participants (event_id, user_id, prediction, amount) VALUES ($1, $2, $3, $4) RETURNING id`,
			eventID, userID, prediction, amount,
		).Scan(&id); err != nil {
			return err
		}
		_, err := tx.Exec(ctx,
			`UPDATE events SET prize_pool = prize_pool + $2, total_bets = total_bets + 1 WHERE id = $1`,
			eventID, amount,
		)
		return err
	})
	require.NoError(t, err)
	return id
}

// SetEventStatus forces an event into a status, bypassing the lifecycle guards
func SetEventStatus(t *testing.T, db *database.DB, eventID int64, status entities.EventStatus) {
	_, err := db.Exec(context.Background(), `UPDATE events SET status = $2 WHERE id = $1`, eventID, string(status))
	require.NoError(t, err)
}

// GetUserPoints reads the stored balance of a user
func GetUserPoints(t *testing.T, db *database.DB, userID int64) int64 {
	var points int64
	err := db.QueryRow(context.Background(), `SELECT points FROM users WHERE id = $1`, userID).Scan(&points)
	require.NoError(t, err)
	return points
}

// SetEventEndTime moves an event's end time, keeping start time before it
func SetEventEndTime(t *testing.T, db *database.DB, eventID int64, endTime time.Time) {
	_, err := db.Exec(context.Background(),
		`UPDATE events SET start_time = LEAST(start_time, $2::timestamptz - INTERVAL '1 hour'), end_time = $2 WHERE id = $1`,
		eventID, endTime.UTC())
	require.NoError(t, err)
}
