package server

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"predictions/domain/entities"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// EventService is the slice of the event coordinator the API needs
type EventService interface {
	CreateEvent(ctx context.Context, params entities.CreateEventParams) (*entities.Event, error)
	PlaceStake(ctx context.Context, eventID, userID int64, prediction string, amount int64) (*entities.Participant, error)
	GetEvent(ctx context.Context, eventID int64) (*entities.Event, error)
	GetOdds(ctx context.Context, eventID int64) ([]entities.OptionOdds, error)
	ListPendingResolution(ctx context.Context) ([]*entities.Event, error)
	LockExpiredEvents(ctx context.Context) ([]*entities.Event, error)
	CancelEvent(ctx context.Context, eventID int64) (*entities.CancelResult, error)
	ResolveEvent(ctx context.Context, eventID int64, correctAnswer string, finalPrice *decimal.Decimal) (*entities.SettlementResult, error)
	GetLeaderboard(ctx context.Context, page, limit int) (*entities.LeaderboardPage, error)
	GetPointsHistory(ctx context.Context, userID int64, limit int) ([]*entities.PointsHistory, error)
}

// Pinger reports database reachability
type Pinger interface {
	Ping(ctx context.Context) error
}

type handlers struct {
	events EventService
	db     Pinger
}

type eventResponse struct {
	ID               int64                  `json:"id"`
	Title            string                 `json:"title"`
	Category         string                 `json:"category"`
	StartTime        time.Time              `json:"start_time"`
	EndTime          time.Time              `json:"end_time"`
	Status           entities.EventStatus   `json:"status"`
	ResolutionStatus string                 `json:"resolution_status"`
	Options          []entities.EventOption `json:"options"`
	CorrectAnswer    *string                `json:"correct_answer"`
	ReferencePrice   *decimal.Decimal       `json:"reference_price"`
	FinalPrice       *decimal.Decimal       `json:"final_price"`
	PotEnabled       bool                   `json:"pot_enabled"`
	MinBet           int64                  `json:"min_bet"`
	MaxBet           int64                  `json:"max_bet"`
	FeeRate          decimal.Decimal        `json:"fee_rate"`
	PlatformFee      int64                  `json:"platform_fee"`
	PrizePool        int64                  `json:"prize_pool"`
	TotalBets        int                    `json:"total_bets"`
	FlaggedAt        *time.Time             `json:"flagged_at,omitempty"`
	ResolvedAt       *time.Time             `json:"resolved_at,omitempty"`
}

func toEventResponse(e *entities.Event) eventResponse {
	return eventResponse{
		ID:               e.ID,
		Title:            e.Title,
		Category:         e.Category,
		StartTime:        e.StartTime,
		EndTime:          e.EndTime,
		Status:           e.Status,
		ResolutionStatus: e.ResolutionStatus,
		Options:          e.Options,
		CorrectAnswer:    e.CorrectAnswer,
		ReferencePrice:   e.ReferencePrice,
		FinalPrice:       e.FinalPrice,
		PotEnabled:       e.PotEnabled,
		MinBet:           e.MinBet,
		MaxBet:           e.MaxBet,
		FeeRate:          e.FeeRate,
		PlatformFee:      e.PlatformFee,
		PrizePool:        e.PrizePool,
		TotalBets:        e.TotalBets,
		FlaggedAt:        e.FlaggedAt,
		ResolvedAt:       e.ResolvedAt,
	}
}

func toEventResponses(list []*entities.Event) []eventResponse {
	out := make([]eventResponse, 0, len(list))
	for _, e := range list {
		out = append(out, toEventResponse(e))
	}
	return out
}

func (h *handlers) health(c *gin.Context) {
	if h.db != nil {
		if err := h.db.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "db_unreachable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *handlers) leaderboard(c *gin.Context) {
	page, _ := strconv.Atoi(c.Query("page"))
	limit, _ := strconv.Atoi(c.Query("limit"))

	result, err := h.events.GetLeaderboard(c.Request.Context(), page, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	if result.Users == nil {
		result.Users = []entities.LeaderboardEntry{}
	}
	c.JSON(http.StatusOK, result)
}

func (h *handlers) getEvent(c *gin.Context) {
	eventID, ok := eventIDParam(c)
	if !ok {
		return
	}

	event, err := h.events.GetEvent(c.Request.Context(), eventID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toEventResponse(event))
}

func (h *handlers) getOdds(c *gin.Context) {
	eventID, ok := eventIDParam(c)
	if !ok {
		return
	}

	odds, err := h.events.GetOdds(c.Request.Context(), eventID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"event_id": eventID, "odds": odds})
}

type placeStakeRequest struct {
	Prediction string `json:"prediction" binding:"required"`
	Amount     int64  `json:"amount" binding:"required,gt=0"`
}

func (h *handlers) placeStake(c *gin.Context) {
	eventID, ok := eventIDParam(c)
	if !ok {
		return
	}

	var req placeStakeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, err.Error())
		return
	}

	participant, err := h.events.PlaceStake(c.Request.Context(), eventID, c.GetInt64(ctxUserID), req.Prediction, req.Amount)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"id":         participant.ID,
		"event_id":   participant.EventID,
		"prediction": participant.Prediction,
		"amount":     participant.Amount,
	})
}

func (h *handlers) myHistory(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))

	history, err := h.events.GetPointsHistory(c.Request.Context(), c.GetInt64(ctxUserID), limit)
	if err != nil {
		writeError(c, err)
		return
	}

	type row struct {
		ID           int64                 `json:"id"`
		EventID      *int64                `json:"event_id,omitempty"`
		Reason       entities.PointsReason `json:"reason"`
		PointsBefore int64                 `json:"points_before"`
		PointsAfter  int64                 `json:"points_after"`
		ChangeAmount int64                 `json:"change_amount"`
		Metadata     map[string]any        `json:"metadata,omitempty"`
		CreatedAt    time.Time             `json:"created_at"`
	}
	rows := make([]row, 0, len(history))
	for _, entry := range history {
		rows = append(rows, row{
			ID:           entry.ID,
			EventID:      entry.EventID,
			Reason:       entry.Reason,
			PointsBefore: entry.PointsBefore,
			PointsAfter:  entry.PointsAfter,
			ChangeAmount: entry.ChangeAmount,
			Metadata:     entry.Metadata,
			CreatedAt:    entry.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"history": rows})
}

type createEventRequest struct {
	Title          string                 `json:"title" binding:"required"`
	Category       string                 `json:"category"`
	StartTime      time.Time              `json:"start_time" binding:"required"`
	EndTime        time.Time              `json:"end_time" binding:"required"`
	Options        []entities.EventOption `json:"options" binding:"required"`
	ReferencePrice *decimal.Decimal       `json:"reference_price"`
	PotEnabled     *bool                  `json:"pot_enabled"`
	MinBet         int64                  `json:"min_bet"`
	MaxBet         int64                  `json:"max_bet"`
	FeeRate        *decimal.Decimal       `json:"fee_rate"`
}

func (h *handlers) createEvent(c *gin.Context) {
	var req createEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, err.Error())
		return
	}

	params := entities.CreateEventParams{
		Title:          req.Title,
		Category:       req.Category,
		StartTime:      req.StartTime,
		EndTime:        req.EndTime,
		Options:        req.Options,
		ReferencePrice: req.ReferencePrice,
		PotEnabled:     true,
		MinBet:         req.MinBet,
		MaxBet:         req.MaxBet,
		FeeRate:        req.FeeRate,
	}
	if req.PotEnabled != nil {
		params.PotEnabled = *req.PotEnabled
	}

	event, err := h.events.CreateEvent(c.Request.Context(), params)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toEventResponse(event))
}

func (h *handlers) listPending(c *gin.Context) {
	pending, err := h.events.ListPendingResolution(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": toEventResponses(pending)})
}

func (h *handlers) lockExpired(c *gin.Context) {
	locked, err := h.events.LockExpiredEvents(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"locked": len(locked), "events": toEventResponses(locked)})
}

type resolveEventRequest struct {
	CorrectAnswer string           `json:"correct_answer"`
	FinalPrice    *decimal.Decimal `json:"final_price"`
}

func (h *handlers) resolveEvent(c *gin.Context) {
	eventID, ok := eventIDParam(c)
	if !ok {
		return
	}

	var req resolveEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.events.ResolveEvent(c.Request.Context(), eventID, req.CorrectAnswer, req.FinalPrice)
	if err != nil {
		writeError(c, err)
		return
	}
	if result.AlreadyResolved {
		c.JSON(http.StatusOK, gin.H{"event_id": eventID, "already_resolved": true})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *handlers) cancelEvent(c *gin.Context) {
	eventID, ok := eventIDParam(c)
	if !ok {
		return
	}

	result, err := h.events.CancelEvent(c.Request.Context(), eventID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func eventIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		abortWithError(c, http.StatusBadRequest, "invalid event id")
		return 0, false
	}
	return id, true
}
