package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"predictions/config"
	"predictions/domain/entities"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockEventService struct {
	mock.Mock
}

func (m *mockEventService) CreateEvent(ctx context.Context, params entities.CreateEventParams) (*entities.Event, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Event), args.Error(1)
}

func (m *mockEventService) PlaceStake(ctx context.Context, eventID, userID int64, prediction string, amount int64) (*entities.Participant, error) {
	args := m.Called(ctx, eventID, userID, prediction, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Participant), args.Error(1)
}

func (m *mockEventService) GetEvent(ctx context.Context, eventID int64) (*entities.Event, error) {
	args := m.Called(ctx, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Event), args.Error(1)
}

func (m *mockEventService) GetOdds(ctx context.Context, eventID int64) ([]entities.OptionOdds, error) {
	args := m.Called(ctx, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entities.OptionOdds), args.Error(1)
}

func (m *mockEventService) ListPendingResolution(ctx context.Context) ([]*entities.Event, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Event), args.Error(1)
}

func (m *mockEventService) LockExpiredEvents(ctx context.Context) ([]*entities.Event, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Event), args.Error(1)
}

func (m *mockEventService) CancelEvent(ctx context.Context, eventID int64) (*entities.CancelResult, error) {
	args := m.Called(ctx, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.CancelResult), args.Error(1)
}

func (m *mockEventService) ResolveEvent(ctx context.Context, eventID int64, correctAnswer string, finalPrice *decimal.Decimal) (*entities.SettlementResult, error) {
	args := m.Called(ctx, eventID, correctAnswer, finalPrice)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.SettlementResult), args.Error(1)
}

func (m *mockEventService) GetLeaderboard(ctx context.Context, page, limit int) (*entities.LeaderboardPage, error) {
	args := m.Called(ctx, page, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.LeaderboardPage), args.Error(1)
}

func (m *mockEventService) GetPointsHistory(ctx context.Context, userID int64, limit int) ([]*entities.PointsHistory, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.PointsHistory), args.Error(1)
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(t *testing.T) (*Server, *mockEventService, TokenAuth) {
	t.Helper()
	cfg := config.NewTestConfig()
	svc := new(mockEventService)
	t.Cleanup(func() { svc.AssertExpectations(t) })
	return New(cfg, svc, stubPinger{}), svc, TokenAuth{Secret: []byte(cfg.JWTSecret)}
}

func doRequest(t *testing.T, srv *Server, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func signToken(t *testing.T, auth TokenAuth, userID int64, admin bool) string {
	t.Helper()
	token, err := auth.Sign(userID, admin, time.Hour)
	require.NoError(t, err)
	return token
}

func TestHealth(t *testing.T) {
	srv, _, _ := newTestServer(t)
	rec := doRequest(t, srv, http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	down := New(config.NewTestConfig(), new(mockEventService), stubPinger{err: errors.New("down")})
	rec = doRequest(t, down, http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestLeaderboard(t *testing.T) {
	srv, svc, _ := newTestServer(t)

	svc.On("GetLeaderboard", mock.Anything, 100, 5).Return(&entities.LeaderboardPage{
		Total: 12, Page: 100, Limit: 5, Pages: 3,
	}, nil).Once()

	rec := doRequest(t, srv, http.MethodGet, "/api/leaderboard?page=100&limit=5", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"users":[],"total":12,"page":100,"limit":5,"pages":3}`, rec.Body.String())
}

func TestGetEvent(t *testing.T) {
	srv, svc, _ := newTestServer(t)

	svc.On("GetEvent", mock.Anything, int64(7)).Return(&entities.Event{
		ID: 7, Title: "Derby", Status: entities.EventStatusOpen, FeeRate: decimal.RequireFromString("0.05"),
	}, nil).Once()
	svc.On("GetEvent", mock.Anything, int64(8)).Return(nil, entities.ErrEventNotFound).Once()

	rec := doRequest(t, srv, http.MethodGet, "/api/events/7", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Derby", body["title"])
	assert.Equal(t, "OPEN", body["status"])

	rec = doRequest(t, srv, http.MethodGet, "/api/events/8", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(t, srv, http.MethodGet, "/api/events/abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPlaceStake(t *testing.T) {
	srv, svc, auth := newTestServer(t)

	t.Run("requires token", func(t *testing.T) {
		rec := doRequest(t, srv, http.MethodPost, "/api/events/3/stakes", "", map[string]any{"prediction": "yes", "amount": 10})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)

		rec = doRequest(t, srv, http.MethodPost, "/api/events/3/stakes", "garbage", map[string]any{"prediction": "yes", "amount": 10})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("uses token subject", func(t *testing.T) {
		svc.On("PlaceStake", mock.Anything, int64(3), int64(42), "yes", int64(10)).
			Return(&entities.Participant{ID: 1, EventID: 3, UserID: 42, Prediction: "yes", Amount: 10}, nil).Once()

		rec := doRequest(t, srv, http.MethodPost, "/api/events/3/stakes", signToken(t, auth, 42, false),
			map[string]any{"prediction": "yes", "amount": 10})
		assert.Equal(t, http.StatusCreated, rec.Code)
	})

	t.Run("invalid body", func(t *testing.T) {
		rec := doRequest(t, srv, http.MethodPost, "/api/events/3/stakes", signToken(t, auth, 42, false),
			map[string]any{"prediction": "yes", "amount": 0})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("domain errors", func(t *testing.T) {
		cases := []struct {
			err    error
			status int
		}{
			{entities.ErrInsufficientPoints, http.StatusBadRequest},
			{entities.ErrDuplicateStake, http.StatusConflict},
			{entities.ErrEventClosed, http.StatusConflict},
			{entities.ErrUserSuspended, http.StatusForbidden},
		}
		for i, tc := range cases {
			userID := int64(100 + i)
			svc.On("PlaceStake", mock.Anything, int64(3), userID, "no", int64(5)).Return(nil, tc.err).Once()

			rec := doRequest(t, srv, http.MethodPost, "/api/events/3/stakes", signToken(t, auth, userID, false),
				map[string]any{"prediction": "no", "amount": 5})
			assert.Equal(t, tc.status, rec.Code, tc.err.Error())
		}
	})
}

func TestAdminRoutesRequireAdmin(t *testing.T) {
	srv, _, auth := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/api/admin/events/pending", signToken(t, auth, 1, false), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doRequest(t, srv, http.MethodGet, "/api/admin/events/pending", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestResolveEvent(t *testing.T) {
	srv, svc, auth := newTestServer(t)
	admin := signToken(t, auth, 1, true)

	t.Run("settles", func(t *testing.T) {
		svc.On("ResolveEvent", mock.Anything, int64(5), "yes", (*decimal.Decimal)(nil)).
			Return(&entities.SettlementResult{EventID: 5, CorrectAnswer: "yes", Winners: 2, TotalPaid: 285, FeeCollected: 15}, nil).Once()

		rec := doRequest(t, srv, http.MethodPost, "/api/admin/events/5/resolve", admin, map[string]any{"correct_answer": "yes"})
		require.Equal(t, http.StatusOK, rec.Code)
		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.EqualValues(t, 2, body["winners"])
		assert.EqualValues(t, 285, body["total_paid"])
		assert.EqualValues(t, 15, body["fee_collected"])
	})

	t.Run("final price", func(t *testing.T) {
		svc.On("ResolveEvent", mock.Anything, int64(6), "", mock.MatchedBy(func(p *decimal.Decimal) bool {
			return p != nil && p.Equal(decimal.RequireFromString("101.5"))
		})).Return(&entities.SettlementResult{EventID: 6, CorrectAnswer: "up", Winners: 1}, nil).Once()

		rec := doRequest(t, srv, http.MethodPost, "/api/admin/events/6/resolve", admin, map[string]any{"final_price": "101.5"})
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("already resolved", func(t *testing.T) {
		svc.On("ResolveEvent", mock.Anything, int64(9), "yes", (*decimal.Decimal)(nil)).
			Return(&entities.SettlementResult{EventID: 9, AlreadyResolved: true}, nil).Once()

		rec := doRequest(t, srv, http.MethodPost, "/api/admin/events/9/resolve", admin, map[string]any{"correct_answer": "yes"})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"event_id":9,"already_resolved":true}`, rec.Body.String())
	})

	t.Run("error mapping", func(t *testing.T) {
		cases := []struct {
			err    error
			status int
		}{
			{entities.ErrInvalidResolutionInput, http.StatusBadRequest},
			{entities.ErrDataIntegrity, http.StatusUnprocessableEntity},
			{entities.ErrConcurrentResolution, http.StatusConflict},
			{entities.ErrInvalidState, http.StatusConflict},
			{entities.ErrEventNotFound, http.StatusNotFound},
			{errors.New("connection reset"), http.StatusInternalServerError},
		}
		for i, tc := range cases {
			eventID := int64(20 + i)
			svc.On("ResolveEvent", mock.Anything, eventID, "no", (*decimal.Decimal)(nil)).
				Return(nil, fmt.Errorf("wrapped: %w", tc.err)).Once()

			rec := doRequest(t, srv, http.MethodPost, fmt.Sprintf("/api/admin/events/%d/resolve", eventID), admin,
				map[string]any{"correct_answer": "no"})
			assert.Equal(t, tc.status, rec.Code, tc.err.Error())
		}
	})
}

func TestCreateEvent(t *testing.T) {
	srv, svc, auth := newTestServer(t)
	admin := signToken(t, auth, 1, true)

	start := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	end := start.Add(2 * time.Hour)

	svc.On("CreateEvent", mock.Anything, mock.MatchedBy(func(p entities.CreateEventParams) bool {
		return p.Title == "Cup final" && p.PotEnabled && len(p.Options) == 2 &&
			p.FeeRate != nil && p.FeeRate.Equal(decimal.RequireFromString("0.1"))
	})).Return(&entities.Event{ID: 11, Title: "Cup final", Status: entities.EventStatusOpen}, nil).Once()

	rec := doRequest(t, srv, http.MethodPost, "/api/admin/events", admin, map[string]any{
		"title":      "Cup final",
		"start_time": start,
		"end_time":   end,
		"options":    []map[string]string{{"label": "Home", "value": "home"}, {"label": "Away", "value": "away"}},
		"min_bet":    1,
		"max_bet":    500,
		"fee_rate":   "0.1",
	})
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(t, srv, http.MethodPost, "/api/admin/events", admin, map[string]any{"title": "No times"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminLifecycleRoutes(t *testing.T) {
	srv, svc, auth := newTestServer(t)
	admin := signToken(t, auth, 1, true)

	svc.On("ListPendingResolution", mock.Anything).Return([]*entities.Event{{ID: 1}, {ID: 2}}, nil).Once()
	svc.On("LockExpiredEvents", mock.Anything).Return([]*entities.Event{{ID: 3}}, nil).Once()
	svc.On("CancelEvent", mock.Anything, int64(4)).Return(&entities.CancelResult{EventID: 4, Participants: 2, Refunded: 300}, nil).Once()

	rec := doRequest(t, srv, http.MethodGet, "/api/admin/events/pending", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var pending struct {
		Events []map[string]any `json:"events"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pending))
	assert.Len(t, pending.Events, 2)

	rec = doRequest(t, srv, http.MethodPost, "/api/admin/events/lock-expired", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"locked":1`)

	rec = doRequest(t, srv, http.MethodPost, "/api/admin/events/4/cancel", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"refunded":300`)
}

func TestMyHistory(t *testing.T) {
	srv, svc, auth := newTestServer(t)

	eventID := int64(5)
	svc.On("GetPointsHistory", mock.Anything, int64(42), 10).Return([]*entities.PointsHistory{
		{ID: 1, UserID: 42, EventID: &eventID, Reason: entities.PointsReasonEventWin, PointsBefore: 1000, PointsAfter: 1090, ChangeAmount: 90},
	}, nil).Once()

	rec := doRequest(t, srv, http.MethodGet, "/api/me/history?limit=10", signToken(t, auth, 42, false), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"change_amount":90`)
}

func TestTokenAuth(t *testing.T) {
	auth := TokenAuth{Secret: []byte("secret")}

	token, err := auth.Sign(7, true, time.Minute)
	require.NoError(t, err)

	claims, err := auth.Verify(token)
	require.NoError(t, err)
	assert.True(t, claims.Admin)
	id, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)

	_, err = TokenAuth{Secret: []byte("other")}.Verify(token)
	assert.Error(t, err)

	expired, err := auth.Sign(7, false, -time.Minute)
	require.NoError(t, err)
	_, err = auth.Verify(expired)
	assert.Error(t, err)
}
