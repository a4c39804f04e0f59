package infrastructure

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"predictions/application"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// RedisPriceSource reads the latest price per event category. An external
// feeder keeps a hash at "predictions:price:{category}" with fields "price"
// (decimal string) and "ts" (Unix nanoseconds).
type RedisPriceSource struct {
	rdb *redis.Client
}

// NewRedisPriceSource creates a price source backed by the given client
func NewRedisPriceSource(rdb *redis.Client) *RedisPriceSource {
	return &RedisPriceSource{rdb: rdb}
}

func priceKey(category string) string {
	return "predictions:price:" + category
}

// SetPrice stores the latest price for a category
func (s *RedisPriceSource) SetPrice(ctx context.Context, category string, price decimal.Decimal, ts time.Time) error {
	fields := map[string]interface{}{
		"price": price.String(),
		"ts":    strconv.FormatInt(ts.UnixNano(), 10),
	}
	if err := s.rdb.HSet(ctx, priceKey(category), fields).Err(); err != nil {
		return fmt.Errorf("redis: set price %s: %w", category, err)
	}
	return nil
}

// LatestPrice returns the stored price and its timestamp
func (s *RedisPriceSource) LatestPrice(ctx context.Context, category string) (decimal.Decimal, time.Time, bool, error) {
	vals, err := s.rdb.HGetAll(ctx, priceKey(category)).Result()
	if err != nil {
		return decimal.Zero, time.Time{}, false, fmt.Errorf("redis: get price %s: %w", category, err)
	}

	priceStr, okPrice := vals["price"]
	tsStr, okTS := vals["ts"]
	if !okPrice || !okTS {
		return decimal.Zero, time.Time{}, false, nil
	}

	price, err := decimal.NewFromString(priceStr)
	if err != nil {
		return decimal.Zero, time.Time{}, false, fmt.Errorf("redis: parse price %s: %w", category, err)
	}
	tsNano, err := strconv.ParseInt(tsStr, 10, 64)
	if err != nil {
		return decimal.Zero, time.Time{}, false, fmt.Errorf("redis: parse ts %s: %w", category, err)
	}

	return price, time.Unix(0, tsNano).UTC(), true, nil
}

var _ application.PriceSource = (*RedisPriceSource)(nil)
