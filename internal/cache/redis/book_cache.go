package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ktmaeda/dealerdesk/internal/domain"
)

// viewTTL bounds how long a cached view survives without refresh. A live
// session rewrites the key on every book change, so anything older is stale.
const viewTTL = 30 * time.Second

// BookCache implements domain.BookCache, keeping the latest leveled view per
// symbol under dealer:book:{symbol}.
type BookCache struct {
	rdb *redis.Client
}

var _ domain.BookCache = (*BookCache)(nil)

// NewBookCache creates a BookCache backed by the given Client.
func NewBookCache(c *Client) *BookCache {
	return &BookCache{rdb: c.rdb}
}

func bookKey(symbol string) string { return "dealer:book:" + symbol }

// cachedView is the stored shape. Mid and best ride alongside the levels so
// GetView reconstructs the full view without recomputation.
type cachedView struct {
	Levels []domain.PriceLevel `json:"book"`
	Mid    float64             `json:"mid"`
	Best   domain.Quote        `json:"best"`
	TS     int64               `json:"ts"`
}

// SetView overwrites the cached view for symbol.
func (bc *BookCache) SetView(ctx context.Context, symbol string, view domain.BookView) error {
	data, err := json.Marshal(cachedView{
		Levels: view.Levels,
		Mid:    view.Mid,
		Best:   view.Best,
		TS:     time.Now().UnixNano(),
	})
	if err != nil {
		return fmt.Errorf("redis: marshal book view %s: %w", symbol, err)
	}

	if err := bc.rdb.Set(ctx, bookKey(symbol), data, viewTTL).Err(); err != nil {
		return fmt.Errorf("redis: set book view %s: %w", symbol, err)
	}
	return nil
}

// GetView returns the cached view, or domain.ErrNotFound when the key is
// missing or expired.
func (bc *BookCache) GetView(ctx context.Context, symbol string) (domain.BookView, error) {
	data, err := bc.rdb.Get(ctx, bookKey(symbol)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.BookView{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.BookView{}, fmt.Errorf("redis: get book view %s: %w", symbol, err)
	}

	var cached cachedView
	if err := json.Unmarshal(data, &cached); err != nil {
		return domain.BookView{}, fmt.Errorf("redis: decode book view %s: %w", symbol, err)
	}

	return domain.BookView{
		Levels: cached.Levels,
		Mid:    cached.Mid,
		Best:   cached.Best,
		Ready:  true,
	}, nil
}
