package deals

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	pkgredis "github.com/angelmondragon/stockdesk-backend/pkg/redis"
	"github.com/google/uuid"
)

// hashStore is the slice of the redis client the quote cache needs.
type hashStore interface {
	CacheKey(parts ...string) string
	HGet(ctx context.Context, key, field string) (string, error)
	HSetWithTTL(ctx context.Context, key, field string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// quoteCache keeps one redis hash per deal with a field per quantity, so a
// deal mutation drops every cached quantity with a single DEL.
type quoteCache struct {
	store hashStore
	ttl   time.Duration
}

func (c *quoteCache) enabled() bool {
	return c != nil && c.store != nil && c.ttl > 0
}

func (c *quoteCache) key(tenantID, dealID uuid.UUID) string {
	return c.store.CacheKey("deal_quote", tenantID.String(), dealID.String())
}

// get returns the cached quote, false on a miss. Errors other than a miss
// are returned so callers can log them.
func (c *quoteCache) get(ctx context.Context, tenantID, dealID uuid.UUID, qty int) (Quote, bool, error) {
	raw, err := c.store.HGet(ctx, c.key(tenantID, dealID), strconv.Itoa(qty))
	if err != nil {
		if pkgredis.IsNil(err) {
			return Quote{}, false, nil
		}
		return Quote{}, false, err
	}
	var quote Quote
	if err := json.Unmarshal([]byte(raw), &quote); err != nil {
		return Quote{}, false, err
	}
	return quote, true, nil
}

func (c *quoteCache) put(ctx context.Context, tenantID uuid.UUID, quote Quote) error {
	payload, err := json.Marshal(quote)
	if err != nil {
		return err
	}
	return c.store.HSetWithTTL(ctx, c.key(tenantID, quote.DealID), strconv.Itoa(quote.Quantity), payload, c.ttl)
}

func (c *quoteCache) invalidate(ctx context.Context, tenantID, dealID uuid.UUID) error {
	return c.store.Del(ctx, c.key(tenantID, dealID))
}
