package storage

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/rl1809/order-service/internal/core/domain"
	"github.com/rl1809/order-service/internal/port"
)

var (
	_ port.IdempotencyStore = (*RedisAdapter)(nil)
	_ port.PriceCatalog     = (*RedisAdapter)(nil)
)

const (
	idempotencyKeyPrefix = "idempotency:"
	priceKeyPrefix       = "price:"
	defaultIdempotentTTL = 24 * time.Hour
)

// RedisAdapter backs the idempotency store and the price catalog.
type RedisAdapter struct {
	client     redis.UniversalClient
	ttl        time.Duration
	currencies domain.CurrencySet
}

func NewRedisAdapter(client redis.UniversalClient, ttl time.Duration, currencies domain.CurrencySet) *RedisAdapter {
	if ttl <= 0 {
		ttl = defaultIdempotentTTL
	}
	return &RedisAdapter{client: client, ttl: ttl, currencies: currencies}
}

// Claim stores an empty marker; Complete later fills in the order id.
func (r *RedisAdapter) Claim(ctx context.Context, key string) (bool, error) {
	ok, err := r.client.SetNX(ctx, idempotencyKeyPrefix+key, "", r.ttl).Result()
	if err != nil {
		return false, err
	}

	return ok, nil
}

func (r *RedisAdapter) Complete(ctx context.Context, key string, id domain.OrderID) error {
	return r.client.SetArgs(ctx, idempotencyKeyPrefix+key, id.String(), redis.SetArgs{KeepTTL: true}).Err()
}

func (r *RedisAdapter) Release(ctx context.Context, key string) error {
	return r.client.Del(ctx, idempotencyKeyPrefix+key).Err()
}

func (r *RedisAdapter) Lookup(ctx context.Context, key string) (domain.OrderID, bool, error) {
	val, err := r.client.Get(ctx, idempotencyKeyPrefix+key).Result()
	if errors.Is(err, redis.Nil) || (err == nil && val == "") {
		return domain.OrderID{}, false, nil
	}
	if err != nil {
		return domain.OrderID{}, false, err
	}

	id, err := domain.ParseOrderID(val)
	if err != nil {
		return domain.OrderID{}, false, err
	}
	return id, true, nil
}

// PriceFor reads the hash price:<product> with fields amount and currency.
func (r *RedisAdapter) PriceFor(ctx context.Context, productID domain.ProductID) (domain.Money, bool, error) {
	fields, err := r.client.HGetAll(ctx, priceKeyPrefix+productID.String()).Result()
	if err != nil {
		return domain.Money{}, false, err
	}
	if len(fields) == 0 {
		return domain.Money{}, false, nil
	}

	cur, err := r.currencies.Parse(fields["currency"])
	if err != nil {
		return domain.Money{}, false, err
	}
	amount, err := decimal.NewFromString(fields["amount"])
	if err != nil {
		return domain.Money{}, false, err
	}
	price, err := domain.NewMoney(amount, cur)
	if err != nil {
		return domain.Money{}, false, err
	}
	return price, true, nil
}

func (r *RedisAdapter) SetPrice(ctx context.Context, productID domain.ProductID, price domain.Money) error {
	return r.client.HSet(ctx, priceKeyPrefix+productID.String(),
		"amount", price.Amount().StringFixed(2),
		"currency", price.Currency().Code(),
	).Err()
}
