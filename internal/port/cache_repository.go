package port

import (
	"context"

	"github.com/rl1809/order-service/internal/core/domain"
)

type IdempotencyStore interface {
	// Claim reserves key, returns false if it is already taken
	Claim(ctx context.Context, key string) (bool, error)

	// Complete records the order created under a claimed key
	Complete(ctx context.Context, key string, id domain.OrderID) error

	// Release frees a claimed key after a failed request
	Release(ctx context.Context, key string) error

	// Lookup returns the order recorded for key, false while the key is unclaimed or pending
	Lookup(ctx context.Context, key string) (domain.OrderID, bool, error)
}

type PriceCatalog interface {
	// PriceFor returns the list price of a product, false if it has none
	PriceFor(ctx context.Context, productID domain.ProductID) (domain.Money, bool, error)
}
