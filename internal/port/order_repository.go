package port

import (
	"context"

	"github.com/rl1809/order-service/internal/core/domain"
)

type OrderRepository interface {
	// Save upserts the order header and reconciles its items. A stale
	// version yields a conflict failure.
	Save(ctx context.Context, order *domain.Order) error

	// Update is Save for an order that must already exist; not-found otherwise
	Update(ctx context.Context, order *domain.Order) error

	// FindByID returns nil, nil when the order does not exist
	FindByID(ctx context.Context, id domain.OrderID) (*domain.Order, error)

	// Delete is idempotent
	Delete(ctx context.Context, id domain.OrderID) error
}
