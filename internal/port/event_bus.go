package port

import (
	"context"
	"time"

	"github.com/rl1809/order-service/internal/core/domain"
)

type EventBus interface {
	// Publish delivers the event synchronously and returns the first handler failure
	Publish(ctx context.Context, event domain.Event) error
}

type Clock interface {
	Now() time.Time
}
