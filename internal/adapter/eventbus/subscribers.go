package eventbus

import (
	"context"
	"reflect"

	"github.com/rl1809/order-service/internal/adapter/metrics"
	"github.com/rl1809/order-service/internal/core/domain"
	"github.com/rl1809/order-service/internal/platform/logger"
)

var anyEvent = reflect.TypeFor[domain.Event]()

// RegisterLogger writes every published event to log.
func RegisterLogger(b *Bus, log *logger.Logger) Subscription {
	return b.Register("log", anyEvent, func(ctx context.Context, event domain.Event) error {
		kv := []any{
			"event", event.EventName(),
			"order_id", event.AggregateID().String(),
			"occurred_at", event.OccurredAt(),
		}
		switch e := event.(type) {
		case domain.ItemAdded:
			kv = append(kv, "product_id", e.ProductID.String(), "quantity", e.Quantity.Int(), "unit_price", e.UnitPrice.String())
		case domain.ItemRemoved:
			kv = append(kv, "product_id", e.ProductID.String())
		case domain.OrderDeleted:
			kv = append(kv, "reason", e.Reason)
		}
		log.Info("domain event", kv...)
		return nil
	})
}

// RegisterMetrics counts published events by name.
func RegisterMetrics(b *Bus, m *metrics.Metrics) Subscription {
	return b.Register("metrics", anyEvent, func(ctx context.Context, event domain.Event) error {
		m.Events.WithLabelValues(event.EventName()).Inc()
		return nil
	})
}
