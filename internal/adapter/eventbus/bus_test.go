package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/rl1809/order-service/internal/adapter/metrics"
	"github.com/rl1809/order-service/internal/core/apperr"
	"github.com/rl1809/order-service/internal/core/domain"
	"github.com/rl1809/order-service/internal/platform/logger"
)

var at = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func itemAdded(t *testing.T, id domain.OrderID) domain.ItemAdded {
	t.Helper()
	q, err := domain.NewQuantity(2)
	require.NoError(t, err)
	price, err := domain.ParseMoney("1.50", domain.EUR)
	require.NoError(t, err)
	return domain.ItemAdded{OrderID: id, ProductID: "SKU-1", Quantity: q, UnitPrice: price, At: at}
}

func TestPublish_RoutesByType(t *testing.T) {
	bus := New(nil)
	var calls []string

	Subscribe(bus, "created", func(ctx context.Context, e domain.OrderCreated) error {
		calls = append(calls, "created")
		return nil
	})
	Subscribe(bus, "added", func(ctx context.Context, e domain.ItemAdded) error {
		calls = append(calls, "added:"+e.ProductID.String())
		return nil
	})
	Subscribe(bus, "all", func(ctx context.Context, e domain.Event) error {
		calls = append(calls, "all:"+e.EventName())
		return nil
	})

	id := domain.NewOrderID()
	require.NoError(t, bus.Publish(context.Background(), domain.OrderCreated{OrderID: id, At: at}))
	require.NoError(t, bus.Publish(context.Background(), itemAdded(t, id)))
	require.NoError(t, bus.Publish(context.Background(), domain.OrderDeleted{OrderID: id, At: at}))

	assert.Equal(t, []string{
		"created", "all:" + domain.EventOrderCreated,
		"added:SKU-1", "all:" + domain.EventItemAdded,
		"all:" + domain.EventOrderDeleted,
	}, calls)
}

func TestPublish_FirstFailureStops(t *testing.T) {
	bus := New(nil)
	var second bool

	Subscribe(bus, "broken", func(ctx context.Context, e domain.OrderCreated) error {
		return errors.New("downstream unavailable")
	})
	Subscribe(bus, "after", func(ctx context.Context, e domain.OrderCreated) error {
		second = true
		return nil
	})

	err := bus.Publish(context.Background(), domain.OrderCreated{OrderID: domain.NewOrderID(), At: at})
	assert.ErrorIs(t, err, apperr.ErrInfrastructure)
	assert.Contains(t, err.Error(), "broken")
	assert.False(t, second)
}

func TestPublish_RecoversPanic(t *testing.T) {
	bus := New(nil)
	Subscribe(bus, "panics", func(ctx context.Context, e domain.OrderCreated) error {
		panic("boom")
	})

	var err error
	require.NotPanics(t, func() {
		err = bus.Publish(context.Background(), domain.OrderCreated{OrderID: domain.NewOrderID(), At: at})
	})
	assert.Equal(t, apperr.KindInfrastructure, apperr.KindOf(err))
	assert.Contains(t, err.Error(), "boom")
}

func TestPublish_NoHandlers(t *testing.T) {
	bus := New(nil)
	assert.NoError(t, bus.Publish(context.Background(), domain.OrderCreated{OrderID: domain.NewOrderID(), At: at}))
	assert.Error(t, bus.Publish(context.Background(), nil))
}

func TestUnregister(t *testing.T) {
	bus := New(nil)
	var count int
	sub := Subscribe(bus, "counter", func(ctx context.Context, e domain.OrderCreated) error {
		count++
		return nil
	})
	ev := domain.OrderCreated{OrderID: domain.NewOrderID(), At: at}

	require.NoError(t, bus.Publish(context.Background(), ev))
	assert.True(t, bus.Unregister(sub))
	assert.False(t, bus.Unregister(sub))
	require.NoError(t, bus.Publish(context.Background(), ev))

	assert.Equal(t, 1, count)
}

func TestRegisterLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	bus := New(nil)
	RegisterLogger(bus, logger.FromZap(zap.New(core)))

	id := domain.NewOrderID()
	require.NoError(t, bus.Publish(context.Background(), itemAdded(t, id)))

	entries := logs.FilterMessage("domain event").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, domain.EventItemAdded, fields["event"])
	assert.Equal(t, id.String(), fields["order_id"])
	assert.Equal(t, "SKU-1", fields["product_id"])
	assert.Equal(t, "1.50 EUR", fields["unit_price"])
}

func TestRegisterMetrics(t *testing.T) {
	m := metrics.New("bus_test")
	bus := New(nil)
	RegisterMetrics(bus, m)

	id := domain.NewOrderID()
	require.NoError(t, bus.Publish(context.Background(), domain.OrderCreated{OrderID: id, At: at}))
	require.NoError(t, bus.Publish(context.Background(), itemAdded(t, id)))
	require.NoError(t, bus.Publish(context.Background(), itemAdded(t, id)))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Events.WithLabelValues(domain.EventOrderCreated)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Events.WithLabelValues(domain.EventItemAdded)))
}

type recordingWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *recordingWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func TestKafkaForwarder(t *testing.T) {
	w := &recordingWriter{}
	bus := New(nil)
	NewKafkaForwarder(w).Attach(bus)

	id := domain.NewOrderID()
	require.NoError(t, bus.Publish(context.Background(), itemAdded(t, id)))
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, id.String(), string(msg.Key))

	var env Envelope
	require.NoError(t, json.Unmarshal(msg.Value, &env))
	assert.Equal(t, domain.EventItemAdded, env.Type)
	assert.Equal(t, id.String(), env.OrderID)
	assert.True(t, at.Equal(env.OccurredAt))
	assert.NotEmpty(t, env.EventID)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(env.Payload, &payload))
	assert.Equal(t, "SKU-1", payload["product_id"])
}

func TestKafkaForwarder_WriteFailure(t *testing.T) {
	bus := New(nil)
	NewKafkaForwarder(&recordingWriter{err: errors.New("no brokers")}).Attach(bus)

	err := bus.Publish(context.Background(), domain.OrderCreated{OrderID: domain.NewOrderID(), At: at})
	assert.ErrorIs(t, err, apperr.ErrInfrastructure)
}
