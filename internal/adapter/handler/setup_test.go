package handler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rl1809/order-service/internal/adapter/eventbus"
	"github.com/rl1809/order-service/internal/adapter/pricing"
	"github.com/rl1809/order-service/internal/adapter/storage"
	"github.com/rl1809/order-service/internal/core/domain"
	"github.com/rl1809/order-service/internal/core/service"
)

type eventLog struct {
	names []string
}

// newTestService wires a SQLite-backed service; extra subscribers can be
// attached to its bus through subscribe.
func newTestService(t *testing.T, subscribe ...func(bus *eventbus.Bus)) (*service.OrderService, *eventLog) {
	t.Helper()
	ctx := context.Background()

	db, err := storage.Open(ctx, storage.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, storage.ApplyMigrations(ctx, db, storage.DriverSQLite))

	currencies := domain.DefaultCurrencies()
	repo, err := storage.NewSQLAdapter(db, storage.DriverSQLite, currencies)
	require.NoError(t, err)

	catalog, err := pricing.FromSeeds(currencies, []pricing.Seed{{ProductID: "LISTED", Amount: "3.50", Currency: "USD"}})
	require.NoError(t, err)

	events := &eventLog{}
	bus := eventbus.New(nil)
	eventbus.Subscribe(bus, "recorder", func(ctx context.Context, e domain.Event) error {
		events.names = append(events.names, e.EventName())
		return nil
	})
	for _, fn := range subscribe {
		fn(bus)
	}

	svc := service.NewOrderService(repo, bus,
		service.WithCurrencies(currencies),
		service.WithPriceCatalog(catalog),
	)
	return svc, events
}
