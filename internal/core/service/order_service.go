package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rl1809/order-service/internal/core/apperr"
	"github.com/rl1809/order-service/internal/core/domain"
	"github.com/rl1809/order-service/internal/platform/logger"
	"github.com/rl1809/order-service/internal/port"
)

// ItemInput is an order line as received from a transport. A nil UnitPrice
// asks the price catalog for the product's list price.
type ItemInput struct {
	ProductID string
	Quantity  int
	UnitPrice *decimal.Decimal
	Currency  string
}

type CreateOrderRequest struct {
	IdempotencyKey string
	Items          []ItemInput
}

type OrderService struct {
	repo        port.OrderRepository
	bus         port.EventBus
	clock       port.Clock
	currencies  domain.CurrencySet
	prices      port.PriceCatalog
	idempotency port.IdempotencyStore
	log         *logger.Logger
}

type Option func(*OrderService)

func WithClock(c port.Clock) Option {
	return func(s *OrderService) { s.clock = c }
}

func WithCurrencies(set domain.CurrencySet) Option {
	return func(s *OrderService) { s.currencies = set }
}

func WithPriceCatalog(c port.PriceCatalog) Option {
	return func(s *OrderService) { s.prices = c }
}

func WithIdempotency(store port.IdempotencyStore) Option {
	return func(s *OrderService) { s.idempotency = store }
}

func WithLogger(l *logger.Logger) Option {
	return func(s *OrderService) { s.log = l }
}

func NewOrderService(repo port.OrderRepository, bus port.EventBus, opts ...Option) *OrderService {
	s := &OrderService{
		repo:       repo,
		bus:        bus,
		clock:      systemClock{},
		currencies: domain.DefaultCurrencies(),
		log:        logger.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With("component", "order_service")
	return s
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// CreateOrder stores a new order and publishes its events. The order is not
// rolled back when publishing fails; its id is returned along with the error.
func (s *OrderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (domain.OrderID, error) {
	const op = "create_order"

	if len(req.Items) == 0 {
		return domain.OrderID{}, apperr.Validationf(op, "order must contain at least one item")
	}
	items := make([]domain.OrderItem, 0, len(req.Items))
	for i, in := range req.Items {
		item, err := s.buildItem(ctx, op, i, in)
		if err != nil {
			return domain.OrderID{}, err
		}
		items = append(items, item)
	}

	key := strings.TrimSpace(req.IdempotencyKey)
	if key != "" && s.idempotency != nil {
		existing, replay, err := s.claim(ctx, op, key)
		if err != nil {
			return domain.OrderID{}, err
		}
		if replay {
			s.log.Info("idempotent replay", "order_id", existing.String(), "idempotency_key", key)
			return existing, nil
		}
	} else {
		key = ""
	}

	id := domain.NewOrderID()
	order := domain.NewOrder(id, s.clock.Now())
	for _, item := range items {
		if err := order.AddItem(item, s.clock.Now()); err != nil {
			s.release(ctx, key)
			return domain.OrderID{}, apperr.Validation(op, err)
		}
	}

	if err := s.repo.Save(ctx, order); err != nil {
		s.release(ctx, key)
		s.log.Warn("save failed", "op", op, "order_id", id.String(), "error", err)
		return domain.OrderID{}, apperr.Infrastructure(op, err)
	}
	if key != "" {
		if err := s.idempotency.Complete(ctx, key, id); err != nil {
			s.log.Warn("failed to record idempotency key", "order_id", id.String(), "error", err)
		}
	}

	if err := s.publish(ctx, op, order.PullEvents()); err != nil {
		return id, err
	}

	s.log.Info("order created", "order_id", id.String(), "lines", order.Len())
	return id, nil
}

func (s *OrderService) AddItemToOrder(ctx context.Context, orderID string, in ItemInput) (domain.OrderID, error) {
	const op = "add_item_to_order"

	id, err := domain.ParseOrderID(orderID)
	if err != nil {
		return domain.OrderID{}, apperr.Validation(op, err)
	}

	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return domain.OrderID{}, apperr.Infrastructure(op, err)
	}
	if order == nil {
		return domain.OrderID{}, apperr.NotFoundf(op, "order %s not found", id)
	}

	item, err := s.buildItem(ctx, op, 0, in)
	if err != nil {
		return domain.OrderID{}, err
	}
	if err := order.AddItem(item, s.clock.Now()); err != nil {
		return domain.OrderID{}, apperr.Validation(op, err)
	}

	if err := s.repo.Save(ctx, order); err != nil {
		s.log.Warn("save failed", "op", op, "order_id", id.String(), "error", err)
		return domain.OrderID{}, apperr.Infrastructure(op, err)
	}

	if err := s.publish(ctx, op, order.PullEvents()); err != nil {
		return id, err
	}

	s.log.Info("item added", "order_id", id.String(), "product_id", item.ProductID().String(), "version", order.Version())
	return id, nil
}

// DeleteOrder removes the order and announces it. Deleting an unknown id
// still succeeds and still publishes OrderDeleted.
func (s *OrderService) DeleteOrder(ctx context.Context, orderID, reason string) error {
	const op = "delete_order"

	id, err := domain.ParseOrderID(orderID)
	if err != nil {
		return apperr.Validation(op, err)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		s.log.Warn("delete failed", "order_id", id.String(), "error", err)
		return apperr.Infrastructure(op, err)
	}

	event := domain.OrderDeleted{OrderID: id, Reason: strings.TrimSpace(reason), At: s.clock.Now()}
	if err := s.publish(ctx, op, []domain.Event{event}); err != nil {
		return err
	}

	s.log.Info("order deleted", "order_id", id.String())
	return nil
}

// GetOrder returns nil, nil for a well-formed id that matches no order.
func (s *OrderService) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	const op = "get_order"

	id, err := domain.ParseOrderID(orderID)
	if err != nil {
		return nil, apperr.Validation(op, err)
	}

	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, apperr.Infrastructure(op, err)
	}
	return order, nil
}

func (s *OrderService) buildItem(ctx context.Context, op string, idx int, in ItemInput) (domain.OrderItem, error) {
	invalid := func(err error) error {
		return apperr.Validation(op, fmt.Errorf("item %d (%q): %w", idx, in.ProductID, err))
	}

	pid, err := domain.NewProductID(in.ProductID)
	if err != nil {
		return domain.OrderItem{}, invalid(err)
	}
	qty, err := domain.NewQuantity(in.Quantity)
	if err != nil {
		return domain.OrderItem{}, invalid(err)
	}
	price, err := s.unitPrice(ctx, pid, in)
	if err != nil {
		if errors.Is(err, apperr.ErrInfrastructure) {
			return domain.OrderItem{}, apperr.Infrastructure(op, err)
		}
		return domain.OrderItem{}, invalid(err)
	}
	item, err := domain.NewOrderItem(pid, qty, price)
	if err != nil {
		return domain.OrderItem{}, invalid(err)
	}
	return item, nil
}

func (s *OrderService) unitPrice(ctx context.Context, pid domain.ProductID, in ItemInput) (domain.Money, error) {
	if in.UnitPrice != nil {
		cur, err := s.currencies.Parse(in.Currency)
		if err != nil {
			return domain.Money{}, err
		}
		return domain.NewMoney(*in.UnitPrice, cur)
	}

	if s.prices == nil {
		return domain.Money{}, apperr.Validationf("", "unit price is required")
	}
	price, ok, err := s.prices.PriceFor(ctx, pid)
	if err != nil {
		return domain.Money{}, apperr.Infrastructure("price_for", err)
	}
	if !ok {
		return domain.Money{}, apperr.Validationf("", "no list price for product %s", pid)
	}
	if strings.TrimSpace(in.Currency) != "" {
		cur, err := s.currencies.Parse(in.Currency)
		if err != nil {
			return domain.Money{}, err
		}
		if cur != price.Currency() {
			return domain.Money{}, fmt.Errorf("%w: list price is in %s", domain.ErrCurrencyMismatch, price.Currency())
		}
	}
	return price, nil
}

func (s *OrderService) claim(ctx context.Context, op, key string) (domain.OrderID, bool, error) {
	ok, err := s.idempotency.Claim(ctx, key)
	if err != nil {
		return domain.OrderID{}, false, apperr.Infrastructure(op, err)
	}
	if ok {
		return domain.OrderID{}, false, nil
	}
	id, found, err := s.idempotency.Lookup(ctx, key)
	if err != nil {
		return domain.OrderID{}, false, apperr.Infrastructure(op, err)
	}
	if !found {
		return domain.OrderID{}, false, apperr.Conflictf(op, "request with idempotency key %q is still in progress", key)
	}
	return id, true, nil
}

func (s *OrderService) release(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.idempotency.Release(ctx, key); err != nil {
		s.log.Warn("failed to release idempotency key", "error", err)
	}
}

func (s *OrderService) publish(ctx context.Context, op string, events []domain.Event) error {
	for _, ev := range events {
		if err := s.bus.Publish(ctx, ev); err != nil {
			s.log.Error("event publish failed", "op", op, "event", ev.EventName(), "order_id", ev.AggregateID().String(), "error", err)
			return apperr.Infrastructure(op, err)
		}
	}
	return nil
}
