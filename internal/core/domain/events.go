package domain

import "time"

const (
	EventOrderCreated          = "order.created"
	EventItemAdded             = "order.item_added"
	EventItemRemoved           = "order.item_removed"
	EventOrderTotalsCalculated = "order.totals_calculated"
	EventOrderDeleted          = "order.deleted"
)

// Event is a fact recorded by the Order aggregate or the use cases around it.
type Event interface {
	EventName() string
	AggregateID() OrderID
	OccurredAt() time.Time
}

type OrderCreated struct {
	OrderID OrderID   `json:"order_id"`
	At      time.Time `json:"occurred_at"`
}

func (e OrderCreated) EventName() string     { return EventOrderCreated }
func (e OrderCreated) AggregateID() OrderID  { return e.OrderID }
func (e OrderCreated) OccurredAt() time.Time { return e.At }

type ItemAdded struct {
	OrderID   OrderID   `json:"order_id"`
	ProductID ProductID `json:"product_id"`
	Quantity  Quantity  `json:"quantity"`
	UnitPrice Money     `json:"unit_price"`
	At        time.Time `json:"occurred_at"`
}

func (e ItemAdded) EventName() string     { return EventItemAdded }
func (e ItemAdded) AggregateID() OrderID  { return e.OrderID }
func (e ItemAdded) OccurredAt() time.Time { return e.At }

type ItemRemoved struct {
	OrderID   OrderID   `json:"order_id"`
	ProductID ProductID `json:"product_id"`
	At        time.Time `json:"occurred_at"`
}

func (e ItemRemoved) EventName() string     { return EventItemRemoved }
func (e ItemRemoved) AggregateID() OrderID  { return e.OrderID }
func (e ItemRemoved) OccurredAt() time.Time { return e.At }

type OrderTotalsCalculated struct {
	OrderID OrderID            `json:"order_id"`
	Totals  map[Currency]Money `json:"totals"`
	At      time.Time          `json:"occurred_at"`
}

func (e OrderTotalsCalculated) EventName() string     { return EventOrderTotalsCalculated }
func (e OrderTotalsCalculated) AggregateID() OrderID  { return e.OrderID }
func (e OrderTotalsCalculated) OccurredAt() time.Time { return e.At }

type OrderDeleted struct {
	OrderID OrderID   `json:"order_id"`
	Reason  string    `json:"reason,omitempty"`
	At      time.Time `json:"occurred_at"`
}

func (e OrderDeleted) EventName() string     { return EventOrderDeleted }
func (e OrderDeleted) AggregateID() OrderID  { return e.OrderID }
func (e OrderDeleted) OccurredAt() time.Time { return e.At }
