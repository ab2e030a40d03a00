package domain

import "time"

// Order is the aggregate root for an order and its lines.
//
// An Order is not safe for concurrent use. The goroutine that created or
// loaded it owns it until its events have been pulled and published.
type Order struct {
	id      OrderID
	version int64
	items   map[ProductID]OrderItem
	keys    []ProductID
	events  []Event
}

// NewOrder starts a fresh order and records OrderCreated.
func NewOrder(id OrderID, at time.Time) *Order {
	o := newOrder(id, 0)
	o.record(OrderCreated{OrderID: id, At: at})
	return o
}

// RestoreOrder rebuilds a persisted order without recording any events.
// Lines sharing a product are merged in the given order.
func RestoreOrder(id OrderID, version int64, items []OrderItem) (*Order, error) {
	o := newOrder(id, version)
	for _, item := range items {
		if err := o.put(item); err != nil {
			return nil, err
		}
	}
	return o, nil
}

func newOrder(id OrderID, version int64) *Order {
	return &Order{
		id:      id,
		version: version,
		items:   make(map[ProductID]OrderItem),
	}
}

func (o *Order) ID() OrderID { return o.id }

// Version is the persisted revision this aggregate was loaded at; zero for
// an order that has never been stored.
func (o *Order) Version() int64 { return o.version }

// SetVersion is called by repositories after a successful write.
func (o *Order) SetVersion(v int64) { o.version = v }

// Items returns the lines in insertion order.
func (o *Order) Items() []OrderItem {
	out := make([]OrderItem, 0, len(o.keys))
	for _, k := range o.keys {
		out = append(out, o.items[k])
	}
	return out
}

func (o *Order) Item(productID ProductID) (OrderItem, bool) {
	item, ok := o.items[productID]
	return item, ok
}

func (o *Order) Len() int { return len(o.keys) }

// AddItem inserts a line or, for a product already present, adds the
// incoming quantity to it. The existing unit price is kept. ItemAdded always
// carries the incoming quantity and price.
func (o *Order) AddItem(item OrderItem, at time.Time) error {
	if err := o.put(item); err != nil {
		return err
	}
	o.record(ItemAdded{
		OrderID:   o.id,
		ProductID: item.productID,
		Quantity:  item.quantity,
		UnitPrice: item.unitPrice,
		At:        at,
	})
	return nil
}

// RemoveItem drops the line for productID. It reports whether anything was
// removed; ItemRemoved is only recorded in that case.
func (o *Order) RemoveItem(productID ProductID, at time.Time) bool {
	if _, ok := o.items[productID]; !ok {
		return false
	}
	delete(o.items, productID)
	for i, k := range o.keys {
		if k == productID {
			o.keys = append(o.keys[:i], o.keys[i+1:]...)
			break
		}
	}
	o.record(ItemRemoved{OrderID: o.id, ProductID: productID, At: at})
	return true
}

// Totals sums line totals per currency without recording anything.
func (o *Order) Totals() map[Currency]Money {
	totals := make(map[Currency]Money)
	for _, k := range o.keys {
		line := o.items[k].Total()
		cur, ok := totals[line.currency]
		if !ok {
			totals[line.currency] = line
			continue
		}
		// each bucket only ever holds one currency
		sum, _ := cur.Add(line)
		totals[line.currency] = sum
	}
	return totals
}

// TotalsByCurrency is Totals plus an OrderTotalsCalculated event carrying
// the snapshot.
func (o *Order) TotalsByCurrency(at time.Time) map[Currency]Money {
	totals := o.Totals()
	snapshot := make(map[Currency]Money, len(totals))
	for c, m := range totals {
		snapshot[c] = m
	}
	o.record(OrderTotalsCalculated{OrderID: o.id, Totals: snapshot, At: at})
	return totals
}

func (o *Order) TotalForCurrency(currency Currency, at time.Time) Money {
	if m, ok := o.TotalsByCurrency(at)[currency]; ok {
		return m
	}
	return ZeroMoney(currency)
}

// PullEvents hands out the recorded events in order and clears the queue.
func (o *Order) PullEvents() []Event {
	events := o.events
	o.events = nil
	return events
}

func (o *Order) put(item OrderItem) error {
	if item.IsZero() {
		return ErrInvalidItem
	}
	existing, ok := o.items[item.productID]
	if !ok {
		o.items[item.productID] = item
		o.keys = append(o.keys, item.productID)
		return nil
	}
	merged, err := existing.IncreaseQuantity(item.quantity)
	if err != nil {
		return err
	}
	o.items[item.productID] = merged
	return nil
}

func (o *Order) record(e Event) {
	o.events = append(o.events, e)
}
