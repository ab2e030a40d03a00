package domain

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ProductID is a trimmed, non-blank product reference.
type ProductID string

func NewProductID(id string) (ProductID, error) {
	trimmed := strings.TrimSpace(id)
	if trimmed == "" {
		return "", ErrInvalidProductID
	}
	return ProductID(trimmed), nil
}

func (p ProductID) String() string { return string(p) }

// OrderID is the UUID identity of an order.
type OrderID struct {
	id uuid.UUID
}

func NewOrderID() OrderID {
	return OrderID{id: uuid.New()}
}

func ParseOrderID(s string) (OrderID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return OrderID{}, fmt.Errorf("%w: order id is required", ErrInvalidOrderID)
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return OrderID{}, fmt.Errorf("%w: %q", ErrInvalidOrderID, s)
	}
	return OrderID{id: id}, nil
}

func (o OrderID) UUID() uuid.UUID { return o.id }
func (o OrderID) String() string  { return o.id.String() }
func (o OrderID) IsZero() bool    { return o.id == uuid.Nil }

func (o OrderID) MarshalText() ([]byte, error) {
	return []byte(o.id.String()), nil
}
