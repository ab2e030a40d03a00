package domain

import (
	"fmt"
	"math"
	"strconv"
)

// Quantity is a strictly positive item count.
type Quantity struct {
	value int
}

func NewQuantity(value int) (Quantity, error) {
	if value <= 0 {
		return Quantity{}, fmt.Errorf("%w: got %d", ErrInvalidQuantity, value)
	}
	return Quantity{value: value}, nil
}

func (q Quantity) Int() int       { return q.value }
func (q Quantity) IsZero() bool   { return q.value == 0 }
func (q Quantity) String() string { return strconv.Itoa(q.value) }

func (q Quantity) Add(other Quantity) (Quantity, error) {
	if other.value > math.MaxInt-q.value {
		return Quantity{}, fmt.Errorf("%w: %d + %d overflows", ErrInvalidQuantity, q.value, other.value)
	}
	return NewQuantity(q.value + other.value)
}

func (q Quantity) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Itoa(q.value)), nil
}
