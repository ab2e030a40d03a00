package domain

import "github.com/shopspring/decimal"

// OrderItem is one order line: a product, how many, and the unit price.
type OrderItem struct {
	productID ProductID
	quantity  Quantity
	unitPrice Money
}

func NewOrderItem(productID ProductID, quantity Quantity, unitPrice Money) (OrderItem, error) {
	if productID == "" || quantity.IsZero() || unitPrice.currency.IsZero() {
		return OrderItem{}, ErrInvalidItem
	}
	return OrderItem{productID: productID, quantity: quantity, unitPrice: unitPrice}, nil
}

func (i OrderItem) ProductID() ProductID { return i.productID }
func (i OrderItem) Quantity() Quantity   { return i.quantity }
func (i OrderItem) UnitPrice() Money     { return i.unitPrice }
func (i OrderItem) IsZero() bool         { return i.productID == "" }

// Total is unit price times quantity.
func (i OrderItem) Total() Money {
	amount := i.unitPrice.amount.Mul(decimal.NewFromInt(int64(i.quantity.value)))
	return Money{amount: amount.RoundBank(moneyScale), currency: i.unitPrice.currency}
}

// IncreaseQuantity keeps the existing unit price and adds to the count.
func (i OrderItem) IncreaseQuantity(additional Quantity) (OrderItem, error) {
	q, err := i.quantity.Add(additional)
	if err != nil {
		return OrderItem{}, err
	}
	return OrderItem{productID: i.productID, quantity: q, unitPrice: i.unitPrice}, nil
}

func (i OrderItem) Equal(other OrderItem) bool {
	return i.productID == other.productID && i.quantity == other.quantity && i.unitPrice.Equal(other.unitPrice)
}
