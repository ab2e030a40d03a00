package domain

import "errors"

// ErrValidation matches every invariant violation raised by this package.
var ErrValidation = errors.New("domain validation")

type validationError string

func (e validationError) Error() string { return string(e) }

func (e validationError) Is(target error) bool { return target == ErrValidation }

var (
	ErrUnsupportedCurrency = validationError("unsupported currency")
	ErrInvalidCurrency     = validationError("currency is required")
	ErrNegativeAmount      = validationError("amount must not be negative")
	ErrInvalidAmount       = validationError("amount is not a decimal number")
	ErrCurrencyMismatch    = validationError("currencies must match")
	ErrInvalidQuantity     = validationError("quantity must be > 0")
	ErrInvalidProductID    = validationError("product id must not be empty")
	ErrInvalidOrderID      = validationError("invalid order id")
	ErrInvalidItem         = validationError("order item is incomplete")
)
