package pricing

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/rl1809/order-service/internal/core/domain"
)

// Static is an in-process price list, seeded from configuration.
type Static struct {
	mu     sync.RWMutex
	prices map[domain.ProductID]domain.Money
}

func NewStatic() *Static {
	return &Static{prices: make(map[domain.ProductID]domain.Money)}
}

// Seed is one configured list price.
type Seed struct {
	ProductID string
	Amount    string
	Currency  string
}

// FromSeeds validates every entry against currencies before building the list.
func FromSeeds(currencies domain.CurrencySet, seeds []Seed) (*Static, error) {
	s := NewStatic()
	for _, seed := range seeds {
		pid, err := domain.NewProductID(seed.ProductID)
		if err != nil {
			return nil, fmt.Errorf("price seed: %w", err)
		}
		cur, err := currencies.Parse(seed.Currency)
		if err != nil {
			return nil, fmt.Errorf("price seed %s: %w", pid, err)
		}
		amount, err := decimal.NewFromString(seed.Amount)
		if err != nil {
			return nil, fmt.Errorf("price seed %s: %w", pid, domain.ErrInvalidAmount)
		}
		price, err := domain.NewMoney(amount, cur)
		if err != nil {
			return nil, fmt.Errorf("price seed %s: %w", pid, err)
		}
		s.Set(pid, price)
	}
	return s, nil
}

func (s *Static) Set(productID domain.ProductID, price domain.Money) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prices[productID] = price
}

func (s *Static) PriceFor(ctx context.Context, productID domain.ProductID) (domain.Money, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	price, ok := s.prices[productID]
	return price, ok, nil
}

// All returns a copy of the price list.
func (s *Static) All() map[domain.ProductID]domain.Money {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[domain.ProductID]domain.Money, len(s.prices))
	for k, v := range s.prices {
		out[k] = v
	}
	return out
}
