package domain

import (
	"fmt"
	"sort"
	"strings"
)

// Currency is a normalized ISO-4217 style code accepted by a CurrencySet.
type Currency struct {
	code string
}

var (
	EUR = Currency{code: "EUR"}
	USD = Currency{code: "USD"}
)

func (c Currency) Code() string   { return c.code }
func (c Currency) String() string { return c.code }
func (c Currency) IsZero() bool   { return c.code == "" }

func (c Currency) MarshalText() ([]byte, error) {
	return []byte(c.code), nil
}

func (c *Currency) UnmarshalText(text []byte) error {
	code := normalizeCode(string(text))
	if code == "" {
		return ErrInvalidCurrency
	}
	c.code = code
	return nil
}

// CurrencySet is the allow-list consulted when parsing currency codes.
type CurrencySet struct {
	codes map[string]struct{}
}

func NewCurrencySet(codes ...string) CurrencySet {
	set := CurrencySet{codes: make(map[string]struct{}, len(codes))}
	for _, c := range codes {
		if n := normalizeCode(c); n != "" {
			set.codes[n] = struct{}{}
		}
	}
	return set
}

// DefaultCurrencies accepts EUR and USD.
func DefaultCurrencies() CurrencySet {
	return NewCurrencySet(EUR.code, USD.code)
}

func (s CurrencySet) Parse(code string) (Currency, error) {
	n := normalizeCode(code)
	if n == "" {
		return Currency{}, ErrInvalidCurrency
	}
	if _, ok := s.codes[n]; !ok {
		return Currency{}, fmt.Errorf("%w: %s", ErrUnsupportedCurrency, n)
	}
	return Currency{code: n}, nil
}

func (s CurrencySet) Contains(c Currency) bool {
	_, ok := s.codes[c.code]
	return ok
}

func (s CurrencySet) Codes() []string {
	out := make([]string, 0, len(s.codes))
	for c := range s.codes {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
