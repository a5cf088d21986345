// Package symbol is the reference-data provider: a static catalog of
// symbol reference prices and the price bands derived from them.
package symbol

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrSymbolNotFound is returned for any symbol id absent from the catalog.
var ErrSymbolNotFound = errors.New("symbol not found")

var bandFactorMin = decimal.NewFromFloat(0.9)
var bandFactorMax = decimal.NewFromFloat(1.1)

// Provider is the read-only contract the matching engine and the
// submission front-end depend on. Implementations are pure functions
// of symbol id.
type Provider interface {
	PriceRange(sym string) (min, max decimal.Decimal, err error)
	ReferencePrice(sym string) (decimal.Decimal, error)
}

// Catalog is a static, in-memory Provider. Price bands are always
// [0.9*reference, 1.1*reference].
type Catalog map[string]decimal.Decimal

// NotFoundError wraps ErrSymbolNotFound with the offending symbol so
// callers can build diagnostic messages that quote it (§6 requires
// validation errors to contain the offending value).
type NotFoundError struct {
	Symbol string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("unknown symbol: %s", e.Symbol)
}

func (e *NotFoundError) Unwrap() error { return ErrSymbolNotFound }

// PriceRange returns the [min, max] band for sym.
func (c Catalog) PriceRange(sym string) (decimal.Decimal, decimal.Decimal, error) {
	ref, ok := c[sym]
	if !ok {
		return decimal.Zero, decimal.Zero, &NotFoundError{Symbol: sym}
	}
	return ref.Mul(bandFactorMin), ref.Mul(bandFactorMax), nil
}

// ReferencePrice returns the catalog reference price for sym.
func (c Catalog) ReferencePrice(sym string) (decimal.Decimal, error) {
	ref, ok := c[sym]
	if !ok {
		return decimal.Zero, &NotFoundError{Symbol: sym}
	}
	return ref, nil
}

// Default returns the small built-in catalog the server uses: the
// original venue's WSCN mock plus two
// additional symbols so the engine's per-symbol book map is exercised
// with more than one key.
func Default() Catalog {
	return Catalog{
		"WSCN":   decimal.NewFromInt(100),
		"BTCUSD": decimal.NewFromInt(50000),
		"ETHUSD": decimal.NewFromInt(3000),
	}
}
