package engine

import (
	"github.com/shopspring/decimal"

	"order-matching-engine/internal/models"
)

// tradePrice implements §4.5.4's price-selection rule: the seller's
// limit price wins if it is at or above the band minimum, whether the
// seller was resting or arriving; otherwise the buyer's limit price, if within
// band; otherwise the last-traded price for the symbol, falling back
// to the symbol's reference price if there has been no trade yet.
//
// Callers must already hold e.mu — this is only invoked from
// matchSymbol, which owns the engine's book and last-traded-price
// state for the duration of a match loop iteration.
func (e *Engine) tradePrice(symbolID string, buy, sell *models.Order) (decimal.Decimal, error) {
	min, max, err := e.symbols.PriceRange(symbolID)
	if err != nil {
		return decimal.Zero, err
	}

	if !sell.IsMarket() && sell.Price.GreaterThanOrEqual(min) {
		return *sell.Price, nil
	}
	if !buy.IsMarket() && buy.Price.LessThanOrEqual(max) {
		return *buy.Price, nil
	}

	if last, ok := e.lastTraded[symbolID]; ok {
		return last, nil
	}

	ref, err := e.symbols.ReferencePrice(symbolID)
	if err != nil {
		return decimal.Zero, err
	}
	return ref, nil
}
