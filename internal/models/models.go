// Package models defines the order and trade records shared by the
// store, matching engine and submission front-end.
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderType is the four-way order kind used throughout the engine. Side
// and limit-vs-market are both encoded in it; Order exposes IsSell,
// IsBuy and IsMarket as derived queries rather than carrying separate
// fields for each.
type OrderType string

const (
	TypeBuy        OrderType = "buy"
	TypeSell       OrderType = "sell"
	TypeMarketBuy  OrderType = "market_buy"
	TypeMarketSell OrderType = "market_sell"
)

// Valid reports whether t is one of the four supported order types.
func (t OrderType) Valid() bool {
	switch t {
	case TypeBuy, TypeSell, TypeMarketBuy, TypeMarketSell:
		return true
	}
	return false
}

// TradeStatus is the execution outcome recorded on a Trade.
type TradeStatus string

const (
	StatusPartialDone TradeStatus = "partial_done"
	StatusAllDone     TradeStatus = "all_done"
	StatusLeftCancel  TradeStatus = "left_cancel"
	StatusAllCancel   TradeStatus = "all_cancel"
)

// IsCanceled reports whether status closes out an order via cancellation.
func (s TradeStatus) IsCanceled() bool {
	return s == StatusLeftCancel || s == StatusAllCancel
}

// IsDone reports whether status closes out an order via a fill.
func (s TradeStatus) IsDone() bool {
	return s == StatusAllDone
}

// Order is a trading intent resting in (or already matched out of) a
// symbol's book. Price is nil for market orders. Remaining starts equal
// to Amount and is reduced in place by each partial fill; the same
// pointer lives in both the engine's unfinished-order map and, while
// resting, the symbol's priority queue, so a fill visible through one
// is visible through the other without a separate write-back step.
type Order struct {
	ID            int64
	ClientOrderID string
	Symbol        string
	Type          OrderType
	Amount        int64
	Remaining     int64
	Price         *decimal.Decimal
	Timestamp     time.Time
}

// IsSell reports whether the order rests on the sell side of its book.
func (o *Order) IsSell() bool {
	return o.Type == TypeSell || o.Type == TypeMarketSell
}

// IsBuy reports whether the order rests on the buy side of its book.
func (o *Order) IsBuy() bool {
	return !o.IsSell()
}

// IsMarket reports whether the order is a market order (no resting price).
func (o *Order) IsMarket() bool {
	return o.Type == TypeMarketBuy || o.Type == TypeMarketSell
}

// Trade is a single-sided execution record. Two are emitted per match,
// one for the buyer's order and one for the seller's.
type Trade struct {
	ID        int64
	OrderID   int64
	OrderType OrderType
	Price     decimal.Decimal
	Amount    int64
	Status    TradeStatus
	Timestamp time.Time
}
