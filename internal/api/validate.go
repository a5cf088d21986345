package api

import (
	"github.com/shopspring/decimal"

	"order-matching-engine/internal/errs"
	"order-matching-engine/internal/models"
	"order-matching-engine/internal/symbol"
)

// maxAmount is the exclusive upper bound on order amount (§4.6: 0 <
// amount < 1000).
const maxAmount = 1000

// TradeRequest is the decoded body of POST /trade.do. ClientOrderID is
// an optional caller-supplied idempotency/correlation tag; the server
// generates one when it is omitted (SPEC_FULL §B).
type TradeRequest struct {
	ClientOrderID string           `json:"client_order_id"`
	Symbol        string           `json:"symbol"`
	Type          models.OrderType `json:"type"`
	Amount        int64            `json:"amount"`
	Price         *decimal.Decimal `json:"price"`
}

// CancelRequest is the decoded body of POST /cancel_order.do.
type CancelRequest struct {
	Symbol  string `json:"symbol"`
	OrderID int64  `json:"order_id"`
}

// validateTradeRequest enforces every per-field constraint in §4.6.
// Every rejection carries the offending value in its message so
// callers can assert on it.
func validateTradeRequest(req *TradeRequest, symbols symbol.Provider) error {
	if req.Symbol == "" {
		return errs.Invalidf("missing required field: symbol")
	}
	if _, err := symbols.ReferencePrice(req.Symbol); err != nil {
		return errs.Invalidf("unknown symbol: %s", req.Symbol)
	}

	if !req.Type.Valid() {
		return errs.Invalidf("unrecognized order type: %s", req.Type)
	}

	if req.Amount <= 0 || req.Amount >= maxAmount {
		return errs.Invalidf("expected amount between 1 and %d, got: %d", maxAmount-1, req.Amount)
	}

	order := &models.Order{Type: req.Type}
	if order.IsMarket() {
		if req.Price != nil {
			return errs.Invalidf("market orders must not carry a price, got: %s", req.Price.String())
		}
		return nil
	}

	if req.Price == nil {
		return errs.Invalidf("missing required field: price")
	}
	if !hasAtMostTwoDecimals(*req.Price) {
		return errs.Invalidf("price must have at most two fractional digits, got: %s", req.Price.String())
	}

	min, max, err := symbols.PriceRange(req.Symbol)
	if err != nil {
		return errs.Invalidf("unknown symbol: %s", req.Symbol)
	}
	if req.Price.LessThan(min) || req.Price.GreaterThan(max) {
		return errs.Invalidf("expected price between %s and %s, got: %s", min.String(), max.String(), req.Price.String())
	}

	return nil
}

func hasAtMostTwoDecimals(d decimal.Decimal) bool {
	return d.Mul(decimal.NewFromInt(100)).Equal(d.Mul(decimal.NewFromInt(100)).Truncate(0))
}

func validateCancelRequest(req *CancelRequest) error {
	if req.Symbol == "" {
		return errs.Invalidf("missing required field: symbol")
	}
	if req.OrderID <= 0 {
		return errs.Invalidf("invalid order_id: %d", req.OrderID)
	}
	return nil
}
