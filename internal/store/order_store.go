// Package store implements the order and trade stores: an in-memory
// variant for tests and single-process deployments, and a MySQL/TiDB
// backed variant for durable ones. Both satisfy the same contracts.
package store

import (
	"github.com/shopspring/decimal"

	"order-matching-engine/internal/errs"
	"order-matching-engine/internal/models"
)

// OrderStore allocates order ids, persists orders and looks them up by
// id. Create is the only path that assigns an id; Save is an upsert
// used by tests, not the hot path. Create must return the persisted,
// id-bearing order before any event referencing that id is enqueued.
type OrderStore interface {
	Create(orderType models.OrderType, symbol string, amount int64, price *decimal.Decimal, clientOrderID string) (*models.Order, error)
	Get(id int64) (*models.Order, error)
	Save(order *models.Order) error
}

// TradeStore is append-only, keyed by originating order id.
type TradeStore interface {
	Save(trade *models.Trade) error
	Get(orderID int64) ([]models.Trade, error)
}

func notFound(id int64) error {
	return &errs.OrderNotFound{OrderID: id}
}
