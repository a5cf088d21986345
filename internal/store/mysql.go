package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"order-matching-engine/internal/models"
)

// MySQLOrderStore is the durable OrderStore, backed by the `orders`
// table (§6 schema: id PK, symbol, amount, type, price nullable,
// timestamp). Ids come from the table's AUTO_INCREMENT column, which
// satisfies the "id >= max(existing id) + 1" requirement across
// restarts for free.
type MySQLOrderStore struct {
	db         *sql.DB
	insertStmt *sql.Stmt
	selectStmt *sql.Stmt
	updateStmt *sql.Stmt
}

// NewMySQLOrderStore prepares the statements used on the hot path.
func NewMySQLOrderStore(db *sql.DB) (*MySQLOrderStore, error) {
	s := &MySQLOrderStore{db: db}

	var err error
	s.insertStmt, err = db.Prepare(`
		INSERT INTO orders (client_order_id, symbol, amount, type, price, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return nil, fmt.Errorf("prepare insert order: %w", err)
	}

	s.selectStmt, err = db.Prepare(`
		SELECT id, client_order_id, symbol, amount, type, price, timestamp
		FROM orders WHERE id = ?
	`)
	if err != nil {
		return nil, fmt.Errorf("prepare select order: %w", err)
	}

	s.updateStmt, err = db.Prepare(`
		UPDATE orders SET symbol = ?, amount = ?, type = ?, price = ?, timestamp = ?
		WHERE id = ?
	`)
	if err != nil {
		return nil, fmt.Errorf("prepare update order: %w", err)
	}

	return s, nil
}

// Close releases the store's prepared statements.
func (s *MySQLOrderStore) Close() error {
	for _, stmt := range []*sql.Stmt{s.insertStmt, s.selectStmt, s.updateStmt} {
		if stmt != nil {
			stmt.Close()
		}
	}
	return nil
}

func (s *MySQLOrderStore) Create(orderType models.OrderType, symbol string, amount int64, price *decimal.Decimal, clientOrderID string) (*models.Order, error) {
	now := time.Now()

	var priceVal interface{}
	if price != nil {
		priceVal = price.String()
	}

	res, err := s.insertStmt.Exec(clientOrderID, symbol, amount, string(orderType), priceVal, now)
	if err != nil {
		return nil, fmt.Errorf("insert order: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("order id: %w", err)
	}

	return &models.Order{
		ID:            id,
		ClientOrderID: clientOrderID,
		Symbol:        symbol,
		Type:          orderType,
		Amount:        amount,
		Remaining:     amount,
		Price:         price,
		Timestamp:     now,
	}, nil
}

func (s *MySQLOrderStore) Get(id int64) (*models.Order, error) {
	row := s.selectStmt.QueryRow(id)

	var order models.Order
	var orderType string
	var price sql.NullString
	var clientOrderID sql.NullString

	if err := row.Scan(&order.ID, &clientOrderID, &order.Symbol, &order.Amount, &orderType, &price, &order.Timestamp); err != nil {
		if err == sql.ErrNoRows {
			return nil, notFound(id)
		}
		return nil, fmt.Errorf("scan order: %w", err)
	}
	order.ClientOrderID = clientOrderID.String

	order.Type = models.OrderType(orderType)
	order.Remaining = order.Amount
	if price.Valid {
		d, err := decimal.NewFromString(price.String)
		if err != nil {
			return nil, fmt.Errorf("parse order price: %w", err)
		}
		order.Price = &d
	}
	return &order, nil
}

func (s *MySQLOrderStore) Save(order *models.Order) error {
	var priceVal interface{}
	if order.Price != nil {
		priceVal = order.Price.String()
	}
	_, err := s.updateStmt.Exec(order.Symbol, order.Amount, string(order.Type), priceVal, order.Timestamp, order.ID)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	return nil
}

// MySQLTradeStore is the durable, append-only TradeStore backed by the
// `trades` table (§6 schema). Ids come from the table's own
// AUTO_INCREMENT column — its own monotonic counter, not shared with
// the order store's (§9).
type MySQLTradeStore struct {
	db         *sql.DB
	insertStmt *sql.Stmt
	selectStmt *sql.Stmt
}

// NewMySQLTradeStore prepares the statements used on the hot path.
func NewMySQLTradeStore(db *sql.DB) (*MySQLTradeStore, error) {
	s := &MySQLTradeStore{db: db}

	var err error
	s.insertStmt, err = db.Prepare(`
		INSERT INTO trades (order_id, order_type, price, amount, status, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return nil, fmt.Errorf("prepare insert trade: %w", err)
	}

	s.selectStmt, err = db.Prepare(`
		SELECT id, order_id, order_type, price, amount, status, timestamp
		FROM trades WHERE order_id = ? ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("prepare select trades: %w", err)
	}

	return s, nil
}

// Close releases the store's prepared statements.
func (s *MySQLTradeStore) Close() error {
	for _, stmt := range []*sql.Stmt{s.insertStmt, s.selectStmt} {
		if stmt != nil {
			stmt.Close()
		}
	}
	return nil
}

func (s *MySQLTradeStore) Save(trade *models.Trade) error {
	res, err := s.insertStmt.Exec(trade.OrderID, string(trade.OrderType), trade.Price.String(), trade.Amount, string(trade.Status), trade.Timestamp)
	if err != nil {
		return fmt.Errorf("insert trade: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("trade id: %w", err)
	}
	trade.ID = id
	return nil
}

func (s *MySQLTradeStore) Get(orderID int64) ([]models.Trade, error) {
	rows, err := s.selectStmt.Query(orderID)
	if err != nil {
		return nil, fmt.Errorf("query trades: %w", err)
	}
	defer rows.Close()

	var out []models.Trade
	for rows.Next() {
		var t models.Trade
		var orderType, status, priceStr string
		if err := rows.Scan(&t.ID, &t.OrderID, &orderType, &priceStr, &t.Amount, &status, &t.Timestamp); err != nil {
			return nil, fmt.Errorf("scan trade: %w", err)
		}
		t.OrderType = models.OrderType(orderType)
		t.Status = models.TradeStatus(status)
		price, err := decimal.NewFromString(priceStr)
		if err != nil {
			return nil, fmt.Errorf("parse trade price: %w", err)
		}
		t.Price = price
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trades: %w", err)
	}
	return out, nil
}
