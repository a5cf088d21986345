package store

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"order-matching-engine/internal/models"
)

// MemOrderStore is an in-memory OrderStore guarded by a mutex.
// Ids are strictly increasing for the lifetime of the process; they
// reset to 1 whenever a new MemOrderStore is constructed, which is why
// the durable variant exists for anything that must survive a restart.
type MemOrderStore struct {
	mu     sync.Mutex
	orders map[int64]*models.Order
	nextID int64
}

// NewMemOrderStore returns an empty in-memory order store.
func NewMemOrderStore() *MemOrderStore {
	return &MemOrderStore{orders: make(map[int64]*models.Order)}
}

func (s *MemOrderStore) Create(orderType models.OrderType, symbol string, amount int64, price *decimal.Decimal, clientOrderID string) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	order := &models.Order{
		ID:            s.nextID,
		ClientOrderID: clientOrderID,
		Symbol:        symbol,
		Type:          orderType,
		Amount:        amount,
		Remaining:     amount,
		Price:         price,
		Timestamp:     time.Now(),
	}
	s.orders[order.ID] = order
	return order, nil
}

func (s *MemOrderStore) Get(id int64) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[id]
	if !ok {
		return nil, notFound(id)
	}
	cp := *order
	return &cp, nil
}

func (s *MemOrderStore) Save(order *models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *order
	s.orders[order.ID] = &cp
	if order.ID > s.nextID {
		s.nextID = order.ID
	}
	return nil
}

// MemTradeStore is an in-memory, append-only TradeStore guarded by a
// mutex. Trade ids are assigned from a per-instance monotonic counter
// (§9: "not global").
type MemTradeStore struct {
	mu     sync.Mutex
	trades map[int64][]models.Trade
	nextID int64
}

// NewMemTradeStore returns an empty in-memory trade store.
func NewMemTradeStore() *MemTradeStore {
	return &MemTradeStore{trades: make(map[int64][]models.Trade)}
}

func (s *MemTradeStore) Save(trade *models.Trade) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	trade.ID = s.nextID
	s.trades[trade.OrderID] = append(s.trades[trade.OrderID], *trade)
	return nil
}

func (s *MemTradeStore) Get(orderID int64) ([]models.Trade, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	trades := s.trades[orderID]
	out := make([]models.Trade, len(trades))
	copy(out, trades)
	return out, nil
}
