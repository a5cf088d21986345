// Package engine implements the matching core: per-symbol dual
// priority queues, the event loop that drives matching, and the
// durable trade/order log writes. This is the hard part the rest of
// the system (§1 of the design spec) is built around.
package engine

import (
	"container/heap"
	"context"
	"log"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"order-matching-engine/internal/events"
	"order-matching-engine/internal/models"
	"order-matching-engine/internal/queue"
	"order-matching-engine/internal/store"
	"order-matching-engine/internal/symbol"
)

// DefaultTimeout is the event queue poll timeout (§4.5: T defaults to 1s).
const DefaultTimeout = 1 * time.Second

// DefaultDepthLimit is the number of rows per side written to the
// depth log and returned from the depth.do read endpoint (§4.5.5, §6).
const DefaultDepthLimit = 20

// Engine is the long-running matching worker. A single goroutine calls
// Run and owns all mutation of books, the unfinished-order map and the
// last-traded-price map; that goroutine is effectively single-threaded
// and lock-free with respect to its own data structures (§5). The
// mutex below exists only to let read paths (depth.do, order.do) see a
// consistent snapshot without racing the worker, not to serialize
// concurrent writers — there is exactly one writer.
type Engine struct {
	queue       *queue.Queue
	orderStore  store.OrderStore
	tradeStore  store.TradeStore
	symbols     symbol.Provider
	logs        *LogSink
	timeout     time.Duration
	depthLimit  int

	mu         sync.Mutex
	books      map[string]*Book
	unfinished map[int64]*models.Order
	lastTraded map[string]decimal.Decimal
}

// New constructs an Engine. All collaborators are injected explicitly
// (event queue, order store, trade store, symbol provider, log sinks)
// rather than resolved from a global registry — §9's redesign note on
// replacing the source's Flask extension-dictionary wiring with
// constructor-level dependency injection.
func New(q *queue.Queue, orderStore store.OrderStore, tradeStore store.TradeStore, symbols symbol.Provider, logs *LogSink, timeout time.Duration) *Engine {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Engine{
		queue:      q,
		orderStore: orderStore,
		tradeStore: tradeStore,
		symbols:    symbols,
		logs:       logs,
		timeout:    timeout,
		depthLimit: DefaultDepthLimit,
		books:      make(map[string]*Book),
		unfinished: make(map[int64]*models.Order),
		lastTraded: make(map[string]decimal.Decimal),
	}
}

// Run is the top-level loop (§4.5): block for one event with a
// timeout, dispatch it, and always write a best-effort depth snapshot
// afterward — including on timeout iterations. It returns when ctx is
// canceled. A panic or error while handling a single event is logged
// and the loop continues; the worker never dies from a recoverable
// failure (§7, §9).
func (e *Engine) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		e.tick()
	}
}

func (e *Engine) tick() {
	defer e.writeDepthSnapshotSafely()
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[ERROR] matching worker recovered from panic: %v", r)
		}
	}()

	ev, ok := e.queue.Get(e.timeout)
	if !ok {
		log.Printf("[DEBUG] event queue timeout")
		return
	}

	switch v := ev.(type) {
	case events.NewOrderEvent:
		if err := e.handleNew(v.OrderID); err != nil {
			log.Printf("[ERROR] handling new order %d: %v", v.OrderID, err)
		}
	case events.CancelOrderEvent:
		if err := e.handleCancel(v.OrderID); err != nil {
			log.Printf("[ERROR] handling cancel for order %d: %v", v.OrderID, err)
		}
	default:
		log.Printf("[WARN] unknown event: %#v", ev)
	}
}

func (e *Engine) writeDepthSnapshotSafely() {
	if err := e.writeDepthSnapshot(); err != nil {
		log.Printf("[ERROR] error when write depth log: %v", err)
	}
}

// handleNew ingests a persisted order into the book and drives the
// match loop for its symbol (§4.5.1).
func (e *Engine) handleNew(orderID int64) error {
	order, err := e.orderStore.Get(orderID)
	if err != nil {
		log.Printf("[WARN] new order %d not found in store: %v", orderID, err)
		return nil
	}

	e.mu.Lock()
	e.unfinished[order.ID] = order
	book := e.getOrCreateBook(order.Symbol)
	if order.IsSell() {
		heap.Push(book.Sell, order)
	} else {
		heap.Push(book.Buy, order)
	}
	e.mu.Unlock()

	return e.matchSymbol(order.Symbol)
}

// handleCancel removes an order from the unfinished-order map and
// emits its cancel trade (§4.5.3). Canceling an order that is already
// fully finished is a no-op; the priority queue still holds a stale
// entry, which §4.5.2's lazy deletion discards on its next pop.
func (e *Engine) handleCancel(orderID int64) error {
	e.mu.Lock()
	order, ok := e.unfinished[orderID]
	if ok {
		delete(e.unfinished, orderID)
	}
	e.mu.Unlock()

	if !ok {
		log.Printf("[INFO] order %d already finished, cancel is a no-op", orderID)
		return nil
	}

	original, err := e.orderStore.Get(orderID)
	if err != nil {
		return err
	}

	status := models.StatusLeftCancel
	if order.Remaining == original.Amount {
		status = models.StatusAllCancel
	}

	price := decimal.Zero
	if order.Price != nil {
		price = *order.Price
	} else {
		e.mu.Lock()
		if last, ok := e.lastTraded[order.Symbol]; ok {
			price = last
		} else if ref, err := e.symbols.ReferencePrice(order.Symbol); err == nil {
			price = ref
		}
		e.mu.Unlock()
	}

	trade := &models.Trade{
		OrderID:   orderID,
		OrderType: order.Type,
		Price:     price,
		Amount:    order.Remaining,
		Status:    status,
		Timestamp: time.Now(),
	}

	if err := e.tradeStore.Save(trade); err != nil {
		return err
	}
	if err := e.logs.WriteOrderLine(*trade); err != nil {
		log.Printf("[ERROR] writing order log for cancel %d: %v", orderID, err)
	}
	return nil
}

func (e *Engine) getOrCreateBook(symbolID string) *Book {
	book, ok := e.books[symbolID]
	if !ok {
		book = newBook(symbolID)
		e.books[symbolID] = book
	}
	return book
}

// GetOrder returns the current (possibly reduced) in-memory view of an
// order if it is still open, falling back to the persisted original
// otherwise. Used by the order.do read endpoint (SPEC_FULL §D.1).
func (e *Engine) GetOrder(orderID int64) (*models.Order, error) {
	e.mu.Lock()
	if order, ok := e.unfinished[orderID]; ok {
		cp := *order
		e.mu.Unlock()
		return &cp, nil
	}
	e.mu.Unlock()
	return e.orderStore.Get(orderID)
}

// GetTrades returns the trade history for an order.
func (e *Engine) GetTrades(orderID int64) ([]models.Trade, error) {
	return e.tradeStore.Get(orderID)
}

// GetDepth returns the top live resting orders of each side of a
// symbol's book, one row per order, bounded to the engine's depth
// limit, without mutating the live queues (SPEC_FULL §D.1, §4.5.5).
func (e *Engine) GetDepth(symbolID string) (buyRows, sellRows []DepthLevel) {
	e.mu.Lock()
	book, ok := e.books[symbolID]
	live := e.unfinished
	if !ok {
		e.mu.Unlock()
		return nil, nil
	}
	// Snapshot a private copy of the membership set too, since the
	// worker may mutate e.unfinished concurrently with this read.
	liveCopy := make(map[int64]*models.Order, len(live))
	for k, v := range live {
		liveCopy[k] = v
	}
	e.mu.Unlock()

	return book.snapshot(e.depthLimit, liveCopy)
}
