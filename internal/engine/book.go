package engine

import (
	"container/heap"
	"sync"

	"order-matching-engine/internal/models"
)

// priorityHeap is a container/heap-backed priority queue of resting
// orders for one side of one symbol's book. Ordering is supplied by a
// comparator so the same implementation serves both the buy heap
// (descending price, ascending timestamp, market orders always first)
// and the sell heap (ascending price, ascending timestamp, market
// orders always first) — grounded on the OrderHeap pattern in
// abdoElHodaky-tradSys's matching package, generalized here with a
// comparator field instead of a single IsMaxHeap bool since the two
// sides tie-break identically on market dominance but oppositely on
// price.
type priorityHeap struct {
	orders []*models.Order
	less   func(a, b *models.Order) bool
}

func newPriorityHeap(less func(a, b *models.Order) bool) *priorityHeap {
	h := &priorityHeap{less: less}
	heap.Init(h)
	return h
}

func (h *priorityHeap) Len() int { return len(h.orders) }

func (h *priorityHeap) Less(i, j int) bool { return h.less(h.orders[i], h.orders[j]) }

func (h *priorityHeap) Swap(i, j int) { h.orders[i], h.orders[j] = h.orders[j], h.orders[i] }

func (h *priorityHeap) Push(x interface{}) {
	h.orders = append(h.orders, x.(*models.Order))
}

func (h *priorityHeap) Pop() interface{} {
	old := h.orders
	n := len(old)
	order := old[n-1]
	old[n-1] = nil
	h.orders = old[:n-1]
	return order
}

// clone returns a shallow copy of the heap's backing slice, for
// best-effort readers (depth snapshot, depth.do) that must not mutate
// the live queue.
func (h *priorityHeap) clone() *priorityHeap {
	cp := &priorityHeap{less: h.less, orders: make([]*models.Order, len(h.orders))}
	copy(cp.orders, h.orders)
	return cp
}

// buyLess orders the buy side: market orders always sort first
// (effective price +inf); among limit orders, higher price first, then
// earlier timestamp. This is the direct semantics §9 asks for instead
// of transcribing the source's broken BuyOrder.__lt__.
func buyLess(a, b *models.Order) bool {
	if a.IsMarket() != b.IsMarket() {
		return a.IsMarket()
	}
	if a.IsMarket() {
		return a.Timestamp.Before(b.Timestamp)
	}
	if !a.Price.Equal(*b.Price) {
		return a.Price.GreaterThan(*b.Price)
	}
	return a.Timestamp.Before(b.Timestamp)
}

// sellLess orders the sell side: market orders always sort first
// (effective price -inf); among limit orders, lower price first, then
// earlier timestamp.
func sellLess(a, b *models.Order) bool {
	if a.IsMarket() != b.IsMarket() {
		return a.IsMarket()
	}
	if a.IsMarket() {
		return a.Timestamp.Before(b.Timestamp)
	}
	if !a.Price.Equal(*b.Price) {
		return a.Price.LessThan(*b.Price)
	}
	return a.Timestamp.Before(b.Timestamp)
}

// Book is the per-symbol pair of priority queues.
type Book struct {
	Symbol string
	Buy    *priorityHeap
	Sell   *priorityHeap
	mu     sync.RWMutex
}

func newBook(symbol string) *Book {
	return &Book{
		Symbol: symbol,
		Buy:    newPriorityHeap(buyLess),
		Sell:   newPriorityHeap(sellLess),
	}
}

// DepthLevel is one resting order's row for depth reporting: id,
// timestamp, type, price and remaining amount. Orders at the same
// price are not aggregated. Price is nil for a resting market order.
type DepthLevel struct {
	ID        int64
	Timestamp string
	Type      models.OrderType
	Price     *string
	Amount    int64
}

// snapshot copies up to `limit` live entries off each side in priority
// order without mutating the live queues, filtering out ids no longer
// present in `live` (lazy deletion applies to reads too). Used by both
// the depth log writer and the depth.do read endpoint.
func (b *Book) snapshot(limit int, live map[int64]*models.Order) (buyRows, sellRows []DepthLevel) {
	b.mu.RLock()
	buyCopy := b.Buy.clone()
	sellCopy := b.Sell.clone()
	b.mu.RUnlock()

	buyRows = drainLive(buyCopy, limit, live)
	sellRows = drainLive(sellCopy, limit, live)
	return buyRows, sellRows
}

func drainLive(h *priorityHeap, limit int, live map[int64]*models.Order) []DepthLevel {
	var rows []DepthLevel
	for h.Len() > 0 && len(rows) < limit {
		o := heap.Pop(h).(*models.Order)
		if _, ok := live[o.ID]; !ok {
			continue
		}
		var priceStr *string
		if o.Price != nil {
			s := o.Price.String()
			priceStr = &s
		}
		rows = append(rows, DepthLevel{
			ID:        o.ID,
			Timestamp: o.Timestamp.Format(depthTimeFormat),
			Type:      o.Type,
			Price:     priceStr,
			Amount:    o.Remaining,
		})
	}
	return rows
}

const depthTimeFormat = "2006-01-02T15:04:05.000Z07:00"
