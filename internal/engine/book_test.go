package engine

import (
	"container/heap"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"order-matching-engine/internal/models"
)

func limitOrder(id int64, typ models.OrderType, price string, amount int64, ts time.Time) *models.Order {
	p := decimal.RequireFromString(price)
	return &models.Order{ID: id, Symbol: "WSCN", Type: typ, Amount: amount, Remaining: amount, Price: &p, Timestamp: ts}
}

func marketOrder(id int64, typ models.OrderType, amount int64, ts time.Time) *models.Order {
	return &models.Order{ID: id, Symbol: "WSCN", Type: typ, Amount: amount, Remaining: amount, Timestamp: ts}
}

func TestBuyLessOrdersByDescendingPrice(t *testing.T) {
	now := time.Now()
	higher := limitOrder(1, models.TypeBuy, "100", 10, now)
	lower := limitOrder(2, models.TypeBuy, "90", 10, now)

	if !buyLess(higher, lower) {
		t.Fatalf("expected higher-priced buy to sort first")
	}
	if buyLess(lower, higher) {
		t.Fatalf("expected lower-priced buy not to sort before higher")
	}
}

func TestBuyLessTiesBreakOnTimestamp(t *testing.T) {
	now := time.Now()
	earlier := limitOrder(1, models.TypeBuy, "100", 10, now)
	later := limitOrder(2, models.TypeBuy, "100", 10, now.Add(time.Second))

	if !buyLess(earlier, later) {
		t.Fatalf("expected earlier order at same price to sort first")
	}
}

func TestBuyLessMarketOrderAlwaysFirst(t *testing.T) {
	now := time.Now()
	mkt := marketOrder(1, models.TypeMarketBuy, 10, now.Add(time.Hour))
	limit := limitOrder(2, models.TypeBuy, "1000000", 10, now)

	if !buyLess(mkt, limit) {
		t.Fatalf("expected market buy to dominate any limit price")
	}
}

func TestSellLessOrdersByAscendingPrice(t *testing.T) {
	now := time.Now()
	lower := limitOrder(1, models.TypeSell, "90", 10, now)
	higher := limitOrder(2, models.TypeSell, "100", 10, now)

	if !sellLess(lower, higher) {
		t.Fatalf("expected lower-priced sell to sort first")
	}
}

func TestSellLessMarketOrderAlwaysFirst(t *testing.T) {
	now := time.Now()
	mkt := marketOrder(1, models.TypeMarketSell, 10, now.Add(time.Hour))
	limit := limitOrder(2, models.TypeSell, "0.01", 10, now)

	if !sellLess(mkt, limit) {
		t.Fatalf("expected market sell to dominate any limit price")
	}
}

func TestBookSnapshotSkipsDeadEntries(t *testing.T) {
	now := time.Now()
	b := newBook("WSCN")
	live1 := limitOrder(1, models.TypeBuy, "100", 10, now)
	dead := limitOrder(2, models.TypeBuy, "99", 10, now.Add(time.Second))
	heap.Push(b.Buy, live1)
	heap.Push(b.Buy, dead)

	liveSet := map[int64]*models.Order{1: live1}
	buyRows, _ := b.snapshot(20, liveSet)

	if len(buyRows) != 1 {
		t.Fatalf("expected 1 live row, got %d", len(buyRows))
	}
	if buyRows[0].ID != 1 {
		t.Fatalf("expected row for live order 1, got %d", buyRows[0].ID)
	}
	if b.Buy.Len() != 2 {
		t.Fatalf("snapshot must not mutate the live queue, got len %d", b.Buy.Len())
	}
}
