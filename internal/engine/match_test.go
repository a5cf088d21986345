package engine

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"order-matching-engine/internal/models"
	"order-matching-engine/internal/queue"
	"order-matching-engine/internal/store"
	"order-matching-engine/internal/symbol"
)

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

type testHarness struct {
	eng    *Engine
	orders store.OrderStore
	trades store.TradeStore
}

func newHarness() *testHarness {
	orders := store.NewMemOrderStore()
	trades := store.NewMemTradeStore()
	logs := NewLogSink(discard{}, discard{}, discard{})
	eng := New(queue.New(16), orders, trades, symbol.Default(), logs, time.Second)
	return &testHarness{eng: eng, orders: orders, trades: trades}
}

func (h *testHarness) submit(t *testing.T, typ models.OrderType, priceStr string, amount int64) int64 {
	t.Helper()
	var price *decimal.Decimal
	if priceStr != "" {
		d := decimal.RequireFromString(priceStr)
		price = &d
	}
	order, err := h.orders.Create(typ, "WSCN", amount, price, "")
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if err := h.eng.handleNew(order.ID); err != nil {
		t.Fatalf("handle new order %d: %v", order.ID, err)
	}
	return order.ID
}

// TestScenarioAPriceTimePriority mirrors the price-time priority
// scenario: the later buys at 96 and 100 both fill against the
// better-priced resting sell at 95 rather than the earlier sell at
// 100, and the non-crossing sell@100 and buy@90 stay untraded.
func TestScenarioAPriceTimePriority(t *testing.T) {
	h := newHarness()

	o1 := h.submit(t, models.TypeSell, "100", 10)
	o2 := h.submit(t, models.TypeBuy, "90", 10)
	o3 := h.submit(t, models.TypeSell, "95", 20)
	o4 := h.submit(t, models.TypeBuy, "96", 10)
	_ = h.submit(t, models.TypeBuy, "100", 10)

	o3Trades, err := h.trades.Get(o3)
	if err != nil {
		t.Fatalf("get trades: %v", err)
	}
	if len(o3Trades) != 2 {
		t.Fatalf("expected 2 trades for o3, got %d", len(o3Trades))
	}
	if o3Trades[0].Status != models.StatusPartialDone || o3Trades[0].Amount != 10 {
		t.Fatalf("expected first o3 trade partial_done amount 10, got %+v", o3Trades[0])
	}
	if o3Trades[1].Status != models.StatusAllDone || o3Trades[1].Amount != 10 {
		t.Fatalf("expected second o3 trade all_done amount 10, got %+v", o3Trades[1])
	}
	for _, tr := range o3Trades {
		if !tr.Price.Equal(decimal.RequireFromString("95")) {
			t.Fatalf("expected o3 trades at price 95, got %s", tr.Price.String())
		}
	}

	o4Trades, err := h.trades.Get(o4)
	if err != nil {
		t.Fatalf("get trades: %v", err)
	}
	if len(o4Trades) != 1 || o4Trades[0].Status != models.StatusAllDone || o4Trades[0].Amount != 10 {
		t.Fatalf("expected one all_done trade of amount 10 for o4, got %+v", o4Trades)
	}

	o1Trades, _ := h.trades.Get(o1)
	if len(o1Trades) != 0 {
		t.Fatalf("expected o1 to remain untraded, got %+v", o1Trades)
	}
	o2Trades, _ := h.trades.Get(o2)
	if len(o2Trades) != 0 {
		t.Fatalf("expected o2 to remain untraded, got %+v", o2Trades)
	}
}

// TestScenarioBCancelAfterPartial covers cancel interactions: an
// untouched order cancels as all_cancel, a partially filled order
// cancels as left_cancel.
func TestScenarioBCancelAfterPartial(t *testing.T) {
	h := newHarness()

	o1 := h.submit(t, models.TypeSell, "100", 10)
	o2 := h.submit(t, models.TypeBuy, "90", 10)

	if err := h.eng.handleCancel(o1); err != nil {
		t.Fatalf("cancel o1: %v", err)
	}
	o1Trades, _ := h.trades.Get(o1)
	if len(o1Trades) != 1 || o1Trades[0].Status != models.StatusAllCancel {
		t.Fatalf("expected one all_cancel trade for o1, got %+v", o1Trades)
	}

	// A sell crossing o2's resting buy partially fills it.
	h.submit(t, models.TypeSell, "90", 4)

	if err := h.eng.handleCancel(o2); err != nil {
		t.Fatalf("cancel o2: %v", err)
	}
	o2Trades, _ := h.trades.Get(o2)
	if len(o2Trades) != 2 {
		t.Fatalf("expected 2 trades total for o2, got %d: %+v", len(o2Trades), o2Trades)
	}
	if o2Trades[0].Status != models.StatusPartialDone {
		t.Fatalf("expected first o2 trade partial_done, got %+v", o2Trades[0])
	}
	if o2Trades[1].Status != models.StatusLeftCancel {
		t.Fatalf("expected second o2 trade left_cancel, got %+v", o2Trades[1])
	}
}

// TestScenarioCMarketOrderDominance: a market sell fills against the
// best-priced resting buy first.
func TestScenarioCMarketOrderDominance(t *testing.T) {
	h := newHarness()

	oLow := h.submit(t, models.TypeBuy, "100", 10)
	oHigh := h.submit(t, models.TypeBuy, "101", 10)
	h.submit(t, models.TypeMarketSell, "", 15)

	highTrades, _ := h.trades.Get(oHigh)
	if len(highTrades) != 1 || highTrades[0].Amount != 10 || highTrades[0].Status != models.StatusAllDone {
		t.Fatalf("expected o@101 fully filled first, got %+v", highTrades)
	}
	if !highTrades[0].Price.Equal(decimal.RequireFromString("101")) {
		t.Fatalf("expected fill at 101, got %s", highTrades[0].Price.String())
	}

	lowTrades, _ := h.trades.Get(oLow)
	if len(lowTrades) != 1 || lowTrades[0].Amount != 5 || lowTrades[0].Status != models.StatusPartialDone {
		t.Fatalf("expected o@100 partially filled for 5, got %+v", lowTrades)
	}
}

// TestScenarioDDoubleMarketFallback: with no prior trades, two
// opposing market orders execute at the symbol's reference price.
func TestScenarioDDoubleMarketFallback(t *testing.T) {
	h := newHarness()

	oBuy := h.submit(t, models.TypeMarketBuy, "", 10)
	h.submit(t, models.TypeMarketSell, "", 10)

	trades, _ := h.trades.Get(oBuy)
	if len(trades) != 1 {
		t.Fatalf("expected 1 trade, got %d", len(trades))
	}
	if !trades[0].Price.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("expected reference price 100, got %s", trades[0].Price.String())
	}
	if trades[0].Amount != 10 || trades[0].Status != models.StatusAllDone {
		t.Fatalf("expected full fill of 10, got %+v", trades[0])
	}
}

func TestCancelAlreadyFinishedOrderIsNoOp(t *testing.T) {
	h := newHarness()

	o1 := h.submit(t, models.TypeBuy, "100", 10)
	h.submit(t, models.TypeSell, "100", 10)

	if err := h.eng.handleCancel(o1); err != nil {
		t.Fatalf("cancel of finished order returned error: %v", err)
	}
	trades, _ := h.trades.Get(o1)
	if len(trades) != 1 {
		t.Fatalf("cancel of a fully filled order must not add a second trade, got %+v", trades)
	}
}
