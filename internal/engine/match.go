package engine

import (
	"container/heap"
	"log"
	"time"

	"order-matching-engine/internal/models"
)

// matchSymbol drains crossable pairs off the top of a symbol's buy and
// sell heaps until no more trades can be made, taking e.mu for its
// entire duration (§5: the worker owns book and last-traded-price
// state for the whole iteration, not just individual pops).
func (e *Engine) matchSymbol(symbolID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	book, ok := e.books[symbolID]
	if !ok {
		return nil
	}

	for {
		buy := e.popLive(book.Buy)
		if buy == nil {
			return nil
		}
		sell := e.popLive(book.Sell)
		if sell == nil {
			e.pushBack(book.Buy, buy)
			return nil
		}

		if !crossable(buy, sell) {
			e.pushBack(book.Buy, buy)
			e.pushBack(book.Sell, sell)
			return nil
		}

		if err := e.executeMatch(symbolID, buy, sell); err != nil {
			// Put both back uncrossed rather than lose them; the
			// worker logs and moves on to the next event (§7, §9).
			e.pushBack(book.Buy, buy)
			e.pushBack(book.Sell, sell)
			return err
		}

		if buy.Remaining > 0 {
			e.pushBack(book.Buy, buy)
		}
		if sell.Remaining > 0 {
			e.pushBack(book.Sell, sell)
		}
	}
}

// crossable reports whether the top buy and top sell order can trade:
// true whenever either side is a market order, or the resting limit
// prices cross (buy price >= sell price) (§4.5.2).
func crossable(buy, sell *models.Order) bool {
	if buy.IsMarket() || sell.IsMarket() {
		return true
	}
	return buy.Price.GreaterThanOrEqual(*sell.Price)
}

// popLive pops entries off h, discarding any whose id is no longer in
// the unfinished map (lazy deletion, §4.5.2 — a canceled order left a
// stale heap entry instead of being removed eagerly), until it finds a
// live one or the heap is exhausted.
func (e *Engine) popLive(h *priorityHeap) *models.Order {
	for h.Len() > 0 {
		o := heap.Pop(h).(*models.Order)
		if _, live := e.unfinished[o.ID]; live {
			return o
		}
	}
	return nil
}

// pushBack restores an order to its heap. A nil order is a no-op, so
// callers can push back unconditionally after a failed pop.
func (e *Engine) pushBack(h *priorityHeap, o *models.Order) {
	if o == nil {
		return
	}
	heap.Push(h, o)
}

// executeMatch fills the crossing pair by min(remaining), records the
// trade at the price selected by tradePrice, and determines each
// side's trade status from its remaining quantity BEFORE that quantity
// is reduced (§4.5.3 step 8: "all_done"/"partial_done" describe the
// order's state as of this fill, not its state after).
func (e *Engine) executeMatch(symbolID string, buy, sell *models.Order) error {
	fillAmount := buy.Remaining
	if sell.Remaining < fillAmount {
		fillAmount = sell.Remaining
	}

	price, err := e.tradePrice(symbolID, buy, sell)
	if err != nil {
		return err
	}

	buyStatus := models.StatusPartialDone
	if buy.Remaining == fillAmount {
		buyStatus = models.StatusAllDone
	}
	sellStatus := models.StatusPartialDone
	if sell.Remaining == fillAmount {
		sellStatus = models.StatusAllDone
	}

	now := time.Now()
	buyTrade := &models.Trade{OrderID: buy.ID, OrderType: buy.Type, Price: price, Amount: fillAmount, Status: buyStatus, Timestamp: now}
	sellTrade := &models.Trade{OrderID: sell.ID, OrderType: sell.Type, Price: price, Amount: fillAmount, Status: sellStatus, Timestamp: now}

	if err := e.tradeStore.Save(buyTrade); err != nil {
		return err
	}
	if err := e.tradeStore.Save(sellTrade); err != nil {
		return err
	}

	buy.Remaining -= fillAmount
	sell.Remaining -= fillAmount
	e.lastTraded[symbolID] = price

	if buy.Remaining == 0 {
		delete(e.unfinished, buy.ID)
	}
	if sell.Remaining == 0 {
		delete(e.unfinished, sell.ID)
	}

	if err := e.logs.WriteTradeLine(price, fillAmount); err != nil {
		log.Printf("[ERROR] writing trade log for symbol %s: %v", symbolID, err)
	}
	if err := e.logs.WriteOrderLine(*buyTrade); err != nil {
		log.Printf("[ERROR] writing order log for order %d: %v", buy.ID, err)
	}
	if err := e.logs.WriteOrderLine(*sellTrade); err != nil {
		log.Printf("[ERROR] writing order log for order %d: %v", sell.ID, err)
	}

	return nil
}
