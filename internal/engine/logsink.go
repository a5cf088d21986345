package engine

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"order-matching-engine/internal/models"
)

// LogSink writes the three best-effort logs the matching worker
// produces: a trade tape, an order-event log, and periodic depth
// snapshots. None of these failures are fatal to matching — a write
// error is reported to the caller, who logs it and carries on (§7).
type LogSink struct {
	mu         sync.Mutex
	tradeOut   io.Writer
	orderOut   io.Writer
	depthOut   io.Writer
	depthLimit int
}

// NewLogSink builds a LogSink writing to the three given destinations.
// Any of them may be the same io.Writer (e.g. stdout during
// development) or separate rotated files in production.
func NewLogSink(tradeOut, orderOut, depthOut io.Writer) *LogSink {
	return &LogSink{tradeOut: tradeOut, orderOut: orderOut, depthOut: depthOut, depthLimit: DefaultDepthLimit}
}

// WriteTradeLine appends one line to the trade tape: timestamp, price,
// amount (§4.5.5).
func (s *LogSink) WriteTradeLine(price decimal.Decimal, amount int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := fmt.Fprintf(s.tradeOut, "%s %s %d\n", time.Now().Format(depthTimeFormat), price.String(), amount)
	return err
}

// WriteOrderLine appends one line to the order-event log: timestamp,
// order id, order type, trade price, amount, status (§4.5.5).
func (s *LogSink) WriteOrderLine(trade models.Trade) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := fmt.Fprintf(s.orderOut, "%s %d %s %s %d %s\n",
		trade.Timestamp.Format(depthTimeFormat), trade.OrderID, trade.OrderType, trade.Price.String(), trade.Amount, trade.Status)
	return err
}

// writeDepthSnapshot writes a banner line followed by up to
// DefaultDepthLimit rows per side for every symbol with an open book,
// from a non-mutating copy of the live state (§4.5.5). Called once per
// worker tick by Run, whether or not that tick processed an event.
func (e *Engine) writeDepthSnapshot() error {
	if e.logs == nil {
		return nil
	}

	e.mu.Lock()
	symbols := make([]string, 0, len(e.books))
	for sym := range e.books {
		symbols = append(symbols, sym)
	}
	e.mu.Unlock()

	for _, sym := range symbols {
		buyRows, sellRows := e.GetDepth(sym)
		if err := e.logs.writeDepthBlock(sym, buyRows, sellRows); err != nil {
			return err
		}
	}
	return nil
}

func (s *LogSink) writeDepthBlock(symbolID string, buyRows, sellRows []DepthLevel) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := fmt.Fprintf(s.depthOut, "*** symbol: %s, buy order\n", symbolID); err != nil {
		return err
	}
	if err := writeRows(s.depthOut, symbolID, "BUY", buyRows); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.depthOut, "*** symbol: %s, sell order\n", symbolID); err != nil {
		return err
	}
	if err := writeRows(s.depthOut, symbolID, "SELL", sellRows); err != nil {
		return err
	}
	_, err := fmt.Fprintln(s.depthOut)
	return err
}

func writeRows(w io.Writer, symbolID, side string, rows []DepthLevel) error {
	for _, r := range rows {
		price := "MARKET"
		if r.Price != nil {
			price = *r.Price
		}
		if _, err := fmt.Fprintf(w, "%d %s %s %s %s %d\n", r.ID, r.Timestamp, symbolID, side, price, r.Amount); err != nil {
			return err
		}
	}
	return nil
}
