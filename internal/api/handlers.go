// Package api is the submission front-end: HTTP handlers that validate
// requests, persist orders, and enqueue events for the matching
// engine (§4.6 of the design spec — explicitly out of the matching
// core, but part of the observable system).
package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"order-matching-engine/internal/engine"
	"order-matching-engine/internal/errs"
	"order-matching-engine/internal/events"
	"order-matching-engine/internal/queue"
	"order-matching-engine/internal/store"
	"order-matching-engine/internal/symbol"
)

// cancelPollInterval and cancelPollAttempts implement the busy-wait
// cancel acknowledgment §4.6 asks for: up to ~1s, polled every 100ms.
// §9 notes a condition/future-based design is an acceptable
// alternative; this is the simpler of the two.
const (
	cancelPollInterval = 100 * time.Millisecond
	cancelPollAttempts = 10
)

// Server wires the order/trade stores, the symbol catalog, the event
// queue and the engine's read paths into HTTP handlers.
type Server struct {
	orders  store.OrderStore
	trades  store.TradeStore
	symbols symbol.Provider
	queue   *queue.Queue
	engine  *engine.Engine
}

// New builds a Server ready to be mounted on a mux.
func New(orders store.OrderStore, trades store.TradeStore, symbols symbol.Provider, q *queue.Queue, eng *engine.Engine) *Server {
	return &Server{orders: orders, trades: trades, symbols: symbols, queue: q, engine: eng}
}

// Routes registers every handler on mux.
func (s *Server) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/trade.do", s.handleTrade)
	mux.HandleFunc("/cancel_order.do", s.handleCancel)
	mux.HandleFunc("/order.do", s.handleGetOrder)
	mux.HandleFunc("/depth.do", s.handleGetDepth)
}

type errorResponse struct {
	Status  string `json:"status"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, err error) {
	var invalidBody *errs.InvalidRequestBody
	var invalid *errs.InvalidRequest

	resp := errorResponse{Status: "error"}
	switch {
	case errors.As(err, &invalidBody):
		resp.Error = "invalid_request_body"
		resp.Message = invalidBody.Message
	case errors.As(err, &invalid):
		resp.Error = "invalid_request"
		resp.Message = invalid.Message
	default:
		resp.Error = "invalid_request"
		resp.Message = err.Error()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	json.NewEncoder(w).Encode(resp)
}

// handleTrade implements POST /trade.do (§6).
func (s *Server) handleTrade(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req TradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, &errs.InvalidRequestBody{Message: "malformed JSON body: " + err.Error()})
		return
	}

	if err := validateTradeRequest(&req, s.symbols); err != nil {
		writeError(w, err)
		return
	}

	clientOrderID := req.ClientOrderID
	if clientOrderID == "" {
		clientOrderID = uuid.NewString()
	}

	order, err := s.orders.Create(req.Type, req.Symbol, req.Amount, req.Price, clientOrderID)
	if err != nil {
		log.Printf("[ERROR] creating order: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	s.queue.Put(events.NewOrderEvent{OrderID: order.ID})
	log.Printf("[INFO] accepted order %d: symbol=%s type=%s amount=%d", order.ID, order.Symbol, order.Type, order.Amount)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"order_id":        order.ID,
		"client_order_id": order.ClientOrderID,
		"result":          true,
	})
}

// handleCancel implements POST /cancel_order.do (§4.6), busy-waiting
// for a cancellation trade to appear before answering.
func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req CancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, &errs.InvalidRequestBody{Message: "malformed JSON body: " + err.Error()})
		return
	}
	if err := validateCancelRequest(&req); err != nil {
		writeError(w, err)
		return
	}

	if _, err := s.orders.Get(req.OrderID); err != nil {
		writeError(w, errs.Invalidf("unknown order_id: %d", req.OrderID))
		return
	}

	priorTrades, err := s.trades.Get(req.OrderID)
	if err != nil {
		log.Printf("[ERROR] reading trades for cancel %d: %v", req.OrderID, err)
	}
	baseline := len(priorTrades)

	s.queue.Put(events.CancelOrderEvent{OrderID: req.OrderID})
	log.Printf("[INFO] cancel requested for order %d", req.OrderID)

	observed := s.awaitCancel(req.OrderID, baseline)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"order_id": req.OrderID,
		"result":   observed,
	})
}

func (s *Server) awaitCancel(orderID int64, baseline int) bool {
	for i := 0; i < cancelPollAttempts; i++ {
		trades, err := s.trades.Get(orderID)
		if err == nil {
			for _, t := range trades[baseline:] {
				if t.Status.IsCanceled() {
					return true
				}
			}
		}
		time.Sleep(cancelPollInterval)
	}
	return false
}

// handleGetOrder implements GET /order.do?order_id=N, a supplemented
// read endpoint returning the order's current state and trade
// history.
func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id, err := parseID(r.URL.Query().Get("order_id"))
	if err != nil {
		writeError(w, errs.Invalidf("invalid order_id: %s", r.URL.Query().Get("order_id")))
		return
	}

	order, err := s.engine.GetOrder(id)
	if err != nil {
		writeError(w, errs.Invalidf("unknown order_id: %d", id))
		return
	}
	trades, err := s.trades.Get(id)
	if err != nil {
		log.Printf("[ERROR] reading trades for order %d: %v", id, err)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"order":  order,
		"trades": trades,
	})
}

// handleGetDepth implements GET /depth.do?symbol=S, a supplemented
// read endpoint mirroring the depth log's content on demand.
func (s *Server) handleGetDepth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sym := r.URL.Query().Get("symbol")
	if sym == "" {
		writeError(w, errs.Invalidf("missing required field: symbol"))
		return
	}

	buyRows, sellRows := s.engine.GetDepth(sym)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"symbol": sym,
		"buy":    buyRows,
		"sell":   sellRows,
	})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func parseID(s string) (int64, error) {
	if s == "" {
		return 0, errors.New("empty id")
	}
	return strconv.ParseInt(s, 10, 64)
}
