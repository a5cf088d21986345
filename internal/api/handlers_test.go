package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"order-matching-engine/internal/engine"
	"order-matching-engine/internal/queue"
	"order-matching-engine/internal/store"
	"order-matching-engine/internal/symbol"
)

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func newTestServer(t *testing.T) (*httptest.Server, func()) {
	t.Helper()

	orders := store.NewMemOrderStore()
	trades := store.NewMemTradeStore()
	symbols := symbol.Default()
	q := queue.New(16)
	logs := engine.NewLogSink(discardWriter{}, discardWriter{}, discardWriter{})
	eng := engine.New(q, orders, trades, symbols, logs, 20*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		eng.Run(ctx)
	}()

	srv := New(orders, trades, symbols, q, eng)
	mux := http.NewServeMux()
	srv.Routes(mux)
	ts := httptest.NewServer(mux)

	cleanup := func() {
		ts.Close()
		cancel()
		<-done
	}
	return ts, cleanup
}

func TestHandleTradeAcceptsValidOrder(t *testing.T) {
	ts, cleanup := newTestServer(t)
	defer cleanup()

	body := `{"symbol":"WSCN","type":"buy","amount":10,"price":95.5}`
	resp, err := http.Post(ts.URL+"/trade.do", "application/json", bytes.NewBufferString(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Equal(t, true, out["result"])
	require.NotEmpty(t, out["client_order_id"])
}

func TestHandleTradeRejectsOutOfBandPrice(t *testing.T) {
	ts, cleanup := newTestServer(t)
	defer cleanup()

	body := `{"symbol":"WSCN","type":"buy","amount":10,"price":110.01}`
	resp, err := http.Post(ts.URL+"/trade.do", "application/json", bytes.NewBufferString(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var out errorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Contains(t, out.Message, "110.01")
}

func TestHandleCancelRoundTrip(t *testing.T) {
	ts, cleanup := newTestServer(t)
	defer cleanup()

	tradeBody := `{"symbol":"WSCN","type":"buy","amount":10,"price":95}`
	resp, err := http.Post(ts.URL+"/trade.do", "application/json", bytes.NewBufferString(tradeBody))
	require.NoError(t, err)
	var created map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	resp.Body.Close()
	orderID := int64(created["order_id"].(float64))

	cancelBody, err := json.Marshal(CancelRequest{Symbol: "WSCN", OrderID: orderID})
	require.NoError(t, err)

	resp, err = http.Post(ts.URL+"/cancel_order.do", "application/json", bytes.NewBuffer(cancelBody))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Equal(t, true, out["result"])
}

func TestHandleGetDepthUnknownSymbolReturnsEmpty(t *testing.T) {
	ts, cleanup := newTestServer(t)
	defer cleanup()

	resp, err := http.Get(ts.URL + "/depth.do?symbol=NOPE")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Nil(t, out["buy"])
	require.Nil(t, out["sell"])
}
