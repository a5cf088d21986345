package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"order-matching-engine/internal/api"
	"order-matching-engine/internal/config"
	"order-matching-engine/internal/db"
	"order-matching-engine/internal/engine"
	"order-matching-engine/internal/queue"
	"order-matching-engine/internal/store"
	"order-matching-engine/internal/symbol"
)

func main() {
	cfg := config.Load()

	log.Println("[INFO] starting order matching engine server...")

	orders, trades, closeStore := buildStores(cfg)
	defer closeStore()

	symbols := symbol.Default()

	tradeLog, err := openLogFile(cfg.TradeLogPath)
	if err != nil {
		log.Fatalf("[ERROR] opening trade log: %v", err)
	}
	defer tradeLog.Close()

	orderLog, err := openLogFile(cfg.OrderLogPath)
	if err != nil {
		log.Fatalf("[ERROR] opening order log: %v", err)
	}
	defer orderLog.Close()

	depthLog, err := openLogFile(cfg.DepthLogPath)
	if err != nil {
		log.Fatalf("[ERROR] opening depth log: %v", err)
	}
	defer depthLog.Close()

	logs := engine.NewLogSink(tradeLog, orderLog, depthLog)

	q := queue.New(cfg.EventQueueSize)
	eng := engine.New(q, orders, trades, symbols, logs, cfg.EventQueueTimeout)

	engineCtx, cancelEngine := context.WithCancel(context.Background())
	go eng.Run(engineCtx)
	log.Println("[INFO] matching engine running")

	srv := api.New(orders, trades, symbols, q, eng)
	mux := http.NewServeMux()
	srv.Routes(mux)

	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: mux,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("[INFO] server listening on %s", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("[ERROR] server failed: %v", err)
		}
	}()

	<-stop
	log.Println("[INFO] shutdown signal received, initiating graceful shutdown...")

	cancelEngine()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Printf("[ERROR] server forced to shutdown: %v", err)
	} else {
		log.Println("[INFO] server gracefully stopped")
	}
}

func buildStores(cfg *config.Config) (store.OrderStore, store.TradeStore, func()) {
	if cfg.StoreBackend != "mysql" {
		log.Println("[INFO] using in-memory order/trade stores")
		return store.NewMemOrderStore(), store.NewMemTradeStore(), func() {}
	}

	log.Println("[INFO] connecting to durable store...")
	conn, err := db.Connect()
	if err != nil {
		log.Fatalf("[ERROR] failed to connect to database: %v", err)
	}

	orders, err := store.NewMySQLOrderStore(conn)
	if err != nil {
		log.Fatalf("[ERROR] failed to prepare order store: %v", err)
	}
	trades, err := store.NewMySQLTradeStore(conn)
	if err != nil {
		log.Fatalf("[ERROR] failed to prepare trade store: %v", err)
	}

	return orders, trades, func() {
		orders.Close()
		trades.Close()
		conn.Close()
	}
}

func openLogFile(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
}
