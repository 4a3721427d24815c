/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the vending engine server: opens the database(s),
  wires the ledgers and the order-placement strategy, and serves the API
  with graceful shutdown.

COMMAND-LINE FLAGS:
  -port     HTTP server port (default: 8080)
  -db       SQLite database path (default: vending.db).
            Use ":memory:" for an in-memory database.
  -cash-db  Optional separate SQLite database for the cash ledger.
            When set, the engine runs in COMPENSATING mode: cash and
            inventory no longer share a transaction, and a failed stock
            decrement is recovered with an explicit refund.
            When empty (default), the engine runs in UNIFIED mode: one
            database, one serializable transaction per order.

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connections
  4. Exit

EXAMPLES:
  # Unified mode, one database
  ./server -db="./data/vending.db"

  # Compensating mode, independent ledger engines
  ./server -db="./data/inventory.db" -cash-db="./data/cash.db"

SEE ALSO:
  - api/server.go: Router configuration
  - orders/placer.go: The two placement strategies
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vendmatic/vending-engine/api"
	"github.com/vendmatic/vending-engine/cash"
	"github.com/vendmatic/vending-engine/inventory"
	"github.com/vendmatic/vending-engine/orders"
	"github.com/vendmatic/vending-engine/persistence"
	"github.com/vendmatic/vending-engine/reporting"
	"github.com/vendmatic/vending-engine/store/sqlite"
)

func main() {
	// Flags
	port := flag.Int("port", 8080, "HTTP server port")
	dbPath := flag.String("db", "vending.db", "SQLite database path")
	cashDBPath := flag.String("cash-db", "", "separate SQLite database for the cash ledger (enables compensating mode)")
	flag.Parse()

	// Main database (inventory, order log, reporting, and in unified
	// mode the cash ledger too)
	db, err := sqlite.Open(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	txm := persistence.NewManager(db)

	// Cash ledger either shares the main database or runs on its own engine
	cashDB := db
	cashTxm := txm
	compensating := *cashDBPath != ""
	if compensating {
		cashDB, err = sqlite.Open(*cashDBPath)
		if err != nil {
			log.Fatalf("Failed to open cash database: %v", err)
		}
		defer cashDB.Close()
		cashTxm = persistence.NewManager(cashDB)
	}

	// Services
	register := cash.NewRegister(sqlite.NewCashStorage(cashDB), cashTxm)
	inv := inventory.NewService(sqlite.NewInventoryRepository(db), txm)
	orderLog := sqlite.NewOrderLog(db)
	reportingRepo := sqlite.NewReportingRepository(db)

	if err := ensureSchemas(context.Background(), register, inv, orderLog, reportingRepo); err != nil {
		log.Fatalf("Failed to initialize schemas: %v", err)
	}

	// Order placement strategy
	placerOpts := []orders.Option{
		orders.WithPublisher(reporting.NewProjector(reportingRepo)),
		orders.WithLog(orderLog),
	}
	var placer orders.Placer
	if compensating {
		log.Printf("Order placement: compensating mode (cash ledger on %s)", *cashDBPath)
		placer = orders.NewCompensatingPlacer(register, inv, placerOpts...)
	} else {
		log.Printf("Order placement: unified mode (single database %s)", *dbPath)
		placer = orders.NewUnifiedPlacer(register, inv, txm, placerOpts...)
	}

	// Handler and router
	handler := api.NewHandler(register, inv, placer, reporting.NewService(reportingRepo), orderLog)
	router := api.NewRouter(handler)

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server starting on http://localhost:%d", *port)
		log.Printf("API available at http://localhost:%d/api", *port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}

type schemaInitializer interface {
	EnsureSchema(ctx context.Context) error
}

func ensureSchemas(ctx context.Context, inits ...schemaInitializer) error {
	for _, init := range inits {
		if err := init.EnsureSchema(ctx); err != nil {
			return err
		}
	}
	return nil
}
