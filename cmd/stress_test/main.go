package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/rl1809/order-service/internal/adapter/eventbus"
	"github.com/rl1809/order-service/internal/adapter/storage"
	"github.com/rl1809/order-service/internal/config"
	"github.com/rl1809/order-service/internal/core/apperr"
	"github.com/rl1809/order-service/internal/core/domain"
	"github.com/rl1809/order-service/internal/core/service"
	"github.com/rl1809/order-service/internal/platform/logger"
)

const productID = "stress-item"

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "path to a YAML config file")
	totalRequests := flag.Int("requests", 50, "concurrent AddItemToOrder calls")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}

	if err := run(cfg, log, *totalRequests); err != nil {
		log.Error("stress test failed", "error", err)
		log.Sync()
		os.Exit(1)
	}
	log.Sync()
}

func run(cfg config.Config, log *logger.Logger, totalRequests int) error {
	ctx := context.Background()
	currencies := cfg.CurrencySet()

	db, err := storage.Open(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := storage.ApplyMigrations(ctx, db, cfg.Database.Driver); err != nil {
		return err
	}
	repo, err := storage.NewSQLAdapter(db, cfg.Database.Driver, currencies)
	if err != nil {
		return err
	}

	var published atomic.Int32
	bus := eventbus.New(log)
	eventbus.RegisterLogger(bus, log.With("source", "stress_test"))
	eventbus.Subscribe(bus, "counter", func(ctx context.Context, e domain.Event) error {
		published.Add(1)
		return nil
	})
	orderService := service.NewOrderService(repo, bus, service.WithCurrencies(currencies))

	currency := currencies.Codes()[0]
	price := decimal.RequireFromString("1.00")
	item := service.ItemInput{ProductID: productID, Quantity: 1, UnitPrice: &price, Currency: currency}

	orderID, err := orderService.CreateOrder(ctx, service.CreateOrderRequest{Items: []service.ItemInput{item}})
	if err != nil {
		return err
	}

	// Counters
	var successCount, conflictCount atomic.Int32

	// Spawn concurrent requests
	var g errgroup.Group
	start := time.Now()

	for i := 0; i < totalRequests; i++ {
		g.Go(func() error {
			_, err := orderService.AddItemToOrder(ctx, orderID.String(), item)
			switch {
			case err == nil:
				successCount.Add(1)
				return nil
			case errors.Is(err, apperr.ErrConflict):
				conflictCount.Add(1)
				return nil
			default:
				return err
			}
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	elapsed := time.Since(start)

	// Results
	success := successCount.Load()
	conflicts := conflictCount.Load()

	order, err := orderService.GetOrder(ctx, orderID.String())
	if err != nil {
		return err
	}
	line, _ := order.Item(productID)

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Order:            %s\n", orderID)
	fmt.Printf("Total Requests:   %d\n", totalRequests)
	fmt.Printf("Accepted:         %d\n", success)
	fmt.Printf("Version Conflict: %d\n", conflicts)
	fmt.Printf("Events Published: %d\n", published.Load())
	fmt.Printf("Final Quantity:   %d\n", line.Quantity().Int())
	fmt.Printf("Final Version:    %d\n", order.Version())
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("==========================================")

	// Assertions
	if want := 1 + int(success); line.Quantity().Int() == want {
		fmt.Println("PASS: every accepted write is reflected exactly once")
	} else {
		fmt.Printf("FAIL: expected quantity %d, got %d\n", want, line.Quantity().Int())
	}
	if int64(1+success) == order.Version() {
		fmt.Println("PASS: version advanced once per accepted write")
	} else {
		fmt.Printf("FAIL: expected version %d, got %d\n", 1+success, order.Version())
	}
	return nil
}
