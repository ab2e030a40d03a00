package main

import (
	"context"
	"errors"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/rl1809/order-service/internal/adapter/eventbus"
	"github.com/rl1809/order-service/internal/adapter/handler"
	"github.com/rl1809/order-service/internal/adapter/metrics"
	"github.com/rl1809/order-service/internal/adapter/pricing"
	"github.com/rl1809/order-service/internal/adapter/storage"
	"github.com/rl1809/order-service/internal/config"
	"github.com/rl1809/order-service/internal/core/service"
	"github.com/rl1809/order-service/internal/platform/logger"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(err)
	}

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		panic(err)
	}

	// run owns every closer; exit only after its defers and the log flush.
	if err := run(cfg, log); err != nil {
		log.Error("server stopped", "error", err)
		log.Sync()
		os.Exit(1)
	}
	log.Sync()
}

func run(cfg config.Config, log *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	currencies := cfg.CurrencySet()

	// Database
	db, err := storage.Open(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return err
	}
	defer db.Close()
	if cfg.Database.Driver != storage.DriverSQLite {
		db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
		db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
		db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)
	}
	if err := storage.ApplyMigrations(ctx, db, cfg.Database.Driver); err != nil {
		return err
	}
	repo, err := storage.NewSQLAdapter(db, cfg.Database.Driver, currencies)
	if err != nil {
		return err
	}
	log.Info("connected to database", "driver", cfg.Database.Driver, "schema", storage.CurrentSchemaVersion)

	// Metrics and event bus
	m := metrics.New("server")
	bus := eventbus.New(log)
	eventbus.RegisterLogger(bus, log)
	eventbus.RegisterMetrics(bus, m)

	if len(cfg.Kafka.Brokers) > 0 {
		writer := eventbus.NewKafkaWriter(strings.Join(cfg.Kafka.Brokers, ","), cfg.Kafka.Topic)
		defer writer.Close()
		eventbus.NewKafkaForwarder(writer).Attach(bus)
		log.Info("forwarding events to kafka", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)
	}

	opts := []service.Option{
		service.WithCurrencies(currencies),
		service.WithLogger(log),
	}

	catalog, err := pricing.FromSeeds(currencies, priceSeeds(cfg.Prices))
	if err != nil {
		return err
	}

	// Redis backs idempotency keys and list prices when configured
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			return err
		}
		defer rdb.Close()
		log.Info("connected to redis", "addr", cfg.Redis.Addr)

		redisAdapter := storage.NewRedisAdapter(rdb, cfg.Redis.IdempotencyTTL, currencies)
		if err := seedPrices(ctx, catalog, redisAdapter); err != nil {
			return err
		}
		opts = append(opts, service.WithIdempotency(redisAdapter), service.WithPriceCatalog(redisAdapter))
	} else {
		opts = append(opts, service.WithPriceCatalog(catalog))
	}

	orderService := service.NewOrderService(repo, bus, opts...)

	// Transports
	grpcServer := grpc.NewServer(grpc.UnaryInterceptor(handler.MetricsInterceptor(m)))
	handler.RegisterOrderServiceServer(grpcServer, handler.NewGRPCHandler(orderService, log))

	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: handler.NewHTTPHandler(orderService, m, log).Routes(),
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			return err
		}
		log.Info("gRPC server listening", "addr", cfg.GRPCAddr)
		return grpcServer.Serve(lis)
	})

	g.Go(func() error {
		log.Info("HTTP server listening", "addr", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// Graceful shutdown
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Warn("HTTP shutdown", "error", err)
		}
		log.Info("HTTP server stopped")

		grpcServer.GracefulStop()
		log.Info("gRPC server stopped")
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	log.Info("connections closed")
	return nil
}

func priceSeeds(prices []config.Price) []pricing.Seed {
	seeds := make([]pricing.Seed, 0, len(prices))
	for _, p := range prices {
		seeds = append(seeds, pricing.Seed{ProductID: p.ProductID, Amount: p.Amount, Currency: p.Currency})
	}
	return seeds
}

// seedPrices copies the configured list prices into Redis.
func seedPrices(ctx context.Context, catalog *pricing.Static, r *storage.RedisAdapter) error {
	for pid, price := range catalog.All() {
		if err := r.SetPrice(ctx, pid, price); err != nil {
			return err
		}
	}
	return nil
}
