package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/rl1809/order-service/internal/core/domain"
)

// Database drivers the server knows how to open.
const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	HTTPAddr        string        `yaml:"http_addr"`
	GRPCAddr        string        `yaml:"grpc_addr"`
	LogMode         string        `yaml:"log_mode"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	Currencies      []string      `yaml:"currencies"`

	Database Database `yaml:"database"`
	Redis    Redis    `yaml:"redis"`
	Kafka    Kafka    `yaml:"kafka"`
	Prices   []Price  `yaml:"prices"`
}

type Database struct {
	Driver          string        `yaml:"driver"`
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// Redis is optional; an empty Addr disables idempotency keys and the Redis
// price catalog.
type Redis struct {
	Addr           string        `yaml:"addr"`
	PoolSize       int           `yaml:"pool_size"`
	IdempotencyTTL time.Duration `yaml:"idempotency_ttl"`
}

// Kafka is optional; no brokers means events stay in-process.
type Kafka struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

type Price struct {
	ProductID string `yaml:"product_id"`
	Amount    string `yaml:"amount"`
	Currency  string `yaml:"currency"`
}

func Default() Config {
	return Config{
		HTTPAddr:        ":8080",
		GRPCAddr:        ":50051",
		LogMode:         "dev",
		ShutdownTimeout: 5 * time.Second,
		Currencies:      []string{"EUR", "USD"},
		Database: Database{
			Driver:          DriverSQLite,
			DSN:             "file:orders.db?_pragma=busy_timeout(5000)",
			MaxOpenConns:    50,
			MaxIdleConns:    25,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Redis: Redis{
			PoolSize:       100,
			IdempotencyTTL: 24 * time.Hour,
		},
		Kafka: Kafka{
			Topic: "orders.events",
		},
	}
}

// Load applies defaults, then the YAML file at path (if any), then the
// environment, and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	str(&c.HTTPAddr, "HTTP_ADDR")
	str(&c.GRPCAddr, "GRPC_ADDR")
	str(&c.LogMode, "LOG_MODE")
	str(&c.Database.Driver, "DB_DRIVER")
	str(&c.Database.DSN, "DB_DSN")
	str(&c.Redis.Addr, "REDIS_ADDR")
	str(&c.Kafka.Topic, "KAFKA_TOPIC")
	list(&c.Kafka.Brokers, "KAFKA_BROKERS")
	list(&c.Currencies, "CURRENCIES")
	num(&c.Database.MaxOpenConns, "DB_MAX_OPEN_CONNS")
	dur(&c.ShutdownTimeout, "SHUTDOWN_TIMEOUT")
}

func (c Config) Validate() error {
	var errs []error
	if c.HTTPAddr == "" {
		errs = append(errs, errors.New("http_addr is required"))
	}
	if c.Database.DSN == "" {
		errs = append(errs, errors.New("database.dsn is required"))
	}
	switch c.Database.Driver {
	case DriverMySQL, DriverPostgres, DriverSQLite:
	default:
		errs = append(errs, fmt.Errorf("database.driver %q is not one of mysql, postgres, sqlite", c.Database.Driver))
	}
	if len(c.CurrencySet().Codes()) == 0 {
		errs = append(errs, errors.New("at least one currency is required"))
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("shutdown_timeout must be positive"))
	}
	if len(c.Kafka.Brokers) > 0 && c.Kafka.Topic == "" {
		errs = append(errs, errors.New("kafka.topic is required when brokers are set"))
	}
	errs = append(errs, c.validatePrices()...)
	return errors.Join(errs...)
}

func (c Config) CurrencySet() domain.CurrencySet {
	return domain.NewCurrencySet(c.Currencies...)
}

func (c Config) validatePrices() []error {
	var errs []error
	currencies := c.CurrencySet()
	for i, p := range c.Prices {
		if _, err := domain.NewProductID(p.ProductID); err != nil {
			errs = append(errs, fmt.Errorf("prices[%d]: %w", i, err))
			continue
		}
		cur, err := currencies.Parse(p.Currency)
		if err != nil {
			errs = append(errs, fmt.Errorf("prices[%d] %s: %w", i, p.ProductID, err))
			continue
		}
		amount, err := decimal.NewFromString(p.Amount)
		if err != nil {
			errs = append(errs, fmt.Errorf("prices[%d] %s: %w", i, p.ProductID, domain.ErrInvalidAmount))
			continue
		}
		if _, err := domain.NewMoney(amount, cur); err != nil {
			errs = append(errs, fmt.Errorf("prices[%d] %s: %w", i, p.ProductID, err))
		}
	}
	return errs
}

func str(dst *string, name string) {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		*dst = v
	}
}

func list(dst *[]string, name string) {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return
	}
	out := []string{}
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	*dst = out
}

func num(dst *int, name string) {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return
	}
	if i, err := strconv.Atoi(v); err == nil {
		*dst = i
	}
}

func dur(dst *time.Duration, name string) {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return
	}
	if d, err := time.ParseDuration(v); err == nil {
		*dst = d
	}
}
