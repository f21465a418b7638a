package cache

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/cpmm-direct-swap/internal/models"
)

type ClickHouseConfig struct {
	Addr     string
	Database string
	Username string
	Password string
	Logger   *logrus.Logger
}

type ClickHouseStore struct {
	conn   driver.Conn
	logger *logrus.Logger
}

const createSwapsTable = `
	CREATE TABLE IF NOT EXISTS swaps (
		signature      String,
		timestamp      DateTime64(3),
		route          LowCardinality(String),
		direction      LowCardinality(String),
		pool           String,
		signer         String,
		token_in       String,
		token_out      String,
		amount_in      UInt64,
		expected_out   UInt64,
		min_amount_out UInt64,
		status         LowCardinality(String),
		dex            LowCardinality(String)
	) ENGINE = MergeTree()
	ORDER BY (timestamp, signature)
`

func NewClickHouseStore(ctx context.Context, cfg ClickHouseConfig) (*ClickHouseStore, error) {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.Username == "" {
		cfg.Username = "default"
	}

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{cfg.Addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	if err := conn.Exec(ctx, createSwapsTable); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ensure swaps table: %w", err)
	}

	cfg.Logger.WithFields(logrus.Fields{
		"addr":     cfg.Addr,
		"database": cfg.Database,
	}).Info("connected to ClickHouse")

	return &ClickHouseStore{conn: conn, logger: cfg.Logger}, nil
}

func (c *ClickHouseStore) InsertSwap(ctx context.Context, swap *models.SwapEvent) error {
	query := `
		INSERT INTO swaps (
			signature, timestamp, route, direction, pool, signer,
			token_in, token_out, amount_in, expected_out, min_amount_out, status, dex
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	err := c.conn.Exec(ctx, query,
		swap.Signature,
		swap.Timestamp,
		swap.Route,
		swap.Direction,
		swap.Pool,
		swap.Signer,
		swap.TokenIn,
		swap.TokenOut,
		swap.AmountIn,
		swap.ExpectedOut,
		swap.MinAmountOut,
		swap.Status,
		swap.Dex,
	)
	if err != nil {
		return fmt.Errorf("failed to insert swap: %w", err)
	}

	return nil
}

func (c *ClickHouseStore) Ping(ctx context.Context) error {
	return c.conn.Ping(ctx)
}

func (c *ClickHouseStore) Close() error {
	return c.conn.Close()
}
