package swapengine

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/cpmm-direct-swap/internal/cache"
	"github.com/aman-zulfiqar/cpmm-direct-swap/internal/config"
	"github.com/aman-zulfiqar/cpmm-direct-swap/internal/constants"
	"github.com/aman-zulfiqar/cpmm-direct-swap/internal/cpmm"
	"github.com/aman-zulfiqar/cpmm-direct-swap/internal/flags"
	"github.com/aman-zulfiqar/cpmm-direct-swap/internal/jupiter"
	"github.com/aman-zulfiqar/cpmm-direct-swap/internal/ledger"
	"github.com/aman-zulfiqar/cpmm-direct-swap/internal/rpc"
	"github.com/aman-zulfiqar/cpmm-direct-swap/internal/storage"
)

// Engine is the main orchestrator for swap operations
type Engine struct {
	ledger     ledger.Client
	assembler  *Assembler
	qualifier  *Qualifier
	executor   *Executor
	risk       *RiskManager
	aggregator QuoteProvider
	flags      FlagReader
	pools      *cpmm.PoolRegistry
	logger     *logrus.Logger

	closers []func() error
}

// EngineConfig holds the engine's collaborators. Only Ledger is required.
type EngineConfig struct {
	Ledger    ledger.Client
	ProgramID solana.PublicKey // zero means mainnet CP-Swap
	Decode    cpmm.DecodeOptions
	Resolver  TokenAccountResolver

	Aggregator QuoteProvider // nil disables the fallback route
	Flags      FlagReader    // nil treats the direct path as enabled
	Pools      *cpmm.PoolRegistry

	Executor ExecutorConfig // Ledger and Logger are filled in from here
	Risk     RiskConfig

	Logger *logrus.Logger
}

// NewEngine creates a new swap engine with all dependencies
func NewEngine(cfg EngineConfig) (*Engine, error) {
	if cfg.Ledger == nil {
		return nil, fmt.Errorf("engine: ledger is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.ProgramID.IsZero() {
		cfg.ProgramID = cpmm.ProgramID
	}

	assembler, err := NewAssembler(AssemblerConfig{
		Ledger:    cfg.Ledger,
		ProgramID: cfg.ProgramID,
		Decode:    cfg.Decode,
		Resolver:  cfg.Resolver,
		Logger:    cfg.Logger,
	})
	if err != nil {
		return nil, err
	}

	risk := NewRiskManager(cfg.Risk)

	execCfg := cfg.Executor
	execCfg.Ledger = cfg.Ledger
	execCfg.Risk = risk
	execCfg.Logger = cfg.Logger
	executor, err := NewExecutor(execCfg)
	if err != nil {
		return nil, err
	}

	return &Engine{
		ledger:     cfg.Ledger,
		assembler:  assembler,
		qualifier:  NewQualifier(cfg.Ledger, cfg.ProgramID, cfg.Logger),
		executor:   executor,
		risk:       risk,
		aggregator: cfg.Aggregator,
		flags:      cfg.Flags,
		pools:      cfg.Pools,
		logger:     cfg.Logger,
	}, nil
}

// NewEngineFromConfig wires the engine to a live RPC node, Jupiter, Redis
// and ClickHouse. Redis and ClickHouse are optional: when they cannot be
// reached the engine runs without flags and swap history.
func NewEngineFromConfig(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*Engine, error) {
	if logger == nil {
		logger = logrus.New()
	}

	rpcClient := rpc.NewClient(rpc.ClientConfig{
		BaseURL:      cfg.RPCUrl,
		Timeout:      cfg.HTTPTimeout,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
		Logger:       logger,
	})

	led, err := ledger.NewRPCClient(ledger.RPCConfig{
		RPC:           rpcClient,
		SkipPreflight: cfg.SkipPreflight,
		Logger:        logger,
	})
	if err != nil {
		return nil, err
	}

	engCfg := EngineConfig{
		Ledger:     led,
		ProgramID:  cfg.ProgramID(),
		Decode:     cpmm.DecodeOptions{StrictDiscriminator: cfg.StrictDiscriminator},
		Aggregator: NewJupiterProvider(jupiter.NewClient(cfg.JupiterBaseURL, cfg.JupiterAPIKey).WithUltraBaseURL(cfg.JupiterUltraURL)),
		Risk: RiskConfig{
			MaxSwapLamports:    cfg.MaxSwapLamports,
			DailyLimitLamports: cfg.DailyLimitLamports,
			MaxPriceImpactBps:  cfg.MaxPriceImpactBps,
			MinBalanceLamports: cfg.MinBalanceLamports,
		},
		Executor: ExecutorConfig{ConfirmTimeout: cfg.ConfirmTimeout},
		Logger:   logger,
	}

	if cfg.PoolConfigPath != "" {
		pools, err := cpmm.NewPoolRegistry(cfg.PoolConfigPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load pool registry: %w", err)
		}
		engCfg.Pools = pools
	}

	var closers []func() error

	if cfg.RedisAddr != "" {
		rclient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rclient.Ping(ctx).Err(); err != nil {
			logger.WithError(err).Warn("redis unavailable, running without flags and recent swaps")
			_ = rclient.Close()
		} else {
			flagStore, err := flags.NewStore(rclient, logger)
			if err != nil {
				return nil, err
			}
			swapCache, err := cache.NewRedisCache(rclient)
			if err != nil {
				return nil, err
			}
			engCfg.Flags = flagStore
			engCfg.Executor.Cache = swapCache
			engCfg.Executor.Publisher = cache.NewPubSubManager(rclient, logger)
			closers = append(closers, swapCache.Close)
		}
	}

	if cfg.ClickHouseAddr != "" {
		store, err := cache.NewClickHouseStore(ctx, cache.ClickHouseConfig{
			Addr:     cfg.ClickHouseAddr,
			Database: cfg.ClickHouseDatabase,
			Username: cfg.ClickHouseUsername,
			Password: cfg.ClickHousePassword,
			Logger:   logger,
		})
		if err != nil {
			logger.WithError(err).Warn("clickhouse unavailable, swap history disabled")
		} else {
			engCfg.Executor.Store = store
			closers = append(closers, store.Close)
		}
	}

	eng, err := NewEngine(engCfg)
	if err != nil {
		for _, c := range closers {
			_ = c()
		}
		return nil, err
	}
	eng.closers = closers
	return eng, nil
}

// CheckDirectSwapEligible reports whether pool can take the direct path
func (e *Engine) CheckDirectSwapEligible(ctx context.Context, pool *solana.PublicKey) bool {
	return e.qualifier.CheckDirectSwapEligible(ctx, pool)
}

// BuildDirectSwapTransaction assembles the unsigned direct swap
// transaction for req without checking eligibility first.
func (e *Engine) BuildDirectSwapTransaction(ctx context.Context, req *SwapRequest) (*solana.Transaction, error) {
	res, err := e.assembler.Build(ctx, req)
	if err != nil {
		return nil, err
	}
	return res.Transaction, nil
}

// Quote prices req against the pool's live reserves
func (e *Engine) Quote(ctx context.Context, req *SwapRequest) (*cpmm.SwapQuote, error) {
	_, quote, err := e.assembler.Quote(ctx, req)
	return quote, err
}

// SelectRoute picks the direct path when it is enabled and the pool
// qualifies, otherwise the aggregator.
func (e *Engine) SelectRoute(ctx context.Context, req *SwapRequest) Route {
	if e.flags != nil && !e.flags.Enabled(ctx, constants.FlagDirectSwapEnabled, true) {
		return RouteAggregator
	}

	var pool *solana.PublicKey
	if !req.Pool.IsZero() {
		pool = &req.Pool
	}
	if e.CheckDirectSwapEligible(ctx, pool) {
		return RouteDirect
	}
	return RouteAggregator
}

// BuildSwap routes req and returns the unsigned transaction. Errors on
// the direct route are returned as is; they never fall through to the
// aggregator.
func (e *Engine) BuildSwap(ctx context.Context, req *SwapRequest) (*BuildResult, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}

	route := e.SelectRoute(ctx, req)
	e.logger.WithFields(logrus.Fields{
		"pool":  req.Pool.String(),
		"route": route,
	}).Debug("route selected")

	if route == RouteDirect {
		res, err := e.assembler.Build(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("direct swap: %w", err)
		}
		return res, nil
	}

	return buildAggregatorSwap(ctx, e.aggregator, req)
}

// Execute builds, signs, submits and confirms req
func (e *Engine) Execute(ctx context.Context, req *SwapRequest, signer Signer) (*SwapResult, error) {
	if signer != nil && req != nil && req.Signer.IsZero() {
		req.Signer = signer.PublicKey()
	}

	built, err := e.BuildSwap(ctx, req)
	if err != nil {
		return &SwapResult{Success: false, Error: err.Error()}, err
	}

	result, err := e.executor.ExecuteSwap(ctx, req, built, signer)
	if err != nil {
		return result, fmt.Errorf("execution failed: %w", err)
	}
	return result, nil
}

// ResolvePool looks a pool up by registry name, falling back to parsing
// nameOrAddress as a pool address.
func (e *Engine) ResolvePool(nameOrAddress string) (*cpmm.PoolEntry, error) {
	if e.pools != nil {
		if entry, err := e.pools.FindByName(nameOrAddress); err == nil {
			return entry, nil
		}
	}
	pool, err := solana.PublicKeyFromBase58(nameOrAddress)
	if err != nil {
		return nil, fmt.Errorf("unknown pool %q", nameOrAddress)
	}
	return &cpmm.PoolEntry{Pool: pool}, nil
}

func (e *Engine) Ledger() ledger.Client { return e.ledger }

// RiskStatus returns current risk limits and usage
func (e *Engine) RiskStatus() RiskStatus {
	return e.risk.Status()
}

// Close cleans up all resources
func (e *Engine) Close() error {
	var errs []error
	for _, c := range e.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var _ storage.SwapCache = (*cache.RedisCache)(nil)
var _ storage.SwapStore = (*cache.ClickHouseStore)(nil)
var _ storage.SwapPublisher = (*cache.PubSubManager)(nil)
var _ FlagReader = (*flags.Store)(nil)
