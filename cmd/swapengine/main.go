package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strconv"
	"syscall"

	"github.com/gagliardetto/solana-go"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/cpmm-direct-swap/internal/cache"
	"github.com/aman-zulfiqar/cpmm-direct-swap/internal/config"
	"github.com/aman-zulfiqar/cpmm-direct-swap/internal/constants"
	"github.com/aman-zulfiqar/cpmm-direct-swap/internal/cpmm"
	"github.com/aman-zulfiqar/cpmm-direct-swap/internal/models"
	"github.com/aman-zulfiqar/cpmm-direct-swap/internal/rpc"
	"github.com/aman-zulfiqar/cpmm-direct-swap/internal/stream"
	"github.com/aman-zulfiqar/cpmm-direct-swap/internal/swapengine"
	"github.com/aman-zulfiqar/cpmm-direct-swap/internal/wallet"
)

const solDecimals = 9

func loadEnv() {
	_, filename, _, _ := runtime.Caller(0)
	projectRoot := filepath.Join(filepath.Dir(filename), "../..")
	_ = godotenv.Load(filepath.Join(projectRoot, ".env"))
}

func exitf(code int, format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(code)
}

func main() {
	loadEnv()

	mode := flag.String("mode", "quote", "eligible | quote | build | execute | watch (with -pool: poll the pool on chain)")
	poolArg := flag.String("pool", "", "pool registry name or pool address")
	tokenArg := flag.String("token", "", "token mint (defaults to the registry entry's mint)")
	dirArg := flag.String("direction", "buy", "buy (SOL in) | sell (token in)")
	amtArg := flag.String("amount", "", "input amount in human units (e.g. 0.5)")
	decimalsArg := flag.Int("decimals", -1, "token decimals (defaults to the registry entry)")
	minOutArg := flag.String("min-out", "", "minimum output in raw units (default 1% slippage)")
	channel := flag.String("channel", constants.PubSubChannelSwaps, "pub/sub channel for -mode watch")
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg := config.Load()
	logger.SetLevel(cfg.Level())
	if err := cfg.Validate(); err != nil {
		exitf(2, "invalid configuration: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	if *mode == "watch" && *poolArg == "" {
		if err := watch(ctx, cfg, *channel, logger); err != nil && ctx.Err() == nil {
			exitf(1, "watch failed: %v", err)
		}
		return
	}

	engine, err := swapengine.NewEngineFromConfig(ctx, cfg, logger)
	if err != nil {
		exitf(1, "failed to init swapengine: %v", err)
	}
	defer engine.Close()

	if *poolArg == "" {
		exitf(2, "missing -pool")
	}
	entry, err := engine.ResolvePool(*poolArg)
	if err != nil {
		exitf(2, "%v", err)
	}

	switch *mode {
	case "eligible":
		fmt.Printf("pool=%s eligible=%v\n", entry.Pool, engine.CheckDirectSwapEligible(ctx, &entry.Pool))
		return
	case "watch":
		if err := watchPool(ctx, cfg, engine, entry.Pool, logger); err != nil && ctx.Err() == nil {
			exitf(1, "watch failed: %v", err)
		}
		return
	}

	req, inDecimals, outDecimals, err := buildRequest(entry.Pool, entry.TokenMint, entry.Decimals, *tokenArg, *dirArg, *amtArg, *decimalsArg, *minOutArg)
	if err != nil {
		exitf(2, "%v", err)
	}

	var signer swapengine.Signer
	if cfg.WalletPrivateKey != "" {
		w, err := wallet.NewWallet(wallet.WalletConfig{PrivateKey: cfg.WalletPrivateKey})
		if err != nil {
			exitf(2, "invalid wallet: %v", err)
		}
		signer = w
		req.Signer = w.PublicKey()
	}

	inMint, outMint := req.Mints()

	switch *mode {
	case "quote":
		if req.Signer.IsZero() {
			// quoting reads pool state only; any key will do
			req.Signer = entry.Pool
		}
		q, err := engine.Quote(ctx, req)
		if err != nil {
			exitf(1, "quote failed: %v", err)
		}
		fmt.Printf("pool=%s in=%s %s out=%s %s min_out=%s impact_bps=%d\n",
			q.Pool,
			swapengine.FromRawAmount(q.AmountIn, inDecimals), constants.Symbol(inMint.String()),
			swapengine.FromRawAmount(q.AmountOut, outDecimals), constants.Symbol(outMint.String()),
			swapengine.FromRawAmount(q.MinAmountOut, outDecimals),
			q.PriceImpactBps)

	case "build":
		if req.Signer.IsZero() {
			exitf(2, "build needs WALLET_PRIVATE_KEY for the signer address")
		}
		res, err := engine.BuildSwap(ctx, req)
		if err != nil {
			exitf(1, "build failed: %v", err)
		}
		fmt.Printf("route=%s instructions=%d created_accounts=%d\n",
			res.Route, len(res.Transaction.Message.Instructions), len(res.CreatedAccounts))
		if res.Quote != nil {
			fmt.Printf("expected_out=%s min_out=%s\n",
				swapengine.FromRawAmount(res.Quote.AmountOut, outDecimals),
				swapengine.FromRawAmount(res.Quote.MinAmountOut, outDecimals))
		}

	case "execute":
		if signer == nil {
			exitf(2, "execute needs WALLET_PRIVATE_KEY")
		}
		res, err := engine.Execute(ctx, req, signer)
		if err != nil {
			exitf(1, "execute failed: %v", err)
		}
		fmt.Printf("route=%s success=%v sig=%s status=%s expected_out=%s %s duration=%s\n",
			res.Route, res.Success, res.Signature, res.Status,
			swapengine.FromRawAmount(res.ExpectedOut, outDecimals), constants.Symbol(outMint.String()),
			res.Duration)

	default:
		exitf(2, "invalid -mode (use eligible|quote|build|execute|watch)")
	}
}

// buildRequest turns CLI flags into a SwapRequest. Flags override the
// registry entry.
func buildRequest(
	pool, entryMint solana.PublicKey,
	entryDecimals uint8,
	tokenArg, dirArg, amtArg string,
	decimalsArg int,
	minOutArg string,
) (req *swapengine.SwapRequest, inDecimals, outDecimals uint8, err error) {
	req = &swapengine.SwapRequest{Pool: pool, TokenMint: entryMint}

	if tokenArg != "" {
		if req.TokenMint, err = solana.PublicKeyFromBase58(tokenArg); err != nil {
			return nil, 0, 0, fmt.Errorf("invalid -token: %w", err)
		}
	}
	if req.TokenMint.IsZero() {
		return nil, 0, 0, fmt.Errorf("missing -token (pool %s is not in the registry)", pool)
	}

	tokenDecimals := entryDecimals
	if decimalsArg >= 0 {
		if decimalsArg > 18 {
			return nil, 0, 0, fmt.Errorf("invalid -decimals %d", decimalsArg)
		}
		tokenDecimals = uint8(decimalsArg)
	}

	if req.Direction, err = swapengine.ParseDirection(dirArg); err != nil {
		return nil, 0, 0, err
	}
	inDecimals, outDecimals = solDecimals, tokenDecimals
	if req.Direction == swapengine.DirectionSell {
		inDecimals, outDecimals = tokenDecimals, solDecimals
	}

	if amtArg == "" {
		return nil, 0, 0, fmt.Errorf("missing -amount")
	}
	amount, err := decimal.NewFromString(amtArg)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("invalid -amount: %w", err)
	}
	if req.AmountIn, err = swapengine.ToRawAmount(amount, inDecimals); err != nil {
		return nil, 0, 0, err
	}

	if minOutArg != "" {
		minOut, err := strconv.ParseUint(minOutArg, 10, 64)
		if err != nil {
			return nil, 0, 0, fmt.Errorf("invalid -min-out: %w", err)
		}
		req.MinAmountOut = &minOut
	}
	return req, inDecimals, outDecimals, nil
}

// watchPool prints swaps landing on pool, read from chain
func watchPool(ctx context.Context, cfg *config.Config, engine *swapengine.Engine, pool solana.PublicKey, logger *logrus.Logger) error {
	programID := cfg.ProgramID()
	if programID.IsZero() {
		programID = cpmm.ProgramID
	}
	state, err := cpmm.FetchPoolState(ctx, engine.Ledger(), pool, programID, cpmm.DecodeOptions{StrictDiscriminator: cfg.StrictDiscriminator})
	if err != nil {
		return err
	}

	poller, err := stream.NewPoolPoller(stream.PoolPollerConfig{
		RPCClient: rpc.NewClient(rpc.ClientConfig{
			BaseURL:      cfg.RPCUrl,
			Timeout:      cfg.HTTPTimeout,
			MaxRetries:   cfg.MaxRetries,
			RetryBackoff: cfg.RetryBackoff,
			Logger:       logger,
		}),
		Pool:   pool,
		State:  state,
		Logger: logger,
	})
	if err != nil {
		return err
	}
	return poller.Start(ctx, printSwap)
}

func printSwap(ev *models.SwapEvent) {
	fmt.Printf("%s route=%s %s %s -> %s amount_in=%d out=%d status=%s sig=%s\n",
		ev.Timestamp.Format("15:04:05"), ev.Route, ev.Direction,
		constants.Symbol(ev.TokenIn), constants.Symbol(ev.TokenOut),
		ev.AmountIn, ev.ExpectedOut, ev.Status, ev.Signature)
}

// watch prints executed swaps published by other engine instances
func watch(ctx context.Context, cfg *config.Config, channel string, logger *logrus.Logger) error {
	if cfg.RedisAddr == "" {
		return fmt.Errorf("REDIS_ADDR is required for watch")
	}
	rclient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rclient.Close()

	if err := rclient.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}

	logger.WithField("channel", channel).Info("watching swaps")
	return cache.NewPubSubManager(rclient, logger).Subscribe(ctx, channel, printSwap)
}
