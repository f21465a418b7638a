package swapengine

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/cpmm-direct-swap/internal/constants"
	"github.com/aman-zulfiqar/cpmm-direct-swap/internal/ledger"
	"github.com/aman-zulfiqar/cpmm-direct-swap/internal/models"
	"github.com/aman-zulfiqar/cpmm-direct-swap/internal/storage"
)

// ExecutorConfig wires the submit side of the pipeline. Cache, Publisher
// and Store are optional.
type ExecutorConfig struct {
	Ledger ledger.Client
	Risk   *RiskManager

	Cache     storage.SwapCache
	Publisher storage.SwapPublisher
	Store     storage.SwapStore

	ConfirmTimeout time.Duration // default 60s
	Commitment     ledger.Status // default confirmed

	Logger *logrus.Logger
}

// Executor signs, submits and confirms a built swap, then records it.
type Executor struct {
	ledger ledger.Client
	risk   *RiskManager

	cache     storage.SwapCache
	publisher storage.SwapPublisher
	store     storage.SwapStore

	confirmTimeout time.Duration
	commitment     ledger.Status
	logger         *logrus.Logger
}

func NewExecutor(cfg ExecutorConfig) (*Executor, error) {
	if cfg.Ledger == nil {
		return nil, fmt.Errorf("executor: ledger is required")
	}
	if cfg.Risk == nil {
		cfg.Risk = NewRiskManager(DefaultRiskConfig())
	}
	if cfg.ConfirmTimeout <= 0 {
		cfg.ConfirmTimeout = 60 * time.Second
	}
	if cfg.Commitment == ledger.StatusUnknown {
		cfg.Commitment = ledger.StatusConfirmed
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}

	return &Executor{
		ledger:         cfg.Ledger,
		risk:           cfg.Risk,
		cache:          cfg.Cache,
		publisher:      cfg.Publisher,
		store:          cfg.Store,
		confirmTimeout: cfg.ConfirmTimeout,
		commitment:     cfg.Commitment,
		logger:         cfg.Logger,
	}, nil
}

// ExecuteSwap runs risk checks on a built transaction, signs it with signer
// and waits for confirmation. A non-nil error always comes with a result
// describing how far the swap got.
func (e *Executor) ExecuteSwap(ctx context.Context, req *SwapRequest, built *BuildResult, signer Signer) (*SwapResult, error) {
	start := time.Now()
	result := &SwapResult{
		ExecutionID: fmt.Sprintf("exec_%d", start.UnixNano()),
		Route:       built.Route,
		Quote:       built.Quote,
		ExpectedOut: expectedOut(built),
	}
	fail := func(err error) (*SwapResult, error) {
		result.Error = err.Error()
		result.Duration = time.Since(start)
		return result, err
	}

	if signer == nil {
		return fail(fmt.Errorf("signer is required"))
	}
	if !signer.PublicKey().Equals(req.Signer) {
		return fail(fmt.Errorf("signer %s does not match request signer %s", signer.PublicKey(), req.Signer))
	}

	value := swapValueLamports(req, built)
	balance, err := e.balance(ctx, req)
	if err != nil {
		return fail(err)
	}

	var impact uint64
	if built.Quote != nil {
		impact = built.Quote.PriceImpactBps
	}

	check := e.risk.CheckSwap(RiskInput{
		Request:         req,
		ValueLamports:   value,
		PriceImpactBps:  impact,
		BalanceLamports: balance,
	})
	if !check.Allowed {
		return fail(fmt.Errorf("risk check rejected: %s", check.Reason))
	}

	if err := signer.SignTransaction(built.Transaction); err != nil {
		return fail(fmt.Errorf("sign transaction: %w", err))
	}

	sig, err := e.ledger.Submit(ctx, built.Transaction)
	if err != nil {
		return fail(fmt.Errorf("submit transaction: %w", err))
	}
	result.Signature = sig

	log := e.logger.WithFields(logrus.Fields{
		"signature": sig.String(),
		"route":     built.Route,
		"direction": req.Direction,
	})
	log.Info("swap submitted")

	confirmStart := time.Now()
	status, err := ledger.WaitForConfirmation(ctx, e.ledger, sig, e.commitment, e.confirmTimeout)
	result.Status = status
	result.ConfirmationMS = time.Since(confirmStart).Milliseconds()
	if err != nil {
		log.WithError(err).Error("swap not confirmed")
		return fail(err)
	}

	result.Success = true
	result.Duration = time.Since(start)
	log.WithFields(logrus.Fields{
		"status":          status,
		"confirmation_ms": result.ConfirmationMS,
	}).Info("swap confirmed")

	e.risk.RecordSwap(value)
	e.record(ctx, newSwapEvent(req, built, result))

	return result, nil
}

// record fans a confirmed swap out to cache, pub/sub and history.
// Failures are logged and never fail the swap.
func (e *Executor) record(ctx context.Context, ev *models.SwapEvent) {
	log := e.logger.WithField("signature", ev.Signature)

	if e.cache != nil {
		if err := e.cache.AddRecentSwap(ctx, ev); err != nil {
			log.WithError(err).Warn("failed to cache swap")
		}
	}
	if e.publisher != nil {
		if err := e.publisher.PublishSwap(ctx, ev); err != nil {
			log.WithError(err).Warn("failed to publish swap")
		}
	}
	if e.store != nil {
		if err := e.store.InsertSwap(ctx, ev); err != nil {
			log.WithError(err).Warn("failed to store swap")
		}
	}
}

func (e *Executor) balance(ctx context.Context, req *SwapRequest) (uint64, error) {
	acct, err := e.ledger.GetAccount(ctx, req.Signer)
	if err != nil {
		return 0, fmt.Errorf("read signer balance: %w", err)
	}
	if acct == nil {
		return 0, nil
	}
	return acct.Lamports, nil
}

// swapValueLamports is the SOL side of the swap: the input on a buy, the
// expected output on a sell.
func swapValueLamports(req *SwapRequest, built *BuildResult) uint64 {
	if req.Direction == DirectionBuy {
		return req.AmountIn
	}
	return expectedOut(built)
}

func expectedOut(built *BuildResult) uint64 {
	switch {
	case built.Quote != nil:
		return built.Quote.AmountOut
	case built.Order != nil:
		return built.Order.OutAmount
	default:
		return 0
	}
}

func newSwapEvent(req *SwapRequest, built *BuildResult, res *SwapResult) *models.SwapEvent {
	in, out := req.Mints()
	ev := &models.SwapEvent{
		Signature:   res.Signature.String(),
		Timestamp:   time.Now().UTC(),
		Route:       string(built.Route),
		Direction:   string(req.Direction),
		Signer:      req.Signer.String(),
		TokenIn:     in.String(),
		TokenOut:    out.String(),
		AmountIn:    req.AmountIn,
		ExpectedOut: res.ExpectedOut,
		Status:      string(res.Status),
		Dex:         constants.DexJupiter,
	}
	if !req.Pool.IsZero() {
		ev.Pool = req.Pool.String()
	}
	if built.Quote != nil {
		ev.MinAmountOut = built.Quote.MinAmountOut
	}
	if built.Route == RouteDirect {
		ev.Dex = constants.DexRaydiumCPMM
	}
	return ev
}
