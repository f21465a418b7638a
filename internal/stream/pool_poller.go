package stream

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/cpmm-direct-swap/internal/constants"
	"github.com/aman-zulfiqar/cpmm-direct-swap/internal/cpmm"
	"github.com/aman-zulfiqar/cpmm-direct-swap/internal/models"
	"github.com/aman-zulfiqar/cpmm-direct-swap/internal/rpc"
	"github.com/aman-zulfiqar/cpmm-direct-swap/internal/storage"
)

// PoolPoller watches one CP-Swap pool for swaps by polling its signatures
// and reading vault balance changes out of each transaction.
type PoolPoller struct {
	client       *rpc.Client
	pool         solana.PublicKey
	state        *cpmm.PoolState
	pollInterval time.Duration
	batchSize    int
	maxPages     int
	fetchDelay   time.Duration
	commitment   string
	logger       *logrus.Logger

	mu            sync.RWMutex
	lastSignature string
	running       bool
}

// PoolPollerConfig holds configuration for the pool poller
type PoolPollerConfig struct {
	RPCClient    *rpc.Client
	Pool         solana.PublicKey
	State        *cpmm.PoolState // decoded pool; vaults and mints are taken from it
	PollInterval time.Duration   // default 2s
	BatchSize    int             // default constants.SignatureBatchSize
	MaxPages     int             // signature pages read per poll, default constants.MaxSignaturePages
	FetchDelay   time.Duration   // pause between getTransaction calls, default constants.DelayBetweenTxFetch
	Commitment   string          // default "confirmed"
	Logger       *logrus.Logger
}

// NewPoolPoller creates a new pool poller
func NewPoolPoller(cfg PoolPollerConfig) (*PoolPoller, error) {
	if cfg.RPCClient == nil {
		return nil, fmt.Errorf("stream: rpc client is required")
	}
	if cfg.State == nil {
		return nil, fmt.Errorf("stream: pool state is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = constants.SignatureBatchSize
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = constants.MaxSignaturePages
	}
	if cfg.FetchDelay < 0 {
		cfg.FetchDelay = 0
	} else if cfg.FetchDelay == 0 {
		cfg.FetchDelay = constants.DelayBetweenTxFetch
	}
	if cfg.Commitment == "" {
		cfg.Commitment = "confirmed"
	}

	return &PoolPoller{
		client:       cfg.RPCClient,
		pool:         cfg.Pool,
		state:        cfg.State,
		pollInterval: cfg.PollInterval,
		batchSize:    cfg.BatchSize,
		maxPages:     cfg.MaxPages,
		fetchDelay:   cfg.FetchDelay,
		commitment:   cfg.Commitment,
		logger:       cfg.Logger,
	}, nil
}

// Start polls until ctx is done, calling handler for each swap found.
// The first round only records the newest signature, so history already
// on chain is not replayed.
func (p *PoolPoller) Start(ctx context.Context, handler storage.SwapHandler) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("poller already running")
	}
	p.running = true
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.running = false
		p.mu.Unlock()
	}()

	p.logger.WithFields(logrus.Fields{
		"pool":     p.pool.String(),
		"interval": p.pollInterval,
	}).Info("starting pool polling")

	if err := p.seed(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-ticker.C:
			if err := p.Poll(ctx, handler); err != nil {
				p.logger.WithError(err).Error("poll error")
			}
		}
	}
}

// seed moves the cursor to the newest signature without emitting
func (p *PoolPoller) seed(ctx context.Context) error {
	res, err := p.client.GetSignaturesForAddress(ctx, p.pool.String(), rpc.SignaturesOptions{
		Limit:      1,
		Commitment: p.commitment,
	})
	if err != nil {
		return fmt.Errorf("failed to get signatures: %w", err)
	}
	if len(res.Result) > 0 {
		p.mu.Lock()
		p.lastSignature = res.Result[0].Signature
		p.mu.Unlock()
	}
	return nil
}

// Poll fetches signatures newer than the cursor and reports the swaps
// among them, oldest first. The cursor only moves past signatures that were
// handled, so a failed fetch is retried on the next poll.
func (p *PoolPoller) Poll(ctx context.Context, handler storage.SwapHandler) error {
	p.mu.RLock()
	lastSig := p.lastSignature
	p.mu.RUnlock()

	sigs, err := p.pendingSignatures(ctx, lastSig)
	if err != nil {
		return err
	}

	if len(sigs) == 0 {
		p.logger.Debug("no new transactions")
		return nil
	}

	p.logger.WithField("count", len(sigs)).Debug("found new signatures")

	fetched := 0
	for i := len(sigs) - 1; i >= 0; i-- {
		sig := sigs[i]
		if sig.Err != nil {
			p.advance(sig.Signature)
			continue
		}

		if fetched > 0 && p.fetchDelay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(p.fetchDelay):
			}
		}
		fetched++

		tx, err := p.client.GetTransaction(ctx, sig.Signature, p.commitment)
		if err != nil {
			return fmt.Errorf("failed to fetch transaction %s: %w", sig.Signature, err)
		}
		if tx.Result == nil {
			return fmt.Errorf("transaction %s not available yet", sig.Signature)
		}

		swap, err := p.ParseSwap(sig.Signature, tx.Result)
		if err != nil {
			p.logger.WithError(err).WithField("signature", sig.Signature).Warn("failed to parse transaction")
		} else if swap != nil {
			p.logger.WithFields(logrus.Fields{
				"pair":       swap.Pair(),
				"amount_in":  swap.AmountIn,
				"amount_out": swap.ExpectedOut,
			}).Debug("observed swap")
			handler(swap)
		}
		p.advance(sig.Signature)
	}

	return nil
}

// pendingSignatures pages back from the newest signature to until,
// returning newest first. Without a cursor only the newest page is read.
func (p *PoolPoller) pendingSignatures(ctx context.Context, until string) ([]rpc.SignatureInfo, error) {
	var (
		sigs   []rpc.SignatureInfo
		before string
	)
	for page := 0; page < p.maxPages; page++ {
		res, err := p.client.GetSignaturesForAddress(ctx, p.pool.String(), rpc.SignaturesOptions{
			Limit:      p.batchSize,
			Before:     before,
			Until:      until,
			Commitment: p.commitment,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to get signatures: %w", err)
		}
		sigs = append(sigs, res.Result...)

		if until == "" || len(res.Result) < p.batchSize {
			return sigs, nil
		}
		before = res.Result[len(res.Result)-1].Signature
	}

	p.logger.WithFields(logrus.Fields{
		"pool":  p.pool.String(),
		"pages": p.maxPages,
	}).Warn("signature backlog exceeds page limit, older signatures skipped")
	return sigs, nil
}

func (p *PoolPoller) advance(signature string) {
	p.mu.Lock()
	p.lastSignature = signature
	p.mu.Unlock()
}

// ParseSwap reads a swap out of the pool's vault balance changes. One
// vault must grow and the other shrink; anything else (deposits,
// withdrawals, unrelated mentions) yields nil.
func (p *PoolPoller) ParseSwap(signature string, res *rpc.TransactionResult) (*models.SwapEvent, error) {
	if res.Meta == nil || res.Transaction == nil {
		return nil, fmt.Errorf("empty transaction result")
	}
	if res.Meta.Err != nil {
		return nil, nil
	}

	keys := res.Transaction.Message.AccountKeys
	pre0, post0, err := vaultBalances(keys, res.Meta, p.state.Token0Vault)
	if err != nil {
		return nil, err
	}
	pre1, post1, err := vaultBalances(keys, res.Meta, p.state.Token1Vault)
	if err != nil {
		return nil, err
	}

	var inMint, outMint solana.PublicKey
	var amountIn, amountOut uint64
	switch {
	case post0 > pre0 && post1 < pre1:
		inMint, outMint = p.state.Token0Mint, p.state.Token1Mint
		amountIn, amountOut = post0-pre0, pre1-post1
	case post1 > pre1 && post0 < pre0:
		inMint, outMint = p.state.Token1Mint, p.state.Token0Mint
		amountIn, amountOut = post1-pre1, pre0-post0
	default:
		return nil, nil
	}

	ev := &models.SwapEvent{
		Signature:   signature,
		Timestamp:   time.Now().UTC(),
		Route:       constants.RouteOnchain,
		Pool:        p.pool.String(),
		TokenIn:     inMint.String(),
		TokenOut:    outMint.String(),
		AmountIn:    amountIn,
		ExpectedOut: amountOut,
		Status:      p.commitment,
		Dex:         constants.DexRaydiumCPMM,
	}
	if res.BlockTime != nil {
		ev.Timestamp = time.Unix(*res.BlockTime, 0).UTC()
	}
	switch {
	case inMint.Equals(cpmm.WrappedSOLMint):
		ev.Direction = "buy"
	case outMint.Equals(cpmm.WrappedSOLMint):
		ev.Direction = "sell"
	}
	for _, k := range keys {
		if k.Signer {
			ev.Signer = k.Pubkey
			break
		}
	}
	return ev, nil
}

// vaultBalances returns the pre and post balance of vault. Both are 0
// when the transaction did not touch it.
func vaultBalances(keys []rpc.AccountKey, meta *rpc.TransactionMeta, vault solana.PublicKey) (pre, post uint64, err error) {
	idx := -1
	for i, k := range keys {
		if k.Pubkey == vault.String() {
			idx = i
			break
		}
	}
	if idx < 0 {
		return 0, 0, nil
	}

	if pre, err = balanceAt(meta.PreTokenBalances, idx); err != nil {
		return 0, 0, err
	}
	if post, err = balanceAt(meta.PostTokenBalances, idx); err != nil {
		return 0, 0, err
	}
	return pre, post, nil
}

func balanceAt(balances []rpc.TokenBalance, idx int) (uint64, error) {
	for _, b := range balances {
		if b.AccountIndex != idx {
			continue
		}
		v, err := strconv.ParseUint(b.UITokenAmount.Amount, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid token amount %q: %w", b.UITokenAmount.Amount, err)
		}
		return v, nil
	}
	return 0, nil
}
