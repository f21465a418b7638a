package swapengine

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/cpmm-direct-swap/internal/cpmm"
	"github.com/aman-zulfiqar/cpmm-direct-swap/internal/ledger"
)

// AssemblerConfig configures the direct-swap transaction assembler
type AssemblerConfig struct {
	Ledger    ledger.Client
	ProgramID solana.PublicKey // zero value means the mainnet CP-Swap program
	Decode    cpmm.DecodeOptions
	Resolver  TokenAccountResolver // nil resolves ATAs through Ledger
	Logger    *logrus.Logger
}

// Assembler turns a SwapRequest into one unsigned transaction against a
// CP-Swap pool. It holds no per-request state.
type Assembler struct {
	ledger    ledger.Client
	programID solana.PublicKey
	decode    cpmm.DecodeOptions
	resolver  TokenAccountResolver
	logger    *logrus.Logger
}

// NewAssembler creates an assembler reading pools through cfg.Ledger
func NewAssembler(cfg AssemblerConfig) (*Assembler, error) {
	if cfg.Ledger == nil {
		return nil, fmt.Errorf("assembler: ledger is required")
	}
	if cfg.ProgramID.IsZero() {
		cfg.ProgramID = cpmm.ProgramID
	}
	if cfg.Resolver == nil {
		cfg.Resolver = NewDefaultTokenAccountResolver(cfg.Ledger)
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}

	return &Assembler{
		ledger:    cfg.Ledger,
		programID: cfg.ProgramID,
		decode:    cfg.Decode,
		resolver:  cfg.Resolver,
		logger:    cfg.Logger,
	}, nil
}

// Quote reads the pool and its reserves and prices the request without
// building anything.
func (a *Assembler) Quote(ctx context.Context, req *SwapRequest) (*cpmm.PoolState, *cpmm.SwapQuote, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, nil, err
	}

	state, err := cpmm.FetchPoolState(ctx, a.ledger, req.Pool, a.programID, a.decode)
	if err != nil {
		return nil, nil, err
	}

	inputMint, outputMint := req.Mints()
	if !state.HasMint(inputMint) || !state.HasMint(outputMint) {
		return nil, nil, fmt.Errorf("pool %s does not pair %s with %s: %w",
			req.Pool, inputMint, outputMint, cpmm.ErrInvalidPool)
	}

	reserves, err := cpmm.FetchReserves(ctx, a.ledger, state)
	if err != nil {
		return nil, nil, err
	}

	quote, err := cpmm.Quote(state, reserves, inputMint, req.AmountIn, req.MinAmountOut)
	if err != nil {
		return nil, nil, fmt.Errorf("quote pool %s: %w", req.Pool, err)
	}
	quote.Pool = req.Pool

	return state, quote, nil
}

// Build assembles the direct swap transaction:
//
//  1. wSOL input: create input ATA if absent
//  2. wSOL input: transfer AmountIn lamports, SyncNative
//  3. create output ATA if absent
//  4. swap_base_input
//  5. wSOL output: close output account to signer
//  6. wSOL input: close input account to signer
//
// compiled with a fresh blockhash and the signer as fee payer.
func (a *Assembler) Build(ctx context.Context, req *SwapRequest) (*BuildResult, error) {
	state, quote, err := a.Quote(ctx, req)
	if err != nil {
		return nil, err
	}

	inLeg, outLeg, err := state.Legs(quote.InputMint)
	if err != nil {
		return nil, err
	}

	owner := req.Signer

	inRes, err := a.resolver.Resolve(ctx, owner, inLeg.Mint, inLeg.Program)
	if err != nil {
		return nil, fmt.Errorf("resolve input token account: %w", err)
	}
	outRes, err := a.resolver.Resolve(ctx, owner, outLeg.Mint, outLeg.Program)
	if err != nil {
		return nil, fmt.Errorf("resolve output token account: %w", err)
	}

	inputIsSOL := inLeg.Mint.Equals(cpmm.WrappedSOLMint)
	outputIsSOL := outLeg.Mint.Equals(cpmm.WrappedSOLMint)

	// a token input must already hold the tokens being sold
	if !inputIsSOL && inRes.Created {
		return nil, fmt.Errorf("input token account %s: %w", inRes.Account, cpmm.ErrNotFound)
	}

	var ixs []solana.Instruction
	if inputIsSOL {
		ixs = append(ixs, inRes.PreIxs...)
		transfer, err := NewSystemTransferIx(owner, inRes.Account, req.AmountIn)
		if err != nil {
			return nil, err
		}
		sync, err := NewTokenSyncNativeIx(inRes.Account)
		if err != nil {
			return nil, err
		}
		ixs = append(ixs, transfer, sync)
	}

	ixs = append(ixs, outRes.PreIxs...)

	swapIx, err := cpmm.NewSwapBaseInput(cpmm.SwapBaseInputParams{
		ProgramID:          a.programID,
		Pool:               req.Pool,
		State:              state,
		Payer:              owner,
		InputMint:          inLeg.Mint,
		InputTokenAccount:  inRes.Account,
		OutputTokenAccount: outRes.Account,
		AmountIn:           quote.AmountIn,
		MinAmountOut:       quote.MinAmountOut,
	})
	if err != nil {
		return nil, err
	}
	ixs = append(ixs, swapIx)

	if outputIsSOL {
		closeOut, err := NewTokenCloseAccountIx(outRes.Account, owner, owner)
		if err != nil {
			return nil, err
		}
		ixs = append(ixs, closeOut)
	}
	if inputIsSOL {
		closeIn, err := NewTokenCloseAccountIx(inRes.Account, owner, owner)
		if err != nil {
			return nil, err
		}
		ixs = append(ixs, closeIn)
	}

	blockhash, err := a.ledger.LatestBlockhash(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get blockhash: %w", err)
	}

	tx, err := solana.NewTransaction(ixs, blockhash, solana.TransactionPayer(owner))
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}
	tx.Message.SetVersion(solana.MessageVersionV0)

	var created []solana.PublicKey
	for _, res := range []*ResolvedTokenAccount{inRes, outRes} {
		if res.Created {
			created = append(created, res.Account)
		}
	}

	a.logger.WithFields(logrus.Fields{
		"pool":         req.Pool.String(),
		"direction":    req.Direction,
		"amount_in":    quote.AmountIn,
		"expected_out": quote.AmountOut,
		"min_out":      quote.MinAmountOut,
		"instructions": len(ixs),
	}).Debug("direct swap assembled")

	return &BuildResult{
		Route:              RouteDirect,
		Transaction:        tx,
		Quote:              quote,
		InputTokenAccount:  inRes.Account,
		OutputTokenAccount: outRes.Account,
		CreatedAccounts:    created,
	}, nil
}
