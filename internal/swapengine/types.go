package swapengine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/aman-zulfiqar/cpmm-direct-swap/internal/cpmm"
	"github.com/aman-zulfiqar/cpmm-direct-swap/internal/ledger"
)

// Direction is the side of a wSOL/token swap
type Direction string

const (
	DirectionBuy  Direction = "buy"  // wSOL in, token out
	DirectionSell Direction = "sell" // token in, wSOL out
)

// ParseDirection accepts "buy" or "sell", case-insensitive
func ParseDirection(s string) (Direction, error) {
	switch d := Direction(strings.ToLower(strings.TrimSpace(s))); d {
	case DirectionBuy, DirectionSell:
		return d, nil
	default:
		return "", fmt.Errorf("invalid direction %q (want buy or sell)", s)
	}
}

// Route is the execution path chosen for a request
type Route string

const (
	RouteDirect     Route = "direct"
	RouteAggregator Route = "aggregator"
)

// SwapRequest is one swap between wSOL and TokenMint through Pool.
type SwapRequest struct {
	Pool         solana.PublicKey
	TokenMint    solana.PublicKey
	Direction    Direction
	AmountIn     uint64  // atomic units of the input mint
	MinAmountOut *uint64 // nil applies the default 1% slippage
	Signer       solana.PublicKey
}

// Mints maps the direction onto (input, output) mints
func (r *SwapRequest) Mints() (in, out solana.PublicKey) {
	if r.Direction == DirectionBuy {
		return cpmm.WrappedSOLMint, r.TokenMint
	}
	return r.TokenMint, cpmm.WrappedSOLMint
}

// Signer produces signatures for transactions whose fee payer it is
type Signer interface {
	PublicKey() solana.PublicKey
	SignTransaction(tx *solana.Transaction) error
}

// OrderRequest asks the aggregator for an executable transaction
type OrderRequest struct {
	InputMint  solana.PublicKey
	OutputMint solana.PublicKey
	Amount     uint64
	Taker      solana.PublicKey
}

// Order is an aggregator-built transaction. Error is set when the
// aggregator could not produce one.
type Order struct {
	RequestID   string
	Transaction []byte
	OutAmount   uint64
	Error       string
}

// QuoteProvider is the aggregator fallback used for pools that do not
// qualify for the direct path.
type QuoteProvider interface {
	GetOrder(ctx context.Context, req OrderRequest) (*Order, error)
}

// FlagReader reports boolean feature flags
type FlagReader interface {
	Enabled(ctx context.Context, key string, def bool) bool
}

// BuildResult is an unsigned swap transaction plus what went into it
type BuildResult struct {
	Route       Route
	Transaction *solana.Transaction

	// Direct route only
	Quote              *cpmm.SwapQuote
	InputTokenAccount  solana.PublicKey
	OutputTokenAccount solana.PublicKey
	CreatedAccounts    []solana.PublicKey

	// Aggregator route only
	Order *Order
}

// SwapResult is the final result returned to the caller
type SwapResult struct {
	ExecutionID string
	Route       Route
	Signature   solana.Signature
	Status      ledger.Status
	Success     bool
	Error       string

	ExpectedOut uint64
	Quote       *cpmm.SwapQuote

	Duration       time.Duration
	ConfirmationMS int64
}

// RiskCheckResult contains risk validation outcome
type RiskCheckResult struct {
	Allowed bool
	Reason  string

	ExceedsMaxSwapAmount bool
	MaxSwapLamports      uint64

	ExceedsDailyLimit   bool
	DailyLimitLamports  uint64
	DailyUsedLamports   uint64
	DailyRemainLamports uint64

	PriceImpactTooHigh bool
	MaxPriceImpactBps  uint64
	PriceImpactBps     uint64
}
