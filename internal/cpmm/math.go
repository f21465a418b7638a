package cpmm

import (
	"fmt"

	"cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"
)

var (
	feeNumerator   = math.NewInt(FeeNumerator)
	feeDenominator = math.NewInt(FeeDenominator)
	bpsDenominator = math.NewInt(BpsDenominator)
)

// ComputeOutput returns the swap output for amountIn against the given
// reserves, with the 25 bps fee taken from the input:
//
//	amountInWithFee = amountIn * 9975 / 10000
//	amountOut       = reserveOut * amountInWithFee / (reserveIn * 10000 + amountInWithFee)
//
// All arithmetic is arbitrary precision and truncating.
func ComputeOutput(amountIn, reserveIn, reserveOut uint64) (uint64, error) {
	if reserveIn == 0 || reserveOut == 0 {
		return 0, ErrIlliquidPool
	}

	in := math.NewIntFromUint64(amountIn)
	rIn := math.NewIntFromUint64(reserveIn)
	rOut := math.NewIntFromUint64(reserveOut)

	amountInWithFee := in.Mul(feeNumerator).Quo(feeDenominator)

	numerator := rOut.Mul(amountInWithFee)
	denominator := rIn.Mul(feeDenominator).Add(amountInWithFee)

	out := numerator.Quo(denominator)
	if !out.IsUint64() {
		return 0, fmt.Errorf("output amount overflow: %s", out)
	}
	return out.Uint64(), nil
}

// DefaultMinAmountOut applies the default 1% slippage tolerance
func DefaultMinAmountOut(amountOut uint64) uint64 {
	return ApplySlippage(amountOut, DefaultSlippageBps)
}

// ApplySlippage calculates minimum output with slippage tolerance
// slippageBps: basis points (e.g., 100 = 1%, 50 = 0.5%)
func ApplySlippage(amountOut uint64, slippageBps uint64) uint64 {
	if slippageBps >= BpsDenominator {
		return 0
	}

	factor := math.NewIntFromUint64(BpsDenominator - slippageBps)
	return math.NewIntFromUint64(amountOut).Mul(factor).Quo(bpsDenominator).Uint64()
}

// PriceImpactBps is the share of the input reserve consumed by the swap,
// amountIn / (reserveIn + amountIn), in basis points.
func PriceImpactBps(amountIn, reserveIn uint64) uint64 {
	if amountIn == 0 {
		return 0
	}

	in := math.NewIntFromUint64(amountIn)
	total := math.NewIntFromUint64(reserveIn).Add(in)
	return in.Mul(bpsDenominator).Quo(total).Uint64()
}

// ValidatePriceImpact checks if price impact exceeds threshold.
// A zero threshold disables the check.
func ValidatePriceImpact(impactBps, maxImpactBps uint64) error {
	if maxImpactBps == 0 || impactBps <= maxImpactBps {
		return nil
	}
	return fmt.Errorf("price impact %d bps exceeds max %d bps", impactBps, maxImpactBps)
}

// Quote computes a SwapQuote for a pool whose legs and reserves are known.
// minAmountOut overrides the default slippage when non-nil.
func Quote(state *PoolState, reserves Reserves, inputMint solana.PublicKey, amountIn uint64, minAmountOut *uint64) (*SwapQuote, error) {
	in, out, err := state.Legs(inputMint)
	if err != nil {
		return nil, err
	}

	reserveIn, reserveOut := reserves.Ordered(in.Mint.Equals(state.Token0Mint))

	amountOut, err := ComputeOutput(amountIn, reserveIn, reserveOut)
	if err != nil {
		return nil, err
	}

	minOut := DefaultMinAmountOut(amountOut)
	if minAmountOut != nil {
		minOut = *minAmountOut
	}

	return &SwapQuote{
		InputMint:      in.Mint,
		OutputMint:     out.Mint,
		AmountIn:       amountIn,
		AmountOut:      amountOut,
		MinAmountOut:   minOut,
		ReserveIn:      reserveIn,
		ReserveOut:     reserveOut,
		PriceImpactBps: PriceImpactBps(amountIn, reserveIn),
	}, nil
}
