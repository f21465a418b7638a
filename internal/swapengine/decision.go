package swapengine

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/aman-zulfiqar/cpmm-direct-swap/internal/cpmm"
)

// ValidateRequest checks the fields every route needs
func ValidateRequest(req *SwapRequest) error {
	if req == nil {
		return fmt.Errorf("request is nil")
	}
	if req.Signer.IsZero() {
		return fmt.Errorf("signer is required")
	}
	if req.TokenMint.IsZero() {
		return fmt.Errorf("token mint is required")
	}
	if req.TokenMint.Equals(cpmm.WrappedSOLMint) {
		return fmt.Errorf("token mint must not be wSOL")
	}
	if req.Direction != DirectionBuy && req.Direction != DirectionSell {
		return fmt.Errorf("invalid direction %q", req.Direction)
	}
	if req.AmountIn == 0 {
		return fmt.Errorf("amount must be > 0")
	}
	return nil
}

// ToRawAmount converts a human amount to atomic units. Fractional digits
// beyond decimals are rejected rather than rounded.
func ToRawAmount(amount decimal.Decimal, decimals uint8) (uint64, error) {
	if !amount.IsPositive() {
		return 0, fmt.Errorf("amount must be > 0")
	}

	raw := amount.Shift(int32(decimals))
	if !raw.Equal(raw.Truncate(0)) {
		return 0, fmt.Errorf("amount %s has more than %d decimal places", amount, decimals)
	}

	bi := raw.BigInt()
	if !bi.IsUint64() {
		return 0, fmt.Errorf("amount %s overflows u64", amount)
	}
	return bi.Uint64(), nil
}

// FromRawAmount converts atomic units to a human amount
func FromRawAmount(raw uint64, decimals uint8) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(raw), -int32(decimals))
}
