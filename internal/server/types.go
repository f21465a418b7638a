package server

import (
	"github.com/aman-zulfiqar/cpmm-direct-swap/internal/models"
)

// ErrorResponse represents a standardized error response format
type ErrorResponse struct {
	Error   string `json:"error"`             // Human-readable error message
	Code    int    `json:"code"`              // HTTP status code
	Details any    `json:"details,omitempty"` // Additional error details (dev mode only)
}

// HealthResponse represents the health check response
type HealthResponse struct {
	OK    bool `json:"ok"`
	Redis bool `json:"redis"` // false when the swap cache is absent or unreachable
}

type SwapsRecentResponse struct {
	Items []*models.SwapEvent `json:"items"`
}

// EligibilityResponse reports whether a pool can take the direct path
type EligibilityResponse struct {
	Pool     string `json:"pool"`
	Eligible bool   `json:"eligible"`
}

// PoolQuoteResponse is a direct-route quote. Amounts are raw u64 strings.
type PoolQuoteResponse struct {
	Pool           string `json:"pool"`
	InputMint      string `json:"input_mint"`
	OutputMint     string `json:"output_mint"`
	AmountIn       string `json:"amount_in"`
	AmountOut      string `json:"amount_out"`
	MinAmountOut   string `json:"min_amount_out"`
	ReserveIn      string `json:"reserve_in"`
	ReserveOut     string `json:"reserve_out"`
	PriceImpactBps uint64 `json:"price_impact_bps"`
}

// BuildSwapRequest asks for an unsigned swap transaction
type BuildSwapRequest struct {
	Pool         string  `json:"pool"`
	TokenMint    string  `json:"token_mint"`
	Direction    string  `json:"direction"` // buy | sell
	AmountIn     string  `json:"amount_in"` // raw u64
	MinAmountOut *string `json:"min_amount_out,omitempty"`
	Signer       string  `json:"signer"`
}

// BuildSwapResponse carries the base64 transaction for the signer to sign
type BuildSwapResponse struct {
	Route           string             `json:"route"`
	Transaction     string             `json:"transaction"`
	ExpectedOut     string             `json:"expected_out,omitempty"`
	MinAmountOut    string             `json:"min_amount_out,omitempty"`
	CreatedAccounts []string           `json:"created_accounts,omitempty"`
	RequestID       string             `json:"request_id,omitempty"`
	Quote           *PoolQuoteResponse `json:"quote,omitempty"`
}

// FlagUpsertRequest represents a request to create or update a feature flag
type FlagUpsertRequest struct {
	Key   string `json:"key"`   // Flag key (must match regex pattern)
	Value bool   `json:"value"` // Flag value (true/false)
}

// FlagUpdateRequest represents a request to update an existing feature flag
type FlagUpdateRequest struct {
	Value bool `json:"value"` // New flag value
}
