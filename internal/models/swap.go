package models

import (
	"fmt"
	"time"
)

// SwapEvent is one executed swap as published to Redis and stored in ClickHouse
type SwapEvent struct {
	Signature    string    `json:"signature"`
	Timestamp    time.Time `json:"timestamp"`
	Route        string    `json:"route"`     // direct | aggregator | onchain
	Direction    string    `json:"direction"` // buy | sell
	Pool         string    `json:"pool,omitempty"`
	Signer       string    `json:"signer"`
	TokenIn      string    `json:"token_in"`  // mint
	TokenOut     string    `json:"token_out"` // mint
	AmountIn     uint64    `json:"amount_in"`
	ExpectedOut  uint64    `json:"expected_out"`
	MinAmountOut uint64    `json:"min_amount_out"`
	Status       string    `json:"status"`
	Dex          string    `json:"dex"` // e.g., "RaydiumCPMM", "Jupiter"
}

// Pair is the in-out mint pair used for per-pair channels
func (e *SwapEvent) Pair() string {
	return fmt.Sprintf("%s-%s", e.TokenIn, e.TokenOut)
}
