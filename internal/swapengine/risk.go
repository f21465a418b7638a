package swapengine

import (
	"fmt"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
)

// RiskConfig defines risk management parameters. Zero disables a limit.
type RiskConfig struct {
	// Per-transaction limits
	MaxSwapLamports uint64

	// Daily limits (rolling 24h window)
	DailyLimitLamports uint64

	// Price impact limits
	MaxPriceImpactBps uint64 // e.g. 500 = 5%

	// Token whitelist (empty = allow all)
	AllowedTokens []solana.PublicKey

	// Min native balance to keep after a buy, for fees and rent
	MinBalanceLamports uint64
}

// DefaultRiskConfig returns conservative risk settings
func DefaultRiskConfig() RiskConfig {
	return RiskConfig{
		MaxSwapLamports:    1_000_000_000,  // 1 SOL per transaction
		DailyLimitLamports: 10_000_000_000, // 10 SOL per day
		MaxPriceImpactBps:  500,            // 5% max price impact
		MinBalanceLamports: 50_000_000,     // keep 0.05 SOL for fees
	}
}

// RiskInput is what the risk manager needs to know about one swap
type RiskInput struct {
	Request         *SwapRequest
	ValueLamports   uint64 // SOL side of the swap
	PriceImpactBps  uint64 // 0 when unknown (aggregator route)
	BalanceLamports uint64
}

// RiskManager enforces risk limits. Safe for concurrent use.
type RiskManager struct {
	config       RiskConfig
	dailyTracker *DailyLimitTracker
}

// NewRiskManager creates a risk manager with the given config
func NewRiskManager(config RiskConfig) *RiskManager {
	return &RiskManager{
		config:       config,
		dailyTracker: NewDailyLimitTracker(),
	}
}

// CheckSwap validates a swap against all risk rules
func (rm *RiskManager) CheckSwap(in RiskInput) *RiskCheckResult {
	cfg := rm.config
	result := &RiskCheckResult{
		Allowed:            true,
		MaxSwapLamports:    cfg.MaxSwapLamports,
		DailyLimitLamports: cfg.DailyLimitLamports,
		MaxPriceImpactBps:  cfg.MaxPriceImpactBps,
		PriceImpactBps:     in.PriceImpactBps,
	}

	// 1. Check per-transaction limit
	if cfg.MaxSwapLamports > 0 && in.ValueLamports > cfg.MaxSwapLamports {
		result.Allowed = false
		result.ExceedsMaxSwapAmount = true
		result.Reason = fmt.Sprintf("swap value %d lamports exceeds max %d per transaction",
			in.ValueLamports, cfg.MaxSwapLamports)
		return result
	}

	// 2. Check daily limit
	dailyUsed := rm.dailyTracker.GetDailyUsage()
	result.DailyUsedLamports = dailyUsed
	if cfg.DailyLimitLamports > dailyUsed {
		result.DailyRemainLamports = cfg.DailyLimitLamports - dailyUsed
	}

	if cfg.DailyLimitLamports > 0 && dailyUsed+in.ValueLamports > cfg.DailyLimitLamports {
		result.Allowed = false
		result.ExceedsDailyLimit = true
		result.Reason = fmt.Sprintf("daily limit exceeded: used %d + %d > %d lamports",
			dailyUsed, in.ValueLamports, cfg.DailyLimitLamports)
		return result
	}

	// 3. Check token whitelist
	if len(cfg.AllowedTokens) > 0 && !rm.isTokenAllowed(in.Request.TokenMint) {
		result.Allowed = false
		result.Reason = fmt.Sprintf("token not whitelisted: %s", in.Request.TokenMint)
		return result
	}

	// 4. Check price impact
	if cfg.MaxPriceImpactBps > 0 && in.PriceImpactBps > cfg.MaxPriceImpactBps {
		result.Allowed = false
		result.PriceImpactTooHigh = true
		result.Reason = fmt.Sprintf("price impact %d bps exceeds max %d bps",
			in.PriceImpactBps, cfg.MaxPriceImpactBps)
		return result
	}

	// 5. Check minimum balance (ensure enough for fees)
	if in.Request.Direction == DirectionBuy && cfg.MinBalanceLamports > 0 {
		if in.BalanceLamports < in.ValueLamports || in.BalanceLamports-in.ValueLamports < cfg.MinBalanceLamports {
			result.Allowed = false
			result.Reason = fmt.Sprintf("insufficient balance: %d lamports, swap needs %d plus %d reserve",
				in.BalanceLamports, in.ValueLamports, cfg.MinBalanceLamports)
			return result
		}
	}

	return result
}

// RecordSwap records a successful swap for daily limit tracking
func (rm *RiskManager) RecordSwap(valueLamports uint64) {
	rm.dailyTracker.RecordSwap(valueLamports)
}

// Status returns current limits and usage
func (rm *RiskManager) Status() RiskStatus {
	used := rm.dailyTracker.GetDailyUsage()
	st := RiskStatus{
		MaxSwapLamports:    rm.config.MaxSwapLamports,
		DailyLimitLamports: rm.config.DailyLimitLamports,
		DailyUsedLamports:  used,
		MaxPriceImpactBps:  rm.config.MaxPriceImpactBps,
	}
	if rm.config.DailyLimitLamports > used {
		st.DailyRemainLamports = rm.config.DailyLimitLamports - used
	}
	return st
}

// isTokenAllowed checks if a token is in the whitelist
func (rm *RiskManager) isTokenAllowed(mint solana.PublicKey) bool {
	for _, allowed := range rm.config.AllowedTokens {
		if allowed.Equals(mint) {
			return true
		}
	}
	return false
}

// RiskStatus is a snapshot of limits and usage
type RiskStatus struct {
	MaxSwapLamports     uint64 `json:"max_swap_lamports"`
	DailyLimitLamports  uint64 `json:"daily_limit_lamports"`
	DailyUsedLamports   uint64 `json:"daily_used_lamports"`
	DailyRemainLamports uint64 `json:"daily_remaining_lamports"`
	MaxPriceImpactBps   uint64 `json:"max_price_impact_bps"`
}

// DailyLimitTracker tracks rolling 24-hour usage
type DailyLimitTracker struct {
	mu    sync.Mutex
	swaps []swapRecord
	now   func() time.Time
}

type swapRecord struct {
	timestamp time.Time
	lamports  uint64
}

// NewDailyLimitTracker creates a new tracker
func NewDailyLimitTracker() *DailyLimitTracker {
	return &DailyLimitTracker{
		swaps: make([]swapRecord, 0),
		now:   time.Now,
	}
}

// RecordSwap adds a swap to the tracker
func (t *DailyLimitTracker) RecordSwap(lamports uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.swaps = append(t.swaps, swapRecord{
		timestamp: t.now(),
		lamports:  lamports,
	})
	t.cleanup()
}

// GetDailyUsage calculates total usage in the last 24 hours
func (t *DailyLimitTracker) GetDailyUsage() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.cleanup()

	var total uint64
	for _, swap := range t.swaps {
		total += swap.lamports
	}
	return total
}

// cleanup removes swaps older than 24 hours. Caller holds mu.
func (t *DailyLimitTracker) cleanup() {
	cutoff := t.now().Add(-24 * time.Hour)

	newSwaps := make([]swapRecord, 0, len(t.swaps))
	for _, swap := range t.swaps {
		if swap.timestamp.After(cutoff) {
			newSwaps = append(newSwaps, swap)
		}
	}

	t.swaps = newSwaps
}

// Reset clears all tracked swaps
func (t *DailyLimitTracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.swaps = make([]swapRecord, 0)
}
