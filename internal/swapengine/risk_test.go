package swapengine

import (
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
)

func riskRequest(dir Direction, mint solana.PublicKey) *SwapRequest {
	return &SwapRequest{TokenMint: mint, Direction: dir, AmountIn: 1, Signer: newKey()}
}

func TestRiskManager_CheckSwap(t *testing.T) {
	mint := newKey()

	tests := []struct {
		name    string
		cfg     RiskConfig
		in      RiskInput
		allowed bool
	}{
		{
			name:    "within limits",
			cfg:     DefaultRiskConfig(),
			in:      RiskInput{Request: riskRequest(DirectionBuy, mint), ValueLamports: 500_000_000, PriceImpactBps: 19, BalanceLamports: 2_000_000_000},
			allowed: true,
		},
		{
			name: "exceeds per swap max",
			cfg:  DefaultRiskConfig(),
			in:   RiskInput{Request: riskRequest(DirectionBuy, mint), ValueLamports: 1_000_000_001, BalanceLamports: 5_000_000_000},
		},
		{
			name: "price impact too high",
			cfg:  DefaultRiskConfig(),
			in:   RiskInput{Request: riskRequest(DirectionSell, mint), ValueLamports: 1, PriceImpactBps: 501},
		},
		{
			name:    "price impact check disabled",
			cfg:     RiskConfig{},
			in:      RiskInput{Request: riskRequest(DirectionSell, mint), ValueLamports: 1, PriceImpactBps: 9_000},
			allowed: true,
		},
		{
			name: "token not whitelisted",
			cfg:  RiskConfig{AllowedTokens: []solana.PublicKey{newKey()}},
			in:   RiskInput{Request: riskRequest(DirectionSell, mint), ValueLamports: 1},
		},
		{
			name:    "token whitelisted",
			cfg:     RiskConfig{AllowedTokens: []solana.PublicKey{mint}},
			in:      RiskInput{Request: riskRequest(DirectionSell, mint), ValueLamports: 1},
			allowed: true,
		},
		{
			name: "buy would drain reserve",
			cfg:  DefaultRiskConfig(),
			in:   RiskInput{Request: riskRequest(DirectionBuy, mint), ValueLamports: 100_000_000, BalanceLamports: 120_000_000},
		},
		{
			name:    "sell ignores balance reserve",
			cfg:     DefaultRiskConfig(),
			in:      RiskInput{Request: riskRequest(DirectionSell, mint), ValueLamports: 100_000_000, BalanceLamports: 0},
			allowed: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := NewRiskManager(tt.cfg).CheckSwap(tt.in)
			assert.Equal(t, tt.allowed, res.Allowed, res.Reason)
			if !tt.allowed {
				assert.NotEmpty(t, res.Reason)
			}
		})
	}
}

func TestRiskManager_DailyLimit(t *testing.T) {
	rm := NewRiskManager(RiskConfig{DailyLimitLamports: 1_000})
	req := riskRequest(DirectionSell, newKey())

	assert.True(t, rm.CheckSwap(RiskInput{Request: req, ValueLamports: 600}).Allowed)
	rm.RecordSwap(600)

	res := rm.CheckSwap(RiskInput{Request: req, ValueLamports: 500})
	assert.False(t, res.Allowed)
	assert.True(t, res.ExceedsDailyLimit)
	assert.Equal(t, uint64(600), res.DailyUsedLamports)
	assert.Equal(t, uint64(400), res.DailyRemainLamports)

	st := rm.Status()
	assert.Equal(t, uint64(600), st.DailyUsedLamports)
	assert.Equal(t, uint64(400), st.DailyRemainLamports)
}

func TestDailyLimitTracker_RollingWindow(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tracker := NewDailyLimitTracker()
	tracker.now = func() time.Time { return now }

	tracker.RecordSwap(100)
	now = now.Add(12 * time.Hour)
	tracker.RecordSwap(50)
	assert.Equal(t, uint64(150), tracker.GetDailyUsage())

	now = now.Add(13 * time.Hour)
	assert.Equal(t, uint64(50), tracker.GetDailyUsage())

	tracker.Reset()
	assert.Zero(t, tracker.GetDailyUsage())
}
