package cpmm

import (
	"github.com/gagliardetto/solana-go"
)

// PoolState is the decoded prefix of a CP-Swap pool account.
// It is read per request and never cached.
type PoolState struct {
	AmmConfig      solana.PublicKey
	PoolCreator    solana.PublicKey
	Token0Vault    solana.PublicKey
	Token1Vault    solana.PublicKey
	LpMint         solana.PublicKey
	Token0Mint     solana.PublicKey
	Token1Mint     solana.PublicKey
	Token0Program  solana.PublicKey
	Token1Program  solana.PublicKey
	ObservationKey solana.PublicKey
}

// Leg is one side of the pool as seen by a swap
type Leg struct {
	Mint    solana.PublicKey
	Vault   solana.PublicKey
	Program solana.PublicKey
}

// Legs splits the pool into (input, output) for the given input mint.
// Token0 is matched first.
func (p *PoolState) Legs(inputMint solana.PublicKey) (in Leg, out Leg, err error) {
	token0 := Leg{Mint: p.Token0Mint, Vault: p.Token0Vault, Program: p.Token0Program}
	token1 := Leg{Mint: p.Token1Mint, Vault: p.Token1Vault, Program: p.Token1Program}

	switch {
	case inputMint.Equals(p.Token0Mint):
		return token0, token1, nil
	case inputMint.Equals(p.Token1Mint):
		return token1, token0, nil
	default:
		return Leg{}, Leg{}, ErrInvalidPool
	}
}

// HasMint reports whether mint is one of the two pool mints
func (p *PoolState) HasMint(mint solana.PublicKey) bool {
	return mint.Equals(p.Token0Mint) || mint.Equals(p.Token1Mint)
}

// Reserves are the vault balances of a pool at read time
type Reserves struct {
	Token0 uint64
	Token1 uint64
}

// Ordered returns (reserveIn, reserveOut) for a swap whose input is token0
// when zeroForOne is true.
func (r Reserves) Ordered(zeroForOne bool) (reserveIn, reserveOut uint64) {
	if zeroForOne {
		return r.Token0, r.Token1
	}
	return r.Token1, r.Token0
}

// SwapQuote contains quote details for a direct pool swap
type SwapQuote struct {
	Pool           solana.PublicKey
	InputMint      solana.PublicKey
	OutputMint     solana.PublicKey
	AmountIn       uint64 // raw input amount
	AmountOut      uint64 // expected output
	MinAmountOut   uint64 // minimum output after slippage
	ReserveIn      uint64
	ReserveOut     uint64
	PriceImpactBps uint64
}
