package cpmm

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/aman-zulfiqar/cpmm-direct-swap/internal/ledger"
)

// FetchPoolState reads and decodes a pool account
func FetchPoolState(
	ctx context.Context,
	client ledger.Client,
	pool solana.PublicKey,
	programID solana.PublicKey,
	opts DecodeOptions,
) (*PoolState, error) {

	acct, err := client.GetAccount(ctx, pool)
	if err != nil {
		return nil, fmt.Errorf("fetch pool %s: %w", pool, err)
	}
	if acct == nil {
		return nil, fmt.Errorf("pool %s: %w", pool, ErrNotFound)
	}

	return DecodePoolState(acct, programID, opts)
}

// FetchReserves reads both vault balances. A missing vault means the pool
// state was decoded against the wrong layout and is reported as ErrNotFound.
func FetchReserves(ctx context.Context, client ledger.Client, state *PoolState) (Reserves, error) {
	reserve0, err := fetchVaultBalance(ctx, client, state.Token0Vault)
	if err != nil {
		return Reserves{}, fmt.Errorf("failed to fetch vault 0 balance: %w", err)
	}

	reserve1, err := fetchVaultBalance(ctx, client, state.Token1Vault)
	if err != nil {
		return Reserves{}, fmt.Errorf("failed to fetch vault 1 balance: %w", err)
	}

	return Reserves{Token0: reserve0, Token1: reserve1}, nil
}

func fetchVaultBalance(ctx context.Context, client ledger.Client, vault solana.PublicKey) (uint64, error) {
	acct, err := client.GetAccount(ctx, vault)
	if err != nil {
		return 0, err
	}
	if acct == nil {
		return 0, fmt.Errorf("vault %s: %w", vault, ErrNotFound)
	}
	return DecodeTokenAmount(acct.Data)
}
