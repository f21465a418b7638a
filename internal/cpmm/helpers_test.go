package cpmm

import (
	"context"
	"encoding/binary"

	"github.com/gagliardetto/solana-go"

	"github.com/aman-zulfiqar/cpmm-direct-swap/internal/ledger"
)

func newKey() solana.PublicKey {
	return solana.NewWallet().PublicKey()
}

func randomPoolState() *PoolState {
	return &PoolState{
		AmmConfig:      newKey(),
		PoolCreator:    newKey(),
		Token0Vault:    newKey(),
		Token1Vault:    newKey(),
		LpMint:         newKey(),
		Token0Mint:     WrappedSOLMint,
		Token1Mint:     newKey(),
		Token0Program:  TokenProgramID,
		Token1Program:  Token2022ProgramID,
		ObservationKey: newKey(),
	}
}

func tokenAccountData(amount uint64) []byte {
	data := make([]byte, 165)
	binary.LittleEndian.PutUint64(data[TokenAccountAmountOffset:], amount)
	return data
}

// fakeLedger serves accounts from memory
type fakeLedger struct {
	ledger.Client
	accounts map[solana.PublicKey]*ledger.Account
	err      error
}

func (f *fakeLedger) GetAccount(_ context.Context, address solana.PublicKey) (*ledger.Account, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.accounts[address], nil
}
