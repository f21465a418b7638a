package cpmm

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// Authority derives the program authority that controls pool vaults
func Authority(programID solana.PublicKey) (solana.PublicKey, error) {
	pda, _, err := solana.FindProgramAddress([][]byte{AuthoritySeed}, programID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("derive authority: %w", err)
	}
	return pda, nil
}

// AssociatedTokenAddress derives the associated token account of owner for
// mint under the given token program (legacy SPL Token or Token-2022).
func AssociatedTokenAddress(owner, mint, tokenProgram solana.PublicKey) (solana.PublicKey, error) {
	seeds := [][]byte{
		owner[:],
		tokenProgram[:],
		mint[:],
	}

	pda, _, err := solana.FindProgramAddress(seeds, solana.SPLAssociatedTokenAccountProgramID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("derive associated token account: %w", err)
	}
	return pda, nil
}
