package swapengine

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/programs/token"
)

// NewCreateAssociatedTokenAccountIx builds an instruction to create an ATA
// under tokenProgram. The SDK builder only knows the legacy token program,
// so the account list is laid out here.
// Account order (ATA program):
// 0. payer (signer, writable)
// 1. ata (writable)
// 2. owner (read-only)
// 3. mint (read-only)
// 4. system_program
// 5. token_program
// 6. rent_sysvar
func NewCreateAssociatedTokenAccountIx(
	payer solana.PublicKey,
	ata solana.PublicKey,
	owner solana.PublicKey,
	mint solana.PublicKey,
	tokenProgram solana.PublicKey,
) solana.Instruction {
	accounts := []*solana.AccountMeta{
		{PublicKey: payer, IsSigner: true, IsWritable: true},
		{PublicKey: ata, IsSigner: false, IsWritable: true},
		{PublicKey: owner, IsSigner: false, IsWritable: false},
		{PublicKey: mint, IsSigner: false, IsWritable: false},
		{PublicKey: solana.SystemProgramID, IsSigner: false, IsWritable: false},
		{PublicKey: tokenProgram, IsSigner: false, IsWritable: false},
		{PublicKey: solana.SysVarRentPubkey, IsSigner: false, IsWritable: false},
	}

	// ATA create instruction data is empty.
	return solana.NewInstruction(solana.SPLAssociatedTokenAccountProgramID, accounts, nil)
}

// NewSystemTransferIx moves lamports into the wSOL account before SyncNative
func NewSystemTransferIx(from, to solana.PublicKey, lamports uint64) (solana.Instruction, error) {
	ix, err := system.NewTransferInstruction(lamports, from, to).ValidateAndBuild()
	if err != nil {
		return nil, fmt.Errorf("build transfer: %w", err)
	}
	return ix, nil
}

// NewTokenSyncNativeIx builds a SPL Token SyncNative instruction.
func NewTokenSyncNativeIx(nativeAccount solana.PublicKey) (solana.Instruction, error) {
	ix, err := token.NewSyncNativeInstruction(nativeAccount).ValidateAndBuild()
	if err != nil {
		return nil, fmt.Errorf("build sync native: %w", err)
	}
	return ix, nil
}

// NewTokenCloseAccountIx builds a SPL Token CloseAccount instruction.
func NewTokenCloseAccountIx(account, destination, owner solana.PublicKey) (solana.Instruction, error) {
	ix, err := token.NewCloseAccountInstruction(account, destination, owner, []solana.PublicKey{}).ValidateAndBuild()
	if err != nil {
		return nil, fmt.Errorf("build close account: %w", err)
	}
	return ix, nil
}
