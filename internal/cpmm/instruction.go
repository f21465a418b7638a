package cpmm

import (
	"bytes"
	"encoding/binary"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// SwapBaseInputParams are the inputs of a swap_base_input instruction
type SwapBaseInputParams struct {
	ProgramID solana.PublicKey // zero value means the mainnet CP-Swap program
	Pool      solana.PublicKey
	State     *PoolState
	Payer     solana.PublicKey

	InputMint          solana.PublicKey
	InputTokenAccount  solana.PublicKey
	OutputTokenAccount solana.PublicKey

	AmountIn     uint64
	MinAmountOut uint64
}

// SwapBaseInputInstruction is a CP-Swap swap_base_input call.
//
// Data layout:
// [0:8]   = discriminator
// [8:16]  = amount_in (u64, little-endian)
// [16:24] = minimum_amount_out (u64, little-endian)
type SwapBaseInputInstruction struct {
	AmountIn         uint64
	MinimumAmountOut uint64

	programID               solana.PublicKey
	solana.AccountMetaSlice `bin:"-" borsh_skip:"true"`
}

var _ solana.Instruction = (*SwapBaseInputInstruction)(nil)

// NewSwapBaseInput builds the instruction. The input side is whichever pool
// mint equals p.InputMint, token0 first.
func NewSwapBaseInput(p SwapBaseInputParams) (*SwapBaseInputInstruction, error) {
	if p.State == nil {
		return nil, fmt.Errorf("pool state cannot be nil")
	}

	programID := p.ProgramID
	if programID.IsZero() {
		programID = ProgramID
	}

	in, out, err := p.State.Legs(p.InputMint)
	if err != nil {
		return nil, fmt.Errorf("input mint %s: %w", p.InputMint, err)
	}

	authority, err := Authority(programID)
	if err != nil {
		return nil, err
	}

	// CP-Swap swap_base_input account order:
	// 0.  payer (signer)
	// 1.  authority
	// 2.  amm_config
	// 3.  pool_state
	// 4.  input_token_account
	// 5.  output_token_account
	// 6.  input_vault
	// 7.  output_vault
	// 8.  input_token_program
	// 9.  output_token_program
	// 10. input_token_mint
	// 11. output_token_mint
	// 12. observation_state
	accounts := solana.AccountMetaSlice{
		{PublicKey: p.Payer, IsWritable: false, IsSigner: true},
		{PublicKey: authority, IsWritable: false, IsSigner: false},
		{PublicKey: p.State.AmmConfig, IsWritable: false, IsSigner: false},
		{PublicKey: p.Pool, IsWritable: true, IsSigner: false},
		{PublicKey: p.InputTokenAccount, IsWritable: true, IsSigner: false},
		{PublicKey: p.OutputTokenAccount, IsWritable: true, IsSigner: false},
		{PublicKey: in.Vault, IsWritable: true, IsSigner: false},
		{PublicKey: out.Vault, IsWritable: true, IsSigner: false},
		{PublicKey: in.Program, IsWritable: false, IsSigner: false},
		{PublicKey: out.Program, IsWritable: false, IsSigner: false},
		{PublicKey: in.Mint, IsWritable: false, IsSigner: false},
		{PublicKey: out.Mint, IsWritable: false, IsSigner: false},
		{PublicKey: p.State.ObservationKey, IsWritable: true, IsSigner: false},
	}

	return &SwapBaseInputInstruction{
		AmountIn:         p.AmountIn,
		MinimumAmountOut: p.MinAmountOut,
		programID:        programID,
		AccountMetaSlice: accounts,
	}, nil
}

// ProgramID returns the CP-Swap program the instruction targets
func (inst *SwapBaseInputInstruction) ProgramID() solana.PublicKey {
	return inst.programID
}

// Accounts returns the account metas for the instruction
func (inst *SwapBaseInputInstruction) Accounts() []*solana.AccountMeta {
	return inst.AccountMetaSlice
}

// Data serializes the instruction data
func (inst *SwapBaseInputInstruction) Data() ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, SwapBaseInputDataSize))
	encoder := bin.NewBinEncoder(buf)

	if err := encoder.WriteBytes(SwapBaseInputDiscriminator[:], false); err != nil {
		return nil, fmt.Errorf("failed to write discriminator: %w", err)
	}
	if err := encoder.WriteUint64(inst.AmountIn, binary.LittleEndian); err != nil {
		return nil, fmt.Errorf("failed to encode amount in: %w", err)
	}
	if err := encoder.WriteUint64(inst.MinimumAmountOut, binary.LittleEndian); err != nil {
		return nil, fmt.Errorf("failed to encode minimum amount out: %w", err)
	}

	return buf.Bytes(), nil
}
