package cpmm

import (
	"encoding/hex"
	"encoding/json"
	"os"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type instructionFixture struct {
	AmountIn     uint64 `json:"amount_in"`
	MinAmountOut uint64 `json:"min_amount_out"`
	DataHex      string `json:"data_hex"`
	Accounts     []struct {
		Role     string `json:"role"`
		Writable bool   `json:"writable"`
		Signer   bool   `json:"signer"`
	} `json:"accounts"`
}

func loadInstructionFixture(t *testing.T) instructionFixture {
	raw, err := os.ReadFile("testdata/swap_base_input.json")
	require.NoError(t, err)

	var f instructionFixture
	require.NoError(t, json.Unmarshal(raw, &f))
	return f
}

func buildTestSwap(t *testing.T, state *PoolState, inputMint solana.PublicKey, amountIn, minOut uint64) (SwapBaseInputParams, *SwapBaseInputInstruction) {
	p := SwapBaseInputParams{
		Pool:               newKey(),
		State:              state,
		Payer:              newKey(),
		InputMint:          inputMint,
		InputTokenAccount:  newKey(),
		OutputTokenAccount: newKey(),
		AmountIn:           amountIn,
		MinAmountOut:       minOut,
	}
	ix, err := NewSwapBaseInput(p)
	require.NoError(t, err)
	return p, ix
}

func TestSwapBaseInput_MatchesFixture(t *testing.T) {
	f := loadInstructionFixture(t)
	state := randomPoolState()

	p, ix := buildTestSwap(t, state, state.Token0Mint, f.AmountIn, f.MinAmountOut)

	data, err := ix.Data()
	require.NoError(t, err)
	assert.Equal(t, f.DataHex, hex.EncodeToString(data))
	assert.Len(t, data, SwapBaseInputDataSize)

	authority, err := Authority(ProgramID)
	require.NoError(t, err)

	byRole := map[string]solana.PublicKey{
		"payer":                p.Payer,
		"authority":            authority,
		"amm_config":           state.AmmConfig,
		"pool_state":           p.Pool,
		"input_token_account":  p.InputTokenAccount,
		"output_token_account": p.OutputTokenAccount,
		"input_vault":          state.Token0Vault,
		"output_vault":         state.Token1Vault,
		"input_token_program":  state.Token0Program,
		"output_token_program": state.Token1Program,
		"input_token_mint":     state.Token0Mint,
		"output_token_mint":    state.Token1Mint,
		"observation_state":    state.ObservationKey,
	}

	accounts := ix.Accounts()
	require.Len(t, accounts, len(f.Accounts))
	for i, want := range f.Accounts {
		got := accounts[i]
		assert.Equal(t, byRole[want.Role], got.PublicKey, "account %d (%s)", i, want.Role)
		assert.Equal(t, want.Writable, got.IsWritable, "account %d (%s) writable", i, want.Role)
		assert.Equal(t, want.Signer, got.IsSigner, "account %d (%s) signer", i, want.Role)
	}
	assert.Equal(t, ProgramID, ix.ProgramID())
}

func TestSwapBaseInput_Token1Input(t *testing.T) {
	state := randomPoolState()
	_, ix := buildTestSwap(t, state, state.Token1Mint, 42, 1)

	accounts := ix.Accounts()
	require.Len(t, accounts, SwapBaseInputAccountCount)

	assert.Equal(t, state.Token1Vault, accounts[6].PublicKey)
	assert.Equal(t, state.Token0Vault, accounts[7].PublicKey)
	assert.Equal(t, state.Token1Program, accounts[8].PublicKey)
	assert.Equal(t, state.Token0Program, accounts[9].PublicKey)
	assert.Equal(t, state.Token1Mint, accounts[10].PublicKey)
	assert.Equal(t, state.Token0Mint, accounts[11].PublicKey)
}

func TestSwapBaseInput_FlagsIndependentOfDirection(t *testing.T) {
	state := randomPoolState()
	_, a := buildTestSwap(t, state, state.Token0Mint, 1, 0)
	_, b := buildTestSwap(t, state, state.Token1Mint, 1, 0)

	for i := range a.Accounts() {
		assert.Equal(t, a.Accounts()[i].IsWritable, b.Accounts()[i].IsWritable, "account %d", i)
		assert.Equal(t, a.Accounts()[i].IsSigner, b.Accounts()[i].IsSigner, "account %d", i)
	}
}

func TestSwapBaseInput_CustomProgram(t *testing.T) {
	state := randomPoolState()
	program := newKey()

	ix, err := NewSwapBaseInput(SwapBaseInputParams{
		ProgramID: program,
		State:     state,
		InputMint: state.Token0Mint,
	})
	require.NoError(t, err)
	assert.Equal(t, program, ix.ProgramID())

	authority, err := Authority(program)
	require.NoError(t, err)
	assert.Equal(t, authority, ix.Accounts()[1].PublicKey)
}

func TestSwapBaseInput_Errors(t *testing.T) {
	_, err := NewSwapBaseInput(SwapBaseInputParams{})
	assert.Error(t, err)

	_, err = NewSwapBaseInput(SwapBaseInputParams{State: randomPoolState(), InputMint: newKey()})
	assert.ErrorIs(t, err, ErrInvalidPool)
}
