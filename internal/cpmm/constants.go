package cpmm

import (
	"github.com/gagliardetto/solana-go"
)

// Program and token program IDs
var (
	ProgramID = solana.MustPublicKeyFromBase58("CPMMoo8L3F4NbTegBCKVNunggL7H1ZpdTHKxQB5qKP1C")

	TokenProgramID     = solana.TokenProgramID
	Token2022ProgramID = solana.Token2022ProgramID

	WrappedSOLMint = solana.WrappedSol
)

// Seeds and discriminators
var (
	AuthoritySeed = []byte("vault_and_lp_mint_auth_seed")

	SwapBaseInputDiscriminator = [8]byte{143, 190, 90, 218, 196, 30, 51, 222}

	// PoolStateDiscriminator is the anchor account discriminator of PoolState.
	// Only checked when DecodeOptions.StrictDiscriminator is set.
	PoolStateDiscriminator = [8]byte{247, 237, 227, 245, 215, 195, 222, 70}
)

// Layout sizes
const (
	DiscriminatorSize = 8
	PubkeySize        = 32
	PoolStateKeyCount = 10

	// MinPoolStateSize covers the discriminator and the ten leading keys.
	MinPoolStateSize = DiscriminatorSize + PoolStateKeyCount*PubkeySize

	// TokenAccountAmountOffset is where the u64 amount sits in an SPL token account.
	TokenAccountAmountOffset = 64

	SwapBaseInputDataSize     = 24
	SwapBaseInputAccountCount = 13
)

// Fee and slippage constants
const (
	FeeNumerator   = 9975
	FeeDenominator = 10000

	DefaultSlippageBps = 100
	BpsDenominator     = 10000
)
