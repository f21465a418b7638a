package cpmm

import (
	"bytes"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"github.com/aman-zulfiqar/cpmm-direct-swap/internal/ledger"
)

// DecodeOptions tunes pool-state decoding
type DecodeOptions struct {
	// StrictDiscriminator rejects accounts whose first 8 bytes are not the
	// PoolState discriminator. Off by default.
	StrictDiscriminator bool
}

// DecodePoolState validates ownership of acct and decodes its pool state.
func DecodePoolState(acct *ledger.Account, programID solana.PublicKey, opts DecodeOptions) (*PoolState, error) {
	if acct == nil {
		return nil, ErrNotFound
	}
	if !acct.Owner.Equals(programID) {
		return nil, fmt.Errorf("pool %s owned by %s: %w", acct.Address, acct.Owner, ErrWrongOwner)
	}

	state, err := ParsePoolState(acct.Data, opts)
	if err != nil {
		return nil, fmt.Errorf("pool %s: %w", acct.Address, err)
	}
	return state, nil
}

// ParsePoolState decodes raw pool account bytes: an 8-byte discriminator
// followed by ten 32-byte keys. Trailing bytes are ignored.
func ParsePoolState(data []byte, opts DecodeOptions) (*PoolState, error) {
	if len(data) < MinPoolStateSize {
		return nil, fmt.Errorf("pool state is %d bytes, need at least %d: %w",
			len(data), MinPoolStateSize, ErrMalformedAccount)
	}

	decoder := bin.NewBinDecoder(data)

	var discriminator [DiscriminatorSize]byte
	if err := decoder.Decode(&discriminator); err != nil {
		return nil, fmt.Errorf("failed to decode discriminator: %v: %w", err, ErrMalformedAccount)
	}
	if opts.StrictDiscriminator && discriminator != PoolStateDiscriminator {
		return nil, fmt.Errorf("unexpected discriminator %v: %w", discriminator, ErrMalformedAccount)
	}

	state := &PoolState{}
	for i, field := range state.fields() {
		if err := decoder.Decode(field); err != nil {
			return nil, fmt.Errorf("failed to decode key %d: %v: %w", i, err, ErrMalformedAccount)
		}
	}

	return state, nil
}

// EncodePoolState writes the discriminator and the ten keys in layout order.
func EncodePoolState(state *PoolState) ([]byte, error) {
	buf := new(bytes.Buffer)
	encoder := bin.NewBinEncoder(buf)

	if err := encoder.WriteBytes(PoolStateDiscriminator[:], false); err != nil {
		return nil, fmt.Errorf("failed to encode discriminator: %w", err)
	}
	for i, field := range state.fields() {
		if err := encoder.WriteBytes(field[:], false); err != nil {
			return nil, fmt.Errorf("failed to encode key %d: %w", i, err)
		}
	}

	return buf.Bytes(), nil
}

// fields lists the keys in on-chain order
func (p *PoolState) fields() []*solana.PublicKey {
	return []*solana.PublicKey{
		&p.AmmConfig,
		&p.PoolCreator,
		&p.Token0Vault,
		&p.Token1Vault,
		&p.LpMint,
		&p.Token0Mint,
		&p.Token1Mint,
		&p.Token0Program,
		&p.Token1Program,
		&p.ObservationKey,
	}
}
