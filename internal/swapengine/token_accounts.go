package swapengine

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/aman-zulfiqar/cpmm-direct-swap/internal/cpmm"
	"github.com/aman-zulfiqar/cpmm-direct-swap/internal/ledger"
)

// ResolvedTokenAccount describes a token account to use for a swap plus any
// instructions needed to make it usable (e.g. create ATA).
type ResolvedTokenAccount struct {
	Account solana.PublicKey
	Created bool // true if this resolver will create the account in PreIxs
	PreIxs  []solana.Instruction
}

// TokenAccountResolver finds the token account an owner swaps through
type TokenAccountResolver interface {
	Resolve(ctx context.Context, owner, mint, tokenProgram solana.PublicKey) (*ResolvedTokenAccount, error)
}

// DefaultTokenAccountResolver resolves the owner's ATA for a given mint.
// For wSOL, it returns the ATA as well (wrapping/unwrapping is handled by the assembler).
type DefaultTokenAccountResolver struct {
	ledger ledger.Client
}

// NewDefaultTokenAccountResolver creates a resolver backed by client
func NewDefaultTokenAccountResolver(client ledger.Client) *DefaultTokenAccountResolver {
	return &DefaultTokenAccountResolver{ledger: client}
}

func (r *DefaultTokenAccountResolver) Resolve(ctx context.Context, owner, mint, tokenProgram solana.PublicKey) (*ResolvedTokenAccount, error) {
	if r == nil || r.ledger == nil {
		return nil, fmt.Errorf("token account resolver: ledger is nil")
	}

	ata, err := cpmm.AssociatedTokenAddress(owner, mint, tokenProgram)
	if err != nil {
		return nil, err
	}

	acct, err := r.ledger.GetAccount(ctx, ata)
	if err != nil {
		return nil, fmt.Errorf("check token account %s: %w", ata, err)
	}
	if acct != nil {
		return &ResolvedTokenAccount{Account: ata, Created: false}, nil
	}

	// Create ATA (payer=owner).
	createATA := NewCreateAssociatedTokenAccountIx(owner, ata, owner, mint, tokenProgram)
	return &ResolvedTokenAccount{
		Account: ata,
		Created: true,
		PreIxs:  []solana.Instruction{createATA},
	}, nil
}
