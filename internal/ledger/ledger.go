package ledger

import (
	"context"
	"errors"

	"github.com/gagliardetto/solana-go"
)

// ErrTransactionFailed is returned by Confirm when the ledger executed the
// transaction and rejected it.
var ErrTransactionFailed = errors.New("transaction failed on-chain")

// Account is a point-in-time read of one on-chain account.
type Account struct {
	Address  solana.PublicKey
	Owner    solana.PublicKey
	Lamports uint64
	Data     []byte
	Slot     uint64
}

// Status is the confirmation level a submitted transaction has reached.
type Status string

const (
	StatusUnknown   Status = ""
	StatusProcessed Status = "processed"
	StatusConfirmed Status = "confirmed"
	StatusFinalized Status = "finalized"
)

// Reached reports whether s is at least as strong as want.
func (s Status) Reached(want Status) bool {
	return s.rank() >= want.rank() && s != StatusUnknown
}

func (s Status) rank() int {
	switch s {
	case StatusProcessed:
		return 1
	case StatusConfirmed:
		return 2
	case StatusFinalized:
		return 3
	default:
		return 0
	}
}

// Client is the ledger capability the swap pipeline depends on.
//
// GetAccount returns (nil, nil) when the account does not exist; an error is
// reserved for transport or decoding failures.
type Client interface {
	GetAccount(ctx context.Context, address solana.PublicKey) (*Account, error)
	LatestBlockhash(ctx context.Context) (solana.Hash, error)
	Submit(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)
	Confirm(ctx context.Context, sig solana.Signature) (Status, error)
}
