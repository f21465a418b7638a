package wallet

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// SignTransaction signs tx with the wallet key. The wallet must be the only
// required signer. Existing signatures, including the zeroed placeholders
// aggregators return, are replaced.
func (w *Wallet) SignTransaction(tx *solana.Transaction) error {
	if tx == nil {
		return fmt.Errorf("wallet: nil transaction")
	}

	tx.Signatures = nil
	_, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(w.pub) {
			return &w.priv
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to sign transaction: %w", err)
	}
	return nil
}
