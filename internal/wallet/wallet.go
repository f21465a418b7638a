package wallet

import (
	"context"
	"crypto/ed25519"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"

	"github.com/aman-zulfiqar/cpmm-direct-swap/internal/ledger"
)

type WalletConfig struct {
	PrivateKey string // base58-encoded 64-byte key OR solana-keygen JSON array
}

// Wallet is an in-process keypair signer
type Wallet struct {
	priv solana.PrivateKey
	pub  solana.PublicKey
}

func NewWallet(cfg WalletConfig) (*Wallet, error) {
	if strings.TrimSpace(cfg.PrivateKey) == "" {
		return nil, fmt.Errorf("wallet: PrivateKey is required")
	}

	priv, err := parsePrivateKey(cfg.PrivateKey)
	if err != nil {
		return nil, err
	}

	return &Wallet{
		priv: priv,
		pub:  priv.PublicKey(),
	}, nil
}

func NewWalletFromEnv() (*Wallet, error) {
	return NewWallet(WalletConfig{
		PrivateKey: os.Getenv("WALLET_PRIVATE_KEY"),
	})
}

// FromPrivateKey wraps an already decoded key
func FromPrivateKey(priv solana.PrivateKey) *Wallet {
	return &Wallet{priv: priv, pub: priv.PublicKey()}
}

func (w *Wallet) Address() string             { return w.pub.String() }
func (w *Wallet) PublicKey() solana.PublicKey { return w.pub }

// BalanceLamports reads the wallet's native balance. A wallet that has never
// been funded has a zero balance.
func (w *Wallet) BalanceLamports(ctx context.Context, client ledger.Client) (uint64, error) {
	acct, err := client.GetAccount(ctx, w.pub)
	if err != nil {
		return 0, fmt.Errorf("wallet balance: %w", err)
	}
	if acct == nil {
		return 0, nil
	}
	return acct.Lamports, nil
}

func parsePrivateKey(s string) (solana.PrivateKey, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "[") {
		var ints []int
		if err := json.Unmarshal([]byte(s), &ints); err != nil {
			return nil, fmt.Errorf("wallet: invalid JSON private key: %w", err)
		}
		b := make([]byte, len(ints))
		for i, v := range ints {
			if v < 0 || v > 255 {
				return nil, fmt.Errorf("wallet: invalid byte at %d: %d", i, v)
			}
			b[i] = byte(v)
		}
		if len(b) != ed25519.PrivateKeySize {
			return nil, fmt.Errorf("wallet: expected %d bytes, got %d", ed25519.PrivateKeySize, len(b))
		}
		return solana.PrivateKey(ed25519.PrivateKey(b)), nil
	}

	raw, err := base58.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("wallet: invalid base58 private key: %w", err)
	}
	if len(raw) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("wallet: expected %d bytes, got %d", ed25519.PrivateKeySize, len(raw))
	}
	return solana.PrivateKey(ed25519.PrivateKey(raw)), nil
}
