package ledger

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"

	projectrpc "github.com/aman-zulfiqar/cpmm-direct-swap/internal/rpc"
)

// RPCConfig configures an RPC-backed ledger client
type RPCConfig struct {
	RPC *projectrpc.Client

	ReadCommitment      string // commitment for account reads, default "confirmed"
	BlockhashCommitment string // default "processed"
	SkipPreflight       bool
	PreflightCommitment string // default "processed"

	Logger *logrus.Logger
}

// RPCClient implements Client on top of the JSON-RPC transport.
type RPCClient struct {
	rpc    *projectrpc.Client
	cfg    RPCConfig
	logger *logrus.Logger
}

// NewRPCClient wraps an RPC transport as a ledger Client
func NewRPCClient(cfg RPCConfig) (*RPCClient, error) {
	if cfg.RPC == nil {
		return nil, fmt.Errorf("ledger: rpc client is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.ReadCommitment == "" {
		cfg.ReadCommitment = "confirmed"
	}
	if cfg.BlockhashCommitment == "" {
		cfg.BlockhashCommitment = "processed"
	}
	if cfg.PreflightCommitment == "" {
		cfg.PreflightCommitment = "processed"
	}

	return &RPCClient{rpc: cfg.RPC, cfg: cfg, logger: cfg.Logger}, nil
}

// GetAccount reads one account. Missing accounts yield (nil, nil).
func (c *RPCClient) GetAccount(ctx context.Context, address solana.PublicKey) (*Account, error) {
	res, err := c.rpc.GetAccountInfo(ctx, address.String(), c.cfg.ReadCommitment)
	if err != nil {
		return nil, fmt.Errorf("getAccountInfo %s: %w", address, err)
	}

	v := res.Result.Value
	if v == nil {
		return nil, nil
	}

	owner, err := solana.PublicKeyFromBase58(v.Owner)
	if err != nil {
		return nil, fmt.Errorf("account %s: invalid owner %q: %w", address, v.Owner, err)
	}

	var data []byte
	if len(v.Data) > 0 && v.Data[0] != "" {
		if len(v.Data) > 1 && v.Data[1] != "base64" {
			return nil, fmt.Errorf("account %s: unexpected data encoding %q", address, v.Data[1])
		}
		data, err = base64.StdEncoding.DecodeString(v.Data[0])
		if err != nil {
			return nil, fmt.Errorf("account %s: invalid base64 data: %w", address, err)
		}
	}

	return &Account{
		Address:  address,
		Owner:    owner,
		Lamports: v.Lamports,
		Data:     data,
		Slot:     res.Result.Context.Slot,
	}, nil
}

// LatestBlockhash fetches a recent blockhash for transaction compilation
func (c *RPCClient) LatestBlockhash(ctx context.Context) (solana.Hash, error) {
	res, err := c.rpc.GetLatestBlockhash(ctx, c.cfg.BlockhashCommitment)
	if err != nil {
		return solana.Hash{}, fmt.Errorf("getLatestBlockhash: %w", err)
	}

	hash, err := solana.HashFromBase58(res.Result.Value.Blockhash)
	if err != nil {
		return solana.Hash{}, fmt.Errorf("invalid blockhash format: %w", err)
	}
	return hash, nil
}

// Submit serializes and sends a signed transaction
func (c *RPCClient) Submit(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	txBytes, err := tx.MarshalBinary()
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to serialize transaction: %w", err)
	}

	sigStr, err := c.rpc.SendTransaction(ctx, base64.StdEncoding.EncodeToString(txBytes), projectrpc.SendOptions{
		SkipPreflight:       c.cfg.SkipPreflight,
		PreflightCommitment: c.cfg.PreflightCommitment,
	})
	if err != nil {
		return solana.Signature{}, fmt.Errorf("sendTransaction: %w", err)
	}

	sig, err := solana.SignatureFromBase58(sigStr)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("invalid signature in sendTransaction result: %w", err)
	}

	c.logger.WithField("signature", sig.String()).Debug("transaction submitted")
	return sig, nil
}

// Confirm returns the current status of a signature. A transaction the
// ledger rejected yields ErrTransactionFailed.
func (c *RPCClient) Confirm(ctx context.Context, sig solana.Signature) (Status, error) {
	res, err := c.rpc.GetSignatureStatuses(ctx, []string{sig.String()})
	if err != nil {
		return StatusUnknown, fmt.Errorf("getSignatureStatuses: %w", err)
	}

	if len(res.Result.Value) == 0 || res.Result.Value[0] == nil {
		return StatusUnknown, nil
	}

	status := res.Result.Value[0]
	if status.Err != nil {
		return Status(status.ConfirmationStatus), fmt.Errorf("%w: %v", ErrTransactionFailed, status.Err)
	}
	return Status(status.ConfirmationStatus), nil
}

// WaitForConfirmation polls Confirm until want is reached, the transaction
// fails, or timeout elapses.
func WaitForConfirmation(
	ctx context.Context,
	client Client,
	sig solana.Signature,
	want Status,
	timeout time.Duration,
) (Status, error) {

	deadline := time.Now().Add(timeout)
	backoff := 500 * time.Millisecond
	maxBackoff := 4 * time.Second

	for time.Now().Before(deadline) {
		status, err := client.Confirm(ctx, sig)
		if err != nil {
			return status, err
		}
		if status.Reached(want) {
			return status, nil
		}

		select {
		case <-ctx.Done():
			return status, ctx.Err()
		case <-time.After(backoff):
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
		}
	}

	return StatusUnknown, fmt.Errorf("transaction confirmation timeout after %v", timeout)
}
