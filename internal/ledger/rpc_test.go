package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	projectrpc "github.com/aman-zulfiqar/cpmm-direct-swap/internal/rpc"
)

func newTestLedger(t *testing.T, handler func(method string) string) *RPCClient {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string `json:"method"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		_, _ = w.Write([]byte(handler(req.Method)))
	}))
	t.Cleanup(srv.Close)

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	c, err := NewRPCClient(RPCConfig{
		RPC: projectrpc.NewClient(projectrpc.ClientConfig{
			BaseURL: srv.URL,
			Timeout: 2 * time.Second,
			Logger:  logger,
		}),
		Logger: logger,
	})
	require.NoError(t, err)
	return c
}

func TestNewRPCClient_RequiresTransport(t *testing.T) {
	_, err := NewRPCClient(RPCConfig{})
	assert.Error(t, err)
}

func TestRPCClient_GetAccount(t *testing.T) {
	owner := solana.MustPublicKeyFromBase58("CPMMoo8L3F4NbTegBCKVNunggL7H1ZpdTHKxQB5qKP1C")

	c := newTestLedger(t, func(method string) string {
		assert.Equal(t, "getAccountInfo", method)
		return `{"jsonrpc":"2.0","id":1,"result":{"context":{"slot":99},"value":{"lamports":2039280,"owner":"` +
			owner.String() + `","data":["AQIDBA==","base64"],"executable":false,"rentEpoch":0}}}`
	})

	addr := solana.NewWallet().PublicKey()
	acct, err := c.GetAccount(context.Background(), addr)
	require.NoError(t, err)
	require.NotNil(t, acct)

	assert.True(t, acct.Owner.Equals(owner))
	assert.Equal(t, addr, acct.Address)
	assert.Equal(t, uint64(2039280), acct.Lamports)
	assert.Equal(t, []byte{1, 2, 3, 4}, acct.Data)
	assert.Equal(t, uint64(99), acct.Slot)
}

func TestRPCClient_GetAccountMissing(t *testing.T) {
	c := newTestLedger(t, func(string) string {
		return `{"jsonrpc":"2.0","id":1,"result":{"context":{"slot":1},"value":null}}`
	})

	acct, err := c.GetAccount(context.Background(), solana.NewWallet().PublicKey())
	require.NoError(t, err)
	assert.Nil(t, acct)
}

func TestRPCClient_GetAccountBadOwner(t *testing.T) {
	c := newTestLedger(t, func(string) string {
		return `{"jsonrpc":"2.0","id":1,"result":{"context":{"slot":1},"value":{"lamports":1,"owner":"not-a-key","data":["","base64"]}}}`
	})

	_, err := c.GetAccount(context.Background(), solana.NewWallet().PublicKey())
	assert.Error(t, err)
}

func TestRPCClient_LatestBlockhash(t *testing.T) {
	want := solana.Hash(solana.NewWallet().PublicKey())

	c := newTestLedger(t, func(method string) string {
		assert.Equal(t, "getLatestBlockhash", method)
		return `{"jsonrpc":"2.0","id":1,"result":{"context":{"slot":1},"value":{"blockhash":"` +
			want.String() + `","lastValidBlockHeight":300}}}`
	})

	got, err := c.LatestBlockhash(context.Background())
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestRPCClient_Confirm(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    Status
		wantErr error
	}{
		{
			name: "unknown signature",
			body: `{"jsonrpc":"2.0","id":1,"result":{"context":{"slot":1},"value":[null]}}`,
			want: StatusUnknown,
		},
		{
			name: "confirmed",
			body: `{"jsonrpc":"2.0","id":1,"result":{"context":{"slot":1},"value":[{"slot":5,"confirmations":1,"err":null,"confirmationStatus":"confirmed"}]}}`,
			want: StatusConfirmed,
		},
		{
			name:    "failed on-chain",
			body:    `{"jsonrpc":"2.0","id":1,"result":{"context":{"slot":1},"value":[{"slot":5,"confirmations":null,"err":{"InstructionError":[3,{"Custom":6005}]},"confirmationStatus":"processed"}]}}`,
			want:    StatusProcessed,
			wantErr: ErrTransactionFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestLedger(t, func(string) string { return tt.body })

			got, err := c.Confirm(context.Background(), solana.Signature{})
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr))
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStatus_Reached(t *testing.T) {
	assert.True(t, StatusFinalized.Reached(StatusConfirmed))
	assert.True(t, StatusConfirmed.Reached(StatusConfirmed))
	assert.False(t, StatusProcessed.Reached(StatusConfirmed))
	assert.False(t, StatusUnknown.Reached(StatusUnknown))
}

type sequenceConfirmer struct {
	Client
	statuses []Status
	calls    int
}

func (s *sequenceConfirmer) Confirm(context.Context, solana.Signature) (Status, error) {
	st := s.statuses[s.calls]
	if s.calls < len(s.statuses)-1 {
		s.calls++
	}
	return st, nil
}

func TestWaitForConfirmation(t *testing.T) {
	c := &sequenceConfirmer{statuses: []Status{StatusUnknown, StatusConfirmed}}

	got, err := WaitForConfirmation(context.Background(), c, solana.Signature{}, StatusConfirmed, 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, got)
}

func TestWaitForConfirmation_ContextCancelled(t *testing.T) {
	c := &sequenceConfirmer{statuses: []Status{StatusProcessed}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := WaitForConfirmation(ctx, c, solana.Signature{}, StatusFinalized, 5*time.Second)
	assert.ErrorIs(t, err, context.Canceled)
}
