package swapengine

import (
	"context"
	"encoding/binary"
	"errors"
	"sync"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/aman-zulfiqar/cpmm-direct-swap/internal/cpmm"
	"github.com/aman-zulfiqar/cpmm-direct-swap/internal/ledger"
	"github.com/aman-zulfiqar/cpmm-direct-swap/internal/models"
	"github.com/aman-zulfiqar/cpmm-direct-swap/internal/wallet"
)

const (
	testReserveSOL   = 500_000_000_000
	testReserveToken = 250_000_000_000
)

var errLedgerDown = errors.New("ledger down")

func newKey() solana.PublicKey {
	return solana.NewWallet().PublicKey()
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func tokenAccountData(amount uint64) []byte {
	data := make([]byte, 165)
	binary.LittleEndian.PutUint64(data[cpmm.TokenAccountAmountOffset:], amount)
	return data
}

// memLedger is an in-memory ledger.Client
type memLedger struct {
	mu        sync.Mutex
	accounts  map[solana.PublicKey]*ledger.Account
	readErrs  map[solana.PublicKey]error
	blockhash solana.Hash

	submitted  []*solana.Transaction
	submitErr  error
	status     ledger.Status
	confirmErr error
}

func newMemLedger() *memLedger {
	return &memLedger{
		accounts:  make(map[solana.PublicKey]*ledger.Account),
		readErrs:  make(map[solana.PublicKey]error),
		blockhash: solana.HashFromBytes(newKey().Bytes()),
		status:    ledger.StatusConfirmed,
	}
}

func (m *memLedger) put(addr, owner solana.PublicKey, lamports uint64, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[addr] = &ledger.Account{Address: addr, Owner: owner, Lamports: lamports, Data: data}
}

func (m *memLedger) GetAccount(_ context.Context, addr solana.PublicKey) (*ledger.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.readErrs[addr]; err != nil {
		return nil, err
	}
	return m.accounts[addr], nil
}

func (m *memLedger) LatestBlockhash(context.Context) (solana.Hash, error) {
	return m.blockhash, nil
}

func (m *memLedger) Submit(_ context.Context, tx *solana.Transaction) (solana.Signature, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.submitErr != nil {
		return solana.Signature{}, m.submitErr
	}
	m.submitted = append(m.submitted, tx)
	return tx.Signatures[0], nil
}

func (m *memLedger) Confirm(context.Context, solana.Signature) (ledger.Status, error) {
	return m.status, m.confirmErr
}

// fakeAggregator returns a canned order
type fakeAggregator struct {
	order *Order
	err   error
	calls int
	last  OrderRequest
}

func (f *fakeAggregator) GetOrder(_ context.Context, req OrderRequest) (*Order, error) {
	f.calls++
	f.last = req
	return f.order, f.err
}

type staticFlags map[string]bool

func (s staticFlags) Enabled(_ context.Context, key string, def bool) bool {
	if v, ok := s[key]; ok {
		return v
	}
	return def
}

// recorder captures recorded swaps for every sink interface
type recorder struct {
	mu        sync.Mutex
	cached    []*models.SwapEvent
	published []*models.SwapEvent
	stored    []*models.SwapEvent
	err       error
}

func (r *recorder) AddRecentSwap(_ context.Context, ev *models.SwapEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cached = append(r.cached, ev)
	return r.err
}

func (r *recorder) GetRecentSwaps(context.Context, int64) ([]*models.SwapEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cached, nil
}

func (r *recorder) PublishSwap(_ context.Context, ev *models.SwapEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.published = append(r.published, ev)
	return r.err
}

func (r *recorder) InsertSwap(_ context.Context, ev *models.SwapEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stored = append(r.stored, ev)
	return r.err
}

func (r *recorder) Ping(context.Context) error { return nil }
func (r *recorder) Close() error               { return nil }

// testPool is a wSOL/token CP-Swap pool with its vaults funded. Token0 is
// wSOL under the legacy token program, token1 uses Token-2022.
type testPool struct {
	ledger    *memLedger
	pool      solana.PublicKey
	state     *cpmm.PoolState
	tokenMint solana.PublicKey
	signer    *wallet.Wallet
}

func newTestPool(t *testing.T) *testPool {
	t.Helper()

	led := newMemLedger()
	tokenMint := newKey()
	state := &cpmm.PoolState{
		AmmConfig:      newKey(),
		PoolCreator:    newKey(),
		Token0Vault:    newKey(),
		Token1Vault:    newKey(),
		LpMint:         newKey(),
		Token0Mint:     cpmm.WrappedSOLMint,
		Token1Mint:     tokenMint,
		Token0Program:  cpmm.TokenProgramID,
		Token1Program:  cpmm.Token2022ProgramID,
		ObservationKey: newKey(),
	}

	data, err := cpmm.EncodePoolState(state)
	require.NoError(t, err)

	pool := newKey()
	led.put(pool, cpmm.ProgramID, 1, data)
	led.put(state.Token0Vault, cpmm.TokenProgramID, 1, tokenAccountData(testReserveSOL))
	led.put(state.Token1Vault, cpmm.Token2022ProgramID, 1, tokenAccountData(testReserveToken))

	signer := wallet.FromPrivateKey(solana.NewWallet().PrivateKey)
	led.put(signer.PublicKey(), solana.SystemProgramID, 10_000_000_000, nil)

	return &testPool{ledger: led, pool: pool, state: state, tokenMint: tokenMint, signer: signer}
}

func (p *testPool) request(dir Direction, amount uint64) *SwapRequest {
	return &SwapRequest{
		Pool:      p.pool,
		TokenMint: p.tokenMint,
		Direction: dir,
		AmountIn:  amount,
		Signer:    p.signer.PublicKey(),
	}
}

func (p *testPool) ata(t *testing.T, mint, program solana.PublicKey) solana.PublicKey {
	ata, err := cpmm.AssociatedTokenAddress(p.signer.PublicKey(), mint, program)
	require.NoError(t, err)
	return ata
}

// createATAs marks both of the signer's token accounts as existing
func (p *testPool) createATAs(t *testing.T) {
	p.ledger.put(p.ata(t, cpmm.WrappedSOLMint, cpmm.TokenProgramID), cpmm.TokenProgramID, 2_039_280, tokenAccountData(0))
	p.ledger.put(p.ata(t, p.tokenMint, cpmm.Token2022ProgramID), cpmm.Token2022ProgramID, 2_039_280, tokenAccountData(0))
}

func (p *testPool) engine(t *testing.T, agg QuoteProvider, flags FlagReader, sinks *recorder) *Engine {
	cfg := EngineConfig{
		Ledger:     p.ledger,
		Aggregator: agg,
		Flags:      flags,
		Risk:       DefaultRiskConfig(),
		Logger:     quietLogger(),
	}
	if sinks != nil {
		cfg.Executor = ExecutorConfig{Cache: sinks, Publisher: sinks, Store: sinks}
	}
	eng, err := NewEngine(cfg)
	require.NoError(t, err)
	return eng
}

// ixStep names a compiled instruction by program and opcode
type ixStep struct {
	kind    string
	account solana.PublicKey // first account, the one acted on
}

func compiledSteps(t *testing.T, tx *solana.Transaction) []ixStep {
	t.Helper()

	keys := tx.Message.AccountKeys
	steps := make([]ixStep, 0, len(tx.Message.Instructions))
	for _, ci := range tx.Message.Instructions {
		prog := keys[ci.ProgramIDIndex]
		step := ixStep{}
		switch {
		case prog.Equals(solana.SPLAssociatedTokenAccountProgramID):
			step.kind = "create_ata"
			step.account = keys[ci.Accounts[1]]
		case prog.Equals(solana.SystemProgramID):
			step.kind = "transfer"
			step.account = keys[ci.Accounts[1]]
		case prog.Equals(cpmm.TokenProgramID) && len(ci.Data) > 0 && ci.Data[0] == 17:
			step.kind = "sync_native"
			step.account = keys[ci.Accounts[0]]
		case prog.Equals(cpmm.TokenProgramID) && len(ci.Data) > 0 && ci.Data[0] == 9:
			step.kind = "close"
			step.account = keys[ci.Accounts[0]]
		case prog.Equals(cpmm.ProgramID):
			step.kind = "swap"
		default:
			step.kind = "unknown:" + prog.String()
		}
		steps = append(steps, step)
	}
	return steps
}

func kinds(steps []ixStep) []string {
	out := make([]string, len(steps))
	for i, s := range steps {
		out[i] = s.kind
	}
	return out
}

// serializedTx builds a signed-shape legacy transaction the way an
// aggregator would return it.
func serializedTx(t *testing.T, payer solana.PublicKey) []byte {
	ix, err := NewSystemTransferIx(payer, newKey(), 1)
	require.NoError(t, err)

	tx, err := solana.NewTransaction([]solana.Instruction{ix}, solana.HashFromBytes(newKey().Bytes()), solana.TransactionPayer(payer))
	require.NoError(t, err)

	raw, err := tx.MarshalBinary()
	require.NoError(t, err)
	return raw
}
