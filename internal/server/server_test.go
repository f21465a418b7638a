package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aman-zulfiqar/cpmm-direct-swap/internal/cpmm"
	"github.com/aman-zulfiqar/cpmm-direct-swap/internal/flags"
	"github.com/aman-zulfiqar/cpmm-direct-swap/internal/jupiter"
	"github.com/aman-zulfiqar/cpmm-direct-swap/internal/models"
	"github.com/aman-zulfiqar/cpmm-direct-swap/internal/rpc"
	"github.com/aman-zulfiqar/cpmm-direct-swap/internal/swapengine"
)

const testAPIKey = "test-api-key"

type fakeSwaps struct {
	eligible map[solana.PublicKey]bool
	quote    *cpmm.SwapQuote
	build    *swapengine.BuildResult
	err      error
	lastReq  *swapengine.SwapRequest
}

func (f *fakeSwaps) CheckDirectSwapEligible(_ context.Context, pool *solana.PublicKey) bool {
	return pool != nil && f.eligible[*pool]
}

func (f *fakeSwaps) Quote(_ context.Context, req *swapengine.SwapRequest) (*cpmm.SwapQuote, error) {
	f.lastReq = req
	return f.quote, f.err
}

func (f *fakeSwaps) BuildSwap(_ context.Context, req *swapengine.SwapRequest) (*swapengine.BuildResult, error) {
	f.lastReq = req
	return f.build, f.err
}

func (f *fakeSwaps) RiskStatus() swapengine.RiskStatus {
	return swapengine.RiskStatus{MaxSwapLamports: 1_000_000_000, DailyUsedLamports: 42}
}

type memFlags struct {
	mu    sync.Mutex
	items map[string]*flags.Flag
}

func (m *memFlags) Upsert(_ context.Context, key string, value bool) (*flags.Flag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f := &flags.Flag{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	m.items[key] = f
	return f, nil
}

func (m *memFlags) Get(_ context.Context, key string) (*flags.Flag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.items[key]
	if !ok {
		return nil, flags.ErrNotFound
	}
	return f, nil
}

func (m *memFlags) List(context.Context) ([]*flags.Flag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*flags.Flag, 0, len(m.items))
	for _, f := range m.items {
		out = append(out, f)
	}
	return out, nil
}

func (m *memFlags) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
	return nil
}

type memCache struct {
	items []*models.SwapEvent
}

func (m *memCache) AddRecentSwap(_ context.Context, ev *models.SwapEvent) error {
	m.items = append([]*models.SwapEvent{ev}, m.items...)
	return nil
}

func (m *memCache) GetRecentSwaps(_ context.Context, limit int64) ([]*models.SwapEvent, error) {
	if int64(len(m.items)) > limit {
		return m.items[:limit], nil
	}
	return m.items, nil
}

func (m *memCache) Ping(context.Context) error { return nil }
func (m *memCache) Close() error               { return nil }

func newTestServer(t *testing.T, swaps *fakeSwaps, opts ...func(*Handlers)) (*Server, *memFlags) {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	fl := &memFlags{items: map[string]*flags.Flag{}}
	h := &Handlers{
		Swaps:   swaps,
		Cache:   &memCache{items: []*models.SwapEvent{{Signature: "s1"}, {Signature: "s2"}}},
		Flags:   fl,
		DevMode: true,
		Logger:  logger,
	}
	for _, opt := range opts {
		opt(h)
	}

	srv, err := NewServer(ServerDeps{
		Handlers: h,
		Config:   ServerConfig{Addr: ":0", APIKey: testAPIKey, BuildRate: 1000, BuildBurst: 1000},
	})
	require.NoError(t, err)
	return srv, fl
}

func do(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", testAPIKey)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func sampleQuote(pool, mint solana.PublicKey) *cpmm.SwapQuote {
	return &cpmm.SwapQuote{
		Pool:           pool,
		InputMint:      cpmm.WrappedSOLMint,
		OutputMint:     mint,
		AmountIn:       1_000_000_000,
		AmountOut:      49874,
		MinAmountOut:   49375,
		ReserveIn:      500_000_000_000,
		ReserveOut:     250_000_000_000,
		PriceImpactBps: 19,
	}
}

func TestNewServer_RequiresSwaps(t *testing.T) {
	_, err := NewServer(ServerDeps{Handlers: &Handlers{}})
	assert.Error(t, err)
}

func TestHealth_NoAPIKeyNeeded(t *testing.T) {
	srv, _ := newTestServer(t, &fakeSwaps{})

	req := httptest.NewRequest(http.MethodGet, "/v1/health", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[HealthResponse](t, rec)
	assert.True(t, resp.OK)
	assert.True(t, resp.Redis)
}

func TestAPIKeyRequired(t *testing.T) {
	srv, _ := newTestServer(t, &fakeSwaps{})

	req := httptest.NewRequest(http.MethodGet, "/v1/risk", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req.Header.Set("X-API-Key", "wrong")
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPoolEligible(t *testing.T) {
	pool := solana.NewWallet().PublicKey()
	srv, _ := newTestServer(t, &fakeSwaps{eligible: map[solana.PublicKey]bool{pool: true}})

	rec := do(t, srv, http.MethodGet, "/v1/pools/"+pool.String()+"/eligible", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[EligibilityResponse](t, rec).Eligible)

	other := solana.NewWallet().PublicKey()
	rec = do(t, srv, http.MethodGet, "/v1/pools/"+other.String()+"/eligible", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[EligibilityResponse](t, rec).Eligible)

	rec = do(t, srv, http.MethodGet, "/v1/pools/not-a-key/eligible", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPoolQuote(t *testing.T) {
	pool := solana.NewWallet().PublicKey()
	mint := solana.NewWallet().PublicKey()
	swaps := &fakeSwaps{quote: sampleQuote(pool, mint)}
	srv, _ := newTestServer(t, swaps)

	path := fmt.Sprintf("/v1/pools/%s/quote?token_mint=%s&direction=buy&amount=1000000000", pool, mint)
	rec := do(t, srv, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decode[PoolQuoteResponse](t, rec)
	assert.Equal(t, "49874", resp.AmountOut)
	assert.Equal(t, "49375", resp.MinAmountOut)
	assert.Equal(t, uint64(19), resp.PriceImpactBps)

	require.NotNil(t, swaps.lastReq)
	assert.Equal(t, pool, swaps.lastReq.Pool)
	assert.Equal(t, swapengine.DirectionBuy, swaps.lastReq.Direction)
	assert.Nil(t, swaps.lastReq.MinAmountOut)
}

func TestPoolQuote_Validation(t *testing.T) {
	pool := solana.NewWallet().PublicKey()
	srv, _ := newTestServer(t, &fakeSwaps{})

	tests := map[string]string{
		"missing mint":  fmt.Sprintf("/v1/pools/%s/quote?direction=buy&amount=1", pool),
		"wsol mint":     fmt.Sprintf("/v1/pools/%s/quote?token_mint=%s&direction=buy&amount=1", pool, cpmm.WrappedSOLMint),
		"bad direction": fmt.Sprintf("/v1/pools/%s/quote?token_mint=%s&direction=hold&amount=1", pool, pool),
		"zero amount":   fmt.Sprintf("/v1/pools/%s/quote?token_mint=%s&direction=sell&amount=0", pool, pool),
	}
	for name, path := range tests {
		t.Run(name, func(t *testing.T) {
			rec := do(t, srv, http.MethodGet, path, nil)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestPoolQuote_ErrorMapping(t *testing.T) {
	pool := solana.NewWallet().PublicKey()
	mint := solana.NewWallet().PublicKey()
	path := fmt.Sprintf("/v1/pools/%s/quote?token_mint=%s&direction=buy&amount=5", pool, mint)

	tests := []struct {
		err  error
		code int
	}{
		{fmt.Errorf("read: %w", cpmm.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("read: %w", cpmm.ErrWrongOwner), http.StatusUnprocessableEntity},
		{fmt.Errorf("read: %w", cpmm.ErrMalformedAccount), http.StatusUnprocessableEntity},
		{fmt.Errorf("quote: %w", cpmm.ErrIlliquidPool), http.StatusUnprocessableEntity},
		{fmt.Errorf("quote: %w", cpmm.ErrInvalidPool), http.StatusUnprocessableEntity},
		{fmt.Errorf("rpc: %w", &rpc.RPCError{Code: -32000, Message: "boom"}), http.StatusBadGateway},
		{fmt.Errorf("%w: no route", swapengine.ErrAggregatorFailed), http.StatusBadGateway},
		{fmt.Errorf("something else"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			srv, _ := newTestServer(t, &fakeSwaps{err: tt.err})
			rec := do(t, srv, http.MethodGet, path, nil)
			assert.Equal(t, tt.code, rec.Code)
		})
	}
}

func TestBuildSwap_Direct(t *testing.T) {
	pool := solana.NewWallet().PublicKey()
	mint := solana.NewWallet().PublicKey()
	signer := solana.NewWallet().PublicKey()
	created := solana.NewWallet().PublicKey()

	ix, err := swapengine.NewSystemTransferIx(signer, created, 1)
	require.NoError(t, err)
	tx, err := solana.NewTransaction([]solana.Instruction{ix}, solana.Hash{7}, solana.TransactionPayer(signer))
	require.NoError(t, err)

	swaps := &fakeSwaps{build: &swapengine.BuildResult{
		Route:           swapengine.RouteDirect,
		Transaction:     tx,
		Quote:           sampleQuote(pool, mint),
		CreatedAccounts: []solana.PublicKey{created},
	}}
	srv, _ := newTestServer(t, swaps)

	minOut := "40000"
	rec := do(t, srv, http.MethodPost, "/v1/swaps/build", BuildSwapRequest{
		Pool:         pool.String(),
		TokenMint:    mint.String(),
		Direction:    "buy",
		AmountIn:     "1000000000",
		MinAmountOut: &minOut,
		Signer:       signer.String(),
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decode[BuildSwapResponse](t, rec)
	assert.Equal(t, "direct", resp.Route)
	assert.Equal(t, "49874", resp.ExpectedOut)
	assert.Equal(t, []string{created.String()}, resp.CreatedAccounts)

	raw, err := base64.StdEncoding.DecodeString(resp.Transaction)
	require.NoError(t, err)
	decoded, err := solana.TransactionFromBytes(raw)
	require.NoError(t, err)
	assert.Len(t, decoded.Signatures, 1)
	assert.Equal(t, signer, decoded.Message.AccountKeys[0])

	require.NotNil(t, swaps.lastReq.MinAmountOut)
	assert.Equal(t, uint64(40000), *swaps.lastReq.MinAmountOut)
	assert.Equal(t, signer, swaps.lastReq.Signer)
}

func TestBuildSwap_RequiresSigner(t *testing.T) {
	srv, _ := newTestServer(t, &fakeSwaps{})

	rec := do(t, srv, http.MethodPost, "/v1/swaps/build", BuildSwapRequest{
		TokenMint: solana.NewWallet().PublicKey().String(),
		Direction: "sell",
		AmountIn:  "10",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decode[ErrorResponse](t, rec)
	assert.Contains(t, fmt.Sprint(resp.Details), "signer")
}

func TestRecentSwaps(t *testing.T) {
	srv, _ := newTestServer(t, &fakeSwaps{})

	rec := do(t, srv, http.MethodGet, "/v1/swaps/recent?limit=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[SwapsRecentResponse](t, rec).Items, 1)

	rec = do(t, srv, http.MethodGet, "/v1/swaps/recent?limit=0", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRisk(t *testing.T) {
	srv, _ := newTestServer(t, &fakeSwaps{})

	rec := do(t, srv, http.MethodGet, "/v1/risk", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, uint64(42), decode[swapengine.RiskStatus](t, rec).DailyUsedLamports)
}

func TestFlagsCRUD(t *testing.T) {
	srv, _ := newTestServer(t, &fakeSwaps{})

	rec := do(t, srv, http.MethodPost, "/v1/flags", FlagUpsertRequest{Key: "direct_swap.enabled", Value: false})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, srv, http.MethodGet, "/v1/flags/direct_swap.enabled", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[flags.Flag](t, rec).Value)

	rec = do(t, srv, http.MethodPut, "/v1/flags/direct_swap.enabled", FlagUpdateRequest{Value: true})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[flags.Flag](t, rec).Value)

	rec = do(t, srv, http.MethodGet, "/v1/flags", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, srv, http.MethodDelete, "/v1/flags/direct_swap.enabled", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, srv, http.MethodGet, "/v1/flags/direct_swap.enabled", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, srv, http.MethodPost, "/v1/flags", FlagUpsertRequest{Key: "bad key"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestJupiterQuote_NotConfigured(t *testing.T) {
	srv, _ := newTestServer(t, &fakeSwaps{})

	rec := do(t, srv, http.MethodGet, "/v1/quote?inputMint=a&outputMint=b&amount=1", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestJupiterQuote_Validation(t *testing.T) {
	srv, _ := newTestServer(t, &fakeSwaps{}, func(h *Handlers) {
		h.Jupiter = jupiter.NewClient("http://127.0.0.1:1", "")
	})

	tests := map[string]string{
		"missing input": "/v1/quote?outputMint=b&amount=1",
		"bad amount":    "/v1/quote?inputMint=a&outputMint=b&amount=-1",
		"bad swap mode": "/v1/quote?inputMint=a&outputMint=b&amount=1&swapMode=Both",
		"bad slippage":  "/v1/quote?inputMint=a&outputMint=b&amount=1&slippageBps=70000",
	}
	for name, path := range tests {
		t.Run(name, func(t *testing.T) {
			rec := do(t, srv, http.MethodGet, path, nil)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestUnknownRoute(t *testing.T) {
	srv, _ := newTestServer(t, &fakeSwaps{})

	rec := do(t, srv, http.MethodGet, "/v1/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, http.StatusNotFound, decode[ErrorResponse](t, rec).Code)
}
