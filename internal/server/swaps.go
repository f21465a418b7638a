package server

import (
	"context"
	"encoding/base64"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/cpmm-direct-swap/internal/cpmm"
	"github.com/aman-zulfiqar/cpmm-direct-swap/internal/swapengine"
)

// SwapService is what the API needs from the swap engine
type SwapService interface {
	CheckDirectSwapEligible(ctx context.Context, pool *solana.PublicKey) bool
	Quote(ctx context.Context, req *swapengine.SwapRequest) (*cpmm.SwapQuote, error)
	BuildSwap(ctx context.Context, req *swapengine.SwapRequest) (*swapengine.BuildResult, error)
	RiskStatus() swapengine.RiskStatus
}

var _ SwapService = (*swapengine.Engine)(nil)

// PoolEligible reports whether a pool takes the direct route
func (h *Handlers) PoolEligible(c echo.Context) error {
	pool, err := solana.PublicKeyFromBase58(c.Param("pool"))
	if err != nil {
		return h.err(c, http.StatusBadRequest, "invalid pool", map[string]any{"pool": err.Error()})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	return c.JSON(http.StatusOK, EligibilityResponse{
		Pool:     pool.String(),
		Eligible: h.Swaps.CheckDirectSwapEligible(ctx, &pool),
	})
}

// PoolQuote prices a swap against the pool's live reserves.
// Query: token_mint, direction (buy|sell), amount, optional min_amount_out.
func (h *Handlers) PoolQuote(c echo.Context) error {
	req, details := parseSwapRequest(BuildSwapRequest{
		Pool:         c.Param("pool"),
		TokenMint:    c.QueryParam("token_mint"),
		Direction:    c.QueryParam("direction"),
		AmountIn:     c.QueryParam("amount"),
		MinAmountOut: optionalParam(c.QueryParam("min_amount_out")),
		Signer:       c.QueryParam("signer"),
	}, false)
	if details != nil {
		return h.err(c, http.StatusBadRequest, "invalid quote request", details)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	quote, err := h.Swaps.Quote(ctx, req)
	if err != nil {
		return h.swapErr(c, "quote failed", err)
	}
	return c.JSON(http.StatusOK, quoteResponse(quote))
}

// BuildSwap returns an unsigned transaction for the request, routed direct
// when the pool qualifies and through the aggregator otherwise.
func (h *Handlers) BuildSwap(c echo.Context) error {
	var body BuildSwapRequest
	if err := c.Bind(&body); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}

	req, details := parseSwapRequest(body, true)
	if details != nil {
		return h.err(c, http.StatusBadRequest, "invalid swap request", details)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 20*time.Second)
	defer cancel()

	built, err := h.Swaps.BuildSwap(ctx, req)
	if err != nil {
		return h.swapErr(c, "build failed", err)
	}

	encoded, err := encodeUnsigned(built.Transaction)
	if err != nil {
		return h.swapErr(c, "encode failed", err)
	}

	resp := BuildSwapResponse{
		Route:       string(built.Route),
		Transaction: encoded,
	}
	if built.Quote != nil {
		resp.Quote = quoteResponse(built.Quote)
		resp.ExpectedOut = strconv.FormatUint(built.Quote.AmountOut, 10)
		resp.MinAmountOut = strconv.FormatUint(built.Quote.MinAmountOut, 10)
	}
	if built.Order != nil {
		resp.RequestID = built.Order.RequestID
		resp.ExpectedOut = strconv.FormatUint(built.Order.OutAmount, 10)
	}
	for _, acct := range built.CreatedAccounts {
		resp.CreatedAccounts = append(resp.CreatedAccounts, acct.String())
	}

	h.log().WithFields(logrus.Fields{
		"route":  resp.Route,
		"pool":   body.Pool,
		"signer": body.Signer,
	}).Info("swap built")

	return c.JSON(http.StatusOK, resp)
}

// Risk returns current risk limits and usage
func (h *Handlers) Risk(c echo.Context) error {
	return c.JSON(http.StatusOK, h.Swaps.RiskStatus())
}

func (h *Handlers) swapErr(c echo.Context, msg string, err error) error {
	code := statusForSwapError(err)
	if code >= http.StatusInternalServerError {
		h.log().WithError(err).Error(msg)
	}
	return h.err(c, code, msg, map[string]any{"err": err.Error()})
}

// parseSwapRequest validates wire fields. details is nil when req is usable.
func parseSwapRequest(body BuildSwapRequest, needSigner bool) (*swapengine.SwapRequest, map[string]any) {
	details := map[string]any{}
	req := &swapengine.SwapRequest{}

	var err error
	if body.Pool != "" {
		if req.Pool, err = solana.PublicKeyFromBase58(strings.TrimSpace(body.Pool)); err != nil {
			details["pool"] = "invalid public key"
		}
	}
	if req.TokenMint, err = solana.PublicKeyFromBase58(strings.TrimSpace(body.TokenMint)); err != nil {
		details["token_mint"] = "invalid public key"
	} else if req.TokenMint.Equals(cpmm.WrappedSOLMint) {
		details["token_mint"] = "must not be wSOL"
	}
	if req.Direction, err = swapengine.ParseDirection(body.Direction); err != nil {
		details["direction"] = "must be buy or sell"
	}
	if req.AmountIn, err = strconv.ParseUint(strings.TrimSpace(body.AmountIn), 10, 64); err != nil || req.AmountIn == 0 {
		details["amount_in"] = "must be a positive uint64"
	}
	if body.MinAmountOut != nil {
		minOut, err := strconv.ParseUint(strings.TrimSpace(*body.MinAmountOut), 10, 64)
		if err != nil {
			details["min_amount_out"] = "must be uint64"
		}
		req.MinAmountOut = &minOut
	}

	switch {
	case body.Signer != "":
		if req.Signer, err = solana.PublicKeyFromBase58(strings.TrimSpace(body.Signer)); err != nil {
			details["signer"] = "invalid public key"
		}
	case needSigner:
		details["signer"] = "required"
	default:
		// quotes do not sign; any non-zero key satisfies validation
		req.Signer = cpmm.ProgramID
	}

	if len(details) > 0 {
		return nil, details
	}
	return req, nil
}

func optionalParam(v string) *string {
	if v = strings.TrimSpace(v); v == "" {
		return nil
	}
	return &v
}

func quoteResponse(q *cpmm.SwapQuote) *PoolQuoteResponse {
	return &PoolQuoteResponse{
		Pool:           q.Pool.String(),
		InputMint:      q.InputMint.String(),
		OutputMint:     q.OutputMint.String(),
		AmountIn:       strconv.FormatUint(q.AmountIn, 10),
		AmountOut:      strconv.FormatUint(q.AmountOut, 10),
		MinAmountOut:   strconv.FormatUint(q.MinAmountOut, 10),
		ReserveIn:      strconv.FormatUint(q.ReserveIn, 10),
		ReserveOut:     strconv.FormatUint(q.ReserveOut, 10),
		PriceImpactBps: q.PriceImpactBps,
	}
}

// encodeUnsigned serializes tx with zeroed signature slots so wallets can
// fill them in.
func encodeUnsigned(tx *solana.Transaction) (string, error) {
	if len(tx.Signatures) == 0 {
		tx.Signatures = make([]solana.Signature, tx.Message.Header.NumRequiredSignatures)
	}
	raw, err := tx.MarshalBinary()
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}
