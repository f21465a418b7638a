package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/aman-zulfiqar/cpmm-direct-swap/internal/jupiter"
)

func splitCSVQuery(values []string) []string {
	var out []string
	for _, v := range values {
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

// queryParser collects the first invalid query parameter
type queryParser struct {
	c       echo.Context
	field   string
	problem string
}

func (q *queryParser) fail(field, problem string) {
	if q.field == "" {
		q.field, q.problem = field, problem
	}
}

func (q *queryParser) str(name string) string {
	return strings.TrimSpace(q.c.QueryParam(name))
}

func (q *queryParser) oneOf(name string, allowed ...string) string {
	v := q.str(name)
	if v == "" {
		return ""
	}
	for _, a := range allowed {
		if v == a {
			return v
		}
	}
	q.fail(name, "must be one of "+strings.Join(allowed, ", "))
	return ""
}

func (q *queryParser) boolPtr(name string) *bool {
	v := q.str(name)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		q.fail(name, "must be boolean")
		return nil
	}
	return &b
}

func (q *queryParser) uint16Ptr(name string) *uint16 {
	v := q.str(name)
	if v == "" {
		return nil
	}
	n, err := strconv.ParseUint(v, 10, 16)
	if err != nil {
		q.fail(name, "must be uint16")
		return nil
	}
	out := uint16(n)
	return &out
}

func (q *queryParser) uint64Ptr(name string) *uint64 {
	v := q.str(name)
	if v == "" {
		return nil
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		q.fail(name, "must be uint64")
		return nil
	}
	return &n
}

// Quote proxies the Jupiter quote API, for comparing aggregator pricing
// with a direct pool quote.
func (h *Handlers) Quote(c echo.Context) error {
	if h.Jupiter == nil {
		return h.err(c, http.StatusServiceUnavailable, "jupiter is not configured", nil)
	}

	q := &queryParser{c: c}
	req := jupiter.QuoteRequest{
		InputMint:                  q.str("inputMint"),
		OutputMint:                 q.str("outputMint"),
		Amount:                     q.str("amount"),
		SlippageBps:                q.uint16Ptr("slippageBps"),
		SwapMode:                   q.oneOf("swapMode", "ExactIn", "ExactOut"),
		Dexes:                      splitCSVQuery(c.QueryParams()["dexes"]),
		ExcludeDexes:               splitCSVQuery(c.QueryParams()["excludeDexes"]),
		RestrictIntermediateTokens: q.boolPtr("restrictIntermediateTokens"),
		OnlyDirectRoutes:           q.boolPtr("onlyDirectRoutes"),
		AsLegacyTransaction:        q.boolPtr("asLegacyTransaction"),
		PlatformFeeBps:             q.uint16Ptr("platformFeeBps"),
		MaxAccounts:                q.uint64Ptr("maxAccounts"),
		InstructionVersion:         q.oneOf("instructionVersion", "V1", "V2"),
		DynamicSlippage:            q.boolPtr("dynamicSlippage"),
	}

	switch {
	case req.InputMint == "":
		q.fail("inputMint", "required")
	case req.OutputMint == "":
		q.fail("outputMint", "required")
	}
	if _, err := strconv.ParseUint(req.Amount, 10, 64); err != nil {
		q.fail("amount", "must be uint64")
	}
	if q.field != "" {
		return h.err(c, http.StatusBadRequest, "invalid "+q.field, map[string]any{q.field: q.problem})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	out, err := h.Jupiter.Quote(ctx, req)
	if err != nil {
		return h.err(c, http.StatusBadGateway, "jupiter quote failed", map[string]any{"err": err.Error()})
	}

	return c.JSON(http.StatusOK, out)
}
