package server

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/aman-zulfiqar/cpmm-direct-swap/internal/cpmm"
	"github.com/aman-zulfiqar/cpmm-direct-swap/internal/jupiter"
	"github.com/aman-zulfiqar/cpmm-direct-swap/internal/rpc"
	"github.com/aman-zulfiqar/cpmm-direct-swap/internal/swapengine"
)

// NotFoundJSON returns a custom HTTP error handler that returns JSON responses
// This ensures all errors (including 404s) have consistent JSON format
func NotFoundJSON() echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var he *echo.HTTPError
		if errors.As(err, &he) {
			_ = c.JSON(he.Code, ErrorResponse{
				Error: http.StatusText(he.Code),
				Code:  he.Code,
			})
			return
		}

		_ = c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "internal server error",
			Code:  http.StatusInternalServerError,
		})
	}
}

// statusForSwapError maps pipeline errors to HTTP status codes
func statusForSwapError(err error) int {
	var rpcErr *rpc.RPCError
	var jupErr *jupiter.HTTPError

	switch {
	case errors.Is(err, cpmm.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, cpmm.ErrWrongOwner),
		errors.Is(err, cpmm.ErrMalformedAccount),
		errors.Is(err, cpmm.ErrInvalidPool),
		errors.Is(err, cpmm.ErrIlliquidPool):
		return http.StatusUnprocessableEntity
	case errors.Is(err, swapengine.ErrAggregatorFailed),
		errors.As(err, &rpcErr),
		errors.As(err, &jupErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
