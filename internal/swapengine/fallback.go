package swapengine

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"github.com/aman-zulfiqar/cpmm-direct-swap/internal/jupiter"
)

// ErrAggregatorFailed wraps every failure of the aggregator route
var ErrAggregatorFailed = errors.New("aggregator failed")

// JupiterProvider adapts the Jupiter ultra API to QuoteProvider
type JupiterProvider struct {
	client *jupiter.Client
}

func NewJupiterProvider(client *jupiter.Client) *JupiterProvider {
	return &JupiterProvider{client: client}
}

func (p *JupiterProvider) GetOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	res, err := p.client.Order(ctx, jupiter.OrderRequest{
		InputMint:  req.InputMint.String(),
		OutputMint: req.OutputMint.String(),
		Amount:     strconv.FormatUint(req.Amount, 10),
		Taker:      req.Taker.String(),
	})
	if err != nil {
		return nil, err
	}

	order := &Order{RequestID: res.RequestID, Error: res.ErrorMessage}

	if res.OutAmount != "" {
		out, err := strconv.ParseUint(res.OutAmount, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid jupiter outAmount %q: %w", res.OutAmount, err)
		}
		order.OutAmount = out
	}

	if res.Transaction != "" {
		raw, err := base64.StdEncoding.DecodeString(res.Transaction)
		if err != nil {
			return nil, fmt.Errorf("invalid jupiter transaction encoding: %w", err)
		}
		order.Transaction = raw
	}

	return order, nil
}

// buildAggregatorSwap asks the provider for a transaction and decodes it
func buildAggregatorSwap(ctx context.Context, provider QuoteProvider, req *SwapRequest) (*BuildResult, error) {
	if provider == nil {
		return nil, fmt.Errorf("%w: no aggregator configured", ErrAggregatorFailed)
	}

	inputMint, outputMint := req.Mints()
	order, err := provider.GetOrder(ctx, OrderRequest{
		InputMint:  inputMint,
		OutputMint: outputMint,
		Amount:     req.AmountIn,
		Taker:      req.Signer,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: order: %w", ErrAggregatorFailed, err)
	}
	if order.Error != "" {
		return nil, fmt.Errorf("%w: order: %s", ErrAggregatorFailed, order.Error)
	}
	if len(order.Transaction) == 0 {
		return nil, fmt.Errorf("%w: no transaction returned", ErrAggregatorFailed)
	}

	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(order.Transaction))
	if err != nil {
		return nil, fmt.Errorf("%w: decode transaction: %w", ErrAggregatorFailed, err)
	}

	return &BuildResult{
		Route:       RouteAggregator,
		Transaction: tx,
		Order:       order,
	}, nil
}
