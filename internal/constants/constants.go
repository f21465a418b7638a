package constants

import "time"

// Redis keys
const (
	RedisKeyRecentSwaps = "swaps:recent"
)

// Redis Pub/Sub channels
const (
	PubSubChannelSwaps       = "swaps:all"
	PubSubChannelRoutePrefix = "swaps:route:"
	PubSubChannelPoolPrefix  = "swaps:pool:"
)

// Limits
const (
	MaxRecentSwaps = 100

	// Pool activity polling
	SignatureBatchSize  = 25
	MaxSignaturePages   = 40
	DelayBetweenTxFetch = 200 * time.Millisecond
)

// Feature flags
const (
	FlagDirectSwapEnabled = "direct_swap.enabled"
)

// RouteOnchain marks swaps observed on a pool rather than executed here
const RouteOnchain = "onchain"

// DEX labels recorded with each swap
const (
	DexRaydiumCPMM = "RaydiumCPMM"
	DexJupiter     = "Jupiter"
)

// Token mint addresses to symbols, for display only
var TokenSymbols = map[string]string{
	"So11111111111111111111111111111111111111112":  "SOL",
	"EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v": "USDC",
	"Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB": "USDT",
	"mSoLzYCxHdYgdzU16g5QSh3i5K3z3KZK7ytfqcJm7So":  "mSOL",
	"DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263": "BONK",
	"JUPyiwrYJFskUPiHa7hkeR8VUtAeFoSYbKedZNsDvCN":  "JUP",
	"4k3Dyjzvzp8eMZWUXbBCjEvwSkkk59S5iCNLY3QrkX6R": "RAY",
}

// Symbol returns the display symbol for a mint, or the mint itself
func Symbol(mint string) string {
	if s, ok := TokenSymbols[mint]; ok {
		return s
	}
	return mint
}
