package cpmm

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/gagliardetto/solana-go"
)

// PoolEntryConfig represents a pool entry in the JSON registry file
type PoolEntryConfig struct {
	Name      string `json:"name"`
	Pool      string `json:"pool"`
	TokenMint string `json:"token_mint"`
	Decimals  uint8  `json:"decimals"`
}

// PoolEntry is a named CP-Swap pool pairing wSOL with TokenMint.
// Only addresses are registered; pool state is always read live.
type PoolEntry struct {
	Name      string
	Pool      solana.PublicKey
	TokenMint solana.PublicKey
	Decimals  uint8
}

// PoolRegistry holds all configured pools
type PoolRegistry struct {
	pools []PoolEntry
}

// NewPoolRegistry loads pools from a JSON file
func NewPoolRegistry(configPath string) (*PoolRegistry, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	pools, err := ParsePoolRegistry(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load pools: %w", err)
	}

	return &PoolRegistry{pools: pools}, nil
}

// ParsePoolRegistry parses and validates JSON registry content
func ParsePoolRegistry(data []byte) ([]PoolEntry, error) {
	var configs []PoolEntryConfig
	if err := json.Unmarshal(data, &configs); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	pools := make([]PoolEntry, 0, len(configs))
	seen := make(map[string]struct{}, len(configs))
	for i, cfg := range configs {
		entry, err := parsePoolEntry(cfg)
		if err != nil {
			return nil, fmt.Errorf("pool %d (%s): %w", i, cfg.Name, err)
		}
		if _, dup := seen[entry.Name]; dup {
			return nil, fmt.Errorf("pool %d: duplicate name %q", i, entry.Name)
		}
		seen[entry.Name] = struct{}{}
		pools = append(pools, entry)
	}

	return pools, nil
}

func parsePoolEntry(cfg PoolEntryConfig) (PoolEntry, error) {
	if cfg.Name == "" {
		return PoolEntry{}, fmt.Errorf("name is required")
	}

	pool, err := solana.PublicKeyFromBase58(cfg.Pool)
	if err != nil {
		return PoolEntry{}, fmt.Errorf("invalid pool address: %w", err)
	}
	mint, err := solana.PublicKeyFromBase58(cfg.TokenMint)
	if err != nil {
		return PoolEntry{}, fmt.Errorf("invalid token mint: %w", err)
	}

	return PoolEntry{
		Name:      cfg.Name,
		Pool:      pool,
		TokenMint: mint,
		Decimals:  cfg.Decimals,
	}, nil
}

// NewPoolRegistryFromEntries builds a registry from already parsed entries
func NewPoolRegistryFromEntries(entries []PoolEntry) *PoolRegistry {
	return &PoolRegistry{pools: entries}
}

// FindByTokenMint returns the first pool registered for the token
func (r *PoolRegistry) FindByTokenMint(mint solana.PublicKey) (*PoolEntry, error) {
	for i := range r.pools {
		if r.pools[i].TokenMint.Equals(mint) {
			return &r.pools[i], nil
		}
	}
	return nil, fmt.Errorf("no pool registered for mint %s", mint)
}

// FindByName searches for a pool by its name
func (r *PoolRegistry) FindByName(name string) (*PoolEntry, error) {
	for i := range r.pools {
		if r.pools[i].Name == name {
			return &r.pools[i], nil
		}
	}
	return nil, fmt.Errorf("pool not found: %s", name)
}

// All returns all registered pools
func (r *PoolRegistry) All() []PoolEntry {
	return r.pools
}

// Len returns the number of registered pools
func (r *PoolRegistry) Len() int {
	return len(r.pools)
}
