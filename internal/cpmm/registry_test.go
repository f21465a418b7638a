package cpmm

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolRegistry(t *testing.T) {
	pool := newKey()
	mint := newKey()

	content := `[{"name":"SOL-TEST","pool":"` + pool.String() + `","token_mint":"` + mint.String() + `","decimals":6}]`
	path := filepath.Join(t.TempDir(), "pools.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	r, err := NewPoolRegistry(path)
	require.NoError(t, err)
	assert.Equal(t, 1, r.Len())

	byName, err := r.FindByName("SOL-TEST")
	require.NoError(t, err)
	assert.Equal(t, pool, byName.Pool)
	assert.Equal(t, uint8(6), byName.Decimals)

	byMint, err := r.FindByTokenMint(mint)
	require.NoError(t, err)
	assert.Equal(t, "SOL-TEST", byMint.Name)

	_, err = r.FindByName("nope")
	assert.Error(t, err)
	_, err = r.FindByTokenMint(newKey())
	assert.Error(t, err)
}

func TestParsePoolRegistry_Invalid(t *testing.T) {
	_, err := ParsePoolRegistry([]byte(`[{"name":"x","pool":"bad","token_mint":"bad"}]`))
	assert.Error(t, err)

	_, err = ParsePoolRegistry([]byte(`[{"pool":"` + newKey().String() + `","token_mint":"` + newKey().String() + `"}]`))
	assert.Error(t, err)

	k := newKey().String()
	_, err = ParsePoolRegistry([]byte(`[{"name":"a","pool":"` + k + `","token_mint":"` + k + `"},{"name":"a","pool":"` + k + `","token_mint":"` + k + `"}]`))
	assert.Error(t, err)
}
