package commands

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HydroBlockchain/keresverse-market/internal/wallet"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRoot()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestConfigShowUsesFile(t *testing.T) {
	t.Setenv("MARKET_RPC_URL", "")
	t.Setenv("MARKET_ARTIFACTS_DIR", "")
	path := filepath.Join("..", "..", "..", "internal", "config", "testdata", "config.yaml")

	out, err := execute(t, "config", "show", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "name: market-test")
	assert.Contains(t, out, "price_wei: 10 ether")
}

func TestConfigShowFallsBackToDefaults(t *testing.T) {
	t.Setenv("MARKET_RPC_URL", "http://example:8545")

	out, err := execute(t, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "rpc_url: http://example:8545")
	assert.Contains(t, out, "token_uri: sample ipfs url")
}

func TestExplicitMissingConfigFails(t *testing.T) {
	_, err := execute(t, "config", "show", "--config", filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestRunNeedsKeys(t *testing.T) {
	t.Setenv("OWNER_PRIVATE_KEY", "")
	t.Setenv("BUYER_PRIVATE_KEY", "")

	_, err := execute(t, "run")
	require.True(t, errors.Is(err, wallet.ErrKeyMissing), "got %v", err)
}

func TestArgumentValidation(t *testing.T) {
	_, err := execute(t, "balance", "0xnothex")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "not an address"), err.Error())

	_, err = execute(t, "order", "0x737554B2685FA84898c4F166b9F3e88E22Ef5435", "-1")
	require.Error(t, err)

	_, err = execute(t, "run", "extra")
	require.Error(t, err)
}
