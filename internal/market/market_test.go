package market

import (
	"context"
	"math/big"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HydroBlockchain/keresverse-market/internal/artifact"
	"github.com/HydroBlockchain/keresverse-market/internal/chain"
	"github.com/HydroBlockchain/keresverse-market/internal/chain/chaintest"
	"github.com/HydroBlockchain/keresverse-market/internal/wallet"
)

var fixtures = filepath.Join("..", "..", "testdata", "artifacts")

type env struct {
	node    *chaintest.Node
	client  *chain.Client
	tim     *artifact.Factory
	market  *artifact.Factory
	owner   *wallet.Signer
	buyer   *wallet.Signer
	feeDest common.Address
}

func newEnv(t *testing.T) *env {
	t.Helper()
	tim, err := artifact.Find(fixtures, "TIM")
	require.NoError(t, err)
	mkt, err := artifact.Find(fixtures, "MarketPlace")
	require.NoError(t, err)

	node := chaintest.NewNode(31337)
	node.Register(tim.Bytecode, chaintest.TokenConstructor(tim.ABI, big.NewInt(1000)))
	node.Register(mkt.Bytecode, chaintest.MarketConstructor(mkt.ABI, 250))

	e := &env{
		node:    node,
		client:  chain.New(node, chain.WithPollInterval(time.Millisecond)),
		tim:     tim,
		market:  mkt,
		feeDest: common.HexToAddress("0x737554B2685FA84898c4F166b9F3e88E22Ef5435"),
	}
	for _, name := range []string{"owner", "buyer"} {
		key, err := crypto.GenerateKey()
		require.NoError(t, err)
		s := wallet.NewSigner(name, key)
		node.Fund(s.Address, new(big.Int).Mul(big.NewInt(100), big.NewInt(1e18)))
		if name == "owner" {
			e.owner = s
		} else {
			e.buyer = s
		}
	}
	return e
}

func TestSaleAndPurchase(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	token, err := DeployToken(ctx, e.client, e.owner, e.tim, "sample ipfs url")
	require.NoError(t, err)
	mkt, err := DeployMarketplace(ctx, e.client, e.owner, e.market, e.feeDest)
	require.NoError(t, err)

	_, err = token.SetApprovalForAll(ctx, e.owner, mkt.Address(), true)
	require.NoError(t, err)

	price, _ := new(big.Int).SetString("10000000000000000000", 10)
	_, err = mkt.SetSaleOrder(ctx, e.owner, SaleOrder{
		TokenContract: token.Address(),
		TokenID:       big.NewInt(0),
		Quantity:      big.NewInt(200),
		Active:        true,
		Price:         price,
		StartTime:     big.NewInt(0),
		Duration:      big.NewInt(12),
	})
	require.NoError(t, err)

	before, err := mkt.CheckOrder(ctx, big.NewInt(0))
	require.NoError(t, err)
	active, ok := before.Active()
	require.True(t, ok)
	assert.True(t, active)
	seller, _ := before.Get("seller")
	assert.Equal(t, e.owner.Address, seller)

	_, err = mkt.FulfillOrder(ctx, e.buyer, big.NewInt(0), price)
	require.NoError(t, err)

	after, err := mkt.CheckOrder(ctx, big.NewInt(0))
	require.NoError(t, err)
	active, ok = after.Active()
	require.True(t, ok)
	assert.False(t, active)

	bal, err := token.BalanceOf(ctx, e.buyer.Address, big.NewInt(0))
	require.NoError(t, err)
	assert.Equal(t, int64(200), bal.Int64())

	held, err := e.client.Balance(ctx, mkt.Address())
	require.NoError(t, err)
	assert.Equal(t, "250000000000000000", held.String())
}

func TestFulfillWrongValueReverts(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	token, err := DeployToken(ctx, e.client, e.owner, e.tim, "uri")
	require.NoError(t, err)
	mkt, err := DeployMarketplace(ctx, e.client, e.owner, e.market, e.feeDest)
	require.NoError(t, err)
	_, err = token.SetApprovalForAll(ctx, e.owner, mkt.Address(), true)
	require.NoError(t, err)
	_, err = mkt.SetSaleOrder(ctx, e.owner, SaleOrder{
		TokenContract: token.Address(), TokenID: big.NewInt(0), Quantity: big.NewInt(1),
		Active: true, Price: big.NewInt(1000), StartTime: big.NewInt(0), Duration: big.NewInt(12),
	})
	require.NoError(t, err)

	_, err = mkt.FulfillOrder(ctx, e.buyer, big.NewInt(0), big.NewInt(999))
	require.ErrorIs(t, err, chain.ErrReverted)

	order, err := mkt.CheckOrder(ctx, big.NewInt(0))
	require.NoError(t, err)
	active, _ := order.Active()
	assert.True(t, active, "failed purchase must leave the order active")
}

func TestDeployRejectsIncompatibleFactory(t *testing.T) {
	e := newEnv(t)
	_, err := DeployMarketplace(context.Background(), e.client, e.owner, e.tim, e.feeDest)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "setSaleOrder")
	assert.Empty(t, e.node.Sent())
}

func TestDecodeOrderMultiValue(t *testing.T) {
	addrT, _ := abi.NewType("address", "", nil)
	boolT, _ := abi.NewType("bool", "", nil)
	uintT, _ := abi.NewType("uint256", "", nil)
	outputs := abi.Arguments{{Name: "_seller", Type: addrT}, {Name: "", Type: uintT}, {Name: "active", Type: boolT}}

	seller := common.HexToAddress("0x00000000000000000000000000000000000000bb")
	order, err := DecodeOrder(big.NewInt(3), outputs, []any{seller, big.NewInt(42), false})
	require.NoError(t, err)

	v, ok := order.Get("seller")
	require.True(t, ok)
	assert.Equal(t, seller, v)
	n, ok := order.Big("field1")
	require.True(t, ok)
	assert.Equal(t, int64(42), n.Int64())
	active, ok := order.Active()
	assert.True(t, ok)
	assert.False(t, active)

	s := order.String()
	assert.True(t, strings.HasPrefix(s, "Order#3{"), s)
	assert.Contains(t, s, "field1: 42")
	assert.Contains(t, s, seller.Hex())

	_, err = DecodeOrder(big.NewInt(0), outputs, []any{seller})
	require.Error(t, err)
}
