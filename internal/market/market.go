// Package market wraps the token and marketplace contracts with typed calls.
package market

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/HydroBlockchain/keresverse-market/internal/artifact"
	"github.com/HydroBlockchain/keresverse-market/internal/chain"
	"github.com/HydroBlockchain/keresverse-market/internal/wallet"
)

// Methods each factory must expose for the flow to run.
var (
	TokenMethods       = []string{"setApprovalForAll", "balanceOf"}
	MarketplaceMethods = []string{"setSaleOrder", "checkOrder", "fulfillOrder"}
)

// Token is the multi-token contract listed on the marketplace.
type Token struct {
	client   *chain.Client
	contract *chain.Contract
}

// DeployToken deploys the token factory with its metadata uri.
func DeployToken(ctx context.Context, client *chain.Client, owner *wallet.Signer, factory *artifact.Factory, uri string) (*Token, error) {
	if err := factory.HasMethods(TokenMethods...); err != nil {
		return nil, err
	}
	contract, _, err := client.Deploy(ctx, owner, factory, uri)
	if err != nil {
		return nil, err
	}
	return &Token{client: client, contract: contract}, nil
}

// NewToken binds an already deployed token.
func NewToken(client *chain.Client, contract *chain.Contract) *Token {
	return &Token{client: client, contract: contract}
}

// Address returns the deployed address.
func (t *Token) Address() common.Address { return t.contract.Address }

// SetApprovalForAll lets operator move every token id owned by signer.
func (t *Token) SetApprovalForAll(ctx context.Context, signer *wallet.Signer, operator common.Address, approved bool) (*types.Receipt, error) {
	return t.client.Transact(ctx, signer, t.contract, nil, "setApprovalForAll", operator, approved)
}

// BalanceOf returns how many units of id account holds.
func (t *Token) BalanceOf(ctx context.Context, account common.Address, id *big.Int) (*big.Int, error) {
	out, err := t.client.Call(ctx, t.contract, "balanceOf", account, id)
	if err != nil {
		return nil, err
	}
	if len(out) != 1 {
		return nil, fmt.Errorf("balanceOf returned %d values", len(out))
	}
	bal, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("balanceOf returned %T", out[0])
	}
	return bal, nil
}

// SaleOrder is the argument list of setSaleOrder.
type SaleOrder struct {
	TokenContract common.Address
	TokenID       *big.Int
	Quantity      *big.Int
	Active        bool
	Price         *big.Int
	StartTime     *big.Int
	Duration      *big.Int
}

// Marketplace is the contract that holds sale orders and settles purchases.
type Marketplace struct {
	client   *chain.Client
	contract *chain.Contract
}

// DeployMarketplace deploys the marketplace factory with its single address argument.
func DeployMarketplace(ctx context.Context, client *chain.Client, owner *wallet.Signer, factory *artifact.Factory, arg common.Address) (*Marketplace, error) {
	if err := factory.HasMethods(MarketplaceMethods...); err != nil {
		return nil, err
	}
	contract, _, err := client.Deploy(ctx, owner, factory, arg)
	if err != nil {
		return nil, err
	}
	return &Marketplace{client: client, contract: contract}, nil
}

// NewMarketplace binds an already deployed marketplace.
func NewMarketplace(client *chain.Client, contract *chain.Contract) *Marketplace {
	return &Marketplace{client: client, contract: contract}
}

// Address returns the deployed address.
func (m *Marketplace) Address() common.Address { return m.contract.Address }

// SetSaleOrder registers an order signed by the seller.
func (m *Marketplace) SetSaleOrder(ctx context.Context, seller *wallet.Signer, o SaleOrder) (*types.Receipt, error) {
	return m.client.Transact(ctx, seller, m.contract, nil, "setSaleOrder",
		o.TokenContract, o.TokenID, o.Quantity, o.Active, o.Price, o.StartTime, o.Duration)
}

// CheckOrder reads the order record.
func (m *Marketplace) CheckOrder(ctx context.Context, id *big.Int) (*Order, error) {
	method, err := m.contract.Method("checkOrder")
	if err != nil {
		return nil, err
	}
	out, err := m.client.Call(ctx, m.contract, "checkOrder", id)
	if err != nil {
		return nil, err
	}
	return DecodeOrder(id, method.Outputs, out)
}

// FulfillOrder buys the order, paying value wei.
func (m *Marketplace) FulfillOrder(ctx context.Context, buyer *wallet.Signer, id, value *big.Int) (*types.Receipt, error) {
	return m.client.Transact(ctx, buyer, m.contract, value, "fulfillOrder", id)
}
