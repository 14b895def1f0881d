// Package chain talks to an Ethereum JSON-RPC node: it deploys contracts, sends
// signed transactions, waits for receipts, and performs read-only calls.
package chain

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog"

	"github.com/HydroBlockchain/keresverse-market/internal/artifact"
	"github.com/HydroBlockchain/keresverse-market/internal/metrics"
	"github.com/HydroBlockchain/keresverse-market/internal/wallet"
)

var (
	// ErrReverted is returned when a mined transaction has a failed status.
	ErrReverted = errors.New("transaction reverted")
	// ErrReceiptTimeout is returned when no receipt shows up within the wait budget.
	ErrReceiptTimeout = errors.New("timed out waiting for receipt")
	// ErrNoCode is returned when a deployment leaves no runtime code behind.
	ErrNoCode = errors.New("no contract code after deployment")
)

// Backend is the subset of ethclient.Client the flow relies on.
type Backend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error)
}

// Client signs and submits transactions through a Backend.
type Client struct {
	backend        Backend
	log            zerolog.Logger
	receiptTimeout time.Duration
	pollInterval   time.Duration
	gasMultiplier  float64

	mu      sync.Mutex
	chainID *big.Int
}

// Option configures Client construction parameters.
type Option func(*Client)

const (
	defaultReceiptTimeout = time.Minute
	defaultPollInterval   = 250 * time.Millisecond
	defaultGasMultiplier  = 1.2
)

// WithLogger attaches a logger for per-transaction lines.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) { c.log = log }
}

// WithReceiptTimeout bounds how long a single transaction may stay unmined.
func WithReceiptTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.receiptTimeout = d
		}
	}
}

// WithPollInterval overrides the receipt polling cadence.
func WithPollInterval(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

// WithGasMultiplier pads gas estimates; values below 1 are ignored.
func WithGasMultiplier(m float64) Option {
	return func(c *Client) {
		if m >= 1 {
			c.gasMultiplier = m
		}
	}
}

// WithChainID pins the chain id instead of asking the node.
func WithChainID(id int64) Option {
	return func(c *Client) {
		if id > 0 {
			c.chainID = big.NewInt(id)
		}
	}
}

// New wraps an existing backend.
func New(backend Backend, opts ...Option) *Client {
	c := &Client{
		backend:        backend,
		log:            zerolog.Nop(),
		receiptTimeout: defaultReceiptTimeout,
		pollInterval:   defaultPollInterval,
		gasMultiplier:  defaultGasMultiplier,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Dial connects to a node over http(s), ws(s) or IPC.
func Dial(ctx context.Context, rpcURL string, opts ...Option) (*Client, func(), error) {
	ec, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, nil, fmt.Errorf("dial %s: %w", rpcURL, err)
	}
	return New(ec, opts...), ec.Close, nil
}

// ChainID returns the pinned id or asks the node once.
func (c *Client) ChainID(ctx context.Context) (*big.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.chainID != nil {
		return new(big.Int).Set(c.chainID), nil
	}
	id, err := c.backend.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("chain id: %w", err)
	}
	c.chainID = id
	return new(big.Int).Set(id), nil
}

// Balance returns the native balance of account at the latest block.
func (c *Client) Balance(ctx context.Context, account common.Address) (*big.Int, error) {
	bal, err := c.backend.BalanceAt(ctx, account, nil)
	if err != nil {
		return nil, fmt.Errorf("balance of %s: %w", account.Hex(), err)
	}
	return bal, nil
}

// Deploy sends the factory bytecode with packed constructor arguments and waits
// until the contract is mined and has code.
func (c *Client) Deploy(ctx context.Context, signer *wallet.Signer, factory *artifact.Factory, args ...any) (*Contract, *types.Receipt, error) {
	inputs, err := CoerceArgs(factory.ABI.Constructor.Inputs, args)
	if err != nil {
		return nil, nil, fmt.Errorf("deploy %s: %w", factory.Name, err)
	}
	packed, err := factory.ABI.Pack("", inputs...)
	if err != nil {
		return nil, nil, fmt.Errorf("deploy %s: pack constructor: %w", factory.Name, err)
	}
	data := make([]byte, 0, len(factory.Bytecode)+len(packed))
	data = append(data, factory.Bytecode...)
	data = append(data, packed...)

	receipt, err := c.send(ctx, signer, nil, nil, data, "deploy")
	if err != nil {
		return nil, nil, fmt.Errorf("deploy %s: %w", factory.Name, err)
	}
	address := receipt.ContractAddress
	code, err := c.backend.CodeAt(ctx, address, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("deploy %s: code at %s: %w", factory.Name, address.Hex(), err)
	}
	if len(code) == 0 {
		return nil, nil, fmt.Errorf("deploy %s at %s: %w", factory.Name, address.Hex(), ErrNoCode)
	}

	metrics.DeploymentsTotal.WithLabelValues(factory.Name).Inc()
	c.log.Info().Str("contract", factory.Name).Str("address", address.Hex()).Str("tx", receipt.TxHash.Hex()).Uint64("gas", receipt.GasUsed).Msg("contract deployed")
	return Bind(factory.Name, address, factory.ABI), receipt, nil
}

// Transact calls a state-changing method, optionally carrying value, and waits for it to be mined.
func (c *Client) Transact(ctx context.Context, signer *wallet.Signer, contract *Contract, value *big.Int, method string, args ...any) (*types.Receipt, error) {
	data, err := contract.Pack(method, args...)
	if err != nil {
		return nil, err
	}
	to := contract.Address
	receipt, err := c.send(ctx, signer, &to, value, data, method)
	if err != nil {
		return nil, fmt.Errorf("%s.%s: %w", contract.Name, method, err)
	}
	c.log.Info().Str("contract", contract.Name).Str("method", method).Str("from", signer.Address.Hex()).Str("tx", receipt.TxHash.Hex()).Uint64("gas", receipt.GasUsed).Msg("transaction mined")
	return receipt, nil
}

// Call performs a read-only invocation and returns the unpacked outputs.
func (c *Client) Call(ctx context.Context, contract *Contract, method string, args ...any) ([]any, error) {
	data, err := contract.Pack(method, args...)
	if err != nil {
		return nil, err
	}
	to := contract.Address
	out, err := c.backend.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("%s.%s: call: %w", contract.Name, method, err)
	}
	values, err := contract.ABI.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("%s.%s: unpack: %w", contract.Name, method, err)
	}
	return values, nil
}

func (c *Client) send(ctx context.Context, signer *wallet.Signer, to *common.Address, value *big.Int, data []byte, method string) (*types.Receipt, error) {
	if value == nil {
		value = new(big.Int)
	}
	chainID, err := c.ChainID(ctx)
	if err != nil {
		return nil, err
	}
	nonce, err := c.backend.PendingNonceAt(ctx, signer.Address)
	if err != nil {
		return nil, fmt.Errorf("nonce of %s: %w", signer.Address.Hex(), err)
	}
	gasPrice, err := c.backend.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("gas price: %w", err)
	}
	estimate, err := c.backend.EstimateGas(ctx, ethereum.CallMsg{From: signer.Address, To: to, Value: value, Data: data})
	if err != nil {
		metrics.TxTotal.WithLabelValues(method, "rejected").Inc()
		return nil, fmt.Errorf("estimate gas: %w", err)
	}
	gas := uint64(math.Ceil(float64(estimate) * c.gasMultiplier))

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      gas,
		To:       to,
		Value:    value,
		Data:     data,
	})
	signed, err := types.SignTx(tx, types.NewEIP155Signer(chainID), signer.Key)
	if err != nil {
		return nil, fmt.Errorf("sign: %w", err)
	}
	if err := c.backend.SendTransaction(ctx, signed); err != nil {
		metrics.TxTotal.WithLabelValues(method, "rejected").Inc()
		return nil, fmt.Errorf("send: %w", err)
	}
	c.log.Debug().Str("method", method).Str("tx", signed.Hash().Hex()).Uint64("nonce", nonce).Uint64("gas_limit", gas).Msg("transaction sent")

	receipt, err := c.WaitMined(ctx, signed.Hash())
	if err != nil {
		metrics.TxTotal.WithLabelValues(method, "unconfirmed").Inc()
		return nil, err
	}
	metrics.GasUsedTotal.WithLabelValues(method).Add(float64(receipt.GasUsed))
	if receipt.Status != types.ReceiptStatusSuccessful {
		metrics.TxTotal.WithLabelValues(method, "reverted").Inc()
		return receipt, fmt.Errorf("tx %s: %w", receipt.TxHash.Hex(), ErrReverted)
	}
	metrics.TxTotal.WithLabelValues(method, "ok").Inc()
	return receipt, nil
}

// WaitMined polls for the receipt of hash until it appears or the receipt timeout elapses.
// A canceled or expired parent context is returned as is; ErrReceiptTimeout
// only reports the client's own receipt timeout.
func (c *Client) WaitMined(parent context.Context, hash common.Hash) (*types.Receipt, error) {
	ctx, cancel := context.WithTimeout(parent, c.receiptTimeout)
	defer cancel()

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()
	for {
		receipt, err := c.backend.TransactionReceipt(ctx, hash)
		if err == nil && receipt != nil {
			return receipt, nil
		}
		if err != nil && !errors.Is(err, ethereum.NotFound) {
			if ctx.Err() == nil {
				return nil, fmt.Errorf("receipt %s: %w", hash.Hex(), err)
			}
		}
		select {
		case <-ctx.Done():
			if err := parent.Err(); err != nil {
				return nil, fmt.Errorf("tx %s: %w", hash.Hex(), err)
			}
			return nil, fmt.Errorf("tx %s after %s: %w", hash.Hex(), c.receiptTimeout, ErrReceiptTimeout)
		case <-ticker.C:
		}
	}
}
