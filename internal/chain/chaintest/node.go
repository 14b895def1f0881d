// Package chaintest provides an in-memory node that satisfies chain.Backend.
// Deployed contracts are emulated by Go programs registered per bytecode.
package chaintest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// GasPerTx is charged for every mined transaction regardless of its payload.
const GasPerTx = 50_000

// Program emulates the runtime of a deployed contract.
type Program interface {
	Exec(msg *Msg) ([]byte, error)
}

// Constructor builds a Program from creation arguments (calldata past the bytecode).
type Constructor func(msg *Msg, args []byte) (Program, error)

// RevertError mimics an EVM revert with a reason string.
type RevertError struct{ Reason string }

func (e *RevertError) Error() string { return "execution reverted: " + e.Reason }

// Revert is a shorthand for returning a RevertError.
func Revert(format string, args ...any) error {
	return &RevertError{Reason: fmt.Sprintf(format, args...)}
}

// Msg is the execution context handed to a Program. Its helpers run under the
// node lock, so programs must not call back into Node methods.
type Msg struct {
	From   common.Address
	To     common.Address
	Value  *big.Int
	Data   []byte
	Static bool

	node *Node
}

// Program returns the program deployed at addr, or nil.
func (m *Msg) Program(addr common.Address) Program { return m.node.programs[addr] }

// Balance returns the native balance of addr.
func (m *Msg) Balance(addr common.Address) *big.Int { return new(big.Int).Set(m.node.balance(addr)) }

// Transfer moves value out of the executing contract.
func (m *Msg) Transfer(to common.Address, amount *big.Int) error {
	if m.Static {
		return Revert("transfer in static call")
	}
	return m.node.move(m.To, to, amount)
}

type registration struct {
	code  []byte
	build Constructor
}

// Node is a single-block-per-transaction chain kept in memory.
type Node struct {
	mu       sync.Mutex
	chainID  *big.Int
	signer   types.Signer
	gasPrice *big.Int
	block    uint64

	balances map[common.Address]*big.Int
	nonces   map[common.Address]uint64
	programs map[common.Address]Program
	receipts map[common.Hash]*types.Receipt
	pending  map[common.Hash]int
	codes    []registration
	sent     []*types.Transaction

	receiptDelay int
	dropReceipts bool
}

// NewNode returns an empty chain with the given id and a 1 gwei gas price.
func NewNode(chainID int64) *Node {
	id := big.NewInt(chainID)
	return &Node{
		chainID:  id,
		signer:   types.LatestSignerForChainID(id),
		gasPrice: big.NewInt(1_000_000_000),
		balances: make(map[common.Address]*big.Int),
		nonces:   make(map[common.Address]uint64),
		programs: make(map[common.Address]Program),
		receipts: make(map[common.Hash]*types.Receipt),
		pending:  make(map[common.Hash]int),
	}
}

// Fund credits addr with amount wei.
func (n *Node) Fund(addr common.Address, amount *big.Int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.balances[addr] = new(big.Int).Add(n.balance(addr), amount)
}

// Register maps creation bytecode to the program that emulates it.
func (n *Node) Register(code []byte, build Constructor) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.codes = append(n.codes, registration{code: code, build: build})
}

// SetReceiptDelay makes each receipt invisible for the given number of polls.
func (n *Node) SetReceiptDelay(polls int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.receiptDelay = polls
}

// DropReceipts keeps every future receipt hidden, simulating a stalled node.
func (n *Node) DropReceipts() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.dropReceipts = true
}

// Sent returns the transactions accepted so far.
func (n *Node) Sent() []*types.Transaction {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]*types.Transaction, len(n.sent))
	copy(out, n.sent)
	return out
}

// ProgramAt exposes a deployed program for assertions.
func (n *Node) ProgramAt(addr common.Address) Program {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.programs[addr]
}

// ChainID returns the id transactions must be signed for.
func (n *Node) ChainID(context.Context) (*big.Int, error) {
	return new(big.Int).Set(n.chainID), nil
}

// PendingNonceAt returns the next nonce of account.
func (n *Node) PendingNonceAt(_ context.Context, account common.Address) (uint64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.nonces[account], nil
}

// SuggestGasPrice returns the fixed gas price of the node.
func (n *Node) SuggestGasPrice(context.Context) (*big.Int, error) {
	return new(big.Int).Set(n.gasPrice), nil
}

// EstimateGas returns GasPerTx, or a revert for calldata sent to an address without a program.
func (n *Node) EstimateGas(_ context.Context, msg ethereum.CallMsg) (uint64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if msg.To != nil && len(msg.Data) > 0 && n.programs[*msg.To] == nil {
		return 0, Revert("call to non-contract %s", msg.To.Hex())
	}
	return GasPerTx, nil
}

// SendTransaction checks chain id and nonce, executes tx and stores its receipt.
func (n *Node) SendTransaction(_ context.Context, tx *types.Transaction) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	from, err := types.Sender(n.signer, tx)
	if err != nil {
		return fmt.Errorf("invalid sender: %w", err)
	}
	if tx.Nonce() != n.nonces[from] {
		return fmt.Errorf("nonce mismatch: have %d, want %d", tx.Nonce(), n.nonces[from])
	}
	gasUsed := uint64(GasPerTx)
	if tx.Gas() < gasUsed {
		return fmt.Errorf("intrinsic gas too low: have %d, want %d", tx.Gas(), gasUsed)
	}
	fee := new(big.Int).Mul(new(big.Int).SetUint64(gasUsed), tx.GasPrice())
	cost := new(big.Int).Add(fee, tx.Value())
	if n.balance(from).Cmp(cost) < 0 {
		return fmt.Errorf("insufficient funds for gas * price + value: address %s", from.Hex())
	}

	n.balances[from] = new(big.Int).Sub(n.balance(from), fee)
	n.nonces[from]++
	n.block++

	receipt := &types.Receipt{
		Type:        tx.Type(),
		Status:      types.ReceiptStatusSuccessful,
		TxHash:      tx.Hash(),
		GasUsed:     gasUsed,
		BlockNumber: new(big.Int).SetUint64(n.block),
	}
	if err := n.execute(from, tx, receipt); err != nil {
		receipt.Status = types.ReceiptStatusFailed
		receipt.ContractAddress = common.Address{}
	}

	n.sent = append(n.sent, tx)
	n.receipts[tx.Hash()] = receipt
	if n.receiptDelay > 0 {
		n.pending[tx.Hash()] = n.receiptDelay
	}
	return nil
}

func (n *Node) execute(from common.Address, tx *types.Transaction, receipt *types.Receipt) error {
	if tx.To() == nil {
		addr := crypto.CreateAddress(from, tx.Nonce())
		reg, args, ok := n.lookup(tx.Data())
		if !ok {
			return Revert("unknown creation code")
		}
		msg := &Msg{From: from, To: addr, Value: tx.Value(), Data: tx.Data(), node: n}
		program, err := reg.build(msg, args)
		if err != nil {
			return err
		}
		if err := n.move(from, addr, tx.Value()); err != nil {
			return err
		}
		n.programs[addr] = program
		receipt.ContractAddress = addr
		return nil
	}

	to := *tx.To()
	if err := n.move(from, to, tx.Value()); err != nil {
		return err
	}
	program := n.programs[to]
	if program == nil {
		return nil
	}
	msg := &Msg{From: from, To: to, Value: tx.Value(), Data: tx.Data(), node: n}
	if _, err := program.Exec(msg); err != nil {
		_ = n.move(to, from, tx.Value())
		return err
	}
	return nil
}

func (n *Node) lookup(data []byte) (registration, []byte, bool) {
	for _, reg := range n.codes {
		if bytes.HasPrefix(data, reg.code) {
			return reg, data[len(reg.code):], true
		}
	}
	return registration{}, nil, false
}

// TransactionReceipt returns ethereum.NotFound while a receipt is delayed or dropped.
func (n *Node) TransactionReceipt(_ context.Context, hash common.Hash) (*types.Receipt, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.dropReceipts {
		return nil, ethereum.NotFound
	}
	if left := n.pending[hash]; left > 0 {
		n.pending[hash] = left - 1
		return nil, ethereum.NotFound
	}
	receipt, ok := n.receipts[hash]
	if !ok {
		return nil, ethereum.NotFound
	}
	return receipt, nil
}

// BalanceAt returns the native balance of account.
func (n *Node) BalanceAt(_ context.Context, account common.Address, _ *big.Int) (*big.Int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return new(big.Int).Set(n.balance(account)), nil
}

// CallContract runs a static call against the program at call.To.
func (n *Node) CallContract(_ context.Context, call ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if call.To == nil {
		return nil, errors.New("call without target")
	}
	program := n.programs[*call.To]
	if program == nil {
		return nil, nil
	}
	value := call.Value
	if value == nil {
		value = new(big.Int)
	}
	return program.Exec(&Msg{From: call.From, To: *call.To, Value: value, Data: call.Data, Static: true, node: n})
}

// CodeAt returns a placeholder for addresses that hold a program.
func (n *Node) CodeAt(_ context.Context, account common.Address, _ *big.Int) ([]byte, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.programs[account] == nil {
		return nil, nil
	}
	return []byte{0x00}, nil
}

func (n *Node) balance(addr common.Address) *big.Int {
	if b, ok := n.balances[addr]; ok {
		return b
	}
	return new(big.Int)
}

func (n *Node) move(from, to common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() == 0 {
		return nil
	}
	if n.balance(from).Cmp(amount) < 0 {
		return Revert("insufficient balance in %s", from.Hex())
	}
	n.balances[from] = new(big.Int).Sub(n.balance(from), amount)
	n.balances[to] = new(big.Int).Add(n.balance(to), amount)
	return nil
}
