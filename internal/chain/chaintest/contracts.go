package chaintest

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// Handler serves one ABI method; args are the unpacked inputs.
type Handler func(msg *Msg, args []any) ([]any, error)

// ABIProgram dispatches calldata to handlers by selector.
type ABIProgram struct {
	ABI      abi.ABI
	Handlers map[string]Handler
}

func (p *ABIProgram) Exec(msg *Msg) ([]byte, error) {
	if len(msg.Data) < 4 {
		return nil, Revert("no selector")
	}
	method, err := p.ABI.MethodById(msg.Data[:4])
	if err != nil {
		return nil, Revert("unknown selector %x", msg.Data[:4])
	}
	handler, ok := p.Handlers[method.Name]
	if !ok {
		return nil, Revert("%s not emulated", method.Name)
	}
	if msg.Static && !method.IsConstant() {
		return nil, Revert("%s modifies state", method.Name)
	}
	if msg.Value.Sign() > 0 && !method.IsPayable() {
		return nil, Revert("%s is not payable", method.Name)
	}
	args, err := method.Inputs.Unpack(msg.Data[4:])
	if err != nil {
		return nil, Revert("decode %s: %v", method.Name, err)
	}
	out, err := handler(msg, args)
	if err != nil {
		return nil, err
	}
	return method.Outputs.Pack(out...)
}

// Token emulates the multi-token mock: the deployer receives Supply units of
// token id 0 and operators need approval to move balances.
type Token struct {
	ABIProgram
	URI       string
	balances  map[common.Address]map[string]*big.Int
	approvals map[common.Address]map[common.Address]bool
}

// TokenConstructor emulates deploying the token with a uri constructor argument.
func TokenConstructor(parsed abi.ABI, supply *big.Int) Constructor {
	return func(msg *Msg, args []byte) (Program, error) {
		values, err := parsed.Constructor.Inputs.Unpack(args)
		if err != nil {
			return nil, Revert("decode constructor: %v", err)
		}
		t := &Token{
			balances:  make(map[common.Address]map[string]*big.Int),
			approvals: make(map[common.Address]map[common.Address]bool),
		}
		if len(values) > 0 {
			t.URI, _ = values[0].(string)
		}
		t.credit(msg.From, big.NewInt(0), supply)
		t.ABIProgram = ABIProgram{ABI: parsed, Handlers: map[string]Handler{
			"balanceOf": func(_ *Msg, a []any) ([]any, error) {
				return []any{t.BalanceOf(a[0].(common.Address), a[1].(*big.Int))}, nil
			},
			"setApprovalForAll": func(m *Msg, a []any) ([]any, error) {
				operator := a[0].(common.Address)
				if operator == m.From {
					return nil, Revert("setting approval status for self")
				}
				if t.approvals[m.From] == nil {
					t.approvals[m.From] = make(map[common.Address]bool)
				}
				t.approvals[m.From][operator] = a[1].(bool)
				return nil, nil
			},
			"isApprovedForAll": func(_ *Msg, a []any) ([]any, error) {
				return []any{t.approvals[a[0].(common.Address)][a[1].(common.Address)]}, nil
			},
			"uri": func(_ *Msg, _ []any) ([]any, error) {
				return []any{t.URI}, nil
			},
		}}
		return t, nil
	}
}

// BalanceOf returns the holding of account for token id.
func (t *Token) BalanceOf(account common.Address, id *big.Int) *big.Int {
	if b, ok := t.balances[account][id.String()]; ok {
		return new(big.Int).Set(b)
	}
	return new(big.Int)
}

// TransferFrom moves amount of id when operator owns the tokens or is approved.
func (t *Token) TransferFrom(operator, from, to common.Address, id, amount *big.Int) error {
	if operator != from && !t.approvals[from][operator] {
		return Revert("caller is not owner nor approved")
	}
	if t.BalanceOf(from, id).Cmp(amount) < 0 {
		return Revert("insufficient balance for transfer")
	}
	t.credit(from, id, new(big.Int).Neg(amount))
	t.credit(to, id, amount)
	return nil
}

func (t *Token) credit(account common.Address, id, amount *big.Int) {
	if t.balances[account] == nil {
		t.balances[account] = make(map[string]*big.Int)
	}
	t.balances[account][id.String()] = new(big.Int).Add(t.BalanceOf(account, id), amount)
}

// OrderTuple mirrors the order record returned by checkOrder.
type OrderTuple struct {
	TokenContract common.Address
	Seller        common.Address
	TokenId       *big.Int
	Quantity      *big.Int
	Price         *big.Int
	IsActive      bool
	StartTime     *big.Int
	Duration      *big.Int
}

// Market emulates the marketplace: sellers list orders, buyers fill them by
// paying the exact price, and FeeBps of the price stays in the contract.
type Market struct {
	ABIProgram
	FeeAccount common.Address
	FeeBps     int64
	orders     []*OrderTuple
}

// MarketConstructor emulates deploying the marketplace with an address argument.
func MarketConstructor(parsed abi.ABI, feeBps int64) Constructor {
	return func(msg *Msg, args []byte) (Program, error) {
		values, err := parsed.Constructor.Inputs.Unpack(args)
		if err != nil {
			return nil, Revert("decode constructor: %v", err)
		}
		m := &Market{FeeBps: feeBps}
		if len(values) > 0 {
			m.FeeAccount, _ = values[0].(common.Address)
		}
		m.ABIProgram = ABIProgram{ABI: parsed, Handlers: map[string]Handler{
			"setSaleOrder": m.setSaleOrder,
			"checkOrder":   m.checkOrder,
			"fulfillOrder": m.fulfillOrder,
		}}
		return m, nil
	}
}

// Order returns a copy of the stored order, or nil.
func (m *Market) Order(id uint64) *OrderTuple {
	if id >= uint64(len(m.orders)) {
		return nil
	}
	o := *m.orders[id]
	return &o
}

func (m *Market) setSaleOrder(msg *Msg, a []any) ([]any, error) {
	tokenContract := a[0].(common.Address)
	if _, ok := msg.Program(tokenContract).(*Token); !ok {
		return nil, Revert("token contract %s unknown", tokenContract.Hex())
	}
	m.orders = append(m.orders, &OrderTuple{
		TokenContract: tokenContract,
		Seller:        msg.From,
		TokenId:       a[1].(*big.Int),
		Quantity:      a[2].(*big.Int),
		IsActive:      a[3].(bool),
		Price:         a[4].(*big.Int),
		StartTime:     a[5].(*big.Int),
		Duration:      a[6].(*big.Int),
	})
	return nil, nil
}

func (m *Market) checkOrder(_ *Msg, a []any) ([]any, error) {
	id := a[0].(*big.Int)
	if !id.IsUint64() || m.Order(id.Uint64()) == nil {
		return []any{OrderTuple{TokenId: new(big.Int), Quantity: new(big.Int), Price: new(big.Int), StartTime: new(big.Int), Duration: new(big.Int)}}, nil
	}
	return []any{*m.Order(id.Uint64())}, nil
}

func (m *Market) fulfillOrder(msg *Msg, a []any) ([]any, error) {
	id := a[0].(*big.Int)
	if !id.IsUint64() || id.Uint64() >= uint64(len(m.orders)) {
		return nil, Revert("order %s does not exist", id)
	}
	order := m.orders[id.Uint64()]
	if !order.IsActive {
		return nil, Revert("order %s is not active", id)
	}
	if msg.Value.Cmp(order.Price) != 0 {
		return nil, Revert("sent %s wei, price is %s", msg.Value, order.Price)
	}
	token, ok := msg.Program(order.TokenContract).(*Token)
	if !ok {
		return nil, Revert("token contract vanished")
	}
	if err := token.TransferFrom(msg.To, order.Seller, msg.From, order.TokenId, order.Quantity); err != nil {
		return nil, err
	}
	fee := new(big.Int).Div(new(big.Int).Mul(order.Price, big.NewInt(m.FeeBps)), big.NewInt(10_000))
	if err := msg.Transfer(order.Seller, new(big.Int).Sub(order.Price, fee)); err != nil {
		return nil, fmt.Errorf("pay seller: %w", err)
	}
	order.IsActive = false
	return nil, nil
}
