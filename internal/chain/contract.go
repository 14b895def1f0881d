package chain

import (
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// Contract is a deployed instance: a name for logs, an address, and its ABI.
type Contract struct {
	Name    string
	Address common.Address
	ABI     abi.ABI
}

// Bind attaches an ABI to an address already on chain.
func Bind(name string, address common.Address, parsed abi.ABI) *Contract {
	return &Contract{Name: name, Address: address, ABI: parsed}
}

// Method looks up a method by name.
func (c *Contract) Method(name string) (abi.Method, error) {
	m, ok := c.ABI.Methods[name]
	if !ok {
		return abi.Method{}, fmt.Errorf("%s: no method %q in abi", c.Name, name)
	}
	return m, nil
}

// Pack coerces args to the method's input types and encodes the calldata.
func (c *Contract) Pack(method string, args ...any) ([]byte, error) {
	m, err := c.Method(method)
	if err != nil {
		return nil, err
	}
	inputs, err := CoerceArgs(m.Inputs, args)
	if err != nil {
		return nil, fmt.Errorf("%s.%s: %w", c.Name, method, err)
	}
	data, err := c.ABI.Pack(method, inputs...)
	if err != nil {
		return nil, fmt.Errorf("%s.%s: pack: %w", c.Name, method, err)
	}
	return data, nil
}
