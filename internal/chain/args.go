package chain

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
)

// CoerceArgs converts loosely typed values (ints, decimal strings, hex
// addresses) into the exact Go types the abi encoder expects for inputs.
func CoerceArgs(inputs abi.Arguments, args []any) ([]any, error) {
	if len(args) != len(inputs) {
		return nil, fmt.Errorf("expected %d arguments, got %d", len(inputs), len(args))
	}
	out := make([]any, len(args))
	for i, in := range inputs {
		v, err := coerce(in.Type, args[i])
		if err != nil {
			name := in.Name
			if name == "" {
				name = fmt.Sprintf("#%d", i)
			}
			return nil, fmt.Errorf("argument %s (%s): %w", name, in.Type.String(), err)
		}
		out[i] = v
	}
	return out, nil
}

func coerce(t abi.Type, v any) (any, error) {
	switch t.T {
	case abi.UintTy, abi.IntTy:
		n, err := toBig(v)
		if err != nil {
			return nil, err
		}
		return fitInt(t, n)
	case abi.AddressTy:
		switch x := v.(type) {
		case common.Address:
			return x, nil
		case *common.Address:
			return *x, nil
		case string:
			if !common.IsHexAddress(x) {
				return nil, fmt.Errorf("%q is not an address", x)
			}
			return common.HexToAddress(x), nil
		}
	case abi.BoolTy:
		if b, ok := v.(bool); ok {
			return b, nil
		}
	case abi.StringTy:
		switch x := v.(type) {
		case string:
			return x, nil
		case fmt.Stringer:
			return x.String(), nil
		}
	case abi.BytesTy:
		switch x := v.(type) {
		case []byte:
			return x, nil
		case string:
			return hexutil.Decode(x)
		}
	default:
		return v, nil
	}
	return nil, fmt.Errorf("cannot use %T", v)
}

func toBig(v any) (*big.Int, error) {
	switch x := v.(type) {
	case *big.Int:
		if x == nil {
			return nil, fmt.Errorf("nil integer")
		}
		return x, nil
	case int:
		return big.NewInt(int64(x)), nil
	case int8:
		return big.NewInt(int64(x)), nil
	case int16:
		return big.NewInt(int64(x)), nil
	case int32:
		return big.NewInt(int64(x)), nil
	case int64:
		return big.NewInt(x), nil
	case uint:
		return new(big.Int).SetUint64(uint64(x)), nil
	case uint8:
		return new(big.Int).SetUint64(uint64(x)), nil
	case uint16:
		return new(big.Int).SetUint64(uint64(x)), nil
	case uint32:
		return new(big.Int).SetUint64(uint64(x)), nil
	case uint64:
		return new(big.Int).SetUint64(x), nil
	case string:
		s := strings.TrimSpace(x)
		negative := strings.HasPrefix(s, "-")
		n, ok := math.ParseBig256(strings.TrimPrefix(s, "-"))
		if !ok {
			return nil, fmt.Errorf("%q is not an integer", x)
		}
		if negative {
			n.Neg(n)
		}
		return n, nil
	}
	return nil, fmt.Errorf("cannot use %T as integer", v)
}

// fitInt range-checks n against the abi width and returns the Go type the
// encoder wants: sized ints up to 64 bits, *big.Int beyond.
func fitInt(t abi.Type, n *big.Int) (any, error) {
	size := uint(t.Size)
	if t.T == abi.UintTy {
		if n.Sign() < 0 {
			return nil, fmt.Errorf("negative value %s for uint%d", n, size)
		}
		if uint(n.BitLen()) > size {
			return nil, fmt.Errorf("value %s overflows uint%d", n, size)
		}
		switch size {
		case 8:
			return uint8(n.Uint64()), nil
		case 16:
			return uint16(n.Uint64()), nil
		case 32:
			return uint32(n.Uint64()), nil
		case 64:
			return n.Uint64(), nil
		}
		return new(big.Int).Set(n), nil
	}

	limit := new(big.Int).Lsh(big.NewInt(1), size-1)
	if n.Cmp(limit) >= 0 || n.Cmp(new(big.Int).Neg(limit)) < 0 {
		return nil, fmt.Errorf("value %s overflows int%d", n, size)
	}
	switch size {
	case 8:
		return int8(n.Int64()), nil
	case 16:
		return int16(n.Int64()), nil
	case 32:
		return int32(n.Int64()), nil
	case 64:
		return n.Int64(), nil
	}
	return new(big.Int).Set(n), nil
}
