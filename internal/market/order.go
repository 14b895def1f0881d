package market

import (
	"fmt"
	"math/big"
	"reflect"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Field is one named value of an order record, in ABI order.
type Field struct {
	Name  string
	Value any
}

// Order is whatever checkOrder returned, flattened into named fields. The
// marketplace owns the layout, so nothing beyond names and values is assumed.
type Order struct {
	ID     *big.Int
	Fields []Field
}

// DecodeOrder flattens a single tuple output or a list of outputs.
func DecodeOrder(id *big.Int, outputs abi.Arguments, values []any) (*Order, error) {
	if len(values) != len(outputs) {
		return nil, fmt.Errorf("checkOrder returned %d values for %d outputs", len(values), len(outputs))
	}
	order := &Order{ID: new(big.Int).Set(id)}
	if len(outputs) == 1 && outputs[0].Type.T == abi.TupleTy {
		rv := reflect.Indirect(reflect.ValueOf(values[0]))
		if rv.Kind() != reflect.Struct {
			return nil, fmt.Errorf("checkOrder tuple decoded as %s", rv.Kind())
		}
		names := outputs[0].Type.TupleRawNames
		for i := 0; i < rv.NumField() && i < len(names); i++ {
			order.Fields = append(order.Fields, Field{Name: fieldName(names[i], i), Value: rv.Field(i).Interface()})
		}
		return order, nil
	}
	for i, out := range outputs {
		order.Fields = append(order.Fields, Field{Name: fieldName(out.Name, i), Value: values[i]})
	}
	return order, nil
}

func fieldName(name string, i int) string {
	if name == "" {
		return fmt.Sprintf("field%d", i)
	}
	return name
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimLeft(name, "_"))
}

// Get looks a field up by name, ignoring case and leading underscores.
func (o *Order) Get(name string) (any, bool) {
	want := normalize(name)
	for _, f := range o.Fields {
		if normalize(f.Name) == want {
			return f.Value, true
		}
	}
	return nil, false
}

// Active reports the order's active flag; ok is false when the record has none.
func (o *Order) Active() (active, ok bool) {
	for _, name := range []string{"isActive", "active"} {
		if v, found := o.Get(name); found {
			b, isBool := v.(bool)
			return b, isBool
		}
	}
	return false, false
}

// Big returns a numeric field.
func (o *Order) Big(name string) (*big.Int, bool) {
	v, ok := o.Get(name)
	if !ok {
		return nil, false
	}
	n, ok := v.(*big.Int)
	return n, ok
}

func (o *Order) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Order#%s{", o.ID)
	for i, f := range o.Fields {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s: %s", f.Name, formatValue(f.Value))
	}
	b.WriteString("}")
	return b.String()
}

func formatValue(v any) string {
	switch x := v.(type) {
	case common.Address:
		return x.Hex()
	case *big.Int:
		if x == nil {
			return "0"
		}
		return x.String()
	case []byte:
		return hexutil.Encode(x)
	case [32]byte:
		return hexutil.Encode(x[:])
	default:
		return fmt.Sprintf("%v", x)
	}
}
