package chain

import (
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

func mustArgs(t *testing.T, types ...string) abi.Arguments {
	t.Helper()
	args := make(abi.Arguments, 0, len(types))
	for _, name := range types {
		typ, err := abi.NewType(name, "", nil)
		if err != nil {
			t.Fatalf("abi type %s: %v", name, err)
		}
		args = append(args, abi.Argument{Name: "arg_" + name, Type: typ})
	}
	return args
}

func TestCoerceArgsTypes(t *testing.T) {
	inputs := mustArgs(t, "address", "uint256", "uint8", "int64", "bool", "string")
	got, err := CoerceArgs(inputs, []any{
		"0x737554B2685FA84898c4F166b9F3e88E22Ef5435",
		"10000000000000000000",
		200,
		int64(-3),
		true,
		"sample ipfs url",
	})
	if err != nil {
		t.Fatalf("CoerceArgs returned error: %v", err)
	}
	if got[0].(common.Address) != common.HexToAddress("0x737554B2685FA84898c4F166b9F3e88E22Ef5435") {
		t.Fatalf("unexpected address %v", got[0])
	}
	if got[1].(*big.Int).String() != "10000000000000000000" {
		t.Fatalf("unexpected uint256 %v", got[1])
	}
	if got[2].(uint8) != 200 {
		t.Fatalf("unexpected uint8 %v", got[2])
	}
	if got[3].(int64) != -3 {
		t.Fatalf("unexpected int64 %v", got[3])
	}

	if _, err := inputs.Pack(got...); err != nil {
		t.Fatalf("coerced values should pack: %v", err)
	}
}

func TestCoerceArgsHexInteger(t *testing.T) {
	got, err := CoerceArgs(mustArgs(t, "uint256"), []any{"0xff"})
	if err != nil {
		t.Fatalf("CoerceArgs returned error: %v", err)
	}
	if got[0].(*big.Int).Int64() != 255 {
		t.Fatalf("expected 255, got %v", got[0])
	}
}

func TestCoerceArgsRejects(t *testing.T) {
	cases := []struct {
		name   string
		types  []string
		values []any
		want   string
	}{
		{"count", []string{"uint256"}, []any{1, 2}, "expected 1 arguments"},
		{"overflow", []string{"uint8"}, []any{256}, "overflows uint8"},
		{"negative", []string{"uint256"}, []any{-1}, "negative"},
		{"signed range", []string{"int8"}, []any{-129}, "overflows int8"},
		{"address", []string{"address"}, []any{"0x1234"}, "not an address"},
		{"bool", []string{"bool"}, []any{"true"}, "cannot use string"},
		{"integer text", []string{"uint256"}, []any{"ten"}, "not an integer"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := CoerceArgs(mustArgs(t, tc.types...), tc.values)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}
