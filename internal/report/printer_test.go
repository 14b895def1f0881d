package report

import (
	"bytes"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestPrinterLines(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)
	p.Deployed("Mock ERC1155", common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3"))
	p.Balance("owner balance", big.NewInt(42))
	p.Value("order", big.NewInt(7))

	want := "Mock ERC1155 deployed to: 0x5FbDB2315678afecb367f032d93F642f64180aa3\n" +
		"owner balance: 42\n" +
		"order: 7\n"
	if buf.String() != want {
		t.Fatalf("unexpected output:\n%s", buf.String())
	}

	NewPrinter(nil).Balance("discarded", big.NewInt(1))
}
