package report

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestLedgerDelta(t *testing.T) {
	ledger := NewLedger(4)
	owner := common.HexToAddress("0x01")
	buyer := common.HexToAddress("0x02")

	amount := big.NewInt(100)
	ledger.Record("owner before", owner, Native, amount)
	amount.SetInt64(1) // recorded value must be a copy
	ledger.Record("buyer before", buyer, "TIM#0", big.NewInt(0))
	ledger.Record("owner after", owner, Native, big.NewInt(175))
	ledger.Record("buyer after", buyer, "TIM#0", big.NewInt(200))

	delta, ok := ledger.Delta(owner, Native)
	if !ok || delta.Int64() != 75 {
		t.Fatalf("expected owner delta 75, got %v (%v)", delta, ok)
	}
	delta, ok = ledger.Delta(buyer, "TIM#0")
	if !ok || delta.Int64() != 200 {
		t.Fatalf("expected buyer delta 200, got %v (%v)", delta, ok)
	}
	if _, ok := ledger.Delta(buyer, Native); ok {
		t.Fatalf("expected no delta without two observations")
	}

	if got := len(ledger.Snapshots()); got != 4 {
		t.Fatalf("expected 4 snapshots, got %d", got)
	}
	ledger.Reset()
	if len(ledger.Snapshots()) != 0 {
		t.Fatalf("expected ledger reset")
	}
}
