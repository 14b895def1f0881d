package report

import (
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Native is the asset name used for the chain's own currency.
const Native = "native"

// Snapshot is one observed balance.
type Snapshot struct {
	Label   string         `json:"label"`
	Account common.Address `json:"account"`
	Asset   string         `json:"asset"`
	Amount  *big.Int       `json:"amount"`
	At      time.Time      `json:"at"`
}

// Ledger stores balance snapshots in memory so a run can report before/after deltas.
type Ledger struct {
	mu        sync.Mutex
	snapshots []Snapshot
}

// NewLedger creates an empty ledger optionally pre-sizing storage.
func NewLedger(capacity int) *Ledger {
	if capacity < 0 {
		capacity = 0
	}
	return &Ledger{snapshots: make([]Snapshot, 0, capacity)}
}

// Record appends a snapshot, copying the amount.
func (l *Ledger) Record(label string, account common.Address, asset string, amount *big.Int) Snapshot {
	s := Snapshot{Label: label, Account: account, Asset: asset, Amount: new(big.Int).Set(amount), At: time.Now().UTC()}
	l.mu.Lock()
	l.snapshots = append(l.snapshots, s)
	l.mu.Unlock()
	return s
}

// Snapshots returns a copy of everything recorded.
func (l *Ledger) Snapshots() []Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Snapshot, len(l.snapshots))
	copy(out, l.snapshots)
	return out
}

// Delta is last minus first observation of account/asset; ok is false with fewer than two.
func (l *Ledger) Delta(account common.Address, asset string) (delta *big.Int, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var first, last *big.Int
	count := 0
	for _, s := range l.snapshots {
		if s.Account != account || s.Asset != asset {
			continue
		}
		if first == nil {
			first = s.Amount
		}
		last = s.Amount
		count++
	}
	if count < 2 {
		return nil, false
	}
	return new(big.Int).Sub(last, first), true
}

// Reset clears all stored snapshots.
func (l *Ledger) Reset() {
	l.mu.Lock()
	l.snapshots = l.snapshots[:0]
	l.mu.Unlock()
}
