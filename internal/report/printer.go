// Package report renders flow output: console lines, balance snapshots, and a JSONL run log.
package report

import (
	"fmt"
	"io"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Printer writes the human readable lines of a run, one observation per line.
type Printer struct {
	mu sync.Mutex
	w  io.Writer
}

// NewPrinter wraps w; a nil writer discards output.
func NewPrinter(w io.Writer) *Printer {
	if w == nil {
		w = io.Discard
	}
	return &Printer{w: w}
}

// Deployed prints where a contract landed.
func (p *Printer) Deployed(label string, addr common.Address) {
	p.line(fmt.Sprintf("%s deployed to:", label), addr.Hex())
}

// Balance prints a raw integer balance.
func (p *Printer) Balance(label string, amount *big.Int) {
	p.line(label+":", amount.String())
}

// Value prints any labelled value using its String form.
func (p *Printer) Value(label string, v fmt.Stringer) {
	p.line(label+":", v.String())
}

func (p *Printer) line(args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.w, args...)
}
