package phy

import "fmt"

// SubframeBuffer is the resource element grid of one subframe, stored symbol
// by symbol. One buffer is live per transmission iteration.
type SubframeBuffer struct {
	subcarriers int
	symbols     int
	Samples     []complex64
}

func NewSubframeBuffer(cell Cell) *SubframeBuffer {
	return &SubframeBuffer{
		subcarriers: cell.Subcarriers(),
		symbols:     cell.CP.Symbols(),
		Samples:     make([]complex64, cell.GridLen()),
	}
}

// Zero clears every resource element.
func (b *SubframeBuffer) Zero() {
	clear(b.Samples)
}

func (b *SubframeBuffer) Len() int {
	return len(b.Samples)
}

func (b *SubframeBuffer) Subcarriers() int {
	return b.subcarriers
}

func (b *SubframeBuffer) Symbols() int {
	return b.symbols
}

// Symbol returns the row of resource elements of symbol l.
func (b *SubframeBuffer) Symbol(l int) []complex64 {
	return b.Samples[l*b.subcarriers : (l+1)*b.subcarriers]
}

// PRBSpan returns the resource elements of symbol l covered by PRBs
// [start, start+count).
func (b *SubframeBuffer) PRBSpan(l, start, count int) []complex64 {
	return b.Symbol(l)[start*SubcarriersPerPRB : (start+count)*SubcarriersPerPRB]
}

func (b *SubframeBuffer) matches(cell Cell) error {
	if b == nil || b.subcarriers != cell.Subcarriers() || b.symbols != cell.CP.Symbols() || len(b.Samples) != cell.GridLen() {
		return fmt.Errorf("%w: subframe buffer does not match cell %s", ErrEncoding, cell)
	}
	return nil
}

// mapPRB writes syms onto the given symbols, frequency first, inside the
// PRB span. len(syms) must equal len(symbols)*count*12.
func (b *SubframeBuffer) mapPRB(symbols []int, start, count int, syms []complex64) {
	n := 0
	for _, l := range symbols {
		n += copy(b.PRBSpan(l, start, count), syms[n:])
	}
}
