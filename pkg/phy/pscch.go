package phy

import "fmt"

const pscchCInit = 510

// ControlEncoder stamps a packed control message into a subframe buffer and
// reports how many PRBs it occupied, starting at prbStart. On error the
// buffer must be discarded.
type ControlEncoder interface {
	Encode(bits []uint8, buf *SubframeBuffer, prbStart int) (int, error)
}

// PSCCHPRB is the PSCCH width in PRBs for a transmission mode.
func PSCCHPRB(tm TransmissionMode) int {
	if tm.V2X() {
		return 2
	}
	return 1
}

// PSCCH is the reference control channel encoder: CRC16 attachment,
// circular rate matching, scrambling and QPSK mapping onto the data symbols.
type PSCCH struct {
	cell Cell
}

func NewPSCCH(cell Cell) (*PSCCH, error) {
	if err := cell.Validate(); err != nil {
		return nil, fmt.Errorf("PSCCH init: %w", err)
	}
	return &PSCCH{cell: cell}, nil
}

// Capacity is the number of coded bits the PSCCH carries per subframe.
func (p *PSCCH) Capacity() int {
	return PSCCHPRB(p.cell.TM) * SubcarriersPerPRB * len(p.cell.DataSymbols()) * QPSK.BitsPerSymbol()
}

func (p *PSCCH) Encode(bits []uint8, buf *SubframeBuffer, prbStart int) (int, error) {
	nprb := PSCCHPRB(p.cell.TM)
	if len(bits) == 0 {
		return 0, fmt.Errorf("%w: empty SCI", ErrEncoding)
	}
	if prbStart < 0 || prbStart+nprb > p.cell.PRB {
		return 0, fmt.Errorf("%w: PSCCH at PRB %d+%d exceeds %d PRB", ErrEncoding, prbStart, nprb, p.cell.PRB)
	}
	if err := buf.matches(p.cell); err != nil {
		return 0, err
	}
	coded := rateMatch(attachCRC16(bits), p.Capacity())
	scramble(coded, pscchCInit)
	syms, err := Modulate(QPSK, coded)
	if err != nil {
		return 0, err
	}
	buf.mapPRB(p.cell.DataSymbols(), prbStart, nprb, syms)
	return nprb, nil
}
