package phy

import "fmt"

// Placement is a contiguous PRB span [Start, Start+Count).
type Placement struct {
	Start int
	Count int
}

func (p Placement) End() int {
	return p.Start + p.Count
}

// Overlaps reports whether two spans share a PRB.
func (p Placement) Overlaps(o Placement) bool {
	return p.Start < o.End() && o.Start < p.End()
}

func (p Placement) String() string {
	return fmt.Sprintf("[%d,%d)", p.Start, p.End())
}

// SharedPlacement is the planned PSSCH span and its scrambling identity.
type SharedPlacement struct {
	Placement
	ScramblingID uint16
}

// ScramblingPolicy selects how the PSSCH scrambling identity is chosen.
// The zero value derives it from the SCI.
type ScramblingPolicy struct {
	Fixed bool
	ID    uint16
}

// ScramblingDerived ties the PSSCH scrambling to the CRC of the SCI that
// scheduled it.
var ScramblingDerived = ScramblingPolicy{}

// ScramblingFixed always uses id.
func ScramblingFixed(id uint16) ScramblingPolicy {
	return ScramblingPolicy{Fixed: true, ID: id}
}

func (s ScramblingPolicy) identity(sciBits []uint8) uint16 {
	if s.Fixed {
		return s.ID
	}
	return CRC16(sciBits)
}

func (s ScramblingPolicy) String() string {
	if s.Fixed {
		return fmt.Sprintf("fixed(%d)", s.ID)
	}
	return "derived"
}

// PlaceControl runs the control channel encoder at prbStart and returns the
// span it reported.
func PlaceControl(enc ControlEncoder, cell Cell, sciBits []uint8, buf *SubframeBuffer, prbStart int) (Placement, error) {
	n, err := enc.Encode(sciBits, buf, prbStart)
	if err != nil {
		return Placement{}, fmt.Errorf("%w: PSCCH encode: %w", ErrEncodingFailure, err)
	}
	p := Placement{Start: prbStart, Count: n}
	if n < 1 || p.End() > cell.PRB {
		return Placement{}, fmt.Errorf("%w: PSCCH encoder reported span %s in %d PRB", ErrEncodingFailure, p, cell.PRB)
	}
	return p, nil
}

// PlanShared places the PSSCH right after the control channel using the
// widest DFT-compatible PRB count that fits.
func PlanShared(cell Cell, control Placement, sciBits []uint8, policy ScramblingPolicy) (SharedPlacement, error) {
	start := control.End()
	n := ValidDFTPRB(cell.PRB - start)
	if n < 1 {
		return SharedPlacement{}, fmt.Errorf("%w: nothing fits after PSCCH %s in %d PRB", ErrNoValidAllocation, control, cell.PRB)
	}
	return SharedPlacement{
		Placement:    Placement{Start: start, Count: n},
		ScramblingID: policy.identity(sciBits),
	}, nil
}

// PlaceShared checks the transport block length and runs the shared channel
// encoder.
func PlaceShared(enc SharedEncoder, sp SharedPlacement, mcs int, subframe int, tb []uint8, buf *SubframeBuffer) error {
	want, err := TransportBlockSize(sp.Count, mcs)
	if err != nil {
		return err
	}
	if len(tb) != want {
		return fmt.Errorf("%w: got %d bits, want %d", ErrTransportBlockSizeMismatch, len(tb), want)
	}
	err = enc.Encode(tb, buf, SharedConfig{
		Placement:    sp.Placement,
		MCS:          mcs,
		ScramblingID: sp.ScramblingID,
		Subframe:     subframe,
	})
	if err != nil {
		return fmt.Errorf("%w: PSSCH encode: %w", ErrEncodingFailure, err)
	}
	return nil
}
