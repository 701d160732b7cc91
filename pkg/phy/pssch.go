package phy

import "fmt"

// SharedConfig tells a shared channel encoder where and how to place one
// transport block.
type SharedConfig struct {
	Placement
	MCS          int
	ScramblingID uint16
	Subframe     int
}

// SharedEncoder stamps a transport block into the PRB span of cfg. It must
// not touch resource elements outside that span.
type SharedEncoder interface {
	Encode(tb []uint8, buf *SubframeBuffer, cfg SharedConfig) error
}

// PSSCH is the reference shared channel encoder: CRC24A attachment, circular
// rate matching, scrambling seeded by the scrambling identity and subframe,
// and MCS dependent modulation.
type PSSCH struct {
	cell Cell
}

func NewPSSCH(cell Cell) (*PSSCH, error) {
	if err := cell.Validate(); err != nil {
		return nil, fmt.Errorf("PSSCH init: %w", err)
	}
	return &PSSCH{cell: cell}, nil
}

func psschCInit(id uint16, subframe int) uint32 {
	return uint32(id)<<14 | uint32(subframe%10)<<9 | 510
}

func (p *PSSCH) Encode(tb []uint8, buf *SubframeBuffer, cfg SharedConfig) error {
	if cfg.Count < 1 || cfg.Start < 0 || cfg.End() > p.cell.PRB {
		return fmt.Errorf("%w: PSSCH span %s outside %d PRB", ErrEncoding, cfg.Placement, p.cell.PRB)
	}
	mod, _, err := PSSCHModulation(cfg.MCS)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrEncoding, err)
	}
	want, err := TransportBlockSize(cfg.Count, cfg.MCS)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrEncoding, err)
	}
	if len(tb) != want {
		return fmt.Errorf("%w: got %d bits, want %d", ErrTransportBlockSizeMismatch, len(tb), want)
	}
	if err := buf.matches(p.cell); err != nil {
		return err
	}
	data := p.cell.DataSymbols()
	e := cfg.Count * SubcarriersPerPRB * len(data) * mod.BitsPerSymbol()
	coded := rateMatch(attachCRC24A(tb), e)
	scramble(coded, psschCInit(cfg.ScramblingID, cfg.Subframe))
	syms, err := Modulate(mod, coded)
	if err != nil {
		return err
	}
	buf.mapPRB(data, cfg.Start, cfg.Count, syms)
	return nil
}
