package phy

import (
	"fmt"
	"slices"
)

const (
	SubcarriersPerPRB = 12
	MaxSidelinkID     = 335
)

type CyclicPrefix byte

const (
	CPNormal CyclicPrefix = iota
	CPExtended
)

func (c CyclicPrefix) String() string {
	switch c {
	case CPNormal:
		return "normal"
	case CPExtended:
		return "extended"
	default:
		return "ERROR"
	}
}

// Symbols returns the number of SC-FDMA symbols in one subframe.
func (c CyclicPrefix) Symbols() int {
	if c == CPExtended {
		return 12
	}
	return 14
}

type TransmissionMode byte

const (
	TM1 TransmissionMode = iota + 1
	TM2
	TM3
	TM4
)

func (t TransmissionMode) String() string {
	if t < TM1 || t > TM4 {
		return "ERROR"
	}
	return fmt.Sprintf("TM%d", byte(t))
}

// V2X reports whether the mode belongs to the vehicular (TM3/TM4) family.
func (t TransmissionMode) V2X() bool {
	return t == TM3 || t == TM4
}

// SupportedPRB lists the bandwidths a resource pool can be derived for.
var SupportedPRB = []int{6, 15, 25, 50, 75, 100}

// Cell is the sidelink cell configuration. It is a value type and is never
// modified after startup.
type Cell struct {
	PRB        int
	CP         CyclicPrefix
	TM         TransmissionMode
	SidelinkID int
}

// Validate checks field ranges and the cyclic prefix / mode combination.
func (c Cell) Validate() error {
	if !slices.Contains(SupportedPRB, c.PRB) {
		return fmt.Errorf("%w: %d", ErrUnsupportedBandwidth, c.PRB)
	}
	if c.TM < TM1 || c.TM > TM4 {
		return fmt.Errorf("%w: transmission mode %d must be 1 to 4", ErrInvalidCell, c.TM)
	}
	if c.CP != CPNormal && c.CP != CPExtended {
		return fmt.Errorf("%w: unknown cyclic prefix %d", ErrInvalidCell, c.CP)
	}
	if c.SidelinkID < 0 || c.SidelinkID > MaxSidelinkID {
		return fmt.Errorf("%w: sidelink ID %d out of range (0 to %d)", ErrInvalidCell, c.SidelinkID, MaxSidelinkID)
	}
	if c.CP == CPExtended && c.TM.V2X() {
		return fmt.Errorf("%w: %s does not support extended CP", ErrInvalidCell, c.TM)
	}
	return nil
}

// Subcarriers returns the width of the resource grid.
func (c Cell) Subcarriers() int {
	return c.PRB * SubcarriersPerPRB
}

// GridLen is the number of resource elements in one subframe.
func (c Cell) GridLen() int {
	return c.Subcarriers() * c.CP.Symbols()
}

// DMRSSymbols returns the symbol indices carrying reference signals.
func (c Cell) DMRSSymbols() []int {
	switch {
	case c.TM.V2X():
		return []int{2, 5, 8, 11}
	case c.CP == CPExtended:
		return []int{2, 8}
	default:
		return []int{3, 10}
	}
}

// DataSymbols returns the symbol indices available to PSCCH and PSSCH. The
// last symbol of the subframe is the guard symbol and is never used.
func (c Cell) DataSymbols() []int {
	n := c.CP.Symbols()
	dmrs := c.DMRSSymbols()
	ret := make([]int, 0, n)
	for l := range n - 1 {
		if !slices.Contains(dmrs, l) {
			ret = append(ret, l)
		}
	}
	return ret
}

func (c Cell) String() string {
	return fmt.Sprintf("{PRB: %d, CP: %s, TM: %s, SidelinkID: %d}", c.PRB, c.CP, c.TM, c.SidelinkID)
}

// symbolSize maps PRB count to the FFT size, reduced rates first.
var symbolSize = map[int][2]int{
	6:   {128, 128},
	15:  {256, 256},
	25:  {384, 512},
	50:  {768, 1024},
	75:  {1024, 1536},
	100: {1536, 2048},
}

// SampleRate returns the baseband sampling frequency in Hz for the cell
// bandwidth. standard selects the standard LTE rates instead of the reduced
// ones.
func SampleRate(prb int, standard bool) (float64, error) {
	sz, ok := symbolSize[prb]
	if !ok {
		return 0, fmt.Errorf("%w: %d", ErrUnsupportedBandwidth, prb)
	}
	i := 0
	if standard {
		i = 1
	}
	return float64(sz[i]) * 15000, nil
}
