package phy

import "fmt"

const MaxPSSCHMCS = 28

// tbs10 holds the transport block sizes of the 10 PRB column of TS 36.213
// table 7.1.7.2.1-1, indexed by I_TBS. Other widths are scaled from it.
var tbs10 = [...]int{
	256, 344, 424, 568, 696, 872, 1032, 1192, 1352, 1544,
	1736, 1928, 2216, 2472, 2792, 2984, 3112, 3496, 3752, 4008,
	4264, 4584, 4968, 5352, 5544, 5736, 6712,
}

// PSSCHModulation returns the modulation and TBS index for a PSSCH MCS.
func PSSCHModulation(mcs int) (Modulation, int, error) {
	switch {
	case mcs < 0 || mcs > MaxPSSCHMCS:
		return 0, 0, fmt.Errorf("%w: PSSCH MCS %d out of range (0 to %d)", ErrConfiguration, mcs, MaxPSSCHMCS)
	case mcs <= 10:
		return QPSK, mcs, nil
	case mcs <= 20:
		return QAM16, mcs - 1, nil
	default:
		return QAM64, mcs - 2, nil
	}
}

// TransportBlockSize returns the transport block length in bits carried by
// prb PRBs at the given MCS.
func TransportBlockSize(prb, mcs int) (int, error) {
	_, itbs, err := PSSCHModulation(mcs)
	if err != nil {
		return 0, err
	}
	if prb < 1 {
		return 0, fmt.Errorf("%w: %d PRB", ErrNoValidAllocation, prb)
	}
	n := tbs10[itbs] * prb / 10
	n -= n % 8
	if n < 16 {
		n = 16
	}
	return n, nil
}
