package phy

import (
	"fmt"
	"math"
)

type Modulation int

const (
	QPSK  Modulation = 2
	QAM16 Modulation = 4
	QAM64 Modulation = 6
)

func (m Modulation) String() string {
	switch m {
	case QPSK:
		return "QPSK"
	case QAM16:
		return "16QAM"
	case QAM64:
		return "64QAM"
	default:
		return "ERROR"
	}
}

// BitsPerSymbol is the modulation order Qm.
func (m Modulation) BitsPerSymbol() int {
	return int(m)
}

var (
	qpskScale  = float32(1 / math.Sqrt2)
	qam16Scale = float32(1 / math.Sqrt(10))
	qam64Scale = float32(1 / math.Sqrt(42))
)

func pam(b uint8) float32 {
	return float32(1 - 2*int(b&1))
}

// Modulate maps bits onto constellation points per TS 36.211 7.1. The bit
// count must be a multiple of the modulation order.
func Modulate(m Modulation, bits []uint8) ([]complex64, error) {
	switch m {
	case QPSK, QAM16, QAM64:
	default:
		return nil, fmt.Errorf("%w: unknown modulation %d", ErrEncoding, m)
	}
	q := m.BitsPerSymbol()
	if len(bits)%q != 0 {
		return nil, fmt.Errorf("%w: %d bits is not a multiple of %d", ErrEncoding, len(bits), q)
	}
	syms := make([]complex64, len(bits)/q)
	for i := range syms {
		b := bits[i*q : (i+1)*q]
		var re, im float32
		switch m {
		case QPSK:
			re = pam(b[0]) * qpskScale
			im = pam(b[1]) * qpskScale
		case QAM16:
			re = pam(b[0]) * (2 - pam(b[2])) * qam16Scale
			im = pam(b[1]) * (2 - pam(b[3])) * qam16Scale
		case QAM64:
			re = pam(b[0]) * (4 - pam(b[2])*(2-pam(b[4]))) * qam64Scale
			im = pam(b[1]) * (4 - pam(b[3])*(2-pam(b[5]))) * qam64Scale
		}
		syms[i] = complex(re, im)
	}
	return syms, nil
}
