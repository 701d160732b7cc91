package phy

// CRC generator polynomials from TS 36.212 5.1.1, without the leading term.
const (
	crc16Poly  = 0x1021
	crc24APoly = 0x864CFB
)

func crcBits(bits []uint8, poly uint32, width int) uint32 {
	var reg uint32
	top := uint32(1) << (width - 1)
	mask := (uint32(1) << width) - 1
	for _, b := range bits {
		fb := (reg&top != 0) != (b&1 == 1)
		reg = (reg << 1) & mask
		if fb {
			reg ^= poly
		}
	}
	return reg
}

// CRC16 computes the LTE 16 bit CRC of a bit sequence.
func CRC16(bits []uint8) uint16 {
	return uint16(crcBits(bits, crc16Poly, 16))
}

// CRC24A computes the LTE transport block CRC of a bit sequence.
func CRC24A(bits []uint8) uint32 {
	return crcBits(bits, crc24APoly, 24)
}

func attachCRC16(bits []uint8) []uint8 {
	out := make([]uint8, 0, len(bits)+16)
	out = append(out, bits...)
	return AppendBits(out, uint32(CRC16(bits)), 16)
}

func attachCRC24A(bits []uint8) []uint8 {
	out := make([]uint8, 0, len(bits)+24)
	out = append(out, bits...)
	return AppendBits(out, CRC24A(bits), 24)
}
