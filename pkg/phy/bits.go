package phy

// Bit sequences are carried one bit per byte, values 0 or 1.

// AppendBits appends the n least significant bits of v, MSB first.
func AppendBits(bits []uint8, v uint32, n int) []uint8 {
	for i := n - 1; i >= 0; i-- {
		bits = append(bits, uint8((v>>i)&1))
	}
	return bits
}

// ReadBits reads n bits MSB first starting at pos.
func ReadBits(bits []uint8, pos, n int) uint32 {
	var v uint32
	for i := range n {
		v = v<<1 | uint32(bits[pos+i]&1)
	}
	return v
}

// PackBits packs a bit sequence into bytes, MSB first. A trailing partial
// byte is zero padded.
func PackBits(bits []uint8) []byte {
	buf := make([]byte, (len(bits)+7)/8)
	for i, b := range bits {
		if b&1 == 1 {
			buf[i/8] |= 0x80 >> (i % 8)
		}
	}
	return buf
}

// UnpackBytes expands bytes into a bit sequence, MSB first.
func UnpackBytes(buf []byte) []uint8 {
	bits := make([]uint8, 0, len(buf)*8)
	for _, b := range buf {
		for range 8 {
			bits = append(bits, (b>>7)&1)
			b <<= 1
		}
	}
	return bits
}
