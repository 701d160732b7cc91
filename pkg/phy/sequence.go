package phy

const goldNc = 1600

// GoldSequence generates n bits of the length-31 Gold sequence of TS 36.211
// 7.2 for the given initialisation value.
func GoldSequence(cInit uint32, n int) []uint8 {
	total := n + goldNc + 31
	x1 := make([]uint8, total)
	x2 := make([]uint8, total)
	x1[0] = 1
	for i := range 31 {
		x2[i] = uint8((cInit >> i) & 1)
	}
	for i := 0; i < total-31; i++ {
		x1[i+31] = (x1[i+3] + x1[i]) & 1
		x2[i+31] = (x2[i+3] + x2[i+2] + x2[i+1] + x2[i]) & 1
	}
	c := make([]uint8, n)
	for i := range c {
		c[i] = (x1[i+goldNc] + x2[i+goldNc]) & 1
	}
	return c
}

// scramble XORs bits with the Gold sequence in place.
func scramble(bits []uint8, cInit uint32) {
	c := GoldSequence(cInit, len(bits))
	for i := range bits {
		bits[i] ^= c[i]
	}
}

// rateMatch fills e output bits from the circular buffer in, repeating or
// puncturing as needed.
func rateMatch(in []uint8, e int) []uint8 {
	out := make([]uint8, e)
	if len(in) == 0 {
		return out
	}
	for i := range out {
		out[i] = in[i%len(in)]
	}
	return out
}
