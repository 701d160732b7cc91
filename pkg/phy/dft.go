package phy

// ValidDFTSize reports whether n factors as 2^a * 3^b * 5^c, the sizes the
// SC-FDMA transform precoder supports.
func ValidDFTSize(n int) bool {
	if n < 1 {
		return false
	}
	for _, f := range []int{2, 3, 5} {
		for n%f == 0 {
			n /= f
		}
	}
	return n == 1
}

// ValidDFTPRB returns the largest valid PRB count not greater than max, or
// 0 if there is none.
func ValidDFTPRB(max int) int {
	for n := max; n >= 1; n-- {
		if ValidDFTSize(n) {
			return n
		}
	}
	return 0
}
