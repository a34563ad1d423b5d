package mathx

// Lerp returns a + (b-a)*num/den with 64-bit intermediates, truncating
// toward zero. den == 0 yields a.
func Lerp(a, b, num, den int64) int64 {
	if den == 0 {
		return a
	}
	return a + (b-a)*num/den
}
