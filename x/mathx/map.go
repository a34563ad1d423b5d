package mathx

// Map maps x in [inMin,inMax] to [outMin,outMax] with integer arithmetic.
// Inputs outside the range are clamped first, so the result never leaves
// the output range. inMin == inMax yields outMin.
func Map(x, inMin, inMax, outMin, outMax int64) int64 {
	if inMax == inMin {
		return outMin
	}
	x = Clamp(x, inMin, inMax)
	return Lerp(outMin, outMax, x-inMin, inMax-inMin)
}
