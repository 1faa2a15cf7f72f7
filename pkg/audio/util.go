package audio

// SaturateInt16 clamps v to the valid int16 range.
func SaturateInt16(v int32) int16 {
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return int16(v)
}

// ClampVolume forces v into [0, 1].
func ClampVolume(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// ScaleSample applies a volume factor to a single sample without overflow.
func ScaleSample(s int16, volume float64) int32 {
	return int32(float64(s) * volume)
}
