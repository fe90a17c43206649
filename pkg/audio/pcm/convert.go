package pcm

// BytesToFloat32 decodes little-endian int16 samples into dst as
// normalized floats in [-1, 1). Returns the number of samples
// decoded. dst must hold len(b)/2 samples; no allocation occurs.
func BytesToFloat32(b []byte, dst []float32) int {
	n := len(b) / 2
	if n > len(dst) {
		n = len(dst)
	}
	for i := 0; i < n; i++ {
		s := int16(b[i*2]) | int16(b[i*2+1])<<8
		dst[i] = float32(s) / 32768.0
	}
	return n
}

// Int16ToFloat32 converts int16 samples into dst as normalized
// floats. Returns the number of samples converted.
func Int16ToFloat32(src []int16, dst []float32) int {
	n := len(src)
	if n > len(dst) {
		n = len(dst)
	}
	for i := 0; i < n; i++ {
		dst[i] = float32(src[i]) / 32768.0
	}
	return n
}

// Float32ToBytes encodes normalized floats as little-endian int16
// bytes, clipping out-of-range values. Returns bytes written.
func Float32ToBytes(src []float32, dst []byte) int {
	n := len(src)
	if n*2 > len(dst) {
		n = len(dst) / 2
	}
	for i := 0; i < n; i++ {
		v := src[i]
		var s int16
		switch {
		case v >= 1.0:
			s = 32767
		case v <= -1.0:
			s = -32768
		default:
			s = int16(v * 32767.0)
		}
		dst[i*2] = byte(s)
		dst[i*2+1] = byte(s >> 8)
	}
	return n * 2
}
