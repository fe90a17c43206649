package buffer

// Window keeps the most recent samples written to it, overwriting the
// oldest data when full. It is not safe for concurrent use: the audio
// analyzer owns one per detector and accesses it from the processing
// goroutine only, which keeps the hot path lock-free.
type Window struct {
	buf      []float32
	writePos int
	filled   int64
}

// NewWindow creates a window holding size samples.
func NewWindow(size int) *Window {
	return &Window{buf: make([]float32, size)}
}

// Write appends data, overwriting the oldest samples when the window
// is full. When data is larger than the window only its tail is kept.
func (w *Window) Write(data []float32) {
	if len(data) > len(w.buf) {
		data = data[len(data)-len(w.buf):]
	}
	n := copy(w.buf[w.writePos:], data)
	if n < len(data) {
		copy(w.buf, data[n:])
	}
	w.writePos = (w.writePos + len(data)) % len(w.buf)
	w.filled += int64(len(data))
	if w.filled > int64(len(w.buf)) {
		w.filled = int64(len(w.buf))
	}
}

// Recent copies the most recent len(dst) samples into dst in
// chronological order and reports whether the window held that many.
func (w *Window) Recent(dst []float32) bool {
	n := len(dst)
	if n > len(w.buf) || int64(n) > w.filled {
		return false
	}
	start := w.writePos - n
	if start >= 0 {
		copy(dst, w.buf[start:w.writePos])
		return true
	}
	start += len(w.buf)
	m := copy(dst, w.buf[start:])
	copy(dst[m:], w.buf[:w.writePos])
	return true
}

// Len returns the number of valid samples currently held.
func (w *Window) Len() int {
	return int(w.filled)
}

// Reset discards all buffered samples.
func (w *Window) Reset() {
	w.writePos = 0
	w.filled = 0
}
