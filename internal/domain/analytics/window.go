package analytics

import "math"

// window is a fixed-size sliding window over a sequence of values with O(1)
// push, mean and sample standard deviation.
type window struct {
	buf   []float64
	next  int
	count int
	sum   float64
	sumSq float64
}

func newWindow(size int) *window {
	return &window{buf: make([]float64, size)}
}

// push appends v and returns the value that fell out of the window, if any.
func (w *window) push(v float64) (evicted float64, ok bool) {
	if w.count == len(w.buf) {
		evicted, ok = w.buf[w.next], true
		w.sum -= evicted
		w.sumSq -= evicted * evicted
	} else {
		w.count++
	}
	w.buf[w.next] = v
	w.next = (w.next + 1) % len(w.buf)
	w.sum += v
	w.sumSq += v * v
	return evicted, ok
}

func (w *window) len() int { return w.count }

func (w *window) mean() (float64, bool) {
	if w.count == 0 {
		return 0, false
	}
	return w.sum / float64(w.count), true
}

// stdDev is the sample standard deviation; it needs at least two values.
func (w *window) stdDev() (float64, bool) {
	if w.count < 2 {
		return 0, false
	}
	n := float64(w.count)
	v := (w.sumSq - w.sum*w.sum/n) / (n - 1)
	if v < 0 {
		v = 0
	}
	return math.Sqrt(v), true
}
