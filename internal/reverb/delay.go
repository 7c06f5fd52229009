package reverb

// MaxDelayLength caps every ring buffer. A recorded length of 0 or above the
// cap is treated as corrupt and replaced by the line's designed length.
const MaxDelayLength = 100000

// delayLine is a fixed-length ring buffer. The read position and the write
// position are the same slot: tap returns the oldest sample and push
// overwrites it.
type delayLine struct {
	buf        []float64
	idx        int
	defaultLen int
}

func newDelayLine(length int) delayLine {
	length = clampLength(length)
	return delayLine{buf: make([]float64, length), defaultLen: length}
}

func clampLength(n int) int {
	switch {
	case n < 1:
		return 1
	case n > MaxDelayLength:
		return MaxDelayLength
	}
	return n
}

// resize replaces the buffer with a zeroed one of length n and makes n the
// designed length.
func (d *delayLine) resize(n int) {
	n = clampLength(n)
	d.defaultLen = n
	if cap(d.buf) >= n {
		d.buf = d.buf[:n]
	} else {
		d.buf = make([]float64, n)
	}
	d.clear()
}

// validate restores the designed length when the recorded one is corrupt.
// It reports whether the buffer had to be rebuilt.
func (d *delayLine) validate() bool {
	if l := len(d.buf); l > 0 && l <= MaxDelayLength {
		if d.idx < 0 || d.idx >= l {
			d.idx = 0
		}
		return false
	}
	d.buf = make([]float64, clampLength(d.defaultLen))
	d.idx = 0
	return true
}

func (d *delayLine) clear() {
	clear(d.buf)
	d.idx = 0
}

func (d *delayLine) tap() float64 {
	return d.buf[d.idx]
}

func (d *delayLine) push(v float64) {
	d.buf[d.idx] = v
	d.idx++
	if d.idx >= len(d.buf) {
		d.idx = 0
	}
}

func (d *delayLine) length() int {
	return len(d.buf)
}
