package detect

// point is a ball center; ok=false marks a frame without a ball.
type point struct {
	x, y float64
	ok   bool
}

// history is a bounded ring of the most recent ball positions, one entry
// per frame, newest last.
type history struct {
	buf  []point
	head int
	n    int
}

func newHistory(capacity int) *history {
	return &history{buf: make([]point, capacity)}
}

func (h *history) push(p point) {
	if len(h.buf) == 0 {
		return
	}
	idx := (h.head + h.n) % len(h.buf)
	if h.n == len(h.buf) {
		h.buf[h.head] = p
		h.head = (h.head + 1) % len(h.buf)
		return
	}
	h.buf[idx] = p
	h.n++
}

// back returns the entry lag frames before the newest one.
func (h *history) back(lag int) (point, bool) {
	if lag < 0 || lag >= h.n {
		return point{}, false
	}
	idx := (h.head + h.n - 1 - lag) % len(h.buf)
	return h.buf[idx], true
}

func (h *history) len() int { return h.n }

func (h *history) reset() {
	h.head = 0
	h.n = 0
}
