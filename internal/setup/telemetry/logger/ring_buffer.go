package logger

// ringBuffer keeps the most recent lines written to a log file.
type ringBuffer struct {
	lines []string
	next  int // Index of the next write
	count int // Number of stored lines
}

func newRingBuffer(capacity int) *ringBuffer {
	return &ringBuffer{lines: make([]string, capacity)}
}

// push stores a line, overwriting the oldest one when full.
func (rb *ringBuffer) push(line string) {
	rb.lines[rb.next] = line
	rb.next = (rb.next + 1) % len(rb.lines)

	if rb.count < len(rb.lines) {
		rb.count++
	}
}

// snapshot returns the stored lines oldest first.
func (rb *ringBuffer) snapshot() []string {
	out := make([]string, 0, rb.count)
	start := (rb.next - rb.count + len(rb.lines)) % len(rb.lines)

	for i := range rb.count {
		out = append(out, rb.lines[(start+i)%len(rb.lines)])
	}

	return out
}
