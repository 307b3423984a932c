package kfmt

import "io"

// earlyBufferSize is the number of output bytes retained before an output
// sink is attached. It must be a power of 2.
const earlyBufferSize = 4096

// earlyBuffer retains the most recent earlyBufferSize bytes written to it.
// Once full, each write overwrites the oldest unread bytes.
type earlyBuffer struct {
	data [earlyBufferSize]byte

	// head is the position of the next byte to read and tail is the
	// position of the next byte to write. Both grow monotonically and are
	// masked when indexing data.
	head, tail uint64
}

// Len returns the number of unread bytes.
func (b *earlyBuffer) Len() int {
	return int(b.tail - b.head)
}

// Write stores p in the buffer. It never fails.
func (b *earlyBuffer) Write(p []byte) (int, error) {
	for _, c := range p {
		b.data[b.tail&(earlyBufferSize-1)] = c
		b.tail++
	}

	if b.tail-b.head > earlyBufferSize {
		b.head = b.tail - earlyBufferSize
	}

	return len(p), nil
}

// Read copies up to len(p) unread bytes into p in the order they were
// written. It returns io.EOF once the buffer is drained.
func (b *earlyBuffer) Read(p []byte) (int, error) {
	if b.head == b.tail {
		return 0, io.EOF
	}

	var n int
	for ; n < len(p) && b.head != b.tail; n++ {
		p[n] = b.data[b.head&(earlyBufferSize-1)]
		b.head++
	}

	return n, nil
}
