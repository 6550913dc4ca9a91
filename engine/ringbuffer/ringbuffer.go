// This file is part of Soundshell.
//
// Soundshell is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Soundshell is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Soundshell.  If not, see <https://www.gnu.org/licenses/>.

// Package ringbuffer implements a fixed-capacity circular byte buffer for
// single-producer/single-consumer use. Position and occupancy bookkeeping
// is atomic so the producer and consumer never take a lock, which keeps the
// consumer side safe to call from a real-time audio callback.
//
// The single-producer/single-consumer discipline is part of the contract.
// The occupancy counter is maintained independently of the read and write
// positions and two concurrent writers would desynchronise it from the
// actual buffer contents. One goroutine writes, one goroutine reads, no
// exceptions.
package ringbuffer

import "sync/atomic"

// RingBuffer is a fixed-capacity circular byte buffer. The zero value is
// not usable; create instances with NewRingBuffer().
type RingBuffer struct {
	data []byte

	// padding separates the producer and consumer fields onto their own
	// cache lines to prevent false sharing
	_        [56]byte
	writePos atomic.Int64
	_        [56]byte
	readPos  atomic.Int64
	_        [56]byte

	// occupancy in bytes. incremented by Write() after the data copy,
	// decremented by Read() after its copy. always in [0, capacity]
	size atomic.Int64
}

// NewRingBuffer is the preferred method of initialisation for the
// RingBuffer type. Capacity is in bytes and is fixed for the lifetime of
// the buffer.
func NewRingBuffer(capacity int) *RingBuffer {
	if capacity <= 0 {
		panic("ring buffer capacity must be positive")
	}
	return &RingBuffer{
		data: make([]byte, capacity),
	}
}

// Capacity returns the fixed byte capacity of the buffer.
func (rb *RingBuffer) Capacity() int {
	return len(rb.data)
}

// Size returns the number of buffered bytes not yet consumed.
func (rb *RingBuffer) Size() int {
	return int(rb.size.Load())
}

// Write copies p into the buffer. The write is all-or-nothing: if there is
// not enough free space for the whole of p the buffer is left untouched and
// the function returns false. Never blocks.
//
// Must only ever be called from a single producer goroutine.
func (rb *RingBuffer) Write(p []byte) bool {
	if len(p) == 0 {
		return true
	}

	// the consumer can only ever increase free space between this check and
	// the copy below, so a stale load is safe
	if rb.size.Load()+int64(len(p)) > int64(len(rb.data)) {
		return false
	}

	w := int(rb.writePos.Load())
	n := copy(rb.data[w:], p)
	if n < len(p) {
		copy(rb.data, p[n:])
	}

	rb.writePos.Store(int64((w + len(p)) % len(rb.data)))

	// publishing the new size is what makes the bytes visible to the
	// consumer. it must happen after the copy
	rb.size.Add(int64(len(p)))

	return true
}

// Read copies up to len(p) bytes into p and returns the number of bytes
// read. Returns 0 immediately if the buffer is empty. Never blocks.
//
// Must only ever be called from a single consumer goroutine.
func (rb *RingBuffer) Read(p []byte) int {
	n := int(rb.size.Load())
	if n == 0 || len(p) == 0 {
		return 0
	}
	if n > len(p) {
		n = len(p)
	}

	r := int(rb.readPos.Load())
	c := copy(p[:n], rb.data[r:])
	if c < n {
		copy(p[c:n], rb.data)
	}

	rb.readPos.Store(int64((r + n) % len(rb.data)))
	rb.size.Add(int64(-n))

	return n
}
