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

// Package mix combines the two priority streams of the audio engine into a
// single float render buffer.
//
// The high priority stream carries short transient sounds (UI feedback and
// the like), the low priority stream carries the continuous audio produced
// by the emulated machine. Whenever the high priority stream is active the
// low priority contribution is attenuated ("ducked") so that transient
// sounds cut through the background audio.
//
// Mix() runs on the real-time callback path. It reads from the ring
// buffers into scratch regions that are allocated once at construction and
// performs no allocation or locking of its own.
package mix

import (
	"encoding/binary"

	"github.com/tolband/soundshell/engine/ringbuffer"
)

// ScratchSize is the byte size of each of the two fixed scratch regions
// used during mixing. It bounds how many source bytes a single mix cycle
// can consume: a request for more than ScratchSize bytes is truncated.
//
// 8KiB covers every supported rate/channel combination up to 2048 stereo
// 16-bit frames per callback. A platform granting larger hardware buffers
// than that needs this constant revisited; the truncation is silent.
const ScratchSize = 8192

// amplitude applied to the low priority stream while the high priority
// stream is producing data.
const duckingGain = 0.3

// Mixer pulls from the two priority ring buffers and accumulates the
// result into a caller-provided float buffer.
type Mixer struct {
	high *ringbuffer.RingBuffer
	low  *ringbuffer.RingBuffer

	channels   int
	sampleSize int

	scratchHigh []byte
	scratchLow  []byte
}

// NewMixer is the preferred method of initialisation for the Mixer type.
// sampleSize is in bytes: 1 for unsigned 8-bit PCM, 2 for signed 16-bit
// PCM in native byte order.
func NewMixer(high *ringbuffer.RingBuffer, low *ringbuffer.RingBuffer, channels int, sampleSize int) *Mixer {
	return &Mixer{
		high:        high,
		low:         low,
		channels:    channels,
		sampleSize:  sampleSize,
		scratchHigh: make([]byte, ScratchSize),
		scratchLow:  make([]byte, ScratchSize),
	}
}

// Mix reads up to frames frames from each priority buffer, converts them
// to float and sums them into dst. dst must hold at least frames×channels
// values; that region is overwritten, starting from silence.
//
// The returned values are the number of bytes consumed from the high and
// low buffers. Both being zero means the mix cycle was an underrun; the
// caller owns the statistics and records it.
func (m *Mixer) Mix(dst []float32, frames int) (int, int) {
	want := frames * m.channels * m.sampleSize
	if want > ScratchSize {
		want = ScratchSize
	}

	nHigh := m.high.Read(m.scratchHigh[:want])
	nLow := m.low.Read(m.scratchLow[:want])

	dst = dst[:frames*m.channels]
	for i := range dst {
		dst[i] = 0
	}

	// background audio is ducked under foreground sound effects
	lowGain := float32(1.0)
	if nHigh > 0 {
		lowGain = duckingGain
	}

	m.accumulate(dst, m.scratchHigh[:nHigh], 1.0)
	m.accumulate(dst, m.scratchLow[:nLow], lowGain)

	return nHigh, nLow
}

// accumulate converts raw fixed-point PCM to float in [-1, 1] and adds it
// to dst at the given amplitude. No clipping is applied here; final
// clamping happens at format conversion time.
func (m *Mixer) accumulate(dst []float32, src []byte, gain float32) {
	switch m.sampleSize {
	case 1:
		for i, b := range src {
			dst[i] += gain * float32(int(b)-128) / 128
		}
	case 2:
		for i := 0; i < len(src)/2; i++ {
			s := int16(binary.NativeEndian.Uint16(src[i*2:]))
			dst[i] += gain * float32(s) / 32768
		}
	}
}
