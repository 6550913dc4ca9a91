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

package mix_test

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/tolband/soundshell/engine/mix"
	"github.com/tolband/soundshell/engine/ringbuffer"
	"github.com/tolband/soundshell/test"
)

// pcm16 builds a little block of native byte order signed 16-bit PCM from
// float values.
func pcm16(samples ...float32) []byte {
	p := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.NativeEndian.PutUint16(p[i*2:], uint16(int16(s*32767)))
	}
	return p
}

func rms(samples []float32) float64 {
	var acc float64
	for _, s := range samples {
		acc += float64(s) * float64(s)
	}
	return math.Sqrt(acc / float64(len(samples)))
}

func TestConvertUnsigned8(t *testing.T) {
	high := ringbuffer.NewRingBuffer(64)
	low := ringbuffer.NewRingBuffer(64)
	m := mix.NewMixer(high, low, 1, 1)

	// 128 is the zero point of unsigned 8-bit PCM. 0 and 255 are the
	// extremes
	test.ExpectedSuccess(t, low.Write([]byte{128, 0, 255}))

	dst := make([]float32, 3)
	nHigh, nLow := m.Mix(dst, 3)
	test.Equate(t, nHigh, 0)
	test.Equate(t, nLow, 3)

	test.EquateFloat(t, float64(dst[0]), 0, 1e-6)
	test.EquateFloat(t, float64(dst[1]), -1, 1e-6)
	test.EquateFloat(t, float64(dst[2]), float64(127)/128, 1e-6)
}

func TestConvertSigned16(t *testing.T) {
	high := ringbuffer.NewRingBuffer(64)
	low := ringbuffer.NewRingBuffer(64)
	m := mix.NewMixer(high, low, 1, 2)

	test.ExpectedSuccess(t, low.Write(pcm16(0, 0.5, -0.5)))

	dst := make([]float32, 3)
	_, nLow := m.Mix(dst, 3)
	test.Equate(t, nLow, 6)

	test.EquateFloat(t, float64(dst[0]), 0, 1e-4)
	test.EquateFloat(t, float64(dst[1]), 0.5, 1e-4)
	test.EquateFloat(t, float64(dst[2]), -0.5, 1e-4)
}

func TestDucking(t *testing.T) {
	const frames = 64

	// control run: low priority only, at constant 0.5
	lowOnly := func() []float32 {
		high := ringbuffer.NewRingBuffer(1024)
		low := ringbuffer.NewRingBuffer(1024)
		m := mix.NewMixer(high, low, 1, 2)

		for i := 0; i < frames; i++ {
			low.Write(pcm16(0.5))
		}
		dst := make([]float32, frames)
		m.Mix(dst, frames)
		return dst
	}()

	// same low priority data but with simultaneous high priority data
	// (silent samples, so only the ducking effect is measured)
	ducked := func() []float32 {
		high := ringbuffer.NewRingBuffer(1024)
		low := ringbuffer.NewRingBuffer(1024)
		m := mix.NewMixer(high, low, 1, 2)

		for i := 0; i < frames; i++ {
			high.Write(pcm16(0))
			low.Write(pcm16(0.5))
		}
		dst := make([]float32, frames)
		nHigh, _ := m.Mix(dst, frames)
		test.Equate(t, nHigh, frames*2)
		return dst
	}()

	// the ducked low contribution measures ~30% of the control run
	ratio := rms(ducked) / rms(lowOnly)
	test.EquateFloat(t, ratio, 0.3, 1e-3)
}

func TestAdditiveMix(t *testing.T) {
	high := ringbuffer.NewRingBuffer(64)
	low := ringbuffer.NewRingBuffer(64)
	m := mix.NewMixer(high, low, 1, 2)

	test.ExpectedSuccess(t, high.Write(pcm16(0.5)))
	test.ExpectedSuccess(t, low.Write(pcm16(1.0)))

	dst := make([]float32, 1)
	m.Mix(dst, 1)

	// high at full amplitude plus low at ducking amplitude. no clipping at
	// this stage: values beyond [-1, 1] are legal until format conversion
	test.EquateFloat(t, float64(dst[0]), 0.5+0.3, 1e-3)
}

func TestUnderrunReporting(t *testing.T) {
	high := ringbuffer.NewRingBuffer(64)
	low := ringbuffer.NewRingBuffer(64)
	m := mix.NewMixer(high, low, 2, 2)

	dst := make([]float32, 8)
	nHigh, nLow := m.Mix(dst, 4)
	test.Equate(t, nHigh, 0)
	test.Equate(t, nLow, 0)

	// an underrun cycle still delivers a full buffer of silence
	for i, v := range dst {
		if v != 0 {
			t.Fatalf("non-silence at %d after underrun", i)
		}
	}
}

func TestScratchTruncation(t *testing.T) {
	high := ringbuffer.NewRingBuffer(mix.ScratchSize * 2)
	low := ringbuffer.NewRingBuffer(mix.ScratchSize * 2)
	m := mix.NewMixer(high, low, 1, 2)

	test.ExpectedSuccess(t, low.Write(make([]byte, mix.ScratchSize*2)))

	// a frame count beyond the scratch bound is truncated rather than
	// overflowing the scratch region
	dst := make([]float32, mix.ScratchSize)
	_, nLow := m.Mix(dst, mix.ScratchSize)
	test.Equate(t, nLow, mix.ScratchSize)
}
