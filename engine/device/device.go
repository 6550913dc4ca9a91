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

// Package device defines the contract between the audio engine and a
// hardware output device. Implementations for real hardware live in the
// host directory; tests use an in-process implementation.
package device

// Spec describes a PCM audio format together with the hardware buffer
// size. The engine requests a Spec when opening a device and the device
// returns the Spec it actually granted, which may differ. A different
// sample rate in particular is expected and tolerated; the engine
// resamples to cover the difference.
type Spec struct {
	// sample rate in Hz
	Rate int

	// number of interleaved channels per frame
	Channels int

	// bytes per sample. 1 means unsigned 8-bit PCM with 128 as the zero
	// point; 2 means signed 16-bit PCM in native byte order. no other
	// values are supported
	SampleSize int

	// hardware buffer size in frames
	BufferFrames int
}

// FrameSize returns the size of one frame in bytes.
func (s Spec) FrameSize() int {
	return s.Channels * s.SampleSize
}

// Silence returns the byte value that represents silence in this format.
// Unsigned 8-bit PCM is silent at 0x80, not zero.
func (s Spec) Silence() byte {
	if s.SampleSize == 1 {
		return 0x80
	}
	return 0x00
}

// LatencyMs returns the latency of the hardware buffer in milliseconds.
func (s Spec) LatencyMs() float64 {
	if s.Rate == 0 {
		return 0
	}
	return float64(s.BufferFrames) / float64(s.Rate) * 1000
}

// Valid checks the format fields for the supported ranges.
func (s Spec) Valid() bool {
	return s.Rate > 0 && s.Channels > 0 &&
		(s.SampleSize == 1 || s.SampleSize == 2)
}

// RenderFunc fills out with interleaved PCM in the granted Spec. The
// length of out is always a whole number of frames. Implementations call
// it from their playback context, which for real hardware is a real-time
// thread owned by the OS audio driver: a RenderFunc must not block,
// allocate or take locks.
type RenderFunc func(out []byte)

// Device is an audio output device. The engine holds exactly one and
// drives it through open/pause/resume/close cycles. A Device is not safe
// for concurrent use; the engine serialises access from its control plane.
type Device interface {
	// Open negotiates the requested spec with the hardware, registers the
	// render callback and starts playback. The returned spec is what the
	// hardware granted. Open failure is non-fatal to the caller.
	Open(req Spec, render RenderFunc) (Spec, error)

	// Pause suspends playback without releasing the device. Audio queued
	// in the engine's buffers is retained.
	Pause()

	// Resume restarts playback after Pause.
	Resume()

	// Close stops playback and releases the device. Buffered but unplayed
	// audio is discarded, not flushed.
	Close()
}
