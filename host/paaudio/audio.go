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

// Package paaudio implements the engine's device interface on top of
// PortAudio. Unlike the SDL adapter this is a true pull model: PortAudio
// invokes the stream callback from a real-time thread owned by the host
// audio API, at the cadence fixed by the granted buffer size and sample
// rate. The engine render function runs directly on that thread.
package paaudio

import (
	"encoding/binary"

	"github.com/gordonklaus/portaudio"

	"github.com/tolband/soundshell/curated"
	"github.com/tolband/soundshell/engine/device"
	"github.com/tolband/soundshell/logger"
)

// error patterns for the paaudio package.
const (
	InitFailed  = "paaudio: %v"
	OpenFailed  = "paaudio: open: %v"
	StartFailed = "paaudio: start: %v"
)

// Audio outputs sound through a PortAudio stream.
type Audio struct {
	stream  *portaudio.Stream
	granted device.Spec

	render device.RenderFunc

	// staging buffer for the 16-bit callback. portaudio hands us []int16,
	// the render function wants bytes. sized at open time; the callback
	// never allocates
	staging []byte
}

// NewAudio is the preferred method of initialisation for the Audio type.
func NewAudio() (*Audio, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, curated.Errorf(InitFailed, err)
	}
	return &Audio{}, nil
}

// Terminate releases the PortAudio library. Call once, after the engine
// has shut down for good.
func (aud *Audio) Terminate() {
	if err := portaudio.Terminate(); err != nil {
		logger.Logf("paaudio", "terminate: %v", err)
	}
}

// Open implements the device.Device interface. PortAudio either grants
// the requested rate or fails to open, so the granted spec only ever
// differs from the request if the request was adjusted to hardware
// limits elsewhere.
func (aud *Audio) Open(req device.Spec, render device.RenderFunc) (device.Spec, error) {
	aud.render = render

	var stream *portaudio.Stream
	var err error

	switch req.SampleSize {
	case 1:
		stream, err = portaudio.OpenDefaultStream(0, req.Channels, float64(req.Rate), req.BufferFrames, aud.callback8)
	case 2:
		// callbacks can be asked for more frames than the nominal buffer
		// size; the staging buffer carries headroom for that
		aud.staging = make([]byte, req.BufferFrames*req.Channels*2*4)
		stream, err = portaudio.OpenDefaultStream(0, req.Channels, float64(req.Rate), req.BufferFrames, aud.callback16)
	default:
		return device.Spec{}, curated.Errorf(OpenFailed, "unsupported sample size")
	}
	if err != nil {
		return device.Spec{}, curated.Errorf(OpenFailed, err)
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		return device.Spec{}, curated.Errorf(StartFailed, err)
	}

	aud.stream = stream
	aud.granted = req

	logger.Logf("paaudio", "open: %dHz %dch, %d frames", req.Rate, req.Channels, req.BufferFrames)

	return aud.granted, nil
}

// callback8 services an unsigned 8-bit stream. the render function writes
// bytes, which is already the output format.
func (aud *Audio) callback8(out []uint8) {
	aud.render(out)
}

// callback16 services a signed 16-bit stream via the staging buffer.
func (aud *Audio) callback16(out []int16) {
	need := len(out) * 2
	if need > len(aud.staging) {
		// larger request than the staging headroom. deliver what fits;
		// the remainder is silence
		for i := range out {
			out[i] = 0
		}
		need = len(aud.staging)
	}

	b := aud.staging[:need]
	aud.render(b)

	for i := 0; i < need/2; i++ {
		out[i] = int16(binary.NativeEndian.Uint16(b[i*2:]))
	}
}

// Pause implements the device.Device interface. The stream is stopped but
// not released.
func (aud *Audio) Pause() {
	if aud.stream == nil {
		return
	}
	if err := aud.stream.Stop(); err != nil {
		logger.Logf("paaudio", "pause: %v", err)
	}
}

// Resume implements the device.Device interface.
func (aud *Audio) Resume() {
	if aud.stream == nil {
		return
	}
	if err := aud.stream.Start(); err != nil {
		logger.Logf("paaudio", "resume: %v", err)
	}
}

// Close implements the device.Device interface.
func (aud *Audio) Close() {
	if aud.stream == nil {
		return
	}
	if err := aud.stream.Close(); err != nil {
		logger.Logf("paaudio", "close: %v", err)
	}
	aud.stream = nil

	logger.Log("paaudio", "closed")
}
