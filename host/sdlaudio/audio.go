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

// Package sdlaudio implements the engine's device interface on top of the
// SDL queued-audio API.
//
// SDL's queue model has no hardware-driven callback so the package runs a
// pacing goroutine instead: it tops the queue up by invoking the engine
// render function whenever the queued backlog falls below two hardware
// buffers. The render function is therefore called from a goroutine
// rather than a driver thread, but the contract is the same: it must not
// block.
package sdlaudio

import (
	"time"

	"github.com/veandco/go-sdl2/sdl"

	"github.com/tolband/soundshell/curated"
	"github.com/tolband/soundshell/engine/device"
	"github.com/tolband/soundshell/logger"
)

// error patterns for the sdlaudio package.
const (
	InitFailed = "sdlaudio: %v"
	OpenFailed = "sdlaudio: open: %v"
)

// Audio outputs sound through an SDL audio device.
type Audio struct {
	id      sdl.AudioDeviceID
	spec    sdl.AudioSpec
	granted device.Spec

	render device.RenderFunc
	buffer []byte

	quit chan struct{}
	done chan struct{}
}

// NewAudio is the preferred method of initialisation for the Audio type.
func NewAudio() (*Audio, error) {
	if err := sdl.InitSubSystem(sdl.INIT_AUDIO); err != nil {
		return nil, curated.Errorf(InitFailed, err)
	}
	return &Audio{}, nil
}

// Open implements the device.Device interface. The granted spec may carry
// a different sample rate than requested; frequency changes are allowed
// when opening the SDL device.
func (aud *Audio) Open(req device.Spec, render device.RenderFunc) (device.Spec, error) {
	var format sdl.AudioFormat
	switch req.SampleSize {
	case 1:
		format = sdl.AUDIO_U8
	case 2:
		format = sdl.AUDIO_S16SYS
	default:
		return device.Spec{}, curated.Errorf(OpenFailed, "unsupported sample size")
	}

	spec := &sdl.AudioSpec{
		Freq:     int32(req.Rate),
		Format:   format,
		Channels: uint8(req.Channels),
		Samples:  uint16(req.BufferFrames),
	}

	var actual sdl.AudioSpec

	id, err := sdl.OpenAudioDevice("", false, spec, &actual, sdl.AUDIO_ALLOW_FREQUENCY_CHANGE)
	if err != nil {
		return device.Spec{}, curated.Errorf(OpenFailed, err)
	}

	aud.id = id
	aud.spec = actual
	aud.render = render
	aud.granted = device.Spec{
		Rate:         int(actual.Freq),
		Channels:     int(actual.Channels),
		SampleSize:   req.SampleSize,
		BufferFrames: int(actual.Samples),
	}
	aud.buffer = make([]byte, aud.granted.BufferFrames*aud.granted.FrameSize())
	aud.quit = make(chan struct{})
	aud.done = make(chan struct{})

	go aud.queueLoop(aud.quit, aud.done)

	sdl.PauseAudioDevice(aud.id, false)

	logger.Logf("sdlaudio", "open: %dHz requested, %dHz granted", req.Rate, aud.granted.Rate)

	return aud.granted, nil
}

// queueLoop keeps the SDL queue topped up. It wakes twice per hardware
// buffer period and renders only when the backlog is short, so the queue
// never grows beyond two buffers of added latency. done is closed on
// exit so that Close() can wait for any in-flight render to finish.
func (aud *Audio) queueLoop(quit chan struct{}, done chan struct{}) {
	defer close(done)

	period := time.Duration(float64(aud.granted.BufferFrames) / float64(aud.granted.Rate) * float64(time.Second) / 2)
	tck := time.NewTicker(period)
	defer tck.Stop()

	for {
		select {
		case <-quit:
			return
		case <-tck.C:
			if sdl.GetQueuedAudioSize(aud.id) >= uint32(2*len(aud.buffer)) {
				continue
			}
			aud.render(aud.buffer)
			if err := sdl.QueueAudio(aud.id, aud.buffer); err != nil {
				logger.Logf("sdlaudio", "queue: %v", err)
			}
		}
	}
}

// Pause implements the device.Device interface.
func (aud *Audio) Pause() {
	sdl.PauseAudioDevice(aud.id, true)
}

// Resume implements the device.Device interface.
func (aud *Audio) Resume() {
	sdl.PauseAudioDevice(aud.id, false)
}

// Close implements the device.Device interface. Queued but unplayed audio
// is discarded.
func (aud *Audio) Close() {
	if aud.quit != nil {
		close(aud.quit)

		// the pacing goroutine may be mid-render. the device must not be
		// released, and the engine must not be reopened, until it has
		// returned
		<-aud.done

		aud.quit = nil
		aud.done = nil
	}
	sdl.ClearQueuedAudio(aud.id)
	sdl.CloseAudioDevice(aud.id)

	logger.Log("sdlaudio", "closed")
}
