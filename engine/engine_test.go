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

package engine_test

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/tolband/soundshell/curated"
	"github.com/tolband/soundshell/engine"
	"github.com/tolband/soundshell/engine/device"
	"github.com/tolband/soundshell/test"
)

// fakeDevice implements device.Device without any hardware. The test
// drives the render callback by hand, standing in for the hardware clock.
type fakeDevice struct {
	spec   device.Spec
	render device.RenderFunc

	// if non-zero, the granted rate differs from the requested rate
	grantRate int

	// number of Open calls to fail before succeeding again
	failOpens int

	opens  int
	closes int
	paused bool
}

const errFakeOpen = "fake device: open failure"

func (d *fakeDevice) Open(req device.Spec, render device.RenderFunc) (device.Spec, error) {
	d.opens++
	if d.failOpens > 0 {
		d.failOpens--
		return device.Spec{}, curated.Errorf(errFakeOpen)
	}

	granted := req
	if d.grantRate != 0 {
		granted.Rate = d.grantRate
	}
	d.spec = granted
	d.render = render
	return granted, nil
}

func (d *fakeDevice) Pause()  { d.paused = true }
func (d *fakeDevice) Resume() { d.paused = false }
func (d *fakeDevice) Close()  { d.closes++ }

// Render plays the part of the hardware callback, asking the engine for
// the given number of frames.
func (d *fakeDevice) Render(frames int) []byte {
	out := make([]byte, frames*d.spec.FrameSize())
	d.render(out)
	return out
}

func s16(p []byte, i int) int16 {
	return int16(binary.NativeEndian.Uint16(p[i*2:]))
}

// fill16 fills a chunk with a constant native byte order signed 16-bit
// sample.
func fill16(p []byte, v float32) {
	for i := 0; i < len(p)/2; i++ {
		binary.NativeEndian.PutUint16(p[i*2:], uint16(int16(v*32767)))
	}
}

func TestInitialize(t *testing.T) {
	dev := &fakeDevice{}
	e := engine.NewEngine(dev)

	test.ExpectedSuccess(t, e.Initialize(44100, 1, 2))
	test.Equate(t, dev.opens, 1)

	if e.LatencyMs() <= 0 {
		t.Fatalf("expected positive measured latency, got %f", e.LatencyMs())
	}

	// unsupported formats are rejected without touching the device
	test.ExpectedFailure(t, e.Initialize(44100, 1, 3))
	test.ExpectedFailure(t, e.Initialize(0, 1, 2))
	test.ExpectedFailure(t, e.Initialize(44100, 0, 2))
}

func TestInitializeDeviceFailure(t *testing.T) {
	dev := &fakeDevice{failOpens: 1}
	e := engine.NewEngine(dev)

	// device open failure is non-fatal; a retry can succeed
	test.ExpectedFailure(t, e.Initialize(44100, 2, 2))
	test.ExpectedSuccess(t, e.Initialize(44100, 2, 2))
}

func TestSubmitFrameAlignment(t *testing.T) {
	dev := &fakeDevice{}
	e := engine.NewEngine(dev)
	test.ExpectedSuccess(t, e.Initialize(44100, 2, 2))

	// stereo 16-bit frames are 4 bytes. fractional frames are a caller
	// error
	test.ExpectedFailure(t, e.SubmitAudio(make([]byte, 6), engine.Low))
	test.ExpectedSuccess(t, e.SubmitAudio(make([]byte, 8), engine.Low))
}

func TestSubmitOverflow(t *testing.T) {
	dev := &fakeDevice{}
	e := engine.NewEngine(dev)
	test.ExpectedSuccess(t, e.Initialize(44100, 1, 1))

	// fill the high priority buffer to capacity and beyond. overflow is a
	// boolean return plus a counter, never a partial write
	big := make([]byte, 8*1024)
	test.ExpectedSuccess(t, e.SubmitAudio(big, engine.High))
	test.ExpectedFailure(t, e.SubmitAudio([]byte{0}, engine.High))
	test.Equate(t, e.Stats().Overruns, int64(1))
}

func TestBufferFillPercent(t *testing.T) {
	dev := &fakeDevice{}
	e := engine.NewEngine(dev)
	test.ExpectedSuccess(t, e.Initialize(44100, 1, 1))

	test.EquateFloat(t, e.BufferFillPercent(), 0, 1e-9)

	// 8KiB into a combined capacity of 40KiB
	test.ExpectedSuccess(t, e.SubmitAudio(make([]byte, 8*1024), engine.High))
	test.EquateFloat(t, e.BufferFillPercent(), 20, 1e-9)
}

func TestEndToEndTone(t *testing.T) {
	const (
		rate   = 44100
		frames = 512
		freq   = 440.0
	)

	dev := &fakeDevice{}
	e := engine.NewEngine(dev)
	test.ExpectedSuccess(t, e.Initialize(rate, 1, 2))
	e.SetVolume(1.0)

	// one second of a 440Hz tone through the whole callback path. with a
	// resample ratio of 1.0 and full volume the output must reproduce the
	// tone with only fixed-point quantization error
	chunk := make([]byte, frames*2)
	for block := 0; block < rate/frames; block++ {
		for i := 0; i < frames; i++ {
			n := block*frames + i
			s := int16(0.7 * 32767 * math.Sin(2*math.Pi*freq*float64(n)/rate))
			binary.NativeEndian.PutUint16(chunk[i*2:], uint16(s))
		}

		test.DemandEquality(t, e.SubmitAudio(chunk, engine.Low), true)
		out := dev.Render(frames)

		for i := 0; i < frames; i++ {
			want := s16(chunk, i)
			got := s16(out, i)
			if d := int(want) - int(got); d < -4 || d > 4 {
				t.Fatalf("block %d sample %d: got %d, want %d", block, i, got, want)
			}
		}
	}

	// a clean run records no underruns
	test.Equate(t, e.Stats().Underruns, int64(0))
}

func TestVolumeLinearity(t *testing.T) {
	dev := &fakeDevice{}
	e := engine.NewEngine(dev)
	test.ExpectedSuccess(t, e.Initialize(44100, 1, 2))

	// constant 0.5 input scaled by a range of volumes
	render := func(vol float64) int16 {
		chunk := make([]byte, 64*2)
		fill16(chunk, 0.5)
		e.SetVolume(vol)
		test.DemandEquality(t, e.SubmitAudio(chunk, engine.Low), true)
		out := dev.Render(64)
		return s16(out, 10)
	}

	full := render(1.0)
	half := render(0.5)
	quarter := render(0.25)

	test.EquateFloat(t, float64(half)/float64(full), 0.5, 0.01)
	test.EquateFloat(t, float64(quarter)/float64(full), 0.25, 0.01)
}

func TestMuteFastPath(t *testing.T) {
	dev := &fakeDevice{}
	e := engine.NewEngine(dev)
	test.ExpectedSuccess(t, e.Initialize(44100, 1, 2))

	chunk := make([]byte, 256*2)
	fill16(chunk, 0.9)
	test.ExpectedSuccess(t, e.SubmitAudio(chunk, engine.Low))

	// 0.005 is below the mute threshold: the output stays silent and the
	// buffered audio is not consumed
	fill := e.BufferFillPercent()
	e.SetVolume(0.005)
	out := dev.Render(256)
	for i := range out {
		if out[i] != 0 {
			t.Fatalf("non-silence at byte %d on mute fast path", i)
		}
	}
	test.EquateFloat(t, e.BufferFillPercent(), fill, 1e-9)

	// volume zero likewise
	e.SetVolume(0)
	out = dev.Render(256)
	for i := range out {
		if out[i] != 0 {
			t.Fatalf("non-silence at byte %d with zero volume", i)
		}
	}
}

func TestUnsigned8Silence(t *testing.T) {
	dev := &fakeDevice{}
	e := engine.NewEngine(dev)
	test.ExpectedSuccess(t, e.Initialize(44100, 1, 1))

	// unsigned 8-bit silence is 0x80. an underrun cycle must output that,
	// not zero, or the device pops
	out := dev.Render(64)
	for i := range out {
		test.DemandEquality(t, out[i], byte(0x80))
	}
}

func TestResampledRender(t *testing.T) {
	// the device grants 48kHz against a nominal 44.1kHz. the engine must
	// consume fewer source frames than it outputs and still deliver a
	// full buffer
	dev := &fakeDevice{grantRate: 48000}
	e := engine.NewEngine(dev)
	test.ExpectedSuccess(t, e.Initialize(44100, 1, 2))

	// constant amplitude survives resampling unchanged
	chunk := make([]byte, 1024*2)
	fill16(chunk, 0.5)
	test.ExpectedSuccess(t, e.SubmitAudio(chunk, engine.Low))

	out := dev.Render(512)
	for i := 0; i < 512; i++ {
		got := float64(s16(out, i)) / 32768
		test.EquateFloat(t, got, 0.5, 0.01)
	}

	test.Equate(t, e.Stats().Underruns, int64(0))
}

func TestOversizedRenderRequest(t *testing.T) {
	dev := &fakeDevice{}
	e := engine.NewEngine(dev)
	test.ExpectedSuccess(t, e.Initialize(44100, 1, 2))

	chunk := make([]byte, 4096*2)
	fill16(chunk, 0.5)
	test.ExpectedSuccess(t, e.SubmitAudio(chunk, engine.Low))

	// a request far beyond the granted buffer size renders what the
	// scratch buffers can carry and leaves the remainder silent
	out := dev.Render(9000)
	test.Equate(t, len(out), 9000*2)

	got := float64(s16(out, 100)) / 32768
	test.EquateFloat(t, got, 0.5, 0.01)
	test.Equate(t, s16(out, 8999), int16(0))
}

func TestPauseResumeShutdown(t *testing.T) {
	dev := &fakeDevice{}
	e := engine.NewEngine(dev)
	test.ExpectedSuccess(t, e.Initialize(44100, 1, 2))

	e.Pause()
	test.ExpectedSuccess(t, dev.paused)
	e.Resume()
	test.ExpectedFailure(t, dev.paused)

	e.Shutdown()
	test.Equate(t, dev.closes, 1)

	// shutdown is idempotent
	e.Shutdown()
	test.Equate(t, dev.closes, 1)
}

func TestLatencyIncrease(t *testing.T) {
	dev := &fakeDevice{}
	e := engine.NewEngine(dev)
	test.ExpectedSuccess(t, e.Initialize(44100, 1, 2))

	before := e.Stats().TargetMs

	// three consecutive zero-read mix cycles
	dev.Render(64)
	dev.Render(64)
	dev.Render(64)

	e.CheckPerformanceAndAdjust()

	test.Equate(t, e.Stats().TargetMs, before+10)

	// the adjustment reopened the device with the new target
	test.Equate(t, dev.opens, 2)
	test.Equate(t, dev.closes, 1)

	// and reset the statistics for the new configuration
	test.Equate(t, e.Stats().Underruns, int64(0))
}

func TestLatencyCheckInterval(t *testing.T) {
	dev := &fakeDevice{}
	e := engine.NewEngine(dev)
	test.ExpectedSuccess(t, e.Initialize(44100, 1, 2))

	dev.Render(64)
	dev.Render(64)
	dev.Render(64)

	e.CheckPerformanceAndAdjust()
	opens := dev.opens

	// immediate re-evaluation is ignored; the interval has not elapsed
	dev.Render(64)
	dev.Render(64)
	dev.Render(64)
	e.CheckPerformanceAndAdjust()
	test.Equate(t, dev.opens, opens)
}

func TestLatencyRevertOnReopenFailure(t *testing.T) {
	dev := &fakeDevice{}
	e := engine.NewEngine(dev)
	test.ExpectedSuccess(t, e.Initialize(44100, 1, 2))

	before := e.Stats().TargetMs

	dev.Render(64)
	dev.Render(64)
	dev.Render(64)

	// the reopen with the increased target fails; the engine reverts to
	// the known-good target and reopens with that
	dev.failOpens = 1
	e.CheckPerformanceAndAdjust()

	test.Equate(t, e.Stats().TargetMs, before)
	test.Equate(t, dev.opens, 3)

	// the engine is still delivering audio after the revert
	chunk := make([]byte, 64*2)
	test.ExpectedSuccess(t, e.SubmitAudio(chunk, engine.Low))
	out := dev.Render(64)
	test.Equate(t, len(out), 64*2)
}
