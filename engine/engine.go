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

package engine

import (
	"encoding/binary"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tolband/soundshell/engine/device"
	"github.com/tolband/soundshell/engine/latency"
	"github.com/tolband/soundshell/engine/mix"
	"github.com/tolband/soundshell/engine/resample"
	"github.com/tolband/soundshell/engine/ringbuffer"
	"github.com/tolband/soundshell/logger"
)

// Priority selects which of the two streams a submit is for.
type Priority int

// The two priority classes. Each maps to exactly one ring buffer.
const (
	// continuous audio from the emulated machine
	Low Priority = iota

	// short transient sounds. anything submitted here ducks the low
	// priority stream while it plays
	High
)

// ring buffer capacities in bytes. the low priority stream is continuous
// and needs room for scheduling jitter on the emulation thread; high
// priority sounds are short and submitted whole.
const (
	highCapacity = 8 * 1024
	lowCapacity  = 32 * 1024
)

// volume at or below this threshold short-circuits the render path
// entirely.
const muteThreshold = 0.01

// resample ratios within this distance of 1.0 bypass the resampler.
const resampleBypass = 0.001

// minimum wall-clock time between latency evaluations. the host timer may
// fire more often; extra calls are ignored.
const performanceCheckInterval = 5 * time.Second

// Tap receives each rendered float block after volume scaling and
// clamping, before quantization. Taps run on the real-time callback
// thread; a tap that blocks or allocates defeats the engine's real-time
// guarantees and belongs in debugging sessions only.
type Tap func(samples []float32, spec device.Spec)

// Engine is the unified audio backend. It owns two priority ring buffers,
// the mixer, the latency controller and the output device.
//
// Create instances with NewEngine(). An Engine produces no sound until
// Initialize() succeeds.
type Engine struct {
	dev device.Device

	// control-plane serialisation. never held on the render path
	crit sync.Mutex

	// requested (nominal) format. producers submit PCM in this format
	req device.Spec

	// format actually granted by the hardware
	granted device.Spec

	open bool

	high *ringbuffer.RingBuffer
	low  *ringbuffer.RingBuffer

	mixer *mix.Mixer
	lat   *latency.Latency

	resampleRatio float64

	// scratch buffers prepared at device-open time. the render path only
	// ever slices into these
	srcBuf []float32
	dstBuf []float32

	// global volume in [0, 1], stored as float64 bits
	volume atomicFloat

	tap Tap

	lastCheck time.Time
}

// NewEngine is the preferred method of initialisation for the Engine
// type. The supplied device is used for the lifetime of the engine.
func NewEngine(dev device.Device) *Engine {
	e := &Engine{
		dev: dev,
		lat: latency.New(),
	}
	e.volume.store(1.0)
	return e
}

// SetTap attaches a render tap. Must be called before Initialize() and
// never while the device is running.
func (e *Engine) SetTap(tap Tap) {
	e.tap = tap
}

// Initialize opens the output device for the given nominal format.
// sampleSize is 1 for unsigned 8-bit PCM or 2 for signed 16-bit PCM.
//
// Both ring buffers and all statistics are reset. Returns false if the
// format is unsupported or the device would not open; the failure is
// non-fatal and Initialize can be called again with different parameters.
func (e *Engine) Initialize(sampleRate int, channels int, sampleSize int) bool {
	e.crit.Lock()
	defer e.crit.Unlock()

	req := device.Spec{
		Rate:       sampleRate,
		Channels:   channels,
		SampleSize: sampleSize,
	}
	if !req.Valid() {
		logger.Logf("engine", "unsupported format: %dHz %dch %d-byte", sampleRate, channels, sampleSize)
		return false
	}

	if e.open {
		e.dev.Close()
		e.open = false
	}

	e.req = req

	// backend reinitialisation is the only point at which the ring buffers
	// are ever emptied
	e.high = ringbuffer.NewRingBuffer(highCapacity)
	e.low = ringbuffer.NewRingBuffer(lowCapacity)
	e.mixer = mix.NewMixer(e.high, e.low, channels, sampleSize)

	e.lat.ResetStats()
	e.lastCheck = time.Time{}

	return e.openDevice()
}

// openDevice opens the device for the current request and target latency
// and prepares the render scratch buffers. Caller must hold e.crit.
func (e *Engine) openDevice() bool {
	req := e.req
	req.BufferFrames = e.lat.OptimalBufferFrames(req.Rate)

	granted, err := e.dev.Open(req, e.render)
	if err != nil {
		logger.Logf("engine", "device open: %v", err)
		return false
	}

	e.granted = granted
	e.resampleRatio = float64(granted.Rate) / float64(e.req.Rate)

	// scratch sizing: the callback may legally ask for more frames than
	// the granted buffer size suggests, so leave headroom. sized here,
	// once, so the render path never allocates
	maxDst := granted.BufferFrames * 4
	if maxDst < 4096 {
		maxDst = 4096
	}
	maxSrc := int(float64(maxDst)/e.resampleRatio) + 2
	if maxSrc < maxDst {
		maxSrc = maxDst
	}
	e.dstBuf = make([]float32, maxDst*granted.Channels)
	e.srcBuf = make([]float32, maxSrc*granted.Channels)

	e.lat.SetCurrentMs(granted.LatencyMs())
	e.open = true

	logger.Logf("engine", "device open: %dHz %dch, %d frames (%.1fms)",
		granted.Rate, granted.Channels, granted.BufferFrames, granted.LatencyMs())

	return true
}

// render is the real-time callback. It is invoked by the device on a
// thread the engine does not own and must never block or allocate.
func (e *Engine) render(out []byte) {
	frameSize := e.granted.FrameSize()
	frames := len(out) / frameSize
	if frames == 0 {
		return
	}

	// silence first so that every early return leaves a quiet buffer
	silence := e.granted.Silence()
	for i := range out {
		out[i] = silence
	}

	// the scratch buffers carry headroom over the granted buffer size but
	// the device contract puts no upper bound on a request. render what
	// fits; the remainder stays silent
	if max := len(e.dstBuf) / e.granted.Channels; frames > max {
		frames = max
	}

	// mute fast path
	vol := e.volume.load()
	if vol <= muteThreshold {
		return
	}

	// the mixer works at the nominal rate
	bypass := math.Abs(e.resampleRatio-1) <= resampleBypass
	srcFrames := frames
	if !bypass {
		srcFrames = int(float64(frames)/e.resampleRatio + 0.5)
		if srcFrames < 1 {
			srcFrames = 1
		}
		if max := len(e.srcBuf) / e.granted.Channels; srcFrames > max {
			srcFrames = max
		}
	}

	src := e.srcBuf[:srcFrames*e.granted.Channels]
	nHigh, nLow := e.mixer.Mix(src, srcFrames)
	e.lat.RecordMix(frames, nHigh == 0 && nLow == 0)

	mixed := src
	if !bypass {
		mixed = e.dstBuf[:frames*e.granted.Channels]
		resample.Linear(src, srcFrames, mixed, frames, e.granted.Channels)
	}

	// volume and hard clamp before quantization
	v := float32(vol)
	for i, s := range mixed {
		s *= v
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		mixed[i] = s
	}

	if e.tap != nil {
		e.tap(mixed, e.granted)
	}

	switch e.granted.SampleSize {
	case 1:
		for i, s := range mixed {
			out[i] = byte(int(s*127) + 128)
		}
	case 2:
		for i, s := range mixed {
			binary.NativeEndian.PutUint16(out[i*2:], uint16(int16(s*32767)))
		}
	}
}

// SubmitAudio queues raw interleaved PCM in the nominal format for
// playback. The data length must be a whole multiple of the frame size.
//
// Returns false without blocking when the target ring buffer lacks
// capacity; the caller is expected to drop the data or retry later, never
// to wait. A false return for reasons of overflow is recorded in the
// overrun statistics.
func (e *Engine) SubmitAudio(data []byte, priority Priority) bool {
	frameSize := e.req.FrameSize()
	if frameSize == 0 {
		return false
	}
	if len(data)%frameSize != 0 {
		// fractional frames are a caller error
		logger.Logf("engine", "submit of %d bytes is not a whole number of %d-byte frames", len(data), frameSize)
		return false
	}

	ring := e.low
	if priority == High {
		ring = e.high
	}
	if ring == nil {
		return false
	}

	if !ring.Write(data) {
		e.lat.RecordOverrun()
		return false
	}

	e.lat.RecordSubmit()
	return true
}

// SetVolume sets the global volume. The value is clamped to [0, 1].
// Values at or below the mute threshold short-circuit the render path.
func (e *Engine) SetVolume(v float64) {
	if v < 0 {
		v = 0
	} else if v > 1 {
		v = 1
	}
	e.volume.store(v)
}

// Volume returns the current global volume.
func (e *Engine) Volume() float64 {
	return e.volume.load()
}

// LatencyMs returns the measured latency of the open device in
// milliseconds.
func (e *Engine) LatencyMs() float64 {
	return e.lat.CurrentMs()
}

// BufferFillPercent returns the combined occupancy of both priority
// buffers over their combined capacity, as a percentage.
func (e *Engine) BufferFillPercent() float64 {
	if e.high == nil || e.low == nil {
		return 0
	}
	used := e.high.Size() + e.low.Size()
	capacity := e.high.Capacity() + e.low.Capacity()
	return float64(used) * 100 / float64(capacity)
}

// Stats returns a snapshot of the cumulative performance counters.
func (e *Engine) Stats() latency.Stats {
	return e.lat.Snapshot()
}

// ResetStats zeroes all performance counters.
func (e *Engine) ResetStats() {
	e.lat.ResetStats()
}

// Pause suspends playback. Audio already queued in the priority buffers is
// retained and will play after Resume.
func (e *Engine) Pause() {
	e.crit.Lock()
	defer e.crit.Unlock()
	if e.open {
		e.dev.Pause()
	}
}

// Resume restarts playback after Pause.
func (e *Engine) Resume() {
	e.crit.Lock()
	defer e.crit.Unlock()
	if e.open {
		e.dev.Resume()
	}
}

// Shutdown closes the output device. Buffered but unplayed audio is
// discarded. The engine can be reopened with Initialize().
func (e *Engine) Shutdown() {
	e.crit.Lock()
	defer e.crit.Unlock()
	if e.open {
		e.dev.Close()
		e.open = false
	}
}

// CheckPerformanceAndAdjust evaluates the underrun/overrun statistics and,
// when justified, changes the target latency and reopens the device with
// the new buffer size.
//
// Intended to be invoked periodically by a host-owned timer; the engine
// does not schedule it itself. Evaluations happen at most once per
// interval regardless of how often the timer fires. This is a disruptive
// operation and must never be called from the render path.
func (e *Engine) CheckPerformanceAndAdjust() {
	e.crit.Lock()
	defer e.crit.Unlock()

	if !e.open {
		return
	}

	now := time.Now()
	if !e.lastCheck.IsZero() && now.Sub(e.lastCheck) < performanceCheckInterval {
		return
	}
	e.lastCheck = now

	if !e.lat.BeginAdjust() {
		return
	}
	defer e.lat.EndAdjust()

	prev := e.lat.TargetMs()

	switch {
	case e.lat.ShouldIncrease():
		logger.Logf("latency", "increasing target to %dms (stats: %+v)", e.lat.Increase(), e.lat.Snapshot())
	case e.lat.ShouldDecrease():
		logger.Logf("latency", "decreasing target to %dms", e.lat.Decrease())
	}

	// the consecutive counters start a new observation window after every
	// evaluation, adjusted or not
	e.lat.ResetConsecutive()

	if e.lat.TargetMs() == prev {
		return
	}

	// apply the new target with a full device reopen
	e.dev.Close()
	e.open = false
	e.lat.ResetStats()

	if e.openDevice() {
		return
	}

	// reinitialisation failed; revert to the known-good target and try
	// once more
	logger.Logf("latency", "reopen at %dms failed; reverting to %dms", e.lat.TargetMs(), prev)
	e.lat.SetTargetMs(prev)
	if !e.openDevice() {
		logger.Log("latency", "reopen at reverted target failed; device closed")
	}
}

// atomicFloat is a float64 stored as raw bits in a uint64. volume and
// measured latency must be readable from the render path without locks.
type atomicFloat struct {
	bits atomic.Uint64
}

func (a *atomicFloat) store(v float64) {
	a.bits.Store(math.Float64bits(v))
}

func (a *atomicFloat) load() float64 {
	return math.Float64frombits(a.bits.Load())
}
