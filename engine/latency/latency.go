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

// Package latency tracks underrun/overrun statistics for the audio engine
// and decides when the target latency should change.
//
// The decisions are advisory. The engine evaluates them from a host-owned
// timer, never from the real-time callback, because acting on a decision
// means closing and reopening the output device. All counters are atomic:
// the recording functions are called from the real-time callback and the
// producer threads, the deciding functions from the host timer.
package latency

import (
	"math"
	"sync/atomic"
)

// Bounds holds the platform default target latency and the range the
// adjustment is clamped to. All values in milliseconds.
type Bounds struct {
	Target int
	Min    int
	Max    int
}

// adjustment step sizes in milliseconds. increases are more aggressive
// than decreases: an audible underrun costs more than a few milliseconds
// of extra lag.
const (
	increaseStep = 10
	decreaseStep = 5
)

// decision thresholds. see ShouldIncrease() and ShouldDecrease().
const (
	consecutiveUnderrunLimit = 3
	cumulativeUnderrunLimit  = 50
	minFramesForDecrease     = 10000
	quietRatePer1000         = 0.1
)

// Latency is the state consulted and mutated by the periodic performance
// check. The zero value is not usable; create instances with New().
type Latency struct {
	bounds Bounds

	targetMs  atomic.Int64
	currentMs atomic.Uint64 // float64 bits

	consecutiveUnderruns atomic.Int64
	consecutiveOverruns  atomic.Int64

	underruns atomic.Int64
	overruns  atomic.Int64
	frames    atomic.Int64

	// guards against overlapping adjustment cycles
	adjusting atomic.Bool
}

// Stats is a snapshot of the cumulative counters.
type Stats struct {
	Underruns int64
	Overruns  int64
	Frames    int64
	TargetMs  int
	CurrentMs float64
}

// New is the preferred method of initialisation for the Latency type. The
// target latency starts at the platform default.
func New() *Latency {
	l := &Latency{
		bounds: defaultBounds,
	}
	l.targetMs.Store(int64(defaultBounds.Target))
	return l
}

// Bounds returns the platform latency bounds in use.
func (l *Latency) Bounds() Bounds {
	return l.bounds
}

// TargetMs returns the current target latency in milliseconds.
func (l *Latency) TargetMs() int {
	return int(l.targetMs.Load())
}

// SetTargetMs sets the target latency, clamped to the platform bounds.
// Used when reverting to a known-good value after a failed reinit.
func (l *Latency) SetTargetMs(ms int) {
	l.targetMs.Store(int64(l.clamp(ms)))
}

// CurrentMs returns the measured latency of the open device, as derived
// from the granted buffer size and sample rate.
func (l *Latency) CurrentMs() float64 {
	return math.Float64frombits(l.currentMs.Load())
}

// SetCurrentMs records the measured latency of the open device.
func (l *Latency) SetCurrentMs(ms float64) {
	l.currentMs.Store(math.Float64bits(ms))
}

// RecordMix accounts for one completed mix cycle. underrun indicates that
// neither priority buffer had any data this cycle. Called from the
// real-time callback.
func (l *Latency) RecordMix(frames int, underrun bool) {
	l.frames.Add(int64(frames))
	if underrun {
		l.underruns.Add(1)
		l.consecutiveUnderruns.Add(1)
	} else {
		l.consecutiveUnderruns.Store(0)
	}
}

// RecordOverrun accounts for a rejected submit. Called from producer
// threads.
func (l *Latency) RecordOverrun() {
	l.overruns.Add(1)
	l.consecutiveOverruns.Add(1)
}

// RecordSubmit accounts for an accepted submit, ending any overrun streak.
func (l *Latency) RecordSubmit() {
	l.consecutiveOverruns.Store(0)
}

// ShouldIncrease is true when playback is starving: either a streak of
// consecutive underruns or too many in total.
func (l *Latency) ShouldIncrease() bool {
	return l.consecutiveUnderruns.Load() >= consecutiveUnderrunLimit ||
		l.underruns.Load() > cumulativeUnderrunLimit
}

// ShouldDecrease is true when playback has been demonstrably quiet for
// long enough and there is still room below the current target. Decreasing
// latency is never urgent so the conditions are deliberately conservative.
func (l *Latency) ShouldDecrease() bool {
	if l.TargetMs() <= l.bounds.Min {
		return false
	}

	frames := l.frames.Load()
	if frames <= minFramesForDecrease {
		return false
	}

	per1000 := func(n int64) float64 {
		return float64(n) * 1000 / float64(frames)
	}
	return per1000(l.underruns.Load()) < quietRatePer1000 &&
		per1000(l.overruns.Load()) < quietRatePer1000
}

// Increase raises the target latency by one step, clamped to the platform
// maximum, and returns the new target.
func (l *Latency) Increase() int {
	t := l.clamp(l.TargetMs() + increaseStep)
	l.targetMs.Store(int64(t))
	return t
}

// Decrease lowers the target latency by one step, clamped to the platform
// minimum, and returns the new target.
func (l *Latency) Decrease() int {
	t := l.clamp(l.TargetMs() - decreaseStep)
	l.targetMs.Store(int64(t))
	return t
}

// ResetConsecutive zeroes the consecutive underrun/overrun counters. The
// periodic performance check calls this after every evaluation regardless
// of outcome.
func (l *Latency) ResetConsecutive() {
	l.consecutiveUnderruns.Store(0)
	l.consecutiveOverruns.Store(0)
}

// ResetStats zeroes all counters, cumulative and consecutive.
func (l *Latency) ResetStats() {
	l.underruns.Store(0)
	l.overruns.Store(0)
	l.frames.Store(0)
	l.ResetConsecutive()
}

// Snapshot returns the current values of the cumulative counters.
func (l *Latency) Snapshot() Stats {
	return Stats{
		Underruns: l.underruns.Load(),
		Overruns:  l.overruns.Load(),
		Frames:    l.frames.Load(),
		TargetMs:  l.TargetMs(),
		CurrentMs: l.CurrentMs(),
	}
}

// BeginAdjust marks the start of a disruptive adjustment cycle. Returns
// false if one is already in progress.
func (l *Latency) BeginAdjust() bool {
	return l.adjusting.CompareAndSwap(false, true)
}

// EndAdjust marks the end of an adjustment cycle.
func (l *Latency) EndAdjust() {
	l.adjusting.Store(false)
}

// OptimalBufferFrames returns the hardware buffer size to request for the
// current target latency: the smallest power of two that covers the target
// at the given sample rate, clamped to [64, 2048] frames.
func (l *Latency) OptimalBufferFrames(sampleRate int) int {
	want := sampleRate * l.TargetMs() / 1000

	frames := 64
	for frames < want && frames < 2048 {
		frames <<= 1
	}
	return frames
}

func (l *Latency) clamp(ms int) int {
	if ms < l.bounds.Min {
		return l.bounds.Min
	}
	if ms > l.bounds.Max {
		return l.bounds.Max
	}
	return ms
}
