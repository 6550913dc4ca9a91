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

// Package engine delivers PCM audio from asynchronous producers to a
// hardware output device in real time.
//
// Producers submit interleaved PCM with SubmitAudio() at one of two
// priorities: High for transient UI sounds, Low for the continuous stream
// from the emulated machine. Each priority has its own lock-free ring
// buffer. The hardware clock drives a callback which mixes the two
// streams (ducking the low priority stream under active high priority
// sound), resamples to the rate the device actually granted, applies the
// global volume and quantizes into the device's fixed-point format.
//
// A host-owned timer should call CheckPerformanceAndAdjust() periodically.
// It inspects underrun/overrun statistics and, when justified, retunes the
// target latency by closing and reopening the device with a different
// buffer size. That is the only disruptive operation the engine performs;
// everything on the callback path is lock and allocation free.
//
// Producer calls and control-plane calls (Initialize, Shutdown, Pause,
// Resume, CheckPerformanceAndAdjust) may come from different threads.
// Control-plane calls are serialised against each other. SubmitAudio()
// assumes a single producer per priority class: the ring buffer occupancy
// counters are not defended against concurrent writers to the same
// priority.
package engine
