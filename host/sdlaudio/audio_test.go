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

package sdlaudio_test

import (
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tolband/soundshell/engine/device"
	"github.com/tolband/soundshell/host/sdlaudio"
	"github.com/tolband/soundshell/test"
)

// the dummy driver needs no hardware and discards everything queued.
func init() {
	os.Setenv("SDL_AUDIODRIVER", "dummy")
}

func TestCloseWaitsForPacingLoop(t *testing.T) {
	aud, err := sdlaudio.NewAudio()
	test.DemandEquality(t, err, nil)

	var renders atomic.Int64
	render := func(out []byte) {
		renders.Add(1)
	}

	req := device.Spec{
		Rate:         44100,
		Channels:     1,
		SampleSize:   2,
		BufferFrames: 512,
	}

	granted, err := aud.Open(req, render)
	test.ExpectedSuccess(t, err)
	test.Equate(t, granted.Channels, 1)

	// wait for the pacing loop to invoke the render callback at least once
	deadline := time.Now().Add(2 * time.Second)
	for renders.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("pacing loop never invoked the render callback")
		}
		time.Sleep(time.Millisecond)
	}

	// once Close has returned the pacing loop has exited; no render
	// invocation can arrive afterwards, however long we wait
	aud.Close()
	n := renders.Load()
	time.Sleep(50 * time.Millisecond)
	test.Equate(t, renders.Load(), n)
}
