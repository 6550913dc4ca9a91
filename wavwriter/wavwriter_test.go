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

package wavwriter_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/wav"

	"github.com/tolband/soundshell/curated"
	"github.com/tolband/soundshell/engine/device"
	"github.com/tolband/soundshell/test"
	"github.com/tolband/soundshell/wavwriter"
)

func TestCaptureRoundTrip(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "capture.wav")

	spec := device.Spec{
		Rate:         44100,
		Channels:     2,
		SampleSize:   2,
		BufferFrames: 512,
	}

	w := wavwriter.NewWriter(filename)

	// two tapped blocks of a fixed value. 0.5 quantises to 16383
	block := make([]float32, 256)
	for i := range block {
		block[i] = 0.5
	}
	w.Tap(block, spec)
	w.Tap(block, spec)

	err := w.Save()
	test.ExpectedSuccess(t, err)

	f, err := os.Open(filename)
	test.DemandEquality(t, err, nil)
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		t.Fatal("saved file is not a valid WAV file")
	}

	buf, err := dec.FullPCMBuffer()
	test.ExpectedSuccess(t, err)

	test.Equate(t, buf.Format.SampleRate, 44100)
	test.Equate(t, buf.Format.NumChannels, 2)
	test.Equate(t, len(buf.Data), 512)

	for _, v := range buf.Data {
		test.Equate(t, v, 16383)
	}
}

func TestCaptureClamping(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "clamp.wav")

	spec := device.Spec{
		Rate:         22050,
		Channels:     1,
		SampleSize:   1,
		BufferFrames: 64,
	}

	w := wavwriter.NewWriter(filename)
	w.Tap([]float32{2.0, -2.0}, spec)

	err := w.Save()
	test.ExpectedSuccess(t, err)

	f, err := os.Open(filename)
	test.DemandEquality(t, err, nil)
	defer f.Close()

	dec := wav.NewDecoder(f)
	buf, err := dec.FullPCMBuffer()
	test.ExpectedSuccess(t, err)

	test.Equate(t, len(buf.Data), 2)
	test.Equate(t, buf.Data[0], 32767)
	test.Equate(t, buf.Data[1], -32767)
}

func TestEmptyCapture(t *testing.T) {
	w := wavwriter.NewWriter(filepath.Join(t.TempDir(), "empty.wav"))
	err := w.Save()
	test.ExpectedFailure(t, err)
	if !curated.Is(err, wavwriter.NothingToDo) {
		t.Errorf("unexpected error from empty capture: %v", err)
	}
}
