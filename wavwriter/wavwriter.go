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

// Package wavwriter saves the engine's rendered output to a WAV file.
//
// The Writer's Tap method attaches to the engine as a render tap. Tapped
// blocks are accumulated in memory and nothing is written to disk until
// Save() is called, keeping file IO away from the render path. The
// capture grows without bound while attached; this is a debugging tool,
// not a production recorder.
package wavwriter

import (
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/tolband/soundshell/curated"
	"github.com/tolband/soundshell/engine/device"
	"github.com/tolband/soundshell/logger"
)

// error patterns for the wavwriter package.
const (
	SaveFailed  = "wavwriter: %v"
	NothingToDo = "wavwriter: nothing captured"
)

// Writer accumulates rendered audio for saving to a WAV file.
type Writer struct {
	filename string

	rate     int
	channels int
	data     []int
}

// NewWriter is the preferred method of initialisation for the Writer
// type. Attach the Tap method to the engine before initialising it.
func NewWriter(filename string) *Writer {
	return &Writer{
		filename: filename,
		data:     make([]int, 0, 1024),
	}
}

// Tap receives a rendered float block from the engine. It satisfies the
// engine's render tap signature.
func (w *Writer) Tap(samples []float32, spec device.Spec) {
	w.rate = spec.Rate
	w.channels = spec.Channels

	for _, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		w.data = append(w.data, int(s*32767))
	}
}

// Save writes the accumulated capture as a 16-bit WAV file.
func (w *Writer) Save() error {
	if len(w.data) == 0 {
		return curated.Errorf(NothingToDo)
	}

	f, err := os.Create(w.filename)
	if err != nil {
		return curated.Errorf(SaveFailed, err)
	}

	enc := wav.NewEncoder(f, w.rate, 16, w.channels, 1)

	buf := &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: w.channels,
			SampleRate:  w.rate,
		},
		SourceBitDepth: 16,
		Data:           w.data,
	}

	if err := enc.Write(buf); err != nil {
		enc.Close()
		f.Close()
		return curated.Errorf(SaveFailed, err)
	}

	if err := enc.Close(); err != nil {
		f.Close()
		return curated.Errorf(SaveFailed, err)
	}

	if err := f.Close(); err != nil {
		return curated.Errorf(SaveFailed, err)
	}

	logger.Logf("wavwriter", "%s: %d frames written", w.filename, len(w.data)/w.channels)

	return nil
}
