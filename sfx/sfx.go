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

// Package sfx loads short sound effect files and converts them to raw
// interleaved PCM in the engine's nominal format, ready for submission at
// high priority. WAV and MP3 sources are supported.
//
// Loading happens at program start or on a UI thread, never on the
// real-time path, so the package is free to allocate and to take its time
// over resampling.
package sfx

import (
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"

	"github.com/tolband/soundshell/curated"
	"github.com/tolband/soundshell/engine/device"
	"github.com/tolband/soundshell/engine/resample"
	"github.com/tolband/soundshell/logger"
)

// error patterns for the sfx package.
const (
	UnsupportedFile   = "sfx: unsupported file type: %s"
	UnsupportedFormat = "sfx: unsupported target format"
	DecodeFailed      = "sfx: %s: %v"
)

const logTag = "sfx"

// Load reads a WAV or MP3 file and returns interleaved PCM matching the
// given format: resampled to spec.Rate, channel-adapted to spec.Channels
// and quantized to spec.SampleSize bytes per sample. The result can be
// handed to the engine's SubmitAudio as-is.
func Load(filename string, spec device.Spec) ([]byte, error) {
	if !spec.Valid() {
		return nil, curated.Errorf(UnsupportedFormat)
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if ext != ".wav" && ext != ".mp3" {
		return nil, curated.Errorf(UnsupportedFile, filename)
	}

	f, err := os.Open(filename)
	if err != nil {
		return nil, curated.Errorf(DecodeFailed, filename, err)
	}
	defer f.Close()

	var data []float32
	var channels int
	var rate int

	switch ext {
	case ".wav":
		data, channels, rate, err = loadWav(f)
	case ".mp3":
		data, channels, rate, err = loadMp3(f)
	}
	if err != nil {
		return nil, curated.Errorf(DecodeFailed, filename, err)
	}

	logger.Logf(logTag, "%s: %dHz %dch, %d frames", filepath.Base(filename), rate, channels, len(data)/channels)

	data = adaptChannels(data, channels, spec.Channels)

	if rate != spec.Rate {
		frames := len(data) / spec.Channels
		outFrames := frames * spec.Rate / rate
		out := make([]float32, outFrames*spec.Channels)
		resample.Linear(data, frames, out, outFrames, spec.Channels)
		data = out
	}

	return quantize(data, spec), nil
}

func loadWav(f *os.File) ([]float32, int, int, error) {
	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, 0, 0, curated.Errorf("not a valid wav file")
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, 0, err
	}

	// normalise to [-1, 1] from the source bit depth
	div := float32(int(1) << (dec.BitDepth - 1))
	data := make([]float32, len(buf.Data))
	for i, s := range buf.Data {
		data[i] = float32(s) / div
	}

	return data, int(dec.NumChans), int(dec.SampleRate), nil
}

func loadMp3(f *os.File) ([]float32, int, int, error) {
	dec, err := mp3.NewDecoder(f)
	if err != nil {
		return nil, 0, 0, err
	}

	// the go-mp3 stream is always 16-bit little-endian 2 channel,
	// whatever the source file was
	data := make([]float32, 0, 4096)
	chunk := make([]byte, 4096)

	err = nil
	for err != io.EOF {
		var n int
		n, err = dec.Read(chunk)
		if err != nil && err != io.EOF {
			return nil, 0, 0, err
		}
		for i := 0; i+1 < n; i += 2 {
			s := int16(binary.LittleEndian.Uint16(chunk[i:]))
			data = append(data, float32(s)/32768)
		}
	}

	return data, 2, int(dec.SampleRate()), nil
}

// adaptChannels maps interleaved source channels onto the target channel
// count. Extra target channels repeat the source; extra source channels
// are averaged away.
func adaptChannels(data []float32, from int, to int) []float32 {
	if from == to {
		return data
	}

	frames := len(data) / from
	out := make([]float32, frames*to)

	for f := 0; f < frames; f++ {
		if from == 1 {
			for c := 0; c < to; c++ {
				out[f*to+c] = data[f]
			}
			continue
		}

		// downmix by averaging all source channels
		var acc float32
		for c := 0; c < from; c++ {
			acc += data[f*from+c]
		}
		acc /= float32(from)
		for c := 0; c < to; c++ {
			out[f*to+c] = acc
		}
	}

	return out
}

// quantize converts float samples to the fixed-point wire format the
// engine's producer contract specifies.
func quantize(data []float32, spec device.Spec) []byte {
	out := make([]byte, len(data)*spec.SampleSize)

	for i, s := range data {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}

		switch spec.SampleSize {
		case 1:
			out[i] = byte(int(s*127) + 128)
		case 2:
			binary.NativeEndian.PutUint16(out[i*2:], uint16(int16(s*32767)))
		}
	}

	return out
}
