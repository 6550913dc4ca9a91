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

// Package resample converts blocks of interleaved float samples from one
// frame count to another by linear interpolation. Linear interpolation is
// good enough for bridging the small difference between an emulated
// machine's nominal sample rate and whatever rate the output device
// actually granted. It is not a general purpose sample rate converter.
package resample

// Linear fills output with outputFrames frames interpolated from the first
// inputFrames frames of input. Samples are interleaved; both slices must
// hold at least frames×channels values.
//
// The function is stateless and performs no allocation.
//
// When inputFrames equals outputFrames the output is a verbatim copy of
// the input. There is no interpolation drift on the identity path.
func Linear(input []float32, inputFrames int, output []float32, outputFrames int, channels int) {
	if inputFrames <= 0 || outputFrames <= 0 || channels <= 0 {
		return
	}

	ratio := float64(inputFrames) / float64(outputFrames)

	for o := 0; o < outputFrames; o++ {
		pos := float64(o) * ratio
		src := int(pos)
		frac := float32(pos - float64(src))

		// no extrapolation past the last input frame
		if src >= inputFrames-1 {
			src = inputFrames - 1
			frac = 0
		}

		if frac == 0 {
			copy(output[o*channels:(o+1)*channels], input[src*channels:(src+1)*channels])
			continue
		}

		for c := 0; c < channels; c++ {
			a := input[src*channels+c]
			b := input[(src+1)*channels+c]
			output[o*channels+c] = a + frac*(b-a)
		}
	}
}
