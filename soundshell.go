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

package main

import (
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/tolband/soundshell/engine"
	"github.com/tolband/soundshell/engine/device"
	"github.com/tolband/soundshell/host/paaudio"
	"github.com/tolband/soundshell/host/sdlaudio"
	"github.com/tolband/soundshell/logger"
	"github.com/tolband/soundshell/modalflag"
	"github.com/tolband/soundshell/sfx"
	"github.com/tolband/soundshell/version"
	"github.com/tolband/soundshell/wavwriter"
)

// number of frames submitted to the engine per iteration of the play loop.
const submitFrames = 1024

func main() {
	md := &modalflag.Modes{Output: os.Stdout}
	md.NewArgs(os.Args[1:])
	md.AddSubModes("PLAY", "VERSION")

	p, err := md.Parse()
	switch p {
	case modalflag.ParseHelp:
		os.Exit(0)
	case modalflag.ParseError:
		fmt.Printf("* error: %v\n", err)
		os.Exit(10)
	}

	switch md.Mode() {
	case "PLAY":
		err = play(md)
	case "VERSION":
		vers, rev, release := version.Version()
		fmt.Printf("%s %s\n", version.ApplicationName, vers)
		if !release {
			fmt.Printf("  %s\n", rev)
		}
	}

	if err != nil {
		fmt.Printf("* error in %s mode: %s\n", md.String(), err)
		os.Exit(20)
	}
}

func play(md *modalflag.Modes) error {
	md.NewMode()

	dev := md.AddString("device", "sdl", "output device to use: SDL, PORTAUDIO")
	rate := md.AddInt("rate", 44100, "nominal sample rate")
	channels := md.AddInt("channels", 2, "number of channels: 1, 2")
	bits := md.AddInt("bits", 16, "sample depth: 8, 16")
	volume := md.AddFloat64("volume", 1.0, "playback volume")
	priority := md.AddBool("priority", false, "submit on the high priority stream")
	wav := md.AddString("wav", "", "record rendered audio to wav file")
	log := md.AddBool("log", false, "echo debugging log to stdout")

	p, err := md.Parse()
	if err != nil || p != modalflag.ParseContinue {
		return err
	}

	if *log {
		logger.SetEcho(os.Stdout)
	} else {
		logger.SetEcho(nil)
	}

	if len(md.RemainingArgs()) != 1 {
		return fmt.Errorf("a single wav or mp3 file is required for %s mode", md)
	}

	spec := device.Spec{
		Rate:       *rate,
		Channels:   *channels,
		SampleSize: *bits / 8,
	}
	if !spec.Valid() {
		return fmt.Errorf("unsupported format: %dHz %dch %dbit", *rate, *channels, *bits)
	}

	pcm, err := sfx.Load(md.GetArg(0), spec)
	if err != nil {
		return err
	}

	var d device.Device
	switch *dev {
	case "sdl", "SDL":
		d, err = sdlaudio.NewAudio()
		if err != nil {
			return err
		}
	case "portaudio", "PORTAUDIO":
		pa, err := paaudio.NewAudio()
		if err != nil {
			return err
		}
		defer pa.Terminate()
		d = pa
	default:
		return fmt.Errorf("unknown device type: %s", *dev)
	}

	eng := engine.NewEngine(d)

	var capture *wavwriter.Writer
	if *wav != "" {
		capture = wavwriter.NewWriter(*wav)
		eng.SetTap(capture.Tap)
	}

	if !eng.Initialize(spec.Rate, spec.Channels, spec.SampleSize) {
		return fmt.Errorf("audio device would not open")
	}
	defer eng.Shutdown()

	eng.SetVolume(*volume)

	prio := engine.Low
	if *priority {
		prio = engine.High
	}

	// #ctrlc
	intChan := make(chan os.Signal, 1)
	signal.Notify(intChan, os.Interrupt)

	interrupted := func() bool {
		select {
		case <-intChan:
			fmt.Println("\r")
			return true
		default:
			return false
		}
	}

	// submit in chunks, never blocking in the engine. a full ring means we
	// wait our turn
	chunk := submitFrames * spec.FrameSize()
	for len(pcm) > 0 {
		if interrupted() {
			return nil
		}

		n := chunk
		if n > len(pcm) {
			n = len(pcm)
		}
		if eng.SubmitAudio(pcm[:n], prio) {
			pcm = pcm[n:]
		} else {
			time.Sleep(5 * time.Millisecond)
		}

		eng.CheckPerformanceAndAdjust()
	}

	// wait for the buffered audio to play out
	for eng.BufferFillPercent() > 0 {
		if interrupted() {
			return nil
		}
		time.Sleep(10 * time.Millisecond)
	}
	time.Sleep(time.Duration(eng.LatencyMs()) * time.Millisecond)

	stats := eng.Stats()
	if stats.Underruns > 0 || stats.Overruns > 0 {
		logger.Logf("play", "stats: %+v", stats)
	}

	if capture != nil {
		return capture.Save()
	}

	return nil
}
